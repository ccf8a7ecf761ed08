// Package applyloop drives the full apply cycle described in spec §4.9:
// load context, verify the plan against the lock, stage one cycle's work
// (surface discovery, scenario runs, man page render), build the coverage
// and verification ledgers, publish, evaluate requirements, and either
// finish, invoke the LM adapter, or hand a command back to the operator.
// Grounded on the original implementation's src/workflow/{run.rs,
// apply/mod.rs} for the cycle shape and on the teacher's transactional
// command-handler style (one function per cycle step, errors wrapped with
// bmanerr at each boundary).
package applyloop

import "time"

// Options bounds one Run call; these are CLI-flag-level knobs (spec's
// `--force`/`--refresh-pack`/`--full` plus the cycle/failure caps), not a
// schema.EnrichConfig field — EnrichConfig carries only pack-owned,
// operator-authored settings.
type Options struct {
	Force         bool
	RefreshPack   bool
	Full          bool
	MaxCycles     int
	MaxLmFailures int
	MaxNoProgress int
}

// DefaultOptions mirrors the original implementation's built-in caps.
func DefaultOptions() Options {
	return Options{
		MaxCycles:     20,
		MaxLmFailures: 3,
		MaxNoProgress: 3,
	}
}

func (o Options) effective() Options {
	if o.MaxCycles <= 0 {
		o.MaxCycles = DefaultOptions().MaxCycles
	}
	if o.MaxLmFailures <= 0 {
		o.MaxLmFailures = DefaultOptions().MaxLmFailures
	}
	if o.MaxNoProgress <= 0 {
		o.MaxNoProgress = DefaultOptions().MaxNoProgress
	}
	return o
}

// txnTimestamp formats a cycle's transaction directory name.
func txnTimestamp(nowMs int64) string {
	return time.UnixMilli(nowMs).UTC().Format("20060102T150405.000Z")
}
