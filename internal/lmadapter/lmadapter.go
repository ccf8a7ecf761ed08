// Package lmadapter renders prompts for the external LM command, invokes it
// with a bounded retry loop, validates and sanitizes its response, and
// merges accepted mutations back into the scenario plan and surface
// overlays. Grounded on the original implementation's
// src/workflow/lm_client.rs (prompt templates, retry-with-error-context
// loop, sanitization rules) and the teacher's
// internal/perception/claude_cli_client.go (CLI-subprocess invocation
// idiom: exec.CommandContext, stdin/stdout capture, context-bound timeout).
package lmadapter

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bman/internal/bmanerr"
	"bman/internal/clock"
	"bman/internal/logging"
	"bman/internal/schema"
	"bman/internal/toolconfig"
)

// MaxRetries bounds the retry loop beyond the first attempt, matching the
// original implementation's MAX_LM_RETRIES.
const MaxRetries = 2

// ScaffoldHint describes one option the prompt should call out as requiring
// a value, per spec §4.7's "context section describing options whose
// value_arity=required and guidance hints".
type ScaffoldHint struct {
	OptionID    string
	Placeholder string
	Description string
}

// BehaviorTarget is one surface id the evaluator is currently asking the LM
// to make progress on.
type BehaviorTarget struct {
	SurfaceID  string
	ReasonCode schema.UnverifiedReasonCode
	RetryCount int
}

// Request bundles everything InvokeForBehavior needs to build a prompt and
// validate the response.
type Request struct {
	BinaryName  string
	Targets     []BehaviorTarget
	Guidance    string
	ValueHints  []ScaffoldHint
	Cycle       int
}

// Result is one successful LM invocation: the parsed batch plus the
// metadata persisted to the LM log.
type Result struct {
	Batch        schema.LmResponseBatch
	Prompt       string
	RawResponse  string
	Attempts     int
	DurationMs   int64
}

// Invoker runs a single request/response round-trip against the
// operator-configured LM command. Split out as an interface so tests can
// substitute a fake without spawning a process.
type Invoker interface {
	Invoke(ctx context.Context, command, prompt string, timeout time.Duration) (string, error)
}

// InvokeForBehavior renders the behavior-verification prompt for req,
// invokes cfg.Command with a bounded retry loop, and returns the first
// response that parses and validates. On parse/validation failure the
// retry prompt carries the previous error and a truncated excerpt of the
// previous response, per spec §4.7.
func InvokeForBehavior(ctx context.Context, inv Invoker, cfg toolconfig.LmConfig, req Request) (Result, error) {
	validIDs := make(map[string]bool, len(req.Targets))
	for _, t := range req.Targets {
		validIDs[t.SurfaceID] = true
	}

	start := clock.System{}.NowMs()
	command := cfg.Command
	if command == "" {
		command = "bman-lm-genai"
	}

	var lastErr string
	var lastResponse string
	var prompt string

	attempts := MaxRetries + 1
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt == 0 {
			prompt = BuildBehaviorPrompt(req)
		} else {
			logging.LmAdapterWarn("retrying LM invocation (attempt %d/%d): %s", attempt+1, attempts, lastErr)
			prompt = BuildRetryPrompt(req, lastErr, lastResponse)
		}

		raw, err := inv.Invoke(ctx, command, prompt, cfg.LmTimeout())
		if err != nil {
			return Result{}, &bmanerr.LmFailure{Kind: "invocation", Reason: err.Error(), Err: err}
		}

		batch, err := ParseResponse(raw)
		if err != nil {
			lastErr = err.Error()
			lastResponse = raw
			continue
		}

		SanitizeBatch(&batch, req.BinaryName)

		if errs := ValidateBatch(batch, validIDs); len(errs) > 0 {
			lastErr = joinErrors(errs)
			lastResponse = raw
			continue
		}

		return Result{
			Batch:       batch,
			Prompt:      prompt,
			RawResponse: raw,
			Attempts:    attempt + 1,
			DurationMs:  clock.System{}.NowMs() - start,
		}, nil
	}

	return Result{}, &bmanerr.LmFailure{
		Kind:   "parse_or_validate",
		Reason: fmt.Sprintf("LM failed after %d attempts: %s", attempts, lastErr),
	}
}

func joinErrors(errs []error) string {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

// LmConfig is re-exported for callers that only need the timeout-parsing
// helper without importing toolconfig directly.
type LmConfig = toolconfig.LmConfig

// BuildLogEntry assembles the LM log entry persisted via
// reporting.AppendLmLog, summarizing one invocation's outcome for
// enrich/lm_log.jsonl.
func BuildLogEntry(cycle int, kind schema.LmLogKind, cycleEpochMs int64, targetCount int, outcome MergeOutcome, durationMs int64) schema.LmLogEntry {
	result := schema.LmOutcomeSuccess
	switch {
	case outcome.AppliedCount == 0:
		result = schema.LmOutcomeFailed
	case outcome.ErrorCount > 0 || len(outcome.DeferredExclusions) > 0:
		result = schema.LmOutcomePartial
	}
	return schema.LmLogEntry{
		CycleEpochMs: cycleEpochMs,
		Cycle:        cycle,
		Kind:         kind,
		Outcome:      result,
		TargetCount:  targetCount,
		AppliedCount: outcome.AppliedCount,
		ErrorCount:   outcome.ErrorCount,
		DurationMs:   durationMs,
	}
}
