// Package clock isolates the one place the enrichment core reads wall-clock
// time, so digests, history entries, and tests never depend on time.Now
// called ad hoc.
package clock

import "time"

// Clock produces the current time as milliseconds since epoch.
type Clock interface {
	NowMs() int64
}

// System is the production Clock backed by time.Now.
type System struct{}

// NowMs returns the current wall-clock time in epoch milliseconds.
func (System) NowMs() int64 {
	return time.Now().UnixMilli()
}

// Fixed is a Clock that always returns the same instant. Tests use this to
// freeze time instead of monkey-patching time.Now.
type Fixed struct {
	Ms int64
}

// NowMs returns the frozen instant.
func (f Fixed) NowMs() int64 {
	return f.Ms
}
