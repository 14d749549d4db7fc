package mbus

import (
	"sync/atomic"
	"time"
)

// RetryTransientErrorsPolicy is the default IRetryPolicy: it retries every
// transient error code (anything below FatalErrorLimit) with an
// exponential backoff capped at maxDelay, and otherwise refuses (spec
// §4.6/§4.7). Its tunables are lock-free atomics so a heartbeat or admin
// thread can adjust them without contending with the resolver threads
// calling Delay/CanRetry on every retry decision (spec §5).
type RetryTransientErrorsPolicy struct {
	enabled  atomic.Bool
	baseNano atomic.Int64
	maxNano  atomic.Int64
}

// NewRetryTransientErrorsPolicy returns a policy with the defaults used
// throughout spec.md's worked examples: base delay 1ms, doubling per
// attempt, capped at 10s.
func NewRetryTransientErrorsPolicy() *RetryTransientErrorsPolicy {
	p := &RetryTransientErrorsPolicy{}
	p.enabled.Store(true)
	p.baseNano.Store(int64(time.Millisecond))
	p.maxNano.Store(int64(10 * time.Second))
	return p
}

// SetEnabled toggles retrying on/off entirely; CanRetry returns false for
// every code while disabled.
func (p *RetryTransientErrorsPolicy) SetEnabled(b bool) { p.enabled.Store(b) }

// SetBaseDelay sets the delay used for the first retry attempt.
func (p *RetryTransientErrorsPolicy) SetBaseDelay(d time.Duration) { p.baseNano.Store(int64(d)) }

// SetMaxDelay sets the ceiling the exponential backoff saturates at.
func (p *RetryTransientErrorsPolicy) SetMaxDelay(d time.Duration) { p.maxNano.Store(int64(d)) }

// CanRetry reports whether code is eligible for retry: enabled and below
// FatalErrorLimit.
func (p *RetryTransientErrorsPolicy) CanRetry(code ErrorCode) bool {
	return p.enabled.Load() && !code.IsFatal()
}

// Delay returns the backoff for the given attempt number (1-based: attempt
// 1 is the delay before the first retry). It doubles per attempt above the
// first and saturates at maxDelay, matching the 1ms/2ms/4ms progression
// used in spec.md's worked example for attempts 1/2/3 with the default
// base delay. This deliberately does not reproduce the apparent
// off-by-one in the original retrytransienterrorspolicy.cpp, which yields
// a 0ms delay for attempt<=1; see DESIGN.md.
func (p *RetryTransientErrorsPolicy) Delay(attempt int) time.Duration {
	shift := attempt - 1
	if shift < 0 {
		shift = 0
	}
	if shift > 20 {
		shift = 20
	}
	base := time.Duration(p.baseNano.Load())
	max := time.Duration(p.maxNano.Load())
	d := base << uint(shift)
	if d <= 0 || d > max {
		return max
	}
	return d
}
