package mbus

import (
	"testing"
	"time"
)

func TestRetryTransientErrorsPolicyDelayProgression(t *testing.T) {
	p := NewRetryTransientErrorsPolicy()
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, time.Millisecond},
		{2, 2 * time.Millisecond},
		{3, 4 * time.Millisecond},
	}
	for _, c := range cases {
		if got := p.Delay(c.attempt); got != c.want {
			t.Errorf("Delay(%d) = %v, want %v", c.attempt, got, c.want)
		}
	}
}

func TestRetryTransientErrorsPolicyDelaySaturatesAtMax(t *testing.T) {
	p := NewRetryTransientErrorsPolicy()
	p.SetMaxDelay(5 * time.Millisecond)
	if got := p.Delay(10); got != 5*time.Millisecond {
		t.Errorf("Delay(10) = %v, want saturated 5ms", got)
	}
}

func TestRetryTransientErrorsPolicyCanRetry(t *testing.T) {
	p := NewRetryTransientErrorsPolicy()
	if !p.CanRetry(ConnectionError) {
		t.Error("transient error should be retryable")
	}
	if p.CanRetry(IllegalRoute) {
		t.Error("fatal error should never be retryable")
	}
	p.SetEnabled(false)
	if p.CanRetry(ConnectionError) {
		t.Error("disabled policy should retry nothing")
	}
}
