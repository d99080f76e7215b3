package generation

import (
	"time"
)

// Decision is the outcome of one retry transition.
type Decision int

const (
	// DecisionRetry: try again with the same model after Sleep.
	DecisionRetry Decision = iota
	// DecisionFallback: the model was advanced; retry immediately
	// without consuming attempt budget.
	DecisionFallback
	// DecisionExhausted: give up and report the empty result.
	DecisionExhausted
)

func (d Decision) String() string {
	switch d {
	case DecisionRetry:
		return "retry"
	case DecisionFallback:
		return "fallback"
	default:
		return "exhausted"
	}
}

// RetryState is the full state of one generation call's retry loop.
// Transitions are pure: Next returns the successor state and never
// touches the network, so the whole policy is testable in isolation.
type RetryState struct {
	Attempt     int // attempts consumed so far
	MaxAttempts int // retries x rotating credentials

	ModelIndex    int // index into the [primary, fallbacks...] chain
	ModelCount    int
	ModelFailures int // consecutive model-unavailable on current model
	FallbackAfter int // failures before advancing the chain

	Backoff    time.Duration // next transient/quota sleep
	MaxBackoff time.Duration
	Sleep      time.Duration // sleep before the next attempt
}

func NewRetryState(maxAttempts, modelCount, fallbackAfter int, initialBackoff, maxBackoff time.Duration) RetryState {
	return RetryState{
		MaxAttempts:   maxAttempts,
		ModelCount:    modelCount,
		FallbackAfter: fallbackAfter,
		Backoff:       initialBackoff,
		MaxBackoff:    maxBackoff,
	}
}

// Next consumes one failure and decides what happens next.
//
// Transient and quota failures consume an attempt and back off with
// doubling capped at MaxBackoff. Model-unavailable failures never
// consume attempt budget: they are counted per model, and reaching
// FallbackAfter consecutive occurrences advances the chain for an
// immediate retry. Termination still holds because each model absorbs
// at most FallbackAfter such failures and the chain is finite; once
// the chain or the attempt budget is gone the call is exhausted.
func (s RetryState) Next(class FailureClass) (RetryState, Decision) {
	switch class {
	case FailureModelUnavailable:
		s.ModelFailures++
		s.Sleep = 0
		if s.ModelFailures >= s.FallbackAfter {
			if s.ModelIndex+1 < s.ModelCount {
				s.ModelIndex++
				s.ModelFailures = 0
				return s, DecisionFallback
			}
			return s, DecisionExhausted
		}
		return s, DecisionRetry

	default: // transient, quota, other: same backoff treatment
		s.ModelFailures = 0
		s.Attempt++
		if s.Attempt >= s.MaxAttempts {
			return s, DecisionExhausted
		}
		s.Sleep = s.Backoff
		s.Backoff *= 2
		if s.Backoff > s.MaxBackoff {
			s.Backoff = s.MaxBackoff
		}
		return s, DecisionRetry
	}
}
