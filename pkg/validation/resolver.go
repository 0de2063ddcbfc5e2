package validation

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/goliatone/go-formkit/pkg/model"
)

// RuleAsync labels outcomes produced by the async validator.
const RuleAsync = "async"

// DefaultAsyncTimeout bounds a single async check.
const DefaultAsyncTimeout = 10 * time.Second

// Outcome is one step of a resolution. Err is set for async check failures.
type Outcome struct {
	Status  Status
	Message string
	Rule    string
	Err     error
}

// State converts the outcome into a field state.
func (o Outcome) State() State {
	if o.Status == StatusInvalid {
		return Invalid(o.Message)
	}
	return State{Status: o.Status}
}

// Resolve returns the lazy, ordered validation sequence for value. Sync rules
// are yielded as they are evaluated and the sequence ends at the first
// failure. When every rule passes and the field has an async validator, the
// final step invokes it only once the consumer pulls it.
func Resolve(ctx context.Context, field model.Field, value model.Value, opts ...AsyncOption) iter.Seq[Outcome] {
	return func(yield func(Outcome) bool) {
		for _, rule := range field.Rules {
			out := checkRule(rule, value)
			if !yield(out) || out.Status == StatusInvalid {
				return
			}
		}
		if field.Async == nil {
			return
		}
		yield(RunAsync(ctx, field.Async, value, opts...))
	}
}

// Final drains seq and returns its verdict: the last outcome, or valid for an
// empty sequence.
func Final(seq iter.Seq[Outcome]) Outcome {
	final := Outcome{Status: StatusValid}
	for out := range seq {
		final = out
	}
	return final
}

// AsyncOption configures RunAsync.
type AsyncOption func(*asyncConfig)

type asyncConfig struct {
	timeout        time.Duration
	failureMessage string
}

// WithTimeout overrides DefaultAsyncTimeout. Non-positive values are ignored.
func WithTimeout(d time.Duration) AsyncOption {
	return func(cfg *asyncConfig) {
		if d > 0 {
			cfg.timeout = d
		}
	}
}

// WithFailureMessage overrides GenericAsyncFailureMessage.
func WithFailureMessage(msg string) AsyncOption {
	return func(cfg *asyncConfig) {
		if msg != "" {
			cfg.failureMessage = msg
		}
	}
}

// RunAsync invokes validator under a timeout. It always returns a terminal
// outcome: a Rejection becomes invalid(message); any other error, a timeout
// or a panic becomes invalid with the generic failure message and Err set to
// an *AsyncCheckFailure.
func RunAsync(ctx context.Context, validator model.AsyncValidator, value model.Value, opts ...AsyncOption) Outcome {
	cfg := asyncConfig{
		timeout:        DefaultAsyncTimeout,
		failureMessage: GenericAsyncFailureMessage,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if validator == nil {
		return Outcome{Status: StatusValid, Rule: RuleAsync}
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("validator panicked: %v", r)
			}
		}()
		done <- validator.Validate(ctx, value)
	}()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}

	if err == nil {
		return Outcome{Status: StatusValid, Rule: RuleAsync}
	}
	var rejection *Rejection
	if errors.As(err, &rejection) {
		return Outcome{Status: StatusInvalid, Message: rejection.Message, Rule: RuleAsync}
	}
	return Outcome{
		Status:  StatusInvalid,
		Message: cfg.failureMessage,
		Rule:    RuleAsync,
		Err:     &AsyncCheckFailure{Err: err},
	}
}
