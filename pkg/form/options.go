package form

import (
	"io"
	"log"
	"time"

	"github.com/goliatone/go-formkit/pkg/validation"
	"github.com/goliatone/go-formkit/pkg/visibility"
)

// Trigger selects when edits are validated.
type Trigger int

const (
	// TriggerChange validates on every value change.
	TriggerChange Trigger = iota
	// TriggerBlur defers validation until Blur.
	TriggerBlur
)

func (t Trigger) String() string {
	if t == TriggerBlur {
		return "blur"
	}
	return "change"
}

// Option configures a Form.
type Option func(*settings)

type settings struct {
	initial      map[string]any
	onFinish     func(Snapshot)
	showReset    bool
	showClear    bool
	evaluator    visibility.Evaluator
	asyncTimeout time.Duration
	trigger      Trigger
	logger       *log.Logger
	keyFn        func() string
}

func defaultSettings() settings {
	return settings{
		showReset:    true,
		showClear:    true,
		asyncTimeout: validation.DefaultAsyncTimeout,
		trigger:      TriggerChange,
		logger:       log.New(io.Discard, "", 0),
	}
}

// WithInitialValues seeds the form. Plain fields take strings, numbers,
// time.Time or model.Value; array groups take a list of per-instance maps.
func WithInitialValues(values map[string]any) Option {
	return func(s *settings) {
		s.initial = values
	}
}

// WithOnFinish registers the callback invoked once per successful submit.
func WithOnFinish(fn func(Snapshot)) Option {
	return func(s *settings) {
		s.onFinish = fn
	}
}

// WithShowReset toggles the reset control in views.
func WithShowReset(show bool) Option {
	return func(s *settings) {
		s.showReset = show
	}
}

// WithShowClear toggles the clear control in views.
func WithShowClear(show bool) Option {
	return func(s *settings) {
		s.showClear = show
	}
}

// WithEvaluator sets the evaluator used for rule-string predicates.
func WithEvaluator(eval visibility.Evaluator) Option {
	return func(s *settings) {
		s.evaluator = eval
	}
}

// WithAsyncTimeout bounds each async validation.
func WithAsyncTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.asyncTimeout = d
		}
	}
}

// WithTrigger selects change or blur validation.
func WithTrigger(trigger Trigger) Option {
	return func(s *settings) {
		s.trigger = trigger
	}
}

// WithLogger routes diagnostics to logger. Forms are silent by default.
func WithLogger(logger *log.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithKeyFunc overrides array instance key generation.
func WithKeyFunc(fn func() string) Option {
	return func(s *settings) {
		s.keyFn = fn
	}
}
