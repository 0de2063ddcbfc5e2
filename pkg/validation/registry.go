package validation

import (
	"fmt"
	"sort"
	"sync"

	"github.com/goliatone/go-formkit/pkg/model"
)

// NameAvailabilityValidator is the registry name of the built-in
// username availability check.
const NameAvailabilityValidator = "nameAvailability"

// Registry maps names to async validators so declarative documents can refer
// to them.
type Registry struct {
	mu         sync.RWMutex
	validators map[string]model.AsyncValidator
}

// NewRegistry returns a registry seeded with the built-in validators.
func NewRegistry() *Registry {
	r := &Registry{validators: make(map[string]model.AsyncValidator)}
	r.validators[NameAvailabilityValidator] = NameAvailability(NewSimulatedChecker())
	return r
}

// Register adds or replaces the validator stored under name.
func (r *Registry) Register(name string, validator model.AsyncValidator) error {
	if name == "" {
		return fmt.Errorf("validation: validator name is required")
	}
	if validator == nil {
		return fmt.Errorf("validation: validator %q is nil", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.validators[name] = validator
	return nil
}

// MustRegister panics if Register fails.
func (r *Registry) MustRegister(name string, validator model.AsyncValidator) {
	if err := r.Register(name, validator); err != nil {
		panic(err)
	}
}

// Lookup returns the validator stored under name.
func (r *Registry) Lookup(name string) (model.AsyncValidator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.validators[name]
	return v, ok
}

// Names lists registered validator names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.validators))
	for name := range r.validators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
