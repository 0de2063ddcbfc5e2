package model

import "fmt"

// ConfigError reports a malformed descriptor. It is fatal: a form must not be
// constructed from configuration that fails validation.
type ConfigError struct {
	Path   string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Path == "" {
		return "model: invalid configuration: " + e.Reason
	}
	return fmt.Sprintf("model: invalid configuration at %s: %s", e.Path, e.Reason)
}

func configErrorf(path, format string, args ...any) *ConfigError {
	return &ConfigError{Path: path, Reason: fmt.Sprintf(format, args...)}
}
