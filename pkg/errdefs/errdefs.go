// Package errdefs defines the error taxonomy shared by the graph pipeline.
//
// A ConfigurationError is fatal: it is returned before any artifact is produced.
// Malformed per-document data is never an error; callers degrade it to an empty
// document or an empty tag set.
package errdefs

import (
	"errors"
	"fmt"
)

// ErrEmptyInput is returned when a run has no documents at all.
var ErrEmptyInput = errors.New("empty input: no documents supplied")

// ConfigurationError reports an invalid parameter or parameter combination.
type ConfigurationError struct {
	Component string
	Param     string
	Reason    string
}

func (e *ConfigurationError) Error() string {
	if e.Param == "" {
		return fmt.Sprintf("%s: invalid configuration: %s", e.Component, e.Reason)
	}
	return fmt.Sprintf("%s: invalid configuration for %q: %s", e.Component, e.Param, e.Reason)
}

// Configf builds a ConfigurationError with a formatted reason.
func Configf(component, param, format string, args ...any) error {
	return &ConfigurationError{
		Component: component,
		Param:     param,
		Reason:    fmt.Sprintf(format, args...),
	}
}

// IsConfiguration reports whether any error in err's chain is a ConfigurationError.
func IsConfiguration(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}
