package spi

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrScopeUnresolved is returned by ContextConfig.Scope when no scope was
	// set and none can be derived because no implementation was given.
	ErrScopeUnresolved = errors.New("spi: context scope is neither set nor derivable")
	// ErrNoImplementation is returned when a ContextConfig is frozen without
	// an implementation type.
	ErrNoImplementation = errors.New("spi: context implementation is required")
	// ErrNotConstructible is returned when an implementation type cannot be
	// built by the container with no arguments.
	ErrNotConstructible = errors.New("spi: context implementation is not constructible")
	// ErrNotScope is returned when a type used as a scope does not implement
	// ScopeAnnotation.
	ErrNotScope = errors.New("spi: type is not a scope annotation")
	// ErrHandleClosed is returned when a phase handle is used after the
	// callback that received it has returned.
	ErrHandleClosed = errors.New("spi: phase handle used outside its callback")
)

// ConfigError is a build configuration problem: a malformed callback table,
// a parameter that is not injectable in its phase, an incomplete or invalid
// context configuration. It always aborts the build.
type ConfigError struct {
	Extension string
	Callback  string
	Phase     Phase
	Reason    string
	Err       error
}

func (e *ConfigError) Error() string {
	var b strings.Builder
	b.WriteString("configuration error")
	if e.Extension != "" {
		fmt.Fprintf(&b, " in %s", e.Extension)
		if e.Callback != "" {
			fmt.Fprintf(&b, ".%s", e.Callback)
		}
	}
	if e.Phase.Valid() {
		fmt.Fprintf(&b, " [%s]", e.Phase)
	}
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ConfigError) Unwrap() error { return e.Err }
