package build

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/km-arc/go-extend/framework/model"
	"github.com/km-arc/go-extend/framework/spi"
)

var (
	// ErrValidationFailed is the cause of a build whose Validation phase
	// recorded at least one error message.
	ErrValidationFailed = errors.New("build: validation failed")
	// ErrMessagesReported is the cause of a build in which a callback of an
	// earlier phase recorded an error message.
	ErrMessagesReported = errors.New("build: errors reported")
	// ErrWarningsAsErrors is the cause when warnings fail the build.
	ErrWarningsAsErrors = errors.New("build: warnings treated as errors")
)

// Result is the output of a successful build.
type Result struct {
	ID         string
	Contexts   []spi.ContextDescriptor
	Components []spi.Component
	Vetoed     map[string]string
	Messages   []spi.Message
	Duration   time.Duration

	registry *model.Registry
}

// Registry returns the finished, read-only component model.
func (r *Result) Registry() *model.Registry { return r.registry }

// Context returns the context registered for scope.
func (r *Result) Context(scope reflect.Type) (spi.ContextDescriptor, bool) {
	scope = spi.ScopeOf(scope)
	for _, d := range r.Contexts {
		if d.Scope == scope {
			return d, true
		}
	}
	return spi.ContextDescriptor{}, false
}

// Count returns the number of messages with severity sev.
func (r *Result) Count(sev spi.Severity) int { return countSeverity(r.Messages, sev) }

// CallbackError is a failure returned or panicked by a callback.
type CallbackError struct {
	Extension string
	Callback  string
	Phase     spi.Phase
	Panicked  bool
	Err       error
}

func (e *CallbackError) Error() string {
	verb := "failed"
	if e.Panicked {
		verb = "panicked"
	}
	return fmt.Sprintf("%s.%s [%s] %s: %v", e.Extension, e.Callback, e.Phase, verb, e.Err)
}

func (e *CallbackError) Unwrap() error { return e.Err }

// BuildError is returned by a failed build. No Result exists for it.
type BuildError struct {
	ID    string
	Phase spi.Phase
	// Cause is the single causal error for failures before Validation, or
	// ErrValidationFailed / ErrMessagesReported / ErrWarningsAsErrors.
	Cause error
	// Messages holds every message recorded until the build stopped.
	Messages []spi.Message
}

func (e *BuildError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "build %s failed in %s: %v", e.ID, e.Phase, e.Cause)
	for _, m := range e.Errors() {
		b.WriteString("\n  - ")
		b.WriteString(m.String())
	}
	return b.String()
}

func (e *BuildError) Unwrap() error { return e.Cause }

// Errors returns the error-severity messages.
func (e *BuildError) Errors() []spi.Message {
	var out []spi.Message
	for _, m := range e.Messages {
		if m.Severity == spi.SevError {
			out = append(out, m)
		}
	}
	return out
}

func countSeverity(msgs []spi.Message, sev spi.Severity) int {
	n := 0
	for _, m := range msgs {
		if m.Severity == sev {
			n++
		}
	}
	return n
}
