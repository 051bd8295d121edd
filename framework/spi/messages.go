package spi

import "fmt"

// Severity defines the importance of a message.
type Severity uint8

const (
	SevInfo Severity = iota
	SevWarning
	SevError
)

func (s Severity) String() string {
	switch s {
	case SevInfo:
		return "INFO"
	case SevWarning:
		return "WARNING"
	case SevError:
		return "ERROR"
	}
	return "UNKNOWN"
}

// Source optionally points a message at the thing it is about, for example
// a component name or a manifest position.
type Source struct {
	Component string
	Location  string
}

func (s Source) String() string {
	switch {
	case s.Component != "" && s.Location != "":
		return s.Component + " (" + s.Location + ")"
	case s.Component != "":
		return s.Component
	default:
		return s.Location
	}
}

// IsZero reports whether the source is empty.
func (s Source) IsZero() bool { return s == Source{} }

// Message is one recorded diagnostic. Messages are values; once recorded
// they are never changed or removed.
type Message struct {
	Text      string
	Severity  Severity
	Source    Source
	Phase     Phase
	Extension string
	Callback  string
}

func (m Message) String() string {
	s := fmt.Sprintf("%s [%s] %s.%s: %s", m.Severity, m.Phase, m.Extension, m.Callback, m.Text)
	if !m.Source.IsZero() {
		s += " @ " + m.Source.String()
	}
	return s
}

// Messages is the diagnostic sink handed to callbacks. Recording an error
// does not stop the callback; the runner decides after the phase.
//
//	func validate(msgs spi.Messages, view spi.View) {
//	    for _, c := range view.Components() {
//	        if c.Name == "" {
//	            msgs.Error("component has no name", spi.Source{Location: c.Origin})
//	        }
//	    }
//	}
type Messages interface {
	Info(text string, src ...Source)
	Warn(text string, src ...Source)
	Error(text string, src ...Source)
	// Fail records err as an error-severity message.
	Fail(err error, src ...Source)
}
