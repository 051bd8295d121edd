package spi

// Callback is one entry of an extension's callback table: a function bound
// to exactly one phase.
//
// Func must be a function whose parameters are all injectable in Phase
// and which returns nothing or a single error:
//
//	spi.On(spi.Validation, "checkNames", func(msgs spi.Messages, view spi.View) error { ... })
//
// The runner checks every table before any phase runs.
type Callback struct {
	Name  string
	Phase Phase
	// Priority orders callbacks inside a phase, lower first. Ties keep
	// extension registration order, then table order.
	Priority int
	Func     any
}

// On builds a Callback with default priority.
func On(phase Phase, name string, fn any) Callback {
	return Callback{Name: name, Phase: phase, Func: fn}
}

// WithPriority returns a copy of c with the given priority.
func (c Callback) WithPriority(priority int) Callback {
	c.Priority = priority
	return c
}

// Extension is a build-time participant. Name must be unique within a build.
type Extension interface {
	Name() string
	Callbacks() []Callback
}

// BaseExtension is an embeddable struct with an empty callback table.
// Embed it and override only what you need; an extension that contributes
// no callbacks still takes part in name checks.
//
//	type Audit struct{ spi.BaseExtension }
//	func (*Audit) Name() string { return "audit" }
type BaseExtension struct{}

func (*BaseExtension) Callbacks() []Callback { return nil }

// Define builds an Extension from a name and a callback table.
//
//	ext := spi.Define("audit",
//	    spi.On(spi.Discovery, "scan", scan),
//	    spi.On(spi.Validation, "check", check),
//	)
func Define(name string, callbacks ...Callback) Extension {
	return &defined{name: name, callbacks: callbacks}
}

type defined struct {
	name      string
	callbacks []Callback
}

func (d *defined) Name() string { return d.name }

func (d *defined) Callbacks() []Callback {
	out := make([]Callback, len(d.callbacks))
	copy(out, d.callbacks)
	return out
}
