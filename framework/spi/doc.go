// Package spi is the service provider interface extensions use to take part
// in a container build.
//
// # Overview
//
// An extension is a name plus a table of callbacks. Each callback is bound
// to one of five phases, which always run in the same order:
//
//	Discovery < Enhancement < Registration < Synthesis < Validation
//
// Callbacks declare what they need as parameters; the build injects a value
// for each. What may be declared depends on the phase:
//
//	Discovery     Messages, *ScannedTypes
//	Enhancement   Messages, Types, *Enhancer
//	Registration  Messages, Types, *Contexts, View
//	Synthesis     Messages, Types, *SyntheticComponents, View
//	Validation    Messages, Types, View
//
// A table is checked before anything runs: an undeclarable parameter fails
// the build with a *ConfigError and no callback is invoked.
//
// # Defining an extension
//
//	ext := spi.Define("session",
//	    spi.On(spi.Discovery, "scan", func(s *spi.ScannedTypes) error {
//	        return s.Add(spi.Component{Name: "cart", Scope: spi.TypeOf[spi.SessionScoped]()})
//	    }),
//	    spi.On(spi.Registration, "contexts", func(c *spi.Contexts) {
//	        c.Add().Implementation(spi.TypeOf[SessionContext]())
//	    }),
//	    spi.On(spi.Validation, "check", func(msgs spi.Messages, view spi.View) {
//	        if _, ok := view.Lookup("cart"); !ok {
//	            msgs.Error("cart was vetoed")
//	        }
//	    }),
//	)
//
// Types with state can embed BaseExtension and supply Name and, when they
// contribute callbacks, Callbacks.
//
// # Scopes and contexts
//
// A scope is identified by a marker type implementing ScopeAnnotation. A
// context is the runtime object behind a scope: an exported struct whose
// pointer implements AlterableContext. ContextConfig ties the two together;
// given only an implementation it derives the scope from the context's
// Scope method and the normal/pseudo nature from the marker. A pointer to a
// marker names the marker itself (see ScopeOf).
//
//	type SessionContext struct{ ... }
//	func (*SessionContext) Scope() reflect.Type { return spi.TypeOf[spi.SessionScoped]() }
//
//	c.Add().Implementation(spi.TypeOf[SessionContext]())          // scope and normal derived
//	c.Add().Implementation(spi.TypeOf[PoolContext]()).Normal(false) // normal overridden
//
// # Handles
//
// Mutating handles (*ScannedTypes, *Enhancer, *Contexts,
// *SyntheticComponents) are valid only while the callback that received them
// runs. Keeping one and using it later returns ErrHandleClosed. A kept
// Messages sink drops what it is given.
//
// # Types
//
// Types builds structural type descriptors: void, primitives, classes,
// arrays, parameterized types and wildcards. Invalid arguments panic; the
// build reports the panic as a failure of the calling callback.
//
//	types.Parameterized(types.OfClass(spi.TypeOf[List[int]]()), types.OfPrimitive(reflect.Int))
//	types.OfArray(types.OfPrimitive(reflect.Int), 2) // [][]int
package spi
