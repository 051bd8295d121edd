package spi

import "fmt"

// Phase is one of the five ordered stages of extension execution.
//
// The order is fixed and total:
//
//	Discovery < Enhancement < Registration < Synthesis < Validation
type Phase int

const (
	// Discovery lets extensions add types to the set of scanned components.
	Discovery Phase = iota + 1
	// Enhancement lets extensions change component metadata (scope, qualifiers)
	// or veto components before they are registered.
	Enhancement
	// Registration lets extensions observe registered components and
	// configure custom scopes through ContextConfig.
	Registration
	// Synthesis lets extensions add synthetic components.
	Synthesis
	// Validation is the terminal, read-only phase. Callbacks report problems
	// through Messages; errors are aggregated before the build decides.
	Validation
)

// Phases lists every phase in execution order.
var Phases = []Phase{Discovery, Enhancement, Registration, Synthesis, Validation}

func (p Phase) String() string {
	switch p {
	case Discovery:
		return "discovery"
	case Enhancement:
		return "enhancement"
	case Registration:
		return "registration"
	case Synthesis:
		return "synthesis"
	case Validation:
		return "validation"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// Valid reports whether p is one of the five known phases.
func (p Phase) Valid() bool { return p >= Discovery && p <= Validation }

// Terminal reports whether no phase runs after p.
func (p Phase) Terminal() bool { return p == Validation }

// ParsePhase is the inverse of Phase.String.
func ParsePhase(s string) (Phase, error) {
	for _, p := range Phases {
		if p.String() == s {
			return p, nil
		}
	}
	return 0, fmt.Errorf("spi: unknown phase %q", s)
}
