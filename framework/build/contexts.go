package build

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/km-arc/go-extend/framework/spi"
)

// ConflictPolicy decides what happens when two registrations back the
// same scope with different implementations.
type ConflictPolicy string

const (
	// ConflictError fails the build with a configuration error.
	ConflictError ConflictPolicy = "error"
	// ConflictLastWins keeps the most recent registration.
	ConflictLastWins ConflictPolicy = "last-wins"
)

var (
	ErrContextConflict = errors.New("build: conflicting context registrations")
	ErrDuplicateScope  = errors.New("build: scope configured twice in one callback")
)

// ParseConflictPolicy accepts "error" and "last-wins"; empty means error.
func ParseConflictPolicy(s string) (ConflictPolicy, error) {
	switch ConflictPolicy(s) {
	case "", ConflictError:
		return ConflictError, nil
	case ConflictLastWins:
		return ConflictLastWins, nil
	}
	return "", fmt.Errorf("build: unknown conflict policy %q", s)
}

// contextRegistry holds the frozen context descriptors of a build, one per
// scope, in first-registration order.
type contextRegistry struct {
	policy  ConflictPolicy
	order   []reflect.Type
	byScope map[reflect.Type]spi.ContextDescriptor
}

func newContextRegistry(policy ConflictPolicy) *contextRegistry {
	return &contextRegistry{policy: policy, byScope: make(map[reflect.Type]spi.ContextDescriptor)}
}

// add is idempotent for an identical registration.
func (c *contextRegistry) add(d spi.ContextDescriptor) error {
	old, ok := c.byScope[d.Scope]
	if !ok {
		c.byScope[d.Scope] = d
		c.order = append(c.order, d.Scope)
		return nil
	}
	if old.Implementation == d.Implementation && old.Normal == d.Normal {
		return nil
	}
	if c.policy == ConflictLastWins {
		c.byScope[d.Scope] = d
		return nil
	}
	return fmt.Errorf("%w: scope %s is backed by %v (normal=%t, from %s), %s requested %v (normal=%t)",
		ErrContextConflict, spi.ScopeName(d.Scope),
		old.Implementation, old.Normal, old.Extension,
		d.Extension, d.Implementation, d.Normal)
}

func (c *contextRegistry) list() []spi.ContextDescriptor {
	out := make([]spi.ContextDescriptor, 0, len(c.order))
	for _, s := range c.order {
		out = append(out, c.byScope[s])
	}
	return out
}
