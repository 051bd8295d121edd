package providers

import (
	"fmt"
	"strings"

	"github.com/km-arc/go-extend/framework/contexts"
	"github.com/km-arc/go-extend/framework/spi"
)

// BuiltinPriority runs the built-in context registration before any user
// Registration callback with default priority.
const BuiltinPriority = -1000

// Defaults returns the extensions every application registers first.
func Defaults() []spi.Extension {
	return []spi.Extension{BuiltinContexts(), ScopeCoverage(), Qualifiers()}
}

// ── BuiltinContexts ───────────────────────────────────────────────────────────

// BuiltinContexts registers the contexts backing the built-in scopes.
//
// Registered scopes:
//   - spi.Singleton          → contexts.SingletonContext
//   - spi.Dependent          → contexts.DependentContext
//   - spi.ApplicationScoped  → contexts.ApplicationContext
//
// RequestScoped and SessionScoped have no built-in context; the
// application or an extension provides one.
func BuiltinContexts() spi.Extension {
	return spi.Define("builtin-contexts",
		spi.On(spi.Registration, "register", func(c *spi.Contexts) {
			for _, impl := range contexts.Builtin() {
				c.Add().Implementation(impl)
			}
		}).WithPriority(BuiltinPriority),
	)
}

// ── ScopeCoverage ─────────────────────────────────────────────────────────────

// ScopeCoverage reports an error for every component whose scope has no
// registered context.
func ScopeCoverage() spi.Extension {
	return spi.Define("scope-coverage",
		spi.On(spi.Validation, "check", func(msgs spi.Messages, view spi.View) {
			for _, c := range view.Components() {
				if _, ok := view.Context(c.Scope); ok {
					continue
				}
				msgs.Error(fmt.Sprintf("no context registered for scope %s", spi.ScopeName(c.Scope)),
					spi.Source{Component: c.Name, Location: c.Origin})
			}
		}),
	)
}

// ── Qualifiers ────────────────────────────────────────────────────────────────

// Qualifiers checks component qualifiers: a blank qualifier is an error, a
// qualifier listed twice on the same component is a warning.
func Qualifiers() spi.Extension {
	return spi.Define("qualifiers",
		spi.On(spi.Validation, "check", func(msgs spi.Messages, view spi.View) {
			for _, c := range view.Components() {
				src := spi.Source{Component: c.Name, Location: c.Origin}
				seen := make(map[string]bool, len(c.Qualifiers))
				for _, q := range c.Qualifiers {
					switch {
					case strings.TrimSpace(q) == "":
						msgs.Error("blank qualifier", src)
					case seen[q]:
						msgs.Warn(fmt.Sprintf("qualifier %q listed more than once", q), src)
					}
					seen[q] = true
				}
			}
		}),
	)
}
