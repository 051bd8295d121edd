package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/km-arc/go-extend/framework/spi"
)

var (
	okColor      = color.New(color.FgGreen, color.Bold)
	failColor    = color.New(color.FgRed, color.Bold)
	errorColor   = color.New(color.FgRed)
	warningColor = color.New(color.FgYellow)
	infoColor    = color.New(color.FgCyan)
	headColor    = color.New(color.Bold)
	dimColor     = color.New(color.Faint)
)

func severityColor(sev string) *color.Color {
	switch sev {
	case spi.SevError.String():
		return errorColor
	case spi.SevWarning.String():
		return warningColor
	default:
		return infoColor
	}
}

// Render writes a human-readable summary of a to w. Colors follow
// color.NoColor.
func Render(w io.Writer, a *Artifact) error {
	var b strings.Builder

	if a.Succeeded() {
		okColor.Fprint(&b, "BUILD SUCCEEDED")
	} else {
		failColor.Fprint(&b, "BUILD FAILED")
		if a.FailedPhase != "" {
			fmt.Fprintf(&b, " in %s", a.FailedPhase)
		}
	}
	dimColor.Fprintf(&b, "  %s\n", a.ID)
	if a.Cause != "" {
		fmt.Fprintf(&b, "  cause: %s\n", a.Cause)
	}

	if len(a.Contexts) > 0 {
		headColor.Fprintln(&b, "\nContexts")
		for _, c := range a.Contexts {
			kind := "pseudo"
			if c.Normal {
				kind = "normal"
			}
			fmt.Fprintf(&b, "  %-28s %-36s %-6s %s\n", c.Scope, c.Implementation, kind, dimColor.Sprint(c.Extension))
		}
	}

	if len(a.Components) > 0 {
		headColor.Fprintln(&b, "\nComponents")
		for _, c := range a.Components {
			line := fmt.Sprintf("  %-20s %-28s %s", c.Name, c.Scope, c.Type)
			if len(c.Qualifiers) > 0 {
				line += " [" + strings.Join(c.Qualifiers, ", ") + "]"
			}
			if c.Synthetic {
				line += " (synthetic)"
			}
			fmt.Fprintln(&b, line)
		}
	}

	if len(a.Messages) > 0 {
		headColor.Fprintln(&b, "\nMessages")
		for _, m := range a.Messages {
			severityColor(m.Severity).Fprintf(&b, "  %-7s", m.Severity)
			fmt.Fprintf(&b, " [%s] %s.%s: %s", m.Phase, m.Extension, m.Callback, m.Text)
			if src := (spi.Source{Component: m.Component, Location: m.Location}); !src.IsZero() {
				dimColor.Fprintf(&b, " @ %s", src)
			}
			b.WriteByte('\n')
		}
	}

	fmt.Fprintf(&b, "\n%d contexts, %d components, %d errors, %d warnings\n",
		len(a.Contexts), len(a.Components), a.Count(spi.SevError), a.Count(spi.SevWarning))

	_, err := io.WriteString(w, b.String())
	return err
}
