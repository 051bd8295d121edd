// Package report turns the outcome of a build into a portable artifact:
// a msgpack file other tools (and the inspector) can read back, and a
// colored summary for terminals.
package report

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/km-arc/go-extend/framework/build"
	"github.com/km-arc/go-extend/framework/spi"
)

// Current schema version - increment when Artifact format changes
const Schema uint16 = 1

var ErrSchemaMismatch = errors.New("report: unsupported artifact schema")

type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Artifact is the serializable outcome of one build.
type Artifact struct {
	Schema uint16 `msgpack:"schema" json:"schema"`
	ID     string `msgpack:"id" json:"id"`
	Status Status `msgpack:"status" json:"status"`

	// Set for failed builds only.
	FailedPhase string `msgpack:"failed_phase,omitempty" json:"failed_phase,omitempty"`
	Cause       string `msgpack:"cause,omitempty" json:"cause,omitempty"`

	Contexts   []ContextEntry    `msgpack:"contexts" json:"contexts"`
	Components []ComponentEntry  `msgpack:"components" json:"components"`
	Vetoed     map[string]string `msgpack:"vetoed,omitempty" json:"vetoed,omitempty"`
	Messages   []MessageEntry    `msgpack:"messages" json:"messages"`

	Duration  time.Duration `msgpack:"duration" json:"duration"`
	CreatedAt time.Time     `msgpack:"created_at" json:"created_at"`
}

type ContextEntry struct {
	Scope          string `msgpack:"scope" json:"scope"`
	Implementation string `msgpack:"implementation" json:"implementation"`
	Normal         bool   `msgpack:"normal" json:"normal"`
	Extension      string `msgpack:"extension" json:"extension"`
}

type ComponentEntry struct {
	Name       string   `msgpack:"name" json:"name"`
	Type       string   `msgpack:"type,omitempty" json:"type,omitempty"`
	Scope      string   `msgpack:"scope" json:"scope"`
	Qualifiers []string `msgpack:"qualifiers,omitempty" json:"qualifiers,omitempty"`
	Synthetic  bool     `msgpack:"synthetic" json:"synthetic"`
	Origin     string   `msgpack:"origin" json:"origin"`
}

type MessageEntry struct {
	Severity  string `msgpack:"severity" json:"severity"`
	Phase     string `msgpack:"phase" json:"phase"`
	Extension string `msgpack:"extension" json:"extension"`
	Callback  string `msgpack:"callback" json:"callback"`
	Text      string `msgpack:"text" json:"text"`
	Component string `msgpack:"component,omitempty" json:"component,omitempty"`
	Location  string `msgpack:"location,omitempty" json:"location,omitempty"`
}

// Succeeded reports whether the build produced a result.
func (a *Artifact) Succeeded() bool { return a.Status == StatusSucceeded }

// Component returns the entry named name.
func (a *Artifact) Component(name string) (ComponentEntry, bool) {
	for _, c := range a.Components {
		if c.Name == name {
			return c, true
		}
	}
	return ComponentEntry{}, false
}

// Count returns the number of messages with the given severity.
func (a *Artifact) Count(sev spi.Severity) int {
	n := 0
	for _, m := range a.Messages {
		if m.Severity == sev.String() {
			n++
		}
	}
	return n
}

// New builds the artifact of a build that returned res and err. Exactly one
// of them is expected to be non-nil; an error that is not a *build.BuildError
// (a plan that failed validation, for instance) yields a failed artifact
// carrying only the cause.
func New(res *build.Result, err error) *Artifact {
	a := &Artifact{Schema: Schema, CreatedAt: time.Now().UTC()}
	if err == nil && res != nil {
		a.ID = res.ID
		a.Status = StatusSucceeded
		a.Contexts = contextEntries(res.Contexts)
		a.Components = componentEntries(res.Components)
		a.Vetoed = res.Vetoed
		a.Messages = messageEntries(res.Messages)
		a.Duration = res.Duration
		return a
	}

	a.Status = StatusFailed
	if err == nil {
		err = errors.New("report: build returned neither result nor error")
	}
	var be *build.BuildError
	if errors.As(err, &be) {
		a.ID = be.ID
		a.FailedPhase = be.Phase.String()
		a.Cause = be.Cause.Error()
		a.Messages = messageEntries(be.Messages)
		return a
	}
	a.Cause = err.Error()
	return a
}

func contextEntries(ds []spi.ContextDescriptor) []ContextEntry {
	out := make([]ContextEntry, len(ds))
	for i, d := range ds {
		out[i] = ContextEntry{
			Scope:          spi.ScopeName(d.Scope),
			Implementation: d.Implementation.String(),
			Normal:         d.Normal,
			Extension:      d.Extension,
		}
	}
	return out
}

func componentEntries(cs []spi.Component) []ComponentEntry {
	out := make([]ComponentEntry, len(cs))
	for i, c := range cs {
		out[i] = ComponentEntry{
			Name:       c.Name,
			Type:       c.TypeName,
			Scope:      spi.ScopeName(c.Scope),
			Qualifiers: c.Qualifiers,
			Synthetic:  c.Synthetic,
			Origin:     c.Origin,
		}
	}
	return out
}

func messageEntries(ms []spi.Message) []MessageEntry {
	out := make([]MessageEntry, len(ms))
	for i, m := range ms {
		out[i] = MessageEntry{
			Severity:  m.Severity.String(),
			Phase:     m.Phase.String(),
			Extension: m.Extension,
			Callback:  m.Callback,
			Text:      m.Text,
			Component: m.Source.Component,
			Location:  m.Source.Location,
		}
	}
	return out
}

// ── Persistence ───────────────────────────────────────────────────────────────

// Write encodes a to path. The file is replaced atomically.
func Write(path string, a *Artifact) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".artifact-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(f.Name())
		}
	}()

	if err = msgpack.NewEncoder(f).Encode(a); err != nil {
		return fmt.Errorf("report: encode artifact: %w", err)
	}
	if err = f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), path)
}

// Read decodes the artifact at path.
func Read(path string) (*Artifact, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var a Artifact
	if err := msgpack.NewDecoder(f).Decode(&a); err != nil {
		return nil, fmt.Errorf("report: decode artifact %s: %w", path, err)
	}
	if a.Schema != Schema {
		return nil, fmt.Errorf("%w: %d (want %d)", ErrSchemaMismatch, a.Schema, Schema)
	}
	return &a, nil
}
