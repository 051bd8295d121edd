// Package manifest declares contexts and components in HCL instead of Go.
//
//	context "session" {
//	  implementation = "SessionContext"
//	  normal         = true
//	}
//
//	component "greeter" {
//	  type       = "Greeter"
//	  scope      = "RequestScoped"
//	  qualifiers = ["default"]
//	}
//
// A loaded Manifest becomes an ordinary extension: components are added
// during Discovery, contexts are configured during Registration. Names are
// resolved against a Catalog when the callbacks run, so unknown names show
// up as build messages pointing at the block that used them.
package manifest

import (
	"fmt"
	"reflect"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"

	"github.com/km-arc/go-extend/framework/spi"
)

// ContextBlock is a decoded `context` block.
type ContextBlock struct {
	Name           string  `hcl:"name,label"`
	Implementation string  `hcl:"implementation"`
	Scope          *string `hcl:"scope,optional"`
	Normal         *bool   `hcl:"normal,optional"`

	// Location is "file:line" of the block header.
	Location string
}

// ComponentBlock is a decoded `component` block.
type ComponentBlock struct {
	Name       string   `hcl:"name,label"`
	Type       string   `hcl:"type,optional"`
	Scope      string   `hcl:"scope,optional"`
	Qualifiers []string `hcl:"qualifiers,optional"`

	Location string
}

// Manifest is the decoded content of one manifest file.
type Manifest struct {
	Path       string
	Contexts   []*ContextBlock
	Components []*ComponentBlock
}

// manifestFile is the top-level decoding target.
type manifestFile struct {
	Contexts   []*ContextBlock   `hcl:"context,block"`
	Components []*ComponentBlock `hcl:"component,block"`
}

// Load parses the manifest at path.
func Load(path string) (*Manifest, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, diags)
	}
	return decode(path, file)
}

// Parse parses manifest source; filename is used in locations and
// diagnostics only.
func Parse(src []byte, filename string) (*Manifest, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", filename, diags)
	}
	return decode(filename, file)
}

func decode(path string, file *hcl.File) (*Manifest, error) {
	var root manifestFile
	if diags := gohcl.DecodeBody(file.Body, nil, &root); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode manifest %s: %w", path, diags)
	}

	m := &Manifest{Path: path, Contexts: root.Contexts, Components: root.Components}
	seenCtx := make(map[string]bool, len(m.Contexts))
	for _, b := range m.Contexts {
		if seenCtx[b.Name] {
			return nil, fmt.Errorf("manifest %s: context %q declared twice", path, b.Name)
		}
		seenCtx[b.Name] = true
	}
	seenComp := make(map[string]bool, len(m.Components))
	for _, b := range m.Components {
		if seenComp[b.Name] {
			return nil, fmt.Errorf("manifest %s: component %q declared twice", path, b.Name)
		}
		seenComp[b.Name] = true
	}

	// Block positions are only available from the native syntax tree.
	if body, ok := file.Body.(*hclsyntax.Body); ok {
		locs := make(map[[2]string]string, len(body.Blocks))
		for _, blk := range body.Blocks {
			if len(blk.Labels) == 1 {
				r := blk.DefRange()
				locs[[2]string{blk.Type, blk.Labels[0]}] = fmt.Sprintf("%s:%d", r.Filename, r.Start.Line)
			}
		}
		for _, b := range m.Contexts {
			b.Location = locs[[2]string{"context", b.Name}]
		}
		for _, b := range m.Components {
			b.Location = locs[[2]string{"component", b.Name}]
		}
	}
	return m, nil
}

// Extension turns the manifest into an extension named name whose callbacks
// resolve every block against cat.
func (m *Manifest) Extension(name string, cat *Catalog) spi.Extension {
	return spi.Define(name,
		spi.On(spi.Discovery, "components", func(msgs spi.Messages, scanned *spi.ScannedTypes) error {
			return m.discover(cat, msgs, scanned)
		}),
		spi.On(spi.Registration, "contexts", func(msgs spi.Messages, c *spi.Contexts) {
			m.register(cat, msgs, c)
		}),
	)
}

func (m *Manifest) discover(cat *Catalog, msgs spi.Messages, scanned *spi.ScannedTypes) error {
	for _, b := range m.Components {
		src := spi.Source{Component: b.Name, Location: b.Location}
		c := spi.Component{Name: b.Name, TypeName: b.Type, Qualifiers: b.Qualifiers}

		if b.Type != "" {
			t, ok := cat.Lookup(b.Type)
			if !ok {
				msgs.Error(fmt.Sprintf("unknown component type %q", b.Type), src)
				continue
			}
			c.Type, c.TypeName = t, ""
		}
		if b.Scope != "" {
			scope, err := cat.Scope(b.Scope)
			if err != nil {
				msgs.Fail(err, src)
				continue
			}
			c.Scope = scope
		}
		if err := scanned.Add(c); err != nil {
			return fmt.Errorf("component %q (%s): %w", b.Name, b.Location, err)
		}
	}
	return nil
}

func (m *Manifest) register(cat *Catalog, msgs spi.Messages, c *spi.Contexts) {
	for _, b := range m.Contexts {
		src := spi.Source{Component: b.Name, Location: b.Location}
		impl, ok := cat.Lookup(b.Implementation)
		if !ok {
			msgs.Error(fmt.Sprintf("unknown context implementation %q", b.Implementation), src)
			continue
		}

		var scope reflect.Type
		if b.Scope != nil {
			s, err := cat.Scope(*b.Scope)
			if err != nil {
				msgs.Fail(err, src)
				continue
			}
			scope = s
		}

		cfg := c.Add().Implementation(impl)
		if scope != nil {
			cfg.WithScope(scope)
		}
		if b.Normal != nil {
			cfg.Normal(*b.Normal)
		}
	}
}
