package build

import (
	"cmp"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/km-arc/go-extend/framework/spi"
)

var (
	messagesType    = reflect.TypeFor[spi.Messages]()
	typesType       = reflect.TypeFor[spi.Types]()
	viewType        = reflect.TypeFor[spi.View]()
	scannedType     = reflect.TypeFor[*spi.ScannedTypes]()
	enhancementType = reflect.TypeFor[*spi.Enhancer]()
	contextsType    = reflect.TypeFor[*spi.Contexts]()
	syntheticType   = reflect.TypeFor[*spi.SyntheticComponents]()
	errorType       = reflect.TypeFor[error]()
)

// injectable lists the parameter types a callback may declare per phase.
var injectable = map[spi.Phase][]reflect.Type{
	spi.Discovery:    {messagesType, scannedType},
	spi.Enhancement:  {messagesType, typesType, enhancementType},
	spi.Registration: {messagesType, typesType, contextsType, viewType},
	spi.Synthesis:    {messagesType, typesType, syntheticType, viewType},
	spi.Validation:   {messagesType, typesType, viewType},
}

// Injectable returns the parameter types a callback bound to phase may declare.
func Injectable(phase spi.Phase) []reflect.Type {
	return slices.Clone(injectable[phase])
}

// step is one validated callback, ready to be invoked.
type step struct {
	extension  string
	callback   spi.Callback
	params     []reflect.Type
	fn         reflect.Value
	returnsErr bool
}

// StepInfo describes a planned callback.
type StepInfo struct {
	Extension string
	Callback  string
	Phase     spi.Phase
	Priority  int
}

// Plan is the validated, ordered set of callbacks of a build. Building a
// plan checks every callback table; a plan that exists can be run.
type Plan struct {
	extensions []string
	phases     map[spi.Phase][]step
}

// NewPlan validates the callback tables of exts and orders them by phase
// and priority. Every problem found is reported, joined, as *spi.ConfigError
// values; no callback has run at that point.
func NewPlan(exts ...spi.Extension) (*Plan, error) {
	p := &Plan{phases: make(map[spi.Phase][]step)}
	var errs []error
	seen := make(map[string]bool)

	for i, ext := range exts {
		if ext == nil {
			errs = append(errs, &spi.ConfigError{Reason: fmt.Sprintf("extension #%d is nil", i)})
			continue
		}
		name := ext.Name()
		switch {
		case name == "":
			errs = append(errs, &spi.ConfigError{Reason: fmt.Sprintf("extension #%d has no name", i)})
			continue
		case seen[name]:
			errs = append(errs, &spi.ConfigError{Extension: name, Reason: "extension registered twice"})
			continue
		}
		seen[name] = true
		p.extensions = append(p.extensions, name)

		cbNames := make(map[string]bool)
		for j, cb := range ext.Callbacks() {
			if cb.Name == "" {
				cb.Name = fmt.Sprintf("callback#%d", j)
			}
			if cbNames[cb.Name] {
				errs = append(errs, &spi.ConfigError{Extension: name, Callback: cb.Name, Phase: cb.Phase,
					Reason: "duplicate callback name"})
				continue
			}
			cbNames[cb.Name] = true

			s, err := compile(name, cb)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			p.phases[cb.Phase] = append(p.phases[cb.Phase], s)
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	for _, phase := range spi.Phases {
		slices.SortStableFunc(p.phases[phase], func(a, b step) int {
			return cmp.Compare(a.callback.Priority, b.callback.Priority)
		})
	}
	return p, nil
}

// compile checks one callback against the injection contract of its phase.
func compile(extension string, cb spi.Callback) (step, error) {
	fail := func(format string, args ...any) (step, error) {
		return step{}, &spi.ConfigError{Extension: extension, Callback: cb.Name, Phase: cb.Phase,
			Reason: fmt.Sprintf(format, args...)}
	}

	if !cb.Phase.Valid() {
		return fail("unknown phase %d", int(cb.Phase))
	}
	if cb.Func == nil {
		return fail("callback function is nil")
	}
	fn := reflect.ValueOf(cb.Func)
	ft := fn.Type()
	if ft.Kind() != reflect.Func {
		return fail("callback is %s, not a function", ft)
	}
	if fn.IsNil() {
		return fail("callback function is nil")
	}
	if ft.IsVariadic() {
		return fail("variadic callbacks are not supported")
	}

	returnsErr := false
	switch ft.NumOut() {
	case 0:
	case 1:
		if ft.Out(0) != errorType {
			return fail("callback returns %s, want nothing or error", ft.Out(0))
		}
		returnsErr = true
	default:
		return fail("callback returns %d values, want nothing or error", ft.NumOut())
	}

	allowed := injectable[cb.Phase]
	params := make([]reflect.Type, ft.NumIn())
	for i := range params {
		pt := ft.In(i)
		if !slices.Contains(allowed, pt) {
			return fail("parameter %d has type %s, not injectable in %s (allowed: %s)",
				i, pt, cb.Phase, typeList(allowed))
		}
		params[i] = pt
	}

	return step{
		extension:  extension,
		callback:   cb,
		params:     params,
		fn:         fn,
		returnsErr: returnsErr,
	}, nil
}

func typeList(ts []reflect.Type) string {
	names := make([]string, len(ts))
	for i, t := range ts {
		names[i] = t.String()
	}
	return strings.Join(names, ", ")
}

// Extensions returns the extension names in registration order.
func (p *Plan) Extensions() []string { return slices.Clone(p.extensions) }

// Steps returns the callbacks planned for phase in execution order.
func (p *Plan) Steps(phase spi.Phase) []StepInfo {
	steps := p.phases[phase]
	out := make([]StepInfo, len(steps))
	for i, s := range steps {
		out[i] = StepInfo{
			Extension: s.extension,
			Callback:  s.callback.Name,
			Phase:     phase,
			Priority:  s.callback.Priority,
		}
	}
	return out
}

// Len returns the number of planned callbacks across all phases.
func (p *Plan) Len() int {
	n := 0
	for _, steps := range p.phases {
		n += len(steps)
	}
	return n
}
