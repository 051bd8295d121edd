package build

import (
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"

	"github.com/km-arc/go-extend/framework/logging"
	"github.com/km-arc/go-extend/framework/model"
	"github.com/km-arc/go-extend/framework/spi"
)

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger used for phase progress and messages.
func WithLogger(l logging.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithConflictPolicy sets how conflicting context registrations are handled.
func WithConflictPolicy(p ConflictPolicy) Option {
	return func(r *Runner) { r.policy = p }
}

// WithFailOnWarnings makes Validation warnings fail the build.
func WithFailOnWarnings(fail bool) Option {
	return func(r *Runner) { r.failOnWarnings = fail }
}

// WithModel seeds the build with an existing component registry, for
// components the container discovered on its own. The registry is mutated
// by the build, so a seeded Runner should run once.
func WithModel(reg *model.Registry) Option {
	return func(r *Runner) { r.seed = reg }
}

// Runner executes a Plan: every phase in order, every callback of a phase
// one after the other.
type Runner struct {
	logger         logging.Logger
	policy         ConflictPolicy
	failOnWarnings bool
	seed           *model.Registry
}

// NewRunner returns a Runner with the error conflict policy and a no-op
// logger unless overridden.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{policy: ConflictError}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = logging.Nop()
	}
	return r
}

// state is owned by a single Run.
type state struct {
	id       string
	reg      *model.Registry
	log      *messageLog
	contexts *contextRegistry
	types    spi.Types
	view     spi.View
}

// Run executes plan. It returns either a complete Result or a *BuildError,
// never both.
//
// A callback error or panic before Validation stops the build at once.
// Error messages recorded in a phase fail the build once that phase has
// finished. In Validation every callback runs; failures returned or
// panicked there become error messages.
func (r *Runner) Run(plan *Plan) (*Result, error) {
	start := time.Now()
	st := &state{
		id:       uuid.NewString(),
		reg:      r.seed,
		contexts: newContextRegistry(r.policy),
		types:    spi.NewTypes(),
	}
	if st.reg == nil {
		st.reg = model.New()
	}
	logger := r.logger.With("build", st.id)
	st.log = &messageLog{logger: logger}
	st.view = spi.NewView(st.reg, st.contexts.list)
	defer st.reg.OnAdd(func(c model.Component) {
		logger.Debug("component added",
			"component", c.Name, "scope", spi.ScopeName(c.Scope), "origin", c.Origin, "synthetic", c.Synthetic)
	})()

	logger.Info("build started", "extensions", len(plan.extensions), "callbacks", plan.Len())

	for _, phase := range spi.Phases {
		steps := plan.phases[phase]
		logger.Debug("phase started", "phase", phase, "callbacks", len(steps))
		mark := st.log.len()

		for _, s := range steps {
			logger.Debug("invoking callback", "phase", phase, "extension", s.extension, "callback", s.callback.Name)
			err := r.invoke(st, s)
			if err == nil {
				continue
			}
			if phase == spi.Validation {
				st.log.bind(phase, s.extension, s.callback.Name).Fail(unwrapCallback(err))
				continue
			}
			return nil, r.fail(logger, st, phase, err)
		}

		if st.log.count(mark, spi.SevError) > 0 {
			cause := ErrMessagesReported
			if phase == spi.Validation {
				cause = ErrValidationFailed
			}
			return nil, r.fail(logger, st, phase, cause)
		}
		if phase == spi.Validation && r.failOnWarnings && st.log.count(mark, spi.SevWarning) > 0 {
			return nil, r.fail(logger, st, phase, ErrWarningsAsErrors)
		}
	}

	res := &Result{
		ID:         st.id,
		Contexts:   st.contexts.list(),
		Components: st.reg.Components(),
		Vetoed:     st.reg.Vetoed(),
		Messages:   st.log.snapshot(),
		Duration:   time.Since(start),
		registry:   st.reg,
	}
	logger.Info("build succeeded",
		"components", len(res.Components),
		"contexts", len(res.Contexts),
		"warnings", res.Count(spi.SevWarning),
		"duration", res.Duration)
	return res, nil
}

func (r *Runner) fail(logger logging.Logger, st *state, phase spi.Phase, cause error) *BuildError {
	err := &BuildError{ID: st.id, Phase: phase, Cause: cause, Messages: st.log.snapshot()}
	logger.Error("build failed", "phase", phase, "err", cause, "errors", len(err.Errors()))
	return err
}

// invoke calls one callback with its declared parameters, then closes the
// handles it received and freezes the contexts it configured.
func (r *Runner) invoke(st *state, s step) (err error) {
	phase := s.callback.Phase
	var (
		closers  []interface{ Close() }
		contexts *spi.Contexts
	)
	handles := make(map[reflect.Type]reflect.Value, len(s.params))
	args := make([]reflect.Value, len(s.params))

	for i, pt := range s.params {
		if v, ok := handles[pt]; ok {
			args[i] = v
			continue
		}
		var v any
		switch pt {
		case messagesType:
			h := st.log.bind(phase, s.extension, s.callback.Name)
			closers, v = append(closers, h), h
		case typesType:
			v = st.types
		case viewType:
			v = st.view
		case scannedType:
			h := spi.NewScannedTypes(st.reg, s.extension)
			closers, v = append(closers, h), h
		case enhancementType:
			h := spi.NewEnhancer(st.reg, s.extension)
			closers, v = append(closers, h), h
		case contextsType:
			contexts = spi.NewContexts(s.extension)
			closers, v = append(closers, contexts), contexts
		case syntheticType:
			h := spi.NewSyntheticComponents(st.reg, s.extension)
			closers, v = append(closers, h), h
		default:
			// NewPlan rejects anything else.
			panic(fmt.Sprintf("build: no provider for parameter type %s", pt))
		}
		args[i] = reflect.ValueOf(v)
		handles[pt] = args[i]
	}

	err = r.call(s, args)
	for _, c := range closers {
		c.Close()
	}
	if err != nil {
		return err
	}

	if contexts != nil {
		return r.freezeContexts(st, s, contexts)
	}
	return nil
}

func (r *Runner) call(s step, args []reflect.Value) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			cause, ok := rec.(error)
			if !ok {
				cause = fmt.Errorf("%v", rec)
			}
			err = &CallbackError{
				Extension: s.extension,
				Callback:  s.callback.Name,
				Phase:     s.callback.Phase,
				Panicked:  true,
				Err:       cause,
			}
		}
	}()

	out := s.fn.Call(args)
	if s.returnsErr && !out[0].IsNil() {
		return &CallbackError{
			Extension: s.extension,
			Callback:  s.callback.Name,
			Phase:     s.callback.Phase,
			Err:       out[0].Interface().(error),
		}
	}
	return nil
}

// freezeContexts resolves every configuration made by one callback
// invocation and adds it to the build's context registry.
func (r *Runner) freezeContexts(st *state, s step, contexts *spi.Contexts) error {
	configErr := func(reason string, err error) error {
		return &spi.ConfigError{
			Extension: s.extension,
			Callback:  s.callback.Name,
			Phase:     s.callback.Phase,
			Reason:    reason,
			Err:       err,
		}
	}

	seen := make(map[reflect.Type]bool)
	for _, cfg := range contexts.Configs() {
		desc, err := cfg.Freeze()
		if err != nil {
			return configErr("invalid context configuration", err)
		}
		if seen[desc.Scope] {
			return configErr("", fmt.Errorf("%w: %s", ErrDuplicateScope, spi.ScopeName(desc.Scope)))
		}
		seen[desc.Scope] = true
		if err := st.contexts.add(desc); err != nil {
			return configErr("", err)
		}
		r.logger.Debug("context registered",
			"build", st.id,
			"scope", spi.ScopeName(desc.Scope),
			"implementation", desc.Implementation,
			"normal", desc.Normal,
			"extension", desc.Extension)
	}
	return nil
}

// unwrapCallback drops the CallbackError wrapper; the message already
// carries the extension and callback.
func unwrapCallback(err error) error {
	if ce, ok := err.(*CallbackError); ok {
		if ce.Panicked {
			return fmt.Errorf("panic: %w", ce.Err)
		}
		return ce.Err
	}
	return err
}
