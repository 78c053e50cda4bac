// SPDX-License-Identifier: MPL-2.0

package linker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/charmbracelet/log"
	"github.com/oleiade/lane"

	"github.com/jmodlink/jmodlink/internal/dag"
	"github.com/jmodlink/jmodlink/pkg/fallback"
	"github.com/jmodlink/jmodlink/pkg/jmod"
	"github.com/jmodlink/jmodlink/pkg/moddesc"
	"github.com/jmodlink/jmodlink/pkg/plugin"
	"github.com/jmodlink/jmodlink/pkg/shim"
)

// Linker drives one link. It is not safe for concurrent use; run
// independent links on separate Linkers.
type Linker struct {
	opts   Options
	logger *log.Logger
	state  State
	err    error

	// collected modules by name, and their first-collected order
	sources map[string]jmod.Source
	descs   map[string]*moddesc.Descriptor
	order   []string

	rt          *fallback.Runtime
	runtimeDesc map[string]*moddesc.Descriptor

	closure []string
}

// New returns a Linker in the COLLECTING state.
func New(opts Options) *Linker {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Linker{
		opts:    opts,
		logger:  logger,
		sources: make(map[string]jmod.Source),
		descs:   make(map[string]*moddesc.Descriptor),
	}
}

// State returns the current phase.
func (l *Linker) State() State { return l.state }

// Err returns the error that moved the linker to FAILED, or nil.
func (l *Linker) Err() error { return l.err }

func (l *Linker) fail(err error) error {
	l.state = StateFailed
	l.err = err
	l.logger.Error("link failed", "err", err)
	return err
}

func (l *Linker) expect(op string, s State) error {
	if l.state != s {
		if l.state == StateFailed {
			return l.err
		}
		return &InvalidStateError{Op: op, State: l.state}
	}
	return nil
}

// Collect adds a module source. The Linker owns src from now on and closes
// it in Close. A module name seen before is replaced by src.
func (l *Linker) Collect(src jmod.Source) error {
	if err := l.expect("collect", StateCollecting); err != nil {
		_ = src.Close()
		return err
	}
	d, err := src.Descriptor()
	if err != nil {
		_ = src.Close()
		return l.fail(fmt.Errorf("%s: %w", src.Origin(), err))
	}
	if prev, dup := l.sources[d.Name]; dup {
		l.logger.Warn("module collected twice, later source wins", "module", d.Name, "replaced", prev.Origin(), "by", src.Origin())
		_ = prev.Close()
	} else {
		l.order = append(l.order, d.Name)
	}
	l.sources[d.Name] = src
	l.descs[d.Name] = d
	l.logger.Debug("collected module", "module", d.Name, "origin", src.Origin())
	return nil
}

// Modules returns the collected module names in first-collected order.
func (l *Linker) Modules() []string { return slices.Clone(l.order) }

func (l *Linker) lookup(name string) (*moddesc.Descriptor, bool) {
	if d, ok := l.descs[name]; ok {
		return d, true
	}
	d, ok := l.runtimeDesc[name]
	return d, ok
}

func (l *Linker) openRuntime(ctx context.Context) error {
	if l.opts.Shim == nil {
		return nil
	}
	rt, err := fallback.OpenRuntime(ctx, l.opts.Shim)
	if err != nil {
		if errors.Is(err, shim.ErrNoNativeImage) {
			l.logger.Debug("no runtime image", "binding", l.opts.Shim.Name(), "reason", err)
			l.rt = &fallback.Runtime{FS: l.opts.Shim.RuntimeFS()}
			return nil
		}
		return err
	}
	l.rt = rt
	l.runtimeDesc = make(map[string]*moddesc.Descriptor)
	for _, m := range rt.Image.Modules() {
		d := &moddesc.Descriptor{Name: m}
		if _, ok := rt.Image.FindLocation(m, plugin.DescriptorResource); ok {
			raw, err := rt.Image.ReadEntry(m, plugin.DescriptorResource)
			if err != nil {
				return err
			}
			if d, err = moddesc.Decode(raw); err != nil {
				return fmt.Errorf("runtime module %s: %w", m, err)
			}
		}
		l.runtimeDesc[m] = d
	}
	return nil
}

// Resolve computes the closure of the root modules and returns it in
// breadth-first order. Static requires are followed only when the target is
// available. Every module implicitly requires the base module, which is
// linked when available and otherwise assumed to be provided by the platform.
func (l *Linker) Resolve(ctx context.Context) ([]string, error) {
	if err := l.expect("resolve", StateCollecting); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, l.fail(err)
	}
	l.state = StateResolving

	if err := l.openRuntime(ctx); err != nil {
		return nil, l.fail(err)
	}

	roots := l.opts.Roots
	if len(roots) == 0 {
		roots = l.order
	}
	if len(roots) == 0 {
		return nil, l.fail(ErrNoRootModules)
	}

	base := l.opts.baseModule()
	_, haveBase := l.lookup(base)
	g := dag.New()
	seen := make(map[string]bool)
	q := lane.NewQueue()
	enqueue := func(name string) {
		if !seen[name] {
			seen[name] = true
			q.Enqueue(name)
		}
	}
	for _, r := range roots {
		if _, ok := l.lookup(r); !ok {
			return nil, l.fail(&UnresolvedDependencyError{Missing: r})
		}
		enqueue(r)
	}

	var closure []string
	for !q.Empty() {
		name := q.Dequeue().(string)
		d, _ := l.lookup(name)
		closure = append(closure, name)
		g.AddNode(name)
		for _, req := range d.Requires {
			if req.Name == base {
				if haveBase {
					enqueue(base)
				}
				continue
			}
			if _, ok := l.lookup(req.Name); !ok {
				if req.IsStatic() {
					continue
				}
				return nil, l.fail(&UnresolvedDependencyError{Module: name, Missing: req.Name})
			}
			if name != base {
				g.AddEdge(name, req.Name)
			}
			enqueue(req.Name)
		}
		if !l.opts.NoImplicitBase && haveBase && name != base {
			enqueue(base)
		}
	}

	if cycle := g.FindCycle(); cycle != nil {
		return nil, l.fail(&CyclicModuleGraphError{Cycle: cycle})
	}
	l.closure = closure
	l.logger.Debug("resolved modules", "closure", closure)
	return slices.Clone(closure), nil
}

// Close releases every collected source and the runtime image.
func (l *Linker) Close() error {
	var errs []error
	for _, name := range l.order {
		if err := l.sources[name].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	clear(l.sources)
	if l.rt != nil {
		if err := l.rt.Close(); err != nil {
			errs = append(errs, err)
		}
		l.rt = nil
	}
	return errors.Join(errs...)
}
