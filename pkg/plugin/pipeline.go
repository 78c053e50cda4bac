// SPDX-License-Identifier: MPL-2.0

package plugin

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/jmodlink/jmodlink/internal/dag"
	"github.com/jmodlink/jmodlink/pkg/resource"
)

type (
	// Spec is a stage plus the configuration that only affects ordering.
	// Lower priorities run first among otherwise unordered stages of the
	// same category rank.
	Spec struct {
		Stage    Stage
		Priority int
		Extra    []Constraint
	}

	// Pipeline is an ordered, validated list of stages. Build one per link.
	Pipeline struct {
		stages []Stage
		logger *log.Logger
	}

	// PipelineOption configures a Pipeline.
	PipelineOption func(*Pipeline)

	// RunResult lists the stages that ran, in order, and the pool the
	// terminal stage consumed.
	RunResult struct {
		Stages []string
		Pool   *resource.Pool
	}
)

// WithLogger sets the logger used to trace stage execution.
func WithLogger(l *log.Logger) PipelineOption {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// New validates and orders specs.
//
// Ordering is a topological sort over the constraints. Among stages whose
// constraints are all satisfied the pipeline picks by category rank
// (sorters first), then priority, then configuration order. Exactly one
// TERMINAL stage must be configured; it is forced after every other stage.
func New(specs []Spec, opts ...PipelineOption) (*Pipeline, error) {
	p := &Pipeline{logger: log.New(io.Discard)}
	for _, opt := range opts {
		opt(p)
	}

	g := dag.New()
	byName := make(map[string]Spec, len(specs))
	terminal := ""
	for _, s := range specs {
		name := s.Stage.Name()
		if _, dup := byName[name]; dup {
			return nil, &PipelineConfigurationError{Stage: name, Reason: "stage configured twice"}
		}
		switch st := s.Stage.(type) {
		case Emitter:
			if st.Category() != CategoryTerminal {
				return nil, &PipelineConfigurationError{Stage: name, Reason: "emitter must be a TERMINAL stage"}
			}
		case Transformer:
			if st.Category() == CategoryTerminal {
				return nil, &PipelineConfigurationError{Stage: name, Reason: "TERMINAL stage does not emit output"}
			}
		default:
			return nil, &PipelineConfigurationError{Stage: name, Reason: "stage neither transforms nor emits"}
		}
		if s.Stage.Category() == CategoryTerminal {
			if terminal != "" {
				return nil, &PipelineConfigurationError{Stage: name, Reason: fmt.Sprintf("second TERMINAL stage (already have %s)", terminal)}
			}
			terminal = name
		}
		byName[name] = s
		g.AddNode(name)
	}
	if terminal == "" {
		return nil, &PipelineConfigurationError{Reason: "no TERMINAL stage configured"}
	}

	for _, s := range specs {
		name := s.Stage.Name()
		for _, c := range append(s.Stage.Constraints(), s.Extra...) {
			if _, ok := byName[c.Stage]; !ok {
				return nil, &PipelineConfigurationError{Stage: name, Reason: fmt.Sprintf("constraint %s names a stage that is not configured", c)}
			}
			if c.Direction == Before {
				g.AddEdge(name, c.Stage)
			} else {
				g.AddEdge(c.Stage, name)
			}
		}
	}
	for _, s := range specs {
		if name := s.Stage.Name(); name != terminal {
			g.AddEdge(name, terminal)
		}
	}

	order, err := g.TopologicalSortFunc(func(a, b string) int {
		sa, sb := byName[a], byName[b]
		return cmp.Or(
			cmp.Compare(sa.Stage.Category().rank(), sb.Stage.Category().rank()),
			cmp.Compare(sa.Priority, sb.Priority),
		)
	})
	if err != nil {
		var cycle *dag.CycleError
		if errors.As(err, &cycle) {
			return nil, &PipelineConfigurationError{Reason: "contradictory ordering constraints", Cycle: cycle.Cycle}
		}
		return nil, err
	}

	for _, name := range order {
		p.stages = append(p.stages, byName[name].Stage)
	}
	return p, nil
}

// Stages returns stage names in execution order.
func (p *Pipeline) Stages() []string {
	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.Name()
	}
	return names
}

// Terminal returns the TERMINAL stage, which New always places last.
func (p *Pipeline) Terminal() (Emitter, bool) {
	if n := len(p.stages); n > 0 {
		if e, ok := p.stages[n-1].(Emitter); ok {
			return e, true
		}
	}
	return nil, false
}

// Run executes every stage once, in order. A stage error or panic stops the
// run with *PluginExecutionFailedError; out receives bytes only from the
// terminal stage. Cancellation is honored between stages.
func (p *Pipeline) Run(ctx context.Context, in *resource.Pool, out io.Writer) (*RunResult, error) {
	if out == nil {
		out = io.Discard
	}
	res := &RunResult{Pool: in}
	for _, s := range p.stages {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		start := time.Now()
		next, err := p.runStage(ctx, s, res.Pool, out)
		if err != nil {
			p.logger.Error("stage failed", "stage", s.Name(), "err", err)
			return res, &PluginExecutionFailedError{Stage: s.Name(), Cause: err}
		}
		res.Pool = next
		res.Stages = append(res.Stages, s.Name())
		p.logger.Debug("stage done", "stage", s.Name(), "category", s.Category(), "entries", next.Len(), "elapsed", time.Since(start))
	}
	return res, nil
}

func (p *Pipeline) runStage(ctx context.Context, s Stage, in *resource.Pool, out io.Writer) (next *resource.Pool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	switch st := s.(type) {
	case Emitter:
		return in, st.Emit(ctx, in, out)
	case Transformer:
		pool, terr := st.Transform(ctx, in)
		if terr == nil && pool == nil {
			terr = errors.New("stage returned no pool")
		}
		return pool, terr
	}
	return nil, fmt.Errorf("stage %s has no run method", s.Name())
}
