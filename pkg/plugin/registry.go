// SPDX-License-Identifier: MPL-2.0

package plugin

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
)

type (
	// Factory creates a configured stage. Options lists every option key the
	// stage accepts; New receives only those keys unless OpenOptions is set,
	// in which case any key is passed through.
	Factory struct {
		Name        string
		Category    Category
		Description string
		Options     []string
		OpenOptions bool
		New         func(opts Options) (Stage, error)
	}

	// Config selects a registered stage and configures it. Before and After
	// add ordering constraints on top of the stage's own.
	Config struct {
		Name     string
		Priority int
		Before   []string
		After    []string
		Options  Options
	}

	// Registry maps stage names to factories. It is safe for concurrent use.
	Registry struct {
		mu        sync.RWMutex
		factories map[string]Factory
	}
)

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// DefaultRegistry returns a registry holding the built-in stages.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	RegisterBuiltins(r)
	return r
}

// Register adds f. Names are unique within a registry.
func (r *Registry) Register(f Factory) error {
	if f.Name == "" || f.New == nil {
		return errors.New("plugin factory needs a name and a constructor")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.factories[f.Name]; dup {
		return fmt.Errorf("stage %s already registered", f.Name)
	}
	r.factories[f.Name] = f
	return nil
}

// Lookup returns the factory registered under name.
func (r *Registry) Lookup(name string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[name]
	return f, ok
}

// Factories returns all factories sorted by name.
func (r *Registry) Factories() []Factory {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Factory, 0, len(r.factories))
	for _, name := range slices.Sorted(maps.Keys(r.factories)) {
		out = append(out, r.factories[name])
	}
	return out
}

// Clone returns an independent copy, so callers can add per-link stages
// without touching a shared registry.
func (r *Registry) Clone() *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return &Registry{factories: maps.Clone(r.factories)}
}

// Instantiate checks cfg's option keys and constructs the stage.
func (r *Registry) Instantiate(cfg Config) (Stage, error) {
	f, ok := r.Lookup(cfg.Name)
	if !ok {
		return nil, &PipelineConfigurationError{Stage: cfg.Name, Reason: "no such stage"}
	}
	for _, key := range cfg.Options.Keys() {
		if !f.OpenOptions && !slices.Contains(f.Options, key) {
			return nil, &UnknownPluginOptionError{Stage: cfg.Name, Option: key, Known: slices.Sorted(slices.Values(f.Options))}
		}
	}
	opts := cfg.Options
	if opts == nil {
		opts = Options{}
	}
	stage, err := f.New(opts)
	if err != nil {
		var pce *PipelineConfigurationError
		if errors.As(err, &pce) {
			return nil, err
		}
		return nil, &PipelineConfigurationError{Stage: cfg.Name, Reason: err.Error()}
	}
	return stage, nil
}

// Build instantiates every configured stage and orders them into a pipeline.
func (r *Registry) Build(cfgs []Config, opts ...PipelineOption) (*Pipeline, error) {
	specs := make([]Spec, 0, len(cfgs))
	for _, cfg := range cfgs {
		stage, err := r.Instantiate(cfg)
		if err != nil {
			return nil, err
		}
		spec := Spec{Stage: stage, Priority: cfg.Priority}
		for _, b := range cfg.Before {
			spec.Extra = append(spec.Extra, RunsBefore(b))
		}
		for _, a := range cfg.After {
			spec.Extra = append(spec.Extra, RunsAfter(a))
		}
		specs = append(specs, spec)
	}
	return New(specs, opts...)
}
