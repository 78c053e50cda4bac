// SPDX-License-Identifier: MPL-2.0

package fallback

import (
	"context"
	"fmt"

	"github.com/jmodlink/jmodlink/pkg/jmod"
	"github.com/jmodlink/jmodlink/pkg/plugin"
	"github.com/jmodlink/jmodlink/pkg/resource"
)

// StageName is the name of the pipeline stage that expands fallback lists.
const StageName = "fallback-jmod"

type expandStage struct {
	plugin.Info
	rt     *Runtime
	verify bool
}

// StageFactory returns the fallback-jmod stage bound to rt. rt may be nil;
// the stage then fails on the first pool that carries a fallback list.
func StageFactory(rt *Runtime) plugin.Factory {
	return plugin.Factory{
		Name:        StageName,
		Category:    plugin.CategoryTransformer,
		Description: "Replaces each module's fallback.list with the entries it names, read from the runtime and checked against their SHA-256 hashes unless verify=false.",
		Options:     []string{"verify"},
		New: func(opts plugin.Options) (plugin.Stage, error) {
			verify, err := opts.Bool("verify", true)
			if err != nil {
				return nil, err
			}
			return &expandStage{
				Info:   plugin.Info{StageName: StageName, StageCategory: plugin.CategoryTransformer},
				rt:     rt,
				verify: verify,
			}, nil
		},
	}
}

func (s *expandStage) Transform(_ context.Context, in *resource.Pool) (*resource.Pool, error) {
	return Expand(in, s.rt, s.verify)
}

// HasList reports whether any module in p carries a fallback list.
func HasList(p *resource.Pool) bool {
	for _, m := range p.Modules() {
		if _, ok := p.Find(resource.Path(m, ListResource)); ok {
			return true
		}
	}
	return false
}

// Expand returns p with every module's fallback list replaced by the
// entries it names. Entries already in the pool are left alone. With verify
// false, recorded hashes are ignored.
func Expand(p *resource.Pool, rt *Runtime, verify bool) (*resource.Pool, error) {
	if !HasList(p) {
		return p, nil
	}
	if rt == nil {
		return nil, ErrNoRuntime
	}
	b := p.Edit()
	for _, module := range p.Modules() {
		listPath := resource.Path(module, ListResource)
		e, ok := p.Find(listPath)
		if !ok {
			continue
		}
		raw, err := e.Content()
		if err != nil {
			return nil, err
		}
		list, err := ParseBytes(raw)
		if err != nil {
			return nil, fmt.Errorf("module %s: %w", module, err)
		}
		b.Remove(listPath)
		for _, rec := range list.Records() {
			kind := jmod.KindForPath(rec.Path)
			name := jmod.ResourceName(rec.Path)
			if b.Has(resource.Path(module, name)) {
				continue
			}
			if !verify {
				rec.Hash = ""
			}
			data, err := rt.fetch(module, rec)
			if err != nil {
				return nil, err
			}
			b.Add(resource.NewEntry(module, name, kind, data))
		}
	}
	return b.Build(), nil
}
