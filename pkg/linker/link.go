// SPDX-License-Identifier: MPL-2.0

package linker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/jmodlink/jmodlink/internal/iox"
	"github.com/jmodlink/jmodlink/pkg/fallback"
	"github.com/jmodlink/jmodlink/pkg/jmod"
	"github.com/jmodlink/jmodlink/pkg/moddesc"
	"github.com/jmodlink/jmodlink/pkg/platform"
	"github.com/jmodlink/jmodlink/pkg/plugin"
	"github.com/jmodlink/jmodlink/pkg/resource"
	"github.com/jmodlink/jmodlink/pkg/shim"
)

// NativeStagePrefix prefixes the stage names of native plugins.
const NativeStagePrefix = "native:"

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// Link resolves the modules if that has not happened yet, runs the pipeline
// and writes the image to Options.OutputPath. The output file appears only
// if every stage succeeds.
func (l *Linker) Link(ctx context.Context) (*Result, error) {
	if l.state == StateCollecting {
		if _, err := l.Resolve(ctx); err != nil {
			return nil, err
		}
	}
	if err := l.expect("link", StateResolving); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, l.fail(err)
	}
	if l.opts.OutputPath == "" {
		return nil, l.fail(errors.New("no output path"))
	}
	target, err := platform.ParseTarget(l.opts.Platform)
	if err != nil {
		return nil, l.fail(err)
	}
	l.state = StateLinking

	pool, err := l.loadPool()
	if err != nil {
		return nil, l.fail(err)
	}
	pipeline, err := l.pipeline(pool, target)
	if err != nil {
		return nil, l.fail(err)
	}
	l.logger.Info("linking", "modules", len(l.closure), "entries", pool.Len(), "stages", strings.Join(pipeline.Stages(), ","), "target", target)

	var (
		run     *plugin.RunResult
		written int64
	)
	err = iox.WriteFileAtomic(ctx, l.opts.retry(), l.opts.OutputPath, func(w io.Writer) error {
		cw := &countingWriter{w: w}
		var rerr error
		run, rerr = pipeline.Run(ctx, pool, cw)
		written = cw.n
		return rerr
	})
	if err != nil {
		return nil, l.fail(err)
	}

	l.state = StateDone
	res := &Result{
		OutputPath: l.opts.OutputPath,
		Modules:    slices.Clone(l.closure),
		EntryCount: run.Pool.Len(),
		TotalBytes: written,
		Stages:     run.Stages,
	}
	l.logger.Info("image written", "path", res.OutputPath, "entries", res.EntryCount, "bytes", res.TotalBytes)
	return res, nil
}

// loadPool reads every resource of the closure. Each module contributes its
// descriptor as plugin.DescriptorResource.
func (l *Linker) loadPool() (*resource.Pool, error) {
	b := resource.NewBuilder()
	for _, name := range l.closure {
		src, ok := l.sources[name]
		if !ok {
			if err := l.loadRuntimeModule(b, name); err != nil {
				return nil, err
			}
			continue
		}
		b.Add(resource.NewEntry(name, plugin.DescriptorResource, jmod.KindForPath(jmod.DescriptorEntry), moddesc.Encode(l.descs[name])))
		for entry := range src.Entries() {
			if entry == jmod.DescriptorEntry {
				continue
			}
			data, err := src.ReadEntry(entry)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", src.Origin(), err)
			}
			b.Add(resource.NewEntry(name, jmod.ResourceName(entry), jmod.KindForPath(entry), data))
		}
	}
	return b.Build(), nil
}

func (l *Linker) loadRuntimeModule(b *resource.Builder, module string) error {
	img := l.rt.Image
	for name := range img.Entries(module) {
		loc, ok := img.FindLocation(module, name)
		if !ok {
			continue
		}
		data, err := img.ReadEntry(module, name)
		if err != nil {
			return fmt.Errorf("runtime module %s: %w", module, err)
		}
		b.Add(resource.NewEntry(module, name, loc.Kind, data))
	}
	l.logger.Debug("linked module from runtime image", "module", module)
	return nil
}

// pipeline builds the stages for pool. fallback-jmod is added when a module
// carries a fallback list, and image-writer when nothing writes the image.
// An image-writer without a byte-order writes in the target's byte order.
func (l *Linker) pipeline(pool *resource.Pool, target platform.Target) (*plugin.Pipeline, error) {
	reg, err := stageRegistry(l.opts, l.rt)
	if err != nil {
		return nil, err
	}

	cfgs := slices.Clone(l.opts.Stages)
	for i, c := range cfgs {
		if _, set := c.Options["byte-order"]; c.Name == plugin.StageImageWriter && !set {
			cfgs[i].Options = maps.Clone(c.Options)
			if cfgs[i].Options == nil {
				cfgs[i].Options = plugin.Options{}
			}
			cfgs[i].Options["byte-order"] = target.ByteOrderName()
		}
	}
	configured := func(name string) bool {
		return slices.ContainsFunc(cfgs, func(c plugin.Config) bool { return c.Name == name })
	}
	if fallback.HasList(pool) && !configured(fallback.StageName) {
		cfgs = append(cfgs, plugin.Config{Name: fallback.StageName})
	}
	hasTerminal := slices.ContainsFunc(cfgs, func(c plugin.Config) bool {
		f, ok := reg.Lookup(c.Name)
		return ok && f.Category == plugin.CategoryTerminal
	})
	if !hasTerminal {
		cfgs = append(cfgs, plugin.Config{
			Name:    plugin.StageImageWriter,
			Options: plugin.Options{"byte-order": target.ByteOrderName()},
		})
	}
	return reg.Build(cfgs, plugin.WithLogger(l.logger))
}

// StageRegistry returns the stages a link with opts can configure: the
// registry's own plus fallback-jmod and the native plugins of opts.Shim.
func StageRegistry(opts Options) (*plugin.Registry, error) {
	return stageRegistry(opts, nil)
}

func stageRegistry(opts Options, rt *fallback.Runtime) (*plugin.Registry, error) {
	base := opts.Registry
	if base == nil {
		base = plugin.DefaultRegistry()
	}
	reg := base.Clone()
	if _, ok := reg.Lookup(fallback.StageName); !ok {
		if err := reg.Register(fallback.StageFactory(rt)); err != nil {
			return nil, err
		}
	}
	if opts.Shim != nil {
		for _, name := range opts.Shim.NativePlugins() {
			if err := reg.Register(nativeFactory(opts.Shim, name)); err != nil {
				return nil, err
			}
		}
	}
	return reg, nil
}

type nativeStage struct {
	plugin.Info
	capability shim.Capability
	plugin     string
	opts       plugin.Options
}

func nativeFactory(c shim.Capability, name string) plugin.Factory {
	stage := NativeStagePrefix + name
	return plugin.Factory{
		Name:        stage,
		Category:    plugin.CategoryTransformer,
		Description: fmt.Sprintf("Native plugin %s provided by the %s binding.", name, c.Name()),
		OpenOptions: true,
		New: func(opts plugin.Options) (plugin.Stage, error) {
			return &nativeStage{
				Info:       plugin.Info{StageName: stage, StageCategory: plugin.CategoryTransformer},
				capability: c,
				plugin:     name,
				opts:       opts,
			}, nil
		},
	}
}

func (s *nativeStage) Transform(ctx context.Context, in *resource.Pool) (*resource.Pool, error) {
	return s.capability.InvokeNativePlugin(ctx, s.plugin, s.opts, in)
}
