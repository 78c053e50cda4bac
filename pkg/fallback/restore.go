// SPDX-License-Identifier: MPL-2.0

package fallback

import (
	"context"
	"fmt"
	"slices"

	"github.com/jmodlink/jmodlink/pkg/jmod"
)

// ReadList returns the fallback list of src, or nil when src has none.
func ReadList(src jmod.Source) (*List, error) {
	found := false
	for name := range src.Entries() {
		if name == ListEntry {
			found = true
			break
		}
	}
	if !found {
		return nil, nil
	}
	raw, err := src.ReadEntry(ListEntry)
	if err != nil {
		return nil, err
	}
	l, err := ParseBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", src.Origin(), err)
	}
	return l, nil
}

// Restore stages src into w with every listed entry fetched back from the
// runtime and the fallback list removed. Entries still present in src are
// kept as they are. A listed entry the runtime lacks, or whose hash changed,
// fails the restore.
func Restore(src jmod.Source, rt *Runtime, w *jmod.Writer) (Result, error) {
	d, err := src.Descriptor()
	if err != nil {
		return Result{}, err
	}
	res := Result{Module: d.Name}
	list, err := ReadList(src)
	if err != nil {
		return res, err
	}
	if list == nil {
		res.Outcome = OutcomeNotReduced
		return res, nil
	}
	res.List = list
	if !rt.HasModule(d.Name) {
		res.Outcome = OutcomeNotInRuntime
		return res, nil
	}

	names := slices.Collect(src.Entries())
	for _, name := range names {
		if name == jmod.DescriptorEntry || name == ListEntry {
			continue
		}
		data, err := src.ReadEntry(name)
		if err != nil {
			return res, err
		}
		if err := w.Add(name, jmod.KindForPath(name), data); err != nil {
			return res, err
		}
	}
	for _, rec := range list.Records() {
		if slices.Contains(names, rec.Path) {
			continue
		}
		data, err := rt.fetch(d.Name, rec)
		if err != nil {
			return res, err
		}
		if err := w.Add(rec.Path, jmod.KindForPath(rec.Path), data); err != nil {
			return res, err
		}
		res.Moved++
	}
	if err := w.AddDescriptor(d); err != nil {
		return res, err
	}
	res.Outcome = OutcomeRestored
	return res, nil
}

// RestoreFile restores the archive at in and writes the result to out, which
// may equal in.
func RestoreFile(ctx context.Context, rt *Runtime, in, out string) (Result, error) {
	return rewriteFile(ctx, in, out, func(src jmod.Source, w *jmod.Writer) (Result, error) {
		return Restore(src, rt, w)
	})
}
