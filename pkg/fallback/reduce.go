// SPDX-License-Identifier: MPL-2.0

package fallback

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/bmatcuk/doublestar"
	"github.com/charmbracelet/log"
	digest "github.com/opencontainers/go-digest"

	"github.com/jmodlink/jmodlink/pkg/jmod"
)

// Outcome says what Reduce or Restore did with an archive.
type Outcome int

const (
	// OutcomeReduced means entries were moved to the fallback list.
	OutcomeReduced Outcome = iota
	// OutcomeRestored means listed entries were put back.
	OutcomeRestored
	// OutcomeAlreadyReduced means the archive already carries a fallback list.
	OutcomeAlreadyReduced
	// OutcomeNotReduced means Restore found no fallback list.
	OutcomeNotReduced
	// OutcomeNotInRuntime means the runtime does not ship the module.
	OutcomeNotInRuntime
	// OutcomeNothingShared means no entry matched the runtime.
	OutcomeNothingShared
)

// String returns a short description of o.
func (o Outcome) String() string {
	switch o {
	case OutcomeReduced:
		return "reduced"
	case OutcomeRestored:
		return "restored"
	case OutcomeAlreadyReduced:
		return "already reduced"
	case OutcomeNotReduced:
		return "not reduced"
	case OutcomeNotInRuntime:
		return "module not in runtime"
	case OutcomeNothingShared:
		return "nothing shared with runtime"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Changed reports whether the outcome rewrote the archive.
func (o Outcome) Changed() bool { return o == OutcomeReduced || o == OutcomeRestored }

type (
	// ReduceOptions tunes Reduce. Patterns are doublestar globs matched
	// against archive entry names such as "lib/libjava.so".
	ReduceOptions struct {
		// Exclude keeps matching entries in the archive.
		Exclude []string
		// WithoutVerify records matching entries with "-" instead of a hash.
		WithoutVerify []string
		Logger        *log.Logger
	}

	// Result reports one Reduce or Restore.
	Result struct {
		Module  string
		Outcome Outcome
		// Moved counts entries dropped by Reduce or re-materialized by Restore.
		Moved int
		// List is the fallback list written or consumed, if any.
		List *List
	}
)

var errUnchanged = errors.New("archive unchanged")

func (o ReduceOptions) validate() error {
	for _, p := range append(append([]string(nil), o.Exclude...), o.WithoutVerify...) {
		if _, err := doublestar.Match(p, ""); err != nil {
			return fmt.Errorf("bad pattern %q: %w", p, err)
		}
	}
	return nil
}

func matchAny(patterns []string, name string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, name); ok {
			return true
		}
	}
	return false
}

func reducible(entry string) bool {
	section, _, ok := strings.Cut(entry, "/")
	if !ok {
		return false
	}
	return section == jmod.SectionClasses || section == jmod.SectionLib || section == jmod.SectionBin
}

// Reduce stages src into w without the entries the runtime already ships
// byte for byte, plus a fallback list naming them. w is only filled when the
// outcome is OutcomeReduced.
func Reduce(src jmod.Source, rt *Runtime, opts ReduceOptions, w *jmod.Writer) (Result, error) {
	if err := opts.validate(); err != nil {
		return Result{}, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	d, err := src.Descriptor()
	if err != nil {
		return Result{}, err
	}
	res := Result{Module: d.Name}

	var names []string
	for name := range src.Entries() {
		if name == ListEntry {
			res.Outcome = OutcomeAlreadyReduced
			return res, nil
		}
		names = append(names, name)
	}
	if !rt.HasModule(d.Name) {
		res.Outcome = OutcomeNotInRuntime
		return res, nil
	}

	list := NewList()
	for _, name := range names {
		if !reducible(name) || matchAny(opts.Exclude, name) {
			continue
		}
		theirs, ok, err := rt.Lookup(d.Name, name)
		if err != nil {
			return res, fmt.Errorf("%s: %w", name, err)
		}
		if !ok {
			continue
		}
		ours, err := src.ReadEntry(name)
		if err != nil {
			return res, err
		}
		if !bytes.Equal(ours, theirs) {
			continue
		}
		var hash digest.Digest
		if !matchAny(opts.WithoutVerify, name) {
			hash = digest.SHA256.FromBytes(ours)
		}
		if err := list.Add(name, hash); err != nil {
			return res, err
		}
		logger.Debug("shared with runtime", "module", d.Name, "entry", name)
	}
	if list.Len() == 0 {
		res.Outcome = OutcomeNothingShared
		return res, nil
	}

	for _, name := range names {
		if name == jmod.DescriptorEntry {
			continue
		}
		if _, moved := list.Lookup(name); moved {
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
	if err := w.Add(ListEntry, jmod.KindForPath(ListEntry), list.Bytes()); err != nil {
		return res, err
	}
	if err := w.AddDescriptor(d); err != nil {
		return res, err
	}
	res.Outcome = OutcomeReduced
	res.Moved = list.Len()
	res.List = list
	return res, nil
}

// ReduceFile reduces the archive at in and writes the result to out, which
// may equal in. When nothing is reduced and out differs from in, the archive
// is copied unchanged.
func ReduceFile(ctx context.Context, rt *Runtime, in, out string, opts ReduceOptions) (Result, error) {
	return rewriteFile(ctx, in, out, func(src jmod.Source, w *jmod.Writer) (Result, error) {
		return Reduce(src, rt, opts, w)
	})
}

// rewriteFile runs fn over the archive at in and writes w to out atomically
// when fn changed something, or copies in to out when it did not.
func rewriteFile(ctx context.Context, in, out string, fn func(jmod.Source, *jmod.Writer) (Result, error)) (Result, error) {
	src, err := jmod.Open(ctx, in)
	if err != nil {
		return Result{}, err
	}
	defer func() { _ = src.Close() }()

	var res Result
	_, err = jmod.Create(ctx, out, func(w *jmod.Writer) error {
		var ferr error
		res, ferr = fn(src, w)
		if ferr != nil {
			return ferr
		}
		if !res.Outcome.Changed() {
			if in == out {
				return errUnchanged
			}
			return jmod.Copy(w, src)
		}
		return nil
	})
	if errors.Is(err, errUnchanged) {
		return res, nil
	}
	return res, err
}
