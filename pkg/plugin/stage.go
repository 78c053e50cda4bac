// SPDX-License-Identifier: MPL-2.0

package plugin

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/jmodlink/jmodlink/pkg/resource"
)

// Category groups stages; it orders stages that constraints leave unordered.
type Category int

const (
	// CategorySorter reorders resources.
	CategorySorter Category = iota
	// CategoryTransformer adds, removes or rewrites resources.
	CategoryTransformer
	// CategoryCompressor re-encodes resource content.
	CategoryCompressor
	// CategoryVerifier inspects the pool and fails on violations.
	CategoryVerifier
	// CategoryTerminal writes the final pool. At most one per pipeline.
	CategoryTerminal
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategorySorter:
		return "SORTER"
	case CategoryTransformer:
		return "FUNCTIONAL_TRANSFORMER"
	case CategoryCompressor:
		return "COMPRESSOR"
	case CategoryVerifier:
		return "VERIFIER"
	case CategoryTerminal:
		return "TERMINAL"
	default:
		return fmt.Sprintf("Category(%d)", int(c))
	}
}

// rank is the coarse tie-break: sorters first, the terminal last, everything
// else in between.
func (c Category) rank() int {
	switch c {
	case CategorySorter:
		return 0
	case CategoryTerminal:
		return 2
	default:
		return 1
	}
}

// ParseCategory accepts a category name in any case.
func ParseCategory(s string) (Category, error) {
	for c := CategorySorter; c <= CategoryTerminal; c++ {
		if strings.EqualFold(s, c.String()) {
			return c, nil
		}
	}
	if strings.EqualFold(s, "transformer") {
		return CategoryTransformer, nil
	}
	return 0, fmt.Errorf("unknown stage category %q", s)
}

type (
	// Direction says on which side of another stage a constraint places a stage.
	Direction int

	// Constraint orders a stage relative to another stage by name.
	Constraint struct {
		Direction Direction
		Stage     string
	}

	// Stage is the metadata every pipeline stage exposes.
	Stage interface {
		Name() string
		Category() Category
		Constraints() []Constraint
	}

	// Transformer is a stage that derives a new pool from its input.
	// It must not modify in.
	Transformer interface {
		Stage
		Transform(ctx context.Context, in *resource.Pool) (*resource.Pool, error)
	}

	// Emitter is the TERMINAL stage: it serializes the final pool to w.
	Emitter interface {
		Stage
		Emit(ctx context.Context, in *resource.Pool, w io.Writer) error
	}
)

const (
	// Before places the stage ahead of the named stage.
	Before Direction = iota
	// After places the stage behind the named stage.
	After
)

// RunsBefore returns a constraint placing a stage before name.
func RunsBefore(name string) Constraint { return Constraint{Direction: Before, Stage: name} }

// RunsAfter returns a constraint placing a stage after name.
func RunsAfter(name string) Constraint { return Constraint{Direction: After, Stage: name} }

// String renders "before:x" or "after:x".
func (c Constraint) String() string {
	if c.Direction == Before {
		return "before:" + c.Stage
	}
	return "after:" + c.Stage
}

// Info carries the name, category and constraints of a stage. Built-in
// stages embed it to satisfy the Stage metadata methods.
type Info struct {
	StageName       string
	StageCategory   Category
	StageConstraint []Constraint
}

// Name implements Stage.
func (i Info) Name() string { return i.StageName }

// Category implements Stage.
func (i Info) Category() Category { return i.StageCategory }

// Constraints implements Stage.
func (i Info) Constraints() []Constraint { return i.StageConstraint }
