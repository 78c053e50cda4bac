// SPDX-License-Identifier: MPL-2.0

package dag

import (
	"errors"
	"slices"
	"strings"
	"testing"
)

func TestTopologicalSort_EmptyGraph(t *testing.T) {
	t.Parallel()
	order, err := New().TopologicalSort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order != nil {
		t.Errorf("expected nil, got %v", order)
	}
}

func TestTopologicalSort_LinearChain(t *testing.T) {
	t.Parallel()
	g := New()
	g.AddEdge("sort", "compress")
	g.AddEdge("compress", "write")

	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := []string{"sort", "compress", "write"}
	if !slices.Equal(order, expected) {
		t.Errorf("expected %v, got %v", expected, order)
	}
}

func TestTopologicalSort_InsertionOrderTieBreak(t *testing.T) {
	t.Parallel()
	g := New()
	g.AddNode("c")
	g.AddNode("a")
	g.AddNode("b")

	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(order, []string{"c", "a", "b"}) {
		t.Errorf("expected insertion order, got %v", order)
	}
}

func TestTopologicalSortFunc_PrefersSmallestReady(t *testing.T) {
	t.Parallel()
	g := New()
	g.AddNode("zeta")
	g.AddNode("alpha")
	g.AddNode("mid")
	g.AddEdge("zeta", "last")

	order, err := g.TopologicalSortFunc(strings.Compare)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// "last" only becomes ready after "zeta", which sorts after the others.
	expected := []string{"alpha", "mid", "zeta", "last"}
	if !slices.Equal(order, expected) {
		t.Errorf("expected %v, got %v", expected, order)
	}
}

func TestTopologicalSortFunc_ConstraintBeatsComparator(t *testing.T) {
	t.Parallel()
	g := New()
	g.AddEdge("b", "a")

	order, err := g.TopologicalSortFunc(strings.Compare)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(order, []string{"b", "a"}) {
		t.Errorf("edge must win over comparator, got %v", order)
	}
}

func TestTopologicalSort_CycleIsOrdered(t *testing.T) {
	t.Parallel()
	g := New()
	g.AddEdge("root", "A")
	g.AddEdge("A", "B")
	g.AddEdge("B", "A")

	_, err := g.TopologicalSort()
	var cycleErr *CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("expected *CycleError, got %T: %v", err, err)
	}
	if !slices.Equal(cycleErr.Cycle, []string{"A", "B", "A"}) {
		t.Errorf("expected [A B A], got %v", cycleErr.Cycle)
	}
}

func TestFindCycle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		edges [][2]string
		want  []string
	}{
		{"acyclic", [][2]string{{"a", "b"}, {"b", "c"}, {"a", "c"}}, nil},
		{"self loop", [][2]string{{"x", "x"}}, []string{"x", "x"}},
		{"three cycle", [][2]string{{"a", "b"}, {"b", "c"}, {"c", "a"}}, []string{"a", "b", "c", "a"}},
		{"cycle off the first branch", [][2]string{{"a", "b"}, {"a", "c"}, {"c", "d"}, {"d", "c"}}, []string{"c", "d", "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			g := New()
			for _, e := range tt.edges {
				g.AddEdge(e[0], e[1])
			}
			if got := g.FindCycle(); !slices.Equal(got, tt.want) {
				t.Errorf("FindCycle() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAddEdge_Deduplicates(t *testing.T) {
	t.Parallel()
	g := New()
	g.AddEdge("A", "B")
	g.AddEdge("A", "B")

	if got := g.Successors("A"); !slices.Equal(got, []string{"B"}) {
		t.Errorf("Successors(A) = %v, want [B]", got)
	}
	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(order, []string{"A", "B"}) {
		t.Errorf("expected [A, B], got %v", order)
	}
	if !g.HasNode("B") || g.HasNode("C") {
		t.Error("HasNode reports wrong membership")
	}
}

func TestCycleError_Message(t *testing.T) {
	t.Parallel()
	err := &CycleError{Cycle: []string{"A", "B", "A"}}
	expected := "cycle detected: A -> B -> A"
	if err.Error() != expected {
		t.Errorf("expected %q, got %q", expected, err.Error())
	}
}
