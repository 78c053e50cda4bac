// SPDX-License-Identifier: MPL-2.0

package plugin

import (
	"bytes"
	"context"
	"errors"
	"io"
	"slices"
	"testing"

	"github.com/jmodlink/jmodlink/pkg/poolcodec"
	"github.com/jmodlink/jmodlink/pkg/resource"
)

type fakeStage struct {
	Info
	run func(in *resource.Pool) (*resource.Pool, error)
}

func (f *fakeStage) Transform(_ context.Context, in *resource.Pool) (*resource.Pool, error) {
	if f.run != nil {
		return f.run(in)
	}
	return in, nil
}

type fakeEmitter struct{ Info }

func (f *fakeEmitter) Emit(_ context.Context, in *resource.Pool, w io.Writer) error {
	for e := range in.Entries() {
		if _, err := io.WriteString(w, e.Path()+"\n"); err != nil {
			return err
		}
	}
	return nil
}

func stage(name string, cat Category, constraints ...Constraint) Spec {
	return Spec{Stage: &fakeStage{Info: Info{StageName: name, StageCategory: cat, StageConstraint: constraints}}}
}

func terminal(name string, constraints ...Constraint) Spec {
	return Spec{Stage: &fakeEmitter{Info{StageName: name, StageCategory: CategoryTerminal, StageConstraint: constraints}}}
}

func TestNew_Ordering(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		specs []Spec
		want  []string
	}{
		{
			"category rank orders unconstrained stages",
			[]Spec{terminal("write"), stage("verify", CategoryVerifier), stage("sort", CategorySorter)},
			[]string{"sort", "verify", "write"},
		},
		{
			"constraint overrides category",
			[]Spec{stage("sort", CategorySorter, RunsAfter("strip")), stage("strip", CategoryTransformer), terminal("write")},
			[]string{"strip", "sort", "write"},
		},
		{
			"priority breaks ties within a rank",
			[]Spec{
				{Stage: &fakeStage{Info: Info{StageName: "b", StageCategory: CategoryTransformer}}, Priority: 5},
				{Stage: &fakeStage{Info: Info{StageName: "a", StageCategory: CategoryCompressor}}, Priority: 1},
				terminal("write"),
			},
			[]string{"a", "b", "write"},
		},
		{
			"configuration order breaks remaining ties",
			[]Spec{stage("x", CategoryTransformer), stage("y", CategoryCompressor), stage("z", CategoryVerifier), terminal("write")},
			[]string{"x", "y", "z", "write"},
		},
		{
			"extra constraints from configuration",
			[]Spec{stage("x", CategoryTransformer), {Stage: &fakeStage{Info: Info{StageName: "y", StageCategory: CategoryTransformer}}, Extra: []Constraint{RunsBefore("x")}}, terminal("write")},
			[]string{"y", "x", "write"},
		},
		{
			"terminal stays last even when declared before others",
			[]Spec{terminal("write"), stage("late", CategoryVerifier, RunsAfter("write"))},
			nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p, err := New(tt.specs)
			if tt.want == nil {
				var pce *PipelineConfigurationError
				if !errors.As(err, &pce) || len(pce.Cycle) == 0 {
					t.Fatalf("New() error = %v, want a cycle error", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			if got := p.Stages(); !slices.Equal(got, tt.want) {
				t.Errorf("Stages() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNew_ConfigurationErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		specs []Spec
	}{
		{"two terminals", []Spec{terminal("a"), terminal("b")}},
		{"no terminal", []Spec{stage("a", CategoryTransformer), stage("b", CategorySorter)}},
		{"empty", nil},
		{"absent constraint target", []Spec{stage("a", CategoryTransformer, RunsBefore("ghost")), terminal("write")}},
		{"duplicate name", []Spec{stage("a", CategoryTransformer), stage("a", CategorySorter), terminal("write")}},
		{"contradictory constraints", []Spec{stage("a", CategoryTransformer, RunsBefore("b")), stage("b", CategoryTransformer, RunsBefore("a")), terminal("write")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := New(tt.specs); !errors.Is(err, ErrPipelineConfiguration) {
				t.Errorf("New() error = %v, want ErrPipelineConfiguration", err)
			}
		})
	}
}

func TestNew_CycleNamesBothStages(t *testing.T) {
	t.Parallel()

	_, err := New([]Spec{stage("a", CategoryTransformer, RunsBefore("b")), stage("b", CategoryTransformer, RunsBefore("a")), terminal("write")})
	var pce *PipelineConfigurationError
	if !errors.As(err, &pce) {
		t.Fatalf("error = %v", err)
	}
	if !slices.Contains(pce.Cycle, "a") || !slices.Contains(pce.Cycle, "b") {
		t.Errorf("Cycle = %v, want both a and b", pce.Cycle)
	}
}

func testPool() *resource.Pool {
	b := resource.NewBuilder()
	b.Add(resource.NewEntry("app", "b.txt", poolcodec.KindConfig, []byte("b")))
	b.Add(resource.NewEntry("app", "a.txt", poolcodec.KindConfig, []byte("a")))
	return b.Build()
}

func TestRun_ExecutesEachStageOnce(t *testing.T) {
	t.Parallel()

	calls := map[string]int{}
	count := func(name string) *fakeStage {
		return &fakeStage{Info: Info{StageName: name, StageCategory: CategoryTransformer}, run: func(in *resource.Pool) (*resource.Pool, error) {
			calls[name]++
			return in, nil
		}}
	}
	p, err := New([]Spec{{Stage: count("one")}, {Stage: count("two")}, terminal("write")})
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	res, err := p.Run(context.Background(), testPool(), &out)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if calls["one"] != 1 || calls["two"] != 1 {
		t.Errorf("calls = %v", calls)
	}
	if !slices.Equal(res.Stages, []string{"one", "two", "write"}) {
		t.Errorf("Stages = %v", res.Stages)
	}
	if out.String() != "/app/b.txt\n/app/a.txt\n" {
		t.Errorf("output = %q", out.String())
	}
}

func TestRun_StageFailure(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	tests := []struct {
		name string
		run  func(*resource.Pool) (*resource.Pool, error)
	}{
		{"error", func(*resource.Pool) (*resource.Pool, error) { return nil, boom }},
		{"panic", func(*resource.Pool) (*resource.Pool, error) { panic("bad transformer") }},
		{"nil pool", func(*resource.Pool) (*resource.Pool, error) { return nil, nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			bad := &fakeStage{Info: Info{StageName: "bad", StageCategory: CategoryTransformer}, run: tt.run}
			p, err := New([]Spec{{Stage: bad}, terminal("write")})
			if err != nil {
				t.Fatal(err)
			}
			var out bytes.Buffer
			_, err = p.Run(context.Background(), testPool(), &out)
			var pef *PluginExecutionFailedError
			if !errors.As(err, &pef) || pef.Stage != "bad" {
				t.Fatalf("Run() error = %v, want PluginExecutionFailedError for bad", err)
			}
			if !errors.Is(err, ErrPluginExecutionFailed) {
				t.Error("error does not match ErrPluginExecutionFailed")
			}
			if out.Len() != 0 {
				t.Error("terminal must not run after a failed stage")
			}
		})
	}
}

func TestRegistry_Build(t *testing.T) {
	t.Parallel()

	r := DefaultRegistry()

	_, err := r.Build([]Config{{Name: StageCompress, Options: Options{"level": "9", "speed": "fast"}}})
	var uo *UnknownPluginOptionError
	if !errors.As(err, &uo) || uo.Option != "speed" || uo.Stage != StageCompress {
		t.Errorf("unknown option error = %v", err)
	}

	if _, err := r.Build([]Config{{Name: "no-such-stage"}}); !errors.Is(err, ErrPipelineConfiguration) {
		t.Errorf("unknown stage error = %v", err)
	}
	if _, err := r.Build([]Config{{Name: StageCompress, Options: Options{"level": 42}}}); !errors.Is(err, ErrPipelineConfiguration) {
		t.Errorf("bad level error = %v", err)
	}

	p, err := r.Build([]Config{
		{Name: StageImageWriter},
		{Name: StageCompress, Options: Options{"level": 9}},
		{Name: StageSortResources, Options: Options{"order": "kind"}},
		{Name: StageVerifyPool, After: []string{StageCompress}},
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	want := []string{StageSortResources, StageCompress, StageVerifyPool, StageImageWriter}
	if got := p.Stages(); !slices.Equal(got, want) {
		t.Errorf("Stages() = %v, want %v", got, want)
	}

	if err := r.Register(Factory{Name: StageCompress, New: func(Options) (Stage, error) { return nil, nil }}); err == nil {
		t.Error("expected duplicate registration error")
	}
}

func TestRun_Idempotent(t *testing.T) {
	t.Parallel()

	build := func() []byte {
		p, err := DefaultRegistry().Build([]Config{{Name: StageSortResources}, {Name: StageCompress}, {Name: StageImageWriter}})
		if err != nil {
			t.Fatal(err)
		}
		var out bytes.Buffer
		if _, err := p.Run(context.Background(), testPool(), &out); err != nil {
			t.Fatal(err)
		}
		return out.Bytes()
	}
	if a, b := build(), build(); !bytes.Equal(a, b) {
		t.Error("two runs over the same input produced different images")
	}
}

func TestParseAssignments(t *testing.T) {
	t.Parallel()

	opts, err := ParseAssignments("level=9, affects=class;config")
	if err != nil {
		t.Fatal(err)
	}
	if lvl, _ := opts.Int("level", 0); lvl != 9 {
		t.Errorf("level = %d", lvl)
	}
	if kinds, _ := opts.Strings("affects", nil); !slices.Equal(kinds, []string{"class", "config"}) {
		t.Errorf("affects = %v", kinds)
	}
	if _, err := ParseAssignments("novalue"); err == nil {
		t.Error("expected error for missing '='")
	}
}
