// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"errors"
	"strings"
	"testing"
)

const testSchema = `
#Stage: close({
	name:      string & !=""
	priority?: int
})
#Pipeline: close({
	stages: [...#Stage]
	verbose: bool | *false
})
`

type testPipeline struct {
	Stages []struct {
		Name     string `json:"name"`
		Priority int    `json:"priority"`
	} `json:"stages"`
	Verbose bool `json:"verbose"`
}

func TestParseAndDecode(t *testing.T) {
	t.Parallel()

	data := []byte(`stages: [{name: "sort-resources", priority: 2}, {name: "image-writer"}]`)
	res, err := ParseAndDecode[testPipeline]([]byte(testSchema), data, "#Pipeline", WithFilename("pipeline.cue"))
	if err != nil {
		t.Fatalf("ParseAndDecode() error = %v", err)
	}
	if len(res.Value.Stages) != 2 || res.Value.Stages[0].Priority != 2 || res.Value.Stages[1].Name != "image-writer" {
		t.Errorf("decoded %+v", res.Value)
	}
	if res.Value.Verbose {
		t.Error("default verbose should be false")
	}
}

func TestParseAndDecode_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		data     string
		contains string
	}{
		{"syntax", `stages: [`, "pipeline.cue"},
		{"closed struct", `stages: [{name: "x", bogus: 1}]`, "stages[0]"},
		{"empty name", `stages: [{name: ""}]`, "stages[0].name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ParseAndDecode[testPipeline]([]byte(testSchema), []byte(tt.data), "#Pipeline", WithFilename("pipeline.cue"))
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, ErrInvalidCUE) {
				t.Errorf("error %v does not wrap ErrInvalidCUE", err)
			}
			if !strings.Contains(err.Error(), tt.contains) {
				t.Errorf("error %q does not mention %q", err, tt.contains)
			}
		})
	}
}

func TestCheckFileSize(t *testing.T) {
	t.Parallel()

	_, err := ParseAndDecode[testPipeline]([]byte(testSchema), []byte(`stages: []`), "#Pipeline", WithMaxFileSize(4))
	if err == nil || !strings.Contains(err.Error(), "exceeds maximum") {
		t.Errorf("expected size error, got %v", err)
	}
	if err := CheckFileSize([]byte("abc"), 3, "f"); err != nil {
		t.Errorf("exact size should pass: %v", err)
	}
}

func TestFormatPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   []string
		want string
	}{
		{nil, ""},
		{[]string{"requires"}, "requires"},
		{[]string{"requires", "0", "module"}, "requires[0].module"},
		{[]string{"stages", "2", "options", "level"}, "stages[2].options.level"},
	}
	for _, tt := range tests {
		if got := formatPath(tt.in); got != tt.want {
			t.Errorf("formatPath(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
