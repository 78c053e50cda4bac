// SPDX-License-Identifier: MPL-2.0

package moddesc

import (
	"bytes"
	_ "embed"
	"fmt"

	"github.com/pelletier/go-toml/v2"

	"github.com/jmodlink/jmodlink/pkg/cueutil"
)

// Source file names recognized at the top of a module root.
const (
	SourceCUE  = "module-info.cue"
	SourceTOML = "module-info.toml"
)

//go:embed module_info_schema.cue
var moduleInfoSchema []byte

type (
	sourceFile struct {
		Module    string           `json:"module" toml:"module"`
		Version   string           `json:"version,omitempty" toml:"version"`
		Open      bool             `json:"open,omitempty" toml:"open"`
		MainClass string           `json:"main_class,omitempty" toml:"main_class"`
		Requires  []sourceRequires `json:"requires,omitempty" toml:"requires"`
		Exports   []sourcePackage  `json:"exports,omitempty" toml:"exports"`
		Opens     []sourcePackage  `json:"opens,omitempty" toml:"opens"`
		Uses      []string         `json:"uses,omitempty" toml:"uses"`
		Provides  []sourceProvides `json:"provides,omitempty" toml:"provides"`
	}

	sourceRequires struct {
		Module     string `json:"module" toml:"module"`
		Transitive bool   `json:"transitive,omitempty" toml:"transitive"`
		Static     bool   `json:"static,omitempty" toml:"static"`
	}

	sourcePackage struct {
		Package string   `json:"package" toml:"package"`
		To      []string `json:"to,omitempty" toml:"to"`
	}

	sourceProvides struct {
		Service string   `json:"service" toml:"service"`
		With    []string `json:"with" toml:"with"`
	}
)

// ParseCUE reads a module-info.cue document. Schema violations come back as
// *InvalidModuleDescriptorError with the CUE problems as cause.
func ParseCUE(data []byte, filename string) (*Descriptor, error) {
	res, err := cueutil.ParseAndDecode[sourceFile](moduleInfoSchema, data, "#ModuleInfo", cueutil.WithFilename(filename))
	if err != nil {
		return nil, &InvalidModuleDescriptorError{Module: filename, Cause: err}
	}
	return res.Value.descriptor(), nil
}

// ParseTOML reads a module-info.toml document. Unknown keys are rejected.
// Field-level checks happen later in Validate, since TOML carries no schema.
func ParseTOML(data []byte, filename string) (*Descriptor, error) {
	var src sourceFile
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&src); err != nil {
		return nil, &InvalidModuleDescriptorError{Module: filename, Cause: fmt.Errorf("%s: %w", filename, err)}
	}
	if src.Module == "" {
		return nil, &InvalidModuleDescriptorError{Module: filename, Reasons: []string{"missing module name"}}
	}
	return src.descriptor(), nil
}

func (s *sourceFile) descriptor() *Descriptor {
	d := &Descriptor{
		Name:      s.Module,
		Version:   s.Version,
		Open:      s.Open,
		MainClass: s.MainClass,
		Uses:      s.Uses,
	}
	for _, r := range s.Requires {
		var mods Modifier
		if r.Transitive {
			mods |= Transitive
		}
		if r.Static {
			mods |= Static
		}
		d.Requires = append(d.Requires, Requires{Name: r.Module, Modifiers: mods})
	}
	for _, e := range s.Exports {
		d.Exports = append(d.Exports, Exports{Package: e.Package, Targets: e.To})
	}
	for _, e := range s.Opens {
		d.Opens = append(d.Opens, Exports{Package: e.Package, Targets: e.To})
	}
	for _, p := range s.Provides {
		d.Provides = append(d.Provides, Provides{Service: p.Service, Providers: p.With})
	}
	return d
}
