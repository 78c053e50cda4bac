// SPDX-License-Identifier: MPL-2.0

package moddesc

import (
	"slices"
	"strings"
)

// Modifier is a bit set of requires modifiers.
type Modifier uint8

const (
	// Transitive re-exports the dependency to the requiring module's readers.
	Transitive Modifier = 1 << iota
	// Static makes the dependency mandatory at compile time only.
	Static
	// Mandated marks an edge implicitly declared, such as the base module.
	Mandated
)

// String renders the set as space-separated lower-case names.
func (m Modifier) String() string {
	var parts []string
	if m&Transitive != 0 {
		parts = append(parts, "transitive")
	}
	if m&Static != 0 {
		parts = append(parts, "static")
	}
	if m&Mandated != 0 {
		parts = append(parts, "mandated")
	}
	return strings.Join(parts, " ")
}

type (
	// Requires is one dependency edge.
	Requires struct {
		Name      string
		Modifiers Modifier
	}

	// Exports describes an exported or opened package. An empty Targets
	// means unqualified.
	Exports struct {
		Package string
		Targets []string
	}

	// Provides lists the implementations of a service.
	Provides struct {
		Service   string
		Providers []string
	}

	// Descriptor is a module descriptor.
	Descriptor struct {
		Name      string
		Version   string
		Open      bool
		Requires  []Requires
		Exports   []Exports
		Opens     []Exports
		Uses      []string
		Provides  []Provides
		MainClass string
		Packages  []string
	}
)

// IsStatic reports whether the edge is static.
func (r Requires) IsStatic() bool { return r.Modifiers&Static != 0 }

// IsTransitive reports whether the edge is transitive.
func (r Requires) IsTransitive() bool { return r.Modifiers&Transitive != 0 }

// ParsedVersion returns the descriptor version in comparable form.
func (d *Descriptor) ParsedVersion() Version {
	return ParseVersion(d.Version)
}

// RequiredNames returns the names of all requires targets in declaration order.
func (d *Descriptor) RequiredNames() []string {
	names := make([]string, len(d.Requires))
	for i, r := range d.Requires {
		names[i] = r.Name
	}
	return names
}

// Clone returns a deep copy.
func (d *Descriptor) Clone() *Descriptor {
	c := *d
	c.Requires = slices.Clone(d.Requires)
	c.Exports = cloneExports(d.Exports)
	c.Opens = cloneExports(d.Opens)
	c.Uses = slices.Clone(d.Uses)
	c.Provides = make([]Provides, len(d.Provides))
	for i, p := range d.Provides {
		c.Provides[i] = Provides{Service: p.Service, Providers: slices.Clone(p.Providers)}
	}
	c.Packages = slices.Clone(d.Packages)
	return &c
}

func cloneExports(in []Exports) []Exports {
	if in == nil {
		return nil
	}
	out := make([]Exports, len(in))
	for i, e := range in {
		out[i] = Exports{Package: e.Package, Targets: slices.Clone(e.Targets)}
	}
	return out
}

// Equal reports whether two descriptors hold the same data.
func (d *Descriptor) Equal(o *Descriptor) bool {
	if d.Name != o.Name || d.Version != o.Version || d.Open != o.Open || d.MainClass != o.MainClass {
		return false
	}
	if !slices.Equal(d.Requires, o.Requires) || !slices.Equal(d.Uses, o.Uses) || !slices.Equal(d.Packages, o.Packages) {
		return false
	}
	eqExports := func(a, b Exports) bool { return a.Package == b.Package && slices.Equal(a.Targets, b.Targets) }
	if !slices.EqualFunc(d.Exports, o.Exports, eqExports) || !slices.EqualFunc(d.Opens, o.Opens, eqExports) {
		return false
	}
	return slices.EqualFunc(d.Provides, o.Provides, func(a, b Provides) bool {
		return a.Service == b.Service && slices.Equal(a.Providers, b.Providers)
	})
}
