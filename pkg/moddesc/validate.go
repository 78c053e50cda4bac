// SPDX-License-Identifier: MPL-2.0

package moddesc

import (
	"fmt"
	"strings"
	"unicode"
)

// Validate checks d against the packages that actually hold classes in the
// module's resource set. Every violation is collected; the result is nil or
// an *InvalidModuleDescriptorError. Whether requires targets exist is not
// checked here.
func (d *Descriptor) Validate(packages []string) error {
	var reasons []string
	add := func(format string, args ...any) {
		reasons = append(reasons, fmt.Sprintf(format, args...))
	}

	if d.Name == "" {
		add("module name is empty")
	} else if !IsQualifiedName(d.Name) {
		add("module name %q is not a dotted identifier", d.Name)
	}

	seen := make(map[string]bool, len(d.Requires))
	for _, r := range d.Requires {
		switch {
		case !IsQualifiedName(r.Name):
			add("requires %q is not a dotted identifier", r.Name)
		case r.Name == d.Name:
			add("module requires itself")
		case seen[r.Name]:
			add("duplicate requires %s", r.Name)
		}
		seen[r.Name] = true
	}

	pkgs := make(map[string]bool, len(packages))
	for _, p := range packages {
		pkgs[p] = true
	}

	checkPackages := func(verb string, list []Exports) {
		dup := make(map[string]bool, len(list))
		for _, e := range list {
			if dup[e.Package] {
				add("duplicate %s of package %s", verb, e.Package)
			}
			dup[e.Package] = true
			if !pkgs[e.Package] {
				add("%s package %s which contains no classes", verb, e.Package)
			}
		}
	}
	checkPackages("exports", d.Exports)
	checkPackages("opens", d.Opens)
	if d.Open && len(d.Opens) > 0 {
		add("open module cannot declare opens")
	}

	for _, s := range d.Uses {
		if !IsQualifiedName(s) {
			add("uses %q is not a class name", s)
		}
	}
	for _, p := range d.Provides {
		if !IsQualifiedName(p.Service) {
			add("provides %q is not a class name", p.Service)
		}
		if len(p.Providers) == 0 {
			add("provides %s without providers", p.Service)
		}
		for _, impl := range p.Providers {
			if !pkgs[PackageOf(impl)] {
				add("provider %s is not in a package of the module", impl)
			}
		}
	}

	if d.MainClass != "" && !pkgs[PackageOf(d.MainClass)] {
		add("main class %s is not in a package of the module", d.MainClass)
	}

	if len(reasons) > 0 {
		return &InvalidModuleDescriptorError{Module: d.Name, Reasons: reasons}
	}
	return nil
}

// IsQualifiedName reports whether s is one or more identifiers joined by dots.
func IsQualifiedName(s string) bool {
	if s == "" {
		return false
	}
	for part := range strings.SplitSeq(s, ".") {
		if !isIdentifier(part) {
			return false
		}
	}
	return true
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, c := range s {
		switch {
		case c == '_' || c == '$' || unicode.IsLetter(c):
		case i > 0 && unicode.IsDigit(c):
		default:
			return false
		}
	}
	return true
}

// PackageOf returns the package of a fully qualified class name, or "" for
// a class in the unnamed package.
func PackageOf(className string) string {
	i := strings.LastIndexByte(className, '.')
	if i < 0 {
		return ""
	}
	return className[:i]
}
