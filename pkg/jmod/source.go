// SPDX-License-Identifier: MPL-2.0

package jmod

import (
	"iter"
	"slices"

	"github.com/jmodlink/jmodlink/pkg/moddesc"
	"github.com/jmodlink/jmodlink/pkg/poolcodec"
)

// Source is a module the linker can collect: an opened archive or a module
// root directory. Entries yields archive entry names, including DescriptorEntry.
type Source interface {
	Origin() string
	Descriptor() (*moddesc.Descriptor, error)
	Entries() iter.Seq[string]
	ReadEntry(name string) ([]byte, error)
	Close() error
}

var (
	_ Source = (*Reader)(nil)
	_ Source = (*Directory)(nil)
)

// describe decodes a binary descriptor, adds the packages of the class
// entries to the recorded package list and validates the result. The recorded
// list survives entries moved out to a fallback list.
func describe(raw []byte, entries iter.Seq[string]) (*moddesc.Descriptor, error) {
	d, err := moddesc.Decode(raw)
	if err != nil {
		return nil, err
	}
	return withPackages(d, entries)
}

func withPackages(d *moddesc.Descriptor, entries iter.Seq[string]) (*moddesc.Descriptor, error) {
	var classes []string
	for name := range entries {
		if KindForPath(name) == poolcodec.KindClass {
			classes = append(classes, ResourceName(name))
		}
	}
	pkgs, err := moddesc.PackagesOf(d.Name, classes)
	if err != nil {
		return nil, err
	}
	for _, p := range d.Packages {
		if !slices.Contains(pkgs, p) {
			pkgs = append(pkgs, p)
		}
	}
	slices.Sort(pkgs)
	d.Packages = pkgs
	if err := d.Validate(pkgs); err != nil {
		return nil, err
	}
	return d, nil
}
