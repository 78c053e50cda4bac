// SPDX-License-Identifier: MPL-2.0

package jmod

import (
	"strings"

	"github.com/jmodlink/jmodlink/pkg/poolcodec"
)

// Section directory names.
const (
	SectionClasses = "classes"
	SectionConf    = "conf"
	SectionInclude = "include"
	SectionLegal   = "legal"
	SectionMan     = "man"
	SectionLib     = "lib"
	SectionBin     = "bin"
)

// DescriptorEntry is the entry holding the binary module descriptor.
const DescriptorEntry = "module-info.bin"

var sectionKinds = map[string]poolcodec.Kind{
	SectionClasses: poolcodec.KindClass,
	SectionConf:    poolcodec.KindConfig,
	SectionInclude: poolcodec.KindHeader,
	SectionLegal:   poolcodec.KindLegal,
	SectionMan:     poolcodec.KindManPage,
	SectionLib:     poolcodec.KindNativeLib,
	SectionBin:     poolcodec.KindNativeCmd,
}

// Sections lists the section directories in a fixed order.
func Sections() []string {
	return []string{SectionClasses, SectionConf, SectionInclude, SectionLegal, SectionMan, SectionLib, SectionBin}
}

// KindForPath maps an entry name to the kind of its section. Entries outside
// any section, the descriptor among them, are KindOther.
func KindForPath(entry string) poolcodec.Kind {
	section, _, ok := strings.Cut(entry, "/")
	if !ok {
		return poolcodec.KindOther
	}
	if k, ok := sectionKinds[section]; ok {
		return k
	}
	return poolcodec.KindOther
}

// SectionFor returns the section directory of a kind, or "" for KindOther.
func SectionFor(kind poolcodec.Kind) string {
	for s, k := range sectionKinds {
		if k == kind {
			return s
		}
	}
	return ""
}

// ResourceName maps an archive entry to its module-relative resource name.
// Class-section entries drop the "classes/" prefix; every other entry keeps
// its section directory.
func ResourceName(entry string) string {
	if rest, ok := strings.CutPrefix(entry, SectionClasses+"/"); ok {
		return rest
	}
	return entry
}

// EntryName is the inverse of ResourceName for a given kind.
func EntryName(kind poolcodec.Kind, resourceName string) string {
	if kind == poolcodec.KindClass {
		return SectionClasses + "/" + resourceName
	}
	return resourceName
}

// ValidEntryName reports whether name is a relative, clean, slash-separated path.
func ValidEntryName(name string) bool {
	if name == "" || strings.HasPrefix(name, "/") || strings.HasSuffix(name, "/") || strings.Contains(name, "\\") {
		return false
	}
	for seg := range strings.SplitSeq(name, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return false
		}
	}
	return true
}
