// SPDX-License-Identifier: MPL-2.0

package moddesc

import (
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Version is a module version. Parsing never fails: a string outside the
// version grammar is kept verbatim and compared segment by segment like any
// other.
type Version struct {
	raw    string
	sem    *semver.Version
	main   []string
	pre    []string
	build  []string
	opaque bool
}

// ParseVersion parses s. Strings accepted by semver are compared with semver
// rules; the rest are split into dot-separated main, pre-release ("-") and
// build ("+") segments.
func ParseVersion(s string) Version {
	v := Version{raw: s}
	if s == "" {
		return v
	}
	if sv, err := semver.StrictNewVersion(s); err == nil {
		v.sem = sv
	}

	rest, build, _ := strings.Cut(s, "+")
	main, pre, _ := strings.Cut(rest, "-")
	v.main = splitSegments(main)
	v.pre = splitSegments(pre)
	v.build = splitSegments(build)
	v.opaque = !validSegments(v.main) || len(v.main) == 0 || !validSegments(v.pre) || !validSegments(v.build)
	return v
}

func splitSegments(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ".")
}

func validSegments(segs []string) bool {
	for _, s := range segs {
		if s == "" {
			return false
		}
		for _, c := range s {
			if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z') {
				return false
			}
		}
	}
	return true
}

// String returns the version exactly as parsed.
func (v Version) String() string { return v.raw }

// IsZero reports whether no version was given.
func (v Version) IsZero() bool { return v.raw == "" }

// Opaque reports whether the string is outside the version grammar.
func (v Version) Opaque() bool { return v.opaque }

// Compare orders v against o: -1, 0 or +1. An absent version sorts first.
func (v Version) Compare(o Version) int {
	switch {
	case v.IsZero() && o.IsZero():
		return 0
	case v.IsZero():
		return -1
	case o.IsZero():
		return 1
	}
	if v.sem != nil && o.sem != nil {
		// semver ignores build metadata; keep the order total anyway.
		if c := v.sem.Compare(o.sem); c != 0 {
			return c
		}
		return compareSegments(v.build, o.build)
	}
	if c := compareSegments(v.main, o.main); c != 0 {
		return c
	}
	// A pre-release sorts before the release it precedes.
	switch {
	case len(v.pre) == 0 && len(o.pre) > 0:
		return 1
	case len(v.pre) > 0 && len(o.pre) == 0:
		return -1
	}
	if c := compareSegments(v.pre, o.pre); c != 0 {
		return c
	}
	return compareSegments(v.build, o.build)
}

func compareSegments(a, b []string) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := compareSegment(a[i], b[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	}
	return 0
}

func compareSegment(a, b string) int {
	an, aerr := strconv.ParseUint(a, 10, 64)
	bn, berr := strconv.ParseUint(b, 10, 64)
	switch {
	case aerr == nil && berr == nil:
		switch {
		case an < bn:
			return -1
		case an > bn:
			return 1
		}
		return 0
	case aerr == nil:
		return -1
	case berr == nil:
		return 1
	}
	return strings.Compare(a, b)
}
