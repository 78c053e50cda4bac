// SPDX-License-Identifier: MPL-2.0

package poolcodec

import (
	"fmt"
	"strings"
)

// Kind classifies a resource. The zero value is invalid.
type Kind uint8

const (
	// KindClass is a class file or a resource living beside classes.
	KindClass Kind = iota + 1
	// KindConfig is a configuration file (conf section).
	KindConfig
	// KindNativeLib is a native shared library (lib section).
	KindNativeLib
	// KindNativeCmd is a native launcher or tool (bin section).
	KindNativeCmd
	// KindManPage is a manual page (man section).
	KindManPage
	// KindOther is anything without a dedicated section, including the descriptor.
	KindOther
	// KindLegal is a license or notice file (legal section).
	KindLegal
	// KindHeader is a C header file (include section).
	KindHeader
)

var kindNames = [...]string{
	KindClass:     "CLASS",
	KindConfig:    "CONFIG",
	KindNativeLib: "NATIVE_LIB",
	KindNativeCmd: "NATIVE_CMD",
	KindManPage:   "MAN_PAGE",
	KindOther:     "OTHER",
	KindLegal:     "LEGAL",
	KindHeader:    "HEADER",
}

// Kinds lists every valid kind in tag order.
func Kinds() []Kind {
	return []Kind{KindClass, KindConfig, KindNativeLib, KindNativeCmd, KindManPage, KindOther, KindLegal, KindHeader}
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k >= KindClass && k <= KindHeader
}

// String returns the upper-case kind name.
func (k Kind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
	return kindNames[k]
}

// ParseKind accepts a kind name in any case, with '-' or '_' separators.
func ParseKind(s string) (Kind, error) {
	norm := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_"))
	for _, k := range Kinds() {
		if kindNames[k] == norm {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown resource kind %q", s)
}

func checkKind(b uint8, at int64) (Kind, error) {
	k := Kind(b)
	if !k.Valid() {
		return 0, Malformed(at, "unrecognized kind byte 0x%02x", b)
	}
	return k, nil
}

// ReadKind reads and validates a kind byte.
func ReadKind(c *Cursor) (Kind, error) {
	at := c.Offset()
	b, err := c.Uint8()
	if err != nil {
		return 0, err
	}
	return checkKind(b, at)
}
