// SPDX-License-Identifier: MPL-2.0

package plugin

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
)

// Options are the configured option values of one stage. Values arrive
// either as strings from the command line or as decoded configuration values.
type Options map[string]any

// Keys returns the option keys in sorted order.
func (o Options) Keys() []string {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// String returns a string option.
func (o Options) String(key, def string) (string, error) {
	v, ok := o[key]
	if !ok {
		return def, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("option %s: expected a string, got %T", key, v)
	}
	return s, nil
}

// Int returns an integer option. Values that do not fit in an int32 are
// rejected whatever their decoded type.
func (o Options) Int(key string, def int) (int, error) {
	v, ok := o[key]
	if !ok {
		return def, nil
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int32:
		return int(n), nil
	case int64:
		if n < math.MinInt32 || n > math.MaxInt32 {
			return 0, fmt.Errorf("option %s: %d out of range", key, n)
		}
		return int(n), nil
	case uint64:
		if n > math.MaxInt32 {
			return 0, fmt.Errorf("option %s: %d out of range", key, n)
		}
		return int(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("option %s: expected an integer, got %v", key, n)
		}
		if n < math.MinInt32 || n > math.MaxInt32 {
			return 0, fmt.Errorf("option %s: %v out of range", key, n)
		}
		return int(n), nil
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 32)
		if err != nil {
			return 0, fmt.Errorf("option %s: expected an integer, got %q", key, n)
		}
		return int(i), nil
	default:
		return 0, fmt.Errorf("option %s: expected an integer, got %T", key, v)
	}
}

// Bool returns a boolean option.
func (o Options) Bool(key string, def bool) (bool, error) {
	v, ok := o[key]
	if !ok {
		return def, nil
	}
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		p, err := strconv.ParseBool(strings.TrimSpace(b))
		if err != nil {
			return false, fmt.Errorf("option %s: expected a boolean, got %q", key, b)
		}
		return p, nil
	default:
		return false, fmt.Errorf("option %s: expected a boolean, got %T", key, v)
	}
}

// Strings returns a list option. A string value is split on commas and
// semicolons; empty items are dropped.
func (o Options) Strings(key string, def []string) ([]string, error) {
	v, ok := o[key]
	if !ok {
		return def, nil
	}
	switch l := v.(type) {
	case []string:
		return l, nil
	case []any:
		out := make([]string, 0, len(l))
		for _, item := range l {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("option %s: expected a list of strings, found %T", key, item)
			}
			out = append(out, s)
		}
		return out, nil
	case string:
		var out []string
		for _, part := range strings.FieldsFunc(l, func(r rune) bool { return r == ',' || r == ';' }) {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("option %s: expected a list of strings, got %T", key, v)
	}
}

// ParseAssignments parses "key=value" pairs separated by commas, the form
// used on the command line: "level=9,affects=class;config".
func ParseAssignments(s string) (Options, error) {
	opts := Options{}
	if strings.TrimSpace(s) == "" {
		return opts, nil
	}
	for pair := range strings.SplitSeq(s, ",") {
		k, v, ok := strings.Cut(pair, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("malformed option %q, want key=value", pair)
		}
		opts[k] = strings.TrimSpace(v)
	}
	return opts, nil
}
