// SPDX-License-Identifier: MPL-2.0

package plugin

import (
	"math"
	"testing"
)

func TestOptions_Int(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		value   any
		want    int
		wantErr bool
	}{
		{"int", 7, 7, false},
		{"int32", int32(-3), -3, false},
		{"int64", int64(9), 9, false},
		{"int64 at max", int64(math.MaxInt32), math.MaxInt32, false},
		{"int64 at min", int64(math.MinInt32), math.MinInt32, false},
		{"int64 above max", int64(math.MaxInt32) + 1, 0, true},
		{"int64 below min", int64(math.MinInt32) - 1, 0, true},
		{"int64 huge", int64(math.MaxInt64), 0, true},
		{"uint64", uint64(4), 4, false},
		{"uint64 above max", uint64(math.MaxInt32) + 1, 0, true},
		{"float64 whole", float64(12), 12, false},
		{"float64 fraction", 1.5, 0, true},
		{"float64 above max", float64(math.MaxInt32) + 1, 0, true},
		{"float64 below min", float64(math.MinInt32) - 1, 0, true},
		{"float64 huge", 1e300, 0, true},
		{"string", " 5 ", 5, false},
		{"string above max", "2147483648", 0, true},
		{"string not a number", "five", 0, true},
		{"bool", true, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Options{"level": tt.value}.Int("level", -1)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Int() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("Int() = %d, want %d", got, tt.want)
			}
		})
	}

	if got, err := (Options{}).Int("level", 6); err != nil || got != 6 {
		t.Errorf("Int(absent) = %d, %v, want default 6", got, err)
	}
}
