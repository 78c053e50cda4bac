// SPDX-License-Identifier: MPL-2.0

package fallback

import (
	"errors"
	"strings"
	"testing"

	digest "github.com/opencontainers/go-digest"

	"github.com/jmodlink/jmodlink/pkg/poolcodec"
)

var (
	hashA = strings.Repeat("a", 64)
	hashB = strings.Repeat("b", 64)
)

func TestParse(t *testing.T) {
	t.Parallel()

	l, err := Parse(strings.NewReader("\n" + hashA + " classes/java/lang/Object.class\n- lib/libjava.so\n\n" + hashA + " classes/java/lang/Object.class\r\n"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	recs := l.Records()
	if len(recs) != 2 {
		t.Fatalf("Records() = %v", recs)
	}
	if recs[0].Path != "classes/java/lang/Object.class" || recs[0].Hash.Encoded() != hashA {
		t.Errorf("first record = %+v", recs[0])
	}
	if recs[1].Path != "lib/libjava.so" || recs[1].Verified() {
		t.Errorf("second record = %+v", recs[1])
	}
	if _, ok := l.Lookup("lib/libjava.so"); !ok {
		t.Error("Lookup failed")
	}
}

func TestParse_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
	}{
		{"short hash", "abc classes/A.class"},
		{"upper-case hash", strings.Repeat("A", 64) + " classes/A.class"},
		{"non-hex hash", strings.Repeat("z", 64) + " classes/A.class"},
		{"wrong marker", "x classes/A.class"},
		{"no separator", "classes/A.class"},
		{"missing path", "- "},
		{"absolute path", "- /classes/A.class"},
		{"dot-dot segment", "- classes/../../etc/passwd"},
		{"dot segment", "- classes/./A.class"},
		{"conflicting hashes", hashA + " lib/x.so\n" + hashB + " lib/x.so"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Parse(strings.NewReader(tt.text))
			var ile *InvalidListError
			if !errors.As(err, &ile) {
				t.Fatalf("Parse() error = %v, want *InvalidListError", err)
			}
			if !errors.Is(err, ErrInvalidList) || !errors.Is(err, poolcodec.ErrMalformedContainer) {
				t.Errorf("error %v does not match both sentinels", err)
			}
		})
	}
}

func TestParse_UnverifiedWinsOverLaterHash(t *testing.T) {
	t.Parallel()

	l, err := Parse(strings.NewReader("- lib/x.so\n" + hashA + " lib/x.so\n"))
	if err != nil {
		t.Fatal(err)
	}
	if rec, _ := l.Lookup("lib/x.so"); rec.Verified() {
		t.Errorf("record = %+v, want unverified", rec)
	}
}

func TestFormat(t *testing.T) {
	t.Parallel()

	l := NewList()
	for _, p := range []string{"lib/z.so", "classes/a-c", "classes/a/b", "bin/java"} {
		hash := digest.Digest("")
		if p != "bin/java" {
			hash = digest.NewDigestFromEncoded(digest.SHA256, hashA)
		}
		if err := l.Add(p, hash); err != nil {
			t.Fatal(err)
		}
	}
	want := "- bin/java\n" + hashA + " classes/a/b\n" + hashA + " classes/a-c\n" + hashA + " lib/z.so\n"
	if got := string(l.Bytes()); got != want {
		t.Errorf("Format() =\n%s\nwant\n%s", got, want)
	}

	back, err := ParseBytes(l.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if back.Len() != l.Len() {
		t.Errorf("round trip lost records: %d != %d", back.Len(), l.Len())
	}

	if err := l.Add("lib/z.so", ""); err == nil {
		t.Error("expected duplicate path error")
	}
	if err := l.Add("../x", ""); err == nil {
		t.Error("expected escaping path error")
	}
}

func TestRuntimePath(t *testing.T) {
	t.Parallel()

	tests := []struct{ in, want string }{
		{"lib/jvm.dll", "bin/jvm.dll"},
		{"lib/jvm.pdb", "bin/jvm.pdb"},
		{"lib/jvm.map", "bin/jvm.map"},
		{"lib/jvm.diz", "bin/jvm.diz"},
		{"lib/libjava.so", "lib/libjava.so"},
		{"bin/java", "bin/java"},
		{"conf/x.dll", "conf/x.dll"},
	}
	for _, tt := range tests {
		if got := RuntimePath(tt.in); got != tt.want {
			t.Errorf("RuntimePath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
