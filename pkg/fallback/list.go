// SPDX-License-Identifier: MPL-2.0

package fallback

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"slices"
	"strings"

	digest "github.com/opencontainers/go-digest"
)

const (
	// ListEntry is the archive entry holding the fallback list.
	ListEntry = "classes/fallback.list"

	// ListResource is the resource name of the list inside a link pool.
	ListResource = "fallback.list"

	unverified = "-"
)

type (
	// Record is one fallback list line. An empty Hash means the entry is
	// restored without verification.
	Record struct {
		Path string
		Hash digest.Digest
	}

	// List is an ordered set of records keyed by archive entry path.
	List struct {
		records []Record
		index   map[string]int
	}
)

// NewList returns an empty list.
func NewList() *List {
	return &List{index: make(map[string]int)}
}

// Verified reports whether r carries a hash.
func (r Record) Verified() bool { return r.Hash != "" }

// Parse reads a fallback list. Lines have the form "<hash> <path>" where hash
// is 64 lower-case hex digits or "-". Blank lines are skipped. The same path
// may repeat only with the same hash; an unverified record is kept over a
// later hashed one.
func Parse(r io.Reader) (*List, error) {
	l := NewList()
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), 1<<20)
	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimSuffix(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		rec, err := parseLine(line)
		if err != nil {
			return nil, &InvalidListError{Line: n, Text: line, Reason: err.Error()}
		}
		if i, dup := l.index[rec.Path]; dup {
			prev := l.records[i]
			if prev.Verified() && rec.Verified() && prev.Hash != rec.Hash {
				return nil, &InvalidListError{Line: n, Text: line, Reason: fmt.Sprintf("conflicts with earlier hash %s", prev.Hash.Encoded())}
			}
			continue
		}
		l.index[rec.Path] = len(l.records)
		l.records = append(l.records, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, &InvalidListError{Reason: err.Error()}
	}
	return l, nil
}

// ParseBytes parses a list held in memory.
func ParseBytes(b []byte) (*List, error) {
	return Parse(bytes.NewReader(b))
}

func parseLine(line string) (Record, error) {
	sep := strings.IndexByte(line, ' ')
	var rec Record
	switch sep {
	case 1:
		if line[:1] != unverified {
			return rec, fmt.Errorf("hash must be %q or 64 hex digits", unverified)
		}
	case 64:
		d := digest.NewDigestFromEncoded(digest.SHA256, line[:64])
		if err := d.Validate(); err != nil {
			return rec, fmt.Errorf("bad SHA-256 hash: %w", err)
		}
		rec.Hash = d
	default:
		return rec, fmt.Errorf("hash must be %q or 64 hex digits", unverified)
	}
	rec.Path = line[sep+1:]
	if err := checkPath(rec.Path); err != nil {
		return rec, err
	}
	return rec, nil
}

func checkPath(p string) error {
	switch {
	case p == "":
		return fmt.Errorf("missing path")
	case strings.HasPrefix(p, "/"):
		return fmt.Errorf("absolute path")
	}
	for seg := range strings.SplitSeq(p, "/") {
		if seg == "." || seg == ".." {
			return fmt.Errorf("path escapes the archive")
		}
	}
	return nil
}

// Add appends a record. Adding a path twice is an error.
func (l *List) Add(path string, hash digest.Digest) error {
	if err := checkPath(path); err != nil {
		return &InvalidListError{Text: path, Reason: err.Error()}
	}
	if _, dup := l.index[path]; dup {
		return &InvalidListError{Text: path, Reason: "path recorded twice"}
	}
	l.index[path] = len(l.records)
	l.records = append(l.records, Record{Path: path, Hash: hash})
	return nil
}

// Len returns the number of records.
func (l *List) Len() int { return len(l.records) }

// Records returns the records in list order.
func (l *List) Records() []Record { return slices.Clone(l.records) }

// Lookup returns the record for path.
func (l *List) Lookup(path string) (Record, bool) {
	i, ok := l.index[path]
	if !ok {
		return Record{}, false
	}
	return l.records[i], true
}

// Format writes the list sorted segment by segment, so "a/b" sorts before
// "a-c".
func (l *List) Format(w io.Writer) error {
	sorted := slices.Clone(l.records)
	slices.SortStableFunc(sorted, func(a, b Record) int { return comparePaths(a.Path, b.Path) })
	bw := bufio.NewWriter(w)
	for _, r := range sorted {
		hash := unverified
		if r.Verified() {
			hash = r.Hash.Encoded()
		}
		if _, err := fmt.Fprintf(bw, "%s %s\n", hash, r.Path); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Bytes returns the formatted list.
func (l *List) Bytes() []byte {
	var buf bytes.Buffer
	_ = l.Format(&buf)
	return buf.Bytes()
}

func comparePaths(a, b string) int {
	as, bs := strings.Split(a, "/"), strings.Split(b, "/")
	for i := range min(len(as), len(bs)) {
		if c := strings.Compare(as[i], bs[i]); c != 0 {
			return c
		}
	}
	return len(as) - len(bs)
}
