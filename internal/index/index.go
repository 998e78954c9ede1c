// Package index maps normalized searchable field values to the set of node
// keys carrying them. Each key is assigned a dense uint32 ordinal so the sets
// can be roaring bitmaps; ordinals follow insertion order, so results come
// back in the order nodes were added.
package index

import (
	"fmt"
	"slices"
	"strings"

	"github.com/RoaringBitmap/roaring"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Mode selects how a query is matched against indexed values.
type Mode int

const (
	Exact Mode = iota
	Substring
)

func (m Mode) String() string {
	switch m {
	case Exact:
		return "exact"
	case Substring:
		return "substring"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode accepts "exact" or "substring".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "", "exact":
		return Exact, nil
	case "substring", "contains":
		return Substring, nil
	}
	return Exact, fmt.Errorf("unknown search mode %q", s)
}

// Normalize is the form values are indexed and queried in: Unicode case
// folded, then NFC composed.
func Normalize(s string) string {
	return norm.NFC.String(cases.Fold().String(s))
}

// Posting says node Key carries Value in searchable field Field.
type Posting struct {
	Key   string
	Field string
	Value string
}

// Index is immutable once built and safe for concurrent readers.
type Index struct {
	keys     []string          // ordinal -> key
	ordinals map[string]uint32 // key -> ordinal
	fields   map[string]*fieldIndex
	postings int
}

type fieldIndex struct {
	values map[string]*roaring.Bitmap
	sorted []string // distinct values, for deterministic substring scans
}

// Stats summarizes an index.
type Stats struct {
	Fields   int
	Values   int // distinct (field, value) pairs
	Postings int
}

// Build creates an index from postings. Keys get ordinals in order of first
// appearance, so callers that want every node to have an ordinal list each
// key via Keys before any posting.
func Build(keys []string, postings []Posting) *Index {
	ix := &Index{
		ordinals: make(map[string]uint32, len(keys)),
		fields:   make(map[string]*fieldIndex),
	}
	for _, k := range keys {
		ix.ordinal(k)
	}
	touched := ix.add(postings, nil)
	for _, fi := range touched {
		slices.Sort(fi.sorted)
	}
	return ix
}

// Extend returns a new index holding ix's entries plus postings. ix itself is
// left untouched; bitmaps of unaffected values are shared.
func (ix *Index) Extend(keys []string, postings []Posting) *Index {
	next := &Index{
		keys:     slices.Clip(ix.keys),
		ordinals: make(map[string]uint32, len(ix.ordinals)+len(keys)),
		fields:   make(map[string]*fieldIndex, len(ix.fields)),
		postings: ix.postings,
	}
	for k, o := range ix.ordinals {
		next.ordinals[k] = o
	}
	for name, fi := range ix.fields {
		next.fields[name] = fi
	}
	for _, k := range keys {
		next.ordinal(k)
	}
	touched := next.add(postings, ix)
	for _, fi := range touched {
		slices.Sort(fi.sorted)
	}
	return next
}

func (ix *Index) ordinal(key string) uint32 {
	if o, ok := ix.ordinals[key]; ok {
		return o
	}
	o := uint32(len(ix.keys))
	ix.keys = append(ix.keys, key)
	ix.ordinals[key] = o
	return o
}

// add applies postings. When base is non-nil, field and value entries still
// shared with base are copied before their first write.
func (ix *Index) add(postings []Posting, base *Index) map[string]*fieldIndex {
	touched := make(map[string]*fieldIndex)
	cloned := make(map[*roaring.Bitmap]bool)
	for _, p := range postings {
		fi, ok := touched[p.Field]
		if !ok {
			fi = ix.fields[p.Field]
			switch {
			case fi == nil:
				fi = &fieldIndex{values: make(map[string]*roaring.Bitmap)}
			case base != nil && base.fields[p.Field] == fi:
				cp := &fieldIndex{
					values: make(map[string]*roaring.Bitmap, len(fi.values)),
					sorted: slices.Clone(fi.sorted),
				}
				for v, bm := range fi.values {
					cp.values[v] = bm
				}
				fi = cp
			}
			ix.fields[p.Field] = fi
			touched[p.Field] = fi
		}

		value := Normalize(p.Value)
		bm, ok := fi.values[value]
		switch {
		case !ok:
			bm = roaring.New()
			fi.values[value] = bm
			fi.sorted = append(fi.sorted, value)
			cloned[bm] = true
		case base != nil && !cloned[bm]:
			bm = bm.Clone()
			fi.values[value] = bm
			cloned[bm] = true
		}
		o := ix.ordinal(p.Key)
		if bm.CheckedAdd(o) {
			ix.postings++
		}
	}
	return touched
}

// Search returns the keys matching query in field, in insertion order.
// An unindexed field yields nil. A Substring query of "" matches every
// node that has the field.
func (ix *Index) Search(field, query string, mode Mode) []string {
	fi, ok := ix.fields[field]
	if !ok {
		return nil
	}
	q := Normalize(query)

	var bm *roaring.Bitmap
	switch mode {
	case Exact:
		bm = fi.values[q]
	case Substring:
		var hits []*roaring.Bitmap
		for _, v := range fi.sorted {
			if strings.Contains(v, q) {
				hits = append(hits, fi.values[v])
			}
		}
		if len(hits) > 0 {
			bm = roaring.FastOr(hits...)
		}
	}
	if bm == nil || bm.IsEmpty() {
		return nil
	}

	out := make([]string, 0, bm.GetCardinality())
	it := bm.Iterator()
	for it.HasNext() {
		out = append(out, ix.keys[it.Next()])
	}
	return out
}

// Values lists the distinct normalized values of a field in sorted order.
func (ix *Index) Values(field string) []string {
	fi, ok := ix.fields[field]
	if !ok {
		return nil
	}
	return slices.Clone(fi.sorted)
}

// Fields lists indexed field names in sorted order.
func (ix *Index) Fields() []string {
	out := make([]string, 0, len(ix.fields))
	for name := range ix.fields {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

func (ix *Index) Stats() Stats {
	s := Stats{Fields: len(ix.fields), Postings: ix.postings}
	for _, fi := range ix.fields {
		s.Values += len(fi.values)
	}
	return s
}
