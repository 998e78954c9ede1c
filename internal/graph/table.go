package graph

import (
	"maps"
	"slices"

	"github.com/agentic-research/flattree/internal/index"
)

// Table is the mutable node table used while a snapshot is being built.
// It is owned by a single builder goroutine and is never shared with readers.
type Table struct {
	nodes  map[string]*Node
	order  []string
	roots  []string
	shared map[string]bool // nodes still owned by the snapshot this table was forked from
}

func NewTable() *Table {
	return &Table{nodes: make(map[string]*Node)}
}

// Add inserts n. It reports false, leaving the table unchanged, when the key
// is already taken.
func (t *Table) Add(n *Node) bool {
	if _, ok := t.nodes[n.Key]; ok {
		return false
	}
	t.nodes[n.Key] = n
	t.order = append(t.order, n.Key)
	if n.ParentKey == nil {
		t.roots = append(t.roots, n.Key)
	}
	return true
}

// Has reports whether key is taken.
func (t *Table) Has(key string) bool {
	_, ok := t.nodes[key]
	return ok
}

// Get returns the node stored under key for reading.
func (t *Table) Get(key string) (*Node, bool) {
	n, ok := t.nodes[key]
	return n, ok
}

// Mutable returns a node under key that the table owns and may modify.
// Nodes inherited from a snapshot are copied first.
func (t *Table) Mutable(key string) (*Node, bool) {
	n, ok := t.nodes[key]
	if !ok {
		return nil, false
	}
	if t.shared[key] {
		n = n.clone()
		t.nodes[key] = n
		delete(t.shared, key)
	}
	return n, true
}

func (t *Table) Len() int { return len(t.nodes) }

// Keys lists keys in insertion order.
func (t *Table) Keys() []string { return slices.Clone(t.order) }

// Freeze publishes the table as a snapshot. The table must not be used afterwards.
func (t *Table) Freeze(idx *index.Index, report Report) *Snapshot {
	s := &Snapshot{
		nodes:  t.nodes,
		order:  t.order,
		roots:  t.roots,
		index:  idx,
		report: report,
	}
	t.nodes, t.order, t.roots, t.shared = nil, nil, nil, nil
	return s
}

// Fork starts a table holding the snapshot's nodes. The snapshot is left
// untouched: nodes are copied lazily through Mutable.
func (s *Snapshot) Fork() *Table {
	t := &Table{
		nodes:  maps.Clone(s.nodes),
		order:  slices.Clone(s.order),
		roots:  slices.Clone(s.roots),
		shared: make(map[string]bool, len(s.nodes)),
	}
	for k := range s.nodes {
		t.shared[k] = true
	}
	return t
}
