package graph

import (
	"maps"
	"slices"

	"github.com/agentic-research/flattree/api"
	"github.com/agentic-research/flattree/internal/index"
)

// Node is one flattened record. Nodes reachable from a Snapshot are shared
// between readers and must not be modified.
type Node struct {
	Key   string
	Title string
	Type  string // type tag of the record that produced the node
	// Fields holds the stringified title, key and searchable values.
	Fields map[string]string
	// Data is the application value behind the record.
	Data      any
	ParentKey *string  // nil for roots
	ChildKeys []string // source order
	Depth     int
}

// Parent returns the parent key, or false for a root.
func (n *Node) Parent() (string, bool) {
	if n.ParentKey == nil {
		return "", false
	}
	return *n.ParentKey, true
}

func (n *Node) clone() *Node {
	cp := *n
	cp.ChildKeys = slices.Clone(n.ChildKeys)
	return &cp
}

// Graph is the read-only query surface over flattened nodes.
type Graph interface {
	GetNode(key string) (*Node, bool)
	// Children returns direct children in source order. Unknown keys and
	// leaves both yield an empty result.
	Children(key string) []*Node
	// Ancestors returns the chain from the parent up to the root.
	Ancestors(key string) []*Node
	Search(field, query string, mode index.Mode) []string
	Roots() []string
}

// Snapshot is an immutable node table plus its search index. It is safe for
// any number of concurrent readers and needs no locking.
type Snapshot struct {
	nodes  map[string]*Node
	order  []string
	roots  []string
	index  *index.Index
	report Report
}

var _ Graph = (*Snapshot)(nil)

// GetNode implements Graph.
func (s *Snapshot) GetNode(key string) (*Node, bool) {
	n, ok := s.nodes[key]
	return n, ok
}

// Children implements Graph.
func (s *Snapshot) Children(key string) []*Node {
	n, ok := s.nodes[key]
	if !ok || len(n.ChildKeys) == 0 {
		return nil
	}
	out := make([]*Node, 0, len(n.ChildKeys))
	for _, c := range n.ChildKeys {
		if child, ok := s.nodes[c]; ok {
			out = append(out, child)
		}
	}
	return out
}

// Ancestors implements Graph.
func (s *Snapshot) Ancestors(key string) []*Node {
	n, ok := s.nodes[key]
	if !ok {
		return nil
	}
	var out []*Node
	for n.ParentKey != nil {
		p, ok := s.nodes[*n.ParentKey]
		if !ok || len(out) > len(s.nodes) {
			break
		}
		out = append(out, p)
		n = p
	}
	return out
}

// Search implements Graph.
func (s *Snapshot) Search(field, query string, mode index.Mode) []string {
	return s.index.Search(field, query, mode)
}

// Roots implements Graph.
func (s *Snapshot) Roots() []string {
	return slices.Clone(s.roots)
}

// Len returns the number of nodes.
func (s *Snapshot) Len() int { return len(s.nodes) }

// Walk visits nodes in insertion order until fn returns false.
func (s *Snapshot) Walk(fn func(*Node) bool) {
	for _, k := range s.order {
		if !fn(s.nodes[k]) {
			return
		}
	}
}

// Index returns the search index.
func (s *Snapshot) Index() *index.Index { return s.index }

// Report describes the build that produced the snapshot.
func (s *Snapshot) Report() Report { return s.report }

// API returns the wire form of n.
func (n *Node) API() api.Node {
	out := api.Node{
		Key:      n.Key,
		Title:    n.Title,
		Type:     n.Type,
		Children: slices.Clone(n.ChildKeys),
		Depth:    n.Depth,
		Fields:   maps.Clone(n.Fields),
	}
	if n.ParentKey != nil {
		p := *n.ParentKey
		out.Parent = &p
	}
	if out.Children == nil {
		out.Children = []string{}
	}
	return out
}

// APINodes converts nodes to their wire form. The result is never nil.
func APINodes(nodes []*Node) []api.Node {
	out := make([]api.Node, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.API())
	}
	return out
}
