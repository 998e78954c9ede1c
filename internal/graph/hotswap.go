package graph

import (
	"sync"

	"github.com/agentic-research/flattree/internal/index"
)

// HotSwapGraph is a thread-safe wrapper that allows swapping the published snapshot.
// Each query runs against whichever snapshot was current when it started.
type HotSwapGraph struct {
	mu      sync.RWMutex
	current *Snapshot
}

var _ Graph = (*HotSwapGraph)(nil)

func NewHotSwapGraph(initial *Snapshot) *HotSwapGraph {
	return &HotSwapGraph{current: initial}
}

// Swap atomically replaces the current snapshot and returns the previous one.
// Readers still holding the previous snapshot keep a consistent view of it.
func (h *HotSwapGraph) Swap(next *Snapshot) *Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	prev := h.current
	h.current = next
	return prev
}

// Current returns the published snapshot.
func (h *HotSwapGraph) Current() *Snapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// GetNode delegates to the current snapshot.
func (h *HotSwapGraph) GetNode(key string) (*Node, bool) {
	return h.Current().GetNode(key)
}

// Children delegates to the current snapshot.
func (h *HotSwapGraph) Children(key string) []*Node {
	return h.Current().Children(key)
}

// Ancestors delegates to the current snapshot.
func (h *HotSwapGraph) Ancestors(key string) []*Node {
	return h.Current().Ancestors(key)
}

// Search delegates to the current snapshot.
func (h *HotSwapGraph) Search(field, query string, mode index.Mode) []string {
	return h.Current().Search(field, query, mode)
}

// Roots delegates to the current snapshot.
func (h *HotSwapGraph) Roots() []string {
	return h.Current().Roots()
}
