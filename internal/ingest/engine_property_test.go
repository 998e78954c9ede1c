package ingest

import (
	"slices"
	"testing"

	"github.com/agentic-research/flattree/internal/graph"
	"github.com/agentic-research/flattree/internal/index"
	"github.com/agentic-research/flattree/internal/record"
	"github.com/agentic-research/flattree/internal/treespec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

type pnode struct {
	Label string   `tree:"label"`
	Color string   `tree:"color"`
	Kids  []*pnode `tree:"kids"`
}

func genTree(t *rapid.T, depth int) *pnode {
	n := &pnode{
		Label: rapid.StringMatching(`[a-e|\\]{1,4}`).Draw(t, "label"),
		Color: rapid.SampledFrom([]string{"Red", "red", "Blue", "GREEN", ""}).Draw(t, "color"),
	}
	if depth < 3 {
		kids := rapid.IntRange(0, 3).Draw(t, "kids")
		for i := 0; i < kids; i++ {
			n.Kids = append(n.Kids, genTree(t, depth+1))
		}
	}
	return n
}

func labels(n *pnode) []string {
	out := []string{n.Label}
	for _, k := range n.Kids {
		out = append(out, labels(k)...)
	}
	return out
}

func hasDuplicate(xs []string) bool {
	seen := make(map[string]bool, len(xs))
	for _, x := range xs {
		if seen[x] {
			return true
		}
		seen[x] = true
	}
	return false
}

func propertyEngine(t *testing.T) *Engine {
	reg := treespec.NewRegistry()
	require.NoError(t, reg.RegisterStruct(treespec.Spec{
		TitleField:       "label",
		KeyFields:        []string{"label"},
		SearchableFields: []string{"color", "label"},
		Children:         []treespec.Relation{{Name: "kids"}},
	}, pnode{}))
	return newEngine(reg)
}

func TestEngine_Properties(t *testing.T) {
	e := propertyEngine(t)

	rapid.Check(t, func(t *rapid.T) {
		root := genTree(t, 0)
		all := labels(root)

		snap, err := e.Build(record.FromStruct(root))
		if hasDuplicate(all) {
			require.ErrorIs(t, err, ErrDuplicateKey)
			require.Nil(t, snap)
			return
		}
		require.NoError(t, err)
		require.Equal(t, len(all), snap.Len())

		snap.Walk(func(n *graph.Node) bool {
			if p, ok := n.Parent(); ok {
				parent, ok := snap.GetNode(p)
				require.True(t, ok, "parent %q of %q missing", p, n.Key)
				assert.Equal(t, 1, countOf(parent.ChildKeys, n.Key), "linkage of %q", n.Key)
				assert.Equal(t, parent.Depth+1, n.Depth)
			} else {
				assert.Equal(t, 0, n.Depth)
			}
			for _, f := range []string{"color", "label"} {
				hits := snap.Search(f, n.Fields[f], index.Exact)
				assert.Contains(t, hits, n.Key, "search %s=%q", f, n.Fields[f])
			}
			return true
		})

		again, err := e.Build(record.FromStruct(root))
		require.NoError(t, err)
		assert.Equal(t, flatten(snap), flatten(again))
		for _, c := range []string{"red", "blue", "green", ""} {
			assert.Equal(t, snap.Search("color", c, index.Exact), again.Search("color", c, index.Exact))
		}
	})
}

func countOf(xs []string, x string) int {
	n := 0
	for i := range xs {
		if xs[i] == x {
			n++
		}
	}
	return n
}

func TestEngine_ChildOrderFollowsSource(t *testing.T) {
	e := propertyEngine(t)

	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 8).Draw(t, "n")
		names := rapid.SliceOfNDistinct(rapid.StringMatching(`[a-z]{1,6}`), n, n, rapid.ID[string]).Draw(t, "names")
		root := &pnode{Label: "ROOT"}
		for _, name := range names {
			root.Kids = append(root.Kids, &pnode{Label: name})
		}

		snap, err := e.Build(record.FromStruct(root))
		require.NoError(t, err)
		r, _ := snap.GetNode("ROOT")
		if len(names) == 0 {
			assert.Empty(t, r.ChildKeys)
			return
		}
		assert.True(t, slices.Equal(names, r.ChildKeys))
	})
}
