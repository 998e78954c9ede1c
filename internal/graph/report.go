package graph

import (
	"fmt"
	"strings"
	"time"
)

// Report is the advisory summary of a build.
type Report struct {
	ID       string   // unique per build
	Nodes    int      // nodes flattened
	Postings int      // (node, searchable field) entries indexed
	Values   int      // distinct (field, value) pairs
	Specs    []string // type tags consulted, in first-use order
	Elapsed  time.Duration
}

func (r Report) String() string {
	return fmt.Sprintf("snapshot %s: %d nodes, %d index entries (%d distinct values), specs [%s] in %v",
		r.ID, r.Nodes, r.Postings, r.Values, strings.Join(r.Specs, ", "), r.Elapsed)
}
