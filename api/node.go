package api

// Node is the wire form of a flattened node served by the query surfaces.
type Node struct {
	Key      string            `json:"key"`
	Title    string            `json:"title"`
	Type     string            `json:"type"`
	Parent   *string           `json:"parent"`
	Children []string          `json:"children"`
	Depth    int               `json:"depth"`
	Fields   map[string]string `json:"fields,omitempty"`
}

// SearchResult lists the keys matching one query, in the order nodes were flattened.
type SearchResult struct {
	Field string   `json:"field"`
	Query string   `json:"query"`
	Mode  string   `json:"mode"`
	Keys  []string `json:"keys"`
}

// Health reports the published snapshot.
type Health struct {
	Status   string `json:"status"`
	Snapshot string `json:"snapshot,omitempty"`
	Nodes    int    `json:"nodes"`
}
