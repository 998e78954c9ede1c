package api

// Registry is the root of a declarative tree specification file.
// It lists every record type that can appear in a tree and names the root type.
type Registry struct {
	// Version of the flattree schema.
	Version string `hcl:"version,optional" json:"version,omitempty"`
	// Root is the record type of the tree's root record.
	Root string `hcl:"root,optional" json:"root,omitempty"`
	// Types declares one entry per record type.
	Types []Type `hcl:"type,block" json:"type,omitempty"`
}

// Type declares how one record type is flattened and indexed.
type Type struct {
	// Name is the type tag records of this type report.
	Name string `hcl:"name,label" json:"-"`
	// Fields lists every field the record type has. Empty means the type is open
	// and field names cannot be checked up front.
	Fields []string `hcl:"fields,optional" json:"fields,omitempty"`
	// Title names the field holding the display label.
	Title string `hcl:"title,optional" json:"title,omitempty"`
	// Key lists, in order, the fields whose values form the node key.
	Key []string `hcl:"key,optional" json:"key,omitempty"`
	// Searchable lists the fields added to the search index.
	Searchable []string `hcl:"searchable,optional" json:"searchable,omitempty"`
	// Children declares the child collections of this type.
	Children []Child `hcl:"child,block" json:"child,omitempty"`
}

// Child declares one child collection.
type Child struct {
	// Name of the relation. For struct records this is the field holding the children.
	Name string `hcl:"name,label" json:"-"`
	// Selector is a JSONPath evaluated against the parent record (e.g. "$.departments[*]").
	Selector string `hcl:"selector,optional" json:"selector,omitempty"`
	// Type is the record type of every child in the collection.
	Type string `hcl:"type,optional" json:"type,omitempty"`
	// TypeField names a field on each child whose value is that child's type.
	// It takes precedence over Type when present on the child.
	TypeField string `hcl:"type_field,optional" json:"type_field,omitempty"`
}
