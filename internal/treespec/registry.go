// Package treespec holds the per-type declarations that drive flattening:
// which field is the title, which fields form the key, which are searchable,
// and which child collections to descend into.
package treespec

import (
	"fmt"
	"slices"
	"sync"

	"github.com/agentic-research/flattree/internal/record"
)

// Relation declares one child collection of a record type.
type Relation struct {
	// Name of the collection. Struct records resolve it as a field name.
	Name string
	// Selector is a JSONPath relative to the parent, used by JSON records.
	Selector string
	// Type is the record type of the children, when fixed.
	Type string
	// TypeField names the child field carrying the child's type.
	TypeField string
}

// Spec is the TreeSpec of one record type.
type Spec struct {
	Type             string
	TitleField       string
	KeyFields        []string
	SearchableFields []string
	Children         []Relation
}

// Registry maps type tags to validated specs. Register everything once at
// start-up; after that the registry is only read.
type Registry struct {
	mu     sync.RWMutex
	specs  map[string]*Spec
	fields map[string][]string // nil = open type
	order  []string
}

func NewRegistry() *Registry {
	return &Registry{
		specs:  make(map[string]*Spec),
		fields: make(map[string][]string),
	}
}

// Register validates spec against fields and stores a private copy.
// A nil fields list marks the type as open: field names are not checked.
func (r *Registry) Register(spec Spec, fields []string) error {
	if err := check(spec, fields); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.specs[spec.Type]; ok {
		return &ConfigError{Type: spec.Type, Err: ErrDuplicateType}
	}
	cp := spec
	cp.KeyFields = slices.Clone(spec.KeyFields)
	cp.SearchableFields = slices.Clone(spec.SearchableFields)
	cp.Children = slices.Clone(spec.Children)
	r.specs[spec.Type] = &cp
	r.fields[spec.Type] = slices.Clone(fields)
	r.order = append(r.order, spec.Type)
	return nil
}

// RegisterStruct registers spec for a Go struct type, taking the field list
// from sample. An empty spec.Type defaults to the struct's type tag.
func (r *Registry) RegisterStruct(spec Spec, sample any) error {
	if spec.Type == "" {
		spec.Type = record.FromStruct(sample).TypeTag()
	}
	fields := record.Fields(sample)
	if fields == nil {
		fields = []string{}
	}
	return r.Register(spec, fields)
}

// MustRegisterStruct is RegisterStruct for package-level setup; it panics on error.
func (r *Registry) MustRegisterStruct(spec Spec, sample any) {
	if err := r.RegisterStruct(spec, sample); err != nil {
		panic(err)
	}
}

// Lookup returns the spec for a type tag. The returned spec is shared and
// must not be modified.
func (r *Registry) Lookup(typeTag string) (*Spec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.specs[typeTag]
	return s, ok
}

// Types lists registered type tags in registration order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}

// Validate checks that root and every type reachable from it through
// relations with a fixed Type are registered. Types chosen per child through
// TypeField can only be checked while flattening.
func (r *Registry) Validate(root string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	queue := []string{root}
	for len(queue) > 0 {
		t := queue[0]
		queue = queue[1:]
		if seen[t] {
			continue
		}
		seen[t] = true
		spec, ok := r.specs[t]
		if !ok {
			return &ConfigError{Type: t, Err: ErrUnknownType}
		}
		for _, rel := range spec.Children {
			if rel.Type != "" {
				queue = append(queue, rel.Type)
			}
		}
	}
	return nil
}

func check(spec Spec, fields []string) error {
	if spec.Type == "" {
		return &ConfigError{Err: fmt.Errorf("%w: empty type name", ErrUnknownType)}
	}
	if spec.TitleField == "" {
		return &ConfigError{Type: spec.Type, Err: ErrMissingTitle}
	}
	if len(spec.KeyFields) == 0 {
		return &ConfigError{Type: spec.Type, Err: ErrEmptyKeyFields}
	}
	if fields == nil {
		return nil
	}

	known := func(name string) error {
		if !slices.Contains(fields, name) {
			return &ConfigError{Type: spec.Type, Field: name, Err: ErrUnknownField}
		}
		return nil
	}
	if err := known(spec.TitleField); err != nil {
		return err
	}
	for _, f := range spec.KeyFields {
		if err := known(f); err != nil {
			return err
		}
	}
	for _, f := range spec.SearchableFields {
		if err := known(f); err != nil {
			return err
		}
	}
	for _, rel := range spec.Children {
		// Selector relations are resolved against the data, not a field.
		if rel.Selector != "" {
			continue
		}
		if err := known(rel.Name); err != nil {
			return err
		}
	}
	return nil
}
