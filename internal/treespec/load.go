package treespec

import (
	"fmt"

	"github.com/agentic-research/flattree/api"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/hashicorp/hcl/v2/hclsimple"
)

// LoadFile reads a registry declaration (.hcl or .json) from fsys and returns
// the populated registry along with the declared root type.
func LoadFile(fsys billy.Filesystem, path string) (*Registry, string, error) {
	src, err := util.ReadFile(fsys, path)
	if err != nil {
		return nil, "", fmt.Errorf("read spec %s: %w", path, err)
	}
	return Decode(path, src)
}

// Decode parses src, choosing the syntax from filename's extension.
func Decode(filename string, src []byte) (*Registry, string, error) {
	var decl api.Registry
	if err := hclsimple.Decode(filename, src, nil, &decl); err != nil {
		return nil, "", fmt.Errorf("decode spec %s: %w", filename, err)
	}
	reg, err := FromAPI(&decl)
	if err != nil {
		return nil, "", err
	}
	return reg, decl.Root, nil
}

// FromAPI registers every declared type. Types without a fields list are open.
func FromAPI(decl *api.Registry) (*Registry, error) {
	reg := NewRegistry()
	for _, t := range decl.Types {
		spec := Spec{
			Type:             t.Name,
			TitleField:       t.Title,
			KeyFields:        t.Key,
			SearchableFields: t.Searchable,
		}
		for _, c := range t.Children {
			spec.Children = append(spec.Children, Relation{
				Name:      c.Name,
				Selector:  c.Selector,
				Type:      c.Type,
				TypeField: c.TypeField,
			})
		}
		if err := reg.Register(spec, t.Fields); err != nil {
			return nil, err
		}
	}
	if decl.Root != "" {
		if err := reg.Validate(decl.Root); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
