package ingest

import (
	"fmt"

	"github.com/agentic-research/flattree/internal/graph"
	"github.com/agentic-research/flattree/internal/treespec"
	"github.com/go-git/go-billy/v5"
	"github.com/sirupsen/logrus"
)

// Source names a registry file and a data file on one filesystem.
type Source struct {
	FS       billy.Filesystem
	SpecPath string
	DataPath string
	// Root overrides the root type declared in the registry file.
	Root string
}

// Build loads the registry and data and flattens them into a snapshot.
func (s Source) Build(log logrus.FieldLogger) (*graph.Snapshot, error) {
	reg, declared, err := treespec.LoadFile(s.FS, s.SpecPath)
	if err != nil {
		return nil, err
	}
	root := s.Root
	if root == "" {
		root = declared
	}
	if root == "" {
		return nil, fmt.Errorf("spec %s declares no root type", s.SpecPath)
	}

	doc, err := LoadDocument(s.FS, s.DataPath)
	if err != nil {
		return nil, err
	}

	e := NewEngine(reg)
	if log != nil {
		e.Log = log
	}
	log = e.Log
	log.WithFields(logrus.Fields{"spec": s.SpecPath, "data": s.DataPath, "root": root}).Debug("loading source")
	return e.BuildDocument(doc, root)
}
