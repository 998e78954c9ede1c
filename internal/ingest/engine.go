package ingest

import (
	"fmt"
	"time"

	"github.com/agentic-research/flattree/internal/graph"
	"github.com/agentic-research/flattree/internal/index"
	"github.com/agentic-research/flattree/internal/keys"
	"github.com/agentic-research/flattree/internal/record"
	"github.com/agentic-research/flattree/internal/treespec"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Engine flattens record trees into snapshots.
type Engine struct {
	Registry *treespec.Registry
	Log      logrus.FieldLogger
}

func NewEngine(reg *treespec.Registry) *Engine {
	return &Engine{
		Registry: reg,
		Log:      logrus.StandardLogger(),
	}
}

// Build flattens the tree under root and indexes it. It either returns a
// complete snapshot or an error; partial results are dropped.
func (e *Engine) Build(root record.Record) (*graph.Snapshot, error) {
	start := time.Now()
	if err := e.Registry.Validate(root.TypeTag()); err != nil {
		return nil, err
	}

	b := e.newBuilder(graph.NewTable())
	if _, err := b.flatten(root, nil, 0); err != nil {
		e.Log.WithError(err).Warn("build aborted")
		return nil, err
	}

	idx := index.Build(b.table.Keys(), b.postings)
	snap := b.table.Freeze(idx, e.report(b.table.Len(), idx, b.specs, start))
	e.logReport(snap.Report())
	return snap, nil
}

// BuildDocument flattens decoded JSON-like data whose root has type rootType.
func (e *Engine) BuildDocument(doc any, rootType string) (*graph.Snapshot, error) {
	return e.Build(NewJSONRecord(e.Registry, rootType, doc))
}

// Insert flattens r as the last child of parentKey and returns a new
// snapshot. snap is left untouched and stays valid for its readers.
func (e *Engine) Insert(snap *graph.Snapshot, parentKey string, r record.Record) (*graph.Snapshot, error) {
	start := time.Now()
	if err := e.Registry.Validate(r.TypeTag()); err != nil {
		return nil, err
	}
	parent, ok := snap.GetNode(parentKey)
	if !ok {
		return nil, &FlattenError{Key: parentKey, Err: ErrParentNotFound}
	}

	b := e.newBuilder(snap.Fork())
	pk := parent.Key
	key, err := b.flatten(r, &pk, parent.Depth+1)
	if err != nil {
		e.Log.WithError(err).Warn("insert aborted")
		return nil, err
	}
	p, _ := b.table.Mutable(parentKey)
	p.ChildKeys = append(p.ChildKeys, key)

	idx := snap.Index().Extend(b.added, b.postings)
	next := b.table.Freeze(idx, e.report(snap.Len()+len(b.added), idx, b.specs, start))
	e.logReport(next.Report())
	return next, nil
}

func (e *Engine) report(nodes int, idx *index.Index, specs []string, start time.Time) graph.Report {
	st := idx.Stats()
	return graph.Report{
		ID:       uuid.NewString(),
		Nodes:    nodes,
		Postings: st.Postings,
		Values:   st.Values,
		Specs:    specs,
		Elapsed:  time.Since(start),
	}
}

func (e *Engine) logReport(r graph.Report) {
	e.Log.WithFields(logrus.Fields{
		"snapshot": r.ID,
		"nodes":    r.Nodes,
		"postings": r.Postings,
		"values":   r.Values,
		"specs":    r.Specs,
		"elapsed":  r.Elapsed,
	}).Info("snapshot built")
}

// builder holds the state of one flatten pass.
type builder struct {
	reg      *treespec.Registry
	log      logrus.FieldLogger
	table    *graph.Table
	postings []index.Posting
	added    []string
	specs    []string
	consumed map[string]bool
	path     map[any]bool // identities of records on the current descent
}

func (e *Engine) newBuilder(t *graph.Table) *builder {
	return &builder{
		reg:      e.Registry,
		log:      e.Log,
		table:    t,
		consumed: make(map[string]bool),
		path:     make(map[any]bool),
	}
}

func (b *builder) flatten(r record.Record, parent *string, depth int) (string, error) {
	tag := r.TypeTag()
	spec, ok := b.reg.Lookup(tag)
	if !ok {
		return "", &treespec.ConfigError{Type: tag, Err: treespec.ErrUnknownType}
	}
	if !b.consumed[tag] {
		b.consumed[tag] = true
		b.specs = append(b.specs, tag)
	}

	fields := make(map[string]string, 1+len(spec.KeyFields)+len(spec.SearchableFields))
	title, _ := r.Field(spec.TitleField)
	fields[spec.TitleField] = title

	keyValues := make([]string, len(spec.KeyFields))
	for i, f := range spec.KeyFields {
		keyValues[i], _ = r.Field(f)
		fields[f] = keyValues[i]
	}
	key := keys.Derive(keyValues...)

	id := record.IdentityOf(r)
	if id != nil && b.path[id] {
		return "", &FlattenError{Key: key, Type: tag, Err: ErrCycleDetected}
	}
	if b.table.Has(key) {
		return "", &FlattenError{Key: key, Type: tag, Err: ErrDuplicateKey}
	}

	node := &graph.Node{
		Key:       key,
		Title:     title,
		Type:      tag,
		Fields:    fields,
		Data:      r.Value(),
		ParentKey: parent,
		Depth:     depth,
	}
	b.table.Add(node)
	b.added = append(b.added, key)

	for _, f := range spec.SearchableFields {
		v, ok := r.Field(f)
		if !ok {
			continue
		}
		fields[f] = v
		b.postings = append(b.postings, index.Posting{Key: key, Field: f, Value: v})
	}
	b.log.WithFields(logrus.Fields{"key": key, "type": tag, "depth": depth}).Debug("flattened node")

	if id != nil {
		b.path[id] = true
		defer delete(b.path, id)
	}
	self := key
	for _, rel := range spec.Children {
		kids, err := r.Children(rel.Name)
		if err != nil {
			return "", fmt.Errorf("%s %q: relation %s: %w", tag, key, rel.Name, err)
		}
		for _, kid := range kids {
			childKey, err := b.flatten(kid, &self, depth+1)
			if err != nil {
				return "", err
			}
			node.ChildKeys = append(node.ChildKeys, childKey)
		}
	}
	return key, nil
}
