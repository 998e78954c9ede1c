package ingest

import (
	"errors"
	"io"
	"testing"

	"github.com/agentic-research/flattree/internal/graph"
	"github.com/agentic-research/flattree/internal/index"
	"github.com/agentic-research/flattree/internal/record"
	"github.com/agentic-research/flattree/internal/treespec"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Company struct {
	Name        string        `tree:"name"`
	Address     string        `tree:"address"`
	CEO         string        `tree:"ceo"`
	Departments []*Department `tree:"departments"`
}

type Department struct {
	Name    string   `tree:"name"`
	Manager string   `tree:"manager"`
	Groups  []*Group `tree:"groups"`
}

type Group struct {
	Name      string     `tree:"name"`
	Employees []Employee `tree:"employees"`
}

type Employee struct {
	ID    int    `tree:"id"`
	First string `tree:"first"`
	Last  string `tree:"last"`
	Email string `tree:"email"`
}

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func structRegistry(t testing.TB) *treespec.Registry {
	t.Helper()
	reg := treespec.NewRegistry()
	require.NoError(t, reg.RegisterStruct(treespec.Spec{
		Type:             "Company",
		TitleField:       "name",
		KeyFields:        []string{"name"},
		SearchableFields: []string{"address"},
		Children:         []treespec.Relation{{Name: "departments"}},
	}, Company{}))
	require.NoError(t, reg.RegisterStruct(treespec.Spec{
		Type:             "Department",
		TitleField:       "name",
		KeyFields:        []string{"name"},
		SearchableFields: []string{"manager"},
		Children:         []treespec.Relation{{Name: "groups"}},
	}, Department{}))
	require.NoError(t, reg.RegisterStruct(treespec.Spec{
		Type:       "Group",
		TitleField: "name",
		KeyFields:  []string{"name"},
		Children:   []treespec.Relation{{Name: "employees"}},
	}, Group{}))
	require.NoError(t, reg.RegisterStruct(treespec.Spec{
		Type:             "Employee",
		TitleField:       "last",
		KeyFields:        []string{"id", "last"},
		SearchableFields: []string{"first", "last", "email"},
	}, Employee{}))
	return reg
}

func newEngine(reg *treespec.Registry) *Engine {
	e := NewEngine(reg)
	e.Log = quietLogger()
	return e
}

func TestEngine_TwoLevelScenario(t *testing.T) {
	acme := &Company{
		Name:        "Acme",
		Address:     "1 Main St",
		Departments: []*Department{{Name: "Eng", Manager: "Bo"}},
	}

	snap, err := newEngine(structRegistry(t)).Build(record.FromStruct(acme))
	require.NoError(t, err)

	assert.Equal(t, 2, snap.Len())
	root, ok := snap.GetNode("Acme")
	require.True(t, ok)
	assert.Equal(t, []string{"Eng"}, root.ChildKeys)
	assert.Equal(t, "Acme", root.Title)
	assert.Equal(t, "Company", root.Type)
	assert.Same(t, acme, root.Data)
	assert.Equal(t, 0, root.Depth)

	eng, ok := snap.GetNode("Eng")
	require.True(t, ok)
	assert.Equal(t, 1, eng.Depth)
	p, _ := eng.Parent()
	assert.Equal(t, "Acme", p)
	assert.Empty(t, eng.ChildKeys, "no groups means no children, not an error")

	assert.Equal(t, []string{"Acme"}, snap.Search("address", "1 main st", index.Exact))
	assert.Equal(t, []string{"Eng"}, snap.Search("manager", "bo", index.Exact))
}

func TestEngine_DuplicateSiblingKeys(t *testing.T) {
	root := &Company{
		Name:        "Acme",
		Departments: []*Department{{Name: "X"}, {Name: "X"}},
	}

	snap, err := newEngine(structRegistry(t)).Build(record.FromStruct(root))
	require.Error(t, err)
	assert.Nil(t, snap, "no snapshot on failure")
	assert.ErrorIs(t, err, ErrDuplicateKey)

	var fe *FlattenError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "X", fe.Key)
	assert.Equal(t, "Department", fe.Type)
}

func TestEngine_DuplicateAcrossLevels(t *testing.T) {
	root := &Company{
		Name:        "Same",
		Departments: []*Department{{Name: "Same"}},
	}
	_, err := newEngine(structRegistry(t)).Build(record.FromStruct(root))
	assert.ErrorIs(t, err, ErrDuplicateKey)
}

func TestEngine_CompositeKeysAndDeepTree(t *testing.T) {
	root := &Company{
		Name: "Acme",
		Departments: []*Department{
			{Name: "Eng", Groups: []*Group{
				{Name: "Platform", Employees: []Employee{
					{ID: 1, First: "Ada", Last: "Lovelace", Email: "ada@acme.io"},
					{ID: 2, First: "Alan", Last: "Turing", Email: "alan@acme.io"},
				}},
			}},
			{Name: "Ops"},
		},
	}

	snap, err := newEngine(structRegistry(t)).Build(record.FromStruct(root))
	require.NoError(t, err)
	assert.Equal(t, 6, snap.Len())

	ada, ok := snap.GetNode("1|Lovelace")
	require.True(t, ok)
	assert.Equal(t, "Lovelace", ada.Title)
	assert.Equal(t, 3, ada.Depth)
	assert.Equal(t, "ada@acme.io", ada.Fields["email"])

	anc := snap.Ancestors("1|Lovelace")
	require.Len(t, anc, 3)
	assert.Equal(t, "Platform", anc[0].Key)
	assert.Equal(t, "Eng", anc[1].Key)
	assert.Equal(t, "Acme", anc[2].Key)

	kids := snap.Children("Platform")
	require.Len(t, kids, 2)
	assert.Equal(t, "1|Lovelace", kids[0].Key)
	assert.Equal(t, "2|Turing", kids[1].Key)

	assert.Equal(t, []string{"1|Lovelace", "2|Turing"}, snap.Search("email", "@acme", index.Substring))
	assert.Empty(t, snap.Search("ceo", "", index.Substring), "ceo is not searchable")

	r := snap.Report()
	assert.Equal(t, 6, r.Nodes)
	assert.Equal(t, []string{"Company", "Department", "Group", "Employee"}, r.Specs)
	assert.Equal(t, 1+2+3*2, r.Postings)
	assert.NotEmpty(t, r.ID)
}

type dir struct {
	Name string `tree:"name"`
	Subs []*dir `tree:"subs"`
}

func TestEngine_CycleDetected(t *testing.T) {
	reg := treespec.NewRegistry()
	require.NoError(t, reg.RegisterStruct(treespec.Spec{
		TitleField: "name",
		KeyFields:  []string{"name"},
		Children:   []treespec.Relation{{Name: "subs"}},
	}, dir{}))

	a := &dir{Name: "a"}
	b := &dir{Name: "b", Subs: []*dir{a}}
	a.Subs = []*dir{b}

	_, err := newEngine(reg).Build(record.FromStruct(a))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCycleDetected)

	var fe *FlattenError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "a", fe.Key)
}

type vdir struct {
	Name string `tree:"name"`
	Subs []vdir `tree:"subs"`
}

func TestEngine_CycleThroughValueSlice(t *testing.T) {
	reg := treespec.NewRegistry()
	require.NoError(t, reg.RegisterStruct(treespec.Spec{
		TitleField: "name",
		KeyFields:  []string{"name"},
		Children:   []treespec.Relation{{Name: "subs"}},
	}, vdir{}))

	a := []vdir{{Name: "a"}}
	a[0].Subs = a

	_, err := newEngine(reg).Build(record.FromStruct(&a[0]))
	assert.ErrorIs(t, err, ErrCycleDetected)
}

func TestEngine_SharedSubtreeIsDuplicateNotCycle(t *testing.T) {
	reg := treespec.NewRegistry()
	require.NoError(t, reg.RegisterStruct(treespec.Spec{
		TitleField: "name",
		KeyFields:  []string{"name"},
		Children:   []treespec.Relation{{Name: "subs"}},
	}, dir{}))

	shared := &dir{Name: "shared"}
	root := &dir{Name: "root", Subs: []*dir{{Name: "x", Subs: []*dir{shared}}, {Name: "y", Subs: []*dir{shared}}}}

	_, err := newEngine(reg).Build(record.FromStruct(root))
	assert.ErrorIs(t, err, ErrDuplicateKey)
}

func TestEngine_UnknownTypeFailsBeforeTraversal(t *testing.T) {
	reg := treespec.NewRegistry()
	_, err := newEngine(reg).Build(record.FromStruct(&Company{Name: "Acme"}))
	assert.ErrorIs(t, err, treespec.ErrUnknownType)
}

func TestEngine_UnregisteredChildType(t *testing.T) {
	reg := treespec.NewRegistry()
	require.NoError(t, reg.RegisterStruct(treespec.Spec{
		Type:       "Company",
		TitleField: "name",
		KeyFields:  []string{"name"},
		Children:   []treespec.Relation{{Name: "departments"}},
	}, Company{}))

	root := &Company{Name: "Acme", Departments: []*Department{{Name: "Eng"}}}
	_, err := newEngine(reg).Build(record.FromStruct(root))

	var ce *treespec.ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "Department", ce.Type)
}

func TestEngine_Deterministic(t *testing.T) {
	root := &Company{
		Name:    "Acme",
		Address: "1 Main St",
		Departments: []*Department{
			{Name: "Eng", Manager: "Bo"},
			{Name: "Ops", Manager: "Bob"},
		},
	}
	e := newEngine(structRegistry(t))
	a, err := e.Build(record.FromStruct(root))
	require.NoError(t, err)
	b, err := e.Build(record.FromStruct(root))
	require.NoError(t, err)

	assert.Equal(t, flatten(a), flatten(b))
	assert.Equal(t, a.Search("manager", "bo", index.Substring), b.Search("manager", "bo", index.Substring))
	assert.NotEqual(t, a.Report().ID, b.Report().ID)
}

// flatten lists key, parent and children of each node in walk order.
func flatten(s *graph.Snapshot) [][]string {
	var out [][]string
	s.Walk(func(n *graph.Node) bool {
		p, _ := n.Parent()
		out = append(out, append([]string{n.Key, p}, n.ChildKeys...))
		return true
	})
	return out
}

func TestEngine_Insert(t *testing.T) {
	root := &Company{
		Name:        "Acme",
		Departments: []*Department{{Name: "Eng", Manager: "Bo"}},
	}
	e := newEngine(structRegistry(t))
	base, err := e.Build(record.FromStruct(root))
	require.NoError(t, err)

	next, err := e.Insert(base, "Acme", record.FromStruct(&Department{
		Name:    "Ops",
		Manager: "Bob",
		Groups:  []*Group{{Name: "Oncall"}},
	}))
	require.NoError(t, err)

	acme, _ := next.GetNode("Acme")
	assert.Equal(t, []string{"Eng", "Ops"}, acme.ChildKeys)
	oncall, ok := next.GetNode("Oncall")
	require.True(t, ok)
	assert.Equal(t, 2, oncall.Depth)
	assert.Equal(t, []string{"Eng", "Ops"}, next.Search("manager", "bo", index.Substring))
	assert.Equal(t, 4, next.Report().Nodes)

	// The published snapshot is untouched.
	acme, _ = base.GetNode("Acme")
	assert.Equal(t, []string{"Eng"}, acme.ChildKeys)
	_, ok = base.GetNode("Ops")
	assert.False(t, ok)
	assert.Equal(t, []string{"Eng"}, base.Search("manager", "bo", index.Substring))
}

func TestEngine_InsertErrors(t *testing.T) {
	root := &Company{Name: "Acme", Departments: []*Department{{Name: "Eng"}}}
	e := newEngine(structRegistry(t))
	base, err := e.Build(record.FromStruct(root))
	require.NoError(t, err)

	_, err = e.Insert(base, "Nope", record.FromStruct(&Department{Name: "Ops"}))
	assert.ErrorIs(t, err, ErrParentNotFound)

	_, err = e.Insert(base, "Acme", record.FromStruct(&Department{Name: "Eng"}))
	assert.ErrorIs(t, err, ErrDuplicateKey)

	// A failed insert leaves the base snapshot usable and unchanged.
	assert.Equal(t, 2, base.Len())
	acme, _ := base.GetNode("Acme")
	assert.Equal(t, []string{"Eng"}, acme.ChildKeys)
}
