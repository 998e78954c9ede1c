package ingest

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/agentic-research/flattree/internal/record"
	"github.com/agentic-research/flattree/internal/treespec"
	"github.com/ohler55/ojg/oj"
)

// jsonRecord adapts decoded JSON-like data (maps, slices, scalars) to
// record.Record. Its type comes from the relation that reached it.
type jsonRecord struct {
	reg     *treespec.Registry
	walker  Walker
	typeTag string
	value   any
}

// NewJSONRecord wraps doc as a record of type typeTag. Child relations are
// resolved through their JSONPath selectors, or by field name when a
// relation has none.
func NewJSONRecord(reg *treespec.Registry, typeTag string, doc any) record.Record {
	return &jsonRecord{reg: reg, walker: NewJsonWalker(), typeTag: typeTag, value: doc}
}

func (j *jsonRecord) TypeTag() string { return j.typeTag }

func (j *jsonRecord) Value() any { return j.value }

// Field looks name up on an object. Names starting with "$" are JSONPath
// expressions and take the first match. A scalar record exposes itself as
// "value".
func (j *jsonRecord) Field(name string) (string, bool) {
	if strings.HasPrefix(name, "$") {
		res, err := j.walker.Query(j.value, name)
		if err != nil || len(res) == 0 {
			return "", false
		}
		return Stringify(res[0]), true
	}
	m, ok := j.value.(map[string]any)
	if !ok {
		if name == "value" {
			return Stringify(j.value), true
		}
		return "", false
	}
	v, ok := m[name]
	if !ok {
		return "", false
	}
	return Stringify(v), true
}

func (j *jsonRecord) Children(relation string) ([]record.Record, error) {
	spec, ok := j.reg.Lookup(j.typeTag)
	if !ok {
		return nil, nil
	}
	var rel *treespec.Relation
	for i := range spec.Children {
		if spec.Children[i].Name == relation {
			rel = &spec.Children[i]
			break
		}
	}
	if rel == nil {
		return nil, nil
	}

	var matches []any
	if rel.Selector != "" {
		res, err := j.walker.Query(j.value, rel.Selector)
		if err != nil {
			return nil, err
		}
		matches = res
	} else if m, ok := j.value.(map[string]any); ok {
		switch v := m[rel.Name].(type) {
		case nil:
		case []any:
			matches = v
		default:
			matches = []any{v}
		}
	}

	out := make([]record.Record, 0, len(matches))
	for _, v := range matches {
		if v == nil {
			continue
		}
		out = append(out, &jsonRecord{
			reg:     j.reg,
			walker:  j.walker,
			typeTag: childType(rel, v),
			value:   v,
		})
	}
	return out, nil
}

// childType reads the relation's TypeField from the child, falling back to
// the relation's fixed Type. The result is only known per child, so an
// unregistered discriminator value fails the build when it is reached.
func childType(rel *treespec.Relation, v any) string {
	if rel.TypeField != "" {
		if m, ok := v.(map[string]any); ok {
			if t, ok := m[rel.TypeField].(string); ok && t != "" {
				return t
			}
		}
	}
	return rel.Type
}

// Stringify renders a decoded value the way it is keyed and indexed.
// Objects and arrays become compact JSON with sorted keys.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	case map[string]any, []any:
		return oj.JSON(t, &oj.Options{Sort: true})
	default:
		return fmt.Sprint(t)
	}
}
