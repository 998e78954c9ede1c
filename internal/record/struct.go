package record

import (
	"fmt"
	"reflect"
	"strings"
)

// TagName is the struct tag that renames a field, e.g. `tree:"name"`.
// A tag of "-" hides the field.
const TagName = "tree"

// Typed lets a struct override the type tag derived from its Go type name.
type Typed interface {
	TreeType() string
}

type structRecord struct {
	v   reflect.Value // struct value, never a pointer
	ptr reflect.Value // addressable origin, invalid for value structs
}

// FromStruct wraps a struct or a non-nil pointer to a struct.
// It panics on any other kind.
func FromStruct(v any) Record {
	r, ok := wrap(reflect.ValueOf(v))
	if !ok {
		panic(fmt.Sprintf("record: FromStruct needs a struct or struct pointer, got %T", v))
	}
	return r
}

func wrap(v reflect.Value) (Record, bool) {
	for v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil, false
		}
		v = v.Elem()
	}
	if v.CanInterface() {
		if r, ok := v.Interface().(Record); ok {
			return r, true
		}
	}
	var ptr reflect.Value
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil, false
		}
		ptr = v
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil, false
	}
	return &structRecord{v: v, ptr: ptr}, true
}

func (s *structRecord) TypeTag() string {
	if t, ok := s.Value().(Typed); ok {
		return t.TreeType()
	}
	return s.v.Type().Name()
}

func (s *structRecord) Field(name string) (string, bool) {
	f, ok := s.lookup(name)
	if !ok {
		return "", false
	}
	return format(f), true
}

func (s *structRecord) Children(relation string) ([]Record, error) {
	f, ok := s.lookup(relation)
	if !ok {
		return nil, nil
	}
	switch f.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]Record, 0, f.Len())
		for i := 0; i < f.Len(); i++ {
			r, ok := wrap(f.Index(i))
			if !ok {
				if isNil(f.Index(i)) {
					continue
				}
				return nil, fmt.Errorf("relation %s[%d]: %s is not a struct", relation, i, f.Index(i).Type())
			}
			out = append(out, r)
		}
		return out, nil
	default:
		r, ok := wrap(f)
		if !ok {
			if isNil(f) {
				return nil, nil
			}
			return nil, fmt.Errorf("relation %s: %s is not a struct or collection", relation, f.Type())
		}
		return []Record{r}, nil
	}
}

func (s *structRecord) Value() any {
	if s.ptr.IsValid() {
		return s.ptr.Interface()
	}
	return s.v.Interface()
}

// Identity is the address of the struct: the pointer it was reached through,
// or its own address when it lives in addressable memory such as a slice
// element. A struct copied by value has none.
func (s *structRecord) Identity() any {
	switch {
	case s.ptr.IsValid():
		return identity{t: s.ptr.Type(), p: s.ptr.Pointer()}
	case s.v.CanAddr():
		a := s.v.Addr()
		return identity{t: a.Type(), p: a.Pointer()}
	default:
		return nil
	}
}

type identity struct {
	t reflect.Type
	p uintptr
}

func (s *structRecord) lookup(name string) (reflect.Value, bool) {
	if name == "" {
		return reflect.Value{}, false
	}
	t := s.v.Type()
	for i := 0; i < t.NumField(); i++ {
		if fieldName(t.Field(i)) == name {
			return s.v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

// Fields lists the field names a struct record exposes, in declaration order.
func Fields(v any) []string {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil
	}
	var out []string
	for i := 0; i < t.NumField(); i++ {
		if name := fieldName(t.Field(i)); name != "" {
			out = append(out, name)
		}
	}
	return out
}

func fieldName(sf reflect.StructField) string {
	if !sf.IsExported() {
		return ""
	}
	tag := sf.Tag.Get(TagName)
	if tag == "-" {
		return ""
	}
	if name, _, _ := strings.Cut(tag, ","); name != "" {
		return name
	}
	return sf.Name
}

func format(v reflect.Value) string {
	if isNil(v) {
		return ""
	}
	if v.CanInterface() {
		if s, ok := v.Interface().(fmt.Stringer); ok {
			return s.String()
		}
	}
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return ""
		}
		v = v.Elem()
	}
	if v.Kind() == reflect.String {
		return v.String()
	}
	return fmt.Sprint(v.Interface())
}

func isNil(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return v.IsNil()
	}
	return !v.IsValid()
}
