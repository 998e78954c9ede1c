// Package record defines the uniform view the flattener has of a record,
// whatever concrete type backs it.
package record

// Record is one node of a heterogeneous tree.
type Record interface {
	// TypeTag names the record type. It selects the TreeSpec for the record.
	TypeTag() string
	// Field returns the stringified value of a field and whether the record has it.
	Field(name string) (string, bool)
	// Children returns the records of a child collection in source order.
	// An absent collection returns nil.
	Children(relation string) ([]Record, error)
	// Value returns the application value backing the record.
	Value() any
}

// Identifier is implemented by records that can tell whether two records are
// the same object. Identity must be comparable. A nil identity opts out of
// cycle detection.
type Identifier interface {
	Identity() any
}

// IdentityOf returns r's identity, or nil when r has none.
func IdentityOf(r Record) any {
	if id, ok := r.(Identifier); ok {
		return id.Identity()
	}
	return nil
}
