package ingest

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateKey   = errors.New("duplicate key")
	ErrCycleDetected  = errors.New("cycle detected")
	ErrParentNotFound = errors.New("parent not found")
)

// FlattenError aborts a build. Key is the offending node key and Type the
// record type that produced it.
type FlattenError struct {
	Key  string
	Type string
	Err  error
}

func (e *FlattenError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("flatten %q: %v", e.Key, e.Err)
	}
	return fmt.Sprintf("flatten %s %q: %v", e.Type, e.Key, e.Err)
}

func (e *FlattenError) Unwrap() error { return e.Err }
