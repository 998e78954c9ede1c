package treespec

import (
	"errors"
	"fmt"
)

var (
	ErrMissingTitle   = errors.New("missing title field")
	ErrEmptyKeyFields = errors.New("empty key fields")
	ErrUnknownField   = errors.New("unknown field")
	ErrUnknownType    = errors.New("unknown record type")
	ErrDuplicateType  = errors.New("record type registered twice")
)

// ConfigError reports an invalid TreeSpec. Err is one of the sentinels above.
type ConfigError struct {
	Type  string
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("treespec %s: %v: %s", e.Type, e.Err, e.Field)
	}
	return fmt.Sprintf("treespec %s: %v", e.Type, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }
