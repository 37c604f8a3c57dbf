package domain

import (
	"errors"
	"fmt"
)

// ErrEmptyInput indicates the graph ended up with zero nodes, which makes a
// detection run meaningless. It is the only data-quality condition treated as
// fatal; individual bad records are skipped and counted instead.
var ErrEmptyInput = errors.New("no usable transactions in input")

// SchemaError describes a single record that failed validation. Records
// carrying one are skipped, never propagated into the search.
type SchemaError struct {
	Record string // transaction ID, or line reference when no ID parsed
	Field  string
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Record == "" {
		return fmt.Sprintf("invalid record: field %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid record %s: field %s: %s", e.Record, e.Field, e.Reason)
}

// IsSchemaError reports whether err is (or wraps) a SchemaError.
func IsSchemaError(err error) bool {
	var schemaErr *SchemaError
	return errors.As(err, &schemaErr)
}
