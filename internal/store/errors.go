package store

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingTable is returned when a table file is absent from an
	// initialized workspace.
	ErrMissingTable = errors.New("missing table file")

	// ErrNotFound is returned when no row carries the requested id.
	ErrNotFound = errors.New("record not found")

	// ErrIndexOutOfRange is returned for a proposition position outside the table.
	ErrIndexOutOfRange = errors.New("proposition index out of range")

	// ErrReadOnly is returned when a View transaction attempts a mutation.
	ErrReadOnly = errors.New("read-only transaction")

	// ErrUnknownField is returned for a column that is not part of the table
	// or may not be set directly.
	ErrUnknownField = errors.New("unknown field")
)

// SchemaError reports a table file that does not match its schema.
type SchemaError struct {
	File   string
	Line   int
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Reason)
}

// IntegrityError reports a violated cross-table invariant.
type IntegrityError struct {
	Table  Table
	Reason string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity violation in %s: %s", e.Table, e.Reason)
}

// IsSchemaError reports whether err is or wraps a *SchemaError.
func IsSchemaError(err error) bool {
	var se *SchemaError
	return errors.As(err, &se)
}

// IsIntegrityError reports whether err is or wraps an *IntegrityError.
func IsIntegrityError(err error) bool {
	var ie *IntegrityError
	return errors.As(err, &ie)
}
