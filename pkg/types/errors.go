package types

import "errors"

// Schema-related errors
var (
	// ErrUnknownKind is returned when a kind code is outside 1..4
	ErrUnknownKind = errors.New("unknown kind")

	// ErrDuplicateColumn is returned when a schema names a column twice
	ErrDuplicateColumn = errors.New("duplicate column")

	// ErrSchemaLength is returned when names and kinds are not index-aligned
	ErrSchemaLength = errors.New("names and kinds differ in length")
)
