package frame

import (
	"fmt"

	ferrors "github.com/framekit/framekit/internal/errors"
	"github.com/framekit/framekit/pkg/types"
)

// Builder accumulates rows for a new Frame. A Builder is not safe for
// concurrent use. Once Build has been called the Builder must not be reused.
type Builder struct {
	schema types.Schema
	rows   [][]types.Value
	built  bool
}

// NewBuilder creates a builder for frames with the given schema. The schema
// must declare known kinds and unique column names.
func NewBuilder(schema types.Schema) (*Builder, error) {
	if err := schema.Validate(); err != nil {
		return nil, schemaError(err)
	}
	return &Builder{schema: schema.Clone()}, nil
}

// Grow preallocates room for n more rows.
func (b *Builder) Grow(n int) {
	if n <= 0 {
		return
	}
	rows := make([][]types.Value, len(b.rows), len(b.rows)+n)
	copy(rows, b.rows)
	b.rows = rows
}

// Append adds a row. The row is copied; it must be shape-compatible with the
// builder's schema.
func (b *Builder) Append(row []types.Value) error {
	if b.built {
		return ferrors.NewInternalError("append after build", nil)
	}
	if err := checkRow(b.schema, row); err != nil {
		return ferrors.Wrap(ferrors.ErrCategorySchema, ferrors.CodeShapeMismatch,
			fmt.Sprintf("row %d", len(b.rows)), err)
	}
	cp := make([]types.Value, len(row))
	copy(cp, row)
	b.rows = append(b.rows, cp)
	return nil
}

// Len returns the number of rows appended so far.
func (b *Builder) Len() int {
	return len(b.rows)
}

// Build returns the accumulated frame.
func (b *Builder) Build() *Frame {
	b.built = true
	return &Frame{schema: b.schema, rows: b.rows}
}

// FromRows builds a frame from a schema and rows in one step.
func FromRows(schema types.Schema, rows [][]types.Value) (*Frame, error) {
	b, err := NewBuilder(schema)
	if err != nil {
		return nil, err
	}
	b.Grow(len(rows))
	for _, row := range rows {
		if err := b.Append(row); err != nil {
			return nil, err
		}
	}
	return b.Build(), nil
}
