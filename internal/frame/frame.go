// Package frame provides the in-memory typed table and the operations over it.
//
// A Frame is a schema plus an ordered sequence of rows. Every row has exactly
// one cell per column and each cell's kind matches its column's declared kind.
// Frames have no exported mutators: they are produced by a Builder or by the
// algebra functions in this package, which always return a new Frame and leave
// their inputs untouched.
package frame

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"

	ferrors "github.com/framekit/framekit/internal/errors"
	"github.com/framekit/framekit/pkg/types"
	"github.com/spaolacci/murmur3"
)

// Frame is an immutable in-memory table.
type Frame struct {
	schema types.Schema
	rows   [][]types.Value
}

// New returns the empty frame: zero columns, zero rows.
func New() *Frame {
	return &Frame{}
}

// Schema returns a copy of the frame's schema.
func (f *Frame) Schema() types.Schema {
	return f.schema.Clone()
}

// Labels returns the column names in order.
func (f *Frame) Labels() []string {
	return f.schema.Names()
}

// Kinds returns the column kinds in order.
func (f *Frame) Kinds() []types.Kind {
	return f.schema.Kinds()
}

// NumRows returns the number of rows.
func (f *Frame) NumRows() int {
	return len(f.rows)
}

// NumColumns returns the number of columns.
func (f *Frame) NumColumns() int {
	return f.schema.Len()
}

// Row returns a copy of row i. It panics if i is out of range, like slice
// indexing.
func (f *Frame) Row(i int) []types.Value {
	row := make([]types.Value, len(f.rows[i]))
	copy(row, f.rows[i])
	return row
}

// Rows returns a copy of every row.
func (f *Frame) Rows() [][]types.Value {
	rows := make([][]types.Value, len(f.rows))
	for i := range f.rows {
		rows[i] = f.Row(i)
	}
	return rows
}

// Column returns every cell of the first column named label, top to bottom.
func (f *Frame) Column(label string) ([]types.Value, error) {
	idx, ok := f.schema.Index(label)
	if !ok {
		return nil, columnNotFound(label)
	}
	return f.columnAt(idx), nil
}

func (f *Frame) columnAt(idx int) []types.Value {
	col := make([]types.Value, len(f.rows))
	for r, row := range f.rows {
		col[r] = row[idx]
	}
	return col
}

// Validate checks the shape invariant: every row has one cell per column and
// every cell has its column's kind.
func (f *Frame) Validate() error {
	if err := f.schema.Validate(); err != nil {
		return schemaError(err)
	}
	for r, row := range f.rows {
		if err := checkRow(f.schema, row); err != nil {
			return ferrors.Wrap(ferrors.ErrCategorySchema, ferrors.CodeShapeMismatch,
				fmt.Sprintf("row %d", r), err)
		}
	}
	return nil
}

// Fingerprint returns a murmur3 128-bit digest of the schema and every cell,
// hex encoded. Frames with equal schemas and equal rows share a fingerprint.
func (f *Frame) Fingerprint() string {
	h := murmur3.New128()
	var buf [8]byte

	writeString := func(s string) {
		binary.LittleEndian.PutUint64(buf[:], uint64(len(s)))
		h.Write(buf[:])
		h.Write([]byte(s))
	}

	for _, c := range f.schema.Columns {
		writeString(c.Name)
		binary.LittleEndian.PutUint64(buf[:], uint64(c.Kind))
		h.Write(buf[:])
	}
	binary.LittleEndian.PutUint64(buf[:], uint64(len(f.rows)))
	h.Write(buf[:])

	for _, row := range f.rows {
		for _, v := range row {
			switch x := v.(type) {
			case types.Text:
				writeString(string(x))
			case types.Bool:
				if x {
					buf[0] = 1
				} else {
					buf[0] = 0
				}
				h.Write(buf[:1])
			case types.Float:
				binary.LittleEndian.PutUint64(buf[:], math.Float64bits(float64(x)))
				h.Write(buf[:])
			case types.Int:
				binary.LittleEndian.PutUint64(buf[:], uint64(x))
				h.Write(buf[:])
			}
		}
	}

	h1, h2 := h.Sum128()
	var sum [16]byte
	binary.BigEndian.PutUint64(sum[:8], h1)
	binary.BigEndian.PutUint64(sum[8:], h2)
	return hex.EncodeToString(sum[:])
}

// checkRow reports why row is not shape-compatible with schema, or nil.
func checkRow(schema types.Schema, row []types.Value) error {
	if len(row) != schema.Len() {
		return fmt.Errorf("row has %d cells, schema has %d columns", len(row), schema.Len())
	}
	for i, v := range row {
		if v == nil {
			return fmt.Errorf("column %q: missing value", schema.Columns[i].Name)
		}
		if v.Kind() != schema.Columns[i].Kind {
			return fmt.Errorf("column %q: %s value in %s column",
				schema.Columns[i].Name, v.Kind(), schema.Columns[i].Kind)
		}
	}
	return nil
}

func columnNotFound(label string) error {
	return ferrors.NewQueryError(ferrors.CodeColumnNotFound,
		fmt.Sprintf("column %q doesn't exist", label))
}

// schemaError maps a types.Schema validation error onto the frame taxonomy.
func schemaError(err error) error {
	if errors.Is(err, types.ErrDuplicateColumn) {
		return ferrors.Wrap(ferrors.ErrCategorySchema, ferrors.CodeDuplicateColumn, "invalid schema", err)
	}
	return ferrors.Wrap(ferrors.ErrCategorySchema, ferrors.CodeUnknownType, "invalid schema", err)
}
