package frame

import (
	"fmt"

	ferrors "github.com/framekit/framekit/internal/errors"
	"github.com/framekit/framekit/pkg/types"
)

// Row slices are shared between frames derived from one another. That is
// safe because no function in this package writes to a row after the frame
// holding it has been built; operations that change a row's width allocate a
// new slice.

// Predicate decides whether a row is kept, given the cell in the filtered
// column.
type Predicate func(types.Value) bool

// AddColumn returns a copy of f with a new column appended. values[i] becomes
// the last cell of row i, so len(values) must equal f.NumRows(). f is never
// modified: on error no frame is returned, on success the input is unchanged.
func AddColumn(f *Frame, label string, kind types.Kind, values []types.Value) (*Frame, error) {
	if !kind.Valid() {
		return nil, ferrors.NewSchemaError(ferrors.CodeUnknownType,
			fmt.Sprintf("column %q: unknown kind %d", label, uint32(kind)))
	}
	if len(values) != len(f.rows) {
		return nil, ferrors.NewSchemaError(ferrors.CodeShapeMismatch,
			fmt.Sprintf("column %q has %d values, frame has %d rows", label, len(values), len(f.rows)))
	}
	if _, exists := f.schema.Index(label); exists {
		return nil, ferrors.NewSchemaError(ferrors.CodeDuplicateColumn,
			fmt.Sprintf("column %q already exists", label))
	}
	for i, v := range values {
		if v == nil || v.Kind() != kind {
			return nil, ferrors.NewSchemaError(ferrors.CodeShapeMismatch,
				fmt.Sprintf("column %q: value %d is not %s", label, i, kind))
		}
	}

	rows := make([][]types.Value, len(f.rows))
	for i, row := range f.rows {
		next := make([]types.Value, len(row)+1)
		copy(next, row)
		next[len(row)] = values[i]
		rows[i] = next
	}

	return &Frame{
		schema: f.schema.Append(types.ColumnDef{Name: label, Kind: kind}),
		rows:   rows,
	}, nil
}

// Merge concatenates b's rows after a's. The frames must declare the same
// kind sequence; column names are not compared and the result carries a's
// schema.
func Merge(a, b *Frame) (*Frame, error) {
	if !a.schema.KindsEqual(b.schema) {
		return nil, ferrors.NewSchemaError(ferrors.CodeSchemaMismatch,
			fmt.Sprintf("kinds %v do not match %v", a.schema.Kinds(), b.schema.Kinds()))
	}

	rows := make([][]types.Value, 0, len(a.rows)+len(b.rows))
	rows = append(rows, a.rows...)
	rows = append(rows, b.rows...)

	return &Frame{schema: a.schema.Clone(), rows: rows}, nil
}

// FindColumns returns, in f's column order, the position of every column
// whose name appears in labels. Unknown labels are ignored and repeated
// labels do not repeat positions.
func FindColumns(f *Frame, labels []string) []int {
	wanted := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		wanted[l] = struct{}{}
	}

	var indices []int
	for i, c := range f.schema.Columns {
		if _, ok := wanted[c.Name]; ok {
			indices = append(indices, i)
		}
	}
	return indices
}

// RestrictColumns projects f onto the columns named in labels, keeping f's
// column order and every row. If no label matches, the result is the empty
// frame.
func RestrictColumns(f *Frame, labels []string) (*Frame, error) {
	indices := FindColumns(f, labels)
	if len(indices) == 0 {
		return New(), nil
	}

	out := &Frame{rows: make([][]types.Value, len(f.rows))}
	for _, idx := range indices {
		col := f.schema.Columns[idx]
		next, err := AddColumn(out, col.Name, col.Kind, f.columnAt(idx))
		if err != nil {
			return nil, ferrors.NewInternalError(
				fmt.Sprintf("projecting column %q", col.Name), err)
		}
		out = next
	}
	return out, nil
}

// Filter returns the rows of f for which pred holds on the cell in column
// label, in their original order. The result has f's schema. f is not
// modified.
func Filter(f *Frame, label string, pred Predicate) (*Frame, error) {
	if pred == nil {
		return nil, ferrors.NewQueryError(ferrors.CodeInvalidPredicate, "nil predicate")
	}
	idx, ok := f.schema.Index(label)
	if !ok {
		return nil, columnNotFound(label)
	}

	kept := make([][]types.Value, 0, len(f.rows))
	for _, row := range f.rows {
		if pred(row[idx]) {
			kept = append(kept, row)
		}
	}
	return &Frame{schema: f.schema.Clone(), rows: kept}, nil
}
