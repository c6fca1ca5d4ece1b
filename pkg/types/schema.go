package types

import "fmt"

// Schema defines the ordered columns of a frame.
type Schema struct {
	// Columns defines the columns in frame order
	Columns []ColumnDef `json:"columns"`
}

// ColumnDef defines a single column in the schema.
type ColumnDef struct {
	// Name is the column label
	Name string `json:"name"`

	// Kind is the declared scalar kind of every cell in the column
	Kind Kind `json:"kind"`
}

// NewSchema pairs index-aligned names and kinds into a Schema.
func NewSchema(names []string, kinds []Kind) (Schema, error) {
	if len(names) != len(kinds) {
		return Schema{}, fmt.Errorf("%w: %d names, %d kinds", ErrSchemaLength, len(names), len(kinds))
	}
	cols := make([]ColumnDef, len(names))
	for i := range names {
		cols[i] = ColumnDef{Name: names[i], Kind: kinds[i]}
	}
	return Schema{Columns: cols}, nil
}

// Len returns the number of columns.
func (s Schema) Len() int {
	return len(s.Columns)
}

// Names returns the column labels in order.
func (s Schema) Names() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// Kinds returns the column kinds in order.
func (s Schema) Kinds() []Kind {
	kinds := make([]Kind, len(s.Columns))
	for i, c := range s.Columns {
		kinds[i] = c.Kind
	}
	return kinds
}

// Index returns the position of the first column named name.
func (s Schema) Index(name string) (int, bool) {
	for i, c := range s.Columns {
		if c.Name == name {
			return i, true
		}
	}
	return -1, false
}

// KindsEqual reports whether both schemas declare the same kind sequence.
// Column names are not compared.
func (s Schema) KindsEqual(other Schema) bool {
	if len(s.Columns) != len(other.Columns) {
		return false
	}
	for i := range s.Columns {
		if s.Columns[i].Kind != other.Columns[i].Kind {
			return false
		}
	}
	return true
}

// Append returns a copy of the schema with col added at the end.
func (s Schema) Append(col ColumnDef) Schema {
	cols := make([]ColumnDef, len(s.Columns), len(s.Columns)+1)
	copy(cols, s.Columns)
	return Schema{Columns: append(cols, col)}
}

// Clone returns a deep copy of the schema.
func (s Schema) Clone() Schema {
	cols := make([]ColumnDef, len(s.Columns))
	copy(cols, s.Columns)
	return Schema{Columns: cols}
}

// Validate checks that every kind is known and that names are unique.
func (s Schema) Validate() error {
	seen := make(map[string]int, len(s.Columns))
	for i, c := range s.Columns {
		if !c.Kind.Valid() {
			return fmt.Errorf("column %q: %w: %d", c.Name, ErrUnknownKind, uint32(c.Kind))
		}
		if prev, ok := seen[c.Name]; ok {
			return fmt.Errorf("%w: %q at positions %d and %d", ErrDuplicateColumn, c.Name, prev, i)
		}
		seen[c.Name] = i
	}
	return nil
}
