package frame

import (
	"fmt"
	"strings"

	ferrors "github.com/framekit/framekit/internal/errors"
	"github.com/framekit/framekit/pkg/types"
)

// ColumnOp extracts the numeric cells of each labelled column, column-major:
// every value of labels[0] top to bottom, then labels[1], and so on. Each
// label must name a column exactly. Int cells are widened to float64; any
// Text or Bool cell fails with NotNumeric. A column with no rows yields no
// values whatever its kind.
func ColumnOp(f *Frame, labels []string) ([]float64, error) {
	out := make([]float64, 0, len(labels)*len(f.rows))
	for _, label := range labels {
		idx, ok := f.schema.Index(label)
		if !ok {
			return nil, columnNotFound(label)
		}
		for _, row := range f.rows {
			v, ok := types.AsFloat(row[idx])
			if !ok {
				return nil, ferrors.NewAggregateError(ferrors.CodeNotNumeric,
					fmt.Sprintf("column %q holds a %s value", label, row[idx].Kind()))
			}
			out = append(out, v)
		}
	}
	return out, nil
}

// Average returns the arithmetic mean of a numeric column. A frame with no
// rows fails with NoData.
func Average(f *Frame, label string) (float64, error) {
	values, err := ColumnOp(f, []string{label})
	if err != nil {
		return 0, err
	}
	if len(values) == 0 {
		return 0, ferrors.NewAggregateError(ferrors.CodeNoData,
			fmt.Sprintf("average of %q over zero rows", label))
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values)), nil
}

// AddRows returns the row-wise sum of two numeric columns.
func AddRows(f *Frame, a, b string) ([]float64, error) {
	left, err := ColumnOp(f, []string{a})
	if err != nil {
		return nil, err
	}
	right, err := ColumnOp(f, []string{b})
	if err != nil {
		return nil, err
	}
	if len(left) != len(right) {
		return nil, ferrors.NewAggregateError(ferrors.CodeLengthMismatch,
			fmt.Sprintf("%q has %d values, %q has %d", a, len(left), b, len(right)))
	}
	sums := make([]float64, len(left))
	for i := range left {
		sums[i] = left[i] + right[i]
	}
	return sums, nil
}

// AggregateType represents the type of aggregate function.
type AggregateType int

const (
	AggCount AggregateType = iota
	AggSum
	AggMin
	AggMax
	AggAvg
)

// String returns the upper-case function name.
func (t AggregateType) String() string {
	switch t {
	case AggCount:
		return "COUNT"
	case AggSum:
		return "SUM"
	case AggMin:
		return "MIN"
	case AggMax:
		return "MAX"
	case AggAvg:
		return "AVG"
	}
	return fmt.Sprintf("AggregateType(%d)", int(t))
}

// ParseAggregateType converts a function name string to AggregateType.
func ParseAggregateType(name string) (AggregateType, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "COUNT":
		return AggCount, nil
	case "SUM":
		return AggSum, nil
	case "MIN":
		return AggMin, nil
	case "MAX":
		return AggMax, nil
	case "AVG", "AVERAGE", "MEAN":
		return AggAvg, nil
	default:
		return 0, ferrors.NewQueryError(ferrors.CodeUnsupportedOperator,
			fmt.Sprintf("unknown aggregate function: %s", name))
	}
}

// accumulator folds a column one value at a time.
type accumulator struct {
	typ   AggregateType
	count int64
	sum   float64
	min   float64
	max   float64
}

func (a *accumulator) add(v float64) {
	if a.count == 0 || v < a.min {
		a.min = v
	}
	if a.count == 0 || v > a.max {
		a.max = v
	}
	a.sum += v
	a.count++
}

func (a *accumulator) result() (float64, bool) {
	switch a.typ {
	case AggCount:
		return float64(a.count), true
	case AggSum:
		return a.sum, true
	}
	if a.count == 0 {
		return 0, false
	}
	switch a.typ {
	case AggMin:
		return a.min, true
	case AggMax:
		return a.max, true
	default:
		return a.sum / float64(a.count), true
	}
}

// Aggregate folds a column with the given function. COUNT returns the number
// of rows and accepts a column of any kind; the others need a numeric column.
// SUM over zero rows is 0, while MIN, MAX and AVG fail with NoData.
func Aggregate(f *Frame, label string, typ AggregateType) (float64, error) {
	if typ < AggCount || typ > AggAvg {
		return 0, ferrors.NewQueryError(ferrors.CodeUnsupportedOperator,
			fmt.Sprintf("unknown aggregate %s", typ))
	}

	acc := &accumulator{typ: typ}
	if typ == AggCount {
		if _, ok := f.schema.Index(label); !ok {
			return 0, columnNotFound(label)
		}
		acc.count = int64(len(f.rows))
	} else {
		values, err := ColumnOp(f, []string{label})
		if err != nil {
			return 0, err
		}
		for _, v := range values {
			acc.add(v)
		}
	}

	res, ok := acc.result()
	if !ok {
		return 0, ferrors.NewAggregateError(ferrors.CodeNoData,
			fmt.Sprintf("%s of %q over zero rows", typ, label))
	}
	return res, nil
}
