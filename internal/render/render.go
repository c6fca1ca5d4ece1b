// Package render formats frames and numeric results as fixed-width text.
package render

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"github.com/framekit/framekit/internal/frame"
	"github.com/framekit/framekit/pkg/types"
)

// CellWidth is the minimum width of every printed cell.
const CellWidth = 15

// Table writes the column labels on one line, then one line per row. Each
// cell is left-aligned and padded to CellWidth. Floats are printed with no
// decimal places.
func Table(w io.Writer, f *frame.Frame) error {
	bw := bufio.NewWriter(w)

	for _, label := range f.Labels() {
		fmt.Fprintf(bw, "%-*s", CellWidth, label)
	}
	bw.WriteByte('\n')

	for i := 0; i < f.NumRows(); i++ {
		for _, v := range f.Row(i) {
			fmt.Fprintf(bw, "%-*s", CellWidth, Cell(v))
		}
		bw.WriteByte('\n')
	}

	return bw.Flush()
}

// Cell formats one value for Table.
func Cell(v types.Value) string {
	switch x := v.(type) {
	case types.Text:
		return string(x)
	case types.Bool:
		return strconv.FormatBool(bool(x))
	case types.Float:
		return strconv.FormatFloat(float64(x), 'f', 0, 64)
	case types.Int:
		return strconv.FormatInt(int64(x), 10)
	default:
		return ""
	}
}

// Values writes a labelled numeric vector on one line.
func Values(w io.Writer, label string, values []float64) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%s:", label)
	for _, v := range values {
		bw.WriteByte(' ')
		bw.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
	}
	bw.WriteByte('\n')
	return bw.Flush()
}

// Scalar writes a labelled single number.
func Scalar(w io.Writer, label string, value float64) error {
	_, err := fmt.Fprintf(w, "%s: %s\n", label, strconv.FormatFloat(value, 'g', -1, 64))
	return err
}
