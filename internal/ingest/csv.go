package ingest

import (
	"encoding/csv"
	"io"

	"github.com/framekit/framekit/internal/frame"
	"github.com/framekit/framekit/pkg/types"
)

// CSVSource reads delimited records with encoding/csv. Field counts are not
// checked here; ReadFrom validates every record against the kinds.
type CSVSource struct {
	r *csv.Reader
}

// NewCSVSource creates a source reading from r with the given delimiter.
func NewCSVSource(r io.Reader, delimiter rune) *CSVSource {
	cr := csv.NewReader(r)
	cr.Comma = delimiter
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	return &CSVSource{r: cr}
}

// Next returns the next record, or io.EOF.
func (s *CSVSource) Next() ([]string, error) {
	return s.r.Read()
}

// ReadCSV reads a whole CSV stream into a frame.
func ReadCSV(r io.Reader, delimiter rune, kinds []types.Kind) (*frame.Frame, error) {
	return ReadFrom(NewCSVSource(r, delimiter), kinds)
}
