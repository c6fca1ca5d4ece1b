// Package ingest turns delimited records into frames.
//
// The first record of a source is the header and names the columns; the
// caller declares each column's kind. Every later record becomes one row.
// Reading is fail-fast: the first bad record aborts the read and no partial
// frame is returned.
package ingest

import (
	"errors"
	"fmt"
	"io"

	ferrors "github.com/framekit/framekit/internal/errors"
	"github.com/framekit/framekit/internal/frame"
	"github.com/framekit/framekit/pkg/types"
)

// RecordSource yields records one at a time. Next returns io.EOF after the
// last record.
type RecordSource interface {
	Next() ([]string, error)
}

// sliceSource serves records from memory.
type sliceSource struct {
	records [][]string
	pos     int
}

func (s *sliceSource) Next() ([]string, error) {
	if s.pos >= len(s.records) {
		return nil, io.EOF
	}
	rec := s.records[s.pos]
	s.pos++
	return rec, nil
}

// ReadTable builds a frame from in-memory records. records[0] is the header.
func ReadTable(records [][]string, kinds []types.Kind) (*frame.Frame, error) {
	return ReadFrom(&sliceSource{records: records}, kinds)
}

// ReadFrom builds a frame from a record source. Every record, header
// included, must have exactly len(kinds) fields.
func ReadFrom(src RecordSource, kinds []types.Kind) (*frame.Frame, error) {
	for i, k := range kinds {
		if !k.Valid() {
			return nil, ferrors.NewSchemaError(ferrors.CodeUnknownType,
				fmt.Sprintf("column %d: unknown kind %d", i, uint32(k)))
		}
	}

	header, err := src.Next()
	if errors.Is(err, io.EOF) {
		return nil, ferrors.NewIngestError(ferrors.CodeEmptySource, "source has no header record", nil)
	}
	if err != nil {
		return nil, ferrors.NewIngestError(ferrors.CodeParseError, "reading header", err)
	}
	if err := checkShape(0, header, kinds); err != nil {
		return nil, err
	}

	schema, err := types.NewSchema(header, kinds)
	if err != nil {
		return nil, ferrors.NewInternalError("pairing header with kinds", err)
	}
	b, err := frame.NewBuilder(schema)
	if err != nil {
		return nil, err
	}

	for idx := 1; ; idx++ {
		rec, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, ferrors.NewIngestError(ferrors.CodeParseError,
				fmt.Sprintf("reading record %d", idx), err)
		}
		if err := checkShape(idx, rec, kinds); err != nil {
			return nil, err
		}

		row := make([]types.Value, len(kinds))
		for i, raw := range rec {
			v, err := ParseField(raw, kinds[i])
			if err != nil {
				return nil, ferrors.Wrap(ferrors.GetCategory(err), ferrors.GetCode(err),
					fmt.Sprintf("record %d, column %q", idx, header[i]), err)
			}
			row[i] = v
		}
		if err := b.Append(row); err != nil {
			return nil, err
		}
	}

	return b.Build(), nil
}

func checkShape(idx int, rec []string, kinds []types.Kind) error {
	if len(rec) == len(kinds) {
		return nil
	}
	return ferrors.NewIngestError(ferrors.CodeRowShapeMismatch,
		fmt.Sprintf("record %d has %d fields, expected %d", idx, len(rec), len(kinds)), nil).
		WithDetails(map[string]interface{}{"record": idx, "fields": len(rec), "expected": len(kinds)})
}
