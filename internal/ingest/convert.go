package ingest

import (
	"fmt"
	"strconv"

	ferrors "github.com/framekit/framekit/internal/errors"
	"github.com/framekit/framekit/pkg/types"
)

// ParseField converts one raw field into a value of the given kind.
//
//	KindText  verbatim
//	KindBool  decimal integer, nonzero is true
//	KindFloat decimal float64
//	KindInt   decimal int64
//
// An unknown kind fails with UnknownType; text that does not parse fails with
// ParseError. Fields are not trimmed.
func ParseField(raw string, kind types.Kind) (types.Value, error) {
	switch kind {
	case types.KindText:
		return types.Text(raw), nil
	case types.KindBool:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, parseError(raw, kind, err)
		}
		return types.Bool(n != 0), nil
	case types.KindFloat:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, parseError(raw, kind, err)
		}
		return types.Float(f), nil
	case types.KindInt:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, parseError(raw, kind, err)
		}
		return types.Int(n), nil
	default:
		return nil, ferrors.NewSchemaError(ferrors.CodeUnknownType,
			fmt.Sprintf("unknown kind %d", uint32(kind)))
	}
}

func parseError(raw string, kind types.Kind, err error) error {
	return ferrors.NewIngestError(ferrors.CodeParseError,
		fmt.Sprintf("cannot read %q as %s", raw, kind), err)
}
