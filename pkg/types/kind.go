// Package types provides the core data types for framekit: scalar kinds,
// cell values, and frame schemas.
package types

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind is the declared scalar type of a column. The numeric codes are the
// wire representation used by callers when supplying a schema.
type Kind uint32

const (
	// KindText holds arbitrary UTF-8 text, used verbatim
	KindText Kind = 1

	// KindBool holds a boolean parsed from an integer field (nonzero is true)
	KindBool Kind = 2

	// KindFloat holds a 64-bit floating point number
	KindFloat Kind = 3

	// KindInt holds a 64-bit signed integer
	KindInt Kind = 4
)

// Valid reports whether k is one of the four known kind codes.
func (k Kind) Valid() bool {
	switch k {
	case KindText, KindBool, KindFloat, KindInt:
		return true
	default:
		return false
	}
}

// Numeric reports whether values of this kind can be aggregated.
func (k Kind) Numeric() bool {
	return k == KindFloat || k == KindInt
}

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindBool:
		return "bool"
	case KindFloat:
		return "float"
	case KindInt:
		return "int"
	default:
		return fmt.Sprintf("kind(%d)", uint32(k))
	}
}

// ParseKind converts a kind code ("1".."4") or a kind name ("text", "bool",
// "float", "int") into a Kind.
func ParseKind(s string) (Kind, error) {
	s = strings.TrimSpace(s)
	if code, err := strconv.ParseUint(s, 10, 32); err == nil {
		k := Kind(code)
		if !k.Valid() {
			return 0, fmt.Errorf("%w: %d", ErrUnknownKind, code)
		}
		return k, nil
	}

	switch strings.ToLower(s) {
	case "text", "string":
		return KindText, nil
	case "bool", "boolean":
		return KindBool, nil
	case "float", "real":
		return KindFloat, nil
	case "int", "integer":
		return KindInt, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// ParseKinds parses a comma separated list of kinds, e.g. "1,4,3".
func ParseKinds(s string) ([]Kind, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	kinds := make([]Kind, 0, len(parts))
	for i, p := range parts {
		k, err := ParseKind(p)
		if err != nil {
			return nil, fmt.Errorf("kind %d: %w", i, err)
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}
