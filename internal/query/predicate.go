// Package query parses textual row filters such as `PPG >= 25` and applies
// them to frames.
//
// A filter is one or more comparisons joined by AND. Each comparison names a
// column, an operator and an operand; the operand is read with the column's
// declared kind, so `LikesPizza = 1` works on a bool column and
// `Player = 'Kobe Bryant'` on a text column.
package query

import (
	"fmt"
	"strconv"
	"strings"

	ferrors "github.com/framekit/framekit/internal/errors"
	"github.com/framekit/framekit/internal/frame"
	"github.com/framekit/framekit/internal/ingest"
	"github.com/framekit/framekit/pkg/types"
)

// Operator is a comparison operator.
type Operator string

const (
	OpEq Operator = "="
	OpNe Operator = "!="
	OpLt Operator = "<"
	OpLe Operator = "<="
	OpGt Operator = ">"
	OpGe Operator = ">="
)

// Ordering reports whether the operator needs an ordering rather than just
// equality.
func (o Operator) Ordering() bool {
	switch o {
	case OpLt, OpLe, OpGt, OpGe:
		return true
	}
	return false
}

func operatorFor(t TokenType) Operator {
	switch t {
	case TokenEq:
		return OpEq
	case TokenNe:
		return OpNe
	case TokenLt:
		return OpLt
	case TokenLe:
		return OpLe
	case TokenGt:
		return OpGt
	default:
		return OpGe
	}
}

// Predicate is one parsed comparison. Operand is kept as text until the
// predicate is compiled against a schema.
type Predicate struct {
	Column   string
	Operator Operator
	Operand  string
}

// String formats the predicate so that it parses back to itself.
func (p Predicate) String() string {
	return fmt.Sprintf("%s %s %s", quoteIdent(p.Column), p.Operator, quoteOperand(p.Operand))
}

// ParsePredicate parses a single comparison.
func ParsePredicate(expr string) (Predicate, error) {
	preds, err := Parse(expr)
	if err != nil {
		return Predicate{}, err
	}
	if len(preds) != 1 {
		return Predicate{}, invalid(expr, 0, fmt.Sprintf("expected one comparison, got %d", len(preds)))
	}
	return preds[0], nil
}

// Parse parses comparisons joined by AND.
func Parse(expr string) ([]Predicate, error) {
	tokens := NewLexer(expr).Tokenize()
	var preds []Predicate

	i := 0
	next := func() Token {
		tok := tokens[i]
		if i < len(tokens)-1 {
			i++
		}
		return tok
	}

	for {
		col := next()
		if col.Type != TokenIdent {
			return nil, invalid(expr, col.Pos, fmt.Sprintf("expected column name, got %s", col.Type))
		}

		op := next()
		if !op.Type.IsComparison() {
			return nil, invalid(expr, op.Pos, fmt.Sprintf("expected comparison operator after %q, got %s", col.Literal, op.Type))
		}

		operand := next()
		switch operand.Type {
		case TokenNumber, TokenIdent, TokenString:
		default:
			return nil, invalid(expr, operand.Pos, fmt.Sprintf("expected operand after %s, got %s", op.Literal, operand.Type))
		}

		preds = append(preds, Predicate{
			Column:   col.Literal,
			Operator: operatorFor(op.Type),
			Operand:  operand.Literal,
		})

		switch tok := next(); tok.Type {
		case TokenEOF:
			return preds, nil
		case TokenAnd:
			continue
		default:
			return nil, invalid(expr, tok.Pos, fmt.Sprintf("unexpected %s %q", tok.Type, tok.Literal))
		}
	}
}

// Compile resolves the predicate against a schema and returns a row test for
// frame.Filter. The column must exist and the operand must parse as the
// column's kind. Bool columns only support = and !=.
func (p Predicate) Compile(schema types.Schema) (frame.Predicate, error) {
	idx, ok := schema.Index(p.Column)
	if !ok {
		return nil, ferrors.NewQueryError(ferrors.CodeColumnNotFound,
			fmt.Sprintf("column %q doesn't exist", p.Column))
	}
	kind := schema.Columns[idx].Kind

	if kind == types.KindBool && p.Operator.Ordering() {
		return nil, ferrors.NewQueryError(ferrors.CodeUnsupportedOperator,
			fmt.Sprintf("operator %s is not defined on bool column %q", p.Operator, p.Column))
	}

	operand, err := parseOperand(p.Operand, kind)
	if err != nil {
		return nil, ferrors.Wrap(ferrors.ErrCategoryQuery, ferrors.CodeInvalidPredicate,
			fmt.Sprintf("operand of %q", p.Column), err)
	}

	op := p.Operator
	return func(v types.Value) bool {
		cmp, ok := types.Compare(v, operand)
		if !ok {
			return false
		}
		switch op {
		case OpEq:
			return cmp == 0
		case OpNe:
			return cmp != 0
		case OpLt:
			return cmp < 0
		case OpLe:
			return cmp <= 0
		case OpGt:
			return cmp > 0
		case OpGe:
			return cmp >= 0
		}
		return false
	}, nil
}

// Apply parses expr and keeps the rows of f that satisfy every comparison.
func Apply(f *frame.Frame, expr string) (*frame.Frame, error) {
	preds, err := Parse(expr)
	if err != nil {
		return nil, err
	}
	return ApplyAll(f, preds)
}

// ApplyAll filters f by each predicate in turn.
func ApplyAll(f *frame.Frame, preds []Predicate) (*frame.Frame, error) {
	schema := f.Schema()
	out := f
	for _, p := range preds {
		test, err := p.Compile(schema)
		if err != nil {
			return nil, err
		}
		out, err = frame.Filter(out, p.Column, test)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// parseOperand reads an operand with the column's kind. Bool operands also
// accept true and false.
func parseOperand(raw string, kind types.Kind) (types.Value, error) {
	v, err := ingest.ParseField(raw, kind)
	if err == nil || kind != types.KindBool {
		return v, err
	}
	if b, perr := strconv.ParseBool(raw); perr == nil {
		return types.Bool(b), nil
	}
	return nil, err
}

func invalid(expr string, pos int, msg string) error {
	return ferrors.NewQueryError(ferrors.CodeInvalidPredicate,
		fmt.Sprintf("%s at offset %d in %q", msg, pos, expr))
}

func quoteIdent(s string) string {
	if lexesAs(s, TokenIdent) {
		return s
	}
	return "`" + strings.ReplaceAll(s, "`", "``") + "`"
}

func quoteOperand(s string) string {
	if lexesAs(s, TokenIdent) || lexesAs(s, TokenNumber) {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// lexesAs reports whether s reads back as exactly one token of type t with
// s as its literal.
func lexesAs(s string, t TokenType) bool {
	toks := NewLexer(s).Tokenize()
	return len(toks) == 2 && toks[0].Type == t && toks[0].Literal == s && toks[1].Type == TokenEOF
}
