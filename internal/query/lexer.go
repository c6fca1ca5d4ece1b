package query

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// TokenType represents the type of a lexical token.
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenError
	TokenIdent
	TokenNumber
	TokenString
	TokenAnd

	TokenEq // =
	TokenNe // <> or !=
	TokenLt // <
	TokenGt // >
	TokenLe // <=
	TokenGe // >=
)

// Token represents a lexical token.
type Token struct {
	Type    TokenType
	Literal string
	Pos     int // byte offset in input
}

// String returns a string representation of the token.
func (t Token) String() string {
	return fmt.Sprintf("Token{%s, %q, %d}", t.Type, t.Literal, t.Pos)
}

// String returns the string representation of a TokenType.
func (t TokenType) String() string {
	switch t {
	case TokenEOF:
		return "EOF"
	case TokenError:
		return "ERROR"
	case TokenIdent:
		return "IDENT"
	case TokenNumber:
		return "NUMBER"
	case TokenString:
		return "STRING"
	case TokenAnd:
		return "AND"
	case TokenEq:
		return "="
	case TokenNe:
		return "<>"
	case TokenLt:
		return "<"
	case TokenGt:
		return ">"
	case TokenLe:
		return "<="
	case TokenGe:
		return ">="
	default:
		return "UNKNOWN"
	}
}

// IsComparison reports whether the token is a comparison operator.
func (t TokenType) IsComparison() bool {
	return t >= TokenEq && t <= TokenGe
}

// Lexer tokenizes filter expressions.
type Lexer struct {
	input string
	pos   int
}

// NewLexer creates a new Lexer for the given input.
func NewLexer(input string) *Lexer {
	return &Lexer{input: input}
}

func (l *Lexer) peek(off int) byte {
	if l.pos+off >= len(l.input) {
		return 0
	}
	return l.input[l.pos+off]
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.input) {
		r, size := utf8.DecodeRuneInString(l.input[l.pos:])
		if !unicode.IsSpace(r) {
			return
		}
		l.pos += size
	}
}

// NextToken returns the next token from the input.
func (l *Lexer) NextToken() Token {
	l.skipWhitespace()
	start := l.pos

	if l.pos >= len(l.input) {
		return Token{Type: TokenEOF, Pos: start}
	}

	switch ch := l.input[l.pos]; {
	case ch == '=':
		l.pos++
		if l.peek(0) == '=' {
			l.pos++
		}
		return Token{Type: TokenEq, Literal: "=", Pos: start}
	case ch == '<':
		switch l.peek(1) {
		case '=':
			l.pos += 2
			return Token{Type: TokenLe, Literal: "<=", Pos: start}
		case '>':
			l.pos += 2
			return Token{Type: TokenNe, Literal: "<>", Pos: start}
		}
		l.pos++
		return Token{Type: TokenLt, Literal: "<", Pos: start}
	case ch == '>':
		if l.peek(1) == '=' {
			l.pos += 2
			return Token{Type: TokenGe, Literal: ">=", Pos: start}
		}
		l.pos++
		return Token{Type: TokenGt, Literal: ">", Pos: start}
	case ch == '!':
		if l.peek(1) == '=' {
			l.pos += 2
			return Token{Type: TokenNe, Literal: "!=", Pos: start}
		}
		l.pos++
		return Token{Type: TokenError, Literal: "!", Pos: start}
	case ch == '\'' || ch == '"' || ch == '`':
		return l.readQuoted(ch)
	case ch == '-' || ch == '+' || ch == '.' || isDigit(ch):
		return l.readNumber()
	default:
		r, _ := utf8.DecodeRuneInString(l.input[l.pos:])
		if unicode.IsLetter(r) || r == '_' {
			return l.readIdentifier()
		}
		l.pos++
		return Token{Type: TokenError, Literal: string(ch), Pos: start}
	}
}

// readIdentifier reads a bare word. AND in any case is a keyword.
func (l *Lexer) readIdentifier() Token {
	start := l.pos
	for l.pos < len(l.input) {
		r, size := utf8.DecodeRuneInString(l.input[l.pos:])
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '.' {
			break
		}
		l.pos += size
	}
	literal := l.input[start:l.pos]
	if strings.EqualFold(literal, "and") {
		return Token{Type: TokenAnd, Literal: "AND", Pos: start}
	}
	return Token{Type: TokenIdent, Literal: literal, Pos: start}
}

// readNumber reads a signed decimal literal, exponent included.
func (l *Lexer) readNumber() Token {
	start := l.pos
	if c := l.peek(0); c == '-' || c == '+' {
		l.pos++
	}
	for l.pos < len(l.input) {
		c := l.input[l.pos]
		if isDigit(c) || c == '.' || c == 'e' || c == 'E' {
			l.pos++
			continue
		}
		if (c == '-' || c == '+') && (l.input[l.pos-1] == 'e' || l.input[l.pos-1] == 'E') {
			l.pos++
			continue
		}
		break
	}
	return Token{Type: TokenNumber, Literal: l.input[start:l.pos], Pos: start}
}

// readQuoted reads a literal enclosed in quote. A doubled quote inside the
// literal stands for one quote character.
func (l *Lexer) readQuoted(quote byte) Token {
	start := l.pos
	l.pos++

	var sb strings.Builder
	for l.pos < len(l.input) {
		c := l.input[l.pos]
		if c == quote {
			if l.peek(1) == quote {
				sb.WriteByte(quote)
				l.pos += 2
				continue
			}
			l.pos++
			typ := TokenString
			if quote == '`' {
				typ = TokenIdent
			}
			return Token{Type: typ, Literal: sb.String(), Pos: start}
		}
		sb.WriteByte(c)
		l.pos++
	}
	return Token{Type: TokenError, Literal: "unterminated string", Pos: start}
}

// Tokenize returns all tokens from the input.
func (l *Lexer) Tokenize() []Token {
	var tokens []Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF || tok.Type == TokenError {
			break
		}
	}
	return tokens
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}
