// Package lexer implements the arith lexical analyzer.
//
// The lexer walks the source with a single cursor and hands out one token
// per call. After the end-of-input token has been produced, every further
// call returns io.EOF.
package lexer

import (
	"fmt"
	"io"
	"math"
	"unicode/utf8"

	"github.com/orizon-lang/arith/internal/errors"
	"github.com/orizon-lang/arith/internal/position"
)

// TokenType represents the type of a token
type TokenType int

// String returns a string representation of the token type
func (tt TokenType) String() string {
	if name, ok := tokenNames[tt]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", int(tt))
}

// Token types
const (
	TokenEOF TokenType = iota
	TokenError

	// Literals
	TokenIdentifier // reserved; no expression accepts it
	TokenInteger

	// Operators
	TokenPlus
	TokenMinus
	TokenMul
	TokenDiv

	// Delimiters
	TokenLParen
	TokenRParen
)

// tokenNames provides string representations for token types
var tokenNames = map[TokenType]string{
	TokenEOF:        "EOF",
	TokenError:      "ERROR",
	TokenIdentifier: "IDENTIFIER",
	TokenInteger:    "INTEGER",
	TokenPlus:       "PLUS",
	TokenMinus:      "MINUS",
	TokenMul:        "MUL",
	TokenDiv:        "DIV",
	TokenLParen:     "LPAREN",
	TokenRParen:     "RPAREN",
}

// punctuation maps single-byte operators and delimiters to their token types
var punctuation = map[byte]TokenType{
	'+': TokenPlus,
	'-': TokenMinus,
	'*': TokenMul,
	'/': TokenDiv,
	'(': TokenLParen,
	')': TokenRParen,
}

// Token represents a lexical token with position information
type Token struct {
	Type    TokenType
	Literal string        // exact source text covered by Span
	Value   int64         // decoded value for TokenInteger
	Span    position.Span // source span for this token
}

// String returns a string representation of the token
func (t Token) String() string {
	return fmt.Sprintf("{Type: %s, Literal: %q, Span: %s}", t.Type, t.Literal, t.Span)
}

// Is reports whether the token has the given type.
func (t Token) Is(tt TokenType) bool {
	return t.Type == tt
}

// Lexer represents the lexical analyzer
type Lexer struct {
	input    string
	filename string
	position int  // current position in input (points to current char)
	ch       byte // current char under examination, 0 at end of input
	line     int  // line of the current char
	column   int  // column of the current char
	finished bool // end-of-input token already handed out
}

// New creates a new lexer instance
func New(input string) *Lexer {
	return NewWithFilename(input, "")
}

// NewWithFilename creates a new lexer instance with filename for error reporting
func NewWithFilename(input, filename string) *Lexer {
	l := &Lexer{
		input:    input,
		filename: filename,
		line:     1,
		column:   1,
	}
	if len(input) > 0 {
		l.ch = input[0]
	}
	return l
}

// Tokenize lexes input through its end-of-input token. It stops at the
// first lexical error.
func Tokenize(input string) ([]Token, error) {
	return TokenizeFile(input, "")
}

// TokenizeFile is Tokenize with a filename recorded in every span.
func TokenizeFile(input, filename string) ([]Token, error) {
	l := NewWithFilename(input, filename)
	tokens := make([]Token, 0, len(input)/2+1)

	for {
		tok, err := l.NextToken()
		if err == io.EOF {
			return tokens, nil
		}
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
	}
}

// NextToken returns the next token. Unrecognized characters and oversized
// integer literals come back as a TokenError token together with a
// *errors.StandardError; the cursor has already moved past them, so the
// caller may keep lexing. Once the EOF token has been returned, NextToken
// returns io.EOF.
func (l *Lexer) NextToken() (Token, error) {
	l.skipWhitespace()

	if l.atEnd() {
		if l.finished {
			return Token{}, io.EOF
		}
		l.finished = true
		pos := l.currentPosition()
		return Token{Type: TokenEOF, Span: position.Span{Start: pos, End: pos}}, nil
	}

	start := l.currentPosition()

	switch {
	case isDigit(l.ch):
		return l.readNumber(start)
	case isLetter(l.ch):
		l.readIdentifier()
		return l.newToken(TokenIdentifier, start), nil
	}

	if tt, ok := punctuation[l.ch]; ok {
		l.readChar()
		return l.newToken(tt, start), nil
	}

	// Consume the whole rune so the reported literal is readable.
	_, size := utf8.DecodeRuneInString(l.input[l.position:])
	for i := 0; i < size; i++ {
		l.readChar()
	}
	tok := l.newToken(TokenError, start)
	return tok, errors.UnrecognizedCharacter(tok.Span, tok.Literal)
}

// readChar advances the cursor by one byte
func (l *Lexer) readChar() {
	if l.atEnd() {
		return
	}
	if l.ch == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	l.position++
	if l.atEnd() {
		l.ch = 0
	} else {
		l.ch = l.input[l.position]
	}
}

func (l *Lexer) atEnd() bool {
	return l.position >= len(l.input)
}

func (l *Lexer) currentPosition() position.Position {
	return position.Position{
		Filename: l.filename,
		Line:     l.line,
		Column:   l.column,
		Offset:   l.position,
	}
}

// skipWhitespace skips blanks and line breaks
func (l *Lexer) skipWhitespace() {
	for !l.atEnd() && (l.ch == ' ' || l.ch == '\t' || l.ch == '\r' || l.ch == '\n') {
		l.readChar()
	}
}

// readNumber consumes the maximal digit run, accumulating value*10+digit.
func (l *Lexer) readNumber(start position.Position) (Token, error) {
	var value int64
	overflow := false

	for !l.atEnd() && isDigit(l.ch) {
		digit := int64(l.ch - '0')
		if value > (math.MaxInt64-digit)/10 {
			overflow = true
		} else {
			value = value*10 + digit
		}
		l.readChar()
	}

	if overflow {
		tok := l.newToken(TokenError, start)
		return tok, errors.IntegerLiteralOverflow(tok.Span, tok.Literal)
	}

	tok := l.newToken(TokenInteger, start)
	tok.Value = value
	return tok, nil
}

func (l *Lexer) readIdentifier() {
	for !l.atEnd() && (isLetter(l.ch) || isDigit(l.ch)) {
		l.readChar()
	}
}

// newToken builds a token spanning from start to the cursor
func (l *Lexer) newToken(tokenType TokenType, start position.Position) Token {
	return Token{
		Type:    tokenType,
		Literal: l.input[start.Offset:l.position],
		Span:    position.Span{Start: start, End: l.currentPosition()},
	}
}

func isLetter(ch byte) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_'
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}
