// Package parser implements the arith recursive descent parser.
//
// Primary expressions are parsed by recursive descent; binary expressions
// use a precedence-climbing loop driven by ast.OperatorKind.Precedence.
// The parser works on a fully lexed token slice and produces one statement
// per NextStatement call.
package parser

import (
	"io"

	"github.com/orizon-lang/arith/internal/ast"
	"github.com/orizon-lang/arith/internal/errors"
	"github.com/orizon-lang/arith/internal/lexer"
	"github.com/orizon-lang/arith/internal/position"
)

// Associativity selects how chains of equal-precedence operators group.
type Associativity int

const (
	// LeftAssociative groups a-b-c as (a-b)-c. The right operand is parsed
	// with a floor of precedence+1.
	LeftAssociative Associativity = iota
	// RightAssociative groups a-b-c as a-(b-c). The right operand is parsed
	// with the operator's own precedence as the floor.
	RightAssociative
)

func (a Associativity) String() string {
	if a == RightAssociative {
		return "right"
	}
	return "left"
}

// ParseAssociativity maps "left"/"right" (as used in configuration files)
// to an Associativity.
func ParseAssociativity(s string) (Associativity, bool) {
	switch s {
	case "", "left":
		return LeftAssociative, true
	case "right":
		return RightAssociative, true
	default:
		return LeftAssociative, false
	}
}

// binaryOperators maps operator tokens to their tree kinds
var binaryOperators = map[lexer.TokenType]ast.OperatorKind{
	lexer.TokenPlus:  ast.OpAdd,
	lexer.TokenMinus: ast.OpSubtract,
	lexer.TokenMul:   ast.OpMultiply,
	lexer.TokenDiv:   ast.OpDivide,
}

// DefaultMaxDepth bounds the nesting of groups and right operands, so
// hostile input fails with NESTING_TOO_DEEP instead of exhausting the stack.
const DefaultMaxDepth = 2000

// Option configures a Parser.
type Option func(*Parser)

// WithAssociativity sets the grouping of equal-precedence chains.
func WithAssociativity(a Associativity) Option {
	return func(p *Parser) { p.associativity = a }
}

// WithMaxDepth sets the nesting limit. n <= 0 keeps DefaultMaxDepth.
func WithMaxDepth(n int) Option {
	return func(p *Parser) {
		if n > 0 {
			p.maxDepth = n
		}
	}
}

// Parser represents the recursive descent parser
type Parser struct {
	tokens        []lexer.Token
	current       int
	associativity Associativity
	maxDepth      int
	depth         int // groups and right operands currently open

	openGroups []position.Span // spans of '(' awaiting their ')'
	err        error           // first failure; the parser does not recover
}

// New creates a parser over a lexed token sequence. The sequence is
// normally terminated by a TokenEOF; a missing terminator is treated as
// end of input.
func New(tokens []lexer.Token, opts ...Option) *Parser {
	p := &Parser{tokens: tokens, maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse tokenizes and parses input in one step.
func Parse(input string, opts ...Option) (*ast.Program, error) {
	return ParseFile(input, "", opts...)
}

// ParseFile is Parse with a filename recorded in every span.
func ParseFile(input, filename string, opts ...Option) (*ast.Program, error) {
	tokens, err := lexer.TokenizeFile(input, filename)
	if err != nil {
		return nil, err
	}
	return New(tokens, opts...).ParseProgram()
}

// ParseProgram parses statements until end of input. On failure no
// partial program is returned.
func (p *Parser) ParseProgram() (*ast.Program, error) {
	program := ast.NewProgram()
	for {
		stmt, err := p.NextStatement()
		if err == io.EOF {
			return program, nil
		}
		if err != nil {
			return nil, err
		}
		program.AddStatement(stmt)
	}
}

// NextStatement parses one statement. It returns io.EOF once the
// end-of-input token is reached and a *errors.StandardError on malformed
// input. After a failure every later call returns the same error.
func (p *Parser) NextStatement() (ast.Statement, error) {
	if p.err != nil {
		return nil, p.err
	}

	stmt, err := p.parseStatement()
	if err != nil && err != io.EOF {
		p.err = err
	}
	return stmt, err
}

func (p *Parser) parseStatement() (ast.Statement, error) {
	if p.peek().Type == lexer.TokenEOF {
		return nil, io.EOF
	}

	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}

	return &ast.ExpressionStatement{Expression: expr}, nil
}

func (p *Parser) parseExpression() (ast.Expression, error) {
	return p.parseBinaryExpression(0)
}

// parsePrimaryExpression consumes one token and builds a number or a
// parenthesized group.
func (p *Parser) parsePrimaryExpression() (ast.Expression, error) {
	tok := p.advance()

	switch tok.Type {
	case lexer.TokenInteger:
		return &ast.NumberExpression{Span: tok.Span, Value: tok.Value}, nil

	case lexer.TokenLParen:
		if err := p.enter(tok); err != nil {
			return nil, err
		}
		p.openGroups = append(p.openGroups, tok.Span)
		inner, err := p.parseExpression()
		p.depth--
		if err != nil {
			return nil, err
		}
		p.openGroups = p.openGroups[:len(p.openGroups)-1]

		closing := p.peek()
		if closing.Type != lexer.TokenRParen {
			return nil, errors.UnterminatedGroup(closing.Span, closing.Literal, closing.Type.String(), tok.Span)
		}
		p.advance()

		return &ast.ParenthesizedExpression{Span: tok.Span.Union(closing.Span), Inner: inner}, nil

	case lexer.TokenEOF:
		if n := len(p.openGroups); n > 0 {
			return nil, errors.UnterminatedGroup(tok.Span, tok.Literal, tok.Type.String(), p.openGroups[n-1])
		}
	}

	return nil, errors.UnexpectedToken(tok.Span, tok.Literal, tok.Type.String(), "an integer or '('")
}

// parseBinaryOperator inspects, without consuming, the current token.
func (p *Parser) parseBinaryOperator() (ast.BinaryOperator, bool) {
	tok := p.peek()
	kind, ok := binaryOperators[tok.Type]
	if !ok {
		return ast.BinaryOperator{}, false
	}
	return ast.NewBinaryOperator(kind, tok.Span), true
}

// parseBinaryExpression is the precedence-climbing loop: it folds every
// operator whose precedence is at least minPrecedence into left.
func (p *Parser) parseBinaryExpression(minPrecedence int) (ast.Expression, error) {
	left, err := p.parsePrimaryExpression()
	if err != nil {
		return nil, err
	}

	for {
		operator, ok := p.parseBinaryOperator()
		if !ok || operator.Precedence < minPrecedence {
			return left, nil
		}
		if err := p.enter(p.advance()); err != nil {
			return nil, err
		}

		right, err := p.parseBinaryExpression(p.rightFloor(operator))
		p.depth--
		if err != nil {
			return nil, err
		}

		left = &ast.BinaryExpression{Left: left, Right: right, Operator: operator}
	}
}

// enter opens one nesting level for tok.
func (p *Parser) enter(tok lexer.Token) error {
	if p.depth >= p.maxDepth {
		return errors.NestingTooDeep(tok.Span, tok.Literal, p.maxDepth)
	}
	p.depth++
	return nil
}

// rightFloor returns the minimum precedence for operator's right operand.
func (p *Parser) rightFloor(operator ast.BinaryOperator) int {
	if p.associativity == RightAssociative {
		return operator.Precedence
	}
	return operator.Precedence + 1
}

// peek returns the current token without consuming it
func (p *Parser) peek() lexer.Token {
	if p.current < len(p.tokens) {
		return p.tokens[p.current]
	}
	return p.syntheticEOF()
}

// advance consumes and returns the current token
func (p *Parser) advance() lexer.Token {
	tok := p.peek()
	if p.current < len(p.tokens) {
		p.current++
	}
	return tok
}

// syntheticEOF stands in for a missing or already consumed terminator.
func (p *Parser) syntheticEOF() lexer.Token {
	var end position.Position
	if n := len(p.tokens); n > 0 {
		end = p.tokens[n-1].Span.End
	} else {
		end = position.Position{Line: 1, Column: 1}
	}
	return lexer.Token{Type: lexer.TokenEOF, Span: position.Span{Start: end, End: end}}
}
