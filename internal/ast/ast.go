// Package ast defines the syntax tree for arith programs.
//
// A Program is an ordered list of statements. The only statement kind is
// the expression statement; expressions are a closed set of three node
// types (number, binary, parenthesized). Every edge in the tree is owned
// by exactly one parent and the tree is never mutated after parsing.
package ast

import (
	"fmt"
	"strings"

	"github.com/orizon-lang/arith/internal/position"
)

// Node is the base interface for all tree nodes
type Node interface {
	// GetSpan returns the source span covered by this node
	GetSpan() position.Span
	// String returns a compact, fully parenthesized rendering
	String() string
	// Accept dispatches to the matching Visitor handler
	Accept(visitor Visitor) error
}

// Statement represents all statement nodes
type Statement interface {
	Node
	statementNode()
}

// Expression represents all expression nodes
type Expression interface {
	Node
	expressionNode()
}

// ===== Program Structure =====

// Program represents the root of the tree
type Program struct {
	Statements []Statement // In source order, which is also evaluation order
}

// NewProgram creates an empty program.
func NewProgram() *Program {
	return &Program{Statements: make([]Statement, 0, 1)}
}

// AddStatement appends a statement, preserving source order.
func (p *Program) AddStatement(stmt Statement) {
	p.Statements = append(p.Statements, stmt)
}

// GetSpan returns the span from the first to the last statement.
func (p *Program) GetSpan() position.Span {
	if len(p.Statements) == 0 {
		return position.Span{}
	}
	first := p.Statements[0].GetSpan()
	return first.Union(p.Statements[len(p.Statements)-1].GetSpan())
}

func (p *Program) String() string {
	parts := make([]string, 0, len(p.Statements))
	for _, stmt := range p.Statements {
		parts = append(parts, stmt.String())
	}
	return strings.Join(parts, "\n")
}

// ===== Statements =====

// ExpressionStatement wraps a single expression.
type ExpressionStatement struct {
	Expression Expression
}

func (e *ExpressionStatement) GetSpan() position.Span { return e.Expression.GetSpan() }
func (e *ExpressionStatement) statementNode()         {}
func (e *ExpressionStatement) String() string         { return e.Expression.String() }
func (e *ExpressionStatement) Accept(visitor Visitor) error {
	return visitor.VisitStatement(e)
}

// ===== Expressions =====

// NumberExpression is a 64-bit signed integer literal.
type NumberExpression struct {
	Span  position.Span
	Value int64
}

func (n *NumberExpression) GetSpan() position.Span       { return n.Span }
func (n *NumberExpression) expressionNode()              {}
func (n *NumberExpression) String() string               { return fmt.Sprintf("%d", n.Value) }
func (n *NumberExpression) Accept(visitor Visitor) error { return visitor.VisitNumber(n) }

// BinaryExpression applies Operator to Left and Right.
type BinaryExpression struct {
	Left     Expression
	Right    Expression
	Operator BinaryOperator
}

func (b *BinaryExpression) GetSpan() position.Span {
	return b.Left.GetSpan().Union(b.Right.GetSpan())
}
func (b *BinaryExpression) expressionNode() {}
func (b *BinaryExpression) String() string {
	return fmt.Sprintf("(%s %s %s)", b.Left.String(), b.Operator.Kind.Symbol(), b.Right.String())
}
func (b *BinaryExpression) Accept(visitor Visitor) error { return visitor.VisitBinary(b) }

// ParenthesizedExpression records explicit grouping in the source. It
// evaluates to its inner expression unchanged.
type ParenthesizedExpression struct {
	Span  position.Span // From '(' through ')'
	Inner Expression
}

func (p *ParenthesizedExpression) GetSpan() position.Span { return p.Span }
func (p *ParenthesizedExpression) expressionNode()        {}
func (p *ParenthesizedExpression) String() string {
	return "(" + p.Inner.String() + ")"
}
func (p *ParenthesizedExpression) Accept(visitor Visitor) error {
	return visitor.VisitParenthesized(p)
}

// ===== Operators =====

// OperatorKind enumerates the binary operators.
type OperatorKind int

const (
	OpAdd OperatorKind = iota
	OpSubtract
	OpMultiply
	OpDivide
)

var operatorNames = [...]string{
	OpAdd:      "Add",
	OpSubtract: "Subtract",
	OpMultiply: "Multiply",
	OpDivide:   "Divide",
}

var operatorSymbols = [...]string{
	OpAdd:      "+",
	OpSubtract: "-",
	OpMultiply: "*",
	OpDivide:   "/",
}

func (k OperatorKind) String() string {
	if k < 0 || int(k) >= len(operatorNames) {
		return fmt.Sprintf("OperatorKind(%d)", int(k))
	}
	return operatorNames[k]
}

// Symbol returns the source spelling of the operator.
func (k OperatorKind) Symbol() string {
	if k < 0 || int(k) >= len(operatorSymbols) {
		return "?"
	}
	return operatorSymbols[k]
}

// Precedence returns the fixed binding strength of the operator; higher
// binds tighter.
func (k OperatorKind) Precedence() int {
	switch k {
	case OpMultiply, OpDivide:
		return 2
	default:
		return 1
	}
}

// BinaryOperator describes an operator occurrence. It is a plain value;
// Precedence always equals Kind.Precedence().
type BinaryOperator struct {
	Kind       OperatorKind
	Precedence int
	Span       position.Span // The operator token
}

// NewBinaryOperator builds an operator whose precedence is derived from kind.
func NewBinaryOperator(kind OperatorKind, span position.Span) BinaryOperator {
	return BinaryOperator{Kind: kind, Precedence: kind.Precedence(), Span: span}
}

func (o BinaryOperator) String() string { return o.Kind.String() }
