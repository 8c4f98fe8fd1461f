package ast

import "fmt"

// Visitor is the traversal contract shared by every tree consumer.
// Handlers return an error to abort the walk; the error is passed back
// unchanged to the caller of Walk.
type Visitor interface {
	VisitStatement(stmt Statement) error
	VisitExpression(expr Expression) error
	VisitNumber(node *NumberExpression) error
	VisitBinary(node *BinaryExpression) error
	VisitParenthesized(node *ParenthesizedExpression) error
}

// BaseVisitor provides the default structural recursion for every handler.
// Concrete visitors embed it, bind themselves with NewBaseVisitor, and
// override only the handlers they care about; the defaults call back into
// the outer visitor so overrides are honored at every depth.
type BaseVisitor struct {
	outer Visitor
}

// NewBaseVisitor returns a BaseVisitor whose defaults dispatch to outer.
func NewBaseVisitor(outer Visitor) BaseVisitor {
	return BaseVisitor{outer: outer}
}

func (b *BaseVisitor) self() Visitor {
	if b.outer == nil {
		return b
	}
	return b.outer
}

// VisitStatement visits the statement's expression.
func (b *BaseVisitor) VisitStatement(stmt Statement) error {
	return DispatchStatement(b.self(), stmt)
}

// VisitExpression hands the expression to its variant handler.
func (b *BaseVisitor) VisitExpression(expr Expression) error {
	return DispatchExpression(b.self(), expr)
}

// VisitNumber is a leaf; the default does nothing.
func (b *BaseVisitor) VisitNumber(node *NumberExpression) error { return nil }

// VisitBinary visits the left operand, then the right.
func (b *BaseVisitor) VisitBinary(node *BinaryExpression) error {
	v := b.self()
	if err := v.VisitExpression(node.Left); err != nil {
		return err
	}
	return v.VisitExpression(node.Right)
}

// VisitParenthesized visits the inner expression.
func (b *BaseVisitor) VisitParenthesized(node *ParenthesizedExpression) error {
	return b.self().VisitExpression(node.Inner)
}

// DispatchStatement is the default statement handler body, exported so
// that an overriding handler can wrap it.
func DispatchStatement(v Visitor, stmt Statement) error {
	switch s := stmt.(type) {
	case *ExpressionStatement:
		return v.VisitExpression(s.Expression)
	default:
		return fmt.Errorf("ast: unsupported statement %T", stmt)
	}
}

// DispatchExpression is the default expression handler body: it selects
// the variant handler for expr.
func DispatchExpression(v Visitor, expr Expression) error {
	if expr == nil {
		return fmt.Errorf("ast: nil expression")
	}
	return expr.Accept(v)
}

// Walk visits the program's statements in order and stops at the first
// error.
func Walk(v Visitor, program *Program) error {
	for _, stmt := range program.Statements {
		if err := v.VisitStatement(stmt); err != nil {
			return err
		}
	}
	return nil
}
