// Package evaluator computes the integer value of parsed arith programs.
//
// The Evaluator is an ast.Visitor that threads a single int64 through the
// traversal: every expression handler leaves its result in the
// accumulator, and the binary handler saves the left operand before
// visiting the right one.
package evaluator

import (
	"fmt"
	"math"

	"github.com/orizon-lang/arith/internal/ast"
	"github.com/orizon-lang/arith/internal/errors"
)

// Arithmetic selects how results outside the int64 range are handled.
type Arithmetic int

const (
	// Checked reports ErrIntegerOverflow instead of producing a wrapped result.
	Checked Arithmetic = iota
	// Wrapping uses two's-complement wraparound.
	Wrapping
)

func (a Arithmetic) String() string {
	if a == Wrapping {
		return "wrapping"
	}
	return "checked"
}

// ParseArithmetic maps "checked"/"wrapping" to an Arithmetic.
func ParseArithmetic(s string) (Arithmetic, bool) {
	switch s {
	case "", "checked":
		return Checked, true
	case "wrapping":
		return Wrapping, true
	default:
		return Checked, false
	}
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithArithmetic sets the overflow behavior.
func WithArithmetic(mode Arithmetic) Option {
	return func(e *Evaluator) { e.arithmetic = mode }
}

// Evaluator walks a tree and computes its value.
type Evaluator struct {
	ast.BaseVisitor

	arithmetic Arithmetic
	value      int64
}

// New creates an evaluator. The zero configuration uses checked arithmetic.
func New(opts ...Option) *Evaluator {
	e := &Evaluator{}
	e.BaseVisitor = ast.NewBaseVisitor(e)
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate returns the value of the program's last statement. Every
// statement is evaluated in order, so an error in an earlier statement is
// still reported.
func (e *Evaluator) Evaluate(program *ast.Program) (int64, error) {
	values, err := e.EvaluateAll(program)
	if err != nil {
		return 0, err
	}
	if len(values) == 0 {
		return 0, errors.EmptyProgram()
	}
	return values[len(values)-1], nil
}

// EvaluateAll returns one value per statement in source order.
func (e *Evaluator) EvaluateAll(program *ast.Program) ([]int64, error) {
	values := make([]int64, 0, len(program.Statements))
	for _, stmt := range program.Statements {
		v, err := e.EvaluateStatement(stmt)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}

// EvaluateStatement computes a single statement.
func (e *Evaluator) EvaluateStatement(stmt ast.Statement) (int64, error) {
	e.value = 0
	if err := e.VisitStatement(stmt); err != nil {
		return 0, err
	}
	return e.value, nil
}

// VisitExpression dispatches to the variant handler; the result is left in
// the accumulator.
func (e *Evaluator) VisitExpression(expr ast.Expression) error {
	return ast.DispatchExpression(e, expr)
}

// VisitNumber loads the literal.
func (e *Evaluator) VisitNumber(node *ast.NumberExpression) error {
	e.value = node.Value
	return nil
}

// VisitParenthesized evaluates to the inner expression unchanged.
func (e *Evaluator) VisitParenthesized(node *ast.ParenthesizedExpression) error {
	return e.VisitExpression(node.Inner)
}

// VisitBinary evaluates left then right and combines them.
func (e *Evaluator) VisitBinary(node *ast.BinaryExpression) error {
	if err := e.VisitExpression(node.Left); err != nil {
		return err
	}
	left := e.value

	if err := e.VisitExpression(node.Right); err != nil {
		return err
	}
	right := e.value

	result, err := e.apply(node.Operator, left, right)
	if err != nil {
		return err
	}
	e.value = result
	return nil
}

func (e *Evaluator) apply(op ast.BinaryOperator, left, right int64) (int64, error) {
	switch op.Kind {
	case ast.OpAdd:
		sum := left + right
		if e.arithmetic == Checked && (left > 0 && right > 0 && sum < 0 || left < 0 && right < 0 && sum >= 0) {
			return 0, errors.IntegerOverflow(op.Span, "add", left, right)
		}
		return sum, nil

	case ast.OpSubtract:
		diff := left - right
		if e.arithmetic == Checked && (left >= 0 && right < 0 && diff < 0 || left < 0 && right > 0 && diff >= 0) {
			return 0, errors.IntegerOverflow(op.Span, "subtract", left, right)
		}
		return diff, nil

	case ast.OpMultiply:
		product := left * right
		if e.arithmetic == Checked && left != 0 && right != 0 {
			if product/right != left || (left == -1 && right == math.MinInt64) || (right == -1 && left == math.MinInt64) {
				return 0, errors.IntegerOverflow(op.Span, "multiply", left, right)
			}
		}
		return product, nil

	case ast.OpDivide:
		if right == 0 {
			return 0, errors.DivisionByZero(op.Span, left)
		}
		if left == math.MinInt64 && right == -1 {
			if e.arithmetic == Checked {
				return 0, errors.IntegerOverflow(op.Span, "divide", left, right)
			}
			return math.MinInt64, nil
		}
		return left / right, nil
	}

	return 0, fmt.Errorf("evaluator: unsupported operator %s", op.Kind)
}

// Evaluate is a convenience wrapper around New(opts...).Evaluate.
func Evaluate(program *ast.Program, opts ...Option) (int64, error) {
	return New(opts...).Evaluate(program)
}
