// Package format renders arith trees: an indented structural dump for
// diagnostics and canonical source text for the formatter.
package format

import (
	"fmt"
	"io"
	"strings"

	"github.com/orizon-lang/arith/internal/ast"
	"github.com/orizon-lang/arith/internal/errors"
)

// TreeIndent is the indentation added per nesting level.
const TreeIndent = "  "

// TreePrinter is a visitor that writes one line per node, indented by
// depth. Every handler is overridden; nothing falls through to the
// default recursion.
type TreePrinter struct {
	ast.BaseVisitor

	out   io.Writer
	depth int
	err   error
}

// NewTreePrinter creates a printer writing to out.
func NewTreePrinter(out io.Writer) *TreePrinter {
	p := &TreePrinter{out: out}
	p.BaseVisitor = ast.NewBaseVisitor(p)
	return p
}

// Print writes the whole program.
func (p *TreePrinter) Print(program *ast.Program) error {
	if err := ast.Walk(p, program); err != nil {
		return err
	}
	return p.err
}

func (p *TreePrinter) line(format string, args ...interface{}) error {
	if p.err != nil {
		return p.err
	}
	if _, p.err = io.WriteString(p.out, strings.Repeat(TreeIndent, p.depth)); p.err != nil {
		return p.err
	}
	_, p.err = fmt.Fprintf(p.out, format+"\n", args...)
	return p.err
}

// nested runs fn one level deeper.
func (p *TreePrinter) nested(fn func() error) error {
	p.depth++
	defer func() { p.depth-- }()
	return fn()
}

func (p *TreePrinter) VisitStatement(stmt ast.Statement) error {
	if err := p.line("Statement:"); err != nil {
		return err
	}
	return p.nested(func() error { return ast.DispatchStatement(p, stmt) })
}

func (p *TreePrinter) VisitExpression(expr ast.Expression) error {
	if err := p.line("Expression:"); err != nil {
		return err
	}
	return p.nested(func() error { return ast.DispatchExpression(p, expr) })
}

func (p *TreePrinter) VisitNumber(node *ast.NumberExpression) error {
	return p.line("Number: %d", node.Value)
}

func (p *TreePrinter) VisitBinary(node *ast.BinaryExpression) error {
	if err := p.line("Binary Expression:"); err != nil {
		return err
	}
	return p.nested(func() error {
		if err := p.line("Operator: %s", node.Operator); err != nil {
			return err
		}
		if err := p.VisitExpression(node.Left); err != nil {
			return err
		}
		return p.VisitExpression(node.Right)
	})
}

func (p *TreePrinter) VisitParenthesized(node *ast.ParenthesizedExpression) error {
	if err := p.line("Parenthesized Expression:"); err != nil {
		return err
	}
	return p.nested(func() error { return p.VisitExpression(node.Inner) })
}

// RenderTree returns the structural dump of program. A fresh printer is
// used for every call, so rendering the same program twice yields
// identical text.
func RenderTree(program *ast.Program) string {
	var b strings.Builder
	// strings.Builder never fails
	_ = NewTreePrinter(&b).Print(program)
	return b.String()
}

// RenderTreeLimit is RenderTree for untrusted input: it stops writing once
// the dump would exceed limit bytes and returns an OUTPUT_TOO_LARGE error.
// The dump grows with the square of the nesting depth, so a small source
// can still produce an enormous tree.
func RenderTreeLimit(program *ast.Program, limit int) (string, error) {
	b := &cappedBuilder{limit: limit}
	if err := NewTreePrinter(b).Print(program); err != nil {
		return "", err
	}
	return b.String(), nil
}

type cappedBuilder struct {
	strings.Builder
	limit int
}

func (b *cappedBuilder) Write(p []byte) (int, error) {
	if b.Len()+len(p) > b.limit {
		return 0, errors.OutputTooLarge("syntax tree", b.limit)
	}
	return b.Builder.Write(p)
}

func (b *cappedBuilder) WriteString(s string) (int, error) {
	if b.Len()+len(s) > b.limit {
		return 0, errors.OutputTooLarge("syntax tree", b.limit)
	}
	return b.Builder.WriteString(s)
}
