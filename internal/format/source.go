package format

import (
	"strings"

	"github.com/orizon-lang/arith/internal/ast"
	"github.com/orizon-lang/arith/internal/parser"
)

// Options controls formatting style.
type Options struct {
	// SpaceAroundOperators writes "1 + 2" instead of "1+2".
	SpaceAroundOperators bool
	// PreserveNewlineStyle keeps CRLF output when the input used CRLF.
	PreserveNewlineStyle bool
	// Associativity must match the parser that will read the output back.
	Associativity parser.Associativity
}

// DefaultOptions returns sane defaults.
func DefaultOptions() Options {
	return Options{SpaceAroundOperators: true, PreserveNewlineStyle: true}
}

// Formatter is a visitor that renders canonical source. Only the
// parentheses present in the tree are written, so the output parses back
// to the same tree.
type Formatter struct {
	ast.BaseVisitor

	options Options
	buffer  strings.Builder
}

// NewFormatter creates a formatter with the given options.
func NewFormatter(options Options) *Formatter {
	f := &Formatter{options: options}
	f.BaseVisitor = ast.NewBaseVisitor(f)
	return f
}

// FormatStatement renders a single statement without a line terminator.
func (f *Formatter) FormatStatement(stmt ast.Statement) string {
	f.buffer.Reset()
	// writes to a strings.Builder cannot fail
	_ = f.VisitStatement(stmt)
	return f.buffer.String()
}

// FormatProgram renders one statement per line with a trailing newline.
// An empty program renders as the empty string.
func (f *Formatter) FormatProgram(program *ast.Program) string {
	lines := make([]string, 0, len(program.Statements))
	for _, stmt := range program.Statements {
		lines = append(lines, f.FormatStatement(stmt))
	}
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

func (f *Formatter) VisitNumber(node *ast.NumberExpression) error {
	f.buffer.WriteString(node.String())
	return nil
}

func (f *Formatter) VisitBinary(node *ast.BinaryExpression) error {
	if err := f.VisitExpression(node.Left); err != nil {
		return err
	}
	if f.options.SpaceAroundOperators {
		f.buffer.WriteString(" " + node.Operator.Kind.Symbol() + " ")
	} else {
		f.buffer.WriteString(node.Operator.Kind.Symbol())
	}
	return f.VisitExpression(node.Right)
}

func (f *Formatter) VisitParenthesized(node *ast.ParenthesizedExpression) error {
	f.buffer.WriteByte('(')
	if err := f.VisitExpression(node.Inner); err != nil {
		return err
	}
	f.buffer.WriteByte(')')
	return nil
}

// FormatSource parses text and returns its canonical rendering. Malformed
// input is returned unchanged together with the parse error.
func FormatSource(text string, options Options) (string, error) {
	program, err := parser.Parse(text, parser.WithAssociativity(options.Associativity))
	if err != nil {
		return text, err
	}

	formatted := NewFormatter(options).FormatProgram(program)
	if options.PreserveNewlineStyle && strings.Contains(text, "\r\n") {
		formatted = strings.ReplaceAll(formatted, "\n", "\r\n")
	}
	return formatted, nil
}

// FormatWithDiff formats source and returns both the formatted text and a
// unified diff against the input. The diff is empty when nothing changed.
func FormatWithDiff(filename, source string, options Options) (formatted string, diff string, err error) {
	formatted, err = FormatSource(source, options)
	if err != nil {
		return source, "", err
	}

	if formatted != source {
		diff = UnifiedDiff(filename, source, formatted, 3)
	}
	return formatted, diff, nil
}
