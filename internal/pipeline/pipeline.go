// Package pipeline runs source text through every arith stage: lexing,
// parsing, evaluation and tree rendering. It is the single entry point
// used by the command line, the watcher and the HTTP/3 service.
package pipeline

import (
	"context"
	"fmt"
	"io"

	"github.com/orizon-lang/arith/internal/ast"
	"github.com/orizon-lang/arith/internal/cli"
	"github.com/orizon-lang/arith/internal/evaluator"
	"github.com/orizon-lang/arith/internal/format"
	"github.com/orizon-lang/arith/internal/lexer"
	"github.com/orizon-lang/arith/internal/parser"
	"github.com/orizon-lang/arith/internal/position"
)

// Result holds the output of every stage for one source.
type Result struct {
	Name    string
	Source  *position.SourceFile
	Tokens  []lexer.Token
	Program *ast.Program
	Values  []int64 // one per statement
	Tree    string  // only filled when requested with WithTree
}

// Last returns the value of the final statement.
func (r *Result) Last() (int64, bool) {
	if len(r.Values) == 0 {
		return 0, false
	}
	return r.Values[len(r.Values)-1], true
}

func (r *Result) sourceOnly() *Result {
	return &Result{Name: r.Name, Source: r.Source}
}

// Runner executes the pipeline with a fixed configuration.
type Runner struct {
	config *cli.Config
	logger *cli.Logger
	tree   bool
	limit  int // tree size budget in bytes, 0 for none
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithLogger routes stage logging to logger.
func WithLogger(logger *cli.Logger) RunnerOption {
	return func(r *Runner) { r.logger = logger }
}

// WithTree also renders the structural dump into Result.Tree.
func WithTree() RunnerOption {
	return func(r *Runner) { r.tree = true }
}

// WithTreeLimit is WithTree with the dump capped at limit bytes; a larger
// tree fails the run with OUTPUT_TOO_LARGE.
func WithTreeLimit(limit int) RunnerOption {
	return func(r *Runner) { r.tree, r.limit = true, limit }
}

// New creates a Runner. A nil config means cli.DefaultConfig().
func New(config *cli.Config, opts ...RunnerOption) *Runner {
	if config == nil {
		config = cli.DefaultConfig()
	}
	r := &Runner{config: config}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = cli.NewLogger(config.Verbose, config.Debug)
	}
	return r
}

// Config returns the configuration the runner was built with.
func (r *Runner) Config() *cli.Config { return r.config }

// Run lexes and parses all of source, then evaluates each statement. name
// labels spans and logs; it is usually a file path. The context is checked
// between statements. On failure the returned Result carries only Name and
// Source, so callers can render diagnostics without seeing partial values.
func (r *Runner) Run(ctx context.Context, name, source string) (*Result, error) {
	result := &Result{Name: name, Source: position.NewSourceFile(name, source)}

	tokens, err := lexer.TokenizeFile(source, name)
	if err != nil {
		return result.sourceOnly(), err
	}
	result.Tokens = tokens
	r.logger.Debug("%s: %d tokens", displayName(name), len(tokens))

	p := parser.New(tokens, r.config.ParserOptions()...)
	program := ast.NewProgram()
	for {
		if err := ctx.Err(); err != nil {
			return result.sourceOnly(), err
		}
		stmt, err := p.NextStatement()
		if err == io.EOF {
			break
		}
		if err != nil {
			return result.sourceOnly(), err
		}
		program.AddStatement(stmt)
	}
	result.Program = program
	r.logger.Debug("%s: %d statements", displayName(name), len(program.Statements))

	eval := evaluator.New(r.config.EvaluatorOptions()...)
	for _, stmt := range program.Statements {
		if err := ctx.Err(); err != nil {
			return result.sourceOnly(), err
		}
		value, err := eval.EvaluateStatement(stmt)
		if err != nil {
			return result.sourceOnly(), err
		}
		result.Values = append(result.Values, value)
	}

	switch {
	case r.tree && r.limit > 0:
		tree, err := format.RenderTreeLimit(program, r.limit)
		if err != nil {
			return result.sourceOnly(), err
		}
		result.Tree = tree
	case r.tree:
		result.Tree = format.RenderTree(program)
	}

	r.logger.Info("evaluated %s", displayName(name))
	return result, nil
}

// Run is New(config).Run(ctx, name, source).
func Run(ctx context.Context, name, source string, config *cli.Config) (*Result, error) {
	return New(config).Run(ctx, name, source)
}

func displayName(name string) string {
	if name == "" {
		return "<input>"
	}
	return name
}

// FormatValues renders values one per line.
func FormatValues(values []int64) string {
	out := make([]byte, 0, len(values)*4)
	for _, v := range values {
		out = fmt.Appendf(out, "%d\n", v)
	}
	return string(out)
}
