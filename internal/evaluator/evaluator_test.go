package evaluator

import (
	stderrors "errors"
	"math"
	"testing"
	"time"

	"github.com/orizon-lang/arith/internal/ast"
	"github.com/orizon-lang/arith/internal/errors"
	"github.com/orizon-lang/arith/internal/parser"
	"github.com/orizon-lang/arith/internal/testrunner/assert"
	"github.com/orizon-lang/arith/internal/testrunner/prop"
)

func evaluate(t *testing.T, input string, popts []parser.Option, eopts ...Option) (int64, error) {
	t.Helper()
	program, err := parser.Parse(input, popts...)
	if err != nil {
		t.Fatalf("Parse(%q): %v", input, err)
	}
	return New(eopts...).Evaluate(program)
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		input    string
		expected int64
	}{
		{"7", 7},
		{"(1+2)+3", 6},
		{"2+3*4", 14},
		{"(2+3)*4", 20},
		{"10/3", 3},
		{"10 - 4 - 3", 3},
		{"64 / 4 / 2", 8},
		{"2 * (3 + 4) / 5", 2},
		{"((((9))))", 9},
		{"1 - 2", -1},
		{"(0 - 7) / 2", -3},
		{"9223372036854775807", math.MaxInt64},
	}

	for i, tt := range tests {
		got, err := evaluate(t, tt.input, nil)
		if err != nil {
			t.Fatalf("tests[%d] - %q: unexpected error: %v", i, tt.input, err)
		}
		if got != tt.expected {
			t.Errorf("tests[%d] - %q = %d, want %d", i, tt.input, got, tt.expected)
		}
	}
}

func TestRightAssociativeEvaluation(t *testing.T) {
	right := []parser.Option{parser.WithAssociativity(parser.RightAssociative)}

	tests := []struct {
		input    string
		expected int64
	}{
		{"10 - 4 - 3", 9},
		{"64 / 4 / 2", 32},
		{"2 + 3 * 4", 14},
		{"(10 - 4) - 3", 3},
	}

	for i, tt := range tests {
		got, err := evaluate(t, tt.input, right)
		if err != nil {
			t.Fatalf("tests[%d] - %q: unexpected error: %v", i, tt.input, err)
		}
		assert.Equal(t, got, tt.expected, tt.input)
	}
}

func TestDivisionByZero(t *testing.T) {
	_, err := evaluate(t, "1 + 8 / (2 - 2)", nil)
	assert.ErrorIs(t, err, errors.ErrDivisionByZero)

	var se *errors.StandardError
	if !stderrors.As(err, &se) {
		t.Fatalf("expected *errors.StandardError, got %T", err)
	}
	// points at the '/' operator
	assert.Equal(t, se.Span.Start.Offset, 6)
	assert.Equal(t, se.Context["dividend"], any(int64(8)))
}

func TestCheckedOverflow(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"add", "9223372036854775807 + 1"},
		{"subtract", "0 - 9223372036854775807 - 2"},
		{"multiply", "4611686018427387904 * 2"},
		{"min divided by minus one", "(0 - 9223372036854775807 - 1) / (0 - 1)"},
		{"min times minus one", "(0 - 9223372036854775807 - 1) * (0 - 1)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := evaluate(t, tt.input, nil)
			assert.ErrorIs(t, err, errors.ErrIntegerOverflow)
		})
	}
}

func TestWrappingArithmetic(t *testing.T) {
	tests := []struct {
		input    string
		expected int64
	}{
		{"9223372036854775807 + 1", math.MinInt64},
		{"0 - 9223372036854775807 - 2", math.MaxInt64},
		{"(0 - 9223372036854775807 - 1) / (0 - 1)", math.MinInt64},
	}

	for i, tt := range tests {
		got, err := evaluate(t, tt.input, nil, WithArithmetic(Wrapping))
		if err != nil {
			t.Fatalf("tests[%d] - %q: unexpected error: %v", i, tt.input, err)
		}
		assert.Equal(t, got, tt.expected, tt.input)
	}

	// division by zero is never wrapped
	_, err := evaluate(t, "1/0", nil, WithArithmetic(Wrapping))
	assert.ErrorIs(t, err, errors.ErrDivisionByZero)
}

func TestEmptyProgram(t *testing.T) {
	_, err := New().Evaluate(ast.NewProgram())
	assert.ErrorIs(t, err, errors.ErrEmptyProgram)

	values, err := New().EvaluateAll(ast.NewProgram())
	assert.NoError(t, err)
	assert.Len(t, values, 0)
}

func TestEvaluateAllKeepsStatementOrder(t *testing.T) {
	program, err := parser.Parse("1 + 1\n2 * 3\n(9)")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	values, err := New().EvaluateAll(program)
	assert.NoError(t, err)
	assert.SliceEqual(t, values, []int64{2, 6, 9})

	last, err := Evaluate(program)
	assert.NoError(t, err)
	assert.Equal(t, last, int64(9))
}

func TestEvaluateAllStopsAtFirstError(t *testing.T) {
	program, err := parser.Parse("1\n2/0\n3")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	values, err := New().EvaluateAll(program)
	assert.ErrorIs(t, err, errors.ErrDivisionByZero)
	assert.Nil(t, values)
}

func TestEvaluatorIsReusable(t *testing.T) {
	e := New()
	for _, input := range []string{"1+2", "3*4"} {
		program, err := parser.Parse(input)
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if _, err := e.Evaluate(program); err != nil {
			t.Fatalf("%q: %v", input, err)
		}
	}

	program, _ := parser.Parse("5")
	v, err := e.EvaluateStatement(program.Statements[0])
	assert.NoError(t, err)
	assert.Equal(t, v, int64(5))
}

func TestParseArithmetic(t *testing.T) {
	for input, want := range map[string]Arithmetic{"": Checked, "checked": Checked, "wrapping": Wrapping} {
		got, ok := ParseArithmetic(input)
		assert.True(t, ok, input)
		assert.Equal(t, got, want, input)
	}
	_, ok := ParseArithmetic("saturating")
	assert.False(t, ok)
}

// The evaluator agrees with an independent reference computation on
// randomly generated trees, including where they overflow or divide by
// zero.
func TestEvaluatorMatchesReference(t *testing.T) {
	agrees := func(e *prop.Expr) bool {
		program, err := parser.Parse(e.Source())
		if err != nil {
			return false
		}
		got, err := New().Evaluate(program)

		want, fault := e.Reference()
		switch fault {
		case prop.FaultOverflow:
			return stderrors.Is(err, errors.ErrIntegerOverflow)
		case prop.FaultDivisionByZero:
			return stderrors.Is(err, errors.ErrDivisionByZero)
		}
		return err == nil && got == want
	}

	res := prop.ForAll1(prop.GenExpr(5), prop.ShrinkExpr(), agrees, prop.Options{Trials: 500, MaxShrinkTime: 2 * time.Second})
	if res.Failed {
		t.Fatalf("property failed: seed=%d input=%v shrunk=%v", res.Seed, res.FailingInput, res.ShrunkInput)
	}
}
