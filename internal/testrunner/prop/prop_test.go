package prop

import (
	"math"
	"testing"
	"time"
)

func lit(v int64) *Expr { return &Expr{Value: v} }

func node(op byte, l, r *Expr) *Expr { return &Expr{Op: op, Left: l, Right: r} }

func TestExprSourceUsesMinimalParentheses(t *testing.T) {
	tests := []struct {
		expr *Expr
		want string
	}{
		{lit(7), "7"},
		{node('+', lit(1), node('*', lit(2), lit(3))), "1 + 2 * 3"},
		{node('*', node('+', lit(1), lit(2)), lit(3)), "(1 + 2) * 3"},
		{node('-', node('-', lit(10), lit(4)), lit(3)), "10 - 4 - 3"},
		{node('-', lit(10), node('-', lit(4), lit(3))), "10 - (4 - 3)"},
		{&Expr{Value: 5, Paren: true}, "(5)"},
	}

	for i, tt := range tests {
		if got := tt.expr.Source(); got != tt.want {
			t.Errorf("tests[%d] - Source() = %q, want %q", i, got, tt.want)
		}
	}
}

func TestExprReference(t *testing.T) {
	tests := []struct {
		expr  *Expr
		value int64
		fault Fault
	}{
		{node('+', lit(2), node('*', lit(3), lit(4))), 14, FaultNone},
		{node('/', lit(-7), lit(2)), -3, FaultNone},
		{node('/', lit(1), lit(0)), 0, FaultDivisionByZero},
		{node('+', lit(math.MaxInt64), lit(1)), 0, FaultOverflow},
		{node('*', lit(math.MaxInt64), lit(2)), 0, FaultOverflow},
		// the left operand's fault wins
		{node('+', node('/', lit(1), lit(0)), node('+', lit(math.MaxInt64), lit(1))), 0, FaultDivisionByZero},
	}

	for i, tt := range tests {
		value, fault := tt.expr.Reference()
		if value != tt.value || fault != tt.fault {
			t.Errorf("tests[%d] - Reference() = %d, %v; want %d, %v", i, value, fault, tt.value, tt.fault)
		}
	}
}

// Rendering never produces unbalanced parentheses.
func TestForAll1_BalancedSource(t *testing.T) {
	balanced := func(e *Expr) bool {
		depth := 0
		for _, c := range e.Source() {
			switch c {
			case '(':
				depth++
			case ')':
				depth--
				if depth < 0 {
					return false
				}
			}
		}
		return depth == 0
	}

	res := ForAll1(GenExpr(5), ShrinkExpr(), balanced, Options{Trials: 200, MaxShrinkTime: 2 * time.Second})
	if res.Failed {
		t.Fatalf("property failed: seed=%d input=%v shrunk=%v", res.Seed, res.FailingInput, res.ShrunkInput)
	}
}

// Negative property to exercise shrinking: every literal is below 10
// fails quickly and shrinks to a single literal.
func TestForAll1_ShrinksToLiteral(t *testing.T) {
	small := func(v int64) bool { return v < 10 }

	res := ForAll1(GenInt64(), ShrinkInt64(), small, Options{Trials: 200, Seed: 42, MaxShrinkRounds: 200})
	if !res.Failed {
		t.Fatalf("expected failure to trigger shrinking")
	}
	if shrunk := res.ShrunkInput.(int64); shrunk != 10 {
		t.Fatalf("shrunk input = %d, want 10", shrunk)
	}
}
