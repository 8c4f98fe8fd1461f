package prop

import (
	"math"
	"math/rand"
	"strconv"
	"strings"
)

// GenInt64 returns a non-negative generator whose magnitude is guided by
// size. About one draw in eight ignores size and spans the full range so
// that overflow paths are reachable.
func GenInt64() Generator[int64] {
	return func(r *rand.Rand, size int) int64 {
		if r.Intn(8) == 0 {
			return r.Int63()
		}
		if size <= 0 {
			size = 30
		}
		bound := int64(1) << uint(min(size, 62))
		return r.Int63n(bound)
	}
}

// ShrinkInt64 reduces magnitude toward zero.
func ShrinkInt64() Shrinker[int64] {
	return func(v int64) []int64 {
		if v == 0 {
			return nil
		}
		out := []int64{0, v / 2}
		if v > 0 {
			out = append(out, v-1)
		} else {
			out = append(out, v+1)
		}
		uniq := make(map[int64]struct{}, len(out))
		res := make([]int64, 0, len(out))
		for _, x := range out {
			if x == v {
				continue
			}
			if _, ok := uniq[x]; !ok {
				uniq[x] = struct{}{}
				res = append(res, x)
			}
		}
		return res
	}
}

// Fault is the first failure met while computing an Expr.
type Fault int

const (
	FaultNone Fault = iota
	FaultOverflow
	FaultDivisionByZero
)

// Expr is a generated arithmetic tree with an independent reference
// semantics. Op is 0 for a literal.
type Expr struct {
	Op          byte
	Value       int64
	Left, Right *Expr
	Paren       bool // wrap in redundant parentheses when rendered
}

func precedence(op byte) int {
	switch op {
	case '*', '/':
		return 2
	case '+', '-':
		return 1
	}
	return 3
}

// Source renders the tree as source text with the minimum parentheses a
// left-associative parser needs, plus any redundant ones marked by Paren.
func (e *Expr) Source() string {
	var b strings.Builder
	e.render(&b, 0, false)
	return b.String()
}

func (e *Expr) render(b *strings.Builder, parent int, rightOperand bool) {
	prec := precedence(e.Op)
	wrap := e.Paren || prec < parent || (rightOperand && prec == parent)
	if wrap {
		b.WriteByte('(')
	}
	if e.Op == 0 {
		b.WriteString(strconv.FormatInt(e.Value, 10))
	} else {
		e.Left.render(b, prec, false)
		b.WriteByte(' ')
		b.WriteByte(e.Op)
		b.WriteByte(' ')
		e.Right.render(b, prec, true)
	}
	if wrap {
		b.WriteByte(')')
	}
}

// Reference computes the tree left operand first, then right operand,
// then the node, stopping at the first fault. Division truncates toward
// zero.
func (e *Expr) Reference() (int64, Fault) {
	if e.Op == 0 {
		return e.Value, FaultNone
	}
	left, fault := e.Left.Reference()
	if fault != FaultNone {
		return 0, fault
	}
	right, fault := e.Right.Reference()
	if fault != FaultNone {
		return 0, fault
	}

	switch e.Op {
	case '+':
		if (right > 0 && left > math.MaxInt64-right) || (right < 0 && left < math.MinInt64-right) {
			return 0, FaultOverflow
		}
		return left + right, FaultNone
	case '-':
		if (right < 0 && left > math.MaxInt64+right) || (right > 0 && left < math.MinInt64+right) {
			return 0, FaultOverflow
		}
		return left - right, FaultNone
	case '*':
		if left == 0 || right == 0 {
			return 0, FaultNone
		}
		if product := left * right; product/right != left ||
			(left == -1 && right == math.MinInt64) || (right == -1 && left == math.MinInt64) {
			return 0, FaultOverflow
		}
		return left * right, FaultNone
	default:
		if right == 0 {
			return 0, FaultDivisionByZero
		}
		if left == math.MinInt64 && right == -1 {
			return 0, FaultOverflow
		}
		return left / right, FaultNone
	}
}

func (e *Expr) String() string { return e.Source() }

// GenExpr returns a generator of trees no deeper than maxDepth.
func GenExpr(maxDepth int) Generator[*Expr] {
	literal := GenInt64()
	ops := []byte{'+', '-', '*', '/'}

	var gen func(r *rand.Rand, size, depth int) *Expr
	gen = func(r *rand.Rand, size, depth int) *Expr {
		if depth >= maxDepth || r.Intn(3) == 0 {
			return &Expr{Value: literal(r, size), Paren: r.Intn(10) == 0}
		}
		return &Expr{
			Op:    ops[r.Intn(len(ops))],
			Left:  gen(r, size, depth+1),
			Right: gen(r, size, depth+1),
			Paren: r.Intn(6) == 0,
		}
	}

	return func(r *rand.Rand, size int) *Expr {
		return gen(r, size, 0)
	}
}

// ShrinkExpr proposes each operand on its own, the node without redundant
// parentheses, and smaller literals.
func ShrinkExpr() Shrinker[*Expr] {
	shrinkLiteral := ShrinkInt64()
	return func(e *Expr) []*Expr {
		var out []*Expr
		if e.Paren {
			c := *e
			c.Paren = false
			out = append(out, &c)
		}
		if e.Op == 0 {
			for _, v := range shrinkLiteral(e.Value) {
				out = append(out, &Expr{Value: v, Paren: e.Paren})
			}
			return out
		}
		return append(out, e.Left, e.Right)
	}
}
