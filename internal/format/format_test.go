package format

import (
	"bytes"
	stderrors "errors"
	"strings"
	"testing"
	"time"

	"github.com/orizon-lang/arith/internal/ast"
	"github.com/orizon-lang/arith/internal/errors"
	"github.com/orizon-lang/arith/internal/parser"
	"github.com/orizon-lang/arith/internal/testrunner"
	"github.com/orizon-lang/arith/internal/testrunner/assert"
	"github.com/orizon-lang/arith/internal/testrunner/prop"
)

func mustParse(t *testing.T, input string) *ast.Program {
	t.Helper()
	program, err := parser.Parse(input)
	if err != nil {
		t.Fatalf("Parse(%q): %v", input, err)
	}
	return program
}

func TestRenderTreeGolden(t *testing.T) {
	golden := testrunner.NewGolden(testrunner.DefaultGoldenOptions())

	tests := []struct {
		name  string
		input string
	}{
		{"tree_grouped", "(1+2)*3\n4"},
		{"tree_chain", "10 - 4 - 6 / 2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			golden.Check(t, tt.name, RenderTree(mustParse(t, tt.input)))
		})
	}
}

func TestRenderTreeSingleNumber(t *testing.T) {
	got := RenderTree(mustParse(t, "42"))
	want := "Statement:\n  Expression:\n    Number: 42\n"
	assert.Equal(t, got, want)
}

func TestRenderTreeIsIdempotent(t *testing.T) {
	program := mustParse(t, "1 + 2 * (3 - 4) / 5")
	first := RenderTree(program)
	second := RenderTree(program)
	assert.Equal(t, first, second)
	assert.Equal(t, RenderTree(ast.NewProgram()), "")
}

type failingWriter struct{ writes int }

var errDiskFull = stderrors.New("disk full")

func (w *failingWriter) Write(p []byte) (int, error) {
	w.writes++
	if w.writes > 3 {
		return 0, errDiskFull
	}
	return len(p), nil
}

func TestTreePrinterReportsWriteErrors(t *testing.T) {
	w := &failingWriter{}
	err := NewTreePrinter(w).Print(mustParse(t, "1 + 2"))
	assert.ErrorIs(t, err, errDiskFull)
}

func TestTreePrinterWritesToWriter(t *testing.T) {
	var buf bytes.Buffer
	assert.NoError(t, NewTreePrinter(&buf).Print(mustParse(t, "(7)")))
	assert.Contains(t, buf.String(), "  Expression:\n    Parenthesized Expression:\n")
}

func TestFormatSource(t *testing.T) {
	tests := []struct {
		input  string
		spaced string
		tight  string
	}{
		{"1+2*3", "1 + 2 * 3\n", "1+2*3\n"},
		{"  ( 1+2 ) *3 ", "(1 + 2) * 3\n", "(1+2)*3\n"},
		{"1 2\n\n3", "1\n2\n3\n", "1\n2\n3\n"},
		{"((4))", "((4))\n", "((4))\n"},
		{"007 / 2", "7 / 2\n", "7/2\n"},
		{"", "", ""},
	}

	for i, tt := range tests {
		spaced, err := FormatSource(tt.input, DefaultOptions())
		assert.NoError(t, err)
		assert.Equal(t, spaced, tt.spaced, i)

		tight, err := FormatSource(tt.input, Options{})
		assert.NoError(t, err)
		assert.Equal(t, tight, tt.tight, i)
	}
}

func TestFormatSourcePreservesCRLF(t *testing.T) {
	got, err := FormatSource("1+1\r\n2*2\r\n", DefaultOptions())
	assert.NoError(t, err)
	assert.Equal(t, got, "1 + 1\r\n2 * 2\r\n")

	got, err = FormatSource("1+1\r\n", Options{SpaceAroundOperators: true})
	assert.NoError(t, err)
	assert.Equal(t, got, "1 + 1\n")
}

func TestFormatSourceRejectsMalformedInput(t *testing.T) {
	got, err := FormatSource("(1 +", DefaultOptions())
	assert.ErrorIs(t, err, errors.ErrUnterminatedGroup)
	assert.Equal(t, got, "(1 +")
}

func TestFormatWithDiff(t *testing.T) {
	formatted, diff, err := FormatWithDiff("calc.txt", "1+2\n3 * 4\n", DefaultOptions())
	assert.NoError(t, err)
	assert.Equal(t, formatted, "1 + 2\n3 * 4\n")

	want := strings.Join([]string{
		"--- calc.txt\t(original)",
		"+++ calc.txt\t(formatted)",
		"@@ -1,2 +1,2 @@",
		"-1+2",
		"+1 + 2",
		" 3 * 4",
		"",
	}, "\n")
	assert.Equal(t, diff, want)

	_, diff, err = FormatWithDiff("calc.txt", "1 + 2\n", DefaultOptions())
	assert.NoError(t, err)
	assert.Equal(t, diff, "")
}

func TestDiffHunksSplitOnDistance(t *testing.T) {
	original := []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"}
	modified := append([]string(nil), original...)
	modified[0] = "A"
	modified[9] = "J"

	hunks := DiffHunks(original, modified, 1)
	if !assert.Len(t, hunks, 2) {
		return
	}
	assert.Equal(t, hunks[0].Header(), "@@ -1,2 +1,2 @@")
	assert.Equal(t, hunks[1].Header(), "@@ -9,2 +9,2 @@")

	assert.Len(t, DiffHunks(original, modified, 4), 1)
	assert.Len(t, DiffHunks(original, original, 3), 0)
}

// Formatting is a fixed point and keeps the tree: the canonical text
// parses back to the same structure and formats to itself.
func TestFormatRoundTrip(t *testing.T) {
	stable := func(e *prop.Expr) bool {
		source := e.Source()
		once, err := FormatSource(source, Options{})
		if err != nil {
			return false
		}
		twice, err := FormatSource(once, Options{})
		if err != nil || once != twice {
			return false
		}

		before, err := parser.Parse(source)
		if err != nil {
			return false
		}
		after, err := parser.Parse(once)
		if err != nil {
			return false
		}
		return before.String() == after.String()
	}

	res := prop.ForAll1(prop.GenExpr(4), prop.ShrinkExpr(), stable, prop.Options{Trials: 300, MaxShrinkTime: 2 * time.Second})
	if res.Failed {
		t.Fatalf("property failed: seed=%d input=%v shrunk=%v", res.Seed, res.FailingInput, res.ShrunkInput)
	}
}

func TestRenderTreeLimit(t *testing.T) {
	program := mustParse(t, "(1 + 2) * 3")
	full := RenderTree(program)

	got, err := RenderTreeLimit(program, len(full))
	assert.NoError(t, err)
	assert.Equal(t, got, full)

	got, err = RenderTreeLimit(program, len(full)-1)
	assert.ErrorIs(t, err, errors.ErrOutputTooLarge)
	assert.Equal(t, got, "")

	// a long chain is cut off long before its quadratic dump is built
	chain := mustParse(t, strings.Repeat("1+", 20000)+"1")
	_, err = RenderTreeLimit(chain, 1<<16)
	assert.ErrorIs(t, err, errors.ErrOutputTooLarge)
}
