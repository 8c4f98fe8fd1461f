package diagnostic

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/orizon-lang/arith/internal/errors"
	"github.com/orizon-lang/arith/internal/evaluator"
	"github.com/orizon-lang/arith/internal/parser"
	"github.com/orizon-lang/arith/internal/position"
	"github.com/orizon-lang/arith/internal/testrunner/assert"
)

func TestRenderDivisionByZero(t *testing.T) {
	source := "1 + 8 / (2 - 2)"
	program, err := parser.Parse(source)
	assert.NoError(t, err)
	_, err = evaluator.Evaluate(program)

	diag := FromError(err)
	assert.Equal(t, diag.Code, "DIVISION_BY_ZERO")
	assert.Equal(t, diag.Category, errors.CategoryArithmetic)

	want := strings.Join([]string{
		"error[DIVISION_BY_ZERO]: division by zero (8 / 0)",
		"  --> 1:7",
		"   1 | 1 + 8 / (2 - 2)",
		"     |       ^",
		"",
	}, "\n")
	assert.Equal(t, diag.Render(position.NewSourceFile("", source)), want)
}

func TestRenderUnterminatedGroupNotesOpenParen(t *testing.T) {
	source := "(1 + 2"
	_, err := parser.Parse(source)

	diag := FromError(err)
	if !assert.Len(t, diag.Related, 1) {
		return
	}

	want := strings.Join([]string{
		"error[UNTERMINATED_GROUP]: expected ')' to close '(' opened at 1:1, found end of input",
		"  --> 1:7",
		"   1 | (1 + 2",
		"     |       ^",
		"  note: group opened here at 1:1",
		"   1 | (1 + 2",
		"     | ^",
		"",
	}, "\n")
	assert.Equal(t, diag.Render(position.NewSourceFile("", source)), want)
}

func TestFromPlainError(t *testing.T) {
	diag := FromError(fmt.Errorf("read calc.txt: permission denied"))
	assert.Equal(t, diag.Code, "INTERNAL")
	assert.Nil(t, diag.Location)
	assert.Equal(t, diag.Render(nil), "error[INTERNAL]: read calc.txt: permission denied\n")
}

func TestDiagnosticJSON(t *testing.T) {
	_, err := parser.ParseFile("1 + )", "calc.txt")
	data, jerr := json.Marshal(FromError(err))
	assert.NoError(t, jerr)

	var decoded struct {
		Level    string `json:"level"`
		Category string `json:"category"`
		Code     string `json:"code"`
		Location struct {
			File   string `json:"file"`
			Line   int    `json:"line"`
			Column int    `json:"column"`
			Offset int    `json:"offset"`
			Length int    `json:"length"`
		} `json:"location"`
	}
	assert.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, decoded.Level, "error")
	assert.Equal(t, decoded.Category, "SYNTAX")
	assert.Equal(t, decoded.Code, "UNEXPECTED_TOKEN")
	assert.Equal(t, decoded.Location.File, "calc.txt")
	assert.Equal(t, decoded.Location.Column, 5)
	assert.Equal(t, decoded.Location.Length, 1)
}

func TestEngineSortsAndSummarizes(t *testing.T) {
	engine := NewDiagnosticEngine(0)

	b := position.NewSourceFile("b.calc", "1/0")
	a := position.NewSourceFile("a.calc", "(")
	engine.AddSource(a)
	engine.AddSource(b)

	_, errB := evaluatorRun(t, b)
	_, errA := parser.ParseFile(a.Content, a.Filename)
	engine.AddError(errB)
	engine.AddError(errA)
	engine.AddDiagnostic(NewDiagnostic().Warning().Message("deprecated config key").Build())

	assert.True(t, engine.HasErrors())
	assert.Equal(t, engine.ErrorCount(), 2)

	diags := engine.Diagnostics()
	assert.Equal(t, diags[0].Level, DiagnosticWarning)
	assert.Equal(t, diags[1].Span.Start.Filename, "a.calc")
	assert.Equal(t, diags[2].Span.Start.Filename, "b.calc")

	out := engine.FormatDiagnostics()
	assert.Contains(t, out, "  --> a.calc:1:2\n")
	assert.Contains(t, out, "   1 | 1/0\n")
	assert.True(t, strings.HasSuffix(out, "\n2 errors, 1 warning\n"), out)
}

func TestEngineMaxErrors(t *testing.T) {
	engine := NewDiagnosticEngine(1)
	engine.AddError(errors.EmptyProgram())
	engine.AddError(errors.EmptyProgram())
	assert.Equal(t, engine.ErrorCount(), 1)
	assert.Equal(t, NewDiagnosticEngine(0).FormatDiagnostics(), "")
}

func evaluatorRun(t *testing.T, file *position.SourceFile) (int64, error) {
	t.Helper()
	program, err := parser.ParseFile(file.Content, file.Filename)
	if err != nil {
		t.Fatalf("parse %s: %v", file.Filename, err)
	}
	return evaluator.Evaluate(program)
}
