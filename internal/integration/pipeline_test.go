// Package integration runs sources through every stage of the interpreter
// and cross-checks the stages against each other: the formatter's output
// must parse back to the same tree, and the evaluated value must not
// depend on which of the two trees is evaluated.
package integration

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/orizon-lang/arith/internal/ast"
	"github.com/orizon-lang/arith/internal/errors"
	"github.com/orizon-lang/arith/internal/evaluator"
	"github.com/orizon-lang/arith/internal/format"
	"github.com/orizon-lang/arith/internal/lexer"
	"github.com/orizon-lang/arith/internal/parser"
)

// Stage names a step of the pipeline.
type Stage string

const (
	StageLex      Stage = "lex"
	StageParse    Stage = "parse"
	StageEvaluate Stage = "evaluate"
)

// PipelineTestCase is one source run through every stage.
type PipelineTestCase struct {
	Name        string
	Source      string
	Description string

	Associativity parser.Associativity
	Arithmetic    evaluator.Arithmetic

	// Values is checked when the pipeline succeeds.
	Values []int64
	// FailStage and Failure describe an expected failure.
	FailStage Stage
	Failure   error
}

// PipelineTestSuite runs test cases and keeps their intermediate output.
type PipelineTestSuite struct {
	testCases []PipelineTestCase
	outputDir string
}

// NewPipelineTestSuite creates a suite writing artifacts under outputDir.
func NewPipelineTestSuite(outputDir string) *PipelineTestSuite {
	return &PipelineTestSuite{outputDir: outputDir}
}

// AddTestCase adds a test case to the suite.
func (pts *PipelineTestSuite) AddTestCase(tc PipelineTestCase) {
	pts.testCases = append(pts.testCases, tc)
}

// Stage 1: single literals and one operator.
func (pts *PipelineTestSuite) AddStage1Tests() {
	pts.AddTestCase(PipelineTestCase{Name: "Stage1_Literal", Source: "42", Values: []int64{42}})
	pts.AddTestCase(PipelineTestCase{Name: "Stage1_Add", Source: "10 + 32", Values: []int64{42}})
	pts.AddTestCase(PipelineTestCase{Name: "Stage1_TruncatingDivide", Source: "10 / 3", Values: []int64{3}})
	pts.AddTestCase(PipelineTestCase{Name: "Stage1_Empty", Source: " \n\t", Values: nil})
}

// Stage 2: precedence and associativity.
func (pts *PipelineTestSuite) AddStage2Tests() {
	pts.AddTestCase(PipelineTestCase{Name: "Stage2_Precedence", Source: "2+3*4", Values: []int64{14}})
	pts.AddTestCase(PipelineTestCase{Name: "Stage2_LeftChain", Source: "10-4-3\n64/4/2", Values: []int64{3, 8}})
	pts.AddTestCase(PipelineTestCase{
		Name:          "Stage2_RightChain",
		Source:        "10-4-3\n64/4/2",
		Associativity: parser.RightAssociative,
		Values:        []int64{9, 32},
	})
	pts.AddTestCase(PipelineTestCase{Name: "Stage2_MixedChain", Source: "1 + 2 * 3 - 8 / 4", Values: []int64{5}})
}

// Stage 3: grouping and multi-statement programs.
func (pts *PipelineTestSuite) AddStage3Tests() {
	pts.AddTestCase(PipelineTestCase{Name: "Stage3_Group", Source: "(1+2)+3", Values: []int64{6}})
	pts.AddTestCase(PipelineTestCase{Name: "Stage3_GroupOverridesPrecedence", Source: "(2+3)*4", Values: []int64{20}})
	pts.AddTestCase(PipelineTestCase{Name: "Stage3_RedundantGroups", Source: "((7))", Values: []int64{7}})
	pts.AddTestCase(PipelineTestCase{Name: "Stage3_Juxtaposed", Source: "1 2 (3)", Values: []int64{1, 2, 3}})
	pts.AddTestCase(PipelineTestCase{
		Name:       "Stage3_Wrapping",
		Source:     "9223372036854775807 + 1",
		Arithmetic: evaluator.Wrapping,
		Values:     []int64{-9223372036854775808},
	})
}

// Stage 4: every failure class stops at the stage that detects it.
func (pts *PipelineTestSuite) AddStage4Tests() {
	pts.AddTestCase(PipelineTestCase{Name: "Stage4_BadCharacter", Source: "1 & 2", FailStage: StageLex, Failure: errors.ErrUnrecognizedCharacter})
	pts.AddTestCase(PipelineTestCase{Name: "Stage4_HugeLiteral", Source: "99999999999999999999", FailStage: StageLex, Failure: errors.ErrIntegerLiteralOverflow})
	pts.AddTestCase(PipelineTestCase{Name: "Stage4_Unterminated", Source: "(1+2", FailStage: StageParse, Failure: errors.ErrUnterminatedGroup})
	pts.AddTestCase(PipelineTestCase{Name: "Stage4_DanglingOperator", Source: "1 *", FailStage: StageParse, Failure: errors.ErrUnexpectedToken})
	pts.AddTestCase(PipelineTestCase{Name: "Stage4_Identifier", Source: "x + 1", FailStage: StageParse, Failure: errors.ErrUnexpectedToken})
	pts.AddTestCase(PipelineTestCase{Name: "Stage4_DivideByZero", Source: "1/0", FailStage: StageEvaluate, Failure: errors.ErrDivisionByZero})
	pts.AddTestCase(PipelineTestCase{Name: "Stage4_Overflow", Source: "9223372036854775807 + 1", FailStage: StageEvaluate, Failure: errors.ErrIntegerOverflow})
}

func TestPipelineStages(t *testing.T) {
	suite := NewPipelineTestSuite(t.TempDir())

	suite.AddStage1Tests()
	suite.AddStage2Tests()
	suite.AddStage3Tests()
	suite.AddStage4Tests()

	for _, tc := range suite.testCases {
		t.Run(tc.Name, func(t *testing.T) {
			suite.runTestCase(t, tc)
		})
	}
}

// expectFailure reports whether the stage ended the test case.
func expectFailure(t *testing.T, tc PipelineTestCase, stage Stage, err error) bool {
	t.Helper()
	if err == nil {
		if tc.FailStage == stage {
			t.Fatalf("%s stage succeeded, want %v", stage, tc.Failure)
		}
		return false
	}
	if tc.FailStage != stage {
		t.Fatalf("%s stage failed: %v", stage, err)
	}
	if !stderrors.Is(err, tc.Failure) {
		t.Fatalf("%s stage failed with %v, want %v", stage, err, tc.Failure)
	}
	return true
}

func (pts *PipelineTestSuite) runTestCase(t *testing.T, tc PipelineTestCase) {
	tokens, err := lexer.TokenizeFile(tc.Source, tc.Name)
	if expectFailure(t, tc, StageLex, err) {
		return
	}

	program, err := parser.New(tokens, parser.WithAssociativity(tc.Associativity)).ParseProgram()
	if expectFailure(t, tc, StageParse, err) {
		return
	}
	tree := format.RenderTree(program)

	// the canonical form must describe the same tree
	opts := format.DefaultOptions()
	opts.Associativity = tc.Associativity
	canonical := format.NewFormatter(opts).FormatProgram(program)
	reparsed, err := parser.Parse(canonical, parser.WithAssociativity(tc.Associativity))
	if err != nil {
		t.Fatalf("canonical form %q does not parse: %v", canonical, err)
	}
	if again := format.RenderTree(reparsed); again != tree {
		t.Fatalf("canonical form %q changed the tree:\n%s", canonical, format.UnifiedDiff(tc.Name, tree, again, 3))
	}

	values, err := evaluate(program, tc.Arithmetic)
	if expectFailure(t, tc, StageEvaluate, err) {
		return
	}
	reValues, err := evaluate(reparsed, tc.Arithmetic)
	if err != nil {
		t.Fatalf("canonical form failed to evaluate: %v", err)
	}

	if len(values) != len(tc.Values) {
		t.Fatalf("got %d values %v, want %v", len(values), values, tc.Values)
	}
	for i := range values {
		if values[i] != tc.Values[i] || reValues[i] != values[i] {
			t.Errorf("statement %d: got %d (canonical %d), want %d", i, values[i], reValues[i], tc.Values[i])
		}
	}

	pts.saveIntermediateOutputs(t, tc.Name, tree, canonical)
}

func evaluate(program *ast.Program, arithmetic evaluator.Arithmetic) ([]int64, error) {
	if len(program.Statements) == 0 {
		return nil, nil
	}
	return evaluator.New(evaluator.WithArithmetic(arithmetic)).EvaluateAll(program)
}

func (pts *PipelineTestSuite) saveIntermediateOutputs(t *testing.T, name, tree, canonical string) {
	t.Helper()
	dir := filepath.Join(pts.outputDir, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	for file, content := range map[string]string{"tree.txt": tree, "canonical.calc": canonical} {
		if err := os.WriteFile(filepath.Join(dir, file), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}
