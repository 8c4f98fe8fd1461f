// Package testrunner provides golden-file comparison for tests that pin
// rendered output.
package testrunner

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// UpdateEnv names the environment variable that rewrites golden files
// instead of comparing against them.
const UpdateEnv = "ARITH_UPDATE_GOLDEN"

// GoldenOptions controls golden file behavior.
type GoldenOptions struct {
	BaseDir string // directory holding *.golden files
	Update  bool   // write actual output instead of comparing
}

// DefaultGoldenOptions returns options rooted at testdata/, with Update
// taken from the environment.
func DefaultGoldenOptions() GoldenOptions {
	return GoldenOptions{
		BaseDir: "testdata",
		Update:  os.Getenv(UpdateEnv) != "",
	}
}

// Golden compares rendered output against files on disk.
type Golden struct {
	options GoldenOptions
}

// NewGolden creates a golden file checker.
func NewGolden(options GoldenOptions) *Golden {
	return &Golden{options: options}
}

// Path returns the file backing the named golden.
func (g *Golden) Path(name string) string {
	return filepath.Join(g.options.BaseDir, sanitize(name)+".golden")
}

// Verify compares actual with the stored golden. In update mode it writes
// actual and reports a match.
func (g *Golden) Verify(name, actual string) (bool, string, error) {
	path := g.Path(name)

	if g.options.Update {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return false, "", fmt.Errorf("failed to create golden directory: %w", err)
		}
		if err := os.WriteFile(path, []byte(actual), 0o644); err != nil {
			return false, "", fmt.Errorf("failed to write golden file %s: %w", path, err)
		}
		return true, "", nil
	}

	expected, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, "", fmt.Errorf("golden file %s does not exist; rerun with %s=1 to create it", path, UpdateEnv)
	} else if err != nil {
		return false, "", fmt.Errorf("failed to read golden file %s: %w", path, err)
	}

	// Golden files checked out on Windows may carry CRLF line endings.
	want := strings.ReplaceAll(string(expected), "\r\n", "\n")
	if actual == want {
		return true, "", nil
	}
	return false, Diff(want, actual), nil
}

// Check is Verify for tests: any mismatch or I/O failure fails t.
func (g *Golden) Check(t testing.TB, name, actual string) {
	t.Helper()
	ok, diff, err := g.Verify(name, actual)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Errorf("output does not match %s:\n%s", g.Path(name), diff)
	}
}

// Diff renders a line-by-line comparison of expected and actual.
func Diff(expected, actual string) string {
	expectedLines := strings.Split(expected, "\n")
	actualLines := strings.Split(actual, "\n")

	var diff strings.Builder
	diff.WriteString("Expected vs Actual:\n")

	maxLines := len(expectedLines)
	if len(actualLines) > maxLines {
		maxLines = len(actualLines)
	}

	for i := 0; i < maxLines; i++ {
		var expectedLine, actualLine string
		if i < len(expectedLines) {
			expectedLine = expectedLines[i]
		}
		if i < len(actualLines) {
			actualLine = actualLines[i]
		}

		if expectedLine != actualLine {
			fmt.Fprintf(&diff, "Line %d:\n", i+1)
			fmt.Fprintf(&diff, "- %s\n", expectedLine)
			fmt.Fprintf(&diff, "+ %s\n", actualLine)
		}
	}

	return diff.String()
}

func sanitize(name string) string {
	replacer := strings.NewReplacer("/", "_", "\\", "_", " ", "_", ":", "_")
	return replacer.Replace(name)
}
