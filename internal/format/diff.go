package format

import (
	"fmt"
	"strings"
)

// LineType represents the type of a diff line.
type LineType int

const (
	LineTypeContext LineType = iota // Unchanged context line
	LineTypeAdded                   // Added line (+)
	LineTypeRemoved                 // Removed line (-)
)

var linePrefixes = [...]string{
	LineTypeContext: " ",
	LineTypeAdded:   "+",
	LineTypeRemoved: "-",
}

// edit is one step of the line script turning original into modified.
// orig and mod are the 0-based cursors in each side when the step runs.
type edit struct {
	kind LineType
	orig int
	mod  int
	text string
}

// Hunk represents a contiguous block of changes with its context.
type Hunk struct {
	OriginalStart int
	OriginalCount int
	ModifiedStart int
	ModifiedCount int
	Lines         []string // prefixed with ' ', '+' or '-'
}

// Header returns the "@@ -a,b +c,d @@" line.
func (h Hunk) Header() string {
	return fmt.Sprintf("@@ -%d,%d +%d,%d @@", h.OriginalStart, h.OriginalCount, h.ModifiedStart, h.ModifiedCount)
}

// UnifiedDiff renders a unified diff of original against modified with
// the given number of context lines. Identical inputs produce "".
func UnifiedDiff(filename, original, modified string, context int) string {
	hunks := DiffHunks(splitLines(original), splitLines(modified), context)
	if len(hunks) == 0 {
		return ""
	}

	var out strings.Builder
	fmt.Fprintf(&out, "--- %s\t(original)\n", filename)
	fmt.Fprintf(&out, "+++ %s\t(formatted)\n", filename)
	for _, h := range hunks {
		out.WriteString(h.Header())
		out.WriteByte('\n')
		for _, line := range h.Lines {
			out.WriteString(line)
			out.WriteByte('\n')
		}
	}
	return out.String()
}

// DiffHunks computes the hunks between two line slices using a longest
// common subsequence script.
func DiffHunks(original, modified []string, context int) []Hunk {
	edits := lineEdits(original, modified)

	var changed []int
	for i, e := range edits {
		if e.kind != LineTypeContext {
			changed = append(changed, i)
		}
	}
	if len(changed) == 0 {
		return nil
	}

	var hunks []Hunk
	first := changed[0]
	for k := 1; k <= len(changed); k++ {
		if k < len(changed) && changed[k]-changed[k-1] <= 2*context+1 {
			continue
		}
		last := changed[k-1]
		hunks = append(hunks, buildHunk(edits, max(0, first-context), min(len(edits), last+context+1)))
		if k < len(changed) {
			first = changed[k]
		}
	}
	return hunks
}

func buildHunk(edits []edit, from, to int) Hunk {
	h := Hunk{OriginalStart: edits[from].orig + 1, ModifiedStart: edits[from].mod + 1}
	for _, e := range edits[from:to] {
		switch e.kind {
		case LineTypeContext:
			h.OriginalCount++
			h.ModifiedCount++
		case LineTypeRemoved:
			h.OriginalCount++
		case LineTypeAdded:
			h.ModifiedCount++
		}
		h.Lines = append(h.Lines, linePrefixes[e.kind]+e.text)
	}
	// an empty side is addressed by the line before it
	if h.OriginalCount == 0 {
		h.OriginalStart--
	}
	if h.ModifiedCount == 0 {
		h.ModifiedStart--
	}
	return h
}

func lineEdits(a, b []string) []edit {
	n, m := len(a), len(b)
	lcs := make([][]int, n+1)
	for i := range lcs {
		lcs[i] = make([]int, m+1)
	}
	for i := n - 1; i >= 0; i-- {
		for j := m - 1; j >= 0; j-- {
			if a[i] == b[j] {
				lcs[i][j] = lcs[i+1][j+1] + 1
			} else {
				lcs[i][j] = max(lcs[i+1][j], lcs[i][j+1])
			}
		}
	}

	edits := make([]edit, 0, n+m)
	i, j := 0, 0
	for i < n && j < m {
		switch {
		case a[i] == b[j]:
			edits = append(edits, edit{LineTypeContext, i, j, a[i]})
			i++
			j++
		case lcs[i+1][j] >= lcs[i][j+1]:
			edits = append(edits, edit{LineTypeRemoved, i, j, a[i]})
			i++
		default:
			edits = append(edits, edit{LineTypeAdded, i, j, b[j]})
			j++
		}
	}
	for ; i < n; i++ {
		edits = append(edits, edit{LineTypeRemoved, i, j, a[i]})
	}
	for ; j < m; j++ {
		edits = append(edits, edit{LineTypeAdded, i, j, b[j]})
	}
	return edits
}

func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
}
