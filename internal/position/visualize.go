package position

import (
	"fmt"
	"strings"
)

// SpanHighlighter renders source lines with the covered range underlined.
type SpanHighlighter struct {
	file *SourceFile
}

// NewSpanHighlighter creates a new span highlighter.
func NewSpanHighlighter(file *SourceFile) *SpanHighlighter {
	return &SpanHighlighter{file: file}
}

// HighlightSpan returns the lines touched by span, each followed by a
// caret line. An empty span is drawn as a single caret so that
// end-of-input positions stay visible.
func (sh *SpanHighlighter) HighlightSpan(span Span) string {
	if sh.file == nil || !span.IsValid() {
		return ""
	}

	var result strings.Builder

	for lineNum := span.Start.Line; lineNum <= span.End.Line; lineNum++ {
		line := sh.file.GetLine(lineNum)
		result.WriteString(fmt.Sprintf("%4d | %s\n", lineNum, line))
		sh.addHighlighting(&result, lineNum, line, span)
	}

	return result.String()
}

// Highlight is NewSpanHighlighter(file).HighlightSpan(span).
func Highlight(file *SourceFile, span Span) string {
	return NewSpanHighlighter(file).HighlightSpan(span)
}

// addHighlighting adds ASCII highlighting under the relevant part of the line.
func (sh *SpanHighlighter) addHighlighting(result *strings.Builder, lineNum int, line string, span Span) {
	startCol, endCol := 1, len(line)+1
	if lineNum == span.Start.Line {
		startCol = span.Start.Column
	}
	if lineNum == span.End.Line {
		endCol = span.End.Column
	}
	if endCol <= startCol {
		endCol = startCol + 1
	}

	result.WriteString("     | ")
	for i := 1; i < startCol; i++ {
		if i <= len(line) && line[i-1] == '\t' {
			result.WriteByte('\t')
		} else {
			result.WriteByte(' ')
		}
	}
	result.WriteString(strings.Repeat("^", endCol-startCol))
	result.WriteString("\n")
}
