// Package position provides source position tracking for the arith
// front end. Tokens, tree nodes and errors all point back into the
// original input through the types defined here.
package position

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// Position is a point in a source text.
type Position struct {
	Filename string
	Line     int // 1-based
	Column   int // 1-based, in bytes
	Offset   int // 0-based byte offset
}

// IsValid reports whether p was produced from real input. The zero
// Position is invalid.
func (p Position) IsValid() bool {
	return p.Line > 0 && p.Column > 0 && p.Offset >= 0
}

// String renders "file:line:col", or "line:col" without a filename. Only
// the base name of the file is shown.
func (p Position) String() string {
	return prefix(p.Filename) + fmt.Sprintf("%d:%d", p.Line, p.Column)
}

func prefix(filename string) string {
	if filename == "" {
		return ""
	}
	return filepath.Base(filename) + ":"
}

// Compare orders positions by filename, then by offset.
func (p Position) Compare(other Position) int {
	switch {
	case p.Filename != other.Filename:
		return strings.Compare(p.Filename, other.Filename)
	case p.Offset < other.Offset:
		return -1
	case p.Offset > other.Offset:
		return 1
	}
	return 0
}

// Before reports whether p sorts before other.
func (p Position) Before(other Position) bool { return p.Compare(other) < 0 }

// After reports whether p sorts after other.
func (p Position) After(other Position) bool { return p.Compare(other) > 0 }

// Span is the half-open byte range [Start, End).
type Span struct {
	Start Position
	End   Position
}

// IsValid reports whether both ends are valid, in one file and ordered.
func (s Span) IsValid() bool {
	return s.Start.IsValid() && s.End.IsValid() &&
		s.Start.Filename == s.End.Filename &&
		s.Start.Offset <= s.End.Offset
}

// IsEmpty reports whether the span covers no bytes.
func (s Span) IsEmpty() bool {
	return s.Start.Offset == s.End.Offset
}

// String renders "file:line:col-col" for a single-line span and
// "file:line:col-line:col" otherwise.
func (s Span) String() string {
	end := fmt.Sprintf("%d:%d", s.End.Line, s.End.Column)
	if s.Start.Line == s.End.Line {
		end = fmt.Sprint(s.End.Column)
	}
	return fmt.Sprintf("%s%d:%d-%s", prefix(s.Start.Filename), s.Start.Line, s.Start.Column, end)
}

// Union returns the smallest span covering s and other. An invalid span
// is ignored; spans from different files cannot be joined and s wins.
func (s Span) Union(other Span) Span {
	switch {
	case !s.IsValid():
		return other
	case !other.IsValid(), s.Start.Filename != other.Start.Filename:
		return s
	}

	if other.Start.Before(s.Start) {
		s.Start = other.Start
	}
	if other.End.After(s.End) {
		s.End = other.End
	}
	return s
}

// Length is the number of bytes covered, 0 for an invalid span.
func (s Span) Length() int {
	if !s.IsValid() {
		return 0
	}
	return s.End.Offset - s.Start.Offset
}

// SourceFile is an input text with a line index for offset lookups.
type SourceFile struct {
	Filename string
	Content  string

	lineStarts []int // offset of the first byte of each line
}

// NewSourceFile indexes content.
func NewSourceFile(filename, content string) *SourceFile {
	starts := []int{0}
	for i := 0; i < len(content); i++ {
		if content[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &SourceFile{Filename: filename, Content: content, lineStarts: starts}
}

// LineCount returns the number of lines; an empty file has one.
func (sf *SourceFile) LineCount() int {
	return len(sf.lineStarts)
}

// GetLine returns line lineNum (1-based) without its terminator, or "" when
// out of range.
func (sf *SourceFile) GetLine(lineNum int) string {
	if lineNum < 1 || lineNum > len(sf.lineStarts) {
		return ""
	}
	start := sf.lineStarts[lineNum-1]
	end := len(sf.Content)
	if lineNum < len(sf.lineStarts) {
		end = sf.lineStarts[lineNum] - 1
	}
	return strings.TrimSuffix(sf.Content[start:end], "\r")
}

// GetSpanText returns the source covered by span, or "" if span does not
// belong to this file.
func (sf *SourceFile) GetSpanText(span Span) string {
	if !span.IsValid() || span.Start.Filename != sf.Filename || span.End.Offset > len(sf.Content) {
		return ""
	}
	return sf.Content[span.Start.Offset:span.End.Offset]
}

// PositionFromOffset converts a byte offset into a Position. The offset
// just past the last byte is valid; anything outside that range yields the
// zero Position.
func (sf *SourceFile) PositionFromOffset(offset int) Position {
	if offset < 0 || offset > len(sf.Content) {
		return Position{}
	}
	// index of the last line starting at or before offset
	line := sort.Search(len(sf.lineStarts), func(i int) bool { return sf.lineStarts[i] > offset }) - 1
	return Position{
		Filename: sf.Filename,
		Line:     line + 1,
		Column:   offset - sf.lineStarts[line] + 1,
		Offset:   offset,
	}
}

// SpanFromOffsets builds a span covering [start, end).
func (sf *SourceFile) SpanFromOffsets(start, end int) Span {
	return Span{Start: sf.PositionFromOffset(start), End: sf.PositionFromOffset(end)}
}
