// Diagnostic reporting for arith.
// Turns failures into located messages and renders them against the source.

package diagnostic

import (
	stderrors "errors"
	"fmt"
	"sort"
	"strings"

	"github.com/orizon-lang/arith/internal/errors"
	"github.com/orizon-lang/arith/internal/position"
)

// DiagnosticLevel represents the severity level of a diagnostic message.
type DiagnosticLevel int

const (
	DiagnosticError DiagnosticLevel = iota
	DiagnosticWarning
	DiagnosticNote
)

func (dl DiagnosticLevel) String() string {
	switch dl {
	case DiagnosticError:
		return "error"
	case DiagnosticWarning:
		return "warning"
	case DiagnosticNote:
		return "note"
	default:
		return "unknown"
	}
}

// MarshalText lets the level travel as its name in JSON.
func (dl DiagnosticLevel) MarshalText() ([]byte, error) {
	return []byte(dl.String()), nil
}

// Diagnostic represents a single diagnostic message.
type Diagnostic struct {
	Level    DiagnosticLevel      `json:"level"`
	Category errors.ErrorCategory `json:"category"`
	Code     string               `json:"code"`
	Message  string               `json:"message"`
	Span     position.Span        `json:"-"`
	Location *Location            `json:"location,omitempty"`
	Related  []RelatedInformation `json:"related,omitempty"`
}

// Location is the JSON form of a span start.
type Location struct {
	File   string `json:"file,omitempty"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
	Offset int    `json:"offset"`
	Length int    `json:"length"`
}

// RelatedInformation points at a second location relevant to a diagnostic,
// such as the '(' an unterminated group started at.
type RelatedInformation struct {
	Message string        `json:"message"`
	Span    position.Span `json:"-"`
}

// DiagnosticBuilder helps construct diagnostic messages with fluent API.
type DiagnosticBuilder struct {
	diagnostic *Diagnostic
}

// NewDiagnostic creates a new diagnostic builder.
func NewDiagnostic() *DiagnosticBuilder {
	return &DiagnosticBuilder{diagnostic: &Diagnostic{}}
}

func (db *DiagnosticBuilder) Error() *DiagnosticBuilder {
	db.diagnostic.Level = DiagnosticError
	return db
}

func (db *DiagnosticBuilder) Warning() *DiagnosticBuilder {
	db.diagnostic.Level = DiagnosticWarning
	return db
}

func (db *DiagnosticBuilder) Category(category errors.ErrorCategory) *DiagnosticBuilder {
	db.diagnostic.Category = category
	return db
}

func (db *DiagnosticBuilder) Code(code string) *DiagnosticBuilder {
	db.diagnostic.Code = code
	return db
}

func (db *DiagnosticBuilder) Message(message string) *DiagnosticBuilder {
	db.diagnostic.Message = message
	return db
}

func (db *DiagnosticBuilder) Span(span position.Span) *DiagnosticBuilder {
	db.diagnostic.Span = span
	if span.IsValid() {
		db.diagnostic.Location = &Location{
			File:   span.Start.Filename,
			Line:   span.Start.Line,
			Column: span.Start.Column,
			Offset: span.Start.Offset,
			Length: span.Length(),
		}
	}
	return db
}

func (db *DiagnosticBuilder) Related(span position.Span, message string) *DiagnosticBuilder {
	db.diagnostic.Related = append(db.diagnostic.Related, RelatedInformation{Message: message, Span: span})
	return db
}

func (db *DiagnosticBuilder) Build() *Diagnostic {
	return db.diagnostic
}

// FromError converts a failure into a diagnostic. A *errors.StandardError
// keeps its category, code and span; anything else becomes an uncategorized
// error without a location.
func FromError(err error) *Diagnostic {
	var se *errors.StandardError
	if !stderrors.As(err, &se) {
		return NewDiagnostic().Error().Code("INTERNAL").Message(err.Error()).Build()
	}

	b := NewDiagnostic().Error().
		Category(se.Category).
		Code(se.Code).
		Message(se.Message).
		Span(se.Span)

	if open, ok := se.Context["open"].(position.Span); ok {
		b.Related(open, "group opened here")
	}
	return b.Build()
}

// Header returns the first rendered line, e.g. "error[DIVISION_BY_ZERO]: ...".
func (d *Diagnostic) Header() string {
	if d.Code == "" {
		return fmt.Sprintf("%s: %s", d.Level, d.Message)
	}
	return fmt.Sprintf("%s[%s]: %s", d.Level, d.Code, d.Message)
}

// Render formats the diagnostic with the offending source highlighted.
// file may be nil, in which case only the header and location are shown.
func (d *Diagnostic) Render(file *position.SourceFile) string {
	var result strings.Builder
	result.WriteString(d.Header())
	result.WriteString("\n")

	if !d.Span.IsValid() {
		return result.String()
	}

	fmt.Fprintf(&result, "  --> %s\n", d.Span.Start)
	highlighter := position.NewSpanHighlighter(file)
	result.WriteString(highlighter.HighlightSpan(d.Span))

	for _, related := range d.Related {
		fmt.Fprintf(&result, "  note: %s at %s\n", related.Message, related.Span.Start)
		result.WriteString(highlighter.HighlightSpan(related.Span))
	}

	return result.String()
}

// DiagnosticEngine collects diagnostics from several sources, such as the
// files of one `arith run`.
type DiagnosticEngine struct {
	diagnostics []*Diagnostic
	sources     map[string]*position.SourceFile
	maxErrors   int
}

// NewDiagnosticEngine creates an engine that stops accepting errors after
// maxErrors (0 means unlimited).
func NewDiagnosticEngine(maxErrors int) *DiagnosticEngine {
	return &DiagnosticEngine{
		sources:   make(map[string]*position.SourceFile),
		maxErrors: maxErrors,
	}
}

// AddSource registers the text diagnostics in filename are rendered against.
func (de *DiagnosticEngine) AddSource(file *position.SourceFile) {
	de.sources[file.Filename] = file
}

// AddDiagnostic adds a diagnostic to the engine.
func (de *DiagnosticEngine) AddDiagnostic(diagnostic *Diagnostic) {
	if diagnostic.Level == DiagnosticError && de.maxErrors > 0 && de.ErrorCount() >= de.maxErrors {
		return
	}
	de.diagnostics = append(de.diagnostics, diagnostic)
}

// AddError records err as an error diagnostic.
func (de *DiagnosticEngine) AddError(err error) {
	de.AddDiagnostic(FromError(err))
}

// Diagnostics returns the collected diagnostics sorted by file and offset.
func (de *DiagnosticEngine) Diagnostics() []*Diagnostic {
	sorted := append([]*Diagnostic(nil), de.diagnostics...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Span.Start.Before(sorted[j].Span.Start)
	})
	return sorted
}

// ErrorCount returns the number of error-level diagnostics.
func (de *DiagnosticEngine) ErrorCount() int {
	count := 0
	for _, d := range de.diagnostics {
		if d.Level == DiagnosticError {
			count++
		}
	}
	return count
}

// HasErrors returns true if there are any errors.
func (de *DiagnosticEngine) HasErrors() bool {
	return de.ErrorCount() > 0
}

// FormatDiagnostics renders every diagnostic followed by a summary line.
func (de *DiagnosticEngine) FormatDiagnostics() string {
	if len(de.diagnostics) == 0 {
		return ""
	}

	var result strings.Builder
	for i, diag := range de.Diagnostics() {
		if i > 0 {
			result.WriteString("\n")
		}
		result.WriteString(diag.Render(de.sources[diag.Span.Start.Filename]))
	}

	errs := de.ErrorCount()
	warnings := len(de.diagnostics) - errs
	fmt.Fprintf(&result, "\n%s, %s\n", plural(errs, "error"), plural(warnings, "warning"))
	return result.String()
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
