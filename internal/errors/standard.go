// Package errors provides standardized error values for arith.
//
// Every recoverable failure raised by the lexer, parser, evaluator or
// configuration loader is a *StandardError. Callers classify failures with
// the standard library's errors.Is against the sentinels declared here.
package errors

import (
	"fmt"

	"github.com/orizon-lang/arith/internal/position"
)

// ErrorCategory represents different categories of errors
type ErrorCategory string

const (
	CategoryLexical    ErrorCategory = "LEXICAL"
	CategorySyntax     ErrorCategory = "SYNTAX"
	CategoryArithmetic ErrorCategory = "ARITHMETIC"
	CategoryOverflow   ErrorCategory = "OVERFLOW"
	CategoryValidation ErrorCategory = "VALIDATION"
	CategoryConfig     ErrorCategory = "CONFIG"
)

// StandardError provides a consistent error format
type StandardError struct {
	Category ErrorCategory
	Code     string
	Message  string
	Span     position.Span // zero when the error has no source location
	Literal  string        // offending source text, if any
	Context  map[string]interface{}
}

// Error implements the error interface
func (e *StandardError) Error() string {
	if e.Span.IsValid() {
		return fmt.Sprintf("[%s:%s] %s at %s", e.Category, e.Code, e.Message, e.Span.Start)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
}

// Is reports whether target is a StandardError with the same code. It lets
// errors.Is match any instance against the package sentinels.
func (e *StandardError) Is(target error) bool {
	t, ok := target.(*StandardError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is. They carry no location.
var (
	ErrUnrecognizedCharacter  = &StandardError{Category: CategoryLexical, Code: "UNRECOGNIZED_CHARACTER", Message: "unrecognized character"}
	ErrIntegerLiteralOverflow = &StandardError{Category: CategoryLexical, Code: "INTEGER_LITERAL_OVERFLOW", Message: "integer literal out of range"}
	ErrUnexpectedToken        = &StandardError{Category: CategorySyntax, Code: "UNEXPECTED_TOKEN", Message: "unexpected token"}
	ErrUnterminatedGroup      = &StandardError{Category: CategorySyntax, Code: "UNTERMINATED_GROUP", Message: "unterminated group"}
	ErrNestingTooDeep         = &StandardError{Category: CategorySyntax, Code: "NESTING_TOO_DEEP", Message: "expression nested too deeply"}
	ErrDivisionByZero         = &StandardError{Category: CategoryArithmetic, Code: "DIVISION_BY_ZERO", Message: "division by zero"}
	ErrIntegerOverflow        = &StandardError{Category: CategoryOverflow, Code: "INTEGER_OVERFLOW", Message: "integer overflow"}
	ErrEmptyProgram           = &StandardError{Category: CategoryValidation, Code: "EMPTY_PROGRAM", Message: "nothing to evaluate"}
	ErrInvalidConfig          = &StandardError{Category: CategoryConfig, Code: "INVALID_CONFIG", Message: "invalid configuration"}
	ErrIncompatibleVersion    = &StandardError{Category: CategoryConfig, Code: "INCOMPATIBLE_VERSION", Message: "incompatible tool version"}
	ErrOutputTooLarge         = &StandardError{Category: CategoryValidation, Code: "OUTPUT_TOO_LARGE", Message: "output too large"}
)

// NewStandardError creates a new standardized error
func NewStandardError(category ErrorCategory, code, message string, span position.Span, context map[string]interface{}) *StandardError {
	return &StandardError{
		Category: category,
		Code:     code,
		Message:  message,
		Span:     span,
		Context:  context,
	}
}

func derive(sentinel *StandardError, message string, span position.Span, literal string, context map[string]interface{}) *StandardError {
	err := NewStandardError(sentinel.Category, sentinel.Code, message, span, context)
	err.Literal = literal
	return err
}

// Common error constructors

func UnrecognizedCharacter(span position.Span, literal string) *StandardError {
	return derive(ErrUnrecognizedCharacter,
		fmt.Sprintf("unrecognized character %q", literal),
		span, literal, nil)
}

func IntegerLiteralOverflow(span position.Span, literal string) *StandardError {
	return derive(ErrIntegerLiteralOverflow,
		fmt.Sprintf("integer literal %s does not fit in 64 bits", literal),
		span, literal, nil)
}

// UnexpectedToken reports a token that cannot start or continue an
// expression. kind is the token's printable type name.
func UnexpectedToken(span position.Span, literal, kind, expected string) *StandardError {
	msg := fmt.Sprintf("unexpected %s", describe(kind, literal))
	if expected != "" {
		msg += ", expected " + expected
	}
	return derive(ErrUnexpectedToken, msg, span, literal,
		map[string]interface{}{"token": kind, "expected": expected})
}

// UnterminatedGroup reports a '(' whose matching ')' never arrived. span
// points at the token found instead; open is the opening parenthesis.
func UnterminatedGroup(span position.Span, literal, kind string, open position.Span) *StandardError {
	return derive(ErrUnterminatedGroup,
		fmt.Sprintf("expected ')' to close '(' opened at %s, found %s", open.Start, describe(kind, literal)),
		span, literal,
		map[string]interface{}{"open": open, "token": kind})
}

// NestingTooDeep reports a '(' or operator that would take the parser past
// limit levels of nesting.
func NestingTooDeep(span position.Span, literal string, limit int) *StandardError {
	return derive(ErrNestingTooDeep,
		fmt.Sprintf("expression nests deeper than %d levels", limit),
		span, literal, map[string]interface{}{"limit": limit})
}

func DivisionByZero(span position.Span, dividend int64) *StandardError {
	return derive(ErrDivisionByZero,
		fmt.Sprintf("division by zero (%d / 0)", dividend),
		span, "/", map[string]interface{}{"dividend": dividend})
}

func IntegerOverflow(span position.Span, operation string, values ...interface{}) *StandardError {
	return derive(ErrIntegerOverflow,
		fmt.Sprintf("integer overflow in %s operation", operation),
		span, "", map[string]interface{}{"operation": operation, "values": values})
}

func EmptyProgram() *StandardError {
	return derive(ErrEmptyProgram, "program contains no statements", position.Span{}, "", nil)
}

func InvalidConfig(format string, args ...interface{}) *StandardError {
	return derive(ErrInvalidConfig, fmt.Sprintf(format, args...), position.Span{}, "", nil)
}

func IncompatibleVersion(version, constraint string) *StandardError {
	return derive(ErrIncompatibleVersion,
		fmt.Sprintf("tool version %s does not satisfy %q", version, constraint),
		position.Span{}, "", map[string]interface{}{"version": version, "constraint": constraint})
}

// OutputTooLarge reports rendered output that exceeded limit bytes.
func OutputTooLarge(what string, limit int) *StandardError {
	return derive(ErrOutputTooLarge,
		fmt.Sprintf("%s exceeds %d bytes", what, limit),
		position.Span{}, "", map[string]interface{}{"limit": limit})
}

func describe(kind, literal string) string {
	if kind == "EOF" {
		return "end of input"
	}
	if literal == "" {
		return kind
	}
	return fmt.Sprintf("%s %q", kind, literal)
}
