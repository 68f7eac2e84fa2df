// Package diagnostic defines the error shape shared by the tokenizer and the parser.
//
// Lexical and syntactic problems are both reported as *ParseError values so callers can
// display them uniformly. A ParseError is a value, not a control-flow mechanism: the
// tokenizer and parser keep going after recording one.
package diagnostic

import "fmt"

// Position locates a token or diagnostic in the source text.
// Line and Column are 1-based; Offset is the 0-based byte offset.
type Position struct {
	Line   int `json:"line" yaml:"line"`
	Column int `json:"column" yaml:"column"`
	Offset int `json:"offset" yaml:"offset"`
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Type is the origin class of a diagnostic.
type Type string

const (
	TypeSyntax   Type = "syntax"
	TypeSemantic Type = "semantic"
)

// Severity indicates the seriousness of a diagnostic.
type Severity string

const (
	// SeverityError makes a parse unsuccessful.
	SeverityError Severity = "error"
	// SeverityWarning is reported but does not fail the parse.
	SeverityWarning Severity = "warning"
)

// Code is a stable machine-readable diagnostic identifier.
type Code string

// Lexical codes
const (
	CodeUnterminatedString  Code = "UNTERMINATED_STRING"
	CodeUnterminatedComment Code = "UNTERMINATED_COMMENT"
	CodeUnexpectedCharacter Code = "UNEXPECTED_CHARACTER"
)

// Syntax codes
const (
	CodeExpectedToken     Code = "EXPECTED_TOKEN"
	CodeUnexpectedToken   Code = "UNEXPECTED_TOKEN"
	CodeExpectedTableName Code = "EXPECTED_TABLE_NAME"
	CodeExpectedParen     Code = "EXPECTED_PAREN"
	CodeParseFailed       Code = "PARSE_FAILED"
)

// Warning codes
const (
	CodeUnknownConstraint Code = "UNKNOWN_CONSTRAINT"
	CodeUnknownSetting    Code = "UNKNOWN_SETTING"
)

// ParseError is a single diagnostic produced while tokenizing or parsing.
type ParseError struct {
	Type     Type     `json:"type" yaml:"type"`
	Code     Code     `json:"code" yaml:"code"`
	Message  string   `json:"message" yaml:"message"`
	Position Position `json:"position" yaml:"position"`
	Severity Severity `json:"severity" yaml:"severity"`
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s at %s: %s", e.Code, e.Position, e.Message)
}

// IsError reports whether the diagnostic has error severity.
func (e *ParseError) IsError() bool {
	return e.Severity == SeverityError
}

// Errorf creates an error-severity syntax diagnostic.
func Errorf(code Code, pos Position, format string, args ...any) *ParseError {
	return &ParseError{
		Type:     TypeSyntax,
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		Position: pos,
		Severity: SeverityError,
	}
}

// Warningf creates a warning-severity diagnostic.
func Warningf(code Code, pos Position, format string, args ...any) *ParseError {
	return &ParseError{
		Type:     TypeSemantic,
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		Position: pos,
		Severity: SeverityWarning,
	}
}

// Split partitions diagnostics by severity, preserving order.
func Split(all []*ParseError) (errs, warnings []*ParseError) {
	errs = []*ParseError{}
	warnings = []*ParseError{}
	for _, d := range all {
		if d.IsError() {
			errs = append(errs, d)
		} else {
			warnings = append(warnings, d)
		}
	}
	return errs, warnings
}
