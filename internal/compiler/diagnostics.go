package compiler

import "fmt"

// Severity classifies a diagnostic. The set is closed.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Diagnostic codes. Stable identifiers; messages may change, codes may not.
const (
	CodeSyntax            = "E_SYNTAX"
	CodeReservedName      = "E_RESERVED_NAME"
	CodeDuplicateEntity   = "E_DUPLICATE_ENTITY"
	CodeDuplicateProperty = "E_DUPLICATE_PROPERTY"
	CodeDuplicateCommand  = "E_DUPLICATE_COMMAND"
	CodeUnknownEntity     = "E_UNKNOWN_ENTITY"
	CodeUnknownProperty   = "E_UNKNOWN_PROPERTY"
	CodeUnknownParam      = "E_UNKNOWN_PARAM"
	CodeUnknownFunction   = "E_UNKNOWN_FUNCTION"
	CodeUndeclaredEvent   = "W_UNDECLARED_EVENT"
)

// Position locates a diagnostic in source. Lines and columns are
// 1-based; a zero Position means "no location".
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// IsZero reports whether the position carries no location.
func (p Position) IsZero() bool {
	return p.Line == 0 && p.Column == 0
}

// Diagnostic is one compiler finding. Error severity blocks IR
// production; warnings do not.
type Diagnostic struct {
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	Pos      Position `json:"pos,omitempty"`
}

// String renders the diagnostic in file:line:col style for CLI output.
func (d Diagnostic) String() string {
	if d.Pos.IsZero() {
		return fmt.Sprintf("%s [%s]: %s", d.Severity, d.Code, d.Message)
	}
	return fmt.Sprintf("%d:%d: %s [%s]: %s", d.Pos.Line, d.Pos.Column, d.Severity, d.Code, d.Message)
}

// HasErrors reports whether any diagnostic is error severity.
func HasErrors(diags []Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// diagnosticBag accumulates diagnostics across compile stages.
type diagnosticBag struct {
	diags []Diagnostic
}

func (b *diagnosticBag) errorf(pos Position, code, format string, args ...any) {
	b.diags = append(b.diags, Diagnostic{
		Severity: SeverityError,
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		Pos:      pos,
	})
}

func (b *diagnosticBag) warnf(pos Position, code, format string, args ...any) {
	b.diags = append(b.diags, Diagnostic{
		Severity: SeverityWarning,
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		Pos:      pos,
	})
}
