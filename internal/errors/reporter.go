package errors

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"secrec/internal/ir"
)

// ErrorLevel represents the severity of a diagnostic.
type ErrorLevel string

const (
	Error   ErrorLevel = "error"
	Warning ErrorLevel = "warning"
	Note    ErrorLevel = "note"
	Help    ErrorLevel = "help"
)

// CompilerError is a structured diagnostic pointing at an instruction
// rather than a source position: the core carries no source text of its
// own (section 1 puts lexing/parsing out of scope), so Index/Opcode are
// what section 7 says an ill-formed-IR error must carry.
type CompilerError struct {
	Level     ErrorLevel
	Code      string // Error code like E0003
	Message   string // Primary error message
	Index     int    // 1-based position of the offending instruction, 0 if none
	Opcode    ir.Opcode
	HasOpcode bool
	Notes     []string // Additional context notes
	HelpText  string   // Help text for the error
}

// FromBuildError adapts an *ir.BuildError into a CompilerError, matching
// the four kinds BuildError.Kind enumerates to the codes.go constants.
func FromBuildError(err *ir.BuildError) CompilerError {
	ce := CompilerError{Level: Error, Index: err.Index}
	switch err.Kind {
	case ir.ErrEmptyProgram:
		ce.Code = ErrorEmptyProgram
		ce.Message = "empty program: no instructions to build a CFG from"
	case ir.ErrNoMain:
		ce.Code = ErrorNoMain
		ce.Message = "no main procedure: the first declared procedure is not the instruction list's first entry"
	case ir.ErrIllFormed:
		ce.Code = ErrorIllFormedIR
		ce.Message = fmt.Sprintf("ill-formed IR: instruction %d (%s) has an unresolved reference", err.Index, err.Opcode)
		ce.Opcode = err.Opcode
		ce.HasOpcode = true
		ce.HelpText = "every jump's label must resolve to a bound instruction; every CALL needs a matching RETCLEAN; every RETURN needs its procedure's leading COMMENT"
	case ir.ErrDivergence:
		ce.Code = ErrorAnalysisDivergence
		ce.Message = "analysis did not converge within its iteration bound"
		ce.Notes = append(ce.Notes, "this indicates a non-monotone transfer function; the core's registered analyses are all expected to be monotone over a finite-height lattice")
	default:
		ce.Code = ErrorIllFormedIR
		ce.Message = err.Error()
	}
	return ce
}

// ErrorReporter formats CompilerErrors with Rust-like styling, keyed to a
// named program (e.g. a source file path) rather than to source text,
// since the core has none.
type ErrorReporter struct {
	program string
}

// NewErrorReporter creates a reporter that attributes diagnostics to the
// named program (typically the asmtext file path that produced it).
func NewErrorReporter(program string) *ErrorReporter {
	return &ErrorReporter{program: program}
}

// FormatError formats a compiler error, mirroring the teacher's layout
// but replacing the source-line context block with an instruction
// reference, since there is no source text to quote.
func (er *ErrorReporter) FormatError(err CompilerError) string {
	var result strings.Builder

	levelColor := er.getLevelColor(err.Level)
	dim := color.New(color.Faint).SprintFunc()

	if err.Code != "" {
		result.WriteString(fmt.Sprintf("%s[%s]: %s\n",
			levelColor(string(err.Level)), err.Code, err.Message))
	} else {
		result.WriteString(fmt.Sprintf("%s: %s\n",
			levelColor(string(err.Level)), err.Message))
	}

	if err.Index > 0 {
		loc := fmt.Sprintf("%s:instruction %d", er.program, err.Index)
		if err.HasOpcode {
			loc += fmt.Sprintf(" (%s)", err.Opcode)
		}
		result.WriteString(fmt.Sprintf(" %s %s\n", dim("-->"), loc))
	}

	for _, note := range err.Notes {
		noteColor := color.New(color.FgBlue).SprintFunc()
		result.WriteString(fmt.Sprintf(" %s %s %s\n", dim("|"), noteColor("note:"), note))
	}

	if err.HelpText != "" {
		helpColor := color.New(color.FgGreen).SprintFunc()
		result.WriteString(fmt.Sprintf(" %s %s %s\n", dim("|"), helpColor("help:"), err.HelpText))
	}

	result.WriteString("\n")
	return result.String()
}

func (er *ErrorReporter) getLevelColor(level ErrorLevel) func(...interface{}) string {
	switch level {
	case Error:
		return color.New(color.FgRed, color.Bold).SprintFunc()
	case Warning:
		return color.New(color.FgYellow, color.Bold).SprintFunc()
	case Note:
		return color.New(color.FgBlue, color.Bold).SprintFunc()
	case Help:
		return color.New(color.FgGreen, color.Bold).SprintFunc()
	default:
		return color.New(color.FgRed, color.Bold).SprintFunc()
	}
}
