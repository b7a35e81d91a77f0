package errors

import "fmt"

// PassSkipped builds the informational message an optimizer pass records
// when it cannot safely rewrite something, per section 7: "a pass that
// cannot safely rewrite leaves the IR unchanged and records an
// informational message." This is never fatal — the caller logs it and
// continues with the next pass.
func PassSkipped(passName, reason string) CompilerError {
	return CompilerError{
		Level:    Warning,
		Code:     WarningPassSkipped,
		Message:  fmt.Sprintf("%s: no changes applied", passName),
		Notes:    []string{reason},
		HelpText: "this is informational only; the IR was left unchanged",
	}
}

// DivergenceDetail builds a diagnostic for an analysis that exceeded its
// iteration bound, naming the analysis and the bound it exceeded so the
// message is actionable without requiring a debugger.
func DivergenceDetail(analysisName string, bound int) CompilerError {
	return CompilerError{
		Level:   Error,
		Code:    ErrorAnalysisDivergence,
		Message: fmt.Sprintf("%s did not converge within %d worklist rounds", analysisName, bound),
		Notes:   []string{"every registered analysis is expected to be monotone over a finite-height lattice; this should not occur"},
	}
}
