package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"secrec/internal/ir"
)

func TestFromBuildErrorIllFormed(t *testing.T) {
	buildErr := &ir.BuildError{Kind: ir.ErrIllFormed, Index: 7, Opcode: ir.JUMP}
	ce := FromBuildError(buildErr)

	assert.Equal(t, ErrorIllFormedIR, ce.Code)
	assert.Equal(t, Error, ce.Level)
	assert.Contains(t, ce.Message, "instruction 7")
	assert.Contains(t, ce.Message, "JUMP")
	assert.True(t, ce.HasOpcode)
}

func TestFromBuildErrorEmptyProgram(t *testing.T) {
	ce := FromBuildError(&ir.BuildError{Kind: ir.ErrEmptyProgram})
	assert.Equal(t, ErrorEmptyProgram, ce.Code)
	assert.Contains(t, ce.Message, "empty program")
}

func TestFromBuildErrorNoMain(t *testing.T) {
	ce := FromBuildError(&ir.BuildError{Kind: ir.ErrNoMain})
	assert.Equal(t, ErrorNoMain, ce.Code)
	assert.Contains(t, ce.Message, "no main")
}

func TestFromBuildErrorDivergence(t *testing.T) {
	ce := FromBuildError(&ir.BuildError{Kind: ir.ErrDivergence})
	assert.Equal(t, ErrorAnalysisDivergence, ce.Code)
	assert.Len(t, ce.Notes, 1)
}

func TestFormatErrorIncludesCodeAndLocation(t *testing.T) {
	reporter := NewErrorReporter("prog.secir")
	err := FromBuildError(&ir.BuildError{Kind: ir.ErrIllFormed, Index: 3, Opcode: ir.CALL})
	formatted := reporter.FormatError(err)

	assert.Contains(t, formatted, "error["+ErrorIllFormedIR+"]")
	assert.Contains(t, formatted, "prog.secir:instruction 3")
	assert.Contains(t, formatted, "CALL")
}

func TestFormatWarningLevel(t *testing.T) {
	reporter := NewErrorReporter("prog.secir")
	err := PassSkipped("copy elimination", "no dead copies found")
	formatted := reporter.FormatError(err)

	assert.Contains(t, formatted, "warning["+WarningPassSkipped+"]")
	assert.Contains(t, formatted, "no dead copies found")
}

func TestIsWarning(t *testing.T) {
	assert.True(t, IsWarning(WarningPassSkipped))
	assert.False(t, IsWarning(ErrorIllFormedIR))
}

func TestGetErrorDescription(t *testing.T) {
	assert.Equal(t, "an instruction's jump/call/return cross-reference is missing or malformed",
		GetErrorDescription(ErrorIllFormedIR))
	assert.Equal(t, "unknown error code", GetErrorDescription("E9999"))
}

func TestDivergenceDetail(t *testing.T) {
	ce := DivergenceDetail("live-variables", 42)
	assert.Equal(t, ErrorAnalysisDivergence, ce.Code)
	assert.Contains(t, ce.Message, "live-variables")
	assert.Contains(t, ce.Message, "42")
}
