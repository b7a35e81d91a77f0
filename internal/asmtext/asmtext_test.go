package asmtext

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"secrec/internal/ir"
)

func parseAndLower(t *testing.T, src string) ([]*ir.Imop, []ir.ProcDecl) {
	t.Helper()
	file, err := ParseString("test.secir", src)
	require.NoError(t, err)
	ctx := ir.NewContext()
	code, procs, err := Lower(file, ctx)
	require.NoError(t, err)
	return code, procs
}

func TestLowerStraightLine(t *testing.T) {
	src := `
var x: public uint32
var y: public uint32

proc main:
  x = ASSIGN y
  y = ADD x, y
  RETURNVOID
end
`
	code, procs := parseAndLower(t, src)
	require.Len(t, procs, 1)
	assert.Equal(t, "main", procs[0].Name.String())
	assert.Same(t, code[0], procs[0].Entry)

	program, err := ir.BuildProgram(ir.NewContext(), code, procs)
	require.NoError(t, err)
	assert.Len(t, program.Procedures, 1)
	assert.Equal(t, 1, len(program.Procedures[0].Blocks))
}

func TestLowerConditionalBranch(t *testing.T) {
	src := `
var cond: public bool
var x: public uint32

proc main:
  JF Lelse, cond
  x = ASSIGN x
  JUMP Lend
Lelse:
  x = ASSIGN x
Lend:
  RETURNVOID
end
`
	code, procs := parseAndLower(t, src)
	program, err := ir.BuildProgram(ir.NewContext(), code, procs)
	require.NoError(t, err)

	entry := program.EntryBlock()
	require.Len(t, entry.Successors, 2)
}

func TestLowerCallReturn(t *testing.T) {
	src := `
var r: public uint32
var a: public uint32

proc main:
  r = CALL helper, a
  RETCLEAN
  RETURNVOID
end

proc helper:
  RETURNVOID
end
`
	code, procs := parseAndLower(t, src)
	require.Len(t, procs, 2)

	program, err := ir.BuildProgram(ir.NewContext(), code, procs)
	require.NoError(t, err)
	assert.Len(t, program.Procedures, 2)

	mainProc := program.Procedures[0]
	callBlock := mainProc.Blocks[0]
	call := callBlock.Last()
	assert.Equal(t, ir.CALL, call.Opcode)
	assert.NotNil(t, call.Callee)
	assert.NotNil(t, call.RetClean)
}

func TestLowerForwardCallReference(t *testing.T) {
	src := `
var r: public uint32

proc main:
  r = CALL later
  RETCLEAN
  RETURNVOID
end

proc later:
  RETURNVOID
end
`
	code, procs := parseAndLower(t, src)
	_, err := ir.BuildProgram(ir.NewContext(), code, procs)
	require.NoError(t, err)
}

func TestLowerUndeclaredVariable(t *testing.T) {
	src := `
proc main:
  x = ASSIGN x
  RETURNVOID
end
`
	file, err := ParseString("test.secir", src)
	require.NoError(t, err)
	_, _, err = Lower(file, ir.NewContext())
	assert.Error(t, err)
}

func TestLowerMissingRetClean(t *testing.T) {
	src := `
var r: public uint32

proc main:
  r = CALL later
  RETURNVOID
end

proc later:
  RETURNVOID
end
`
	file, err := ParseString("test.secir", src)
	require.NoError(t, err)
	_, _, err = Lower(file, ir.NewContext())
	assert.Error(t, err)
}

func TestLowerGlobalVariable(t *testing.T) {
	src := `
global var g: public uint32

proc main:
  g = ASSIGN g
  RETURNVOID
end
`
	code, _ := parseAndLower(t, src)
	found := false
	for _, imop := range code {
		if imop.Dest != nil && imop.Dest.Name == "g" {
			assert.True(t, imop.Dest.IsGlobal())
			found = true
		}
	}
	assert.True(t, found)
}
