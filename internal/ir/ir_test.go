package ir

import (
	"strings"
	"testing"
)

// testProgram builds a two-procedure program: main declares a local
// array, calls foo, then returns; foo returns immediately. It exercises
// the leader/terminator partition, the CALL/RETCLEAN/RETURN back-edges,
// and cross-procedure edge labelling in one shot.
func testProgram(t *testing.T) (*Program, *Symbol, *Symbol) {
	t.Helper()

	arrType := &ArrayType{Elem: &ScalarType{Domain: "public", Data: DataUint32}, Dim: 1}
	x := NewVariable("x", arrType, ScopeLocal)
	y := NewVariable("y", arrType, ScopeLocal)

	mainEntry := NewImop(COMMENT)
	varintro := NewImop(VARINTRO)
	varintro.Dest = x
	assign := NewImop(ASSIGN)
	assign.Dest = x
	assign.Arg1 = y
	call := NewImop(CALL)
	retclean := NewImop(RETCLEAN)
	mainReturn := NewImop(RETURNVOID)

	fooEntry := NewImop(COMMENT)
	fooReturn := NewImop(RETURNVOID)

	call.SetCallDest(fooEntry, retclean)
	mainReturn.SetReturnDest(mainEntry)
	fooReturn.SetReturnDest(fooEntry)

	code := []*Imop{
		mainEntry, varintro, assign, call, retclean, mainReturn,
		fooEntry, fooReturn,
	}

	mainSym := NewProcedureSymbol("main", &ProcedureType{Return: VoidType{}})
	fooSym := NewProcedureSymbol("foo", &ProcedureType{Return: VoidType{}})
	procs := []ProcDecl{
		{Name: mainSym, Entry: mainEntry},
		{Name: fooSym, Entry: fooEntry},
	}

	program, err := BuildProgram(NewContext(), code, procs)
	if err != nil {
		t.Fatalf("BuildProgram: %v", err)
	}
	return program, x, y
}

func TestBuildProgramPartitionsBlocks(t *testing.T) {
	program, _, _ := testProgram(t)

	if len(program.Procedures) != 2 {
		t.Fatalf("expected 2 procedures, got %d", len(program.Procedures))
	}

	main := program.Procedures[0]
	// main: [entry,varintro,assign,call] | [retclean,return] = 2 blocks
	if len(main.Blocks) != 2 {
		t.Fatalf("expected main to have 2 blocks, got %d", len(main.Blocks))
	}
	if len(main.Blocks[0].Instructions) != 4 {
		t.Errorf("expected main's first block to hold 4 instructions, got %d", len(main.Blocks[0].Instructions))
	}

	foo := program.Procedures[1]
	if len(foo.Blocks) != 1 {
		t.Fatalf("expected foo to have 1 block, got %d", len(foo.Blocks))
	}
}

func TestBuildProgramCallEdges(t *testing.T) {
	program, _, _ := testProgram(t)
	main := program.Procedures[0]
	foo := program.Procedures[1]

	callBlock := main.Blocks[0]
	retCleanBlock := main.Blocks[1]
	fooBlock := foo.Blocks[0]

	if callBlock.Successors[fooBlock]&EdgeCall == 0 {
		t.Error("expected Call edge from call block to foo's entry block")
	}
	if callBlock.Successors[retCleanBlock]&EdgeCallPass == 0 {
		t.Error("expected CallPass edge from call block to retclean block")
	}
	if fooBlock.Successors[retCleanBlock]&EdgeRet == 0 {
		t.Error("expected Ret edge from foo's block back to retclean block")
	}

	if _, ok := foo.CallFrom[callBlock]; !ok {
		t.Error("expected foo.CallFrom to register the call block")
	}
}

func TestBuildProgramReachability(t *testing.T) {
	program, _, _ := testProgram(t)
	program.Blocks(func(b *Block) {
		if !b.Reachable() {
			t.Errorf("block %d: expected reachable, since every block here is wired from entry", b.Index)
		}
	})
}

func TestBuildProgramRejectsEmpty(t *testing.T) {
	_, err := BuildProgram(NewContext(), nil, nil)
	if err == nil {
		t.Fatal("expected an error for an empty instruction list")
	}
	buildErr, ok := err.(*BuildError)
	if !ok || buildErr.Kind != ErrEmptyProgram {
		t.Fatalf("expected ErrEmptyProgram, got %v", err)
	}
}

func TestBuildProgramRejectsUnresolvedJump(t *testing.T) {
	entry := NewImop(COMMENT)
	label := NewLabel("L")
	jump := NewImop(JUMP)
	jump.Dest = label // never bound to an instruction

	mainSym := NewProcedureSymbol("main", &ProcedureType{Return: VoidType{}})
	_, err := BuildProgram(NewContext(), []*Imop{entry, jump}, []ProcDecl{{Name: mainSym, Entry: entry}})
	if err == nil {
		t.Fatal("expected an error for an unresolved jump target")
	}
	buildErr, ok := err.(*BuildError)
	if !ok || buildErr.Kind != ErrIllFormed {
		t.Fatalf("expected ErrIllFormed, got %v", err)
	}
}

func TestPrintShowsUnreachableBlocks(t *testing.T) {
	// A JUMP over a dead block: the dead block's only possible entry is
	// the fallthrough, which the jump skips.
	entry := NewImop(COMMENT)
	label := NewLabel("after")
	jump := NewImop(JUMP)
	dead := NewImop(VARINTRO)
	dead.Dest = NewVariable("d", &ScalarType{Domain: "public", Data: DataBool}, ScopeLocal)
	after := NewImop(END)
	label.Bind(after)
	jump.SetJumpDest(label)

	mainSym := NewProcedureSymbol("main", &ProcedureType{Return: VoidType{}})
	code := []*Imop{entry, jump, dead, after}
	program, err := BuildProgram(NewContext(), code, []ProcDecl{{Name: mainSym, Entry: entry}})
	if err != nil {
		t.Fatalf("BuildProgram: %v", err)
	}

	deadBlock := dead.Block
	if deadBlock.Reachable() {
		t.Fatal("expected the block after an unconditional jump skipping it to be unreachable")
	}

	out := Print(program)
	if !strings.Contains(out, "unreachable") {
		t.Errorf("expected dump to mark the unreachable block, got:\n%s", out)
	}
}

func TestDumpDotRendersOneDigraphPerProcedure(t *testing.T) {
	program, _, _ := testProgram(t)

	out := DumpDot(program)
	if strings.Count(out, "digraph") != 2 {
		t.Errorf("expected one digraph per procedure, got:\n%s", out)
	}
	if !strings.Contains(out, "->") {
		t.Errorf("expected at least one edge in the dot output, got:\n%s", out)
	}
}
