package asmtext

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// File is the root grammar node: a sequence of comments, variable
// declarations and procedure bodies, in source order. Procedure order is
// significant — the first ProcDecl becomes the program's main procedure,
// per ir.BuildProgram's "procs[0].Entry == code[0]" requirement.
type File struct {
	Pos   lexer.Position
	Items []*Item `@@*`
}

type Item struct {
	Comment *Comment `  @@`
	Var     *VarDecl `| @@`
	Proc    *ProcDecl `| @@`
}

type Comment struct {
	Text string `@Comment`
}

// VarDecl declares a named operand once, up front: "var x: public uint32"
// for a scalar, "var a: public uint32[[2]]" for a dimension-2 array,
// "global var g: ..." for a symbol visible across Call/Ret edges.
type VarDecl struct {
	Global bool   `[ @"global" ]`
	Name   string `"var" @Ident ":"`
	Domain string `@Ident`
	Data   string `@Ident`
	Dim    *int   `[ "[" "[" @Integer "]" "]" ]`
}

// ProcDecl is one procedure: "proc name:" followed by its lines, closed
// by "end".
type ProcDecl struct {
	Name  string  `"proc" @Ident ":"`
	Lines []*Line `@@*`
	End   string  `"end"`
}

type Line struct {
	Comment *Comment  `  @@`
	Label   *LabelDef `| @@`
	Instr   *Instr    `| @@`
}

// LabelDef binds a name to the position of the next instruction emitted
// in this procedure: "Lthen:".
type LabelDef struct {
	Name string `@Ident ":"`
}

// Instr is one instruction: an optional "dest =" prefix, an opcode name,
// and a comma-separated operand list whose arity and role (label,
// variable, callee name, literal) depend on the opcode — resolved by
// lower.go, not by the grammar. A CALL's callee name is just its first
// operand: "r = CALL foo, a, b" rather than a parenthesized call syntax.
type Instr struct {
	Dest *string    `( @Ident "=" )?`
	Op   string     `@Ident`
	Args []*Operand `( @@ ( "," @@ )* )?`
}

type Operand struct {
	Ident *string `  @Ident`
	Int   *string `| @Integer`
	Str   *string `| @String`
}
