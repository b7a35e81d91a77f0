// Package asmtext is a textual IR-assembly front end standing in for the
// out-of-scope AST->IR emitter (spec section 1): it parses a flat,
// human-readable instruction listing and lowers it into the []*ir.Imop
// plus []ir.ProcDecl that ir.BuildProgram consumes, wiring every
// jump/call/return back-edge itself, per the emitter-facing contract of
// section 6.
package asmtext

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// Lexer tokenizes IR-assembly source: opcodes and identifiers share the
// Ident token (lower.go distinguishes them positionally, the same way
// the grammar for a three-address IR keeps "ADD"/"x"/"Lloop" in one
// lexical class and lets the parser's structure carry the meaning).
var Lexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		{"Comment", `//[^\n]*`, nil},
		{"Ident", `[a-zA-Z_][a-zA-Z0-9_]*`, nil},
		{"Integer", `-?[0-9]+`, nil},
		{"String", `"[^"]*"`, nil},
		{"Punctuation", `[:=,\[\]()]`, nil},
		{"Whitespace", `[ \t\r\n]+`, nil},
	},
})
