package asmtext

import (
	"fmt"
	"strconv"
	"strings"

	"secrec/internal/ir"
)

// argKind classifies how an Instr's operand list maps onto an Imop's
// Dest/Arg1/Arg2 slots, keyed by opcode. This mirrors the per-opcode
// layout effects.go's DefRange/UseRange encode, so a new opcode only ever
// needs one new case here and in effects.go, not a parser change.
type argKind int

const (
	argNone       argKind = iota // RETCLEAN, RETURNVOID, END: no operands, no dest.
	argLabel1                    // JUMP label
	argLabelCond1                // JT/JF label, cond
	argLabelCond2                // JE/JNE/JLE/JLT/JGE/JGT label, a, b
	argDestOnly                  // VARINTRO dest / ALLOC dest: declares dest, reads nothing.
	argUnary                     // dest = OP arg1
	argBinary                    // dest = OP arg1, arg2
	argStore                     // STORE dest, arg1, arg2 (no "=": Dest is used, not defined)
	argValue1                    // OP arg1, no dest (RELEASE/PUTPARAM/RETURN/ERROR)
	argCall                      // dest = CALL callee[, arg2]
	argComment                   // COMMENT "text"
)

var opcodeByName = map[string]ir.Opcode{
	"COMMENT": ir.COMMENT, "VARINTRO": ir.VARINTRO, "ASSIGN": ir.ASSIGN, "CAST": ir.CAST,
	"ALLOC": ir.ALLOC, "LOAD": ir.LOAD, "STORE": ir.STORE, "WILDCARD": ir.WILDCARD,
	"SUBSCRIPT": ir.SUBSCRIPT, "UNEG": ir.UNEG, "UMINUS": ir.UMINUS, "MATRIXMUL": ir.MATRIXMUL,
	"MUL": ir.MUL, "DIV": ir.DIV, "MOD": ir.MOD, "ADD": ir.ADD, "SUB": ir.SUB,
	"EQ": ir.EQ, "NE": ir.NE, "LE": ir.LE, "LT": ir.LT, "GE": ir.GE, "GT": ir.GT,
	"LAND": ir.LAND, "LOR": ir.LOR, "PUTPARAM": ir.PUTPARAM, "CALL": ir.CALL,
	"RETCLEAN": ir.RETCLEAN, "RETURN": ir.RETURN, "RETURNVOID": ir.RETURNVOID,
	"END": ir.END, "RELEASE": ir.RELEASE, "ERROR": ir.ERROR,
	"JUMP": ir.JUMP, "JT": ir.JT, "JF": ir.JF, "JE": ir.JE, "JNE": ir.JNE,
	"JLE": ir.JLE, "JLT": ir.JLT, "JGE": ir.JGE, "JGT": ir.JGT,
}

var opcodeArgKind = map[ir.Opcode]argKind{
	ir.RETCLEAN: argNone, ir.RETURNVOID: argNone, ir.END: argNone,
	ir.JUMP: argLabel1,
	ir.JT:   argLabelCond1, ir.JF: argLabelCond1,
	ir.JE: argLabelCond2, ir.JNE: argLabelCond2, ir.JLE: argLabelCond2,
	ir.JLT: argLabelCond2, ir.JGE: argLabelCond2, ir.JGT: argLabelCond2,
	ir.VARINTRO: argDestOnly, ir.ALLOC: argDestOnly,
	ir.ASSIGN: argUnary, ir.UNEG: argUnary, ir.UMINUS: argUnary,
	ir.WILDCARD: argUnary, ir.LOAD: argUnary,
	ir.CAST: argBinary, ir.SUBSCRIPT: argBinary, ir.MATRIXMUL: argBinary,
	ir.MUL: argBinary, ir.DIV: argBinary, ir.MOD: argBinary, ir.ADD: argBinary, ir.SUB: argBinary,
	ir.EQ: argBinary, ir.NE: argBinary, ir.LE: argBinary, ir.LT: argBinary,
	ir.GE: argBinary, ir.GT: argBinary, ir.LAND: argBinary, ir.LOR: argBinary,
	ir.STORE: argStore,
	ir.RELEASE: argValue1, ir.PUTPARAM: argValue1, ir.RETURN: argValue1, ir.ERROR: argValue1,
	ir.CALL:    argCall,
	ir.COMMENT: argComment,
}

var dataTypeByName = map[string]ir.DataType{
	"bool": ir.DataBool,
	"int8": ir.DataInt8, "int16": ir.DataInt16, "int32": ir.DataInt32, "int64": ir.DataInt64,
	"uint8": ir.DataUint8, "uint16": ir.DataUint16, "uint32": ir.DataUint32, "uint64": ir.DataUint64,
	"float32": ir.DataFloat32, "float64": ir.DataFloat64,
	"string": ir.DataString,
}

// pendingCall records a CALL/RETCLEAN pair whose callee procedure may not
// have been lowered yet (forward reference); Lower resolves it once every
// procedure's entry instruction exists.
type pendingCall struct {
	call     *ir.Imop
	retClean *ir.Imop
	callee   string
}

// procInfo is what Lower needs to remember about a declared procedure
// across the two lowering passes: its symbol (the ir.ProcDecl name) and
// its entry instruction once lowered.
type procInfo struct {
	symbol *ir.Symbol
	entry  *ir.Imop
}

// Lower converts a parsed File into the flat, fully cross-referenced
// instruction list and procedure declarations ir.BuildProgram requires.
// It runs two passes over the procedure bodies: the first creates every
// instruction, binds labels to the instruction that follows them, and
// wires jump dests (safe because labels are procedure-scoped: every label
// a procedure's jumps reference is bound by the time that procedure's body
// finishes); the second wires CALLs to their callee's entry instruction,
// deferred until every procedure has been lowered so forward references to
// a not-yet-seen procedure resolve correctly.
func Lower(file *File, ctx *ir.Context) ([]*ir.Imop, []ir.ProcDecl, error) {
	vars := ir.NewSymbolTable()
	procs := make(map[string]*procInfo)

	for _, item := range file.Items {
		if item.Var != nil {
			if err := declareVar(vars, item.Var); err != nil {
				return nil, nil, err
			}
		}
		if item.Proc != nil {
			if _, exists := procs[item.Proc.Name]; exists {
				return nil, nil, fmt.Errorf("asmtext: procedure %q declared twice", item.Proc.Name)
			}
			procs[item.Proc.Name] = &procInfo{}
		}
	}

	code := ir.NewCodeList()
	var declOrder []ir.ProcDecl
	var pending []pendingCall

	for _, item := range file.Items {
		if item.Proc == nil {
			continue
		}
		decl := item.Proc
		info := procs[decl.Name]
		info.symbol = ir.NewProcedureSymbol(decl.Name, &ir.ProcedureType{})

		entry := code.PushComment(ctx, "proc "+decl.Name)
		info.entry = entry
		declOrder = append(declOrder, ir.ProcDecl{Name: info.symbol, Entry: entry})

		more, err := lowerProcBody(code, ctx, vars, decl, entry)
		if err != nil {
			return nil, nil, err
		}
		pending = append(pending, more...)
	}

	for _, p := range pending {
		callee, ok := procs[p.callee]
		if !ok || callee.entry == nil {
			return nil, nil, fmt.Errorf("asmtext: call to undeclared procedure %q", p.callee)
		}
		p.call.SetCallDest(callee.entry, p.retClean)
	}

	return code.Slice(), declOrder, nil
}

func declareVar(vars *ir.SymbolTable, decl *VarDecl) error {
	if _, exists := vars.Lookup(decl.Name); exists {
		return fmt.Errorf("asmtext: variable %q declared twice", decl.Name)
	}
	dt, ok := dataTypeByName[decl.Data]
	if !ok {
		return fmt.Errorf("asmtext: unknown data type %q for variable %q", decl.Data, decl.Name)
	}
	scalar := &ir.ScalarType{Domain: decl.Domain, Data: dt}
	var typ ir.Type = scalar
	if decl.Dim != nil {
		typ = &ir.ArrayType{Elem: scalar, Dim: *decl.Dim}
	}
	scope := ir.ScopeLocal
	if decl.Global {
		scope = ir.ScopeGlobal
	}
	vars.Declare(decl.Name, ir.NewVariable(decl.Name, typ, scope))
	return nil
}

// lowerProcBody lowers one procedure's lines into code, binding and wiring
// every label-based jump within the procedure before returning, and
// returns the CALL/RETCLEAN pairs that still need their callee resolved.
func lowerProcBody(code *ir.CodeList, ctx *ir.Context, vars *ir.SymbolTable, decl *ProcDecl, entry *ir.Imop) ([]pendingCall, error) {
	labels := make(map[string]*ir.Symbol)
	type jumpFixup struct {
		imop  *ir.Imop
		label string
	}
	var pendingLabels []string
	var jumps []jumpFixup
	var pending []pendingCall
	var lastCall *ir.Imop
	var lastCallee string

	labelFor := func(name string) *ir.Symbol {
		if sym, ok := labels[name]; ok {
			return sym
		}
		sym := ir.NewLabel(name)
		labels[name] = sym
		return sym
	}

	bindPending := func(target *ir.Imop) {
		for _, name := range pendingLabels {
			labelFor(name).Bind(target)
		}
		pendingLabels = nil
	}

	for _, line := range decl.Lines {
		if line.Comment != nil {
			continue
		}
		if line.Label != nil {
			pendingLabels = append(pendingLabels, line.Label.Name)
			continue
		}
		instr := line.Instr
		op, ok := opcodeByName[instr.Op]
		if !ok {
			return nil, fmt.Errorf("asmtext: unknown opcode %q in procedure %q", instr.Op, decl.Name)
		}

		imop := ir.NewImop(op)
		kind := opcodeArgKind[op]

		if instr.Dest != nil {
			if kind != argUnary && kind != argBinary && kind != argDestOnly && kind != argCall {
				return nil, fmt.Errorf("asmtext: opcode %s does not take a %q = prefix", op, *instr.Dest)
			}
			sym, ok := vars.Lookup(*instr.Dest)
			if !ok {
				return nil, fmt.Errorf("asmtext: undeclared variable %q", *instr.Dest)
			}
			imop.Dest = sym
		}

		switch kind {
		case argNone:
			if err := expectArgs(instr, 0); err != nil {
				return nil, err
			}
		case argLabel1:
			if err := expectArgs(instr, 1); err != nil {
				return nil, err
			}
			name, err := identOperand(instr.Args[0])
			if err != nil {
				return nil, err
			}
			jumps = append(jumps, jumpFixup{imop, name})
		case argLabelCond1:
			if err := expectArgs(instr, 2); err != nil {
				return nil, err
			}
			name, err := identOperand(instr.Args[0])
			if err != nil {
				return nil, err
			}
			jumps = append(jumps, jumpFixup{imop, name})
			sym, err := resolveOperand(ctx, vars, instr.Args[1])
			if err != nil {
				return nil, err
			}
			imop.Arg1 = sym
		case argLabelCond2:
			if err := expectArgs(instr, 3); err != nil {
				return nil, err
			}
			name, err := identOperand(instr.Args[0])
			if err != nil {
				return nil, err
			}
			jumps = append(jumps, jumpFixup{imop, name})
			a1, err := resolveOperand(ctx, vars, instr.Args[1])
			if err != nil {
				return nil, err
			}
			a2, err := resolveOperand(ctx, vars, instr.Args[2])
			if err != nil {
				return nil, err
			}
			imop.Arg1, imop.Arg2 = a1, a2
		case argDestOnly:
			if err := expectArgs(instr, 0); err != nil {
				return nil, err
			}
			if imop.Dest == nil {
				return nil, fmt.Errorf("asmtext: %s requires a dest", op)
			}
		case argUnary:
			if err := expectArgs(instr, 1); err != nil {
				return nil, err
			}
			if imop.Dest == nil {
				return nil, fmt.Errorf("asmtext: %s requires a dest", op)
			}
			sym, err := resolveOperand(ctx, vars, instr.Args[0])
			if err != nil {
				return nil, err
			}
			imop.Arg1 = sym
		case argBinary:
			if err := expectArgs(instr, 2); err != nil {
				return nil, err
			}
			if imop.Dest == nil {
				return nil, fmt.Errorf("asmtext: %s requires a dest", op)
			}
			a1, err := resolveOperand(ctx, vars, instr.Args[0])
			if err != nil {
				return nil, err
			}
			a2, err := resolveOperand(ctx, vars, instr.Args[1])
			if err != nil {
				return nil, err
			}
			imop.Arg1, imop.Arg2 = a1, a2
		case argStore:
			if err := expectArgs(instr, 3); err != nil {
				return nil, err
			}
			dest, err := resolveOperand(ctx, vars, instr.Args[0])
			if err != nil {
				return nil, err
			}
			a1, err := resolveOperand(ctx, vars, instr.Args[1])
			if err != nil {
				return nil, err
			}
			a2, err := resolveOperand(ctx, vars, instr.Args[2])
			if err != nil {
				return nil, err
			}
			imop.Dest, imop.Arg1, imop.Arg2 = dest, a1, a2
		case argValue1:
			if err := expectArgs(instr, 1); err != nil {
				return nil, err
			}
			sym, err := resolveOperand(ctx, vars, instr.Args[0])
			if err != nil {
				return nil, err
			}
			imop.Arg1 = sym
		case argCall:
			if len(instr.Args) != 1 && len(instr.Args) != 2 {
				return nil, fmt.Errorf("asmtext: CALL takes a callee and an optional argument, got %d operands", len(instr.Args))
			}
			if imop.Dest == nil {
				return nil, fmt.Errorf("asmtext: CALL requires a dest")
			}
			callee, err := identOperand(instr.Args[0])
			if err != nil {
				return nil, err
			}
			if len(instr.Args) == 2 {
				sym, err := resolveOperand(ctx, vars, instr.Args[1])
				if err != nil {
					return nil, err
				}
				imop.Arg2 = sym
			}
			lastCall = imop
			lastCallee = callee
		case argComment:
			if err := expectArgs(instr, 1); err != nil {
				return nil, err
			}
			text, err := stringOperand(instr.Args[0])
			if err != nil {
				return nil, err
			}
			imop.Arg1 = ctx.String(text)
		}

		if op == ir.RETCLEAN {
			if lastCall == nil {
				return nil, fmt.Errorf("asmtext: RETCLEAN with no matching CALL in procedure %q", decl.Name)
			}
			pending = append(pending, pendingCall{call: lastCall, retClean: imop, callee: lastCallee})
			lastCall = nil
		}

		code.Append(imop)
		bindPending(imop)

		if op == ir.RETURN || op == ir.RETURNVOID {
			imop.SetReturnDest(entry)
		}
	}

	if lastCall != nil {
		return nil, fmt.Errorf("asmtext: CALL with no matching RETCLEAN in procedure %q", decl.Name)
	}

	if len(pendingLabels) > 0 {
		return nil, fmt.Errorf("asmtext: label(s) %s in procedure %q bind to nothing", strings.Join(pendingLabels, ", "), decl.Name)
	}

	for _, j := range jumps {
		label, ok := labels[j.label]
		if !ok || label.Instruction == nil {
			return nil, fmt.Errorf("asmtext: undefined label %q in procedure %q", j.label, decl.Name)
		}
		j.imop.SetJumpDest(label)
	}

	return pending, nil
}

func expectArgs(instr *Instr, n int) error {
	if len(instr.Args) != n {
		return fmt.Errorf("asmtext: %s expects %d operand(s), got %d", instr.Op, n, len(instr.Args))
	}
	return nil
}

func identOperand(op *Operand) (string, error) {
	if op.Ident == nil {
		return "", fmt.Errorf("asmtext: expected an identifier operand")
	}
	return *op.Ident, nil
}

func stringOperand(op *Operand) (string, error) {
	if op.Str == nil {
		return "", fmt.Errorf("asmtext: expected a string operand")
	}
	return strings.Trim(*op.Str, `"`), nil
}

// resolveOperand resolves a grammar Operand to the Symbol an Imop operand
// slot holds: a declared variable for an identifier, or a freshly interned
// constant for a literal. Integer literals default to a public int32, the
// way an untyped assembly operand needs some concrete width to key the
// constant pool on.
func resolveOperand(ctx *ir.Context, vars *ir.SymbolTable, op *Operand) (*ir.Symbol, error) {
	switch {
	case op.Ident != nil:
		sym, ok := vars.Lookup(*op.Ident)
		if !ok {
			return nil, fmt.Errorf("asmtext: undeclared variable %q", *op.Ident)
		}
		return sym, nil
	case op.Int != nil:
		n, err := strconv.ParseInt(*op.Int, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("asmtext: invalid integer literal %q: %w", *op.Int, err)
		}
		return ctx.Int(ir.DataInt32, uint64(n)), nil
	case op.Str != nil:
		return ctx.String(strings.Trim(*op.Str, `"`)), nil
	default:
		return nil, fmt.Errorf("asmtext: empty operand")
	}
}
