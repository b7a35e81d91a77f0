package ir

// defRange and useRange are pure functions of an instruction's opcode and
// operands, as the emitter contract requires: every data-flow analysis is
// built on top of them and never re-derives semantics from the opcode
// itself. Label and constant operands never appear in either set: only
// variable symbols participate in reaching/liveness/release analyses.

// DefRange returns the symbols this instruction defines (assigns a new
// value to).
func (i *Imop) DefRange() []*Symbol {
	switch i.Opcode {
	case VARINTRO, ASSIGN, CAST, ALLOC, LOAD, WILDCARD, SUBSCRIPT,
		UNEG, UMINUS, MATRIXMUL, MUL, DIV, MOD, ADD, SUB,
		EQ, NE, LE, LT, GE, GT, LAND, LOR, CALL:
		return variableOnly(i.Dest)
	default:
		return nil
	}
}

// UseRange returns the symbols this instruction reads.
func (i *Imop) UseRange() []*Symbol {
	switch i.Opcode {
	case ASSIGN, UNEG, UMINUS, RELEASE, PUTPARAM, RETURN:
		return variableOnly(i.Arg1)
	case CAST, WILDCARD, SUBSCRIPT, MATRIXMUL, MUL, DIV, MOD, ADD, SUB,
		EQ, NE, LE, LT, GE, GT, LAND, LOR:
		return variableOnly(i.Arg1, i.Arg2)
	case STORE:
		return variableOnly(i.Dest, i.Arg1, i.Arg2)
	case JT, JF:
		return variableOnly(i.Arg1)
	case JE, JNE, JLE, JLT, JGE, JGT:
		return variableOnly(i.Arg1, i.Arg2)
	case CALL:
		return variableOnly(i.Arg1, i.Arg2)
	default:
		return nil
	}
}

func variableOnly(syms ...*Symbol) []*Symbol {
	var out []*Symbol
	for _, s := range syms {
		if s != nil && s.SymbolKind() == SymVariable {
			out = append(out, s)
		}
	}
	return out
}
