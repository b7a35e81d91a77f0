package ir

// ProcDecl names one procedure's position in a flat instruction list: its
// display name and its leading COMMENT instruction. BuildProgram uses these
// to split the list into Procedures; main must be first.
type ProcDecl struct {
	Name  *Symbol
	Entry *Imop
}

// BuildProgram is the CFG construction entry point: it partitions a linear,
// fully cross-referenced instruction list into basic blocks, links them into
// a control-flow graph, groups the blocks into procedures, and marks every
// block reachable from program entry.
//
// code must already carry every back-edge an emitter owes it: jump Dest
// symbols bound to their label instruction, CALL wired via SetCallDest,
// RETURN/RETURNVOID wired via SetReturnDest. BuildProgram never mutates an
// instruction's operands or back-edges; it only assigns each Block and
// builds the Block/Procedure/Program scaffolding around the list.
func BuildProgram(ctx *Context, code []*Imop, procs []ProcDecl) (*Program, error) {
	if len(code) == 0 {
		return nil, &BuildError{Kind: ErrEmptyProgram}
	}
	if len(procs) == 0 || procs[0].Entry != code[0] {
		return nil, &BuildError{Kind: ErrNoMain}
	}
	if err := validateWiring(code); err != nil {
		return nil, err
	}

	program := &Program{Context: ctx}
	blocks := partitionBlocks(code, procs, program)
	linkEdges(blocks)
	propagateReachable(program)

	return program, nil
}

// partitionBlocks performs the single linear scan: a new block begins at
// the first instruction, at any instruction IsLeader reports true for
// (targeted by a jump/call/return), at the leading COMMENT of each declared
// procedure, and immediately after a terminator.
func partitionBlocks(code []*Imop, procs []ProcDecl, program *Program) []*Block {
	procEntries := make(map[*Imop]*ProcDecl, len(procs))
	for i := range procs {
		procEntries[procs[i].Entry] = &procs[i]
	}

	var blocks []*Block
	var proc *Procedure
	var cur *Block
	blockIndex := 0

	for i, imop := range code {
		decl, isProcEntry := procEntries[imop]
		if isProcEntry {
			proc = newProcedure(decl.Name)
			proc.Program = program
			program.Procedures = append(program.Procedures, proc)
		}
		startsBlock := i == 0 || isProcEntry || imop.IsLeader() || (cur != nil && IsTerminator(cur.Last().Opcode))
		if startsBlock || cur == nil {
			cur = newBlock(blockIndex, proc)
			blockIndex++
			blocks = append(blocks, cur)
			proc.Blocks = append(proc.Blocks, cur)
		}
		cur.Instructions = append(cur.Instructions, imop)
		imop.Block = cur
	}
	return blocks
}

// linkEdges computes every block's outgoing edges from the fully-wired
// instruction graph, per block's terminating instruction.
func linkEdges(blocks []*Block) {
	for idx, b := range blocks {
		last := b.Last()
		var next *Block
		if idx+1 < len(blocks) {
			next = blocks[idx+1]
		}

		switch {
		case last.Opcode == JUMP:
			addEdge(b, last.Dest.Instruction.Block, EdgeJump)

		case IsCondJump(last.Opcode):
			addEdge(b, last.Dest.Instruction.Block, EdgeTrue)
			if next != nil {
				addEdge(b, next, EdgeFalse)
			}

		case last.Opcode == CALL:
			addEdge(b, last.Callee.Block, EdgeCall)
			addEdge(b, last.RetClean.Block, EdgeCallPass)
			last.Callee.Block.Proc.addCallFrom(b)

		case last.Opcode == RETURN || last.Opcode == RETURNVOID:
			b.Proc.addExit(b)
			for call := range last.ProcEntry.IncomingCalls() {
				addEdge(b, call.RetClean.Block, EdgeRet)
				b.Proc.addReturnTo(call.RetClean.Block)
			}

		case last.Opcode == END:
			b.Proc.addExit(b)

		default:
			if next != nil {
				addEdge(b, next, EdgeJump)
			}
		}
	}
}

// propagateReachable marks every block reachable from program entry via a
// depth-first walk, using an explicit stack, over successor edges of every
// label.
func propagateReachable(program *Program) {
	entry := program.EntryBlock()
	if entry == nil {
		return
	}
	stack := []*Block{entry}
	entry.reachable = true
	for len(stack) > 0 {
		b := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for succ := range b.Successors {
			if !succ.reachable {
				succ.reachable = true
				stack = append(stack, succ)
			}
		}
	}
}

// validateWiring catches the core "ill-formed IR" conditions a code
// generator must never produce: unresolved jump targets, CALLs missing
// their RETCLEAN, RETCLEANs missing their CALL, and RETURNs missing the
// procedure entry they close.
func validateWiring(code []*Imop) error {
	for _, imop := range code {
		switch {
		case IsJump(imop.Opcode):
			if imop.Dest == nil || imop.Dest.SymbolKind() != SymLabel || imop.Dest.Instruction == nil {
				return &BuildError{Kind: ErrIllFormed, Index: imop.Index, Opcode: imop.Opcode}
			}
		case imop.Opcode == CALL:
			if imop.Callee == nil || imop.RetClean == nil {
				return &BuildError{Kind: ErrIllFormed, Index: imop.Index, Opcode: imop.Opcode}
			}
		case imop.Opcode == RETCLEAN:
			if imop.MatchingCall == nil {
				return &BuildError{Kind: ErrIllFormed, Index: imop.Index, Opcode: imop.Opcode}
			}
		case imop.Opcode == RETURN || imop.Opcode == RETURNVOID:
			if imop.ProcEntry == nil || imop.ProcEntry.Opcode != COMMENT {
				return &BuildError{Kind: ErrIllFormed, Index: imop.Index, Opcode: imop.Opcode}
			}
		}
	}
	return nil
}
