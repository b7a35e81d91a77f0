package ir

// Program is the root container: an ordered list of procedures, the main
// procedure first. Program owns Procedures; Procedure owns Blocks; Block
// owns its Instructions (cascading removal). Back-edges and
// predecessor/successor maps are non-owning and must stay symmetric across
// every structural edit.
type Program struct {
	Procedures []*Procedure
	Context    *Context
}

// EntryBlock returns the program's entry block: the first block of the
// first (main) procedure.
func (p *Program) EntryBlock() *Block {
	if len(p.Procedures) == 0 {
		return nil
	}
	return p.Procedures[0].Entry()
}

// ExitBlock returns the program's unique exit block: the block whose last
// instruction is END. Returns nil if no such block exists (ill-formed
// input, or a program whose END was already removed by a trimming pass).
func (p *Program) ExitBlock() *Block {
	for _, proc := range p.Procedures {
		for _, b := range proc.Blocks {
			if len(b.Instructions) > 0 && b.Last().Opcode == END {
				return b
			}
		}
	}
	return nil
}

// Blocks iterates every block of every procedure in program order,
// matching the FOREACH_BLOCK traversal the analyses rely on.
func (p *Program) Blocks(fn func(*Block)) {
	for _, proc := range p.Procedures {
		for _, b := range proc.Blocks {
			fn(b)
		}
	}
}

// removeBlock deletes b from its procedure, unlinking all incident edges
// and discarding its instructions. Used by the unreachable-block pass.
func (p *Program) removeBlock(b *Block) {
	b.unlink()
	proc := b.Proc
	for i, other := range proc.Blocks {
		if other == b {
			proc.Blocks = append(proc.Blocks[:i], proc.Blocks[i+1:]...)
			break
		}
	}
	delete(proc.Exits, b)
	delete(proc.CallFrom, b)
	delete(proc.ReturnTo, b)
}

// RemoveBlock is the exported form of removeBlock, used by optimizer
// passes operating from outside the ir package.
func (p *Program) RemoveBlock(b *Block) { p.removeBlock(b) }

// ReplaceInstruction swaps old for repl in old's block, preserving
// position, index, and old's incoming back-edges (callers must have
// already re-homed any outgoing references old held, e.g. jump targets).
func (p *Program) ReplaceInstruction(old, repl *Imop) {
	block := old.Block
	for i, imop := range block.Instructions {
		if imop == old {
			block.Instructions[i] = repl
			break
		}
	}
	repl.Index = old.Index
	repl.Block = block
	repl.incoming = old.incoming
	repl.incomingCalls = old.incomingCalls
	repl.returns = old.returns
}

// DeleteInstruction removes imop from its block outright. Callers are
// responsible for ensuring no remaining back-edge references it.
func (p *Program) DeleteInstruction(imop *Imop) {
	block := imop.Block
	for i, other := range block.Instructions {
		if other == imop {
			block.Instructions = append(block.Instructions[:i], block.Instructions[i+1:]...)
			return
		}
	}
}
