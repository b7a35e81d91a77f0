package ir

// Procedure is an ordered list of basic blocks belonging to one SecreC
// procedure. It is owned by its Program; removing it cascades to its
// blocks.
type Procedure struct {
	Name    *Symbol
	Blocks  []*Block
	Program *Program

	// CallFrom/ReturnTo/Exits are non-owning relationship sets, mirroring
	// the original Procedure's callFrom/returnTo/exitBlocks.
	CallFrom map[*Block]struct{} // blocks elsewhere in the program that CALL into this procedure
	ReturnTo map[*Block]struct{} // blocks this procedure's RETURNs jump back to
	Exits    map[*Block]struct{} // this procedure's own exit blocks
}

func newProcedure(name *Symbol) *Procedure {
	return &Procedure{
		Name:     name,
		CallFrom: make(map[*Block]struct{}),
		ReturnTo: make(map[*Block]struct{}),
		Exits:    make(map[*Block]struct{}),
	}
}

// Entry returns the procedure's first block.
func (p *Procedure) Entry() *Block {
	if len(p.Blocks) == 0 {
		return nil
	}
	return p.Blocks[0]
}

func (p *Procedure) addCallFrom(b *Block) { p.CallFrom[b] = struct{}{} }
func (p *Procedure) addReturnTo(b *Block) { p.ReturnTo[b] = struct{}{} }
func (p *Procedure) addExit(b *Block)     { p.Exits[b] = struct{}{} }
