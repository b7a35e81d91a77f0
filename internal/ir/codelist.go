package ir

// CodeList is the linear instruction list the emitter produces and the CFG
// builder consumes. Append assigns each instruction a 1-based index equal
// to its position; ResetIndexes renumbers after bulk mutation (instruction
// deletion/insertion by an optimizer pass).
type CodeList struct {
	list []*Imop
}

// NewCodeList creates an empty instruction list.
func NewCodeList() *CodeList { return &CodeList{} }

// Len returns the number of instructions currently in the list.
func (c *CodeList) Len() int { return len(c.list) }

// At returns the instruction at position idx (0-based).
func (c *CodeList) At(idx int) *Imop { return c.list[idx] }

// Slice returns the underlying instructions in order. Callers must not
// mutate the returned slice's backing array.
func (c *CodeList) Slice() []*Imop { return c.list }

// Append adds imop to the end of the list and assigns it the next index.
func (c *CodeList) Append(imop *Imop) *Imop {
	c.list = append(c.list, imop)
	imop.Index = len(c.list)
	return imop
}

// InsertBefore inserts imop immediately before the instruction currently at
// position idx (0-based), for code generators that track a current
// insertion point mid-list. Every instruction's Index is renumbered after
// the insertion.
func (c *CodeList) InsertBefore(idx int, imop *Imop) {
	c.list = append(c.list, nil)
	copy(c.list[idx+1:], c.list[idx:])
	c.list[idx] = imop
	c.ResetIndexes()
}

// ResetIndexes renumbers every instruction's Index to match its current
// position (1-based), required after any bulk mutation of the list.
func (c *CodeList) ResetIndexes() {
	for i, imop := range c.list {
		imop.Index = i + 1
	}
}

// PushComment appends a COMMENT instruction carrying text as its payload
// and returns it, mirroring the emitter helper that stamps procedure/block
// boundaries with a descriptive comment.
func (c *CodeList) PushComment(ctx *Context, text string) *Imop {
	imop := NewImop(COMMENT)
	imop.Arg1 = ctx.String(text)
	return c.Append(imop)
}
