package dataflow

import (
	"github.com/willf/bitset"

	"secrec/internal/ir"
)

// ReachingDefinitions computes, for every block and every variable
// symbol, the set of instructions that may have most recently defined
// that symbol on some path reaching the block's entry (In) or exit
// (Out). State is one bitset.BitSet per symbol, indexed over every
// instruction in the program via Handles, rather than a map keyed by
// instruction pointer.
type ReachingDefinitions struct {
	symbols *SymbolIndex
	instrs  *Handles
	defBit  map[*ir.Imop]uint // instruction -> symbol bit it defines, if any

	in, out map[*ir.Block][]*bitset.BitSet
}

// NewReachingDefinitions creates an unstarted analysis.
func NewReachingDefinitions() *ReachingDefinitions { return &ReachingDefinitions{} }

func (r *ReachingDefinitions) Name() string { return "reaching-definitions" }

func (r *ReachingDefinitions) Start(program *ir.Program) {
	r.symbols = NewSymbolIndex(program)
	r.instrs = NewHandles()
	r.defBit = make(map[*ir.Imop]uint)
	r.in = make(map[*ir.Block][]*bitset.BitSet)
	r.out = make(map[*ir.Block][]*bitset.BitSet)

	program.Blocks(func(b *ir.Block) {
		for _, imop := range b.Instructions {
			r.instrs.Add(imop)
			defs := imop.DefRange()
			if len(defs) == 0 {
				continue
			}
			if bit, ok := r.symbols.Bit(defs[0]); ok {
				r.defBit[imop] = bit
			}
		}
		r.in[b] = r.emptySets()
		r.out[b] = r.emptySets()
	})
}

func (r *ReachingDefinitions) emptySets() []*bitset.BitSet {
	sets := make([]*bitset.BitSet, r.symbols.Len())
	for i := range sets {
		sets[i] = bitset.New(uint(r.instrs.Len()))
	}
	return sets
}

func (r *ReachingDefinitions) StartBlock(b *ir.Block) {
	for _, set := range r.in[b] {
		set.ClearAll()
	}
}

// InFrom merges pred's reaching definitions across the pred->b edge into
// b's in-state, restricting propagation to global-scope symbols when the
// edge crosses a procedure boundary (Call or Ret).
func (r *ReachingDefinitions) InFrom(pred *ir.Block, label ir.EdgeLabel, b *ir.Block) {
	predOut := r.out[pred]
	bIn := r.in[b]
	for bit := range bIn {
		if label.IsGlobal() && !r.symbols.Symbol(uint(bit)).IsGlobal() {
			continue
		}
		bIn[bit].InPlaceUnion(predOut[bit])
	}
}

// FinishBlock applies the block's transfer function: for each symbol,
// out starts as a copy of in, then every definition of that symbol found
// in the block overwrites it with the singleton set {that instruction},
// in textual order.
func (r *ReachingDefinitions) FinishBlock(b *ir.Block) bool {
	next := cloneSets(r.in[b])
	for _, imop := range b.Instructions {
		bit, ok := r.defBit[imop]
		if !ok {
			continue
		}
		handle, _ := r.instrs.Bit(imop)
		fresh := bitset.New(uint(r.instrs.Len()))
		fresh.Set(handle)
		next[bit] = fresh
	}

	changed := !equalSets(next, r.out[b])
	r.out[b] = next
	return changed
}

func (r *ReachingDefinitions) Finish() {}

// Height bounds the lattice: a symbol's reaching set only ever grows
// (union), one instruction-bit at a time, up to the instruction count.
func (r *ReachingDefinitions) Height() int { return r.instrs.Len() }

// ReachingDefs returns the instructions that may define sym on entry to b.
func (r *ReachingDefinitions) ReachingDefs(b *ir.Block, sym *ir.Symbol) []*ir.Imop {
	bit, ok := r.symbols.Bit(sym)
	if !ok {
		return nil
	}
	return r.instrs.Instructions(r.in[b][bit])
}

// ReachingDefsOnExit returns the instructions that may define sym on exit
// from b.
func (r *ReachingDefinitions) ReachingDefsOnExit(b *ir.Block, sym *ir.Symbol) []*ir.Imop {
	bit, ok := r.symbols.Bit(sym)
	if !ok {
		return nil
	}
	return r.instrs.Instructions(r.out[b][bit])
}
