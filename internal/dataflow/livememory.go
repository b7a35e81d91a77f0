package dataflow

import (
	"github.com/willf/bitset"

	"secrec/internal/ir"
)

// LiveMemory computes, for every block and every array-typed symbol, the
// set of non-RELEASE instructions that may read that symbol's current
// value on some path forward without an intervening redefinition: the
// complement the copy-elimination pass needs alongside ReachableReleases
// to tell an array copy whose only future is being released (dead) apart
// from one some later computation still depends on (live).
//
// This query has no counterpart exposed by the original implementation's
// retrieved headers; its shape is inferred from how the copy-elimination
// pass consumes it rather than copied from a declaration, and documented
// as such.
type LiveMemory struct {
	symbols *SymbolIndex
	uses    *Handles // non-RELEASE instructions with at least one use

	in, out map[*ir.Block][]*bitset.BitSet
}

// NewLiveMemory creates an unstarted analysis.
func NewLiveMemory() *LiveMemory { return &LiveMemory{} }

func (lm *LiveMemory) Name() string { return "live-memory" }

func (lm *LiveMemory) Start(program *ir.Program) {
	lm.symbols = NewSymbolIndex(program)
	lm.uses = NewHandles()
	program.Blocks(func(b *ir.Block) {
		for _, imop := range b.Instructions {
			if imop.Opcode == ir.RELEASE {
				continue
			}
			if len(imop.UseRange()) > 0 {
				lm.uses.Add(imop)
			}
		}
	})

	lm.in = make(map[*ir.Block][]*bitset.BitSet)
	lm.out = make(map[*ir.Block][]*bitset.BitSet)
	program.Blocks(func(b *ir.Block) {
		lm.in[b] = lm.emptySets()
		lm.out[b] = lm.emptySets()
	})
}

func (lm *LiveMemory) emptySets() []*bitset.BitSet {
	sets := make([]*bitset.BitSet, lm.symbols.Len())
	for i := range sets {
		sets[i] = bitset.New(uint(lm.uses.Len()))
	}
	return sets
}

func (lm *LiveMemory) StartBlock(b *ir.Block) {
	for _, set := range lm.out[b] {
		set.ClearAll()
	}
}

func (lm *LiveMemory) OutTo(b *ir.Block, label ir.EdgeLabel, succ *ir.Block) {
	succIn := lm.in[succ]
	bOut := lm.out[b]
	for bit := range bOut {
		if label.IsGlobal() && !lm.symbols.Symbol(uint(bit)).IsGlobal() {
			continue
		}
		bOut[bit].InPlaceUnion(succIn[bit])
	}
}

func (lm *LiveMemory) FinishBlock(b *ir.Block) bool {
	next := lm.applyReverse(lm.out[b], b.Instructions)
	changed := !equalSets(next, lm.in[b])
	lm.in[b] = next
	return changed
}

// applyReverse mirrors ReachableReleases.applyReverse: a def of a symbol
// clears its use-set, and any non-RELEASE instruction reading a symbol
// sets its own handle into that symbol's use-set.
func (lm *LiveMemory) applyReverse(base []*bitset.BitSet, instrs []*ir.Imop) []*bitset.BitSet {
	next := cloneSets(base)
	for i := len(instrs) - 1; i >= 0; i-- {
		imop := instrs[i]
		for _, s := range imop.DefRange() {
			if bit, ok := lm.symbols.Bit(s); ok {
				next[bit] = bitset.New(uint(lm.uses.Len()))
			}
		}
		if imop.Opcode == ir.RELEASE {
			continue
		}
		useBit, ok := lm.uses.Bit(imop)
		if !ok {
			continue
		}
		for _, s := range imop.UseRange() {
			if bit, ok := lm.symbols.Bit(s); ok {
				next[bit].Set(useBit)
			}
		}
	}
	return next
}

func (lm *LiveMemory) Finish() {}

// Height bounds the lattice: a symbol's use-set only ever grows, one
// instruction-bit at a time, up to the use count.
func (lm *LiveMemory) Height() int { return lm.uses.Len() }

// HasRealUse reports whether sym has any non-RELEASE use reachable
// forward from the point immediately after b.Instructions[idx], without
// an intervening redefinition.
func (lm *LiveMemory) HasRealUse(b *ir.Block, idx int, sym *ir.Symbol) bool {
	bit, ok := lm.symbols.Bit(sym)
	if !ok {
		return false
	}
	sets := lm.applyReverse(lm.out[b], b.Instructions[idx+1:])
	return sets[bit].Count() > 0
}

// DeadCopies returns every ASSIGN between two array-typed symbols whose
// destination has no real use reachable forward from right after the
// copy: the copy only ever gets released, so its dest and arg1 are
// interchangeable from that point on.
func (lm *LiveMemory) DeadCopies(program *ir.Program) []*ir.Imop {
	var dead []*ir.Imop
	program.Blocks(func(b *ir.Block) {
		if !b.Reachable() {
			return
		}
		for idx, imop := range b.Instructions {
			if imop.Opcode != ir.ASSIGN || imop.Dest == nil || imop.Arg1 == nil {
				continue
			}
			if !imop.Dest.IsArray() || !imop.Arg1.IsArray() {
				continue
			}
			if !lm.HasRealUse(b, idx, imop.Dest) {
				dead = append(dead, imop)
			}
		}
	})
	return dead
}
