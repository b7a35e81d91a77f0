package dataflow

import (
	"github.com/willf/bitset"

	"secrec/internal/ir"
)

// ReachableReleases computes, for every block and every variable symbol,
// the set of RELEASE instructions that may run on some path forward from
// that point without the symbol being redefined first. A procedure's
// RETURN (or RETURNVOID) also counts as releasing every array-typed
// symbol it reads, standing in for the implicit cleanup a function exit
// performs on its live array locals; its own handle fills the release-set
// role RELEASE instructions otherwise occupy.
type ReachableReleases struct {
	symbols  *SymbolIndex
	releases *Handles // RELEASE, RETURN and RETURNVOID instructions

	in, out map[*ir.Block][]*bitset.BitSet
}

// NewReachableReleases creates an unstarted analysis.
func NewReachableReleases() *ReachableReleases { return &ReachableReleases{} }

func (r *ReachableReleases) Name() string { return "reachable-releases" }

func (r *ReachableReleases) Start(program *ir.Program) {
	r.symbols = NewSymbolIndex(program)
	r.releases = NewHandles()
	program.Blocks(func(b *ir.Block) {
		for _, imop := range b.Instructions {
			switch imop.Opcode {
			case ir.RELEASE, ir.RETURN, ir.RETURNVOID:
				r.releases.Add(imop)
			}
		}
	})

	r.in = make(map[*ir.Block][]*bitset.BitSet)
	r.out = make(map[*ir.Block][]*bitset.BitSet)
	program.Blocks(func(b *ir.Block) {
		r.in[b] = r.emptySets()
		r.out[b] = r.emptySets()
	})
}

func (r *ReachableReleases) emptySets() []*bitset.BitSet {
	sets := make([]*bitset.BitSet, r.symbols.Len())
	for i := range sets {
		sets[i] = bitset.New(uint(r.releases.Len()))
	}
	return sets
}

func (r *ReachableReleases) StartBlock(b *ir.Block) {
	for _, set := range r.out[b] {
		set.ClearAll()
	}
}

// OutTo merges succ's reachable-releases-on-entry into b's out-state
// across the b->succ edge, restricting propagation to global-scope
// symbols when the edge crosses a procedure boundary.
func (r *ReachableReleases) OutTo(b *ir.Block, label ir.EdgeLabel, succ *ir.Block) {
	succIn := r.in[succ]
	bOut := r.out[b]
	for bit := range bOut {
		if label.IsGlobal() && !r.symbols.Symbol(uint(bit)).IsGlobal() {
			continue
		}
		bOut[bit].InPlaceUnion(succIn[bit])
	}
}

func (r *ReachableReleases) FinishBlock(b *ir.Block) bool {
	next := r.applyReverse(r.out[b], b.Instructions)
	changed := !equalSets(next, r.in[b])
	r.in[b] = next
	return changed
}

// applyReverse replays the per-instruction transfer function back-to-
// front over instrs, seeded from base: a def of a symbol clears its
// release-set (a redefinition severs the path to anything that releases
// the old value), a RELEASE sets its own handle into Arg1's release-set,
// and a RETURN/RETURNVOID sets its own handle into the release-set of
// every array-typed symbol it reads. Shared between FinishBlock (the
// whole block) and ReleasedAfter (a suffix of it), so the two can never
// drift apart.
func (r *ReachableReleases) applyReverse(base []*bitset.BitSet, instrs []*ir.Imop) []*bitset.BitSet {
	next := cloneSets(base)
	for i := len(instrs) - 1; i >= 0; i-- {
		imop := instrs[i]
		for _, s := range imop.DefRange() {
			if bit, ok := r.symbols.Bit(s); ok {
				next[bit] = bitset.New(uint(r.releases.Len()))
			}
		}

		relBit, isRelease := r.releases.Bit(imop)
		if !isRelease {
			continue
		}
		switch imop.Opcode {
		case ir.RELEASE:
			if bit, ok := r.symbols.Bit(imop.Arg1); ok {
				next[bit].Set(relBit)
			}
		case ir.RETURN, ir.RETURNVOID:
			for _, s := range imop.UseRange() {
				if !s.IsArray() {
					continue
				}
				if bit, ok := r.symbols.Bit(s); ok {
					next[bit].Set(relBit)
				}
			}
		}
	}
	return next
}

func (r *ReachableReleases) Finish() {}

// Height bounds the lattice: a symbol's release-set only ever grows, one
// release-instruction bit at a time, up to the release count.
func (r *ReachableReleases) Height() int { return r.releases.Len() }

// ReleasedOnEntry returns, per symbol, the RELEASE/RETURN instructions
// reachable forward from b's entry without an intervening redefinition.
func (r *ReachableReleases) ReleasedOnEntry(b *ir.Block) map[*ir.Symbol][]*ir.Imop {
	return r.symbolMap(r.in[b])
}

// ReleasedOnExit is the same query at b's exit.
func (r *ReachableReleases) ReleasedOnExit(b *ir.Block) map[*ir.Symbol][]*ir.Imop {
	return r.symbolMap(r.out[b])
}

// ReleasedAfter returns, per symbol, the RELEASE/RETURN instructions
// reachable forward from the point immediately after b.Instructions[idx]
// (idx == -1 means before the first instruction). It replays the suffix
// b.Instructions[idx+1:] over the block's already-converged exit state,
// letting the copy-elimination pass ask a question at instruction
// granularity without a separate per-instruction analysis.
func (r *ReachableReleases) ReleasedAfter(b *ir.Block, idx int) map[*ir.Symbol][]*ir.Imop {
	return r.symbolMap(r.applyReverse(r.out[b], b.Instructions[idx+1:]))
}

func (r *ReachableReleases) symbolMap(sets []*bitset.BitSet) map[*ir.Symbol][]*ir.Imop {
	out := make(map[*ir.Symbol][]*ir.Imop)
	for bit, set := range sets {
		if insns := r.releases.Instructions(set); len(insns) > 0 {
			out[r.symbols.Symbol(uint(bit))] = insns
		}
	}
	return out
}
