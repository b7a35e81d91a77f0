package dataflow

import (
	"fmt"
	"sort"
	"strings"

	"github.com/willf/bitset"

	"secrec/internal/ir"
)

// ReachingJumps computes, for every block, which conditional jumps may
// have been taken (positive) or not taken (negative) on some path
// reaching that block. A jump bit appears in at most one of the two sets
// at a time for any one path, but both sets are maintained as unions
// across paths, so a block reachable both ways after a taken and a
// not-taken path merge carries the bit in both.
type ReachingJumps struct {
	jumps *Handles // conditional-jump instructions only

	inPos, inNeg, outPos, outNeg map[*ir.Block]*bitset.BitSet
}

// NewReachingJumps creates an unstarted analysis.
func NewReachingJumps() *ReachingJumps { return &ReachingJumps{} }

func (r *ReachingJumps) Name() string { return "reaching-jumps" }

func (r *ReachingJumps) Start(program *ir.Program) {
	r.jumps = NewHandles()
	r.inPos = make(map[*ir.Block]*bitset.BitSet)
	r.inNeg = make(map[*ir.Block]*bitset.BitSet)
	r.outPos = make(map[*ir.Block]*bitset.BitSet)
	r.outNeg = make(map[*ir.Block]*bitset.BitSet)

	program.Blocks(func(b *ir.Block) {
		if ir.IsCondJump(b.Last().Opcode) {
			r.jumps.Add(b.Last())
		}
	})
	program.Blocks(func(b *ir.Block) {
		r.inPos[b] = bitset.New(uint(r.jumps.Len()))
		r.inNeg[b] = bitset.New(uint(r.jumps.Len()))
		r.outPos[b] = bitset.New(uint(r.jumps.Len()))
		r.outNeg[b] = bitset.New(uint(r.jumps.Len()))
	})
}

func (r *ReachingJumps) StartBlock(b *ir.Block) {
	r.inPos[b].ClearAll()
	r.inNeg[b].ClearAll()
}

// InFrom merges pred's reaching-jump state into b's in-state across the
// pred->b edge. A True edge means pred's terminating conditional jump was
// taken to reach b: the bit moves from "could be either" into strictly
// positive for this path, so it sets the positive bit and clears the
// negative one before merging. False does the opposite. Any other edge
// label (Call, Ret, CallPass, plain Jump) carries state through
// unchanged: it tests both independently rather than via an exclusive
// switch, since a single merged edge can in principle carry more than
// one label.
func (r *ReachingJumps) InFrom(pred *ir.Block, label ir.EdgeLabel, b *ir.Block) {
	predPos := r.outPos[pred].Clone()
	predNeg := r.outNeg[pred].Clone()

	if label&ir.EdgeTrue != 0 {
		if bit, ok := r.jumps.Bit(pred.Last()); ok {
			predPos.Set(bit)
			predNeg.Clear(bit)
		}
	}
	if label&ir.EdgeFalse != 0 {
		if bit, ok := r.jumps.Bit(pred.Last()); ok {
			predNeg.Set(bit)
			predPos.Clear(bit)
		}
	}

	r.inPos[b].InPlaceUnion(predPos)
	r.inNeg[b].InPlaceUnion(predNeg)
}

// FinishBlock copies in into out: reaching jumps carry straight through a
// block unless it is itself the conditional jump, in which case the
// outgoing edge (handled in InFrom on the far side) is what records it,
// not this block's own out-state.
func (r *ReachingJumps) FinishBlock(b *ir.Block) bool {
	changed := !r.inPos[b].Equal(r.outPos[b]) || !r.inNeg[b].Equal(r.outNeg[b])
	r.outPos[b] = r.inPos[b].Clone()
	r.outNeg[b] = r.inNeg[b].Clone()
	return changed
}

func (r *ReachingJumps) Finish() {}

// Height bounds the lattice: each jump bit independently moves through at
// most 3 states (unknown, positive, negative, or both) per block.
func (r *ReachingJumps) Height() int { return 2 * r.jumps.Len() }

// PosJumps returns the conditional jumps known taken on some path
// reaching b's entry.
func (r *ReachingJumps) PosJumps(b *ir.Block) []*ir.Imop { return r.jumps.Instructions(r.inPos[b]) }

// NegJumps returns the conditional jumps known not taken on some path
// reaching b's entry.
func (r *ReachingJumps) NegJumps(b *ir.Block) []*ir.Imop { return r.jumps.Instructions(r.inNeg[b]) }

// Render renders b's reaching-jump state the way golden dumps show it:
// one token per jump instruction index, prefixed by + if only the
// positive set carries it, - if only the negative set does, or * if both
// do (the jump's outcome is ambiguous on some merged path).
func (r *ReachingJumps) Render(b *ir.Block) string {
	type entry struct {
		idx  int
		sign byte
	}
	seen := make(map[int]*entry)
	for _, imop := range r.PosJumps(b) {
		seen[imop.Index] = &entry{idx: imop.Index, sign: '+'}
	}
	for _, imop := range r.NegJumps(b) {
		if e, ok := seen[imop.Index]; ok {
			e.sign = '*'
		} else {
			seen[imop.Index] = &entry{idx: imop.Index, sign: '-'}
		}
	}

	var indices []int
	for idx := range seen {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	parts := make([]string, len(indices))
	for i, idx := range indices {
		parts[i] = fmt.Sprintf("%c%d", seen[idx].sign, idx)
	}
	return strings.Join(parts, " ")
}
