// Package dataflow implements the worklist-based fixed-point engine and
// the concrete analyses built on top of it: reaching definitions,
// reaching jumps, live variables, reachable releases, and the live-memory
// helper the copy-elimination pass consumes.
package dataflow

import (
	"github.com/willf/bitset"

	"secrec/internal/ir"
)

// SymbolIndex assigns a stable, 0-based bit position to every variable
// symbol referenced anywhere in a program, so analyses can key
// bitset.BitSet state by integer instead of pointer identity: the Go
// answer to the "arena plus stable handle" design note the original
// repository's cyclic pointer graph calls for.
type SymbolIndex struct {
	index map[*ir.Symbol]uint
	order []*ir.Symbol
}

// NewSymbolIndex scans every instruction's def/use range and assigns each
// distinct variable symbol the next free bit.
func NewSymbolIndex(program *ir.Program) *SymbolIndex {
	idx := &SymbolIndex{index: make(map[*ir.Symbol]uint)}
	add := func(s *ir.Symbol) {
		if s == nil || s.SymbolKind() != ir.SymVariable {
			return
		}
		if _, ok := idx.index[s]; ok {
			return
		}
		idx.index[s] = uint(len(idx.order))
		idx.order = append(idx.order, s)
	}
	program.Blocks(func(b *ir.Block) {
		for _, imop := range b.Instructions {
			for _, s := range imop.DefRange() {
				add(s)
			}
			for _, s := range imop.UseRange() {
				add(s)
			}
		}
	})
	return idx
}

// Len returns the number of distinct variable symbols indexed.
func (s *SymbolIndex) Len() int { return len(s.order) }

// Bit returns sym's bit position, if it was indexed.
func (s *SymbolIndex) Bit(sym *ir.Symbol) (uint, bool) { i, ok := s.index[sym]; return i, ok }

// Symbol returns the symbol occupying bit.
func (s *SymbolIndex) Symbol(bit uint) *ir.Symbol { return s.order[bit] }

// Handles assigns stable bit positions to a set of instructions, letting
// an analysis represent a set-of-instructions lattice value as a single
// bitset.BitSet instead of a map keyed by pointer identity.
type Handles struct {
	index map[*ir.Imop]uint
	order []*ir.Imop
}

// NewHandles creates an empty handle table.
func NewHandles() *Handles { return &Handles{index: make(map[*ir.Imop]uint)} }

// Add registers imop if it is not already present and returns its bit.
func (h *Handles) Add(imop *ir.Imop) uint {
	if bit, ok := h.index[imop]; ok {
		return bit
	}
	bit := uint(len(h.order))
	h.index[imop] = bit
	h.order = append(h.order, imop)
	return bit
}

// Bit returns imop's bit, if registered.
func (h *Handles) Bit(imop *ir.Imop) (uint, bool) { b, ok := h.index[imop]; return b, ok }

// Imop returns the instruction occupying bit.
func (h *Handles) Imop(bit uint) *ir.Imop { return h.order[bit] }

// Len returns the number of registered instructions.
func (h *Handles) Len() int { return len(h.order) }

// Instructions returns every registered instruction whose bit is set, in
// handle order.
func (h *Handles) Instructions(set *bitset.BitSet) []*ir.Imop {
	var out []*ir.Imop
	for i, ok := set.NextSet(0); ok; i, ok = set.NextSet(i + 1) {
		out = append(out, h.order[i])
	}
	return out
}

func cloneSets(sets []*bitset.BitSet) []*bitset.BitSet {
	next := make([]*bitset.BitSet, len(sets))
	for i, set := range sets {
		next[i] = set.Clone()
	}
	return next
}

func equalSets(a, b []*bitset.BitSet) bool {
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}
