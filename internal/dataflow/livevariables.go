package dataflow

import (
	"github.com/willf/bitset"

	"secrec/internal/ir"
)

// LiveVariables computes, for every block, the set of variable symbols
// whose current value may be used before being redefined, on some path
// from the block's entry (LiveOnEntry) or exit (LiveOnExit).
//
// gen and kill are precomputed once per block at Start via a single
// reverse scan: walking instructions tail-to-head, each instruction
// first clears its own defined symbols from the running gen accumulator
// (a later redefinition shadows an earlier use-then-death within the
// same block), then sets its used symbols; kill accumulates the union of
// every symbol the block defines at all, regardless of position. This is
// the standard fixed-point shortcut for a per-block transfer function
// that is provably equivalent to re-simulating "out; for each instruction
// in reverse: clear defs, then set uses" against a live block boundary
// every round, without redoing the instruction scan every round.
type LiveVariables struct {
	symbols *SymbolIndex
	gen     map[*ir.Block]*bitset.BitSet
	kill    map[*ir.Block]*bitset.BitSet

	in, out map[*ir.Block]*bitset.BitSet
}

// NewLiveVariables creates an unstarted analysis.
func NewLiveVariables() *LiveVariables { return &LiveVariables{} }

func (lv *LiveVariables) Name() string { return "live-variables" }

func (lv *LiveVariables) Start(program *ir.Program) {
	lv.symbols = NewSymbolIndex(program)
	lv.gen = make(map[*ir.Block]*bitset.BitSet)
	lv.kill = make(map[*ir.Block]*bitset.BitSet)
	lv.in = make(map[*ir.Block]*bitset.BitSet)
	lv.out = make(map[*ir.Block]*bitset.BitSet)

	n := uint(lv.symbols.Len())
	program.Blocks(func(b *ir.Block) {
		gen := bitset.New(n)
		kill := bitset.New(n)
		for i := len(b.Instructions) - 1; i >= 0; i-- {
			imop := b.Instructions[i]
			for _, s := range imop.DefRange() {
				if bit, ok := lv.symbols.Bit(s); ok {
					gen.Clear(bit)
					kill.Set(bit)
				}
			}
			for _, s := range imop.UseRange() {
				if bit, ok := lv.symbols.Bit(s); ok {
					gen.Set(bit)
				}
			}
		}
		lv.gen[b] = gen
		lv.kill[b] = kill
		lv.in[b] = bitset.New(n)
		lv.out[b] = bitset.New(n)
	})
}

func (lv *LiveVariables) StartBlock(b *ir.Block) { lv.out[b].ClearAll() }

// OutTo merges b's successor's live-on-entry state into b's out-state
// across the b->succ edge, restricting propagation to global-scope
// symbols when the edge crosses a procedure boundary.
func (lv *LiveVariables) OutTo(b *ir.Block, label ir.EdgeLabel, succ *ir.Block) {
	succIn := lv.in[succ]
	if !label.IsGlobal() {
		lv.out[b].InPlaceUnion(succIn)
		return
	}
	for bit, ok := succIn.NextSet(0); ok; bit, ok = succIn.NextSet(bit + 1) {
		if lv.symbols.Symbol(bit).IsGlobal() {
			lv.out[b].Set(bit)
		}
	}
}

// FinishBlock applies in = gen U (out - kill).
func (lv *LiveVariables) FinishBlock(b *ir.Block) bool {
	next := lv.out[b].Difference(lv.kill[b])
	next.InPlaceUnion(lv.gen[b])

	changed := !next.Equal(lv.in[b])
	lv.in[b] = next
	return changed
}

func (lv *LiveVariables) Finish() {}

// Height bounds the lattice: a symbol's liveness is a single bit that
// only ever turns on, never off, across worklist rounds.
func (lv *LiveVariables) Height() int { return lv.symbols.Len() }

// LiveOnEntry returns the symbols live on entry to b.
func (lv *LiveVariables) LiveOnEntry(b *ir.Block) []*ir.Symbol { return lv.symbolsIn(lv.in[b]) }

// LiveOnExit returns the symbols live on exit from b.
func (lv *LiveVariables) LiveOnExit(b *ir.Block) []*ir.Symbol { return lv.symbolsIn(lv.out[b]) }

func (lv *LiveVariables) symbolsIn(set *bitset.BitSet) []*ir.Symbol {
	var out []*ir.Symbol
	for bit, ok := set.NextSet(0); ok; bit, ok = set.NextSet(bit + 1) {
		out = append(out, lv.symbols.Symbol(bit))
	}
	return out
}
