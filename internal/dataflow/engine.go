package dataflow

import (
	"context"

	"golang.org/x/sync/errgroup"

	"secrec/internal/ir"
)

// Analysis is the common lifecycle every concrete analysis implements.
// Start runs once, before any block is visited, and may scan the whole
// program to size lattice state. StartBlock resets a block's "in" (for a
// forward analysis) or "out" (for a backward analysis) accumulator; the
// Runner calls it once per reachable block before the worklist starts.
// Finish runs once after the worklist drains.
type Analysis interface {
	Name() string
	Start(program *ir.Program)
	StartBlock(b *ir.Block)
	Finish()
}

// ForwardAnalysis propagates facts from a block's predecessors to its
// successors. InFrom merges pred's out-state across the pred->b edge
// (label) into b's in-state; FinishBlock applies the block's transfer
// function to in and reports whether the resulting out-state changed.
type ForwardAnalysis interface {
	Analysis
	InFrom(pred *ir.Block, label ir.EdgeLabel, b *ir.Block)
	FinishBlock(b *ir.Block) (changed bool)
}

// BackwardAnalysis is ForwardAnalysis with the edges reversed: facts flow
// from a block's successors to its predecessors.
type BackwardAnalysis interface {
	Analysis
	OutTo(b *ir.Block, label ir.EdgeLabel, succ *ir.Block)
	FinishBlock(b *ir.Block) (changed bool)
}

// Bounded lets an analysis advertise its lattice height H, which sets the
// Runner's divergence bound: the worklist aborts with ErrDivergence once it
// has run more than |blocks| * |blocks| * (H + 1) rounds. An analysis that
// is not Bounded gets |blocks| * (|blocks| + 1) rounds instead.
type Bounded interface {
	Height() int
}

// Runner drives a set of independently-registered analyses to a fixed
// point, one worklist per analysis, running every analysis concurrently
// since none observes another's state.
type Runner struct {
	analyses []Analysis
}

// NewRunner creates an empty runner.
func NewRunner() *Runner { return &Runner{} }

// Add registers an analysis to run. a must implement ForwardAnalysis or
// BackwardAnalysis; Run panics otherwise, since that is a programming
// error, not a data condition.
func (r *Runner) Add(a Analysis) { r.analyses = append(r.analyses, a) }

// Run executes every registered analysis against program, in parallel,
// and returns the first error any of them reports (divergence).
func (r *Runner) Run(ctx context.Context, program *ir.Program) error {
	g, _ := errgroup.WithContext(ctx)
	for _, a := range r.analyses {
		a := a
		g.Go(func() error { return runOne(a, program) })
	}
	return g.Wait()
}

func runOne(a Analysis, program *ir.Program) error {
	a.Start(program)
	defer a.Finish()

	bound := genericBound(program)
	if b, ok := a.(Bounded); ok {
		bound = blockCount(program) * (b.Height() + 1)
	}

	switch analysis := a.(type) {
	case ForwardAnalysis:
		return runForward(analysis, program, bound)
	case BackwardAnalysis:
		return runBackward(analysis, program, bound)
	default:
		panic("dataflow: analysis implements neither ForwardAnalysis nor BackwardAnalysis")
	}
}

func blockCount(program *ir.Program) int {
	n := 0
	program.Blocks(func(*ir.Block) { n++ })
	return n
}

func genericBound(program *ir.Program) int { return blockCount(program) + 1 }

// runForward implements the standard forward worklist: every block but
// program entry starts on the queue, and program entry has its transfer
// function applied once, from its empty in-state, before the loop; each
// round merges a block's predecessors' out-state into its in-state,
// applies the transfer function, and requeues successors when the block's
// out-state changed.
func runForward(a ForwardAnalysis, program *ir.Program, bound int) error {
	entry := program.EntryBlock()
	queue := newWorklist()
	program.Blocks(func(b *ir.Block) {
		if !b.Reachable() {
			return
		}
		a.StartBlock(b)
		if b == entry {
			a.FinishBlock(b)
		} else {
			queue.push(b)
		}
	})

	rounds := 0
	for !queue.empty() {
		if rounds > bound*blockCount(program) {
			return &ir.BuildError{Kind: ir.ErrDivergence}
		}
		rounds++

		b := queue.pop()
		for pred, label := range b.Predecessors {
			if !pred.Reachable() {
				continue
			}
			a.InFrom(pred, label, b)
		}
		if a.FinishBlock(b) {
			for succ := range b.Successors {
				if !succ.Reachable() {
					continue
				}
				queue.push(succ)
			}
		}
	}
	return nil
}

// runBackward mirrors runForward with edges reversed: program exit is
// never queued and has its transfer function applied once before the
// loop, and a changed block requeues its predecessors.
func runBackward(a BackwardAnalysis, program *ir.Program, bound int) error {
	queue := newWorklist()
	program.Blocks(func(b *ir.Block) {
		if !b.Reachable() {
			return
		}
		a.StartBlock(b)
		if b.IsProgramExit() {
			a.FinishBlock(b)
		} else {
			queue.push(b)
		}
	})

	rounds := 0
	for !queue.empty() {
		if rounds > bound*blockCount(program) {
			return &ir.BuildError{Kind: ir.ErrDivergence}
		}
		rounds++

		b := queue.pop()
		for succ, label := range b.Successors {
			if !succ.Reachable() {
				continue
			}
			a.OutTo(b, label, succ)
		}
		if a.FinishBlock(b) {
			for pred := range b.Predecessors {
				if !pred.Reachable() {
					continue
				}
				queue.push(pred)
			}
		}
	}
	return nil
}

// worklist is a FIFO queue with set semantics: pushing a block already
// queued is a no-op, keeping the queue length bounded by block count.
type worklist struct {
	queue   []*ir.Block
	queued  map[*ir.Block]bool
}

func newWorklist() *worklist { return &worklist{queued: make(map[*ir.Block]bool)} }

func (w *worklist) push(b *ir.Block) {
	if w.queued[b] {
		return
	}
	w.queued[b] = true
	w.queue = append(w.queue, b)
}

func (w *worklist) pop() *ir.Block {
	b := w.queue[0]
	w.queue = w.queue[1:]
	w.queued[b] = false
	return b
}

func (w *worklist) empty() bool { return len(w.queue) == 0 }
