package optimize

import (
	"context"

	"secrec/internal/dataflow"
	"secrec/internal/ir"
)

// CopyElimination rewrites a dead array copy — an ASSIGN between two
// array-typed symbols whose destination is never used for anything but
// being released — into a plain ASSIGN with the dest/arg1 aliasing made
// explicit, and deletes the RELEASE instructions of its dest or arg1
// reachable after it, since the value now has two owners collapsed into
// one. A RETURN that implicitly releases either symbol is left in place.
type CopyElimination struct{}

func (c *CopyElimination) Name() string { return "copy elimination" }

func (c *CopyElimination) Description() string {
	return "removes array copies whose only later use is a release"
}

func (c *CopyElimination) Apply(program *ir.Program) (bool, error) {
	reachableReleases := dataflow.NewReachableReleases()
	liveMemory := dataflow.NewLiveMemory()

	runner := dataflow.NewRunner()
	runner.Add(reachableReleases)
	runner.Add(liveMemory)
	if err := runner.Run(context.Background(), program); err != nil {
		return false, err
	}

	copies := liveMemory.DeadCopies(program)
	if len(copies) == 0 {
		return false, nil
	}

	releases := make(map[*ir.Imop]struct{})
	for _, copy := range copies {
		after := reachingReleasesAfter(reachableReleases, copy)
		for _, rel := range after[copy.Dest] {
			releases[rel] = struct{}{}
		}
		for _, rel := range after[copy.Arg1] {
			releases[rel] = struct{}{}
		}
	}

	for rel := range releases {
		if rel.Opcode == ir.RELEASE {
			program.DeleteInstruction(rel)
		}
	}

	for _, copy := range copies {
		assign := ir.NewImop(ir.ASSIGN)
		assign.Dest = copy.Dest
		assign.Arg1 = copy.Arg1
		program.ReplaceInstruction(copy, assign)
	}

	return true, nil
}

// reachingReleasesAfter locates copy's block and position and asks for
// the release set reachable immediately after it, matching the
// backward re-walk the original pass performs per dead copy.
func reachingReleasesAfter(rr *dataflow.ReachableReleases, copy *ir.Imop) map[*ir.Symbol][]*ir.Imop {
	block := copy.Block
	idx := -1
	for i, imop := range block.Instructions {
		if imop == copy {
			idx = i
			break
		}
	}
	return rr.ReleasedAfter(block, idx)
}
