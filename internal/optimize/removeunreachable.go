package optimize

import "secrec/internal/ir"

// RemoveUnreachable deletes every block the CFG builder's reachability
// walk never reached from program entry. It reads the reachability flag
// set at construction and does not recompute it after earlier passes.
type RemoveUnreachable struct{}

func (r *RemoveUnreachable) Name() string { return "remove unreachable blocks" }

func (r *RemoveUnreachable) Description() string {
	return "deletes blocks unreachable from program entry"
}

func (r *RemoveUnreachable) Apply(program *ir.Program) (bool, error) {
	var dead []*ir.Block
	program.Blocks(func(b *ir.Block) {
		if !b.Reachable() {
			dead = append(dead, b)
		}
	})

	for _, b := range dead {
		program.RemoveBlock(b)
	}

	return len(dead) > 0, nil
}
