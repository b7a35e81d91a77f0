// Package optimize holds the transformation passes that run over a built
// Program once its control-flow graph is in place: redundant array-copy
// elimination and unreachable-block removal.
package optimize

import (
	"fmt"

	"secrec/internal/ir"
)

// Pass represents a single optimization transformation.
type Pass interface {
	Name() string
	Description() string
	Apply(program *ir.Program) (bool, error) // reports whether it changed program
}

// Pipeline runs a sequence of passes over a Program.
type Pipeline struct {
	passes []Pass
}

// NewPipeline creates a pipeline with the default pass order: copy
// elimination needs the reachability the CFG builder already computed,
// and unreachable-block removal runs last. Neither pass recomputes
// reachability.
func NewPipeline() *Pipeline {
	p := &Pipeline{}
	p.AddPass(&CopyElimination{})
	p.AddPass(&RemoveUnreachable{})
	return p
}

// AddPass appends a pass to the pipeline.
func (p *Pipeline) AddPass(pass Pass) { p.passes = append(p.passes, pass) }

// Run executes every pass in order, printing its progress the way the
// original code generator's pass manager does.
func (p *Pipeline) Run(program *ir.Program) error {
	fmt.Printf("Running %d optimization passes...\n", len(p.passes))

	for _, pass := range p.passes {
		fmt.Printf("  - %s: %s\n", pass.Name(), pass.Description())
		changed, err := pass.Apply(program)
		if err != nil {
			return err
		}
		if changed {
			fmt.Printf("    applied\n")
		} else {
			fmt.Printf("    no changes\n")
		}
	}
	return nil
}
