// SPDX-License-Identifier: Apache-2.0
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/fatih/color"

	"secrec/internal/asmtext"
	"secrec/internal/dataflow"
	"secrec/internal/errors"
	"secrec/internal/ir"
	"secrec/internal/optimize"
)

func main() {
	flag.Bool("dump", false, "print the built program's text form (default action)")
	dot := flag.Bool("dot", false, "print the built program as a Graphviz dot graph")
	opt := flag.Bool("opt", false, "run the optimization pipeline before printing")
	analyze := flag.String("analyze", "", "print a data-flow query: reaching_defs, pos_jumps, neg_jumps, live_on_exit, released_on_exit")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Println("Usage: secrec [-dump|-dot|-analyze=query] [-opt] <file.secir>")
		os.Exit(1)
	}
	path := flag.Arg(0)

	program, err := build(path)
	if err != nil {
		reportError(path, err)
		os.Exit(1)
	}

	if *opt {
		if err := optimize.NewPipeline().Run(program); err != nil {
			reportError(path, err)
			os.Exit(1)
		}
	}

	switch {
	case *analyze != "":
		if err := runAnalysis(program, *analyze); err != nil {
			reportError(path, err)
			os.Exit(1)
		}
	case *dot:
		fmt.Print(ir.DumpDot(program))
	default:
		fmt.Print(ir.Print(program))
	}

	color.Green("✅ Successfully processed %s", path)
}

// build parses path as IR-assembly source and constructs its Program.
func build(path string) (*ir.Program, error) {
	file, err := asmtext.ParseFile(path)
	if err != nil {
		return nil, err
	}

	ctx := ir.NewContext()
	code, procs, err := asmtext.Lower(file, ctx)
	if err != nil {
		return nil, err
	}

	return ir.BuildProgram(ctx, code, procs)
}

// runAnalysis runs the registered analyses and prints the requested
// per-block query for every reachable block: one line per block, except
// reaching_defs, which prints a block header followed by one line per
// defined symbol.
func runAnalysis(program *ir.Program, query string) error {
	reachingDefs := dataflow.NewReachingDefinitions()
	reachingJumps := dataflow.NewReachingJumps()
	liveVars := dataflow.NewLiveVariables()
	releases := dataflow.NewReachableReleases()

	runner := dataflow.NewRunner()
	runner.Add(reachingDefs)
	runner.Add(reachingJumps)
	runner.Add(liveVars)
	runner.Add(releases)
	if err := runner.Run(context.Background(), program); err != nil {
		return err
	}

	var failed bool
	program.Blocks(func(b *ir.Block) {
		if !b.Reachable() {
			return
		}
		switch query {
		case "reaching_defs":
			fmt.Printf("block %d:\n", b.Index)
			for _, imop := range b.Instructions {
				for _, sym := range imop.DefRange() {
					defs := reachingDefs.ReachingDefsOnExit(b, sym)
					fmt.Printf("  %s reaches-after %s: %d def(s)\n", sym, imop, len(defs))
				}
			}
		case "pos_jumps":
			fmt.Printf("block %d: %d positive jump(s)\n", b.Index, len(reachingJumps.PosJumps(b)))
		case "neg_jumps":
			fmt.Printf("block %d: %d negative jump(s)\n", b.Index, len(reachingJumps.NegJumps(b)))
		case "live_on_exit":
			fmt.Printf("block %d: live on exit: %v\n", b.Index, liveVars.LiveOnExit(b))
		case "released_on_exit":
			fmt.Printf("block %d: released on exit: %d symbol(s)\n", b.Index, len(releases.ReleasedOnExit(b)))
		default:
			failed = true
		}
	})
	if failed {
		return fmt.Errorf("unknown -analyze query %q", query)
	}
	return nil
}

func reportError(path string, err error) {
	if buildErr, ok := err.(*ir.BuildError); ok {
		reporter := errors.NewErrorReporter(path)
		fmt.Print(reporter.FormatError(errors.FromBuildError(buildErr)))
		return
	}
	color.Red("❌ %s: %s", path, err)
}
