package ir

import (
	"fmt"
	"sort"
	"strings"
)

// Printer renders a Program as the textual block dump used by golden
// tests: each block's predecessor/successor listings split by edge-label
// class, followed by its instructions in order.
type Printer struct {
	indent int
	output strings.Builder
}

// NewPrinter creates an empty printer.
func NewPrinter() *Printer { return &Printer{} }

// Print returns the full textual dump of program.
func Print(program *Program) string {
	p := NewPrinter()
	p.printProgram(program)
	return p.output.String()
}

func (p *Printer) writeIndent() {
	for i := 0; i < p.indent; i++ {
		p.output.WriteString("  ")
	}
}

func (p *Printer) writeLine(format string, args ...interface{}) {
	p.writeIndent()
	p.output.WriteString(fmt.Sprintf(format, args...))
	p.output.WriteString("\n")
}

func (p *Printer) printProgram(program *Program) {
	for _, proc := range program.Procedures {
		p.writeLine("PROCEDURE %s", proc.Name)
		p.indent++
		for _, b := range proc.Blocks {
			p.printBlock(b)
		}
		p.indent--
		p.writeLine("")
	}
}

// edgeClasses lists the label classes in the order golden dumps render
// them: plain fallthrough/jump first, then the conditional split, then the
// two interprocedural classes.
var edgeClasses = []struct {
	label  EdgeLabel
	prefix string
}{
	{EdgeJump | EdgeCallPass, ""},
	{EdgeFalse, " -"},
	{EdgeTrue, " +"},
	{EdgeCall, "Call"},
	{EdgeRet, "Ret"},
}

func (p *Printer) printBlock(b *Block) {
	mark := ""
	if !b.Reachable() {
		mark = " (unreachable)"
	}
	p.writeLine("block %d%s:", b.Index, mark)

	p.writeEdgeLines("From", b.Predecessors)
	p.writeEdgeLines("To", b.Successors)

	p.indent++
	for _, imop := range b.Instructions {
		if imop.creatorNote != "" {
			p.writeLine("%s // %s", imop.String(), imop.creatorNote)
			continue
		}
		p.writeLine("%s", imop.String())
	}
	p.indent--
}

// writeEdgeLines writes one line per non-empty edge class, listing the
// neighbouring block indices that carry any label in that class.
func (p *Printer) writeEdgeLines(direction string, neighbours map[*Block]EdgeLabel) {
	for _, class := range edgeClasses {
		var indices []int
		for neighbour, label := range neighbours {
			if label&class.label != 0 {
				indices = append(indices, neighbour.Index)
			}
		}
		if len(indices) == 0 {
			continue
		}
		sort.Ints(indices)
		parts := make([]string, len(indices))
		for i, idx := range indices {
			parts[i] = fmt.Sprintf("%d", idx)
		}
		p.writeLine("%s%s: %s", direction, class.prefix, strings.Join(parts, ", "))
	}
}

// DumpDot renders program as a Graphviz dot graph, one digraph per
// procedure: one node per block (labelled with its instructions) and one
// edge per predecessor/successor pair, labelled with the edge's
// EdgeLabel.String(). Grounded on the original compiler's
// Blocks::toDotty(); exercised by the CLI's -dot flag rather than any
// analysis, since it is a diagnostic output, not a compatibility surface.
func DumpDot(program *Program) string {
	var b strings.Builder
	for _, proc := range program.Procedures {
		fmt.Fprintf(&b, "digraph %s {\n", dotIdent(proc.Name.String()))
		for _, block := range proc.Blocks {
			fmt.Fprintf(&b, "  block%d [label=%q];\n", block.Index, dotBlockLabel(block))
		}
		for _, block := range proc.Blocks {
			for succ, label := range block.Successors {
				fmt.Fprintf(&b, "  block%d -> block%d [label=%q];\n", block.Index, succ.Index, label.String())
			}
		}
		b.WriteString("}\n")
	}
	return b.String()
}

func dotBlockLabel(b *Block) string {
	lines := []string{fmt.Sprintf("block %d", b.Index)}
	for _, imop := range b.Instructions {
		lines = append(lines, imop.String())
	}
	return strings.Join(lines, "\\l") + "\\l"
}

func dotIdent(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "proc"
	}
	return b.String()
}
