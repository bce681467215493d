package plan

import (
	"bytes"
	"context"
	"fmt"

	"github.com/goccy/go-graphviz"
)

// ToDOT returns a Graphviz DOT representation of the plan.
//
// Each page is drawn as a box labeled with its pixel range; each located
// section is attached to the page(s) it overlaps. Protected sections use a
// double border, the trailing section is filled gray, and sections recorded
// in p.Notes (split across pages) get a dashed red border.
//
// Example:
//
//	p, _ := plan.Compute(2500, 1000, sections)
//	dot := plan.ToDOT(p, sections)
//	// Use 'dot' command or RenderSVG to visualize
func ToDOT(p Plan, sections []Section) string {
	var buf bytes.Buffer
	buf.WriteString("digraph Plan {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [fontname=\"SF Mono, Menlo, monospace\", fontsize=12, style=filled, fillcolor=white];\n\n")

	for i, s := range p.Slices {
		fmt.Fprintf(&buf, "  p%d [label=\"page %d\\n%d..%d\", shape=box];\n", s.Index, s.Index, s.Top, s.Bottom())
		if i > 0 {
			fmt.Fprintf(&buf, "  p%d -> p%d [style=bold];\n", p.Slices[i-1].Index, s.Index)
		}
	}
	buf.WriteString("\n")

	split := make(map[Section]bool, len(p.Notes))
	for _, n := range p.Notes {
		split[n.Section] = true
	}

	for i, sec := range Normalize(p.Height, sections) {
		label := sec.Label
		if label == "" {
			label = fmt.Sprintf("section %d", i+1)
		}
		attrs := "shape=box, style=\"filled,rounded\""
		switch {
		case split[sec]:
			attrs = "shape=box, style=\"filled,rounded,dashed\", color=red"
		case sec.Class == ClassTrailing:
			attrs = "shape=box, style=\"filled,rounded\", fillcolor=lightgray"
		case sec.Class == ClassProtected:
			attrs = "shape=box, style=\"filled,rounded\", peripheries=2"
		}
		fmt.Fprintf(&buf, "  s%d [label=%q, %s];\n", i, fmt.Sprintf("%s\n%s %d..%d", label, sec.Class, sec.Top, sec.Bottom()), attrs)
		for _, s := range p.Slices {
			if s.Top < sec.Bottom() && s.Bottom() > sec.Top {
				fmt.Fprintf(&buf, "  p%d -> s%d [arrowhead=none];\n", s.Index, i)
			}
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

// RenderSVG renders the plan diagram produced by ToDOT as an SVG document.
//
// RenderSVG requires the Graphviz library (github.com/goccy/go-graphviz).
// Errors are wrapped with fmt.Errorf and %w.
func RenderSVG(ctx context.Context, p Plan, sections []Section) ([]byte, error) {
	dot := ToDOT(p, sections)

	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render SVG: %w", err)
	}
	return buf.Bytes(), nil
}
