package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	dio "github.com/matzehuels/diaryprint/pkg/io"
	"github.com/matzehuels/diaryprint/pkg/pipeline"
	"github.com/matzehuels/diaryprint/pkg/plan"
)

// planCommand creates the plan command: compute page breaks without
// composing or writing a PDF.
func (c *CLI) planCommand() *cobra.Command {
	var (
		flags    optionFlags
		jsonPath string
		dotPath  string
		svgPath  string
	)

	cmd := &cobra.Command{
		Use:   "plan [file]",
		Short: "Show where page breaks fall",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.resolve(cmd.Flags())
			if err != nil {
				return err
			}
			result, err := c.computePlan(cmd.Context(), args[0], opts, &flags)
			if err != nil {
				return err
			}

			fmt.Println(renderPlanTable(result.Plan, result.Sections))
			printStats(result.Pages, 0, result.CacheInfo.PlanHit)
			printWarnings(result.Warnings)

			if jsonPath != "" {
				if err := dio.ExportPlanJSON(result.Plan, result.Sections, jsonPath); err != nil {
					return err
				}
				printFile(jsonPath)
			}
			if dotPath != "" {
				if err := os.WriteFile(dotPath, []byte(plan.ToDOT(result.Plan, result.Sections)), 0o644); err != nil {
					return fmt.Errorf("write %s: %w", dotPath, err)
				}
				printFile(dotPath)
			}
			if svgPath != "" {
				svg, err := plan.RenderSVG(cmd.Context(), result.Plan, result.Sections)
				if err != nil {
					return err
				}
				if err := os.WriteFile(svgPath, svg, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", svgPath, err)
				}
				printFile(svgPath)
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&jsonPath, "json", "", "write the plan as JSON")
	cmd.Flags().StringVar(&dotPath, "dot", "", "write the plan as a Graphviz DOT file")
	cmd.Flags().StringVar(&svgPath, "svg", "", "render the plan diagram as SVG")

	return cmd
}

// computePlan opens input and runs the planning stages.
func (c *CLI) computePlan(ctx context.Context, input string, opts pipeline.Options, flags *optionFlags) (*pipeline.Result, error) {
	runner, err := c.newRunner(ctx, flags.noCache, flags.redis)
	if err != nil {
		return nil, err
	}
	defer runner.Close()
	opts.Logger = c.Logger

	src, err := pipeline.OpenSource(ctx, input, opts)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	prog := newProgress(c.Logger)
	result, err := runner.Plan(ctx, src, opts)
	if err != nil {
		return nil, err
	}
	prog.done("planned", "pages", result.Pages)
	return result, nil
}

// pageSections lists the sections overlapping slice s. Sections that do not
// fit inside s are marked with "…".
func pageSections(s plan.Slice, sections []plan.Section) []string {
	var names []string
	for _, sec := range sections {
		if sec.Bottom() <= s.Top || sec.Top >= s.Bottom() {
			continue
		}
		name := sec.Label
		if name == "" {
			name = sec.Class.String()
		}
		if !s.Contains(sec) {
			name += "…"
		}
		names = append(names, name)
	}
	return names
}

// planRows returns one table row per page: index, top, bottom, height and
// the sections on it.
func planRows(p plan.Plan, sections []plan.Section) [][]string {
	rows := make([][]string, 0, len(p.Slices))
	for _, s := range p.Slices {
		rows = append(rows, []string{
			strconv.Itoa(s.Index),
			strconv.Itoa(s.Top),
			strconv.Itoa(s.Bottom()),
			strconv.Itoa(s.Height),
			strings.Join(pageSections(s, sections), ", "),
		})
	}
	return rows
}

func renderPlanTable(p plan.Plan, sections []plan.Section) string {
	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	overfull := lipgloss.NewStyle().Foreground(colorYellow)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Page", "Top", "Bottom", "Height", "Sections").
		Rows(planRows(p, sections)...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			base := lipgloss.NewStyle().Padding(0, 1)
			if col == 3 && row < len(p.Slices) && p.Slices[row].Height > p.PageHeight {
				return overfull.Padding(0, 1)
			}
			return base
		})
	return t.Render()
}
