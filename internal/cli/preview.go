package cli

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/diaryprint/pkg/plan"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// minimapRows is the height of the page sketch in the detail pane.
const minimapRows = 16

// previewCommand creates the preview command: an interactive page browser
// over the computed plan.
func (c *CLI) previewCommand() *cobra.Command {
	var flags optionFlags

	cmd := &cobra.Command{
		Use:   "preview [file]",
		Short: "Browse the page plan interactively",
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
			m := NewPageListModel(result.Plan, result.Sections)
			_, err = tea.NewProgram(m, tea.WithContext(cmd.Context())).Run()
			return err
		},
	}

	flags.register(cmd)
	return cmd
}

// =============================================================================
// PageListModel - Interactive page browser
// =============================================================================

// PageListModel is the bubbletea model for browsing a page plan.
type PageListModel struct {
	Plan     plan.Plan
	Sections []plan.Section
	Cursor   int
	Height   int
	Offset   int
}

// NewPageListModel creates a page browser for p.
func NewPageListModel(p plan.Plan, sections []plan.Section) PageListModel {
	return PageListModel{
		Plan:     p,
		Sections: plan.Normalize(p.Height, sections),
		Height:   15,
	}
}

func (m PageListModel) Init() tea.Cmd {
	return nil
}

func (m PageListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	last := len(m.Plan.Slices) - 1
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
			}
		case "down", "j":
			if m.Cursor < last {
				m.Cursor++
			}
		case "home", "g":
			m.Cursor = 0
		case "end", "G":
			m.Cursor = max(last, 0)
		}
	case tea.WindowSizeMsg:
		m.Height = max(msg.Height-6, 5)
	}

	if m.Cursor < m.Offset {
		m.Offset = m.Cursor
	}
	if m.Cursor >= m.Offset+m.Height {
		m.Offset = m.Cursor - m.Height + 1
	}
	return m, nil
}

func (m PageListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render(fmt.Sprintf("Page plan · %s", plural(m.Plan.Pages(), "page"))))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  g/G first/last  q quit"))
	b.WriteString("\n\n")

	if len(m.Plan.Slices) == 0 {
		b.WriteString(listDimStyle.Render("  (empty plan)"))
		return b.String()
	}

	end := min(m.Offset+m.Height, len(m.Plan.Slices))
	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		s := m.Plan.Slices[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		rows = append(rows, []string{cursor, strconv.Itoa(s.Index), fmt.Sprintf("%d–%d", s.Top, s.Bottom()), strconv.Itoa(len(pageSections(s, m.Sections)))})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Page", "Rows", "Sections").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if m.Offset+row == m.Cursor {
				return listSelectedStyle
			}
			return listNormalStyle
		})

	detail := m.detail(m.Plan.Slices[m.Cursor])
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, t.Render(), "  ", detail))
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Plan.Slices))))

	return b.String()
}

// detail renders the selected page: a sketch of where sections sit and the
// list of sections on it.
func (m PageListModel) detail(s plan.Slice) string {
	var b strings.Builder
	b.WriteString(StyleHighlight.Render(fmt.Sprintf("Page %d", s.Index)))
	b.WriteString("\n")
	for _, line := range minimap(s, m.Sections, minimapRows) {
		b.WriteString("│")
		b.WriteString(line)
		b.WriteString("│\n")
	}
	for _, name := range pageSections(s, m.Sections) {
		b.WriteString(listDimStyle.Render("  " + name))
		b.WriteString("\n")
	}
	if s.Height > m.Plan.PageHeight {
		b.WriteString(StyleWarning.Render(fmt.Sprintf("  taller than a page (%dpx > %dpx), shrunk to fit", s.Height, m.Plan.PageHeight)))
		b.WriteString("\n")
	}
	return b.String()
}

// minimap sketches slice s in n text rows: each row shows the class of the
// section covering the middle of its pixel band.
func minimap(s plan.Slice, sections []plan.Section, n int) []string {
	if n <= 0 || s.Height <= 0 {
		return nil
	}
	lines := make([]string, n)
	for i := range lines {
		y := s.Top + (2*i+1)*s.Height/(2*n)
		cell := listDimStyle.Render(strings.Repeat("·", 12))
		for _, sec := range sections {
			if y < sec.Top || y >= sec.Bottom() {
				continue
			}
			switch sec.Class {
			case plan.ClassTrailing:
				cell = styleTrailing.Render(strings.Repeat("▓", 12))
			case plan.ClassProtected:
				cell = styleProtected.Render(strings.Repeat("█", 12))
			default:
				cell = listNormalStyle.Render(strings.Repeat("░", 12))
			}
		}
		lines[i] = cell
	}
	return lines
}
