package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/diaryprint/pkg/jobs"
)

// historyCommand creates the history command for recorded exports.
func (c *CLI) historyCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent exports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := jobs.NewFileStore("")
			if err != nil {
				return err
			}
			list, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(list) == 0 {
				printInfo("No exports recorded")
				return nil
			}
			fmt.Println(renderHistoryTable(list, time.Now()))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of exports to show")

	cmd.AddCommand(c.historyPruneCommand())
	return cmd
}

// historyPruneCommand creates the "history prune" subcommand.
func (c *CLI) historyPruneCommand() *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove old export records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := jobs.NewFileStore("")
			if err != nil {
				return err
			}
			n, err := store.Prune(cmd.Context(), time.Now().Add(-olderThan))
			if err != nil {
				return err
			}
			printSuccess("Removed %s", plural(n, "record"))
			printDetail("Directory: %s", store.Path())
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "remove records older than this")
	return cmd
}

func renderHistoryTable(list []*jobs.Job, now time.Time) string {
	rows := make([][]string, 0, len(list))
	for _, j := range list {
		pages := "—"
		if j.Pages > 0 {
			pages = strconv.Itoa(j.Pages)
		}
		status := string(j.Status)
		if j.Error != "" {
			status += ": " + j.Error
		}
		rows = append(rows, []string{formatRelativeTime(j.CreatedAt, now), j.Title, pages, j.Duration.Round(time.Millisecond).String(), status})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("When", "Title", "Pages", "Took", "Status").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			base := lipgloss.NewStyle().Padding(0, 1)
			if col == 4 && row < len(list) {
				switch list[row].Status {
				case jobs.StatusFailed:
					return base.Foreground(colorRed)
				case jobs.StatusDone:
					return base.Foreground(colorGreen)
				}
			}
			return base
		})
	return t.Render()
}

func formatRelativeTime(t, now time.Time) string {
	diff := now.Sub(t)
	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	default:
		return t.Format("Jan 2, 2006")
	}
}
