package cli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/matzehuels/diaryprint/pkg/assemble"
	"github.com/matzehuels/diaryprint/pkg/errors"
)

// inspectCommand creates the inspect command, which reads a PDF back with
// an independent parser.
func (c *CLI) inspectCommand() *cobra.Command {
	var wantPages int

	cmd := &cobra.Command{
		Use:   "inspect [file.pdf]",
		Short: "Show page count, page size and title of a PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := errors.ValidatePath(args[0]); err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				if os.IsNotExist(err) {
					return errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", args[0])
				}
				return err
			}
			info, err := assemble.Inspect(data)
			if err != nil {
				return err
			}

			printKeyValue("File", args[0])
			printKeyValue("Version", info.Version)
			printKeyValue("Pages", strconv.Itoa(info.Pages))
			printKeyValue("Page size", fmt.Sprintf("%.1f × %.1f mm", info.Width, info.Height))
			if info.Title != "" {
				printKeyValue("Title", info.Title)
			}
			printKeyValue("Size", formatBytes(len(data)))

			if cmd.Flags().Changed("pages") {
				if err := assemble.Verify(data, wantPages); err != nil {
					return err
				}
				printSuccess("Page count matches")
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&wantPages, "pages", 0, "fail unless the PDF has exactly this many pages")
	return cmd
}
