package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/diaryprint/pkg/jobs"
	"github.com/matzehuels/diaryprint/pkg/observability"
	"github.com/matzehuels/diaryprint/pkg/pipeline"
)

// exportCommand creates the export command: document or HTML report in,
// paginated PDF out.
func (c *CLI) exportCommand() *cobra.Command {
	var (
		flags      optionFlags
		output     string
		skipVerify bool
		noHistory  bool
	)

	cmd := &cobra.Command{
		Use:   "export [file]",
		Short: "Export a report to a paginated PDF",
		Long: `Export renders a report at a fixed width, keeps tables, cards and the
signature block whole where they fit on a page, and writes one PDF.

Input can be a document description (.json, .toml, .yaml) or an HTML report
(.html), which is rendered with headless Chrome.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.resolve(cmd.Flags())
			if err != nil {
				return err
			}
			opts.Output = outputPath(output, args[0])
			opts.SkipVerify = skipVerify
			return c.runExport(cmd.Context(), args[0], opts, &flags, !noHistory)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output PDF (default: input name with .pdf)")
	cmd.Flags().BoolVar(&skipVerify, "skip-verify", false, "do not re-read the PDF after writing")
	cmd.Flags().BoolVar(&noHistory, "no-history", false, "do not record the export in the history")

	return cmd
}

// outputPath returns output, or input with its extension replaced by .pdf.
func outputPath(output, input string) string {
	if output != "" {
		return output
	}
	return strings.TrimSuffix(input, filepath.Ext(input)) + ".pdf"
}

func (c *CLI) runExport(ctx context.Context, input string, opts pipeline.Options, flags *optionFlags, record bool) error {
	prog := newProgress(c.Logger)
	c.Logger.Debug("exporting", "input", input, "output", opts.Output)

	runner, err := c.newRunner(ctx, flags.noCache, flags.redis)
	if err != nil {
		return err
	}
	defer runner.Close()
	opts.Logger = c.Logger
	opts.Fetcher = newFetcher(runner)

	src, err := pipeline.OpenSource(ctx, input, opts)
	if err != nil {
		return err
	}
	defer src.Close()

	var store jobs.Store
	var job *jobs.Job
	if record {
		if fs, err := jobs.NewFileStore(""); err == nil {
			store = fs
			title := opts.Title
			if title == "" {
				title = src.Title()
			}
			job = jobs.New(title, src.Hash())
		} else {
			c.Logger.Debug("export history unavailable", "error", err)
		}
	}

	var spinner *Spinner
	if !c.verbose {
		spinner = newSpinner(ctx, "Exporting "+filepath.Base(input))
		observability.SetPipelineHooks(spinnerHooks{spinner: spinner, name: filepath.Base(input)})
		defer observability.Reset()
		spinner.Start()
	}
	result, err := runner.Execute(ctx, src, opts)
	if spinner != nil {
		spinner.Stop()
	}

	if job != nil {
		if err != nil {
			job.Fail(err)
		} else {
			job.Finish(result.Pages, len(result.PDF), result.Warnings)
		}
		if perr := store.Put(context.WithoutCancel(ctx), job); perr != nil {
			c.Logger.Debug("record export", "error", perr)
		}
	}
	if err != nil {
		return err
	}

	prog.done("exported", "path", opts.Output, "pages", result.Pages)
	printSuccess("Exported %s", filepath.Base(opts.Output))
	printStats(result.Pages, len(result.PDF), result.CacheInfo.ArtifactHit)
	printWarnings(result.Warnings)
	printFile(opts.Output)
	printNextStep("Inspect it", appName+" inspect "+opts.Output)
	return nil
}

// spinnerHooks shows the running stage next to the spinner.
type spinnerHooks struct {
	observability.NoopPipelineHooks
	spinner *Spinner
	name    string
}

func (h spinnerHooks) OnStageStart(_ context.Context, stage observability.Stage) {
	h.spinner.SetMessage(fmt.Sprintf("Exporting %s: %s", h.name, stage))
}
