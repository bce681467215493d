package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/diaryprint/pkg/jobs"
	"github.com/matzehuels/diaryprint/pkg/server"
)

// serveOpts holds the command-line flags for the serve command.
type serveOpts struct {
	addr              string
	redis             string
	mongo             string
	mongoDB           string
	noCache           bool
	chromeURL         string
	chromeBin         string
	allowPrivateHosts bool
	timeout           time.Duration
}

// serveCommand creates the serve command, which runs the HTTP API until
// interrupted.
func (c *CLI) serveCommand() *cobra.Command {
	opts := serveOpts{
		addr:    ":8080",
		mongoDB: appName,
		timeout: server.DefaultTimeout,
	}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP export API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", opts.addr, "listen address")
	cmd.Flags().StringVar(&opts.redis, "redis", "", "Redis URL for the shared cache")
	cmd.Flags().StringVar(&opts.mongo, "mongo", "", "MongoDB URI for the export history (default: in memory)")
	cmd.Flags().StringVar(&opts.mongoDB, "mongo-db", opts.mongoDB, "MongoDB database name")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")
	cmd.Flags().StringVar(&opts.chromeURL, "chrome-url", "", "DevTools URL of a running Chrome for HTML exports")
	cmd.Flags().StringVar(&opts.chromeBin, "chrome-bin", "", "Chrome binary to launch for HTML exports")
	cmd.Flags().BoolVar(&opts.allowPrivateHosts, "allow-private-hosts", false, "let request logos reach loopback and private addresses")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", opts.timeout, "per-request timeout")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, opts serveOpts) error {
	runner, err := c.newRunner(ctx, opts.noCache, opts.redis)
	if err != nil {
		return err
	}
	defer runner.Close()
	logger := loggerFromContext(ctx)

	var store jobs.Store = jobs.NewMemoryStore()
	if opts.mongo != "" {
		ms, err := jobs.NewMongoStore(ctx, opts.mongo, opts.mongoDB)
		if err != nil {
			return err
		}
		store = ms
		logger.Info("export history in mongodb", "db", opts.mongoDB)
	}
	defer store.Close()

	fetcher := newFetcher(runner)
	fetcher.PublicOnly = !opts.allowPrivateHosts
	srv := server.New(server.Config{
		Runner:            runner,
		Jobs:              store,
		Fetcher:           fetcher,
		Logger:            logger,
		AllowPrivateHosts: opts.allowPrivateHosts,
		ChromeURL:         opts.chromeURL,
		ChromeBin:         opts.chromeBin,
		Timeout:           opts.timeout,
	})
	return srv.ListenAndServe(ctx, opts.addr)
}
