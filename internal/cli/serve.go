package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/mrz1836/cashgate/internal/feed"
	"github.com/mrz1836/cashgate/internal/output"
	"github.com/mrz1836/cashgate/internal/server"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the REST gateway",
	Long: `Start the HTTP server. Upstream endpoints come from the config file and
the environment (RPC_BASEURL, BITCOINCOM_BASEURL, BLOCKBOOK_URL,
CASHACCOUNT_LOOKUPSERVER, SLPDB_URL).

Example:
  cashgate serve
  cashgate serve --port 8080 --feed`,
	RunE: runServe,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	servePort int
	serveFeed bool
)

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "listen port (default from config)")
	serveCmd.Flags().BoolVar(&serveFeed, "feed", false, "enable the websocket block and transaction feed")
}

func runServe(cmd *cobra.Command, _ []string) error {
	if servePort > 0 {
		cfg.Server.Port = servePort
	}
	if cmd.Flags().Changed("feed") {
		cfg.Feed.Enabled = serveFeed
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return serve(ctx, output.Messenger{Out: cmd.OutOrStdout(), Err: cmd.ErrOrStderr()})
}

func serve(ctx context.Context, msg output.Messenger) error {
	up := server.NewUpstreams(cfg, logger, nil)
	defer up.Close()

	g, ctx := errgroup.WithContext(ctx)

	var hub *feed.Hub
	if cfg.Feed.Enabled {
		hub = feed.NewHub(logger)
		poller := feed.NewPoller(up.RPC, hub, cfg.FeedInterval(), logger)
		g.Go(func() error {
			hub.Run(ctx)
			return nil
		})
		g.Go(func() error {
			poller.Run(ctx)
			return nil
		})
	} else {
		msg.Warn("push feed disabled, /v2/feed is not mounted")
	}

	srv := server.New(cfg, logger, up, hub)
	g.Go(func() error {
		return srv.Start(ctx)
	})

	msg.Info("cashgate listening on :%d (%s)", cfg.Server.Port, cfg.GetNetwork())
	return g.Wait()
}
