package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/felixgeelhaar/librarian/internal/corpus"
	"github.com/felixgeelhaar/librarian/internal/httpapi"
	"github.com/spf13/cobra"
)

var watchCorpus bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Run: func(cmd *cobra.Command, args []string) {
		a, err := newApp()
		if err != nil {
			fatal(err)
		}
		defer a.close()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		// Best effort: an unreachable index should not keep the server down.
		if err := a.service.InitializeIndex(ctx); err != nil {
			a.obs.Log().Warn().Err(err).Msg("could not initialize index")
		} else {
			info := a.service.DatabaseInfo(ctx)
			a.obs.Log().Info().Int("documents", info.DocumentCount).Msg("index ready")
		}

		if watchCorpus {
			watcher, err := corpus.NewWatcher(a.catalog, a.cfg.Corpus.WatchPatterns, a.obs)
			if err != nil {
				a.obs.Log().Warn().Err(err).Msg("corpus watcher unavailable")
			} else {
				if err := watcher.Start(ctx); err != nil {
					a.obs.Log().Warn().Err(err).Msg("corpus watcher failed to start")
				} else {
					defer watcher.Stop()
				}
			}
		}

		server := httpapi.NewServer(a.service, a.obs, a.cfg.Addr)
		if err := server.Start(ctx); err != nil {
			a.obs.Log().Error().Err(err).Msg("server exited")
		}
	},
}

func init() {
	RootCmd.AddCommand(serveCmd)
	serveCmd.Flags().BoolVarP(&watchCorpus, "watch", "w", true, "Reload the corpus when the file changes")
}
