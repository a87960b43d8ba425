package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/thedivinememe/eoq-search-reranker/internal/api"
	"github.com/thedivinememe/eoq-search-reranker/internal/metrics"
	"github.com/thedivinememe/eoq-search-reranker/internal/pipeline"
)

var serveAddr string

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the scoring API over HTTP",
	Long: `Serve exposes scoring, reranking, interaction feedback and statistics
as a JSON API, plus Prometheus metrics on /metrics. Caches are flushed to
storage periodically and on shutdown.

Example:
  eoq serve
  eoq serve --addr 127.0.0.1:9000 --storage sqlite`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from server.addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	p, cfg, err := openPipeline(ctx, pipeline.WithMetrics(m))
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	flushed := make(chan error, 1)
	go func() { flushed <- p.Run(ctx) }()

	srv := api.New(cfg.Server, p, api.WithMetrics(m), api.WithLogger(slog.Default()))
	serveErr := srv.ListenAndServe(ctx)

	// a listen failure returns before ctx is done
	stop()
	flushErr := <-flushed

	if serveErr != nil {
		return serveErr
	}
	if flushErr != nil && !errors.Is(flushErr, context.Canceled) {
		return fmt.Errorf("persist state: %w", flushErr)
	}
	return nil
}
