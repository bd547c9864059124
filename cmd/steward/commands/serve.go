package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/stratadata/steward/catalog"
	"github.com/stratadata/steward/eventlog"
	"github.com/stratadata/steward/learning"
	"github.com/stratadata/steward/logger"
	"github.com/stratadata/steward/server"
)

// ServeCmd starts the read-only query API.
var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the read-only query API over the event log",
	Long: `Serve governance state as a JSON API for local dashboards.

Endpoints:
  GET /health            Event count and last completed day
  GET /events            Raw event stream (?event_type=&limit=)
  GET /investigations    Events grouped into daily governance cycles
  GET /latest_state      Per-term status, score and attention weight
  GET /learning_summary  Recommendation effectiveness and attention state

The API never writes; the run command remains the only writer.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, conn, err := openGoverned()
	if err != nil {
		return err
	}
	defer conn.Close()

	srv := server.New(
		catalog.NewStore(conn, logger.Logger),
		eventlog.NewStore(conn, logger.Logger),
		learning.NewSnapshotStore(conn, logger.Logger),
		cfg.Server,
		logger.Logger,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Infow("Shutting down query API")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
