package commands

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"fopsim/internal/api"
	"fopsim/internal/mcp"
	"fopsim/internal/observability"
	"fopsim/internal/runner"
	"fopsim/internal/runstore"
)

func newMCPCmd() *cobra.Command {
	var metricsAddr string
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve simulation tools to an MCP client over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			store, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			r, status := mcpRunner(store, metricsAddr)
			if status != nil {
				go func() {
					if err := status.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						log.Error().Err(err).Str("addr", metricsAddr).Msg("Status server stopped")
					}
				}()
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = status.Shutdown(shutdownCtx)
				}()
			}

			return mcp.NewServer(cfg, r, store, Version).Serve(ctx)
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "also serve health, metrics and runs over HTTP on this address")
	return cmd
}

// mcpRunner builds the runner shared by the tools. With an address it also
// returns a status server whose /metrics reads the runner's registry. Stdout
// belongs to the protocol, so metrics are never printed.
func mcpRunner(store *runstore.Store, metricsAddr string) (*runner.Runner, *api.Server) {
	if metricsAddr == "" {
		return runner.New(store, nil), nil
	}
	metrics, reg := observability.NewMetricsWithRegistry()
	srv := api.NewServer(store, api.Options{Addr: metricsAddr, Gatherer: reg})
	return runner.New(store, metrics), srv
}
