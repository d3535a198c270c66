package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/browser"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"fopsim/internal/api"
)

func newServeCmd() *cobra.Command {
	var (
		addr    string
		origins []string
		open    bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve health, metrics and run status over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if addr == "" {
				addr = cfg.HTTPAddr
			}
			store, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			srv := api.NewServer(store, api.Options{Addr: addr, AllowedOrigins: origins})

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			if open {
				url := fmt.Sprintf("http://%s/api/runs", browseHost(addr))
				if err := browser.OpenURL(url); err != nil {
					log.Warn().Err(err).Str("url", url).Msg("Failed to open browser")
				}
			}

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			log.Info().Msg("Shutting down HTTP server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default $FOP_HTTP_ADDR)")
	cmd.Flags().StringSliceVar(&origins, "cors-origin", nil, "allowed CORS origins (default any)")
	cmd.Flags().BoolVar(&open, "open", false, "open the run list in the default browser")
	return cmd
}

// browseHost turns a listen address such as ":8080" into a dialable host.
func browseHost(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "localhost" + addr
	}
	return addr
}
