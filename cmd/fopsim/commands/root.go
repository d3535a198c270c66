package commands

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"fopsim/internal/config"
	"fopsim/internal/logging"
	"fopsim/internal/runstore"
)

var (
	// Version, Commit, and BuildDate are set at build time via ldflags.
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"

	verbose bool
	dbPath  string
	cfg     *config.AppConfig
)

var rootCmd = &cobra.Command{
	Use:   "fopsim",
	Short: "fopsim simulates daily wildfire occurrence by Monte Carlo",
	Long: `fopsim turns per-cell daily lightning and human-caused fire probabilities into
regional predictions: expected arrivals, holdovers and ignitions per cell, and
confidence intervals of daily totals for the province and its sub-regions.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logging.Init(verbose)

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}
		if dbPath != "" {
			cfg.DBPath = dbPath
		}

		log.Debug().
			Str("version", Version).
			Str("commit", Commit).
			Str("buildDate", BuildDate).
			Str("dataPath", cfg.DataPath).
			Msg("fopsim starting")
		return nil
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "run store database path (default $FOP_DB_PATH)")

	rootCmd.AddCommand(newSimulateCmd(), newRunsCmd(), newServeCmd(), newMCPCmd(), newVersionCmd())
}

func openStore(ctx context.Context) (*runstore.Store, error) {
	store, err := runstore.Open(ctx, cfg.DBPath)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("path", cfg.DBPath).Msg("Opened run store")
	return store, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "fopsim %s (commit %s, built %s)\n", Version, Commit, BuildDate)
		},
	}
}
