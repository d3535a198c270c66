package commands

import (
	"github.com/spf13/cobra"
)

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect recorded simulation runs",
	}

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List recent runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return printJSON(cmd, runs)
		},
	}
	list.Flags().IntVar(&limit, "limit", 20, "maximum runs to show")

	get := &cobra.Command{
		Use:   "get <id>",
		Short: "Show one run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			run, err := store.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, run)
		},
	}

	var year int
	days := &cobra.Command{
		Use:   "days",
		Short: "Show per-date completion state for a season",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			states, err := store.DayStates(cmd.Context(), year)
			if err != nil {
				return err
			}
			return printJSON(cmd, states)
		},
	}
	days.Flags().IntVar(&year, "year", 0, "season year (required)")
	_ = days.MarkFlagRequired("year")

	cmd.AddCommand(list, get, days)
	return cmd
}
