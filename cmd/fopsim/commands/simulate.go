package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"fopsim/internal/config"
	"fopsim/internal/observability"
	"fopsim/internal/runner"
	"fopsim/internal/runstore"
	"fopsim/internal/simulation"
)

type simulateFlags struct {
	input        string
	day          string
	start        string
	end          string
	replications int
	confidence   float64
	lookback     string
	seed         int64
	workers      int
	missing      string
	onFailure    string
	formats      []string
	out          string
	profile      string
	noStore      bool
	metricsFile  string
}

func newSimulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run the Monte Carlo simulation for a day or a range of days",
	}
	cmd.AddCommand(
		newSimulateVariantCmd(simulation.Lightning, "Simulate lightning-caused arrivals, holdovers and ignitions"),
		newSimulateVariantCmd(simulation.Human, "Simulate human-caused arrivals"),
	)
	return cmd
}

func newSimulateVariantCmd(v simulation.Variant, short string) *cobra.Command {
	f := &simulateFlags{}
	cmd := &cobra.Command{
		Use:   string(v),
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(cmd, v, f)
		},
	}

	f.bind(cmd.Flags())
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func (f *simulateFlags) bind(fl *pflag.FlagSet) {
	fl.StringVarP(&f.input, "input", "i", "", "probability file for this variant (required)")
	fl.StringVar(&f.day, "day", "", "single day to simulate (YYYY-MM-DD or day of year)")
	fl.StringVar(&f.start, "start", "", "first day (YYYY-MM-DD or day of year); default season start")
	fl.StringVar(&f.end, "end", "", "last day (YYYY-MM-DD or day of year); default season end")
	fl.IntVarP(&f.replications, "replications", "n", simulation.DefaultReplications, "replications per day")
	fl.Float64Var(&f.confidence, "confidence", simulation.DefaultConfidence, "central interval width in percent")
	fl.StringVar(&f.lookback, "lookback", "auto", "holdover window: auto or 0-28 days")
	fl.Int64Var(&f.seed, "seed", 0, "random seed (default: drawn from the clock and logged)")
	fl.IntVar(&f.workers, "workers", 0, "replication workers (default: number of CPUs)")
	fl.StringVar(&f.missing, "missing", "fail", "missing record policy: fail or zero")
	fl.StringVar(&f.onFailure, "on-failure", "abort", "failing day policy: abort or skip")
	fl.StringSliceVarP(&f.formats, "format", "f", nil, "output formats: legacy, jsonl, shapefile, mermaid (repeatable)")
	fl.StringVarP(&f.out, "out", "o", "", "output directory (default $FOP_OUTPUT_DIR)")
	fl.StringVar(&f.profile, "profile", "", "YAML run profile")
	fl.BoolVar(&f.noStore, "no-store", false, "do not record the run in the run store")
	fl.StringVar(&f.metricsFile, "metrics-file", "", "write run metrics here in Prometheus text format on exit")
}

func runSimulate(cmd *cobra.Command, v simulation.Variant, f *simulateFlags) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if f.profile != "" {
		prof, err := config.LoadProfile(f.profile)
		if err != nil {
			return err
		}
		prof.Apply(cfg)
	}

	req, err := f.request(cmd.Flags(), v, cfg)
	if err != nil {
		return err
	}

	var store *runstore.Store
	if !f.noStore {
		if store, err = openStore(ctx); err != nil {
			return err
		}
		defer store.Close()
	}

	metrics, reg := observability.NewMetricsWithRegistry()
	res, err := runner.New(store, metrics).Run(ctx, req)
	if f.metricsFile != "" {
		if werr := observability.WriteTextfile(f.metricsFile, reg); werr != nil {
			err = errors.Join(err, werr)
		}
	}
	if res != nil {
		if printErr := printJSON(cmd, res); printErr != nil {
			return errors.Join(err, printErr)
		}
	}
	return err
}

// request layers changed flags over the loaded configuration and profile.
func (f *simulateFlags) request(fl *pflag.FlagSet, v simulation.Variant, c *config.AppConfig) (runner.Request, error) {
	sim := c.Simulation
	if fl.Changed("replications") {
		sim.Replications = f.replications
	}
	if fl.Changed("confidence") {
		sim.Confidence = f.confidence
	}
	if fl.Changed("lookback") {
		sim.Lookback = f.lookback
	}
	if fl.Changed("seed") {
		seed := f.seed
		sim.Seed = &seed
	}
	if fl.Changed("workers") {
		sim.Workers = f.workers
	}
	if fl.Changed("missing") {
		sim.MissingPolicy = f.missing
	}
	if fl.Changed("on-failure") {
		sim.OnFailure = f.onFailure
	}

	req := runner.Request{
		Variant:   v,
		Input:     f.input,
		Sim:       sim,
		OutputDir: c.OutputDir,
		Formats:   c.Formats,
	}
	if f.out != "" {
		req.OutputDir = f.out
	}
	if len(f.formats) > 0 {
		req.Formats = f.formats
	}

	if f.day != "" {
		if f.start != "" || f.end != "" {
			return req, &simulation.ConfigurationError{Field: "day", Value: f.day, Reason: "cannot be combined with --start or --end"}
		}
		day, year, err := parseDay(f.day)
		if err != nil {
			return req, err
		}
		req.StartDay, req.EndDay, req.Year = day, day, year
		return req, nil
	}
	for _, b := range []struct {
		flag string
		day  *int
	}{{f.start, &req.StartDay}, {f.end, &req.EndDay}} {
		if b.flag == "" {
			continue
		}
		day, year, err := parseDay(b.flag)
		if err != nil {
			return req, err
		}
		if year != 0 && req.Year != 0 && year != req.Year {
			return req, &simulation.ConfigurationError{Field: "day", Value: b.flag, Reason: "--start and --end fall in different years"}
		}
		*b.day = day
		if year != 0 {
			req.Year = year
		}
	}
	return req, nil
}

// parseDay accepts a calendar date or a bare day-of-year. year is zero for a
// bare day-of-year.
func parseDay(s string) (day, year int, err error) {
	s = strings.TrimSpace(s)
	if strings.Contains(s, "-") {
		d, err := time.Parse(time.DateOnly, s)
		if err != nil {
			return 0, 0, &simulation.ConfigurationError{Field: "day", Value: s, Reason: "want YYYY-MM-DD or a day of year"}
		}
		return d.YearDay(), d.Year(), nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 366 {
		return 0, 0, &simulation.ConfigurationError{Field: "day", Value: s, Reason: "want YYYY-MM-DD or a day of year"}
	}
	return n, 0, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
