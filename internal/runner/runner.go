// Package runner wires a probability file, a simulator, the output sinks and
// the run store into one batch run. The CLI and the MCP tools both go
// through Run.
package runner

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"fopsim/internal/config"
	"fopsim/internal/observability"
	"fopsim/internal/output"
	"fopsim/internal/probtable"
	"fopsim/internal/runstore"
	"fopsim/internal/simulation"
)

// Request describes one batch.
type Request struct {
	Variant simulation.Variant
	Input   string
	// StartDay and EndDay bound the batch as days of year. Zero means the
	// season start and season end respectively.
	StartDay int
	EndDay   int
	// Year, when set, must match the year of the loaded table. Callers set
	// it when the days were given as calendar dates.
	Year      int
	Sim       config.SimulationConfig
	OutputDir string
	Formats   []string
}

// FailedDay is a skipped day in a Result.
type FailedDay struct {
	Day   int    `json:"day"`
	Kind  string `json:"kind"`
	Error string `json:"error"`
}

// Result reports what a batch produced.
type Result struct {
	RunID     string             `json:"run_id,omitempty"`
	Variant   simulation.Variant `json:"variant"`
	Year      int                `json:"year"`
	StartDay  int                `json:"start_day"`
	EndDay    int                `json:"end_day"`
	Seed      int64              `json:"seed"`
	Emitted   int                `json:"emitted"`
	Failed    []FailedDay        `json:"failed,omitempty"`
	OutputDir string             `json:"output_dir"`
	Formats   []string           `json:"formats"`
}

// Runner executes requests. The store and metrics are optional.
type Runner struct {
	store   *runstore.Store
	metrics *observability.Metrics
	clock   clockwork.Clock
}

// New creates a runner. Either argument may be nil.
func New(store *runstore.Store, metrics *observability.Metrics) *Runner {
	return &Runner{store: store, metrics: metrics, clock: clockwork.NewRealClock()}
}

// SetClock swaps the time source used to draw seeds. Pass nil to reset.
func (r *Runner) SetClock(c clockwork.Clock) {
	if c == nil {
		c = clockwork.NewRealClock()
	}
	r.clock = c
}

// Run loads the input, simulates every requested day and records the run.
// A non-nil Result is returned whenever the batch started, even on error.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	params, err := req.Sim.Params()
	if err != nil {
		return nil, err
	}
	policy, err := req.Sim.FailurePolicy()
	if err != nil {
		return nil, err
	}
	formats, err := output.ParseFormats(req.Formats)
	if err != nil {
		return nil, &simulation.ConfigurationError{Field: "format", Value: req.Formats, Reason: err.Error()}
	}

	ds, sim, err := load(req.Variant, req.Input, req.Sim.SeasonStart)
	if err != nil {
		return nil, err
	}

	season := ds.Table.Season
	if req.Year != 0 && req.Year != season.Year {
		return nil, &simulation.ConfigurationError{
			Field:  "year",
			Value:  req.Year,
			Reason: fmt.Sprintf("input %s holds the %d season", filepath.Base(req.Input), season.Year),
		}
	}
	start, end := req.StartDay, req.EndDay
	if start == 0 {
		start = season.Start
	}
	if end == 0 {
		end = season.End
	}
	days := season.Days(start, end)
	if len(days) == 0 {
		return nil, &simulation.ConfigurationError{
			Field:  "days",
			Value:  fmt.Sprintf("%d-%d", start, end),
			Reason: fmt.Sprintf("no day inside the %d season [%d, %d]", season.Year, season.Start, season.End),
		}
	}

	if req.Sim.Seed == nil {
		params.Seed = r.clock.Now().UnixNano()
		log.Info().Int64("seed", params.Seed).Msg("No seed configured, drew one from the clock")
	}

	res := &Result{
		Variant:   req.Variant,
		Year:      season.Year,
		StartDay:  days[0],
		EndDay:    days[len(days)-1],
		Seed:      params.Seed,
		OutputDir: req.OutputDir,
	}
	for _, f := range formats {
		res.Formats = append(res.Formats, string(f))
	}

	sinks, err := output.Open(req.OutputDir, req.Variant, formats)
	if err != nil {
		return nil, err
	}

	var run *runstore.Run
	if r.store != nil {
		run, err = r.store.CreateRun(ctx, runstore.RunSpec{
			Variant:  req.Variant,
			Seed:     params.Seed,
			Year:     season.Year,
			StartDay: res.StartDay,
			EndDay:   res.EndDay,
			Params:   describe(params, policy, req.Input, formats),
		})
		if err != nil {
			_ = sinks.Close()
			return nil, err
		}
		res.RunID = run.ID
		sinks.Add(r.store)
	}

	driver := simulation.NewDriver(sim, params, sinks.Sinks()...)
	driver.SetFailurePolicy(policy)
	if r.metrics != nil {
		driver.SetObserver(r.metrics)
		r.metrics.RunStarted()
		defer r.metrics.RunFinished()
	}

	logger := log.With().Str("variant", string(req.Variant)).Str("run_id", res.RunID).Logger()
	logger.Info().
		Int("year", season.Year).
		Int("start_day", res.StartDay).
		Int("end_day", res.EndDay).
		Int("replications", params.Replications).
		Str("lookback", params.Lookback.String()).
		Msg("Simulation run starting")

	sum, runErr := driver.Run(ctx, days)
	runErr = errors.Join(runErr, sinks.Close())

	res.Emitted = sum.Emitted
	for _, f := range sum.Failed {
		res.Failed = append(res.Failed, FailedDay{Day: f.Day, Kind: simulation.ErrorKind(f.Err), Error: f.Err.Error()})
	}

	if run != nil {
		// The run row is settled even when ctx is already canceled.
		storeCtx := context.WithoutCancel(ctx)
		var storeErr error
		if runErr != nil {
			storeErr = r.store.FailRun(storeCtx, run.ID, sum, runErr)
		} else {
			storeErr = r.store.FinishRun(storeCtx, run.ID, sum)
		}
		if storeErr != nil {
			logger.Error().Err(storeErr).Msg("Failed to record run outcome")
		}
	}

	if runErr != nil {
		logger.Error().Err(runErr).Int("emitted", sum.Emitted).Msg("Simulation run failed")
		return res, runErr
	}
	logger.Info().Int("emitted", sum.Emitted).Int("failed", len(sum.Failed)).Msg("Simulation run complete")
	return res, nil
}

func load(v simulation.Variant, path string, seasonStart int) (*probtable.Dataset, simulation.DaySimulator, error) {
	if path == "" {
		return nil, nil, &simulation.ConfigurationError{Field: "input", Value: path, Reason: "an input file is required"}
	}
	switch v {
	case simulation.Lightning:
		ds, err := probtable.LoadLightning(path, seasonStart)
		if err != nil {
			return nil, nil, err
		}
		return ds, simulation.NewLightningSimulator(ds.Table.Season, ds.Table, ds.Cells), nil
	case simulation.Human:
		ds, err := probtable.LoadHuman(path, seasonStart)
		if err != nil {
			return nil, nil, err
		}
		return ds, simulation.NewHumanSimulator(ds.Table.Season, ds.Table, ds.Cells), nil
	}
	return nil, nil, &simulation.ConfigurationError{Field: "variant", Value: v, Reason: "want lightning or human"}
}

func describe(p simulation.Params, policy simulation.FailurePolicy, input string, formats []output.Format) map[string]any {
	d := map[string]any{
		"input":        filepath.Base(input),
		"replications": p.Replications,
		"confidence":   p.Confidence,
		"lookback":     p.Lookback.String(),
		"missing":      p.Missing.String(),
		"on_failure":   policy.String(),
		"workers":      p.Workers,
	}
	if slices.Contains(formats, output.FormatLegacy) {
		d["legacy_layout"] = output.LegacyVersion
	}
	return d
}
