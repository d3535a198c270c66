package simulation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// DaySimulator produces the raw result of one day.
type DaySimulator interface {
	Variant() Variant
	SimulateDay(ctx context.Context, day int, p Params) (*DayResult, error)
}

// Sink receives every emitted day in order.
type Sink interface {
	WriteDay(ctx context.Context, out *DayOutput) error
}

// Observer is notified of day outcomes. It is how metrics are attached.
type Observer interface {
	DaySimulated(v Variant, replications int, elapsed time.Duration)
	DayFailed(v Variant, kind string)
}

// FailurePolicy decides what a failing day does to the rest of the batch.
type FailurePolicy int

const (
	// Abort stops the batch at the first failing day.
	Abort FailurePolicy = iota
	// Skip records the failure and continues with the next day.
	Skip
)

func (f FailurePolicy) String() string {
	if f == Skip {
		return "skip"
	}
	return "abort"
}

// ParseFailurePolicy accepts "abort" or "skip".
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "abort":
		return Abort, nil
	case "skip":
		return Skip, nil
	}
	return Abort, &ConfigurationError{Field: "on_failure", Value: s, Reason: "want abort or skip"}
}

// DayFailure is a day that was not emitted.
type DayFailure struct {
	Day int
	Err error
}

// Summary reports what a batch did.
type Summary struct {
	Seed    int64
	Emitted int
	Failed  []DayFailure
}

// Driver runs a simulator over a batch of days and fans the results out to
// sinks. A day reaches the sinks only after all its replications complete.
// Sinks are written in order and a failing sink stops the batch before the
// sinks after it see the day, so a sink that records completion (the run
// store) belongs last.
type Driver struct {
	sim      DaySimulator
	params   Params
	sinks    []Sink
	policy   FailurePolicy
	observer Observer
}

// NewDriver creates a driver with the abort policy.
func NewDriver(sim DaySimulator, params Params, sinks ...Sink) *Driver {
	return &Driver{sim: sim, params: params, sinks: sinks}
}

// SetFailurePolicy changes how failing days are handled.
func (d *Driver) SetFailurePolicy(p FailurePolicy) {
	d.policy = p
}

// SetObserver attaches an observer for day outcomes.
func (d *Driver) SetObserver(o Observer) {
	d.observer = o
}

// Params returns the run parameters.
func (d *Driver) Params() Params {
	return d.params
}

// Run simulates days in order. Cancellation and sink errors always stop the
// batch; simulation errors follow the failure policy.
func (d *Driver) Run(ctx context.Context, days []int) (Summary, error) {
	sum := Summary{Seed: d.params.Seed}
	if err := d.params.Validate(); err != nil {
		return sum, err
	}

	v := d.sim.Variant()
	for _, day := range days {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		start := time.Now()
		out, err := d.simulate(ctx, day)
		if err != nil {
			if ctx.Err() != nil {
				return sum, ctx.Err()
			}
			if d.observer != nil {
				d.observer.DayFailed(v, ErrorKind(err))
			}
			if d.policy == Abort {
				return sum, fmt.Errorf("%s day %d: %w", v, day, err)
			}
			log.Error().Err(err).Str("variant", string(v)).Int("day", day).Msg("Day failed, skipping")
			sum.Failed = append(sum.Failed, DayFailure{Day: day, Err: err})
			continue
		}

		for _, s := range d.sinks {
			if err := s.WriteDay(ctx, out); err != nil {
				return sum, fmt.Errorf("%s day %d: write output: %w", v, day, err)
			}
		}
		sum.Emitted++

		elapsed := time.Since(start)
		if d.observer != nil {
			d.observer.DaySimulated(v, d.params.Replications, elapsed)
		}
		log.Info().
			Str("variant", string(v)).
			Int("day", day).
			Str("date", out.Date.Format(time.DateOnly)).
			Int("replications", d.params.Replications).
			Dur("elapsed", elapsed).
			Msg("Day simulated")
	}
	return sum, nil
}

func (d *Driver) simulate(ctx context.Context, day int) (*DayOutput, error) {
	res, err := d.sim.SimulateDay(ctx, day, d.params)
	if err != nil {
		return nil, err
	}
	return res.Summarise(d.params.Confidence)
}

// FailedErr joins the failures of a summary, or returns nil.
func (s Summary) FailedErr() error {
	errs := make([]error, 0, len(s.Failed))
	for _, f := range s.Failed {
		errs = append(errs, fmt.Errorf("day %d: %w", f.Day, f.Err))
	}
	return errors.Join(errs...)
}
