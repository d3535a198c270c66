package runstore

import (
	"context"
	"fmt"
	"time"

	"fopsim/internal/simulation"
)

// Forecast kinds recorded per date.
const (
	Forecasted = "FORECASTED"
	Observed   = "OBSERVED"
)

// DayState is the completion record of one calendar date.
type DayState struct {
	Date                 string `json:"date"`
	LightningCompleted   bool   `json:"lightning_completed"`
	HumanCompleted       bool   `json:"human_completed"`
	ForecastedOrObserved string `json:"forecasted_or_observed"`
}

// MarkDay records that a variant's prediction for date has been produced.
// Dates before today are observed; today and later are forecasts.
func (s *Store) MarkDay(ctx context.Context, date time.Time, v simulation.Variant) error {
	ltg, hmn := 0, 0
	switch v {
	case simulation.Lightning:
		ltg = 1
	case simulation.Human:
		hmn = 1
	default:
		return fmt.Errorf("runstore: unknown variant %q", v)
	}

	kind := Forecasted
	today := s.clock.Now().UTC().Format(time.DateOnly)
	day := date.Format(time.DateOnly)
	if day < today {
		kind = Observed
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO day_state (date, lightning_completed, human_completed, forecasted_or_observed)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(date) DO UPDATE SET
			lightning_completed = MAX(lightning_completed, excluded.lightning_completed),
			human_completed = MAX(human_completed, excluded.human_completed),
			forecasted_or_observed = excluded.forecasted_or_observed`,
		day, ltg, hmn, kind,
	)
	if err != nil {
		return fmt.Errorf("runstore: mark day %s: %w", day, err)
	}
	return nil
}

// DayStates returns every recorded date of a year in date order.
func (s *Store) DayStates(ctx context.Context, year int) ([]DayState, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT date, lightning_completed, human_completed, forecasted_or_observed
		 FROM day_state WHERE date LIKE ? ORDER BY date`,
		fmt.Sprintf("%04d-%%", year),
	)
	if err != nil {
		return nil, fmt.Errorf("runstore: day states: %w", err)
	}
	defer rows.Close()

	states := []DayState{}
	for rows.Next() {
		var d DayState
		var ltg, hmn int
		if err := rows.Scan(&d.Date, &ltg, &hmn, &d.ForecastedOrObserved); err != nil {
			return nil, fmt.Errorf("runstore: scan day state: %w", err)
		}
		d.LightningCompleted = ltg == 1
		d.HumanCompleted = hmn == 1
		states = append(states, d)
	}
	return states, rows.Err()
}

// WriteDay marks each emitted day, so the store can sit among the output sinks.
func (s *Store) WriteDay(ctx context.Context, out *simulation.DayOutput) error {
	return s.MarkDay(ctx, out.Date, out.Variant)
}
