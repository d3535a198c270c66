package simulation

import (
	"fmt"
	"time"

	"fopsim/internal/grid"
)

// CellExpectation is one cell's simulated means over all replications.
type CellExpectation struct {
	Cell      grid.Cell `json:"cell"`
	Arrivals  float64   `json:"expected_arrivals"`
	Holdovers float64   `json:"expected_holdovers,omitempty"`
	Ignitions float64   `json:"expected_ignitions,omitempty"`
	// ArrivalProbability is the input probability, reported by the human model.
	ArrivalProbability float64 `json:"arrival_probability,omitempty"`
}

// DayResult is the raw outcome of simulating one day.
type DayResult struct {
	Variant      Variant
	Year         int
	Day          int
	Date         time.Time
	Replications int

	Cells []CellExpectation

	Arrivals *RegionalTotals
	// Holdovers and Ignitions are nil for the human model.
	Holdovers *RegionalTotals
	Ignitions *RegionalTotals

	ObservedFires    int
	LightningStrikes int
}

// IntervalRow is the regional summary emitted once per day.
type IntervalRow struct {
	MeanIgnitions    float64                    `json:"mean_ignitions"`
	ObservedFires    int                        `json:"observed_fires"`
	LightningStrikes int                        `json:"lightning_strikes"`
	Arrivals         [grid.NumRegions]Interval  `json:"arrivals"`
	Holdovers        *[grid.NumRegions]Interval `json:"holdovers,omitempty"`
}

// DayOutput is what sinks receive for one emitted day.
type DayOutput struct {
	Variant      Variant
	Year         int
	Day          int
	Date         time.Time
	Replications int
	Confidence   float64
	Cells        []CellExpectation
	Intervals    IntervalRow
}

// Summarise checks the regional partition and extracts the intervals.
func (r *DayResult) Summarise(confidence float64) (*DayOutput, error) {
	out := &DayOutput{
		Variant:      r.Variant,
		Year:         r.Year,
		Day:          r.Day,
		Date:         r.Date,
		Replications: r.Replications,
		Confidence:   confidence,
		Cells:        r.Cells,
	}
	out.Intervals.ObservedFires = r.ObservedFires
	out.Intervals.LightningStrikes = r.LightningStrikes

	if err := r.Arrivals.CheckPartition(); err != nil {
		return nil, fmt.Errorf("arrivals: %w", err)
	}
	arr, err := r.Arrivals.Intervals(confidence)
	if err != nil {
		return nil, fmt.Errorf("arrivals: %w", err)
	}
	out.Intervals.Arrivals = arr

	if r.Holdovers != nil {
		if err := r.Holdovers.CheckPartition(); err != nil {
			return nil, fmt.Errorf("holdovers: %w", err)
		}
		hold, err := r.Holdovers.Intervals(confidence)
		if err != nil {
			return nil, fmt.Errorf("holdovers: %w", err)
		}
		out.Intervals.Holdovers = &hold
	}
	if r.Ignitions != nil {
		out.Intervals.MeanIgnitions = r.Ignitions.Mean(grid.Province)
	}
	return out, nil
}
