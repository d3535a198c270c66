package output

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"fopsim/internal/grid"
	"fopsim/internal/simulation"
)

// Row kinds in the JSON Lines stream.
const (
	KindInterval = "interval"
	KindGrid     = "grid"
)

// RegionBounds holds the interval of each series for one region.
type RegionBounds struct {
	Arrivals  simulation.Interval  `json:"arrivals"`
	Holdovers *simulation.Interval `json:"holdovers,omitempty"`
}

// IntervalRecord is the self-describing interval row.
type IntervalRecord struct {
	Kind             string                  `json:"kind"`
	Variant          simulation.Variant      `json:"variant"`
	Date             string                  `json:"date"`
	Year             int                     `json:"year"`
	DayOfYear        int                     `json:"day_of_year"`
	Replications     int                     `json:"replications"`
	Confidence       float64                 `json:"confidence"`
	MeanIgnitions    *float64                `json:"mean_ignitions,omitempty"`
	ObservedFires    *int                    `json:"observed_fires,omitempty"`
	LightningStrikes *int                    `json:"lightning_strikes,omitempty"`
	Regions          map[string]RegionBounds `json:"regions"`
}

// GridRecord is the self-describing grid row.
type GridRecord struct {
	Kind               string             `json:"kind"`
	Variant            simulation.Variant `json:"variant"`
	Date               string             `json:"date"`
	GridID             int                `json:"grid_id"`
	Lat                float64            `json:"lat"`
	Lon                float64            `json:"lon"`
	Region             string             `json:"region"`
	ExpectedArrivals   float64            `json:"expected_arrivals"`
	ExpectedHoldovers  *float64           `json:"expected_holdovers,omitempty"`
	ExpectedIgnitions  *float64           `json:"expected_ignitions,omitempty"`
	ArrivalProbability *float64           `json:"arrival_probability,omitempty"`
}

// JSONLWriter writes one JSON object per line: an interval record followed by
// the day's grid records.
type JSONLWriter struct {
	w      *bufio.Writer
	enc    *json.Encoder
	closer io.Closer
}

// NewJSONLWriter writes to a caller-owned stream.
func NewJSONLWriter(w io.Writer) *JSONLWriter {
	bw := bufio.NewWriter(w)
	return &JSONLWriter{w: bw, enc: json.NewEncoder(bw)}
}

// CreateJSONL creates <variant>.jsonl in dir.
func CreateJSONL(dir string, v simulation.Variant) (*JSONLWriter, error) {
	name := filepath.Join(dir, string(v)+".jsonl")
	f, err := os.Create(name)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", name, err)
	}
	w := NewJSONLWriter(f)
	w.closer = f
	return w, nil
}

func (j *JSONLWriter) WriteDay(_ context.Context, out *simulation.DayOutput) error {
	if err := j.enc.Encode(NewIntervalRecord(out)); err != nil {
		return err
	}
	for _, c := range out.Cells {
		if err := j.enc.Encode(NewGridRecord(out, c)); err != nil {
			return err
		}
	}
	return j.w.Flush()
}

func (j *JSONLWriter) Close() error {
	err := j.w.Flush()
	if j.closer != nil {
		err = errors.Join(err, j.closer.Close())
	}
	return err
}

// NewIntervalRecord converts a day's summary into its JSON form.
func NewIntervalRecord(out *simulation.DayOutput) IntervalRecord {
	rec := IntervalRecord{
		Kind:         KindInterval,
		Variant:      out.Variant,
		Date:         out.Date.Format(time.DateOnly),
		Year:         out.Year,
		DayOfYear:    out.Day,
		Replications: out.Replications,
		Confidence:   out.Confidence,
		Regions:      make(map[string]RegionBounds, grid.NumRegions),
	}
	iv := out.Intervals
	if out.Variant == simulation.Lightning {
		rec.MeanIgnitions = &iv.MeanIgnitions
		rec.ObservedFires = &iv.ObservedFires
		rec.LightningStrikes = &iv.LightningStrikes
	}
	for _, r := range grid.Regions {
		b := RegionBounds{Arrivals: iv.Arrivals[r]}
		if iv.Holdovers != nil {
			h := iv.Holdovers[r]
			b.Holdovers = &h
		}
		rec.Regions[r.Key()] = b
	}
	return rec
}

// NewGridRecord converts one cell's expectation into its JSON form.
func NewGridRecord(out *simulation.DayOutput, c simulation.CellExpectation) GridRecord {
	rec := GridRecord{
		Kind:             KindGrid,
		Variant:          out.Variant,
		Date:             out.Date.Format(time.DateOnly),
		GridID:           c.Cell.ID,
		Lat:              c.Cell.Lat,
		Lon:              c.Cell.Lon,
		Region:           c.Cell.Region.Key(),
		ExpectedArrivals: c.Arrivals,
	}
	if out.Variant == simulation.Lightning {
		rec.ExpectedHoldovers = &c.Holdovers
		rec.ExpectedIgnitions = &c.Ignitions
	} else {
		rec.ArrivalProbability = &c.ArrivalProbability
	}
	return rec
}
