package simulation

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"fopsim/internal/grid"
	"fopsim/internal/sampling"
)

// periodArrivalMultiplier scales same-day detection by the time of day of
// the strike. Fires started in the evening have little daylight left.
var periodArrivalMultiplier = [grid.NumPeriods]float64{1.0, 1.0, 1.0, 0.8, 0.2}

// LightningSimulator simulates lightning fires that may smoulder for days
// before they are detected.
type LightningSimulator struct {
	season  grid.Season
	records grid.LightningSource
	cells   grid.Classifier
}

// NewLightningSimulator wires a simulator to its read-only inputs.
func NewLightningSimulator(season grid.Season, records grid.LightningSource, cells grid.Classifier) *LightningSimulator {
	return &LightningSimulator{season: season, records: records, cells: cells}
}

func (s *LightningSimulator) Variant() Variant { return Lightning }

// windowDay is one validated day of a cell's holdover window.
type windowDay struct {
	strikes  int
	ignition float64
	arrSame  float64
	arrLater float64
	periods  sampling.Categorical
}

type cellWindow struct {
	cell grid.Cell
	days []windowDay
}

// SimulateDay runs every replication for day and returns the per-cell means
// and per-replication regional totals.
func (s *LightningSimulator) SimulateDay(ctx context.Context, day int, p Params) (*DayResult, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := checkDay(s.season, day); err != nil {
		return nil, err
	}

	windows, res, err := s.gather(day, p)
	if err != nil {
		return nil, err
	}

	n := p.Replications
	res.Arrivals = NewRegionalTotals(n)
	res.Holdovers = NewRegionalTotals(n)
	res.Ignitions = NewRegionalTotals(n)

	parts := chunks(n, p.Workers)
	sums := make([]cellSums, len(parts))
	for i := range sums {
		sums[i] = newCellSums(len(windows), true)
	}

	streams := sampling.NewStreams(p.Seed)
	err = forEachReplication(ctx, parts, func(w, r int) {
		rng := streams.For(string(Lightning), day, r)
		acc := &sums[w]
		for i := range windows {
			arr, hold, ign := walkWindow(rng, windows[i].days)
			acc.arrivals[i] += int64(arr)
			acc.holdovers[i] += int64(hold)
			acc.ignitions[i] += int64(ign)

			region := windows[i].cell.Region
			res.Arrivals.Add(r, region, arr)
			res.Holdovers.Add(r, region, hold)
			res.Ignitions.Add(r, region, ign)
		}
	})
	if err != nil {
		return nil, err
	}

	total := reduceCellSums(sums)
	res.Cells = make([]CellExpectation, len(windows))
	for i, w := range windows {
		res.Cells[i] = CellExpectation{
			Cell:      w.cell,
			Arrivals:  float64(total.arrivals[i]) / float64(n),
			Holdovers: float64(total.holdovers[i]) / float64(n),
			Ignitions: float64(total.ignitions[i]) / float64(n),
		}
	}
	return res, nil
}

// gather resolves each cell's window and validates every record it needs.
// Nothing is sampled until the whole day is known to be complete.
func (s *LightningSimulator) gather(day int, p Params) ([]cellWindow, *DayResult, error) {
	cells := s.cells.Cells()
	missing := grid.NewMissingCollector(day)
	filled := 0

	res := &DayResult{
		Variant:      Lightning,
		Year:         s.season.Year,
		Day:          day,
		Date:         s.season.Date(day),
		Replications: p.Replications,
	}

	lookup := func(k grid.Key) (grid.LightningRecord, bool) {
		rec, ok := s.records.Lightning(k)
		if !ok {
			if p.Missing == grid.MissingFail {
				missing.Add(k)
				return rec, false
			}
			filled++
		}
		return rec, true
	}

	windows := make([]cellWindow, 0, len(cells))
	for _, c := range cells {
		today, ok := lookup(grid.Key{GridID: c.ID, Day: day})
		if !ok {
			continue
		}
		res.ObservedFires += today.ObservedFires
		res.LightningStrikes += today.TotalLightning()

		h := p.Lookback.Resolve(today.DroughtCode, day-s.season.Start)
		w := cellWindow{cell: c, days: make([]windowDay, 0, h+1)}
		complete := true
		for d := day - h; d <= day; d++ {
			k := grid.Key{GridID: c.ID, Day: d}
			rec := today
			if d != day {
				if rec, ok = lookup(k); !ok {
					complete = false
					continue
				}
			}
			wd, err := newWindowDay(k, rec)
			if err != nil {
				return nil, nil, err
			}
			w.days = append(w.days, wd)
		}
		if complete {
			windows = append(windows, w)
		}
	}

	if err := missing.Err(); err != nil {
		return nil, nil, err
	}
	if filled > 0 {
		log.Warn().Int("day", day).Int("filled", filled).Msg("Missing lightning records treated as zero")
	}
	log.Debug().Int("day", day).Int("cells", len(windows)).Str("lookback", p.Lookback.String()).Msg("Lightning windows gathered")
	return windows, res, nil
}

func newWindowDay(k grid.Key, rec grid.LightningRecord) (windowDay, error) {
	if err := rec.Validate(k); err != nil {
		return windowDay{}, err
	}
	wd := windowDay{
		strikes:  rec.TotalLightning(),
		ignition: rec.IgnitionProbability,
		arrSame:  rec.ArrivalSameDay,
		arrLater: rec.ArrivalLaterDay,
	}
	if wd.strikes > 0 {
		periods, err := sampling.NewCategoricalCounts(rec.LightningByPeriod[:])
		if err != nil {
			return windowDay{}, fmt.Errorf("%s: %w", k, err)
		}
		wd.periods = periods
	}
	return wd, nil
}

// walkWindow replays one replication of a cell's window from an empty bank.
// It returns the target day's arrivals, its holdovers (the bank left at the
// end of the day plus the day's arrivals, equivalently the bank carried in
// plus the day's new ignitions) and the target day's new ignitions.
func walkWindow(rng sampling.Source, days []windowDay) (arrivals, holdovers, ignitions int) {
	bank := 0
	for i, wd := range days {
		fromBank := 0
		if i > 0 {
			fromBank = sampling.Binomial(rng, bank, wd.arrLater)
		}

		ign := sampling.Binomial(rng, wd.strikes, wd.ignition)
		fromNew := 0
		for f := 0; f < ign; f++ {
			period := wd.periods.Sample(rng)
			if sampling.Bernoulli(rng, periodArrivalMultiplier[period]*wd.arrSame) {
				fromNew++
			}
		}

		bank = bank - fromBank + ign - fromNew
		arrivals = fromBank + fromNew
		ignitions = ign
	}
	return arrivals, bank + arrivals, ignitions
}
