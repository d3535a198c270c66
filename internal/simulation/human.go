package simulation

import (
	"context"

	"github.com/rs/zerolog/log"

	"fopsim/internal/grid"
	"fopsim/internal/sampling"
)

// HumanSimulator simulates person-caused fires, each cell-day an independent
// Bernoulli trial with no carry-over between days.
type HumanSimulator struct {
	season  grid.Season
	records grid.HumanSource
	cells   grid.Classifier
}

// NewHumanSimulator wires a simulator to its read-only inputs.
func NewHumanSimulator(season grid.Season, records grid.HumanSource, cells grid.Classifier) *HumanSimulator {
	return &HumanSimulator{season: season, records: records, cells: cells}
}

func (s *HumanSimulator) Variant() Variant { return Human }

type humanCell struct {
	cell grid.Cell
	p    float64
}

// SimulateDay runs every replication for day.
func (s *HumanSimulator) SimulateDay(ctx context.Context, day int, p Params) (*DayResult, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := checkDay(s.season, day); err != nil {
		return nil, err
	}

	cells, err := s.gather(day, p)
	if err != nil {
		return nil, err
	}

	n := p.Replications
	res := &DayResult{
		Variant:      Human,
		Year:         s.season.Year,
		Day:          day,
		Date:         s.season.Date(day),
		Replications: n,
		Arrivals:     NewRegionalTotals(n),
	}

	parts := chunks(n, p.Workers)
	sums := make([]cellSums, len(parts))
	for i := range sums {
		sums[i] = newCellSums(len(cells), false)
	}

	streams := sampling.NewStreams(p.Seed)
	err = forEachReplication(ctx, parts, func(w, r int) {
		rng := streams.For(string(Human), day, r)
		acc := &sums[w]
		for i, c := range cells {
			if sampling.Bernoulli(rng, c.p) {
				acc.arrivals[i]++
				res.Arrivals.Add(r, c.cell.Region, 1)
			}
		}
	})
	if err != nil {
		return nil, err
	}

	total := reduceCellSums(sums)
	res.Cells = make([]CellExpectation, len(cells))
	for i, c := range cells {
		res.Cells[i] = CellExpectation{
			Cell:               c.cell,
			Arrivals:           float64(total.arrivals[i]) / float64(n),
			ArrivalProbability: c.p,
		}
	}
	return res, nil
}

func (s *HumanSimulator) gather(day int, p Params) ([]humanCell, error) {
	all := s.cells.Cells()
	missing := grid.NewMissingCollector(day)
	filled := 0

	cells := make([]humanCell, 0, len(all))
	for _, c := range all {
		k := grid.Key{GridID: c.ID, Day: day}
		rec, ok := s.records.Human(k)
		if !ok {
			if p.Missing == grid.MissingFail {
				missing.Add(k)
				continue
			}
			filled++
		}
		if err := rec.Validate(k); err != nil {
			return nil, err
		}
		cells = append(cells, humanCell{cell: c, p: rec.Probability})
	}

	if err := missing.Err(); err != nil {
		return nil, err
	}
	if filled > 0 {
		log.Warn().Int("day", day).Int("filled", filled).Msg("Missing human records treated as zero")
	}
	return cells, nil
}

// cellSums are one worker's integer per-cell counts.
type cellSums struct {
	arrivals  []int64
	holdovers []int64
	ignitions []int64
}

func newCellSums(n int, lightning bool) cellSums {
	s := cellSums{arrivals: make([]int64, n)}
	if lightning {
		s.holdovers = make([]int64, n)
		s.ignitions = make([]int64, n)
	}
	return s
}

// reduceCellSums adds every worker's counts into the first.
func reduceCellSums(all []cellSums) cellSums {
	if len(all) == 0 {
		return cellSums{}
	}
	out := all[0]
	for _, s := range all[1:] {
		for i := range s.arrivals {
			out.arrivals[i] += s.arrivals[i]
		}
		for i := range s.holdovers {
			out.holdovers[i] += s.holdovers[i]
			out.ignitions[i] += s.ignitions[i]
		}
	}
	return out
}
