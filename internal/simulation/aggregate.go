package simulation

import (
	"fmt"

	"fopsim/internal/grid"
)

// RegionalTotals holds one series' per-replication totals for every region.
// Different replications may be added from different goroutines.
type RegionalTotals struct {
	totals [grid.NumRegions][]int
}

// NewRegionalTotals allocates zeroed totals for the given replication count.
func NewRegionalTotals(replications int) *RegionalTotals {
	t := &RegionalTotals{}
	for i := range t.totals {
		t.totals[i] = make([]int, replications)
	}
	return t
}

// Replications returns R.
func (t *RegionalTotals) Replications() int {
	return len(t.totals[grid.Province])
}

// Add credits v to a sub-region and to the province for replication r.
func (t *RegionalTotals) Add(r int, region grid.Region, v int) {
	t.totals[region][r] += v
	t.totals[grid.Province][r] += v
}

// Values returns the totals of one region indexed by replication.
func (t *RegionalTotals) Values(region grid.Region) []int {
	return t.totals[region]
}

// Mean returns the average total of one region over all replications.
func (t *RegionalTotals) Mean(region grid.Region) float64 {
	vals := t.totals[region]
	if len(vals) == 0 {
		return 0
	}
	sum := 0
	for _, v := range vals {
		sum += v
	}
	return float64(sum) / float64(len(vals))
}

// CheckPartition verifies that the sub-regions sum to the province in every
// replication.
func (t *RegionalTotals) CheckPartition() error {
	for r, p := range t.totals[grid.Province] {
		sum := 0
		for _, sub := range grid.SubRegions {
			sum += t.totals[sub][r]
		}
		if sum != p {
			return fmt.Errorf("replication %d: sub-regions sum to %d, province is %d", r, sum, p)
		}
	}
	return nil
}

// Intervals extracts the confidence interval of every region in reporting order.
func (t *RegionalTotals) Intervals(confidence float64) ([grid.NumRegions]Interval, error) {
	var out [grid.NumRegions]Interval
	for _, region := range grid.Regions {
		iv, err := ExtractInterval(t.totals[region], confidence)
		if err != nil {
			return out, fmt.Errorf("%s: %w", region, err)
		}
		out[region] = iv
	}
	return out, nil
}
