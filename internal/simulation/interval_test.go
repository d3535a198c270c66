package simulation

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"fopsim/internal/grid"
)

func TestExtractInterval_Ranks(t *testing.T) {
	values := make([]int, 1000)
	for i := range values {
		values[i] = i
	}
	rand.New(rand.NewPCG(1, 2)).Shuffle(len(values), func(i, j int) {
		values[i], values[j] = values[j], values[i]
	})
	first := values[0]

	tests := []struct {
		confidence float64
		want       Interval
	}{
		{95, Interval{Low: 25, High: 974}},
		{90, Interval{Low: 50, High: 949}},
		{100, Interval{Low: 0, High: 999}},
	}
	for _, tt := range tests {
		got, err := ExtractInterval(values, tt.confidence)
		if err != nil {
			t.Fatalf("ExtractInterval(p=%v) failed: %v", tt.confidence, err)
		}
		if got != tt.want {
			t.Errorf("ExtractInterval(p=%v) = %+v, want %+v", tt.confidence, got, tt.want)
		}
	}

	if values[0] != first {
		t.Error("ExtractInterval mutated its input")
	}
}

func TestExtractInterval_SmallAndInvalid(t *testing.T) {
	got, err := ExtractInterval([]int{7}, 95)
	if err != nil || got != (Interval{Low: 7, High: 7}) {
		t.Errorf("Expected single replication to give (7, 7), got %+v, %v", got, err)
	}

	got, err = ExtractInterval([]int{4, 1}, 1)
	if err != nil || got.Low > got.High {
		t.Errorf("Expected ordered bounds for a narrow interval, got %+v, %v", got, err)
	}

	for _, p := range []float64{0, -5, 100.5} {
		if _, err := ExtractInterval([]int{1, 2, 3}, p); !errors.Is(err, ErrConfiguration) {
			t.Errorf("Expected configuration error for p=%v, got %v", p, err)
		}
	}
	if _, err := ExtractInterval(nil, 95); !errors.Is(err, ErrConfiguration) {
		t.Errorf("Expected configuration error for no totals, got %v", err)
	}
}

func TestRegionalTotals_Partition(t *testing.T) {
	tot := NewRegionalTotals(3)
	tot.Add(0, grid.Slopes, 2)
	tot.Add(0, grid.EastBoreal, 1)
	tot.Add(2, grid.WestBoreal, 5)

	if err := tot.CheckPartition(); err != nil {
		t.Fatalf("Partition check failed: %v", err)
	}

	prov := tot.Values(grid.Province)
	if prov[0] != 3 || prov[1] != 0 || prov[2] != 5 {
		t.Errorf("Unexpected province totals %v", prov)
	}
	if m := tot.Mean(grid.Province); m != 8.0/3 {
		t.Errorf("Expected province mean 8/3, got %v", m)
	}

	tot.Values(grid.Province)[1] = 1
	if err := tot.CheckPartition(); err == nil {
		t.Error("Expected broken partition to be reported")
	}
}

func TestAutoLookbackDays(t *testing.T) {
	tests := []struct {
		dc   float64
		want int
	}{
		{0, 4},
		{100, 6}, // 5.5 rounds half up
		{150, 6},
		{199.9, 7},
		{200, 7},
		{350, 11}, // 10.5 rounds half up
		{500, 14},
		{900, 14},
	}
	for _, tt := range tests {
		if got := AutoLookbackDays(tt.dc); got != tt.want {
			t.Errorf("AutoLookbackDays(%v) = %d, want %d", tt.dc, got, tt.want)
		}
	}
}

func TestLookbackPolicy(t *testing.T) {
	fixed, err := FixedLookback(10)
	if err != nil {
		t.Fatalf("FixedLookback failed: %v", err)
	}
	if got := fixed.Resolve(900, 30); got != 10 {
		t.Errorf("Expected fixed window 10, got %d", got)
	}
	if got := fixed.Resolve(900, 3); got != 3 {
		t.Errorf("Expected window capped at season start, got %d", got)
	}
	if got := AutoLookback().Resolve(150, 0); got != 0 {
		t.Errorf("Expected zero window on the first season day, got %d", got)
	}

	if _, err := FixedLookback(MaxLookback + 1); !errors.Is(err, ErrConfiguration) {
		t.Errorf("Expected configuration error above %d days, got %v", MaxLookback, err)
	}
	if _, err := ParseLookback("-1"); !errors.Is(err, ErrConfiguration) {
		t.Errorf("Expected configuration error for negative lookback, got %v", err)
	}

	p, err := ParseLookback("auto")
	if err != nil || !p.IsAuto() || p.String() != "auto" {
		t.Errorf("Expected auto policy, got %v, %v", p, err)
	}
	p, err = ParseLookback("7")
	if err != nil || p.Days() != 7 {
		t.Errorf("Expected fixed 7, got %v, %v", p, err)
	}
}

func TestParams_Validate(t *testing.T) {
	if err := DefaultParams().Validate(); err != nil {
		t.Fatalf("Default params invalid: %v", err)
	}

	tests := []struct {
		name  string
		mod   func(*Params)
		field string
	}{
		{"replications", func(p *Params) { p.Replications = 0 }, "replications"},
		{"confidence zero", func(p *Params) { p.Confidence = 0 }, "confidence"},
		{"confidence high", func(p *Params) { p.Confidence = 101 }, "confidence"},
		{"workers", func(p *Params) { p.Workers = -1 }, "workers"},
	}
	for _, tt := range tests {
		p := DefaultParams()
		tt.mod(&p)
		var ce *ConfigurationError
		if err := p.Validate(); !errors.As(err, &ce) || ce.Field != tt.field {
			t.Errorf("%s: expected configuration error on %s, got %v", tt.name, tt.field, err)
		}
	}
}

func TestChunks(t *testing.T) {
	parts := chunks(10, 4)
	covered := 0
	for i, c := range parts {
		if c.worker != i {
			t.Errorf("Expected worker %d, got %d", i, c.worker)
		}
		covered += c.to - c.from
	}
	if covered != 10 || len(parts) != 4 {
		t.Errorf("Expected 4 chunks covering 10 replications, got %d covering %d", len(parts), covered)
	}

	if parts := chunks(2, 8); len(parts) != 2 {
		t.Errorf("Expected workers capped at replications, got %d chunks", len(parts))
	}
}

// checkRegionSums asserts the partition in every replication and that each
// sub-region's replication totals average to the sum of its cells' means.
func checkRegionSums(t *testing.T, name string, tot *RegionalTotals, cells []CellExpectation, mean func(CellExpectation) float64) {
	t.Helper()
	if err := tot.CheckPartition(); err != nil {
		t.Fatalf("%s: partition check failed: %v", name, err)
	}
	for r, prov := range tot.Values(grid.Province) {
		sum := 0
		for _, sub := range grid.SubRegions {
			sum += tot.Values(sub)[r]
		}
		if sum != prov {
			t.Fatalf("%s: replication %d: expected province %d, got sub-region sum %d", name, r, prov, sum)
		}
	}

	var want [grid.NumRegions]float64
	for _, c := range cells {
		want[c.Cell.Region] += mean(c)
		want[grid.Province] += mean(c)
	}
	for _, region := range grid.Regions {
		if got := tot.Mean(region); math.Abs(got-want[region]) > 1e-9 {
			t.Errorf("%s: %s mean %v, expected cell means to sum to %v", name, region, got, want[region])
		}
	}
}

func TestRegionalTotals_PartitionHoldsForRandomClassifications(t *testing.T) {
	const day = 140
	for trial := 0; trial < 8; trial++ {
		src := rand.New(rand.NewPCG(uint64(trial), 17))

		tbl := grid.NewTable(testSeason())
		var cells []grid.Cell
		n := 40 + src.IntN(40)
		for id := 1; id <= n; id++ {
			region := grid.SubRegions[src.IntN(len(grid.SubRegions))]
			cells = append(cells, grid.Cell{ID: id, Region: region})
			if err := tbl.PutHuman(grid.Key{GridID: id, Day: day}, grid.HumanRecord{Probability: src.Float64()}); err != nil {
				t.Fatalf("PutHuman failed: %v", err)
			}
			for d := tbl.Start; d <= day; d++ {
				rec := grid.LightningRecord{
					IgnitionProbability: src.Float64() / 2,
					ArrivalSameDay:      src.Float64(),
					ArrivalLaterDay:     src.Float64(),
					LightningByPeriod:   [grid.NumPeriods]int{src.IntN(3), src.IntN(3), 0, src.IntN(2), 1},
					DroughtCode:         src.Float64() * 500,
				}
				if err := tbl.PutLightning(grid.Key{GridID: id, Day: d}, rec); err != nil {
					t.Fatalf("PutLightning failed: %v", err)
				}
			}
		}
		idx := mustCells(t, cells...)

		p := DefaultParams()
		p.Seed = int64(trial)
		p.Replications = 60
		p.Workers = 1 + trial%3

		hum, err := NewHumanSimulator(tbl.Season, tbl, idx).SimulateDay(context.Background(), day, p)
		if err != nil {
			t.Fatalf("trial %d: human SimulateDay failed: %v", trial, err)
		}
		checkRegionSums(t, "human arrivals", hum.Arrivals, hum.Cells, func(c CellExpectation) float64 { return c.Arrivals })

		ltg, err := NewLightningSimulator(tbl.Season, tbl, idx).SimulateDay(context.Background(), day, p)
		if err != nil {
			t.Fatalf("trial %d: lightning SimulateDay failed: %v", trial, err)
		}
		if len(ltg.Cells) != len(cells) {
			t.Fatalf("trial %d: expected %d cells, got %d", trial, len(cells), len(ltg.Cells))
		}
		checkRegionSums(t, "lightning arrivals", ltg.Arrivals, ltg.Cells, func(c CellExpectation) float64 { return c.Arrivals })
		checkRegionSums(t, "lightning holdovers", ltg.Holdovers, ltg.Cells, func(c CellExpectation) float64 { return c.Holdovers })
		checkRegionSums(t, "lightning ignitions", ltg.Ignitions, ltg.Cells, func(c CellExpectation) float64 { return c.Ignitions })
	}
}
