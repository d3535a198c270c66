package engine

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/jszwec/csvutil"

	"fopsim/internal/grid"
)

type GeneratorConfig struct {
	Scenario string // "mild", "storm" or "drought"
	Year     int
	Rows     int
	Cols     int
	Seed     uint64
	// StartDay and EndDay default to the fire season.
	StartDay int
	EndDay   int
}

// Cell is a generated fishnet cell.
type Cell struct {
	ID  int
	Lat float64
	Lon float64
	NSR int
}

// LightningRow is one line of the whitespace lightning table.
type LightningRow struct {
	Grid     int
	Lat, Lon float64
	Year     int
	Day      int
	ProbIgn  float64
	ProbArr0 float64
	ProbArr1 float64
	NumFire  int
	NSR      int
	Periods  [grid.NumPeriods]int
	DMC, DC  float64
}

// HumanRow is one line of the human probability CSV.
type HumanRow struct {
	FishnetID   int     `csv:"fishnet_id"`
	Date        string  `csv:"date"`
	Lat         float64 `csv:"latitude"`
	Lon         float64 `csv:"longitude"`
	Region      string  `csv:"region_ci"`
	Probability float64 `csv:"probability"`
}

const (
	southLat = 49.5
	northLat = 59.5
	westLon  = -119.5
	eastLon  = -110.5
	// slopesLon is the boundary west of which cells sit in a foothills
	// natural sub-region.
	slopesLon = -116.5
)

func (cfg *GeneratorConfig) defaults() {
	if cfg.Scenario == "" {
		cfg.Scenario = "mild"
	}
	if cfg.Year == 0 {
		cfg.Year = time.Now().Year()
	}
	if cfg.Rows <= 0 {
		cfg.Rows = 6
	}
	if cfg.Cols <= 0 {
		cfg.Cols = 6
	}
	if cfg.StartDay == 0 {
		cfg.StartDay = grid.DefaultSeasonStart
	}
	if cfg.EndDay == 0 {
		cfg.EndDay = grid.DefaultSeasonEnd
	}
}

// Cells lays a Rows x Cols fishnet over the province.
func Cells(cfg GeneratorConfig) []Cell {
	cfg.defaults()
	cells := make([]Cell, 0, cfg.Rows*cfg.Cols)
	for r := 0; r < cfg.Rows; r++ {
		for c := 0; c < cfg.Cols; c++ {
			lat := southLat + (northLat-southLat)*(float64(r)+0.5)/float64(cfg.Rows)
			lon := westLon + (eastLon-westLon)*(float64(c)+0.5)/float64(cfg.Cols)
			nsr := 1
			if lon < slopesLon {
				nsr = 8
			}
			cells = append(cells, Cell{ID: 1000 + r*cfg.Cols + c, Lat: round(lat, 3), Lon: round(lon, 3), NSR: nsr})
		}
	}
	return cells
}

// GenerateLightning produces a season of lightning rows for every cell.
func GenerateLightning(cfg GeneratorConfig) []LightningRow {
	cfg.defaults()
	rng := rand.New(rand.NewPCG(cfg.Seed, 0x6c74))
	cells := Cells(cfg)

	var rows []LightningRow
	for day := cfg.StartDay; day <= cfg.EndDay; day++ {
		dmc, dc := droughtIndices(cfg.Scenario, day-cfg.StartDay)
		stormDay := cfg.Scenario == "storm" && (day-cfg.StartDay)%5 == 0
		for _, c := range cells {
			meanStrikes := 0.4
			if stormDay {
				meanStrikes = 6
			}
			if c.NSR == 8 {
				meanStrikes *= 1.5
			}

			row := LightningRow{
				Grid: c.ID, Lat: c.Lat, Lon: c.Lon, Year: cfg.Year, Day: day, NSR: c.NSR,
				DMC: dmc, DC: dc,
			}
			total := 0
			for p := range row.Periods {
				row.Periods[p] = poisson(rng, meanStrikes/grid.NumPeriods)
				total += row.Periods[p]
			}

			base := 0.004
			if cfg.Scenario == "drought" {
				base = 0.012
			}
			row.ProbIgn = round(math.Min(0.5, base*(1+dc/300)*(0.5+rng.Float64())), 5)
			row.ProbArr0 = round(0.15+0.3*rng.Float64(), 5)
			row.ProbArr1 = round(0.1+0.3*rng.Float64(), 5)
			if total > 0 && rng.Float64() < row.ProbIgn*float64(total)*row.ProbArr0 {
				row.NumFire = 1
			}
			rows = append(rows, row)
		}
	}
	return rows
}

// GenerateHuman produces a season of human-caused arrival probabilities.
func GenerateHuman(cfg GeneratorConfig) []HumanRow {
	cfg.defaults()
	rng := rand.New(rand.NewPCG(cfg.Seed, 0x686d))
	cells := Cells(cfg)

	var rows []HumanRow
	for day := cfg.StartDay; day <= cfg.EndDay; day++ {
		date := time.Date(cfg.Year, time.January, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, day-1)
		// Weekend traffic raises human-caused starts.
		weekend := date.Weekday() == time.Saturday || date.Weekday() == time.Sunday
		_, dc := droughtIndices(cfg.Scenario, day-cfg.StartDay)
		for _, c := range cells {
			p := 0.002 * (1 + dc/400)
			if weekend {
				p *= 1.8
			}
			p *= 0.5 + rng.Float64()
			rows = append(rows, HumanRow{
				FishnetID:   c.ID,
				Date:        date.Format(time.DateOnly),
				Lat:         c.Lat,
				Lon:         c.Lon,
				Region:      grid.ClassifyNaturalSubregion(c.NSR, c.Lon).String(),
				Probability: round(math.Min(p, 1), 6),
			})
		}
	}
	return rows
}

// droughtIndices returns a DMC and DC that climb through the season.
func droughtIndices(scenario string, elapsed int) (float64, float64) {
	dmc, dc := 15+0.4*float64(elapsed), 80+2.2*float64(elapsed)
	if scenario == "drought" {
		dmc, dc = 30+0.8*float64(elapsed), 250+3.5*float64(elapsed)
	}
	return round(dmc, 1), round(dc, 1)
}

// poisson samples by inversion; fine for the small means used here.
func poisson(rng *rand.Rand, mean float64) int {
	l := math.Exp(-mean)
	k, p := 0, 1.0
	for {
		p *= rng.Float64()
		if p <= l {
			return k
		}
		k++
	}
}

func round(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}

// WriteLightning writes rows in the whitespace lightning layout.
func WriteLightning(w io.Writer, rows []LightningRow) error {
	bw := bufio.NewWriter(w)
	for _, r := range rows {
		total := 0
		for _, n := range r.Periods {
			total += n
		}
		_, err := fmt.Fprintf(bw, "%6d %8.3f %9.3f %4d %3d %.5f %.5f %.5f %4d %d %2d %d %d %d %d %d %6.1f %6.1f\n",
			r.Grid, r.Lat, r.Lon, r.Year, r.Day, r.ProbIgn, r.ProbArr0, r.ProbArr1, total, r.NumFire, r.NSR,
			r.Periods[0], r.Periods[1], r.Periods[2], r.Periods[3], r.Periods[4], r.DMC, r.DC)
		if err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteHuman writes rows as CSV with a header.
func WriteHuman(w io.Writer, rows []HumanRow) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)
	for _, r := range rows {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Save generates both variants into outDir and returns the file paths.
func Save(outDir string, cfg GeneratorConfig) (string, string, error) {
	cfg.defaults()
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return "", "", err
	}

	lightningPath := filepath.Join(outDir, fmt.Sprintf("ltg_%d_%s.txt", cfg.Year, cfg.Scenario))
	humanPath := filepath.Join(outDir, fmt.Sprintf("hmn_%d_%s.csv", cfg.Year, cfg.Scenario))

	if err := writeFile(lightningPath, func(w io.Writer) error {
		return WriteLightning(w, GenerateLightning(cfg))
	}); err != nil {
		return "", "", err
	}
	if err := writeFile(humanPath, func(w io.Writer) error {
		return WriteHuman(w, GenerateHuman(cfg))
	}); err != nil {
		return "", "", err
	}
	return lightningPath, humanPath, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
