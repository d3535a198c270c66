// Package probtable reads the per-cell daily probability files produced by
// the lightning and human fire occurrence models.
package probtable

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/jszwec/csvutil"
	"github.com/rs/zerolog/log"

	"fopsim/internal/grid"
)

// Dataset is a loaded season: the probability table and the cells it covers.
type Dataset struct {
	Table *grid.Table
	Cells *grid.CellIndex
	// Rows counts stored records; Skipped counts rows outside the season.
	Rows    int
	Skipped int
}

// lightningColumns is the column order of the lightning probability file.
var lightningColumns = []string{
	"grid", "lat", "lon", "year", "jd", "probign", "probarr0", "probarr1",
	"totltg", "numfire", "region", "nltg0", "nltg1", "nltg2", "nltg3", "nltg4", "dmc", "dc",
}

type lightningRow struct {
	Grid     int     `csv:"grid"`
	Lat      float64 `csv:"lat"`
	Lon      float64 `csv:"lon"`
	Year     int     `csv:"year"`
	Day      int     `csv:"jd"`
	ProbIgn  float64 `csv:"probign"`
	ProbArr0 float64 `csv:"probarr0"`
	ProbArr1 float64 `csv:"probarr1"`
	TotLtg   int     `csv:"totltg"`
	NumFire  int     `csv:"numfire"`
	NSR      int     `csv:"region"`
	Ltg0     int     `csv:"nltg0"`
	Ltg1     int     `csv:"nltg1"`
	Ltg2     int     `csv:"nltg2"`
	Ltg3     int     `csv:"nltg3"`
	Ltg4     int     `csv:"nltg4"`
	DMC      float64 `csv:"dmc"`
	DC       float64 `csv:"dc"`
}

type humanRow struct {
	FishnetID   int     `csv:"fishnet_id"`
	Date        string  `csv:"date"`
	Lat         float64 `csv:"latitude"`
	Lon         float64 `csv:"longitude"`
	Region      string  `csv:"region_ci"`
	Probability float64 `csv:"probability"`
}

// fieldReader splits whitespace-delimited lines into records for csvutil.
type fieldReader struct {
	sc   *bufio.Scanner
	line int
}

func newFieldReader(r io.Reader) *fieldReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	return &fieldReader{sc: sc}
}

func (f *fieldReader) Read() ([]string, error) {
	for f.sc.Scan() {
		f.line++
		if fields := strings.Fields(f.sc.Text()); len(fields) > 0 {
			return fields, nil
		}
	}
	if err := f.sc.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

// ReadLightning loads a whitespace-delimited lightning file. Rows outside
// [seasonStart, 273] are skipped; every in-season row must be the same year.
func ReadLightning(r io.Reader, seasonStart int) (*Dataset, error) {
	fr := newFieldReader(r)
	dec, err := csvutil.NewDecoder(fr, lightningColumns...)
	if err != nil {
		return nil, err
	}

	var (
		ds       = &Dataset{}
		season   = grid.Season{Start: seasonStart, End: grid.DefaultSeasonEnd}
		cells    = map[int]grid.Cell{}
		mismatch int
	)
	for {
		var row lightningRow
		if err := dec.Decode(&row); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("lightning line %d: %w", fr.line, err)
		}

		if !season.Contains(row.Day) {
			ds.Skipped++
			continue
		}
		if ds.Table == nil {
			season.Year = row.Year
			ds.Table = grid.NewTable(season)
		}
		if row.Year != ds.Table.Year {
			return nil, fmt.Errorf("lightning line %d: year %d in a %d file", fr.line, row.Year, ds.Table.Year)
		}

		rec := grid.LightningRecord{
			IgnitionProbability: row.ProbIgn,
			ArrivalSameDay:      row.ProbArr0,
			ArrivalLaterDay:     row.ProbArr1,
			LightningByPeriod:   [grid.NumPeriods]int{row.Ltg0, row.Ltg1, row.Ltg2, row.Ltg3, row.Ltg4},
			DroughtCode:         row.DC,
			ObservedFires:       row.NumFire,
		}
		if rec.TotalLightning() != row.TotLtg {
			mismatch++
		}
		if err := ds.Table.PutLightning(grid.Key{GridID: row.Grid, Day: row.Day}, rec); err != nil {
			return nil, fmt.Errorf("lightning line %d: %w", fr.line, err)
		}
		ds.Rows++

		cells[row.Grid] = grid.Cell{
			ID:     row.Grid,
			Lat:    row.Lat,
			Lon:    row.Lon,
			Region: grid.ClassifyNaturalSubregion(row.NSR, row.Lon),
		}
	}

	if ds.Table == nil {
		return nil, errors.New("lightning file has no in-season rows")
	}
	if mismatch > 0 {
		log.Warn().Int("rows", mismatch).Msg("Lightning total differs from the period sum; using the period sum")
	}
	if ds.Cells, err = indexCells(cells); err != nil {
		return nil, err
	}
	return ds, nil
}

// ReadHuman loads a comma-separated human probability file with a header row.
func ReadHuman(r io.Reader, seasonStart int) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	dec, err := csvutil.NewDecoder(cr)
	if err != nil {
		return nil, fmt.Errorf("human header: %w", err)
	}
	dec.DisallowMissingColumns = true

	ds := &Dataset{}
	season := grid.Season{Start: seasonStart, End: grid.DefaultSeasonEnd}
	cells := map[int]grid.Cell{}
	for line := 2; ; line++ {
		var row humanRow
		if err := dec.Decode(&row); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("human line %d: %w", line, err)
		}

		date, err := parseDate(row.Date)
		if err != nil {
			return nil, fmt.Errorf("human line %d: %w", line, err)
		}
		day := date.YearDay()
		if !season.Contains(day) {
			ds.Skipped++
			continue
		}
		if ds.Table == nil {
			season.Year = date.Year()
			ds.Table = grid.NewTable(season)
		}
		if date.Year() != ds.Table.Year {
			return nil, fmt.Errorf("human line %d: year %d in a %d file", line, date.Year(), ds.Table.Year)
		}

		region, err := grid.ParseRegion(row.Region)
		if err != nil || !region.IsSubRegion() {
			return nil, fmt.Errorf("human line %d: region %q is not a sub-region", line, row.Region)
		}
		if err := ds.Table.PutHuman(grid.Key{GridID: row.FishnetID, Day: day}, grid.HumanRecord{Probability: row.Probability}); err != nil {
			return nil, fmt.Errorf("human line %d: %w", line, err)
		}
		ds.Rows++
		cells[row.FishnetID] = grid.Cell{ID: row.FishnetID, Lat: row.Lat, Lon: row.Lon, Region: region}
	}

	if ds.Table == nil {
		return nil, errors.New("human file has no in-season rows")
	}
	if ds.Cells, err = indexCells(cells); err != nil {
		return nil, err
	}
	return ds, nil
}

// LoadLightning opens and reads a lightning file.
func LoadLightning(path string, seasonStart int) (*Dataset, error) {
	return load(path, seasonStart, ReadLightning)
}

// LoadHuman opens and reads a human file.
func LoadHuman(path string, seasonStart int) (*Dataset, error) {
	return load(path, seasonStart, ReadHuman)
}

func load(path string, seasonStart int, read func(io.Reader, int) (*Dataset, error)) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ds, err := read(f, seasonStart)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	log.Info().
		Str("path", path).
		Int("year", ds.Table.Year).
		Int("rows", ds.Rows).
		Int("skipped", ds.Skipped).
		Int("cells", ds.Cells.Len()).
		Msg("Probability table loaded")
	return ds, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if len(s) > len(time.DateOnly) {
		s = s[:len(time.DateOnly)]
	}
	return time.Parse(time.DateOnly, s)
}

func indexCells(cells map[int]grid.Cell) (*grid.CellIndex, error) {
	list := make([]grid.Cell, 0, len(cells))
	for _, c := range cells {
		list = append(list, c)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return grid.NewCellIndex(list)
}
