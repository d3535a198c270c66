package probtable

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fopsim/internal/grid"
)

const lightningFixture = `
  101  55.100 -117.200 2023 120 0.010 0.400 0.200   3 0  8  1 1 1 0 0  20 150
  101  55.100 -117.200 2023 121 0.020 0.500 0.300   6 1  8  1 2 3 0 0  22 155
  102  54.900 -113.500 2023 121 0.030 0.600 0.250   4 0  3  0 0 2 2 0  30 210

  103  56.000 -115.000 2023 121 0.000 0.000 0.000   0 0  1  0 0 0 0 0  10  90
`

func TestReadLightning(t *testing.T) {
	ds, err := ReadLightning(strings.NewReader(lightningFixture), grid.DefaultSeasonStart)
	require.NoError(t, err)

	assert.Equal(t, 2023, ds.Table.Year)
	assert.Equal(t, 3, ds.Rows)
	assert.Equal(t, 1, ds.Skipped)
	require.Equal(t, 3, ds.Cells.Len())

	rec, ok := ds.Table.Lightning(grid.Key{GridID: 101, Day: 121})
	require.True(t, ok)
	assert.Equal(t, 0.02, rec.IgnitionProbability)
	assert.Equal(t, [grid.NumPeriods]int{1, 2, 3, 0, 0}, rec.LightningByPeriod)
	assert.Equal(t, 155.0, rec.DroughtCode)
	assert.Equal(t, 1, rec.ObservedFires)

	regions := map[int]grid.Region{}
	for _, c := range ds.Cells.Cells() {
		regions[c.ID] = c.Region
	}
	assert.Equal(t, map[int]grid.Region{101: grid.Slopes, 102: grid.EastBoreal, 103: grid.WestBoreal}, regions)

	_, ok = ds.Table.Lightning(grid.Key{GridID: 101, Day: 120})
	assert.False(t, ok, "pre-season row should be skipped")
}

func TestReadLightning_Errors(t *testing.T) {
	bad := "101 55.1 -117.2 2023 150 1.5 0.5 0.3 6 1 8 1 2 3 0 0 22 155\n"
	_, err := ReadLightning(strings.NewReader(bad), grid.DefaultSeasonStart)
	assert.True(t, errors.Is(err, grid.ErrNumericDomain), "got %v", err)
	assert.Contains(t, err.Error(), "line 1")

	short := "101 55.1 -117.2 2023 150 0.1 0.5\n"
	_, err = ReadLightning(strings.NewReader(short), grid.DefaultSeasonStart)
	assert.Error(t, err)

	twoYears := "101 55.1 -117.2 2023 150 0.1 0.5 0.3 0 0 8 0 0 0 0 0 22 155\n" +
		"101 55.1 -117.2 2024 150 0.1 0.5 0.3 0 0 8 0 0 0 0 0 22 155\n"
	_, err = ReadLightning(strings.NewReader(twoYears), grid.DefaultSeasonStart)
	assert.ErrorContains(t, err, "line 2")

	_, err = ReadLightning(strings.NewReader(""), grid.DefaultSeasonStart)
	assert.Error(t, err)
}

func TestReadLightning_YearFromFirstInSeasonRow(t *testing.T) {
	rows := "101 55.1 -117.2 2022 300 0.1 0.5 0.3 0 0 8 0 0 0 0 0 22 155\n" +
		"101 55.1 -117.2 2023 150 0.1 0.5 0.3 0 0 8 0 0 0 0 0 22 155\n"
	ds, err := ReadLightning(strings.NewReader(rows), grid.DefaultSeasonStart)
	require.NoError(t, err)
	assert.Equal(t, 2023, ds.Table.Year)
	assert.Equal(t, 1, ds.Rows)
	assert.Equal(t, 1, ds.Skipped)

	_, err = ReadLightning(strings.NewReader(rows[:strings.Index(rows, "\n")+1]), grid.DefaultSeasonStart)
	assert.ErrorContains(t, err, "no in-season rows")
}

const humanFixture = `fishnet_id,date,day_of_year,latitude,longitude,forest_area,region_ci,nsr_numerical_code,ffmc_interpolated,logit,probability
7,2023-06-01,152,55.5,-116.1,Slave Lake,West Boreal,1,88.1,-3.2,0.039
8,2023-06-01,152,53.2,-115.7,Whitecourt,Slopes,9,86.0,-4.0,0.018
7,2023-06-02,153,55.5,-116.1,Slave Lake,West Boreal,1,89.0,-3.0,0.047
`

func TestReadHuman(t *testing.T) {
	ds, err := ReadHuman(strings.NewReader(humanFixture), grid.DefaultSeasonStart)
	require.NoError(t, err)

	assert.Equal(t, 3, ds.Rows)
	rec, ok := ds.Table.Human(grid.Key{GridID: 7, Day: 153})
	require.True(t, ok)
	assert.Equal(t, 0.047, rec.Probability)

	c, ok := ds.Cells.Cell(8)
	require.True(t, ok)
	assert.Equal(t, grid.Slopes, c.Region)
	assert.Equal(t, -115.7, c.Lon)
}

func TestReadHuman_Errors(t *testing.T) {
	header := "fishnet_id,date,latitude,longitude,region_ci,probability\n"

	_, err := ReadHuman(strings.NewReader(header+"7,2023-06-01,55.5,-116.1,Parkland,0.1\n"), grid.DefaultSeasonStart)
	assert.ErrorContains(t, err, "line 2")

	_, err = ReadHuman(strings.NewReader(header+"7,2023-06-01,55.5,-116.1,Slopes,0.1\n7,2023-06-02,55.5,-116.1,Slopes,-0.2\n"), grid.DefaultSeasonStart)
	assert.True(t, errors.Is(err, grid.ErrNumericDomain), "got %v", err)
	assert.Contains(t, err.Error(), "line 3")

	_, err = ReadHuman(strings.NewReader("fishnet_id,date\n7,2023-06-01\n"), grid.DefaultSeasonStart)
	assert.Error(t, err, "missing columns should be rejected")
}

func TestReadHuman_YearFromFirstInSeasonRow(t *testing.T) {
	rows := "fishnet_id,date,latitude,longitude,region_ci,probability\n" +
		"7,2022-12-30,55.5,-116.1,Slopes,0.1\n" +
		"7,2023-06-01,55.5,-116.1,Slopes,0.2\n"
	ds, err := ReadHuman(strings.NewReader(rows), grid.DefaultSeasonStart)
	require.NoError(t, err)
	assert.Equal(t, 2023, ds.Table.Year)
	assert.Equal(t, 1, ds.Rows)
	assert.Equal(t, 1, ds.Skipped)
}

func TestLoadLightning_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ltg.txt")
	require.NoError(t, os.WriteFile(path, []byte(lightningFixture), 0644))

	ds, err := LoadLightning(path, grid.DefaultSeasonStart)
	require.NoError(t, err)
	assert.Equal(t, 3, ds.Rows)

	_, err = LoadLightning(filepath.Join(t.TempDir(), "missing.txt"), grid.DefaultSeasonStart)
	assert.Error(t, err)
}
