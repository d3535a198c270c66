package grid

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func TestClassifyNaturalSubregion(t *testing.T) {
	tests := []struct {
		code int
		lon  float64
		want Region
	}{
		{7, -118, Slopes},
		{11, -110, Slopes},
		{14, -112, Slopes},
		{18, -119, Slopes},
		{12, -114, EastBoreal},
		{1, -113.5, EastBoreal},
		{1, -114.01, WestBoreal},
		{6, -119, WestBoreal},
	}

	for _, tt := range tests {
		if got := ClassifyNaturalSubregion(tt.code, tt.lon); got != tt.want {
			t.Errorf("ClassifyNaturalSubregion(%d, %v) = %s, want %s", tt.code, tt.lon, got, tt.want)
		}
	}
}

func TestParseRegion(t *testing.T) {
	for in, want := range map[string]Region{
		"Slopes":      Slopes,
		"West Boreal": WestBoreal,
		"east_boreal": EastBoreal,
		"PROVINCE":    Province,
	} {
		got, err := ParseRegion(in)
		if err != nil {
			t.Fatalf("ParseRegion(%q) failed: %v", in, err)
		}
		if got != want {
			t.Errorf("ParseRegion(%q) = %s, want %s", in, got, want)
		}
	}

	if _, err := ParseRegion("Parkland"); err == nil {
		t.Error("Expected error for unknown region")
	}
}

func TestCellIndex_OrderAndRejection(t *testing.T) {
	idx, err := NewCellIndex([]Cell{
		{ID: 30, Region: Slopes},
		{ID: 10, Region: EastBoreal},
		{ID: 20, Region: WestBoreal},
	})
	if err != nil {
		t.Fatalf("NewCellIndex failed: %v", err)
	}

	cells := idx.Cells()
	for i, want := range []int{10, 20, 30} {
		if cells[i].ID != want {
			t.Errorf("Expected cell %d at position %d, got %d", want, i, cells[i].ID)
		}
	}
	if c, ok := idx.Cell(20); !ok || c.Region != WestBoreal {
		t.Errorf("Expected cell 20 in West Boreal, got %+v (found=%v)", c, ok)
	}

	if err := idx.Add(Cell{ID: 10, Region: Slopes}); err == nil {
		t.Error("Expected duplicate id to be rejected")
	}
	if err := idx.Add(Cell{ID: 40, Region: Province}); err == nil {
		t.Error("Expected Province classification to be rejected")
	}
}

func TestTable_PutValidates(t *testing.T) {
	tbl := NewTable(DefaultSeason(2023))
	k := Key{GridID: 1, Day: 150}

	err := tbl.PutLightning(k, LightningRecord{IgnitionProbability: 1.2})
	var nde *NumericDomainError
	if !errors.As(err, &nde) {
		t.Fatalf("Expected NumericDomainError, got %v", err)
	}
	if nde.Field != "ignition_probability" {
		t.Errorf("Expected ignition_probability field, got %s", nde.Field)
	}

	err = tbl.PutLightning(k, LightningRecord{LightningByPeriod: [NumPeriods]int{0, -1}})
	if !errors.Is(err, ErrNumericDomain) {
		t.Errorf("Expected negative strike count to be rejected, got %v", err)
	}

	if err := tbl.PutHuman(k, HumanRecord{Probability: math.NaN()}); !errors.Is(err, ErrNumericDomain) {
		t.Errorf("Expected NaN probability to be rejected, got %v", err)
	}

	if err := tbl.PutLightning(k, LightningRecord{IgnitionProbability: 0.1, LightningByPeriod: [NumPeriods]int{1, 2, 3, 4, 5}}); err != nil {
		t.Fatalf("PutLightning failed: %v", err)
	}
	r, ok := tbl.Lightning(k)
	if !ok || r.TotalLightning() != 15 {
		t.Errorf("Expected stored record with 15 strikes, got %+v (found=%v)", r, ok)
	}
}

func TestTable_Date(t *testing.T) {
	tbl := NewTable(DefaultSeason(2024))

	// 2024 is a leap year: day 121 is April 30.
	d := tbl.Date(121)
	if d.Month() != 4 || d.Day() != 30 {
		t.Errorf("Expected 2024 day 121 to be April 30, got %s", d.Format("2006-01-02"))
	}

	d = DateOf(2023, 121)
	if d.Month() != 5 || d.Day() != 1 {
		t.Errorf("Expected 2023 day 121 to be May 1, got %s", d.Format("2006-01-02"))
	}

	if !tbl.Contains(273) || tbl.Contains(274) || tbl.Contains(120) {
		t.Error("Season bounds are not inclusive of [121, 273]")
	}

	days := tbl.Days(100, 123)
	if len(days) != 3 || days[0] != 121 || days[2] != 123 {
		t.Errorf("Expected days 121..123 after clipping, got %v", days)
	}
}

func TestInputDataError_Message(t *testing.T) {
	m := NewMissingCollector(160)
	for i := 0; i < 12; i++ {
		m.Add(Key{GridID: i, Day: 160})
	}

	err := m.Err()
	if !errors.Is(err, ErrInputData) {
		t.Fatalf("Expected ErrInputData, got %v", err)
	}

	var ide *InputDataError
	errors.As(err, &ide)
	if ide.Total != 12 || len(ide.Missing) != maxReportedKeys {
		t.Errorf("Expected 12 total and %d listed, got %d and %d", maxReportedKeys, ide.Total, len(ide.Missing))
	}
	if !strings.HasSuffix(err.Error(), "and 2 more") {
		t.Errorf("Expected truncated key list, got %q", err.Error())
	}

	if NewMissingCollector(1).Err() != nil {
		t.Error("Expected nil error from empty collector")
	}
}

func TestParseMissingPolicy(t *testing.T) {
	if p, err := ParseMissingPolicy(""); err != nil || p != MissingFail {
		t.Errorf("Expected default fail policy, got %v, %v", p, err)
	}
	if p, err := ParseMissingPolicy("Zero"); err != nil || p != MissingZero {
		t.Errorf("Expected zero policy, got %v, %v", p, err)
	}
	if _, err := ParseMissingPolicy("ignore"); err == nil {
		t.Error("Expected error for unknown policy")
	}
}
