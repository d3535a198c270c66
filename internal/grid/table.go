package grid

import (
	"fmt"
	"strings"
	"time"
)

const (
	// DefaultSeasonStart is May 1 as a day-of-year in a non-leap year.
	DefaultSeasonStart = 121
	// DefaultSeasonEnd is September 30 as a day-of-year in a non-leap year.
	DefaultSeasonEnd = 273
)

// LightningSource supplies lightning records by cell-day.
type LightningSource interface {
	Lightning(k Key) (LightningRecord, bool)
}

// HumanSource supplies human-caused fire probabilities by cell-day.
type HumanSource interface {
	Human(k Key) (HumanRecord, bool)
}

// Season is the span of days-of-year a table covers.
type Season struct {
	Year  int `json:"year"`
	Start int `json:"start"`
	End   int `json:"end"`
}

// DefaultSeason returns the May 1 to September 30 season for year.
func DefaultSeason(year int) Season {
	return Season{Year: year, Start: DefaultSeasonStart, End: DefaultSeasonEnd}
}

// Contains reports whether day lies inside the season.
func (s Season) Contains(day int) bool {
	return day >= s.Start && day <= s.End
}

// Date converts a day-of-year in the season's year to a calendar date.
func (s Season) Date(day int) time.Time {
	return DateOf(s.Year, day)
}

// Days lists every day from from to to inclusive, clipped to the season.
func (s Season) Days(from, to int) []int {
	if from < s.Start {
		from = s.Start
	}
	if to > s.End {
		to = s.End
	}
	var days []int
	for d := from; d <= to; d++ {
		days = append(days, d)
	}
	return days
}

// Table holds one fire season of probability records. It is populated before a
// run starts and must not be written to while simulations read from it.
type Table struct {
	Season

	lightning map[Key]LightningRecord
	human     map[Key]HumanRecord
}

// NewTable creates an empty table for the given season.
func NewTable(season Season) *Table {
	return &Table{
		Season:    season,
		lightning: make(map[Key]LightningRecord),
		human:     make(map[Key]HumanRecord),
	}
}

// PutLightning validates and stores a lightning record.
func (t *Table) PutLightning(k Key, r LightningRecord) error {
	if err := r.Validate(k); err != nil {
		return err
	}
	t.lightning[k] = r
	return nil
}

// PutHuman validates and stores a human record.
func (t *Table) PutHuman(k Key, r HumanRecord) error {
	if err := r.Validate(k); err != nil {
		return err
	}
	t.human[k] = r
	return nil
}

func (t *Table) Lightning(k Key) (LightningRecord, bool) {
	r, ok := t.lightning[k]
	return r, ok
}

func (t *Table) Human(k Key) (HumanRecord, bool) {
	r, ok := t.human[k]
	return r, ok
}

// LightningLen and HumanLen report the stored record counts.
func (t *Table) LightningLen() int { return len(t.lightning) }
func (t *Table) HumanLen() int     { return len(t.human) }

// DateOf converts a day-of-year to a UTC calendar date.
func DateOf(year, day int) time.Time {
	return time.Date(year, time.January, day, 0, 0, 0, 0, time.UTC)
}

// MissingPolicy decides what happens when a simulated window needs a record
// the table does not hold.
type MissingPolicy int

const (
	// MissingFail fails the day with an InputDataError.
	MissingFail MissingPolicy = iota
	// MissingZero treats the absent record as zero probability and zero strikes.
	MissingZero
)

func (p MissingPolicy) String() string {
	if p == MissingZero {
		return "zero"
	}
	return "fail"
}

// ParseMissingPolicy accepts "fail" or "zero".
func ParseMissingPolicy(s string) (MissingPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fail":
		return MissingFail, nil
	case "zero", "zero-fill", "zerofill":
		return MissingZero, nil
	}
	return MissingFail, fmt.Errorf("unknown missing-record policy %q (want fail or zero)", s)
}
