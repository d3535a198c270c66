package grid

import (
	"errors"
	"fmt"
	"math"
)

// NumPeriods is the number of time-of-day lightning periods per day:
// 0000-0600, 0600-1200, 1200-1800, 1800-2100 and 2100-2359.
const NumPeriods = 5

// Key addresses one cell on one day of the season.
type Key struct {
	GridID int `json:"grid_id"`
	Day    int `json:"day"`
}

func (k Key) String() string {
	return fmt.Sprintf("(grid %d, day %d)", k.GridID, k.Day)
}

// LightningRecord is the calibrated lightning model output for one cell-day.
type LightningRecord struct {
	IgnitionProbability float64
	// ArrivalSameDay is the probability that an ignition is detected on the day it started.
	ArrivalSameDay float64
	// ArrivalLaterDay is the daily probability that a holdover fire is detected.
	ArrivalLaterDay   float64
	LightningByPeriod [NumPeriods]int
	DroughtCode       float64
	// ObservedFires is informational only and never enters the simulation.
	ObservedFires int
}

// TotalLightning is the number of strikes in the cell on the day.
func (r LightningRecord) TotalLightning() int {
	total := 0
	for _, n := range r.LightningByPeriod {
		total += n
	}
	return total
}

// Validate checks probability bounds and count signs.
func (r LightningRecord) Validate(k Key) error {
	if err := checkProbability(k, "ignition_probability", r.IgnitionProbability); err != nil {
		return err
	}
	if err := checkProbability(k, "arrival_same_day", r.ArrivalSameDay); err != nil {
		return err
	}
	if err := checkProbability(k, "arrival_later_day", r.ArrivalLaterDay); err != nil {
		return err
	}
	for i, n := range r.LightningByPeriod {
		if n < 0 {
			return &NumericDomainError{Key: k, Field: fmt.Sprintf("lightning_period_%d", i), Value: float64(n)}
		}
	}
	if math.IsNaN(r.DroughtCode) || math.IsInf(r.DroughtCode, 0) {
		return &NumericDomainError{Key: k, Field: "drought_code", Value: r.DroughtCode}
	}
	return nil
}

// HumanRecord is the calibrated human-caused fire model output for one cell-day.
type HumanRecord struct {
	Probability float64
}

// Validate checks the probability bound.
func (r HumanRecord) Validate(k Key) error {
	return checkProbability(k, "probability", r.Probability)
}

func checkProbability(k Key, field string, p float64) error {
	if math.IsNaN(p) || p < 0 || p > 1 {
		return &NumericDomainError{Key: k, Field: field, Value: p}
	}
	return nil
}

// ErrNumericDomain is matched by every NumericDomainError.
var ErrNumericDomain = errors.New("numeric domain error")

// NumericDomainError reports a supplied value outside its valid range.
type NumericDomainError struct {
	Key   Key
	Field string
	Value float64
}

func (e *NumericDomainError) Error() string {
	return fmt.Sprintf("%s %s: value %v out of range", e.Key, e.Field, e.Value)
}

func (e *NumericDomainError) Unwrap() error { return ErrNumericDomain }

// ErrInputData is matched by every InputDataError.
var ErrInputData = errors.New("input data error")

// maxReportedKeys bounds the keys listed in an InputDataError message.
const maxReportedKeys = 10

// InputDataError reports probability records missing from a simulated window.
type InputDataError struct {
	Day     int
	Missing []Key
	Total   int
}

func (e *InputDataError) Error() string {
	msg := fmt.Sprintf("day %d: %d probability records missing", e.Day, e.Total)
	for i, k := range e.Missing {
		if i == 0 {
			msg += ": "
		} else {
			msg += ", "
		}
		msg += k.String()
	}
	if e.Total > len(e.Missing) {
		msg += fmt.Sprintf(" and %d more", e.Total-len(e.Missing))
	}
	return msg
}

func (e *InputDataError) Unwrap() error { return ErrInputData }

// MissingCollector accumulates absent keys for a single day.
type MissingCollector struct {
	day   int
	keys  []Key
	total int
}

// NewMissingCollector returns a collector for day.
func NewMissingCollector(day int) *MissingCollector {
	return &MissingCollector{day: day}
}

// Add records an absent key.
func (m *MissingCollector) Add(k Key) {
	m.total++
	if len(m.keys) < maxReportedKeys {
		m.keys = append(m.keys, k)
	}
}

// Err returns nil when nothing was collected.
func (m *MissingCollector) Err() error {
	if m.total == 0 {
		return nil
	}
	return &InputDataError{Day: m.day, Missing: m.keys, Total: m.total}
}
