package simulation

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	// MaxLookback is the largest fixed holdover window accepted.
	MaxLookback = 28
	// autoLookbackCap bounds the drought-code driven window.
	autoLookbackCap = 14
)

// LookbackPolicy decides how many days before the target day a lightning
// ignition may still be smouldering. The zero value is the automatic policy.
type LookbackPolicy struct {
	fixed bool
	days  int
}

// AutoLookback derives the window from the target day's drought code.
func AutoLookback() LookbackPolicy {
	return LookbackPolicy{}
}

// FixedLookback uses the same window for every cell.
func FixedLookback(days int) (LookbackPolicy, error) {
	if days < 0 || days > MaxLookback {
		return LookbackPolicy{}, &ConfigurationError{
			Field:  "lookback",
			Value:  days,
			Reason: fmt.Sprintf("must be between 0 and %d days", MaxLookback),
		}
	}
	return LookbackPolicy{fixed: true, days: days}, nil
}

// ParseLookback accepts "auto" or a day count.
func ParseLookback(s string) (LookbackPolicy, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "auto") {
		return AutoLookback(), nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return LookbackPolicy{}, &ConfigurationError{Field: "lookback", Value: s, Reason: "want auto or a day count"}
	}
	return FixedLookback(n)
}

func (p LookbackPolicy) IsAuto() bool { return !p.fixed }

// Days returns the fixed window, or -1 for the automatic policy.
func (p LookbackPolicy) Days() int {
	if !p.fixed {
		return -1
	}
	return p.days
}

func (p LookbackPolicy) String() string {
	if !p.fixed {
		return "auto"
	}
	return strconv.Itoa(p.days)
}

// Resolve returns the window for one cell. The result never reaches back
// before the season start.
func (p LookbackPolicy) Resolve(droughtCode float64, daysSinceSeasonStart int) int {
	h := p.days
	if !p.fixed {
		h = AutoLookbackDays(droughtCode)
	}
	if h > daysSinceSeasonStart {
		h = daysSinceSeasonStart
	}
	if h < 0 {
		h = 0
	}
	return h
}

// AutoLookbackDays maps a drought code to a holdover window: a shallow slope
// below DC 200 and a steeper one above it, capped at two weeks.
func AutoLookbackDays(dc float64) int {
	var x float64
	if dc < 200 {
		x = dc*3/200 + 4
	} else {
		x = (dc-200)*7/300 + 7
	}
	h := int(math.Floor(x + 0.5))
	if h > autoLookbackCap {
		h = autoLookbackCap
	}
	if h < 0 {
		h = 0
	}
	return h
}
