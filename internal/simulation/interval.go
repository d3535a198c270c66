package simulation

import (
	"math"
	"slices"
)

// Interval is an empirical confidence interval over replication totals.
type Interval struct {
	Low  int `json:"low"`
	High int `json:"high"`
}

// ExtractInterval trims round((1-p/100)/2*R) values from each end of the
// sorted totals and returns the extreme survivors. values is not modified.
//
// For R=1000 and p=95 that is the 26th and 975th smallest values; p=100
// returns the minimum and maximum.
func ExtractInterval(values []int, confidence float64) (Interval, error) {
	if !(confidence > 0 && confidence <= 100) {
		return Interval{}, &ConfigurationError{Field: "confidence", Value: confidence, Reason: "must be in (0, 100]"}
	}
	n := len(values)
	if n == 0 {
		return Interval{}, &ConfigurationError{Field: "replications", Value: 0, Reason: "no totals to summarise"}
	}

	sorted := slices.Clone(values)
	slices.Sort(sorted)

	tail := (1 - confidence/100) / 2 * float64(n)
	trim := int(math.Floor(tail + 0.5))

	// 1-based ranks
	low, high := trim+1, n-trim
	if low < 1 {
		low = 1
	}
	if low > n {
		low = n
	}
	if high > n {
		high = n
	}
	if high < 1 {
		high = 1
	}
	if low > high {
		low = (low + high) / 2
		high = low
	}

	return Interval{Low: sorted[low-1], High: sorted[high-1]}, nil
}
