package simulation

import (
	"fmt"
	"strings"

	"fopsim/internal/grid"
)

// Variant names which occurrence model a run simulates.
type Variant string

const (
	Lightning Variant = "lightning"
	Human     Variant = "human"
)

// ParseVariant accepts "lightning" or "human".
func ParseVariant(s string) (Variant, error) {
	switch v := Variant(strings.ToLower(strings.TrimSpace(s))); v {
	case Lightning, Human:
		return v, nil
	}
	return "", &ConfigurationError{Field: "variant", Value: s, Reason: "want lightning or human"}
}

const (
	DefaultReplications = 1000
	DefaultConfidence   = 95.0
)

// Params are the knobs shared by every simulated day of a run.
type Params struct {
	Replications int                `json:"replications"`
	Confidence   float64            `json:"confidence"`
	Seed         int64              `json:"seed"`
	Workers      int                `json:"workers"` // 0 uses GOMAXPROCS
	Lookback     LookbackPolicy     `json:"-"`
	Missing      grid.MissingPolicy `json:"-"`
}

// DefaultParams returns 1000 replications at 95% confidence with the
// automatic lookback and the fail policy for missing records.
func DefaultParams() Params {
	return Params{
		Replications: DefaultReplications,
		Confidence:   DefaultConfidence,
		Lookback:     AutoLookback(),
		Missing:      grid.MissingFail,
	}
}

// Validate reports the first out-of-range parameter.
func (p Params) Validate() error {
	if p.Replications < 1 {
		return &ConfigurationError{Field: "replications", Value: p.Replications, Reason: "must be at least 1"}
	}
	if !(p.Confidence > 0 && p.Confidence <= 100) {
		return &ConfigurationError{Field: "confidence", Value: p.Confidence, Reason: "must be in (0, 100]"}
	}
	if p.Workers < 0 {
		return &ConfigurationError{Field: "workers", Value: p.Workers, Reason: "must not be negative"}
	}
	if p.Lookback.fixed && (p.Lookback.days < 0 || p.Lookback.days > MaxLookback) {
		return &ConfigurationError{Field: "lookback", Value: p.Lookback.days, Reason: fmt.Sprintf("must be between 0 and %d days", MaxLookback)}
	}
	return nil
}

func checkDay(s grid.Season, day int) error {
	if !s.Contains(day) {
		return &ConfigurationError{
			Field:  "day",
			Value:  day,
			Reason: fmt.Sprintf("outside the %d season [%d, %d]", s.Year, s.Start, s.End),
		}
	}
	return nil
}
