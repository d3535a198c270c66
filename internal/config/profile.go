package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Profile is a YAML run profile. Only the fields present in the file
// override the loaded configuration.
type Profile struct {
	Simulation struct {
		Replications  *int     `yaml:"replications"`
		Confidence    *float64 `yaml:"confidence"`
		Lookback      *string  `yaml:"lookback"`
		SeasonStart   *int     `yaml:"season_start"`
		Workers       *int     `yaml:"workers"`
		MissingPolicy *string  `yaml:"missing_policy"`
		OnFailure     *string  `yaml:"on_failure"`
		Seed          *int64   `yaml:"seed"`
	} `yaml:"simulation"`
	Output struct {
		Dir     *string  `yaml:"dir"`
		Formats []string `yaml:"formats"`
	} `yaml:"output"`
}

// LoadProfile reads a profile, rejecting unknown keys.
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var p Profile
	if err := dec.Decode(&p); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse profile %s: %w", path, err)
	}
	return &p, nil
}

// Apply overlays the profile onto cfg.
func (p *Profile) Apply(cfg *AppConfig) {
	s := p.Simulation
	sim := &cfg.Simulation
	if s.Replications != nil {
		sim.Replications = *s.Replications
	}
	if s.Confidence != nil {
		sim.Confidence = *s.Confidence
	}
	if s.Lookback != nil {
		sim.Lookback = *s.Lookback
	}
	if s.SeasonStart != nil {
		sim.SeasonStart = *s.SeasonStart
	}
	if s.Workers != nil {
		sim.Workers = *s.Workers
	}
	if s.MissingPolicy != nil {
		sim.MissingPolicy = *s.MissingPolicy
	}
	if s.OnFailure != nil {
		sim.OnFailure = *s.OnFailure
	}
	if s.Seed != nil {
		seed := *s.Seed
		sim.Seed = &seed
	}

	if p.Output.Dir != nil {
		cfg.OutputDir = *p.Output.Dir
	}
	if len(p.Output.Formats) > 0 {
		cfg.Formats = p.Output.Formats
	}
}
