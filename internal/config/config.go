package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"fopsim/internal/grid"
	"fopsim/internal/simulation"
)

// AppConfig holds the complete application configuration.
type AppConfig struct {
	DataPath  string
	LogDir    string
	OutputDir string
	DBPath    string
	HTTPAddr  string
	Formats   []string

	Simulation SimulationConfig
}

// SimulationConfig holds the run knobs before validation.
type SimulationConfig struct {
	Replications  int
	Confidence    float64
	Lookback      string
	SeasonStart   int
	Workers       int
	MissingPolicy string
	OnFailure     string
	// Seed is nil when every run should draw a fresh seed.
	Seed *int64
}

// Load loads the configuration from .env files and environment variables.
func Load() (*AppConfig, error) {
	// 1. Try to load from the executable's directory
	exePath, err := os.Executable()
	exeDir := ""
	if err == nil {
		exeDir = filepath.Dir(exePath)
		envPath := filepath.Join(exeDir, ".env")
		if err := godotenv.Load(envPath); err == nil {
			log.Debug().Str("path", envPath).Msg("Loaded configuration from binary directory")
		}
	}

	// 2. Fallback to current working directory
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found in working directory, relying on environment variables or binary-relative .env")
	}

	// 3. Resolve data paths
	dataPath := os.Getenv("DATA_PATH")
	if dataPath == "" {
		if exeDir != "" {
			dataPath = exeDir
		} else {
			dataPath = "."
		}
	}

	cfg := &AppConfig{
		DataPath:  dataPath,
		LogDir:    filepath.Join(dataPath, "logs"),
		OutputDir: getEnv("FOP_OUTPUT_DIR", filepath.Join(dataPath, "output")),
		DBPath:    getEnv("FOP_DB_PATH", filepath.Join(dataPath, "fopsim.db")),
		HTTPAddr:  getEnv("FOP_HTTP_ADDR", ":8080"),
		Formats:   splitList(getEnv("FOP_FORMATS", "legacy,jsonl")),
		Simulation: SimulationConfig{
			Lookback:      getEnv("FOP_LOOKBACK", "auto"),
			MissingPolicy: getEnv("FOP_MISSING_POLICY", "fail"),
			OnFailure:     getEnv("FOP_ON_FAILURE", "abort"),
		},
	}

	sim := &cfg.Simulation
	if sim.Replications, err = getEnvInt("FOP_REPLICATIONS", simulation.DefaultReplications); err != nil {
		return nil, err
	}
	if sim.Confidence, err = getEnvFloat("FOP_CONFIDENCE", simulation.DefaultConfidence); err != nil {
		return nil, err
	}
	if sim.SeasonStart, err = getEnvInt("FOP_SEASON_START", grid.DefaultSeasonStart); err != nil {
		return nil, err
	}
	if sim.Workers, err = getEnvInt("FOP_WORKERS", runtime.NumCPU()); err != nil {
		return nil, err
	}
	if v, ok := os.LookupEnv("FOP_SEED"); ok && v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, &simulation.ConfigurationError{Field: "FOP_SEED", Value: v, Reason: "not an integer"}
		}
		sim.Seed = &seed
	}

	return cfg, nil
}

// Params validates the configuration into driver parameters. The seed is
// left at zero when none is configured.
func (c SimulationConfig) Params() (simulation.Params, error) {
	p := simulation.DefaultParams()
	p.Replications = c.Replications
	p.Confidence = c.Confidence
	p.Workers = c.Workers
	if c.Seed != nil {
		p.Seed = *c.Seed
	}

	lookback, err := simulation.ParseLookback(c.Lookback)
	if err != nil {
		return p, err
	}
	p.Lookback = lookback

	missing, err := grid.ParseMissingPolicy(c.MissingPolicy)
	if err != nil {
		return p, &simulation.ConfigurationError{Field: "missing_policy", Value: c.MissingPolicy, Reason: err.Error()}
	}
	p.Missing = missing

	if c.SeasonStart < 1 || c.SeasonStart > grid.DefaultSeasonEnd {
		return p, &simulation.ConfigurationError{Field: "season_start", Value: c.SeasonStart, Reason: fmt.Sprintf("must be a day of year before %d", grid.DefaultSeasonEnd)}
	}
	return p, p.Validate()
}

// FailurePolicy parses OnFailure.
func (c SimulationConfig) FailurePolicy() (simulation.FailurePolicy, error) {
	return simulation.ParseFailurePolicy(c.OnFailure)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, &simulation.ConfigurationError{Field: key, Value: value, Reason: "not an integer"}
	}
	return n, nil
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, &simulation.ConfigurationError{Field: key, Value: value, Reason: "not a number"}
	}
	return f, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
