package mcp

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"fopsim/internal/simulation"
)

// SimulationInput are the arguments of both simulation tools.
type SimulationInput struct {
	Input         string   `json:"input" jsonschema:"Path to the probability file for this variant."`
	Date          string   `json:"date,omitempty" jsonschema:"Single date to simulate (YYYY-MM-DD). Overrides start_day and end_day."`
	StartDay      int      `json:"start_day,omitempty" jsonschema:"First day of year. Default: season start."`
	EndDay        int      `json:"end_day,omitempty" jsonschema:"Last day of year. Default: season end."`
	Replications  int      `json:"replications,omitempty" jsonschema:"Monte Carlo replications per day. Default: 1000."`
	Confidence    float64  `json:"confidence,omitempty" jsonschema:"Central interval width in percent, (0, 100]. Default: 95."`
	Lookback      string   `json:"lookback,omitempty" jsonschema:"Holdover window: 'auto' or a fixed number of days (0-28). Lightning only."`
	Seed          *int64   `json:"seed,omitempty" jsonschema:"Random seed. Omit to draw one; the seed used is returned."`
	MissingPolicy string   `json:"missing_policy,omitempty" jsonschema:"'fail' (default) or 'zero' for absent cell-day records."`
	OnFailure     string   `json:"on_failure,omitempty" jsonschema:"'abort' (default) or 'skip' failing days."`
	Formats       []string `json:"formats,omitempty" jsonschema:"Output formats: legacy, jsonl, shapefile, mermaid."`
	OutputDir     string   `json:"output_dir,omitempty" jsonschema:"Directory for output files. Default: the configured output directory."`
}

// ListRunsInput are the list_runs arguments.
type ListRunsInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"Maximum runs to return, newest first. Default: 50."`
}

// GetRunInput are the get_run arguments.
type GetRunInput struct {
	ID string `json:"id" jsonschema:"Run id returned by a simulation tool."`
}

func (s *Server) registerTools(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name: "run_lightning_simulation",
		Description: "Simulate lightning-caused fire arrivals, holdovers and ignitions for one day or a range of days. " +
			"Strikes ignite smouldering holdovers that may surface days later, so each day re-walks a lookback window. " +
			"Writes the requested output files and returns the run record with the seed used.",
	}, s.handleSimulation(simulation.Lightning))

	mcp.AddTool(server, &mcp.Tool{
		Name: "run_human_simulation",
		Description: "Simulate human-caused fire arrivals for one day or a range of days from daily per-cell probabilities. " +
			"Writes the requested output files and returns the run record with the seed used.",
	}, s.handleSimulation(simulation.Human))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_runs",
		Description: "List recent simulation runs with status, seed, day range and emitted/failed counts.",
	}, s.handleListRuns)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_run",
		Description: "Get one simulation run by id, including its parameters and any failure message.",
	}, s.handleGetRun)
}
