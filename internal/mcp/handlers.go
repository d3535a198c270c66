package mcp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"fopsim/internal/runner"
	"fopsim/internal/simulation"
)

var errNoStore = errors.New("no run store is configured")

func (s *Server) handleSimulation(v simulation.Variant) mcp.ToolHandlerFor[SimulationInput, any] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, in SimulationInput) (*mcp.CallToolResult, any, error) {
		req, err := s.request(v, in)
		if err != nil {
			return nil, nil, err
		}
		res, err := s.runner.Run(ctx, req)
		if err != nil {
			if res == nil {
				return nil, nil, err
			}
			// Partial batches still report what was written.
			return nil, nil, fmt.Errorf("%w (run %s emitted %d days, seed %d)", err, res.RunID, res.Emitted, res.Seed)
		}
		out, err := textResult(res)
		return out, nil, err
	}
}

// request maps tool arguments onto the configured defaults.
func (s *Server) request(v simulation.Variant, in SimulationInput) (runner.Request, error) {
	sim := s.cfg.Simulation
	if in.Replications != 0 {
		sim.Replications = in.Replications
	}
	if in.Confidence != 0 {
		sim.Confidence = in.Confidence
	}
	if in.Lookback != "" {
		sim.Lookback = in.Lookback
	}
	if in.Seed != nil {
		seed := *in.Seed
		sim.Seed = &seed
	}
	if in.MissingPolicy != "" {
		sim.MissingPolicy = in.MissingPolicy
	}
	if in.OnFailure != "" {
		sim.OnFailure = in.OnFailure
	}

	req := runner.Request{
		Variant:   v,
		Input:     in.Input,
		StartDay:  in.StartDay,
		EndDay:    in.EndDay,
		Sim:       sim,
		OutputDir: s.cfg.OutputDir,
		Formats:   s.cfg.Formats,
	}
	if in.OutputDir != "" {
		req.OutputDir = in.OutputDir
	}
	if len(in.Formats) > 0 {
		req.Formats = in.Formats
	}
	if in.Date != "" {
		d, err := time.Parse(time.DateOnly, in.Date)
		if err != nil {
			return req, &simulation.ConfigurationError{Field: "date", Value: in.Date, Reason: "want YYYY-MM-DD"}
		}
		req.StartDay, req.EndDay = d.YearDay(), d.YearDay()
		req.Year = d.Year()
	}
	return req, nil
}

func (s *Server) handleListRuns(ctx context.Context, _ *mcp.CallToolRequest, in ListRunsInput) (*mcp.CallToolResult, any, error) {
	if s.runs == nil {
		return nil, nil, errNoStore
	}
	runs, err := s.runs.ListRuns(ctx, in.Limit)
	if err != nil {
		return nil, nil, err
	}
	out, err := textResult(map[string]any{"runs": runs})
	return out, nil, err
}

func (s *Server) handleGetRun(ctx context.Context, _ *mcp.CallToolRequest, in GetRunInput) (*mcp.CallToolResult, any, error) {
	if s.runs == nil {
		return nil, nil, errNoStore
	}
	if in.ID == "" {
		return nil, nil, errors.New("id is required")
	}
	run, err := s.runs.GetRun(ctx, in.ID)
	if err != nil {
		return nil, nil, err
	}
	out, err := textResult(run)
	return out, nil, err
}
