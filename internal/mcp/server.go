// Package mcp exposes simulation runs and the run store as MCP tools over
// stdio.
package mcp

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"

	"fopsim/internal/config"
	"fopsim/internal/runner"
	"fopsim/internal/runstore"
)

// RunReader is the read side of the run store.
type RunReader interface {
	GetRun(ctx context.Context, id string) (*runstore.Run, error)
	ListRuns(ctx context.Context, limit int) ([]runstore.Run, error)
}

// Server holds the state for the MCP server.
type Server struct {
	cfg     *config.AppConfig
	runner  *runner.Runner
	runs    RunReader
	version string
}

// NewServer creates a new MCP server. runs may be nil when no store is open.
func NewServer(cfg *config.AppConfig, r *runner.Runner, runs RunReader, version string) *Server {
	return &Server{cfg: cfg, runner: r, runs: runs, version: version}
}

// Build registers the tools on a fresh SDK server.
func (s *Server) Build() *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "fopsim", Version: s.version}, nil)
	s.registerTools(server)
	return server
}

// Serve runs the stdio loop until the client disconnects or ctx ends.
func (s *Server) Serve(ctx context.Context) error {
	log.Info().Str("version", s.version).Msg("MCP server starting stdio loop")
	return s.Build().Run(ctx, &mcp.StdioTransport{})
}

func textResult(data any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(out)}},
	}, nil
}
