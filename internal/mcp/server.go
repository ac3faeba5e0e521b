// Package mcp exposes case intelligence to AI agents over the Model
// Context Protocol.
package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"casewise/internal/casefile"
	"casewise/internal/engine"
	"casewise/internal/history"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Server wraps an MCP server that exposes case review tools.
type Server struct {
	cases   *casefile.Store
	engine  *engine.Engine
	history *history.Store
	red     *history.Redactor
	mcp     *server.MCPServer
}

// NewServer creates a new MCP server with the given dependencies.
func NewServer(cases *casefile.Store, eng *engine.Engine, hist *history.Store, red *history.Redactor) *Server {
	s := &Server{
		cases:   cases,
		engine:  eng,
		history: hist,
		red:     red,
	}

	s.mcp = server.NewMCPServer(
		"casewise",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

// registerTools adds all tool definitions and their handlers to the MCP server.
func (s *Server) registerTools() {
	s.mcp.AddTool(getCaseTool, s.handleGetCase)
	s.mcp.AddTool(getIntelligenceTool, s.handleGetIntelligence)
	s.mcp.AddTool(recomputeCaseTool, s.handleRecomputeCase)
	s.mcp.AddTool(getHistoryTool, s.handleGetHistory)
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
