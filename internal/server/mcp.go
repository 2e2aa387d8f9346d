// Package server wires the protocol surfaces: the MCP server with its
// tools, resources, and prompts, and the HTTP transport around it. No
// business logic lives here, only registration and encoding.
package server

import (
	"github.com/mark3labs/mcp-go/server"

	"aareguru-mcp/internal/service"
)

// NewMCP builds the MCP server with every tool, resource, and prompt
// registered against the given service.
func NewMCP(svc *service.Service, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"aareguru-mcp",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(instructions),
	)

	h := &handlers{svc: svc}
	h.registerTools(s)
	h.registerResources(s)
	registerPrompts(s)

	return s
}

// handlers binds the MCP surface to the service layer.
type handlers struct {
	svc *service.Service
}

const instructions = `You are an assistant that helps users with Swiss Aare river conditions.

You can provide:
- Current water temperatures for various Swiss cities
- Flow rates and safety assessments based on BAFU thresholds
- Weather conditions and forecasts
- Historical data for trend analysis
- Comparisons between different cities

Always consider safety when discussing swimming conditions. Flow rates above 220 m³/s
require caution, and rates above 300 m³/s are dangerous.

Swiss German phrases in the API responses add local flavor - feel free to explain them
to users (e.g., "geil aber chli chalt" means "awesome but a bit cold").
`
