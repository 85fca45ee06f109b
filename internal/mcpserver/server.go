// Package mcpserver exposes the study-material core as MCP tools so
// agent frontends can drive lookups, history browsing and export over
// stdio.
package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/medfocus/medgenie/internal/build"
	"github.com/medfocus/medgenie/internal/material"
)

// Server wraps the MCP server with the material service.
type Server struct {
	server *mcp.Server
	svc    *material.Service
}

// NewServer creates a new MCP server with all material tools
// registered.
func NewServer(svc *material.Service) *Server {
	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    "medgenie",
		Version: build.Version(),
	}, nil)

	s := &Server{
		server: mcpServer,
		svc:    svc,
	}

	s.registerTools()

	return s
}

// Run starts the MCP server on the given transport.
func (s *Server) Run(ctx context.Context, transport mcp.Transport) error {
	return s.server.Run(ctx, transport)
}

// registerTools registers all material tools.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name: "get_study_material",
		Description: "Get the study artifact for a subject, " +
			"serving it from cache when possible and " +
			"generating it otherwise",
	}, s.handleGetStudyMaterial)

	mcp.AddTool(s.server, &mcp.Tool{
		Name: "material_history",
		Description: "List previously generated materials, " +
			"most recently accessed first",
	}, s.handleMaterialHistory)

	mcp.AddTool(s.server, &mcp.Tool{
		Name: "export_material",
		Description: "Render the study artifact for a subject " +
			"as a printable HTML document",
	}, s.handleExportMaterial)
}
