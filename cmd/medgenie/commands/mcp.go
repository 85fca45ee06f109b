package commands

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/medfocus/medgenie/internal/mcpserver"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the MCP tool server on stdio",
	Long: `Run an MCP server exposing study-material tools
(get_study_material, material_history, export_material) over stdio,
for use by agent frontends.`,
	RunE: runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	log := newLogger()
	svc, cleanup, err := buildService(cmd.Context(), log)
	if err != nil {
		return err
	}
	defer cleanup()

	server := mcpserver.NewServer(svc)

	return server.Run(cmd.Context(), &mcp.StdioTransport{})
}
