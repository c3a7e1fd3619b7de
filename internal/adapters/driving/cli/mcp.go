package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docsearch/internal/adapters/driving/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server so AI assistants can search
the documentation.

The server exposes a "search" tool, a docsearch://status resource and the
docsearch://documents/{documentId} resource template.

By default, the server communicates over stdio using JSON-RPC. Use --port
to start an HTTP server instead, which enables:
  - Testing with MCP Inspector web UI
  - Remote access via HTTP

Examples:
  # Stdio mode (default)
  docsearch mcp serve

  # HTTP mode, reloading when the site is rebuilt
  docsearch mcp serve --port 8080 --watch

Client configuration:
  {
    "mcpServers": {
      "docsearch": {
        "command": "/path/to/docsearch",
        "args": ["mcp", "serve"]
      }
    }
  }`,
	RunE: runMCPServe,
}

var mcpWatch bool

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpServeCmd.Flags().BoolVarP(&mcpWatch, "watch", "w", false, "reload the index when the artifact changes")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}

	s, err := loadServices()
	if err != nil {
		return err
	}

	server, err := mcp.NewServer(&mcp.Ports{Search: s.Search})
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	startWatch(ctx, s, watchEnabled(s, mcpWatch))

	if port > 0 {
		addr := fmt.Sprintf(":%d", port)
		cmd.PrintErrf("MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(ctx, addr)
	}

	return server.Run(ctx)
}
