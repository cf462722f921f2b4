package cli

import (
	"net"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/adapters/driving/mcp"
)

var (
	mcpHost string
	mcpPort int
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server for AI assistant integration.

The server exposes the ask, list_documents, delete_document and
index_document tools and the docqa://documents resources.

By default it communicates over stdio using JSON-RPC. Use --port to start
an HTTP server instead, which enables testing with MCP Inspector and
remote access.

Examples:
  # Stdio mode (default, for desktop assistants)
  docqa mcp serve

  # HTTP mode (for MCP Inspector, remote access)
  docqa mcp serve --port 8080
  docqa mcp serve --host 0.0.0.0 --port 8080

Assistant configuration:
  {
    "mcpServers": {
      "docqa": {
        "command": "/path/to/docqa",
        "args": ["mcp", "serve"]
      }
    }
  }`,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().StringVar(&mcpHost, "host", "127.0.0.1", "HTTP bind address")
	mcpServeCmd.Flags().IntVarP(&mcpPort, "port", "p", 0, "HTTP port (0 = use stdio)")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	ports := &mcp.Ports{
		Query:    queryService,
		Document: documentService,
		Index:    indexService,
	}

	server, err := mcp.NewServer(ports)
	if err != nil {
		return err
	}

	if mcpPort > 0 {
		addr := net.JoinHostPort(mcpHost, strconv.Itoa(mcpPort))
		cmd.Printf("MCP server listening on http://%s\n", addr)
		return server.RunHTTP(cmd.Context(), addr)
	}

	// stdout carries JSON-RPC from here on.

	return server.Run(cmd.Context())
}
