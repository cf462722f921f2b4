package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/adapters/driving/api"
	"github.com/custodia-labs/docqa/internal/core/services"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Port range probed when --port is not given.
const (
	serveStartPort = 8420
	serveEndPort   = 8520
)

var (
	serveHost string
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST server",
	Long: `Start a JSON REST server exposing the collection:

  GET    /check/healthy
  GET    /check/ready
  POST   /api/v1/ask              {"question": "...", "top_k": 3, "doc_id": "..."}
  GET    /api/v1/documents
  POST   /api/v1/documents        multipart field "file", optional "replace=true"
  GET    /api/v1/documents/:id
  DELETE /api/v1/documents/:id

Without --port the first free port from 8420 is used.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "127.0.0.1", "interface to listen on")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "HTTP port (0 = first free port from 8420)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if queryService == nil || documentService == nil {
		return errors.New("query service not configured")
	}

	port := servePort
	if port == 0 {
		p, err := services.FindAvailablePort(serveHost, serveStartPort, serveEndPort)
		if err != nil {
			return fmt.Errorf("failed to find a free port: %w", err)
		}
		port = p
	}

	server, err := api.NewServer(&api.Ports{
		Query:    queryService,
		Document: documentService,
		Index:    indexService,
		Stager:   fileStager,
	}, api.Config{})
	if err != nil {
		return err
	}

	logger.SetTimestamps(true)
	defer logger.SetTimestamps(false)

	addr := fmt.Sprintf("%s:%d", serveHost, port)
	cmd.Printf("REST server listening on http://%s\n", addr)
	return server.Run(cmd.Context(), addr)
}
