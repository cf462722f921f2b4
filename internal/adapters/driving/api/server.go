// Package api exposes the document QA core over a JSON REST surface.
package api

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
)

// DefaultBodyLimit caps upload size.
const DefaultBodyLimit = 64 * 1024 * 1024

// Ports aggregates the services the REST surface needs.
type Ports struct {
	Query    driving.QueryService
	Document driving.DocumentService

	// Index and Stager enable uploads. Both are optional; without them
	// the upload route is not registered.
	Index  driving.IndexService
	Stager driven.FileStager
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Query == nil {
		return errors.New("api: query service is required")
	}
	if p.Document == nil {
		return errors.New("api: document service is required")
	}
	return nil
}

// Config tunes the HTTP server.
type Config struct {
	// BodyLimit is the maximum request size. DefaultBodyLimit when 0.
	BodyLimit int

	// TempDir spools uploads before staging.
	TempDir string
}

// Server is the REST server.
type Server struct {
	app *fiber.App
}

// NewServer builds the fiber app and registers every route.
func NewServer(ports *Ports, cfg Config) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, err
	}
	if cfg.BodyLimit <= 0 {
		cfg.BodyLimit = DefaultBodyLimit
	}

	var (
		app = fiber.New(fiber.Config{
			ErrorHandler:          ErrorHandler,
			BodyLimit:             cfg.BodyLimit,
			DisableStartupMessage: true,
		})
		checkHandler    = NewCheckHandler(ports.Document)
		queryHandler    = NewQueryHandler(ports.Query)
		documentHandler = NewDocumentHandler(ports.Document)
		check           = app.Group("/check")
		apiv1           = app.Group("/api/v1")
	)

	check.Get("/healthy", checkHandler.HandleHealthy)
	check.Get("/ready", checkHandler.HandleReady)

	apiv1.Post("/ask", queryHandler.HandleAsk)
	apiv1.Get("/documents", documentHandler.HandleList)
	apiv1.Get("/documents/:id", documentHandler.HandleGet)
	apiv1.Delete("/documents/:id", documentHandler.HandleDelete)

	if ports.Index != nil && ports.Stager != nil {
		uploadHandler := NewUploadHandler(ports.Index, ports.Stager, cfg.TempDir)
		apiv1.Post("/documents", uploadHandler.HandleUpload)
	}

	return &Server{app: app}, nil
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run listens on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	go func() {
		<-ctx.Done()
		if err := s.app.ShutdownWithTimeout(5 * time.Second); err != nil {
			logger.Warn("Server shutdown: %v", err)
		}
	}()

	logger.Info("REST server listening on %s", addr)
	return s.app.Listen(addr)
}
