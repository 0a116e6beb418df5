// Package api exposes saved comparison reports over HTTP.
package api

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/deepakagrawalmsoe/DataComparator/report"
	"github.com/deepakagrawalmsoe/DataComparator/version"
)

// ServerOptions configure the API server.
type ServerOptions struct {
	Port    string
	Prefork bool
	// ReportDir is the directory holding saved JSON reports.
	ReportDir string
}

// Server holds the Fiber app instance
type Server struct {
	app  *fiber.App
	opts ServerOptions
}

// NewServer initializes a new Fiber instance with best practices
func NewServer(opts ServerOptions) *Server {
	app := fiber.New(fiber.Config{
		IdleTimeout:  10 * time.Second, // Prevents idle connections
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		Prefork:      opts.Prefork,
	})

	// Middleware
	app.Use(recover.New()) // Auto-recovers from panics
	app.Use(logger.New())  // Logs all requests

	s := &Server{app: app, opts: opts}

	// Routes
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("OK")
	})

	app.Get("/version", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"service": "DataComparator API",
			"version": version.Version,
			"build":   version.BuildDate,
			"time":    time.Now().UTC().Format(time.RFC3339),
		})
	})

	app.Get("/reports", s.listReports)
	app.Get("/reports/:name", s.getReport)

	return s
}

// listReports lists the dataset names with a saved JSON report.
func (s *Server) listReports(c *fiber.Ctx) error {
	entries, err := os.ReadDir(s.reportDir())
	if err != nil {
		if os.IsNotExist(err) {
			return c.JSON(fiber.Map{"reports": []string{}})
		}
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	names := []string{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".json"))
	}
	return c.JSON(fiber.Map{"reports": names})
}

// getReport serves one saved report by dataset name.
func (s *Server) getReport(c *fiber.Ctx) error {
	name := c.Params("name")
	if name == "" || name != filepath.Base(name) || strings.Contains(name, "..") {
		return fiber.NewError(fiber.StatusBadRequest, "invalid report name")
	}
	run, err := report.ReportFromFilePath(filepath.Join(s.reportDir(), name+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return fiber.NewError(fiber.StatusNotFound, "report not found")
		}
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(run)
}

func (s *Server) reportDir() string {
	if s.opts.ReportDir == "" {
		return "reports"
	}
	return s.opts.ReportDir
}

// GetApp exposes the underlying Fiber app, mainly for tests.
func (s *Server) GetApp() *fiber.App {
	return s.app
}

// Start runs the Fiber server and handles graceful shutdown
func (s *Server) Start() error {
	port := s.opts.Port
	if port == "" {
		port = "3000" // Default port
	}

	// Channel to listen for OS termination signals (graceful shutdown)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)

	// Start server in a goroutine
	go func() {
		log.Printf("DataComparator API is running on port %s\n", port)
		if err := s.app.Listen(":" + port); err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for shutdown signal
	<-quit
	log.Println("Received shutdown signal, stopping server...")

	// Create a timeout context for the shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.app.ShutdownWithContext(ctx); err != nil {
		log.Fatalf("Error shutting down: %v", err)
	}

	log.Println("Server shutdown successfully")
	return nil
}

// Shutdown stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
