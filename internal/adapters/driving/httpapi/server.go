// Package httpapi exposes tracked items and refresh runs over HTTP.
// It is a driving adapter built on Fiber and backs 'appwatch serve'.
package httpapi

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/appwatch-labs/appwatch/internal/core/domain"
	"github.com/appwatch-labs/appwatch/internal/core/ports/driving"
	"github.com/appwatch-labs/appwatch/internal/logger"
)

// ErrMissingPorts is returned when a required driving port is nil.
var ErrMissingPorts = errors.New("httpapi: items, bulk and single refresh ports are required")

// Ports aggregates the driving ports the server needs.
type Ports struct {
	Items  driving.ItemService
	Bulk   driving.BulkRefresher
	Single driving.SingleRefresher

	// Status is optional; without it /api/background answers 404.
	Status driving.SchedulerStatus
}

// Validate ensures all required ports are set.
func (p Ports) Validate() error {
	if p.Items == nil || p.Bulk == nil || p.Single == nil {
		return ErrMissingPorts
	}
	return nil
}

// Options configures the server.
type Options struct {
	// AccessLog receives one line per request. Nil disables access logging.
	AccessLog io.Writer
}

// Server serves the reporting API.
type Server struct {
	app   *fiber.App
	ports Ports
}

// NewServer creates a server with its routes registered.
func NewServer(ports Ports, opts Options) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, err
	}

	app := fiber.New(fiber.Config{
		AppName:               "appwatch",
		ReadTimeout:           30 * time.Second,
		ErrorHandler:          errorHandler,
		DisableStartupMessage: true,
	})

	app.Use(fiberrecover.New())
	if opts.AccessLog != nil {
		app.Use(fiberlogger.New(fiberlogger.Config{Output: opts.AccessLog}))
	}

	s := &Server{app: app, ports: ports}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := s.app.Group("/api")
	api.Get("/items", s.listItems)
	api.Get("/items/:key", s.getItem)
	api.Get("/items/:key/transitions", s.listTransitions)
	api.Post("/items/:key/refresh", s.refreshItem)

	api.Post("/refresh", s.startRefresh)
	api.Get("/refresh", s.refreshStatus)
	api.Delete("/refresh", s.cancelRefresh)

	api.Get("/background", s.backgroundStatus)
}

// App returns the underlying Fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until Shutdown is called.
func (s *Server) Listen(addr string) error {
	logger.Info("httpapi: listening on %s", addr)
	return s.app.Listen(addr)
}

// Shutdown stops accepting connections and waits for open requests
// until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// errorHandler renders errors as {"error": "..."} with a status derived
// from domain errors.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		code = fe.Code
	case errors.Is(err, domain.ErrNotFound):
		code = fiber.StatusNotFound
	case errors.Is(err, domain.ErrInvalidInput):
		code = fiber.StatusBadRequest
	case errors.Is(err, domain.ErrRefreshInProgress):
		code = fiber.StatusConflict
	}

	if code >= fiber.StatusInternalServerError {
		logger.Error("httpapi: %s %s: %v", c.Method(), c.Path(), err)
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}
