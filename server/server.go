package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/poiesic/docqa/conversation"
)

var (
	ErrQueryServiceRequired = errors.New("query service is required")
	ErrIndexerRequired      = errors.New("indexer is required")
	ErrSessionsRequired     = errors.New("session store is required")
)

// Deps are the services exposed over HTTP.
type Deps struct {
	Queries  QueryService
	Indexer  IndexBuilder
	Sessions *conversation.Store
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
}

type Server struct {
	listenAddr string
	app        *fiber.App
	logger     *slog.Logger
}

// New builds the HTTP API.
func New(addr string, deps Deps, logger *slog.Logger) (*Server, error) {
	if deps.Queries == nil {
		return nil, ErrQueryServiceRequired
	}
	if deps.Indexer == nil {
		return nil, ErrIndexerRequired
	}
	if deps.Sessions == nil {
		return nil, ErrSessionsRequired
	}
	if logger == nil {
		logger = slog.Default()
	}

	var (
		app            = fiber.New(fiber.Config{ErrorHandler: ErrorHandler, DisableStartupMessage: true})
		checkHandler   = CheckHandler{}
		queryHandler   = &QueryHandler{service: deps.Queries}
		indexHandler   = &IndexHandler{indexer: deps.Indexer}
		sessionHandler = &SessionHandler{sessions: deps.Sessions}
		check          = app.Group("/check")
		apiv1          = app.Group("/api/v1")
	)

	app.Use(recover.New())

	check.Get("/healthy", checkHandler.HandleHealthy)
	apiv1.Post("/query", queryHandler.HandleQuery)
	apiv1.Post("/index", indexHandler.HandleIndex)
	apiv1.Get("/sessions/:id/history", sessionHandler.HandleHistory)
	apiv1.Delete("/sessions/:id", sessionHandler.HandleDelete)
	if deps.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(deps.Metrics))
	}

	return &Server{
		listenAddr: addr,
		app:        app,
		logger:     logger.With("component", "http-server"),
	}, nil
}

// App exposes the fiber application, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", s.listenAddr)
		errCh <- s.app.Listen(s.listenAddr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	if err := s.app.Shutdown(); err != nil {
		return err
	}
	return <-errCh
}
