package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mark3labs/mcp-go/server"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"github.com/ycho/redmine-mcp/internal/mcp"
	"github.com/ycho/redmine-mcp/internal/redmine"

	_ "github.com/ycho/redmine-mcp/docs" // swagger docs
)

const (
	DefaultAddr      = ":8080"
	DefaultRateLimit = 100
	DefaultRateBurst = 200

	shutdownTimeout = 10 * time.Second
)

// Config holds HTTP server configuration
type Config struct {
	Addr string
	// BaseURL is the public URL clients reach the server on. The SSE
	// transport advertises message endpoints under it.
	BaseURL string
	// RateLimit is the number of requests per second allowed per caller,
	// RateBurst the bucket size.
	RateLimit int
	RateBurst int
	// RequireCallerKey rejects requests without X-Redmine-API-Key even when
	// the client has credentials of its own.
	RequireCallerKey bool
	Logger           *slog.Logger
}

// Server serves the MCP SSE transport, a JSON gateway over the tool
// dispatcher, health and API docs.
type Server struct {
	config      Config
	router      *chi.Mux
	rateLimiter *RateLimiter
	client      *redmine.Client
	dispatcher  *mcp.Dispatcher
	sse         *server.SSEServer
	logger      *slog.Logger
}

// NewServer creates a new HTTP server. client provides the Redmine URL and
// transport; callers may override its credentials per request with the
// X-Redmine-API-Key header. Requests without the header use client's own
// credentials and are rejected when it has none.
func NewServer(config Config, client *redmine.Client, dispatcher *mcp.Dispatcher) *Server {
	if config.Addr == "" {
		config.Addr = DefaultAddr
	}
	if config.RateLimit <= 0 {
		config.RateLimit = DefaultRateLimit
	}
	if config.RateBurst <= 0 {
		config.RateBurst = DefaultRateBurst
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		config:      config,
		router:      chi.NewRouter(),
		rateLimiter: NewRateLimiter(config.RateLimit, time.Second, config.RateBurst),
		client:      client,
		dispatcher:  dispatcher,
		logger:      logger,
	}

	sseOpts := []server.SSEOption{server.WithSSEContextFunc(s.sseContext)}
	if config.BaseURL != "" {
		sseOpts = append(sseOpts, server.WithBaseURL(config.BaseURL))
	}
	s.sse = server.NewSSEServer(mcp.NewMCPServer(dispatcher), sseOpts...)

	s.setupRoutes()
	return s
}

// setupRoutes configures the routes
func (s *Server) setupRoutes() {
	r := s.router

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders)
	r.Use(s.rateLimiter.Middleware)

	r.Get("/health", s.handleHealth)

	r.Get("/docs/*", httpSwagger.Handler(
		httpSwagger.URL("/docs/doc.json"),
	))

	// MCP over SSE
	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Handle("/sse", s.sse.SSEHandler())
		r.Handle("/message", s.sse.MessageHandler())
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/tools", s.handleListTools)
		r.With(s.authMiddleware).Post("/tools/{name}", s.handleCallTool)
	})
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.rateLimiter.Cleanup(10 * time.Minute)
			}
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server",
			"address", s.config.Addr,
			"redmine_url", s.client.BaseURL(),
			"sse", s.config.BaseURL+"/sse",
			"docs", s.config.BaseURL+"/docs/index.html",
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
