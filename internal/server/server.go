// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer — it connects handlers, middleware, and routes.
// Think of it as the control centre that decides:
// - Which URL patterns map to which handler functions
// - What middleware runs on which routes
// - How the server starts and stops gracefully
//
// DEPENDENCY INJECTION FLOW:
// main.go passes a Config; New() assembles the whole chain in one place
// (the "composition root" pattern):
//
//	sqlite.DB → AuthService/BugService → AuthHandler/BugHandler → routes
//
// Each layer only receives what it needs: services get repository
// interfaces, handlers get services — the handler never touches the
// database and the service never touches HTTP.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/bugtracker/internal/auth"
	"github.com/sakif/bugtracker/internal/handler"
	"github.com/sakif/bugtracker/internal/middleware"
	sqliteRepo "github.com/sakif/bugtracker/internal/repository/sqlite"
	"github.com/sakif/bugtracker/internal/service"
)

// Config holds server configuration.
// Using a struct for config (instead of individual parameters) makes it easy to:
// - Add new config options without changing function signatures
// - Pass config around as a single value
// - Load config from env vars in one place (main.go)
type Config struct {
	Port      int
	DBPath    string // path to the SQLite database file
	JWTSecret string // HMAC secret for signing tokens
}

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the database connection (db). When the server shuts down,
// the connection is closed to flush the WAL and release the file lock.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New creates a new Server with the given config.
//
// IMPORT ALIAS:
// repository/sqlite is imported as `sqliteRepo` to avoid confusion with the
// sqlite driver package.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("server: JWT secret is required")
	}

	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close() // Clean up DB if route setup fails
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
//
//	POST   /auth/register       → create an account (open)
//	POST   /auth/token          → credentials → access+refresh (open)
//	POST   /auth/token/refresh  → refresh → new access (open)
//	GET    /auth/me             → current account summary (auth)
//	GET    /bugs                → list own bug reports (auth)
//	POST   /bugs                → create (auth)
//	GET    /bugs/{id}           → retrieve own record (auth)
//	PUT    /bugs/{id}           → full update (auth)
//	PATCH  /bugs/{id}           → partial update (auth)
//	DELETE /bugs/{id}           → delete (auth)
//
// MIDDLEWARE ORDER MATTERS:
// 1. RequestID — assigns a unique ID to each request (for tracing)
// 2. RealIP — extracts the real client IP from proxy headers
// 3. StripSlashes — "/bugs/" and "/bugs" hit the same route
// 4. Recoverer — catches panics and returns 500 instead of crashing
// 5. Logger — logs each request with timing info
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.StripSlashes)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	tokens, err := auth.NewTokenService(s.config.JWTSecret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordService()

	// DEPENDENCY CHAIN:
	// s.db (sqlite.DB) implements both repository interfaces; the services
	// receive it as an interface, the handlers receive the services.
	authService := service.NewAuthService(s.db, tokens, passwords, s.logger)
	bugService := service.NewBugService(s.db, s.logger)

	authHandler := handler.NewAuthHandler(authService, s.logger)
	bugHandler := handler.NewBugHandler(bugService, s.logger)

	s.router.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.HandleRegister)
		r.Post("/token", authHandler.HandleToken)
		r.Post("/token/refresh", authHandler.HandleRefresh)
		r.With(auth.RequireAuth(tokens)).Get("/me", authHandler.HandleMe)
	})

	s.router.Route("/bugs", func(r chi.Router) {
		r.Use(auth.RequireAuth(tokens))
		r.Get("/", bugHandler.HandleList)
		r.Post("/", bugHandler.HandleCreate)
		r.Get("/{id}", bugHandler.HandleGetByID)
		r.Put("/{id}", bugHandler.HandleUpdate)
		r.Patch("/{id}", bugHandler.HandlePatch)
		r.Delete("/{id}", bugHandler.HandleDelete)
	})

	return nil
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new HTTP connections
// 2. Wait for in-flight requests to finish (30s timeout)
// 3. Close the database connection (flushes WAL, releases file lock)
//
// The `defer s.db.Close()` ensures step 3 happens even if something panics.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Channel to receive OS signals
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Channel to receive server errors
	serverErrors := make(chan error, 1)

	// Start the server in a goroutine (so it doesn't block)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	// Block until we receive a signal or server error
	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		// Give in-flight requests 30 seconds to complete
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
