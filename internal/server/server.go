// Package server wires the application together and runs the HTTP server.
//
// This is the composition root: it builds the database, the auth services,
// the account service, and the handlers, and decides which middleware runs
// on which routes. Nothing else in the codebase constructs dependencies.
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

	"github.com/sakif/accounts-api/internal/auth"
	"github.com/sakif/accounts-api/internal/config"
	"github.com/sakif/accounts-api/internal/handler"
	"github.com/sakif/accounts-api/internal/middleware"
	"github.com/sakif/accounts-api/internal/model"
	"github.com/sakif/accounts-api/internal/service"
	sqliteRepo "github.com/sakif/accounts-api/internal/repository/sqlite"
)

// Server owns the router, the configuration, and the database connection.
// The connection is closed during graceful shutdown in Start.
type Server struct {
	router *chi.Mux
	cfg    config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New builds the full dependency graph and the route table.
//
// Dependency chain:
//
//	sqlite.DB → AccountService ← TokenService, PasswordService, Exchangers
//	AccountService → LoginHandler, UserHandler → routes
//
// Each layer receives interfaces or ready-made services, never raw config.
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath, logger)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.JWTIssuer)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating token service: %w", err)
	}

	exchangers := map[model.ProviderType]auth.Exchanger{
		model.ProviderGoogle:   auth.NewGoogleExchanger(cfg.OAuthTimeout),
		model.ProviderFacebook: auth.NewFacebookExchanger(cfg.OAuthTimeout),
	}

	accounts := service.NewAccountService(
		db,
		tokens,
		auth.NewPasswordService(),
		exchangers,
		cfg.DefaultOAuthPassword,
		logger,
	)

	s := &Server{
		router: chi.NewRouter(),
		cfg:    cfg,
		logger: logger,
		db:     db,
	}
	s.setupRoutes(accounts, tokens)

	return s, nil
}

// setupRoutes configures middleware and the /v1 route table.
//
//	POST   /v1/login        password login
//	POST   /v1/login/oauth  OAuth login
//	POST   /v1/logout       logout (auth)
//	GET    /v1/users        list users
//	POST   /v1/users        register
//	GET    /v1/users/me     authenticated user (auth)
//	GET    /v1/users/{id}   get one user
//	PATCH  /v1/users/{id}   partial update (auth, self only)
//	DELETE /v1/users/{id}   delete (auth, self only)
func (s *Server) setupRoutes(accounts *service.AccountService, tokens *auth.TokenService) {
	validator := handler.NewValidator()
	login := handler.NewLoginHandler(accounts, validator, s.logger)
	users := handler.NewUserHandler(accounts, validator, s.logger)
	requireAuth := auth.RequireAuth(tokens, s.db)

	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Recoverer(s.logger))
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(middleware.RequireJSON)

	// JSON fallbacks so no framework default body ever escapes.
	s.router.NotFound(jsonStatus(http.StatusNotFound, "Resource Not Found."))
	s.router.MethodNotAllowed(jsonStatus(http.StatusMethodNotAllowed, "Method not allowed."))

	s.router.Route("/v1", func(r chi.Router) {
		r.Post("/login", login.HandleLogin)
		r.Post("/login/oauth", login.HandleOAuthLogin)
		r.With(requireAuth).Post("/logout", login.HandleLogout)

		r.Route("/users", func(r chi.Router) {
			r.Get("/", users.HandleList)
			r.Post("/", users.HandleRegister)
			r.With(requireAuth).Get("/me", users.HandleMe)
			r.Get("/{id}", users.HandleGet)
			r.With(requireAuth).Patch("/{id}", users.HandleUpdate)
			r.With(requireAuth).Delete("/{id}", users.HandleDelete)
		})

		// Browsers probe these; answer quietly instead of 404ing.
		r.Get("/favicon.ico", noContent)
		r.Get("/robots.txt", noContent)
	})
}

// Handler exposes the router, mainly for httptest in the handler tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the HTTP server until SIGINT/SIGTERM, then drains in-flight
// requests for up to 30 seconds and closes the database.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.cfg.Port),
			slog.String("database", s.cfg.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}

// jsonStatus returns a handler writing a fixed envelope at the given status.
func jsonStatus(status int, message string) http.HandlerFunc {
	body := fmt.Sprintf(`{"response":{},"message":%q}`, message)
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}
}

func noContent(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}
