// Package server wires the blog together and runs the HTTP server.
//
// DEPENDENCY INJECTION FLOW:
//
//	config.Config ─┐
//	               ├─ sqlite.DB (every repository interface)
//	               ├─ services (feed, post, comment, follow, group, auth)
//	               ├─ handlers (+ authz.Gate, cache.PageCache, media.Store)
//	               └─ chi router
//
// New is the composition root: nothing below it constructs its own
// dependencies.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/yatube/internal/auth"
	"github.com/sakif/yatube/internal/authz"
	"github.com/sakif/yatube/internal/cache"
	"github.com/sakif/yatube/internal/clock"
	"github.com/sakif/yatube/internal/config"
	"github.com/sakif/yatube/internal/handler"
	"github.com/sakif/yatube/internal/media"
	"github.com/sakif/yatube/internal/metrics"
	"github.com/sakif/yatube/internal/middleware"
	sqliteRepo "github.com/sakif/yatube/internal/repository/sqlite"
	"github.com/sakif/yatube/internal/service"
)

// Server owns the router and, unless one was supplied with WithDB, the
// database connection.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger

	db       *sqliteRepo.DB
	ownsDB   bool
	clock    clock.Clock
	pages    *cache.PageCache
	tokens   *auth.TokenService
	provider handler.OAuthProvider
	hasher   *auth.SecretHasher
}

type Option func(*Server)

// WithDB uses an already open database. The caller keeps ownership.
func WithDB(db *sqliteRepo.DB) Option {
	return func(s *Server) { s.db = db }
}

// WithClock replaces the wall clock, for cache expiry and timestamps.
func WithClock(clk clock.Clock) Option {
	return func(s *Server) { s.clock = clk }
}

// WithOAuthProvider replaces the GitHub provider built from the config.
func WithOAuthProvider(p handler.OAuthProvider) Option {
	return func(s *Server) { s.provider = p }
}

// WithSecretHasher replaces the bcrypt hasher used for the admin token.
func WithSecretHasher(h *auth.SecretHasher) Option {
	return func(s *Server) { s.hasher = h }
}

// New builds the server. cfg must have passed Validate.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Server, error) {
	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		clock:  clock.Real{},
		hasher: auth.NewSecretHasher(),
	}
	for _, opt := range opts {
		opt(s)
	}

	tokens, err := auth.NewTokenServiceWithTTL(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("creating token service: %w", err)
	}
	s.tokens = tokens

	if s.provider == nil && cfg.GitHubEnabled() {
		s.provider = auth.NewGitHubProvider(cfg.GitHubClientID, cfg.GitHubClientSecret, cfg.GitHubCallbackURL)
	}

	if s.db == nil {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
		db, err := sqliteRepo.New(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}
		s.db = db
		s.ownsDB = true
	}

	s.pages = cache.New(cfg.CacheTTL, s.clock)
	s.setupRoutes()
	return s, nil
}

// setupRoutes configures middleware and routes.
//
// ROUTE STRUCTURE:
//
//	GET       /                              global timeline (page cache)
//	GET       /group/{slug}/                 group timeline
//	GET       /follow/                       following timeline      login
//	GET,POST  /new/                          new post                login
//	GET       /{username}/                   profile
//	GET       /{username}/{post_id}/         post detail
//	GET,POST  /{username}/{post_id}/edit     edit post               author
//	POST      /{username}/{post_id}/comment/ add comment             login
//	GET       /{username}/follow/            follow                  login
//	GET       /{username}/unfollow/          unfollow                login
//	GET       /auth/login/  /auth/github/callback
//	POST      /auth/logout/
//	GET       /auth/me                                               token
//	POST      /admin/cache/flush                                     admin token
//	GET       /media/*  /metrics
//
// Static segments win over {username}, so "group", "follow", "new",
// "auth", "admin" and "media" cannot be used as profile URLs.
//
// MIDDLEWARE ORDER:
// RequestID, RealIP, Recoverer, Logger, metrics, then OptionalAuth so every
// handler sees the acting identity (or none).
func (s *Server) setupRoutes() {
	r := s.router

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(handler.Recoverer(s.logger))
	r.Use(middleware.Logger(s.logger))
	r.Use(metrics.InstrumentHandler)
	r.Use(auth.OptionalAuth(s.tokens))

	r.NotFound(handler.NotFound)
	r.MethodNotAllowed(handler.MethodNotAllowed)

	feeds := service.NewFeedService(s.db, s.db, s.db, s.db, s.db, s.config.PageSize, s.logger)
	images := media.NewStore(s.config.MediaRoot)
	posts := service.NewPostService(s.db, s.db, s.db, images, s.clock, s.logger)
	comments := service.NewCommentService(s.db, s.db, s.db, s.clock, s.logger)
	follows := service.NewFollowService(s.db, s.db, s.clock, s.logger)
	groups := service.NewGroupService(s.db, s.logger)
	authService := service.NewAuthService(s.db, s.tokens, s.logger)

	gate := authz.NewGate(s.config.LoginURL)

	feedHandler := handler.NewFeedHandler(feeds, gate, s.logger)
	postHandler := handler.NewPostHandler(posts, groups, gate, s.logger)
	commentHandler := handler.NewCommentHandler(comments, gate, s.logger)
	followHandler := handler.NewFollowHandler(follows, gate, s.logger)
	authHandler := handler.NewAuthHandler(s.provider, authService, s.tokens.TTL(), s.logger)

	// === Infrastructure ===
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	r.Handle("/media/*", http.StripPrefix("/media/", images.Handler()))

	r.Route("/auth", func(r chi.Router) {
		r.Get("/login/", authHandler.HandleLogin)
		r.Get("/github/callback", authHandler.HandleGitHubCallback)
		r.Post("/logout/", authHandler.HandleLogout)
		r.With(auth.RequireAuth(s.tokens)).Get("/me", authHandler.HandleMe)
	})

	if s.config.AdminTokenHash != "" {
		adminHandler := handler.NewAdminHandler(s.pages, s.hasher, s.config.AdminTokenHash, s.logger)
		r.Post("/admin/cache/flush", adminHandler.HandleFlushCache)
	}

	// === Timelines ===
	r.With(s.pages.Middleware).Get("/", feedHandler.HandleIndex)
	r.Get("/group/{slug}/", feedHandler.HandleGroup)
	r.Get("/follow/", feedHandler.HandleFollowFeed)

	// === Posts ===
	r.Get("/new/", postHandler.HandleNewForm)
	r.Post("/new/", postHandler.HandleCreate)

	// === Profiles ===
	r.Route("/{username}", func(r chi.Router) {
		r.Get("/", feedHandler.HandleProfile)
		r.Get("/follow/", followHandler.HandleFollow)
		r.Get("/unfollow/", followHandler.HandleUnfollow)

		r.Route("/{post_id}", func(r chi.Router) {
			r.Get("/", feedHandler.HandlePostDetail)
			r.Get("/edit", postHandler.HandleEditForm)
			r.Post("/edit", postHandler.HandleUpdate)
			r.Post("/comment/", commentHandler.HandleCreate)
		})
	})
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// PageCache returns the global timeline cache.
func (s *Server) PageCache() *cache.PageCache {
	return s.pages
}

// Close releases the database if the server opened it.
func (s *Server) Close() error {
	if s.ownsDB {
		return s.db.Close()
	}
	return nil
}

// Start serves until SIGINT or SIGTERM, then drains in-flight requests for
// up to 30 seconds and closes the database.
func (s *Server) Start() error {
	defer s.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("database", s.config.DBPath),
			slog.Int("pageSize", s.config.PageSize),
			slog.Duration("cacheTTL", s.config.CacheTTL),
			slog.Bool("githubLogin", s.provider != nil),
			slog.Bool("adminFlush", s.config.AdminTokenHash != ""),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
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
