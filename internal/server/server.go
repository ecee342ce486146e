// Package server provides the HTTP API of the resume optimizer.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/resume-optimizer/internal/auth"
	"github.com/jonathan/resume-optimizer/internal/config"
	"github.com/jonathan/resume-optimizer/internal/db"
	"github.com/jonathan/resume-optimizer/internal/fetch"
	"github.com/jonathan/resume-optimizer/internal/generation"
	"github.com/jonathan/resume-optimizer/internal/llm"
	"github.com/jonathan/resume-optimizer/internal/logging"
	"github.com/jonathan/resume-optimizer/internal/profile"
	"github.com/jonathan/resume-optimizer/internal/rendering"
	"github.com/jonathan/resume-optimizer/internal/server/middleware"
	"github.com/jonathan/resume-optimizer/internal/server/ratelimit"
	"github.com/jonathan/resume-optimizer/internal/storage"
	"github.com/jonathan/resume-optimizer/internal/voice"
)

// sessionPurgeInterval is how often expired sessions are removed while serving.
const sessionPurgeInterval = time.Hour

// Deps are the collaborators the server is built from. The caller owns them;
// Close does not close DB or LLM.
type Deps struct {
	DB     db.Port
	LLM    llm.Client
	Blobs  storage.Store // nil discards uploads
	Logger logging.Logger
}

// Server represents the HTTP server
type Server struct {
	cfg    *config.Config
	logger logging.Logger

	db        db.Port
	auth      *auth.Service
	profiles  *profile.Store
	analyzer  *voice.Analyzer
	generator *generation.Generator
	renderer  *rendering.Renderer
	fetcher   *fetch.Client // nil when job URLs are disabled
	blobs     storage.Store
	limiter   *ratelimit.Limiter
	validate  *validator.Validate

	handler http.Handler
}

// New wires the services and routes.
func New(cfg *config.Config, deps Deps) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("server: config is required")
	}
	if deps.DB == nil {
		return nil, errors.New("server: database is required")
	}
	if deps.LLM == nil {
		return nil, errors.New("server: llm client is required")
	}
	if deps.Logger == nil {
		deps.Logger = logging.Discard()
	}
	if deps.Blobs == nil {
		deps.Blobs = storage.Nop{}
	}

	authService, err := auth.NewService(deps.DB, &cfg.Password, cfg.Session)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth service: %w", err)
	}
	renderer, err := rendering.NewRenderer(cfg.Rendering.TemplatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load document template: %w", err)
	}

	s := &Server{
		cfg:       cfg,
		logger:    deps.Logger,
		db:        deps.DB,
		auth:      authService,
		profiles:  profile.NewStore(deps.DB),
		analyzer:  voice.NewAnalyzer(deps.LLM),
		generator: generation.NewGenerator(deps.LLM),
		renderer:  renderer,
		blobs:     deps.Blobs,
		limiter:   ratelimit.NewLimiter(ratelimit.FromSettings(cfg.RateLimit)),
		validate:  validator.New(),
	}
	s.validate.RegisterTagNameFunc(jsonFieldName)
	if cfg.Fetch.Enabled {
		s.fetcher = fetch.NewClient(cfg.Fetch)
	}

	s.handler = s.routes()
	return s, nil
}

// jsonFieldName makes validation messages use the JSON field names clients send.
func jsonFieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	if name == "" {
		return f.Name
	}
	return name
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	authed := middleware.Auth(s.auth, s.cfg.Session.CookieName, s.fail)
	protected := func(h http.HandlerFunc) http.Handler { return authed(h) }

	mux.HandleFunc("GET /health", s.handleHealth)

	// Accounts
	mux.HandleFunc("POST /auth/register", s.handleRegister)
	mux.HandleFunc("POST /auth/login", s.handleLogin)
	mux.Handle("POST /auth/logout", protected(s.handleLogout))
	mux.Handle("GET /auth/me", protected(s.handleMe))
	mux.Handle("DELETE /auth/account", protected(s.handleDeleteAccount))

	// Profile
	mux.Handle("POST /profile/cover-letters", protected(s.handleUploadCoverLetters))
	mux.Handle("GET /profile/cover-letters", protected(s.handleListCoverLetters))
	mux.Handle("POST /profile/style-analysis", protected(s.handleAnalyzeStyle))
	mux.Handle("GET /profile/style-analysis", protected(s.handleGetStyle))
	mux.Handle("POST /profile/master-resume", protected(s.handleUploadMasterResume))
	mux.Handle("GET /profile/master-resume", protected(s.handleGetMasterResume))
	mux.Handle("POST /extract-text", protected(s.handleExtractText))

	// Generation
	mux.Handle("POST /generate/resume", protected(s.handleGenerateResume))
	mux.Handle("POST /generate/cover-letter", protected(s.handleGenerateCoverLetter))
	mux.Handle("GET /artifacts", protected(s.handleListArtifacts))
	mux.Handle("GET /artifacts/{id}", protected(s.handleGetArtifact))
	mux.Handle("GET /artifacts/{id}/document", protected(s.handleArtifactDocument))

	var h http.Handler = mux
	h = s.withRateLimit(h)
	h = s.withCORS(h)
	h = s.withLogging(h)
	h = s.withRecover(h)
	h = middleware.RequestID(h)
	return h
}

// Handler returns the full middleware chain and router.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves on the configured port until ctx is cancelled, then shuts down
// gracefully within the configured timeout.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Server.Port),
		Handler:      s.handler,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout, // generation calls are slow
		IdleTimeout:  s.cfg.Server.IdleTimeout,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	purgeCtx, stopPurge := context.WithCancel(ctx)
	defer stopPurge()
	go s.purgeSessions(purgeCtx, sessionPurgeInterval)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info(context.Background(), "shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.logger.Info(context.Background(), "server stopped")
	return nil
}

// Close stops background work owned by the server.
func (s *Server) Close() {
	s.limiter.Stop()
}

func (s *Server) purgeSessions(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.auth.PurgeExpiredSessions(ctx)
			if err != nil {
				s.logger.Warn(ctx, "session purge failed", "error", err)
				continue
			}
			if n > 0 {
				s.logger.Debug(ctx, "purged expired sessions", "count", n)
			}
		}
	}
}

// handleHealth reports whether the database answers.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.db.Ping(ctx); err != nil {
		s.logger.Error(r.Context(), "health check failed", "error", err)
		s.jsonResponse(w, r, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	s.jsonResponse(w, r, http.StatusOK, map[string]string{"status": "ok"})
}
