// Package api provides the HTTP server and handlers for Lantern.
//
// It exposes JSON endpoints for playbooks, intent matching, crisis detection,
// resource search, companion chat, action scripts, weather context, auth,
// wellness records and saved preferences. Every response uses the models.APIResponse envelope.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/BTreeMap/Lantern/internal/actions"
	"github.com/BTreeMap/Lantern/internal/auth"
	"github.com/BTreeMap/Lantern/internal/companion"
	"github.com/BTreeMap/Lantern/internal/intent"
	"github.com/BTreeMap/Lantern/internal/playbook"
	"github.com/BTreeMap/Lantern/internal/resources"
	"github.com/BTreeMap/Lantern/internal/store"
	"github.com/BTreeMap/Lantern/internal/weather"
)

// Server defaults.
const (
	DefaultAddr            = ":8080"
	DefaultShutdownTimeout = 10 * time.Second
	DefaultRequestTimeout  = 60 * time.Second
	// Victoria, BC. Used by the seasonal endpoint when no location is given.
	DefaultLatitude  = 48.4284
	DefaultLongitude = -123.3656
)

// WeatherProvider returns current conditions for a location.
type WeatherProvider interface {
	Current(ctx context.Context, lat, lon float64) (weather.Conditions, error)
}

// Dependencies are the collaborators the handlers call. Engine, Matcher, Directory,
// Responder and Store are required; Tokens and Weather may be nil, in which case
// their endpoints answer 503.
type Dependencies struct {
	Engine    *playbook.Engine
	Matcher   *intent.Matcher
	Directory *resources.Directory
	Responder *companion.Responder
	Scripts   *actions.Library
	Tokens    *auth.TokenService
	Weather   WeatherProvider
	Store     store.Store
}

// Opts holds server configuration.
type Opts struct {
	Addr            string
	CORSOrigins     []string
	ShutdownTimeout time.Duration
	RequestTimeout  time.Duration
	Now             func() time.Time
}

// Option defines a function that configures Opts.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) {
		o.Addr = addr
	}
}

// WithCORSOrigins sets the allowed browser origins. "*" allows any origin.
func WithCORSOrigins(origins []string) Option {
	return func(o *Opts) {
		o.CORSOrigins = origins
	}
}

// WithShutdownTimeout bounds graceful shutdown.
func WithShutdownTimeout(d time.Duration) Option {
	return func(o *Opts) {
		o.ShutdownTimeout = d
	}
}

// WithRequestTimeout bounds each request's context.
func WithRequestTimeout(d time.Duration) Option {
	return func(o *Opts) {
		o.RequestTimeout = d
	}
}

// WithClock overrides the time source used for seasonal context.
func WithClock(now func() time.Time) Option {
	return func(o *Opts) {
		o.Now = now
	}
}

// Server serves the Lantern HTTP API.
type Server struct {
	engine    *playbook.Engine
	matcher   *intent.Matcher
	directory *resources.Directory
	responder *companion.Responder
	scripts   *actions.Library
	tokens    *auth.TokenService
	weather   WeatherProvider
	st        store.Store

	addr            string
	corsOrigins     []string
	shutdownTimeout time.Duration
	requestTimeout  time.Duration
	now             func() time.Time

	handler http.Handler
}

// NewServer wires the handlers. It returns an error when a required dependency is missing.
func NewServer(deps Dependencies, opts ...Option) (*Server, error) {
	cfg := Opts{
		Addr:            DefaultAddr,
		CORSOrigins:     []string{"*"},
		ShutdownTimeout: DefaultShutdownTimeout,
		RequestTimeout:  DefaultRequestTimeout,
		Now:             time.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	switch {
	case deps.Engine == nil:
		return nil, errors.New("api: playbook engine is required")
	case deps.Matcher == nil:
		return nil, errors.New("api: intent matcher is required")
	case deps.Directory == nil:
		return nil, errors.New("api: resource directory is required")
	case deps.Responder == nil:
		return nil, errors.New("api: companion responder is required")
	case deps.Store == nil:
		return nil, errors.New("api: store is required")
	}
	if deps.Scripts == nil {
		deps.Scripts = actions.DefaultLibrary()
	}

	s := &Server{
		engine:          deps.Engine,
		matcher:         deps.Matcher,
		directory:       deps.Directory,
		responder:       deps.Responder,
		scripts:         deps.Scripts,
		tokens:          deps.Tokens,
		weather:         deps.Weather,
		st:              deps.Store,
		addr:            cfg.Addr,
		corsOrigins:     cfg.CORSOrigins,
		shutdownTimeout: cfg.ShutdownTimeout,
		requestTimeout:  cfg.RequestTimeout,
		now:             cfg.Now,
	}
	s.handler = s.routes()
	slog.Debug("Server.NewServer: server configured", "addr", s.addr, "cors_origins", s.corsOrigins,
		"auth_enabled", s.tokens != nil, "weather_enabled", s.weather != nil)
	return s, nil
}

// Handler returns the root handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", s.healthHandler)

	mux.HandleFunc("POST /api/playbooks/run", s.runPlaybookHandler)
	mux.HandleFunc("DELETE /api/playbooks/sessions/{id}", s.resetPlaybookSessionHandler)
	mux.HandleFunc("POST /api/intents/match", s.matchIntentHandler)
	mux.HandleFunc("POST /api/safety/detect", s.detectCrisisHandler)
	mux.HandleFunc("GET /api/resources/search", s.searchResourcesHandler)
	mux.HandleFunc("GET /api/resources/{id}", s.getResourceHandler)

	mux.HandleFunc("POST /api/chat", s.chatHandler)
	mux.HandleFunc("DELETE /api/chat/sessions/{id}", s.clearChatSessionHandler)
	mux.HandleFunc("GET /api/chat/exercises/{kind}", s.exerciseHandler)

	mux.HandleFunc("POST /api/actions/script", s.actionScriptHandler)
	mux.HandleFunc("GET /api/actions/scenarios", s.actionScenariosHandler)

	mux.HandleFunc("POST /api/auth/token", s.issueTokenHandler)
	mux.HandleFunc("GET /api/auth/me", s.meHandler)

	mux.HandleFunc("GET /api/weather", s.weatherHandler)
	mux.HandleFunc("POST /api/context/seasonal", s.seasonalHandler)

	mux.HandleFunc("POST /api/mood", s.requireAuth(s.addMoodHandler))
	mux.HandleFunc("GET /api/mood", s.requireAuth(s.listMoodHandler))
	mux.HandleFunc("GET /api/mood/stats", s.requireAuth(s.moodStatsHandler))
	mux.HandleFunc("POST /api/feedback", s.addFeedbackHandler)
	mux.HandleFunc("GET /api/feedback", s.requireAuth(s.listFeedbackHandler))
	mux.HandleFunc("GET /api/feedback/stats", s.requireAuth(s.feedbackStatsHandler))
	mux.HandleFunc("POST /api/events", s.addEventHandler)

	mux.HandleFunc("GET /api/preferences", s.requireAuth(s.getPreferencesHandler))
	mux.HandleFunc("POST /api/preferences", s.requireAuth(s.updatePreferencesHandler))
	mux.HandleFunc("GET /api/profile", s.requireAuth(s.getProfileHandler))
	mux.HandleFunc("POST /api/profile", s.requireAuth(s.updateProfileHandler))
	mux.HandleFunc("DELETE /api/profile", s.requireAuth(s.deleteProfileHandler))

	var h http.Handler = mux
	if s.tokens != nil {
		h = s.tokens.OptionalMiddleware(h)
	}
	h = s.timeoutMiddleware(h)
	h = s.corsMiddleware(h)
	h = recoverMiddleware(h)
	return logRequests(h)
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server.Run: listening", "addr", s.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			slog.Error("Server.Run: listener failed", "addr", s.addr, "error", err)
			return fmt.Errorf("http server on %s: %w", s.addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("Server.Run: shutting down", "timeout", s.shutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server.Run: graceful shutdown failed", "error", err)
		return fmt.Errorf("http server shutdown: %w", err)
	}
	slog.Info("Server.Run: stopped")
	return nil
}
