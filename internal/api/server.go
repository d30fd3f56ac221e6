// Package api serves recommendations over HTTP for `yehdekho serve`.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"github.com/iishyfishyy/yehdekho/internal/logging"
	"github.com/iishyfishyy/yehdekho/internal/poster"
	"github.com/iishyfishyy/yehdekho/internal/recommend"
)

// Recommender is the engine surface the API needs
type Recommender interface {
	Recommend(ctx context.Context, title string, k int) ([]recommend.Result, error)
	FindTitles(query string, limit int) []string
	Corpus() recommend.Corpus
	Stats() recommend.Stats
}

// Config configures the HTTP server
type Config struct {
	Addr string

	// DefaultK is used when a request has no k parameter
	DefaultK int

	// RequestsPerMinute per client IP; 0 disables rate limiting
	RequestsPerMinute int

	// PosterConcurrency bounds poster lookups per request
	PosterConcurrency int

	// RequestTimeout bounds a single recommendation request
	RequestTimeout time.Duration
}

// Server exposes a Recommender over HTTP
type Server struct {
	cfg      Config
	engine   Recommender
	posters  poster.Fetcher
	validate *validator.Validate
	router   chi.Router
}

// NewServer creates a server. A nil fetcher disables posters.
func NewServer(cfg Config, engine Recommender, posters poster.Fetcher) *Server {
	if cfg.DefaultK <= 0 {
		cfg.DefaultK = recommend.DefaultK
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	if posters == nil {
		posters = poster.NopFetcher{}
	}

	s := &Server{
		cfg:      cfg,
		engine:   engine,
		posters:  posters,
		validate: validator.New(),
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestLogger)
	if s.cfg.RequestsPerMinute > 0 {
		r.Use(httprate.LimitByIP(s.cfg.RequestsPerMinute, time.Minute))
	}

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/movies", s.handleMovies)
		r.Get("/recommendations", s.handleRecommendations)
	})

	return r
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
	}

	log := logging.Component("api")
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.cfg.Addr).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		log.Info().Msg("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		log := logging.Component("api")
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Str("request_id", chimiddleware.GetReqID(r.Context())).
			Dur("took", time.Since(start)).
			Msg("request")
	})
}
