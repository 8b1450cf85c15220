// Package api exposes the search, city lookup, feedback and news endpoints
// over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sells-group/gfscout/internal/model"
	"github.com/sells-group/gfscout/internal/news"
)

// DefaultRequestTimeout bounds search and city lookups.
const DefaultRequestTimeout = 90 * time.Second

// Searcher runs a gluten-free search.
type Searcher interface {
	Search(ctx context.Context, q model.SearchQuery) ([]model.Establishment, error)
}

// Resolver turns a city name into coordinates.
type Resolver interface {
	Resolve(ctx context.Context, city string) (model.Coordinates, error)
}

// FeedbackSubmitter persists user feedback.
type FeedbackSubmitter interface {
	Submit(ctx context.Context, content string) (model.Feedback, error)
}

// NewsSource returns headlines. It does not fail.
type NewsSource interface {
	Latest(ctx context.Context) []news.Article
}

// Deps are the services behind the routes.
type Deps struct {
	Search   Searcher
	Resolver Resolver
	Feedback FeedbackSubmitter
	News     NewsSource
}

// Server holds the HTTP handlers.
type Server struct {
	deps        Deps
	timeout     time.Duration
	corsOrigins []string
}

// Option configures a Server.
type Option func(*Server)

// WithRequestTimeout sets the deadline applied to search and city lookups.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithCORSOrigins sets the allowed browser origins. Defaults to "*".
func WithCORSOrigins(origins []string) Option {
	return func(s *Server) {
		if len(origins) > 0 {
			s.corsOrigins = origins
		}
	}
}

// New creates a Server.
func New(deps Deps, opts ...Option) *Server {
	s := &Server{
		deps:        deps,
		timeout:     DefaultRequestTimeout,
		corsOrigins: []string{"*"},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/get-restaurants", s.handleSearch)
	r.Get("/find-city-coordinates", s.handleCityCoordinates)
	r.Post("/feedback", s.handleFeedback)
	r.Get("/news", s.handleNews)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "route not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "method not allowed"})
	})
	return r
}
