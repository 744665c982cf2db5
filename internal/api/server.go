package api

import (
	"context"
	"net/http"
	"time"

	"gopairs/domain/pricetable"
	"gopairs/domain/screen"
	"gopairs/ports"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// Screener is the screening core as the HTTP layer sees it
type Screener interface {
	ScreenCointegration(ctx context.Context, table *pricetable.Table, opts screen.CointegrationOptions) (*screen.CointegrationReport, error)
	ScreenDistance(ctx context.Context, table *pricetable.Table, opts screen.DistanceOptions) (*screen.DistanceReport, error)
}

// Config wires the server's collaborators
type Config struct {
	Screener Screener
	// Repository persists every successful run when set
	Repository ports.ScreeningRepository
	// Metrics serves GET /metrics when set
	Metrics        http.Handler
	Cointegration  screen.CointegrationOptions
	Distance       screen.DistanceOptions
	RequestTimeout time.Duration
	MaxBodyBytes   int64
	Logger         logrus.FieldLogger
}

// Server exposes the screeners over HTTP
type Server struct {
	config Config
	log    logrus.FieldLogger
	router *chi.Mux
}

// NewServer creates the HTTP server and its routes
func NewServer(config Config) *Server {
	if config.Logger == nil {
		config.Logger = logrus.StandardLogger()
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = 2 * time.Minute
	}
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = 32 << 20
	}
	s := &Server{
		config: config,
		log:    config.Logger.WithField("component", "http"),
		router: chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// setupMiddleware configures HTTP middleware
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	if s.config.Metrics != nil {
		s.router.Method(http.MethodGet, "/metrics", s.config.Metrics)
	}

	s.router.Route("/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(s.config.RequestTimeout))
			r.Post("/screen/cointegration", s.handleCointegration)
			r.Post("/screen/distance", s.handleDistance)
		})

		if s.config.Repository != nil {
			r.Get("/runs", s.handleListRuns)
			r.Get("/runs/{runID}/cointegration", s.handleGetCointegration)
			r.Get("/runs/{runID}/distance", s.handleGetDistance)
		}
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.WithFields(logrus.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      ww.Status(),
			"bytes":       ww.BytesWritten(),
			"request_id":  middleware.GetReqID(r.Context()),
			"duration_ms": time.Since(start).Milliseconds(),
		}).Info("request")
	})
}
