// Package api exposes enrichment jobs over HTTP.
package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"

	"github.com/sells-group/enrich-cli/internal/store"
)

const (
	defaultUploadRatePerMinute = 60
	uploadBurst                = 5
	defaultMaxUploadBytes      = 10 << 20
	corsMaxAgeSecs             = 300
)

// Runner drives a created job to a terminal status.
type Runner interface {
	Start(ctx context.Context, jobID string, companies []string) error
}

// Option configures a Server.
type Option func(*Server)

// WithBaseContext sets the context background jobs are bound to.
func WithBaseContext(ctx context.Context) Option {
	return func(s *Server) { s.baseCtx = ctx }
}

// WithUploadRate sets the sustained upload rate.
func WithUploadRate(perMinute int) Option {
	return func(s *Server) {
		if perMinute > 0 {
			s.uploads = newUploadLimiter(perMinute)
		}
	}
}

// WithMaxUploadBytes caps the accepted request body size.
func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUploadBytes = n
		}
	}
}

// Server serves the job API.
type Server struct {
	store          store.Store
	runner         Runner
	baseCtx        context.Context
	uploads        *rate.Limiter
	maxUploadBytes int64
	jobs           sync.WaitGroup
}

// New creates a Server backed by st that hands uploaded jobs to runner.
func New(st store.Store, runner Runner, opts ...Option) *Server {
	s := &Server{
		store:          st,
		runner:         runner,
		baseCtx:        context.Background(),
		uploads:        newUploadLimiter(defaultUploadRatePerMinute),
		maxUploadBytes: defaultMaxUploadBytes,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func newUploadLimiter(perMinute int) *rate.Limiter {
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), uploadBurst)
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         corsMaxAgeSecs,
	}))
	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.With(s.throttleUploads).Post("/upload", s.handleUpload)
	r.Get("/job/{jobID}", s.handleJobStatus)
	r.Get("/jobs", s.handleListJobs)
	r.Get("/download/{jobID}", s.handleDownload)
	return r
}

// Wait blocks until every job launched by this server has returned.
func (s *Server) Wait() {
	s.jobs.Wait()
}
