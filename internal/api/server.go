// Package api exposes generation, jobs, runs and artifacts over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"git.home.luguber.info/inful/synthdata/internal/eventstore"
	"git.home.luguber.info/inful/synthdata/internal/foundation/errors"
	"git.home.luguber.info/inful/synthdata/internal/jobs"
	"git.home.luguber.info/inful/synthdata/internal/recipe"
	"git.home.luguber.info/inful/synthdata/internal/storage"
)

// MaxBodyBytes bounds request bodies.
const MaxBodyBytes = 1 << 20

// RecipeSource lists the configured recipes.
type RecipeSource interface {
	Recipes() []recipe.Recipe
	Recipe(name string) (recipe.Recipe, bool)
}

// JobQueue is the part of jobs.Queue the API needs.
type JobQueue interface {
	Enqueue(job *jobs.Job) error
	JobSnapshot(id string) (*jobs.Job, bool)
	ActiveJobs() []*jobs.Job
	Length() int
}

// Options wires the server's collaborators. Nil fields disable the routes
// that need them.
type Options struct {
	Recipes        RecipeSource
	Queue          JobQueue
	Events         eventstore.Store
	Artifacts      storage.ObjectStore
	Metrics        http.Handler
	MetricsPath    string // defaults to /metrics
	RequestTimeout time.Duration

	// MaxPoints bounds inline recipes; nil or a non-positive result means
	// recipe.DefaultMaxPoints.
	MaxPoints func() int
}

// Server represents the API server.
type Server struct {
	Addr   string
	opts   Options
	router *chi.Mux
	server *http.Server
	errs   *errors.HTTPErrorAdapter
}

func (s *Server) maxPoints() int {
	if s.opts.MaxPoints != nil {
		if n := s.opts.MaxPoints(); n > 0 {
			return n
		}
	}
	return recipe.DefaultMaxPoints
}

// NewServer creates a new API server.
func NewServer(addr string, opts Options) *Server {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	if opts.MetricsPath == "" {
		opts.MetricsPath = "/metrics"
	}
	s := &Server{
		Addr:   addr,
		opts:   opts,
		router: chi.NewRouter(),
		errs:   errors.NewHTTPErrorAdapter(nil),
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      opts.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(RequestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(s.opts.RequestTimeout))

	s.router.Get("/health", s.handleHealth)
	s.router.Get("/", s.handleCatalog)
	if s.opts.Metrics != nil {
		s.router.Method(http.MethodGet, s.opts.MetricsPath, s.opts.Metrics)
	}

	s.router.Route("/v1", func(r chi.Router) {
		r.Get("/recipes", s.handleListRecipes)
		r.Post("/generate", s.handleGenerate)
		r.Post("/jobs", s.handleCreateJob)
		r.Get("/jobs", s.handleListJobs)
		r.Get("/jobs/{id}", s.handleGetJob)
		r.Get("/runs/{id}", s.handleGetRun)
		r.Get("/artifacts/{hash}", s.handleGetArtifact)
	})
}

// Start starts the API server. It returns http.ErrServerClosed after Shutdown.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Serve accepts connections on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	return s.server.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Response represents a standard API response.
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Error writes an error response.
func (s *Server) Error(w http.ResponseWriter, _ *http.Request, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(Response{Success: false, Error: message})
}

// Fail writes err with the status its category maps to.
func (s *Server) Fail(w http.ResponseWriter, r *http.Request, err error) {
	s.errs.WriteErrorResponse(w, r, err)
}

// Success writes a success response.
func (s *Server) Success(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(Response{Success: true, Data: data})
}
