package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/dharsanguruparan/docdesk/internal/api/middleware"
	"github.com/dharsanguruparan/docdesk/internal/config"
	"github.com/dharsanguruparan/docdesk/internal/model"
	"github.com/dharsanguruparan/docdesk/internal/review"
)

// Documents is the document store as the handlers use it.
type Documents interface {
	Create(ctx context.Context, doc *model.Document) error
	Get(ctx context.Context, id int64) (*model.Document, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]model.Document, error)
	List(ctx context.Context, filter model.ListFilter) ([]model.ReviewItem, error)
}

// Files is the blob store holding uploaded bytes.
type Files interface {
	Put(ctx context.Context, objectKey string, reader io.Reader, size int64, contentType string) error
	Remove(ctx context.Context, objectKey string) error
	PresignGet(ctx context.Context, objectKey string, ttl time.Duration) (string, error)
}

// Notifications schedules the upload email.
type Notifications interface {
	EnqueueAdminNotify(ctx context.Context, documentID int64) error
}

// Reviewer runs the admin bulk actions.
type Reviewer interface {
	Approve(ctx context.Context, ids []int64) (review.Result, error)
	Reject(ctx context.Context, ids []int64) (review.Result, error)
}

// Deps groups the collaborators of the HTTP server.
type Deps struct {
	Documents Documents
	Files     Files
	Queue     Notifications
	Review    Reviewer
	Auth      *middleware.JWTAuth
	// Checkers are consulted by /health/ready.
	Checkers []ReadinessChecker
}

// Server exposes the document and admin endpoints.
type Server struct {
	cfg     *config.Config
	deps    Deps
	logger  *zap.Logger
	handler http.Handler
	once    sync.Once
}

// New constructs a Server.
func New(cfg *config.Config, deps Deps, logger *zap.Logger) *Server {
	return &Server{
		cfg:    cfg,
		deps:   deps,
		logger: logger.With(zap.String("component", "api")),
	}
}

// Handler returns the routed handler, building it on first use.
func (s *Server) Handler() http.Handler {
	s.once.Do(func() {
		s.handler = s.routes()
	})
	return s.handler
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(s.logger))
	r.Use(chimw.Recoverer)
	r.Use(middleware.Metrics)
	r.Use(corsMiddleware)

	r.Get("/health/live", s.handleLive)
	r.Get("/health/ready", s.handleReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(s.deps.Auth.Middleware())

		r.Route("/documents", func(r chi.Router) {
			r.Post("/", s.handleUpload)
			r.Get("/", s.handleListOwn)
			r.Get("/{id}", s.handleGetDocument)
			r.Get("/{id}/download", s.handleDownload)
		})

		r.Route("/admin/documents", func(r chi.Router) {
			r.Use(middleware.RequireStaff)
			r.Get("/", s.handleAdminList)
			r.Post("/approve", s.handleApprove)
			r.Post("/reject", s.handleReject)
		})
	})
	return r
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.HTTP.Address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("shutdown", zap.Error(err))
		}
	}()
	s.logger.Info("api listening", zap.String("address", s.cfg.HTTP.Address))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen: %w", err)
	}
	return nil
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("encode response", zap.Error(err))
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
