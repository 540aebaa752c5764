package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"loraset/core/auth"
	"loraset/core/dataset"
	"loraset/core/labeling"
	"loraset/core/preprocess"
	"loraset/logger"
	"loraset/model"
	"loraset/repository"
)

// Labeler runs a labeling batch.
type Labeler interface {
	LabelAll(ctx context.Context, samples []*model.Sample, opts labeling.Options) (labeling.BatchReport, error)
}

// Preprocessor runs a preprocessing batch.
type Preprocessor interface {
	Run(ctx context.Context, samples []*model.Sample, meta model.DatasetMetadata, opts preprocess.Options) (preprocess.Result, error)
}

// Dependencies wires the review server. Catalog is optional.
type Dependencies struct {
	Builder           *dataset.Builder
	Labeler           Labeler
	Preprocessor      Preprocessor
	Catalog           repository.CatalogRepository
	Tokens            *auth.TokenIssuer
	PasswordHash      string
	LabelOptions      labeling.Options
	PreprocessOptions preprocess.Options
}

// Server is the review API. Every builder access holds mu; at most one batch job
// runs at a time and holds mu until it finishes.
type Server struct {
	deps Dependencies
	hub  *ProgressHub

	mu   sync.Mutex
	jobs jobRunner
}

// New creates the review server.
func New(deps Dependencies) *Server {
	s := &Server{deps: deps, hub: NewProgressHub()}
	s.jobs.hub = s.hub
	return s
}

// Hub exposes the progress stream.
func (s *Server) Hub() *ProgressHub {
	return s.hub
}

// Router builds the HTTP routes.
func (s *Server) Router() http.Handler {
	router := mux.NewRouter()
	router.Use(corsMiddleware)

	router.HandleFunc("/health", s.HealthHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/auth/login", s.LoginHandler).Methods(http.MethodPost)
	router.HandleFunc("/ws/progress", s.AuthMiddleware(s.hub.ServeWS)).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.Use(func(next http.Handler) http.Handler { return s.AuthMiddleware(next.ServeHTTP) })
	api.HandleFunc("/dataset", s.GetDatasetHandler).Methods(http.MethodGet)
	api.HandleFunc("/dataset/scan", s.ScanHandler).Methods(http.MethodPost)
	api.HandleFunc("/dataset/save", s.SaveHandler).Methods(http.MethodPost)
	api.HandleFunc("/dataset/load", s.LoadHandler).Methods(http.MethodPost)
	api.HandleFunc("/dataset/tag", s.TagHandler).Methods(http.MethodPost)
	api.HandleFunc("/dataset/instrumental", s.InstrumentalHandler).Methods(http.MethodPost)
	api.HandleFunc("/samples/{idx:[0-9]+}", s.GetSampleHandler).Methods(http.MethodGet)
	api.HandleFunc("/samples/{idx:[0-9]+}", s.UpdateSampleHandler).Methods(http.MethodPatch)
	api.HandleFunc("/samples/{idx:[0-9]+}/diff", s.SampleDiffHandler).Methods(http.MethodGet)
	api.HandleFunc("/jobs/label", s.LabelHandler).Methods(http.MethodPost)
	api.HandleFunc("/jobs/preprocess", s.PreprocessHandler).Methods(http.MethodPost)
	api.HandleFunc("/jobs/current", s.JobHandler).Methods(http.MethodGet)
	api.HandleFunc("/jobs/current", s.CancelJobHandler).Methods(http.MethodDelete)
	api.HandleFunc("/catalog", s.CatalogHandler).Methods(http.MethodGet)
	return router
}

// corsMiddleware adds CORS headers.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400") // 24 hours

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Start serves the review API on addr until ctx is cancelled, then shuts down
// gracefully and cancels any running job.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Review server starting", logger.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down review server...")
	s.jobs.cancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.jobs.wait()
	logger.Info("Review server stopped")
	return nil
}
