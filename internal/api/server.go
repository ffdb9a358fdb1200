// Package api exposes the optional status HTTP interface for the harvester.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/msmolkin/nwsharvest/internal/archive"
	"github.com/msmolkin/nwsharvest/internal/metrics"
)

// Server wires status handlers to the metrics registry and harvest archive.
type Server struct {
	router  chi.Router
	archive *archive.Store
	logger  *zap.Logger
}

// NewServer constructs a Server. The archive may be nil, in which case the
// harvest listing endpoint reports that no archive is configured.
func NewServer(store *archive.Store, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{archive: store, logger: logger}

	r := chi.NewRouter()
	r.Use(requestMetrics)
	r.Get("/healthz", s.healthz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	r.Route("/v1", func(r chi.Router) {
		r.Get("/harvests", s.listHarvests)
	})
	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Serve runs an http.Server on addr until ctx finishes.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown status server: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("status server: %w", err)
	}
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) listHarvests(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "no archive configured"})
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	runs, err := s.archive.ListRuns(r.Context(), limit)
	if err != nil {
		s.logger.Error("list harvest runs failed", zap.Error(err))
		s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "archive query failed"})
		return
	}

	type runView struct {
		ID         string    `json:"id"`
		Series     string    `json:"series"`
		MaxVersion int       `json:"max_version"`
		Succeeded  int       `json:"succeeded"`
		Failed     int       `json:"failed"`
		Bytes      int64     `json:"bytes"`
		StartedAt  time.Time `json:"started_at"`
		FinishedAt time.Time `json:"finished_at"`
	}
	views := make([]runView, 0, len(runs))
	for _, run := range runs {
		views = append(views, runView{
			ID:         run.ID.String(),
			Series:     run.Series,
			MaxVersion: run.MaxVersion,
			Succeeded:  run.Succeeded,
			Failed:     run.Failed,
			Bytes:      run.Bytes,
			StartedAt:  run.StartedAt,
			FinishedAt: run.FinishedAt,
		})
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"harvests": views})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("write response failed", zap.Error(err))
	}
}
