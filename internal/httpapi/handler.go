package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"dco-creatives/internal/logging"
	"dco-creatives/internal/pipeline"
)

// Runner starts pipeline jobs in the background.
type Runner interface {
	Start(ctx context.Context, job pipeline.Job) error
}

// Handler exposes the operator endpoints. Jobs run on base, not on the
// request context, so they outlive the request that started them.
type Handler struct {
	base   context.Context
	runner Runner
	log    *logging.Logger
	router chi.Router
}

func NewHandler(base context.Context, runner Runner, log *logging.Logger) *Handler {
	h := &Handler{base: base, runner: runner, log: log}
	r := chi.NewRouter()
	r.Get("/healthz", h.handleHealth)
	r.Post("/{job}", h.handleStart)
	h.router = r
	return h
}

func (h *Handler) Router() http.Handler {
	return h.router
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	job, err := pipeline.ParseJob(chi.URLParam(r, "job"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	err = h.runner.Start(h.base, job)
	switch {
	case errors.Is(err, pipeline.ErrBusy):
		writeJSON(w, http.StatusConflict, map[string]string{"job": string(job), "status": "busy"})
	case err != nil:
		h.log.Errorf("http: start %s: %v", job, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	default:
		h.log.Infof("http: %s started", job)
		writeJSON(w, http.StatusAccepted, map[string]string{"job": string(job), "status": "started"})
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
