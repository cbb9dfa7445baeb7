package httpapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"dco-creatives/internal/logging"
	"dco-creatives/internal/pipeline"
)

type fakeRunner struct {
	started []pipeline.Job
	err     error
}

func (f *fakeRunner) Start(_ context.Context, job pipeline.Job) error {
	if f.err != nil {
		return f.err
	}
	f.started = append(f.started, job)
	return nil
}

func serve(h *Handler, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestHealth(t *testing.T) {
	h := NewHandler(context.Background(), &fakeRunner{}, logging.Nop())
	rec := serve(h, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestStartJobs(t *testing.T) {
	runner := &fakeRunner{}
	h := NewHandler(context.Background(), runner, logging.Nop())

	for _, path := range []string{"/process", "/reset", "/publish"} {
		rec := serve(h, http.MethodPost, path)
		assert.Equal(t, http.StatusAccepted, rec.Code, path)
	}
	assert.Equal(t, []pipeline.Job{pipeline.JobProcess, pipeline.JobReset, pipeline.JobPublish}, runner.started)

	assert.Equal(t, http.StatusNotFound, serve(h, http.MethodPost, "/deploy").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, serve(h, http.MethodGet, "/process").Code)
}

func TestBusyAndFailures(t *testing.T) {
	h := NewHandler(context.Background(), &fakeRunner{err: pipeline.ErrBusy}, logging.Nop())
	rec := serve(h, http.MethodPost, "/process")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.JSONEq(t, `{"job":"process","status":"busy"}`, rec.Body.String())

	h = NewHandler(context.Background(), &fakeRunner{err: errors.New("boom")}, logging.Nop())
	assert.Equal(t, http.StatusInternalServerError, serve(h, http.MethodPost, "/reset").Code)
}
