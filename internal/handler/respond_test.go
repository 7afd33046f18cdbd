package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/peachytask/peachytask-go/internal/middleware"
	"github.com/peachytask/peachytask-go/internal/model"
	"github.com/peachytask/peachytask-go/internal/service"
)

func TestDecodeJSON(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		ok     bool
		status int
	}{
		{"valid", `{"email":"a@x.com","password":"p"}`, true, http.StatusOK},
		{"unknown field", `{"email":"a@x.com","password":"p","role":"admin"}`, false, http.StatusBadRequest},
		{"malformed", `{"email":`, false, http.StatusBadRequest},
		{"trailing data", `{"email":"a@x.com"}{"email":"b@x.com"}`, false, http.StatusBadRequest},
		{"too large", `{"email":"` + strings.Repeat("a", maxBodyBytes) + `"}`, false, http.StatusRequestEntityTooLarge},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(tc.body))

			var dst model.LoginRequest
			ok := decodeJSON(rec, req, &dst)
			if ok != tc.ok {
				t.Fatalf("decodeJSON() = %v, want %v", ok, tc.ok)
			}
			if !ok && rec.Code != tc.status {
				t.Errorf("expected status %d, got %d", tc.status, rec.Code)
			}
		})
	}
}

func TestWriteServiceError(t *testing.T) {
	cases := []struct {
		err    error
		status int
		body   string
	}{
		{&service.ValidationError{Field: "title", Message: "is required"}, http.StatusBadRequest, "title: is required"},
		{service.ErrInvalidCredentials, http.StatusUnauthorized, service.ErrInvalidCredentials.Error()},
		{service.ErrEmailTaken, http.StatusConflict, service.ErrEmailTaken.Error()},
		{service.ErrLabelExists, http.StatusConflict, service.ErrLabelExists.Error()},
		{service.ErrNotFound, http.StatusNotFound, service.ErrNotFound.Error()},
		{errors.New("dial tcp: connection refused"), http.StatusInternalServerError, "internal server error"},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		writeServiceError(rec, httptest.NewRequest(http.MethodGet, "/tasks", nil), tc.err)

		if rec.Code != tc.status {
			t.Errorf("%v: expected status %d, got %d", tc.err, tc.status, rec.Code)
		}
		var body map[string]string
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["error"] != tc.body {
			t.Errorf("%v: expected error %q, got %q", tc.err, tc.body, body["error"])
		}
	}
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("server selection timeout") }

func TestHealth_StoreDown(t *testing.T) {
	h := NewHealthHandler(failingPinger{}, "mongodb")

	rec := httptest.NewRecorder()
	h.HandleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
}

func TestWriteServiceError_LogsOnRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	h := middleware.RequestID(middleware.Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeServiceError(w, r, errors.New("detach label: store timeout"))
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/labels/x", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if n := strings.Count(buf.String(), "store timeout"); n != 1 {
		t.Errorf("expected the fault logged once, got %d in %q", n, buf.String())
	}
	if !strings.Contains(buf.String(), rec.Header().Get(middleware.RequestIDHeader)) {
		t.Error("expected the request id on the fault log")
	}
}
