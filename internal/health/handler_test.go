package health

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/julienschmidt/httprouter"

	"shelterbook/pkg/logger"
)

func newRouter(checks map[string]Check) *httprouter.Router {
	router := httprouter.New()
	NewHandler(checks, logger.New(logger.Config{Output: io.Discard})).RegisterRoutes(router)
	return router
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	newRouter(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestReady(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	tests := []struct {
		name       string
		checks     map[string]Check
		wantStatus int
		wantDeps   map[string]string
	}{
		{
			name:       "all dependencies up",
			checks:     map[string]Check{"database": ok, "cache": ok},
			wantStatus: http.StatusOK,
			wantDeps:   map[string]string{"database": "ok", "cache": "ok"},
		},
		{
			name:       "cache down",
			checks:     map[string]Check{"database": ok, "cache": down},
			wantStatus: http.StatusServiceUnavailable,
			wantDeps:   map[string]string{"database": "ok", "cache": "error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			newRouter(tt.checks).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, rec.Code)
			}
			var resp Response
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			for name, want := range tt.wantDeps {
				if resp.Dependencies[name] != want {
					t.Errorf("%s: expected %q, got %q", name, want, resp.Dependencies[name])
				}
			}
		})
	}
}

func TestChecks_SkipsMissingRedis(t *testing.T) {
	checks := Checks(nil, nil)
	if _, ok := checks["cache"]; ok {
		t.Error("expected no cache check without a redis client")
	}
	if _, ok := checks["database"]; !ok {
		t.Error("expected database check")
	}
}
