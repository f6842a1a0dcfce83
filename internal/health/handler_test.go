package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"rentio/pkg/logger"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(h *Handler, path string) *httptest.ResponseRecorder {
	router := httprouter.New()
	h.RegisterRoutes(router)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealth(t *testing.T) {
	h := NewHandler(logger.Discard(), nil)
	rec := serve(h, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestReady(t *testing.T) {
	ok := PingerFunc(func(context.Context) error { return nil })
	down := PingerFunc(func(context.Context) error { return errors.New("connection refused") })

	tests := []struct {
		name       string
		checks     map[string]Pinger
		wantStatus int
		wantDeps   map[string]string
	}{
		{"all healthy", map[string]Pinger{"mongo": ok, "redis": ok}, http.StatusOK, map[string]string{"mongo": "ok", "redis": "ok"}},
		{"redis down", map[string]Pinger{"mongo": ok, "redis": down}, http.StatusServiceUnavailable, map[string]string{"mongo": "ok", "redis": "error"}},
		{"nil check skipped", map[string]Pinger{"mongo": ok, "redis": nil}, http.StatusOK, map[string]string{"mongo": "ok"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(NewHandler(logger.Discard(), tt.checks), "/ready")
			assert.Equal(t, tt.wantStatus, rec.Code)

			var resp Response
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantDeps, resp.Dependencies)
		})
	}
}
