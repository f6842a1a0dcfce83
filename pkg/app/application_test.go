package app

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"rentio/pkg/client"
	"rentio/pkg/config"
	"rentio/pkg/logger"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingHandler struct {
	calls atomic.Int32
}

func (h *countingHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/things", func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
		n := h.calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]int32{"call": n})
	})
}

func testConfig(rateLimit int) *config.Config {
	return &config.Config{
		ServiceName:       "test",
		Port:              "8080",
		RateLimitRequests: rateLimit,
		RateLimitWindow:   time.Minute,
		RequestTimeout:    time.Second,
		IdempotencyTTL:    time.Minute,
		MaxRequestSize:    1 << 20,
		ShutdownTimeout:   time.Second,
		Log:               logger.Discard(),
		Client:            client.NewClient(),
	}
}

func post(t *testing.T, h http.Handler, key string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/things", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestApplication_HealthBypassesAppMiddleware(t *testing.T) {
	var wrapped atomic.Int32
	deny := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			wrapped.Add(1)
			w.WriteHeader(http.StatusUnauthorized)
		})
	}

	a := NewApplication(testConfig(100), WithMiddleware(deny))
	a.SetApp(&countingHandler{})
	defer a.Stop()

	for _, path := range []string{"/health", "/ready"} {
		rec := httptest.NewRecorder()
		a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
	assert.Zero(t, wrapped.Load())

	rec := post(t, a.Handler(), "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, int32(1), wrapped.Load())
}

func TestApplication_IdempotencyReplay(t *testing.T) {
	h := &countingHandler{}
	a := NewApplication(testConfig(100), WithIdempotency("Idempotency-Key"))
	a.SetApp(h)
	defer a.Stop()

	first := post(t, a.Handler(), "key-1")
	second := post(t, a.Handler(), "key-1")

	require.Equal(t, http.StatusCreated, first.Code)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Equal(t, int32(1), h.calls.Load())

	post(t, a.Handler(), "key-2")
	assert.Equal(t, int32(2), h.calls.Load())
}

func TestApplication_WithoutIdempotencyEveryRequestRuns(t *testing.T) {
	h := &countingHandler{}
	a := NewApplication(testConfig(100))
	a.SetApp(h)
	defer a.Stop()

	post(t, a.Handler(), "key-1")
	post(t, a.Handler(), "key-1")
	assert.Equal(t, int32(2), h.calls.Load())
}

func TestApplication_RateLimited(t *testing.T) {
	a := NewApplication(testConfig(1))
	a.SetApp(&countingHandler{})
	defer a.Stop()

	assert.Equal(t, http.StatusCreated, post(t, a.Handler(), "").Code)
	assert.Equal(t, http.StatusTooManyRequests, post(t, a.Handler(), "").Code)
}

func TestApplication_StopRunsClosers(t *testing.T) {
	var closed []string
	a := NewApplication(testConfig(10),
		WithCloser("publisher", func() error { closed = append(closed, "publisher"); return nil }),
		WithCloser("mailer", func() error { closed = append(closed, "mailer"); return assert.AnError }),
	)
	a.SetApp(&countingHandler{})
	a.Stop()

	assert.Equal(t, []string{"publisher", "mailer"}, closed)
}
