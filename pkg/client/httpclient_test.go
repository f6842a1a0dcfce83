package client

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponse_ErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"json error", `{"error":"Invalid webhook signature"}`, "Invalid webhook signature"},
		{"plain text", "bad gateway\n", "bad gateway"},
		{"json without error", `{"data":{}}`, `{"data":{}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &Response{StatusCode: http.StatusBadRequest, Body: []byte(tt.body)}
			assert.False(t, resp.OK())
			assert.Equal(t, tt.want, resp.ErrorMessage())
		})
	}
}

func TestHttpClient_POSTRaw(t *testing.T) {
	var gotBody, gotAgent, gotID string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		gotAgent = r.Header.Get("User-Agent")
		gotID = r.Header.Get("webhook-id")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := NewHttpClient(server.URL+"/", time.Second)
	resp, err := c.POSTRaw(context.Background(), "/hook", []byte(`{"a":1}`), map[string]string{"webhook-id": "evt_1"})
	require.NoError(t, err)

	assert.True(t, resp.OK())
	assert.Equal(t, `{"a":1}`, gotBody)
	assert.Equal(t, userAgent, gotAgent)
	assert.Equal(t, "evt_1", gotID)
}

func TestHttpClient_WaitForHealthy(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer healthy.Close()
	require.NoError(t, NewHttpClient(healthy.URL, time.Second).WaitForHealthy(context.Background(), time.Second))

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer down.Close()
	err := NewHttpClient(down.URL, time.Second).WaitForHealthy(context.Background(), 600*time.Millisecond)
	assert.ErrorContains(t, err, "did not become healthy")
}
