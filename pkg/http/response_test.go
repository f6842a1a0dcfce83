package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	apperrors "rentio/pkg/errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
	}{
		{"not found", apperrors.NotFound("Payment"), http.StatusNotFound, "Payment not found"},
		{"unauthorized", apperrors.Unauthorized("Invalid webhook signature"), http.StatusUnauthorized, "Invalid webhook signature"},
		{"forbidden", apperrors.Forbidden("not allowed"), http.StatusForbidden, "not allowed"},
		{"conflict", apperrors.Conflict("already confirmed"), http.StatusConflict, "already confirmed"},
		{"internal hides cause", apperrors.Internal("failed to update booking", errors.New("socket closed")), http.StatusInternalServerError, "Internal server error"},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, "Internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			require.NoError(t, WriteError(rec, tt.err))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.Equal(t, tt.wantError, decodeError(t, rec).Error)
		})
	}
}

func TestWriteSuccess(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WriteSuccess(rec, map[string]string{"status": "CONFIRMED"}))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":{"status":"CONFIRMED"}}`, rec.Body.String())
}
