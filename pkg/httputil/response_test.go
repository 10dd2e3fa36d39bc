package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()
	data := map[string]string{"message": "success"}

	err := WriteJSON(w, http.StatusOK, data)

	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "success")
}

func TestErrorWriters(t *testing.T) {
	tests := []struct {
		name        string
		write       func(w http.ResponseWriter)
		wantStatus  int
		wantMessage string
	}{
		{"error", func(w http.ResponseWriter) { WriteError(w, http.StatusConflict, errors.New("member already exists")) }, http.StatusConflict, "member already exists"},
		{"bad request", func(w http.ResponseWriter) { WriteBadRequest(w, "invalid organization id") }, http.StatusBadRequest, "invalid organization id"},
		{"unauthorized", func(w http.ResponseWriter) { WriteUnauthorized(w, "missing authorization header") }, http.StatusUnauthorized, "missing authorization header"},
		{"forbidden", func(w http.ResponseWriter) { WriteForbidden(w, "forbidden") }, http.StatusForbidden, "forbidden"},
		{"not found", func(w http.ResponseWriter) { WriteNotFoundError(w, "no coach found") }, http.StatusNotFound, "no coach found"},
		{"internal", WriteInternalError, http.StatusInternalServerError, "internal server error"},
		{"unavailable", func(w http.ResponseWriter) { WriteServiceUnavailable(w, "not ready") }, http.StatusServiceUnavailable, "not ready"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.write(w)

			assert.Equal(t, tt.wantStatus, w.Code)
			var body ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.wantMessage, body.Error)
		})
	}
}

func TestWriteCreated(t *testing.T) {
	w := httptest.NewRecorder()
	require.NoError(t, WriteCreated(w, map[string]string{"id": "m1"}))
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"id":"m1"}`, w.Body.String())
}
