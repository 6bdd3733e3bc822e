package common

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondWithData(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/users/profile", nil)
	w := httptest.NewRecorder()

	RespondWithData(w, r, http.StatusOK, "Profile retrieved", map[string]string{"email": "a@b.co"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var env Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.True(t, env.Success)
	assert.Equal(t, http.StatusOK, env.StatusCode)
	assert.Equal(t, "Profile retrieved", env.Message)
	assert.Equal(t, "/api/users/profile", env.Path)
	_, err := time.Parse(time.RFC3339, env.Timestamp)
	assert.NoError(t, err)
}

func TestRespondWithError(t *testing.T) {
	t.Run("classified error", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/api/auth/register", nil)
		w := httptest.NewRecorder()

		RespondWithError(w, r, InvalidInput("Validation failed", FieldErrors{"email": "Email must be valid"}))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, false, body["success"])
		assert.Nil(t, body["data"])
		assert.Equal(t, "Validation failed", body["message"])
		assert.Equal(t, map[string]any{"email": "Email must be valid"}, body["errors"])
	})

	t.Run("unexpected error", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/api/posts", nil)
		w := httptest.NewRecorder()

		RespondWithError(w, r, errors.New("dial tcp: connection reset"))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		var env Envelope
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
		assert.Equal(t, "Internal server error", env.Message)
		assert.NotContains(t, w.Body.String(), "connection reset")
	})
}
