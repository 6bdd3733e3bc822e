package common

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Envelope is the body shape of every API response.
type Envelope struct {
	Success    bool        `json:"success"`
	StatusCode int         `json:"statusCode"`
	Message    string      `json:"message"`
	Path       string      `json:"path"`
	Timestamp  string      `json:"timestamp"`
	Data       any         `json:"data"`
	Errors     FieldErrors `json:"errors,omitempty"`
}

// RespondWithData writes a success envelope around data.
func RespondWithData(w http.ResponseWriter, r *http.Request, code int, message string, data any) {
	RespondWithJSON(w, code, Envelope{
		Success:    true,
		StatusCode: code,
		Message:    message,
		Path:       r.URL.Path,
		Timestamp:  time.Now().UTC().Format(timestampLayout),
		Data:       data,
	})
}

// RespondWithError writes a failure envelope for err. Unexpected errors are
// logged with their context and reported with a generic message.
func RespondWithError(w http.ResponseWriter, r *http.Request, err error) {
	code := HTTPStatusFromError(err)
	if code >= http.StatusInternalServerError {
		LogError(r.Context(), slog.Default(), "request failed", err)
	}
	RespondWithJSON(w, code, Envelope{
		Success:    false,
		StatusCode: code,
		Message:    PublicMessage(err),
		Path:       r.URL.Path,
		Timestamp:  time.Now().UTC().Format(timestampLayout),
		Errors:     FieldsOf(err),
	})
}

func RespondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"success":false,"statusCode":500,"message":"Failed to marshal JSON response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}
