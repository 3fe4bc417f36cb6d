package response

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Envelope is the body shape shared by every endpoint: success flag, an
// optional human-readable message, and the payload under data.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func write(w http.ResponseWriter, r *http.Request, status int, body Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.ErrorContext(r.Context(), "encode response", "error", err)
	}
}

func OK(w http.ResponseWriter, r *http.Request, status int, message string, data any) {
	write(w, r, status, Envelope{Success: true, Message: message, Data: data})
}

func Data(w http.ResponseWriter, r *http.Request, status int, data any) {
	write(w, r, status, Envelope{Success: true, Data: data})
}

func Message(w http.ResponseWriter, r *http.Request, status int, message string) {
	write(w, r, status, Envelope{Success: true, Message: message})
}

func Error(w http.ResponseWriter, r *http.Request, status int, message string) {
	write(w, r, status, Envelope{Success: false, Message: message})
}
