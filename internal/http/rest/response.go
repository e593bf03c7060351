package rest

import (
	"encoding/json"
	"net/http"

	"github.com/wavesos/wavesos_web/internal/logctx"
)

// ErrorResponse is the body of every API error. Error is only filled outside production.
type ErrorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// responder shapes JSON responses and hides error details in production.
type responder struct {
	production bool
}

func (re responder) writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		logctx.LoggerFromContext(r.Context()).ErrorContext(r.Context(), "failed to encode response", "err", err)
	}
}

// writeError writes {message} with status. Server faults are logged with err.
func (re responder) writeError(w http.ResponseWriter, r *http.Request, status int, message string, err error) {
	if err != nil && status >= http.StatusInternalServerError {
		logctx.LoggerFromContext(r.Context()).ErrorContext(r.Context(), message, "status", status, "err", err)
	}

	resp := ErrorResponse{Message: message}
	if err != nil && !re.production {
		resp.Error = err.Error()
	}

	re.writeJSON(w, r, status, resp)
}
