package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Veraticus/taskflow/internal/common"
	"github.com/Veraticus/taskflow/internal/intake"
	"github.com/Veraticus/taskflow/internal/storage"
	"github.com/go-chi/chi/v5/middleware"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrProtectedRecord), errors.Is(err, common.ErrDuplicateEntry):
		return http.StatusConflict
	case errors.Is(err, common.ErrInvalidOperation):
		return http.StatusUnprocessableEntity
	case storage.IsValidationError(err), errors.Is(err, intake.ErrInvalidDraft):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		slog.Error("Request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"error", err)
		if status == http.StatusInternalServerError {
			writeMessage(w, status, "server error")
			return
		}
	}
	writeMessage(w, status, err.Error())
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeMessage(w, http.StatusBadRequest, "bad json")
		return false
	}
	return true
}
