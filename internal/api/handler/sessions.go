package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kiranshivaraju/interviewbot/internal/api/response"
)

// StatusReader reads published session snapshots.
type StatusReader interface {
	GetSessionStatus(ctx context.Context, sessionID uuid.UUID) ([]byte, bool, error)
}

// NewGetSessionHandler returns an http.HandlerFunc for GET /api/v1/sessions/{sessionID}.
func NewGetSessionHandler(status StatusReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "sessionID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "sessionID must be a UUID", nil)
			return
		}

		raw, found, err := status.GetSessionStatus(r.Context(), id)
		if err != nil {
			slog.Error("read session status", "session_id", id, "error", err)
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Could not read session status", nil)
			return
		}
		if !found {
			response.NotFound(w, "SESSION_NOT_FOUND", "Session not found")
			return
		}
		response.JSON(w, json.RawMessage(raw))
	}
}
