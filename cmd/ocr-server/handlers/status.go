package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rockerrishabh/sanskrit-ocr/internal/observability"
	"github.com/rockerrishabh/sanskrit-ocr/internal/session"
)

// StatusHandler serves progress snapshots to polling clients.
type StatusHandler struct {
	logger *observability.Logger
	store  session.Store
}

// NewStatusHandler creates a new status handler.
func NewStatusHandler(logger *observability.Logger, store session.Store) *StatusHandler {
	return &StatusHandler{logger: logger, store: store}
}

// Status handles GET /status/{session_id}. Unknown session ids return a JSON
// null body with 200, matching what clients already expect.
func (h *StatusHandler) Status(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")

	state, ok, err := h.store.Get(r.Context(), sessionID)
	if err != nil {
		h.logger.Error().Err(err).Str("session_id", sessionID).Msg("Failed to read progress")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to read session"})
		return
	}

	if !ok {
		writeJSON(w, http.StatusOK, nil)
		return
	}

	writeJSON(w, http.StatusOK, state)
}
