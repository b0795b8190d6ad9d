package server

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/geoquest/api/internal/game"
	"github.com/geoquest/api/internal/geoquest"
)

type positionRequest struct {
	PlayerID string  `json:"playerId"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
}

func handlePosition(engine *game.Engine, presence Presence) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := chi.URLParam(r, "sessionID")

		var req positionRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if req.PlayerID == "" {
			writeError(w, http.StatusBadRequest, "playerId required")
			return
		}
		if req.Lat < -90 || req.Lat > 90 || req.Lng < -180 || req.Lng > 180 {
			writeError(w, http.StatusBadRequest, "coordinates out of range")
			return
		}

		res, err := engine.SubmitPosition(r.Context(), sessionID, req.PlayerID,
			geoquest.LatLng{Lat: req.Lat, Lng: req.Lng})
		if err != nil {
			writeGameError(w, err)
			return
		}

		// Every accepted position doubles as a liveness heartbeat.
		// Advisory only, not worth failing the submission over.
		_ = presence.Heartbeat(r.Context(), sessionID, req.PlayerID)

		writeJSON(w, http.StatusOK, res)
	}
}

// writeGameError maps engine errors onto HTTP statuses. Conflicts
// (stale answers, wrong-state submissions) are 409 so clients can
// resync and retry.
func writeGameError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, game.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, game.ErrSessionNotActive):
		writeError(w, http.StatusConflict, "session not active")
	case errors.Is(err, game.ErrStaleSubmission):
		writeError(w, http.StatusConflict, "stale submission, refresh state")
	case errors.Is(err, game.ErrVersionMismatch):
		writeError(w, http.StatusConflict, "concurrent update, retry")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
