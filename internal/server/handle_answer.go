package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/geoquest/api/internal/game"
)

type answerRequest struct {
	PlayerID        string `json:"playerId"`
	CheckpointIndex int    `json:"checkpointIndex"`
	AnswerIndex     int    `json:"answerIndex"`
}

func handleAnswer(engine *game.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := chi.URLParam(r, "sessionID")

		var req answerRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if req.PlayerID == "" {
			writeError(w, http.StatusBadRequest, "playerId required")
			return
		}
		if req.CheckpointIndex < 0 || req.AnswerIndex < 0 {
			writeError(w, http.StatusBadRequest, "indexes must be non-negative")
			return
		}

		res, err := engine.SubmitAnswer(r.Context(), sessionID, req.PlayerID,
			req.CheckpointIndex, req.AnswerIndex)
		if err != nil {
			writeGameError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}
