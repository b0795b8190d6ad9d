package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/geoquest/api/internal/game"
	"github.com/geoquest/api/internal/geoquest"
)

type createSessionRequest struct {
	CourseID string `json:"courseId"`
	TeamID   string `json:"teamId"`
	Mode     string `json:"mode"`
}

func handleCreateSession(engine *game.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createSessionRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if req.CourseID == "" || req.TeamID == "" {
			writeError(w, http.StatusBadRequest, "courseId and teamId required")
			return
		}

		mode := geoquest.Mode(req.Mode)
		switch mode {
		case "":
			mode = geoquest.ModeSingleFinisher
		case geoquest.ModeSingleFinisher, geoquest.ModeAllFinish:
		default:
			writeError(w, http.StatusBadRequest, "unknown mode")
			return
		}

		sess, err := engine.CreateSession(r.Context(), req.CourseID, req.TeamID, mode)
		if err != nil {
			writeGameError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, sess)
	}
}

func handleActivateSession(engine *game.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := engine.ActivateSession(r.Context(), chi.URLParam(r, "sessionID"))
		if err != nil {
			writeGameError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sess)
	}
}

func handleResetSession(engine *game.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := engine.ResetSession(r.Context(), chi.URLParam(r, "sessionID"))
		if err != nil {
			writeGameError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sess)
	}
}
