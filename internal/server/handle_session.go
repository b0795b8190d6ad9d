package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func handleGetSession(snap *Snapshotter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := snap.SessionSnapshot(r.Context(), chi.URLParam(r, "sessionID"))
		if err != nil {
			writeGameError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func handleListSessions(store *SQLiteStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := store.ListSessions(r.Context())
		if err != nil {
			writeGameError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"sessions": list})
	}
}
