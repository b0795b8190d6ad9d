package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/geoquest/api/internal/game"
	"github.com/geoquest/api/internal/geoquest"
	"github.com/geoquest/api/internal/replay"
)

type replayFrameResponse struct {
	SessionID string       `json:"sessionId"`
	Duration  float64      `json:"duration"`
	Frame     replay.Frame `json:"frame"`
}

// handleReplay reconstructs the session state at offset t (seconds from
// start) from the event log. Only finished sessions can be replayed; t is
// clamped to the run's duration.
func handleReplay(store game.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := chi.URLParam(r, "sessionID")

		sess, course, events, err := replayInputs(r, store, sessionID)
		if err != nil {
			writeGameError(w, err)
			return
		}
		if sess.Status != geoquest.StatusFinished {
			writeError(w, http.StatusConflict, "session not finished")
			return
		}

		var t time.Duration
		if raw := r.URL.Query().Get("t"); raw != "" {
			secs, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid t parameter")
				return
			}
			t = time.Duration(secs * float64(time.Second))
		}

		duration := replay.Duration(&sess)
		if t > duration {
			t = duration
		}

		frame := replay.StateAt(events, *sess.StartedAt, len(course.Obstacles), t)
		writeJSON(w, http.StatusOK, replayFrameResponse{
			SessionID: sessionID,
			Duration:  duration.Seconds(),
			Frame:     frame,
		})
	}
}

// handleReplayStream plays a finished session back over SSE. The server owns
// the playback clock; ?speed= scales replay time against wall time.
func handleReplayStream(store game.Store) http.HandlerFunc {
	const tick = 500 * time.Millisecond

	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := chi.URLParam(r, "sessionID")

		flusher, ok := w.(http.Flusher)
		if !ok {
			writeError(w, http.StatusInternalServerError, "streaming not supported")
			return
		}

		sess, course, events, err := replayInputs(r, store, sessionID)
		if err != nil {
			writeGameError(w, err)
			return
		}
		if sess.Status != geoquest.StatusFinished {
			writeError(w, http.StatusConflict, "session not finished")
			return
		}

		clock := replay.NewClock(replay.Duration(&sess))
		if raw := r.URL.Query().Get("speed"); raw != "" {
			speed, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid speed parameter")
				return
			}
			clock.SetSpeed(speed)
		}
		clock.Play()

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		flusher.Flush()

		ticker := time.NewTicker(tick)
		defer ticker.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case <-ticker.C:
				offset := clock.Advance(tick)
				frame := replay.StateAt(events, *sess.StartedAt, len(course.Obstacles), offset)
				data, err := json.Marshal(frame)
				if err != nil {
					return
				}
				fmt.Fprintf(w, "event: frame\ndata: %s\n\n", data)
				flusher.Flush()
				if clock.AtEnd() {
					fmt.Fprintf(w, "event: end\ndata: {}\n\n")
					flusher.Flush()
					return
				}
			}
		}
	}
}

func replayInputs(r *http.Request, store game.Store, sessionID string) (geoquest.Session, geoquest.Course, []geoquest.Event, error) {
	sess, err := store.Session(r.Context(), sessionID)
	if err != nil {
		return geoquest.Session{}, geoquest.Course{}, nil, err
	}
	course, err := store.Course(r.Context(), sess.CourseID)
	if err != nil {
		return geoquest.Session{}, geoquest.Course{}, nil, err
	}
	events, err := store.Events(r.Context(), sessionID)
	if err != nil {
		return geoquest.Session{}, geoquest.Course{}, nil, err
	}
	return sess, course, events, nil
}
