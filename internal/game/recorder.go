package game

import (
	"context"
	"sync"
	"time"

	"github.com/geoquest/api/internal/geo"
	"github.com/geoquest/api/internal/geoquest"
)

// DefaultSampleDistance is the minimum displacement in meters between two
// recorded move samples of the same player. Numerically equal to the
// geofence radius today, but an independent knob.
const DefaultSampleDistance = 5.0

// Recorder appends move and solve events to a session's log. Move events are
// sampled: a position is recorded only when it moved at least sampleDistance
// from the player's last recorded sample, bounding log growth.
//
// The last-sample cache lives in process memory only. After a restart the
// next position of every player is recorded unconditionally, which at worst
// adds one extra sample to the log.
type Recorder struct {
	store          Store
	sampleDistance float64

	mu   sync.Mutex
	last map[string]geoquest.LatLng
}

func NewRecorder(store Store, sampleDistance float64) *Recorder {
	if sampleDistance <= 0 {
		sampleDistance = DefaultSampleDistance
	}
	return &Recorder{
		store:          store,
		sampleDistance: sampleDistance,
		last:           make(map[string]geoquest.LatLng),
	}
}

// RecordMove appends a move event unless the displacement from the player's
// last recorded sample is below the sampling distance.
func (r *Recorder) RecordMove(ctx context.Context, sessionID, playerID string, pos geoquest.LatLng, at time.Time) error {
	key := sessionID + "/" + playerID

	r.mu.Lock()
	prev, ok := r.last[key]
	r.mu.Unlock()

	if ok && geo.Distance(prev.Lat, prev.Lng, pos.Lat, pos.Lng) < r.sampleDistance {
		return nil
	}

	err := r.store.AppendEvent(ctx, geoquest.Event{
		SessionID: sessionID,
		Type:      geoquest.EventMove,
		PlayerID:  playerID,
		Lat:       pos.Lat,
		Lng:       pos.Lng,
		Timestamp: at,
	})
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.last[key] = pos
	r.mu.Unlock()
	return nil
}

// RecordSolve appends a solve event. PlayerID is empty for checkpoints the
// engine healed as faulty.
func (r *Recorder) RecordSolve(ctx context.Context, sessionID, playerID string, checkpointIndex int, at time.Time) error {
	return r.store.AppendEvent(ctx, geoquest.Event{
		SessionID:       sessionID,
		Type:            geoquest.EventSolve,
		PlayerID:        playerID,
		CheckpointIndex: checkpointIndex,
		Timestamp:       at,
	})
}

// Forget drops the sampling cache for a session, typically on reset.
func (r *Recorder) Forget(sessionID string) {
	prefix := sessionID + "/"
	r.mu.Lock()
	for key := range r.last {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			delete(r.last, key)
		}
	}
	r.mu.Unlock()
}
