// Package replay reconstructs world state from a finished session's event
// log. Reconstruction is a pure function of (log, offset): scrubbing to the
// same offset always yields the same frame.
package replay

import (
	"time"

	"github.com/geoquest/api/internal/geoquest"
)

// Frame is the world state at one virtual offset into a session.
type Frame struct {
	Offset float64 `json:"offset"`
	// Positions holds the last recorded position per player at or before
	// the offset. No interpolation: display snaps to the latest sample.
	Positions map[string]geoquest.LatLng `json:"positions"`
	// Solved lists checkpoint indices solved so far, in solve order.
	Solved []int `json:"solved"`
	// ActiveCheckpoint is the lowest unsolved index, or -1 once all
	// obstacles are solved.
	ActiveCheckpoint int `json:"activeCheckpoint"`
}

// StateAt computes the frame at offset t past startedAt. Events must be in
// non-decreasing timestamp order, as the event store returns them. Time
// complexity is linear in the event count.
func StateAt(events []geoquest.Event, startedAt time.Time, obstacleCount int, t time.Duration) Frame {
	if t < 0 {
		t = 0
	}
	cutoff := startedAt.Add(t)

	frame := Frame{
		Offset:    t.Seconds(),
		Positions: map[string]geoquest.LatLng{},
	}
	solved := map[int]bool{}

	for _, ev := range events {
		if ev.Timestamp.After(cutoff) {
			break
		}
		switch ev.Type {
		case geoquest.EventMove:
			frame.Positions[ev.PlayerID] = geoquest.LatLng{Lat: ev.Lat, Lng: ev.Lng}
		case geoquest.EventSolve:
			if !solved[ev.CheckpointIndex] {
				solved[ev.CheckpointIndex] = true
				frame.Solved = append(frame.Solved, ev.CheckpointIndex)
			}
		}
	}

	frame.ActiveCheckpoint = -1
	for i := 0; i < obstacleCount; i++ {
		if !solved[i] {
			frame.ActiveCheckpoint = i
			break
		}
	}
	return frame
}

// Duration returns the replayable interval of a finished session, or zero
// when the session never ran to completion.
func Duration(s *geoquest.Session) time.Duration {
	if s.StartedAt == nil || s.FinishedAt == nil {
		return 0
	}
	d := s.FinishedAt.Sub(*s.StartedAt)
	if d < 0 {
		return 0
	}
	return d
}
