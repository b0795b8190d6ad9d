package game

import (
	"github.com/geoquest/api/internal/geo"
	"github.com/geoquest/api/internal/geoquest"
)

// DefaultGeofenceRadius is the proximity threshold in meters. A distance
// strictly below it counts as entering the zone; the boundary itself does
// not.
const DefaultGeofenceRadius = 5.0

type DecisionKind int

const (
	DecisionNone DecisionKind = iota
	// DecisionEnterStart: the session is pending and the player entered
	// the start zone.
	DecisionEnterStart
	// DecisionEnterObstacle: the player entered the zone of the current
	// lowest-unsolved obstacle. CheckpointIndex identifies it.
	DecisionEnterObstacle
	// DecisionSkipFaulty: the lowest-unsolved index has no obstacle on the
	// course. The engine marks it solved and faulty so the session keeps
	// moving.
	DecisionSkipFaulty
	// DecisionEnterFinish: all obstacles are solved and the player entered
	// the finish zone for the first time.
	DecisionEnterFinish
)

// Decision is the outcome of one geofence evaluation. It carries no state;
// applying it is the progress engine's job.
type Decision struct {
	Kind            DecisionKind
	CheckpointIndex int
}

// Evaluate determines the player's current target from the session status
// and checks whether the position entered its zone: the start point while
// pending, the lowest-unsolved obstacle while started, the finish point once
// every obstacle is solved. Pure — it never mutates the session.
func Evaluate(course geoquest.Course, s *geoquest.Session, playerID string, pos geoquest.LatLng, radius float64) Decision {
	switch s.Status {
	case geoquest.StatusPending:
		if geo.Within(pos.Lat, pos.Lng, course.Start.Lat, course.Start.Lng, radius) {
			return Decision{Kind: DecisionEnterStart}
		}
		return Decision{Kind: DecisionNone}

	case geoquest.StatusStarted:
		next := geoquest.NextUnsolved(s.SolvedVector)
		if next != -1 {
			if next >= len(course.Obstacles) {
				// Authoring gap: the solved vector is longer than the
				// course. Skip the index instead of stalling the session.
				return Decision{Kind: DecisionSkipFaulty, CheckpointIndex: next}
			}
			ob := course.Obstacles[next]
			if geo.Within(pos.Lat, pos.Lng, ob.Lat, ob.Lng, radius) {
				return Decision{Kind: DecisionEnterObstacle, CheckpointIndex: next}
			}
			return Decision{Kind: DecisionNone}
		}

		if geo.Within(pos.Lat, pos.Lng, course.Finish.Lat, course.Finish.Lng, radius) && !s.AtFinish(playerID) {
			return Decision{Kind: DecisionEnterFinish}
		}
	}

	return Decision{Kind: DecisionNone}
}
