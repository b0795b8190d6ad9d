// Package geoquest defines the core domain types and pure progression helpers.
// It has zero external dependencies — everything here is plain Go.
package geoquest

import "time"

// LatLng is a WGS84 coordinate pair.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Obstacle is one geofenced checkpoint on a course. ChallengeID references
// the multiple-choice challenge a player must answer there.
type Obstacle struct {
	CheckpointIndex int     `json:"checkpointIndex"`
	Lat             float64 `json:"lat"`
	Lng             float64 `json:"lng"`
	ChallengeID     string  `json:"challengeId"`
}

// Course is a static run definition. The obstacle order defines the solve
// sequence; a course is immutable once a session references it.
type Course struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Start     LatLng     `json:"start"`
	Finish    LatLng     `json:"finish"`
	Obstacles []Obstacle `json:"obstacles"`
}

// Challenge is the multiple-choice question bound to an obstacle.
type Challenge struct {
	ID            string   `json:"id"`
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectOption int      `json:"correctOption"`
}

type Team struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	MemberIDs []string `json:"memberIds"`
}

type SessionStatus string

const (
	StatusCreated  SessionStatus = "created"
	StatusPending  SessionStatus = "pending"
	StatusStarted  SessionStatus = "started"
	StatusFinished SessionStatus = "finished"
)

// Mode is the win-condition policy: how many team members must reach the
// finish geofence once every obstacle is solved.
type Mode string

const (
	ModeSingleFinisher Mode = "singleFinisher"
	ModeAllFinish      Mode = "allFinish"
)

// Solve records who solved which checkpoint and when.
type Solve struct {
	CheckpointIndex int       `json:"checkpointIndex"`
	SolverID        string    `json:"solverId"`
	Timestamp       time.Time `json:"timestamp"`
}

// Session is one run of a team through a course. Version carries the
// optimistic-concurrency token: every store update is conditioned on it.
type Session struct {
	ID              string            `json:"id"`
	CourseID        string            `json:"courseId"`
	TeamID          string            `json:"teamId"`
	Status          SessionStatus     `json:"status"`
	Mode            Mode              `json:"mode"`
	StartedAt       *time.Time        `json:"startedAt"`
	FinishedAt      *time.Time        `json:"finishedAt"`
	SolvedVector    []bool            `json:"solvedVector"`
	SolvedBy        []Solve           `json:"solvedBy"`
	PlayerPositions map[string]LatLng `json:"playerPositions"`
	PlayersAtFinish []string          `json:"playersAtFinish"`
	FaultyObstacles []int             `json:"faultyObstacles"`
	CreatedAt       time.Time         `json:"createdAt"`

	Version int64 `json:"-"`
}

type EventType string

const (
	EventMove  EventType = "move"
	EventSolve EventType = "solve"
)

// Event is one immutable entry of a session's append-only log.
// Lat/Lng are set for move events, CheckpointIndex for solve events.
type Event struct {
	SessionID       string    `json:"sessionId"`
	Type            EventType `json:"type"`
	PlayerID        string    `json:"playerId"`
	Lat             float64   `json:"lat,omitempty"`
	Lng             float64   `json:"lng,omitempty"`
	CheckpointIndex int       `json:"checkpointIndex,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}

// NextUnsolved returns the lowest index of the solved vector that is still
// false, or -1 once every checkpoint is solved.
func NextUnsolved(solved []bool) int {
	for i, s := range solved {
		if !s {
			return i
		}
	}
	return -1
}

// AllSolved reports whether every checkpoint of the session is solved.
func (s *Session) AllSolved() bool {
	return NextUnsolved(s.SolvedVector) == -1
}

// AtFinish reports whether the player already registered at the finish zone.
func (s *Session) AtFinish(playerID string) bool {
	for _, id := range s.PlayersAtFinish {
		if id == playerID {
			return true
		}
	}
	return false
}

// Faulty reports whether the checkpoint index was self-healed as faulty.
func (s *Session) Faulty(index int) bool {
	for _, i := range s.FaultyObstacles {
		if i == index {
			return true
		}
	}
	return false
}

// WinConditionMet evaluates the session's mode against the roster of players
// at the finish. It does not check the solved vector; callers combine it with
// AllSolved.
func (s *Session) WinConditionMet(teamSize int) bool {
	switch s.Mode {
	case ModeSingleFinisher:
		return len(s.PlayersAtFinish) >= 1
	case ModeAllFinish:
		return teamSize > 0 && len(s.PlayersAtFinish) == teamSize
	}
	return false
}

// Reset returns the session to the created state: progress, roster and
// timestamps cleared, the solved vector re-zeroed to the course size.
func (s *Session) Reset(obstacleCount int) {
	s.Status = StatusCreated
	s.StartedAt = nil
	s.FinishedAt = nil
	s.SolvedVector = make([]bool, obstacleCount)
	s.SolvedBy = nil
	s.PlayerPositions = map[string]LatLng{}
	s.PlayersAtFinish = nil
	s.FaultyObstacles = nil
}
