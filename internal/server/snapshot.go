package server

import (
	"context"
	"sort"
	"time"

	"github.com/geoquest/api/internal/game"
	"github.com/geoquest/api/internal/geoquest"
)

// SessionView is the full-state payload delivered to observers on subscribe
// and returned by the session read endpoint. It carries everything a client
// needs to render without prior messages; challenge answers are never
// included.
type SessionView struct {
	ID               string                     `json:"id"`
	Status           geoquest.SessionStatus     `json:"status"`
	Mode             geoquest.Mode              `json:"mode"`
	Course           CourseView                 `json:"course"`
	StartedAt        *time.Time                 `json:"startedAt"`
	FinishedAt       *time.Time                 `json:"finishedAt"`
	SolvedVector     []bool                     `json:"solvedVector"`
	ActiveCheckpoint int                        `json:"activeCheckpoint"`
	SolvedBy         []geoquest.Solve           `json:"solvedBy"`
	Positions        map[string]geoquest.LatLng `json:"positions"`
	PlayersAtFinish  []string                   `json:"playersAtFinish"`
	FaultyObstacles  []int                      `json:"faultyObstacles"`
	Roster           []RosterEntry              `json:"roster"`
	Leaderboard      []LeaderboardEntry         `json:"leaderboard"`
}

// CourseView is the course geometry without challenge content.
type CourseView struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Start     geoquest.LatLng   `json:"start"`
	Finish    geoquest.LatLng   `json:"finish"`
	Obstacles []geoquest.LatLng `json:"obstacles"`
}

type RosterEntry struct {
	PlayerID string `json:"playerId"`
	Active   bool   `json:"active"`
	AtFinish bool   `json:"atFinish"`
}

type LeaderboardEntry struct {
	PlayerID string `json:"playerId"`
	Solved   int    `json:"solved"`
}

// Snapshotter assembles observer payloads from the store and the presence
// tracker. It implements SnapshotSource for the broker.
type Snapshotter struct {
	store    game.Store
	list     func(ctx context.Context) ([]SessionSummary, error)
	presence Presence
}

func NewSnapshotter(store *SQLiteStore, presence Presence) *Snapshotter {
	return &Snapshotter{store: store, list: store.ListSessions, presence: presence}
}

func (s *Snapshotter) SessionSnapshot(ctx context.Context, sessionID string) (any, error) {
	sess, err := s.store.Session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	course, err := s.store.Course(ctx, sess.CourseID)
	if err != nil {
		return nil, err
	}
	team, err := s.store.Team(ctx, sess.TeamID)
	if err != nil {
		return nil, err
	}

	view := SessionView{
		ID:               sess.ID,
		Status:           sess.Status,
		Mode:             sess.Mode,
		Course:           courseView(course),
		StartedAt:        sess.StartedAt,
		FinishedAt:       sess.FinishedAt,
		SolvedVector:     sess.SolvedVector,
		ActiveCheckpoint: geoquest.NextUnsolved(sess.SolvedVector),
		SolvedBy:         sess.SolvedBy,
		Positions:        sess.PlayerPositions,
		PlayersAtFinish:  sess.PlayersAtFinish,
		FaultyObstacles:  sess.FaultyObstacles,
		Leaderboard:      leaderboard(sess.SolvedBy),
	}
	for _, id := range team.MemberIDs {
		active, err := s.presence.Active(ctx, sess.ID, id)
		if err != nil {
			// Presence is advisory; a tracker outage must not break reads.
			active = false
		}
		view.Roster = append(view.Roster, RosterEntry{
			PlayerID: id,
			Active:   active,
			AtFinish: sess.AtFinish(id),
		})
	}
	return view, nil
}

func (s *Snapshotter) SessionList(ctx context.Context) (any, error) {
	return s.list(ctx)
}

func courseView(c geoquest.Course) CourseView {
	v := CourseView{ID: c.ID, Name: c.Name, Start: c.Start, Finish: c.Finish}
	for _, o := range c.Obstacles {
		v.Obstacles = append(v.Obstacles, geoquest.LatLng{Lat: o.Lat, Lng: o.Lng})
	}
	return v
}

// leaderboard counts named solves per player, most first. Anonymous entries
// from faulty-obstacle heals carry no player and are skipped.
func leaderboard(solves []geoquest.Solve) []LeaderboardEntry {
	counts := map[string]int{}
	for _, sv := range solves {
		if sv.SolverID == "" {
			continue
		}
		counts[sv.SolverID]++
	}
	entries := make([]LeaderboardEntry, 0, len(counts))
	for id, n := range counts {
		entries = append(entries, LeaderboardEntry{PlayerID: id, Solved: n})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Solved != entries[j].Solved {
			return entries[i].Solved > entries[j].Solved
		}
		return entries[i].PlayerID < entries[j].PlayerID
	})
	return entries
}
