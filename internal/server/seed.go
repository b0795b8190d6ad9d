package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/geoquest/api/internal/game"
	"github.com/geoquest/api/internal/geoquest"
)

// SeedDemo creates a demo course, team and session on an empty database.
// Idempotent: does nothing if the demo course already exists.
func SeedDemo(ctx context.Context, logger *slog.Logger, store *SQLiteStore) error {
	if _, err := store.Course(ctx, "demo-course"); err == nil {
		return nil
	} else if !errors.Is(err, game.ErrNotFound) {
		return err
	}

	// A short walk around Kungsträdgården, Stockholm.
	challenges := []geoquest.Challenge{
		{
			ID:            "demo-ch-1",
			Question:      "What year was the opera house inaugurated?",
			Options:       []string{"1782", "1898", "1925"},
			CorrectOption: 1,
		},
		{
			ID:            "demo-ch-2",
			Question:      "Which king's statue stands in the park's centre?",
			Options:       []string{"Karl XII", "Karl XIII", "Gustav II Adolf"},
			CorrectOption: 1,
		},
		{
			ID:            "demo-ch-3",
			Question:      "What were the park's elm trees saved from in 1971?",
			Options:       []string{"A flood", "A metro station", "A parking garage"},
			CorrectOption: 1,
		},
	}
	for _, ch := range challenges {
		if err := store.PutChallenge(ctx, ch); err != nil {
			return err
		}
	}

	course := geoquest.Course{
		ID:     "demo-course",
		Name:   "Kungsträdgården Loop",
		Start:  geoquest.LatLng{Lat: 59.3303, Lng: 18.0709},
		Finish: geoquest.LatLng{Lat: 59.3310, Lng: 18.0717},
		Obstacles: []geoquest.Obstacle{
			{CheckpointIndex: 0, Lat: 59.3297, Lng: 18.0703, ChallengeID: "demo-ch-1"},
			{CheckpointIndex: 1, Lat: 59.3308, Lng: 18.0711, ChallengeID: "demo-ch-2"},
			{CheckpointIndex: 2, Lat: 59.3315, Lng: 18.0720, ChallengeID: "demo-ch-3"},
		},
	}
	if err := store.PutCourse(ctx, course); err != nil {
		return err
	}

	team := geoquest.Team{
		ID:        "demo-team",
		Name:      "Demo Team",
		MemberIDs: []string{"alice", "bob"},
	}
	if err := store.PutTeam(ctx, team); err != nil {
		return err
	}

	sess := geoquest.Session{
		ID:        "demo-session",
		CourseID:  course.ID,
		TeamID:    team.ID,
		Status:    geoquest.StatusCreated,
		Mode:      geoquest.ModeSingleFinisher,
		CreatedAt: time.Now().UTC(),
	}
	sess.Reset(len(course.Obstacles))
	if err := store.CreateSession(ctx, &sess); err != nil {
		return err
	}

	logger.Info("demo data seeded", "course", course.ID, "session", sess.ID)
	return nil
}
