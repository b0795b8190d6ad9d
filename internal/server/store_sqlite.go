package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/geoquest/api/internal/game"
	"github.com/geoquest/api/internal/geoquest"
)

// SQLiteStore implements game.Store on per-model tables with JSONB data
// columns. Courses, challenges and teams are read-only collaborator
// documents; sessions carry a version column for conditional updates; events
// are an append-only log.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) get(ctx context.Context, table, id string, dest any) error {
	var data string
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT json(data) FROM %s WHERE id = ?`, table), id,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return game.ErrNotFound
	}
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(data), dest)
}

func (s *SQLiteStore) put(ctx context.Context, table, id string, doc any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (id, data) VALUES (?, jsonb(?))
		 ON CONFLICT(id) DO UPDATE SET data = excluded.data`, table),
		id, string(data),
	)
	return err
}

func (s *SQLiteStore) Course(ctx context.Context, id string) (geoquest.Course, error) {
	var c geoquest.Course
	err := s.get(ctx, "courses", id, &c)
	return c, err
}

func (s *SQLiteStore) Challenge(ctx context.Context, id string) (geoquest.Challenge, error) {
	var ch geoquest.Challenge
	err := s.get(ctx, "challenges", id, &ch)
	return ch, err
}

func (s *SQLiteStore) Team(ctx context.Context, id string) (geoquest.Team, error) {
	var t geoquest.Team
	err := s.get(ctx, "teams", id, &t)
	return t, err
}

func (s *SQLiteStore) PutCourse(ctx context.Context, c geoquest.Course) error {
	return s.put(ctx, "courses", c.ID, c)
}

func (s *SQLiteStore) PutChallenge(ctx context.Context, ch geoquest.Challenge) error {
	return s.put(ctx, "challenges", ch.ID, ch)
}

func (s *SQLiteStore) PutTeam(ctx context.Context, t geoquest.Team) error {
	return s.put(ctx, "teams", t.ID, t)
}

func (s *SQLiteStore) Session(ctx context.Context, id string) (geoquest.Session, error) {
	var (
		sess    geoquest.Session
		data    string
		version int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT json(data), version FROM sessions WHERE id = ?`, id,
	).Scan(&data, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return sess, game.ErrNotFound
	}
	if err != nil {
		return sess, err
	}
	if err := json.Unmarshal([]byte(data), &sess); err != nil {
		return sess, fmt.Errorf("decoding session %s: %w", id, err)
	}
	sess.Version = version
	return sess, nil
}

func (s *SQLiteStore) CreateSession(ctx context.Context, sess *geoquest.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, status, version, data) VALUES (?, ?, 0, jsonb(?))`,
		sess.ID, string(sess.Status), string(data),
	)
	if err != nil {
		return err
	}
	sess.Version = 0
	return nil
}

// UpdateSession writes the session conditioned on its version: the row must
// still carry sess.Version or the update is rejected with ErrVersionMismatch
// and nothing changes.
func (s *SQLiteStore) UpdateSession(ctx context.Context, sess *geoquest.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET status = ?, data = jsonb(?), version = version + 1
		 WHERE id = ? AND version = ?`,
		string(sess.Status), string(data), sess.ID, sess.Version,
	)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var exists int
		if err := s.db.QueryRowContext(ctx,
			`SELECT 1 FROM sessions WHERE id = ?`, sess.ID,
		).Scan(&exists); errors.Is(err, sql.ErrNoRows) {
			return game.ErrNotFound
		}
		return game.ErrVersionMismatch
	}
	sess.Version++
	return nil
}

// AppendEvent stores the timestamp as unix nanoseconds. A textual timestamp
// would sort under string collation, which inverts exact-second values
// against fractional ones in the same second.
func (s *SQLiteStore) AppendEvent(ctx context.Context, ev geoquest.Event) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events (session_id, type, player_id, lat, lng, checkpoint_index, ts)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ev.SessionID, string(ev.Type), ev.PlayerID, ev.Lat, ev.Lng,
		ev.CheckpointIndex, ev.Timestamp.UTC().UnixNano(),
	)
	return err
}

// Events returns the session's log in non-decreasing timestamp order; the
// autoincrement id breaks ties between equal timestamps.
func (s *SQLiteStore) Events(ctx context.Context, sessionID string) ([]geoquest.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT type, player_id, lat, lng, checkpoint_index, ts
		 FROM events WHERE session_id = ? ORDER BY ts, id`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []geoquest.Event
	for rows.Next() {
		var (
			ev  geoquest.Event
			typ string
			ts  int64
		)
		if err := rows.Scan(&typ, &ev.PlayerID, &ev.Lat, &ev.Lng, &ev.CheckpointIndex, &ts); err != nil {
			return nil, err
		}
		ev.SessionID = sessionID
		ev.Type = geoquest.EventType(typ)
		ev.Timestamp = time.Unix(0, ts).UTC()
		events = append(events, ev)
	}
	return events, rows.Err()
}

func (s *SQLiteStore) PurgeEvents(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE session_id = ?`, sessionID)
	return err
}

// SessionSummary is one row of the cross-session list view pushed to
// wildcard observers.
type SessionSummary struct {
	ID              string                 `json:"id"`
	CourseID        string                 `json:"courseId"`
	CourseName      string                 `json:"courseName"`
	TeamID          string                 `json:"teamId"`
	Status          geoquest.SessionStatus `json:"status"`
	Mode            geoquest.Mode          `json:"mode"`
	StartedAt       *time.Time             `json:"startedAt"`
	FinishedAt      *time.Time             `json:"finishedAt"`
	SolvedCount     int                    `json:"solvedCount"`
	ObstacleCount   int                    `json:"obstacleCount"`
	PlayersAtFinish int                    `json:"playersAtFinish"`
}

func (s *SQLiteStore) ListSessions(ctx context.Context) ([]SessionSummary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT json(data) FROM sessions ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	courseNames := map[string]string{}
	summaries := []SessionSummary{}
	var sessions []geoquest.Session
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var sess geoquest.Session
		if err := json.Unmarshal([]byte(data), &sess); err != nil {
			return nil, fmt.Errorf("decoding session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, sess := range sessions {
		name, ok := courseNames[sess.CourseID]
		if !ok {
			course, err := s.Course(ctx, sess.CourseID)
			if err == nil {
				name = course.Name
			}
			courseNames[sess.CourseID] = name
		}

		solved := 0
		for _, ok := range sess.SolvedVector {
			if ok {
				solved++
			}
		}
		summaries = append(summaries, SessionSummary{
			ID:              sess.ID,
			CourseID:        sess.CourseID,
			CourseName:      name,
			TeamID:          sess.TeamID,
			Status:          sess.Status,
			Mode:            sess.Mode,
			StartedAt:       sess.StartedAt,
			FinishedAt:      sess.FinishedAt,
			SolvedCount:     solved,
			ObstacleCount:   len(sess.SolvedVector),
			PlayersAtFinish: len(sess.PlayersAtFinish),
		})
	}
	return summaries, nil
}
