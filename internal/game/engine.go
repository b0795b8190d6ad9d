package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/geoquest/api/internal/geoquest"
)

// casAttempts bounds the optimistic-concurrency retry loop. A mutation still
// losing after this many rounds surfaces as a stale submission.
const casAttempts = 3

// Engine is the progress state machine. It owns every session mutation:
// geofence decisions from position updates, answer resolution, operator
// lifecycle actions. All writes go through version-checked updates, so two
// near-simultaneous mutations of the same field cannot both succeed.
type Engine struct {
	store  Store
	pub    Publisher
	rec    *Recorder
	logger *slog.Logger
	radius float64
	now    func() time.Time
}

// Options tunes the engine. Zero values fall back to defaults.
type Options struct {
	GeofenceRadius float64
	SampleDistance float64
	Now            func() time.Time
}

func New(store Store, pub Publisher, logger *slog.Logger, opts Options) *Engine {
	if opts.GeofenceRadius <= 0 {
		opts.GeofenceRadius = DefaultGeofenceRadius
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if pub == nil {
		pub = NopPublisher{}
	}
	return &Engine{
		store:  store,
		pub:    pub,
		rec:    NewRecorder(store, opts.SampleDistance),
		logger: logger,
		radius: opts.GeofenceRadius,
		now:    opts.Now,
	}
}

// Recorder exposes the engine's event recorder.
func (e *Engine) Recorder() *Recorder { return e.rec }

// PositionResult reports the session view after a position update was
// applied. Challenge is set when the player is inside the active obstacle's
// zone and must answer to proceed.
type PositionResult struct {
	Status           geoquest.SessionStatus `json:"status"`
	ActiveCheckpoint int                    `json:"activeCheckpoint"`
	AtFinish         bool                   `json:"atFinish"`
	Challenge        *ChallengePrompt       `json:"challenge,omitempty"`
}

// SubmitPosition ingests one player position: stores it, evaluates the
// geofence against the current target, applies the resulting transition and
// records a sampled move event. Positions against finished sessions are
// ignored without error; created sessions reject them.
func (e *Engine) SubmitPosition(ctx context.Context, sessionID, playerID string, pos geoquest.LatLng) (PositionResult, error) {
	var res PositionResult

	for attempt := 0; attempt < casAttempts; attempt++ {
		s, err := e.store.Session(ctx, sessionID)
		if err != nil {
			return res, err
		}

		switch s.Status {
		case geoquest.StatusCreated:
			return res, ErrSessionNotActive
		case geoquest.StatusFinished:
			res.Status = s.Status
			res.ActiveCheckpoint = -1
			res.AtFinish = s.AtFinish(playerID)
			return res, nil
		}

		course, err := e.store.Course(ctx, s.CourseID)
		if err != nil {
			return res, fmt.Errorf("loading course %s: %w", s.CourseID, err)
		}

		decision := Evaluate(course, &s, playerID, pos, e.radius)

		if s.PlayerPositions == nil {
			s.PlayerPositions = map[string]geoquest.LatLng{}
		}
		s.PlayerPositions[playerID] = pos

		var (
			started  bool
			finished bool
			reached  bool
			faulty   = -1
			prompt   *ChallengePrompt
		)

		switch decision.Kind {
		case DecisionEnterStart:
			now := e.now()
			s.Status = geoquest.StatusStarted
			s.StartedAt = &now
			started = true

		case DecisionSkipFaulty:
			e.markFaulty(&s, decision.CheckpointIndex)
			faulty = decision.CheckpointIndex

		case DecisionEnterObstacle:
			ch, err := e.store.Challenge(ctx, course.Obstacles[decision.CheckpointIndex].ChallengeID)
			switch {
			case errors.Is(err, ErrNotFound):
				// Missing challenge data must not stall a live session:
				// heal the checkpoint as solved-and-faulty and move on.
				e.markFaulty(&s, decision.CheckpointIndex)
				faulty = decision.CheckpointIndex
			case err != nil:
				return res, fmt.Errorf("loading challenge: %w", err)
			default:
				prompt = promptFor(decision.CheckpointIndex, ch)
			}

		case DecisionEnterFinish:
			team, err := e.store.Team(ctx, s.TeamID)
			if err != nil {
				return res, fmt.Errorf("loading team %s: %w", s.TeamID, err)
			}
			if memberOf(team, playerID) {
				s.PlayersAtFinish = append(s.PlayersAtFinish, playerID)
				reached = true
				if s.AllSolved() && s.WinConditionMet(len(team.MemberIDs)) {
					now := e.now()
					s.Status = geoquest.StatusFinished
					s.FinishedAt = &now
					finished = true
				}
			}
		}

		if err := e.store.UpdateSession(ctx, &s); err != nil {
			if errors.Is(err, ErrVersionMismatch) {
				continue
			}
			return res, err
		}

		now := e.now()
		if err := e.rec.RecordMove(ctx, sessionID, playerID, pos, now); err != nil {
			e.logger.Error("recording move event", "session", sessionID, "player", playerID, "error", err)
		}
		if faulty >= 0 {
			if err := e.rec.RecordSolve(ctx, sessionID, "", faulty, now); err != nil {
				e.logger.Error("recording faulty solve event", "session", sessionID, "error", err)
			}
			e.pub.Publish(sessionID, "obstacle_faulty", map[string]any{"checkpointIndex": faulty})
		}

		e.pub.Publish(sessionID, "player_moved", map[string]any{
			"playerId": playerID, "lat": pos.Lat, "lng": pos.Lng,
		})
		if started {
			e.pub.Publish(sessionID, "session_started", map[string]any{"startedAt": s.StartedAt})
		}
		if reached {
			e.pub.Publish(sessionID, "player_finished", map[string]any{"playerId": playerID})
		}
		if finished {
			e.pub.Publish(sessionID, "session_finished", map[string]any{"finishedAt": s.FinishedAt})
		}

		res.Status = s.Status
		res.ActiveCheckpoint = geoquest.NextUnsolved(s.SolvedVector)
		res.AtFinish = s.AtFinish(playerID)
		res.Challenge = prompt
		return res, nil
	}

	return res, ErrStaleSubmission
}

// AnswerResult reports the outcome of one answer submission. Incorrect
// answers mutate nothing and may be retried without limit.
type AnswerResult struct {
	Correct         bool `json:"correct"`
	CheckpointIndex int  `json:"checkpointIndex"`
	GameComplete    bool `json:"gameComplete"`
}

// SubmitAnswer validates an answer for the active checkpoint. Exactly one of
// two concurrent correct submissions for the same checkpoint succeeds; the
// loser gets ErrStaleSubmission.
func (e *Engine) SubmitAnswer(ctx context.Context, sessionID, playerID string, checkpointIndex, answerIndex int) (AnswerResult, error) {
	var res AnswerResult

	for attempt := 0; attempt < casAttempts; attempt++ {
		s, err := e.store.Session(ctx, sessionID)
		if err != nil {
			return res, err
		}
		if err := validateSubmission(&s, checkpointIndex); err != nil {
			return res, err
		}

		course, err := e.store.Course(ctx, s.CourseID)
		if err != nil {
			return res, fmt.Errorf("loading course %s: %w", s.CourseID, err)
		}
		if checkpointIndex >= len(course.Obstacles) {
			return res, ErrStaleSubmission
		}

		ch, err := e.store.Challenge(ctx, course.Obstacles[checkpointIndex].ChallengeID)
		if errors.Is(err, ErrNotFound) {
			// Same self-healing as the geofence path: mark the checkpoint
			// faulty and let the client resync to the advanced target.
			e.markFaulty(&s, checkpointIndex)
			if err := e.store.UpdateSession(ctx, &s); err != nil {
				if errors.Is(err, ErrVersionMismatch) {
					continue
				}
				return res, err
			}
			now := e.now()
			if err := e.rec.RecordSolve(ctx, sessionID, "", checkpointIndex, now); err != nil {
				e.logger.Error("recording faulty solve event", "session", sessionID, "error", err)
			}
			e.pub.Publish(sessionID, "obstacle_faulty", map[string]any{"checkpointIndex": checkpointIndex})
			return res, ErrStaleSubmission
		}
		if err != nil {
			return res, fmt.Errorf("loading challenge: %w", err)
		}

		res.CheckpointIndex = checkpointIndex
		if !resolve(ch, answerIndex) {
			return res, nil
		}

		now := e.now()
		s.SolvedVector[checkpointIndex] = true
		s.SolvedBy = append(s.SolvedBy, geoquest.Solve{
			CheckpointIndex: checkpointIndex,
			SolverID:        playerID,
			Timestamp:       now,
		})

		if err := e.store.UpdateSession(ctx, &s); err != nil {
			if errors.Is(err, ErrVersionMismatch) {
				// Re-read: if the other writer solved this checkpoint the
				// revalidation above rejects the retry as stale.
				continue
			}
			return res, err
		}

		if err := e.rec.RecordSolve(ctx, sessionID, playerID, checkpointIndex, now); err != nil {
			e.logger.Error("recording solve event", "session", sessionID, "error", err)
		}
		e.pub.Publish(sessionID, "checkpoint_solved", map[string]any{
			"checkpointIndex": checkpointIndex, "solverId": playerID,
		})

		res.Correct = true
		res.GameComplete = s.AllSolved()
		return res, nil
	}

	return res, ErrStaleSubmission
}

// CreateSession builds a session for a scheduled team run. The solved vector
// is sized to the course's obstacle list at creation and never resized while
// the session lives.
func (e *Engine) CreateSession(ctx context.Context, courseID, teamID string, mode geoquest.Mode) (geoquest.Session, error) {
	course, err := e.store.Course(ctx, courseID)
	if err != nil {
		return geoquest.Session{}, err
	}
	if _, err := e.store.Team(ctx, teamID); err != nil {
		return geoquest.Session{}, err
	}
	if mode == "" {
		mode = geoquest.ModeSingleFinisher
	}
	if mode != geoquest.ModeSingleFinisher && mode != geoquest.ModeAllFinish {
		return geoquest.Session{}, fmt.Errorf("unknown mode %q", mode)
	}

	s := geoquest.Session{
		ID:              uuid.NewString(),
		CourseID:        courseID,
		TeamID:          teamID,
		Status:          geoquest.StatusCreated,
		Mode:            mode,
		SolvedVector:    make([]bool, len(course.Obstacles)),
		PlayerPositions: map[string]geoquest.LatLng{},
		CreatedAt:       e.now(),
	}
	if err := e.store.CreateSession(ctx, &s); err != nil {
		return geoquest.Session{}, err
	}

	e.pub.Publish(s.ID, "session_created", map[string]any{"sessionId": s.ID})
	return s, nil
}

// ActivateSession moves a created session to pending, arming the start
// geofence. Any other starting status is rejected.
func (e *Engine) ActivateSession(ctx context.Context, sessionID string) (geoquest.Session, error) {
	s, err := e.casUpdate(ctx, sessionID, func(s *geoquest.Session) error {
		if s.Status != geoquest.StatusCreated {
			return ErrSessionNotActive
		}
		s.Status = geoquest.StatusPending
		return nil
	})
	if err != nil {
		return geoquest.Session{}, err
	}
	e.pub.Publish(sessionID, "session_activated", map[string]any{"sessionId": sessionID})
	return s, nil
}

// ResetSession returns a session to created and purges its event log.
// Irreversible: the log is gone, there is nothing left to replay.
func (e *Engine) ResetSession(ctx context.Context, sessionID string) (geoquest.Session, error) {
	var course geoquest.Course
	s, err := e.casUpdate(ctx, sessionID, func(s *geoquest.Session) error {
		var err error
		course, err = e.store.Course(ctx, s.CourseID)
		if err != nil {
			return fmt.Errorf("loading course %s: %w", s.CourseID, err)
		}
		s.Reset(len(course.Obstacles))
		return nil
	})
	if err != nil {
		return geoquest.Session{}, err
	}

	if err := e.store.PurgeEvents(ctx, sessionID); err != nil {
		return geoquest.Session{}, fmt.Errorf("purging events: %w", err)
	}
	e.rec.Forget(sessionID)

	e.pub.Publish(sessionID, "session_reset", map[string]any{"sessionId": sessionID})
	return s, nil
}

// casUpdate runs mutate against a fresh read of the session and writes it
// back conditionally, retrying on version mismatch.
func (e *Engine) casUpdate(ctx context.Context, sessionID string, mutate func(*geoquest.Session) error) (geoquest.Session, error) {
	for attempt := 0; attempt < casAttempts; attempt++ {
		s, err := e.store.Session(ctx, sessionID)
		if err != nil {
			return geoquest.Session{}, err
		}
		if err := mutate(&s); err != nil {
			return geoquest.Session{}, err
		}
		err = e.store.UpdateSession(ctx, &s)
		if err == nil {
			return s, nil
		}
		if !errors.Is(err, ErrVersionMismatch) {
			return geoquest.Session{}, err
		}
	}
	return geoquest.Session{}, ErrStaleSubmission
}

func (e *Engine) markFaulty(s *geoquest.Session, index int) {
	if index < len(s.SolvedVector) {
		s.SolvedVector[index] = true
	}
	if !s.Faulty(index) {
		s.FaultyObstacles = append(s.FaultyObstacles, index)
	}
	e.logger.Warn("checkpoint healed as faulty", "session", s.ID, "checkpointIndex", index)
}

func memberOf(team geoquest.Team, playerID string) bool {
	for _, id := range team.MemberIDs {
		if id == playerID {
			return true
		}
	}
	return false
}
