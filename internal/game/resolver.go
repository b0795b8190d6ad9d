package game

import (
	"github.com/geoquest/api/internal/geoquest"
)

// ChallengePrompt is the player-facing view of a challenge: the question and
// options without the correct index.
type ChallengePrompt struct {
	CheckpointIndex int      `json:"checkpointIndex"`
	Question        string   `json:"question"`
	Options         []string `json:"options"`
}

func promptFor(index int, ch geoquest.Challenge) *ChallengePrompt {
	return &ChallengePrompt{
		CheckpointIndex: index,
		Question:        ch.Question,
		Options:         ch.Options,
	}
}

// validateSubmission checks the answer preconditions against the session:
// the session must be started and the checkpoint must be the current
// lowest-unsolved one. Anything else is a stale submission.
func validateSubmission(s *geoquest.Session, checkpointIndex int) error {
	if s.Status != geoquest.StatusStarted {
		return ErrSessionNotActive
	}
	next := geoquest.NextUnsolved(s.SolvedVector)
	if next == -1 || checkpointIndex != next {
		return ErrStaleSubmission
	}
	return nil
}

// resolve checks a submitted option index against the challenge. Incorrect
// answers carry no penalty; the player may resubmit without limit.
func resolve(ch geoquest.Challenge, answerIndex int) bool {
	return answerIndex == ch.CorrectOption
}
