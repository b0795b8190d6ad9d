package game

import (
	"context"

	"github.com/geoquest/api/internal/geoquest"
)

// Store is the persistence surface the engine mutates through. Session
// updates are conditional: UpdateSession must fail with ErrVersionMismatch
// when the stored version no longer matches s.Version, and bump the version
// on success.
type Store interface {
	Course(ctx context.Context, id string) (geoquest.Course, error)
	Challenge(ctx context.Context, id string) (geoquest.Challenge, error)
	Team(ctx context.Context, id string) (geoquest.Team, error)

	Session(ctx context.Context, id string) (geoquest.Session, error)
	CreateSession(ctx context.Context, s *geoquest.Session) error
	UpdateSession(ctx context.Context, s *geoquest.Session) error

	AppendEvent(ctx context.Context, ev geoquest.Event) error
	Events(ctx context.Context, sessionID string) ([]geoquest.Event, error)
	PurgeEvents(ctx context.Context, sessionID string) error
}

// Publisher receives state-change notifications for fan-out to live
// observers. Delivery is best-effort; the engine never blocks on it.
type Publisher interface {
	Publish(sessionID, eventType string, payload any)
}

// NopPublisher discards all notifications.
type NopPublisher struct{}

func (NopPublisher) Publish(string, string, any) {}
