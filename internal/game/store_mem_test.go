package game

import (
	"context"
	"sync"

	"github.com/geoquest/api/internal/geoquest"
)

// memStore is an in-memory Store with the same conditional-update semantics
// as the SQLite store: updates succeed only when the caller's version matches.
type memStore struct {
	mu         sync.Mutex
	courses    map[string]geoquest.Course
	challenges map[string]geoquest.Challenge
	teams      map[string]geoquest.Team
	sessions   map[string]geoquest.Session
	events     map[string][]geoquest.Event

	// afterRead, when set, runs after every Session read — used to inject
	// a competing writer between an engine's read and its update.
	afterRead func()
}

func newMemStore() *memStore {
	return &memStore{
		courses:    map[string]geoquest.Course{},
		challenges: map[string]geoquest.Challenge{},
		teams:      map[string]geoquest.Team{},
		sessions:   map[string]geoquest.Session{},
		events:     map[string][]geoquest.Event{},
	}
}

func (m *memStore) Course(_ context.Context, id string) (geoquest.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.courses[id]
	if !ok {
		return geoquest.Course{}, ErrNotFound
	}
	return c, nil
}

func (m *memStore) Challenge(_ context.Context, id string) (geoquest.Challenge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.challenges[id]
	if !ok {
		return geoquest.Challenge{}, ErrNotFound
	}
	return ch, nil
}

func (m *memStore) Team(_ context.Context, id string) (geoquest.Team, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.teams[id]
	if !ok {
		return geoquest.Team{}, ErrNotFound
	}
	return t, nil
}

func (m *memStore) Session(_ context.Context, id string) (geoquest.Session, error) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return geoquest.Session{}, ErrNotFound
	}
	if m.afterRead != nil {
		m.afterRead()
	}
	return copySession(s), nil
}

func (m *memStore) CreateSession(_ context.Context, s *geoquest.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = copySession(*s)
	return nil
}

func (m *memStore) UpdateSession(_ context.Context, s *geoquest.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.sessions[s.ID]
	if !ok {
		return ErrNotFound
	}
	if cur.Version != s.Version {
		return ErrVersionMismatch
	}
	s.Version++
	m.sessions[s.ID] = copySession(*s)
	return nil
}

func (m *memStore) AppendEvent(_ context.Context, ev geoquest.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[ev.SessionID] = append(m.events[ev.SessionID], ev)
	return nil
}

func (m *memStore) Events(_ context.Context, sessionID string) ([]geoquest.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]geoquest.Event, len(m.events[sessionID]))
	copy(out, m.events[sessionID])
	return out, nil
}

func (m *memStore) PurgeEvents(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.events, sessionID)
	return nil
}

func copySession(s geoquest.Session) geoquest.Session {
	out := s
	out.SolvedVector = append([]bool(nil), s.SolvedVector...)
	out.SolvedBy = append([]geoquest.Solve(nil), s.SolvedBy...)
	out.PlayersAtFinish = append([]string(nil), s.PlayersAtFinish...)
	out.FaultyObstacles = append([]int(nil), s.FaultyObstacles...)
	out.PlayerPositions = map[string]geoquest.LatLng{}
	for k, v := range s.PlayerPositions {
		out.PlayerPositions[k] = v
	}
	return out
}

// capturingPublisher records published events for assertions.
type capturingPublisher struct {
	mu     sync.Mutex
	byType map[string]int
}

func newCapturingPublisher() *capturingPublisher {
	return &capturingPublisher{byType: map[string]int{}}
}

func (p *capturingPublisher) Publish(_, eventType string, _ any) {
	p.mu.Lock()
	p.byType[eventType]++
	p.mu.Unlock()
}

func (p *capturingPublisher) count(eventType string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.byType[eventType]
}
