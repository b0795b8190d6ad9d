package server

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// PresenceTimeout is how long after a player's last heartbeat they still
// count as active.
const PresenceTimeout = 60 * time.Second

// Presence tracks which players are currently live in a session. It is
// advisory only and never gates gameplay.
type Presence interface {
	Heartbeat(ctx context.Context, sessionID, playerID string) error
	Active(ctx context.Context, sessionID, playerID string) (bool, error)
}

// RedisPresence stores heartbeats as TTL keys; expiry is the timeout.
type RedisPresence struct {
	rdb *redis.Client
}

func NewRedisPresence(rdb *redis.Client) *RedisPresence {
	return &RedisPresence{rdb: rdb}
}

func presenceKey(sessionID, playerID string) string {
	return fmt.Sprintf("presence:%s:%s", sessionID, playerID)
}

func (p *RedisPresence) Heartbeat(ctx context.Context, sessionID, playerID string) error {
	return p.rdb.Set(ctx, presenceKey(sessionID, playerID), "1", PresenceTimeout).Err()
}

func (p *RedisPresence) Active(ctx context.Context, sessionID, playerID string) (bool, error) {
	n, err := p.rdb.Exists(ctx, presenceKey(sessionID, playerID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MemoryPresence is the in-process implementation used in tests and when no
// redis is configured.
type MemoryPresence struct {
	mu   sync.Mutex
	seen map[string]time.Time
	now  func() time.Time
}

func NewMemoryPresence() *MemoryPresence {
	return &MemoryPresence{seen: make(map[string]time.Time), now: time.Now}
}

func (p *MemoryPresence) Heartbeat(_ context.Context, sessionID, playerID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seen[presenceKey(sessionID, playerID)] = p.now()
	return nil
}

func (p *MemoryPresence) Active(_ context.Context, sessionID, playerID string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	t, ok := p.seen[presenceKey(sessionID, playerID)]
	if !ok {
		return false, nil
	}
	return p.now().Sub(t) < PresenceTimeout, nil
}
