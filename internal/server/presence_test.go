package server

import (
	"context"
	"testing"
	"time"
)

func TestMemoryPresenceTimeout(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p := NewMemoryPresence()
	p.now = func() time.Time { return now }

	ctx := context.Background()

	active, err := p.Active(ctx, "s1", "p1")
	if err != nil || active {
		t.Fatalf("unknown player active = %v, err = %v", active, err)
	}

	if err := p.Heartbeat(ctx, "s1", "p1"); err != nil {
		t.Fatalf("heartbeat: %v", err)
	}

	active, _ = p.Active(ctx, "s1", "p1")
	if !active {
		t.Error("player inactive right after heartbeat")
	}

	now = now.Add(PresenceTimeout - time.Second)
	active, _ = p.Active(ctx, "s1", "p1")
	if !active {
		t.Error("player inactive just before timeout")
	}

	now = now.Add(2 * time.Second)
	active, _ = p.Active(ctx, "s1", "p1")
	if active {
		t.Error("player still active past timeout")
	}

	// Presence is per session.
	if active, _ := p.Active(ctx, "s2", "p1"); active {
		t.Error("heartbeat leaked into another session")
	}
}
