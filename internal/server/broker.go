package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

// WildcardScope subscribes an observer to the cross-session list view
// instead of a single session's stream.
const WildcardScope = "*"

// Message is the unit of delivery to observers. The first message of every
// subscription is a full snapshot; everything after is incremental.
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// SnapshotSource builds the full-state payloads the broker delivers at
// subscribe time and on wildcard refreshes.
type SnapshotSource interface {
	SessionSnapshot(ctx context.Context, sessionID string) (any, error)
	SessionList(ctx context.Context) (any, error)
}

// Subscription is one observer's ephemeral binding to a scope. C yields
// encoded messages; Done closes when the broker evicts the observer (slow
// consumer, unsubscribe, or lifetime ceiling), after which the observer must
// resubscribe to resync from a fresh snapshot.
type Subscription struct {
	ObserverID string
	Scope      string
	C          chan []byte
	Done       chan struct{}

	timer *time.Timer
	once  sync.Once
}

func (s *Subscription) close() {
	s.once.Do(func() {
		if s.timer != nil {
			s.timer.Stop()
		}
		close(s.Done)
	})
}

// Broker is the in-process fan-out hub. A single instance owns the registry;
// delivery is best-effort, at-most-once, with no retry and no backpressure
// queue: a subscriber whose buffer is full is evicted. Registry state is not
// durable — on restart clients resync via their first snapshot.
type Broker struct {
	source SnapshotSource
	logger *slog.Logger
	ttl    time.Duration

	mu   sync.RWMutex
	subs map[string]map[*Subscription]struct{}
	byID map[string]*Subscription
}

// DefaultSubscriptionTTL is the hard lifetime ceiling of a subscription.
const DefaultSubscriptionTTL = 30 * time.Minute

const subscriptionBuffer = 16

func NewBroker(source SnapshotSource, logger *slog.Logger, ttl time.Duration) *Broker {
	if ttl <= 0 {
		ttl = DefaultSubscriptionTTL
	}
	return &Broker{
		source: source,
		logger: logger,
		ttl:    ttl,
		subs:   make(map[string]map[*Subscription]struct{}),
		byID:   make(map[string]*Subscription),
	}
}

// Subscribe registers an observer on a session (or WildcardScope) and queues
// a full snapshot as its first message. An existing subscription under the
// same observer ID is evicted first. The snapshot is built while the
// registry lock is held: a concurrent Publish either lands in the snapshot
// or is delivered after registration, never in between.
func (b *Broker) Subscribe(ctx context.Context, scope, observerID string) (*Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var (
		payload any
		msgType string
		err     error
	)
	if scope == WildcardScope {
		msgType = "sessions"
		payload, err = b.source.SessionList(ctx)
	} else {
		msgType = "snapshot"
		payload, err = b.source.SessionSnapshot(ctx, scope)
	}
	if err != nil {
		return nil, err
	}
	first, err := json.Marshal(Message{Type: msgType, Payload: payload})
	if err != nil {
		return nil, err
	}

	sub := &Subscription{
		ObserverID: observerID,
		Scope:      scope,
		C:          make(chan []byte, subscriptionBuffer),
		Done:       make(chan struct{}),
	}
	sub.C <- first

	if prev, ok := b.byID[observerID]; ok {
		b.removeLocked(prev)
		prev.close()
	}
	if b.subs[scope] == nil {
		b.subs[scope] = make(map[*Subscription]struct{})
	}
	b.subs[scope][sub] = struct{}{}
	b.byID[observerID] = sub

	sub.timer = time.AfterFunc(b.ttl, func() {
		b.logger.Info("subscription lifetime ceiling reached", "observer", observerID, "scope", scope)
		b.evict(sub)
	})
	return sub, nil
}

// Unsubscribe drops the observer's subscription, if any.
func (b *Broker) Unsubscribe(observerID string) {
	b.mu.Lock()
	sub, ok := b.byID[observerID]
	if ok {
		b.removeLocked(sub)
	}
	b.mu.Unlock()
	if ok {
		sub.close()
	}
}

// Publish pushes an incremental message to every observer of the session and
// refreshes the list view for wildcard observers. Implements game.Publisher.
func (b *Broker) Publish(sessionID, eventType string, payload any) {
	data, err := json.Marshal(Message{Type: eventType, Payload: payload})
	if err != nil {
		b.logger.Error("encoding broadcast", "type", eventType, "error", err)
		return
	}
	b.deliver(sessionID, data)
	b.refreshWildcard()
}

func (b *Broker) deliver(scope string, data []byte) {
	var evicted []*Subscription

	b.mu.RLock()
	for sub := range b.subs[scope] {
		select {
		case sub.C <- data:
		default:
			// Slow consumer: at-most-once delivery means we evict rather
			// than queue. The observer resubscribes for a fresh snapshot.
			evicted = append(evicted, sub)
		}
	}
	b.mu.RUnlock()

	for _, sub := range evicted {
		b.logger.Warn("evicting slow observer", "observer", sub.ObserverID, "scope", sub.Scope)
		b.evict(sub)
	}
}

func (b *Broker) refreshWildcard() {
	b.mu.RLock()
	n := len(b.subs[WildcardScope])
	b.mu.RUnlock()
	if n == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	list, err := b.source.SessionList(ctx)
	if err != nil {
		b.logger.Error("building session list for wildcard observers", "error", err)
		return
	}
	data, err := json.Marshal(Message{Type: "sessions", Payload: list})
	if err != nil {
		b.logger.Error("encoding session list", "error", err)
		return
	}
	b.deliver(WildcardScope, data)
}

func (b *Broker) evict(sub *Subscription) {
	b.mu.Lock()
	b.removeLocked(sub)
	b.mu.Unlock()
	sub.close()
}

func (b *Broker) removeLocked(sub *Subscription) {
	if set, ok := b.subs[sub.Scope]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(b.subs, sub.Scope)
		}
	}
	if b.byID[sub.ObserverID] == sub {
		delete(b.byID, sub.ObserverID)
	}
}
