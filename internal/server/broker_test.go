package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
	"time"
)

type stubSource struct {
	snapshot any
	list     any
	err      error
}

func (s *stubSource) SessionSnapshot(context.Context, string) (any, error) {
	return s.snapshot, s.err
}

func (s *stubSource) SessionList(context.Context) (any, error) {
	return s.list, s.err
}

func testBroker(t *testing.T, source SnapshotSource) *Broker {
	t.Helper()
	return NewBroker(source, slog.Default(), time.Minute)
}

func recvMessage(t *testing.T, sub *Subscription) Message {
	t.Helper()
	select {
	case data := <-sub.C:
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("decoding message: %v", err)
		}
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return Message{}
	}
}

// hookSource lets a test run code at snapshot-build time.
type hookSource struct {
	stubSource
	onSnapshot func()
}

func (s *hookSource) SessionSnapshot(ctx context.Context, id string) (any, error) {
	if s.onSnapshot != nil {
		s.onSnapshot()
	}
	return s.stubSource.SessionSnapshot(ctx, id)
}

func TestSubscribeDeliversSnapshotFirst(t *testing.T) {
	broker := testBroker(t, &stubSource{snapshot: map[string]any{"id": "s1"}})

	sub, err := broker.Subscribe(context.Background(), "s1", "obs1")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	msg := recvMessage(t, sub)
	if msg.Type != "snapshot" {
		t.Errorf("first message type = %q, want snapshot", msg.Type)
	}

	broker.Publish("s1", "player_moved", map[string]string{"playerId": "p1"})
	msg = recvMessage(t, sub)
	if msg.Type != "player_moved" {
		t.Errorf("second message type = %q, want player_moved", msg.Type)
	}
}

func TestPublishDuringSubscribeNotLost(t *testing.T) {
	source := &hookSource{stubSource: stubSource{snapshot: "snap"}}
	broker := testBroker(t, source)

	// Fire a publish while the snapshot is being built. It must either be
	// part of the snapshot or arrive after it — never vanish.
	var published sync.WaitGroup
	source.onSnapshot = func() {
		published.Add(1)
		go func() {
			defer published.Done()
			broker.Publish("s1", "checkpoint_solved", nil)
		}()
		time.Sleep(20 * time.Millisecond)
	}

	sub, err := broker.Subscribe(context.Background(), "s1", "obs1")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	published.Wait()

	if msg := recvMessage(t, sub); msg.Type != "snapshot" {
		t.Fatalf("first message type = %q, want snapshot", msg.Type)
	}
	if msg := recvMessage(t, sub); msg.Type != "checkpoint_solved" {
		t.Errorf("concurrent publish lost, got type %q", msg.Type)
	}
}

func TestPublishScopedToSession(t *testing.T) {
	broker := testBroker(t, &stubSource{snapshot: "snap"})

	sub1, _ := broker.Subscribe(context.Background(), "s1", "obs1")
	sub2, _ := broker.Subscribe(context.Background(), "s2", "obs2")
	recvMessage(t, sub1)
	recvMessage(t, sub2)

	broker.Publish("s1", "checkpoint_solved", nil)

	if msg := recvMessage(t, sub1); msg.Type != "checkpoint_solved" {
		t.Errorf("s1 message = %q", msg.Type)
	}
	select {
	case data := <-sub2.C:
		t.Errorf("s2 observer received foreign message: %s", data)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestWildcardGetsListOnAnyChange(t *testing.T) {
	source := &stubSource{snapshot: "snap", list: []string{"s1", "s2"}}
	broker := testBroker(t, source)

	sub, _ := broker.Subscribe(context.Background(), WildcardScope, "watcher")
	if msg := recvMessage(t, sub); msg.Type != "sessions" {
		t.Fatalf("first wildcard message = %q, want sessions", msg.Type)
	}

	broker.Publish("s1", "player_moved", nil)
	if msg := recvMessage(t, sub); msg.Type != "sessions" {
		t.Errorf("wildcard refresh type = %q, want sessions", msg.Type)
	}
}

func TestSlowObserverEvicted(t *testing.T) {
	broker := testBroker(t, &stubSource{snapshot: "snap"})

	sub, _ := broker.Subscribe(context.Background(), "s1", "obs1")
	// Never drain: the snapshot plus buffered publishes fill the channel.
	for i := 0; i < subscriptionBuffer+1; i++ {
		broker.Publish("s1", "player_moved", i)
	}

	select {
	case <-sub.Done:
	case <-time.After(time.Second):
		t.Fatal("slow observer was not evicted")
	}
}

func TestResubscribeReplacesObserver(t *testing.T) {
	broker := testBroker(t, &stubSource{snapshot: "snap"})

	old, _ := broker.Subscribe(context.Background(), "s1", "obs1")
	recvMessage(t, old)

	replacement, _ := broker.Subscribe(context.Background(), "s1", "obs1")
	select {
	case <-old.Done:
	case <-time.After(time.Second):
		t.Fatal("old subscription not closed on resubscribe")
	}

	broker.Publish("s1", "player_moved", nil)
	recvMessage(t, replacement) // snapshot
	if msg := recvMessage(t, replacement); msg.Type != "player_moved" {
		t.Errorf("replacement message = %q", msg.Type)
	}
}

func TestSubscriptionTTLForceCloses(t *testing.T) {
	broker := NewBroker(&stubSource{snapshot: "snap"}, slog.Default(), 20*time.Millisecond)

	sub, _ := broker.Subscribe(context.Background(), "s1", "obs1")
	select {
	case <-sub.Done:
	case <-time.After(time.Second):
		t.Fatal("subscription not closed after TTL")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	broker := testBroker(t, &stubSource{snapshot: "snap"})

	sub, _ := broker.Subscribe(context.Background(), "s1", "obs1")
	recvMessage(t, sub)
	broker.Unsubscribe("obs1")

	select {
	case <-sub.Done:
	case <-time.After(time.Second):
		t.Fatal("unsubscribe did not close subscription")
	}
}
