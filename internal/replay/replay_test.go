package replay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geoquest/api/internal/geoquest"
)

var start = time.Date(2026, 5, 17, 10, 0, 0, 0, time.UTC)

func at(sec int) time.Time { return start.Add(time.Duration(sec) * time.Second) }

func move(player string, sec int, lat, lng float64) geoquest.Event {
	return geoquest.Event{
		SessionID: "s1", Type: geoquest.EventMove, PlayerID: player,
		Lat: lat, Lng: lng, Timestamp: at(sec),
	}
}

func solve(player string, sec, index int) geoquest.Event {
	return geoquest.Event{
		SessionID: "s1", Type: geoquest.EventSolve, PlayerID: player,
		CheckpointIndex: index, Timestamp: at(sec),
	}
}

func fixtureLog() []geoquest.Event {
	return []geoquest.Event{
		move("alice", 0, 59.0, 18.0),
		move("bob", 5, 59.0, 18.1),
		move("alice", 10, 59.001, 18.0),
		solve("alice", 12, 0),
		move("alice", 20, 59.002, 18.0),
		solve("bob", 25, 1),
		move("bob", 30, 59.002, 18.1),
	}
}

func TestStateAtStart(t *testing.T) {
	f := StateAt(fixtureLog(), start, 2, 0)

	assert.Equal(t, map[string]geoquest.LatLng{"alice": {Lat: 59.0, Lng: 18.0}}, f.Positions)
	assert.Empty(t, f.Solved)
	assert.Equal(t, 0, f.ActiveCheckpoint)
}

func TestStateAtMidRun(t *testing.T) {
	f := StateAt(fixtureLog(), start, 2, 15*time.Second)

	assert.Equal(t, geoquest.LatLng{Lat: 59.001, Lng: 18.0}, f.Positions["alice"])
	assert.Equal(t, geoquest.LatLng{Lat: 59.0, Lng: 18.1}, f.Positions["bob"])
	assert.Equal(t, []int{0}, f.Solved)
	assert.Equal(t, 1, f.ActiveCheckpoint)
}

func TestStateAtEnd(t *testing.T) {
	f := StateAt(fixtureLog(), start, 2, 30*time.Second)

	assert.Equal(t, geoquest.LatLng{Lat: 59.002, Lng: 18.0}, f.Positions["alice"])
	assert.Equal(t, geoquest.LatLng{Lat: 59.002, Lng: 18.1}, f.Positions["bob"])
	assert.Equal(t, []int{0, 1}, f.Solved)
	assert.Equal(t, -1, f.ActiveCheckpoint, "all solved means no active checkpoint")
}

func TestStateAtLastValueWins(t *testing.T) {
	events := []geoquest.Event{
		move("alice", 0, 1, 1),
		move("alice", 1, 2, 2),
		move("alice", 2, 3, 3),
	}
	f := StateAt(events, start, 0, 90*time.Second)
	assert.Equal(t, geoquest.LatLng{Lat: 3, Lng: 3}, f.Positions["alice"])
}

func TestStateAtCutoffIsInclusive(t *testing.T) {
	f := StateAt(fixtureLog(), start, 2, 12*time.Second)
	assert.Equal(t, []int{0}, f.Solved, "an event exactly at the cutoff counts")
}

func TestStateAtDeterministic(t *testing.T) {
	log := fixtureLog()
	first := StateAt(log, start, 2, 15*time.Second)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, StateAt(log, start, 2, 15*time.Second))
	}
}

func TestStateAtDuplicateSolvesCollapse(t *testing.T) {
	events := []geoquest.Event{
		solve("alice", 1, 0),
		solve("bob", 2, 0),
	}
	f := StateAt(events, start, 1, time.Minute)
	assert.Equal(t, []int{0}, f.Solved)
	assert.Equal(t, -1, f.ActiveCheckpoint)
}

func TestStateAtNegativeOffsetClamps(t *testing.T) {
	f := StateAt(fixtureLog(), start, 2, -time.Second)
	assert.Zero(t, f.Offset)
}

func TestDuration(t *testing.T) {
	fin := at(300)
	s := &geoquest.Session{StartedAt: &start, FinishedAt: &fin}
	assert.Equal(t, 5*time.Minute, Duration(s))

	assert.Zero(t, Duration(&geoquest.Session{StartedAt: &start}))
	assert.Zero(t, Duration(&geoquest.Session{}))
}

func TestClockAdvanceAndClamp(t *testing.T) {
	c := NewClock(10 * time.Second)
	c.Play()

	assert.Equal(t, 2*time.Second, c.Advance(2*time.Second))

	c.SetSpeed(4)
	assert.Equal(t, 10*time.Second, c.Advance(5*time.Second), "2s + 5s*4 overshoots and clamps")
	assert.True(t, c.AtEnd())
	assert.False(t, c.Playing(), "reaching the end pauses playback")

	// Further advances stay parked at the end.
	assert.Equal(t, 10*time.Second, c.Advance(time.Second))
}

func TestClockPausedDoesNotAdvance(t *testing.T) {
	c := NewClock(10 * time.Second)
	require.False(t, c.Playing())
	assert.Zero(t, c.Advance(time.Second))
}

func TestClockSeekClampsAndIsIdempotent(t *testing.T) {
	c := NewClock(10 * time.Second)

	c.Seek(-time.Second)
	assert.Zero(t, c.Offset())

	c.Seek(4 * time.Second)
	c.Seek(4 * time.Second)
	assert.Equal(t, 4*time.Second, c.Offset())

	c.Seek(time.Minute)
	assert.Equal(t, 10*time.Second, c.Offset())
}

func TestClockIgnoresBadSpeed(t *testing.T) {
	c := NewClock(time.Minute)
	c.SetSpeed(0)
	c.SetSpeed(-3)
	assert.Equal(t, 1.0, c.Speed())
}
