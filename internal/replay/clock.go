package replay

import "time"

// Clock drives playback of a reconstructed session. It is passive: callers
// feed it wall-clock deltas via Advance and read the virtual offset back.
// Advancing past the total duration pauses at the end.
type Clock struct {
	duration time.Duration
	offset   time.Duration
	speed    float64
	playing  bool
}

func NewClock(duration time.Duration) *Clock {
	if duration < 0 {
		duration = 0
	}
	return &Clock{duration: duration, speed: 1}
}

// SetSpeed sets the playback multiplier. Non-positive values are ignored.
func (c *Clock) SetSpeed(speed float64) {
	if speed > 0 {
		c.speed = speed
	}
}

func (c *Clock) Speed() float64 { return c.speed }

func (c *Clock) Play()  { c.playing = true }
func (c *Clock) Pause() { c.playing = false }

// Playing reports whether Advance currently moves the offset.
func (c *Clock) Playing() bool { return c.playing }

// Offset returns the current virtual offset, always within [0, duration].
func (c *Clock) Offset() time.Duration { return c.offset }

// AtEnd reports whether playback reached the total duration.
func (c *Clock) AtEnd() bool { return c.offset >= c.duration }

// Seek scrubs to an absolute offset, clamped to [0, duration]. Seeking is
// idempotent and independent of the play state.
func (c *Clock) Seek(t time.Duration) {
	if t < 0 {
		t = 0
	}
	if t > c.duration {
		t = c.duration
	}
	c.offset = t
}

// Advance moves playback by wall * speed. When the end is reached the clock
// clamps there and pauses. Returns the new offset.
func (c *Clock) Advance(wall time.Duration) time.Duration {
	if !c.playing || wall <= 0 {
		return c.offset
	}
	c.offset += time.Duration(float64(wall) * c.speed)
	if c.offset >= c.duration {
		c.offset = c.duration
		c.playing = false
	}
	return c.offset
}
