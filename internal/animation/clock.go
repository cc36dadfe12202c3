// Package animation holds the replay clock and the frame driver that
// advances it.
package animation

// Defaults used when a Clock is built with zero values.
const (
	DefaultTrailWindow           = 2.0
	DefaultPausedTrailMultiplier = 100.0
)

// Clock is the replay clock. It has two states: Playing, where Step advances
// the current time and loops after the last arc's trail has faded, and
// Paused, where the current time is pinned to the loop end and the trail
// window is widened so every arc renders in full.
//
// Clock performs no scheduling and is not safe for concurrent use; the scene
// controller serialises access.
type Clock struct {
	currentTime float64
	trailWindow float64
	maxTime     float64
	playing     bool

	defaultTrail     float64
	pausedMultiplier float64
}

// NewClock returns a playing clock at time 0. Non-positive arguments select
// the defaults.
func NewClock(trailWindow, pausedMultiplier float64) *Clock {
	if trailWindow <= 0 {
		trailWindow = DefaultTrailWindow
	}
	if pausedMultiplier <= 0 {
		pausedMultiplier = DefaultPausedTrailMultiplier
	}
	return &Clock{
		trailWindow:      trailWindow,
		playing:          true,
		defaultTrail:     trailWindow,
		pausedMultiplier: pausedMultiplier,
	}
}

// Step advances the clock by dt seconds and reports whether it looped back
// to zero.
func (c *Clock) Step(dt float64) (wrapped bool) {
	if !c.playing {
		c.currentTime = c.maxTime
		return false
	}
	c.currentTime += dt
	if c.currentTime > c.maxTime+c.trailWindow {
		c.currentTime = 0
		return true
	}
	return false
}

// SetPlaying switches state. Entering Playing restarts from zero with the
// default trail; entering Paused pins to the loop end.
func (c *Clock) SetPlaying(playing bool) {
	c.playing = playing
	if playing {
		c.currentTime = 0
		c.trailWindow = c.defaultTrail
		return
	}
	c.pin()
}

// Reset rewinds to zero without changing state.
func (c *Clock) Reset() {
	c.currentTime = 0
}

// SetMaxTime sets the loop end, normally Bounds.MaxEndTime of the active
// view. A paused clock is re-pinned to the new end.
func (c *Clock) SetMaxTime(m float64) {
	c.maxTime = m
	if !c.playing {
		c.pin()
	}
}

func (c *Clock) pin() {
	c.currentTime = c.maxTime
	c.trailWindow = c.maxTime * c.pausedMultiplier
}

func (c *Clock) CurrentTime() float64 { return c.currentTime }
func (c *Clock) TrailWindow() float64 { return c.trailWindow }
func (c *Clock) MaxTime() float64     { return c.maxTime }
func (c *Clock) Playing() bool        { return c.playing }
