package animation

import (
	"context"
	"log"
	"time"

	"github.com/banshee-data/derbyviz/internal/timeutil"
)

// DefaultFrameInterval is roughly 60 frames per second.
const DefaultFrameInterval = 16 * time.Millisecond

// Target receives elapsed wall time from the driver.
type Target interface {
	Advance(dt float64)
}

// Driver pumps a Target at a fixed-ish rate. Elapsed time is measured from
// successive ticks, so a stalled tick produces one larger step rather than
// several catch-up steps.
type Driver struct {
	clock    timeutil.Clock
	interval time.Duration
	target   Target

	last time.Time
}

// NewDriver creates a driver. A nil clock uses the wall clock.
func NewDriver(clock timeutil.Clock, interval time.Duration, target Target) *Driver {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	return &Driver{clock: clock, interval: interval, target: target}
}

// Tick advances the target by the time since the previous tick. The first
// tick advances by zero.
func (d *Driver) Tick(now time.Time) {
	var dt float64
	if !d.last.IsZero() {
		dt = now.Sub(d.last).Seconds()
		if dt < 0 {
			dt = 0
		}
	}
	d.last = now
	d.target.Advance(dt)
}

// Run ticks until ctx is cancelled.
func (d *Driver) Run(ctx context.Context) error {
	ticker := d.clock.NewTicker(d.interval)
	defer ticker.Stop()

	log.Printf("[driver] frame driver started, interval %v", d.interval)
	d.Tick(d.clock.Now())
	for {
		select {
		case <-ctx.Done():
			log.Printf("[driver] frame driver stopped")
			return ctx.Err()
		case now := <-ticker.C():
			d.Tick(now)
		}
	}
}
