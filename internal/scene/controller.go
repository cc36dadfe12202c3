// Package scene owns the replay state: the loaded dataset, the active filter
// and its view, bounds, the animation clock, the slice plane and the display
// toggles. Every mutation and frame build is serialised by one mutex so the
// frame driver, HTTP handlers and stream publisher can share a Controller.
package scene

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/banshee-data/derbyviz/internal/animation"
	"github.com/banshee-data/derbyviz/internal/colormap"
	"github.com/banshee-data/derbyviz/internal/config"
	"github.com/banshee-data/derbyviz/internal/dataset"
	"github.com/banshee-data/derbyviz/internal/metrics"
	"github.com/banshee-data/derbyviz/internal/trajectory"
	"github.com/banshee-data/derbyviz/internal/units"
)

// ErrNoDataset is returned by operations that need a dataset before one is
// loaded.
var ErrNoDataset = errors.New("no dataset loaded")

// Options are the controller's tunables.
type Options struct {
	Stagger            float64
	TrailWindow        float64
	PausedMultiplier   float64
	SlicePlane         float64
	SpeedRadiusDivisor float64
	Mode               colormap.Mode
	ShowTrails         bool
	ShowSlices         bool
	Palettes           colormap.Palettes
}

// OptionsFromConfig maps a DerbyConfig onto controller options.
func OptionsFromConfig(cfg *config.DerbyConfig) Options {
	return Options{
		Stagger:            cfg.GetStaggerSeconds(),
		TrailWindow:        cfg.GetTrailWindowSeconds(),
		PausedMultiplier:   cfg.GetPausedTrailMultiplier(),
		SlicePlane:         cfg.GetSlicePlaneFt(),
		SpeedRadiusDivisor: cfg.GetSpeedRadiusDivisor(),
		Mode:               colormap.ParseMode(cfg.GetColorMode()),
		ShowTrails:         cfg.GetShowTrails(),
		ShowSlices:         cfg.GetShowSlices(),
		Palettes:           colormap.DefaultPalettes(),
	}
}

// Controller is the single owner of mutable replay state.
type Controller struct {
	mu sync.Mutex

	opts Options

	data          *dataset.Dataset
	filter        dataset.Filter
	view          *dataset.View
	bounds        dataset.Bounds
	boundsVersion uint64

	clock      *animation.Clock
	plane      float64
	mode       colormap.Mode
	showTrails bool
	showSlices bool

	colors colormap.Cache
	seq    uint64

	onFrame func(*Frame)
}

// NewController creates a controller showing every hit in d. d may be nil
// until a dataset is loaded.
func NewController(d *dataset.Dataset, opts Options) (*Controller, error) {
	if opts.SpeedRadiusDivisor <= 0 {
		opts.SpeedRadiusDivisor = 200
	}
	if len(opts.Palettes.Index) == 0 {
		opts.Palettes = colormap.DefaultPalettes()
	}
	c := &Controller{
		opts:       opts,
		filter:     dataset.AllHits,
		clock:      animation.NewClock(opts.TrailWindow, opts.PausedMultiplier),
		plane:      opts.SlicePlane,
		mode:       opts.Mode,
		showTrails: opts.ShowTrails,
		showSlices: opts.ShowSlices,
	}
	if c.mode == "" {
		c.mode = colormap.ModePlayer
	}
	if d != nil {
		if err := c.SetDataset(d); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// SetDataset swaps in a new dataset, keeping the current filter when it
// still applies and falling back to all hits otherwise.
func (c *Controller) SetDataset(d *dataset.Dataset) error {
	if d == nil {
		return ErrNoDataset
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data = d
	if err := c.rebuildLocked(c.filter); err != nil {
		log.Printf("[scene] filter %+v no longer applies, showing all hits: %v", c.filter, err)
		return c.rebuildLocked(dataset.AllHits)
	}
	return nil
}

// Dataset returns the loaded dataset.
func (c *Controller) Dataset() *dataset.Dataset {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.data
}

// SetFilter rebuilds the view and restarts playback from zero. A paused
// clock stays pinned to the new view's loop end. On error the previous view
// and time stay active.
func (c *Controller) SetFilter(f dataset.Filter) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.data == nil {
		return ErrNoDataset
	}
	if err := c.rebuildLocked(f); err != nil {
		return err
	}
	if c.clock.Playing() {
		c.clock.Reset()
	}
	return nil
}

// rebuildLocked builds the view for f, recomputes bounds and the loop end,
// refreshes slice brackets and invalidates cached colours.
func (c *Controller) rebuildLocked(f dataset.Filter) error {
	view, err := c.data.View(f)
	if err != nil {
		return fmt.Errorf("failed to build view: %w", err)
	}

	bounds, err := dataset.ComputeBounds(view, c.opts.Stagger)
	if errors.Is(err, dataset.ErrEmptyView) {
		bounds = dataset.Bounds{}
	} else if err != nil {
		return err
	}

	c.filter = f
	c.view = view
	c.bounds = bounds
	c.boundsVersion++
	c.clock.SetMaxTime(bounds.MaxEndTime)
	for _, h := range view.Hits {
		h.UpdateSlice(c.plane)
	}
	c.colors.Invalidate()

	metrics.ViewRebuilds.Inc()
	metrics.ViewSize.Set(float64(view.Len()))
	return nil
}

// Filter returns the active filter.
func (c *Controller) Filter() dataset.Filter {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filter
}

// Bounds returns the active bounds and their version.
func (c *Controller) Bounds() (dataset.Bounds, uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bounds, c.boundsVersion
}

// ActiveHits returns a copy of the active view's hit list.
func (c *Controller) ActiveHits() []*trajectory.Hit {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.view == nil {
		return nil
	}
	return append([]*trajectory.Hit(nil), c.view.Hits...)
}

// ColoredHits returns the active hits and their colours under the current
// mode, taken together so the two slices always line up.
func (c *Controller) ColoredHits() ([]*trajectory.Hit, []colormap.RGB) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.view.Len() == 0 {
		return nil, nil
	}
	hits := append([]*trajectory.Hit(nil), c.view.Hits...)
	colors := c.colors.Colors(c.view, c.mode, c.boundsVersion, c.bounds, c.opts.Palettes, c.data)
	return hits, append([]colormap.RGB(nil), colors...)
}

// SetSlicePlane moves the slice plane (feet along y) and re-brackets every
// active hit.
func (c *Controller) SetSlicePlane(plane float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.plane = plane
	if c.view == nil {
		return
	}
	for _, h := range c.view.Hits {
		h.UpdateSlice(plane)
	}
}

// SlicePlane returns the slice plane in feet.
func (c *Controller) SlicePlane() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.plane
}

// SetMode changes the colour mode.
func (c *Controller) SetMode(m colormap.Mode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mode = m
}

// SetPlaying toggles play/pause.
func (c *Controller) SetPlaying(playing bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clock.SetPlaying(playing)
}

// Replay rewinds the clock to zero.
func (c *Controller) Replay() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clock.Reset()
}

// SetVisibility sets the trail and slice toggles.
func (c *Controller) SetVisibility(trails, slices bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.showTrails = trails
	c.showSlices = slices
}

// Visibility returns the trail and slice toggles.
func (c *Controller) Visibility() (trails, slices bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.showTrails, c.showSlices
}

// OnFrame registers a hook that receives a frame after every Advance.
func (c *Controller) OnFrame(fn func(*Frame)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onFrame = fn
}

// Advance steps the clock by dt seconds and, when a frame hook is set,
// publishes the resulting frame.
func (c *Controller) Advance(dt float64) {
	c.mu.Lock()
	if c.clock.Step(dt) {
		metrics.ClockWraps.Inc()
	}
	hook := c.onFrame
	var f *Frame
	if hook != nil {
		f = c.frameLocked()
	}
	c.mu.Unlock()

	if hook != nil {
		hook(f)
	}
}

// Frame builds a snapshot of the current state.
func (c *Controller) Frame() *Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frameLocked()
}

func (c *Controller) frameLocked() *Frame {
	start := time.Now()
	c.seq++

	f := &Frame{
		Seq:          c.seq,
		CurrentTime:  c.clock.CurrentTime(),
		TrailWindow:  c.clock.TrailWindow(),
		Playing:      c.clock.Playing(),
		ShowTrails:   c.showTrails,
		ShowSlices:   c.showSlices,
		TrailOpacity: 1,
		Mode:         c.mode,
		SlicePlane:   c.plane,
	}
	if !c.showTrails {
		f.TrailOpacity = hiddenTrailOpacity
	}

	n := c.view.Len()
	if n == 0 {
		return f
	}

	colors := c.colors.Colors(c.view, c.mode, c.boundsVersion, c.bounds, c.opts.Palettes, c.data)
	f.Arcs = make([]Arc, n)
	f.Slices = make([]SliceMarker, n)
	for i, h := range c.view.Hits {
		f.Arcs[i] = buildArc(h, i, c.opts.Stagger, colors[i])
		f.Slices[i] = buildSlice(h, c.plane, c.opts.SpeedRadiusDivisor)
	}

	metrics.FramesBuilt.Inc()
	metrics.FrameBuildSeconds.Observe(time.Since(start).Seconds())
	return f
}

func buildArc(h *trajectory.Hit, idx int, stagger float64, color colormap.RGB) Arc {
	offset := float64(idx) * stagger
	a := Arc{
		HitID:      h.ID,
		PlayerID:   h.PlayerID,
		RoundID:    h.RoundID,
		Path:       make([][3]float64, h.Len()),
		Timestamps: make([]float64, h.Len()),
		Color:      color,
	}
	for i := range h.Y {
		a.Path[i] = units.PointToScene(h.X[i], h.Y[i], h.Z[i])
		a.Timestamps[i] = h.T[i] + offset
	}
	return a
}

func buildSlice(h *trajectory.Hit, plane, divisor float64) SliceMarker {
	p := h.SliceAt(plane)
	ratio := p.Speed / divisor
	return SliceMarker{
		HitID:    h.ID,
		Position: units.PointToScene(p.X, p.Y, p.Z),
		Radius:   ratio,
		Fill:     colormap.YlOrRd.At(ratio),
	}
}
