package scene

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/derbyviz/internal/colormap"
	"github.com/banshee-data/derbyviz/internal/config"
	"github.com/banshee-data/derbyviz/internal/dataset"
	"github.com/banshee-data/derbyviz/internal/trajectory"
	"github.com/banshee-data/derbyviz/internal/units"
)

func threeSampleHit(id, player string, round int, ev float64) *trajectory.Hit {
	return &trajectory.Hit{
		ID:       id,
		PlayerID: player,
		RoundID:  round,
		X:        []float64{0, 1, 2},
		Y:        []float64{0, 5, 10},
		Z:        []float64{3, 20, 40},
		T:        []float64{0, 1, 2},
		Speeds:   []float64{100, 90, 80},
		Metrics: map[string]trajectory.Metric{
			trajectory.MetricExitVelocity:      {Value: ev},
			trajectory.MetricProjectedDistance: {Value: ev * 4},
		},
	}
}

// twoPlayerDataset has two players with one round of one three-sample hit
// each.
func twoPlayerDataset(t *testing.T) *dataset.Dataset {
	t.Helper()
	d := dataset.New()
	d.AddPlayer("p1", "Alice")
	d.AddPlayer("p2", "Bob")
	require.NoError(t, d.AddHit(threeSampleHit("h1", "p1", 1, 100)))
	require.NoError(t, d.AddHit(threeSampleHit("h2", "p2", 1, 110)))
	return d
}

func newTestController(t *testing.T) *Controller {
	t.Helper()
	opts := OptionsFromConfig(config.DefaultDerbyConfig())
	c, err := NewController(twoPlayerDataset(t), opts)
	require.NoError(t, err)
	return c
}

func TestController_SliceEndToEnd(t *testing.T) {
	c := newTestController(t)
	c.SetSlicePlane(7)

	hits := c.ActiveHits()
	require.Len(t, hits, 2)
	for _, h := range hits {
		assert.Equal(t, trajectory.Bracket{Low: 1, High: 2}, h.SliceBracket)
		p := h.SliceAt(7)
		assert.InDelta(t, 1.4, p.X, 1e-12)
		assert.InDelta(t, 86.0, p.Speed, 1e-12)
	}

	f := c.Frame()
	require.Len(t, f.Slices, 2)
	assert.InDelta(t, units.FeetToScene(1.4), f.Slices[0].Position[0], 1e-12)
	assert.InDelta(t, units.FeetToScene(7), f.Slices[0].Position[1], 1e-12)
	assert.InDelta(t, 86.0/200, f.Slices[0].Radius, 1e-12)
	assert.Equal(t, colormap.YlOrRd.At(f.Slices[0].Radius), f.Slices[0].Fill)
}

func TestController_BoundsOnFilterChange(t *testing.T) {
	c := newTestController(t)

	b, v1 := c.Bounds()
	assert.Equal(t, 100.0, b.ExitVelocityMin)
	assert.Equal(t, 110.0, b.ExitVelocityMax)
	assert.InDelta(t, 2.05, b.MaxEndTime, 1e-12)

	require.NoError(t, c.SetFilter(dataset.Filter{PlayerID: "p2", RoundID: dataset.All}))
	b, v2 := c.Bounds()
	assert.Greater(t, v2, v1)
	assert.Equal(t, b.ExitVelocityMin, b.ExitVelocityMax)
	assert.Equal(t, 2.0, b.MaxEndTime)

	f := c.Frame()
	require.Len(t, f.Arcs, 1)
	assert.Equal(t, "h2", f.Arcs[0].HitID)
}

func TestController_FilterChangeRestartsClock(t *testing.T) {
	c := newTestController(t)

	c.Advance(1.5)
	require.NoError(t, c.SetFilter(dataset.Filter{PlayerID: "p2", RoundID: dataset.All}))
	assert.Equal(t, 0.0, c.Frame().CurrentTime)
	assert.True(t, c.Frame().Playing)

	c.Advance(1.0)
	require.Error(t, c.SetFilter(dataset.Filter{PlayerID: "nobody", RoundID: dataset.All}))
	assert.Equal(t, 1.0, c.Frame().CurrentTime, "a rejected filter keeps the time")

	c.SetPlaying(false)
	require.NoError(t, c.SetFilter(dataset.AllHits))
	f := c.Frame()
	assert.False(t, f.Playing)
	assert.InDelta(t, 2.05, f.CurrentTime, 1e-12)
	assert.InDelta(t, 205.0, f.TrailWindow, 1e-9)
}

func TestController_BadFilterKeepsView(t *testing.T) {
	c := newTestController(t)
	err := c.SetFilter(dataset.Filter{PlayerID: "nobody", RoundID: dataset.All})
	assert.ErrorIs(t, err, dataset.ErrUnknownPlayer)
	assert.Equal(t, dataset.AllHits, c.Filter())
	assert.Len(t, c.ActiveHits(), 2)
}

func TestController_EmptyView(t *testing.T) {
	c := newTestController(t)
	require.NoError(t, c.SetFilter(dataset.Filter{PlayerID: "p1", RoundID: "3"}))

	b, _ := c.Bounds()
	assert.Equal(t, dataset.Bounds{}, b)

	f := c.Frame()
	assert.Empty(t, f.Arcs)
	assert.Empty(t, f.Slices)
	c.Advance(1)
}

func TestController_ArcTimestampsStaggered(t *testing.T) {
	c := newTestController(t)
	f := c.Frame()
	require.Len(t, f.Arcs, 2)

	assert.Equal(t, []float64{0, 1, 2}, f.Arcs[0].Timestamps)
	assert.InDeltaSlice(t, []float64{0.05, 1.05, 2.05}, f.Arcs[1].Timestamps, 1e-12)
	assert.Equal(t, units.PointToScene(2, 10, 40), f.Arcs[0].Path[2])
}

func TestController_PlayerColorsStable(t *testing.T) {
	c := newTestController(t)
	first := c.Frame()
	assert.Equal(t, colormap.Tab20[0], first.Arcs[0].Color)
	assert.Equal(t, colormap.Tab20[1], first.Arcs[1].Color)

	// Filtering to p2 alone keeps p2's colour.
	require.NoError(t, c.SetFilter(dataset.Filter{PlayerID: "p2", RoundID: "1"}))
	assert.Equal(t, colormap.Tab20[1], c.Frame().Arcs[0].Color)
}

func TestController_ModeChange(t *testing.T) {
	c := newTestController(t)
	c.SetMode(colormap.ModeVelocity)
	f := c.Frame()
	assert.Equal(t, colormap.ModeVelocity, f.Mode)
	assert.Equal(t, "#ffffcc", f.Arcs[0].Color.Hex())
	assert.Equal(t, "#800026", f.Arcs[1].Color.Hex())
}

func TestController_PlaybackAndVisibility(t *testing.T) {
	c := newTestController(t)

	c.Advance(1.5)
	assert.Equal(t, 1.5, c.Frame().CurrentTime)

	c.SetPlaying(false)
	f := c.Frame()
	assert.False(t, f.Playing)
	assert.InDelta(t, 2.05, f.CurrentTime, 1e-12)
	assert.InDelta(t, 205.0, f.TrailWindow, 1e-9)

	c.Replay()
	assert.Equal(t, 0.0, c.Frame().CurrentTime)

	c.SetPlaying(true)
	assert.Equal(t, 2.0, c.Frame().TrailWindow)

	c.SetVisibility(false, true)
	f = c.Frame()
	assert.False(t, f.ShowTrails)
	assert.True(t, f.ShowSlices)
	assert.Equal(t, 0.01, f.TrailOpacity)
}

func TestController_OnFrame(t *testing.T) {
	c := newTestController(t)
	var got []*Frame
	c.OnFrame(func(f *Frame) { got = append(got, f) })

	c.Advance(0.5)
	c.Advance(0.5)
	require.Len(t, got, 2)
	assert.Less(t, got[0].Seq, got[1].Seq)
	assert.Equal(t, 1.0, got[1].CurrentTime)
}

func TestController_SetDatasetKeepsFilter(t *testing.T) {
	c := newTestController(t)
	require.NoError(t, c.SetFilter(dataset.Filter{PlayerID: "p1", RoundID: dataset.All}))

	require.NoError(t, c.SetDataset(twoPlayerDataset(t)))
	assert.Equal(t, "p1", c.Filter().PlayerID)

	other := dataset.New()
	other.AddPlayer("p3", "Cy")
	require.NoError(t, other.AddHit(threeSampleHit("h3", "p3", 2, 95)))
	require.NoError(t, c.SetDataset(other))
	assert.Equal(t, dataset.AllHits, c.Filter())
	assert.Len(t, c.ActiveHits(), 1)

	assert.ErrorIs(t, c.SetDataset(nil), ErrNoDataset)
}

func TestController_NoDataset(t *testing.T) {
	c, err := NewController(nil, Options{})
	require.NoError(t, err)
	assert.ErrorIs(t, c.SetFilter(dataset.AllHits), ErrNoDataset)
	f := c.Frame()
	assert.Empty(t, f.Arcs)
	c.SetSlicePlane(10)
	assert.Equal(t, 10.0, c.SlicePlane())
}

func TestController_ColoredHits(t *testing.T) {
	c := newTestController(t)

	hits, colors := c.ColoredHits()
	require.Len(t, hits, 2)
	require.Len(t, colors, 2)
	assert.Equal(t, colormap.Tab20.At(0), colors[0])
	assert.Equal(t, colormap.Tab20.At(1), colors[1])

	require.NoError(t, c.SetFilter(dataset.Filter{PlayerID: "p2", RoundID: dataset.All}))
	hits, colors = c.ColoredHits()
	require.Len(t, hits, 1)
	assert.Equal(t, "h2", hits[0].ID)
	assert.Equal(t, colormap.Tab20.At(1), colors[0])
}
