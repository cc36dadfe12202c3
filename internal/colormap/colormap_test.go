package colormap

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/derbyviz/internal/dataset"
	"github.com/banshee-data/derbyviz/internal/trajectory"
)

type ordinalMap map[string]int

func (m ordinalMap) Ordinal(id string) (int, bool) {
	o, ok := m[id]
	return o, ok
}

func hit(player string, round int, ev, dist float64) *trajectory.Hit {
	return &trajectory.Hit{
		PlayerID: player,
		RoundID:  round,
		Metrics: map[string]trajectory.Metric{
			trajectory.MetricExitVelocity:      {Value: ev},
			trajectory.MetricProjectedDistance: {Value: dist},
		},
	}
}

var testBounds = dataset.Bounds{
	ExitVelocityMin: 90, ExitVelocityMax: 110,
	DistanceMin: 380, DistanceMax: 460,
}

func TestParseMode(t *testing.T) {
	assert.Equal(t, ModeVelocity, ParseMode("velocity"))
	assert.Equal(t, ModePlayer, ParseMode("player"))
	assert.Equal(t, ModeIndex, ParseMode("index"))
	assert.Equal(t, ModeIndex, ParseMode("rainbow"))
	assert.Equal(t, ModeIndex, ParseMode(""))
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name      string
		v, lo, hi float64
		want      float64
	}{
		{"low end", 90, 90, 110, 0},
		{"midpoint", 100, 90, 110, 0.5},
		{"high end", 110, 90, 110, 1},
		{"below clamps", 50, 90, 110, 0},
		{"above clamps", 150, 90, 110, 1},
		{"degenerate range", 100, 100, 100, 0},
		{"nan", math.NaN(), 0, 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.v, tt.lo, tt.hi)
			assert.False(t, math.IsNaN(got))
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestMustHex(t *testing.T) {
	assert.Equal(t, RGB{R: 0x1f, G: 0x77, B: 0xb4}, fromColorful(mustHex("#1f77b4")))
	assert.Equal(t, RGB{R: 0xff, G: 0xff, B: 0xcc}, YlOrRd.At(0))
	assert.Equal(t, RGB{R: 0x80, G: 0x00, B: 0x26}, YlOrRd.At(1))
	assert.Panics(t, func() { mustHex("not-a-colour") })
}

func TestScale_At(t *testing.T) {
	assert.Equal(t, "#ffffcc", YlOrRd.At(0).Hex())
	assert.Equal(t, "#800026", YlOrRd.At(1).Hex())
	assert.Equal(t, "#fd8d3c", YlOrRd.At(0.5).Hex())
	assert.Equal(t, YlOrRd.At(0), YlOrRd.At(-3))
	assert.Equal(t, YlOrRd.At(1), YlOrRd.At(7))
	assert.Equal(t, YlOrRd.At(0), YlOrRd.At(math.NaN()))
	assert.Equal(t, RGB{}, Scale(nil).At(0.5))

	// Between stops the channels move monotonically toward the next stop.
	lo, mid, hi := YlOrRd.At(0), YlOrRd.At(1.0/16), YlOrRd.At(1.0/8)
	assert.LessOrEqual(t, hi.B, mid.B)
	assert.LessOrEqual(t, mid.B, lo.B)
}

func TestPalette_At(t *testing.T) {
	assert.Equal(t, Tab20[0], Tab20.At(20))
	assert.Equal(t, Tab20[19], Tab20.At(-1))
	assert.Equal(t, Rounds[2], Rounds.At(5))
	assert.Equal(t, RGB{}, Palette(nil).At(3))
}

func TestColorOf_VelocityAndDistance(t *testing.T) {
	p := DefaultPalettes()
	slow := hit("p1", 1, 90, 460)
	fast := hit("p1", 1, 110, 380)

	assert.Equal(t, "#ffffcc", ColorOf(slow, 0, ModeVelocity, testBounds, p, nil).Hex())
	assert.Equal(t, "#800026", ColorOf(fast, 0, ModeVelocity, testBounds, p, nil).Hex())

	// distance runs the scale backwards
	assert.Equal(t, "#800026", ColorOf(fast, 0, ModeDistance, testBounds, p, nil).Hex())
	assert.Equal(t, "#ffffcc", ColorOf(slow, 0, ModeDistance, testBounds, p, nil).Hex())
}

func TestColorOf_SingleHitBounds(t *testing.T) {
	h := hit("p1", 1, 101, 410)
	b := dataset.Bounds{ExitVelocityMin: 101, ExitVelocityMax: 101, DistanceMin: 410, DistanceMax: 410}
	p := DefaultPalettes()

	assert.Equal(t, YlOrRd.At(0), ColorOf(h, 0, ModeVelocity, b, p, nil))
	assert.Equal(t, YlOrRd.Reversed().At(0), ColorOf(h, 0, ModeDistance, b, p, nil))
}

func TestColorOf_Round(t *testing.T) {
	p := DefaultPalettes()
	a := ColorOf(hit("p1", 2, 0, 0), 0, ModeRound, testBounds, p, nil)
	b := ColorOf(hit("p9", 2, 0, 0), 7, ModeRound, testBounds, p, nil)
	assert.Equal(t, a, b)
	assert.Equal(t, Rounds[1], a)
	assert.Equal(t, Rounds[0], ColorOf(hit("p1", 4, 0, 0), 0, ModeRound, testBounds, p, nil))
	assert.Equal(t, Rounds[2], ColorOf(hit("p1", 0, 0, 0), 0, ModeRound, testBounds, p, nil))
}

func TestColorOf_PlayerStable(t *testing.T) {
	p := DefaultPalettes()
	ord := ordinalMap{"zed": 0, "ann": 1, "far": 21}

	first := ColorOf(hit("ann", 1, 0, 0), 0, ModePlayer, testBounds, p, ord)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, ColorOf(hit("ann", 3, 0, 0), i, ModePlayer, testBounds, p, ord))
	}
	assert.Equal(t, Tab20[1], first)
	assert.Equal(t, Tab20[1], ColorOf(hit("far", 1, 0, 0), 0, ModePlayer, testBounds, p, ord))

	// unknown player falls back to the index palette
	assert.Equal(t, Tab20[4], ColorOf(hit("ghost", 1, 0, 0), 4, ModePlayer, testBounds, p, ord))
}

func TestColorOf_Index(t *testing.T) {
	p := DefaultPalettes()
	h := hit("p1", 1, 100, 400)
	assert.Equal(t, Tab20[3], ColorOf(h, 3, ModeIndex, testBounds, p, nil))
	assert.Equal(t, Tab20[3], ColorOf(h, 23, Mode("bogus"), testBounds, p, nil))
}

func TestCache(t *testing.T) {
	view := &dataset.View{Hits: []*trajectory.Hit{
		hit("p1", 1, 90, 400),
		hit("p2", 2, 110, 420),
	}}
	p := DefaultPalettes()
	var c Cache

	got := c.Colors(view, ModeVelocity, 1, testBounds, p, nil)
	require.Len(t, got, 2)
	assert.Equal(t, "#ffffcc", got[0].Hex())

	again := c.Colors(view, ModeVelocity, 1, testBounds, p, nil)
	assert.Same(t, &got[0], &again[0])

	byRound := c.Colors(view, ModeRound, 1, testBounds, p, nil)
	assert.Equal(t, Rounds[1], byRound[1])

	newer := c.Colors(view, ModeRound, 2, testBounds, p, nil)
	assert.NotSame(t, &byRound[0], &newer[0])

	c.Invalidate()
	assert.Len(t, c.Colors(&dataset.View{}, ModeRound, 2, testBounds, p, nil), 0)
}
