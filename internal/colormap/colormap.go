// Package colormap assigns trail and slice colours.
package colormap

import (
	"fmt"
	"math"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/banshee-data/derbyviz/internal/dataset"
	"github.com/banshee-data/derbyviz/internal/trajectory"
)

// Mode selects how ColorOf colours a hit.
type Mode string

const (
	ModeVelocity Mode = "velocity"
	ModeDistance Mode = "distance"
	ModeRound    Mode = "round"
	ModePlayer   Mode = "player"
	ModeIndex    Mode = "index"
)

// ParseMode maps a user string to a Mode. Anything unrecognised colours by
// presentation index.
func ParseMode(s string) Mode {
	switch m := Mode(s); m {
	case ModeVelocity, ModeDistance, ModeRound, ModePlayer:
		return m
	default:
		return ModeIndex
	}
}

// RGB is an 8-bit colour.
type RGB struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// Hex returns the colour as #rrggbb.
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func fromColorful(c colorful.Color) RGB {
	r, g, b := c.Clamped().RGB255()
	return RGB{R: r, G: g, B: b}
}

// Scale is a sequential colour scale sampled by linear interpolation between
// evenly spaced stops.
type Scale []colorful.Color

// At returns the colour at n, clamped to [0,1]. NaN maps to the low end.
func (s Scale) At(n float64) RGB {
	if len(s) == 0 {
		return RGB{}
	}
	if math.IsNaN(n) || n < 0 {
		n = 0
	}
	if n > 1 {
		n = 1
	}
	pos := n * float64(len(s)-1)
	i := int(math.Floor(pos))
	if i >= len(s)-1 {
		return fromColorful(s[len(s)-1])
	}
	return fromColorful(s[i].BlendRgb(s[i+1], pos-float64(i)))
}

// Reversed returns s with its direction flipped.
func (s Scale) Reversed() Scale {
	r := make(Scale, len(s))
	for i, c := range s {
		r[len(s)-1-i] = c
	}
	return r
}

// Palette is a categorical colour list.
type Palette []RGB

// At returns the colour at i modulo the palette length; negative indexes
// wrap from the end.
func (p Palette) At(i int) RGB {
	if len(p) == 0 {
		return RGB{}
	}
	i %= len(p)
	if i < 0 {
		i += len(p)
	}
	return p[i]
}

func mustHex(h string) colorful.Color {
	c, err := colorful.Hex(h)
	if err != nil {
		panic(fmt.Sprintf("colormap: bad hex colour %q: %v", h, err))
	}
	return c
}

func mustScale(hexes ...string) Scale {
	s := make(Scale, len(hexes))
	for i, h := range hexes {
		s[i] = mustHex(h)
	}
	return s
}

func mustPalette(hexes ...string) Palette {
	p := make(Palette, len(hexes))
	for i, h := range hexes {
		p[i] = fromColorful(mustHex(h))
	}
	return p
}

// YlOrRd is the ColorBrewer yellow-orange-red sequential scale.
var YlOrRd = mustScale(
	"#ffffcc", "#ffeda0", "#fed976", "#feb24c", "#fd8d3c",
	"#fc4e2a", "#e31a1c", "#bd0026", "#800026",
)

// Tab20 is the 20-colour categorical palette used for players and indexes.
var Tab20 = mustPalette(
	"#1f77b4", "#aec7e8", "#ff7f0e", "#ffbb78", "#2ca02c",
	"#98df8a", "#d62728", "#ff9896", "#9467bd", "#c5b0d5",
	"#8c564b", "#c49c94", "#e377c2", "#f7b6d2", "#7f7f7f",
	"#c7c7c7", "#bcbd22", "#dbdb8d", "#17becf", "#9edae5",
)

// Rounds has one colour per tournament round.
var Rounds = mustPalette("#1b9e77", "#d95f02", "#7570b3")

// Palettes groups the categorical palettes ColorOf draws from.
type Palettes struct {
	Round  Palette
	Player Palette
	Index  Palette
}

// DefaultPalettes returns the standard palette set.
func DefaultPalettes() Palettes {
	return Palettes{Round: Rounds, Player: Tab20, Index: Tab20}
}

// Ordinals resolves a player's stable first-seen ordinal.
type Ordinals interface {
	Ordinal(playerID string) (int, bool)
}

// Normalize maps v into [0,1] against [lo,hi]. A degenerate range
// normalises to 0.
func Normalize(v, lo, hi float64) float64 {
	if hi == lo || math.IsNaN(v) {
		return 0
	}
	n := (v - lo) / (hi - lo)
	return math.Max(0, math.Min(1, n))
}

var ylOrRdReversed = YlOrRd.Reversed()

// ColorOf returns the trail colour for h at presentation index idx. A player
// without an ordinal falls back to index colouring.
func ColorOf(h *trajectory.Hit, idx int, mode Mode, b dataset.Bounds, p Palettes, ord Ordinals) RGB {
	switch mode {
	case ModeVelocity:
		return YlOrRd.At(Normalize(h.ExitVelocity(), b.ExitVelocityMin, b.ExitVelocityMax))
	case ModeDistance:
		return ylOrRdReversed.At(Normalize(h.ProjectedDistance(), b.DistanceMin, b.DistanceMax))
	case ModeRound:
		return p.Round.At(h.RoundID - 1)
	case ModePlayer:
		if ord != nil {
			if o, ok := ord.Ordinal(h.PlayerID); ok {
				return p.Player.At(o)
			}
		}
	}
	return p.Index.At(idx)
}
