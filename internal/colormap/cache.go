package colormap

import (
	"github.com/banshee-data/derbyviz/internal/dataset"
)

type cacheKey struct {
	mode          Mode
	boundsVersion uint64
}

// Cache memoises the colours of one view. Callers bump boundsVersion
// whenever the view or its bounds change; a mode or version change
// recomputes every colour.
type Cache struct {
	key    cacheKey
	colors []RGB
	valid  bool
}

// Colors returns the trail colour of every hit in view, in view order.
func (c *Cache) Colors(view *dataset.View, mode Mode, boundsVersion uint64, b dataset.Bounds, p Palettes, ord Ordinals) []RGB {
	key := cacheKey{mode: mode, boundsVersion: boundsVersion}
	if c.valid && c.key == key && len(c.colors) == view.Len() {
		return c.colors
	}
	colors := make([]RGB, view.Len())
	for i := 0; i < view.Len(); i++ {
		colors[i] = ColorOf(view.Hits[i], i, mode, b, p, ord)
	}
	c.key, c.colors, c.valid = key, colors, true
	return colors
}

// Invalidate drops the cached colours.
func (c *Cache) Invalidate() {
	c.valid = false
	c.colors = nil
}
