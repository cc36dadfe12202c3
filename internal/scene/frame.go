package scene

import (
	"github.com/banshee-data/derbyviz/internal/colormap"
)

// Arc is one hit's animated path.
type Arc struct {
	HitID    string `json:"hit_id"`
	PlayerID string `json:"player_id"`
	RoundID  int    `json:"round_id"`
	// Path is in scene units.
	Path [][3]float64 `json:"path"`
	// Timestamps are sample times offset by the hit's stagger.
	Timestamps []float64    `json:"timestamps"`
	Color      colormap.RGB `json:"color"`
}

// SliceMarker is where one hit crosses the slice plane.
type SliceMarker struct {
	HitID    string       `json:"hit_id"`
	Position [3]float64   `json:"position"`
	Radius   float64      `json:"radius"`
	Fill     colormap.RGB `json:"fill"`
}

// Frame is an immutable snapshot of everything the renderer needs for one
// tick. Frames are safe to share between goroutines once built.
type Frame struct {
	Seq          uint64        `json:"seq"`
	CurrentTime  float64       `json:"current_time"`
	TrailWindow  float64       `json:"trail_window"`
	Playing      bool          `json:"playing"`
	ShowTrails   bool          `json:"show_trails"`
	ShowSlices   bool          `json:"show_slices"`
	TrailOpacity float64       `json:"trail_opacity"`
	Mode         colormap.Mode `json:"mode"`
	SlicePlane   float64       `json:"slice_plane_ft"`
	Arcs         []Arc         `json:"arcs"`
	Slices       []SliceMarker `json:"slices"`
}

// hiddenTrailOpacity is the trail layer opacity while trails are toggled off.
const hiddenTrailOpacity = 0.01
