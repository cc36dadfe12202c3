package dataset

import (
	"errors"
	"math"
)

// ErrEmptyView is returned by ComputeBounds for a view with no hits.
var ErrEmptyView = errors.New("bounds of an empty view are undefined")

// Bounds are the dataset-wide statistics used for colour normalisation and
// the animation loop length.
type Bounds struct {
	ExitVelocityMin float64 `json:"exit_velocity_min"`
	ExitVelocityMax float64 `json:"exit_velocity_max"`
	DistanceMin     float64 `json:"distance_min"`
	DistanceMax     float64 `json:"distance_max"`
	// MaxEndTime is the latest staggered end time in the view, in seconds.
	MaxEndTime float64 `json:"max_end_time"`
}

// ComputeBounds scans view once. Each hit's end time is offset by its
// presentation index times stagger so cascaded replays are fully covered.
func ComputeBounds(view *View, stagger float64) (Bounds, error) {
	if view.Len() == 0 {
		return Bounds{}, ErrEmptyView
	}

	b := Bounds{
		ExitVelocityMin: math.Inf(1),
		ExitVelocityMax: math.Inf(-1),
		DistanceMin:     math.Inf(1),
		DistanceMax:     math.Inf(-1),
		MaxEndTime:      math.Inf(-1),
	}
	for i, h := range view.Hits {
		ev := h.ExitVelocity()
		dist := h.ProjectedDistance()
		end := h.EndTime() + float64(i)*stagger

		b.ExitVelocityMin = math.Min(b.ExitVelocityMin, ev)
		b.ExitVelocityMax = math.Max(b.ExitVelocityMax, ev)
		b.DistanceMin = math.Min(b.DistanceMin, dist)
		b.DistanceMax = math.Max(b.DistanceMax, dist)
		b.MaxEndTime = math.Max(b.MaxEndTime, end)
	}
	return b, nil
}
