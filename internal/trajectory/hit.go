package trajectory

import (
	"errors"
	"fmt"
	"math"
)

// Well-known metric keys carried by every hit.
const (
	MetricExitVelocity      = "exitVelocity"
	MetricProjectedDistance = "projectedDistance"
	MetricLaunchAngle       = "launchAngle"
)

// Load-time validation failures. Validate wraps one of these so callers can
// classify rejections with errors.Is.
var (
	ErrTooFewSamples   = errors.New("trajectory needs at least 2 samples")
	ErrLengthMismatch  = errors.New("parallel sample arrays differ in length")
	ErrNonMonotonic    = errors.New("y samples are not non-decreasing")
	ErrTimeDecreasing  = errors.New("timestamps are not non-decreasing")
	ErrNonFiniteSample = errors.New("sample is NaN or infinite")
	ErrMissingMetric   = errors.New("required metric missing")
)

// Metric is a single named scalar measurement.
type Metric struct {
	Value float64 `json:"value"`
	Scale string  `json:"scale,omitempty"` // display unit, e.g. "MPH", "FT", "deg"
}

// Bracket is a pair of sample indices straddling a query coordinate.
type Bracket struct {
	Low  int `json:"low"`
	High int `json:"high"`
}

// Hit is one recorded flight path. Sample arrays are in feet (X, Y, Z),
// seconds from contact (T) and mph (Speeds).
type Hit struct {
	ID       string            `json:"id,omitempty"`
	PlayerID string            `json:"player_id"`
	RoundID  int               `json:"round"`
	X        []float64         `json:"x"`
	Y        []float64         `json:"y"`
	Z        []float64         `json:"z"`
	T        []float64         `json:"t"`
	Speeds   []float64         `json:"speeds"`
	Metrics  map[string]Metric `json:"metrics"`

	// SliceBracket caches Locate(Y, plane) for the last plane passed to
	// UpdateSlice.
	SliceBracket Bracket `json:"-"`
}

// Len returns the number of samples.
func (h *Hit) Len() int { return len(h.Y) }

// Metric returns the value of the named metric, or 0 if absent.
func (h *Hit) Metric(name string) float64 {
	return h.Metrics[name].Value
}

// ExitVelocity is the exitVelocity metric value.
func (h *Hit) ExitVelocity() float64 { return h.Metric(MetricExitVelocity) }

// ProjectedDistance is the projectedDistance metric value.
func (h *Hit) ProjectedDistance() float64 { return h.Metric(MetricProjectedDistance) }

// EndTime is the timestamp of the final sample.
func (h *Hit) EndTime() float64 {
	if len(h.T) == 0 {
		return 0
	}
	return h.T[len(h.T)-1]
}

// Validate checks the invariants the bisection search and interpolation rely
// on. It returns the first violation found, wrapped with context.
func (h *Hit) Validate() error {
	n := len(h.Y)
	if n < 2 {
		return fmt.Errorf("%w: got %d", ErrTooFewSamples, n)
	}
	for _, col := range []struct {
		name string
		s    []float64
	}{{"x", h.X}, {"z", h.Z}, {"t", h.T}, {"speeds", h.Speeds}} {
		if len(col.s) != n {
			return fmt.Errorf("%w: %s has %d samples, y has %d", ErrLengthMismatch, col.name, len(col.s), n)
		}
	}
	for i := 0; i < n; i++ {
		for _, v := range [...]float64{h.X[i], h.Y[i], h.Z[i], h.T[i], h.Speeds[i]} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: index %d", ErrNonFiniteSample, i)
			}
		}
		if i == 0 {
			continue
		}
		if h.Y[i] < h.Y[i-1] {
			return fmt.Errorf("%w: y[%d]=%g < y[%d]=%g", ErrNonMonotonic, i, h.Y[i], i-1, h.Y[i-1])
		}
		if h.T[i] < h.T[i-1] {
			return fmt.Errorf("%w: t[%d]=%g < t[%d]=%g", ErrTimeDecreasing, i, h.T[i], i-1, h.T[i-1])
		}
	}
	for _, name := range []string{MetricExitVelocity, MetricProjectedDistance} {
		if _, ok := h.Metrics[name]; !ok {
			return fmt.Errorf("%w: %s", ErrMissingMetric, name)
		}
	}
	return nil
}

// UpdateSlice recomputes the cached bracket for the given Y plane.
func (h *Hit) UpdateSlice(plane float64) Bracket {
	h.SliceBracket = Locate(h.Y, plane)
	return h.SliceBracket
}

// SlicePoint is a hit's interpolated state where it crosses a Y plane.
type SlicePoint struct {
	X, Y, Z float64
	Speed   float64
}

// SliceAt interpolates position and speed at plane using the cached bracket.
// UpdateSlice must have been called for the same plane.
func (h *Hit) SliceAt(plane float64) SlicePoint {
	return Interpolate(h, h.SliceBracket, plane)
}

// Interpolate returns h's position and speed at plane between the samples
// of b. An out-of-range bracket yields the zero point.
func Interpolate(h *Hit, b Bracket, plane float64) SlicePoint {
	lo, hi := b.Low, b.High
	if len(h.Y) == 0 || lo < 0 || hi >= len(h.Y) {
		return SlicePoint{}
	}
	ya, yb := h.Y[lo], h.Y[hi]
	return SlicePoint{
		X:     Lerp(h.X[lo], h.X[hi], ya, yb, plane),
		Y:     Lerp(h.Y[lo], h.Y[hi], ya, yb, plane),
		Z:     Lerp(h.Z[lo], h.Z[hi], ya, yb, plane),
		Speed: Lerp(h.Speeds[lo], h.Speeds[hi], ya, yb, plane),
	}
}
