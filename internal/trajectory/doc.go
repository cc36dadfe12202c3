// Package trajectory owns the per-hit flight path model and the two
// per-frame numeric primitives built on it: bracket search along the Y axis
// and clamped linear interpolation.
//
// Key types: Hit, Bracket, SlicePoint.
//
// Hits are validated once at load time. Everything downstream assumes the
// invariants Validate enforces (equal-length parallel arrays, N >= 2,
// non-decreasing Y and T, finite samples).
package trajectory
