package trajectory

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/derbyviz/internal/units"
)

// imagTolerance is the largest imaginary part an eigenvalue may carry and
// still be treated as a real root.
const imagTolerance = 1e-8

var (
	ErrConstantPolynomial = errors.New("polynomial has no variable terms")
	ErrNoLanding          = errors.New("no real landing root at or after the minimum landing time")
)

// Polynomial holds coefficients in ascending power order:
// p(t) = c[0] + c[1]*t + c[2]*t^2 + ...
type Polynomial []float64

// Eval evaluates p at t using Horner's scheme.
func (p Polynomial) Eval(t float64) float64 {
	var v float64
	for i := len(p) - 1; i >= 0; i-- {
		v = v*t + p[i]
	}
	return v
}

// Derivative returns dp/dt.
func (p Polynomial) Derivative() Polynomial {
	if len(p) <= 1 {
		return Polynomial{0}
	}
	d := make(Polynomial, len(p)-1)
	for i := 1; i < len(p); i++ {
		d[i-1] = float64(i) * p[i]
	}
	return d
}

// trim drops zero leading (highest-order) coefficients.
func (p Polynomial) trim() Polynomial {
	n := len(p)
	for n > 0 && p[n-1] == 0 {
		n--
	}
	return p[:n]
}

// RealRoots returns the real roots of p in ascending order. Roots are the
// eigenvalues of the companion matrix; eigenvalues whose imaginary part is
// within imagTolerance of zero count as real.
func (p Polynomial) RealRoots() ([]float64, error) {
	c := p.trim()
	deg := len(c) - 1
	if deg < 1 {
		return nil, ErrConstantPolynomial
	}
	if deg == 1 {
		return []float64{-c[0] / c[1]}, nil
	}

	lead := c[deg]
	comp := mat.NewDense(deg, deg, nil)
	for i := 0; i < deg; i++ {
		if i > 0 {
			comp.Set(i, i-1, 1)
		}
		comp.Set(i, deg-1, -c[i]/lead)
	}

	var eig mat.Eigen
	if ok := eig.Factorize(comp, mat.EigenNone); !ok {
		return nil, fmt.Errorf("eigen decomposition of degree %d companion matrix failed", deg)
	}

	var roots []float64
	for _, v := range eig.Values(nil) {
		if math.Abs(imag(v)) < imagTolerance {
			roots = append(roots, real(v))
		}
	}
	sort.Float64s(roots)
	return roots, nil
}

// PolyPath is a flight path fitted as one polynomial per axis in feet over
// seconds. Interval[0] is the contact time.
type PolyPath struct {
	X        Polynomial `json:"polyx"`
	Y        Polynomial `json:"polyy"`
	Z        Polynomial `json:"polyz"`
	Interval [2]float64 `json:"interval"`
}

// LandingTime returns the first real root of the Z polynomial at or after
// minLanding.
func (pp PolyPath) LandingTime(minLanding float64) (float64, error) {
	roots, err := pp.Z.RealRoots()
	if err != nil {
		return 0, fmt.Errorf("z polynomial: %w", err)
	}
	for _, r := range roots {
		if r >= minLanding {
			return r, nil
		}
	}
	return 0, fmt.Errorf("%w: roots %v, minimum %g", ErrNoLanding, roots, minLanding)
}

// Sample evaluates the path on an evenly spaced grid of n timestamps from
// contact to landing. T is rebased so the first sample is 0; speeds are the
// magnitude of the velocity polynomials, in mph.
func (pp PolyPath) Sample(n int, minLanding float64) (*Hit, error) {
	if n < 2 {
		return nil, fmt.Errorf("%w: requested %d", ErrTooFewSamples, n)
	}
	land, err := pp.LandingTime(minLanding)
	if err != nil {
		return nil, err
	}
	start := pp.Interval[0]

	ts := floats.Span(make([]float64, n), start, land)
	dx, dy, dz := pp.X.Derivative(), pp.Y.Derivative(), pp.Z.Derivative()

	h := &Hit{
		X:      make([]float64, n),
		Y:      make([]float64, n),
		Z:      make([]float64, n),
		T:      make([]float64, n),
		Speeds: make([]float64, n),
	}
	for i, t := range ts {
		h.X[i] = pp.X.Eval(t)
		h.Y[i] = pp.Y.Eval(t)
		h.Z[i] = pp.Z.Eval(t)
		h.T[i] = t - start
		v := math.Sqrt(dx.Eval(t)*dx.Eval(t) + dy.Eval(t)*dy.Eval(t) + dz.Eval(t)*dz.Eval(t))
		h.Speeds[i] = units.FeetPerSecondToMPH(v)
	}
	return h, nil
}
