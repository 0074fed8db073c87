package signal

import (
	"errors"
	"sort"
)

// ErrSplineTooFewPoints indicates a spline was requested over fewer than
// two knots
var ErrSplineTooFewPoints = errors.New("signal: spline needs at least two points")

// CubicSpline is a natural cubic spline through a set of knots.
// Outside the knot range it extrapolates linearly.
type CubicSpline struct {
	xs, ys []float64
	// second derivatives at the knots
	m []float64
}

// NewCubicSpline fits a natural cubic spline through (xs, ys). The knots
// must be sorted by x with no duplicates. With exactly two knots the spline
// degenerates to linear interpolation.
func NewCubicSpline(xs, ys []float64) (*CubicSpline, error) {
	if len(xs) != len(ys) {
		return nil, errors.New("signal: spline x and y lengths differ")
	}
	if len(xs) < 2 {
		return nil, ErrSplineTooFewPoints
	}
	if !sort.Float64sAreSorted(xs) {
		return nil, errors.New("signal: spline knots must be sorted")
	}

	n := len(xs)
	m := make([]float64, n)
	if n > 2 {
		// Solve the tridiagonal system for the interior second derivatives;
		// natural boundary conditions fix m[0] = m[n-1] = 0
		a := make([]float64, n)
		b := make([]float64, n)
		c := make([]float64, n)
		d := make([]float64, n)

		for i := 1; i < n-1; i++ {
			h0 := xs[i] - xs[i-1]
			h1 := xs[i+1] - xs[i]
			a[i] = h0
			b[i] = 2 * (h0 + h1)
			c[i] = h1
			d[i] = 6 * ((ys[i+1]-ys[i])/h1 - (ys[i]-ys[i-1])/h0)
		}

		// Thomas algorithm
		for i := 2; i < n-1; i++ {
			w := a[i] / b[i-1]
			b[i] -= w * c[i-1]
			d[i] -= w * d[i-1]
		}
		for i := n - 2; i >= 1; i-- {
			m[i] = (d[i] - c[i]*m[i+1]) / b[i]
		}
	}

	cs := &CubicSpline{
		xs: append([]float64(nil), xs...),
		ys: append([]float64(nil), ys...),
		m:  m,
	}
	return cs, nil
}

// At evaluates the spline at x
func (s *CubicSpline) At(x float64) float64 {
	n := len(s.xs)

	// Linear extrapolation beyond the knot range
	if x <= s.xs[0] {
		slope := s.slopeAt(0)
		return s.ys[0] + slope*(x-s.xs[0])
	}
	if x >= s.xs[n-1] {
		h := s.xs[n-1] - s.xs[n-2]
		slope := (s.ys[n-1]-s.ys[n-2])/h + h*(s.m[n-2]+2*s.m[n-1])/6
		return s.ys[n-1] + slope*(x-s.xs[n-1])
	}

	// Locate the interval containing x
	i := sort.SearchFloat64s(s.xs, x) - 1
	if i < 0 {
		i = 0
	}

	h := s.xs[i+1] - s.xs[i]
	t := (s.xs[i+1] - x) / h
	u := (x - s.xs[i]) / h

	return t*s.ys[i] + u*s.ys[i+1] +
		((t*t*t-t)*s.m[i]+(u*u*u-u)*s.m[i+1])*h*h/6
}

// slopeAt returns the spline's first derivative at the left knot of
// interval i
func (s *CubicSpline) slopeAt(i int) float64 {
	h := s.xs[i+1] - s.xs[i]
	return (s.ys[i+1]-s.ys[i])/h - h*(2*s.m[i]+s.m[i+1])/6
}

// Evaluate evaluates the spline at each x in xs
func (s *CubicSpline) Evaluate(xs []float64) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = s.At(x)
	}
	return out
}

// Linspace returns n evenly spaced values from start to stop inclusive
func Linspace(start, stop float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []float64{start}
	}
	out := make([]float64, n)
	step := (stop - start) / float64(n-1)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}
