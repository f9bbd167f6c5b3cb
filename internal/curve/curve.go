// Package curve evaluates seasonal baselines from plain (t, value) control
// points. Year curves use a monotone cubic (Fritsch–Butland) so they never
// overshoot between keys; monthly tables use a wrapped linear blend between
// mid-month anchors.
package curve

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/interp"
)

// Point is one control point. T is the fraction of the year in [0, 1].
type Point struct {
	T float64 `yaml:"t" json:"t"`
	V float64 `yaml:"v" json:"v"`
}

// Kind selects the interpolation between control points.
type Kind uint8

const (
	Smooth Kind = iota // monotone piecewise cubic
	Linear             // piecewise linear
)

// ErrTooFewPoints is returned when a curve has no control points.
var ErrTooFewPoints = errors.New("curve: no control points")

type predictor interface {
	Predict(x float64) float64
}

// Curve is an immutable, evaluated-on-demand interpolant.
type Curve struct {
	xs, ys []float64
	pred   predictor
}

// New fits a curve through points. Points are sorted by T; duplicate T values
// are rejected. A single point yields a constant curve.
func New(points []Point, kind Kind) (*Curve, error) {
	if len(points) == 0 {
		return nil, ErrTooFewPoints
	}

	sorted := make([]Point, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].T < sorted[j].T })

	xs := make([]float64, len(sorted))
	ys := make([]float64, len(sorted))
	for i, p := range sorted {
		if i > 0 && p.T == sorted[i-1].T {
			return nil, fmt.Errorf("curve: duplicate control point at t=%.4f", p.T)
		}
		xs[i] = p.T
		ys[i] = p.V
	}

	c := &Curve{xs: xs, ys: ys}
	if len(xs) == 1 {
		return c, nil
	}

	if kind == Smooth && len(xs) >= 3 {
		var fb interp.FritschButland
		if err := fb.Fit(xs, ys); err != nil {
			return nil, fmt.Errorf("curve: fit monotone cubic: %w", err)
		}
		c.pred = &fb
		return c, nil
	}

	var pl interp.PiecewiseLinear
	if err := pl.Fit(xs, ys); err != nil {
		return nil, fmt.Errorf("curve: fit linear: %w", err)
	}
	c.pred = &pl
	return c, nil
}

// Flat returns a constant curve.
func Flat(v float64) *Curve {
	return &Curve{xs: []float64{0}, ys: []float64{v}}
}

// Monthly builds a wrapped year curve from twelve monthly means. Each value is
// anchored at the middle of its month, and December/January are mirrored past
// the year edges so the blend is continuous across new year.
func Monthly(values []float64) (*Curve, error) {
	if len(values) != 12 {
		return nil, fmt.Errorf("curve: monthly table needs 12 values, got %d", len(values))
	}
	pts := make([]Point, 0, 14)
	pts = append(pts, Point{T: -0.5 / 12, V: values[11]})
	for m, v := range values {
		pts = append(pts, Point{T: (float64(m) + 0.5) / 12, V: v})
	}
	pts = append(pts, Point{T: 12.5 / 12, V: values[0]})
	return New(pts, Linear)
}

// At evaluates the curve at t. Values outside the control range hold the
// nearest end value.
func (c *Curve) At(t float64) float64 {
	if c == nil || len(c.xs) == 0 {
		return 0
	}
	n := len(c.xs)
	if c.pred == nil || t <= c.xs[0] {
		return c.ys[0]
	}
	if t >= c.xs[n-1] {
		return c.ys[n-1]
	}
	return c.pred.Predict(t)
}
