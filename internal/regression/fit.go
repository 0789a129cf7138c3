package regression

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Epsilon is the relative tolerance of the singularity tests: a feature whose
// centred sum of squares is below Epsilon times its raw sum of squares has no
// variance, and a matrix whose determinant is below Epsilon times the product
// of its row norms is singular.
const Epsilon = 1e-12

// MinSamples is the smallest sample count for which the fit can be well-posed.
const MinSamples = 3

var (
	// ErrDegenerateFit is returned when the training data are insufficient or
	// collinear and no usable model can be produced.
	ErrDegenerateFit = errors.New("degenerate fit")
)

// Sample is one observation used for fitting.
type Sample interface {
	Features() (float64, float64)
	Observed() float64
}

// Point is a plain Sample.
type Point struct {
	Feature1 float64
	Feature2 float64
	Target   float64
}

func (p Point) Features() (float64, float64) {
	return p.Feature1, p.Feature2
}

func (p Point) Observed() float64 {
	return p.Target
}

type matrix3 [3][3]float64

// Fit solves ordinary least squares for target ≈ b + c1*x1 + c2*x2 through the
// normal equations over mean-centred features d1 = x1-x̄1, d2 = x2-x̄2
//
//	[n  0      0    ] [b']   [Σy    ]
//	[0  Σd1²   Σd1d2] [c1] = [Σd1·y ]
//	[0  Σd1d2  Σd2² ] [c2]   [Σd2·y ]
//
// inverting the 3×3 matrix by cofactor expansion, then b = b' - c1*x̄1 - c2*x̄2.
// Collinear inputs of any magnitude are reported as ErrDegenerateFit.
func Fit(samples []Sample) (*Model, error) {
	if len(samples) < MinSamples {
		return nil, fmt.Errorf("%w: need at least %d samples, got %d", ErrDegenerateFit, MinSamples, len(samples))
	}

	var n, mx1, mx2 float64
	for _, s := range samples {
		x1, x2 := s.Features()
		n++
		mx1 += x1
		mx2 += x2
	}
	mx1 /= n
	mx2 /= n

	var sy, q11, q22, s11, s22, s12, s1y, s2y float64
	for _, s := range samples {
		x1, x2 := s.Features()
		y := s.Observed()
		d1, d2 := x1-mx1, x2-mx2
		sy += y
		q11 += x1 * x1
		q22 += x2 * x2
		s11 += d1 * d1
		s22 += d2 * d2
		s12 += d1 * d2
		s1y += d1 * y
		s2y += d2 * y
	}
	if s11 <= Epsilon*q11 {
		return nil, fmt.Errorf("%w: feature1 has no variance", ErrDegenerateFit)
	}
	if s22 <= Epsilon*q22 {
		return nil, fmt.Errorf("%w: feature2 has no variance", ErrDegenerateFit)
	}

	a := matrix3{
		{n, 0, 0},
		{0, s11, s12},
		{0, s12, s22},
	}
	b := [3]float64{sy, s1y, s2y}

	inv, err := a.inverse()
	if err != nil {
		return nil, err
	}

	var w [3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			w[i] += inv[i][j] * b[j]
		}
	}
	intercept := w[0] - w[1]*mx1 - w[2]*mx2
	for _, v := range []float64{intercept, w[1], w[2]} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: non-finite coefficient", ErrDegenerateFit)
		}
	}

	return &Model{
		Intercept:    intercept,
		Coefficients: [2]float64{w[1], w[2]},
		FittedAt:     time.Now().UTC(),
		SampleSize:   len(samples),
	}, nil
}

func det2(a, b, c, d float64) float64 {
	return a*d - b*c
}

func (m matrix3) det() float64 {
	return m[0][0]*det2(m[1][1], m[1][2], m[2][1], m[2][2]) -
		m[0][1]*det2(m[1][0], m[1][2], m[2][0], m[2][2]) +
		m[0][2]*det2(m[1][0], m[1][1], m[2][0], m[2][1])
}

// scale is the product of the row norms, an upper bound of |det|.
func (m matrix3) scale() float64 {
	p := 1.0
	for _, row := range m {
		p *= math.Sqrt(row[0]*row[0] + row[1]*row[1] + row[2]*row[2])
	}
	return p
}

// inverse returns the adjugate divided by the determinant.
func (m matrix3) inverse() (matrix3, error) {
	d := m.det()
	limit := Epsilon * m.scale()
	if math.IsNaN(d) || math.IsNaN(limit) || math.Abs(d) <= limit {
		return matrix3{}, fmt.Errorf("%w: determinant %g within %g of zero", ErrDegenerateFit, d, limit)
	}
	return matrix3{
		{
			det2(m[1][1], m[1][2], m[2][1], m[2][2]) / d,
			-det2(m[0][1], m[0][2], m[2][1], m[2][2]) / d,
			det2(m[0][1], m[0][2], m[1][1], m[1][2]) / d,
		},
		{
			-det2(m[1][0], m[1][2], m[2][0], m[2][2]) / d,
			det2(m[0][0], m[0][2], m[2][0], m[2][2]) / d,
			-det2(m[0][0], m[0][2], m[1][0], m[1][2]) / d,
		},
		{
			det2(m[1][0], m[1][1], m[2][0], m[2][1]) / d,
			-det2(m[0][0], m[0][1], m[2][0], m[2][1]) / d,
			det2(m[0][0], m[0][1], m[1][0], m[1][1]) / d,
		},
	}, nil
}
