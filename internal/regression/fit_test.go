package regression

import (
	"errors"
	"math"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fastrand"
	"gonum.org/v1/gonum/mat"
)

func points(pp ...Point) []Sample {
	out := make([]Sample, len(pp))
	for i := range pp {
		out[i] = pp[i]
	}
	return out
}

func TestFitRecoversExactPlane(t *testing.T) {
	var samples []Sample
	for _, x1 := range []float64{750, 800, 850, 900, 950} {
		for _, x2 := range []float64{8, 12, 16, 20} {
			samples = append(samples, Point{Feature1: x1, Feature2: x2, Target: 40 + 0.2*x1 - 1.5*x2})
		}
	}
	m, err := Fit(samples)
	require.NoError(t, err)
	assert.InDelta(t, 40, m.Intercept, 1e-6, spew.Sdump(m))
	assert.InDelta(t, 0.2, m.Coefficients[0], 1e-9, spew.Sdump(m))
	assert.InDelta(t, -1.5, m.Coefficients[1], 1e-7, spew.Sdump(m))
	assert.Equal(t, len(samples), m.SampleSize)
	assert.False(t, m.FittedAt.IsZero())
}

func TestFitResidualNotWorseThanZeroModel(t *testing.T) {
	var samples []Sample
	for i := 0; i < 60; i++ {
		x1 := 750 + float64(fastrand.Uint32n(250))
		x2 := 8 + float64(fastrand.Uint32n(16))
		noise := float64(fastrand.Uint32n(200))/10 - 10
		samples = append(samples, Point{Feature1: x1, Feature2: x2, Target: 120 + 0.1*x1 + 0.8*x2 + noise})
	}
	m, err := Fit(samples)
	if errors.Is(err, ErrDegenerateFit) {
		t.Skip("random draw produced collinear features")
	}
	require.NoError(t, err)

	var fitted, zero float64
	for _, s := range samples {
		x1, x2 := s.Features()
		fitted += math.Abs(s.Observed() - m.Predict(x1, x2))
		zero += math.Abs(s.Observed())
	}
	assert.LessOrEqual(t, fitted/float64(len(samples)), zero/float64(len(samples)))
}

func TestFitMatchesMatrixSolve(t *testing.T) {
	samples := points(
		Point{Feature1: 780, Feature2: 10, Target: 195.2},
		Point{Feature1: 820, Feature2: 12, Target: 201.7},
		Point{Feature1: 860, Feature2: 9, Target: 199.1},
		Point{Feature1: 900, Feature2: 18, Target: 210.4},
		Point{Feature1: 940, Feature2: 22, Target: 204.9},
		Point{Feature1: 990, Feature2: 15, Target: 188.3},
	)
	m, err := Fit(samples)
	require.NoError(t, err)

	x := mat.NewDense(len(samples), 3, nil)
	y := mat.NewVecDense(len(samples), nil)
	for i, s := range samples {
		x1, x2 := s.Features()
		x.SetRow(i, []float64{1, x1, x2})
		y.SetVec(i, s.Observed())
	}
	var beta mat.VecDense
	require.NoError(t, beta.SolveVec(x, y))

	assert.InDelta(t, beta.AtVec(0), m.Intercept, 1e-4)
	assert.InDelta(t, beta.AtVec(1), m.Coefficients[0], 1e-7)
	assert.InDelta(t, beta.AtVec(2), m.Coefficients[1], 1e-6)
}

func TestFitDegenerate(t *testing.T) {
	tests := []struct {
		name    string
		samples []Sample
	}{
		{name: "empty", samples: nil},
		{
			name:    "two_points",
			samples: points(Point{1, 2, 3}, Point{4, 5, 6}),
		},
		{
			name:    "two_distinct_points_repeated",
			samples: points(Point{1, 2, 3}, Point{4, 5, 6}, Point{1, 2, 3}, Point{4, 5, 6}),
		},
		{
			name:    "collinear_features",
			samples: points(Point{1, 1, 10}, Point{2, 2, 20}, Point{3, 3, 31}),
		},
		{
			name:    "constant_feature",
			samples: points(Point{5, 1, 10}, Point{5, 2, 20}, Point{5, 3, 31}, Point{5, 4, 35}),
		},
		{
			// x2 = 0.05*x1 - 30
			name:    "collinear_process_scale",
			samples: points(Point{812.3, 10.615, 190}, Point{900.1, 15.005, 201}, Point{955.9, 17.795, 188}),
		},
		{
			name: "collinear_large_scale",
			samples: points(
				Point{1.0e6 + 0.3, 3.0e6 + 0.9, 5},
				Point{1.2e6 + 0.7, 3.6e6 + 2.1, 7},
				Point{1.7e6 + 0.1, 5.1e6 + 0.3, 6},
				Point{2.3e6 + 0.9, 6.9e6 + 2.7, 9},
			),
		},
		{
			name:    "constant_fractional_feature",
			samples: points(Point{812.3, 0.1, 190}, Point{900.1, 0.1, 201}, Point{955.9, 0.1, 188}),
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			m, err := Fit(test.samples)
			if !errors.Is(err, ErrDegenerateFit) {
				t.Errorf("fit must fail with ErrDegenerateFit, got model: %v, err: %v", spew.Sdump(m), err)
			}
			if m != nil {
				t.Errorf("degenerate fit must not return a model")
			}
		})
	}
}

func TestInverseSingular(t *testing.T) {
	tests := []struct {
		name string
		m    matrix3
	}{
		{name: "zero", m: matrix3{}},
		{name: "dependent_rows", m: matrix3{{2, 0, 1}, {1, 3, 2}, {1, 1, 1}}},
		{name: "dependent_rows_scaled", m: matrix3{{2e9, 0, 1e9}, {1e9, 3e9, 2e9}, {1e9, 1e9, 1e9}}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if _, err := test.m.inverse(); !errors.Is(err, ErrDegenerateFit) {
				t.Errorf("inverse, got: %v, expected: %v", err, ErrDegenerateFit)
			}
		})
	}
}

func TestInverse(t *testing.T) {
	m := matrix3{{2, 0, 1}, {1, 3, 2}, {1, 1, 2}}
	inv, err := m.inverse()
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			var s float64
			for k := 0; k < 3; k++ {
				s += m[i][k] * inv[k][j]
			}
			expected := 0.0
			if i == j {
				expected = 1
			}
			assert.InDelta(t, expected, s, 1e-12, "identity at %d,%d", i, j)
		}
	}
}

func TestModelPredictIsPure(t *testing.T) {
	m := NewModel(10, 0.5, -2)
	first := m.Predict(800, 12)
	second := m.Predict(800, 12)
	assert.Equal(t, first, second)
	assert.InDelta(t, 10+400-24, first, 1e-12)
	assert.Equal(t, m.Fingerprint(), NewModel(10, 0.5, -2).Fingerprint())
	assert.NotEqual(t, m.Fingerprint(), NewModel(10, 0.5, -2.0001).Fingerprint())
}
