package vector

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// V is an ordered series of observations, oldest first.
type V []float64

func New(vec []float64) V {
	return vec
}

func (v V) Len() int {
	return len(v)
}

func (v V) Points() []float64 {
	return v
}

func (v V) Copy() V {
	var v1 = make(V, len(v))
	copy(v1, v)
	return v1
}

func (v V) Sum() float64 {
	var s float64
	for i := range v {
		s += v[i]
	}
	return s
}

func (v V) Mean() float64 {
	if len(v) == 0 {
		return 0
	}
	return stat.Mean(v, nil)
}

// PopMeanStdDev returns the mean and the population (ddof=0) standard
// deviation of the series. An empty series yields zeros.
func (v V) PopMeanStdDev() (mean, std float64) {
	if len(v) == 0 {
		return 0, 0
	}
	if len(v) == 1 {
		return v[0], 0
	}
	return stat.PopMeanStdDev(v, nil)
}

// ZScore returns the standard score of the element at idx against the
// population statistics of the whole series. A series with zero spread has
// no defined score and yields 0.
func (v V) ZScore(idx int) float64 {
	mean, std := v.PopMeanStdDev()
	if std == 0 || math.IsNaN(std) {
		return 0
	}
	z := stat.StdScore(v[idx], mean, std)
	if math.IsNaN(z) || math.IsInf(z, 0) {
		return 0
	}
	return z
}

// Last returns the newest element.
func (v V) Last() float64 {
	return v[len(v)-1]
}

// Tail returns the newest n elements (the whole series when n exceeds its length).
func (v V) Tail(n int) V {
	if n <= 0 || n >= len(v) {
		return v
	}
	return v[len(v)-n:]
}

// Reverse returns a reversed copy.
func (v V) Reverse() V {
	v1 := make(V, len(v))
	for i := range v {
		v1[len(v)-1-i] = v[i]
	}
	return v1
}

// CountBelow returns how many elements are strictly below threshold.
func (v V) CountBelow(threshold float64) int {
	var n int
	for i := range v {
		if v[i] < threshold {
			n++
		}
	}
	return n
}

// RunBelowFromEnd counts the run of elements strictly below threshold that
// ends at the newest element.
func (v V) RunBelowFromEnd(threshold float64) int {
	var n int
	for i := len(v) - 1; i >= 0; i-- {
		if v[i] >= threshold {
			break
		}
		n++
	}
	return n
}

func (v V) Max() float64 {
	var max = math.Inf(-1)
	for i := range v {
		if v[i] > max {
			max = v[i]
		}
	}
	return max
}
