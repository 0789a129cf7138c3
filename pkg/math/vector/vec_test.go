package vector

import (
	"math"
	"testing"
)

func TestPopMeanStdDev(t *testing.T) {
	tests := []struct {
		name         string
		v            V
		expectedMean float64
		expectedStd  float64
	}{
		{name: "empty", v: V{}, expectedMean: 0, expectedStd: 0},
		{name: "single", v: V{7}, expectedMean: 7, expectedStd: 0},
		{name: "symmetric", v: V{190, 210}, expectedMean: 200, expectedStd: 10},
		{name: "constant", v: V{5, 5, 5, 5}, expectedMean: 5, expectedStd: 0},
		{name: "textbook", v: V{2, 4, 4, 4, 5, 5, 7, 9}, expectedMean: 5, expectedStd: 2},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			mean, std := test.v.PopMeanStdDev()
			if math.Abs(mean-test.expectedMean) > 1e-9 {
				t.Errorf("mean, got: %v, expected: %v", mean, test.expectedMean)
			}
			if math.Abs(std-test.expectedStd) > 1e-9 {
				t.Errorf("std, got: %v, expected: %v", std, test.expectedStd)
			}
		})
	}
}

func TestZScore(t *testing.T) {
	tests := []struct {
		name     string
		v        V
		expected float64
	}{
		{name: "constant_series", v: V{3, 3, 3}, expected: 0},
		{name: "last_above", v: V{190, 210}, expected: 1},
		{name: "textbook_last", v: V{2, 4, 4, 4, 5, 5, 7, 9}, expected: 2},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := test.v.ZScore(test.v.Len() - 1)
			if math.Abs(got-test.expected) > 1e-9 {
				t.Errorf("z-score, got: %v, expected: %v", got, test.expected)
			}
		})
	}
}

func TestRunBelowFromEnd(t *testing.T) {
	tests := []struct {
		name     string
		v        V
		expected int
	}{
		{name: "empty", v: V{}, expected: 0},
		{name: "tail_of_three", v: V{200, 180, 150, 200, 185, 180, 170}, expected: 3},
		{name: "newest_ok", v: V{100, 100, 195}, expected: 0},
		{name: "all_below", v: V{1, 2, 3}, expected: 3},
		{name: "equal_is_not_below", v: V{180, 190}, expected: 0},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := test.v.RunBelowFromEnd(190); got != test.expected {
				t.Errorf("run below, got: %v, expected: %v", got, test.expected)
			}
		})
	}
}

func TestTailAndReverse(t *testing.T) {
	v := V{1, 2, 3, 4, 5}
	if got := v.Tail(2); !equal(got, V{4, 5}) {
		t.Errorf("tail, got: %v", got)
	}
	if got := v.Tail(10); !equal(got, v) {
		t.Errorf("tail larger than series, got: %v", got)
	}
	if got := v.Reverse(); !equal(got, V{5, 4, 3, 2, 1}) {
		t.Errorf("reverse, got: %v", got)
	}
	if v[0] != 1 {
		t.Errorf("reverse must not modify the receiver")
	}
}

func equal(a, b V) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
