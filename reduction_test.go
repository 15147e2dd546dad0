package rastersample_test

import (
	"math"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/twpayne/go-rastersample"
)

func TestReduction_Reduce(t *testing.T) {
	for _, tc := range []struct {
		reduction rastersample.Reduction
		values    []float64
		expected  float64
	}{
		{reduction: rastersample.ReductionMin, values: []float64{3, 7, 5}, expected: 3},
		{reduction: rastersample.ReductionMax, values: []float64{3, 7, 5}, expected: 7},
		{reduction: rastersample.ReductionAvg, values: []float64{3, 7, 5}, expected: 5},
		{reduction: rastersample.ReductionMin, values: []float64{-2}, expected: -2},
		{reduction: rastersample.ReductionAvg, values: []float64{1, 2}, expected: 1.5},
	} {
		t.Run(tc.reduction.String(), func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.reduction.Reduce(tc.values))
		})
	}

	for _, reduction := range []rastersample.Reduction{
		rastersample.ReductionMin,
		rastersample.ReductionMax,
		rastersample.ReductionAvg,
	} {
		assert.True(t, math.IsNaN(reduction.Reduce(nil)))
	}
}

func TestParseReduction(t *testing.T) {
	for _, tc := range []struct {
		s        string
		expected rastersample.Reduction
	}{
		{s: "min", expected: rastersample.ReductionMin},
		{s: "MAX", expected: rastersample.ReductionMax},
		{s: "avg", expected: rastersample.ReductionAvg},
		{s: "mean", expected: rastersample.ReductionAvg},
	} {
		t.Run(tc.s, func(t *testing.T) {
			actual, err := rastersample.ParseReduction(tc.s)
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, actual)
		})
	}

	_, err := rastersample.ParseReduction("median")
	assert.EqualError(t, err, "median: unknown reduction")
}
