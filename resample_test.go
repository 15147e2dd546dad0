package rastersample_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/twpayne/go-rastersample"
)

type errorRaster struct {
	extent rastersample.Extent
	err    error
}

func (r *errorRaster) Extent() rastersample.Extent {
	return r.extent
}

func (r *errorRaster) GridOrigin() rastersample.Coord {
	return rastersample.Coord{X: r.extent.Left, Y: r.extent.Top}
}

func (r *errorRaster) Resolution() (float64, float64) {
	return 1, 1
}

func (r *errorRaster) Samples(ctx context.Context, coords []rastersample.Coord) ([]float64, error) {
	return nil, r.err
}

func newTestGridRaster(t *testing.T, values [][]float64, extent rastersample.Extent, noData float64) *rastersample.GridRaster {
	t.Helper()
	gridRaster, err := rastersample.NewGridRaster(values, extent, noData)
	assert.NoError(t, err)
	return gridRaster
}

func TestInterpolateBilinear(t *testing.T) {
	simpleRaster := newTestGridRaster(t, [][]float64{
		{0, 1, 2},
		{2, 3, 4},
		{4, 5, 6},
	}, rastersample.Extent{Left: 0, Bottom: 0, Right: 30, Top: 30}, -9999)
	for _, tc := range []struct {
		name     string
		raster   rastersample.Raster
		coords   []rastersample.Coord
		expected []float64
	}{
		{
			name:   "simple",
			raster: simpleRaster,
			coords: []rastersample.Coord{
				{X: 5, Y: 25},
				{X: 15, Y: 25},
				{X: 5, Y: 15},
				{X: 15, Y: 15},
				{X: 10, Y: 20},
				{X: 10, Y: 25},
				{X: 5, Y: 20},
				{X: 20, Y: 15},
				{X: 15, Y: 10},
			},
			expected: []float64{
				0,
				1,
				2,
				3,
				1.5,
				0.5,
				1,
				3.5,
				4,
			},
		},
		{
			name:   "edges",
			raster: simpleRaster,
			coords: []rastersample.Coord{
				{X: 25, Y: 5},
				{X: 29, Y: 1},
				{X: 31, Y: 1},
			},
			expected: []float64{
				6,
				6,
				math.NaN(),
			},
		},
		{
			name: "no_data_neighbor",
			raster: newTestGridRaster(t, [][]float64{
				{1, -9999},
				{3, 4},
			}, rastersample.Extent{Left: 0, Bottom: 0, Right: 20, Top: 20}, -9999),
			coords: []rastersample.Coord{
				{X: 8, Y: 8},
				{X: 12, Y: 12},
			},
			expected: []float64{
				3,
				math.NaN(),
			},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			actual, err := rastersample.InterpolateBilinear(t.Context(), tc.raster, tc.coords)
			assert.NoError(t, err)
			assertSamplesEqual(t, tc.expected, actual)
		})
	}
}

func TestResample(t *testing.T) {
	raster := newTestGridRaster(t, [][]float64{
		{0, 1},
		{2, 3},
	}, rastersample.Extent{Left: 0, Bottom: 0, Right: 20, Top: 20}, -9999)
	coords := []rastersample.Coord{
		{X: 10, Y: 10},
		{X: 19, Y: 19},
	}

	nearest, err := rastersample.Resample(t.Context(), raster, rastersample.ResamplingNearest, coords)
	assert.NoError(t, err)
	assert.Equal(t, []float64{3, 1}, nearest)

	bilinear, err := rastersample.Resample(t.Context(), raster, rastersample.ResamplingBilinear, coords)
	assert.NoError(t, err)
	assert.Equal(t, []float64{1.5, 1}, bilinear)

	_, err = rastersample.Resample(t.Context(), raster, rastersample.Resampling(99), coords)
	assert.Error(t, err)

	rasterErr := errors.New("read failed")
	_, err = rastersample.Resample(t.Context(), &errorRaster{extent: raster.Extent(), err: rasterErr}, rastersample.ResamplingBilinear, coords)
	assert.IsError(t, err, rasterErr)
}

func TestParseResampling(t *testing.T) {
	for _, tc := range []struct {
		s           string
		expected    rastersample.Resampling
		expectedErr bool
	}{
		{s: "", expected: rastersample.ResamplingNearest},
		{s: "nearest", expected: rastersample.ResamplingNearest},
		{s: " Bilinear ", expected: rastersample.ResamplingBilinear},
		{s: "cubic", expectedErr: true},
	} {
		t.Run(tc.s, func(t *testing.T) {
			actual, err := rastersample.ParseResampling(tc.s)
			if tc.expectedErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, actual)
			assert.Equal(t, tc.expected.String(), actual.String())
		})
	}
}

func assertSamplesEqual(t *testing.T, expected, actual []float64) {
	t.Helper()
	assert.Equal(t, len(expected), len(actual))
	for i := range expected {
		if math.IsNaN(expected[i]) {
			assert.True(t, math.IsNaN(actual[i]), "sample %d: expected NaN, got %f", i, actual[i])
		} else {
			assert.Equal(t, expected[i], actual[i], "sample %d", i)
		}
	}
}
