package rastersample_test

import (
	"math"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/twpayne/go-rastersample"
)

func TestPointService_Elevation4326(t *testing.T) {
	raster := newTestGridRaster(t, [][]float64{
		{35},
	}, rastersample.Extent{Left: 600000, Bottom: 6800000, Right: 700000, Top: 6900000}, -99999)
	pointService, err := rastersample.NewPointService(raster, rastersample.Lambert93SRID)
	assert.NoError(t, err)
	assert.Equal(t, rastersample.Lambert93SRID, pointService.SRID())

	for _, tc := range []struct {
		name     string
		coord    []float64
		expected float64
	}{
		{
			name:     "paris",
			coord:    []float64{2.3522, 48.8566},
			expected: 35,
		},
		{
			name:     "turin",
			coord:    []float64{7.6869, 45.0703},
			expected: math.NaN(),
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			coords4326 := [][]float64{tc.coord}
			actual, err := pointService.Elevation4326(t.Context(), coords4326)
			assert.NoError(t, err)
			assertSamplesEqual(t, []float64{tc.expected}, actual)
			assert.Equal(t, [][]float64{tc.coord}, coords4326)
		})
	}
}

func TestPointService_Elevation(t *testing.T) {
	raster := newTestGridRaster(t, [][]float64{
		{0, 1},
		{2, 3},
	}, rastersample.Extent{Left: 0, Bottom: 0, Right: 20, Top: 20}, -99999)
	pointService, err := rastersample.NewPointService(raster, rastersample.Lambert93SRID,
		rastersample.WithPointResampling(rastersample.ResamplingNearest),
	)
	assert.NoError(t, err)

	actual, err := pointService.Elevation(t.Context(), [][]float64{{10, 10}, {5, 15}})
	assert.NoError(t, err)
	assert.Equal(t, []float64{3, 0}, actual)

	_, err = pointService.Elevation(t.Context(), [][]float64{{10}})
	assert.Error(t, err)
}

func TestNewPointService(t *testing.T) {
	_, err := rastersample.NewPointService(nil, 0)
	assert.Error(t, err)
}
