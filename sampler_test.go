package rastersample_test

import (
	"errors"
	"runtime"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/twpayne/go-geom"

	"github.com/twpayne/go-rastersample"
)

func newTestSampler(t *testing.T, raster rastersample.Raster, reduction rastersample.Reduction) *rastersample.Sampler {
	t.Helper()
	config := rastersample.DefaultConfig()
	config.Reduction = reduction
	sampler, err := rastersample.NewSampler(raster, config)
	assert.NoError(t, err)
	return sampler
}

func TestSampler_Points(t *testing.T) {
	raster := newTestGridRaster(t, [][]float64{
		{5, 5},
		{5, 5},
	}, rastersample.Extent{Left: 0, Bottom: 0, Right: 10, Top: 10}, -9999)
	sampler := newTestSampler(t, raster, rastersample.ReductionMin)

	actual, err := sampler.Sample(t.Context(), []geom.T{
		geom.NewPointFlat(geom.XY, []float64{5, 5}),
		geom.NewPointFlat(geom.XY, []float64{-1, -1}),
		geom.NewPointFlat(geom.XY, []float64{10, 10}),
		geom.NewPointFlat(geom.XY, []float64{11, 5}),
	})
	assert.NoError(t, err)
	assert.Equal(t, []rastersample.Result{
		{Index: 0, Value: 5, Valid: true},
		{Index: 2, Value: rastersample.DefaultNoDataValue, Valid: false},
	}, actual)
}

func TestSampler_Reductions(t *testing.T) {
	raster := newTestGridRaster(t, [][]float64{
		{3, 7},
		{5, -9999},
	}, rastersample.Extent{Left: 0, Bottom: 0, Right: 20, Top: 20}, -9999)
	polygon := newPolygon(t, square(6, 6, 16, 16))

	for _, tc := range []struct {
		reduction rastersample.Reduction
		expected  float64
	}{
		{reduction: rastersample.ReductionMin, expected: 3},
		{reduction: rastersample.ReductionMax, expected: 7},
		{reduction: rastersample.ReductionAvg, expected: 5},
	} {
		t.Run(tc.reduction.String(), func(t *testing.T) {
			sampler := newTestSampler(t, raster, tc.reduction)
			actual, err := sampler.Sample(t.Context(), []geom.T{polygon})
			assert.NoError(t, err)
			assert.Equal(t, []rastersample.Result{
				{Index: 0, Value: tc.expected, Valid: true},
			}, actual)
		})
	}
}

func TestSampler_NoData(t *testing.T) {
	raster := newTestGridRaster(t, [][]float64{
		{-9999, -9999},
		{-9999, -9999},
	}, rastersample.Extent{Left: 0, Bottom: 0, Right: 20, Top: 20}, -9999)
	config := rastersample.DefaultConfig()
	config.NoDataValue = -1
	sampler, err := rastersample.NewSampler(raster, config)
	assert.NoError(t, err)

	actual, err := sampler.Sample(t.Context(), []geom.T{
		newPolygon(t, square(6, 6, 16, 16)),
		geom.NewPointFlat(geom.XY, []float64{1, 1}),
	})
	assert.NoError(t, err)
	assert.Equal(t, []rastersample.Result{
		{Index: 0, Value: -1, Valid: false},
		{Index: 1, Value: -1, Valid: false},
	}, actual)
}

func TestSampler_GeometryKinds(t *testing.T) {
	raster := newTestGridRaster(t, [][]float64{
		{1, 2},
		{3, 4},
	}, rastersample.Extent{Left: 0, Bottom: 0, Right: 10, Top: 10}, -9999)
	sampler := newTestSampler(t, raster, rastersample.ReductionMax)

	actual, err := sampler.Sample(t.Context(), []geom.T{
		newPolygon(t, []geom.Coord{{2, 2}, {2, 2}, {2, 2}, {2, 2}}),
		geom.NewLineStringFlat(geom.XY, []float64{1, 9, 7, 8, 9, 1}),
		geom.NewPolygon(geom.XY),
		geom.NewMultiPolygonFlat(geom.XY, []float64{
			6, 1, 9, 1, 9, 4, 6, 4, 6, 1,
		}, [][]int{{10}}),
		nil,
	})
	assert.NoError(t, err)
	assert.Equal(t, []rastersample.Result{
		{Index: 0, Value: 3, Valid: true},
		{Index: 1, Value: 2, Valid: true},
		{Index: 3, Value: 4, Valid: true},
	}, actual)
}

func TestSampler_Order(t *testing.T) {
	values := make([][]float64, 10)
	for r := range values {
		values[r] = make([]float64, 10)
		for c := range values[r] {
			values[r][c] = float64(10*r + c)
		}
	}
	raster := newTestGridRaster(t, values, rastersample.Extent{Left: 0, Bottom: 0, Right: 10, Top: 10}, -9999)
	config := rastersample.DefaultConfig()
	config.Concurrency = 3
	sampler, err := rastersample.NewSampler(raster, config)
	assert.NoError(t, err)

	var geometries []geom.T
	var expected []rastersample.Result
	for r := range 10 {
		for c := range 10 {
			geometries = append(geometries, geom.NewPointFlat(geom.XY, []float64{float64(c) + 0.5, 9.5 - float64(r)}))
			expected = append(expected, rastersample.Result{
				Index: len(expected),
				Value: float64(10*r + c),
				Valid: true,
			})
		}
	}

	actual, err := sampler.Sample(t.Context(), geometries)
	assert.NoError(t, err)
	assert.Equal(t, expected, actual)
}

func TestSampler_Empty(t *testing.T) {
	raster := newTestGridRaster(t, [][]float64{{1}}, rastersample.Extent{Left: 0, Bottom: 0, Right: 1, Top: 1}, -9999)
	sampler := newTestSampler(t, raster, rastersample.ReductionMin)

	actual, err := sampler.Sample(t.Context(), nil)
	assert.NoError(t, err)
	assert.True(t, actual != nil)
	assert.Equal(t, 0, len(actual))
}

func TestSampler_RasterError(t *testing.T) {
	rasterErr := errors.New("read failed")
	raster := &errorRaster{
		extent: rastersample.Extent{Left: 0, Bottom: 0, Right: 10, Top: 10},
		err:    rasterErr,
	}
	sampler := newTestSampler(t, raster, rastersample.ReductionMin)

	actual, err := sampler.Sample(t.Context(), []geom.T{
		geom.NewPointFlat(geom.XY, []float64{5, 5}),
	})
	assert.IsError(t, err, rasterErr)
	assert.Zero(t, actual)
}

func TestNewSampler(t *testing.T) {
	_, err := rastersample.NewSampler(nil, rastersample.DefaultConfig())
	assert.IsError(t, err, rastersample.ErrSourceUnavailable)

	raster := newTestGridRaster(t, [][]float64{{1}}, rastersample.Extent{Left: 0, Bottom: 0, Right: 1, Top: 1}, -9999)

	config := rastersample.DefaultConfig()
	config.Reduction = rastersample.Reduction(42)
	_, err = rastersample.NewSampler(raster, config)
	assert.Error(t, err)

	config = rastersample.DefaultConfig()
	config.Resampling = rastersample.Resampling(42)
	_, err = rastersample.NewSampler(raster, config)
	assert.Error(t, err)

	config = rastersample.DefaultConfig()
	config.Concurrency = 0
	sampler, err := rastersample.NewSampler(raster, config)
	assert.NoError(t, err)
	assert.Equal(t, runtime.GOMAXPROCS(0), sampler.Config().Concurrency)
}
