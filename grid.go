package rastersample

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// A GridRaster is an in-memory raster. Row zero is the top row.
type GridRaster struct {
	values      []float64
	width       int
	height      int
	extent      Extent
	resolutionX float64
	resolutionY float64
	noData      float64
}

// NewGridRaster returns a new GridRaster covering extent. values must be
// rectangular and is indexed as values[row][column]. Cells equal to noData are
// returned as NaN by Samples.
func NewGridRaster(values [][]float64, extent Extent, noData float64) (*GridRaster, error) {
	height := len(values)
	if height == 0 || len(values[0]) == 0 {
		return nil, errors.New("empty grid")
	}
	width := len(values[0])
	if !(extent.Left < extent.Right && extent.Bottom < extent.Top) ||
		math.IsInf(extent.Right-extent.Left, 0) || math.IsInf(extent.Top-extent.Bottom, 0) {
		return nil, fmt.Errorf("%+v: invalid extent", extent)
	}
	g := &GridRaster{
		values:      make([]float64, 0, width*height),
		width:       width,
		height:      height,
		extent:      extent,
		resolutionX: (extent.Right - extent.Left) / float64(width),
		resolutionY: (extent.Top - extent.Bottom) / float64(height),
		noData:      noData,
	}
	for r, row := range values {
		if len(row) != width {
			return nil, fmt.Errorf("row %d: got %d values, expected %d", r, len(row), width)
		}
		g.values = append(g.values, row...)
	}
	return g, nil
}

// Extent returns g's extent.
func (g *GridRaster) Extent() Extent {
	return g.extent
}

// GridOrigin returns g's top left corner.
func (g *GridRaster) GridOrigin() Coord {
	return Coord{X: g.extent.Left, Y: g.extent.Top}
}

// NoData returns g's no-data sentinel.
func (g *GridRaster) NoData() float64 {
	return g.noData
}

// Resolution returns g's cell size.
func (g *GridRaster) Resolution() (float64, float64) {
	return g.resolutionX, g.resolutionY
}

// Samples returns the values of the cells containing coords.
func (g *GridRaster) Samples(ctx context.Context, coords []Coord) ([]float64, error) {
	samples := make([]float64, len(coords))
	for i, coord := range coords {
		samples[i] = g.sample(coord)
	}
	return samples, nil
}

func (g *GridRaster) sample(coord Coord) float64 {
	c := int(math.Floor((coord.X - g.extent.Left) / g.resolutionX))
	r := int(math.Floor((g.extent.Top - coord.Y) / g.resolutionY))
	if c < 0 || g.width <= c || r < 0 || g.height <= r {
		return math.NaN()
	}
	value := g.values[r*g.width+c]
	if value == g.noData || math.IsNaN(value) {
		return math.NaN()
	}
	return value
}
