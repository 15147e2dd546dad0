package rastersample

import (
	"context"
	"errors"
	"math"

	"github.com/twpayne/go-geom"
)

// ErrSourceUnavailable is returned when a raster source cannot be opened.
var ErrSourceUnavailable = errors.New("raster source unavailable")

// A Coord is a coordinate in the raster's coordinate reference system.
type Coord struct {
	X float64
	Y float64
}

// A TileCoord is a tile coordinate.
type TileCoord struct {
	C int // Column.
	R int // Row.
}

// An Extent is an axis-aligned bounding rectangle.
type Extent struct {
	Left   float64
	Bottom float64
	Right  float64
	Top    float64
}

// UnboundedExtent is an extent that overlaps everything.
var UnboundedExtent = Extent{
	Left:   math.Inf(-1),
	Bottom: math.Inf(-1),
	Right:  math.Inf(1),
	Top:    math.Inf(1),
}

// A Raster is a grid of samples. Samples returns NaN for coordinates outside
// the raster and for no-data cells. GridOrigin returns a corner shared by all
// cells, which need not lie on the extent's edges.
type Raster interface {
	Extent() Extent
	GridOrigin() Coord
	Resolution() (float64, float64)
	Samples(ctx context.Context, coords []Coord) ([]float64, error)
}

// Contains returns if e contains coord. The left and top edges are inclusive,
// the right and bottom edges are exclusive, matching cell ownership.
func (e Extent) Contains(coord Coord) bool {
	return e.Left <= coord.X && coord.X < e.Right && e.Bottom < coord.Y && coord.Y <= e.Top
}

// Overlaps returns if e overlaps bounds. Touching edges overlap. Empty bounds
// never overlap.
func (e Extent) Overlaps(bounds *geom.Bounds) bool {
	if bounds == nil || bounds.IsEmpty() {
		return false
	}
	return bounds.Overlaps(geom.XY, e.Bounds())
}

// Bounds returns e as a *geom.Bounds.
func (e Extent) Bounds() *geom.Bounds {
	return geom.NewBounds(geom.XY).Set(e.Left, e.Bottom, e.Right, e.Top)
}

// Union returns the smallest extent containing both e and other.
func (e Extent) Union(other Extent) Extent {
	return Extent{
		Left:   min(e.Left, other.Left),
		Bottom: min(e.Bottom, other.Bottom),
		Right:  max(e.Right, other.Right),
		Top:    max(e.Top, other.Top),
	}
}
