package rastersample

import (
	"math"
	"slices"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"github.com/twpayne/go-geom/xy/location"
)

// SampleCoords returns the coordinates at which g is sampled. Points are
// sampled at their own coordinate. Polygons are sampled on an adaptive grid,
// falling back to their centroid and then to a representative point. All
// other geometries are sampled at a representative point.
func SampleCoords(g geom.T) []Coord {
	var coords []Coord
	switch g := g.(type) {
	case *geom.Point:
		if !g.Empty() {
			coords = []Coord{{X: g.X(), Y: g.Y()}}
		}
	case *geom.Polygon:
		coords = GridCoords(g)
		if len(coords) == 0 {
			if centroid, ok := polygonCentroid(g); ok {
				coords = []Coord{centroid}
			}
		}
	}
	if len(coords) == 0 {
		if coord, ok := RepresentativePoint(g); ok {
			coords = []Coord{coord}
		}
	}
	return coords
}

// GridCoords returns the points of a square grid that lie strictly inside
// polygon. The grid spacing is half the length of the diagonal of polygon's
// bounds and the grid is aligned to multiples of the spacing.
func GridCoords(polygon *geom.Polygon) []Coord {
	if polygon.Empty() {
		return nil
	}
	bounds := polygon.Bounds()
	minX, minY := bounds.Min(0), bounds.Min(1)
	maxX, maxY := bounds.Max(0), bounds.Max(1)
	interval := math.Hypot(maxX-minX, maxY-minY) / 2
	if interval == 0 || math.IsNaN(interval) || math.IsInf(interval, 0) {
		return nil
	}

	lowX := math.Floor(minX/interval) * interval
	uppX := math.Ceil(maxX/interval)*interval + interval
	lowY := math.Floor(minY/interval) * interval
	uppY := math.Ceil(maxY/interval)*interval + interval

	var coords []Coord
	for i := 0; ; i++ {
		x := lowX + float64(i)*interval
		if x >= uppX {
			break
		}
		for j := 0; ; j++ {
			y := lowY + float64(j)*interval
			if y >= uppY {
				break
			}
			coord := Coord{X: x, Y: y}
			if polygonInteriorContains(polygon, coord) {
				coords = append(coords, coord)
			}
		}
	}
	return coords
}

// polygonInteriorContains returns if coord is in the interior of polygon.
// Points on the boundary, including the boundaries of holes, are not
// contained.
func polygonInteriorContains(polygon *geom.Polygon, coord Coord) bool {
	layout := polygon.Layout()
	p := make(geom.Coord, layout.Stride())
	p[0], p[1] = coord.X, coord.Y
	for i := range polygon.NumLinearRings() {
		loc := xy.LocatePointInRing(layout, p, polygon.LinearRing(i).FlatCoords())
		switch {
		case loc == location.Boundary:
			return false
		case i == 0 && loc == location.Exterior:
			return false
		case i > 0 && loc == location.Interior:
			return false
		}
	}
	return true
}

// polygonCentroid returns the area centroid of polygon, if it is defined.
func polygonCentroid(polygon *geom.Polygon) (Coord, bool) {
	if polygon.Empty() || polygon.NumLinearRings() == 0 {
		return Coord{}, false
	}
	centroid, err := xy.Centroid(polygon)
	if err != nil || len(centroid) < 2 {
		return Coord{}, false
	}
	coord := Coord{X: centroid[0], Y: centroid[1]}
	if !isFinite(coord) {
		return Coord{}, false
	}
	return coord, true
}

// RepresentativePoint returns a point guaranteed to lie on g. For polygons the
// point lies in the interior where one can be found.
func RepresentativePoint(g geom.T) (Coord, bool) {
	if g == nil || g.Empty() {
		return Coord{}, false
	}
	switch g := g.(type) {
	case *geom.Point:
		return Coord{X: g.X(), Y: g.Y()}, true
	case *geom.MultiPoint:
		for i := range g.NumPoints() {
			if point := g.Point(i); !point.Empty() {
				return Coord{X: point.X(), Y: point.Y()}, true
			}
		}
		return Coord{}, false
	case *geom.LineString:
		return flatCoord(g.FlatCoords(), g.Stride(), g.NumCoords()/2), true
	case *geom.MultiLineString:
		for i := range g.NumLineStrings() {
			if coord, ok := RepresentativePoint(g.LineString(i)); ok {
				return coord, true
			}
		}
		return Coord{}, false
	case *geom.Polygon:
		return polygonRepresentativePoint(g)
	case *geom.MultiPolygon:
		largest, largestArea := -1, -1.0
		for i := range g.NumPolygons() {
			if area := math.Abs(g.Polygon(i).Area()); !g.Polygon(i).Empty() && area > largestArea {
				largest, largestArea = i, area
			}
		}
		if largest < 0 {
			return Coord{}, false
		}
		return polygonRepresentativePoint(g.Polygon(largest))
	case *geom.GeometryCollection:
		for _, child := range g.Geoms() {
			if coord, ok := RepresentativePoint(child); ok {
				return coord, true
			}
		}
		return Coord{}, false
	default:
		flatCoords := g.FlatCoords()
		if len(flatCoords) < 2 {
			return Coord{}, false
		}
		return Coord{X: flatCoords[0], Y: flatCoords[1]}, true
	}
}

// polygonRepresentativePoint returns the midpoint of the widest interior span
// of polygon along the horizontal line through the middle of its bounds. If
// there is no such span, for example because polygon has zero area, it returns
// the first vertex of polygon.
func polygonRepresentativePoint(polygon *geom.Polygon) (Coord, bool) {
	if polygon.Empty() || polygon.NumLinearRings() == 0 {
		return Coord{}, false
	}
	bounds := polygon.Bounds()
	y := (bounds.Min(1) + bounds.Max(1)) / 2
	stride := polygon.Stride()

	var crossings []float64
	for i := range polygon.NumLinearRings() {
		flatCoords := polygon.LinearRing(i).FlatCoords()
		for j := 0; j+2*stride <= len(flatCoords); j += stride {
			x0, y0 := flatCoords[j], flatCoords[j+1]
			x1, y1 := flatCoords[j+stride], flatCoords[j+stride+1]
			if (y0 > y) == (y1 > y) {
				continue
			}
			crossings = append(crossings, x0+(y-y0)*(x1-x0)/(y1-y0))
		}
	}
	slices.Sort(crossings)

	widest := -1.0
	var coord Coord
	for i := 0; i+1 < len(crossings); i += 2 {
		if width := crossings[i+1] - crossings[i]; width > widest {
			widest = width
			coord = Coord{X: (crossings[i] + crossings[i+1]) / 2, Y: y}
		}
	}
	if widest > 0 && isFinite(coord) {
		return coord, true
	}

	return flatCoord(polygon.FlatCoords(), stride, 0), true
}

func flatCoord(flatCoords []float64, stride, i int) Coord {
	return Coord{X: flatCoords[i*stride], Y: flatCoords[i*stride+1]}
}

func isFinite(coord Coord) bool {
	return !math.IsNaN(coord.X) && !math.IsInf(coord.X, 0) &&
		!math.IsNaN(coord.Y) && !math.IsInf(coord.Y, 0)
}
