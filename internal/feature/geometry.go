package feature

import (
	"math"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"github.com/twpayne/go-geom/xy/location"
)

// A segment is a line segment between two coordinates.
type segment [2]geom.Coord

// parts returns the vertices, segments, and polygons making up g.
func parts(g geom.T) (vertices []geom.Coord, segments []segment, polygons []*geom.Polygon) {
	appendVertices := func(flatCoords []float64, stride int) {
		for i := 0; i+1 < len(flatCoords); i += stride {
			vertices = append(vertices, geom.Coord{flatCoords[i], flatCoords[i+1]})
		}
	}
	appendSegments := func(flatCoords []float64, stride int) {
		for i := 0; i+stride+1 < len(flatCoords); i += stride {
			segments = append(segments, segment{
				{flatCoords[i], flatCoords[i+1]},
				{flatCoords[i+stride], flatCoords[i+stride+1]},
			})
		}
	}
	var visit func(geom.T)
	visit = func(g geom.T) {
		if g == nil || g.Empty() {
			return
		}
		stride := g.Stride()
		switch g := g.(type) {
		case *geom.Point, *geom.MultiPoint:
			appendVertices(g.FlatCoords(), stride)
		case *geom.LineString:
			appendVertices(g.FlatCoords(), stride)
			appendSegments(g.FlatCoords(), stride)
		case *geom.MultiLineString:
			for i := range g.NumLineStrings() {
				visit(g.LineString(i))
			}
		case *geom.Polygon:
			polygons = append(polygons, g)
			for i := range g.NumLinearRings() {
				ring := g.LinearRing(i)
				appendVertices(ring.FlatCoords(), stride)
				appendSegments(ring.FlatCoords(), stride)
			}
		case *geom.MultiPolygon:
			for i := range g.NumPolygons() {
				visit(g.Polygon(i))
			}
		case *geom.GeometryCollection:
			for _, child := range g.Geoms() {
				visit(child)
			}
		}
	}
	visit(g)
	return vertices, segments, polygons
}

// Intersects returns if a and b have at least one point in common.
func Intersects(a, b geom.T) bool {
	if a == nil || b == nil || a.Empty() || b.Empty() {
		return false
	}
	if !a.Bounds().Overlaps(geom.XY, b.Bounds()) {
		return false
	}
	verticesA, segmentsA, polygonsA := parts(a)
	verticesB, segmentsB, polygonsB := parts(b)
	for _, vertex := range verticesA {
		if covers(vertex, verticesB, segmentsB, polygonsB) {
			return true
		}
	}
	for _, vertex := range verticesB {
		if covers(vertex, verticesA, segmentsA, polygonsA) {
			return true
		}
	}
	for _, segmentA := range segmentsA {
		for _, segmentB := range segmentsB {
			if segmentsIntersect(segmentA, segmentB) {
				return true
			}
		}
	}
	return false
}

// Distance returns the Euclidean distance between coord and g.
func Distance(coord geom.Coord, g geom.T) float64 {
	vertices, segments, polygons := parts(g)
	for _, polygon := range polygons {
		if polygonCovers(polygon, coord) {
			return 0
		}
	}
	distance := math.Inf(1)
	for _, vertex := range vertices {
		distance = min(distance, math.Hypot(coord[0]-vertex[0], coord[1]-vertex[1]))
	}
	for _, s := range segments {
		distance = min(distance, segmentDistance(coord, s))
	}
	return distance
}

// Centroid returns the centroid of g, falling back to its first coordinate
// if the centroid is undefined.
func Centroid(g geom.T) (geom.Coord, bool) {
	if g == nil || g.Empty() {
		return nil, false
	}
	if centroid, err := xy.Centroid(g); err == nil && len(centroid) >= 2 &&
		!math.IsNaN(centroid[0]) && !math.IsNaN(centroid[1]) {
		return geom.Coord{centroid[0], centroid[1]}, true
	}
	flatCoords := g.FlatCoords()
	return geom.Coord{flatCoords[0], flatCoords[1]}, true
}

func covers(coord geom.Coord, vertices []geom.Coord, segments []segment, polygons []*geom.Polygon) bool {
	for _, vertex := range vertices {
		if coord[0] == vertex[0] && coord[1] == vertex[1] {
			return true
		}
	}
	for _, s := range segments {
		if orientation(s[0], s[1], coord) == 0 && onSegment(s[0], coord, s[1]) {
			return true
		}
	}
	for _, polygon := range polygons {
		if polygonCovers(polygon, coord) {
			return true
		}
	}
	return false
}

// polygonCovers returns if coord is in the interior or on the boundary of
// polygon.
func polygonCovers(polygon *geom.Polygon, coord geom.Coord) bool {
	layout := polygon.Layout()
	p := make(geom.Coord, layout.Stride())
	p[0], p[1] = coord[0], coord[1]
	for i := range polygon.NumLinearRings() {
		loc := xy.LocatePointInRing(layout, p, polygon.LinearRing(i).FlatCoords())
		switch {
		case loc == location.Boundary:
			return true
		case i == 0 && loc == location.Exterior:
			return false
		case i > 0 && loc == location.Interior:
			return false
		}
	}
	return true
}

func orientation(p, q, r geom.Coord) float64 {
	return (q[0]-p[0])*(r[1]-p[1]) - (q[1]-p[1])*(r[0]-p[0])
}

func onSegment(p, q, r geom.Coord) bool {
	return min(p[0], r[0]) <= q[0] && q[0] <= max(p[0], r[0]) &&
		min(p[1], r[1]) <= q[1] && q[1] <= max(p[1], r[1])
}

func segmentsIntersect(a, b segment) bool {
	d1 := orientation(b[0], b[1], a[0])
	d2 := orientation(b[0], b[1], a[1])
	d3 := orientation(a[0], a[1], b[0])
	d4 := orientation(a[0], a[1], b[1])
	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) && ((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	switch {
	case d1 == 0 && onSegment(b[0], a[0], b[1]):
		return true
	case d2 == 0 && onSegment(b[0], a[1], b[1]):
		return true
	case d3 == 0 && onSegment(a[0], b[0], a[1]):
		return true
	case d4 == 0 && onSegment(a[0], b[1], a[1]):
		return true
	default:
		return false
	}
}

func segmentDistance(p geom.Coord, s segment) float64 {
	dx, dy := s[1][0]-s[0][0], s[1][1]-s[0][1]
	lengthSquared := dx*dx + dy*dy
	if lengthSquared == 0 {
		return math.Hypot(p[0]-s[0][0], p[1]-s[0][1])
	}
	t := ((p[0]-s[0][0])*dx + (p[1]-s[0][1])*dy) / lengthSquared
	t = max(0, min(1, t))
	return math.Hypot(p[0]-(s[0][0]+t*dx), p[1]-(s[0][1]+t*dy))
}
