package feature

import (
	"maps"

	"github.com/twpayne/go-geom"
)

// ToMultiPolygon converts the polygons of c to single member multipolygons in
// place, so that all surfaces share one type.
func ToMultiPolygon(c *Collection) {
	for _, feature := range c.Features {
		polygon, ok := feature.Geometry.(*geom.Polygon)
		if !ok {
			continue
		}
		multiPolygon := geom.NewMultiPolygon(polygon.Layout()).SetSRID(polygon.SRID())
		if err := multiPolygon.Push(polygon); err != nil {
			continue
		}
		feature.Geometry = multiPolygon
	}
}

// Explode returns a new Collection in which every multipolygon of c is
// replaced by one feature per member polygon. Exploded features share the ID
// and a copy of the properties of their source feature. Features that are not
// surfaces are dropped.
func Explode(c *Collection) *Collection {
	exploded := NewCollection(c.SRID)
	for _, feature := range c.Features {
		switch g := feature.Geometry.(type) {
		case *geom.Polygon:
			exploded.Features = append(exploded.Features, feature)
		case *geom.MultiPolygon:
			for i := range g.NumPolygons() {
				polygon := g.Polygon(i)
				if polygon.Empty() {
					continue
				}
				exploded.Features = append(exploded.Features, &Feature{
					ID:         feature.ID,
					Geometry:   polygon.SetSRID(g.SRID()),
					Properties: maps.Clone(feature.Properties),
				})
			}
		}
	}
	return exploded
}

// Force2D sets the geometries of c to their projection on the XY plane.
func Force2D(c *Collection) {
	for _, feature := range c.Features {
		if feature.Geometry != nil {
			feature.Geometry = To2D(feature.Geometry)
		}
	}
}

// To2D returns g without its Z and M coordinates. Geometries that are already
// two dimensional are returned unchanged.
func To2D(g geom.T) geom.T {
	stride := g.Stride()
	if stride == 2 {
		return g
	}
	flatCoords := flatCoords2D(g.FlatCoords(), stride)
	var result geom.T
	switch g := g.(type) {
	case *geom.Point:
		if g.Empty() {
			result = geom.NewPointEmpty(geom.XY)
		} else {
			result = geom.NewPointFlat(geom.XY, flatCoords)
		}
	case *geom.LineString:
		result = geom.NewLineStringFlat(geom.XY, flatCoords)
	case *geom.Polygon:
		result = geom.NewPolygonFlat(geom.XY, flatCoords, ends2D(g.Ends(), stride))
	case *geom.MultiPoint:
		result = geom.NewMultiPointFlat(geom.XY, flatCoords)
	case *geom.MultiLineString:
		result = geom.NewMultiLineStringFlat(geom.XY, flatCoords, ends2D(g.Ends(), stride))
	case *geom.MultiPolygon:
		endss := make([][]int, len(g.Endss()))
		for i, ends := range g.Endss() {
			endss[i] = ends2D(ends, stride)
		}
		result = geom.NewMultiPolygonFlat(geom.XY, flatCoords, endss)
	case *geom.GeometryCollection:
		collection := geom.NewGeometryCollection()
		for _, child := range g.Geoms() {
			if err := collection.Push(To2D(child)); err != nil {
				return g
			}
		}
		return collection.SetSRID(g.SRID())
	default:
		return g
	}
	return SetSRID(result, g.SRID())
}

func flatCoords2D(flatCoords []float64, stride int) []float64 {
	result := make([]float64, 0, 2*len(flatCoords)/stride)
	for i := 0; i+1 < len(flatCoords); i += stride {
		result = append(result, flatCoords[i], flatCoords[i+1])
	}
	return result
}

func ends2D(ends []int, stride int) []int {
	result := make([]int, len(ends))
	for i, end := range ends {
		result[i] = 2 * end / stride
	}
	return result
}

// SetSRID sets the SRID of g in place and returns g.
func SetSRID(g geom.T, srid int) geom.T {
	switch g := g.(type) {
	case *geom.Point:
		return g.SetSRID(srid)
	case *geom.LineString:
		return g.SetSRID(srid)
	case *geom.Polygon:
		return g.SetSRID(srid)
	case *geom.MultiPoint:
		return g.SetSRID(srid)
	case *geom.MultiLineString:
		return g.SetSRID(srid)
	case *geom.MultiPolygon:
		return g.SetSRID(srid)
	case *geom.GeometryCollection:
		return g.SetSRID(srid)
	default:
		return g
	}
}
