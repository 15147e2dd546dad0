// Package feature provides vector feature collections and the geometry
// housekeeping applied to them before and after raster sampling.
package feature

import (
	"maps"
	"slices"

	"github.com/twpayne/go-geom"
)

// A Feature is a geometry with an identifier and attributes.
type Feature struct {
	ID         string
	Geometry   geom.T
	Properties map[string]any
}

// A Collection is an ordered set of features sharing a spatial reference.
type Collection struct {
	SRID     int
	Features []*Feature
}

// NewCollection returns a new Collection.
func NewCollection(srid int, features ...*Feature) *Collection {
	return &Collection{
		SRID:     srid,
		Features: features,
	}
}

// Len returns the number of features in c.
func (c *Collection) Len() int {
	return len(c.Features)
}

// Geometries returns the geometries of c's features, in order.
func (c *Collection) Geometries() []geom.T {
	geometries := make([]geom.T, len(c.Features))
	for i, feature := range c.Features {
		geometries[i] = feature.Geometry
	}
	return geometries
}

// Subset returns a new Collection containing the features of c at indexes.
// Features are shared, not copied.
func (c *Collection) Subset(indexes []int) *Collection {
	features := make([]*Feature, 0, len(indexes))
	for _, index := range indexes {
		features = append(features, c.Features[index])
	}
	return NewCollection(c.SRID, features...)
}

// Columns returns the sorted union of the property names of c's features.
func (c *Collection) Columns() []string {
	columns := make(map[string]struct{})
	for _, feature := range c.Features {
		for key := range feature.Properties {
			columns[key] = struct{}{}
		}
	}
	return slices.Sorted(maps.Keys(columns))
}

// GeometryType returns the PostGIS name of the type shared by all of c's
// geometries, or GEOMETRY if they differ or c is empty.
func (c *Collection) GeometryType() string {
	geometryType := ""
	for _, feature := range c.Features {
		t := TypeName(feature.Geometry)
		switch {
		case geometryType == "":
			geometryType = t
		case geometryType != t:
			return "GEOMETRY"
		}
	}
	if geometryType == "" {
		return "GEOMETRY"
	}
	return geometryType
}

// Clone returns a copy of f with its own properties. The geometry is shared.
func (f *Feature) Clone() *Feature {
	return &Feature{
		ID:         f.ID,
		Geometry:   f.Geometry,
		Properties: maps.Clone(f.Properties),
	}
}

// SetProperty sets the property key of f to value.
func (f *Feature) SetProperty(key string, value any) {
	if f.Properties == nil {
		f.Properties = make(map[string]any)
	}
	f.Properties[key] = value
}

// TypeName returns the PostGIS name of g's type.
func TypeName(g geom.T) string {
	switch g.(type) {
	case *geom.Point:
		return "POINT"
	case *geom.LineString:
		return "LINESTRING"
	case *geom.Polygon:
		return "POLYGON"
	case *geom.MultiPoint:
		return "MULTIPOINT"
	case *geom.MultiLineString:
		return "MULTILINESTRING"
	case *geom.MultiPolygon:
		return "MULTIPOLYGON"
	case *geom.GeometryCollection:
		return "GEOMETRYCOLLECTION"
	default:
		return "GEOMETRY"
	}
}
