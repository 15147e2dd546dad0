package feature

import (
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkb"
	"github.com/twpayne/go-geom/xy"
	"go.uber.org/zap"
)

// A CleanReport counts the features dropped by Clean.
type CleanReport struct {
	Null      int
	Invalid   int
	Empty     int
	Duplicate int
}

// Dropped returns the total number of dropped features.
func (r CleanReport) Dropped() int {
	return r.Null + r.Invalid + r.Empty + r.Duplicate
}

// Clean returns a new Collection without the features of c whose geometry is
// missing, invalid, empty, or identical to the geometry of an earlier feature.
func Clean(c *Collection) (*Collection, CleanReport) {
	var report CleanReport
	seen := make(map[string]struct{}, len(c.Features))
	features := make([]*Feature, 0, len(c.Features))
	for _, feature := range c.Features {
		switch {
		case feature.Geometry == nil:
			report.Null++
			continue
		case feature.Geometry.Empty():
			report.Empty++
			continue
		case !IsValid(feature.Geometry):
			report.Invalid++
			continue
		}
		data, err := wkb.Marshal(feature.Geometry, wkb.NDR)
		if err != nil {
			report.Invalid++
			continue
		}
		if _, ok := seen[string(data)]; ok {
			report.Duplicate++
			continue
		}
		seen[string(data)] = struct{}{}
		features = append(features, feature)
	}

	if report.Dropped() > 0 {
		zap.L().Info("dropped geometries",
			zap.Int("null", report.Null),
			zap.Int("invalid", report.Invalid),
			zap.Int("empty", report.Empty),
			zap.Int("duplicate", report.Duplicate),
		)
	}

	return NewCollection(c.SRID, features...), report
}

// IsValid returns if g has finite coordinates and well formed parts. Line
// strings need at least two coordinates. Polygon rings need at least four
// coordinates, must be closed, and exterior rings must enclose an area.
func IsValid(g geom.T) bool {
	for _, coord := range g.FlatCoords() {
		if math.IsNaN(coord) || math.IsInf(coord, 0) {
			return false
		}
	}
	switch g := g.(type) {
	case *geom.LineString:
		return g.NumCoords() >= 2
	case *geom.MultiLineString:
		for i := range g.NumLineStrings() {
			if !IsValid(g.LineString(i)) {
				return false
			}
		}
		return true
	case *geom.Polygon:
		return validPolygon(g)
	case *geom.MultiPolygon:
		for i := range g.NumPolygons() {
			if !validPolygon(g.Polygon(i)) {
				return false
			}
		}
		return true
	case *geom.GeometryCollection:
		for _, child := range g.Geoms() {
			if !IsValid(child) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

func validPolygon(polygon *geom.Polygon) bool {
	if polygon.Empty() {
		return true
	}
	for i := range polygon.NumLinearRings() {
		ring := polygon.LinearRing(i)
		n := ring.NumCoords()
		if n < 4 {
			return false
		}
		first, last := ring.Coord(0), ring.Coord(n-1)
		if first.X() != last.X() || first.Y() != last.Y() {
			return false
		}
		if i == 0 && xy.SignedArea(ring.Layout(), ring.FlatCoords()) == 0 {
			return false
		}
	}
	return true
}

// IsolateDuplicates splits c on the value of the property field. The first
// feature with each value is kept, later features with the same value are
// isolated. Features without the property are kept.
func IsolateDuplicates(c *Collection, field string) (unique, duplicates *Collection) {
	unique = NewCollection(c.SRID)
	duplicates = NewCollection(c.SRID)
	seen := make(map[any]struct{})
	for _, feature := range c.Features {
		value, ok := feature.Properties[field]
		if !ok || value == nil {
			unique.Features = append(unique.Features, feature)
			continue
		}
		key := comparableKey(value)
		if _, ok := seen[key]; ok {
			duplicates.Features = append(duplicates.Features, feature)
			continue
		}
		seen[key] = struct{}{}
		unique.Features = append(unique.Features, feature)
	}
	return unique, duplicates
}

// comparableKey returns a map key for value.
func comparableKey(value any) any {
	switch value := value.(type) {
	case string, bool, int, int32, int64, float64:
		return value
	case []byte:
		return string(value)
	default:
		return fmt.Sprintf("%T:%v", value, value)
	}
}

// EnsureIDs assigns a new UUID to every feature of c whose ID is empty or
// already used by an earlier feature. It returns the number of assigned IDs.
func EnsureIDs(c *Collection) int {
	assigned := 0
	seen := make(map[string]struct{}, len(c.Features))
	for _, feature := range c.Features {
		if _, ok := seen[feature.ID]; feature.ID == "" || ok {
			feature.ID = uuid.NewString()
			assigned++
		}
		seen[feature.ID] = struct{}{}
	}
	return assigned
}

// HolePolygons returns the features of c whose polygons have interior rings,
// with their area set in the property area.
func HolePolygons(c *Collection) *Collection {
	holes := NewCollection(c.SRID)
	for _, feature := range c.Features {
		var area float64
		hasHole := false
		switch g := feature.Geometry.(type) {
		case *geom.Polygon:
			hasHole = g.NumLinearRings() > 1
			area = math.Abs(g.Area())
		case *geom.MultiPolygon:
			for i := range g.NumPolygons() {
				if g.Polygon(i).NumLinearRings() > 1 {
					hasHole = true
				}
			}
			area = math.Abs(g.Area())
		}
		if hasHole {
			feature.SetProperty("area", area)
			holes.Features = append(holes.Features, feature)
		}
	}
	if c.Len() > 0 {
		zap.L().Info("found polygons with holes",
			zap.Int("count", holes.Len()),
			zap.Float64("percent", 100*float64(holes.Len())/float64(c.Len())),
		)
	}
	return holes
}
