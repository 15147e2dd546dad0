package feature

import (
	"math"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/twpayne/go-geom"
)

func newSquare(minX, minY, maxX, maxY float64) *geom.Polygon {
	return geom.NewPolygonFlat(geom.XY, []float64{
		minX, minY, maxX, minY, maxX, maxY, minX, maxY, minX, minY,
	}, []int{10})
}

func newPoint(x, y float64) *geom.Point {
	return geom.NewPointFlat(geom.XY, []float64{x, y})
}

func TestCollection(t *testing.T) {
	c := NewCollection(2154,
		&Feature{ID: "a", Geometry: newSquare(0, 0, 1, 1), Properties: map[string]any{"height": 3.0}},
		&Feature{ID: "b", Geometry: newSquare(1, 1, 2, 2), Properties: map[string]any{"name": "b"}},
		&Feature{ID: "c", Geometry: newSquare(2, 2, 3, 3)},
	)
	assert.Equal(t, 3, c.Len())
	assert.Equal(t, []string{"height", "name"}, c.Columns())
	assert.Equal(t, "POLYGON", c.GeometryType())

	subset := c.Subset([]int{2, 0})
	assert.Equal(t, 2154, subset.SRID)
	assert.Equal(t, 2, subset.Len())
	assert.Equal(t, "c", subset.Features[0].ID)
	assert.Equal(t, "a", subset.Features[1].ID)

	c.Features[2].SetProperty("elevation", 12.5)
	assert.Equal(t, map[string]any{"elevation": 12.5}, c.Features[2].Properties)

	c.Features = append(c.Features, &Feature{ID: "d", Geometry: newPoint(0, 0)})
	assert.Equal(t, "GEOMETRY", c.GeometryType())
	assert.Equal(t, "GEOMETRY", NewCollection(0).GeometryType())
}

func TestClean(t *testing.T) {
	c := NewCollection(2154,
		&Feature{ID: "valid", Geometry: newSquare(0, 0, 1, 1)},
		&Feature{ID: "null"},
		&Feature{ID: "empty", Geometry: geom.NewPolygon(geom.XY)},
		&Feature{ID: "duplicate", Geometry: newSquare(0, 0, 1, 1)},
		&Feature{ID: "unclosed", Geometry: geom.NewPolygonFlat(geom.XY, []float64{0, 0, 1, 0, 1, 1, 0, 1}, []int{8})},
		&Feature{ID: "flat", Geometry: geom.NewPolygonFlat(geom.XY, []float64{0, 0, 1, 0, 2, 0, 0, 0}, []int{8})},
		&Feature{ID: "nan", Geometry: newPoint(math.NaN(), 0)},
		&Feature{ID: "point", Geometry: newPoint(5, 5)},
	)
	cleaned, report := Clean(c)
	assert.Equal(t, CleanReport{
		Null:      1,
		Invalid:   3,
		Empty:     1,
		Duplicate: 1,
	}, report)
	assert.Equal(t, 6, report.Dropped())
	assert.Equal(t, 2, cleaned.Len())
	assert.Equal(t, "valid", cleaned.Features[0].ID)
	assert.Equal(t, "point", cleaned.Features[1].ID)
}

func TestIsolateDuplicates(t *testing.T) {
	c := NewCollection(2154,
		&Feature{ID: "1", Properties: map[string]any{"code": "A"}},
		&Feature{ID: "2", Properties: map[string]any{"code": "B"}},
		&Feature{ID: "3", Properties: map[string]any{"code": "A"}},
		&Feature{ID: "4"},
		&Feature{ID: "5", Properties: map[string]any{"code": "A"}},
	)
	unique, duplicates := IsolateDuplicates(c, "code")
	assert.Equal(t, []string{"1", "2", "4"}, ids(unique))
	assert.Equal(t, []string{"3", "5"}, ids(duplicates))
}

func TestEnsureIDs(t *testing.T) {
	c := NewCollection(2154,
		&Feature{ID: "a"},
		&Feature{},
		&Feature{ID: "a"},
		&Feature{ID: "b"},
	)
	assert.Equal(t, 2, EnsureIDs(c))
	assert.Equal(t, "a", c.Features[0].ID)
	assert.Equal(t, "b", c.Features[3].ID)
	assert.NotEqual(t, "", c.Features[1].ID)
	assert.NotEqual(t, "a", c.Features[2].ID)
	assert.NotEqual(t, c.Features[1].ID, c.Features[2].ID)
	assert.Equal(t, 0, EnsureIDs(c))
}

func TestHolePolygons(t *testing.T) {
	withHole := geom.NewPolygonFlat(geom.XY, []float64{
		0, 0, 10, 0, 10, 10, 0, 10, 0, 0,
		2, 2, 2, 4, 4, 4, 4, 2, 2, 2,
	}, []int{10, 20})
	c := NewCollection(2154,
		&Feature{ID: "plain", Geometry: newSquare(0, 0, 1, 1)},
		&Feature{ID: "hole", Geometry: withHole},
		&Feature{ID: "point", Geometry: newPoint(0, 0)},
	)
	holes := HolePolygons(c)
	assert.Equal(t, []string{"hole"}, ids(holes))
	assert.Equal(t, 96.0, holes.Features[0].Properties["area"])
}

func TestMultiPolygonConversions(t *testing.T) {
	multiPolygon := geom.NewMultiPolygonFlat(geom.XY, []float64{
		0, 0, 1, 0, 1, 1, 0, 1, 0, 0,
		5, 5, 6, 5, 6, 6, 5, 6, 5, 5,
	}, [][]int{{10}, {20}})
	c := NewCollection(2154,
		&Feature{ID: "single", Geometry: newSquare(0, 0, 1, 1), Properties: map[string]any{"k": 1}},
		&Feature{ID: "multi", Geometry: multiPolygon, Properties: map[string]any{"k": 2}},
		&Feature{ID: "point", Geometry: newPoint(0, 0)},
	)

	exploded := Explode(c)
	assert.Equal(t, []string{"single", "multi", "multi"}, ids(exploded))
	assert.Equal(t, "POLYGON", exploded.GeometryType())
	exploded.Features[1].SetProperty("k", 3)
	assert.Equal(t, 2, exploded.Features[2].Properties["k"])
	assert.Equal(t, 2, c.Features[1].Properties["k"])

	ToMultiPolygon(c)
	assert.Equal(t, "MULTIPOLYGON", TypeName(c.Features[0].Geometry))
	assert.Equal(t, 1, c.Features[0].Geometry.(*geom.MultiPolygon).NumPolygons())
	assert.Equal(t, "POINT", TypeName(c.Features[2].Geometry))
}

func TestForce2D(t *testing.T) {
	polygonZ := geom.NewPolygonFlat(geom.XYZ, []float64{
		0, 0, 1, 4, 0, 1, 4, 4, 1, 0, 4, 1, 0, 0, 1,
		1, 1, 1, 1, 2, 1, 2, 2, 1, 1, 1, 1,
	}, []int{15, 27}).SetSRID(2154)
	c := NewCollection(2154,
		&Feature{Geometry: polygonZ},
		&Feature{Geometry: geom.NewPointFlat(geom.XYZM, []float64{1, 2, 3, 4})},
		&Feature{Geometry: newPoint(7, 8)},
	)
	Force2D(c)

	polygon := c.Features[0].Geometry.(*geom.Polygon)
	assert.Equal(t, geom.XY, polygon.Layout())
	assert.Equal(t, 2154, polygon.SRID())
	assert.Equal(t, []int{10, 18}, polygon.Ends())
	assert.Equal(t, []float64{0, 0, 4, 0, 4, 4, 0, 4, 0, 0, 1, 1, 1, 2, 2, 2, 1, 1}, polygon.FlatCoords())

	point := c.Features[1].Geometry.(*geom.Point)
	assert.Equal(t, geom.XY, point.Layout())
	assert.Equal(t, []float64{1, 2}, point.FlatCoords())

	assert.Equal(t, []float64{7, 8}, c.Features[2].Geometry.FlatCoords())
}

func ids(c *Collection) []string {
	ids := make([]string, 0, c.Len())
	for _, feature := range c.Features {
		ids = append(ids, feature.ID)
	}
	return ids
}
