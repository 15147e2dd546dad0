// Package shapefile reads and writes feature collections as ESRI shapefiles.
package shapefile

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/twpayne/go-rastersample/internal/feature"
)

// Read reads the shapefile at path. Shapefiles do not carry an SRID, so it
// must be given.
func Read(path string, srid int) (*feature.Collection, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "shapefile: open %s", path)
	}
	defer func() { _ = reader.Close() }()

	fields := reader.Fields()
	names := make([]string, len(fields))
	for i, field := range fields {
		names[i] = strings.TrimRight(field.String(), "\x00")
	}

	c := feature.NewCollection(srid)
	skipped := 0
	for reader.Next() {
		n, shape := reader.Shape()
		g, err := decodeShape(shape)
		if err != nil {
			zap.L().Debug("skipping shape", zap.Int("record", n), zap.Error(err))
			skipped++
		}
		if g != nil {
			g = feature.SetSRID(g, srid)
		}
		f := &feature.Feature{
			ID:         strconv.Itoa(n),
			Geometry:   g,
			Properties: make(map[string]any, len(fields)),
		}
		for i, field := range fields {
			if value := attributeValue(field, reader.Attribute(i)); value != nil {
				f.Properties[names[i]] = value
			}
		}
		c.Features = append(c.Features, f)
	}

	zap.L().Info("read shapefile",
		zap.String("path", path),
		zap.Int("features", c.Len()),
		zap.Int("skipped", skipped),
	)
	return c, nil
}

// Write writes c to the shapefile at path, with its attributes in the
// matching .dbf and its coordinate reference system in the matching .prj when
// c's SRID is known. All geometries must be of the same dimension. Features
// without a geometry are not written.
func Write(path string, c *feature.Collection) error {
	shapeType, err := collectionShapeType(c)
	if err != nil {
		return err
	}

	base := basename(path)
	writer, err := shp.Create(base+".shp", shapeType)
	if err != nil {
		return eris.Wrapf(err, "shapefile: create %s", path)
	}

	written, err := writeFeatures(writer, c)
	writer.Close()
	if err != nil {
		return eris.Wrapf(err, "shapefile: write %s", path)
	}

	// go-shp names the attribute file <base>dbf.
	if err := os.Rename(base+"dbf", base+".dbf"); err != nil {
		return eris.Wrapf(err, "shapefile: rename attributes of %s", path)
	}

	if err := writePRJ(base+".prj", c.SRID); err != nil {
		return err
	}

	zap.L().Info("wrote shapefile", zap.String("path", path), zap.Int("features", written))
	return nil
}

func writeFeatures(writer *shp.Writer, c *feature.Collection) (int, error) {
	columns := c.Columns()
	fieldNames := FieldNames(columns)
	fields := make([]shp.Field, len(columns))
	for i, column := range columns {
		fields[i] = fieldFor(fieldNames[i], c, column)
	}
	if err := writer.SetFields(fields); err != nil {
		return 0, eris.Wrap(err, "set fields")
	}

	written := 0
	for _, f := range c.Features {
		if f.Geometry == nil || f.Geometry.Empty() {
			continue
		}
		shape, err := encodeShape(f.Geometry, writer.GeometryType)
		if err != nil {
			return written, eris.Wrapf(err, "feature %s", f.ID)
		}
		row := int(writer.Write(shape))
		for i, column := range columns {
			value, ok := dbfValue(fields[i], f.Properties[column])
			if !ok {
				continue
			}
			if err := writer.WriteAttribute(row, i, value); err != nil {
				return written, eris.Wrapf(err, "write attribute %s of feature %s", column, f.ID)
			}
		}
		written++
	}
	return written, nil
}

// writePRJ writes the ESRI WKT of srid to path. Unknown SRIDs are skipped.
func writePRJ(path string, srid int) error {
	wkt, ok := esriWKTs[srid]
	if !ok {
		zap.L().Debug("no projection file", zap.String("path", path), zap.Int("srid", srid))
		return nil
	}
	if err := os.WriteFile(path, []byte(wkt), 0o666); err != nil {
		return eris.Wrapf(err, "shapefile: write %s", path)
	}
	return nil
}

// basename returns path without its .shp extension, matched case
// insensitively as go-shp does.
func basename(path string) string {
	if strings.HasSuffix(strings.ToLower(path), ".shp") {
		return path[:len(path)-len(".shp")]
	}
	return path
}

// decodeShape converts shape to a geometry. Polygon rings are grouped into
// polygons by orientation, with clockwise rings starting a new polygon.
func decodeShape(shape shp.Shape) (geom.T, error) {
	switch s := shape.(type) {
	case nil, *shp.Null:
		return nil, nil
	case *shp.Point:
		return geom.NewPointFlat(geom.XY, []float64{s.X, s.Y}), nil
	case *shp.PointZ:
		return geom.NewPointFlat(geom.XYZ, []float64{s.X, s.Y, s.Z}), nil
	case *shp.MultiPoint:
		flatCoords := make([]float64, 0, 2*len(s.Points))
		for _, point := range s.Points {
			flatCoords = append(flatCoords, point.X, point.Y)
		}
		return geom.NewMultiPointFlat(geom.XY, flatCoords), nil
	case *shp.PolyLine:
		parts := splitParts(s.Parts, s.Points)
		multiLineString := geom.NewMultiLineString(geom.XY)
		for _, part := range parts {
			if err := multiLineString.Push(geom.NewLineStringFlat(geom.XY, part)); err != nil {
				return nil, err
			}
		}
		if multiLineString.NumLineStrings() == 1 {
			return multiLineString.LineString(0), nil
		}
		return multiLineString, nil
	case *shp.Polygon:
		return decodePolygon(splitParts(s.Parts, s.Points))
	default:
		return nil, fmt.Errorf("%T: unsupported shape", shape)
	}
}

// decodePolygon groups rings into polygons. Shapefile exteriors are clockwise
// and holes counter-clockwise, so every ring is reversed to give exteriors a
// positive area.
func decodePolygon(rings [][]float64) (geom.T, error) {
	multiPolygon := geom.NewMultiPolygon(geom.XY)
	var polygon *geom.Polygon
	for _, ring := range rings {
		if len(ring) < 8 {
			continue
		}
		if ringArea(ring) <= 0 || polygon == nil {
			if polygon != nil {
				if err := multiPolygon.Push(polygon); err != nil {
					return nil, err
				}
			}
			polygon = geom.NewPolygon(geom.XY)
		}
		if err := polygon.Push(geom.NewLinearRingFlat(geom.XY, reverseRing(ring))); err != nil {
			return nil, err
		}
	}
	if polygon == nil {
		return nil, nil
	}
	if multiPolygon.NumPolygons() == 0 {
		return polygon, nil
	}
	if err := multiPolygon.Push(polygon); err != nil {
		return nil, err
	}
	return multiPolygon, nil
}

// encodeShape converts g to a shape of type shapeType.
func encodeShape(g geom.T, shapeType shp.ShapeType) (shp.Shape, error) {
	switch g := g.(type) {
	case *geom.Point:
		return &shp.Point{X: g.X(), Y: g.Y()}, nil
	case *geom.LineString:
		return shp.NewPolyLine([][]shp.Point{points(g.FlatCoords(), g.Stride(), false)}), nil
	case *geom.MultiLineString:
		parts := make([][]shp.Point, 0, g.NumLineStrings())
		for i := range g.NumLineStrings() {
			parts = append(parts, points(g.LineString(i).FlatCoords(), g.Stride(), false))
		}
		return shp.NewPolyLine(parts), nil
	case *geom.Polygon:
		polygon := shp.Polygon(*shp.NewPolyLine(polygonParts(nil, g)))
		return &polygon, nil
	case *geom.MultiPolygon:
		var parts [][]shp.Point
		for i := range g.NumPolygons() {
			parts = polygonParts(parts, g.Polygon(i))
		}
		polygon := shp.Polygon(*shp.NewPolyLine(parts))
		return &polygon, nil
	default:
		return nil, fmt.Errorf("%T: unsupported geometry for shape type %d", g, shapeType)
	}
}

// polygonParts appends the rings of polygon to parts, with the exterior ring
// clockwise and holes counter-clockwise.
func polygonParts(parts [][]shp.Point, polygon *geom.Polygon) [][]shp.Point {
	for i := range polygon.NumLinearRings() {
		flatCoords := polygon.LinearRing(i).FlatCoords()
		clockwise := ringArea(flatCoords2D(flatCoords, polygon.Stride())) < 0
		reverse := (i == 0) != clockwise
		parts = append(parts, points(flatCoords, polygon.Stride(), reverse))
	}
	return parts
}

func collectionShapeType(c *feature.Collection) (shp.ShapeType, error) {
	var shapeType shp.ShapeType
	for _, f := range c.Features {
		var t shp.ShapeType
		switch f.Geometry.(type) {
		case nil:
			continue
		case *geom.Point:
			t = shp.POINT
		case *geom.LineString, *geom.MultiLineString:
			t = shp.POLYLINE
		case *geom.Polygon, *geom.MultiPolygon:
			t = shp.POLYGON
		default:
			return 0, eris.Errorf("shapefile: %s: unsupported geometry type", feature.TypeName(f.Geometry))
		}
		switch {
		case shapeType == 0:
			shapeType = t
		case shapeType != t:
			return 0, eris.New("shapefile: mixed geometry types")
		}
	}
	if shapeType == 0 {
		return shp.POINT, nil
	}
	return shapeType, nil
}

func splitParts(parts []int32, shpPoints []shp.Point) [][]float64 {
	result := make([][]float64, 0, len(parts))
	for i, start := range parts {
		end := int32(len(shpPoints))
		if i+1 < len(parts) {
			end = parts[i+1]
		}
		if start < 0 || end > int32(len(shpPoints)) || start >= end {
			continue
		}
		flatCoords := make([]float64, 0, 2*(end-start))
		for _, point := range shpPoints[start:end] {
			flatCoords = append(flatCoords, point.X, point.Y)
		}
		result = append(result, flatCoords)
	}
	return result
}

func points(flatCoords []float64, stride int, reverse bool) []shp.Point {
	n := len(flatCoords) / stride
	result := make([]shp.Point, n)
	for i := range n {
		j := i
		if reverse {
			j = n - 1 - i
		}
		result[j] = shp.Point{X: flatCoords[i*stride], Y: flatCoords[i*stride+1]}
	}
	return result
}

func flatCoords2D(flatCoords []float64, stride int) []float64 {
	if stride == 2 {
		return flatCoords
	}
	result := make([]float64, 0, 2*len(flatCoords)/stride)
	for i := 0; i+1 < len(flatCoords); i += stride {
		result = append(result, flatCoords[i], flatCoords[i+1])
	}
	return result
}

func reverseRing(flatCoords []float64) []float64 {
	result := make([]float64, len(flatCoords))
	for i := 0; i+1 < len(flatCoords); i += 2 {
		j := len(flatCoords) - 2 - i
		result[j], result[j+1] = flatCoords[i], flatCoords[i+1]
	}
	return result
}

// ringArea returns the signed area of an XY ring, positive if the ring is
// counter-clockwise.
func ringArea(flatCoords []float64) float64 {
	area := 0.0
	for i := 0; i+3 < len(flatCoords); i += 2 {
		area += flatCoords[i]*flatCoords[i+3] - flatCoords[i+2]*flatCoords[i+1]
	}
	return area / 2
}
