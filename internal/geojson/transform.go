package geojson

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-proj/v10"

	"github.com/twpayne/go-rastersample"
)

// A Transformer reprojects geometries between two coordinate reference
// systems, with coordinates always in easting, northing order.
type Transformer struct {
	pj         *proj.PJ
	flipSource bool
	flipTarget bool
	targetSRID int
}

// NewTransformer returns a new Transformer from sourceSRID to targetSRID.
func NewTransformer(sourceSRID, targetSRID int) (*Transformer, error) {
	if sourceSRID == 0 || targetSRID == 0 {
		return nil, eris.Errorf("geojson: invalid transform from SRID %d to SRID %d", sourceSRID, targetSRID)
	}
	pj, err := proj.NewCRSToCRS(fmt.Sprintf("epsg:%d", sourceSRID), fmt.Sprintf("epsg:%d", targetSRID), nil)
	if err != nil {
		return nil, eris.Wrapf(err, "geojson: transform from SRID %d to SRID %d", sourceSRID, targetSRID)
	}
	return &Transformer{
		pj:         pj,
		flipSource: rastersample.NorthingFirst(sourceSRID),
		flipTarget: rastersample.NorthingFirst(targetSRID),
		targetSRID: targetSRID,
	}, nil
}

// TargetSRID returns t's target SRID.
func (t *Transformer) TargetSRID() int {
	return t.targetSRID
}

// Transform returns a reprojected copy of g.
func (t *Transformer) Transform(g geom.T) (geom.T, error) {
	switch g := g.(type) {
	case nil:
		return nil, nil
	case *geom.Point:
		flatCoords, err := t.transformFlatCoords(g.FlatCoords(), g.Stride())
		if err != nil {
			return nil, err
		}
		return geom.NewPointFlat(g.Layout(), flatCoords).SetSRID(t.targetSRID), nil
	case *geom.LineString:
		flatCoords, err := t.transformFlatCoords(g.FlatCoords(), g.Stride())
		if err != nil {
			return nil, err
		}
		return geom.NewLineStringFlat(g.Layout(), flatCoords).SetSRID(t.targetSRID), nil
	case *geom.Polygon:
		flatCoords, err := t.transformFlatCoords(g.FlatCoords(), g.Stride())
		if err != nil {
			return nil, err
		}
		return geom.NewPolygonFlat(g.Layout(), flatCoords, g.Ends()).SetSRID(t.targetSRID), nil
	case *geom.MultiPoint:
		flatCoords, err := t.transformFlatCoords(g.FlatCoords(), g.Stride())
		if err != nil {
			return nil, err
		}
		return geom.NewMultiPointFlat(g.Layout(), flatCoords).SetSRID(t.targetSRID), nil
	case *geom.MultiLineString:
		flatCoords, err := t.transformFlatCoords(g.FlatCoords(), g.Stride())
		if err != nil {
			return nil, err
		}
		return geom.NewMultiLineStringFlat(g.Layout(), flatCoords, g.Ends()).SetSRID(t.targetSRID), nil
	case *geom.MultiPolygon:
		flatCoords, err := t.transformFlatCoords(g.FlatCoords(), g.Stride())
		if err != nil {
			return nil, err
		}
		return geom.NewMultiPolygonFlat(g.Layout(), flatCoords, g.Endss()).SetSRID(t.targetSRID), nil
	case *geom.GeometryCollection:
		collection := geom.NewGeometryCollection()
		for _, child := range g.Geoms() {
			transformed, err := t.Transform(child)
			if err != nil {
				return nil, err
			}
			if err := collection.Push(transformed); err != nil {
				return nil, err
			}
		}
		return collection.SetSRID(t.targetSRID), nil
	default:
		return nil, eris.Errorf("geojson: %T: unsupported geometry", g)
	}
}

// transformFlatCoords returns a transformed copy of flatCoords.
func (t *Transformer) transformFlatCoords(flatCoords []float64, stride int) ([]float64, error) {
	result := make([]float64, len(flatCoords))
	copy(result, flatCoords)
	if len(result) == 0 {
		return result, nil
	}
	coords := make([][]float64, len(result)/stride)
	for i := range coords {
		coords[i] = result[i*stride : i*stride+min(stride, 3) : i*stride+min(stride, 3)]
	}
	if t.flipSource {
		flipCoords(coords)
	}
	if err := t.pj.ForwardFloat64Slices(coords); err != nil {
		return nil, eris.Wrap(err, "geojson: transform")
	}
	if t.flipTarget {
		flipCoords(coords)
	}
	return result, nil
}

func flipCoords(coords [][]float64) {
	for _, coord := range coords {
		coord[0], coord[1] = coord[1], coord[0]
	}
}
