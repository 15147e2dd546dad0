// Package geojson reads and writes feature collections as GeoJSON.
package geojson

import (
	"encoding/json"
	"io"
	"maps"
	"os"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/twpayne/go-rastersample/internal/feature"
)

// SRID is the SRID of GeoJSON coordinates.
const SRID = 4326

// WriteOptions configures Write.
type WriteOptions struct {
	Transformer   *Transformer // Reprojects geometries, if set.
	ColorProperty string       // Numeric property colored with ColorRamp.
	ColorRamp     *ColorRamp
	FillProperty  string // Property receiving the color, default "fill".
	Indent        string
}

// Read reads the GeoJSON feature collection at path.
func Read(path string) (*feature.Collection, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "geojson: open %s", path)
	}
	defer file.Close()
	return Decode(file)
}

// Decode decodes a GeoJSON feature collection from r.
func Decode(r io.Reader) (*feature.Collection, error) {
	var featureCollection geojson.FeatureCollection
	if err := json.NewDecoder(r).Decode(&featureCollection); err != nil {
		return nil, eris.Wrap(err, "geojson: decode")
	}
	c := feature.NewCollection(SRID)
	for _, f := range featureCollection.Features {
		g := f.Geometry
		if g != nil {
			g = feature.SetSRID(g, SRID)
		}
		c.Features = append(c.Features, &feature.Feature{
			ID:         f.ID,
			Geometry:   g,
			Properties: f.Properties,
		})
	}
	return c, nil
}

// Write writes c to w as a GeoJSON feature collection.
func Write(w io.Writer, c *feature.Collection, options WriteOptions) error {
	if options.FillProperty == "" {
		options.FillProperty = "fill"
	}
	colored := 0
	featureCollection := &geojson.FeatureCollection{
		Features: make([]*geojson.Feature, 0, c.Len()),
	}
	for _, f := range c.Features {
		g := f.Geometry
		if g != nil && options.Transformer != nil {
			var err error
			if g, err = options.Transformer.Transform(g); err != nil {
				return eris.Wrapf(err, "geojson: feature %s", f.ID)
			}
		}
		properties := f.Properties
		if options.ColorRamp != nil && options.ColorProperty != "" {
			if value, ok := f.Properties[options.ColorProperty].(float64); ok {
				properties = maps.Clone(f.Properties)
				properties[options.FillProperty] = options.ColorRamp.Color(value)
				colored++
			}
		}
		featureCollection.Features = append(featureCollection.Features, &geojson.Feature{
			ID:         f.ID,
			Geometry:   g,
			Properties: properties,
		})
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", options.Indent)
	if err := encoder.Encode(featureCollection); err != nil {
		return eris.Wrap(err, "geojson: encode")
	}
	zap.L().Debug("wrote geojson", zap.Int("features", c.Len()), zap.Int("colored", colored))
	return nil
}

// WriteFile writes c to the file at path.
func WriteFile(path string, c *feature.Collection, options WriteOptions) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "geojson: create %s", path)
	}
	defer func() {
		if closeErr := file.Close(); err == nil && closeErr != nil {
			err = eris.Wrapf(closeErr, "geojson: close %s", path)
		}
	}()
	return Write(file, c, options)
}
