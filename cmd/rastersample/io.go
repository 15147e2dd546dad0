package main

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/twpayne/go-rastersample/internal/feature"
	"github.com/twpayne/go-rastersample/internal/geojson"
	"github.com/twpayne/go-rastersample/internal/postgis"
	"github.com/twpayne/go-rastersample/internal/shapefile"
	"github.com/twpayne/go-rastersample/internal/tabular"
)

// postgisPrefix marks a PostGIS table in place of a filename.
const postgisPrefix = "pg:"

// sourceOptions configures how sources are read.
type sourceOptions struct {
	srid       int
	geomColumn string
	tabular    tabular.Options
}

// readCollection reads the features at source, which is either a file or a
// PostGIS table prefixed with "pg:".
func readCollection(ctx context.Context, source string, options sourceOptions) (*feature.Collection, error) {
	if table, ok := strings.CutPrefix(source, postgisPrefix); ok {
		pool, err := postgis.Connect(ctx, cfg.DB.URL)
		if err != nil {
			return nil, err
		}
		defer pool.Close()
		return postgis.ReadTable(ctx, pool, table, options.geomColumn)
	}

	switch ext := strings.ToLower(filepath.Ext(source)); ext {
	case ".shp":
		return shapefile.Read(source, options.srid)
	case ".xlsx":
		return tabular.ReadXLSX(source, options.tabular)
	case ".csv", ".txt":
		return tabular.ReadCSV(source, options.tabular)
	case ".geojson", ".json":
		return geojson.Read(source)
	default:
		return nil, eris.Errorf("%s: unsupported input format %q", source, ext)
	}
}

// writeCollection writes c to destination, which is either a file or a
// PostGIS table prefixed with "pg:".
func writeCollection(ctx context.Context, destination string, c *feature.Collection) error {
	if table, ok := strings.CutPrefix(destination, postgisPrefix); ok {
		pool, err := postgis.Connect(ctx, cfg.DB.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		columns := postgis.Columns(c)
		if err := postgis.EnsureTable(ctx, pool, table, c.GeometryType(), c.SRID, columns); err != nil {
			return err
		}
		names := make([]string, len(columns))
		for i, column := range columns {
			names[i] = column.Name
		}
		_, err = postgis.WriteFeatures(ctx, pool, table, c, names)
		return err
	}

	switch ext := strings.ToLower(filepath.Ext(destination)); ext {
	case ".shp":
		return shapefile.Write(destination, c)
	case ".geojson", ".json":
		options := geojson.WriteOptions{}
		if c.SRID != 0 && c.SRID != geojson.SRID {
			transformer, err := geojson.NewTransformer(c.SRID, geojson.SRID)
			if err != nil {
				return err
			}
			options.Transformer = transformer
		}
		if cfg.Sample.Column != "" {
			ramp, err := geojson.NewColorRamp(cfg.Output.ColorMin, cfg.Output.ColorMax, cfg.Output.ColorFrom, cfg.Output.ColorTo)
			if err != nil {
				return err
			}
			options.ColorProperty = cfg.Sample.Column
			options.ColorRamp = ramp
		}
		return geojson.WriteFile(destination, c, options)
	default:
		return eris.Errorf("%s: unsupported output format %q", destination, ext)
	}
}

// reproject transforms c's geometries in place to srid.
func reproject(c *feature.Collection, srid int) error {
	if c.SRID == srid || srid == 0 {
		return nil
	}
	if c.SRID == 0 {
		return eris.Errorf("cannot reproject features without an SRID to SRID %d", srid)
	}
	transformer, err := geojson.NewTransformer(c.SRID, srid)
	if err != nil {
		return err
	}
	for _, f := range c.Features {
		if f.Geometry == nil {
			continue
		}
		if f.Geometry, err = transformer.Transform(f.Geometry); err != nil {
			return eris.Wrapf(err, "feature %s", f.ID)
		}
	}
	c.SRID = srid
	return nil
}
