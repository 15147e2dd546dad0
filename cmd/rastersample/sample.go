package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/twpayne/go-rastersample"
	"github.com/twpayne/go-rastersample/internal/enrich"
	"github.com/twpayne/go-rastersample/internal/feature"
	"github.com/twpayne/go-rastersample/internal/tabular"
)

var sampleCmd = &cobra.Command{
	Use:   "sample <input> <output>",
	Short: "Sample the DEM on features",
	Long: `Reads features, removes null, empty, invalid, and duplicate geometries,
samples the DEM on each remaining feature, and writes the features that overlap
the DEM with their sampled value. Inputs and outputs are files (.shp, .geojson,
.xlsx, .csv) or PostGIS tables written as pg:schema.table.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		flags := cmd.Flags()
		srid, _ := flags.GetInt("srid")
		geomColumn, _ := flags.GetString("geom-column")
		xField, _ := flags.GetString("x-field")
		yField, _ := flags.GetString("y-field")
		delimiter, _ := flags.GetString("delimiter")
		territory, _ := flags.GetString("territory")
		reference, _ := flags.GetString("reference")
		referenceAttribute, _ := flags.GetString("reference-attribute")
		explode, _ := flags.GetBool("explode")
		multi, _ := flags.GetBool("multi")
		uniqueField, _ := flags.GetString("unique-field")
		if flags.Changed("reduction") {
			cfg.Sample.Reduction, _ = flags.GetString("reduction")
		}
		if flags.Changed("resampling") {
			cfg.Sample.Resampling, _ = flags.GetString("resampling")
		}
		if flags.Changed("column") {
			cfg.Sample.Column, _ = flags.GetString("column")
		}

		samplerConfig, err := cfg.Sample.SamplerConfig()
		if err != nil {
			return err
		}

		options := sourceOptions{
			srid:       srid,
			geomColumn: geomColumn,
			tabular: tabular.Options{
				XField: xField,
				YField: yField,
				SRID:   srid,
			},
		}
		if delimiter != "" {
			options.tabular.Delimiter = []rune(delimiter)[0]
		}

		c, err := readCollection(ctx, args[0], options)
		if err != nil {
			return err
		}
		feature.Force2D(c)
		c, report := feature.Clean(c)
		if report.Dropped() > 0 {
			zap.L().Warn("dropped features", zap.Any("report", report))
		}
		if uniqueField != "" {
			var duplicates *feature.Collection
			c, duplicates = feature.IsolateDuplicates(c, uniqueField)
			if duplicates.Len() > 0 {
				zap.L().Warn("duplicate features", zap.String("field", uniqueField), zap.Int("count", duplicates.Len()))
			}
		}
		feature.EnsureIDs(c)
		if explode {
			c = feature.Explode(c)
		}

		raster, err := openRaster(cfg.Raster)
		if err != nil {
			return err
		}
		defer func() {
			if err := raster.close(); err != nil {
				zap.L().Warn("close raster", zap.Error(err))
			}
		}()
		if err := reproject(c, raster.srid); err != nil {
			return err
		}

		if territory != "" {
			territoryCollection, err := readCollection(ctx, territory, options)
			if err != nil {
				return err
			}
			if err := reproject(territoryCollection, c.SRID); err != nil {
				return err
			}
			c = feature.SelectInTerritory(c, territoryCollection)
		}

		sampler, err := rastersample.NewSampler(raster.raster, samplerConfig)
		if err != nil {
			return err
		}
		c, err = enrich.Elevation(ctx, sampler, c, cfg.Sample.Column)
		if err != nil {
			return err
		}

		if reference != "" {
			if referenceAttribute == "" {
				return eris.New("--reference requires --reference-attribute")
			}
			referenceCollection, err := readCollection(ctx, reference, options)
			if err != nil {
				return err
			}
			if err := reproject(referenceCollection, c.SRID); err != nil {
				return err
			}
			feature.AssignNearest(c, referenceCollection, referenceAttribute)
		}

		if holes := feature.HolePolygons(c); holes.Len() > 0 {
			zap.L().Info("polygons with holes", zap.Int("count", holes.Len()))
		}
		if multi {
			feature.ToMultiPolygon(c)
		}

		if err := writeCollection(ctx, args[1], c); err != nil {
			return err
		}
		fmt.Printf("wrote %d features to %s\n", c.Len(), args[1])
		return nil
	},
}

func init() {
	flags := sampleCmd.Flags()
	flags.Int("srid", rastersample.Lambert93SRID, "SRID of inputs without one")
	flags.String("geom-column", "geom", "geometry column of PostGIS inputs")
	flags.String("x-field", "", "x column of tabular inputs")
	flags.String("y-field", "", "y column of tabular inputs")
	flags.String("delimiter", "", "delimiter of CSV inputs")
	flags.String("territory", "", "only sample features intersecting this layer")
	flags.String("reference", "", "layer to copy the nearest feature's attribute from")
	flags.String("reference-attribute", "", "attribute copied from the reference layer")
	flags.String("unique-field", "", "drop features repeating this field's value")
	flags.Bool("explode", false, "split multipolygons into polygons before sampling")
	flags.Bool("multi", false, "write polygons as multipolygons")
	flags.String("reduction", "", "reduction of polygon samples (min, max, avg)")
	flags.String("resampling", "", "resampling (nearest, bilinear)")
	flags.String("column", "", "name of the sampled value property")
	rootCmd.AddCommand(sampleCmd)
}
