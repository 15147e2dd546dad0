// Package enrich attaches raster samples to feature collections.
package enrich

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/twpayne/go-rastersample"
	"github.com/twpayne/go-rastersample/internal/feature"
)

// DefaultColumn is the default name of the property holding the sampled
// value.
const DefaultColumn = "elevation"

// Elevation samples c's geometries with sampler and returns a new collection
// containing copies of the features that overlap the raster, each with column
// set to its sampled value. Features without any valid sample get the
// sampler's no-data value. c is not modified.
func Elevation(ctx context.Context, sampler *rastersample.Sampler, c *feature.Collection, column string) (*feature.Collection, error) {
	if column == "" {
		column = DefaultColumn
	}
	results, err := sampler.Sample(ctx, c.Geometries())
	if err != nil {
		return nil, eris.Wrap(err, "enrich: sample")
	}

	sampled := feature.NewCollection(c.SRID)
	sampled.Features = make([]*feature.Feature, 0, len(results))
	noData := 0
	for _, result := range results {
		f := c.Features[result.Index].Clone()
		f.SetProperty(column, result.Value)
		sampled.Features = append(sampled.Features, f)
		if !result.Valid {
			noData++
		}
	}

	zap.L().Info("sampled features",
		zap.String("column", column),
		zap.Int("input", c.Len()),
		zap.Int("output", sampled.Len()),
		zap.Int("nodata", noData),
		zap.Stringer("reduction", sampler.Config().Reduction),
	)
	return sampled, nil
}
