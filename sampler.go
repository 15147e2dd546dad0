package rastersample

import (
	"context"
	"errors"
	"math"
	"runtime"

	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultNoDataValue is the value assigned to geometries without any valid
// sample.
const DefaultNoDataValue = -99999

// A Config configures a Sampler.
type Config struct {
	NoDataValue float64
	Reduction   Reduction
	Resampling  Resampling
	Concurrency int
}

// A Result is the sampled value of a single geometry.
type Result struct {
	Index int     // Index of the geometry in the input.
	Value float64 // Reduced value, or Config.NoDataValue if !Valid.
	Valid bool    // Whether at least one valid sample was found.
}

// A Sampler samples a raster on geometries.
type Sampler struct {
	raster Raster
	config Config
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		NoDataValue: DefaultNoDataValue,
		Reduction:   ReductionMin,
		Resampling:  ResamplingNearest,
		Concurrency: runtime.GOMAXPROCS(0),
	}
}

// NewSampler returns a new Sampler that samples raster.
func NewSampler(raster Raster, config Config) (*Sampler, error) {
	if raster == nil {
		return nil, ErrSourceUnavailable
	}
	switch config.Reduction {
	case ReductionMin, ReductionMax, ReductionAvg:
	default:
		return nil, errors.New(config.Reduction.String() + ": invalid reduction")
	}
	switch config.Resampling {
	case ResamplingNearest, ResamplingBilinear:
	default:
		return nil, errors.New(config.Resampling.String() + ": invalid resampling")
	}
	if config.Concurrency <= 0 {
		config.Concurrency = runtime.GOMAXPROCS(0)
	}
	return &Sampler{
		raster: raster,
		config: config,
	}, nil
}

// Config returns s's configuration.
func (s *Sampler) Config() Config {
	return s.config
}

// Sample samples s's raster on geometries. Geometries whose bounds do not
// overlap the raster's extent are omitted from the results. The results are
// in the same order as geometries.
func (s *Sampler) Sample(ctx context.Context, geometries []geom.T) ([]Result, error) {
	extent := s.raster.Extent()

	// Filter by raster extent.
	indexes := make([]int, 0, len(geometries))
	for index, g := range geometries {
		if g == nil || !extent.Overlaps(g.Bounds()) {
			sampledGeometries.WithLabelValues("outside").Inc()
			continue
		}
		indexes = append(indexes, index)
	}

	results := make([]Result, len(indexes))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(s.config.Concurrency)
	for i, index := range indexes {
		group.Go(func() error {
			value, valid, err := s.sampleGeometry(groupCtx, geometries[index])
			if err != nil {
				return err
			}
			results[i] = Result{
				Index: index,
				Value: value,
				Valid: valid,
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	noData := 0
	for _, result := range results {
		if result.Valid {
			sampledGeometries.WithLabelValues("valid").Inc()
		} else {
			sampledGeometries.WithLabelValues("nodata").Inc()
			noData++
		}
	}
	zap.L().Debug("sampled geometries",
		zap.Int("input", len(geometries)),
		zap.Int("inside", len(results)),
		zap.Int("nodata", noData),
		zap.Stringer("reduction", s.config.Reduction),
	)

	return results, nil
}

// sampleGeometry returns the reduced value of s's raster on g.
func (s *Sampler) sampleGeometry(ctx context.Context, g geom.T) (float64, bool, error) {
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}
	coords := SampleCoords(g)
	if len(coords) == 0 {
		return s.config.NoDataValue, false, nil
	}
	samples, err := Resample(ctx, s.raster, s.config.Resampling, coords)
	if err != nil {
		return 0, false, err
	}
	values := samples[:0]
	for _, sample := range samples {
		if !math.IsNaN(sample) {
			values = append(values, sample)
		}
	}
	if len(values) == 0 {
		return s.config.NoDataValue, false, nil
	}
	return s.config.Reduction.Reduce(values), true, nil
}
