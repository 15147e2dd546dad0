package rastersample

import (
	"context"
	"fmt"
	"math"
	"strings"
)

// A Resampling selects how values are read at arbitrary coordinates.
type Resampling int

// Resamplings.
const (
	ResamplingNearest Resampling = iota
	ResamplingBilinear
)

// ParseResampling parses s, one of nearest or bilinear.
func ParseResampling(s string) (Resampling, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "nearest":
		return ResamplingNearest, nil
	case "bilinear":
		return ResamplingBilinear, nil
	default:
		return 0, fmt.Errorf("%s: unknown resampling", s)
	}
}

func (r Resampling) String() string {
	switch r {
	case ResamplingNearest:
		return "nearest"
	case ResamplingBilinear:
		return "bilinear"
	default:
		return fmt.Sprintf("Resampling(%d)", int(r))
	}
}

// Resample returns the values of raster at coords using resampling.
func Resample(ctx context.Context, raster Raster, resampling Resampling, coords []Coord) ([]float64, error) {
	switch resampling {
	case ResamplingNearest:
		return raster.Samples(ctx, coords)
	case ResamplingBilinear:
		return InterpolateBilinear(ctx, raster, coords)
	default:
		return nil, fmt.Errorf("%s: unsupported resampling", resampling)
	}
}

// InterpolateBilinear interpolates raster between the centers of the four
// cells surrounding each coordinate. Cell centers are located from the
// raster's grid origin. If any of the four cells has no data then the value of
// the cell containing the coordinate is used instead.
func InterpolateBilinear(ctx context.Context, raster Raster, coords []Coord) ([]float64, error) {
	origin := raster.GridOrigin()
	resolutionX, resolutionY := raster.Resolution()

	// For each coordinate request the four surrounding cell centers followed
	// by the coordinate itself.
	rasterCoords := make([]Coord, 5*len(coords))
	fractions := make([][2]float64, len(coords))
	for i, coord := range coords {
		u := (coord.X-origin.X)/resolutionX - 0.5
		v := (origin.Y-coord.Y)/resolutionY - 0.5
		c0, r0 := math.Floor(u), math.Floor(v)
		fractions[i] = [2]float64{u - c0, v - r0}
		x0 := origin.X + (c0+0.5)*resolutionX
		y0 := origin.Y - (r0+0.5)*resolutionY
		x1 := x0 + resolutionX
		y1 := y0 - resolutionY
		rasterCoords[5*i+0] = Coord{X: x0, Y: y0}
		rasterCoords[5*i+1] = Coord{X: x1, Y: y0}
		rasterCoords[5*i+2] = Coord{X: x0, Y: y1}
		rasterCoords[5*i+3] = Coord{X: x1, Y: y1}
		rasterCoords[5*i+4] = coord
	}
	samples, err := raster.Samples(ctx, rasterCoords)
	if err != nil {
		return nil, err
	}

	result := make([]float64, len(coords))
	for i := range coords {
		dx, dy := fractions[i][0], fractions[i][1]
		result[i] = 0 +
			samples[5*i+0]*(1-dx)*(1-dy) +
			samples[5*i+1]*dx*(1-dy) +
			samples[5*i+2]*(1-dx)*dy +
			samples[5*i+3]*dx*dy
		if math.IsNaN(result[i]) {
			result[i] = samples[5*i+4]
		}
	}
	return result, nil
}
