package rastersample

import (
	"context"
	"fmt"

	"github.com/twpayne/go-proj/v10"
)

// northingFirstSRIDs are the SRIDs whose authority axis order is northing or
// latitude first.
var northingFirstSRIDs = map[int]bool{
	3035: true,
	4258: true,
	4326: true,
}

// A PointService returns raster values at WGS84 coordinates.
type PointService struct {
	raster     Raster
	resampling Resampling
	srid       int
	pj         *proj.PJ
}

// A PointServiceOption sets an option on a PointService.
type PointServiceOption func(*PointService)

// WithPointResampling sets the resampling used by a PointService. The default
// is bilinear.
func WithPointResampling(resampling Resampling) PointServiceOption {
	return func(s *PointService) {
		s.resampling = resampling
	}
}

// NewPointService returns a new PointService that samples raster, whose
// coordinate reference system is srid.
func NewPointService(raster Raster, srid int, options ...PointServiceOption) (*PointService, error) {
	if srid == 0 {
		return nil, fmt.Errorf("%d: invalid SRID", srid)
	}
	pj, err := proj.NewCRSToCRS("epsg:4326", fmt.Sprintf("epsg:%d", srid), nil)
	if err != nil {
		return nil, err
	}
	s := &PointService{
		raster:     raster,
		resampling: ResamplingBilinear,
		srid:       srid,
		pj:         pj,
	}
	for _, option := range options {
		option(s)
	}
	return s, nil
}

// Elevation returns the values at coords, which are in s's coordinate
// reference system.
func (s *PointService) Elevation(ctx context.Context, coords [][]float64) ([]float64, error) {
	rasterCoords := make([]Coord, len(coords))
	for i, coord := range coords {
		if len(coord) < 2 {
			return nil, fmt.Errorf("coord %d: expected at least 2 dimensions, got %d", i, len(coord))
		}
		rasterCoords[i] = Coord{X: coord[0], Y: coord[1]}
	}
	return Resample(ctx, s.raster, s.resampling, rasterCoords)
}

// Elevation4326 returns the values at coords4326, which are longitude,
// latitude pairs.
func (s *PointService) Elevation4326(ctx context.Context, coords4326 [][]float64) ([]float64, error) {
	for i, coord := range coords4326 {
		if len(coord) < 2 {
			return nil, fmt.Errorf("coord %d: expected at least 2 dimensions, got %d", i, len(coord))
		}
	}
	coords := cloneCoords(coords4326)
	flipCoords(coords)
	if err := s.pj.ForwardFloat64Slices(coords); err != nil {
		return nil, err
	}
	if northingFirstSRIDs[s.srid] {
		flipCoords(coords)
	}
	return s.Elevation(ctx, coords)
}

// SRID returns s's SRID.
func (s *PointService) SRID() int {
	return s.srid
}

// NorthingFirst returns if the authority axis order of srid is northing or
// latitude first.
func NorthingFirst(srid int) bool {
	return northingFirstSRIDs[srid]
}

func cloneCoords(coords [][]float64) [][]float64 {
	clonedCoordsFlat := make([]float64, 2*len(coords))
	clonedCoords := make([][]float64, len(coords))
	for i, coord := range coords {
		copy(clonedCoordsFlat[2*i:2*i+2], coord)
		clonedCoords[i] = clonedCoordsFlat[2*i : 2*i+2]
	}
	return clonedCoords
}

func flipCoords(coords [][]float64) {
	for i, coord := range coords {
		coords[i][0], coords[i][1] = coord[1], coord[0]
	}
}
