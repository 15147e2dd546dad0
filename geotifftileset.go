package rastersample

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// A TileCoordFunc returns the tile coordinate for a coordinate.
type TileCoordFunc func(Coord) (TileCoord, bool)

// A TileFilenameFunc returns the tile filename for a tile coordinate.
type TileFilenameFunc func(TileCoord) string

// A GeoTIFFTileSet is a set of GeoTIFF tiles.
type GeoTIFFTileSet struct {
	mutex              sync.Mutex
	fsys               fs.FS
	srid               int
	extent             Extent
	gridOrigin         Coord
	canaryFilename     string
	tileCoordFunc      TileCoordFunc
	tileFilenameFunc   TileFilenameFunc
	missingTiles       sync.Map
	geoTIFFTileOptions []GeoTIFFTileOption
	cacheSize          int
	resolutionX        float64
	resolutionY        float64
	geoTIFFTileCache   *lru.Cache[TileCoord, *openTile]
}

// An openTile is a cached tile and its active users. Evicted tiles are closed
// once their last user is done.
type openTile struct {
	tile  *GeoTIFFTile
	users sync.WaitGroup
}

// A GeoTIFFTileSetOption sets an option on a GeoTIFFTileSet.
type GeoTIFFTileSetOption func(*GeoTIFFTileSet)

// NewGeoTIFFTileSet returns a new GeoTIFFTileSet with the given options.
func NewGeoTIFFTileSet(options ...GeoTIFFTileSetOption) (*GeoTIFFTileSet, error) {
	s := &GeoTIFFTileSet{
		extent:    UnboundedExtent,
		cacheSize: 32,
	}
	for _, option := range options {
		option(s)
	}

	switch {
	case s.fsys == nil:
		return nil, fmt.Errorf("no filesystem: %w", ErrSourceUnavailable)
	case s.tileCoordFunc == nil || s.tileFilenameFunc == nil:
		return nil, errors.New("tile coordinate and filename functions are required")
	case s.resolutionX <= 0 || s.resolutionY <= 0:
		return nil, fmt.Errorf("%gx%g: invalid resolution", s.resolutionX, s.resolutionY)
	}

	if s.canaryFilename != "" {
		if _, err := fs.Stat(s.fsys, s.canaryFilename); err != nil {
			return nil, fmt.Errorf("%s: %w: %w", s.canaryFilename, ErrSourceUnavailable, err)
		}
	}

	var err error
	s.geoTIFFTileCache, err = lru.NewWithEvict(s.cacheSize, func(key TileCoord, value *openTile) {
		go func() {
			value.users.Wait()
			if err := value.tile.Close(); err != nil {
				zap.L().Warn("close tile", zap.Any("tileCoord", key), zap.Error(err))
			}
		}()
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// WithCacheSize sets the maximum number of open tiles.
func WithCacheSize(cacheSize int) GeoTIFFTileSetOption {
	return func(s *GeoTIFFTileSet) {
		s.cacheSize = cacheSize
	}
}

// WithCanaryFilename sets a file that must exist for the tile set to be
// considered available.
func WithCanaryFilename(canaryFilename string) GeoTIFFTileSetOption {
	return func(s *GeoTIFFTileSet) {
		s.canaryFilename = canaryFilename
	}
}

// WithExtent sets the extent covered by the tile set.
func WithExtent(extent Extent) GeoTIFFTileSetOption {
	return func(s *GeoTIFFTileSet) {
		s.extent = extent
	}
}

// WithGridOrigin sets a corner shared by the cells of all tiles. The default
// is the origin of the coordinate reference system.
func WithGridOrigin(gridOrigin Coord) GeoTIFFTileSetOption {
	return func(s *GeoTIFFTileSet) {
		s.gridOrigin = gridOrigin
	}
}

// WithFS sets the filesystem containing the tiles.
func WithFS(fsys fs.FS) GeoTIFFTileSetOption {
	return func(s *GeoTIFFTileSet) {
		s.fsys = fsys
	}
}

// WithGeoTIFFTileOptions sets the options used to open each tile.
func WithGeoTIFFTileOptions(geoTIFFTileOptions ...GeoTIFFTileOption) GeoTIFFTileSetOption {
	return func(s *GeoTIFFTileSet) {
		s.geoTIFFTileOptions = geoTIFFTileOptions
	}
}

// WithResolution sets the pixel size shared by all tiles.
func WithResolution(resolutionX, resolutionY float64) GeoTIFFTileSetOption {
	return func(s *GeoTIFFTileSet) {
		s.resolutionX = resolutionX
		s.resolutionY = resolutionY
	}
}

// WithSRID sets the tile set's SRID.
func WithSRID(srid int) GeoTIFFTileSetOption {
	return func(s *GeoTIFFTileSet) {
		s.srid = srid
	}
}

// WithTileCoordFunc sets the function that maps coordinates to tiles.
func WithTileCoordFunc(tileCoordFunc TileCoordFunc) GeoTIFFTileSetOption {
	return func(s *GeoTIFFTileSet) {
		s.tileCoordFunc = tileCoordFunc
	}
}

// WithTileFilenameFunc sets the function that maps tiles to filenames.
func WithTileFilenameFunc(tileFilenameFunc TileFilenameFunc) GeoTIFFTileSetOption {
	return func(s *GeoTIFFTileSet) {
		s.tileFilenameFunc = tileFilenameFunc
	}
}

// Close closes all open tiles.
func (s *GeoTIFFTileSet) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.geoTIFFTileCache.Purge()
	return nil
}

// Extent returns s's extent.
func (s *GeoTIFFTileSet) Extent() Extent {
	return s.extent
}

// GridOrigin returns the corner shared by the cells of s's tiles.
func (s *GeoTIFFTileSet) GridOrigin() Coord {
	return s.gridOrigin
}

// Resolution returns s's pixel size.
func (s *GeoTIFFTileSet) Resolution() (float64, float64) {
	return s.resolutionX, s.resolutionY
}

// Samples returns the samples at coords. Missing samples are represented by
// NaNs.
func (s *GeoTIFFTileSet) Samples(ctx context.Context, coords []Coord) ([]float64, error) {
	samples := make([]float64, len(coords))

	// Group indexes by tile coord.
	type groupStruct struct {
		coords  []Coord
		indexes []int
	}
	groupsByTileCoord := make(map[TileCoord]*groupStruct)
	for index, coord := range coords {
		if !s.extent.Contains(coord) {
			samples[index] = math.NaN()
			continue
		}
		tileCoord, ok := s.tileCoordFunc(coord)
		if !ok {
			samples[index] = math.NaN()
			continue
		}
		group, ok := groupsByTileCoord[tileCoord]
		if !ok {
			group = &groupStruct{}
			groupsByTileCoord[tileCoord] = group
		}
		group.coords = append(group.coords, coord)
		group.indexes = append(group.indexes, index)
	}

	// Populate samples one tile at a time.
	for tileCoord, group := range groupsByTileCoord {
		tile, err := s.acquireTile(tileCoord)
		if err != nil {
			return nil, err
		}
		if tile == nil {
			for _, index := range group.indexes {
				samples[index] = math.NaN()
			}
			continue
		}
		localSamples, err := tile.tile.Samples(ctx, group.coords)
		tile.users.Done()
		if err != nil {
			return nil, err
		}
		for localIndex, index := range group.indexes {
			samples[index] = localSamples[localIndex]
		}
	}

	return samples, nil
}

// SRID returns s's SRID.
func (s *GeoTIFFTileSet) SRID() int {
	return s.srid
}

// getTile returns the tile at the given tile coordinate.
func (s *GeoTIFFTileSet) getTile(tileCoord TileCoord) (*GeoTIFFTile, error) {
	filename := s.tileFilenameFunc(tileCoord)
	switch geoTIFFTile, err := NewGeoTIFFTile(s.fsys, filename, s.geoTIFFTileOptions...); {
	case errors.Is(err, fs.ErrNotExist):
		s.missingTiles.Store(tileCoord, struct{}{})
		missingTileCacheMisses.Inc()
		zap.L().Debug("missing tile", zap.String("filename", filename))
		return nil, nil
	case err != nil:
		return nil, err
	default:
		if s.srid != 0 && geoTIFFTile.SRID() != 0 && geoTIFFTile.SRID() != s.srid {
			_ = geoTIFFTile.Close()
			return nil, fmt.Errorf("%s: SRID %d, expected %d", filename, geoTIFFTile.SRID(), s.srid)
		}
		if !s.onGrid(geoTIFFTile.GridOrigin()) {
			zap.L().Warn("tile not aligned with grid origin",
				zap.String("filename", filename),
				zap.Any("tileOrigin", geoTIFFTile.GridOrigin()),
				zap.Any("gridOrigin", s.gridOrigin),
			)
		}
		return geoTIFFTile, nil
	}
}

// acquireTile returns the open tile at the given tile coordinate, using the
// cache if possible. It returns nil if the tile does not exist. The caller
// must call users.Done on the returned tile when it is finished with it.
func (s *GeoTIFFTileSet) acquireTile(tileCoord TileCoord) (*openTile, error) {
	if _, ok := s.missingTiles.Load(tileCoord); ok {
		missingTileCacheHits.Inc()
		return nil, nil
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.missingTiles.Load(tileCoord); ok {
		missingTileCacheHits.Inc()
		return nil, nil
	}

	if cached, ok := s.geoTIFFTileCache.Get(tileCoord); ok {
		openTileCacheHits.Inc()
		cached.users.Add(1)
		return cached, nil
	}

	openTileCacheMisses.Inc()

	tile, err := s.getTile(tileCoord)
	if err != nil || tile == nil {
		return nil, err
	}

	opened := &openTile{tile: tile}
	opened.users.Add(1)
	if eviction := s.geoTIFFTileCache.Add(tileCoord, opened); eviction {
		openTileCacheEvictions.Inc()
	}

	return opened, nil
}

// onGrid returns if coord is a cell corner of s's grid.
func (s *GeoTIFFTileSet) onGrid(coord Coord) bool {
	const epsilon = 1e-6
	_, fracX := math.Modf(math.Abs(coord.X-s.gridOrigin.X) / s.resolutionX)
	_, fracY := math.Modf(math.Abs(coord.Y-s.gridOrigin.Y) / s.resolutionY)
	return (fracX < epsilon || fracX > 1-epsilon) && (fracY < epsilon || fracY > 1-epsilon)
}
