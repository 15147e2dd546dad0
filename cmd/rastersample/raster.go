package main

import (
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/twpayne/go-rastersample"
	"github.com/twpayne/go-rastersample/internal/config"
)

// An openedRaster is a raster with its SRID and a function to release it.
type openedRaster struct {
	raster rastersample.Raster
	srid   int
	close  func() error
}

// openRaster opens the raster described by rasterConfig. A file is opened as
// a single GeoTIFF and a directory as a Lambert-93 tile set.
func openRaster(rasterConfig config.RasterConfig) (*openedRaster, error) {
	if rasterConfig.Path == "" {
		return nil, eris.Wrap(rastersample.ErrSourceUnavailable, "no raster path configured (set raster.path)")
	}
	info, err := os.Stat(rasterConfig.Path)
	if err != nil {
		return nil, eris.Wrapf(rastersample.ErrSourceUnavailable, "%s: %v", rasterConfig.Path, err)
	}

	var tileOptions []rastersample.GeoTIFFTileOption
	if rasterConfig.NoData != nil {
		tileOptions = append(tileOptions, rastersample.WithNoData(*rasterConfig.NoData))
	}

	if !info.IsDir() {
		dir, base := filepath.Split(rasterConfig.Path)
		if dir == "" {
			dir = "."
		}
		tile, err := rastersample.NewGeoTIFFTile(os.DirFS(dir), base, tileOptions...)
		if err != nil {
			return nil, err
		}
		zap.L().Info("opened raster",
			zap.String("path", rasterConfig.Path),
			zap.Int("srid", tile.SRID()),
			zap.Any("extent", tile.Extent()),
		)
		return &openedRaster{
			raster: tile,
			srid:   tile.SRID(),
			close:  tile.Close,
		}, nil
	}

	options := []rastersample.GeoTIFFTileSetOption{
		rastersample.WithResolution(rasterConfig.Resolution, rasterConfig.Resolution),
		rastersample.WithCacheSize(rasterConfig.CacheSize),
		rastersample.WithGridOrigin(rastersample.Coord{X: rasterConfig.OriginX, Y: rasterConfig.OriginY}),
		rastersample.WithGeoTIFFTileOptions(tileOptions...),
	}
	if rasterConfig.Canary != "" {
		options = append(options, rastersample.WithCanaryFilename(rasterConfig.Canary))
	}
	tileSet, err := rastersample.NewLambert93TileSet(os.DirFS(rasterConfig.Path), rasterConfig.TileSize, rasterConfig.FilenameFormat, options...)
	if err != nil {
		return nil, err
	}
	zap.L().Info("opened tile set",
		zap.String("path", rasterConfig.Path),
		zap.Int("tileSize", rasterConfig.TileSize),
		zap.String("filenameFormat", rasterConfig.FilenameFormat),
	)
	return &openedRaster{
		raster: tileSet,
		srid:   tileSet.SRID(),
		close:  tileSet.Close,
	}, nil
}
