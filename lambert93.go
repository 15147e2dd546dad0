package rastersample

import (
	"fmt"
	"io/fs"
	"math"
	"slices"
)

// Lambert93SRID is the SRID of RGF93 / Lambert-93.
const Lambert93SRID = 2154

// Lambert93Extent is the area of use of Lambert-93.
var Lambert93Extent = Extent{
	Left:   -378305.81,
	Bottom: 6005281.2,
	Right:  1320649.57,
	Top:    7235612.72,
}

// NewLambert93TileSet returns a GeoTIFFTileSet for a grid of square Lambert-93
// tiles tileSize kilometers wide, such as IGN's RGE ALTI. Tiles are named by
// the coordinates in kilometers of their top left corner: filenameFormat is
// formatted with the easting and the northing, for example
// "RGEALTI_FXX_%04d_%04d_MNT_LAMB93_IGN69.tif". The default resolution is five
// meters.
func NewLambert93TileSet(fsys fs.FS, tileSize int, filenameFormat string, options ...GeoTIFFTileSetOption) (*GeoTIFFTileSet, error) {
	if tileSize <= 0 {
		return nil, fmt.Errorf("%d: invalid tile size", tileSize)
	}
	tileSizeMeters := 1000 * float64(tileSize)
	return NewGeoTIFFTileSet(slices.Concat(
		[]GeoTIFFTileSetOption{
			WithFS(fsys),
			WithSRID(Lambert93SRID),
			WithExtent(Lambert93Extent),
			WithResolution(5, 5),
			WithTileCoordFunc(func(coord Coord) (TileCoord, bool) {
				c := math.Floor(coord.X / tileSizeMeters)
				r := math.Ceil(coord.Y / tileSizeMeters)
				if math.IsNaN(c) || math.IsNaN(r) || math.IsInf(c, 0) || math.IsInf(r, 0) {
					return TileCoord{}, false
				}
				return TileCoord{
					C: tileSize * int(c),
					R: tileSize * int(r),
				}, true
			}),
			WithTileFilenameFunc(func(tileCoord TileCoord) string {
				return fmt.Sprintf(filenameFormat, tileCoord.C, tileCoord.R)
			}),
		},
		options,
	)...)
}
