package rastersample

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"slices"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/google/tiff"
	_ "github.com/google/tiff/bigtiff"
	_ "github.com/google/tiff/geotiff"
	"github.com/maypok86/otter/v2"
	"golang.org/x/image/tiff/lzw"
)

// TIFF compression schemes.
const (
	compressionNone = 1
	compressionLZW  = 5
)

// TIFF sample formats.
const (
	sampleFormatUint  = 1
	sampleFormatInt   = 2
	sampleFormatFloat = 3
)

var errShortRead = errors.New("short read")

// A readAtReadSeeker is a file that can be parsed as a TIFF.
type readAtReadSeeker interface {
	io.ReadSeeker
	io.ReaderAt
}

// A GeoTIFFTile is an open, tiled, single band GeoTIFF file.
type GeoTIFFTile struct {
	file                      fs.File
	readerAt                  io.ReaderAt
	byteOrder                 binary.ByteOrder
	imageWidth                int
	imageLength               int
	tileWidth                 int
	tileLength                int
	tilesAcross               int
	tilesDown                 int
	tileOffsets               []uint64
	tileByteCounts            []uint64
	smallestTileByteCount     uint64
	tileSampleCount           int
	bytesPerSample            int
	sampleFormat              int
	compression               int
	tileByteCountUncompressed int
	tileCacheSizeBytes        int
	tileSamplesCache          *otter.Cache[TileCoord, []float32]
	emptyTileBytes            atomic.Pointer[[]byte]
	hasNoData                 bool
	noData                    float32
	srid                      int
	scaleX                    float64
	scaleY                    float64
	translateX                float64
	translateY                float64
}

// A GeoTIFFTileOption sets an option on a GeoTIFFTile.
type GeoTIFFTileOption func(*GeoTIFFTile)

// A geoTIFFIFD is a struct into which github.com/google/tiff can unmarshal an
// IFD.
type geoTIFFIFD struct {
	ImageWidth                uint16    `tiff:"field,tag=256"`
	ImageLength               uint16    `tiff:"field,tag=257"`
	BitsPerSample             uint16    `tiff:"field,tag=258"`
	Compression               uint16    `tiff:"field,tag=259"`
	PhotometricInterpretation uint16    `tiff:"field,tag=262"`
	SamplesPerPixel           uint16    `tiff:"field,tag=277"`
	PlanarConfiguration       uint16    `tiff:"field,tag=284"`
	Predictor                 uint16    `tiff:"field,tag=317"`
	TileWidth                 uint16    `tiff:"field,tag=322"`
	TileLength                uint16    `tiff:"field,tag=323"`
	TileOffsets               []uint64  `tiff:"field,tag=324"`
	TileByteCounts            []uint64  `tiff:"field,tag=325"`
	SampleFormat              uint16    `tiff:"field,tag=339"`
	ModelPixelScaleTag        []float64 `tiff:"field,tag=33550"`
	ModelTiepointTag          []float64 `tiff:"field,tag=33922"`
	GeoKeyDirectoryTag        []uint16  `tiff:"field,tag=34735"`
	GeoDoubleParamsTag        []float64 `tiff:"field,tag=34736"`
	GeoASCIIParamsTag         string    `tiff:"field,tag=34737"`
	GDALMetadata              string    `tiff:"field,tag=42112"`
	GDALNoData                string    `tiff:"field,tag=42113"`
}

// NewGeoTIFFTile returns a new GeoTIFFTile. If filename cannot be opened then
// the returned error wraps both ErrSourceUnavailable and the underlying error.
func NewGeoTIFFTile(fsys fs.FS, filename string, options ...GeoTIFFTileOption) (*GeoTIFFTile, error) {
	var err error
	ok := false

	f := &GeoTIFFTile{
		tileCacheSizeBytes: 128 << 20, // 128MB.
	}

	file, err := fsys.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", filename, ErrSourceUnavailable, err)
	}
	f.file = file
	defer func() {
		if !ok {
			_ = f.file.Close()
		}
	}()
	readSeeker, isReadSeeker := file.(readAtReadSeeker)
	if !isReadSeeker {
		return nil, fmt.Errorf("%s: %w", filename, errors.ErrUnsupported)
	}
	f.readerAt = readSeeker

	f.byteOrder, err = readByteOrder(f.readerAt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}

	tiffTIFF, err := tiff.Parse(readSeeker, tiff.GetTagSpace("GeoTIFF"), nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}

	if len(tiffTIFF.IFDs()) != 1 {
		return nil, fmt.Errorf("%s: found %d IFDs, expected 1", filename, len(tiffTIFF.IFDs()))
	}

	var ifd geoTIFFIFD
	if err := tiff.UnmarshalIFD(tiffTIFF.IFDs()[0], &ifd); err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}

	if ifd.SampleFormat == 0 {
		ifd.SampleFormat = sampleFormatUint
	}
	if ifd.PlanarConfiguration == 0 {
		ifd.PlanarConfiguration = 1
	}
	if !supportedSampleLayout(ifd.SampleFormat, ifd.BitsPerSample) ||
		(ifd.Compression != compressionNone && ifd.Compression != compressionLZW) ||
		ifd.PhotometricInterpretation != 1 ||
		ifd.SamplesPerPixel != 1 ||
		ifd.PlanarConfiguration != 1 ||
		(ifd.Predictor != 0 && ifd.Predictor != 1) ||
		ifd.ImageWidth == 0 || ifd.ImageLength == 0 ||
		ifd.TileWidth == 0 || ifd.TileLength == 0 ||
		len(ifd.ModelPixelScaleTag) != 3 ||
		len(ifd.ModelTiepointTag) != 6 || ifd.ModelTiepointTag[2] != 0 || ifd.ModelTiepointTag[5] != 0 {
		return nil, fmt.Errorf("%s: %w", filename, errors.ErrUnsupported)
	}

	f.compression = int(ifd.Compression)
	f.sampleFormat = int(ifd.SampleFormat)
	f.bytesPerSample = int(ifd.BitsPerSample) / 8
	f.imageWidth = int(ifd.ImageWidth)
	f.imageLength = int(ifd.ImageLength)
	f.tileWidth = int(ifd.TileWidth)
	f.tileLength = int(ifd.TileLength)
	f.tilesAcross = (f.imageWidth + f.tileWidth - 1) / f.tileWidth
	f.tilesDown = (f.imageLength + f.tileLength - 1) / f.tileLength
	tilesPerImage := f.tilesAcross * f.tilesDown
	if len(ifd.TileByteCounts) != tilesPerImage || len(ifd.TileOffsets) != tilesPerImage {
		return nil, fmt.Errorf("%s: incorrect number of tile byte counts or offsets", filename)
	}
	f.tileOffsets = ifd.TileOffsets
	f.tileByteCounts = ifd.TileByteCounts
	f.smallestTileByteCount = slices.Min(ifd.TileByteCounts)
	f.tileSampleCount = f.tileWidth * f.tileLength
	f.tileByteCountUncompressed = f.tileSampleCount * f.bytesPerSample

	if noDataStr := strings.TrimSpace(strings.TrimRight(ifd.GDALNoData, "\x00")); noDataStr != "" {
		noData, err := strconv.ParseFloat(noDataStr, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: GDAL_NODATA: %w", filename, err)
		}
		f.hasNoData = true
		f.noData = float32(noData)
	}

	if len(ifd.GeoKeyDirectoryTag) != 0 {
		geoKeys, err := ParseGeoKeys(ifd.GeoKeyDirectoryTag, ifd.GeoDoubleParamsTag, []byte(ifd.GeoASCIIParamsTag))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filename, err)
		}
		f.srid = geoKeys.SRID()
	}

	scaleX, scaleY, scaleZ := ifd.ModelPixelScaleTag[0], ifd.ModelPixelScaleTag[1], ifd.ModelPixelScaleTag[2]
	if scaleX <= 0 || scaleY <= 0 || scaleZ != 0 {
		return nil, fmt.Errorf("%s: %w", filename, errors.ErrUnsupported)
	}
	i, j := ifd.ModelTiepointTag[0], ifd.ModelTiepointTag[1]
	x, y := ifd.ModelTiepointTag[3], ifd.ModelTiepointTag[4]
	f.scaleX = scaleX
	f.scaleY = scaleY
	f.translateX = x - i*scaleX
	f.translateY = y + j*scaleY

	for _, option := range options {
		option(f)
	}

	tileCacheCount := max(f.tileCacheSizeBytes/(4*f.tileSampleCount), 1)
	f.tileSamplesCache, err = otter.New(&otter.Options[TileCoord, []float32]{
		MaximumSize: tileCacheCount,
	})
	if err != nil {
		return nil, err
	}

	ok = true
	return f, nil
}

// WithTileCacheSize sets the maximum size in bytes of decoded tiles kept in
// memory.
func WithTileCacheSize(tileCacheSize int) GeoTIFFTileOption {
	return func(f *GeoTIFFTile) {
		f.tileCacheSizeBytes = tileCacheSize
	}
}

// WithNoData overrides the no-data value read from the GDAL_NODATA tag.
func WithNoData(noData float64) GeoTIFFTileOption {
	return func(f *GeoTIFFTile) {
		f.hasNoData = true
		f.noData = float32(noData)
	}
}

// Close closes f.
func (f *GeoTIFFTile) Close() error {
	return f.file.Close()
}

// Extent returns f's extent.
func (f *GeoTIFFTile) Extent() Extent {
	return Extent{
		Left:   f.translateX,
		Bottom: f.translateY - float64(f.imageLength)*f.scaleY,
		Right:  f.translateX + float64(f.imageWidth)*f.scaleX,
		Top:    f.translateY,
	}
}

// GridOrigin returns f's top left corner.
func (f *GeoTIFFTile) GridOrigin() Coord {
	return Coord{X: f.translateX, Y: f.translateY}
}

// NoData returns f's no-data value and whether it has one.
func (f *GeoTIFFTile) NoData() (float64, bool) {
	return float64(f.noData), f.hasNoData
}

// Resolution returns f's pixel size.
func (f *GeoTIFFTile) Resolution() (float64, float64) {
	return f.scaleX, f.scaleY
}

// SRID returns the EPSG code of f's coordinate reference system, or zero if
// it is not known.
func (f *GeoTIFFTile) SRID() int {
	return f.srid
}

// Sample returns a single sample from f.
func (f *GeoTIFFTile) Sample(ctx context.Context, coord Coord) (float64, error) {
	pixel, ok := f.pixel(coord)
	if !ok {
		return math.NaN(), nil
	}
	switch tileSamples, err := f.getTileSamplesCached(ctx, f.localTileCoord(pixel)); {
	case errors.Is(err, otter.ErrNotFound):
		return math.NaN(), nil
	case err != nil:
		return 0, err
	default:
		return f.tileSample(tileSamples, pixel), nil
	}
}

// Samples returns multiple samples from f. It is significantly faster than
// calling [Sample] for each coordinate.
func (f *GeoTIFFTile) Samples(ctx context.Context, coords []Coord) ([]float64, error) {
	samples := make([]float64, len(coords))
	pixels := make([]TileCoord, len(coords))

	// Group indexes by local tile coord.
	indexesByLocalTileCoord := make(map[TileCoord][]int)
	for index, coord := range coords {
		pixel, ok := f.pixel(coord)
		if !ok {
			samples[index] = math.NaN()
			continue
		}
		pixels[index] = pixel
		localTileCoord := f.localTileCoord(pixel)
		indexesByLocalTileCoord[localTileCoord] = append(indexesByLocalTileCoord[localTileCoord], index)
	}

	// Populate samples one local tile at a time.
	for localTileCoord, indexes := range indexesByLocalTileCoord {
		switch tileSamples, err := f.getTileSamplesCached(ctx, localTileCoord); {
		case errors.Is(err, otter.ErrNotFound):
			for _, index := range indexes {
				samples[index] = math.NaN()
			}
		case err != nil:
			return nil, err
		default:
			for _, index := range indexes {
				samples[index] = f.tileSample(tileSamples, pixels[index])
			}
		}
	}

	return samples, nil
}

// getCompressedTileData returns the compressed tile data for the data at
// localTileCoord. If the tile is known to be empty, it returns the error
// otter.ErrNotFound.
func (f *GeoTIFFTile) getCompressedTileData(localTileCoord TileCoord) ([]byte, error) {
	tileIndex := localTileCoord.C + f.tilesAcross*localTileCoord.R
	tileByteCount := f.tileByteCounts[tileIndex]
	tileOffset := f.tileOffsets[tileIndex]
	compressedData := make([]byte, tileByteCount)
	n, err := f.readerAt.ReadAt(compressedData, int64(tileOffset))
	switch {
	case n == int(tileByteCount):
	case err != nil:
		return nil, err
	default:
		return nil, errShortRead
	}
	if emptyTileBytes := f.emptyTileBytes.Load(); emptyTileBytes != nil && bytes.Equal(compressedData, *emptyTileBytes) {
		emptyTilesSkipped.Inc()
		return nil, otter.ErrNotFound
	}
	return compressedData, nil
}

// decompressTileData decompresses the tile data in compressedData.
func (f *GeoTIFFTile) decompressTileData(compressedData []byte) ([]byte, error) {
	if f.compression == compressionNone {
		if len(compressedData) < f.tileByteCountUncompressed {
			return nil, errShortRead
		}
		return compressedData, nil
	}
	tileData := make([]byte, f.tileByteCountUncompressed)
	r := lzw.NewReader(bytes.NewReader(compressedData), lzw.MSB, 8)
	defer r.Close()
	if _, err := io.ReadFull(r, tileData); err != nil {
		return nil, err
	}
	return tileData, nil
}

// decodeTileData decodes tileData.
func (f *GeoTIFFTile) decodeTileData(tileData []byte) []float32 {
	tileSamples := make([]float32, f.tileSampleCount)
	switch {
	case f.sampleFormat == sampleFormatFloat:
		for i := range f.tileSampleCount {
			tileSamples[i] = math.Float32frombits(f.byteOrder.Uint32(tileData[i*4 : (i+1)*4]))
		}
	case f.sampleFormat == sampleFormatInt:
		for i := range f.tileSampleCount {
			tileSamples[i] = float32(int16(f.byteOrder.Uint16(tileData[i*2 : (i+1)*2])))
		}
	default:
		for i := range f.tileSampleCount {
			tileSamples[i] = float32(f.byteOrder.Uint16(tileData[i*2 : (i+1)*2]))
		}
	}
	return tileSamples
}

// pixel returns the pixel containing coord.
func (f *GeoTIFFTile) pixel(coord Coord) (TileCoord, bool) {
	x := math.Floor((coord.X - f.translateX) / f.scaleX)
	y := math.Floor((f.translateY - coord.Y) / f.scaleY)
	if !(0 <= x && x < float64(f.imageWidth) && 0 <= y && y < float64(f.imageLength)) {
		return TileCoord{}, false
	}
	return TileCoord{C: int(x), R: int(y)}, true
}

// getTileSamples returns the tile samples at localTileCoord.
func (f *GeoTIFFTile) getTileSamples(ctx context.Context, localTileCoord TileCoord) ([]float32, error) {
	// Retrieve the compressed tile data.
	compressedTileData, err := f.getCompressedTileData(localTileCoord)
	if err != nil {
		return nil, err
	}

	// Decompress the tile data and decode it.
	tileData, err := f.decompressTileData(compressedTileData)
	if err != nil {
		return nil, err
	}
	tileSamples := f.decodeTileData(tileData)

	// If we do not know what an empty tile looks like compressed, check to see
	// if this is an empty tile, and, if so, use its bytes to detect empty tiles
	// before they are decompressed. We assume that the empty tile is the
	// smallest tile.
	if f.hasNoData && f.emptyTileBytes.Load() == nil && len(compressedTileData) == int(f.smallestTileByteCount) {
		isEmptyTile := true
		for _, sample := range tileSamples {
			if sample != f.noData {
				isEmptyTile = false
				break
			}
		}
		if isEmptyTile {
			f.emptyTileBytes.CompareAndSwap(nil, &compressedTileData)
			return nil, otter.ErrNotFound
		}
	}

	return tileSamples, nil
}

// getTileSamplesCached returns the tile at localTileCoord using f's cache.
func (f *GeoTIFFTile) getTileSamplesCached(ctx context.Context, localTileCoord TileCoord) ([]float32, error) {
	return f.tileSamplesCache.Get(ctx, localTileCoord, otter.LoaderFunc[TileCoord, []float32](f.getTileSamples))
}

// localTileCoord returns the tile containing pixel.
func (f *GeoTIFFTile) localTileCoord(pixel TileCoord) TileCoord {
	return TileCoord{
		C: pixel.C / f.tileWidth,
		R: pixel.R / f.tileLength,
	}
}

// tileSample returns the sample from tileSamples at pixel.
func (f *GeoTIFFTile) tileSample(tileSamples []float32, pixel TileCoord) float64 {
	sample := tileSamples[pixel.C%f.tileWidth+(pixel.R%f.tileLength)*f.tileWidth]
	if (f.hasNoData && sample == f.noData) || math.IsNaN(float64(sample)) {
		return math.NaN()
	}
	return float64(sample)
}

// readByteOrder returns the byte order declared in the TIFF header.
func readByteOrder(r io.ReaderAt) (binary.ByteOrder, error) {
	header := make([]byte, 2)
	if _, err := r.ReadAt(header, 0); err != nil {
		return nil, err
	}
	switch string(header) {
	case "II":
		return binary.LittleEndian, nil
	case "MM":
		return binary.BigEndian, nil
	default:
		return nil, errors.New("not a TIFF file")
	}
}

func supportedSampleLayout(sampleFormat, bitsPerSample uint16) bool {
	switch {
	case sampleFormat == sampleFormatFloat && bitsPerSample == 32:
		return true
	case (sampleFormat == sampleFormatInt || sampleFormat == sampleFormatUint) && bitsPerSample == 16:
		return true
	default:
		return false
	}
}
