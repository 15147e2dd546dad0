// Package tabular reads point features from spreadsheets and delimited text
// files with coordinate columns.
package tabular

import (
	"encoding/csv"
	"errors"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/twpayne/go-rastersample/internal/feature"
)

// Options configures how rows are converted to features.
type Options struct {
	XField    string // Column holding the x coordinate, default "longitude".
	YField    string // Column holding the y coordinate, default "latitude".
	SRID      int    // SRID of the coordinates, default 4326.
	Sheet     string // XLSX sheet name, default the first sheet.
	Delimiter rune   // CSV delimiter, default ','.
}

func (o Options) withDefaults() Options {
	if o.XField == "" {
		o.XField = "longitude"
	}
	if o.YField == "" {
		o.YField = "latitude"
	}
	if o.SRID == 0 {
		o.SRID = 4326
	}
	if o.Delimiter == 0 {
		o.Delimiter = ','
	}
	return o
}

// ReadXLSX reads the point features in the XLSX file at path. The first row
// of the sheet is the header.
func ReadXLSX(path string, options Options) (*feature.Collection, error) {
	options = options.withDefaults()
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "tabular: open %s", path)
	}

	var sheet *xlsx.Sheet
	switch {
	case options.Sheet != "":
		var ok bool
		if sheet, ok = f.Sheet[options.Sheet]; !ok {
			return nil, eris.Errorf("tabular: %s: sheet %q not found", path, options.Sheet)
		}
	case len(f.Sheets) == 0:
		return nil, eris.Errorf("tabular: %s: no sheets", path)
	default:
		sheet = f.Sheets[0]
	}

	records := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		if row == nil {
			continue
		}
		record := make([]string, len(row.Cells))
		for i, cell := range row.Cells {
			record[i] = cell.String()
		}
		records = append(records, record)
	}
	return newCollection(path, records, options)
}

// ReadCSV reads the point features in the delimited text file at path. The
// first record is the header. A leading byte order mark is ignored.
func ReadCSV(path string, options Options) (*feature.Collection, error) {
	options = options.withDefaults()
	file, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "tabular: open %s", path)
	}
	defer file.Close()

	reader := csv.NewReader(transform.NewReader(file, unicode.BOMOverride(unicode.UTF8.NewDecoder())))
	reader.Comma = options.Delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var records [][]string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return nil, eris.Wrapf(err, "tabular: read %s", path)
		}
		records = append(records, record)
	}
	return newCollection(path, records, options)
}

// newCollection converts records to point features. Columns other than the
// coordinate columns become properties. Rows with missing or invalid
// coordinates get a nil geometry.
func newCollection(path string, records [][]string, options Options) (*feature.Collection, error) {
	if len(records) == 0 {
		return nil, eris.Errorf("tabular: %s: no header", path)
	}
	header := make([]string, len(records[0]))
	for i, name := range records[0] {
		header[i] = strings.TrimSpace(name)
	}
	xIndex, yIndex := -1, -1
	for i, name := range header {
		switch name {
		case options.XField:
			xIndex = i
		case options.YField:
			yIndex = i
		}
	}
	if xIndex < 0 || yIndex < 0 {
		return nil, eris.Errorf("tabular: %s: missing coordinate columns %q and %q", path, options.XField, options.YField)
	}

	c := feature.NewCollection(options.SRID)
	invalid := 0
	for n, record := range records[1:] {
		f := &feature.Feature{
			ID:         strconv.Itoa(n),
			Properties: make(map[string]any, len(header)),
		}
		x, xErr := parseCoordinate(field(record, xIndex))
		y, yErr := parseCoordinate(field(record, yIndex))
		if xErr == nil && yErr == nil {
			f.Geometry = geom.NewPointFlat(geom.XY, []float64{x, y}).SetSRID(options.SRID)
		} else {
			invalid++
		}
		for i, name := range header {
			if i == xIndex || i == yIndex || name == "" {
				continue
			}
			if value := parseValue(field(record, i)); value != nil {
				f.Properties[name] = value
			}
		}
		c.Features = append(c.Features, f)
	}

	zap.L().Info("read table",
		zap.String("path", path),
		zap.Int("features", c.Len()),
		zap.Int("invalid", invalid),
	)
	return c, nil
}

func field(record []string, i int) string {
	if i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// parseCoordinate parses a coordinate, accepting a decimal comma.
func parseCoordinate(s string) (float64, error) {
	return strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
}

// parseValue returns s as an int, a float64, or a string. It returns nil for
// empty values.
func parseValue(s string) any {
	if s == "" {
		return nil
	}
	if i, err := strconv.Atoi(s); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
