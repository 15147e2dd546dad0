package tabular

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/tealeg/xlsx/v2"
)

func newTestXLSX(t *testing.T, sheetName string, rows [][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(sheetName)
	assert.NoError(t, err)
	for _, rowData := range rows {
		row := sheet.AddRow()
		for _, cellData := range rowData {
			row.AddCell().SetString(cellData)
		}
	}
	path := filepath.Join(t.TempDir(), "test.xlsx")
	assert.NoError(t, f.Save(path))
	return path
}

func newTestCSV(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.csv")
	assert.NoError(t, os.WriteFile(path, []byte(contents), 0o666))
	return path
}

func TestReadXLSX(t *testing.T) {
	path := newTestXLSX(t, "logements", [][]string{
		{"nom", "longitude", "latitude", "logements"},
		{"Résidence A", "2.3522", "48.8566", "120"},
		{"Résidence B", "", "45.0703", "80"},
		{"Résidence C", "7.6869", "45,0703", ""},
	})

	c, err := ReadXLSX(path, Options{})
	assert.NoError(t, err)
	assert.Equal(t, 4326, c.SRID)
	assert.Equal(t, 3, c.Len())

	assert.Equal(t, []float64{2.3522, 48.8566}, c.Features[0].Geometry.FlatCoords())
	assert.Equal(t, 4326, c.Features[0].Geometry.SRID())
	assert.Equal(t, map[string]any{"nom": "Résidence A", "logements": 120}, c.Features[0].Properties)

	assert.Zero(t, c.Features[1].Geometry)
	assert.Equal(t, []float64{7.6869, 45.0703}, c.Features[2].Geometry.FlatCoords())
	assert.Equal(t, map[string]any{"nom": "Résidence C"}, c.Features[2].Properties)
}

func TestReadXLSX_Errors(t *testing.T) {
	path := newTestXLSX(t, "data", [][]string{
		{"x", "y"},
		{"1", "2"},
	})

	_, err := ReadXLSX(path, Options{})
	assert.Error(t, err)

	_, err = ReadXLSX(path, Options{Sheet: "missing", XField: "x", YField: "y"})
	assert.Error(t, err)

	c, err := ReadXLSX(path, Options{Sheet: "data", XField: "x", YField: "y", SRID: 2154})
	assert.NoError(t, err)
	assert.Equal(t, 2154, c.SRID)
	assert.Equal(t, []float64{1, 2}, c.Features[0].Geometry.FlatCoords())

	_, err = ReadXLSX(filepath.Join(t.TempDir(), "missing.xlsx"), Options{})
	assert.Error(t, err)
}

func TestReadCSV(t *testing.T) {
	path := newTestCSV(t, "\ufeffid;X;Y;hauteur\n1;652000;6862000;12.5\n2;843000;6519000;\n")

	c, err := ReadCSV(path, Options{XField: "X", YField: "Y", SRID: 2154, Delimiter: ';'})
	assert.NoError(t, err)
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, []float64{652000, 6862000}, c.Features[0].Geometry.FlatCoords())
	assert.Equal(t, map[string]any{"id": 1, "hauteur": 12.5}, c.Features[0].Properties)
	assert.Equal(t, map[string]any{"id": 2}, c.Features[1].Properties)
}

func TestReadCSV_Errors(t *testing.T) {
	_, err := ReadCSV(newTestCSV(t, ""), Options{})
	assert.Error(t, err)

	_, err = ReadCSV(newTestCSV(t, "a,b\n1,2\n"), Options{})
	assert.Error(t, err)

	_, err = ReadCSV(filepath.Join(t.TempDir(), "missing.csv"), Options{})
	assert.Error(t, err)
}

func TestParseValue(t *testing.T) {
	assert.Equal(t, any(12), parseValue("12"))
	assert.Equal(t, any(12.5), parseValue("12.5"))
	assert.Equal(t, any("12,5 m"), parseValue("12,5 m"))
	assert.Zero(t, parseValue(""))
}
