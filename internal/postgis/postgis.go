// Package postgis reads and writes feature collections from PostGIS tables.
package postgis

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/ewkb"
	"go.uber.org/zap"

	"github.com/twpayne/go-rastersample/internal/feature"
)

// GeometryColumn is the name of the geometry column of written tables.
const GeometryColumn = "geom"

var identifierRx = regexp.MustCompile(`\A[A-Za-z_][A-Za-z0-9_]*\z`)

// A Pool is the subset of *pgxpool.Pool used by this package.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
	Close()
}

// A Column is a table column.
type Column struct {
	Name string
	Type string
}

// Connect returns a new connection pool to dsn.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	if dsn == "" {
		return nil, eris.New("postgis: no database URL configured")
	}
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, eris.Wrap(err, "postgis: parse connection string")
	}
	config.MaxConns = 4
	config.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, eris.Wrap(err, "postgis: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgis: ping")
	}
	return pool, nil
}

// ParseIdentifier parses an optionally schema-qualified table name.
func ParseIdentifier(table string) (pgx.Identifier, error) {
	identifier := pgx.Identifier(strings.Split(table, "."))
	if len(identifier) > 2 {
		return nil, eris.Errorf("postgis: invalid table name %q", table)
	}
	for _, part := range identifier {
		if !identifierRx.MatchString(part) {
			return nil, eris.Errorf("postgis: invalid table name %q", table)
		}
	}
	return identifier, nil
}

// ReadTable reads all rows of table. The geometry is read from geomColumn and
// all other columns become feature properties. An integer or string id column
// becomes the feature ID.
func ReadTable(ctx context.Context, pool Pool, table, geomColumn string) (*feature.Collection, error) {
	identifier, err := ParseIdentifier(table)
	if err != nil {
		return nil, err
	}
	if !identifierRx.MatchString(geomColumn) {
		return nil, eris.Errorf("postgis: invalid geometry column %q", geomColumn)
	}

	sql := fmt.Sprintf(
		`SELECT ST_AsEWKB(t.%s), to_jsonb(t) - $1 FROM %s AS t`,
		pgx.Identifier{geomColumn}.Sanitize(), identifier.Sanitize(),
	)
	rows, err := pool.Query(ctx, sql, geomColumn)
	if err != nil {
		return nil, eris.Wrapf(err, "postgis: query %s", table)
	}
	defer rows.Close()

	c := feature.NewCollection(0)
	for rows.Next() {
		var ewkbData []byte
		var properties map[string]any
		if err := rows.Scan(&ewkbData, &properties); err != nil {
			return nil, eris.Wrapf(err, "postgis: scan %s", table)
		}
		f := &feature.Feature{
			Properties: properties,
		}
		if len(ewkbData) > 0 {
			g, err := ewkb.Unmarshal(ewkbData)
			if err != nil {
				return nil, eris.Wrapf(err, "postgis: decode %s row %d", table, c.Len())
			}
			f.Geometry = g
			if c.SRID == 0 {
				c.SRID = g.SRID()
			}
		}
		if id, ok := properties["id"]; ok && id != nil {
			f.ID = fmt.Sprint(id)
		}
		c.Features = append(c.Features, f)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrapf(err, "postgis: read %s", table)
	}

	zap.L().Info("read table",
		zap.String("table", table),
		zap.Int("features", c.Len()),
		zap.Int("srid", c.SRID),
	)
	return c, nil
}

// Columns returns the property columns of c with their PostgreSQL types.
// Columns whose values have different types are stored as jsonb.
func Columns(c *feature.Collection) []Column {
	types := make(map[string]string)
	for _, f := range c.Features {
		for key, value := range f.Properties {
			if value == nil {
				continue
			}
			t := columnType(value)
			switch existing, ok := types[key]; {
			case !ok:
				types[key] = t
			case existing != t:
				types[key] = "jsonb"
			}
		}
	}
	columns := make([]Column, 0, len(types))
	for _, name := range c.Columns() {
		if name == GeometryColumn {
			continue
		}
		t, ok := types[name]
		if !ok {
			t = "text"
		}
		columns = append(columns, Column{Name: name, Type: t})
	}
	return columns
}

// EnsureTable creates table with a geometry column of the given type and SRID
// and the given property columns, if it does not already exist.
func EnsureTable(ctx context.Context, pool Pool, table, geometryType string, srid int, columns []Column) error {
	identifier, err := ParseIdentifier(table)
	if err != nil {
		return err
	}
	if !identifierRx.MatchString(geometryType) {
		return eris.Errorf("postgis: invalid geometry type %q", geometryType)
	}

	definitions := []string{
		fmt.Sprintf("%s geometry(%s, %d)", pgx.Identifier{GeometryColumn}.Sanitize(), geometryType, srid),
	}
	for _, column := range columns {
		if !identifierRx.MatchString(strings.ReplaceAll(column.Type, " ", "_")) {
			return eris.Errorf("postgis: invalid column type %q", column.Type)
		}
		definitions = append(definitions, pgx.Identifier{column.Name}.Sanitize()+" "+column.Type)
	}

	createTable := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", identifier.Sanitize(), strings.Join(definitions, ", "))
	if _, err := pool.Exec(ctx, createTable); err != nil {
		return eris.Wrapf(err, "postgis: create table %s", table)
	}

	indexName := pgx.Identifier{identifier[len(identifier)-1] + "_" + GeometryColumn + "_idx"}
	createIndex := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s USING GIST (%s)",
		indexName.Sanitize(), identifier.Sanitize(), pgx.Identifier{GeometryColumn}.Sanitize())
	if _, err := pool.Exec(ctx, createIndex); err != nil {
		return eris.Wrapf(err, "postgis: create index on %s", table)
	}
	return nil
}

// WriteFeatures copies c's features into table, which must already exist.
// Geometries are sent as EWKB. Geometries without an SRID are assigned c's
// SRID.
func WriteFeatures(ctx context.Context, pool Pool, table string, c *feature.Collection, columns []string) (int64, error) {
	if c.Len() == 0 {
		return 0, nil
	}
	identifier, err := ParseIdentifier(table)
	if err != nil {
		return 0, err
	}

	rows := make([][]any, 0, c.Len())
	for i, f := range c.Features {
		row := make([]any, 0, len(columns)+1)
		if f.Geometry == nil {
			row = append(row, nil)
		} else {
			if f.Geometry.SRID() == 0 && c.SRID != 0 {
				f.Geometry = feature.SetSRID(f.Geometry, c.SRID)
			}
			data, err := ewkb.Marshal(f.Geometry, ewkb.NDR)
			if err != nil {
				return 0, eris.Wrapf(err, "postgis: encode feature %d", i)
			}
			row = append(row, data)
		}
		for _, column := range columns {
			row = append(row, f.Properties[column])
		}
		rows = append(rows, row)
	}

	columnNames := append([]string{GeometryColumn}, columns...)
	n, err := pool.CopyFrom(ctx, identifier, columnNames, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, eris.Wrapf(err, "postgis: COPY INTO %s", table)
	}
	zap.L().Info("wrote table", zap.String("table", table), zap.Int64("rows", n))
	return n, nil
}

func columnType(value any) string {
	switch value.(type) {
	case float32, float64:
		return "double precision"
	case int, int8, int16, int32, int64, uint8, uint16, uint32:
		return "bigint"
	case bool:
		return "boolean"
	case string:
		return "text"
	case time.Time:
		return "timestamptz"
	default:
		return "jsonb"
	}
}
