package shapefile

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/jonas-p/go-shp"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/twpayne/go-rastersample/internal/feature"
)

// maxFieldNameLength is the maximum length of a DBF field name.
const maxFieldNameLength = 10

// FieldName returns s as a valid DBF field name. Diacritics are removed, any
// other character that is not an ASCII letter, digit, or underscore is
// replaced by an underscore, and the result is truncated.
func FieldName(s string) string {
	stripped, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), s)
	if err != nil {
		stripped = s
	}
	var sb strings.Builder
	for _, r := range stripped {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			sb.WriteRune(r)
		default:
			sb.WriteByte('_')
		}
		if sb.Len() == maxFieldNameLength {
			break
		}
	}
	if sb.Len() == 0 {
		return "field"
	}
	return sb.String()
}

// FieldNames returns the DBF field names for columns. Names that collide after
// truncation get a numeric suffix.
func FieldNames(columns []string) []string {
	names := make([]string, len(columns))
	seen := make(map[string]struct{}, len(columns))
	for i, column := range columns {
		name := FieldName(column)
		for n := 1; ; n++ {
			if _, ok := seen[strings.ToLower(name)]; !ok {
				break
			}
			suffix := "_" + strconv.Itoa(n)
			base := FieldName(column)
			name = base[:min(len(base), maxFieldNameLength-len(suffix))] + suffix
		}
		seen[strings.ToLower(name)] = struct{}{}
		names[i] = name
	}
	return names
}

// fieldFor returns the DBF field for column, typed from its values in c.
func fieldFor(name string, c *feature.Collection, column string) shp.Field {
	isFloat, isInt, isString := false, false, false
	for _, f := range c.Features {
		switch f.Properties[column].(type) {
		case nil:
		case float32, float64:
			isFloat = true
		case int, int8, int16, int32, int64, uint8, uint16, uint32:
			isInt = true
		default:
			isString = true
		}
	}
	switch {
	case isString:
		return shp.StringField(name, 254)
	case isFloat:
		return shp.FloatField(name, 24, 6)
	case isInt:
		return shp.NumberField(name, 18)
	default:
		return shp.StringField(name, 254)
	}
}

// dbfValue converts value to a type accepted by shp.Writer.WriteAttribute for
// field.
func dbfValue(field shp.Field, value any) (any, bool) {
	if value == nil {
		return nil, false
	}
	switch field.Fieldtype {
	case 'F':
		switch v := value.(type) {
		case float64:
			return v, true
		case float32:
			return float64(v), true
		default:
			f, err := strconv.ParseFloat(fmt.Sprint(v), 64)
			return f, err == nil
		}
	case 'N':
		i, err := strconv.Atoi(fmt.Sprint(value))
		return i, err == nil
	default:
		return fmt.Sprint(value), true
	}
}

// attributeValue parses a raw DBF attribute. It returns nil for empty values.
func attributeValue(field shp.Field, raw string) any {
	raw = strings.TrimSpace(strings.TrimRight(raw, "\x00"))
	if raw == "" {
		return nil
	}
	switch field.Fieldtype {
	case 'N':
		if field.Precision == 0 {
			if i, err := strconv.Atoi(raw); err == nil {
				return i
			}
		}
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return f
		}
	case 'F':
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return f
		}
	case 'L':
		switch raw {
		case "T", "t", "Y", "y":
			return true
		case "F", "f", "N", "n":
			return false
		}
		return nil
	}
	return raw
}
