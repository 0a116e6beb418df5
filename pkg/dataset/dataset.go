// Package dataset defines the typed schema and row model shared by every
// comparison phase, along with deterministic chunk partitioning and the
// source adapter interface that connectors implement.
package dataset

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// LogicalType is the engine-level column type, decoupled from any concrete
// source's native type system.
type LogicalType string

const (
	TypeBool      LogicalType = "bool"
	TypeInt       LogicalType = "int"
	TypeFloat     LogicalType = "float"
	TypeString    LogicalType = "string"
	TypeBytes     LogicalType = "bytes"
	TypeTimestamp LogicalType = "timestamp"
)

// Numeric reports whether the type participates in tolerance-based equality
// and mean/variance statistics.
func (t LogicalType) Numeric() bool {
	return t == TypeInt || t == TypeFloat
}

// Field describes one column of a schema.
type Field struct {
	Name     string      `json:"name"`
	Type     LogicalType `json:"type"`
	Nullable bool        `json:"nullable"`
}

// Schema is an ordered sequence of fields. Field names are unique.
type Schema struct {
	fields []Field
	index  map[string]int
}

// NewSchema builds a schema, rejecting duplicate column names.
func NewSchema(fields ...Field) (*Schema, error) {
	index := make(map[string]int, len(fields))
	for i, f := range fields {
		if f.Name == "" {
			return nil, fmt.Errorf("field %d has an empty name", i)
		}
		if _, ok := index[f.Name]; ok {
			return nil, fmt.Errorf("duplicate column name %q", f.Name)
		}
		index[f.Name] = i
	}
	return &Schema{fields: fields, index: index}, nil
}

// MustSchema is NewSchema that panics; intended for tests and fixtures.
func MustSchema(fields ...Field) *Schema {
	s, err := NewSchema(fields...)
	if err != nil {
		panic(err)
	}
	return s
}

// Len returns the number of fields.
func (s *Schema) Len() int { return len(s.fields) }

// Fields returns the ordered field list.
func (s *Schema) Fields() []Field { return s.fields }

// Field returns the field at position i.
func (s *Schema) Field(i int) Field { return s.fields[i] }

// FieldIndex returns the ordinal of the named column, or -1.
func (s *Schema) FieldIndex(name string) int {
	if i, ok := s.index[name]; ok {
		return i
	}
	return -1
}

// Names returns the column names in schema order.
func (s *Schema) Names() []string {
	names := make([]string, len(s.fields))
	for i, f := range s.fields {
		names[i] = f.Name
	}
	return names
}

// Row is an ordered sequence of values aligned to a schema's column order.
// A nil element represents SQL NULL.
type Row []any

// Canonical byte-encoding markers. Null and NaN are encoded explicitly so
// fingerprints distinguish them from empty strings.
const (
	nullMarker = "__NULL__"
	nanMarker  = "__NAN__"
	colSep     = '|'
)

// AppendCanonical appends the canonical byte representation of the selected
// columns of row to buf. Values are serialized in the given column order with
// explicit null markers, so the encoding is stable across sources and runs.
func AppendCanonical(buf []byte, row Row, cols []int) []byte {
	for n, i := range cols {
		if n > 0 {
			buf = append(buf, colSep)
		}
		buf = appendValue(buf, row[i])
	}
	return buf
}

func appendValue(buf []byte, v any) []byte {
	switch x := v.(type) {
	case nil:
		return append(buf, nullMarker...)
	case bool:
		return strconv.AppendBool(buf, x)
	case int64:
		return strconv.AppendInt(buf, x, 10)
	case int:
		return strconv.AppendInt(buf, int64(x), 10)
	case int32:
		return strconv.AppendInt(buf, int64(x), 10)
	case float64:
		if math.IsNaN(x) {
			return append(buf, nanMarker...)
		}
		return strconv.AppendFloat(buf, x, 'g', -1, 64)
	case float32:
		if math.IsNaN(float64(x)) {
			return append(buf, nanMarker...)
		}
		return strconv.AppendFloat(buf, float64(x), 'g', -1, 32)
	case string:
		return append(buf, x...)
	case []byte:
		return append(buf, x...)
	case time.Time:
		return x.UTC().AppendFormat(buf, time.RFC3339Nano)
	default:
		return append(buf, fmt.Sprintf("%v", x)...)
	}
}

// FormatValue renders a single value the same way the canonical encoding
// does; used when recording example diffs in reports.
func FormatValue(v any) string {
	return string(appendValue(nil, v))
}
