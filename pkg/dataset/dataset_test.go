package dataset

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSchemaRejectsDuplicates(t *testing.T) {
	_, err := NewSchema(
		Field{Name: "id", Type: TypeInt},
		Field{Name: "id", Type: TypeString},
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate column name")

	_, err = NewSchema(Field{Name: "", Type: TypeInt})
	require.Error(t, err)
}

func TestSchemaFieldIndex(t *testing.T) {
	s := MustSchema(
		Field{Name: "id", Type: TypeInt},
		Field{Name: "name", Type: TypeString, Nullable: true},
	)
	assert.Equal(t, 0, s.FieldIndex("id"))
	assert.Equal(t, 1, s.FieldIndex("name"))
	assert.Equal(t, -1, s.FieldIndex("missing"))
	assert.Equal(t, []string{"id", "name"}, s.Names())
}

// TestAppendCanonicalNullMarkers verifies nulls and NaN get explicit markers
// distinct from empty strings.
func TestAppendCanonicalNullMarkers(t *testing.T) {
	row := Row{nil, "", math.NaN()}
	got := string(AppendCanonical(nil, row, []int{0, 1, 2}))
	assert.Equal(t, "__NULL__||__NAN__", got)
}

func TestAppendCanonicalValueTypes(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	row := Row{int64(42), true, 3.5, "text", []byte("raw"), ts}
	got := string(AppendCanonical(nil, row, []int{0, 1, 2, 3, 4, 5}))
	assert.Equal(t, "42|true|3.5|text|raw|2024-05-01T12:00:00Z", got)
}

func TestAppendCanonicalColumnSubset(t *testing.T) {
	row := Row{int64(1), "skip", int64(3)}
	got := string(AppendCanonical(nil, row, []int{2, 0}))
	assert.Equal(t, "3|1", got)
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "__NULL__", FormatValue(nil))
	assert.Equal(t, "7", FormatValue(int64(7)))
	assert.Equal(t, "false", FormatValue(false))
}

func TestMemorySourceScanRows(t *testing.T) {
	schema := MustSchema(Field{Name: "id", Type: TypeInt})
	rows := []Row{{int64(1)}, {int64(2)}, {int64(3)}, {int64(4)}, {int64(5)}}
	src := NewMemorySource("mem", schema, rows)

	count, err := src.RowCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(5), count)

	var seen []int64
	var chunks []int
	err = ScanRows(context.Background(), src, 2, func(chunk Chunk, row Row) error {
		seen = append(seen, row[0].(int64))
		chunks = append(chunks, chunk.Index)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, seen)
	assert.Equal(t, []int{0, 0, 1, 1, 2}, chunks)
}

// TestMemorySourceChunkBeyondRows verifies reads past the end yield an empty
// iterator rather than an error.
func TestMemorySourceChunkBeyondRows(t *testing.T) {
	schema := MustSchema(Field{Name: "id", Type: TypeInt})
	src := NewMemorySource("mem", schema, []Row{{int64(1)}})

	it, err := src.ReadChunk(context.Background(), Chunk{Index: 3, Offset: 30, Length: 10})
	require.NoError(t, err)
	defer it.Close()
	assert.False(t, it.Next())
	assert.NoError(t, it.Err())
}
