package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPartitionCoversAllRows verifies chunks tile the row range exactly once.
func TestPartitionCoversAllRows(t *testing.T) {
	cases := []struct {
		totalRows int64
		chunkSize int64
		want      int
	}{
		{totalRows: 10, chunkSize: 3, want: 4},
		{totalRows: 9, chunkSize: 3, want: 3},
		{totalRows: 1, chunkSize: 100, want: 1},
		{totalRows: 100, chunkSize: 1, want: 100},
	}
	for _, tc := range cases {
		chunks := Partition(tc.totalRows, tc.chunkSize)
		require.Len(t, chunks, tc.want)

		var next int64
		var covered int64
		for i, c := range chunks {
			assert.Equal(t, i, c.Index)
			assert.Equal(t, next, c.Offset)
			assert.Positive(t, c.Length)
			next += c.Length
			covered += c.Length
		}
		assert.Equal(t, tc.totalRows, covered)
	}
}

// TestPartitionDeterministic verifies repeated calls yield identical plans.
func TestPartitionDeterministic(t *testing.T) {
	a := Partition(1000, 7)
	b := Partition(1000, 7)
	assert.Equal(t, a, b)
}

func TestPartitionEdgeCases(t *testing.T) {
	assert.Nil(t, Partition(0, 10))
	assert.Nil(t, Partition(-5, 10))

	// Invalid chunk size degrades to a single chunk.
	chunks := Partition(42, 0)
	require.Len(t, chunks, 1)
	assert.Equal(t, int64(42), chunks[0].Length)
}
