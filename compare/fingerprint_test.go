package compare

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepakagrawalmsoe/DataComparator/pkg/dataset"
)

func fpSchema() *dataset.Schema {
	return dataset.MustSchema(
		dataset.Field{Name: "id", Type: dataset.TypeInt},
		dataset.Field{Name: "name", Type: dataset.TypeString, Nullable: true},
	)
}

func fpSource(name string, rows ...dataset.Row) dataset.Source {
	return dataset.NewMemorySource(name, fpSchema(), rows)
}

func TestFingerprintIdenticalSources(t *testing.T) {
	for _, algo := range []Algorithm{AlgorithmXXH3, AlgorithmMD5, AlgorithmSHA256} {
		f := &Fingerprinter{Algorithm: algo, ChunkSize: 2}
		left := fpSource("left", dataset.Row{int64(1), "a"}, dataset.Row{int64(2), "b"}, dataset.Row{int64(3), "c"})
		right := fpSource("right", dataset.Row{int64(1), "a"}, dataset.Row{int64(2), "b"}, dataset.Row{int64(3), "c"})

		result, err := f.Compare(context.Background(), left, right)
		require.NoError(t, err)
		assert.True(t, result.Match, "algorithm %s", algo)
		assert.Equal(t, result.LeftFingerprint, result.RightFingerprint)
		assert.Empty(t, result.DifferingChunks)
		assert.Equal(t, 2, result.ChunksCompared)
	}
}

// TestFingerprintOrderIndependent verifies reordered rows within a chunk
// produce the same fingerprint.
func TestFingerprintOrderIndependent(t *testing.T) {
	f := &Fingerprinter{Algorithm: AlgorithmXXH3, ChunkSize: 10}
	left := fpSource("left", dataset.Row{int64(1), "a"}, dataset.Row{int64(2), "b"}, dataset.Row{int64(3), "c"})
	right := fpSource("right", dataset.Row{int64(3), "c"}, dataset.Row{int64(1), "a"}, dataset.Row{int64(2), "b"})

	result, err := f.Compare(context.Background(), left, right)
	require.NoError(t, err)
	assert.True(t, result.Match)
}

// TestFingerprintMultiplicity verifies duplicate rows do not cancel out:
// {r, r} must differ from {r} and from {r, r, r, r}.
func TestFingerprintMultiplicity(t *testing.T) {
	f := &Fingerprinter{Algorithm: AlgorithmXXH3, ChunkSize: 10}
	row := dataset.Row{int64(1), "dup"}

	twice := fpSource("twice", row, row)
	fourTimes := fpSource("four", row, row, row, row)

	result, err := f.Compare(context.Background(), twice, fourTimes)
	require.NoError(t, err)
	assert.False(t, result.Match)
}

func TestFingerprintDetectsValueChange(t *testing.T) {
	f := &Fingerprinter{Algorithm: AlgorithmSHA256, ChunkSize: 2}
	left := fpSource("left",
		dataset.Row{int64(1), "a"}, dataset.Row{int64(2), "b"},
		dataset.Row{int64(3), "c"}, dataset.Row{int64(4), "d"})
	right := fpSource("right",
		dataset.Row{int64(1), "a"}, dataset.Row{int64(2), "b"},
		dataset.Row{int64(3), "CHANGED"}, dataset.Row{int64(4), "d"})

	result, err := f.Compare(context.Background(), left, right)
	require.NoError(t, err)
	assert.False(t, result.Match)
	// Only the second chunk differs.
	assert.Equal(t, []int{1}, result.DifferingChunks)
}

func TestFingerprintDistinguishesNullFromEmpty(t *testing.T) {
	f := &Fingerprinter{Algorithm: AlgorithmXXH3, ChunkSize: 10}
	left := fpSource("left", dataset.Row{int64(1), nil})
	right := fpSource("right", dataset.Row{int64(1), ""})

	result, err := f.Compare(context.Background(), left, right)
	require.NoError(t, err)
	assert.False(t, result.Match)
}

func TestFingerprintColumnSubset(t *testing.T) {
	f := &Fingerprinter{Algorithm: AlgorithmXXH3, ChunkSize: 10, Columns: []string{"id"}}
	left := fpSource("left", dataset.Row{int64(1), "a"})
	right := fpSource("right", dataset.Row{int64(1), "different"})

	result, err := f.Compare(context.Background(), left, right)
	require.NoError(t, err)
	assert.True(t, result.Match)

	f.Columns = []string{"nope"}
	_, err = f.Compare(context.Background(), left, right)
	require.Error(t, err)
}

// TestFingerprintRowCountMismatch verifies the extra chunk on the longer side
// is reported as differing.
func TestFingerprintRowCountMismatch(t *testing.T) {
	f := &Fingerprinter{Algorithm: AlgorithmMD5, ChunkSize: 2}
	left := fpSource("left", dataset.Row{int64(1), "a"}, dataset.Row{int64(2), "b"})
	right := fpSource("right",
		dataset.Row{int64(1), "a"}, dataset.Row{int64(2), "b"},
		dataset.Row{int64(3), "c"})

	result, err := f.Compare(context.Background(), left, right)
	require.NoError(t, err)
	assert.False(t, result.Match)
	assert.Equal(t, 2, result.ChunksCompared)
	assert.Equal(t, []int{1}, result.DifferingChunks)
}
