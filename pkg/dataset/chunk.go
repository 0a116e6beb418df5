package dataset

// Chunk is a contiguous, addressable slice of a dataset. Chunks of a dataset
// are disjoint and their union covers the whole dataset.
type Chunk struct {
	Index  int   `json:"index"`
	Offset int64 `json:"offset"`
	Length int64 `json:"length"`
}

// Partition splits totalRows into chunks of at most chunkSize rows. The
// boundaries depend only on the two arguments, so repeated runs with the same
// configuration produce identical chunking. A chunkSize below 1 yields a
// single chunk covering the dataset.
func Partition(totalRows, chunkSize int64) []Chunk {
	if totalRows <= 0 {
		return nil
	}
	if chunkSize < 1 {
		chunkSize = totalRows
	}
	n := int((totalRows + chunkSize - 1) / chunkSize)
	chunks := make([]Chunk, 0, n)
	for i := 0; i < n; i++ {
		offset := int64(i) * chunkSize
		length := chunkSize
		if offset+length > totalRows {
			length = totalRows - offset
		}
		chunks = append(chunks, Chunk{Index: i, Offset: offset, Length: length})
	}
	return chunks
}
