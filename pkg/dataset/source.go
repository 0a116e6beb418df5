package dataset

import (
	"context"
	"fmt"
)

// RowIterator yields the rows of one chunk lazily, in the style of a
// database result cursor.
type RowIterator interface {
	// Next advances to the next row, returning false at end of chunk or on
	// error.
	Next() bool
	// Row returns the current row. Valid only after a true Next.
	Row() Row
	// Err returns the first error encountered during iteration.
	Err() error
	// Close releases resources held by the iterator.
	Close() error
}

// Source is the adapter interface every concrete connector implements. A
// single comparison run owns its sources exclusively and closes them on every
// exit path. ReadChunk must be safe for concurrent calls from multiple
// workers.
type Source interface {
	// Name identifies the source in logs and reports.
	Name() string
	// Schema returns the dataset's schema.
	Schema(ctx context.Context) (*Schema, error)
	// RowCount returns the total number of rows.
	RowCount(ctx context.Context) (int64, error)
	// ReadChunk returns a lazy iterator over the rows of the given chunk.
	ReadChunk(ctx context.Context, chunk Chunk) (RowIterator, error)
	// Close releases the source's connections.
	Close() error
}

// NullCounter is an optional Source capability. When both sides provide it,
// the metadata phase compares per-column null counts as well.
type NullCounter interface {
	NullCounts(ctx context.Context) (map[string]int64, error)
}

// ScanRows walks every chunk of src sequentially and invokes fn for each row.
// Used by the single-pass phases (fingerprinting, sampling).
func ScanRows(ctx context.Context, src Source, chunkSize int64, fn func(chunk Chunk, row Row) error) error {
	count, err := src.RowCount(ctx)
	if err != nil {
		return err
	}
	for _, chunk := range Partition(count, chunkSize) {
		if err := ctx.Err(); err != nil {
			return err
		}
		it, err := src.ReadChunk(ctx, chunk)
		if err != nil {
			return fmt.Errorf("read chunk %d: %w", chunk.Index, err)
		}
		for it.Next() {
			if err := fn(chunk, it.Row()); err != nil {
				it.Close()
				return err
			}
		}
		if err := it.Err(); err != nil {
			it.Close()
			return fmt.Errorf("read chunk %d: %w", chunk.Index, err)
		}
		if err := it.Close(); err != nil {
			return fmt.Errorf("close chunk %d: %w", chunk.Index, err)
		}
	}
	return nil
}

// MemorySource is an in-memory Source, primarily for tests and small
// datasets. Reads are side-effect free, so concurrent ReadChunk calls are
// safe.
type MemorySource struct {
	name   string
	schema *Schema
	rows   []Row
}

// NewMemorySource wraps a row slice in a Source. Rows must be aligned to the
// schema's column order.
func NewMemorySource(name string, schema *Schema, rows []Row) *MemorySource {
	return &MemorySource{name: name, schema: schema, rows: rows}
}

func (m *MemorySource) Name() string { return m.name }

func (m *MemorySource) Schema(ctx context.Context) (*Schema, error) {
	return m.schema, nil
}

func (m *MemorySource) RowCount(ctx context.Context) (int64, error) {
	return int64(len(m.rows)), nil
}

func (m *MemorySource) ReadChunk(ctx context.Context, chunk Chunk) (RowIterator, error) {
	if chunk.Offset < 0 {
		return nil, fmt.Errorf("chunk offset %d out of range", chunk.Offset)
	}
	// A chunk window beyond this side's rows yields an empty iterator; the
	// other side of a comparison may simply be larger.
	start, end := chunk.Offset, chunk.Offset+chunk.Length
	if start > int64(len(m.rows)) {
		start = int64(len(m.rows))
	}
	if end > int64(len(m.rows)) {
		end = int64(len(m.rows))
	}
	return &sliceIterator{rows: m.rows[start:end], pos: -1}, nil
}

func (m *MemorySource) Close() error { return nil }

type sliceIterator struct {
	rows []Row
	pos  int
}

func (it *sliceIterator) Next() bool {
	it.pos++
	return it.pos < len(it.rows)
}

func (it *sliceIterator) Row() Row     { return it.rows[it.pos] }
func (it *sliceIterator) Err() error   { return nil }
func (it *sliceIterator) Close() error { return nil }
