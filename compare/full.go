package compare

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/deepakagrawalmsoe/DataComparator/metrics"
	"github.com/deepakagrawalmsoe/DataComparator/pkg/dataset"
)

// FullComparer performs the exhaustive row-level comparison. Chunks are
// compared independently by a bounded worker pool; each chunk yields a
// partial result and the partials are folded in chunk order, so the
// aggregate is independent of completion order.
type FullComparer struct {
	// Key names the columns forming the row identity. Empty means rows are
	// matched by position.
	Key []string
	// CandidateChunks narrows the comparison to the listed chunk indices,
	// typically the ones the fingerprint phase flagged. Nil means all.
	CandidateChunks []int

	ChunkSize      int64
	MaxParallelism int
	ChunkTimeout   time.Duration

	NumericTolerance       float64
	CaseInsensitiveStrings bool

	ContinueOnChunkFailure bool
	ExampleCap             int

	Logger *zap.Logger
}

// ErrAllChunksFailed is returned when no chunk produced a result; the
// accompanying summary still lists the per-chunk failures.
var ErrAllChunksFailed = errors.New("all chunks failed")

// chunkDiff is the partial result of one chunk.
type chunkDiff struct {
	index      int
	matches    int64
	mismatches int64
	leftOnly   int64
	rightOnly  int64

	columnMismatches map[string]int64
	examples         map[string][]metrics.RowDiffExample
}

// Compare runs the full comparison and returns the aggregated summary. With
// ContinueOnChunkFailure set, chunk failures are recorded in the summary and
// only an all-chunks-failed run returns ErrAllChunksFailed alongside it.
func (fc *FullComparer) Compare(ctx context.Context, left, right dataset.Source) (*metrics.DiffSummary, error) {
	leftSchema, err := left.Schema(ctx)
	if err != nil {
		return nil, fmt.Errorf("left schema: %w", err)
	}
	rightSchema, err := right.Schema(ctx)
	if err != nil {
		return nil, fmt.Errorf("right schema: %w", err)
	}

	plan, err := fc.buildPlan(leftSchema, rightSchema)
	if err != nil {
		return nil, err
	}

	leftCount, err := left.RowCount(ctx)
	if err != nil {
		return nil, fmt.Errorf("left row count: %w", err)
	}
	rightCount, err := right.RowCount(ctx)
	if err != nil {
		return nil, fmt.Errorf("right row count: %w", err)
	}
	maxCount := leftCount
	if rightCount > maxCount {
		maxCount = rightCount
	}

	chunks := fc.selectChunks(dataset.Partition(maxCount, fc.ChunkSize))
	summary := &metrics.DiffSummary{}
	if len(chunks) == 0 {
		return summary, nil
	}

	var (
		mu       sync.Mutex
		partials []chunkDiff
		failures []metrics.ChunkFailure
	)

	g, gctx := errgroup.WithContext(ctx)
	limit := fc.MaxParallelism
	if limit < 1 {
		limit = 1
	}
	g.SetLimit(limit)

	for _, chunk := range chunks {
		g.Go(func() error {
			partial, err := fc.compareChunk(gctx, left, right, plan, chunk)
			if err != nil {
				if !fc.ContinueOnChunkFailure {
					return err
				}
				mu.Lock()
				failures = append(failures, metrics.ChunkFailure{Index: chunk.Index, Error: err.Error()})
				mu.Unlock()
				if fc.Logger != nil {
					fc.Logger.Warn("Chunk comparison failed", zap.Int("chunk", chunk.Index), zap.Error(err))
				}
				return nil
			}
			mu.Lock()
			partials = append(partials, partial)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Fold in chunk order so shuffled completion yields identical output.
	sort.Slice(partials, func(i, j int) bool { return partials[i].index < partials[j].index })
	sort.Slice(failures, func(i, j int) bool { return failures[i].Index < failures[j].Index })
	for _, p := range partials {
		fc.merge(summary, p)
	}
	summary.ChunksProcessed = len(partials)
	summary.ChunksFailed = len(failures)
	summary.FailedChunks = failures
	if total := summary.Matches + summary.Mismatches + summary.LeftOnly + summary.RightOnly; total > 0 {
		summary.MatchPercent = float64(summary.Matches) / float64(total) * 100
	}

	if fc.Logger != nil {
		fc.Logger.Info("Full comparison completed",
			zap.Int64("matches", summary.Matches),
			zap.Int64("mismatches", summary.Mismatches),
			zap.Int64("leftOnly", summary.LeftOnly),
			zap.Int64("rightOnly", summary.RightOnly),
			zap.Int("chunksFailed", summary.ChunksFailed))
	}
	if len(partials) == 0 && len(failures) > 0 {
		return summary, ErrAllChunksFailed
	}
	return summary, nil
}

// comparePlan is the resolved column mapping shared by every chunk worker.
type comparePlan struct {
	// columns lists the compared column names in left-schema order.
	columns  []string
	types    []dataset.LogicalType
	leftIdx  []int
	rightIdx []int

	// keyLeft/keyRight are the key column ordinals; empty for positional.
	keyLeft  []int
	keyRight []int
}

func (fc *FullComparer) buildPlan(left, right *dataset.Schema) (*comparePlan, error) {
	plan := &comparePlan{}
	for _, f := range left.Fields() {
		ri := right.FieldIndex(f.Name)
		if ri < 0 {
			continue
		}
		plan.columns = append(plan.columns, f.Name)
		plan.types = append(plan.types, f.Type)
		plan.leftIdx = append(plan.leftIdx, left.FieldIndex(f.Name))
		plan.rightIdx = append(plan.rightIdx, ri)
	}
	if len(plan.columns) == 0 {
		return nil, &metrics.SchemaError{Msg: "no common columns to compare"}
	}
	for _, k := range fc.Key {
		li, ri := left.FieldIndex(k), right.FieldIndex(k)
		if li < 0 || ri < 0 {
			return nil, &metrics.ConfigError{Field: "comparison_key", Msg: fmt.Sprintf("column %q not present on both sides", k)}
		}
		plan.keyLeft = append(plan.keyLeft, li)
		plan.keyRight = append(plan.keyRight, ri)
	}
	return plan, nil
}

func (fc *FullComparer) selectChunks(chunks []dataset.Chunk) []dataset.Chunk {
	if fc.CandidateChunks == nil {
		return chunks
	}
	wanted := make(map[int]bool, len(fc.CandidateChunks))
	for _, i := range fc.CandidateChunks {
		wanted[i] = true
	}
	var out []dataset.Chunk
	for _, c := range chunks {
		if wanted[c.Index] {
			out = append(out, c)
		}
	}
	return out
}

// compareChunk reads one chunk window from both sides and diffs it. A
// per-chunk timeout bounds the task; expiry surfaces as a timeout ChunkError.
func (fc *FullComparer) compareChunk(ctx context.Context, left, right dataset.Source, plan *comparePlan, chunk dataset.Chunk) (chunkDiff, error) {
	if fc.ChunkTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, fc.ChunkTimeout)
		defer cancel()
	}

	leftRows, err := readChunkRows(ctx, left, chunk)
	if err != nil {
		return chunkDiff{}, fc.chunkError(ctx, chunk.Index, fmt.Errorf("read left: %w", err))
	}
	rightRows, err := readChunkRows(ctx, right, chunk)
	if err != nil {
		return chunkDiff{}, fc.chunkError(ctx, chunk.Index, fmt.Errorf("read right: %w", err))
	}

	diff := chunkDiff{
		index:            chunk.Index,
		columnMismatches: map[string]int64{},
		examples:         map[string][]metrics.RowDiffExample{},
	}
	if len(plan.keyLeft) > 0 {
		fc.compareKeyed(&diff, plan, leftRows, rightRows)
	} else {
		fc.comparePositional(&diff, plan, chunk, leftRows, rightRows)
	}
	return diff, nil
}

func (fc *FullComparer) chunkError(ctx context.Context, index int, err error) error {
	return &metrics.ChunkError{
		Index:   index,
		Timeout: errors.Is(ctx.Err(), context.DeadlineExceeded),
		Err:     err,
	}
}

// compareKeyed joins the two row sets on the key columns. Duplicate keys are
// matched in arrival order.
func (fc *FullComparer) compareKeyed(diff *chunkDiff, plan *comparePlan, leftRows, rightRows []dataset.Row) {
	pending := make(map[string][]dataset.Row, len(leftRows))
	order := make([]string, 0, len(leftRows))
	var buf []byte
	for _, row := range leftRows {
		buf = dataset.AppendCanonical(buf[:0], row, plan.keyLeft)
		key := string(buf)
		if len(pending[key]) == 0 {
			order = append(order, key)
		}
		pending[key] = append(pending[key], row)
	}

	for _, rrow := range rightRows {
		buf = dataset.AppendCanonical(buf[:0], rrow, plan.keyRight)
		key := string(buf)
		queue := pending[key]
		if len(queue) == 0 {
			diff.rightOnly++
			fc.addExample(diff, "", key, "", rowPreview(rrow, plan.rightIdx))
			continue
		}
		lrow := queue[0]
		pending[key] = queue[1:]
		fc.compareRows(diff, plan, key, lrow, rrow)
	}

	for _, key := range order {
		for _, lrow := range pending[key] {
			diff.leftOnly++
			fc.addExample(diff, "", key, rowPreview(lrow, plan.leftIdx), "")
		}
	}
}

// comparePositional pairs rows by their absolute position.
func (fc *FullComparer) comparePositional(diff *chunkDiff, plan *comparePlan, chunk dataset.Chunk, leftRows, rightRows []dataset.Row) {
	n := len(leftRows)
	if len(rightRows) < n {
		n = len(rightRows)
	}
	for i := 0; i < n; i++ {
		key := fmt.Sprintf("row %d", chunk.Offset+int64(i))
		fc.compareRows(diff, plan, key, leftRows[i], rightRows[i])
	}
	for i := n; i < len(leftRows); i++ {
		diff.leftOnly++
		fc.addExample(diff, "", fmt.Sprintf("row %d", chunk.Offset+int64(i)), rowPreview(leftRows[i], plan.leftIdx), "")
	}
	for i := n; i < len(rightRows); i++ {
		diff.rightOnly++
		fc.addExample(diff, "", fmt.Sprintf("row %d", chunk.Offset+int64(i)), "", rowPreview(rightRows[i], plan.rightIdx))
	}
}

// compareRows diffs one matched pair column by column.
func (fc *FullComparer) compareRows(diff *chunkDiff, plan *comparePlan, key string, lrow, rrow dataset.Row) {
	mismatched := false
	for c := range plan.columns {
		lv, rv := lrow[plan.leftIdx[c]], rrow[plan.rightIdx[c]]
		if fc.valuesEqual(lv, rv, plan.types[c]) {
			continue
		}
		mismatched = true
		diff.columnMismatches[plan.columns[c]]++
		fc.addExample(diff, plan.columns[c], key, dataset.FormatValue(lv), dataset.FormatValue(rv))
	}
	if mismatched {
		diff.mismatches++
	} else {
		diff.matches++
	}
}

// valuesEqual applies type-aware equality: numeric values within tolerance,
// optional case folding for strings, exact bytes otherwise.
func (fc *FullComparer) valuesEqual(l, r any, typ dataset.LogicalType) bool {
	if l == nil || r == nil {
		return l == nil && r == nil
	}
	if typ.Numeric() {
		lf, lok := numericValue(l)
		rf, rok := numericValue(r)
		if lok && rok {
			if math.IsNaN(lf) || math.IsNaN(rf) {
				return math.IsNaN(lf) && math.IsNaN(rf)
			}
			return math.Abs(lf-rf) <= fc.NumericTolerance
		}
	}
	switch lv := l.(type) {
	case string:
		if rv, ok := r.(string); ok {
			if fc.CaseInsensitiveStrings {
				return strings.EqualFold(lv, rv)
			}
			return lv == rv
		}
	case []byte:
		if rv, ok := r.([]byte); ok {
			return bytes.Equal(lv, rv)
		}
	case time.Time:
		if rv, ok := r.(time.Time); ok {
			return lv.Equal(rv)
		}
	}
	return dataset.FormatValue(l) == dataset.FormatValue(r)
}

// addExample retains a bounded number of example diffs per column. Row-level
// presence differences are filed under the pseudo-columns below.
func (fc *FullComparer) addExample(diff *chunkDiff, column, key, left, right string) {
	if fc.ExampleCap == 0 {
		return
	}
	switch {
	case column != "":
	case left == "":
		column = "_right_only"
	default:
		column = "_left_only"
	}
	if len(diff.examples[column]) >= fc.ExampleCap {
		return
	}
	diff.examples[column] = append(diff.examples[column], metrics.RowDiffExample{Key: key, Left: left, Right: right})
}

// merge folds one chunk partial into the aggregate, re-applying the example
// cap across chunks. Counter addition is associative, so folding in chunk
// order gives a deterministic result.
func (fc *FullComparer) merge(summary *metrics.DiffSummary, p chunkDiff) {
	summary.Matches += p.matches
	summary.Mismatches += p.mismatches
	summary.LeftOnly += p.leftOnly
	summary.RightOnly += p.rightOnly
	for col, n := range p.columnMismatches {
		if summary.ColumnMismatches == nil {
			summary.ColumnMismatches = map[string]int64{}
		}
		summary.ColumnMismatches[col] += n
	}
	for col, examples := range p.examples {
		if summary.Examples == nil {
			summary.Examples = map[string][]metrics.RowDiffExample{}
		}
		for _, ex := range examples {
			if len(summary.Examples[col]) >= fc.ExampleCap {
				break
			}
			summary.Examples[col] = append(summary.Examples[col], ex)
		}
	}
}

// readChunkRows materializes one chunk window. Rows are copied because
// iterators may reuse their backing slice between calls.
func readChunkRows(ctx context.Context, src dataset.Source, chunk dataset.Chunk) ([]dataset.Row, error) {
	it, err := src.ReadChunk(ctx, chunk)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var rows []dataset.Row
	for it.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows = append(rows, append(dataset.Row(nil), it.Row()...))
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return rows, nil
}

// rowPreview renders a compact projection of the compared columns for
// example output.
func rowPreview(row dataset.Row, cols []int) string {
	var sb strings.Builder
	for n, i := range cols {
		if n > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(dataset.FormatValue(row[i]))
	}
	return sb.String()
}
