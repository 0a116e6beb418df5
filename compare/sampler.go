package compare

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"strconv"

	"github.com/axiomhq/hyperloglog"
	"github.com/zeebo/xxh3"
	"go.uber.org/zap"

	"github.com/deepakagrawalmsoe/DataComparator/metrics"
	"github.com/deepakagrawalmsoe/DataComparator/pkg/dataset"
)

// maxStrata bounds stratified sampling; keys beyond the bound are pooled
// into a single overflow stratum.
const maxStrata = 64

// Sampler draws a seeded, reproducible sample from each side and scores
// per-column distribution drift between the two samples.
type Sampler struct {
	Strategy       Strategy
	SampleSize     int64
	SampleRatio    float64
	StratifyColumn string
	DriftThreshold float64
	ChunkSize      int64
	Seed           uint64
	Logger         *zap.Logger
}

// DeriveSeed produces a stable sampling seed from the dataset name and the
// sampling parameters, so reruns with the same configuration select the same
// rows.
func DeriveSeed(name string, strategy Strategy, size int64, ratio float64) uint64 {
	key := fmt.Sprintf("%s|%s|%d|%g", name, strategy, size, ratio)
	return xxh3.HashString(key)
}

// Compare samples both sides and scores drift over the columns present on
// both.
func (s *Sampler) Compare(ctx context.Context, left, right dataset.Source) (*metrics.DriftReport, error) {
	leftSchema, err := left.Schema(ctx)
	if err != nil {
		return nil, fmt.Errorf("left schema: %w", err)
	}
	rightSchema, err := right.Schema(ctx)
	if err != nil {
		return nil, fmt.Errorf("right schema: %w", err)
	}

	report := &metrics.DriftReport{
		Strategy:   string(s.Strategy),
		Seed:       s.Seed,
		LeftStats:  map[string]metrics.ColumnStats{},
		RightStats: map[string]metrics.ColumnStats{},
	}

	leftStats, leftSampled, warnings, err := s.sampleSource(ctx, left, leftSchema)
	if err != nil {
		return nil, fmt.Errorf("sample %s: %w", left.Name(), err)
	}
	report.Warnings = append(report.Warnings, warnings...)
	rightStats, rightSampled, warnings, err := s.sampleSource(ctx, right, rightSchema)
	if err != nil {
		return nil, fmt.Errorf("sample %s: %w", right.Name(), err)
	}
	report.Warnings = append(report.Warnings, warnings...)

	report.LeftSampled = leftSampled
	report.RightSampled = rightSampled
	report.LeftStats = leftStats
	report.RightStats = rightStats

	for _, field := range leftSchema.Fields() {
		if rightSchema.FieldIndex(field.Name) < 0 {
			continue
		}
		ls, lok := leftStats[field.Name]
		rs, rok := rightStats[field.Name]
		if !lok || !rok {
			continue
		}
		score := s.scoreColumn(field.Name, ls, rs)
		report.Scores = append(report.Scores, score)
		if score.Drifted {
			report.DriftedColumns = append(report.DriftedColumns, field.Name)
		}
	}

	if s.Logger != nil {
		s.Logger.Info("Sampling comparison completed",
			zap.String("strategy", report.Strategy),
			zap.Int64("leftSampled", leftSampled),
			zap.Int64("rightSampled", rightSampled),
			zap.Int("driftedColumns", len(report.DriftedColumns)))
	}
	return report, nil
}

// targetSize resolves the requested sample size against the dataset size.
func (s *Sampler) targetSize(total int64) int64 {
	target := s.SampleSize
	if s.SampleRatio > 0 {
		target = int64(math.Ceil(s.SampleRatio * float64(total)))
	}
	if target > total {
		target = total
	}
	if target < 0 {
		target = 0
	}
	return target
}

func (s *Sampler) sampleSource(ctx context.Context, src dataset.Source, schema *dataset.Schema) (map[string]metrics.ColumnStats, int64, []string, error) {
	total, err := src.RowCount(ctx)
	if err != nil {
		return nil, 0, nil, fmt.Errorf("row count: %w", err)
	}
	target := s.targetSize(total)

	accs := newAccumulators(schema)
	if total == 0 || target == 0 {
		return finalize(schema, accs), 0, nil, nil
	}

	strategy := s.Strategy
	var warnings []string
	stratifyIdx := -1
	if strategy == StrategyStratified {
		if s.StratifyColumn == "" {
			warnings = append(warnings, fmt.Sprintf("%s: no stratify column configured, falling back to random sampling", src.Name()))
			strategy = StrategyRandom
		} else if stratifyIdx = schema.FieldIndex(s.StratifyColumn); stratifyIdx < 0 {
			warnings = append(warnings, fmt.Sprintf("%s: stratify column %q not found, falling back to random sampling", src.Name(), s.StratifyColumn))
			strategy = StrategyRandom
		}
	}

	// Source-specific stream so both sides draw independently but
	// reproducibly from the same configured seed.
	rng := rand.New(rand.NewPCG(s.Seed, xxh3.HashString(src.Name())))

	var sampled int64
	switch strategy {
	case StrategySystematic:
		sampled, err = s.sampleSystematic(ctx, src, accs, total, target, rng)
	case StrategyStratified:
		var overflow bool
		sampled, overflow, err = s.sampleStratified(ctx, src, accs, stratifyIdx, total, target, rng)
		if overflow {
			warnings = append(warnings, fmt.Sprintf("%s: more than %d strata in %q, pooling the overflow", src.Name(), maxStrata, s.StratifyColumn))
		}
	default:
		sampled, err = s.sampleRandom(ctx, src, accs, total, target, rng)
	}
	if err != nil {
		return nil, 0, nil, err
	}
	return finalize(schema, accs), sampled, warnings, nil
}

// sampleRandom uses selection sampling: every row is selected with
// probability needed/remaining, yielding exactly target rows in one pass.
func (s *Sampler) sampleRandom(ctx context.Context, src dataset.Source, accs []*statAccumulator, total, target int64, rng *rand.Rand) (int64, error) {
	remaining, needed := total, target
	err := dataset.ScanRows(ctx, src, s.ChunkSize, func(_ dataset.Chunk, row dataset.Row) error {
		if needed > 0 && rng.Int64N(remaining) < needed {
			accumulate(accs, row)
			needed--
		}
		remaining--
		return nil
	})
	if err != nil {
		return 0, err
	}
	return target - needed, nil
}

// sampleSystematic selects every k-th row from a seeded starting offset.
func (s *Sampler) sampleSystematic(ctx context.Context, src dataset.Source, accs []*statAccumulator, total, target int64, rng *rand.Rand) (int64, error) {
	interval := total / target
	if interval < 1 {
		interval = 1
	}
	offset := rng.Int64N(interval)
	var pos, sampled int64
	err := dataset.ScanRows(ctx, src, s.ChunkSize, func(_ dataset.Chunk, row dataset.Row) error {
		if sampled < target && pos >= offset && (pos-offset)%interval == 0 {
			accumulate(accs, row)
			sampled++
		}
		pos++
		return nil
	})
	if err != nil {
		return 0, err
	}
	return sampled, nil
}

type stratum struct {
	key       string
	seen      int64
	reservoir []dataset.Row
}

// sampleStratified keeps a per-stratum reservoir during the pass, then
// allocates the target proportionally to stratum sizes.
func (s *Sampler) sampleStratified(ctx context.Context, src dataset.Source, accs []*statAccumulator, keyIdx int, total, target int64, rng *rand.Rand) (int64, bool, error) {
	capPerStratum := target
	if capPerStratum > 4096 {
		capPerStratum = 4096
	}
	strata := map[string]*stratum{}
	overflow := false

	err := dataset.ScanRows(ctx, src, s.ChunkSize, func(_ dataset.Chunk, row dataset.Row) error {
		key := dataset.FormatValue(row[keyIdx])
		st, ok := strata[key]
		if !ok {
			if len(strata) >= maxStrata {
				overflow = true
				key = "__OTHER__"
				if st, ok = strata[key]; !ok {
					st = &stratum{key: key}
					strata[key] = st
				}
			} else {
				st = &stratum{key: key}
				strata[key] = st
			}
		}
		st.seen++
		if int64(len(st.reservoir)) < capPerStratum {
			st.reservoir = append(st.reservoir, append(dataset.Row(nil), row...))
		} else if j := rng.Int64N(st.seen); j < capPerStratum {
			st.reservoir[j] = append(dataset.Row(nil), row...)
		}
		return nil
	})
	if err != nil {
		return 0, false, err
	}

	// Deterministic allocation order.
	keys := make([]string, 0, len(strata))
	for k := range strata {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sampled int64
	for _, k := range keys {
		st := strata[k]
		take := target * st.seen / total
		if take < 1 {
			take = 1
		}
		if take > int64(len(st.reservoir)) {
			take = int64(len(st.reservoir))
		}
		for _, row := range st.reservoir[:take] {
			accumulate(accs, row)
		}
		sampled += take
	}
	return sampled, overflow, nil
}

// -----------------------------
// Column Statistics
// -----------------------------

type statAccumulator struct {
	field dataset.Field

	count int64
	nulls int64

	numCount           int64
	min, max, mean, m2 float64
	sketch             *hyperloglog.Sketch
	buf                []byte
}

func newAccumulators(schema *dataset.Schema) []*statAccumulator {
	accs := make([]*statAccumulator, schema.Len())
	for i, f := range schema.Fields() {
		accs[i] = &statAccumulator{field: f, sketch: hyperloglog.New14()}
	}
	return accs
}

func accumulate(accs []*statAccumulator, row dataset.Row) {
	for i, acc := range accs {
		acc.add(row[i])
	}
}

func (a *statAccumulator) add(v any) {
	a.count++
	if v == nil {
		a.nulls++
		return
	}
	a.buf = a.buf[:0]
	a.buf = append(a.buf, dataset.FormatValue(v)...)
	a.sketch.Insert(a.buf)

	x, ok := numericValue(v)
	if !ok {
		return
	}
	a.numCount++
	if a.numCount == 1 || x < a.min {
		a.min = x
	}
	if a.numCount == 1 || x > a.max {
		a.max = x
	}
	// Welford's online mean and variance.
	delta := x - a.mean
	a.mean += delta / float64(a.numCount)
	a.m2 += delta * (x - a.mean)
}

func (a *statAccumulator) stats() metrics.ColumnStats {
	st := metrics.ColumnStats{
		Count:            a.count,
		Nulls:            a.nulls,
		DistinctEstimate: a.sketch.Estimate(),
	}
	if a.numCount > 0 {
		min, max, mean := a.min, a.max, a.mean
		st.Min, st.Max, st.Mean = &min, &max, &mean
		variance := 0.0
		if a.numCount > 1 {
			variance = a.m2 / float64(a.numCount-1)
		}
		st.Variance = &variance
	}
	return st
}

func finalize(schema *dataset.Schema, accs []*statAccumulator) map[string]metrics.ColumnStats {
	out := make(map[string]metrics.ColumnStats, len(accs))
	for i, acc := range accs {
		out[schema.Field(i).Name] = acc.stats()
	}
	return out
}

func numericValue(v any) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case float64:
		if math.IsNaN(x) {
			return 0, false
		}
		return x, true
	case float32:
		if math.IsNaN(float64(x)) {
			return 0, false
		}
		return float64(x), true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	case string:
		if f, err := strconv.ParseFloat(x, 64); err == nil && !math.IsNaN(f) {
			return f, true
		}
	}
	return 0, false
}

// -----------------------------
// Drift Scoring
// -----------------------------

// scoreColumn computes the drift score as the worst of the normalized
// differences between the two samples' statistics.
func (s *Sampler) scoreColumn(column string, l, r metrics.ColumnStats) metrics.DriftScore {
	score := 0.0

	if l.Count > 0 && r.Count > 0 {
		nullDelta := math.Abs(float64(l.Nulls)/float64(l.Count) - float64(r.Nulls)/float64(r.Count))
		score = math.Max(score, nullDelta)
	}
	if l.Mean != nil && r.Mean != nil {
		score = math.Max(score, relDelta(*l.Mean, *r.Mean))
	}
	if l.Variance != nil && r.Variance != nil {
		score = math.Max(score, relDelta(math.Sqrt(*l.Variance), math.Sqrt(*r.Variance)))
	}
	if l.DistinctEstimate > 0 || r.DistinctEstimate > 0 {
		score = math.Max(score, relDelta(float64(l.DistinctEstimate), float64(r.DistinctEstimate)))
	}

	return metrics.DriftScore{
		Column:    column,
		Score:     score,
		Threshold: s.DriftThreshold,
		Drifted:   score > s.DriftThreshold,
	}
}

// relDelta normalizes a difference by the larger magnitude so the score is
// scale free.
func relDelta(a, b float64) float64 {
	denom := math.Max(math.Abs(a), math.Abs(b))
	if denom < 1e-12 {
		return 0
	}
	return math.Abs(a-b) / denom
}
