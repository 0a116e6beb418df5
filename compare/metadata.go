package compare

import (
	"sort"
	"strings"

	"github.com/deepakagrawalmsoe/DataComparator/metrics"
	"github.com/deepakagrawalmsoe/DataComparator/pkg/dataset"
)

// MetadataInput is the cheap, pre-fetched metadata for one side of the
// comparison.
type MetadataInput struct {
	Schema     *dataset.Schema
	RowCount   int64
	NullCounts map[string]int64 // optional
}

// MetadataComparer produces a structural diff from two schemas and row
// counts. It is a pure function over supplied metadata and touches no source.
type MetadataComparer struct {
	// CaseInsensitive matches column names ignoring case.
	CaseInsensitive bool
}

// Compare diffs the two sides. Columns are matched by name, not position. A
// missing column or type mismatch is critical; nullability, ordering and
// count differences are warnings.
func (mc *MetadataComparer) Compare(left, right MetadataInput) *metrics.SchemaDiff {
	diff := &metrics.SchemaDiff{
		LeftRowCount:  left.RowCount,
		RightRowCount: right.RowCount,
		RowCountDelta: right.RowCount - left.RowCount,
	}

	rightIndex := make(map[string]int, right.Schema.Len())
	for i, f := range right.Schema.Fields() {
		rightIndex[mc.fold(f.Name)] = i
	}
	leftIndex := make(map[string]int, left.Schema.Len())
	for i, f := range left.Schema.Fields() {
		leftIndex[mc.fold(f.Name)] = i
	}

	for i, lf := range left.Schema.Fields() {
		ri, ok := rightIndex[mc.fold(lf.Name)]
		if !ok {
			diff.ColumnDiffs = append(diff.ColumnDiffs, metrics.ColumnDiff{
				Column:   lf.Name,
				Kind:     metrics.ColumnRemoved,
				Left:     string(lf.Type),
				Severity: metrics.SeverityCritical,
			})
			continue
		}
		rf := right.Schema.Field(ri)
		diff.CommonColumns = append(diff.CommonColumns, lf.Name)
		if lf.Type != rf.Type {
			diff.ColumnDiffs = append(diff.ColumnDiffs, metrics.ColumnDiff{
				Column:   lf.Name,
				Kind:     metrics.TypeMismatch,
				Left:     string(lf.Type),
				Right:    string(rf.Type),
				Severity: mc.typeSeverity(lf.Type, rf.Type),
			})
		}
		if lf.Nullable != rf.Nullable {
			diff.ColumnDiffs = append(diff.ColumnDiffs, metrics.ColumnDiff{
				Column:   lf.Name,
				Kind:     metrics.NullabilityChange,
				Left:     nullability(lf.Nullable),
				Right:    nullability(rf.Nullable),
				Severity: metrics.SeverityWarning,
			})
		}
		if i != ri {
			diff.ColumnDiffs = append(diff.ColumnDiffs, metrics.ColumnDiff{
				Column:   lf.Name,
				Kind:     metrics.ColumnReordered,
				Severity: metrics.SeverityWarning,
			})
		}
	}

	for _, rf := range right.Schema.Fields() {
		if _, ok := leftIndex[mc.fold(rf.Name)]; !ok {
			diff.ColumnDiffs = append(diff.ColumnDiffs, metrics.ColumnDiff{
				Column:   rf.Name,
				Kind:     metrics.ColumnAdded,
				Right:    string(rf.Type),
				Severity: metrics.SeverityCritical,
			})
		}
	}

	if left.NullCounts != nil && right.NullCounts != nil {
		cols := make([]string, 0, len(left.NullCounts))
		for c := range left.NullCounts {
			cols = append(cols, c)
		}
		sort.Strings(cols)
		for _, c := range cols {
			rn, ok := right.NullCounts[c]
			if !ok {
				continue
			}
			if ln := left.NullCounts[c]; ln != rn {
				diff.NullCountDiffs = append(diff.NullCountDiffs, metrics.NullCountDiff{
					Column:     c,
					LeftNulls:  ln,
					RightNulls: rn,
				})
			}
		}
	}

	return diff
}

// typeSeverity downgrades widening numeric changes to warnings; any other
// type change is critical.
func (mc *MetadataComparer) typeSeverity(left, right dataset.LogicalType) metrics.Severity {
	if left == dataset.TypeInt && right == dataset.TypeFloat {
		return metrics.SeverityWarning
	}
	return metrics.SeverityCritical
}

func (mc *MetadataComparer) fold(name string) string {
	if mc.CaseInsensitive {
		return strings.ToLower(name)
	}
	return name
}

func nullability(nullable bool) string {
	if nullable {
		return "nullable"
	}
	return "not null"
}
