package adapters

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/apache/arrow-adbc/go/adbc"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/deepakagrawalmsoe/DataComparator/metrics"
	"github.com/deepakagrawalmsoe/DataComparator/pkg/dataset"
)

// Options configure one SQL-backed side of a comparison.
type Options struct {
	// Name identifies the source in logs and reports; defaults to the table
	// or driver name.
	Name string
	// Driver is an ADBC driver name ("duckdb", "sqlite", "postgresql") or a
	// shared-library path.
	Driver string
	// URI is the driver-specific connection string or database path.
	URI string
	// Table names the relation to compare. Mutually exclusive with Query.
	Table string
	// Query is a SELECT used as the relation instead of a table.
	Query string
	// OrderBy lists the columns that define the chunk ordering. Empty means
	// every column in schema order, which is always deterministic.
	OrderBy []string
}

// SQLSource is a dataset.Source backed by an ADBC database. Chunk windows
// are read with LIMIT/OFFSET over a fixed ORDER BY, so the same chunk always
// holds the same rows.
type SQLSource struct {
	name     string
	relation string
	orderBy  []string

	db adbc.Database

	mu     sync.Mutex
	schema *dataset.Schema
}

// Open connects to the source and verifies the relation is reachable.
func Open(ctx context.Context, opts Options) (*SQLSource, error) {
	if opts.Table != "" && opts.Query != "" {
		return nil, &metrics.ConfigError{Field: "table", Msg: "table and query are mutually exclusive"}
	}
	if opts.Table == "" && opts.Query == "" {
		return nil, &metrics.ConfigError{Field: "table", Msg: "either table or query is required"}
	}

	name := opts.Name
	if name == "" {
		name = opts.Table
	}
	if name == "" {
		name = opts.Driver
	}

	relation := opts.Table
	if opts.Query != "" {
		relation = "(" + opts.Query + ") AS q"
	}

	db, err := openDatabase(opts.Driver, opts.URI)
	if err != nil {
		return nil, &metrics.ConnectionError{Source: name, Err: err}
	}
	src := &SQLSource{
		name:     name,
		relation: relation,
		orderBy:  opts.OrderBy,
		db:       db,
	}

	// Fail fast on unreachable databases and missing relations.
	if _, err := src.Schema(ctx); err != nil {
		src.Close()
		return nil, &metrics.ConnectionError{Source: name, Err: err}
	}
	return src, nil
}

func (s *SQLSource) Name() string { return s.name }

// Schema probes the relation with an empty result set and maps the Arrow
// schema to the engine's column model. The result is cached.
func (s *SQLSource) Schema(ctx context.Context) (*dataset.Schema, error) {
	s.mu.Lock()
	if s.schema != nil {
		defer s.mu.Unlock()
		return s.schema, nil
	}
	s.mu.Unlock()

	rr, closer, err := s.query(ctx, fmt.Sprintf("SELECT * FROM %s LIMIT 0", s.relation))
	if err != nil {
		return nil, err
	}
	defer closer()

	schema, err := fromArrowSchema(rr.Schema())
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.schema = schema
	s.mu.Unlock()
	return schema, nil
}

// RowCount issues a COUNT(*) over the relation.
func (s *SQLSource) RowCount(ctx context.Context) (int64, error) {
	rr, closer, err := s.query(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", s.relation))
	if err != nil {
		return 0, err
	}
	defer closer()

	if !rr.Next() {
		return 0, fmt.Errorf("no rows returned for COUNT query")
	}
	rec := rr.Record()
	if rec.NumCols() < 1 || rec.NumRows() < 1 {
		return 0, fmt.Errorf("invalid row count result")
	}
	count, ok := rec.Column(0).(*array.Int64)
	if !ok {
		return 0, fmt.Errorf("unexpected COUNT result type %T", rec.Column(0))
	}
	return count.Value(0), nil
}

// NullCounts computes per-column null counts in a single aggregate query.
func (s *SQLSource) NullCounts(ctx context.Context) (map[string]int64, error) {
	schema, err := s.Schema(ctx)
	if err != nil {
		return nil, err
	}
	exprs := make([]string, schema.Len())
	for i, f := range schema.Fields() {
		exprs[i] = fmt.Sprintf("COUNT(*) - COUNT(%s)", quoteIdent(f.Name))
	}
	rr, closer, err := s.query(ctx, fmt.Sprintf("SELECT %s FROM %s", strings.Join(exprs, ", "), s.relation))
	if err != nil {
		return nil, err
	}
	defer closer()

	if !rr.Next() {
		return nil, fmt.Errorf("no rows returned for null count query")
	}
	rec := rr.Record()
	if int(rec.NumCols()) != schema.Len() || rec.NumRows() < 1 {
		return nil, fmt.Errorf("invalid null count result")
	}
	counts := make(map[string]int64, schema.Len())
	for i, f := range schema.Fields() {
		col, ok := rec.Column(i).(*array.Int64)
		if !ok {
			return nil, fmt.Errorf("unexpected null count type %T for column %s", rec.Column(i), f.Name)
		}
		counts[f.Name] = col.Value(0)
	}
	return counts, nil
}

// ReadChunk streams one chunk window. Each call opens its own connection so
// workers may read chunks concurrently.
func (s *SQLSource) ReadChunk(ctx context.Context, chunk dataset.Chunk) (dataset.RowIterator, error) {
	schema, err := s.Schema(ctx)
	if err != nil {
		return nil, err
	}
	order := s.orderBy
	if len(order) == 0 {
		order = schema.Names()
	}
	quoted := make([]string, len(order))
	for i, c := range order {
		quoted[i] = quoteIdent(c)
	}
	sql := fmt.Sprintf("SELECT * FROM %s ORDER BY %s LIMIT %d OFFSET %d",
		s.relation, strings.Join(quoted, ", "), chunk.Length, chunk.Offset)

	rr, closer, err := s.query(ctx, sql)
	if err != nil {
		return nil, err
	}
	return newRecordIterator(rr, closer), nil
}

// Close releases the database handle. In-flight iterators hold their own
// connections and stay valid.
func (s *SQLSource) Close() error {
	return s.db.Close()
}

// query opens a connection, runs sql and returns the record reader together
// with a closer releasing the reader, statement and connection.
func (s *SQLSource) query(ctx context.Context, sql string) (array.RecordReader, func(), error) {
	conn, err := s.db.Open(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open ADBC connection: %w", err)
	}
	stmt, err := conn.NewStatement()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("failed to create statement: %w", err)
	}
	if err := stmt.SetSqlQuery(sql); err != nil {
		stmt.Close()
		conn.Close()
		return nil, nil, fmt.Errorf("failed to set SQL query: %w", err)
	}
	rr, _, err := stmt.ExecuteQuery(ctx)
	if err != nil {
		stmt.Close()
		conn.Close()
		return nil, nil, err
	}
	closer := func() {
		rr.Release()
		stmt.Close()
		conn.Close()
	}
	return rr, closer, nil
}

// quoteIdent double-quotes an identifier, escaping embedded quotes.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
