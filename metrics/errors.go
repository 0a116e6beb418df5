package metrics

import (
	"errors"
	"fmt"
)

// Error taxonomy for a comparison run. Only configuration and connection
// errors abort before a report is produced; everything else is captured into
// the report so a partial, explainable result is always available.

// ConfigError reports invalid or missing settings, detected before any phase
// runs.
type ConfigError struct {
	Field string
	Msg   string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("configuration error: %s", e.Msg)
	}
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Msg)
}

// ConnectionError reports that a source adapter cannot be reached.
type ConnectionError struct {
	Source string
	Err    error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("source %s unreachable: %v", e.Source, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// SchemaError reports a structural incompatibility found by the metadata
// phase.
type SchemaError struct {
	Dataset string
	Msg     string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema incompatibility in %s: %s", e.Dataset, e.Msg)
}

// ChunkError is isolated to one chunk of the full comparison. A timed-out
// chunk task is recorded as a ChunkError with Timeout set.
type ChunkError struct {
	Index   int
	Timeout bool
	Err     error
}

func (e *ChunkError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("chunk %d timed out: %v", e.Index, e.Err)
	}
	return fmt.Sprintf("chunk %d failed: %v", e.Index, e.Err)
}

func (e *ChunkError) Unwrap() error { return e.Err }

// IsFatal reports whether err should abort the run before any phase output.
func IsFatal(err error) bool {
	var cfg *ConfigError
	var conn *ConnectionError
	return errors.As(err, &cfg) || errors.As(err, &conn)
}
