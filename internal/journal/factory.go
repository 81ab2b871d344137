package journal

import (
	"github.com/rxtech-lab/argo-futures/internal/logger"
	"github.com/rxtech-lab/argo-futures/pkg/errors"
)

// Type selects a journal backend.
type Type string

const (
	TypeNone   Type = "none"
	TypeLog    Type = "log"
	TypeMemory Type = "memory"
	TypeDuckDB Type = "duckdb"
)

// Config configures the journal sink.
type Config struct {
	Type       Type   `yaml:"type" json:"type" validate:"omitempty,oneof=none log memory duckdb" jsonschema:"enum=none,enum=log,enum=memory,enum=duckdb,default=log"`
	Path       string `yaml:"path" json:"path" validate:"required_if=Type duckdb"`
	BufferSize int    `yaml:"buffer_size" json:"buffer_size" validate:"gte=0" jsonschema:"default=1024"`
}

// Journal is an opened sink together with its shutdown hook.
type Journal struct {
	Sink
	closers []func() error
}

// Close drains buffered events and closes the backend.
func (j *Journal) Close() error {
	var firstErr error

	for _, closeFn := range j.closers {
		if err := closeFn(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}

// Open builds the configured sink wrapped in an AsyncSink.
func Open(cfg Config, log *logger.Logger) (*Journal, error) {
	var (
		backend Sink
		closers []func() error
	)

	switch cfg.Type {
	case TypeNone:
		return &Journal{Sink: NopSink{}}, nil
	case TypeMemory:
		backend = NewMemorySink()
	case TypeDuckDB:
		duck, err := NewDuckDBSink(cfg.Path, log)
		if err != nil {
			return nil, err
		}

		backend = duck
		closers = append(closers, duck.Close)
	case TypeLog, "":
		backend = NewLogSink(log)
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidConfiguration, "unknown journal type %q", cfg.Type)
	}

	async := NewAsyncSink(backend, cfg.BufferSize, log)

	// drain the buffer before the backend closes
	closers = append([]func() error{async.Close}, closers...)

	return &Journal{Sink: async, closers: closers}, nil
}
