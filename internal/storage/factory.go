package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/Veraticus/treasury/internal/model"
	"github.com/Veraticus/treasury/internal/service"
	"github.com/spf13/afero"
)

// Backend names accepted by Open.
const (
	BackendFile     = "file"
	BackendSQLite   = DialectSQLite
	BackendPostgres = DialectPostgres
)

// Options selects and configures the backend opened by Open.
type Options struct {
	// Fs is the filesystem used by the file backend; nil means the OS filesystem.
	Fs           afero.Fs
	Backend      string
	Path         string
	DSN          string
	MaxOpenConns int
}

// Open builds the backend named in opts. This is the only place the backend
// choice is branched on; everything downstream sees a service.Backend.
// Relational backends are migrated before they are returned.
func Open(ctx context.Context, opts Options, currencies []model.Currency) (service.Backend, error) {
	backend := strings.ToLower(strings.TrimSpace(opts.Backend))
	if backend == "" {
		backend = BackendFile
	}

	switch backend {
	case BackendFile:
		return NewFileStorage(opts.Fs, opts.Path)
	case BackendSQLite, BackendPostgres:
		store, err := NewSQLStorage(ctx, backend, opts.DSN, currencies, SQLOptions{MaxOpenConns: opts.MaxOpenConns})
		if err != nil {
			return nil, err
		}
		if err := store.Migrate(ctx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to migrate %s backend: %w", backend, err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, opts.Backend)
	}
}
