// Package kv provides the key/value backends the task store persists to.
package kv

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Backend names accepted by Open.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendMySQL    = "mysql"
	BackendPostgres = "postgres"
)

// DefaultTable is the SQL table used when Options.Table is empty.
const DefaultTable = "todos_kv"

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("kv: store is closed")

// Store is a string key/value store. Get reports ok=false for keys that were
// never written.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Close() error
	String() string
}

// Options selects and configures a backend.
type Options struct {
	Backend string
	// Path is the storage file for the file backend.
	Path string
	// DSN is the data source name for SQL backends.
	DSN string
	// Table overrides DefaultTable for SQL backends.
	Table string
}

// Open returns the backend named by opts.Backend.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch NormalizeBackend(opts.Backend) {
	case BackendMemory:
		return NewMemory(), nil
	case BackendFile:
		if opts.Path == "" {
			return nil, fmt.Errorf("file backend: path is empty")
		}
		return OpenFile(opts.Path)
	case BackendMySQL, BackendPostgres:
		if opts.DSN == "" {
			return nil, fmt.Errorf("%s backend: dsn is empty", opts.Backend)
		}
		return OpenSQL(ctx, NormalizeBackend(opts.Backend), opts.DSN, opts.Table)
	default:
		return nil, fmt.Errorf("unknown backend %q (expected %s)", opts.Backend, strings.Join(Backends(), "|"))
	}
}

// Backends lists the backend names accepted by Open.
func Backends() []string {
	return []string{BackendFile, BackendMemory, BackendMySQL, BackendPostgres}
}

// NormalizeBackend lowercases a backend name and resolves aliases.
func NormalizeBackend(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	switch n {
	case "", "json":
		return BackendFile
	case "mem":
		return BackendMemory
	case "pg", "postgresql":
		return BackendPostgres
	case "mariadb":
		return BackendMySQL
	default:
		return n
	}
}

// IsValidBackend reports whether name resolves to a known backend.
func IsValidBackend(name string) bool {
	switch NormalizeBackend(name) {
	case BackendMemory, BackendFile, BackendMySQL, BackendPostgres:
		return true
	}
	return false
}
