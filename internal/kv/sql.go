package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"regexp"

	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
)

var tableNameRE = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,63}$`)

// Dialect holds the statements for one SQL flavour.
type Dialect struct {
	Name        string
	Driver      string
	CreateTable string
	Upsert      string
	Select      string
}

// DialectFor builds the statements for backend ("mysql" or "postgres")
// against table.
func DialectFor(backend, table string) (Dialect, error) {
	if table == "" {
		table = DefaultTable
	}
	if !tableNameRE.MatchString(table) {
		return Dialect{}, fmt.Errorf("invalid table name %q", table)
	}

	switch NormalizeBackend(backend) {
	case BackendMySQL:
		return Dialect{
			Name:        BackendMySQL,
			Driver:      "mysql",
			CreateTable: fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (k VARCHAR(191) NOT NULL PRIMARY KEY, v LONGTEXT NOT NULL)", table),
			Upsert:      fmt.Sprintf("INSERT INTO %s (k, v) VALUES (?, ?) ON DUPLICATE KEY UPDATE v = VALUES(v)", table),
			Select:      fmt.Sprintf("SELECT v FROM %s WHERE k = ?", table),
		}, nil
	case BackendPostgres:
		return Dialect{
			Name:        BackendPostgres,
			Driver:      "postgres",
			CreateTable: fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (k VARCHAR(191) PRIMARY KEY, v TEXT NOT NULL)", table),
			Upsert:      fmt.Sprintf("INSERT INTO %s (k, v) VALUES ($1, $2) ON CONFLICT (k) DO UPDATE SET v = EXCLUDED.v", table),
			Select:      fmt.Sprintf("SELECT v FROM %s WHERE k = $1", table),
		}, nil
	default:
		return Dialect{}, fmt.Errorf("no SQL dialect for backend %q", backend)
	}
}

// SQL stores keys in a two-column table.
type SQL struct {
	db      *sql.DB
	dialect Dialect
	target  string
}

// OpenSQL connects to dsn, checks the connection and creates the table if
// it does not exist.
func OpenSQL(ctx context.Context, backend, dsn, table string) (*SQL, error) {
	dialect, err := DialectFor(backend, table)
	if err != nil {
		return nil, err
	}

	target, err := RedactDSN(dialect.Name, dsn)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(dialect.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s, err := NewSQL(ctx, db, dialect)
	if err != nil {
		db.Close()
		return nil, err
	}
	s.target = target
	return s, nil
}

// NewSQL wraps an open database and ensures the table exists.
func NewSQL(ctx context.Context, db *sql.DB, dialect Dialect) (*SQL, error) {
	if _, err := db.ExecContext(ctx, dialect.CreateTable); err != nil {
		return nil, fmt.Errorf("failed to create table: %w", err)
	}
	return &SQL{db: db, dialect: dialect, target: dialect.Name}, nil
}

// Get implements Store.
func (s *SQL) Get(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := s.db.QueryRowContext(ctx, s.dialect.Select, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}
	return v, true, nil
}

// Set implements Store.
func (s *SQL) Set(ctx context.Context, key, value string) error {
	if _, err := s.db.ExecContext(ctx, s.dialect.Upsert, key, value); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// Close implements Store.
func (s *SQL) Close() error {
	return s.db.Close()
}

func (s *SQL) String() string {
	return s.target
}

// RedactDSN returns a printable description of dsn without credentials.
func RedactDSN(backend, dsn string) (string, error) {
	switch NormalizeBackend(backend) {
	case BackendMySQL:
		cfg, err := mysql.ParseDSN(dsn)
		if err != nil {
			return "", fmt.Errorf("invalid mysql dsn: %w", err)
		}
		return fmt.Sprintf("mysql://%s@%s/%s", cfg.User, cfg.Addr, cfg.DBName), nil
	case BackendPostgres:
		u, err := url.Parse(dsn)
		if err != nil || u.Scheme == "" {
			// key=value connection strings are not echoed back.
			return "postgres", nil
		}
		if u.User != nil {
			u.User = url.User(u.User.Username())
		}
		u.RawQuery = ""
		return u.String(), nil
	default:
		return "", fmt.Errorf("no SQL dialect for backend %q", backend)
	}
}
