// internal/storage/storage.go
package storage

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"message-board/internal/model"
)

//go:embed migrations/*.sql
var migrations embed.FS

// ErrUnsupportedDSN is returned for connection strings with an unknown scheme.
var ErrUnsupportedDSN = errors.New("unsupported database url")

type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// seedLockKey identifies the advisory lock taken while seeding on PostgreSQL.
const seedLockKey int64 = 0x6d657373616765

type Storage struct {
	DB      *sqlx.DB
	dialect Dialect
}

// ParseDSN maps a database URL to a driver dialect and the DSN that driver
// expects. postgres:// and postgresql:// go to lib/pq; sqlite://<path> and
// file: URLs go to the pure-Go SQLite driver.
func ParseDSN(url string) (Dialect, string, error) {
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return Postgres, url, nil
	case strings.HasPrefix(url, "sqlite://"):
		path := strings.TrimPrefix(url, "sqlite://")
		if path == "" {
			return "", "", fmt.Errorf("%w: sqlite url has no path", ErrUnsupportedDSN)
		}
		return SQLite, path, nil
	case strings.HasPrefix(url, "file:"):
		return SQLite, url, nil
	default:
		return "", "", fmt.Errorf("%w: %q", ErrUnsupportedDSN, redact(url))
	}
}

// NewStorage opens the database and verifies connectivity before returning.
func NewStorage(ctx context.Context, url string) (*Storage, error) {
	dialect, dsn, err := ParseDSN(url)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	if dialect == SQLite {
		// one writer at a time; avoids SQLITE_BUSY between pooled connections
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to db: %w", err)
	}
	return &Storage{DB: db, dialect: dialect}, nil
}

func (s *Storage) Dialect() Dialect {
	return s.dialect
}

// Migrate creates the messages table if it does not exist.
func (s *Storage) Migrate(ctx context.Context) error {
	script, err := migrations.ReadFile("migrations/" + string(s.dialect) + ".sql")
	if err != nil {
		return fmt.Errorf("failed to read migration: %w", err)
	}
	for _, stmt := range strings.Split(string(script), ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate (%s): %w", s.dialect, err)
		}
	}
	return nil
}

// ListMessages returns every message in ascending id order.
func (s *Storage) ListMessages(ctx context.Context) ([]model.Message, error) {
	messages := []model.Message{}
	if err := s.DB.SelectContext(ctx, &messages, `SELECT id, content FROM messages ORDER BY id ASC`); err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	return messages, nil
}

// InsertMessage stores content and returns the row with its assigned id.
func (s *Storage) InsertMessage(ctx context.Context, content string) (model.Message, error) {
	var m model.Message
	query := s.DB.Rebind(`INSERT INTO messages (content) VALUES (?) RETURNING id, content`)
	if err := s.DB.GetContext(ctx, &m, query, content); err != nil {
		return model.Message{}, fmt.Errorf("insert failed: %w", err)
	}
	return m, nil
}

func (s *Storage) CountMessages(ctx context.Context) (int, error) {
	var n int
	if err := s.DB.GetContext(ctx, &n, `SELECT COUNT(*) FROM messages`); err != nil {
		return 0, fmt.Errorf("count failed: %w", err)
	}
	return n, nil
}

// SeedIfEmpty inserts contents, in order, only when the table has no rows.
// The check and the inserts share one transaction; on PostgreSQL an advisory
// lock serializes concurrent seeders so only the first one inserts.
func (s *Storage) SeedIfEmpty(ctx context.Context, contents ...string) (int, error) {
	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("seed: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if s.dialect == Postgres {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, seedLockKey); err != nil {
			return 0, fmt.Errorf("seed: lock: %w", err)
		}
	}

	var n int
	if err := tx.GetContext(ctx, &n, `SELECT COUNT(*) FROM messages`); err != nil {
		return 0, fmt.Errorf("seed: count: %w", err)
	}
	if n > 0 {
		return 0, nil
	}

	insert := tx.Rebind(`INSERT INTO messages (content) VALUES (?)`)
	for _, c := range contents {
		if _, err := tx.ExecContext(ctx, insert, c); err != nil {
			return 0, fmt.Errorf("seed: insert: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("seed: commit: %w", err)
	}
	return len(contents), nil
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.DB.PingContext(ctx)
}

func (s *Storage) Close() error {
	return s.DB.Close()
}

// redact hides credentials in a URL before it is echoed in an error.
func redact(url string) string {
	at := strings.LastIndex(url, "@")
	scheme := strings.Index(url, "://")
	if at < 0 || scheme < 0 || at < scheme {
		return url
	}
	return url[:scheme+3] + "***" + url[at:]
}
