// Package postgres stores blobs in a single PostgreSQL table.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"github.com/raakeshmj/coreenginedb/internal/blob"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type TableStore struct {
	db *sql.DB
}

// New opens databaseURL, configures the pool and applies pending migrations.
func New(databaseURL string) (*TableStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &TableStore{db: db}, nil
}

// NewWithDB wraps an already migrated database handle.
func NewWithDB(db *sql.DB) *TableStore {
	return &TableStore{db: db}
}

func runMigrations(db *sql.DB) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}
	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration db driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

func (s *TableStore) Close() error {
	return s.db.Close()
}

func (s *TableStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM blobs WHERE key = $1`, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("select blob %s: %w", key, err)
	}
	return data, true, nil
}

func (s *TableStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if err := blob.ValidateKey(key); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO blobs (key, data, content_type, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (key) DO UPDATE
		SET data = EXCLUDED.data, content_type = EXCLUDED.content_type, updated_at = now()`,
		key, data, contentType)
	if err != nil {
		return fmt.Errorf("upsert blob %s: %w", key, err)
	}
	return nil
}

// List returns keys in lexical order.
func (s *TableStore) List(ctx context.Context, prefix string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 10000
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT key FROM blobs WHERE key LIKE $1 ESCAPE '\' ORDER BY key LIMIT $2`,
		escapeLike(prefix)+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("list blobs %s: %w", prefix, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan blob key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (s *TableStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

var _ blob.Store = (*TableStore)(nil)
