// Package postgres implements the store.Store interface backed by PostgreSQL.
// Document data lives in a single JSONB column keyed by (collection, id).
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"github.com/alfredjeanlab/catalog/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresStore implements store.Store backed by a PostgreSQL database.
type PostgresStore struct {
	db *sql.DB
}

// Compile-time check that PostgresStore implements store.Store.
var _ store.Store = (*PostgresStore)(nil)

// New opens a connection to the PostgreSQL database at the given URL,
// configures the connection pool, and runs any pending migrations.
func New(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
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

	return &PostgresStore{db: db}, nil
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

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}

// Close closes the underlying database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) Find(ctx context.Context, collection string, q store.Query) ([]*store.Document, int, error) {
	return queryFind(ctx, s.db, collection, q)
}

func (s *PostgresStore) Count(ctx context.Context, collection string, where map[string]any) (int, error) {
	return queryCount(ctx, s.db, collection, where)
}

func (s *PostgresStore) Get(ctx context.Context, collection, id string) (*store.Document, error) {
	return queryGet(ctx, s.db, collection, id)
}

func (s *PostgresStore) Insert(ctx context.Context, doc *store.Document) error {
	return queryInsert(ctx, s.db, doc)
}

func (s *PostgresStore) Replace(ctx context.Context, doc *store.Document) error {
	return queryReplace(ctx, s.db, doc)
}

func (s *PostgresStore) Delete(ctx context.Context, collection, id string) error {
	return queryDelete(ctx, s.db, collection, id)
}

func (s *PostgresStore) Exists(ctx context.Context, collection, field string, value any, excludeID string) (bool, error) {
	return queryExists(ctx, s.db, collection, field, value, excludeID)
}

func (s *PostgresStore) GetGlobal(ctx context.Context, slug string) (*store.GlobalDoc, error) {
	return queryGetGlobal(ctx, s.db, slug)
}

func (s *PostgresStore) PutGlobal(ctx context.Context, g *store.GlobalDoc) error {
	return queryPutGlobal(ctx, s.db, g)
}
