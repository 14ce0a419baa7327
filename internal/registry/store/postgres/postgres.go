package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq" // postgres driver

	"charity/internal/registry/store"
)

const schema = `CREATE TABLE IF NOT EXISTS registry_kv (
	namespace TEXT NOT NULL,
	key TEXT NOT NULL,
	value JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (namespace, key)
)`

// Store persists a registry namespace in PostgreSQL. Each transaction takes a
// transaction-scoped advisory lock on the namespace, so concurrent calls
// against the same registry run one after another.
type Store struct {
	db        *sql.DB
	namespace string
	timeout   time.Duration
	ownsDB    bool
}

type Option func(*Store)

func WithNamespace(ns string) Option {
	return func(s *Store) {
		if ns != "" {
			s.namespace = ns
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// Open connects with dsn and makes sure the registry_kv table exists.
func Open(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	s, err := New(ctx, db, opts...)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	s.ownsDB = true
	return s, nil
}

// New wraps an existing pool. Close on the returned Store leaves db open.
func New(ctx context.Context, db *sql.DB, opts ...Option) (*Store, error) {
	s := &Store{db: db, namespace: store.DefaultNamespace}
	for _, opt := range opts {
		opt(s)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("create registry_kv table: %w", err)
	}
	return s, nil
}

func (s *Store) RunInTx(ctx context.Context, fn func(kv store.KV) error) (retErr error) {
	ctx, cancel := store.WithTxTimeout(ctx, s.timeout)
	defer cancel()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("postgres tx: %w", err)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin postgres tx: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, s.namespace); err != nil {
		return fmt.Errorf("lock namespace %s: %w", s.namespace, err)
	}
	if err := fn(&txView{tx: tx, namespace: s.namespace}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit postgres tx: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	if !s.ownsDB {
		return nil
	}
	return s.db.Close()
}

type txView struct {
	tx        *sql.Tx
	namespace string
}

func (v *txView) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value string
	err := v.tx.QueryRowContext(ctx,
		`SELECT value::text FROM registry_kv WHERE namespace = $1 AND key = $2`,
		v.namespace, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("select %s: %w", key, err)
	}
	return []byte(value), true, nil
}

func (v *txView) Set(ctx context.Context, key string, value []byte) error {
	query := `
		INSERT INTO registry_kv (namespace, key, value, updated_at)
		VALUES ($1, $2, $3::jsonb, now())
		ON CONFLICT (namespace, key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = EXCLUDED.updated_at
	`
	if _, err := v.tx.ExecContext(ctx, query, v.namespace, key, string(value)); err != nil {
		return fmt.Errorf("upsert %s: %w", key, err)
	}
	return nil
}
