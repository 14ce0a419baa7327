package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"charity/internal/registry/store"
)

// Store keeps a registry namespace in a single SQLite table. The pool is pinned
// to one connection so transactions against the file are serialized.
type Store struct {
	db        *sql.DB
	namespace string
	timeout   time.Duration
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

// Open creates (or reuses) the database file at path. ":memory:" is accepted.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	if path == "" {
		path = "charity.db"
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db, namespace: store.DefaultNamespace}
	for _, opt := range opts {
		opt(s)
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS registry_kv (
		namespace TEXT NOT NULL,
		key TEXT NOT NULL,
		value BLOB NOT NULL,
		PRIMARY KEY (namespace, key)
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create registry_kv table: %w", err)
	}
	return s, nil
}

func (s *Store) RunInTx(ctx context.Context, fn func(kv store.KV) error) (retErr error) {
	ctx, cancel := store.WithTxTimeout(ctx, s.timeout)
	defer cancel()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("sqlite tx: %w", err)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin sqlite tx: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	if err := fn(&txView{tx: tx, namespace: s.namespace}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit sqlite tx: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

type txView struct {
	tx        *sql.Tx
	namespace string
}

func (v *txView) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := v.tx.QueryRowContext(ctx,
		`SELECT value FROM registry_kv WHERE namespace = ? AND key = ?`,
		v.namespace, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("select %s: %w", key, err)
	}
	return value, true, nil
}

func (v *txView) Set(ctx context.Context, key string, value []byte) error {
	_, err := v.tx.ExecContext(ctx, `INSERT INTO registry_kv(namespace, key, value) VALUES(?, ?, ?)
		ON CONFLICT(namespace, key) DO UPDATE SET value = excluded.value`,
		v.namespace, key, value,
	)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", key, err)
	}
	return nil
}
