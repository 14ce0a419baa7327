package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq" // postgres driver for the audit table
	goredis "github.com/redis/go-redis/v9"

	"charity/internal/platform/config"
	platformredis "charity/internal/platform/redis"
	"charity/internal/registry/store"
	"charity/internal/registry/store/memory"
	"charity/internal/registry/store/postgres"
	storeredis "charity/internal/registry/store/redis"
	"charity/internal/registry/store/sqlite"
	audit "charity/pkg/platform/audit"
	"charity/pkg/platform/audit/store/fallback"
	auditkafka "charity/pkg/platform/audit/store/kafka"
	auditmemory "charity/pkg/platform/audit/store/memory"
	auditpostgres "charity/pkg/platform/audit/store/postgres"
)

// openStore selects the registry backend named by REGISTRY_STORE. The
// returned close func releases the backend and any client it was built on.
func openStore(ctx context.Context, cfg config.Config, log *slog.Logger) (store.Backend, func() error, error) {
	b, err := openBackend(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}
	if rs, ok := b.(*redisBackend); ok {
		return rs.Store, rs.close, nil
	}
	return b, b.Close, nil
}

func openBackend(ctx context.Context, cfg config.Config, log *slog.Logger) (store.Backend, error) {
	sc := cfg.Store
	switch sc.Driver {
	case config.DriverMemory:
		log.Warn("using in-memory registry store; data is lost on restart")
		return memory.New(memory.WithTimeout(sc.TxTimeout)), nil
	case config.DriverSQLite:
		s, err := sqlite.Open(ctx, sc.SQLitePath,
			sqlite.WithNamespace(sc.Namespace),
			sqlite.WithTimeout(sc.TxTimeout),
		)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return s, nil
	case config.DriverPostgres:
		s, err := postgres.Open(ctx, sc.PostgresDSN,
			postgres.WithNamespace(sc.Namespace),
			postgres.WithTimeout(sc.TxTimeout),
		)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		return s, nil
	case config.DriverRedis:
		client, err := platformredis.New(ctx, cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		return newRedisBackend(client, sc), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", sc.Driver)
	}
}

// openAuditStore selects the audit sink named by AUDIT_SINK. The returned
// close func is always non-nil.
func openAuditStore(ctx context.Context, cfg config.Config, log *slog.Logger) (audit.Store, func(), error) {
	noop := func() {}
	switch cfg.Audit.Sink {
	case config.AuditSinkNone:
		return discardStore{}, noop, nil
	case config.AuditSinkMemory:
		return auditmemory.NewInMemoryStore(), noop, nil
	case config.AuditSinkKafka:
		s, err := auditkafka.New(ctx, cfg.Audit.KafkaBrokers, cfg.Audit.KafkaTopic)
		if err != nil {
			return nil, noop, fmt.Errorf("open kafka audit sink: %w", err)
		}
		// Events go to the process log while the brokers are unreachable.
		return fallback.New(s, logStore{log: log}, fallback.WithLogger(log)), s.Close, nil
	case config.AuditSinkPostgres:
		db, err := sql.Open("postgres", cfg.Store.PostgresDSN)
		if err != nil {
			return nil, noop, fmt.Errorf("open audit database: %w", err)
		}
		s, err := auditpostgres.New(ctx, db)
		if err != nil {
			_ = db.Close()
			return nil, noop, fmt.Errorf("open postgres audit sink: %w", err)
		}
		return s, func() {
			if err := db.Close(); err != nil {
				log.Error("failed to close audit database", "error", err)
			}
		}, nil
	default:
		return nil, noop, fmt.Errorf("unknown audit sink %q", cfg.Audit.Sink)
	}
}

// redisBackend pairs the redis store with the client main created for it;
// the store itself leaves the client to its owner.
type redisBackend struct {
	*storeredis.Store
	client *goredis.Client
}

func newRedisBackend(client *goredis.Client, sc config.StoreConfig) *redisBackend {
	return &redisBackend{
		Store: storeredis.New(client,
			storeredis.WithNamespace(sc.Namespace),
			storeredis.WithTimeout(sc.TxTimeout),
		),
		client: client,
	}
}

func (b *redisBackend) close() error {
	return errors.Join(b.Store.Close(), b.client.Close())
}

type discardStore struct{}

func (discardStore) Append(context.Context, audit.Event) error { return nil }

type logStore struct {
	log *slog.Logger
}

func (s logStore) Append(ctx context.Context, e audit.Event) error {
	s.log.InfoContext(ctx, "audit event",
		"event_id", e.ID,
		"action", e.Action,
		"project_id", e.ProjectID,
		"amount", e.Amount,
		"reason", e.Reason,
		"request_id", e.RequestID,
	)
	return nil
}
