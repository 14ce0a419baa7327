//go:build integration

package postgres_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"charity/internal/registry/store"
	"charity/internal/registry/store/postgres"
	"charity/internal/registry/store/storetest"
	"charity/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	_, err := postgres.New(ctx, s.postgres.DB)
	s.Require().NoError(err)
	s.Require().NoError(s.postgres.TruncateTables(ctx, "registry_kv"))
}

func (s *PostgresStoreSuite) newStore(t *testing.T) store.Backend {
	ctx := context.Background()
	st, err := postgres.New(ctx, s.postgres.DB)
	if err != nil {
		t.Fatalf("postgres store: %v", err)
	}
	if err := s.postgres.TruncateTables(ctx, "registry_kv"); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return st
}

func (s *PostgresStoreSuite) TestContract() {
	storetest.Run(s.T(), s.newStore)
}

func (s *PostgresStoreSuite) TestNamespacesAreIsolated() {
	ctx := context.Background()
	a, err := postgres.New(ctx, s.postgres.DB, postgres.WithNamespace("a"))
	s.Require().NoError(err)
	b, err := postgres.New(ctx, s.postgres.DB, postgres.WithNamespace("b"))
	s.Require().NoError(err)

	s.Require().NoError(a.RunInTx(ctx, func(kv store.KV) error {
		return kv.Set(ctx, "registry:counter", []byte("1"))
	}))
	s.Require().NoError(b.RunInTx(ctx, func(kv store.KV) error {
		_, found, err := kv.Get(ctx, "registry:counter")
		s.Require().NoError(err)
		s.False(found)
		return nil
	}))
}
