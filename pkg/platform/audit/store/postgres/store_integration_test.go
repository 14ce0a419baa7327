//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	audit "charity/pkg/platform/audit"
	"charity/pkg/platform/audit/store/postgres"
	"charity/pkg/testutil/containers"
)

type AuditStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *postgres.Store
}

func TestAuditStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(AuditStoreSuite))
}

func (s *AuditStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	st, err := postgres.New(context.Background(), s.postgres.DB)
	s.Require().NoError(err)
	s.store = st
}

func (s *AuditStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "audit_events"))
}

func (s *AuditStoreSuite) TestAppendAndList() {
	ctx := context.Background()
	at := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	event := audit.Event{
		ID:        uuid.NewString(),
		Category:  audit.CategoryCompliance,
		Timestamp: at,
		ProjectID: 9,
		Action:    string(audit.EventDonationReceived),
		Amount:    18446744073709551615,
		RequestID: "req-1",
	}
	s.Require().NoError(s.store.Append(ctx, event))
	s.Require().NoError(s.store.Append(ctx, event), "duplicate ids are ignored")

	events, err := s.store.ListByProject(ctx, 9)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(event.Amount, events[0].Amount)
	s.Equal(event.Action, events[0].Action)
	s.True(at.Equal(events[0].Timestamp))

	other, err := s.store.ListByProject(ctx, 10)
	s.Require().NoError(err)
	s.Empty(other)
}
