package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	id "charity/pkg/domain"
	audit "charity/pkg/platform/audit"

	"github.com/google/uuid"
)

const schema = `CREATE TABLE IF NOT EXISTS audit_events (
	id UUID PRIMARY KEY,
	category TEXT NOT NULL,
	occurred_at TIMESTAMPTZ NOT NULL,
	project_id NUMERIC(20, 0) NOT NULL,
	action TEXT NOT NULL,
	amount NUMERIC(20, 0) NOT NULL DEFAULT 0,
	reason TEXT NOT NULL DEFAULT '',
	request_id TEXT NOT NULL DEFAULT '',
	actor_id TEXT NOT NULL DEFAULT ''
)`

// Store appends audit events to the audit_events table.
type Store struct {
	db *sql.DB
}

// New creates the audit_events table if needed.
func New(ctx context.Context, db *sql.DB) (*Store, error) {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("create audit_events table: %w", err)
	}
	return &Store{db: db}, nil
}

// Append is idempotent on event ID.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	eventID, err := uuid.Parse(event.ID)
	if err != nil {
		eventID = uuid.New()
	}
	query := `
		INSERT INTO audit_events (
			id, category, occurred_at, project_id, action,
			amount, reason, request_id, actor_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING
	`
	_, err = s.db.ExecContext(ctx, query,
		eventID,
		string(event.Category),
		event.Timestamp,
		event.ProjectID.String(),
		event.Action,
		strconv.FormatUint(event.Amount, 10),
		event.Reason,
		event.RequestID,
		event.ActorID,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// ListByProject returns events for one project, oldest first.
func (s *Store) ListByProject(ctx context.Context, projectID id.ProjectID) ([]audit.Event, error) {
	query := `
		SELECT id, category, occurred_at, project_id::text, action,
			   amount::text, reason, request_id, actor_id
		FROM audit_events
		WHERE project_id = $1
		ORDER BY occurred_at ASC, id ASC
	`
	rows, err := s.db.QueryContext(ctx, query, projectID.String())
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var (
			e               audit.Event
			category        string
			project, amount string
		)
		if err := rows.Scan(&e.ID, &category, &e.Timestamp, &project, &e.Action,
			&amount, &e.Reason, &e.RequestID, &e.ActorID); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.Category = audit.EventCategory(category)
		pid, err := strconv.ParseUint(project, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse project id: %w", err)
		}
		e.ProjectID = id.ProjectID(pid)
		if e.Amount, err = strconv.ParseUint(amount, 10, 64); err != nil {
			return nil, fmt.Errorf("parse amount: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
