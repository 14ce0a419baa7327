package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"charity/internal/registry/models"
	"charity/internal/registry/store"
	id "charity/pkg/domain"
	dErrors "charity/pkg/domain-errors"
	"charity/pkg/platform/sentinel"
)

const (
	counterKey       = "registry:counter"
	statusKey        = "registry:status"
	projectKeyPrefix = "registry:project:"
)

func projectKey(projectID id.ProjectID) string {
	return projectKeyPrefix + projectID.String()
}

// ledger gives typed access to the registry documents inside one transaction.
type ledger struct {
	kv store.KV
}

func (l *ledger) read(ctx context.Context, key string, dst any) (bool, error) {
	raw, found, err := l.kv.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", key, err)
	}
	if !found {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("decode %s: %w: %w", key, sentinel.ErrInvalidState, err)
	}
	return true, nil
}

func (l *ledger) write(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := l.kv.Set(ctx, key, raw); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

// counter returns the last assigned project id, 0 when nothing was registered.
func (l *ledger) counter(ctx context.Context) (uint64, error) {
	var n uint64
	if _, err := l.read(ctx, counterKey, &n); err != nil {
		return 0, err
	}
	return n, nil
}

// nextID advances the counter and returns the new id. The first id is 1.
func (l *ledger) nextID(ctx context.Context) (id.ProjectID, error) {
	n, err := l.counter(ctx)
	if err != nil {
		return 0, err
	}
	if n == math.MaxUint64 {
		return 0, dErrors.Wrap(models.ErrIDSpaceExhausted, dErrors.CodeInvariantViolation, "project id space exhausted")
	}
	n++
	if err := l.write(ctx, counterKey, n); err != nil {
		return 0, err
	}
	return id.ProjectID(n), nil
}

// status returns the aggregate, zero-valued when it was never written.
func (l *ledger) status(ctx context.Context) (models.CharityStatus, error) {
	var st models.CharityStatus
	if _, err := l.read(ctx, statusKey, &st); err != nil {
		return models.CharityStatus{}, err
	}
	return st, nil
}

func (l *ledger) putStatus(ctx context.Context, st models.CharityStatus) error {
	return l.write(ctx, statusKey, st)
}

func (l *ledger) project(ctx context.Context, projectID id.ProjectID) (*models.Charity, bool, error) {
	var c models.Charity
	found, err := l.read(ctx, projectKey(projectID), &c)
	if err != nil || !found {
		return nil, false, err
	}
	return &c, true, nil
}

// mustProject loads a project or fails with a not-found error.
func (l *ledger) mustProject(ctx context.Context, projectID id.ProjectID) (*models.Charity, error) {
	c, found, err := l.project(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, dErrors.Wrap(sentinel.ErrNotFound, dErrors.CodeNotFound, "project not found")
	}
	return c, nil
}

func (l *ledger) putProject(ctx context.Context, c *models.Charity) error {
	return l.write(ctx, projectKey(c.ProjectID), c)
}
