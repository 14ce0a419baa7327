package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks StoreTx,AuditPublisher

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"charity/internal/registry/service/mocks"
	"charity/internal/registry/store"
	"charity/internal/registry/store/memory"
	storemocks "charity/internal/registry/store/mocks"
	id "charity/pkg/domain"
	dErrors "charity/pkg/domain-errors"
	audit "charity/pkg/platform/audit"
	"charity/pkg/platform/sentinel"
)

// passthrough makes a MockStoreTx hand kv to the transaction body.
func passthrough(kv store.KV) func(context.Context, func(store.KV) error) error {
	return func(_ context.Context, fn func(store.KV) error) error {
		return fn(kv)
	}
}

func TestStoreFailuresAreClassified(t *testing.T) {
	cases := []struct {
		name     string
		storeErr error
		code     dErrors.Code
	}{
		{"unavailable", fmt.Errorf("obtain lock: %w", sentinel.ErrUnavailable), dErrors.CodeUnavailable},
		{"deadline", fmt.Errorf("tx: %w", context.DeadlineExceeded), dErrors.CodeTimeout},
		{"anything else", errors.New("connection reset"), dErrors.CodeInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			tx := mocks.NewMockStoreTx(ctrl)
			tx.EXPECT().RunInTx(gomock.Any(), gomock.Any()).Return(tc.storeErr)

			_, err := New(tx).ViewAllProjects(context.Background())
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, tc.code), "got %v", err)
			assert.ErrorIs(t, err, tc.storeErr)
		})
	}
}

func TestReadFailureStopsBeforeWrites(t *testing.T) {
	ctrl := gomock.NewController(t)
	tx := mocks.NewMockStoreTx(ctrl)
	kv := storemocks.NewMockKV(ctrl)
	readErr := errors.New("read timeout")

	tx.EXPECT().RunInTx(gomock.Any(), gomock.Any()).DoAndReturn(passthrough(kv))
	kv.EXPECT().Get(gomock.Any(), counterKey).Return(nil, false, readErr)
	kv.EXPECT().Set(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	_, err := New(tx).RegisterProject(context.Background(), "t", "d")
	require.ErrorIs(t, err, readErr)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
}

func TestRegisterWritesCounterRecordAndAggregate(t *testing.T) {
	ctrl := gomock.NewController(t)
	tx := mocks.NewMockStoreTx(ctrl)
	kv := storemocks.NewMockKV(ctrl)

	tx.EXPECT().RunInTx(gomock.Any(), gomock.Any()).DoAndReturn(passthrough(kv))
	gomock.InOrder(
		kv.EXPECT().Get(gomock.Any(), counterKey).Return([]byte("4"), true, nil),
		kv.EXPECT().Set(gomock.Any(), counterKey, []byte("5")).Return(nil),
		kv.EXPECT().Get(gomock.Any(), statusKey).Return(nil, false, nil),
		kv.EXPECT().Set(gomock.Any(), "registry:project:5", gomock.Any()).Return(nil),
		kv.EXPECT().Set(gomock.Any(), statusKey,
			[]byte(`{"registered":1,"verified":0,"total_donations":0,"total_projects":1}`)).Return(nil),
	)

	projectID, err := New(tx).RegisterProject(context.Background(), "t", "d")
	require.NoError(t, err)
	assert.Equal(t, id.ProjectID(5), projectID)
}

func TestAuditIsEmittedOnlyAfterCommit(t *testing.T) {
	t.Run("commit failure emits nothing", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		tx := mocks.NewMockStoreTx(ctrl)
		pub := mocks.NewMockAuditPublisher(ctrl)

		tx.EXPECT().RunInTx(gomock.Any(), gomock.Any()).
			DoAndReturn(func(ctx context.Context, fn func(store.KV) error) error {
				if err := fn(mapKV{}); err != nil {
					return err
				}
				return errors.New("commit failed")
			})
		pub.EXPECT().Emit(gomock.Any(), gomock.Any()).Times(0)

		_, err := New(tx, WithAuditPublisher(pub)).RegisterProject(context.Background(), "t", "d")
		require.Error(t, err)
	})

	t.Run("publisher failure does not fail the call", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		pub := mocks.NewMockAuditPublisher(ctrl)
		pub.EXPECT().
			Emit(gomock.Any(), gomock.AssignableToTypeOf(audit.Event{})).
			DoAndReturn(func(_ context.Context, e audit.Event) error {
				assert.Equal(t, string(audit.EventProjectRegistered), e.Action)
				assert.Equal(t, id.ProjectID(1), e.ProjectID)
				return errors.New("sink down")
			})

		projectID, err := New(memory.New(), WithAuditPublisher(pub)).RegisterProject(context.Background(), "t", "d")
		require.NoError(t, err)
		assert.Equal(t, id.ProjectID(1), projectID)
	})
}

// mapKV is a bare KV with no transaction semantics.
type mapKV map[string][]byte

func (m mapKV) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := m[key]
	return v, ok, nil
}

func (m mapKV) Set(_ context.Context, key string, value []byte) error {
	m[key] = value
	return nil
}

func TestConcurrentRegistrationsGetDistinctIDs(t *testing.T) {
	svc := New(memory.New())
	const workers = 32

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids []int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			projectID, err := svc.RegisterProject(context.Background(), "t", "d")
			assert.NoError(t, err)
			mu.Lock()
			ids = append(ids, int(projectID))
			mu.Unlock()
		}()
	}
	wg.Wait()

	sort.Ints(ids)
	for i, got := range ids {
		assert.Equal(t, i+1, got)
	}
	st, err := svc.ViewAllProjects(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(workers), st.TotalProjects)
}

func TestReconcileRunsUnderItsOwnTimeout(t *testing.T) {
	deadlineSeen := func(tx *mocks.MockStoreTx, seen *time.Time) {
		tx.EXPECT().RunInTx(gomock.Any(), gomock.Any()).
			DoAndReturn(func(ctx context.Context, fn func(store.KV) error) error {
				dl, ok := ctx.Deadline()
				require.True(t, ok, "reconcile must run with a deadline")
				*seen = dl
				return fn(mapKV{})
			})
	}

	t.Run("no caller deadline uses reconcile timeout", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		tx := mocks.NewMockStoreTx(ctrl)
		var seen time.Time
		deadlineSeen(tx, &seen)

		start := time.Now()
		_, err := New(tx, WithReconcileTimeout(time.Hour)).Reconcile(context.Background())
		require.NoError(t, err)
		assert.WithinDuration(t, start.Add(time.Hour), seen, time.Minute)
	})

	t.Run("caller deadline wins", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		tx := mocks.NewMockStoreTx(ctrl)
		var seen time.Time
		deadlineSeen(tx, &seen)

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		want, _ := ctx.Deadline()
		_, err := New(tx, WithReconcileTimeout(time.Hour)).Reconcile(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, seen)
	})

	t.Run("default exceeds the store's per-call timeout", func(t *testing.T) {
		assert.Greater(t, DefaultReconcileTimeout, store.DefaultTxTimeout)
	})
}
