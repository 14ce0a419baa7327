package models

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "charity/pkg/domain-errors"
)

func TestCharityTransitions(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("new charity starts unverified with no funds", func(t *testing.T) {
		c := NewCharity(7, "Water Well", "Clean water access", now)
		assert.False(t, c.Verified)
		assert.Zero(t, c.FundsReceived)
		assert.Equal(t, now, c.RegisteredTime)
		assert.False(t, c.IsMissing())
	})

	t.Run("verification happens once", func(t *testing.T) {
		c := NewCharity(1, "t", "d", now)
		require.NoError(t, c.CanVerify())
		c.ApplyVerification()

		err := c.CanVerify()
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrAlreadyVerified))
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})

	t.Run("donation requires verification", func(t *testing.T) {
		c := NewCharity(1, "t", "d", now)
		err := c.CanDonate(10)
		require.ErrorIs(t, err, ErrNotVerified)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})

	t.Run("zero donation is a validation error", func(t *testing.T) {
		c := NewCharity(1, "t", "d", now)
		c.ApplyVerification()
		err := c.CanDonate(0)
		require.ErrorIs(t, err, ErrZeroDonation)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("donations accumulate", func(t *testing.T) {
		c := NewCharity(1, "t", "d", now)
		c.ApplyVerification()
		for _, amount := range []uint64{100, 50} {
			require.NoError(t, c.CanDonate(amount))
			c.ApplyDonation(amount)
		}
		assert.Equal(t, uint64(150), c.FundsReceived)
	})

	t.Run("overflowing donation is rejected", func(t *testing.T) {
		c := NewCharity(1, "t", "d", now)
		c.ApplyVerification()
		c.FundsReceived = math.MaxUint64 - 1
		require.NoError(t, c.CanDonate(1))
		err := c.CanDonate(2)
		require.ErrorIs(t, err, ErrAmountOverflow)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})
}

func TestMissingCharity(t *testing.T) {
	c := MissingCharity()
	assert.True(t, c.IsMissing())
	assert.Zero(t, uint64(c.ProjectID))
	assert.Equal(t, NotFoundText, c.Title)
	assert.Equal(t, NotFoundText, c.Description)
	assert.False(t, c.Verified)
	assert.Zero(t, c.FundsReceived)
}

func TestCharityStatus(t *testing.T) {
	var s CharityStatus
	s.RecordRegistration()
	s.RecordRegistration()
	s.RecordVerification()
	require.NoError(t, s.CanRecordDonation(200))
	s.RecordDonation(200)

	assert.Equal(t, CharityStatus{Registered: 2, Verified: 1, TotalDonations: 200, TotalProjects: 2}, s)

	s.TotalDonations = math.MaxUint64
	assert.ErrorIs(t, s.CanRecordDonation(1), ErrAmountOverflow)
}

func TestReconcileReport(t *testing.T) {
	status := CharityStatus{Registered: 1, TotalProjects: 1}
	assert.False(t, ReconcileReport{Stored: status, Recomputed: status}.Drifted())
	assert.True(t, ReconcileReport{Stored: status, Recomputed: CharityStatus{}}.Drifted())
	assert.True(t, ReconcileReport{Stored: status, Recomputed: status, MissingIDs: []uint64{1}}.Drifted())
}
