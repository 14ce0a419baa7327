package models

import (
	"errors"
	"math"
	"time"

	id "charity/pkg/domain"
	dErrors "charity/pkg/domain-errors"
)

// NotFoundText marks the title and description of the sentinel record.
const NotFoundText = "Not Found"

// Business outcomes callers can match with errors.Is.
var (
	ErrAlreadyVerified  = errors.New("project is already verified")
	ErrNotVerified      = errors.New("cannot donate to unverified project")
	ErrAmountOverflow   = errors.New("donation would overflow funds")
	ErrIDSpaceExhausted = errors.New("project id space exhausted")
	ErrZeroDonation     = errors.New("donation amount must be positive")
)

// Charity is one registered project.
//
// Invariants:
//   - ProjectID and RegisteredTime never change after registration
//   - Verified moves false -> true once and never reverts
//   - FundsReceived never decreases
type Charity struct {
	ProjectID      id.ProjectID `json:"project_id"`
	Title          string       `json:"title"`
	Description    string       `json:"description"`
	RegisteredTime time.Time    `json:"registered_time"`
	Verified       bool         `json:"verified"`
	FundsReceived  uint64       `json:"funds_received"`
}

// NewCharity builds an unverified project with no funds.
func NewCharity(projectID id.ProjectID, title, description string, now time.Time) *Charity {
	return &Charity{
		ProjectID:      projectID,
		Title:          title,
		Description:    description,
		RegisteredTime: now,
	}
}

// MissingCharity is the record returned by compatibility reads for ids that
// were never assigned. Id 0 is never assigned, so the sentinel cannot collide
// with a real project.
func MissingCharity() Charity {
	return Charity{
		Title:       NotFoundText,
		Description: NotFoundText,
	}
}

// IsMissing reports whether c is the sentinel record.
func (c Charity) IsMissing() bool {
	return c.ProjectID.IsNil()
}

// CanVerify checks the Registered -> Verified transition.
func (c *Charity) CanVerify() error {
	if c.Verified {
		return dErrors.Wrap(ErrAlreadyVerified, dErrors.CodeConflict, "project is already verified")
	}
	return nil
}

// ApplyVerification marks the project verified. Call CanVerify first.
func (c *Charity) ApplyVerification() {
	c.Verified = true
}

// CanDonate checks that amount may be credited to the project.
func (c *Charity) CanDonate(amount uint64) error {
	if amount == 0 {
		return dErrors.Wrap(ErrZeroDonation, dErrors.CodeValidation, "donation amount must be positive")
	}
	if !c.Verified {
		return dErrors.Wrap(ErrNotVerified, dErrors.CodeConflict, "cannot donate to unverified project")
	}
	if c.FundsReceived > math.MaxUint64-amount {
		return dErrors.Wrap(ErrAmountOverflow, dErrors.CodeInvariantViolation, "donation would overflow project funds")
	}
	return nil
}

// ApplyDonation credits amount. Call CanDonate first.
func (c *Charity) ApplyDonation(amount uint64) {
	c.FundsReceived += amount
}
