package models

import (
	"math"

	dErrors "charity/pkg/domain-errors"
)

// CharityStatus is the registry-wide rollup, updated in the same transaction
// as every project mutation.
//
// Registered and TotalProjects are both incremented on every registration and
// are always equal; they are kept as separate fields so the stored document
// and API shape stay stable if unregistration is ever introduced.
type CharityStatus struct {
	Registered     uint64 `json:"registered"`
	Verified       uint64 `json:"verified"`
	TotalDonations uint64 `json:"total_donations"`
	TotalProjects  uint64 `json:"total_projects"`
}

// RecordRegistration counts a new project.
func (s *CharityStatus) RecordRegistration() {
	s.TotalProjects++
	s.Registered++
}

// RecordVerification counts a newly verified project.
func (s *CharityStatus) RecordVerification() {
	s.Verified++
}

// CanRecordDonation checks the registry-wide total can absorb amount.
func (s *CharityStatus) CanRecordDonation(amount uint64) error {
	if s.TotalDonations > math.MaxUint64-amount {
		return dErrors.Wrap(ErrAmountOverflow, dErrors.CodeInvariantViolation, "donation would overflow registry total")
	}
	return nil
}

// RecordDonation adds amount to the running total. Call CanRecordDonation first.
func (s *CharityStatus) RecordDonation(amount uint64) {
	s.TotalDonations += amount
}
