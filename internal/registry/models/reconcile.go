package models

import "time"

// ReconcileReport compares the stored aggregate with one recomputed from
// every project record.
type ReconcileReport struct {
	CheckedAt  time.Time     `json:"checked_at"`
	Stored     CharityStatus `json:"stored"`
	Recomputed CharityStatus `json:"recomputed"`
	// MissingIDs lists ids at or below the counter with no stored record.
	MissingIDs []uint64 `json:"missing_ids,omitempty"`
}

// Drifted reports whether the stored aggregate disagrees with the records.
func (r ReconcileReport) Drifted() bool {
	return r.Stored != r.Recomputed || len(r.MissingIDs) > 0
}
