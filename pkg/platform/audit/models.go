package audit

import (
	"context"
	"time"

	id "charity/pkg/domain"
)

// EventCategory classifies audit events so sinks can route and retain them differently.
type EventCategory string

const (
	// CategoryCompliance covers events that move money or change trust status.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers rejected attempts worth alerting on.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine activity.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted by the registry after a call commits. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID        string
	Category  EventCategory
	Timestamp time.Time
	ProjectID id.ProjectID
	Action    string
	Amount    uint64
	Reason    string
	RequestID string
	// ActorID is the authenticated caller, when the transport identified one.
	ActorID string
}

type AuditEvent string

const (
	EventProjectRegistered   AuditEvent = "project_registered"
	EventProjectVerified     AuditEvent = "project_verified"
	EventDonationReceived    AuditEvent = "donation_received"
	EventVerificationDenied  AuditEvent = "verification_rejected"
	EventDonationRejected    AuditEvent = "donation_rejected"
	EventAggregateDriftFound AuditEvent = "aggregate_drift_detected"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventProjectVerified:  CategoryCompliance,
	EventDonationReceived: CategoryCompliance,

	EventVerificationDenied:  CategorySecurity,
	EventDonationRejected:    CategorySecurity,
	EventAggregateDriftFound: CategorySecurity,

	EventProjectRegistered: CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events. Implementations must be safe for concurrent use.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// Lister is implemented by stores that can read events back.
type Lister interface {
	ListByProject(ctx context.Context, projectID id.ProjectID) ([]Event, error)
}
