// Package management implements the lead lifecycle engine: dedup-resolving
// creation, status changes with the derived contact sync, and idempotent
// interest tagging. Each entry point runs as a saga — one authoritative store
// write followed by best-effort derived writes.
package management

import (
	"context"

	"estate_crm_backend/internal/activity"
	"estate_crm_backend/internal/contacts"
	"estate_crm_backend/internal/leads/domain"
	"estate_crm_backend/internal/leads/repository"

	"github.com/google/uuid"
)

// LeadStore is the persistence surface the engine needs. Implemented by
// repository.Repository; faked in tests.
type LeadStore interface {
	Create(ctx context.Context, p repository.CreateParams) (domain.Lead, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Lead, error)
	FindByIdentity(ctx context.Context, email, phone string, agentID uuid.UUID) (*domain.Lead, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.Status, contactStatus string) (domain.Lead, error)
	AddInterestTag(ctx context.Context, id uuid.UUID, tag string) (domain.Lead, bool, error)
	Update(ctx context.Context, id uuid.UUID, p repository.UpdateParams) (domain.Lead, error)
	List(ctx context.Context, filter repository.ListFilter, limit, offset int) ([]domain.Lead, int, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Lead, error)
}

// ContactSyncer upserts the contact view of a lead.
type ContactSyncer interface {
	SyncFromLead(ctx context.Context, snap contacts.LeadSnapshot) (contacts.Contact, error)
}

// FollowUpScheduler creates the deterministic follow-up events for a new lead.
type FollowUpScheduler interface {
	ScheduleLeadFollowUps(ctx context.Context, leadID, agentID uuid.UUID) error
}

// ActivityLog is the audit trail. Append returns its error for steps where
// the entry is evidence of a transition; Record swallows failures.
type ActivityLog interface {
	Append(ctx context.Context, p activity.CreateParams) (activity.Entry, error)
	Record(ctx context.Context, p activity.CreateParams)
}

// Notifier raises agent-facing notifications.
type Notifier interface {
	LeadAssigned(ctx context.Context, agentID, leadID uuid.UUID, leadName string)
	LeadStatusChanged(ctx context.Context, agentID, leadID uuid.UUID, leadName, status string)
}
