package management

import (
	"context"
	"strings"

	"estate_crm_backend/internal/activity"
	"estate_crm_backend/internal/contacts"
	"estate_crm_backend/internal/events"
	"estate_crm_backend/internal/leads/domain"
	"estate_crm_backend/internal/leads/repository"
	"estate_crm_backend/platform/apperr"
	"estate_crm_backend/platform/logger"
	"estate_crm_backend/platform/phone"
	"estate_crm_backend/platform/saga"

	"github.com/google/uuid"
)

const (
	opResolveOrCreate = "leads.management.resolve_or_create"
	opChangeStatus    = "leads.management.change_status"
	opEnsureTag       = "leads.management.ensure_interest_tag"
)

type Service struct {
	store      LeadStore
	contacts   ContactSyncer
	scheduler  FollowUpScheduler
	activities ActivityLog
	notifier   Notifier
	bus        events.Bus
	log        *logger.Logger
}

func NewService(store LeadStore, syncer ContactSyncer, scheduler FollowUpScheduler,
	activities ActivityLog, notifier Notifier, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		store:      store,
		contacts:   syncer,
		scheduler:  scheduler,
		activities: activities,
		notifier:   notifier,
		bus:        bus,
		log:        log,
	}
}

// CreateParams is the engine-level input for a new lead. AgentID is absent on
// purpose: it is always supplied separately as the authenticated actor.
type CreateParams struct {
	Name           string
	Email          string
	Phone          string
	Priority       string
	Source         string
	Segment        string
	Subtype        string
	Bedrooms       *int
	SaleBudgetBand string
	RentBudgetBand string
	SizeBand       string
	Location       string
	InterestTags   []string
	Notes          string
}

// ResolveOrCreate is the dedup-resolving entry point for new enquiries.
// When an existing lead matches the candidate's email or phone, the existing
// record is kept verbatim, the attempt is logged, and no second row is
// created. Otherwise the lead is created and the derived writes fan out
// best-effort: contact sync, follow-up schedule, audit entry, notification.
func (s *Service) ResolveOrCreate(ctx context.Context, actorID uuid.UUID, p CreateParams) (domain.Lead, bool, error) {
	p.Name = strings.TrimSpace(p.Name)
	p.Email = strings.TrimSpace(strings.ToLower(p.Email))
	p.Phone = phone.NormalizeE164(p.Phone)

	if p.Name == "" {
		return domain.Lead{}, false, apperr.Validation("name is required").WithOp(opResolveOrCreate)
	}
	if p.Email == "" && p.Phone == "" {
		return domain.Lead{}, false, apperr.Validation("email or phone is required").WithOp(opResolveOrCreate)
	}
	if actorID == uuid.Nil {
		return domain.Lead{}, false, apperr.Unauthorized("missing authenticated actor").WithOp(opResolveOrCreate)
	}
	if p.Priority == "" {
		p.Priority = domain.PriorityMedium
	}

	// Dedup runs within the resolving agent's book only; an identity match
	// owned by another agent stays untouched and a fresh lead is created.
	existing, err := s.store.FindByIdentity(ctx, p.Email, p.Phone, actorID)
	if err != nil {
		return domain.Lead{}, false, err
	}
	if existing != nil {
		// Keep-existing merge policy: the submission's data is discarded
		// and only the attempt is recorded.
		leadID := existing.ID
		s.activities.Record(ctx, activity.CreateParams{
			Type:        "lead_merged",
			Description: "Duplicate lead submission merged into existing lead",
			LeadID:      &leadID,
			CreatedBy:   actorID,
		})
		s.publishLeadChanged(ctx, *existing, "merged")
		return *existing, false, nil
	}

	contactStatus, _ := domain.ContactStatusFor(domain.StatusNew)

	var lead domain.Lead
	pipeline := saga.New(opResolveOrCreate, s.log).
		Then("create_lead", func(ctx context.Context) error {
			created, createErr := s.store.Create(ctx, repository.CreateParams{
				Name:           p.Name,
				Email:          optional(p.Email),
				Phone:          optional(p.Phone),
				Status:         domain.StatusNew,
				Priority:       p.Priority,
				ContactStatus:  contactStatus,
				AgentID:        actorID,
				Source:         p.Source,
				Segment:        p.Segment,
				Subtype:        p.Subtype,
				Bedrooms:       p.Bedrooms,
				SaleBudgetBand: p.SaleBudgetBand,
				RentBudgetBand: p.RentBudgetBand,
				SizeBand:       p.SizeBand,
				Location:       p.Location,
				InterestTags:   p.InterestTags,
				Notes:          p.Notes,
			})
			if createErr != nil {
				return createErr
			}
			lead = created
			return nil
		}).
		BestEffort("sync_contact", func(ctx context.Context) error {
			_, syncErr := s.contacts.SyncFromLead(ctx, snapshotOf(lead))
			return syncErr
		}).
		BestEffort("schedule_follow_ups", func(ctx context.Context) error {
			return s.scheduler.ScheduleLeadFollowUps(ctx, lead.ID, lead.AgentID)
		}).
		BestEffort("record_activity", func(ctx context.Context) error {
			leadID := lead.ID
			s.activities.Record(ctx, activity.CreateParams{
				Type:        "lead_created",
				Description: "Lead created and assigned",
				LeadID:      &leadID,
				ContactID:   &leadID,
				CreatedBy:   actorID,
			})
			return nil
		}).
		BestEffort("notify_agent", func(ctx context.Context) error {
			s.notifier.LeadAssigned(ctx, lead.AgentID, lead.ID, lead.Name)
			return nil
		})

	if err := pipeline.Run(ctx); err != nil {
		return domain.Lead{}, false, err
	}

	s.publishLeadChanged(ctx, lead, "created")
	return lead, true, nil
}

// ChangeStatus moves a lead through the pipeline and keeps contact_status
// derived per the canonical mapping. Transitions to won or lost write a
// conversion activity entry first; the transition is not recorded without it.
func (s *Service) ChangeStatus(ctx context.Context, actorID, leadID uuid.UUID, status domain.Status) (domain.Lead, error) {
	if !domain.ValidStatus(status) {
		return domain.Lead{}, apperr.Validation("unknown lead status").WithOp(opChangeStatus)
	}
	contactStatus, _ := domain.ContactStatusFor(status)

	var lead domain.Lead
	pipeline := saga.New(opChangeStatus, s.log)

	if desc, isConversion := domain.ConversionActivity(status); isConversion {
		pipeline.Then("record_conversion", func(ctx context.Context) error {
			id := leadID
			_, appendErr := s.activities.Append(ctx, activity.CreateParams{
				Type:        "lead_converted",
				Description: desc,
				LeadID:      &id,
				ContactID:   &id,
				CreatedBy:   actorID,
			})
			return appendErr
		})
	}

	pipeline.Then("update_status", func(ctx context.Context) error {
		updated, updateErr := s.store.UpdateStatus(ctx, leadID, status, contactStatus)
		if updateErr != nil {
			return updateErr
		}
		lead = updated
		return nil
	}).
		BestEffort("sync_contact", func(ctx context.Context) error {
			_, syncErr := s.contacts.SyncFromLead(ctx, snapshotOf(lead))
			return syncErr
		}).
		BestEffort("notify_agent", func(ctx context.Context) error {
			if status == domain.StatusWon || status == domain.StatusLost {
				s.notifier.LeadStatusChanged(ctx, lead.AgentID, lead.ID, lead.Name, string(status))
			}
			return nil
		})

	if err := pipeline.Run(ctx); err != nil {
		return domain.Lead{}, err
	}

	s.publishLeadChanged(ctx, lead, "status_changed")
	return lead, nil
}

// EnsureInterestTag adds a role tag exactly once. Re-adding an existing tag
// is a no-op with no derived writes. An actual tag write re-syncs the contact
// view so the change publishes both lead and contact topics like every other
// lead write.
func (s *Service) EnsureInterestTag(ctx context.Context, actorID, leadID uuid.UUID, tag string) (domain.Lead, error) {
	if tag == "" {
		return domain.Lead{}, apperr.Validation("tag is required").WithOp(opEnsureTag)
	}

	lead, added, err := s.store.AddInterestTag(ctx, leadID, tag)
	if err != nil {
		return domain.Lead{}, err
	}
	if !added {
		return lead, nil
	}

	id := lead.ID
	s.activities.Record(ctx, activity.CreateParams{
		Type:        "lead_tagged",
		Description: "Interest tag \"" + tag + "\" added",
		LeadID:      &id,
		ContactID:   &id,
		CreatedBy:   actorID,
	})
	if _, syncErr := s.contacts.SyncFromLead(ctx, snapshotOf(lead)); syncErr != nil && s.log != nil {
		s.log.DerivedWriteFailed(opEnsureTag, "sync_contact", syncErr)
	}
	s.publishLeadChanged(ctx, lead, "tagged")

	return lead, nil
}

// Update edits descriptive fields and re-syncs the contact view.
func (s *Service) Update(ctx context.Context, actorID, leadID uuid.UUID, p repository.UpdateParams) (domain.Lead, error) {
	if p.Phone != nil {
		normalized := phone.NormalizeE164(*p.Phone)
		p.Phone = &normalized
	}

	lead, err := s.store.Update(ctx, leadID, p)
	if err != nil {
		return domain.Lead{}, err
	}

	if _, syncErr := s.contacts.SyncFromLead(ctx, snapshotOf(lead)); syncErr != nil && s.log != nil {
		s.log.DerivedWriteFailed(opChangeStatus, "sync_contact", syncErr)
	}
	s.publishLeadChanged(ctx, lead, "updated")

	return lead, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (domain.Lead, error) {
	return s.store.GetByID(ctx, id)
}

// ListByIDs batch-reads the given leads; unknown IDs are skipped.
func (s *Service) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Lead, error) {
	return s.store.ListByIDs(ctx, ids)
}

func (s *Service) List(ctx context.Context, filter repository.ListFilter, page, pageSize int) ([]domain.Lead, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return s.store.List(ctx, filter, pageSize, (page-1)*pageSize)
}

func (s *Service) publishLeadChanged(ctx context.Context, lead domain.Lead, reason string) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(ctx, events.LeadsChanged{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    lead.ID,
		AgentID:   lead.AgentID,
		Reason:    reason,
	})
}

func snapshotOf(l domain.Lead) contacts.LeadSnapshot {
	return contacts.LeadSnapshot{
		ID:             l.ID,
		AgentID:        l.AgentID,
		Name:           l.Name,
		Email:          l.Email,
		Phone:          l.Phone,
		Status:         string(l.Status),
		ContactStatus:  l.ContactStatus,
		Segment:        l.Segment,
		Subtype:        l.Subtype,
		Bedrooms:       l.Bedrooms,
		Location:       l.Location,
		SaleBudgetBand: l.SaleBudgetBand,
		RentBudgetBand: l.RentBudgetBand,
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
