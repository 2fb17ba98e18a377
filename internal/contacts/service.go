package contacts

import (
	"context"

	"estate_crm_backend/internal/contacts/band"
	"estate_crm_backend/internal/events"
	"estate_crm_backend/platform/logger"

	"github.com/google/uuid"
)

// LeadSnapshot is the lead state the synchronizer derives a contact from.
// It is a value copy so the contacts module never imports the leads module.
type LeadSnapshot struct {
	ID             uuid.UUID
	AgentID        uuid.UUID
	Name           string
	Email          *string
	Phone          *string
	Status         string
	ContactStatus  string
	Segment        string
	Subtype        string
	Bedrooms       *int
	Location       string
	SaleBudgetBand string
	RentBudgetBand string
}

// Store is the persistence surface the synchronizer needs. Implemented by
// Repository; faked in tests.
type Store interface {
	Upsert(ctx context.Context, p UpsertParams) (Contact, error)
	GetByID(ctx context.Context, id uuid.UUID) (Contact, error)
	FindByIdentity(ctx context.Context, email, phone string) (*Contact, error)
	List(ctx context.Context, filter ListFilter, limit, offset int) ([]Contact, int, error)
}

type Service struct {
	repo     Store
	eventBus events.Bus
	log      *logger.Logger
}

func NewService(repo Store, eventBus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, eventBus: eventBus, log: log}
}

// SyncFromLead upserts the contact view of a lead. Repeated calls with the
// same snapshot converge to the same row (upsert keyed by the shared id).
func (s *Service) SyncFromLead(ctx context.Context, snap LeadSnapshot) (Contact, error) {
	contact, err := s.repo.Upsert(ctx, deriveUpsert(snap))
	if err != nil {
		return Contact{}, err
	}

	if s.eventBus != nil {
		s.eventBus.Publish(ctx, events.ContactsUpdated{
			BaseEvent: events.NewBaseEvent(),
			ContactID: contact.ID,
			Reason:    "lead_sync",
		})
	}

	return contact, nil
}

// deriveUpsert maps a lead snapshot to the contact row it implies.
// Pure: no I/O, fully determined by the snapshot.
func deriveUpsert(snap LeadSnapshot) UpsertParams {
	statusEffective := StatusActive
	if snap.Status == "lost" {
		statusEffective = StatusPast
	}

	p := UpsertParams{
		ID:              snap.ID,
		Name:            snap.Name,
		Email:           snap.Email,
		Phone:           snap.Phone,
		StatusEffective: statusEffective,
		ContactStatus:   snap.ContactStatus,
		AgentID:         snap.AgentID,
	}

	// Budget bounds come from the sale band when present, otherwise the
	// rent band. Unparseable labels leave both bounds null.
	budget := band.Parse(snap.SaleBudgetBand)
	if !budget.Known {
		budget = band.Parse(snap.RentBudgetBand)
	}
	if budget.Known {
		p.BudgetMin = budget.Min
		p.BudgetMax = budget.Max
	}

	if snap.SaleBudgetBand != "" {
		p.BuyerPreferences = &Preferences{
			Segment:    snap.Segment,
			Subtype:    snap.Subtype,
			Bedrooms:   snap.Bedrooms,
			Location:   snap.Location,
			BudgetBand: snap.SaleBudgetBand,
		}
	}
	if snap.RentBudgetBand != "" {
		p.TenantPreferences = &Preferences{
			Segment:    snap.Segment,
			Subtype:    snap.Subtype,
			Bedrooms:   snap.Bedrooms,
			Location:   snap.Location,
			BudgetBand: snap.RentBudgetBand,
		}
	}

	return p
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (Contact, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) FindByIdentity(ctx context.Context, email, phone string) (*Contact, error) {
	return s.repo.FindByIdentity(ctx, email, phone)
}

func (s *Service) List(ctx context.Context, filter ListFilter, page, pageSize int) ([]Contact, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return s.repo.List(ctx, filter, pageSize, (page-1)*pageSize)
}
