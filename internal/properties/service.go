package properties

import (
	"context"
	"fmt"

	"estate_crm_backend/internal/activity"
	"estate_crm_backend/internal/events"
	leaddomain "estate_crm_backend/internal/leads/domain"
	"estate_crm_backend/platform/apperr"
	"estate_crm_backend/platform/logger"
	"estate_crm_backend/platform/saga"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	opChangeStatus = "properties.service.change_status"
	opLinkOwner    = "properties.service.link_owner"

	cascadeConcurrency = 4
)

// Store is the persistence surface the rule engine needs. Implemented by
// Repository; faked in tests.
type Store interface {
	Create(ctx context.Context, p CreateParams) (Property, error)
	GetByID(ctx context.Context, id uuid.UUID) (Property, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) (Property, error)
	SetOwner(ctx context.Context, id, ownerContactID uuid.UUID) (Property, error)
	LinkContact(ctx context.Context, propertyID, contactID uuid.UUID, role string) (Link, error)
	ListLinks(ctx context.Context, propertyID uuid.UUID) ([]Link, error)
	List(ctx context.Context, filter ListFilter, limit, offset int) ([]Property, int, error)
}

// LeadLifecycle is the slice of the leads engine the cascade drives.
// Implemented by the leads management service.
type LeadLifecycle interface {
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]leaddomain.Lead, error)
	ChangeStatus(ctx context.Context, actorID, leadID uuid.UUID, status leaddomain.Status) (leaddomain.Lead, error)
	EnsureInterestTag(ctx context.Context, actorID, leadID uuid.UUID, tag string) (leaddomain.Lead, error)
}

// CalendarPort is the slice of the scheduling service the engine uses.
type CalendarPort interface {
	SchedulePropertyPendingCheck(ctx context.Context, propertyID, agentID uuid.UUID) error
	CompleteOpenForProperty(ctx context.Context, propertyID uuid.UUID) (int, error)
}

// ActivityLog is the audit trail; Append aborts, Record is best-effort.
type ActivityLog interface {
	Append(ctx context.Context, p activity.CreateParams) (activity.Entry, error)
	Record(ctx context.Context, p activity.CreateParams)
}

// Notifier raises agent-facing notifications.
type Notifier interface {
	PropertyStatusChanged(ctx context.Context, agentID, propertyID uuid.UUID, title, status string)
}

type Service struct {
	store      Store
	leads      LeadLifecycle
	calendar   CalendarPort
	activities ActivityLog
	notifier   Notifier
	bus        events.Bus
	log        *logger.Logger
}

func NewService(store Store, leads LeadLifecycle, cal CalendarPort,
	activities ActivityLog, notifier Notifier, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		store:      store,
		leads:      leads,
		calendar:   cal,
		activities: activities,
		notifier:   notifier,
		bus:        bus,
		log:        log,
	}
}

// Create inserts a listing. The actor becomes the responsible agent.
func (s *Service) Create(ctx context.Context, actorID uuid.UUID, p CreateParams) (Property, error) {
	p.AgentID = actorID
	prop, err := s.store.Create(ctx, p)
	if err != nil {
		return Property{}, err
	}

	id := prop.ID
	s.activities.Record(ctx, activity.CreateParams{
		Type:        "property_created",
		Description: fmt.Sprintf("Property %q listed for %s", prop.Title, prop.OfferType),
		PropertyID:  &id,
		CreatedBy:   actorID,
	})
	s.publishRefresh(ctx, prop.ID, "created")

	return prop, nil
}

// ChangeStatus runs the status rule engine. The status write and the
// transition activity are authoritative; all cascades are best-effort and
// attempted independently of each other.
func (s *Service) ChangeStatus(ctx context.Context, actorID, propertyID uuid.UUID, newStatus Status) (Property, error) {
	if !ValidStatus(newStatus) {
		return Property{}, apperr.Validation("unknown property status").WithOp(opChangeStatus)
	}

	current, err := s.store.GetByID(ctx, propertyID)
	if err != nil {
		return Property{}, err
	}
	oldStatus := current.Status
	if oldStatus == newStatus {
		// Side effects fire on transition, not on state.
		return current, nil
	}

	var updated Property
	pipeline := saga.New(opChangeStatus, s.log).
		Then("update_status", func(ctx context.Context) error {
			u, updateErr := s.store.UpdateStatus(ctx, propertyID, newStatus)
			if updateErr != nil {
				return updateErr
			}
			updated = u
			return nil
		}).
		Then("record_transition", func(ctx context.Context) error {
			id := propertyID
			_, appendErr := s.activities.Append(ctx, activity.CreateParams{
				Type:        "property_status_changed",
				Description: fmt.Sprintf("Property status changed: %s → %s", oldStatus, newStatus),
				PropertyID:  &id,
				CreatedBy:   actorID,
			})
			return appendErr
		}).
		BestEffort("pending_check", func(ctx context.Context) error {
			if newStatus != StatusPending {
				return nil
			}
			return s.calendar.SchedulePropertyPendingCheck(ctx, propertyID, updated.AgentID)
		}).
		BestEffort("closure_cascade", func(ctx context.Context) error {
			if !IsClosure(newStatus) {
				return nil
			}
			s.runClosureCascade(ctx, actorID, updated, newStatus)
			return nil
		}).
		BestEffort("reopen_cascade", func(ctx context.Context) error {
			if !ReopensLeads(oldStatus, newStatus) {
				return nil
			}
			s.runReopenCascade(ctx, actorID, updated)
			return nil
		})

	if err := pipeline.Run(ctx); err != nil {
		return Property{}, err
	}

	s.publishRefresh(ctx, propertyID, "status_changed")
	return updated, nil
}

// runClosureCascade converts every linked lead to won (unless already won),
// closes open calendar events on the property and notifies the agent. Linked
// leads are fetched in one batch read, then each status write is attempted
// independently; failures are logged per item.
func (s *Service) runClosureCascade(ctx context.Context, actorID uuid.UUID, prop Property, newStatus Status) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cascadeConcurrency)
	for _, lead := range s.linkedLeads(ctx, prop.ID) {
		if lead.Status == leaddomain.StatusWon {
			continue
		}
		leadID := lead.ID
		g.Go(func() error {
			if _, chErr := s.leads.ChangeStatus(gctx, actorID, leadID, leaddomain.StatusWon); chErr != nil {
				s.logCascadeFailure("win_linked_lead "+leadID.String(), chErr)
			}
			return nil
		})
	}
	_ = g.Wait()

	if _, completeErr := s.calendar.CompleteOpenForProperty(ctx, prop.ID); completeErr != nil {
		s.logCascadeFailure("complete_open_events", completeErr)
	}

	s.notifier.PropertyStatusChanged(ctx, prop.AgentID, prop.ID, prop.Title, string(newStatus))
}

// runReopenCascade fires only on the sold/rented to available reversal:
// lost linked leads come back as contacted and the agent is told.
func (s *Service) runReopenCascade(ctx context.Context, actorID uuid.UUID, prop Property) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cascadeConcurrency)
	for _, lead := range s.linkedLeads(ctx, prop.ID) {
		if lead.Status != leaddomain.StatusLost {
			continue
		}
		leadID := lead.ID
		g.Go(func() error {
			if _, chErr := s.leads.ChangeStatus(gctx, actorID, leadID, leaddomain.StatusContacted); chErr != nil {
				s.logCascadeFailure("reopen_linked_lead "+leadID.String(), chErr)
			}
			return nil
		})
	}
	_ = g.Wait()

	s.notifier.PropertyStatusChanged(ctx, prop.AgentID, prop.ID, prop.Title, string(StatusAvailable))
}

// linkedLeads resolves a property's links to lead records in one batch read.
// A failure on either read is logged and yields an empty cascade.
func (s *Service) linkedLeads(ctx context.Context, propertyID uuid.UUID) []leaddomain.Lead {
	links, err := s.store.ListLinks(ctx, propertyID)
	if err != nil {
		s.logCascadeFailure("list_links", err)
		return nil
	}
	if len(links) == 0 {
		return nil
	}

	// A contact may be linked under several roles; fetch each lead once.
	seen := make(map[uuid.UUID]struct{}, len(links))
	ids := make([]uuid.UUID, 0, len(links))
	for _, link := range links {
		if _, ok := seen[link.ContactID]; ok {
			continue
		}
		seen[link.ContactID] = struct{}{}
		ids = append(ids, link.ContactID)
	}
	leads, err := s.leads.ListByIDs(ctx, ids)
	if err != nil {
		s.logCascadeFailure("list_linked_leads", err)
		return nil
	}
	return leads
}

// EnsureOwnerTag tags the owning lead as Seller or Landlord depending on the
// offer type. Idempotent end to end: the tag append and its audit entry
// happen only when the tag was actually missing.
func (s *Service) EnsureOwnerTag(ctx context.Context, actorID, ownerLeadID uuid.UUID, offerType string) error {
	tag, ok := leaddomain.OwnerTagForOfferType(offerType)
	if !ok {
		return apperr.Validation("offerType must be sale or rent")
	}

	_, err := s.leads.EnsureInterestTag(ctx, actorID, ownerLeadID, tag)
	return err
}

// LinkPropertyToOwner sets the listing's owner reference, records the owner
// link, tags the owner, and writes one combined audit entry.
func (s *Service) LinkPropertyToOwner(ctx context.Context, actorID, propertyID, ownerLeadID uuid.UUID) (Property, error) {
	current, err := s.store.GetByID(ctx, propertyID)
	if err != nil {
		return Property{}, err
	}

	var updated Property
	pipeline := saga.New(opLinkOwner, s.log).
		Then("set_owner", func(ctx context.Context) error {
			u, setErr := s.store.SetOwner(ctx, propertyID, ownerLeadID)
			if setErr != nil {
				return setErr
			}
			updated = u
			return nil
		}).
		Then("link_contact", func(ctx context.Context) error {
			_, linkErr := s.store.LinkContact(ctx, propertyID, ownerLeadID, RoleOwner)
			return linkErr
		}).
		BestEffort("ensure_owner_tag", func(ctx context.Context) error {
			return s.EnsureOwnerTag(ctx, actorID, ownerLeadID, current.OfferType)
		}).
		BestEffort("record_activity", func(ctx context.Context) error {
			pid, lid := propertyID, ownerLeadID
			s.activities.Record(ctx, activity.CreateParams{
				Type:        "property_owner_linked",
				Description: fmt.Sprintf("Owner linked to property %q and tagged for %s", current.Title, current.OfferType),
				PropertyID:  &pid,
				LeadID:      &lid,
				ContactID:   &lid,
				CreatedBy:   actorID,
			})
			return nil
		})

	if err := pipeline.Run(ctx); err != nil {
		return Property{}, err
	}

	s.publishRefresh(ctx, propertyID, "owner_linked")
	return updated, nil
}

// LinkInterestedContact records buyer or tenant interest in a listing.
func (s *Service) LinkInterestedContact(ctx context.Context, actorID, propertyID, contactID uuid.UUID, role string) (Link, error) {
	if role != RoleBuyerInterest && role != RoleTenantInterest {
		return Link{}, apperr.Validation("role must be buyer_interest or tenant_interest")
	}

	link, err := s.store.LinkContact(ctx, propertyID, contactID, role)
	if err != nil {
		return Link{}, err
	}

	pid, cid := propertyID, contactID
	s.activities.Record(ctx, activity.CreateParams{
		Type:        "property_interest_linked",
		Description: "Contact linked to property as " + role,
		PropertyID:  &pid,
		ContactID:   &cid,
		LeadID:      &cid,
		CreatedBy:   actorID,
	})
	s.publishRefresh(ctx, propertyID, "interest_linked")

	return link, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (Property, error) {
	return s.store.GetByID(ctx, id)
}

func (s *Service) Links(ctx context.Context, propertyID uuid.UUID) ([]Link, error) {
	return s.store.ListLinks(ctx, propertyID)
}

func (s *Service) List(ctx context.Context, filter ListFilter, page, pageSize int) ([]Property, int, error) {
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

func (s *Service) logCascadeFailure(step string, err error) {
	if s.log != nil {
		s.log.DerivedWriteFailed(opChangeStatus, step, err)
	}
}

func (s *Service) publishRefresh(ctx context.Context, propertyID uuid.UUID, reason string) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(ctx, events.PropertiesRefresh{
		BaseEvent:  events.NewBaseEvent(),
		PropertyID: propertyID,
		Reason:     reason,
	})
}
