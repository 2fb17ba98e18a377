package properties

import (
	"context"
	"errors"
	"sync"
	"testing"

	"estate_crm_backend/internal/activity"
	"estate_crm_backend/internal/events"
	leaddomain "estate_crm_backend/internal/leads/domain"
	"estate_crm_backend/platform/apperr"

	"github.com/google/uuid"
)

type fakeStore struct {
	mu    sync.Mutex
	props map[uuid.UUID]Property
	links map[uuid.UUID][]Link
}

func newFakeStore() *fakeStore {
	return &fakeStore{props: map[uuid.UUID]Property{}, links: map[uuid.UUID][]Link{}}
}

func (f *fakeStore) Create(_ context.Context, p CreateParams) (Property, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	prop := Property{ID: uuid.New(), Title: p.Title, Status: p.Status, OfferType: p.OfferType, AgentID: p.AgentID}
	if prop.Status == "" {
		prop.Status = StatusAvailable
	}
	f.props[prop.ID] = prop
	return prop, nil
}

func (f *fakeStore) GetByID(_ context.Context, id uuid.UUID) (Property, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.props[id]
	if !ok {
		return Property{}, apperr.NotFound("property not found")
	}
	return p, nil
}

func (f *fakeStore) UpdateStatus(_ context.Context, id uuid.UUID, status Status) (Property, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.props[id]
	if !ok {
		return Property{}, apperr.NotFound("property not found")
	}
	p.Status = status
	f.props[id] = p
	return p, nil
}

func (f *fakeStore) SetOwner(_ context.Context, id, ownerContactID uuid.UUID) (Property, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.props[id]
	if !ok {
		return Property{}, apperr.NotFound("property not found")
	}
	owner := ownerContactID
	p.OwnerContactID = &owner
	f.props[id] = p
	return p, nil
}

func (f *fakeStore) LinkContact(_ context.Context, propertyID, contactID uuid.UUID, role string) (Link, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.links[propertyID] {
		if l.ContactID == contactID && l.Role == role {
			return l, nil
		}
	}
	l := Link{ID: uuid.New(), PropertyID: propertyID, ContactID: contactID, Role: role}
	f.links[propertyID] = append(f.links[propertyID], l)
	return l, nil
}

func (f *fakeStore) ListLinks(_ context.Context, propertyID uuid.UUID) ([]Link, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Link{}, f.links[propertyID]...), nil
}

func (f *fakeStore) List(context.Context, ListFilter, int, int) ([]Property, int, error) {
	return nil, 0, nil
}

type fakeLeads struct {
	mu        sync.Mutex
	leads     map[uuid.UUID]leaddomain.Lead
	tags      []string
	listCalls int
	listedIDs []uuid.UUID
}

func newFakeLeads() *fakeLeads {
	return &fakeLeads{leads: map[uuid.UUID]leaddomain.Lead{}}
}

func (f *fakeLeads) add(status leaddomain.Status) uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	l := leaddomain.Lead{ID: uuid.New(), Status: status}
	f.leads[l.ID] = l
	return l.ID
}

func (f *fakeLeads) Get(_ context.Context, id uuid.UUID) (leaddomain.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.leads[id]
	if !ok {
		return leaddomain.Lead{}, apperr.NotFound("lead not found")
	}
	return l, nil
}

func (f *fakeLeads) ListByIDs(_ context.Context, ids []uuid.UUID) ([]leaddomain.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	f.listedIDs = append([]uuid.UUID{}, ids...)
	out := make([]leaddomain.Lead, 0, len(ids))
	for _, id := range ids {
		if l, ok := f.leads[id]; ok {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeLeads) ChangeStatus(_ context.Context, _, leadID uuid.UUID, status leaddomain.Status) (leaddomain.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.leads[leadID]
	if !ok {
		return leaddomain.Lead{}, apperr.NotFound("lead not found")
	}
	l.Status = status
	f.leads[leadID] = l
	return l, nil
}

func (f *fakeLeads) EnsureInterestTag(_ context.Context, _, leadID uuid.UUID, tag string) (leaddomain.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.leads[leadID]
	if !ok {
		return leaddomain.Lead{}, apperr.NotFound("lead not found")
	}
	if !l.HasTag(tag) {
		l.InterestTags = append(l.InterestTags, tag)
		f.leads[leadID] = l
		f.tags = append(f.tags, tag)
	}
	return l, nil
}

type fakeCalendar struct {
	mu            sync.Mutex
	pendingChecks int
	completed     int
	completeErr   error
}

func (f *fakeCalendar) SchedulePropertyPendingCheck(context.Context, uuid.UUID, uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pendingChecks++
	return nil
}

func (f *fakeCalendar) CompleteOpenForProperty(context.Context, uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.completeErr != nil {
		return 0, f.completeErr
	}
	f.completed++
	return 1, nil
}

type fakeActivities struct {
	mu        sync.Mutex
	entries   []activity.CreateParams
	appendErr error
}

func (f *fakeActivities) Append(_ context.Context, p activity.CreateParams) (activity.Entry, error) {
	if f.appendErr != nil {
		return activity.Entry{}, f.appendErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, p)
	return activity.Entry{ID: uuid.New()}, nil
}

func (f *fakeActivities) Record(ctx context.Context, p activity.CreateParams) {
	_, _ = f.Append(ctx, p)
}

func (f *fakeActivities) byType(typ string) []activity.CreateParams {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []activity.CreateParams
	for _, e := range f.entries {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeNotifier) PropertyStatusChanged(_ context.Context, _, _ uuid.UUID, _, status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, status)
}

type nopBus struct{}

func (nopBus) Publish(context.Context, events.Event)           {}
func (nopBus) PublishSync(context.Context, events.Event) error { return nil }
func (nopBus) Subscribe(string, events.Handler)                {}

type harness struct {
	svc      *Service
	store    *fakeStore
	leads    *fakeLeads
	calendar *fakeCalendar
	acts     *fakeActivities
	notifier *fakeNotifier
}

func newHarness() *harness {
	store := newFakeStore()
	leads := newFakeLeads()
	cal := &fakeCalendar{}
	acts := &fakeActivities{}
	notif := &fakeNotifier{}

	return &harness{
		svc:      NewService(store, leads, cal, acts, notif, nopBus{}, nil),
		store:    store,
		leads:    leads,
		calendar: cal,
		acts:     acts,
		notifier: notif,
	}
}

func (h *harness) newProperty(t *testing.T, status Status, offerType string) Property {
	t.Helper()
	prop, err := h.svc.Create(context.Background(), uuid.New(), CreateParams{
		Title: "Marina View 2BR", Status: status, OfferType: offerType,
	})
	if err != nil {
		t.Fatalf("create property: %v", err)
	}
	return prop
}

func (h *harness) link(t *testing.T, propertyID, leadID uuid.UUID) {
	t.Helper()
	if _, err := h.store.LinkContact(context.Background(), propertyID, leadID, RoleBuyerInterest); err != nil {
		t.Fatalf("link: %v", err)
	}
}

func TestClosureCascade(t *testing.T) {
	h := newHarness()
	actor := uuid.New()
	prop := h.newProperty(t, StatusAvailable, OfferSale)

	wonLead := h.leads.add(leaddomain.StatusWon)
	contactedLead := h.leads.add(leaddomain.StatusContacted)
	h.link(t, prop.ID, wonLead)
	h.link(t, prop.ID, contactedLead)

	updated, err := h.svc.ChangeStatus(context.Background(), actor, prop.ID, StatusSold)
	if err != nil {
		t.Fatalf("ChangeStatus: %v", err)
	}
	if updated.Status != StatusSold {
		t.Fatalf("status = %q, want sold", updated.Status)
	}

	if l, _ := h.leads.Get(context.Background(), contactedLead); l.Status != leaddomain.StatusWon {
		t.Fatalf("contacted lead = %q, want won", l.Status)
	}
	if l, _ := h.leads.Get(context.Background(), wonLead); l.Status != leaddomain.StatusWon {
		t.Fatalf("already-won lead = %q, must stay won", l.Status)
	}
	if h.calendar.completed != 1 {
		t.Fatalf("open events completion calls = %d, want 1", h.calendar.completed)
	}
	if len(h.notifier.calls) != 1 || h.notifier.calls[0] != "sold" {
		t.Fatalf("notifications = %v, want one sold", h.notifier.calls)
	}

	transitions := h.acts.byType("property_status_changed")
	if len(transitions) != 1 {
		t.Fatalf("transition activities = %d, want exactly 1", len(transitions))
	}
	if transitions[0].Description != "Property status changed: available → sold" {
		t.Fatalf("transition description = %q", transitions[0].Description)
	}
}

func TestClosureCascadeBatchReadsLinkedLeads(t *testing.T) {
	h := newHarness()
	prop := h.newProperty(t, StatusAvailable, OfferSale)

	ownerLead := h.leads.add(leaddomain.StatusContacted)
	buyerLead := h.leads.add(leaddomain.StatusQualified)
	if _, err := h.store.LinkContact(context.Background(), prop.ID, ownerLead, RoleOwner); err != nil {
		t.Fatalf("link owner: %v", err)
	}
	// The owner is also linked as an interested buyer; the cascade must
	// still read it once.
	h.link(t, prop.ID, ownerLead)
	h.link(t, prop.ID, buyerLead)

	if _, err := h.svc.ChangeStatus(context.Background(), uuid.New(), prop.ID, StatusSold); err != nil {
		t.Fatalf("ChangeStatus: %v", err)
	}

	if h.leads.listCalls != 1 {
		t.Fatalf("lead batch reads = %d, want 1", h.leads.listCalls)
	}
	if len(h.leads.listedIDs) != 2 {
		t.Fatalf("batch read ids = %d, want 2 deduplicated", len(h.leads.listedIDs))
	}
	for _, id := range []uuid.UUID{ownerLead, buyerLead} {
		if l, _ := h.leads.Get(context.Background(), id); l.Status != leaddomain.StatusWon {
			t.Fatalf("lead %s = %q, want won", id, l.Status)
		}
	}
}

func TestClosureCascadePartialFailureContinues(t *testing.T) {
	h := newHarness()
	h.calendar.completeErr = errors.New("calendar store down")
	prop := h.newProperty(t, StatusAvailable, OfferRent)

	lead := h.leads.add(leaddomain.StatusNew)
	h.link(t, prop.ID, lead)

	if _, err := h.svc.ChangeStatus(context.Background(), uuid.New(), prop.ID, StatusRented); err != nil {
		t.Fatalf("cascade step failure must not fail the transition: %v", err)
	}

	if l, _ := h.leads.Get(context.Background(), lead); l.Status != leaddomain.StatusWon {
		t.Fatal("lead update must still run when event completion fails")
	}
	if len(h.notifier.calls) != 1 {
		t.Fatal("notification must still run when event completion fails")
	}
}

func TestReversalReopensLostLeadsOnly(t *testing.T) {
	h := newHarness()
	actor := uuid.New()
	prop := h.newProperty(t, StatusSold, OfferSale)

	lostLead := h.leads.add(leaddomain.StatusLost)
	wonLead := h.leads.add(leaddomain.StatusWon)
	h.link(t, prop.ID, lostLead)
	h.link(t, prop.ID, wonLead)

	if _, err := h.svc.ChangeStatus(context.Background(), actor, prop.ID, StatusAvailable); err != nil {
		t.Fatalf("ChangeStatus: %v", err)
	}

	if l, _ := h.leads.Get(context.Background(), lostLead); l.Status != leaddomain.StatusContacted {
		t.Fatalf("lost lead = %q, want contacted", l.Status)
	}
	if l, _ := h.leads.Get(context.Background(), wonLead); l.Status != leaddomain.StatusWon {
		t.Fatalf("won lead = %q, must be untouched", l.Status)
	}
}

func TestPendingDoesNotReopenLeads(t *testing.T) {
	h := newHarness()
	actor := uuid.New()
	prop := h.newProperty(t, StatusAvailable, OfferSale)

	lostLead := h.leads.add(leaddomain.StatusLost)
	h.link(t, prop.ID, lostLead)

	if _, err := h.svc.ChangeStatus(context.Background(), actor, prop.ID, StatusPending); err != nil {
		t.Fatalf("ChangeStatus: %v", err)
	}

	if l, _ := h.leads.Get(context.Background(), lostLead); l.Status != leaddomain.StatusLost {
		t.Fatalf("available → pending must not reopen lost leads, got %q", l.Status)
	}
	if h.calendar.pendingChecks != 1 {
		t.Fatalf("pending checks = %d, want 1", h.calendar.pendingChecks)
	}
}

func TestPendingToAvailableDoesNotReopenLeads(t *testing.T) {
	h := newHarness()
	actor := uuid.New()
	prop := h.newProperty(t, StatusPending, OfferSale)

	lostLead := h.leads.add(leaddomain.StatusLost)
	h.link(t, prop.ID, lostLead)

	if _, err := h.svc.ChangeStatus(context.Background(), actor, prop.ID, StatusAvailable); err != nil {
		t.Fatalf("ChangeStatus: %v", err)
	}

	if l, _ := h.leads.Get(context.Background(), lostLead); l.Status != leaddomain.StatusLost {
		t.Fatal("only sold/rented → available may reopen lost leads")
	}
}

func TestSameStatusIsNoOp(t *testing.T) {
	h := newHarness()
	prop := h.newProperty(t, StatusAvailable, OfferSale)

	if _, err := h.svc.ChangeStatus(context.Background(), uuid.New(), prop.ID, StatusAvailable); err != nil {
		t.Fatalf("ChangeStatus: %v", err)
	}

	if len(h.acts.byType("property_status_changed")) != 0 {
		t.Fatal("no transition activity when the status does not change")
	}
}

func TestTransitionActivityFailureSkipsCascades(t *testing.T) {
	h := newHarness()
	prop := h.newProperty(t, StatusAvailable, OfferSale)
	lead := h.leads.add(leaddomain.StatusContacted)
	h.link(t, prop.ID, lead)

	h.acts.appendErr = errors.New("activities table unavailable")

	_, err := h.svc.ChangeStatus(context.Background(), uuid.New(), prop.ID, StatusSold)
	if err == nil {
		t.Fatal("missing transition activity must surface an error")
	}
	if l, _ := h.leads.Get(context.Background(), lead); l.Status != leaddomain.StatusContacted {
		t.Fatal("cascades must not run when the transition activity cannot be written")
	}
}

func TestLinkPropertyToOwnerTagsIdempotently(t *testing.T) {
	h := newHarness()
	actor := uuid.New()
	prop := h.newProperty(t, StatusAvailable, OfferSale)
	owner := h.leads.add(leaddomain.StatusNew)

	for i := 0; i < 2; i++ {
		if _, err := h.svc.LinkPropertyToOwner(context.Background(), actor, prop.ID, owner); err != nil {
			t.Fatalf("LinkPropertyToOwner #%d: %v", i+1, err)
		}
	}

	l, _ := h.leads.Get(context.Background(), owner)
	n := 0
	for _, tag := range l.InterestTags {
		if tag == leaddomain.TagSeller {
			n++
		}
	}
	if n != 1 {
		t.Fatalf("Seller tag appears %d times, want exactly 1", n)
	}

	updated, _ := h.svc.Get(context.Background(), prop.ID)
	if updated.OwnerContactID == nil || *updated.OwnerContactID != owner {
		t.Fatal("owner reference not set")
	}
	if links, _ := h.svc.Links(context.Background(), prop.ID); len(links) != 1 {
		t.Fatalf("owner links = %d, want 1", len(links))
	}
}

func TestEnsureOwnerTagRentIsLandlord(t *testing.T) {
	h := newHarness()
	owner := h.leads.add(leaddomain.StatusNew)

	if err := h.svc.EnsureOwnerTag(context.Background(), uuid.New(), owner, OfferRent); err != nil {
		t.Fatalf("EnsureOwnerTag: %v", err)
	}

	l, _ := h.leads.Get(context.Background(), owner)
	if !l.HasTag(leaddomain.TagLandlord) {
		t.Fatal("rent owner must be tagged Landlord")
	}

	if err := h.svc.EnsureOwnerTag(context.Background(), uuid.New(), owner, "auction"); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("unknown offer type: got %v", err)
	}
}
