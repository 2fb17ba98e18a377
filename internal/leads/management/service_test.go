package management

import (
	"context"
	"errors"
	"sync"
	"testing"

	"estate_crm_backend/internal/activity"
	"estate_crm_backend/internal/contacts"
	"estate_crm_backend/internal/events"
	"estate_crm_backend/internal/leads/domain"
	"estate_crm_backend/internal/leads/repository"
	"estate_crm_backend/platform/apperr"

	"github.com/google/uuid"
)

// --- fakes ---

type fakeStore struct {
	mu      sync.Mutex
	leads   map[uuid.UUID]domain.Lead
	failSet map[string]error
}

func newFakeStore() *fakeStore {
	return &fakeStore{leads: map[uuid.UUID]domain.Lead{}, failSet: map[string]error{}}
}

func (f *fakeStore) Create(_ context.Context, p repository.CreateParams) (domain.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failSet["create"]; err != nil {
		return domain.Lead{}, err
	}
	l := domain.Lead{
		ID: uuid.New(), Name: p.Name, Email: p.Email, Phone: p.Phone,
		Status: p.Status, Priority: p.Priority, ContactStatus: p.ContactStatus,
		AgentID: p.AgentID, InterestTags: append([]string{}, p.InterestTags...),
		SaleBudgetBand: p.SaleBudgetBand, RentBudgetBand: p.RentBudgetBand,
	}
	f.leads[l.ID] = l
	return l, nil
}

func (f *fakeStore) GetByID(_ context.Context, id uuid.UUID) (domain.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.leads[id]
	if !ok {
		return domain.Lead{}, apperr.NotFound("lead not found")
	}
	return l, nil
}

func (f *fakeStore) FindByIdentity(_ context.Context, email, phone string, agentID uuid.UUID) (*domain.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.leads {
		if l.AgentID != agentID {
			continue
		}
		if email != "" && l.Email != nil && *l.Email == email {
			cp := l
			return &cp, nil
		}
		if phone != "" && l.Phone != nil && *l.Phone == phone {
			cp := l
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) UpdateStatus(_ context.Context, id uuid.UUID, status domain.Status, contactStatus string) (domain.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.leads[id]
	if !ok {
		return domain.Lead{}, apperr.NotFound("lead not found")
	}
	l.Status = status
	l.ContactStatus = contactStatus
	f.leads[id] = l
	return l, nil
}

func (f *fakeStore) AddInterestTag(_ context.Context, id uuid.UUID, tag string) (domain.Lead, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.leads[id]
	if !ok {
		return domain.Lead{}, false, apperr.NotFound("lead not found")
	}
	if l.HasTag(tag) {
		return l, false, nil
	}
	l.InterestTags = append(l.InterestTags, tag)
	f.leads[id] = l
	return l, true, nil
}

func (f *fakeStore) Update(_ context.Context, id uuid.UUID, p repository.UpdateParams) (domain.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.leads[id]
	if !ok {
		return domain.Lead{}, apperr.NotFound("lead not found")
	}
	if p.Name != nil {
		l.Name = *p.Name
	}
	f.leads[id] = l
	return l, nil
}

func (f *fakeStore) List(context.Context, repository.ListFilter, int, int) ([]domain.Lead, int, error) {
	return nil, 0, nil
}

func (f *fakeStore) ListByIDs(_ context.Context, ids []uuid.UUID) ([]domain.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Lead, 0, len(ids))
	for _, id := range ids {
		if l, ok := f.leads[id]; ok {
			out = append(out, l)
		}
	}
	return out, nil
}

type recordingBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *recordingBus) Publish(_ context.Context, e events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
}

func (b *recordingBus) PublishSync(ctx context.Context, e events.Event) error {
	b.Publish(ctx, e)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

func (b *recordingBus) names() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.events))
	for i, e := range b.events {
		out[i] = e.EventName()
	}
	return out
}

type fakeActivityLog struct {
	mu        sync.Mutex
	entries   []activity.CreateParams
	appendErr error
}

func (f *fakeActivityLog) Append(_ context.Context, p activity.CreateParams) (activity.Entry, error) {
	if f.appendErr != nil {
		return activity.Entry{}, f.appendErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, p)
	return activity.Entry{ID: uuid.New(), Type: p.Type, Description: p.Description}, nil
}

func (f *fakeActivityLog) Record(ctx context.Context, p activity.CreateParams) {
	_, _ = f.Append(ctx, p)
}

func (f *fakeActivityLog) byType(typ string) []activity.CreateParams {
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

type fakeContactStore struct {
	mu       sync.Mutex
	contacts map[uuid.UUID]contacts.Contact
}

func newFakeContactStore() *fakeContactStore {
	return &fakeContactStore{contacts: map[uuid.UUID]contacts.Contact{}}
}

func (f *fakeContactStore) Upsert(_ context.Context, p contacts.UpsertParams) (contacts.Contact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := contacts.Contact{
		ID: p.ID, Name: p.Name, Email: p.Email, Phone: p.Phone,
		StatusEffective: p.StatusEffective, ContactStatus: p.ContactStatus,
		BudgetMin: p.BudgetMin, BudgetMax: p.BudgetMax, AgentID: p.AgentID,
	}
	f.contacts[p.ID] = c
	return c, nil
}

func (f *fakeContactStore) GetByID(_ context.Context, id uuid.UUID) (contacts.Contact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.contacts[id]
	if !ok {
		return contacts.Contact{}, apperr.NotFound("contact not found")
	}
	return c, nil
}

func (f *fakeContactStore) FindByIdentity(context.Context, string, string) (*contacts.Contact, error) {
	return nil, nil
}

func (f *fakeContactStore) List(context.Context, contacts.ListFilter, int, int) ([]contacts.Contact, int, error) {
	return nil, 0, nil
}

type fakeScheduler struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeScheduler) ScheduleLeadFollowUps(context.Context, uuid.UUID, uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.err
}

type fakeNotifier struct {
	mu       sync.Mutex
	assigned int
	changed  int
}

func (f *fakeNotifier) LeadAssigned(context.Context, uuid.UUID, uuid.UUID, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.assigned++
}

func (f *fakeNotifier) LeadStatusChanged(context.Context, uuid.UUID, uuid.UUID, string, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.changed++
}

// --- harness ---

type harness struct {
	svc       *Service
	store     *fakeStore
	bus       *recordingBus
	log       *fakeActivityLog
	scheduler *fakeScheduler
	notifier  *fakeNotifier
}

func newHarness() *harness {
	store := newFakeStore()
	bus := &recordingBus{}
	alog := &fakeActivityLog{}
	sched := &fakeScheduler{}
	notif := &fakeNotifier{}
	syncer := contacts.NewService(newFakeContactStore(), bus, nil)

	return &harness{
		svc:       NewService(store, syncer, sched, alog, notif, bus, nil),
		store:     store,
		bus:       bus,
		log:       alog,
		scheduler: sched,
		notifier:  notif,
	}
}

func countByName(names []string, want string) int {
	n := 0
	for _, name := range names {
		if name == want {
			n++
		}
	}
	return n
}

// --- tests ---

func TestResolveOrCreateCreatesAndFansOut(t *testing.T) {
	h := newHarness()
	actor := uuid.New()

	lead, created, err := h.svc.ResolveOrCreate(context.Background(), actor, CreateParams{
		Name:  "Omar K",
		Email: "omar@example.com",
	})
	if err != nil {
		t.Fatalf("ResolveOrCreate: %v", err)
	}
	if !created {
		t.Fatal("expected a new lead")
	}
	if lead.Status != domain.StatusNew || lead.ContactStatus != domain.ContactStatusLead {
		t.Fatalf("new lead has status %q / contact_status %q", lead.Status, lead.ContactStatus)
	}
	if lead.AgentID != actor {
		t.Fatal("agent must be the authenticated actor")
	}

	names := h.bus.names()
	if countByName(names, events.TopicLeadsChanged) < 1 {
		t.Fatalf("expected leads:changed publish, got %v", names)
	}
	if countByName(names, events.TopicContactsUpdated) < 1 {
		t.Fatalf("expected contacts:updated publish, got %v", names)
	}
	if h.scheduler.calls != 1 {
		t.Fatalf("scheduler calls = %d, want 1", h.scheduler.calls)
	}
	if h.notifier.assigned != 1 {
		t.Fatalf("assignment notifications = %d, want 1", h.notifier.assigned)
	}
}

func TestResolveOrCreateDedupKeepsExisting(t *testing.T) {
	h := newHarness()
	actor := uuid.New()

	first, _, err := h.svc.ResolveOrCreate(context.Background(), actor, CreateParams{
		Name:  "Omar K",
		Email: "omar@example.com",
	})
	if err != nil {
		t.Fatalf("first create: %v", err)
	}

	second, created, err := h.svc.ResolveOrCreate(context.Background(), actor, CreateParams{
		Name:  "Completely Different Name",
		Email: "omar@example.com",
		Notes: "new submission data that must be discarded",
	})
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if created {
		t.Fatal("duplicate submission must not create a row")
	}
	if second.ID != first.ID {
		t.Fatalf("dedup returned %s, want existing %s", second.ID, first.ID)
	}
	if second.Name != "Omar K" {
		t.Fatalf("existing record must be kept verbatim, got name %q", second.Name)
	}
	if len(h.store.leads) != 1 {
		t.Fatalf("store has %d leads, want 1", len(h.store.leads))
	}

	merges := h.log.byType("lead_merged")
	if len(merges) != 1 {
		t.Fatalf("merge activities = %d, want exactly 1", len(merges))
	}
}

func TestResolveOrCreateDedupScopedToActorAgent(t *testing.T) {
	h := newHarness()
	agentA := uuid.New()
	agentB := uuid.New()

	first, _, err := h.svc.ResolveOrCreate(context.Background(), agentA, CreateParams{
		Name:  "Omar K",
		Email: "omar@example.com",
	})
	if err != nil {
		t.Fatalf("agent A create: %v", err)
	}

	second, created, err := h.svc.ResolveOrCreate(context.Background(), agentB, CreateParams{
		Name:  "Omar K",
		Email: "omar@example.com",
	})
	if err != nil {
		t.Fatalf("agent B create: %v", err)
	}
	if !created {
		t.Fatal("another agent's lead must not absorb this agent's enquiry")
	}
	if second.ID == first.ID {
		t.Fatal("agent B must get their own lead, not agent A's")
	}
	if second.AgentID != agentB {
		t.Fatalf("agent B's lead belongs to %s, want %s", second.AgentID, agentB)
	}
	if len(h.store.leads) != 2 {
		t.Fatalf("store has %d leads, want 2 (one per agent)", len(h.store.leads))
	}
}

func TestResolveOrCreateValidation(t *testing.T) {
	h := newHarness()

	_, _, err := h.svc.ResolveOrCreate(context.Background(), uuid.New(), CreateParams{Name: "No Identity"})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("missing identity: got %v", err)
	}

	_, _, err = h.svc.ResolveOrCreate(context.Background(), uuid.New(), CreateParams{Email: "x@y.com"})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("missing name: got %v", err)
	}

	if len(h.store.leads) != 0 {
		t.Fatal("validation failures must not write")
	}
}

func TestResolveOrCreateDerivedFailureDoesNotFailCreate(t *testing.T) {
	h := newHarness()
	h.scheduler.err = errors.New("calendar store down")

	_, created, err := h.svc.ResolveOrCreate(context.Background(), uuid.New(), CreateParams{
		Name:  "Sara M",
		Phone: "+971501234567",
	})
	if err != nil {
		t.Fatalf("derived failure must not fail create: %v", err)
	}
	if !created {
		t.Fatal("lead should be created")
	}
}

func TestResolveOrCreatePrimaryFailureAborts(t *testing.T) {
	h := newHarness()
	h.store.failSet["create"] = errors.New("constraint violation")

	_, _, err := h.svc.ResolveOrCreate(context.Background(), uuid.New(), CreateParams{
		Name:  "Sara M",
		Email: "sara@example.com",
	})
	if err == nil {
		t.Fatal("primary write failure must surface")
	}
	if h.scheduler.calls != 0 {
		t.Fatal("no derived writes after primary failure")
	}
	if h.notifier.assigned != 0 {
		t.Fatal("no notification after primary failure")
	}
}

func TestChangeStatusMapsContactStatus(t *testing.T) {
	h := newHarness()
	actor := uuid.New()
	lead, _, _ := h.svc.ResolveOrCreate(context.Background(), actor, CreateParams{
		Name: "Omar K", Email: "omar@example.com",
	})

	for _, tc := range []struct {
		status domain.Status
		want   string
	}{
		{domain.StatusContacted, domain.ContactStatusContacted},
		{domain.StatusQualified, domain.ContactStatusContacted},
		{domain.StatusNegotiating, domain.ContactStatusContacted},
		{domain.StatusWon, domain.ContactStatusActiveClient},
	} {
		updated, err := h.svc.ChangeStatus(context.Background(), actor, lead.ID, tc.status)
		if err != nil {
			t.Fatalf("ChangeStatus(%s): %v", tc.status, err)
		}
		if updated.ContactStatus != tc.want {
			t.Fatalf("status %q maps to %q, want %q", tc.status, updated.ContactStatus, tc.want)
		}
	}
}

func TestChangeStatusWonWritesConversionActivity(t *testing.T) {
	h := newHarness()
	actor := uuid.New()
	lead, _, _ := h.svc.ResolveOrCreate(context.Background(), actor, CreateParams{
		Name: "Omar K", Email: "omar@example.com",
	})

	if _, err := h.svc.ChangeStatus(context.Background(), actor, lead.ID, domain.StatusWon); err != nil {
		t.Fatalf("ChangeStatus: %v", err)
	}

	conversions := h.log.byType("lead_converted")
	if len(conversions) != 1 {
		t.Fatalf("conversion activities = %d, want 1", len(conversions))
	}
	if conversions[0].Description != "Lead converted to Active Client - Won" {
		t.Fatalf("conversion description = %q", conversions[0].Description)
	}
}

func TestChangeStatusConversionActivityFailureAbortsTransition(t *testing.T) {
	h := newHarness()
	actor := uuid.New()
	lead, _, _ := h.svc.ResolveOrCreate(context.Background(), actor, CreateParams{
		Name: "Omar K", Email: "omar@example.com",
	})

	h.log.appendErr = errors.New("activities table unavailable")

	_, err := h.svc.ChangeStatus(context.Background(), actor, lead.ID, domain.StatusLost)
	if err == nil {
		t.Fatal("transition must not be recorded without its conversion activity")
	}

	current, _ := h.svc.Get(context.Background(), lead.ID)
	if current.Status == domain.StatusLost {
		t.Fatal("status must not change when the conversion activity fails")
	}
}

func TestChangeStatusRejectsUnknownStatus(t *testing.T) {
	h := newHarness()
	_, err := h.svc.ChangeStatus(context.Background(), uuid.New(), uuid.New(), domain.Status("archived"))
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("unknown status: got %v", err)
	}
}

func TestEnsureInterestTagIsIdempotent(t *testing.T) {
	h := newHarness()
	actor := uuid.New()
	lead, _, _ := h.svc.ResolveOrCreate(context.Background(), actor, CreateParams{
		Name: "Omar K", Email: "omar@example.com",
	})

	for i := 0; i < 2; i++ {
		if _, err := h.svc.EnsureInterestTag(context.Background(), actor, lead.ID, domain.TagSeller); err != nil {
			t.Fatalf("EnsureInterestTag #%d: %v", i+1, err)
		}
	}

	current, _ := h.svc.Get(context.Background(), lead.ID)
	n := 0
	for _, tag := range current.InterestTags {
		if tag == domain.TagSeller {
			n++
		}
	}
	if n != 1 {
		t.Fatalf("Seller tag appears %d times, want exactly 1", n)
	}

	tagged := h.log.byType("lead_tagged")
	if len(tagged) != 1 {
		t.Fatalf("tag activities = %d, want 1 (second call is a no-op)", len(tagged))
	}
}

func TestEnsureInterestTagPublishesLeadAndContactTopics(t *testing.T) {
	h := newHarness()
	actor := uuid.New()
	lead, _, _ := h.svc.ResolveOrCreate(context.Background(), actor, CreateParams{
		Name: "Omar K", Email: "omar@example.com",
	})

	before := h.bus.names()
	if _, err := h.svc.EnsureInterestTag(context.Background(), actor, lead.ID, domain.TagSeller); err != nil {
		t.Fatalf("EnsureInterestTag: %v", err)
	}

	after := h.bus.names()
	if got := countByName(after, events.TopicLeadsChanged) - countByName(before, events.TopicLeadsChanged); got != 1 {
		t.Fatalf("tag write published leads:changed %d times, want 1", got)
	}
	if got := countByName(after, events.TopicContactsUpdated) - countByName(before, events.TopicContactsUpdated); got != 1 {
		t.Fatalf("tag write published contacts:updated %d times, want 1", got)
	}

	// The no-op repeat publishes nothing at all.
	beforeRepeat := h.bus.names()
	if _, err := h.svc.EnsureInterestTag(context.Background(), actor, lead.ID, domain.TagSeller); err != nil {
		t.Fatalf("repeat EnsureInterestTag: %v", err)
	}
	if got := len(h.bus.names()) - len(beforeRepeat); got != 0 {
		t.Fatalf("no-op tag repeat published %d events, want 0", got)
	}
}
