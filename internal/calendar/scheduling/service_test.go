package scheduling

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"estate_crm_backend/internal/activity"
	"estate_crm_backend/internal/calendar"
	"estate_crm_backend/internal/events"
	"estate_crm_backend/platform/apperr"

	"github.com/google/uuid"
)

type fakeStore struct {
	mu        sync.Mutex
	events    map[uuid.UUID]calendar.Event
	failTitle string
}

func newFakeStore() *fakeStore {
	return &fakeStore{events: map[uuid.UUID]calendar.Event{}}
}

func (f *fakeStore) Create(_ context.Context, p calendar.CreateParams) (calendar.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failTitle != "" && p.Title == f.failTitle {
		return calendar.Event{}, errors.New("store rejected " + p.Title)
	}
	e := calendar.Event{
		ID: uuid.New(), Title: p.Title, Description: p.Description, Type: p.Type,
		Status: calendar.StatusScheduled, DueAt: p.DueAt,
		LeadID: p.LeadID, PropertyID: p.PropertyID, AgentID: p.AgentID,
	}
	f.events[e.ID] = e
	return e, nil
}

func (f *fakeStore) GetByID(_ context.Context, id uuid.UUID) (calendar.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.events[id]
	if !ok {
		return calendar.Event{}, apperr.NotFound("calendar event not found")
	}
	return e, nil
}

func (f *fakeStore) List(context.Context, calendar.ListFilter, int, int) ([]calendar.Event, error) {
	return nil, nil
}

func (f *fakeStore) SetStatus(_ context.Context, id uuid.UUID, status string) (calendar.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.events[id]
	if !ok {
		return calendar.Event{}, apperr.NotFound("calendar event not found")
	}
	e.Status = status
	f.events[id] = e
	return e, nil
}

func (f *fakeStore) CompleteOpenForProperty(_ context.Context, propertyID uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for id, e := range f.events {
		if e.PropertyID != nil && *e.PropertyID == propertyID && e.Status == calendar.StatusScheduled {
			e.Status = calendar.StatusCompleted
			f.events[id] = e
			n++
		}
	}
	return n, nil
}

type fakeActivities struct {
	mu      sync.Mutex
	entries []activity.CreateParams
}

func (f *fakeActivities) Record(_ context.Context, p activity.CreateParams) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, p)
}

type fakeNotifier struct{ viewings int }

func (f *fakeNotifier) ViewingScheduled(context.Context, uuid.UUID, uuid.UUID, time.Time) {
	f.viewings++
}

type fakeReminders struct {
	mu       sync.Mutex
	enqueued []time.Time
	err      error
}

func (f *fakeReminders) EnqueueEventReminder(_ context.Context, _ uuid.UUID, remindAt time.Time) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enqueued = append(f.enqueued, remindAt)
	return nil
}

type nopBus struct{}

func (nopBus) Publish(context.Context, events.Event)           {}
func (nopBus) PublishSync(context.Context, events.Event) error { return nil }
func (nopBus) Subscribe(string, events.Handler)                {}

func TestPlanFollowUpsIsDeterministic(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	a := PlanFollowUps(now)
	b := PlanFollowUps(now)

	if len(a) != 4 {
		t.Fatalf("plan has %d entries, want 4", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("plan not deterministic at %d: %+v vs %+v", i, a[i], b[i])
		}
	}

	wantOffsets := []time.Duration{15 * time.Minute, 2 * time.Hour, 24 * time.Hour, 72 * time.Hour}
	for i, p := range a {
		if got := p.DueAt.Sub(now); got != wantOffsets[i] {
			t.Fatalf("entry %d offset = %v, want %v", i, got, wantOffsets[i])
		}
	}
}

func newService(store *fakeStore, acts *fakeActivities, reminders *fakeReminders) *Service {
	return NewService(store, acts, &fakeNotifier{}, reminders, nopBus{}, nil)
}

func TestScheduleLeadFollowUpsCreatesLadder(t *testing.T) {
	store := newFakeStore()
	acts := &fakeActivities{}
	reminders := &fakeReminders{}
	svc := newService(store, acts, reminders)

	leadID, agentID := uuid.New(), uuid.New()
	if err := svc.ScheduleLeadFollowUps(context.Background(), leadID, agentID); err != nil {
		t.Fatalf("ScheduleLeadFollowUps: %v", err)
	}

	if len(store.events) != 4 {
		t.Fatalf("created %d events, want 4", len(store.events))
	}
	for _, e := range store.events {
		if e.LeadID == nil || *e.LeadID != leadID {
			t.Fatalf("event %q missing lead back-reference", e.Title)
		}
		if e.AgentID != agentID {
			t.Fatalf("event %q missing agent back-reference", e.Title)
		}
		if e.Status != "scheduled" {
			t.Fatalf("event %q status = %q, want scheduled", e.Title, e.Status)
		}
	}
	if len(acts.entries) != 1 {
		t.Fatalf("summary activities = %d, want 1", len(acts.entries))
	}
	if len(reminders.enqueued) != 4 {
		t.Fatalf("reminders = %d, want 4", len(reminders.enqueued))
	}
}

func TestScheduleLeadFollowUpsPartialFailureContinues(t *testing.T) {
	store := newFakeStore()
	store.failTitle = "Second follow-up"
	acts := &fakeActivities{}
	svc := newService(store, acts, &fakeReminders{})

	if err := svc.ScheduleLeadFollowUps(context.Background(), uuid.New(), uuid.New()); err != nil {
		t.Fatalf("partial failure must not abort the batch: %v", err)
	}

	if len(store.events) != 3 {
		t.Fatalf("created %d events, want 3 (one rejected)", len(store.events))
	}
	if len(acts.entries) != 1 || acts.entries[0].Description != "Auto-created 3 follow-up tasks for new lead" {
		t.Fatalf("summary entry = %+v", acts.entries)
	}
}

func TestReminderFailureIsSwallowed(t *testing.T) {
	store := newFakeStore()
	reminders := &fakeReminders{err: errors.New("redis down")}
	svc := newService(store, &fakeActivities{}, reminders)

	if err := svc.ScheduleLeadFollowUps(context.Background(), uuid.New(), uuid.New()); err != nil {
		t.Fatalf("reminder failure must not fail scheduling: %v", err)
	}
	if len(store.events) != 4 {
		t.Fatalf("created %d events, want 4", len(store.events))
	}
}

func TestCompleteEventViewingWritesActivity(t *testing.T) {
	store := newFakeStore()
	acts := &fakeActivities{}
	svc := newService(store, acts, &fakeReminders{})

	actor := uuid.New()
	viewing, err := svc.ScheduleViewing(context.Background(), actor, ViewingParams{
		DueAt: time.Now().Add(24 * time.Hour),
	})
	if err != nil {
		t.Fatalf("ScheduleViewing: %v", err)
	}

	completed, err := svc.CompleteEvent(context.Background(), actor, viewing.ID)
	if err != nil {
		t.Fatalf("CompleteEvent: %v", err)
	}
	if completed.Status != calendar.StatusCompleted {
		t.Fatalf("status = %q, want completed", completed.Status)
	}

	found := false
	for _, e := range acts.entries {
		if e.Type == "viewing_completed" {
			found = true
		}
	}
	if !found {
		t.Fatal("completed viewing must append an activity entry")
	}
}

func TestCompleteEventNonViewingNoActivity(t *testing.T) {
	store := newFakeStore()
	acts := &fakeActivities{}
	svc := newService(store, acts, &fakeReminders{})

	agentID := uuid.New()
	if err := svc.SchedulePropertyPendingCheck(context.Background(), uuid.New(), agentID); err != nil {
		t.Fatalf("SchedulePropertyPendingCheck: %v", err)
	}

	var taskID uuid.UUID
	for id := range store.events {
		taskID = id
	}
	if _, err := svc.CompleteEvent(context.Background(), agentID, taskID); err != nil {
		t.Fatalf("CompleteEvent: %v", err)
	}

	for _, e := range acts.entries {
		if e.Type == "viewing_completed" {
			t.Fatal("task completion must not produce a viewing activity")
		}
	}
}

func TestCompleteOpenForProperty(t *testing.T) {
	store := newFakeStore()
	svc := newService(store, &fakeActivities{}, &fakeReminders{})

	propertyID, agentID := uuid.New(), uuid.New()
	if err := svc.SchedulePropertyPendingCheck(context.Background(), propertyID, agentID); err != nil {
		t.Fatalf("SchedulePropertyPendingCheck: %v", err)
	}

	n, err := svc.CompleteOpenForProperty(context.Background(), propertyID)
	if err != nil {
		t.Fatalf("CompleteOpenForProperty: %v", err)
	}
	if n != 1 {
		t.Fatalf("closed %d events, want 1", n)
	}

	n, err = svc.CompleteOpenForProperty(context.Background(), propertyID)
	if err != nil || n != 0 {
		t.Fatalf("second pass closed %d (err %v), want 0", n, err)
	}
}
