package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type testEvent struct {
	BaseEvent
	name string
}

func (e testEvent) EventName() string { return e.name }

func TestPublishFansOutToAllSubscribers(t *testing.T) {
	bus := NewInMemoryBus(nil)

	var wg sync.WaitGroup
	wg.Add(2)
	var mu sync.Mutex
	got := 0

	handler := HandlerFunc(func(ctx context.Context, event Event) error {
		mu.Lock()
		got++
		mu.Unlock()
		wg.Done()
		return nil
	})
	bus.Subscribe("leads:changed", handler)
	bus.Subscribe("leads:changed", handler)

	bus.Publish(context.Background(), testEvent{BaseEvent: NewBaseEvent(), name: "leads:changed"})

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handlers did not run")
	}

	mu.Lock()
	defer mu.Unlock()
	if got != 2 {
		t.Fatalf("handled = %d, want 2", got)
	}
}

func TestPublishIgnoresOtherTopics(t *testing.T) {
	bus := NewInMemoryBus(nil)

	called := make(chan struct{}, 1)
	bus.Subscribe("contacts:updated", HandlerFunc(func(ctx context.Context, event Event) error {
		called <- struct{}{}
		return nil
	}))

	bus.Publish(context.Background(), testEvent{BaseEvent: NewBaseEvent(), name: "leads:changed"})

	select {
	case <-called:
		t.Fatal("handler for a different topic must not run")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestPublishSyncReturnsFirstErrorAndRunsRemaining(t *testing.T) {
	bus := NewInMemoryBus(nil)

	wantErr := errors.New("boom")
	ran := 0
	bus.Subscribe("x", HandlerFunc(func(ctx context.Context, event Event) error {
		ran++
		return wantErr
	}))
	bus.Subscribe("x", HandlerFunc(func(ctx context.Context, event Event) error {
		ran++
		return nil
	}))

	err := bus.PublishSync(context.Background(), testEvent{BaseEvent: NewBaseEvent(), name: "x"})
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}
	if ran != 2 {
		t.Fatalf("ran = %d, want 2: a failing handler must not stop the rest", ran)
	}
}

func TestPublishRecoversHandlerPanic(t *testing.T) {
	bus := NewInMemoryBus(nil)

	panicked := make(chan struct{})
	bus.Subscribe("x", HandlerFunc(func(ctx context.Context, event Event) error {
		close(panicked)
		panic("handler bug")
	}))

	bus.Publish(context.Background(), testEvent{BaseEvent: NewBaseEvent(), name: "x"})

	select {
	case <-panicked:
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not run")
	}
	// Give the goroutine time to unwind; a missing recover would crash the test binary.
	time.Sleep(50 * time.Millisecond)
}
