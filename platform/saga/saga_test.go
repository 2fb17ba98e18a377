package saga

import (
	"context"
	"errors"
	"testing"
)

func TestRun_AbortStepStopsPipeline(t *testing.T) {
	boom := errors.New("insert failed")
	ran := []string{}

	p := New("lead.create", nil).
		Then("insert", func(ctx context.Context) error {
			ran = append(ran, "insert")
			return boom
		}).
		BestEffort("notify", func(ctx context.Context) error {
			ran = append(ran, "notify")
			return nil
		})

	err := p.Run(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected insert error, got %v", err)
	}
	if len(ran) != 1 || ran[0] != "insert" {
		t.Fatalf("expected only insert to run, ran %v", ran)
	}
}

func TestRun_BestEffortFailureDoesNotStopPipeline(t *testing.T) {
	ran := []string{}

	p := New("property.close", nil).
		Then("update", func(ctx context.Context) error {
			ran = append(ran, "update")
			return nil
		}).
		BestEffort("cascade-leads", func(ctx context.Context) error {
			ran = append(ran, "cascade-leads")
			return errors.New("one lead update failed")
		}).
		BestEffort("complete-tasks", func(ctx context.Context) error {
			ran = append(ran, "complete-tasks")
			return nil
		})

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(ran) != 3 {
		t.Fatalf("expected all 3 steps to run, ran %v", ran)
	}
}

func TestRun_EmptyPipeline(t *testing.T) {
	if err := New("noop", nil).Run(context.Background()); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}
