// Package saga coordinates multi-step operations that span independent store
// calls without an atomic commit. A pipeline runs an ordered list of steps;
// each step declares whether its failure aborts the remaining steps or is
// logged and skipped. This makes the "primary write is authoritative, derived
// writes are best-effort" policy explicit and testable instead of scattering
// it across ad hoc error handling.
package saga

import (
	"context"

	"estate_crm_backend/platform/logger"
)

// Policy decides what a step failure does to the rest of the pipeline.
type Policy int

const (
	// Abort stops the pipeline and returns the step error to the caller.
	Abort Policy = iota
	// Continue logs the step error and proceeds with the remaining steps.
	Continue
)

// Step is a single unit of work within a pipeline.
type Step struct {
	Name    string
	OnError Policy
	Run     func(ctx context.Context) error
}

// Pipeline is an ordered sequence of steps sharing a logical operation name.
type Pipeline struct {
	name  string
	log   *logger.Logger
	steps []Step
}

// New creates an empty pipeline for the named operation.
func New(name string, log *logger.Logger) *Pipeline {
	return &Pipeline{name: name, log: log}
}

// Then appends an authoritative step: its failure aborts the pipeline.
func (p *Pipeline) Then(name string, run func(ctx context.Context) error) *Pipeline {
	p.steps = append(p.steps, Step{Name: name, OnError: Abort, Run: run})
	return p
}

// BestEffort appends a step whose failure is logged and skipped.
func (p *Pipeline) BestEffort(name string, run func(ctx context.Context) error) *Pipeline {
	p.steps = append(p.steps, Step{Name: name, OnError: Continue, Run: run})
	return p
}

// Run executes the steps in order. It returns the first Abort-step error, or
// nil when all authoritative steps succeeded regardless of best-effort
// failures.
func (p *Pipeline) Run(ctx context.Context) error {
	for _, step := range p.steps {
		err := step.Run(ctx)
		if err == nil {
			continue
		}
		if step.OnError == Abort {
			return err
		}
		if p.log != nil {
			p.log.DerivedWriteFailed(p.name, step.Name, err)
		}
	}
	return nil
}
