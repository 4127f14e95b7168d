package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/htmlephant/htmlephant/internal/model"
)

// mockStep is a test helper that implements the Step interface.
type mockStep struct {
	name      string
	doFunc    func(ctx context.Context, report *model.AuditReport) error
	callCount int
}

// Do implements Step.Do.
func (m *mockStep) Do(ctx context.Context, report *model.AuditReport) error {
	m.callCount++
	if m.doFunc != nil {
		return m.doFunc(ctx, report)
	}
	return nil
}

// Name implements Step.Name.
func (m *mockStep) Name() string {
	return m.name
}

// TestPipelineNew tests the Pipeline constructor.
func TestPipelineNew(t *testing.T) {
	t.Parallel()

	t.Run("creates pipeline with default settings", func(t *testing.T) {
		t.Parallel()

		p := New()

		if p == nil {
			t.Fatal("expected non-nil pipeline")
		}
		if p.StepCount() != 0 {
			t.Errorf("expected 0 steps, got %d", p.StepCount())
		}
	})

	t.Run("applies WithContinueOnError option", func(t *testing.T) {
		t.Parallel()

		p := New(WithContinueOnError(true))

		if !p.continueOnError {
			t.Error("expected continueOnError to be true")
		}
	})
}

// TestPipelineAddStep tests adding steps to the pipeline.
func TestPipelineAddStep(t *testing.T) {
	t.Parallel()

	t.Run("adds single step", func(t *testing.T) {
		t.Parallel()

		p := New()
		p.AddStep(&mockStep{name: "test-step"})

		if p.StepCount() != 1 {
			t.Errorf("expected 1 step, got %d", p.StepCount())
		}
	})

	t.Run("adds multiple steps with AddSteps", func(t *testing.T) {
		t.Parallel()

		p := New()
		p.AddSteps(&mockStep{name: "one"}, &mockStep{name: "two"})

		names := p.StepNames()
		if len(names) != 2 || names[0] != "one" || names[1] != "two" {
			t.Errorf("StepNames() = %v, want [one two]", names)
		}
	})
}

// TestPipelineExecute tests sequential step execution.
func TestPipelineExecute(t *testing.T) {
	t.Parallel()

	t.Run("executes steps in order", func(t *testing.T) {
		t.Parallel()

		var order []string
		makeStep := func(name string) *mockStep {
			return &mockStep{
				name: name,
				doFunc: func(_ context.Context, _ *model.AuditReport) error {
					order = append(order, name)
					return nil
				},
			}
		}

		p := New()
		p.AddSteps(makeStep("first"), makeStep("second"), makeStep("third"))

		report := model.NewAuditReport("https://example.com/sitemap.xml")
		if err := p.Execute(context.Background(), report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(order) != 3 || order[0] != "first" || order[2] != "third" {
			t.Errorf("execution order = %v", order)
		}
		if len(report.PerformedSteps) != 3 {
			t.Errorf("PerformedSteps = %v, want 3 entries", report.PerformedSteps)
		}
	})

	t.Run("stops on first error by default", func(t *testing.T) {
		t.Parallel()

		failing := &mockStep{
			name: "failing",
			doFunc: func(_ context.Context, _ *model.AuditReport) error {
				return errors.New("boom")
			},
		}
		next := &mockStep{name: "next"}

		p := New()
		p.AddSteps(failing, next)

		report := model.NewAuditReport("https://example.com/sitemap.xml")
		if err := p.Execute(context.Background(), report); err == nil {
			t.Error("expected error from failing step")
		}
		if next.callCount != 0 {
			t.Error("expected subsequent step to be skipped")
		}
		if !report.Error || report.ErrorMessage != "boom" {
			t.Errorf("report error = %v %q, want recorded failure", report.Error, report.ErrorMessage)
		}
	})

	t.Run("continues after error when configured", func(t *testing.T) {
		t.Parallel()

		failing := &mockStep{
			name: "failing",
			doFunc: func(_ context.Context, _ *model.AuditReport) error {
				return errors.New("boom")
			},
		}
		next := &mockStep{name: "next"}

		p := New(WithContinueOnError(true))
		p.AddSteps(failing, next)

		report := model.NewAuditReport("https://example.com/sitemap.xml")
		if err := p.Execute(context.Background(), report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if next.callCount != 1 {
			t.Error("expected subsequent step to run")
		}
	})

	t.Run("cancelled context marks report as timed out", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		step := &mockStep{name: "never-runs"}
		p := New()
		p.AddStep(step)

		report := model.NewAuditReport("https://example.com/sitemap.xml")
		if err := p.Execute(ctx, report); !errors.Is(err, context.Canceled) {
			t.Errorf("Execute() = %v, want context.Canceled", err)
		}
		if !report.TimedOut {
			t.Error("expected report to be marked timed out")
		}
		if step.callCount != 0 {
			t.Error("expected step not to run after cancellation")
		}
	})
}
