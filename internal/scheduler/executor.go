package scheduler

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"chime/internal/job"
)

// Outcome is the result of one execution attempt. Execute always returns
// one; failures and panics are captured, never propagated.
type Outcome struct {
	OK       bool
	Message  string
	Duration time.Duration
}

// Executor invokes job actions with panic recovery, an optional per-run
// timeout, and a trace span per execution.
type Executor struct {
	provider ActionProvider
	timeout  time.Duration
	tracer   trace.Tracer
}

// NewExecutor creates an executor. A zero timeout means runs are unbounded.
func NewExecutor(provider ActionProvider, timeout time.Duration) *Executor {
	return &Executor{
		provider: provider,
		timeout:  timeout,
		tracer:   otel.Tracer("chime/internal/scheduler"),
	}
}

// Execute runs the job's action and captures the result into an Outcome.
// Panics in the action are recovered and reported as failures.
func (e *Executor) Execute(ctx context.Context, j job.Job) (out Outcome) {
	start := time.Now()

	ctx, span := e.tracer.Start(ctx, "job.execute", trace.WithAttributes(
		attribute.String("job.id", j.ID),
		attribute.String("job.name", j.Name),
		attribute.String("job.rule", j.Rule.String()),
	))

	defer func() {
		if r := recover(); r != nil {
			out = Outcome{Message: fmt.Sprintf("panic: %v", r)}
		}
		out.Duration = time.Since(start)
		if !out.OK {
			span.SetStatus(codes.Error, out.Message)
		}
		span.End()
	}()

	action := e.provider.ActionFor(j)
	if action == nil {
		return Outcome{Message: "no action configured"}
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	if err := action(ctx); err != nil {
		return Outcome{Message: err.Error()}
	}
	return Outcome{OK: true}
}
