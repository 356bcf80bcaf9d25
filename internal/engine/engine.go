// Package engine ties the job store, execution history, durable store, and
// event bus together behind the operations the presentation surfaces call.
// The scheduler loop is the only writer of LastRun/NextRun after creation;
// everything else mutates jobs through this package.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"chime/internal/eventbus"
	"chime/internal/history"
	"chime/internal/job"
	"chime/internal/schedule"
)

// DurableStore mirrors engine mutations into persistent storage. It is a
// superset of scheduler.Persister; the sqlite store implements both. A nil
// DurableStore means in-memory only.
type DurableStore interface {
	SaveJob(ctx context.Context, j job.Job) error
	DeleteJob(ctx context.Context, id string) error
	AppendExecution(ctx context.Context, r history.Record) error
}

// JobEvent is the payload for job.* events on the bus.
type JobEvent struct {
	JobID   string    `json:"job_id"`
	Name    string    `json:"name"`
	Active  bool      `json:"active"`
	NextRun time.Time `json:"next_run"`
}

// Engine exposes the job management operations.
type Engine struct {
	store   *job.Store
	history *history.Log
	durable DurableStore  // optional
	bus     *eventbus.Bus // optional
	logger  *slog.Logger
}

// Config holds the engine's dependencies.
type Config struct {
	Store   *job.Store   // required
	History *history.Log // required
	Durable DurableStore // optional
	Bus     *eventbus.Bus
	Logger  *slog.Logger
}

// New creates an engine.
func New(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:   cfg.Store,
		history: cfg.History,
		durable: cfg.Durable,
		bus:     cfg.Bus,
		logger:  logger,
	}
}

// CreateJob registers a new active job with its initial NextRun computed
// against the current time.
func (e *Engine) CreateJob(ctx context.Context, name string, rule schedule.Rule) (job.Job, error) {
	j, err := e.store.Create(name, rule)
	if err != nil {
		return job.Job{}, err
	}

	if e.durable != nil {
		if err := e.durable.SaveJob(ctx, j); err != nil {
			// Roll back so memory and disk cannot disagree about existence.
			e.store.Delete(j.ID)
			return job.Job{}, fmt.Errorf("engine: persist job: %w", err)
		}
	}

	e.publish(eventbus.TypeJobCreated, j)
	e.logger.Info("engine: job created", "job", j.Name, "rule", j.Rule.String(), "next_run", j.NextRun)
	return j, nil
}

// ListJobs returns all jobs, newest-first.
func (e *Engine) ListJobs() []job.Job {
	return e.store.List()
}

// GetJob returns the job with the given id.
func (e *Engine) GetJob(id string) (job.Job, error) {
	return e.store.Get(id)
}

// ToggleJob flips the job's active flag. A resumed job keeps its existing
// NextRun, so one that became overdue while paused fires on the next scan.
func (e *Engine) ToggleJob(ctx context.Context, id string) (job.Job, error) {
	cur, err := e.store.Get(id)
	if err != nil {
		return job.Job{}, err
	}

	j, err := e.store.SetActive(id, !cur.Active)
	if err != nil {
		return job.Job{}, err
	}

	if e.durable != nil {
		if err := e.durable.SaveJob(ctx, j); err != nil {
			e.logger.Error("engine: persist toggle", "job", j.Name, "error", err)
		}
	}

	e.publish(eventbus.TypeJobToggled, j)
	e.logger.Info("engine: job toggled", "job", j.Name, "active", j.Active)
	return j, nil
}

// DeleteJob removes the job. Unknown ids are a silent no-op.
func (e *Engine) DeleteJob(ctx context.Context, id string) error {
	removed := e.store.Delete(id)

	if e.durable != nil {
		if err := e.durable.DeleteJob(ctx, id); err != nil {
			return fmt.Errorf("engine: delete job: %w", err)
		}
	}

	if removed {
		e.publish(eventbus.TypeJobDeleted, job.Job{ID: id})
		e.logger.Info("engine: job deleted", "id", id)
	}
	return nil
}

// ListExecutions returns the retained execution records, newest-first.
func (e *Engine) ListExecutions() []history.Record {
	return e.history.List()
}

func (e *Engine) publish(eventType string, j job.Job) {
	if e.bus == nil {
		return
	}
	e.bus.Publish(eventbus.Event{
		Type: eventType,
		Data: JobEvent{JobID: j.ID, Name: j.Name, Active: j.Active, NextRun: j.NextRun},
	})
}
