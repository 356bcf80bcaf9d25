package maintenance

import (
	"context"
	"log/slog"
	"time"
)

// ExecutionStore is the subset of the sqlite store needed by maintenance
// tasks. Defined here to avoid a dependency on the storage package.
type ExecutionStore interface {
	PruneExecutions(ctx context.Context, olderThan time.Time) (int64, error)
	Checkpoint(ctx context.Context) error
}

// PruneTask deletes execution rows older than the retention window. The
// in-memory execution log is capped separately; this keeps the durable
// history from growing without bound.
type PruneTask struct {
	Store        ExecutionStore
	Retention    time.Duration
	Logger       *slog.Logger
	ScheduleExpr string // empty = default "0 * * * *"
}

// Compile-time interface check.
var _ Task = (*PruneTask)(nil)

// Name implements Task.
func (t *PruneTask) Name() string { return "execution_prune" }

// Schedule implements Task.
func (t *PruneTask) Schedule() string {
	if t.ScheduleExpr != "" {
		return t.ScheduleExpr
	}
	return "0 * * * *"
}

// Run prunes executions older than the retention window.
func (t *PruneTask) Run(ctx context.Context) error {
	pruned, err := t.Store.PruneExecutions(ctx, time.Now().Add(-t.Retention))
	if err != nil {
		return err
	}
	if pruned > 0 {
		t.Logger.Info("maintenance: pruned old executions", "count", pruned)
	}
	return nil
}

// CheckpointTask truncates the sqlite WAL so it does not grow unbounded on
// a long-running daemon.
type CheckpointTask struct {
	Store        ExecutionStore
	Logger       *slog.Logger
	ScheduleExpr string // empty = default "30 3 * * *"
}

// Compile-time interface check.
var _ Task = (*CheckpointTask)(nil)

// Name implements Task.
func (t *CheckpointTask) Name() string { return "wal_checkpoint" }

// Schedule implements Task.
func (t *CheckpointTask) Schedule() string {
	if t.ScheduleExpr != "" {
		return t.ScheduleExpr
	}
	return "30 3 * * *"
}

// Run truncates the WAL.
func (t *CheckpointTask) Run(ctx context.Context) error {
	if err := t.Store.Checkpoint(ctx); err != nil {
		return err
	}
	t.Logger.Debug("maintenance: wal checkpoint complete")
	return nil
}
