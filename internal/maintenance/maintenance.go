// Package maintenance runs periodic housekeeping tasks such as pruning old
// execution rows and truncating the sqlite WAL. These are internal chores on
// cron expressions, unrelated to the user-facing recurrence rules the
// scheduling engine evaluates.
package maintenance

import "context"

// Task defines a periodic housekeeping task.
type Task interface {
	// Name returns a unique identifier for this task (used for logging and dedup).
	Name() string

	// Schedule returns a 5-field cron expression (e.g., "*/5 * * * *").
	Schedule() string

	// Run executes the task. Implementations should check ctx.Done() for
	// graceful cancellation.
	Run(ctx context.Context) error
}
