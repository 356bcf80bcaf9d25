// Package job defines the job record and the authoritative in-memory store.
// All job mutation flows through the Store; no other component touches a
// job's fields directly, which is what keeps the scheduler's due scan from
// racing an in-progress execution update.
package job

import (
	"time"

	"chime/internal/schedule"
)

// Job is a registered recurring job. NextRun, once set, is strictly in the
// future relative to the moment it was last computed. LastRun stays zero
// until the first execution.
type Job struct {
	ID        string
	Name      string
	Rule      schedule.Rule
	Active    bool
	NextRun   time.Time
	LastRun   time.Time
	CreatedAt time.Time
}

// Due reports whether the job should be dispatched at the given instant:
// active and NextRun at or before now.
func (j Job) Due(now time.Time) bool {
	return j.Active && !j.NextRun.After(now)
}
