package gateway

import (
	"net/http"
	"time"

	"chime/internal/job"
)

// StatusResponse is the JSON response for GET /status.
type StatusResponse struct {
	Uptime     time.Duration `json:"uptime_seconds"`
	Jobs       int           `json:"jobs"`
	ActiveJobs int           `json:"active_jobs"`
	InFlight   int           `json:"in_flight"`
	NextRun    *time.Time    `json:"next_run,omitempty"`
}

// handleStatus returns an http.HandlerFunc for GET /status.
func (g *Gateway) handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		jobs := g.config.Engine.ListJobs()

		resp := StatusResponse{
			Uptime: time.Since(g.startedAt).Truncate(time.Second),
			Jobs:   len(jobs),
		}
		if g.config.Loop != nil {
			resp.InFlight = g.config.Loop.InFlight()
		}
		if next := earliestNextRun(jobs); !next.IsZero() {
			resp.NextRun = &next
		}
		for _, j := range jobs {
			if j.Active {
				resp.ActiveJobs++
			}
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

// earliestNextRun returns the soonest NextRun among active jobs, or the
// zero time when none are active.
func earliestNextRun(jobs []job.Job) time.Time {
	var next time.Time
	for _, j := range jobs {
		if !j.Active {
			continue
		}
		if next.IsZero() || j.NextRun.Before(next) {
			next = j.NextRun
		}
	}
	return next
}
