package gateway

import (
	"net/http"
	"time"

	"chime/internal/history"
)

// executionJSON is a serializable execution record.
type executionJSON struct {
	JobID   string    `json:"job_id"`
	JobName string    `json:"job_name"`
	Time    time.Time `json:"time"`
	OK      bool      `json:"ok"`
	Message string    `json:"message,omitempty"`
}

func toExecutionJSON(r history.Record) executionJSON {
	return executionJSON{
		JobID:   r.JobID,
		JobName: r.JobName,
		Time:    r.Time,
		OK:      r.OK,
		Message: r.Message,
	}
}

// handleListExecutions returns the retained execution records, newest-first.
func (g *Gateway) handleListExecutions() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		records := g.config.Engine.ListExecutions()
		out := make([]executionJSON, 0, len(records))
		for _, r := range records {
			out = append(out, toExecutionJSON(r))
		}
		writeJSON(w, http.StatusOK, out)
	}
}
