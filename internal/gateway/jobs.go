package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"chime/internal/job"
	"chime/internal/schedule"
)

// jobJSON is a serializable job snapshot.
type jobJSON struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Recurrence json.RawMessage `json:"recurrence"`
	Active     bool            `json:"active"`
	NextRun    time.Time       `json:"next_run"`
	LastRun    *time.Time      `json:"last_run,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

func toJobJSON(j job.Job) jobJSON {
	// Encode cannot fail for a rule that passed Validate at creation.
	recurrence, _ := schedule.Encode(j.Rule)

	out := jobJSON{
		ID:         j.ID,
		Name:       j.Name,
		Recurrence: recurrence,
		Active:     j.Active,
		NextRun:    j.NextRun,
		CreatedAt:  j.CreatedAt,
	}
	if !j.LastRun.IsZero() {
		last := j.LastRun
		out.LastRun = &last
	}
	return out
}

// createJobRequest is the JSON body for POST /api/jobs.
type createJobRequest struct {
	Name       string          `json:"name"`
	Recurrence json.RawMessage `json:"recurrence"`
}

// handleCreateJob registers a new job. Validation failures return 400.
func (g *Gateway) handleCreateJob() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createJobRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
			return
		}
		if len(req.Recurrence) == 0 {
			writeError(w, http.StatusBadRequest, "recurrence is required")
			return
		}

		rule, err := schedule.Decode(req.Recurrence)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := rule.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		j, err := g.config.Engine.CreateJob(r.Context(), req.Name, rule)
		if err != nil {
			if errors.Is(err, job.ErrEmptyName) {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		writeJSON(w, http.StatusCreated, toJobJSON(j))
	}
}

// handleListJobs returns all jobs, newest-first.
func (g *Gateway) handleListJobs() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		jobs := g.config.Engine.ListJobs()
		out := make([]jobJSON, 0, len(jobs))
		for _, j := range jobs {
			out = append(out, toJobJSON(j))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// handleGetJob returns a single job by id.
func (g *Gateway) handleGetJob() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		j, err := g.config.Engine.GetJob(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, toJobJSON(j))
	}
}

// handleToggleJob flips a job between active and paused.
func (g *Gateway) handleToggleJob() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		j, err := g.config.Engine.ToggleJob(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			if errors.Is(err, job.ErrNotFound) {
				writeError(w, http.StatusNotFound, err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, toJobJSON(j))
	}
}

// handleDeleteJob removes a job. Deleting an unknown id still returns 204.
func (g *Gateway) handleDeleteJob() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := g.config.Engine.DeleteJob(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
