package mcp

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	mcplib "github.com/mark3labs/mcp-go/mcp"

	"chime/internal/engine"
	"chime/internal/history"
	"chime/internal/job"
)

func newTestServer(t *testing.T) (*Server, *engine.Engine) {
	t.Helper()

	eng := engine.New(engine.Config{
		Store:   job.NewStore(),
		History: history.NewLog(10),
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return NewServer(eng, "test"), eng
}

func callRequest(name string, args map[string]any) mcplib.CallToolRequest {
	req := mcplib.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

// resultText extracts the text of the first content block.
func resultText(t *testing.T, res *mcplib.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatal("result has no content")
	}
	text, ok := res.Content[0].(mcplib.TextContent)
	if !ok {
		t.Fatalf("unexpected content type %T", res.Content[0])
	}
	return text.Text
}

func TestCreateJob_Daily(t *testing.T) {
	t.Parallel()

	s, eng := newTestServer(t)

	res, err := s.handleCreateJob(context.Background(), callRequest("chime_create_job", map[string]any{
		"name":   "nightly backup",
		"kind":   "daily",
		"hour":   2,
		"minute": 30,
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.IsError {
		t.Fatalf("tool error: %s", resultText(t, res))
	}
	if !strings.Contains(resultText(t, res), "nightly backup") {
		t.Errorf("result should name the job: %s", resultText(t, res))
	}

	jobs := eng.ListJobs()
	if len(jobs) != 1 {
		t.Fatalf("len(jobs) = %d, want 1", len(jobs))
	}
	if !jobs[0].Active {
		t.Error("created job should be active")
	}
}

func TestCreateJob_Invalid(t *testing.T) {
	t.Parallel()

	s, eng := newTestServer(t)

	tests := []struct {
		name string
		args map[string]any
	}{
		{"missing name", map[string]any{"kind": "hourly", "minute": 0}},
		{"unknown kind", map[string]any{"name": "x", "kind": "fortnightly", "minute": 0}},
		{"minute out of range", map[string]any{"name": "x", "kind": "hourly", "minute": 99}},
		{"weekly without weekday", map[string]any{"name": "x", "kind": "weekly", "hour": 9, "minute": 0}},
		{"weekday out of range", map[string]any{"name": "x", "kind": "weekly", "hour": 9, "minute": 0, "weekday": 7}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := s.handleCreateJob(context.Background(), callRequest("chime_create_job", tt.args))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !res.IsError {
				t.Errorf("expected tool error, got: %s", resultText(t, res))
			}
		})
	}
	if len(eng.ListJobs()) != 0 {
		t.Error("no job should have been created")
	}
}

func TestToggleJob(t *testing.T) {
	t.Parallel()

	s, eng := newTestServer(t)

	res, err := s.handleCreateJob(context.Background(), callRequest("chime_create_job", map[string]any{
		"name": "pausable", "kind": "hourly", "minute": 5,
	}))
	if err != nil || res.IsError {
		t.Fatalf("create failed: %v %v", err, res)
	}
	id := eng.ListJobs()[0].ID

	res, err = s.handleToggleJob(context.Background(), callRequest("chime_toggle_job", map[string]any{"id": id}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.IsError {
		t.Fatalf("tool error: %s", resultText(t, res))
	}
	if !strings.Contains(resultText(t, res), "paused") {
		t.Errorf("result = %s, want paused", resultText(t, res))
	}
	if eng.ListJobs()[0].Active {
		t.Error("job should be paused")
	}
}

func TestToggleJob_Unknown(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t)

	res, err := s.handleToggleJob(context.Background(), callRequest("chime_toggle_job", map[string]any{"id": "nope"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.IsError {
		t.Error("expected tool error for unknown id")
	}
}

func TestDeleteJob_Idempotent(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t)

	for range 2 {
		res, err := s.handleDeleteJob(context.Background(), callRequest("chime_delete_job", map[string]any{"id": "ghost"}))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.IsError {
			t.Errorf("delete of unknown id should succeed: %s", resultText(t, res))
		}
	}
}

func TestListJobs_Empty(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t)

	res, err := s.handleListJobs(context.Background(), callRequest("chime_list_jobs", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := resultText(t, res); got != "No jobs configured" {
		t.Errorf("result = %q", got)
	}
}

func TestListExecutions_Empty(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t)

	res, err := s.handleListExecutions(context.Background(), callRequest("chime_list_executions", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := resultText(t, res); got != "No executions recorded" {
		t.Errorf("result = %q", got)
	}
}
