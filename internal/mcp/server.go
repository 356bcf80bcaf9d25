// Package mcp exposes job management over the Model Context Protocol so
// LLM agents can drive the scheduler through stdio.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"chime/internal/engine"
	"chime/internal/schedule"
)

// Server wraps the engine and exposes it via Model Context Protocol.
type Server struct {
	engine *engine.Engine
	server *server.MCPServer
}

// NewServer creates an MCP server over the given engine.
func NewServer(eng *engine.Engine, version string) *Server {
	s := &Server{engine: eng}

	s.server = server.NewMCPServer(
		"chime",
		version,
		server.WithToolCapabilities(true),
	)
	s.registerTools()

	return s
}

// registerTools registers all job management tools.
func (s *Server) registerTools() {
	createTool := mcp.NewTool("chime_create_job",
		mcp.WithDescription("Create a recurring job. It starts active and fires on its schedule."),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Human-readable job name"),
		),
		mcp.WithString("kind",
			mcp.Required(),
			mcp.Description("Recurrence kind: hourly, daily, or weekly"),
		),
		mcp.WithNumber("minute",
			mcp.Required(),
			mcp.Description("Minute of the hour (0-59)"),
		),
		mcp.WithNumber("hour",
			mcp.Description("Hour of the day (0-23); required for daily and weekly"),
		),
		mcp.WithNumber("weekday",
			mcp.Description("Day of the week, 0=Sunday through 6=Saturday; required for weekly"),
		),
	)
	s.server.AddTool(createTool, s.handleCreateJob)

	listTool := mcp.NewTool("chime_list_jobs",
		mcp.WithDescription("List all jobs with their schedule, state, and next run time"),
	)
	s.server.AddTool(listTool, s.handleListJobs)

	toggleTool := mcp.NewTool("chime_toggle_job",
		mcp.WithDescription("Pause an active job or resume a paused one"),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Job id"),
		),
	)
	s.server.AddTool(toggleTool, s.handleToggleJob)

	deleteTool := mcp.NewTool("chime_delete_job",
		mcp.WithDescription("Delete a job. Deleting an unknown id is a no-op."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Job id"),
		),
	)
	s.server.AddTool(deleteTool, s.handleDeleteJob)

	executionsTool := mcp.NewTool("chime_list_executions",
		mcp.WithDescription("List recent job executions, newest first"),
	)
	s.server.AddTool(executionsTool, s.handleListExecutions)
}

func (s *Server) handleCreateJob(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	kind, err := request.RequireString("kind")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	minute, err := request.RequireInt("minute")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var rule schedule.Rule
	switch schedule.Kind(kind) {
	case schedule.KindHourly:
		rule = schedule.Hourly{Minute: int(minute)}
	case schedule.KindDaily:
		hour, err := request.RequireInt("hour")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		rule = schedule.Daily{Hour: int(hour), Minute: int(minute)}
	case schedule.KindWeekly:
		hour, err := request.RequireInt("hour")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		weekday, err := request.RequireInt("weekday")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if weekday < 0 || weekday > 6 {
			return mcp.NewToolResultError(fmt.Sprintf("weekday %d out of range 0-6", weekday)), nil
		}
		rule = schedule.Weekly{Weekday: time.Weekday(weekday), Hour: int(hour), Minute: int(minute)}
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown kind %q (hourly, daily, weekly)", kind)), nil
	}

	if err := rule.Validate(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	j, err := s.engine.CreateJob(ctx, name, rule)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("creating job: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf(
		"Created job %s (%s), schedule %s, next run %s",
		j.ID, j.Name, j.Rule.String(), j.NextRun.Format(time.RFC3339),
	)), nil
}

func (s *Server) handleListJobs(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jobs := s.engine.ListJobs()
	if len(jobs) == 0 {
		return mcp.NewToolResultText("No jobs configured"), nil
	}

	type jobView struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Schedule string `json:"schedule"`
		Active   bool   `json:"active"`
		NextRun  string `json:"next_run"`
		LastRun  string `json:"last_run,omitempty"`
	}

	views := make([]jobView, 0, len(jobs))
	for _, j := range jobs {
		v := jobView{
			ID:       j.ID,
			Name:     j.Name,
			Schedule: j.Rule.String(),
			Active:   j.Active,
			NextRun:  j.NextRun.Format(time.RFC3339),
		}
		if !j.LastRun.IsZero() {
			v.LastRun = j.LastRun.Format(time.RFC3339)
		}
		views = append(views, v)
	}

	data, err := json.MarshalIndent(views, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encoding jobs: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) handleToggleJob(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	j, err := s.engine.ToggleJob(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("toggling job: %v", err)), nil
	}

	state := "paused"
	if j.Active {
		state = "active"
	}
	return mcp.NewToolResultText(fmt.Sprintf("Job %s (%s) is now %s", j.ID, j.Name, state)), nil
}

func (s *Server) handleDeleteJob(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := s.engine.DeleteJob(ctx, id); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("deleting job: %v", err)), nil
	}
	return mcp.NewToolResultText("Deleted job " + id), nil
}

func (s *Server) handleListExecutions(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	records := s.engine.ListExecutions()
	if len(records) == 0 {
		return mcp.NewToolResultText("No executions recorded"), nil
	}

	out := fmt.Sprintf("Last %d execution(s):\n", len(records))
	for _, r := range records {
		status := "ok"
		if !r.OK {
			status = "failed: " + r.Message
		}
		out += fmt.Sprintf("- %s %s (%s): %s\n", r.Time.Format(time.RFC3339), r.JobName, r.JobID, status)
	}
	return mcp.NewToolResultText(out), nil
}

// Serve runs the MCP server over stdio until the client disconnects.
func (s *Server) Serve() error {
	return server.ServeStdio(s.server)
}
