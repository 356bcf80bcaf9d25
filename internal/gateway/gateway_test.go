package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"chime/internal/engine"
	"chime/internal/eventbus"
	"chime/internal/history"
	"chime/internal/job"
	"chime/internal/schedule"
	"chime/internal/scheduler"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestGateway wires a gateway over an in-memory engine.
func newTestGateway(t *testing.T) (*Gateway, *engine.Engine) {
	t.Helper()

	bus := eventbus.New()
	eng := engine.New(engine.Config{
		Store:   job.NewStore(),
		History: history.NewLog(10),
		Bus:     bus,
		Logger:  discardLogger(),
	})

	reg := prometheus.NewRegistry()
	scheduler.NewMetrics(reg)

	g := New(Config{
		Bind:     "127.0.0.1:0",
		Engine:   eng,
		Bus:      bus,
		Registry: reg,
		Logger:   discardLogger(),
	})
	g.startedAt = time.Now()
	return g, eng
}

func doJSON(t *testing.T, handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestCreateJob(t *testing.T) {
	t.Parallel()

	g, _ := newTestGateway(t)
	mux := g.buildRouter()

	rec := doJSON(t, mux, http.MethodPost, "/api/jobs",
		`{"name":"daily report","recurrence":{"kind":"daily","hour":9,"minute":30}}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	var got jobJSON
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if got.ID == "" {
		t.Error("response should carry an id")
	}
	if got.Name != "daily report" {
		t.Errorf("Name = %q", got.Name)
	}
	if !got.Active {
		t.Error("new job should be active")
	}
	if got.NextRun.IsZero() {
		t.Error("NextRun should be set")
	}
	if got.LastRun != nil {
		t.Error("new job should have no LastRun")
	}
	if !strings.Contains(string(got.Recurrence), `"daily"`) {
		t.Errorf("Recurrence = %s", got.Recurrence)
	}
}

func TestCreateJob_Invalid(t *testing.T) {
	t.Parallel()

	g, _ := newTestGateway(t)
	mux := g.buildRouter()

	tests := []struct {
		name string
		body string
	}{
		{"malformed JSON", `{`},
		{"missing recurrence", `{"name":"x"}`},
		{"unknown kind", `{"name":"x","recurrence":{"kind":"fortnightly","minute":0}}`},
		{"minute out of range", `{"name":"x","recurrence":{"kind":"hourly","minute":75}}`},
		{"empty name", `{"name":"","recurrence":{"kind":"hourly","minute":0}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, mux, http.MethodPost, "/api/jobs", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestListJobs_NewestFirst(t *testing.T) {
	t.Parallel()

	g, eng := newTestGateway(t)
	mux := g.buildRouter()

	mustCreate(t, eng, "first")
	mustCreate(t, eng, "second")

	rec := doJSON(t, mux, http.MethodGet, "/api/jobs", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var got []jobJSON
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Name != "second" || got[1].Name != "first" {
		t.Errorf("order = [%s %s], want newest first", got[0].Name, got[1].Name)
	}
}

func TestGetJob_NotFound(t *testing.T) {
	t.Parallel()

	g, _ := newTestGateway(t)
	mux := g.buildRouter()

	rec := doJSON(t, mux, http.MethodGet, "/api/jobs/nope", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestToggleJob(t *testing.T) {
	t.Parallel()

	g, eng := newTestGateway(t)
	mux := g.buildRouter()

	created := mustCreate(t, eng, "pausable")

	rec := doJSON(t, mux, http.MethodPost, "/api/jobs/"+created.ID+"/toggle", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var got jobJSON
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if got.Active {
		t.Error("job should be paused after toggle")
	}
	if !got.NextRun.Equal(created.NextRun) {
		t.Errorf("NextRun changed on toggle: %v -> %v", created.NextRun, got.NextRun)
	}
}

func TestToggleJob_NotFound(t *testing.T) {
	t.Parallel()

	g, _ := newTestGateway(t)
	mux := g.buildRouter()

	rec := doJSON(t, mux, http.MethodPost, "/api/jobs/nope/toggle", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestDeleteJob_Idempotent(t *testing.T) {
	t.Parallel()

	g, eng := newTestGateway(t)
	mux := g.buildRouter()

	created := mustCreate(t, eng, "doomed")

	for range 2 {
		rec := doJSON(t, mux, http.MethodDelete, "/api/jobs/"+created.ID, "")
		if rec.Code != http.StatusNoContent {
			t.Errorf("status = %d, want 204", rec.Code)
		}
	}
	if len(eng.ListJobs()) != 0 {
		t.Error("job should be gone")
	}
}

func TestListExecutions(t *testing.T) {
	t.Parallel()

	hist := history.NewLog(10)
	hist.Append(history.Record{JobID: "a", JobName: "backup", Time: time.Now(), OK: true})
	hist.Append(history.Record{JobID: "a", JobName: "backup", Time: time.Now(), OK: false, Message: "exit status 1"})

	eng := engine.New(engine.Config{
		Store:   job.NewStore(),
		History: hist,
		Logger:  discardLogger(),
	})
	g := New(Config{Engine: eng, Logger: discardLogger()})
	mux := g.buildRouter()

	rec := doJSON(t, mux, http.MethodGet, "/api/executions", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var got []executionJSON
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].OK || got[0].Message != "exit status 1" {
		t.Errorf("newest record = %+v", got[0])
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()

	g, eng := newTestGateway(t)
	mustCreate(t, eng, "anything")
	mux := g.buildRouter()

	rec := doJSON(t, mux, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var got HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if got.Status != "ok" || got.Jobs != 1 {
		t.Errorf("response = %+v", got)
	}
}

func TestStatus(t *testing.T) {
	t.Parallel()

	g, eng := newTestGateway(t)
	active := mustCreate(t, eng, "active one")
	paused := mustCreate(t, eng, "paused one")
	if _, err := eng.ToggleJob(context.Background(), paused.ID); err != nil {
		t.Fatalf("ToggleJob: %v", err)
	}
	mux := g.buildRouter()

	rec := doJSON(t, mux, http.MethodGet, "/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var got StatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if got.Jobs != 2 || got.ActiveJobs != 1 {
		t.Errorf("response = %+v", got)
	}
	if got.NextRun == nil || !got.NextRun.Equal(active.NextRun) {
		t.Errorf("NextRun = %v, want %v", got.NextRun, active.NextRun)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	g, _ := newTestGateway(t)
	mux := g.buildRouter()

	rec := doJSON(t, mux, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "chime_scans_total") {
		t.Error("metrics output should include chime counters")
	}
}

func TestEventStream(t *testing.T) {
	t.Parallel()

	g, eng := newTestGateway(t)
	srv := httptest.NewServer(g.buildRouter())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/events"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dialing: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	// Give the handler a moment to subscribe before publishing.
	time.Sleep(50 * time.Millisecond)
	created := mustCreate(t, eng, "streamed")

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("reading frame: %v", err)
	}

	var ev eventbus.Event
	if err := json.Unmarshal(data, &ev); err != nil {
		t.Fatalf("decoding event: %v", err)
	}
	if ev.Type != eventbus.TypeJobCreated {
		t.Errorf("Type = %q, want %q", ev.Type, eventbus.TypeJobCreated)
	}
	if !strings.Contains(string(mustMarshal(t, ev.Data)), created.ID) {
		t.Errorf("event data should reference job %s: %v", created.ID, ev.Data)
	}
}

func mustCreate(t *testing.T, eng *engine.Engine, name string) job.Job {
	t.Helper()
	j, err := eng.CreateJob(context.Background(), name, mustRule(t))
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	return j
}

func mustRule(t *testing.T) schedule.Rule {
	t.Helper()
	r := schedule.Hourly{Minute: 15}
	if err := r.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	return r
}

func mustMarshal(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return data
}
