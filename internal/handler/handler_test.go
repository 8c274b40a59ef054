package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"taskgen/internal/model"
	"taskgen/internal/store"
	"taskgen/internal/task"
)

// stubGenerator returns a fixed outcome per topic without any LLM.
type stubGenerator struct {
	status model.OutcomeStatus
}

func (g stubGenerator) Generate(_ context.Context, req model.GenerationRequest) model.Outcome {
	t := task.Fallback(req)
	t.GeneratedBy = model.GeneratedByOllama
	if g.status == model.OutcomeFallback {
		t.GeneratedBy = model.GeneratedByFallback
	}
	return model.Outcome{Status: g.status, Task: t, Attempts: 1}
}

func (g stubGenerator) Improve(_ context.Context, orig *model.Task) model.Outcome {
	improved := *orig
	improved.Title = "Improved: " + orig.Title
	return model.Outcome{Status: model.OutcomeAccepted, Task: &improved, Attempts: 1}
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func newTestServer(t *testing.T, gen Generator, ping Pinger) (*httptest.Server, *store.Store) {
	t.Helper()
	s, err := store.New(":memory:", t.TempDir())
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	r := chi.NewRouter()
	New(s, gen, ping).Routes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, s
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestHealth(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		srv, _ := newTestServer(t, stubGenerator{status: model.OutcomeAccepted}, stubPinger{})
		resp, err := http.Get(srv.URL + "/healthz")
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("status = %d", resp.StatusCode)
		}
	})
	t.Run("llm down", func(t *testing.T) {
		srv, _ := newTestServer(t, stubGenerator{status: model.OutcomeAccepted}, stubPinger{err: errors.New("refused")})
		resp, err := http.Get(srv.URL + "/healthz")
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusServiceUnavailable {
			t.Errorf("status = %d", resp.StatusCode)
		}
	})
}

func TestTextTypes(t *testing.T) {
	srv, _ := newTestServer(t, stubGenerator{status: model.OutcomeAccepted}, stubPinger{})
	resp, err := http.Get(srv.URL + "/api/texttypes")
	if err != nil {
		t.Fatal(err)
	}
	types := decode[[]string](t, resp)
	if len(types) != 10 {
		t.Errorf("got %d text types", len(types))
	}
}

func TestGenerateEndpoint(t *testing.T) {
	srv, s := newTestServer(t, stubGenerator{status: model.OutcomeAccepted}, stubPinger{})

	body := `{"topic": "night markets", "text_type": "travel_writing"}`
	resp, err := http.Post(srv.URL+"/api/generate", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	out := decode[outcomeResponse](t, resp)
	if out.Status != model.OutcomeAccepted {
		t.Errorf("outcome status = %q", out.Status)
	}
	if out.Task == nil || out.Task.Topic != "night markets" {
		t.Errorf("task = %+v", out.Task)
	}
	if out.QualityScore != 100 {
		t.Errorf("quality_score = %d", out.QualityScore)
	}

	// The task was persisted.
	count, err := s.TaskCount()
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("task count = %d", count)
	}
}

func TestGenerateRejectsBadRequests(t *testing.T) {
	srv, _ := newTestServer(t, stubGenerator{status: model.OutcomeAccepted}, stubPinger{})
	tests := []struct {
		name string
		body string
	}{
		{"empty topic", `{"topic": "  "}`},
		{"bad text type", `{"topic": "music", "text_type": "haiku"}`},
		{"not json", `topic=music`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(srv.URL+"/api/generate", "application/json", strings.NewReader(tt.body))
			if err != nil {
				t.Fatal(err)
			}
			resp.Body.Close()
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
		})
	}
}

func TestTaskEndpoints(t *testing.T) {
	srv, s := newTestServer(t, stubGenerator{status: model.OutcomeAccepted}, stubPinger{})

	saved := task.Fallback(model.GenerationRequest{Topic: "cycling"})
	if _, err := s.SaveTask(saved, 90, ""); err != nil {
		t.Fatal(err)
	}

	resp, err := http.Get(srv.URL + "/api/tasks")
	if err != nil {
		t.Fatal(err)
	}
	metas := decode[[]model.TaskMeta](t, resp)
	if len(metas) != 1 || metas[0].TaskID != "fallback_01" {
		t.Fatalf("metas = %+v", metas)
	}

	resp, err = http.Get(srv.URL + "/api/tasks/fallback_01")
	if err != nil {
		t.Fatal(err)
	}
	got := decode[model.Task](t, resp)
	if got.Topic != "cycling" || len(got.Questions) != 6 {
		t.Errorf("task = %+v", got)
	}

	resp, err = http.Get(srv.URL + "/api/tasks/nope")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing task status = %d", resp.StatusCode)
	}
}

func TestImproveEndpoint(t *testing.T) {
	srv, s := newTestServer(t, stubGenerator{status: model.OutcomeAccepted}, stubPinger{})

	orig := task.Fallback(model.GenerationRequest{Topic: "cycling"})
	if _, err := s.SaveTask(orig, 90, ""); err != nil {
		t.Fatal(err)
	}

	resp, err := http.Post(srv.URL+"/api/tasks/fallback_01/improve", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	out := decode[outcomeResponse](t, resp)
	if out.Status != model.OutcomeAccepted {
		t.Fatalf("status = %q", out.Status)
	}
	if !strings.HasPrefix(out.Task.Title, "Improved:") {
		t.Errorf("title = %q", out.Task.Title)
	}

	// Both the original and the improved document are cataloged.
	count, err := s.TaskCount()
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("task count = %d", count)
	}
}

func TestBatchEndpoints(t *testing.T) {
	srv, _ := newTestServer(t, stubGenerator{status: model.OutcomeFallback}, stubPinger{})

	body := `{"name": "monday", "topics": ["rivers", "bridges"]}`
	resp, err := http.Post(srv.URL+"/api/batches", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	b := decode[model.Batch](t, resp)
	if b.ID == "" || len(b.Topics) != 2 {
		t.Fatalf("batch = %+v", b)
	}

	// The batch runs in the background; poll until it finishes.
	deadline := time.After(5 * time.Second)
	for {
		resp, err := http.Get(srv.URL + "/api/batches/" + b.ID)
		if err != nil {
			t.Fatal(err)
		}
		got := decode[model.Batch](t, resp)
		if got.Done {
			if got.Completed != 2 || got.Fallbacks != 2 {
				t.Errorf("batch = %+v", got)
			}
			break
		}
		select {
		case <-deadline:
			t.Fatal("batch never finished")
		case <-time.After(10 * time.Millisecond):
		}
	}

	resp, err = http.Get(srv.URL + "/api/batches/latest")
	if err != nil {
		t.Fatal(err)
	}
	latest := decode[model.Batch](t, resp)
	if latest.ID != b.ID {
		t.Errorf("latest = %q, want %q", latest.ID, b.ID)
	}
}

func TestBatchRequiresTopics(t *testing.T) {
	srv, _ := newTestServer(t, stubGenerator{status: model.OutcomeAccepted}, stubPinger{})
	resp, err := http.Post(srv.URL+"/api/batches", "application/json", strings.NewReader(`{"topics": ["", "  "]}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestExportEndpoint(t *testing.T) {
	srv, s := newTestServer(t, stubGenerator{status: model.OutcomeAccepted}, stubPinger{})
	if _, err := s.SaveTask(task.Fallback(model.GenerationRequest{Topic: "tea"}), 100, ""); err != nil {
		t.Fatal(err)
	}

	resp, err := http.Get(srv.URL + "/api/export")
	if err != nil {
		t.Fatal(err)
	}
	exp := decode[model.LibraryExport](t, resp)
	if exp.TaskCount != 1 || len(exp.Tasks) != 1 {
		t.Errorf("export = %+v", exp)
	}
}
