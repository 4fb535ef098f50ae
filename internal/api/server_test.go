package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"clipsync/internal/pipeline"
	"clipsync/internal/progress"
	"clipsync/internal/store"
	"clipsync/internal/worker"
)

type importerStub struct {
	runs       chan pipeline.Options
	runLocator string
	summary    pipeline.Summary
	runErr     error

	singleResult *worker.Result
	singleErr    error
}

func (s *importerStub) Run(ctx context.Context, locator, performerID string, opts pipeline.Options) (pipeline.Summary, error) {
	s.runLocator = locator
	if s.runs != nil {
		s.runs <- opts
	}
	return s.summary, s.runErr
}

func (s *importerStub) ImportSingle(ctx context.Context, locator, performerID string, categoryIDs []string) (*worker.Result, error) {
	return s.singleResult, s.singleErr
}

type contentStoreStub struct {
	records []*store.ContentRecord
	pruned  int64
	stats   store.Stats
}

func (s *contentStoreStub) ListContent(ctx context.Context, limit int) ([]*store.ContentRecord, error) {
	return s.records, nil
}

func (s *contentStoreStub) PruneStalePlaceholders(ctx context.Context, cutoff time.Time) (int64, error) {
	return s.pruned, nil
}

func (s *contentStoreStub) Stats(ctx context.Context) (store.Stats, error) {
	return s.stats, nil
}

func newTestServer(t *testing.T, importer Importer, contents ContentStore) *Server {
	t.Helper()
	hub := progress.NewHub()
	srv := New("127.0.0.1:0", hub, importer, contents, 24*time.Hour, "/tmp/clipsync.db", nil)
	srv.sessionPoll = 5 * time.Millisecond
	srv.sessionWait = 100 * time.Millisecond
	t.Cleanup(srv.Stop)
	return srv
}

func postJSON(t *testing.T, handler http.Handler, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestStartImportRegistersSessionAndSchedulesRun(t *testing.T) {
	importer := &importerStub{runs: make(chan pipeline.Options, 1)}
	srv := newTestServer(t, importer, &contentStoreStub{})

	w := postJSON(t, srv.Handler(), "/api/imports", StartImportRequest{
		SessionID:   "session-1",
		Locator:     "https://www.aparat.com/performer/playlist",
		PerformerID: "performer-1",
		MaxItems:    3,
	})
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", w.Code, w.Body.String())
	}
	var resp StartImportResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.SessionID != "session-1" {
		t.Fatalf("unexpected session id: %q", resp.SessionID)
	}
	if _, ok := srv.hub.Get("session-1"); !ok {
		t.Fatal("expected session registered before run starts")
	}

	select {
	case opts := <-importer.runs:
		if opts.MaxItems != 3 {
			t.Fatalf("unexpected max items: %d", opts.MaxItems)
		}
		if opts.OnProgress == nil {
			t.Fatal("expected progress callback wired to hub")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("import run was never scheduled")
	}
	if importer.runLocator != "https://www.aparat.com/performer/playlist" {
		t.Fatalf("unexpected locator: %q", importer.runLocator)
	}
}

func TestStartImportGeneratesSessionID(t *testing.T) {
	importer := &importerStub{runs: make(chan pipeline.Options, 1)}
	srv := newTestServer(t, importer, &contentStoreStub{})

	w := postJSON(t, srv.Handler(), "/api/imports", StartImportRequest{
		Locator:     "@clips",
		PerformerID: "performer-1",
	})
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", w.Code)
	}
	var resp StartImportResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.SessionID == "" {
		t.Fatal("expected generated session id")
	}
	if _, ok := srv.hub.Get(resp.SessionID); !ok {
		t.Fatal("expected generated session registered")
	}
	<-importer.runs
}

func TestStartImportValidation(t *testing.T) {
	srv := newTestServer(t, &importerStub{}, &contentStoreStub{})

	w := postJSON(t, srv.Handler(), "/api/imports", StartImportRequest{PerformerID: "performer-1"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing locator, got %d", w.Code)
	}

	w = postJSON(t, srv.Handler(), "/api/imports", StartImportRequest{Locator: "@clips"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing performer, got %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/imports", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestStartImportRejectsDuplicateSession(t *testing.T) {
	importer := &importerStub{runs: make(chan pipeline.Options, 2)}
	srv := newTestServer(t, importer, &contentStoreStub{})

	body := StartImportRequest{SessionID: "dup", Locator: "@clips", PerformerID: "performer-1"}
	if w := postJSON(t, srv.Handler(), "/api/imports", body); w.Code != http.StatusAccepted {
		t.Fatalf("expected first request accepted, got %d", w.Code)
	}
	if w := postJSON(t, srv.Handler(), "/api/imports", body); w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate session, got %d", w.Code)
	}
}

func TestImportVideo(t *testing.T) {
	importer := &importerStub{singleResult: &worker.Result{
		RecordID:  "record-1",
		RawURL:    "https://cdn.example.com/content/record-1/original.mp4",
		StreamURL: "https://cdn.example.com/content/record-1/hls/master.m3u8",
	}}
	srv := newTestServer(t, importer, &contentStoreStub{})

	w := postJSON(t, srv.Handler(), "/api/imports/video", ImportVideoRequest{
		Locator:     "https://twitter.com/i/status/123",
		PerformerID: "performer-1",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp ImportVideoResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.RecordID != "record-1" {
		t.Fatalf("unexpected record id: %q", resp.RecordID)
	}
	if resp.StreamURL == "" {
		t.Fatal("expected stream url in response")
	}
}

func TestImportVideoFailure(t *testing.T) {
	importer := &importerStub{singleErr: errors.New("content already imported")}
	srv := newTestServer(t, importer, &contentStoreStub{})

	w := postJSON(t, srv.Handler(), "/api/imports/video", ImportVideoRequest{
		Locator:     "https://twitter.com/i/status/123",
		PerformerID: "performer-1",
	})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "already imported") {
		t.Fatalf("expected failure reason in body: %s", w.Body.String())
	}
}

func decodeSSE(t *testing.T, body string) []progress.Event {
	t.Helper()
	var events []progress.Event
	scanner := bufio.NewScanner(strings.NewReader(body))
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var event progress.Event
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &event); err != nil {
			t.Fatalf("failed to decode event %q: %v", line, err)
		}
		events = append(events, event)
	}
	return events
}

func TestProgressStreamsUntilTerminal(t *testing.T) {
	srv := newTestServer(t, &importerStub{}, &contentStoreStub{})
	if _, err := srv.hub.Register("session-sse"); err != nil {
		t.Fatalf("register session: %v", err)
	}
	srv.hub.Publish("session-sse", progress.Starting())
	srv.hub.Publish("session-sse", progress.IDsFetched(2))
	srv.hub.Publish("session-sse", progress.Done(1, 1, 0))

	req := httptest.NewRequest(http.MethodGet, "/api/imports/progress/session-sse", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got := w.Header().Get("Content-Type"); got != "text/event-stream" {
		t.Fatalf("unexpected content type: %q", got)
	}

	events := decodeSSE(t, w.Body.String())
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	if events[0].Status != progress.StatusStarting {
		t.Fatalf("unexpected first event: %q", events[0].Status)
	}
	last := events[len(events)-1]
	if last.Status != progress.StatusDone {
		t.Fatalf("expected terminal done event, got %q", last.Status)
	}
}

func TestProgressUnknownSession(t *testing.T) {
	srv := newTestServer(t, &importerStub{}, &contentStoreStub{})

	req := httptest.NewRequest(http.MethodGet, "/api/imports/progress/missing", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	events := decodeSSE(t, w.Body.String())
	if len(events) != 1 {
		t.Fatalf("expected 1 synthetic event, got %d", len(events))
	}
	if events[0].Status != progress.StatusError {
		t.Fatalf("expected error status, got %q", events[0].Status)
	}
	if events[0].Error != "session not found" {
		t.Fatalf("unexpected error message: %q", events[0].Error)
	}
}

func TestStatusReportsStoreCounts(t *testing.T) {
	contents := &contentStoreStub{stats: store.Stats{
		TotalRecords:     12,
		ProcessedCount:   10,
		PlaceholderCount: 2,
		PerformerCount:   4,
	}}
	srv := newTestServer(t, &importerStub{}, contents)
	if _, err := srv.hub.Register("live"); err != nil {
		t.Fatalf("register session: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp StatusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Running {
		t.Fatal("expected running true")
	}
	if resp.TotalRecords != 12 || resp.Placeholders != 2 || resp.Performers != 4 {
		t.Fatalf("unexpected counts: %+v", resp)
	}
	if resp.LiveSessions != 1 {
		t.Fatalf("expected 1 live session, got %d", resp.LiveSessions)
	}
}

func TestContentList(t *testing.T) {
	contents := &contentStoreStub{records: []*store.ContentRecord{{
		ID:              "record-1",
		Title:           "Evening highlights",
		Type:            store.TypeVideo,
		DurationSeconds: 95,
		Processed:       true,
		Uploaded:        true,
		Source:          "twitter",
		ExternalID:      "123",
	}}}
	srv := newTestServer(t, &importerStub{}, contents)

	req := httptest.NewRequest(http.MethodGet, "/api/content?limit=10", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp ContentListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(resp.Items))
	}
	if resp.Items[0].Title != "Evening highlights" {
		t.Fatalf("unexpected title: %q", resp.Items[0].Title)
	}
}

func TestPruneStale(t *testing.T) {
	srv := newTestServer(t, &importerStub{}, &contentStoreStub{pruned: 3})

	req := httptest.NewRequest(http.MethodPost, "/api/content/prune-stale", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp PruneResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Pruned != 3 {
		t.Fatalf("expected 3 pruned, got %d", resp.Pruned)
	}

	get := httptest.NewRequest(http.MethodGet, "/api/content/prune-stale", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, get)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}
