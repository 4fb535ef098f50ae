package progress_test

import (
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"clipsync/internal/progress"
)

func TestRegisterRejectsDuplicateSession(t *testing.T) {
	hub := progress.NewHub()
	if _, err := hub.Register("sess-1"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := hub.Register("sess-1"); err != progress.ErrSessionExists {
		t.Fatalf("expected ErrSessionExists, got %v", err)
	}
	if _, err := hub.Register(""); err == nil {
		t.Fatal("expected error for empty session id")
	}
}

func TestPublishDeliversInOrder(t *testing.T) {
	hub := progress.NewHub(progress.WithGrace(10 * time.Millisecond))
	session, err := hub.Register("sess-1")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	hub.Publish("sess-1", progress.Starting())
	hub.Publish("sess-1", progress.IDsFetched(3))
	hub.Publish("sess-1", progress.Done(2, 1, 0))

	var statuses []progress.Status
	for event := range session.Events() {
		statuses = append(statuses, event.Status)
	}
	want := []progress.Status{progress.StatusStarting, progress.StatusIDsFetched, progress.StatusDone}
	if len(statuses) != len(want) {
		t.Fatalf("unexpected events: %v", statuses)
	}
	for i := range want {
		if statuses[i] != want[i] {
			t.Fatalf("event %d: got %s want %s", i, statuses[i], want[i])
		}
	}
}

func TestExactlyOneTerminalEvent(t *testing.T) {
	hub := progress.NewHub(progress.WithGrace(10 * time.Millisecond))
	session, err := hub.Register("sess-1")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	hub.Publish("sess-1", progress.Done(1, 0, 0))
	hub.Publish("sess-1", progress.ErrorEvent("late"))
	hub.Publish("sess-1", progress.Completed("x", "1", 1, 1))

	var terminals int
	var total int
	for event := range session.Events() {
		total++
		if event.Terminal() {
			terminals++
		}
	}
	if terminals != 1 {
		t.Fatalf("expected exactly one terminal event, got %d", terminals)
	}
	if total != 1 {
		t.Fatalf("expected events after terminal to be dropped, got %d events", total)
	}
}

func TestSessionRemovedAfterGrace(t *testing.T) {
	hub := progress.NewHub(progress.WithGrace(10 * time.Millisecond))
	if _, err := hub.Register("sess-1"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	hub.Publish("sess-1", progress.ErrorEvent("boom"))

	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, ok := hub.Get("sess-1"); !ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("session not torn down after grace period")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if hub.Len() != 0 {
		t.Fatalf("expected empty hub, got %d sessions", hub.Len())
	}
}

func TestTerminalSurvivesFullBuffer(t *testing.T) {
	hub := progress.NewHub(progress.WithGrace(10 * time.Millisecond))
	session, err := hub.Register("sess-1")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	// No subscriber draining: overflow the buffer, then terminate.
	for i := 0; i < 200; i++ {
		hub.Publish("sess-1", progress.FetchingInfo(i, 200))
	}
	hub.Publish("sess-1", progress.Done(0, 0, 200))

	var sawTerminal bool
	for event := range session.Events() {
		if event.Terminal() {
			sawTerminal = true
		}
	}
	if !sawTerminal {
		t.Fatal("terminal event lost under buffer pressure")
	}
}

func TestConcurrentPublishersSingleTerminal(t *testing.T) {
	hub := progress.NewHub(progress.WithGrace(10 * time.Millisecond))
	session, err := hub.Register("sess-1")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hub.Publish("sess-1", progress.Done(1, 0, 0))
		}()
	}

	var terminals int
	done := make(chan struct{})
	go func() {
		defer close(done)
		for event := range session.Events() {
			if event.Terminal() {
				terminals++
			}
		}
	}()

	wg.Wait()
	<-done
	if terminals != 1 {
		t.Fatalf("expected one terminal event, got %d", terminals)
	}
}

func TestEventWireShape(t *testing.T) {
	payload, err := json.Marshal(progress.Done(2, 1, 0))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	body := string(payload)
	for _, want := range []string{`"status":"done"`, `"downloaded":2`, `"skipped":1`, `"failed":0`} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %s in %s", want, body)
		}
	}

	payload, err = json.Marshal(progress.Skipped("A clip", "42", "duplicate"))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	body = string(payload)
	for _, want := range []string{`"status":"skipped"`, `"video":"A clip"`, `"videoId":"42"`, `"reason":"duplicate"`} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %s in %s", want, body)
		}
	}
	if strings.Contains(body, "downloaded") {
		t.Fatalf("unexpected counters on non-terminal event: %s", body)
	}
}
