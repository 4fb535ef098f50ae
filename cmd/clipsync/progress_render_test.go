package main

import (
	"bytes"
	"strings"
	"testing"

	"clipsync/internal/api"
)

func TestRenderProgressStopsAtTerminal(t *testing.T) {
	stream := strings.Join([]string{
		`data: {"status":"starting"}`,
		"",
		`data: {"status":"ids-fetched","total":2}`,
		"",
		`data: {"status":"completed","video":"Clip one","videoIndex":1,"total":2}`,
		"",
		`data: {"status":"done","downloaded":1,"skipped":1,"failed":0}`,
		"",
	}, "\n")

	var out bytes.Buffer
	if err := renderProgress(&out, strings.NewReader(stream), false); err != nil {
		t.Fatalf("renderProgress: %v", err)
	}
	text := out.String()
	for _, want := range []string{"Starting import", "Found 2 items", "completed Clip one", "1 downloaded, 1 skipped, 0 failed"} {
		if !strings.Contains(text, want) {
			t.Fatalf("missing %q in output:\n%s", want, text)
		}
	}
}

func TestRenderProgressErrorTerminal(t *testing.T) {
	stream := `data: {"status":"error","error":"no importable items found"}` + "\n"

	var out bytes.Buffer
	err := renderProgress(&out, strings.NewReader(stream), false)
	if err == nil {
		t.Fatal("expected error from error terminal")
	}
	if !strings.Contains(err.Error(), "no importable items") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRenderProgressTruncatedStream(t *testing.T) {
	stream := `data: {"status":"starting"}` + "\n"

	var out bytes.Buffer
	err := renderProgress(&out, strings.NewReader(stream), false)
	if err == nil || !strings.Contains(err.Error(), "without a terminal event") {
		t.Fatalf("expected truncation error, got %v", err)
	}
}

func TestFormatState(t *testing.T) {
	cases := []struct {
		item api.ContentItem
		want string
	}{
		{api.ContentItem{Processed: true, Uploaded: true}, "published"},
		{api.ContentItem{Processed: true}, "processed"},
		{api.ContentItem{}, "placeholder"},
	}
	for _, tc := range cases {
		if got := formatState(tc.item); got != tc.want {
			t.Fatalf("formatState(%+v) = %q, want %q", tc.item, got, tc.want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	if got := formatDuration(95); got != "1:35" {
		t.Fatalf("formatDuration(95) = %q", got)
	}
	if got := formatDuration(3725); got != "1:02:05" {
		t.Fatalf("formatDuration(3725) = %q", got)
	}
}
