package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"clipsync/internal/store"
	"clipsync/internal/testsupport"
)

func openStore(t *testing.T) *store.Store {
	t.Helper()
	return testsupport.MustOpenStore(t, testsupport.NewConfig(t))
}

func TestPlaceholderLifecycle(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()

	performer := testsupport.NewPerformer(t, st, "Jane Doe", "abcdef0123456789")

	id, err := st.CreatePlaceholder(ctx, store.PlaceholderParams{
		Title:           "A clip",
		Description:     "about something",
		DurationSeconds: 95,
		OriginalDate:    time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC),
		Source:          "twitter",
		ExternalID:      "1780000000000000001",
		ExternalURL:     "https://twitter.com/i/status/1780000000000000001",
		PerformerID:     performer.ID,
		DedupKey:        "1111222233334444",
	})
	if err != nil {
		t.Fatalf("CreatePlaceholder: %v", err)
	}
	if id == "" {
		t.Fatal("expected non-empty id")
	}

	record, err := st.GetContent(ctx, id)
	if err != nil {
		t.Fatalf("GetContent: %v", err)
	}
	if record.Processed || record.Uploaded {
		t.Fatal("placeholder must start unprocessed")
	}
	if record.Type != store.TypeVideo {
		t.Fatalf("expected default video type, got %q", record.Type)
	}
	if !record.OriginalDate.Equal(time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected original date: %v", record.OriginalDate)
	}
	if record.PerformerID != performer.ID {
		t.Fatalf("unexpected performer id: %q", record.PerformerID)
	}

	err = st.Finalize(ctx, id, store.FinalizeParams{
		RawURL:       "https://cdn.example.com/content/" + id + "/original.mp4",
		AudioURL:     "https://cdn.example.com/content/" + id + "/audio.mp3",
		ThumbnailURL: "https://cdn.example.com/content/" + id + "/thumbnail.jpg",
		StreamURL:    "https://cdn.example.com/content/" + id + "/hls/master.m3u8",
	})
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	record, err = st.GetContent(ctx, id)
	if err != nil {
		t.Fatalf("GetContent after finalize: %v", err)
	}
	if !record.Processed || !record.Uploaded {
		t.Fatal("expected processed and uploaded after finalize")
	}
	if record.StreamURL == "" || record.RawURL == "" {
		t.Fatalf("expected artifact urls, got %+v", record)
	}
	if !record.UpdatedAt.After(record.CreatedAt) && !record.UpdatedAt.Equal(record.CreatedAt) {
		t.Fatalf("updated_at before created_at: %v < %v", record.UpdatedAt, record.CreatedAt)
	}
}

func TestFinalizeMissingRecord(t *testing.T) {
	st := openStore(t)
	err := st.Finalize(context.Background(), "no-such-id", store.FinalizeParams{})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDedupKeyExists(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()

	exists, err := st.DedupKeyExists(ctx, "feedfacefeedface")
	if err != nil {
		t.Fatalf("DedupKeyExists: %v", err)
	}
	if exists {
		t.Fatal("expected key absent")
	}

	if _, err := st.CreatePlaceholder(ctx, store.PlaceholderParams{
		Title:    "clip",
		DedupKey: "feedfacefeedface",
	}); err != nil {
		t.Fatalf("CreatePlaceholder: %v", err)
	}

	exists, err = st.DedupKeyExists(ctx, "feedfacefeedface")
	if err != nil {
		t.Fatalf("DedupKeyExists: %v", err)
	}
	if !exists {
		t.Fatal("expected key present after insert")
	}
}

func TestDuplicateDedupKeysCoexist(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()

	// Re-imports with the existing-item check disabled insert a second row
	// under the same dedup key, so the column must not be unique.
	first, err := st.CreatePlaceholder(ctx, store.PlaceholderParams{Title: "clip", DedupKey: "feedfacefeedface"})
	if err != nil {
		t.Fatalf("CreatePlaceholder: %v", err)
	}
	second, err := st.CreatePlaceholder(ctx, store.PlaceholderParams{Title: "clip again", DedupKey: "feedfacefeedface"})
	if err != nil {
		t.Fatalf("CreatePlaceholder repeat: %v", err)
	}
	if first == second {
		t.Fatal("expected distinct record ids")
	}
	if err := st.Finalize(ctx, first, store.FinalizeParams{RawURL: "u1"}); err != nil {
		t.Fatalf("Finalize first: %v", err)
	}
	if err := st.Finalize(ctx, second, store.FinalizeParams{RawURL: "u2"}); err != nil {
		t.Fatalf("Finalize second: %v", err)
	}
	records, err := st.ListContent(ctx, 0)
	if err != nil {
		t.Fatalf("ListContent: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
}

func TestUpsertPerformerIsIdempotent(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()

	first, err := st.UpsertPerformer(ctx, "Jane Doe", "abcdef0123456789")
	if err != nil {
		t.Fatalf("UpsertPerformer: %v", err)
	}
	second, err := st.UpsertPerformer(ctx, "jane doe", "abcdef0123456789")
	if err != nil {
		t.Fatalf("UpsertPerformer repeat: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected same performer row, got %q and %q", first.ID, second.ID)
	}
	if second.Name != "Jane Doe" {
		t.Fatalf("expected original display name kept, got %q", second.Name)
	}
}

func TestListContentNewestFirst(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()

	for i, title := range []string{"first", "second", "third"} {
		if _, err := st.CreatePlaceholder(ctx, store.PlaceholderParams{
			Title:    title,
			DedupKey: "key" + string(rune('0'+i)),
		}); err != nil {
			t.Fatalf("CreatePlaceholder %q: %v", title, err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	records, err := st.ListContent(ctx, 0)
	if err != nil {
		t.Fatalf("ListContent: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	if records[0].Title != "third" || records[2].Title != "first" {
		t.Fatalf("unexpected order: %q, %q, %q", records[0].Title, records[1].Title, records[2].Title)
	}

	limited, err := st.ListContent(ctx, 2)
	if err != nil {
		t.Fatalf("ListContent limited: %v", err)
	}
	if len(limited) != 2 {
		t.Fatalf("expected 2 records, got %d", len(limited))
	}
}

func TestPruneStalePlaceholders(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()

	staleID, err := st.CreatePlaceholder(ctx, store.PlaceholderParams{Title: "stale", DedupKey: "aaaa"})
	if err != nil {
		t.Fatalf("CreatePlaceholder: %v", err)
	}
	doneID, err := st.CreatePlaceholder(ctx, store.PlaceholderParams{Title: "done", DedupKey: "bbbb"})
	if err != nil {
		t.Fatalf("CreatePlaceholder: %v", err)
	}
	if err := st.Finalize(ctx, doneID, store.FinalizeParams{RawURL: "u"}); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	// Cutoff in the future: every unprocessed row qualifies.
	pruned, err := st.PruneStalePlaceholders(ctx, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("PruneStalePlaceholders: %v", err)
	}
	if pruned != 1 {
		t.Fatalf("expected 1 pruned row, got %d", pruned)
	}
	if _, err := st.GetContent(ctx, staleID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected stale row removed, got %v", err)
	}
	if _, err := st.GetContent(ctx, doneID); err != nil {
		t.Fatalf("processed row must survive: %v", err)
	}
}

func TestStats(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()

	testsupport.NewPerformer(t, st, "Jane", "pk1")
	id, err := st.CreatePlaceholder(ctx, store.PlaceholderParams{Title: "a", DedupKey: "k1"})
	if err != nil {
		t.Fatalf("CreatePlaceholder: %v", err)
	}
	if _, err := st.CreatePlaceholder(ctx, store.PlaceholderParams{Title: "b", DedupKey: "k2"}); err != nil {
		t.Fatalf("CreatePlaceholder: %v", err)
	}
	if err := st.Finalize(ctx, id, store.FinalizeParams{}); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	stats, err := st.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalRecords != 2 || stats.ProcessedCount != 1 || stats.PlaceholderCount != 1 || stats.PerformerCount != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}
