package source_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"clipsync/internal/services/ytdlp"
	"clipsync/internal/source"
)

type stubLister struct {
	ids []string
	url string
	err error
}

func (s *stubLister) TweetIDs(ctx context.Context, accountURL string) ([]string, error) {
	s.url = accountURL
	return s.ids, s.err
}

type stubProber struct {
	info ytdlp.Info
	url  string
	err  error
}

func (s *stubProber) DumpJSON(ctx context.Context, url string) (ytdlp.Info, error) {
	s.url = url
	return s.info, s.err
}

func TestSelectorDispatch(t *testing.T) {
	twitter := source.NewTwitter(&stubLister{}, &stubProber{})
	aparat := source.NewAparat(nil, &stubProber{})
	sel := source.NewSelector(twitter, aparat)

	cases := []struct {
		locator string
		want    string
	}{
		{"https://www.aparat.com/playlist/12345", "aparat"},
		{"https://twitter.com/someone", "twitter"},
		{"https://x.com/someone", "twitter"},
		{"@someone", "twitter"},
		{"someone", "twitter"},
	}
	for _, tc := range cases {
		adapter, err := sel.Select(tc.locator)
		if err != nil {
			t.Fatalf("Select(%q): %v", tc.locator, err)
		}
		if adapter.Name() != tc.want {
			t.Fatalf("Select(%q) = %s, want %s", tc.locator, adapter.Name(), tc.want)
		}
	}

	for _, locator := range []string{"", "https://youtube.com/watch?v=1", "not a locator"} {
		if _, err := sel.Select(locator); !errors.Is(err, source.ErrUnsupportedLocator) {
			t.Fatalf("Select(%q): expected ErrUnsupportedLocator, got %v", locator, err)
		}
	}
}

func TestTwitterListIDsNormalizesHandleAndCaps(t *testing.T) {
	lister := &stubLister{ids: []string{"1", "2", "3", "4"}}
	adapter := source.NewTwitter(lister, &stubProber{})

	ids, err := adapter.ListIDs(context.Background(), "@someone", 2)
	if err != nil {
		t.Fatalf("ListIDs: %v", err)
	}
	if lister.url != "https://twitter.com/someone" {
		t.Fatalf("unexpected account url: %q", lister.url)
	}
	if !reflect.DeepEqual(ids, []string{"1", "2"}) {
		t.Fatalf("unexpected ids: %v", ids)
	}

	ids, err = adapter.ListIDs(context.Background(), "https://x.com/someone", 0)
	if err != nil {
		t.Fatalf("ListIDs: %v", err)
	}
	if len(ids) != 4 {
		t.Fatalf("expected uncapped listing, got %v", ids)
	}
	if lister.url != "https://x.com/someone" {
		t.Fatalf("full urls should pass through, got %q", lister.url)
	}
}

func TestTwitterFetchInfoDerivesTitle(t *testing.T) {
	prober := &stubProber{info: ytdlp.Info{
		ID:          "1780000000000000001",
		Description: "A great clip worth watching https://t.co/abc123\nsecond line",
		Duration:    95.7,
		UploadDate:  "20240311",
		Thumbnails: []ytdlp.Thumb{
			{ID: "small", URL: "https://img/small.jpg"},
			{ID: "orig", URL: "https://img/orig.jpg"},
		},
	}}
	adapter := source.NewTwitter(&stubLister{}, prober)

	cand, err := adapter.FetchInfo(context.Background(), "1780000000000000001")
	if err != nil {
		t.Fatalf("FetchInfo: %v", err)
	}
	if prober.url != "https://twitter.com/i/status/1780000000000000001" {
		t.Fatalf("unexpected status url: %q", prober.url)
	}
	if cand.Title != "A great clip worth watching" {
		t.Fatalf("unexpected title: %q", cand.Title)
	}
	if cand.DurationSeconds != 95 {
		t.Fatalf("expected truncated duration, got %d", cand.DurationSeconds)
	}
	if cand.ThumbnailURL != "https://img/orig.jpg" {
		t.Fatalf("expected orig thumbnail, got %q", cand.ThumbnailURL)
	}
	want := time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)
	if !cand.PublishedAt.Equal(want) {
		t.Fatalf("unexpected publish date: %v", cand.PublishedAt)
	}
}

func TestTwitterFetchInfoWrapsFailures(t *testing.T) {
	adapter := source.NewTwitter(&stubLister{}, &stubProber{err: errors.New("exit status 1")})
	_, err := adapter.FetchInfo(context.Background(), "42")
	if err == nil {
		t.Fatal("expected error")
	}
	var fetchErr *source.FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected FetchError, got %T", err)
	}
	if fetchErr.Platform != "twitter" || fetchErr.ID != "42" {
		t.Fatalf("unexpected fetch error: %+v", fetchErr)
	}
}

func TestTwitterTitleFallsBackToTruncatedText(t *testing.T) {
	long := "https://t.co/only-a-link\n" +
		"this second line is quite long and will definitely exceed the eighty character title budget for tweets"
	prober := &stubProber{info: ytdlp.Info{ID: "7", Description: long, Timestamp: 1710115200}}
	adapter := source.NewTwitter(&stubLister{}, prober)

	cand, err := adapter.FetchInfo(context.Background(), "7")
	if err != nil {
		t.Fatalf("FetchInfo: %v", err)
	}
	if len([]rune(cand.Title)) > 80 {
		t.Fatalf("title too long: %q", cand.Title)
	}
	if cand.Title == "" {
		t.Fatal("expected non-empty title")
	}
	if !cand.PublishedAt.Equal(time.Unix(1710115200, 0).UTC()) {
		t.Fatalf("expected timestamp fallback, got %v", cand.PublishedAt)
	}
}

func TestAparatListIDsScrapesPage(t *testing.T) {
	page := `<html>
	<a href="/v/Abc01">first</a>
	<script>{"uid":"Def02","title":"x"}</script>
	<a href="/v/Abc01">repeat</a>
	<a href="/v/Ghi03">third</a>
	</html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	adapter := source.NewAparat(srv.Client(), &stubProber{})
	ids, err := adapter.ListIDs(context.Background(), srv.URL+"/playlist/9", 0)
	if err != nil {
		t.Fatalf("ListIDs: %v", err)
	}
	want := []string{"Abc01", "Def02", "Ghi03"}
	if !reflect.DeepEqual(ids, want) {
		t.Fatalf("unexpected ids: got %v want %v", ids, want)
	}

	capped, err := adapter.ListIDs(context.Background(), srv.URL+"/playlist/9", 2)
	if err != nil {
		t.Fatalf("ListIDs capped: %v", err)
	}
	if !reflect.DeepEqual(capped, want[:2]) {
		t.Fatalf("unexpected capped ids: %v", capped)
	}
}

func TestAparatListIDsRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	adapter := source.NewAparat(srv.Client(), &stubProber{})
	if _, err := adapter.ListIDs(context.Background(), srv.URL, 0); err == nil {
		t.Fatal("expected error for non-200 page")
	}
}

func TestAparatFetchInfoUsesWatchURL(t *testing.T) {
	prober := &stubProber{info: ytdlp.Info{
		ID:        "Abc01",
		Title:     "  An aparat video  ",
		Duration:  600,
		Thumbnail: "https://img/flat.jpg",
	}}
	adapter := source.NewAparat(nil, prober)

	cand, err := adapter.FetchInfo(context.Background(), "Abc01")
	if err != nil {
		t.Fatalf("FetchInfo: %v", err)
	}
	if prober.url != "https://www.aparat.com/v/Abc01" {
		t.Fatalf("unexpected watch url: %q", prober.url)
	}
	if cand.Title != "An aparat video" {
		t.Fatalf("unexpected title: %q", cand.Title)
	}
	if cand.ThumbnailURL != "https://img/flat.jpg" {
		t.Fatalf("expected flat thumbnail fallback, got %q", cand.ThumbnailURL)
	}
	if cand.DurationSeconds != 600 {
		t.Fatalf("unexpected duration: %d", cand.DurationSeconds)
	}
}
