package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"time"
)

const aparatPlatform = "aparat"

// maxPlaylistPage caps how much of a playlist page is read.
const maxPlaylistPage = 4 << 20

var (
	aparatLinkPattern = regexp.MustCompile(`/v/([A-Za-z0-9]+)`)
	aparatUIDPattern  = regexp.MustCompile(`"uid"\s*:\s*"([A-Za-z0-9]+)"`)
)

// Aparat imports videos from aparat.com playlist and channel pages.
type Aparat struct {
	httpClient *http.Client
	prober     InfoProber
	now        func() time.Time
}

// NewAparat constructs the aparat adapter. httpClient may be nil.
func NewAparat(httpClient *http.Client, prober InfoProber) *Aparat {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Aparat{httpClient: httpClient, prober: prober, now: time.Now}
}

func (a *Aparat) Name() string { return aparatPlatform }

// ListIDs scrapes video uids from the playlist page, ordered by first
// appearance in the page source.
func (a *Aparat) ListIDs(ctx context.Context, locator string, maxItems int) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimSpace(locator), nil)
	if err != nil {
		return nil, fmt.Errorf("build playlist request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64)")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch playlist page: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch playlist page: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPlaylistPage))
	if err != nil {
		return nil, fmt.Errorf("read playlist page: %w", err)
	}

	ids := extractAparatIDs(string(body))
	if maxItems > 0 && len(ids) > maxItems {
		ids = ids[:maxItems]
	}
	return ids, nil
}

// FetchInfo resolves a single video's metadata from its watch page.
func (a *Aparat) FetchInfo(ctx context.Context, id string) (Candidate, error) {
	url := "https://www.aparat.com/v/" + id
	info, err := a.prober.DumpJSON(ctx, url)
	if err != nil {
		return Candidate{}, &FetchError{Platform: aparatPlatform, ID: id, Err: err}
	}
	title := strings.TrimSpace(info.Title)
	if title == "" {
		title = id
	}
	return Candidate{
		Platform:        aparatPlatform,
		ID:              id,
		Title:           title,
		Description:     strings.TrimSpace(info.Description),
		ThumbnailURL:    bestThumbnail(info),
		SourceURL:       url,
		DurationSeconds: int(info.Duration),
		PublishedAt:     publishDate(info, a.now),
	}, nil
}

// extractAparatIDs collects uids from watch links and embedded JSON,
// de-duplicated and ordered by first appearance.
func extractAparatIDs(page string) []string {
	type hit struct {
		id  string
		pos int
	}
	var hits []hit
	seen := make(map[string]struct{})
	collect := func(matches [][]int) {
		for _, m := range matches {
			id := page[m[2]:m[3]]
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			hits = append(hits, hit{id: id, pos: m[0]})
		}
	}
	collect(aparatLinkPattern.FindAllStringSubmatchIndex(page, -1))
	collect(aparatUIDPattern.FindAllStringSubmatchIndex(page, -1))

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })
	ids := make([]string, 0, len(hits))
	for _, h := range hits {
		ids = append(ids, h.id)
	}
	return ids
}
