// Package source discovers importable items on external platforms and
// normalizes their metadata into candidates the pipeline can process.
package source

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"clipsync/internal/services/ytdlp"
)

// ErrUnsupportedLocator is returned when no adapter recognizes a locator.
var ErrUnsupportedLocator = errors.New("unsupported locator")

// Candidate is an item discovered by an adapter, not yet downloaded.
type Candidate struct {
	Platform     string
	ID           string
	Title        string
	Description  string
	ThumbnailURL string
	SourceURL    string
	// Whole seconds, fractional durations truncated.
	DurationSeconds int
	PublishedAt     time.Time
}

// FetchError reports a per-item metadata failure. Unavailable or private
// items and non-zero tool exits all surface as FetchError.
type FetchError struct {
	Platform string
	ID       string
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s item %s: %v", e.Platform, e.ID, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Adapter lists platform item ids and resolves their metadata.
type Adapter interface {
	Name() string
	// ListIDs returns platform-native ids in platform order. maxItems caps
	// the result when positive.
	ListIDs(ctx context.Context, locator string, maxItems int) ([]string, error)
	FetchInfo(ctx context.Context, id string) (Candidate, error)
}

// Selector dispatches locators to the adapter that understands them.
type Selector struct {
	twitter Adapter
	aparat  Adapter
}

// NewSelector builds a selector over the two supported platforms.
func NewSelector(twitter, aparat Adapter) *Selector {
	return &Selector{twitter: twitter, aparat: aparat}
}

// Select picks the adapter for a locator. Aparat URLs go to the aparat
// adapter; twitter.com and x.com URLs, @handles, and bare handles go to the
// twitter adapter. Anything else is unsupported.
func (s *Selector) Select(locator string) (Adapter, error) {
	trimmed := strings.TrimSpace(locator)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: empty locator", ErrUnsupportedLocator)
	}
	lower := strings.ToLower(trimmed)
	switch {
	case strings.Contains(lower, "aparat.com"):
		return s.aparat, nil
	case strings.Contains(lower, "twitter.com"), strings.Contains(lower, "x.com"):
		return s.twitter, nil
	case strings.HasPrefix(trimmed, "@"):
		return s.twitter, nil
	case !strings.ContainsAny(trimmed, "./: "):
		// Bare handle, twitter is the default platform.
		return s.twitter, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedLocator, locator)
	}
}

var (
	twitterStatusPattern = regexp.MustCompile(`(?:twitter\.com|x\.com)/(?:[^/]+|i)/status(?:es)?/(\d+)`)
	aparatWatchPattern   = regexp.MustCompile(`aparat\.com/v/([A-Za-z0-9]+)`)
)

// ItemID extracts the platform-native item id from a single-item URL.
func ItemID(locator string) (string, error) {
	trimmed := strings.TrimSpace(locator)
	if m := twitterStatusPattern.FindStringSubmatch(trimmed); m != nil {
		return m[1], nil
	}
	if m := aparatWatchPattern.FindStringSubmatch(trimmed); m != nil {
		return m[1], nil
	}
	return "", fmt.Errorf("%w: no item id in %q", ErrUnsupportedLocator, locator)
}

// bestThumbnail prefers the variant named orig, then large, then the last
// listed variant, then the flat thumbnail field.
func bestThumbnail(info ytdlp.Info) string {
	var last string
	for _, thumb := range info.Thumbnails {
		if thumb.URL == "" {
			continue
		}
		if thumb.ID == "orig" {
			return thumb.URL
		}
		last = thumb.URL
	}
	for _, thumb := range info.Thumbnails {
		if thumb.ID == "large" && thumb.URL != "" {
			return thumb.URL
		}
	}
	if last != "" {
		return last
	}
	return info.Thumbnail
}

// publishDate resolves the original publish timestamp: upload_date YYYYMMDD
// first, then the unix timestamp, then now.
func publishDate(info ytdlp.Info, now func() time.Time) time.Time {
	if len(info.UploadDate) == 8 {
		if t, err := time.Parse("20060102", info.UploadDate); err == nil {
			return t.UTC()
		}
	}
	if info.Timestamp > 0 {
		return time.Unix(info.Timestamp, 0).UTC()
	}
	return now().UTC()
}
