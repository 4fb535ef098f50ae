package source

import (
	"context"
	"strings"
	"time"

	"clipsync/internal/services/ytdlp"
)

const twitterPlatform = "twitter"

// twitterTitleMax bounds titles derived from long tweet text.
const twitterTitleMax = 80

// TweetLister enumerates tweet ids for an account URL.
type TweetLister interface {
	TweetIDs(ctx context.Context, accountURL string) ([]string, error)
}

// InfoProber resolves item metadata without downloading media.
type InfoProber interface {
	DumpJSON(ctx context.Context, url string) (ytdlp.Info, error)
}

// Twitter imports video tweets from a Twitter/X account.
type Twitter struct {
	lister TweetLister
	prober InfoProber
	now    func() time.Time
}

// NewTwitter constructs the twitter adapter.
func NewTwitter(lister TweetLister, prober InfoProber) *Twitter {
	return &Twitter{lister: lister, prober: prober, now: time.Now}
}

func (t *Twitter) Name() string { return twitterPlatform }

// ListIDs enumerates tweet ids for the account locator, newest first as the
// platform reports them.
func (t *Twitter) ListIDs(ctx context.Context, locator string, maxItems int) ([]string, error) {
	ids, err := t.lister.TweetIDs(ctx, normalizeTwitterLocator(locator))
	if err != nil {
		return nil, err
	}
	if maxItems > 0 && len(ids) > maxItems {
		ids = ids[:maxItems]
	}
	return ids, nil
}

// FetchInfo resolves a single tweet's video metadata.
func (t *Twitter) FetchInfo(ctx context.Context, id string) (Candidate, error) {
	url := "https://twitter.com/i/status/" + id
	info, err := t.prober.DumpJSON(ctx, url)
	if err != nil {
		return Candidate{}, &FetchError{Platform: twitterPlatform, ID: id, Err: err}
	}
	return Candidate{
		Platform:        twitterPlatform,
		ID:              id,
		Title:           tweetTitle(info),
		Description:     strings.TrimSpace(info.Description),
		ThumbnailURL:    bestThumbnail(info),
		SourceURL:       url,
		DurationSeconds: int(info.Duration),
		PublishedAt:     publishDate(info, t.now),
	}, nil
}

func normalizeTwitterLocator(locator string) string {
	trimmed := strings.TrimSpace(locator)
	if strings.Contains(trimmed, "twitter.com") || strings.Contains(trimmed, "x.com") {
		return trimmed
	}
	handle := strings.TrimPrefix(trimmed, "@")
	return "https://twitter.com/" + handle
}

// tweetTitle derives a title from tweet text: the first line with trailing
// t.co links removed, truncated when the tweet has no usable first line.
func tweetTitle(info ytdlp.Info) string {
	text := strings.TrimSpace(info.Description)
	if text == "" {
		text = strings.TrimSpace(info.Title)
	}
	if text == "" {
		return info.ID
	}
	line := text
	if idx := strings.IndexByte(line, '\n'); idx >= 0 {
		line = line[:idx]
	}
	line = stripTrailingURLs(line)
	if line == "" {
		line = stripTrailingURLs(strings.ReplaceAll(text, "\n", " "))
	}
	if line == "" {
		return info.ID
	}
	runes := []rune(line)
	if len(runes) > twitterTitleMax {
		line = strings.TrimSpace(string(runes[:twitterTitleMax]))
	}
	return line
}

func stripTrailingURLs(line string) string {
	words := strings.Fields(line)
	for len(words) > 0 {
		last := words[len(words)-1]
		if strings.HasPrefix(last, "https://") || strings.HasPrefix(last, "http://") {
			words = words[:len(words)-1]
			continue
		}
		break
	}
	return strings.Join(words, " ")
}
