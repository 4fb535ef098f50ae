// Package ytdlp wraps yt-dlp invocations for metadata probing and media
// download.
package ytdlp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// maxInfoOutput caps how much --dump-json output is retained.
const maxInfoOutput = 10 << 20

// Info is the subset of yt-dlp metadata the importer consumes.
type Info struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Duration    float64  `json:"duration"`
	UploadDate  string   `json:"upload_date"`
	Timestamp   int64    `json:"timestamp"`
	Thumbnail   string   `json:"thumbnail"`
	Thumbnails  []Thumb  `json:"thumbnails"`
	Uploader    string   `json:"uploader"`
	WebpageURL  string   `json:"webpage_url"`
	Formats     []Format `json:"formats"`
}

// Thumb is a single thumbnail variant from yt-dlp metadata.
type Thumb struct {
	ID     string `json:"id"`
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Format is a single downloadable format from yt-dlp metadata.
type Format struct {
	FormatID string `json:"format_id"`
	Ext      string `json:"ext"`
	URL      string `json:"url"`
}

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onStdout func(string)) error
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Client wraps yt-dlp CLI interactions.
type Client struct {
	binary          string
	cookiesFile     string
	infoTimeout     time.Duration
	downloadTimeout time.Duration
	exec            Executor
}

// New constructs a yt-dlp client. cookiesFile may be empty.
func New(binary, cookiesFile string, infoTimeoutSeconds, downloadTimeoutSeconds int, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("yt-dlp binary required")
	}
	client := &Client{
		binary:          binary,
		cookiesFile:     strings.TrimSpace(cookiesFile),
		infoTimeout:     time.Duration(infoTimeoutSeconds) * time.Second,
		downloadTimeout: time.Duration(downloadTimeoutSeconds) * time.Second,
		exec:            commandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// DumpJSON fetches item metadata without downloading media.
func (c *Client) DumpJSON(ctx context.Context, url string) (Info, error) {
	var info Info
	if strings.TrimSpace(url) == "" {
		return info, errors.New("url required")
	}

	infoCtx := ctx
	if c.infoTimeout > 0 {
		var cancel context.CancelFunc
		infoCtx, cancel = context.WithTimeout(ctx, c.infoTimeout)
		defer cancel()
	}

	args := []string{"--dump-json", "--no-warnings", "--no-playlist"}
	args = c.appendCookies(args)
	args = append(args, url)

	var out strings.Builder
	err := c.exec.Run(infoCtx, c.binary, args, func(line string) {
		if out.Len() < maxInfoOutput {
			out.WriteString(line)
			out.WriteByte('\n')
		}
	})
	if err != nil {
		if errors.Is(infoCtx.Err(), context.DeadlineExceeded) {
			return info, fmt.Errorf("yt-dlp info timed out after %s: %w", c.infoTimeout, err)
		}
		return info, fmt.Errorf("yt-dlp info: %w", err)
	}

	payload := strings.TrimSpace(out.String())
	if payload == "" {
		return info, errors.New("yt-dlp info: empty output")
	}
	// With --no-playlist the output is a single JSON object, but keep only
	// the first line in case the extractor emits trailing noise.
	if idx := strings.IndexByte(payload, '\n'); idx > 0 {
		payload = payload[:idx]
	}
	if err := json.Unmarshal([]byte(payload), &info); err != nil {
		return info, fmt.Errorf("yt-dlp info: parse metadata: %w", err)
	}
	if info.ID == "" {
		return info, errors.New("yt-dlp info: metadata missing id")
	}
	return info, nil
}

// Download fetches the item's media to destPath.
func (c *Client) Download(ctx context.Context, url, destPath string) error {
	if strings.TrimSpace(url) == "" {
		return errors.New("url required")
	}
	if strings.TrimSpace(destPath) == "" {
		return errors.New("destination path required")
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("create destination: %w", err)
	}

	dlCtx := ctx
	if c.downloadTimeout > 0 {
		var cancel context.CancelFunc
		dlCtx, cancel = context.WithTimeout(ctx, c.downloadTimeout)
		defer cancel()
	}

	args := []string{
		"-f", "best[ext=mp4]/best",
		"--no-warnings",
		"--no-playlist",
		"-o", destPath,
	}
	args = c.appendCookies(args)
	args = append(args, url)

	if err := c.exec.Run(dlCtx, c.binary, args, nil); err != nil {
		if errors.Is(dlCtx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("yt-dlp download timed out after %s: %w", c.downloadTimeout, err)
		}
		return fmt.Errorf("yt-dlp download: %w", err)
	}

	if _, err := os.Stat(destPath); err != nil {
		return fmt.Errorf("yt-dlp download: no output file: %w", err)
	}
	return nil
}

func (c *Client) appendCookies(args []string) []string {
	if c.cookiesFile == "" {
		return args
	}
	return append(args, "--cookies", c.cookiesFile)
}
