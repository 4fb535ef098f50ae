// Package ffmpeg wraps ffmpeg invocations for HLS segmentation and audio
// extraction.
package ffmpeg

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Names of the artifacts Segment writes into the HLS directory.
const (
	PlaylistName       = "master.m3u8"
	SegmentNamePattern = "segment_%03d.ts"
)

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string) error
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

// Client wraps ffmpeg CLI interactions.
type Client struct {
	binary         string
	timeout        time.Duration
	segmentSeconds int
	audioBitrate   string
	sampleRate     int
	exec           Executor
}

// New constructs an ffmpeg client.
func New(binary string, timeoutSeconds, segmentSeconds int, audioBitrate string, sampleRate int, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("ffmpeg binary required")
	}
	client := &Client{
		binary:         binary,
		timeout:        time.Duration(timeoutSeconds) * time.Second,
		segmentSeconds: segmentSeconds,
		audioBitrate:   audioBitrate,
		sampleRate:     sampleRate,
		exec:           commandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Segment stream-copies src into an HLS rendition under hlsDir. The media is
// not re-encoded; ffmpeg only splits the existing streams into segments.
func (c *Client) Segment(ctx context.Context, src, hlsDir string) error {
	if strings.TrimSpace(src) == "" {
		return errors.New("source path required")
	}
	if strings.TrimSpace(hlsDir) == "" {
		return errors.New("hls directory required")
	}
	if err := os.MkdirAll(hlsDir, 0o755); err != nil {
		return fmt.Errorf("create hls directory: %w", err)
	}

	args := []string{
		"-hide_banner",
		"-y",
		"-i", src,
		"-c", "copy",
		"-start_number", "0",
		"-hls_time", strconv.Itoa(c.segmentSeconds),
		"-hls_list_size", "0",
		"-hls_segment_filename", filepath.Join(hlsDir, SegmentNamePattern),
		"-f", "hls",
		filepath.Join(hlsDir, PlaylistName),
	}

	if err := c.run(ctx, args); err != nil {
		return fmt.Errorf("ffmpeg segment: %w", err)
	}
	if _, err := os.Stat(filepath.Join(hlsDir, PlaylistName)); err != nil {
		return fmt.Errorf("ffmpeg segment: no playlist produced: %w", err)
	}
	return nil
}

// ExtractAudio transcodes the audio track of src into an MP3 at dest.
func (c *Client) ExtractAudio(ctx context.Context, src, dest string) error {
	if strings.TrimSpace(src) == "" {
		return errors.New("source path required")
	}
	if strings.TrimSpace(dest) == "" {
		return errors.New("destination path required")
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create destination directory: %w", err)
	}

	args := []string{
		"-hide_banner",
		"-y",
		"-i", src,
		"-vn",
		"-acodec", "libmp3lame",
		"-ab", c.audioBitrate,
		"-ar", strconv.Itoa(c.sampleRate),
		"-ac", "2",
		dest,
	}

	if err := c.run(ctx, args); err != nil {
		return fmt.Errorf("ffmpeg extract audio: %w", err)
	}
	if _, err := os.Stat(dest); err != nil {
		return fmt.Errorf("ffmpeg extract audio: no output produced: %w", err)
	}
	return nil
}

func (c *Client) run(ctx context.Context, args []string) error {
	runCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	err := c.exec.Run(runCtx, c.binary, args)
	if err != nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("timed out after %s: %w", c.timeout, err)
	}
	return err
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start command: %w", err)
	}

	// ffmpeg reports everything on stderr; keep a short tail for error context.
	var tail []string
	scanner := bufio.NewScanner(stderr)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		if len(tail) >= 8 {
			tail = tail[1:]
		}
		tail = append(tail, scanner.Text())
	}

	if err := cmd.Wait(); err != nil {
		if detail := strings.TrimSpace(strings.Join(tail, "; ")); detail != "" {
			return fmt.Errorf("wait command: %w: %s", err, detail)
		}
		return fmt.Errorf("wait command: %w", err)
	}
	return nil
}
