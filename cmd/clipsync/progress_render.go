package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"clipsync/internal/progress"
)

const (
	ansiReset  = "\x1b[0m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiRed    = "\x1b[31m"
	ansiBlue   = "\x1b[34m"
)

// renderProgress consumes an SSE stream of import events and prints one
// line per event until a terminal event arrives. With jsonOutput each event
// is echoed as raw JSON instead.
func renderProgress(out io.Writer, body io.Reader, jsonOutput bool) error {
	colorize := shouldColorize(out)
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		payload := strings.TrimPrefix(line, "data: ")

		var event progress.Event
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			continue
		}
		if jsonOutput {
			fmt.Fprintln(out, payload)
		} else {
			fmt.Fprintln(out, formatEvent(event, colorize))
		}
		if event.Terminal() {
			if event.Status == progress.StatusError {
				return errors.New(event.Error)
			}
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read progress stream: %w", err)
	}
	return errors.New("progress stream ended without a terminal event")
}

func formatEvent(event progress.Event, colorize bool) string {
	paint := func(color, s string) string {
		if !colorize {
			return s
		}
		return color + s + ansiReset
	}

	switch event.Status {
	case progress.StatusStarting:
		return "Starting import..."
	case progress.StatusIDsFetched:
		return fmt.Sprintf("Found %d items", event.Total)
	case progress.StatusFetchingInfo:
		return fmt.Sprintf("Fetching metadata %d/%d", event.Current, event.Total)
	case progress.StatusVideoAdded:
		return fmt.Sprintf("Queued %s", itemLabel(event))
	case progress.StatusChecking, progress.StatusDownloading, progress.StatusProcessing:
		return fmt.Sprintf("[%d/%d] %s %s", event.VideoIndex, event.Total, string(event.Status), itemLabel(event))
	case progress.StatusCompleted:
		return paint(ansiGreen, fmt.Sprintf("[%d/%d] completed %s", event.VideoIndex, event.Total, itemLabel(event)))
	case progress.StatusSkipped:
		return paint(ansiYellow, fmt.Sprintf("skipped %s (%s)", itemLabel(event), event.Reason))
	case progress.StatusFailed:
		return paint(ansiRed, fmt.Sprintf("failed %s: %s", itemLabel(event), event.Error))
	case progress.StatusDone:
		return paint(ansiGreen, fmt.Sprintf("Done: %d downloaded, %d skipped, %d failed",
			intValue(event.Downloaded), intValue(event.Skipped), intValue(event.Failed)))
	case progress.StatusError:
		return paint(ansiRed, "Import failed: "+event.Error)
	default:
		return string(event.Status)
	}
}

func itemLabel(event progress.Event) string {
	if event.Video != "" {
		return event.Video
	}
	return event.VideoID
}

func intValue(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
