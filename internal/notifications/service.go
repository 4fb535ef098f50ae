package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"clipsync/internal/config"
)

const userAgent = "clipsync/0.1.0"

// Service defines the notification surface exposed to import components.
type Service interface {
	NotifyImportStarted(ctx context.Context, locator string) error
	NotifyImportCompleted(ctx context.Context, downloaded, skipped, failed int, duration time.Duration) error
	NotifyImportFailed(ctx context.Context, locator string, cause error) error
	NotifyVideoPublished(ctx context.Context, title, streamURL string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyImportStarted(ctx context.Context, locator string) error {
	data := payload{
		title:   "Clipsync - Import Started",
		message: fmt.Sprintf("Import started from %s", strings.TrimSpace(locator)),
		tags:    []string{"clipsync", "import", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyImportCompleted(ctx context.Context, downloaded, skipped, failed int, duration time.Duration) error {
	data := payload{
		title: "Clipsync - Import Completed",
		message: fmt.Sprintf("Import finished in %s: %d downloaded, %d skipped, %d failed",
			duration.Round(time.Second), downloaded, skipped, failed),
		tags: []string{"clipsync", "import", "completed"},
	}
	if failed > 0 {
		data.priority = "high"
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyImportFailed(ctx context.Context, locator string, cause error) error {
	message := fmt.Sprintf("Import from %s failed", strings.TrimSpace(locator))
	if cause != nil {
		message = fmt.Sprintf("%s: %v", message, cause)
	}
	data := payload{
		title:    "Clipsync - Import Failed",
		message:  message,
		tags:     []string{"clipsync", "import", "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyVideoPublished(ctx context.Context, title, streamURL string) error {
	message := fmt.Sprintf("Published: %s", strings.TrimSpace(title))
	if streamURL != "" {
		message = fmt.Sprintf("%s\n%s", message, streamURL)
	}
	data := payload{
		title:   "Clipsync - Video Published",
		message: message,
		tags:    []string{"clipsync", "publish"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:   "Clipsync - Test",
		message: "Notifications are configured correctly.",
		tags:    []string{"clipsync", "test"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

type noopService struct{}

func (noopService) NotifyImportStarted(context.Context, string) error { return nil }

func (noopService) NotifyImportCompleted(context.Context, int, int, int, time.Duration) error {
	return nil
}

func (noopService) NotifyImportFailed(context.Context, string, error) error { return nil }

func (noopService) NotifyVideoPublished(context.Context, string, string) error { return nil }

func (noopService) TestNotification(context.Context) error { return nil }
