// Package gallerydl wraps gallery-dl invocations used to enumerate tweet ids
// for a Twitter/X account.
package gallerydl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"
)

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

// Client wraps gallery-dl CLI interactions.
type Client struct {
	binary      string
	cookiesFile string
	listTimeout time.Duration
	exec        Executor
}

// New constructs a gallery-dl client. cookiesFile may be empty.
func New(binary, cookiesFile string, listTimeoutSeconds int, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("gallery-dl binary required")
	}
	client := &Client{
		binary:      binary,
		cookiesFile: strings.TrimSpace(cookiesFile),
		listTimeout: time.Duration(listTimeoutSeconds) * time.Second,
		exec:        commandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// TweetIDs lists tweet ids for an account URL, newest first, in the order
// gallery-dl emits them. Non-numeric lines are dropped and duplicates keep
// their first position.
func (c *Client) TweetIDs(ctx context.Context, accountURL string) ([]string, error) {
	if strings.TrimSpace(accountURL) == "" {
		return nil, errors.New("account url required")
	}

	listCtx := ctx
	if c.listTimeout > 0 {
		var cancel context.CancelFunc
		listCtx, cancel = context.WithTimeout(ctx, c.listTimeout)
		defer cancel()
	}

	args := []string{"--print", "{tweet_id}", "--quiet"}
	if c.cookiesFile != "" {
		args = append(args, "--cookies", c.cookiesFile)
	}
	args = append(args, accountURL)

	var ids []string
	seen := make(map[string]struct{})
	err := c.exec.Run(listCtx, c.binary, args, func(line string) {
		id := strings.TrimSpace(line)
		if !numeric(id) {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	})
	if err != nil {
		if errors.Is(listCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("gallery-dl listing timed out after %s: %w", c.listTimeout, err)
		}
		return nil, fmt.Errorf("gallery-dl listing: %w", err)
	}
	return ids, nil
}

func numeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, onStdout func(string)) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	cmd.Stderr = io.Discard
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start command: %w", err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			if onStdout != nil {
				onStdout(scanner.Text())
			}
		}
	}()

	wg.Wait()
	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("wait command: %w", err)
	}
	return nil
}
