package ytdlp

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
)

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, onStdout func(string)) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start command: %w", err)
	}

	var wg sync.WaitGroup
	var errTail []string
	var mu sync.Mutex

	scan := func(r io.Reader, forward func(string)) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
		for scanner.Scan() {
			forward(scanner.Text())
		}
	}

	wg.Add(2)
	go scan(stdout, func(line string) {
		if onStdout != nil {
			onStdout(line)
		}
	})
	go scan(stderr, func(line string) {
		mu.Lock()
		if len(errTail) >= 8 {
			errTail = errTail[1:]
		}
		errTail = append(errTail, line)
		mu.Unlock()
	})

	wg.Wait()
	if err := cmd.Wait(); err != nil {
		mu.Lock()
		tail := strings.TrimSpace(strings.Join(errTail, "; "))
		mu.Unlock()
		if tail != "" {
			return fmt.Errorf("wait command: %w: %s", err, tail)
		}
		return fmt.Errorf("wait command: %w", err)
	}
	return nil
}
