package ffmpeg

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"

	"animux/internal/services"
)

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onLine func(string)) error
}

// Option configures the runner.
type Option func(*Runner)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(r *Runner) {
		if exec != nil {
			r.exec = exec
		}
	}
}

// Runner executes a fixed external binary with per-call argument lists.
type Runner struct {
	binary string
	exec   Executor
}

// NewRunner constructs a runner for the given binary name.
func NewRunner(binary string, opts ...Option) (*Runner, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("binary required")
	}
	runner := &Runner{binary: binary, exec: commandExecutor{}}
	for _, opt := range opts {
		opt(runner)
	}
	return runner, nil
}

// Binary returns the configured binary name.
func (r *Runner) Binary() string {
	if r == nil {
		return ""
	}
	return r.binary
}

// Run executes the binary, forwarding each diagnostic line to onLine. The
// returned error is tagged services.ErrSpawn when the binary could not be
// started and carries a *services.ProcessError on non-zero exit.
func (r *Runner) Run(ctx context.Context, args []string, onLine func(string)) error {
	if r == nil {
		return errors.New("runner not initialized")
	}
	return r.exec.Run(ctx, r.binary, args, onLine)
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, onLine func(string)) error {
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
		return services.Wrap(services.ErrSpawn, "ffmpeg", "start "+binary, "", err)
	}

	var (
		wg      sync.WaitGroup
		tailMu  sync.Mutex
		tail    strings.Builder
		scanErr error
		once    sync.Once
	)

	forward := func(line string) {
		tailMu.Lock()
		tail.WriteString(line)
		tail.WriteByte('\n')
		tailMu.Unlock()
		if onLine != nil {
			onLine(line)
		}
	}

	scan := func(r io.Reader) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		scanner.Split(scanToolLines)
		for scanner.Scan() {
			forward(scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			once.Do(func() { scanErr = err })
		}
	}

	wg.Add(2)
	go scan(stdout)
	go scan(stderr)
	wg.Wait()

	if scanErr != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return fmt.Errorf("scan output: %w", scanErr)
	}

	if err := cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			tailMu.Lock()
			output := tail.String()
			tailMu.Unlock()
			return services.NewProcessError(binary, exitErr.ExitCode(), output)
		}
		return fmt.Errorf("wait command: %w", err)
	}
	return nil
}

// scanToolLines splits on both \n and \r so carriage-return progress updates
// from ffmpeg surface as individual lines.
func scanToolLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		advance = i + 1
		// Swallow a \n that directly follows \r.
		if data[i] == '\r' && i+1 < len(data) && data[i+1] == '\n' {
			advance++
		}
		return advance, dropTrailingSpace(data[:i]), nil
	}
	if atEOF {
		return len(data), dropTrailingSpace(data), nil
	}
	return 0, nil, nil
}

func dropTrailingSpace(data []byte) []byte {
	return bytes.TrimRight(data, " \t")
}
