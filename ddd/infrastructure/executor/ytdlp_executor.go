package executor

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"sync"
	"time"

	"subtitle-hub/ddd/domain/port"
	"subtitle-hub/pkg/logger"
)

// captureLimit bounds how many output lines a streaming run retains for
// diagnostics. Download runs emit one progress line per chunk, so unbounded
// capture would grow with file size.
const captureLimit = 200

// YtDlpExecutor implements port.Extractor on top of the external yt-dlp
// binary. It never interprets tool failures itself; callers classify.
type YtDlpExecutor struct {
	binary string
}

func NewYtDlpExecutor(binary string) *YtDlpExecutor {
	if strings.TrimSpace(binary) == "" {
		binary = "yt-dlp"
	}
	return &YtDlpExecutor{binary: binary}
}

// Run executes yt-dlp synchronously and captures its output. A non-zero exit
// is reported through RunResult.ExitCode with a nil error; only spawn-level
// failures (missing binary, timeout, cancellation) surface as errors.
func (e *YtDlpExecutor) Run(ctx context.Context, args []string, timeout time.Duration) (*port.RunResult, error) {
	runCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, e.binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := &port.RunResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if err != nil {
		// 超时和取消优先于ExitError（被kill的进程也会返回ExitError）
		if runCtx.Err() != nil {
			return result, runCtx.Err()
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		// exec.Error（二进制缺失等）原样抛出，保留errors.Is(err, exec.ErrNotFound)
		return nil, err
	}

	return result, nil
}

// RunStreaming executes yt-dlp and feeds stdout lines to onLine while the
// process runs. Only a bounded tail of output is retained in the result.
func (e *YtDlpExecutor) RunStreaming(ctx context.Context, args []string, onLine port.LineCallback) (*port.RunResult, error) {
	cmd := exec.CommandContext(ctx, e.binary, args...)

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	stdoutTail := newTailBuffer(captureLimit)
	stderrTail := newTailBuffer(captureLimit)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stdoutPipe)
		scanner.Buffer(make([]byte, 0, 1024), 1024*1024)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			stdoutTail.append(line)
			if onLine != nil {
				onLine(line)
			}
		}
	}()
	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stderrPipe)
		scanner.Buffer(make([]byte, 0, 1024), 1024*1024)
		for scanner.Scan() {
			stderrTail.append(strings.TrimSpace(scanner.Text()))
		}
	}()
	wg.Wait()

	err = cmd.Wait()
	result := &port.RunResult{
		Stdout: stdoutTail.join(),
		Stderr: stderrTail.join(),
	}

	if err != nil {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			logger.Debugf("extractor exited non-zero exit_code=%d binary=%s", result.ExitCode, e.binary)
			return result, nil
		}
		return nil, err
	}

	return result, nil
}

// tailBuffer keeps the last n appended lines.
type tailBuffer struct {
	limit int
	lines []string
}

func newTailBuffer(limit int) *tailBuffer {
	return &tailBuffer{limit: limit, lines: make([]string, 0, limit)}
}

func (b *tailBuffer) append(line string) {
	if len(b.lines) >= b.limit {
		b.lines = b.lines[1:]
	}
	b.lines = append(b.lines, line)
}

func (b *tailBuffer) join() string {
	return strings.Join(b.lines, "\n")
}
