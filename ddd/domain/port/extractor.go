package port

import (
	"context"
	"time"
)

// RunResult is the captured outcome of one extractor invocation. A non-zero
// exit code is reported here, never as an error; classification belongs to
// the caller.
type RunResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Output concatenates stderr and stdout for error-marker matching.
func (r *RunResult) Output() string {
	if r == nil {
		return ""
	}
	if r.Stderr == "" {
		return r.Stdout
	}
	if r.Stdout == "" {
		return r.Stderr
	}
	return r.Stderr + "\n" + r.Stdout
}

// LineCallback receives one stdout line at a time while a streaming
// invocation is running.
type LineCallback func(line string)

// Extractor wraps the external media tool. Run and RunStreaming return a
// non-nil error only for spawn-level failures (binary missing, timeout,
// cancelled context); everything the tool itself reports travels in the
// RunResult.
type Extractor interface {
	// Run executes the tool and captures its output. timeout <= 0 means no
	// limit beyond ctx.
	Run(ctx context.Context, args []string, timeout time.Duration) (*RunResult, error)

	// RunStreaming executes the tool and feeds stdout lines to onLine while
	// the process runs. The result's Stdout holds only a bounded tail of the
	// combined output, for diagnostics.
	RunStreaming(ctx context.Context, args []string, onLine LineCallback) (*RunResult, error)
}
