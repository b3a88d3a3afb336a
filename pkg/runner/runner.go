package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/luochen1990/fhsval/pkg/metrics"
)

// DefaultTimeout bounds the wall-clock duration of a single external
// invocation. There are no retries.
const DefaultTimeout = 120 * time.Second

// ErrTimeout indicates the command exceeded its wall-clock bound.
// Distinct from a non-zero exit, which is reported through Result.
var ErrTimeout = errors.New("command timed out")

// Result captures one completed external invocation.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// Runner executes external commands synchronously with a bounded
// timeout, capturing exit code, stdout and stderr.
type Runner struct {
	Timeout time.Duration
}

func New() *Runner {
	return &Runner{Timeout: DefaultTimeout}
}

// Run executes name with args in dir. A non-zero exit is not an
// error; it is reported via Result.ExitCode. The returned error is
// non-nil only when the command could not run at all or timed out.
func (r *Runner) Run(ctx context.Context, dir string, name string, args ...string) (*Result, error) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(cctx, name, args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	if cctx.Err() == context.DeadlineExceeded {
		metrics.RecordInvocation(name, "timeout", elapsed.Seconds())
		return nil, fmt.Errorf("%w: %s", ErrTimeout, strings.Join(append([]string{name}, args...), " "))
	}

	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			metrics.RecordInvocation(name, "error", elapsed.Seconds())
			return nil, fmt.Errorf("failed to run %s: %w", name, err)
		}
	}

	res := &Result{
		ExitCode: cmd.ProcessState.ExitCode(),
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: elapsed,
	}

	status := "ok"
	if res.ExitCode != 0 {
		status = "nonzero_exit"
	}
	metrics.RecordInvocation(name, status, elapsed.Seconds())
	log.Debug().
		Str("command", name).
		Strs("args", args).
		Str("dir", dir).
		Int("exit_code", res.ExitCode).
		Dur("duration", elapsed).
		Msg("command finished")

	return res, nil
}
