package temporalcli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// ErrCLINotFound indicates the Temporal CLI binary is not installed or not on
// PATH.
var ErrCLINotFound = errors.New("temporal CLI not found in PATH")

// Runner invokes the CLI binary and returns raw stdout.
type Runner interface {
	Run(ctx context.Context, args []string) ([]byte, error)
}

// DefaultTimeout bounds one CLI invocation. Large histories can take a while
// to stream, so this is generous.
const DefaultTimeout = 60 * time.Second

// BinaryRunner shells out to the configured binary. Invocations pass a
// token-bucket limiter so bursts of tool calls cannot hammer the server
// behind the CLI.
type BinaryRunner struct {
	binaryPath string
	timeout    time.Duration
	limiter    *rate.Limiter
}

// NewBinaryRunner creates a runner for binaryPath, limited to rps invocations
// per second. timeout <= 0 selects DefaultTimeout; rps <= 0 disables
// limiting.
func NewBinaryRunner(binaryPath string, timeout time.Duration, rps float64) *BinaryRunner {
	if binaryPath == "" {
		binaryPath = "temporal"
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	limit := rate.Inf
	burst := 1
	if rps > 0 {
		limit = rate.Limit(rps)
		burst = int(rps) + 1
	}
	return &BinaryRunner{
		binaryPath: binaryPath,
		timeout:    timeout,
		limiter:    rate.NewLimiter(limit, burst),
	}
}

// Run executes the CLI with the given arguments and returns stdout. A
// non-zero exit wraps stderr into the returned error.
func (r *BinaryRunner) Run(ctx context.Context, args []string) ([]byte, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("temporal cli: rate limit: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	slog.Debug("invoking temporal cli", "args", strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, r.binaryPath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, ErrCLINotFound
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("temporal cli: timed out after %s: %w", r.timeout, ctx.Err())
		}
		return nil, fmt.Errorf("temporal cli: %w (stderr: %s)", err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}
