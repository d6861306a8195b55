// Package toolchain runs the binutils programs whose text output is parsed
// by the analysis stages.
package toolchain

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/coral-mesh/elfinsight/internal/retry"
)

// Result is the outcome of a process that ran to completion.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Runner runs a program and collects its output. A non-zero exit is reported
// through Result.ExitCode; err is reserved for spawn failures, cancellation
// and timeouts.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (Result, error)
}

// ErrToolInvocationFailed matches every InvocationError.
var ErrToolInvocationFailed = errors.New("tool invocation failed")

// InvocationError describes a tool that failed to spawn, timed out or exited
// non-zero.
type InvocationError struct {
	Tool     string
	Args     []string
	ExitCode int
	Stderr   string
	TimedOut bool
	Timeout  time.Duration
	Err      error
}

// Error implements the error interface.
func (e *InvocationError) Error() string {
	switch {
	case e.TimedOut && e.Timeout > 0:
		return fmt.Sprintf("%s timed out after %s", e.Tool, e.Timeout)
	case e.TimedOut:
		return fmt.Sprintf("%s timed out", e.Tool)
	case e.Err != nil:
		return fmt.Sprintf("%s failed to run: %v", e.Tool, e.Err)
	default:
		msg := fmt.Sprintf("%s exited with code %d", e.Tool, e.ExitCode)
		if stderr := firstLine(e.Stderr); stderr != "" {
			msg += ": " + stderr
		}
		return msg
	}
}

// Is lets errors.Is match ErrToolInvocationFailed.
func (e *InvocationError) Is(target error) bool {
	return target == ErrToolInvocationFailed
}

// Unwrap returns the underlying spawn or context error.
func (e *InvocationError) Unwrap() error {
	return e.Err
}

// ExecRunner runs programs with os/exec.
type ExecRunner struct {
	// Timeout bounds a single invocation. Zero means no bound beyond ctx.
	Timeout time.Duration
	// Retry applies to transient spawn failures only.
	Retry  retry.Config
	Logger zerolog.Logger
}

// NewExecRunner creates an ExecRunner with the default spawn retry policy.
func NewExecRunner(logger zerolog.Logger, timeout time.Duration) *ExecRunner {
	return &ExecRunner{
		Timeout: timeout,
		Retry:   retry.DefaultConfig(),
		Logger:  logger,
	}
}

// Run implements Runner.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	start := time.Now()
	res, err := retry.DoValue(ctx, r.Retry, func() (Result, error) {
		return r.runOnce(ctx, name, args)
	}, isTransientSpawnError)

	if err != nil {
		invErr := &InvocationError{Tool: name, Args: args, ExitCode: -1, Err: err}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			invErr.TimedOut = true
			invErr.Timeout = r.Timeout
		}
		return Result{ExitCode: -1}, invErr
	}

	r.Logger.Debug().
		Str("tool", name).
		Strs("args", args).
		Int("exit_code", res.ExitCode).
		Int("stdout_bytes", len(res.Stdout)).
		Dur("duration", time.Since(start)).
		Msg("Tool finished")

	return res, nil
}

func (r *ExecRunner) runOnce(ctx context.Context, name string, args []string) (Result, error) {
	var stdout, stderr bytes.Buffer

	//nolint:gosec // G204: tool name comes from configuration.
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Result{}, ctxErr
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return Result{ExitCode: 0, Stdout: stdout.String(), Stderr: stderr.String()}, nil
	case errors.As(err, &exitErr):
		return Result{ExitCode: exitErr.ExitCode(), Stdout: stdout.String(), Stderr: stderr.String()}, nil
	default:
		return Result{}, err
	}
}

func isTransientSpawnError(err error) bool {
	return errors.Is(err, syscall.ETXTBSY)
}

// Invoke runs name through r and returns its stdout. Spawn failures,
// timeouts and non-zero exits all come back as *InvocationError.
func Invoke(ctx context.Context, r Runner, name string, args ...string) (string, error) {
	res, err := r.Run(ctx, name, args...)
	if err != nil {
		var invErr *InvocationError
		if errors.As(err, &invErr) {
			return "", invErr
		}
		return "", &InvocationError{Tool: name, Args: args, ExitCode: -1, Err: err}
	}
	if res.ExitCode != 0 {
		return "", &InvocationError{Tool: name, Args: args, ExitCode: res.ExitCode, Stderr: res.Stderr}
	}
	return res.Stdout, nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}
