// Package runner spawns the external programs dcx drives, either capturing
// their output for decisions or streaming it to the user.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"syscall"
)

// Output is the captured result of a child process. A nonzero Status is data,
// not an error.
type Output struct {
	Stdout string
	Stderr string
	// Status is the exit code, or 1 when the child was killed by a signal.
	Status int
}

// OK reports whether the child exited 0.
func (o *Output) OK() bool {
	return o.Status == 0
}

// Runner runs external commands.
type Runner interface {
	// Capture runs name with args and collects stdout and stderr. Only a
	// failure to spawn the child is returned as an error.
	Capture(ctx context.Context, name string, args ...string) (*Output, error)
	// Stream runs name with args attached to this process's stdio and returns
	// its exit status. env entries are appended to the inherited environment.
	Stream(ctx context.Context, env []string, name string, args ...string) (int, error)
	// LookPath resolves name in PATH.
	LookPath(name string) (string, error)
}

type execRunner struct{}

// NewDefaultRunner returns a Runner backed by os/exec.
func NewDefaultRunner() Runner {
	return &execRunner{}
}

func (r *execRunner) Capture(ctx context.Context, name string, args ...string) (*Output, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	slog.InfoContext(ctx, "Runner.Capture", "cmd", strings.Join(cmd.Args, " "))
	// Captured children live in their own process group so a terminal SIGINT
	// reaches only dcx, which polls its interruption flag afterwards.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	out := &Output{Stdout: stdout.String(), Stderr: stderr.String()}
	if err == nil {
		return out, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		out.Status = exitErr.ExitCode()
		if out.Status < 0 {
			out.Status = 1
		}
		slog.InfoContext(ctx, "Runner.Capture", "cmd", name, "status", out.Status, "stderr", strings.TrimSpace(out.Stderr))
		return out, nil
	}
	return nil, fmt.Errorf("failed to run %s: %w", name, err)
}

func (r *execRunner) Stream(ctx context.Context, env []string, name string, args ...string) (int, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	slog.InfoContext(ctx, "Runner.Stream", "cmd", strings.Join(cmd.Args, " "), "env", env)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if len(env) > 0 {
		cmd.Env = append(os.Environ(), env...)
	}

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code := exitErr.ExitCode()
		if code < 0 {
			code = 1
		}
		slog.InfoContext(ctx, "Runner.Stream", "cmd", name, "status", code)
		return code, nil
	}
	return 0, fmt.Errorf("failed to run %s: %w", name, err)
}

func (r *execRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

// Display renders a command line for dry-run output.
func Display(name string, args ...string) string {
	return strings.Join(append([]string{name}, args...), " ")
}

// IsNotFound reports whether err came from a program missing in PATH.
func IsNotFound(err error) bool {
	return errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist)
}
