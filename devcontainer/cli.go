package devcontainer

import (
	"context"
	"log/slog"

	"github.com/banksean/dcx/runner"
)

const (
	// Binary is the orchestrator CLI.
	Binary = "devcontainer"
	// InstallHint tells the user how to install it.
	InstallHint = "npm install -g @devcontainers/cli"
)

// CLI drives the devcontainer CLI with its stdio attached to the terminal.
type CLI struct {
	run runner.Runner
}

// NewCLI returns a CLI that spawns through r.
func NewCLI(r runner.Runner) *CLI {
	return &CLI{run: r}
}

// UpArgs returns the argv for `devcontainer up` on mountPoint.
func UpArgs(mountPoint, config string) []string {
	args := []string{"up", "--workspace-folder", mountPoint}
	if config != "" {
		args = append(args, "--config", config)
	}
	return args
}

// ExecArgs returns the argv for `devcontainer exec` on mountPoint.
func ExecArgs(mountPoint, config string, command []string) []string {
	args := []string{"exec", "--workspace-folder", mountPoint}
	if config != "" {
		args = append(args, "--config", config)
	}
	if len(command) > 0 {
		args = append(append(args, "--"), command...)
	}
	return args
}

// Up runs `devcontainer up` and returns its exit status.
func (c *CLI) Up(ctx context.Context, mountPoint, config string, env []string) (int, error) {
	args := UpArgs(mountPoint, config)
	slog.InfoContext(ctx, "CLI.Up", "cmd", runner.Display(Binary, args...))
	return c.run.Stream(ctx, env, Binary, args...)
}

// Exec runs `devcontainer exec` and returns its exit status.
func (c *CLI) Exec(ctx context.Context, mountPoint, config string, command []string) (int, error) {
	args := ExecArgs(mountPoint, config, command)
	slog.InfoContext(ctx, "CLI.Exec", "cmd", runner.Display(Binary, args...))
	return c.run.Stream(ctx, nil, Binary, args...)
}

// Forward passes args to the devcontainer CLI unchanged.
func (c *CLI) Forward(ctx context.Context, args []string) (int, error) {
	slog.InfoContext(ctx, "CLI.Forward", "cmd", runner.Display(Binary, args...))
	return c.run.Stream(ctx, nil, Binary, args...)
}
