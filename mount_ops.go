package dcx

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/banksean/dcx/mounttable"
	"github.com/banksean/dcx/runner"
)

// BindfsBinary is the mounter.
const BindfsBinary = "bindfs"

// MountOps reads the mount table and drives the mounter and unmount tool.
type MountOps interface {
	ReadTable(ctx context.Context) mounttable.Table
	Bind(ctx context.Context, source, target string) error
	Unmount(ctx context.Context, target string) error
}

type defaultMountOps struct {
	run runner.Runner
}

// NewDefaultMountOps returns MountOps that spawn bindfs and the platform
// unmount tool through r.
func NewDefaultMountOps(r runner.Runner) MountOps {
	return &defaultMountOps{run: r}
}

func (f *defaultMountOps) ReadTable(ctx context.Context) mounttable.Table {
	return mounttable.Read(ctx, f.run)
}

func (f *defaultMountOps) Bind(ctx context.Context, source, target string) error {
	args := []string{"--no-allow-other", source, target}
	slog.InfoContext(ctx, "MountOps.Bind", "cmd", runner.Display(BindfsBinary, args...))
	out, err := f.run.Capture(ctx, BindfsBinary, args...)
	if err != nil {
		return err
	}
	if !out.OK() {
		slog.InfoContext(ctx, "MountOps.Bind", "status", out.Status, "stderr", out.Stderr)
		return fmt.Errorf("bindfs mount failed (exit %d): %s", out.Status, strings.TrimSpace(out.Stderr))
	}
	return nil
}

func (f *defaultMountOps) Unmount(ctx context.Context, target string) error {
	prog, args := mounttable.UnmountCommand(target)
	slog.InfoContext(ctx, "MountOps.Unmount", "cmd", runner.Display(prog, args...))
	out, err := f.run.Capture(ctx, prog, args...)
	if err != nil {
		return err
	}
	if !out.OK() {
		slog.InfoContext(ctx, "MountOps.Unmount", "status", out.Status, "stderr", out.Stderr)
		return fmt.Errorf("%s failed (exit %d): %s", prog, out.Status, strings.TrimSpace(out.Stderr))
	}
	return nil
}
