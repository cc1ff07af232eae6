//go:build !linux

package mounttable

import (
	"context"
	"fmt"
	"strings"

	"github.com/banksean/dcx/runner"
)

func read(ctx context.Context, r runner.Runner) (Table, error) {
	out, err := r.Capture(ctx, "mount")
	if err != nil {
		return nil, err
	}
	if !out.OK() {
		return nil, fmt.Errorf("mount exited %d: %s", out.Status, strings.TrimSpace(out.Stderr))
	}
	return ParseMountOutput(out.Stdout), nil
}

// UnmountCommand returns the program and arguments that detach target.
func UnmountCommand(target string) (string, []string) {
	return "umount", []string{target}
}

// BindfsInstallHint tells the user how to install bindfs.
func BindfsInstallHint() string {
	return "brew install bindfs"
}
