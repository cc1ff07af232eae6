package mounttable

import (
	"context"
	"os"

	"github.com/banksean/dcx/runner"
)

const procMounts = "/proc/mounts"

func read(ctx context.Context, _ runner.Runner) (Table, error) {
	data, err := os.ReadFile(procMounts)
	if err != nil {
		return nil, err
	}
	return ParseProcMounts(string(data)), nil
}

// UnmountCommand returns the program and arguments that detach target.
func UnmountCommand(target string) (string, []string) {
	return "fusermount", []string{"-u", target}
}

// BindfsInstallHint tells the user how to install bindfs.
func BindfsInstallHint() string {
	return "sudo apt install bindfs"
}
