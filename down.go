package dcx

import (
	"context"
	"fmt"
	"os"

	"github.com/banksean/dcx/naming"
)

// DownOpts are the inputs of Down.
type DownOpts struct {
	WorkspaceFolder string
}

const workspaceMissingMsg = "Workspace directory does not exist. Use `dcx clean` to remove stale mounts."

// Down stops the workspace's container, unmounts it and removes the mount
// point. An interrupt never abandons the unmount; it only changes the exit
// status.
func (m *Manager) Down(ctx context.Context, opts DownOpts) error {
	if err := m.checkEngine(ctx); err != nil {
		return err
	}
	ws, err := m.workspace(opts.WorkspaceFolder, workspaceMissingMsg)
	if err != nil {
		return err
	}
	m.progress(ctx, "Resolving workspace path: %s", ws)

	mountPoint := naming.MountPoint(m.Relay, ws)
	if !m.Mounts.ReadTable(ctx).Contains(mountPoint) {
		fmt.Fprintf(m.Stdout, "No mount found for %s. Nothing to do.\n", ws)
		return nil
	}

	m.progress(ctx, "Stopping devcontainer...")
	if err := m.Containers.Stop(ctx, mountPoint); err != nil {
		return runtimeError(err.Error())
	}

	interrupted := m.interrupted()
	if interrupted {
		fmt.Fprintln(m.Stderr, "Signal received, finishing unmount...")
	}
	m.progress(ctx, "Unmounting %s...", m.tilde(mountPoint))
	if err := m.Mounts.Unmount(ctx, mountPoint); err != nil {
		return spawnError(err)
	}
	if err := os.Remove(mountPoint); err != nil {
		return runtimeError(fmt.Sprintf("Failed to remove %s: %v", mountPoint, err))
	}
	m.progress(ctx, "Done.")

	if interrupted || m.interrupted() {
		return &ExitError{Code: RuntimeError}
	}
	return nil
}
