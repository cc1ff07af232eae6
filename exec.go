package dcx

import (
	"context"
	"fmt"

	"github.com/banksean/dcx/naming"
)

// ExecOpts are the inputs of Exec.
type ExecOpts struct {
	WorkspaceFolder string
	Config          string
	Command         []string
}

// Exec runs a command in the workspace's devcontainer. The mount must
// already be up and healthy. The child's exit status is passed through.
func (m *Manager) Exec(ctx context.Context, opts ExecOpts) error {
	if err := m.checkEngine(ctx); err != nil {
		return err
	}
	ws, err := m.workspace(opts.WorkspaceFolder, "")
	if err != nil {
		return err
	}
	m.progress(ctx, "Resolving workspace path: %s", ws)

	cfg, err := ResolveConfig(ws, opts.Config, false)
	if err != nil {
		return usageError(err.Error())
	}

	mountPoint := naming.MountPoint(m.Relay, ws)
	if !m.Mounts.ReadTable(ctx).Contains(mountPoint) {
		return runtimeError(fmt.Sprintf("No mount found for %s. Run `dcx up` first.", ws))
	}
	if !exists(mountPoint) {
		return runtimeError("Mount is stale. Run `dcx up` to remount.")
	}

	m.progress(ctx, "Running exec in container...")
	code, err := m.Devcontainer.Exec(ctx, mountPoint, cfg.Delegated(ws, mountPoint), opts.Command)
	if err != nil {
		return spawnError(err)
	}
	if code != 0 {
		return &ExitError{Code: code}
	}
	return nil
}

// Forward hands args to the devcontainer CLI unchanged and passes its exit
// status through.
func (m *Manager) Forward(ctx context.Context, args []string) error {
	code, err := m.Devcontainer.Forward(ctx, args)
	if err != nil {
		return spawnError(err)
	}
	if code != 0 {
		return &ExitError{Code: code}
	}
	return nil
}
