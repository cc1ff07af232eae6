package dcx

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/banksean/dcx/devcontainer"
	"github.com/banksean/dcx/naming"
)

// UpOpts are the inputs of Up.
type UpOpts struct {
	WorkspaceFolder string
	Config          string
	DryRun          bool
	Yes             bool
	Prebuild        bool
	Network         string
}

// Up bind-mounts the workspace into the relay and runs `devcontainer up`
// on the mount point. A mount made by this call is rolled back if anything
// after it fails or the user interrupts.
func (m *Manager) Up(ctx context.Context, opts UpOpts) error {
	if err := m.checkEngine(ctx); err != nil {
		return err
	}
	ws, err := m.workspace(opts.WorkspaceFolder, "")
	if err != nil {
		return err
	}
	cfg, err := ResolveConfig(ws, opts.Config, true)
	if err != nil {
		return usageError(err.Error())
	}
	network, err := ParseNetworkMode(opts.Network)
	if err != nil {
		return usageError(err.Error())
	}

	name := naming.MountName(ws)
	mountPoint := filepath.Join(m.Relay, name)
	config := cfg.Delegated(ws, mountPoint)

	var build *prebuild
	if opts.Prebuild {
		if build, err = planPrebuild(cfg.Host); err != nil {
			return runtimeError(err.Error())
		}
	}

	if opts.DryRun {
		shown := ""
		if config != "" {
			shown = m.tilde(config)
		}
		tag := ""
		if build != nil {
			tag = build.tag
		}
		fmt.Fprintln(m.Stdout, UpDryRun(ws, m.tilde(mountPoint), shown, tag))
		return nil
	}

	if err := os.MkdirAll(m.Relay, 0o755); err != nil {
		return runtimeError(fmt.Sprintf("Failed to create %s: %v", m.Relay, err))
	}

	if !opts.Yes {
		if ownerUID, ok := m.owner(ws); ok && ownerUID != m.uid() {
			uid := m.uid()
			user := currentUserName()
			fmt.Fprint(m.Stderr, OwnershipWarning(ws, m.lookupUser(ownerUID), ownerUID, user, uid))
			fmt.Fprintln(m.Stderr)
			if !m.confirm("Proceed? [y/N] ") {
				return &ExitError{Code: UserAborted}
			}
		}
	}

	image, _ := devcontainer.ReadImage(cfg.Host)
	if build != nil {
		tmp, err := m.runPrebuild(ctx, build)
		if err != nil {
			return err
		}
		defer tmp.Close()
		config = tmp.Path()
		image = build.tag
	}

	fresh, err := m.reconcileMount(ctx, ws, mountPoint, name)
	if err != nil {
		return err
	}

	if err := m.abortIfInterrupted(ctx, fresh, mountPoint); err != nil {
		return err
	}

	m.progress(ctx, "Starting devcontainer...")
	code, err := m.Devcontainer.Up(ctx, mountPoint, config, []string{network.Env()})
	if err != nil || code != 0 {
		if fresh {
			m.rollback(ctx, mountPoint)
		}
		if err != nil {
			return spawnError(err)
		}
		return runtimeError(fmt.Sprintf("devcontainer up failed (exit %d)", code))
	}

	if err := m.abortIfInterrupted(ctx, fresh, mountPoint); err != nil {
		return err
	}

	if image != "" {
		if err := m.Containers.TagBase(ctx, image, name); err != nil {
			slog.WarnContext(ctx, "Manager.Up: tagging base image", "image", image, "error", err)
		}
	}
	return m.abortIfInterrupted(ctx, fresh, mountPoint)
}

// abortIfInterrupted rolls back a mount made by this run once an interrupt
// has been received.
func (m *Manager) abortIfInterrupted(ctx context.Context, fresh bool, mountPoint string) error {
	if !m.interrupted() {
		return nil
	}
	if fresh {
		m.rollback(ctx, mountPoint)
	}
	return runtimeError("Interrupted.")
}

// reconcileMount makes mountPoint serve workspace and reports whether this
// call created the mount.
func (m *Manager) reconcileMount(ctx context.Context, workspace, mountPoint, name string) (bool, error) {
	table := m.Mounts.ReadTable(ctx)
	source, inTable := table.FindSource(mountPoint)
	accessible := exists(mountPoint)
	slog.InfoContext(ctx, "Manager.reconcileMount", "mountPoint", mountPoint, "inTable", inTable, "source", source, "accessible", accessible)

	switch {
	case accessible && inTable && source == workspace:
		m.progress(ctx, "Reusing mount %s", m.tilde(mountPoint))
		return false, nil
	case accessible && inTable:
		return false, runtimeError(CollisionMessage(workspace, source, naming.HashOf(name)))
	case !accessible && inTable:
		m.progress(ctx, "Unmounting stale mount %s...", m.tilde(mountPoint))
		if err := m.Mounts.Unmount(ctx, mountPoint); err != nil {
			return false, runtimeError(fmt.Sprintf("Failed to unmount stale mount: %v", err))
		}
	}

	m.progress(ctx, "Mounting %s → %s", workspace, m.tilde(mountPoint))
	if err := os.MkdirAll(mountPoint, 0o755); err != nil {
		return false, runtimeError(fmt.Sprintf("Failed to create %s: %v", mountPoint, err))
	}
	if err := m.Mounts.Bind(ctx, workspace, mountPoint); err != nil {
		os.Remove(mountPoint)
		return false, spawnError(err)
	}
	return true, nil
}

// rollback undoes a fresh mount. Failures are reported as warnings.
func (m *Manager) rollback(ctx context.Context, mountPoint string) {
	if err := m.Mounts.Unmount(ctx, mountPoint); err != nil {
		m.warnf(ctx, "Warning: rollback unmount failed: %v", err)
	}
	if err := os.Remove(mountPoint); err != nil {
		m.warnf(ctx, "Warning: rollback rmdir failed: %v", err)
	}
	fmt.Fprintln(m.Stderr, "Mount rolled back.")
}

type prebuild struct {
	configPath string
	config     *devcontainer.Config
	tag        string
}

// planPrebuild returns nil when the configuration names an image already.
func planPrebuild(configPath string) (*prebuild, error) {
	cfg, err := devcontainer.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if !cfg.NeedsPrebuild() {
		return nil, nil
	}
	tag, err := devcontainer.ContentTag(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to hash config: %w", err)
	}
	return &prebuild{configPath: configPath, config: cfg, tag: tag}, nil
}

// runPrebuild builds the base image and returns a temporary configuration
// that uses it.
func (m *Manager) runPrebuild(ctx context.Context, b *prebuild) (*devcontainer.TempConfig, error) {
	dockerfile, contextDir := b.config.BuildPaths(b.configPath)
	m.progress(ctx, "Building %s...", b.tag)
	lookup := m.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if err := m.Containers.Build(ctx, b.tag, contextDir, dockerfile, b.config.BuildArgs(lookup)); err != nil {
		return nil, spawnError(err)
	}
	tmp, err := devcontainer.WriteTempConfigWithImage(b.configPath, b.tag)
	if err != nil {
		return nil, runtimeError(err.Error())
	}
	return tmp, nil
}
