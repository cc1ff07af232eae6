package dcx

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/banksean/dcx/naming"
)

// CleanOpts are the inputs of Clean.
type CleanOpts struct {
	WorkspaceFolder string
	All             bool
	Yes             bool
	Purge           bool
	DryRun          bool
}

type relayEntry struct {
	path      string
	workspace string
	status    MountStatus
	container string
	inTable   bool
}

// Clean removes relay entries: the current workspace's by default, every
// entry with All. Failures of one entry do not stop the others; they are
// reported at the end and make the run fail.
func (m *Manager) Clean(ctx context.Context, opts CleanOpts) error {
	if err := m.checkEngine(ctx); err != nil {
		return err
	}
	target := ""
	if !opts.All {
		ws, err := m.workspace(opts.WorkspaceFolder, "")
		if err != nil {
			return err
		}
		target = naming.MountName(ws)
	}

	m.progress(ctx, "Scanning relay directory...")
	entries := m.observe(ctx, ScanRelay(m.Relay))

	var selected []relayEntry
	activeLeft := 0
	for _, e := range entries {
		if opts.All || filepath.Base(e.path) == target {
			selected = append(selected, e)
		} else if e.status == Active {
			activeLeft++
		}
	}

	plans := make([]CleanPlan, 0, len(selected))
	for _, e := range selected {
		plans = append(plans, m.plan(ctx, e, opts.Purge))
	}

	if opts.DryRun {
		fmt.Fprintln(m.Stdout, CleanDryRun(plans))
		return nil
	}
	if len(plans) == 0 {
		fmt.Fprintln(m.Stdout, "Nothing to clean.")
		if opts.All {
			m.sweep(ctx, opts.Purge)
		}
		return nil
	}

	if !opts.Yes {
		var active []ActiveEntry
		for _, p := range plans {
			if p.Status != Active {
				continue
			}
			ws := p.Workspace
			if ws == "" {
				ws = "(unknown)"
			}
			ctr := p.ContainerID
			if ctr == "" {
				ctr = "(none)"
			}
			active = append(active, ActiveEntry{Workspace: ws, Mount: p.MountName, Container: ctr})
		}
		if len(active) > 0 {
			fmt.Fprintln(m.Stderr, ConfirmPrompt(active))
			if !m.confirm("\nContinue? [y/N] ") {
				return &ExitError{Code: UserAborted}
			}
		}
	}

	var cleaned []CleanedEntry
	var failures []string
	interrupted := false
	for _, p := range plans {
		m.progress(ctx, "Cleaning %s...", p.MountName)
		action, err := m.cleanOne(ctx, p, opts.Purge)
		if err != nil {
			slog.ErrorContext(ctx, "Manager.Clean", "path", p.Path, "error", err)
			failures = append(failures, fmt.Sprintf("%s: %v", p.Path, err))
		} else {
			cleaned = append(cleaned, CleanedEntry{
				Workspace: p.Workspace,
				Mount:     p.MountName,
				Was:       WasLabel(p.Status),
				Action:    action,
			})
		}
		if m.interrupted() {
			fmt.Fprintln(m.Stderr, "Signal received, finishing current unmount...")
			interrupted = true
			break
		}
	}

	if opts.All && !interrupted {
		m.sweep(ctx, opts.Purge)
	}

	if len(cleaned) > 0 {
		fmt.Fprintln(m.Stdout, CleanSummary(cleaned, activeLeft))
	}
	for _, f := range failures {
		fmt.Fprintln(m.Stderr, "Error: "+f)
	}
	if len(failures) > 0 || interrupted {
		return &ExitError{Code: RuntimeError}
	}
	return nil
}

// observe categorizes each relay path.
func (m *Manager) observe(ctx context.Context, paths []string) []relayEntry {
	table := m.Mounts.ReadTable(ctx)
	ret := make([]relayEntry, 0, len(paths))
	for _, p := range paths {
		source, inTable := table.FindSource(p)
		container, err := m.Containers.FindRunning(ctx, p)
		if err != nil {
			slog.WarnContext(ctx, "Manager.observe: container lookup", "path", p, "error", err)
		}
		ret = append(ret, relayEntry{
			path:      p,
			workspace: source,
			container: container,
			inTable:   inTable,
			status:    Categorize(inTable, exists(p), container != ""),
		})
	}
	return ret
}

// plan gathers what cleaning e involves without changing anything. The
// runtime image is resolved here, while the container still exists.
func (m *Manager) plan(ctx context.Context, e relayEntry, purge bool) CleanPlan {
	name := filepath.Base(e.path)
	p := CleanPlan{
		Path:        e.path,
		MountName:   name,
		Workspace:   e.workspace,
		Status:      e.status,
		ContainerID: e.container,
		IsMounted:   e.inTable,
	}
	if p.ContainerID == "" {
		id, err := m.Containers.FindAny(ctx, e.path)
		if err != nil {
			slog.WarnContext(ctx, "Manager.plan: container lookup", "path", e.path, "error", err)
		}
		p.ContainerID = id
	}
	if p.ContainerID != "" {
		ref, err := m.Containers.RuntimeImageRef(ctx, p.ContainerID)
		if err != nil {
			slog.WarnContext(ctx, "Manager.plan: runtime image", "container", p.ContainerID, "error", err)
		}
		p.RuntimeImage = ref
	}
	if purge {
		p.HasBaseTag = m.Containers.BaseTagExists(ctx, name)
		vols, err := m.Containers.ListVolumes(ctx, name)
		if err != nil {
			slog.WarnContext(ctx, "Manager.plan: volumes", "name", name, "error", err)
		}
		p.Volumes = vols
	}
	return p
}

// cleanOne executes p and returns the action label for the summary.
func (m *Manager) cleanOne(ctx context.Context, p CleanPlan, purge bool) (string, error) {
	if err := m.Containers.Stop(ctx, p.Path); err != nil {
		return "", err
	}
	if p.ContainerID != "" {
		if err := m.Containers.RemoveContainer(ctx, p.ContainerID); err != nil {
			return "", err
		}
		if p.RuntimeImage != "" {
			if err := m.Containers.RemoveRuntimeImage(ctx, p.RuntimeImage); err != nil {
				m.note(ctx, "could not remove runtime image %s: %v", p.RuntimeImage, err)
			}
		}
	}
	if purge {
		if err := m.Containers.RemoveBaseTag(ctx, p.MountName); err != nil {
			m.note(ctx, "could not remove base image tag for %s: %v", p.MountName, err)
		}
		for _, v := range p.Volumes {
			if err := m.Containers.RemoveVolume(ctx, v); err != nil {
				m.note(ctx, "could not remove volume %s: %v", v, err)
			}
		}
	}
	if p.IsMounted {
		if err := m.Mounts.Unmount(ctx, p.Path); err != nil {
			return "", err
		}
	}
	if err := os.Remove(p.Path); err != nil {
		return "", fmt.Errorf("Failed to remove %s: %w", p.Path, err)
	}

	switch p.Status {
	case Active:
		return "stopped, unmounted", nil
	case Orphaned, Stale:
		return "unmounted", nil
	default:
		return "removed", nil
	}
}

// sweep removes engine leftovers not tied to any relay entry. Failures are
// notes.
func (m *Manager) sweep(ctx context.Context, purge bool) {
	type step struct {
		what string
		run  func(context.Context) (int, error)
	}
	steps := []step{
		{"orphan containers", m.Containers.SweepOrphanContainers},
		{"dangling images", m.Containers.SweepDanglingAndUIDImages},
	}
	if purge {
		steps = append(steps,
			step{"base image tags", m.Containers.SweepBaseTags},
			step{"orphan build images", m.Containers.SweepOrphanBuildImages},
			step{"volumes", m.Containers.SweepVolumes},
		)
	}
	for _, s := range steps {
		n, err := s.run(ctx)
		slog.InfoContext(ctx, "Manager.sweep", "what", s.what, "removed", n, "error", err)
		if err != nil {
			m.note(ctx, "sweeping %s: %v", s.what, err)
		}
	}
}

func (m *Manager) note(ctx context.Context, format string, args ...any) {
	m.warnf(ctx, "Note: "+format, args...)
}
