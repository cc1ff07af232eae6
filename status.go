package dcx

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
)

// Status prints one row per relay entry with its workspace, container and
// health.
func (m *Manager) Status(ctx context.Context) error {
	if err := m.checkEngine(ctx); err != nil {
		return err
	}
	m.progress(ctx, "Scanning workspaces...")
	entries := ScanRelay(m.Relay)
	if len(entries) == 0 {
		fmt.Fprintln(m.Stdout, "No active workspaces.")
		return nil
	}

	table := m.Mounts.ReadTable(ctx)
	var rows []StatusRow
	for _, path := range entries {
		source, inTable := table.FindSource(path)
		container, err := m.Containers.FindRunning(ctx, path)
		if err != nil {
			slog.WarnContext(ctx, "Manager.Status: container lookup", "path", path, "error", err)
		}
		rows = append(rows, StatusRow{
			Workspace: source,
			Mount:     filepath.Base(path),
			Container: container,
			State:     StateLabel(inTable && exists(path), container != ""),
		})
	}
	fmt.Fprintln(m.Stdout, StatusTable(rows))
	return nil
}
