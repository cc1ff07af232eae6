package dcx

import (
	"bytes"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/banksean/dcx/devcontainer"
	"github.com/banksean/dcx/docker"
	"github.com/banksean/dcx/runner"
)

// UpDryRun renders the `up --dry-run` plan. Paths are already abbreviated.
func UpDryRun(workspace, mountPoint, config, prebuildTag string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Would mount: %s → %s\n", workspace, mountPoint)
	if prebuildTag != "" {
		fmt.Fprintf(&b, "Would build: %s\n", prebuildTag)
	}
	fmt.Fprintf(&b, "Would run: %s", runner.Display(devcontainer.Binary, devcontainer.UpArgs(mountPoint, config)...))
	return b.String()
}

// CollisionMessage reports a mount point that already serves another source.
func CollisionMessage(workspace, found, hash string) string {
	return fmt.Sprintf("✗ Mount point already exists but points to wrong source!\n"+
		"   Expected: %s\n"+
		"   Found:    %s\n\n"+
		"Hash collision detected (both hash to %s).\n"+
		"This is extremely rare (~1 in 4 billion).\n"+
		"Run `dcx clean` to reset and retry.", workspace, found, hash)
}

// OwnershipWarning is shown before mounting a workspace owned by someone else.
func OwnershipWarning(workspace, owner string, ownerUID int, user string, uid int) string {
	return fmt.Sprintf("⚠️  Directory %s is owned by %s (UID %d)\n"+
		"    Current user is %s (UID %d)\n\n"+
		"    In the container, you'll run as %s (%d).\n"+
		"    You'll have read/write access only if the directory permissions allow it.\n",
		workspace, owner, ownerUID, user, uid, user, uid)
}

// ActiveEntry is one line of the clean confirmation prompt.
type ActiveEntry struct {
	Workspace string
	Mount     string
	Container string
}

// ConfirmPrompt lists the containers clean is about to stop.
func ConfirmPrompt(entries []ActiveEntry) string {
	plural := "s"
	if len(entries) == 1 {
		plural = ""
	}
	lines := []string{fmt.Sprintf("⚠ %d active container%s will be stopped:", len(entries), plural)}
	for _, e := range entries {
		lines = append(lines, fmt.Sprintf("  - %s  →  %s  (container: %s)", e.Workspace, e.Mount, e.Container))
	}
	return strings.Join(lines, "\n")
}

// CleanPlan is everything clean will do to one relay entry.
type CleanPlan struct {
	Path         string
	MountName    string
	Workspace    string
	Status       MountStatus
	ContainerID  string
	RuntimeImage string
	HasBaseTag   bool
	Volumes      []string
	IsMounted    bool
}

// CleanDryRun renders plans as the `clean --dry-run` preview.
func CleanDryRun(plans []CleanPlan) string {
	if len(plans) == 0 {
		return "Nothing to clean."
	}
	lines := []string{"Would clean:"}
	for _, p := range plans {
		lines = append(lines, fmt.Sprintf("  %s  (%s)", p.MountName, WasLabel(p.Status)))
		if p.ContainerID != "" {
			lines = append(lines, "    - Stop and remove container "+p.ContainerID)
		}
		if p.RuntimeImage != "" {
			lines = append(lines, "    - Remove runtime image "+p.RuntimeImage)
		}
		if p.HasBaseTag {
			lines = append(lines, fmt.Sprintf("    - Remove base image tag %s:%s  [purge]", docker.BaseRepo, p.MountName))
		}
		for _, v := range p.Volumes {
			lines = append(lines, fmt.Sprintf("    - Remove volume %s  [purge]", v))
		}
		if p.IsMounted {
			lines = append(lines, "    - Unmount bindfs")
		}
		lines = append(lines, "    - Remove mount directory")
	}
	return strings.Join(lines, "\n")
}

// CleanedEntry is one row of the clean summary.
type CleanedEntry struct {
	Workspace string
	Mount     string
	Was       string
	Action    string
}

// CleanSummary renders what clean did.
func CleanSummary(entries []CleanedEntry, activeLeft int) string {
	header := fmt.Sprintf("Cleaned %d mounts:", len(entries))
	if activeLeft > 0 {
		header = fmt.Sprintf("Cleaned %d mounts (%d active mounts left untouched):", len(entries), activeLeft)
	}
	lines := []string{header}
	for _, e := range entries {
		left := e.Mount
		if e.Workspace != "" {
			left = e.Workspace + "  →  " + e.Mount
		}
		lines = append(lines, fmt.Sprintf("  %-52s was: %-12s → %s", left, e.Was, e.Action))
	}
	return strings.Join(lines, "\n")
}

// StatusRow is one row of the status table. Empty fields print as
// placeholders.
type StatusRow struct {
	Workspace string
	Mount     string
	Container string
	State     string
}

// StatusTable renders rows in aligned columns.
func StatusTable(rows []StatusRow) string {
	if len(rows) == 0 {
		return "No active workspaces."
	}
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "WORKSPACE\tMOUNT\tCONTAINER\tSTATE")
	for _, r := range rows {
		ws := r.Workspace
		if ws == "" {
			ws = "(unknown)"
		}
		ctr := r.Container
		if ctr == "" {
			ctr = "(none)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", ws, r.Mount, ctr, r.State)
	}
	w.Flush()
	return strings.TrimRight(buf.String(), "\n")
}
