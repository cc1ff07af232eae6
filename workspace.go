package dcx

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/banksean/dcx/devcontainer"
	"github.com/banksean/dcx/naming"
)

// ResolveWorkspace returns the canonical absolute form of given, or of the
// current directory when given is empty. The path must exist.
func ResolveWorkspace(given string) (string, error) {
	path := given
	if path == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("Cannot determine current directory: %w", err)
		}
		path = wd
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("Workspace path does not exist: %s", path)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("Workspace path does not exist: %s", path)
	}
	return resolved, nil
}

// ScanRelay returns the dcx-* entries of relay, sorted by name. A missing
// relay has no entries.
func ScanRelay(relay string) []string {
	entries, err := os.ReadDir(relay)
	if err != nil {
		return nil
	}
	var ret []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), naming.Prefix) {
			ret = append(ret, filepath.Join(relay, e.Name()))
		}
	}
	sort.Strings(ret)
	return ret
}

// ConfigRef is the devcontainer configuration for one invocation.
type ConfigRef struct {
	// Host is the file as seen from the host.
	Host string
	// Explicit is set when the user named the file.
	Explicit bool
}

// ResolveConfig picks the configuration for workspace: explicit if given,
// else the standard search inside workspace. required makes a missing
// configuration an error.
func ResolveConfig(workspace, explicit string, required bool) (*ConfigRef, error) {
	if explicit != "" {
		abs, err := filepath.Abs(explicit)
		if err != nil {
			return nil, err
		}
		if fi, err := os.Stat(abs); err != nil || fi.IsDir() {
			return nil, fmt.Errorf("Devcontainer configuration not found: %s", explicit)
		}
		if resolved, err := filepath.EvalSymlinks(abs); err == nil {
			abs = resolved
		}
		return &ConfigRef{Host: abs, Explicit: true}, nil
	}
	if found, ok := devcontainer.FindConfig(workspace); ok {
		return &ConfigRef{Host: found}, nil
	}
	if required {
		return nil, fmt.Errorf("No devcontainer configuration found in %s.", workspace)
	}
	return nil, nil
}

// Delegated returns the --config value to hand the orchestrator, which only
// sees mountPoint. Discovered configurations need no flag. An explicit file
// inside workspace is remapped to the same place under mountPoint.
func (c *ConfigRef) Delegated(workspace, mountPoint string) string {
	if c == nil || !c.Explicit {
		return ""
	}
	rel, err := filepath.Rel(workspace, c.Host)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return c.Host
	}
	return filepath.Join(mountPoint, rel)
}
