// Package naming derives the deterministic mount names dcx uses for workspaces.
package naming

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strings"
)

const (
	// Prefix starts every directory dcx manages under the relay.
	Prefix = "dcx-"
	// RelayDirName is the directory under $HOME shared with the Colima VM.
	RelayDirName = ".colima-mounts"

	maxSanitizedLen = 30
	hashLen         = 8
)

// SanitizeName replaces every byte that is not an ASCII letter or digit
// with '-' and truncates the result to 30 bytes.
func SanitizeName(name string) string {
	b := []byte(name)
	if len(b) > maxSanitizedLen {
		b = b[:maxSanitizedLen]
	}
	out := make([]byte, len(b))
	for i, c := range b {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			out[i] = c
		default:
			out[i] = '-'
		}
	}
	return string(out)
}

// Hash returns the first 8 lowercase hex characters of sha256(absPath).
func Hash(absPath string) string {
	sum := sha256.Sum256([]byte(absPath))
	return hex.EncodeToString(sum[:])[:hashLen]
}

// MountName returns dcx-<sanitized-base>-<hash> for an absolute workspace path.
func MountName(absPath string) string {
	base := filepath.Base(absPath)
	if base == string(filepath.Separator) || base == "." {
		base = ""
	}
	return Prefix + SanitizeName(base) + "-" + Hash(absPath)
}

// HashOf returns the hash suffix of a mount name, or "" if name is too short.
func HashOf(mountName string) string {
	if len(mountName) < hashLen {
		return ""
	}
	return mountName[len(mountName)-hashLen:]
}

// RelayDir returns <home>/.colima-mounts.
func RelayDir(home string) string {
	return filepath.Join(home, RelayDirName)
}

// MountPoint returns the mount point for workspace under relay.
func MountPoint(relay, workspace string) string {
	return filepath.Join(relay, MountName(workspace))
}

// IsManagedPath reports whether path lies inside a dcx-managed directory of
// relay, i.e. the first component below relay starts with "dcx-". The relay
// itself is not managed.
func IsManagedPath(path, relay string) bool {
	rel, err := filepath.Rel(filepath.Clean(relay), filepath.Clean(path))
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	first, _, _ := strings.Cut(rel, string(filepath.Separator))
	return strings.HasPrefix(first, Prefix)
}

// TildePath abbreviates path with "~" when it lies under home.
func TildePath(path, home string) string {
	home = filepath.Clean(home)
	path = filepath.Clean(path)
	if path == home {
		return "~"
	}
	if rel, ok := strings.CutPrefix(path, home+string(filepath.Separator)); ok {
		return "~/" + rel
	}
	return path
}
