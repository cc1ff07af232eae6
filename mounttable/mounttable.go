// Package mounttable reads the bindfs entries out of the OS mount table.
package mounttable

import (
	"bufio"
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/banksean/dcx/runner"
)

// Entry is one bindfs mount.
type Entry struct {
	Source string
	Target string
	FSType string
}

// Table is the list of bindfs mounts visible to this host.
type Table []Entry

// FindSource returns the source mounted at target, if any.
func (t Table) FindSource(target string) (string, bool) {
	target = filepath.Clean(target)
	for _, e := range t {
		if filepath.Clean(e.Target) == target {
			return e.Source, true
		}
	}
	return "", false
}

// Contains reports whether target appears in the table.
func (t Table) Contains(target string) bool {
	_, ok := t.FindSource(target)
	return ok
}

// ParseProcMounts parses /proc/mounts text and keeps fuse.bindfs entries plus
// plain fuse entries, which is how a mount whose bindfs process died shows up.
func ParseProcMounts(text string) Table {
	var ret Table
	sc := bufio.NewScanner(strings.NewReader(text))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 3 {
			continue
		}
		fstype := fields[2]
		if fstype != "fuse.bindfs" && fstype != "fuse" {
			continue
		}
		ret = append(ret, Entry{
			Source: Unescape(fields[0]),
			Target: Unescape(fields[1]),
			FSType: fstype,
		})
	}
	return ret
}

// ParseMountOutput parses macOS `mount` output lines of the form
// "<source> on <target> (<fstype>, <opts>...)" and keeps bindfs entries.
func ParseMountOutput(text string) Table {
	var ret Table
	sc := bufio.NewScanner(strings.NewReader(text))
	for sc.Scan() {
		line := sc.Text()
		source, rest, ok := strings.Cut(line, " on ")
		if !ok {
			continue
		}
		open := strings.LastIndex(rest, " (")
		if open < 0 {
			continue
		}
		target := rest[:open]
		opts := strings.TrimSuffix(rest[open+2:], ")")
		fstype, _, _ := strings.Cut(opts, ",")
		fstype = strings.TrimSpace(fstype)
		if fstype != "bindfs" {
			continue
		}
		ret = append(ret, Entry{
			Source: strings.TrimSpace(source),
			Target: strings.TrimSpace(target),
			FSType: fstype,
		})
	}
	return ret
}

// Unescape decodes the \NNN octal escapes the kernel uses for spaces, tabs,
// newlines and backslashes in mount paths.
func Unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+3 < len(s) && isOctal(s[i+1]) && isOctal(s[i+2]) && isOctal(s[i+3]) {
			b.WriteByte((s[i+1]-'0')<<6 | (s[i+2]-'0')<<3 | (s[i+3] - '0'))
			i += 3
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func isOctal(c byte) bool {
	return c >= '0' && c <= '7'
}

// Read returns the current bindfs mounts. Failures degrade to an empty table.
func Read(ctx context.Context, r runner.Runner) Table {
	t, err := read(ctx, r)
	if err != nil {
		slog.WarnContext(ctx, "mounttable.Read", "error", err)
		return Table{}
	}
	return t
}
