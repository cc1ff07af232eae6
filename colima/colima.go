// Package colima reads the Colima VM configuration and probes the VM's view
// of the relay directory.
package colima

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/banksean/dcx/runner"
)

// Binary is the Colima CLI.
const Binary = "colima"

// relayLocation is how the relay is written in colima.yaml.
const relayLocation = "~/.colima-mounts"

// Mount is one entry of the mounts list in colima.yaml.
type Mount struct {
	Location string `yaml:"location"`
	Writable bool   `yaml:"writable"`
}

type config struct {
	Mounts []Mount `yaml:"mounts"`
}

// ConfigPath returns the default profile's colima.yaml under home.
func ConfigPath(home string) string {
	return configPathFor(runtime.GOOS, home)
}

func configPathFor(goos, home string) string {
	if goos == "darwin" {
		return filepath.Join(home, ".colima", "default", "colima.yaml")
	}
	return filepath.Join(home, ".config", "colima", "default", "colima.yaml")
}

// ParseMounts extracts the mounts list. Malformed YAML or a missing key
// yields no mounts.
func ParseMounts(data []byte) []Mount {
	var cfg config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil
	}
	return cfg.Mounts
}

// Load reads and parses the colima.yaml at path.
func Load(path string) ([]Mount, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseMounts(data), nil
}

func isRelay(location string) bool {
	return strings.TrimRight(location, "/") == relayLocation
}

// FindRelay returns the relay's entry, if listed.
func FindRelay(mounts []Mount) (Mount, bool) {
	for _, m := range mounts {
		if isRelay(m.Location) {
			return m, true
		}
	}
	return Mount{}, false
}

// FilterRelayMounts drops the relay entry, with or without a trailing slash.
func FilterRelayMounts(mounts []Mount) []Mount {
	var ret []Mount
	for _, m := range mounts {
		if !isRelay(m.Location) {
			ret = append(ret, m)
		}
	}
	return ret
}

// ExpandTilde resolves a leading ~ against home. Other paths are unchanged.
func ExpandTilde(location, home string) string {
	switch {
	case location == "~":
		return home
	case strings.HasPrefix(location, "~/"):
		return filepath.Join(home, location[2:])
	}
	return location
}

// VM runs probes inside the Colima VM.
type VM struct {
	run runner.Runner
}

// NewVM returns a VM prober using r.
func NewVM(r runner.Runner) *VM {
	return &VM{run: r}
}

func (v *VM) ok(ctx context.Context, args ...string) (*runner.Output, bool) {
	slog.InfoContext(ctx, "VM.probe", "cmd", runner.Display(Binary, args...))
	out, err := v.run.Capture(ctx, Binary, args...)
	if err != nil {
		return nil, false
	}
	return out, out.OK()
}

// Status runs `colima status` and returns its combined output.
func (v *VM) Status(ctx context.Context) (string, bool) {
	out, ok := v.ok(ctx, "status")
	if out == nil {
		return "", false
	}
	return out.Stdout + "\n" + out.Stderr, ok
}

// RelayVisible reports whether the relay can be listed inside the VM.
func (v *VM) RelayVisible(ctx context.Context) bool {
	_, ok := v.ok(ctx, "ssh", "--", "ls", relayLocation)
	return ok
}

// RelayWritable creates and removes a probe file in the relay inside the VM.
func (v *VM) RelayWritable(ctx context.Context) bool {
	_, ok := v.ok(ctx, "ssh", "--", "sh", "-c",
		"touch ~/.colima-mounts/.dcx-write-test && rm ~/.colima-mounts/.dcx-write-test")
	return ok
}
