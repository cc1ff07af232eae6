package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/banksean/dcx"
	"github.com/banksean/dcx/colima"
	"github.com/banksean/dcx/devcontainer"
	"github.com/banksean/dcx/docker"
	"github.com/banksean/dcx/mounttable"
	"github.com/banksean/dcx/naming"
	"github.com/banksean/dcx/runner"
)

// checkResult is the outcome of one diagnosticCheck. Detail is the version
// found when the check passed and the fix hint when it failed.
type checkResult struct {
	Passed bool
	Detail string
}

type diagnosticCheck struct {
	Name string
	Run  func(context.Context) checkResult
}

func pass(detail string) checkResult { return checkResult{Passed: true, Detail: detail} }
func fail(hint string) checkResult   { return checkResult{Detail: hint} }

// prober runs the doctor checks against one home directory. Every probe is
// read-only.
type prober struct {
	run          runner.Runner
	home         string
	colimaConfig string
}

func newProber(r runner.Runner, home string) *prober {
	return &prober{run: r, home: home, colimaConfig: colima.ConfigPath(home)}
}

func (p *prober) diagnosticChecks() []diagnosticCheck {
	unmount, _ := mounttable.UnmountCommand("")
	return []diagnosticCheck{
		{Name: "bindfs installed", Run: p.tool(dcx.BindfsBinary, mounttable.BindfsInstallHint())},
		{Name: "devcontainer CLI installed", Run: p.tool(devcontainer.Binary, devcontainer.InstallHint)},
		{Name: "Docker available", Run: p.docker},
		{Name: "Colima running", Run: p.colimaRunning},
		{Name: unmount + " installed", Run: p.unmountTool(unmount)},
		{Name: "~/.colima-mounts exists on host", Run: p.relayExists},
		{Name: "~/.colima-mounts mounted in VM (writable)", Run: p.relayInVM},
		{Name: "~/.colima-mounts listed in colima.yaml (writable)", Run: p.relayListed},
		{Name: "No other host directories shared with Colima", Run: p.noOtherShares},
	}
}

// tool checks that prog is in PATH and reports its version.
func (p *prober) tool(prog, hint string) func(context.Context) checkResult {
	return func(ctx context.Context) checkResult {
		if _, err := p.run.LookPath(prog); err != nil {
			return fail(hint)
		}
		out, err := p.run.Capture(ctx, prog, "--version")
		if err != nil {
			return pass("")
		}
		if v, ok := ParseVersion(out.Stdout); ok {
			return pass(v)
		}
		v, _ := ParseVersion(out.Stderr)
		return pass(v)
	}
}

func (p *prober) unmountTool(prog string) func(context.Context) checkResult {
	return func(ctx context.Context) checkResult {
		if _, err := p.run.LookPath(prog); err != nil {
			return fail("")
		}
		return pass("")
	}
}

func (p *prober) docker(ctx context.Context) checkResult {
	v, err := docker.New(p.run, naming.RelayDir(p.home)).ServerVersion(ctx)
	if err != nil {
		return fail("Is Docker/Colima running?")
	}
	parsed, _ := ParseVersion(v)
	return pass(parsed)
}

func (p *prober) colimaRunning(ctx context.Context) checkResult {
	out, ok := colima.NewVM(p.run).Status(ctx)
	if !ok {
		return fail("Run: colima start")
	}
	v, _ := ParseVersion(out)
	return pass(v)
}

func (p *prober) relayExists(ctx context.Context) checkResult {
	relay := naming.RelayDir(p.home)
	if fi, err := os.Stat(relay); err == nil && fi.IsDir() {
		return pass("")
	}
	return fail("Run: mkdir -p " + relay)
}

func (p *prober) relayInVM(ctx context.Context) checkResult {
	vm := colima.NewVM(p.run)
	if !vm.RelayVisible(ctx) {
		return fail("Add ~/.colima-mounts to Colima mounts in colima.yaml and run: colima start")
	}
	if !vm.RelayWritable(ctx) {
		return fail("Check Colima mount permissions for ~/.colima-mounts")
	}
	return pass("")
}

func (p *prober) relayListed(ctx context.Context) checkResult {
	mounts, err := colima.Load(p.colimaConfig)
	if err != nil {
		return fail("Cannot read " + naming.TildePath(p.colimaConfig, p.home))
	}
	m, ok := colima.FindRelay(mounts)
	if !ok || !m.Writable {
		return fail(fmt.Sprintf("Add `- location: ~/.colima-mounts` with `writable: true` to mounts in %s", naming.TildePath(p.colimaConfig, p.home)))
	}
	return pass("")
}

func (p *prober) noOtherShares(ctx context.Context) checkResult {
	mounts, err := colima.Load(p.colimaConfig)
	if err != nil {
		return fail("Cannot read " + naming.TildePath(p.colimaConfig, p.home))
	}
	others := colima.FilterRelayMounts(mounts)
	if len(others) == 0 {
		return pass("")
	}
	var locs []string
	for _, m := range others {
		locs = append(locs, filepath.Clean(colima.ExpandTilde(m.Location, p.home)))
	}
	return fail("Remove from colima.yaml mounts: " + strings.Join(locs, ", "))
}

// verifyPrerequisites runs every check concurrently and returns the results
// in check order.
func verifyPrerequisites(ctx context.Context, checks []diagnosticCheck) []checkResult {
	results := make([]checkResult, len(checks))
	var eg errgroup.Group
	for i, check := range checks {
		eg.Go(func() error {
			results[i] = check.Run(ctx)
			if results[i].Passed {
				slog.InfoContext(ctx, "diagnosticCheck passed", "name", check.Name, "detail", results[i].Detail)
			} else {
				slog.ErrorContext(ctx, "diagnosticCheck failed", "name", check.Name, "hint", results[i].Detail)
			}
			return nil
		})
	}
	_ = eg.Wait()
	return results
}

// doctorReport renders the results. "All checks passed." only follows a
// non-empty, fully passing list.
func doctorReport(checks []diagnosticCheck, results []checkResult) string {
	lines := []string{"Checking prerequisites..."}
	for i, check := range checks {
		r := results[i]
		switch {
		case r.Passed && r.Detail != "":
			lines = append(lines, fmt.Sprintf("  ✓ %s (%s)", check.Name, r.Detail))
		case r.Passed:
			lines = append(lines, "  ✓ "+check.Name)
		default:
			lines = append(lines, "  ✗ "+check.Name)
			if r.Detail != "" {
				lines = append(lines, "    Fix: "+r.Detail)
			}
		}
	}
	if allPassed(results) {
		lines = append(lines, "", "All checks passed.")
	}
	return strings.Join(lines, "\n")
}

func allPassed(results []checkResult) bool {
	if len(results) == 0 {
		return false
	}
	for _, r := range results {
		if !r.Passed {
			return false
		}
	}
	return true
}

// ParseVersion returns the first MAJOR.MINOR[.PATCH...] token in output,
// without a leading v or trailing punctuation.
func ParseVersion(output string) (string, bool) {
	for _, word := range strings.Fields(output) {
		w := strings.TrimLeft(word, "v")
		w = strings.TrimRight(w, ",;.")
		parts := strings.Split(w, ".")
		if len(parts) < 2 {
			continue
		}
		if !slices.ContainsFunc(parts, notNumeric) {
			return w, true
		}
	}
	return "", false
}

func notNumeric(s string) bool {
	if s == "" {
		return true
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return true
		}
	}
	return false
}
