// Package docker is the container-engine adapter: typed operations over the
// docker CLI that dcx uses to find, stop and clean up devcontainers.
package docker

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/banksean/dcx/docker/options"
	"github.com/banksean/dcx/runner"
)

const (
	// Binary is the engine CLI.
	Binary = "docker"
	// LocalFolderLabel is set by the devcontainer CLI on every container it
	// creates; its value is the workspace folder it was given.
	LocalFolderLabel = "devcontainer.local_folder"
	// MetadataLabel is set by the devcontainer CLI on every image it builds.
	MetadataLabel = "devcontainer.metadata"
	// BaseRepo is the repository that holds base image aliases.
	BaseRepo = "dcx-base"
	// VolumePrefix marks volumes created for dcx workspaces.
	VolumePrefix = "dcx-"
	// BuildRepoPrefix starts images the devcontainer CLI builds for dcx
	// mount points (it names them vsc-<folder basename>-...).
	BuildRepoPrefix = "vsc-dcx-"
)

// Engine runs docker commands through a runner.Runner.
type Engine struct {
	run   runner.Runner
	relay string
}

// New returns an Engine. relay scopes sweeps to containers whose local
// folder label points inside it.
func New(r runner.Runner, relay string) *Engine {
	return &Engine{run: r, relay: relay}
}

func (e *Engine) docker(ctx context.Context, op string, args ...string) (*runner.Output, error) {
	slog.DebugContext(ctx, "Engine."+op, "args", args)
	return e.run.Capture(ctx, Binary, args...)
}

// check runs docker and turns a nonzero exit into an error carrying stderr.
func (e *Engine) check(ctx context.Context, op string, args ...string) (string, error) {
	out, err := e.docker(ctx, op, args...)
	if err != nil {
		return "", err
	}
	if !out.OK() {
		return "", &CommandError{Args: args, Status: out.Status, Stderr: strings.TrimSpace(out.Stderr)}
	}
	return strings.TrimSpace(out.Stdout), nil
}

// inspect runs an inspect subcommand rendering format for target.
func (e *Engine) inspect(ctx context.Context, op string, cmd []string, format, target string) (string, error) {
	args := append(cmd, options.ToArgs(options.InspectOptions{Format: format})...)
	return e.check(ctx, op, append(args, target)...)
}

// CommandError is a docker invocation that exited nonzero.
type CommandError struct {
	Args   []string
	Status int
	Stderr string
}

func (e *CommandError) Error() string {
	sub := ""
	if len(e.Args) > 0 {
		sub = " " + e.Args[0]
	}
	return fmt.Sprintf("docker%s failed (exit %d): %s", sub, e.Status, e.Stderr)
}

func lines(s string) []string {
	var ret []string
	for _, l := range strings.Split(s, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			ret = append(ret, l)
		}
	}
	return ret
}

func firstLine(s string) string {
	if ls := lines(s); len(ls) > 0 {
		return ls[0]
	}
	return ""
}
