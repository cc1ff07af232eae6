package docker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/banksean/dcx/docker/options"
	"github.com/banksean/dcx/naming"
)

func labelFilter(mountPoint string) string {
	return fmt.Sprintf("label=%s=%s", LocalFolderLabel, mountPoint)
}

func (e *Engine) findContainer(ctx context.Context, op, mountPoint string, all bool) (string, error) {
	opts := options.PsOptions{
		All:    all,
		Filter: []string{labelFilter(mountPoint)},
		Format: "{{.ID}}",
	}
	out, err := e.check(ctx, op, append([]string{"ps"}, options.ToArgs(opts)...)...)
	if err != nil {
		return "", err
	}
	return firstLine(out), nil
}

// FindRunning returns the short ID of the running container for mountPoint,
// or "" if there is none.
func (e *Engine) FindRunning(ctx context.Context, mountPoint string) (string, error) {
	return e.findContainer(ctx, "FindRunning", mountPoint, false)
}

// FindAny is FindRunning including stopped containers.
func (e *Engine) FindAny(ctx context.Context, mountPoint string) (string, error) {
	return e.findContainer(ctx, "FindAny", mountPoint, true)
}

// Stop stops the running container for mountPoint. It succeeds when no
// container is running.
func (e *Engine) Stop(ctx context.Context, mountPoint string) error {
	id, err := e.FindRunning(ctx, mountPoint)
	if err != nil {
		return err
	}
	if id == "" {
		slog.InfoContext(ctx, "Engine.Stop: nothing running", "mountPoint", mountPoint)
		return nil
	}
	_, err = e.check(ctx, "Stop", "stop", id)
	return err
}

// RemoveContainer removes the container with the given ID.
func (e *Engine) RemoveContainer(ctx context.Context, id string) error {
	_, err := e.check(ctx, "RemoveContainer", "rm", id)
	return err
}

// InspectImage returns the image hash a container was created from.
func (e *Engine) InspectImage(ctx context.Context, id string) (string, error) {
	out, err := e.inspect(ctx, "InspectImage", []string{"inspect"}, "{{.Image}}", id)
	if err != nil {
		return "", err
	}
	if out == "" {
		return "", fmt.Errorf("no image recorded for container %s", id)
	}
	return out, nil
}

// referencedImages returns the image names every container (any state) uses.
func (e *Engine) referencedImages(ctx context.Context) (map[string]bool, error) {
	opts := options.PsOptions{All: true, Format: "{{.Image}}"}
	out, err := e.check(ctx, "referencedImages", append([]string{"ps"}, options.ToArgs(opts)...)...)
	if err != nil {
		return nil, err
	}
	ret := map[string]bool{}
	for _, img := range lines(out) {
		ret[img] = true
	}
	return ret, nil
}

func isReferenced(refs map[string]bool, ref string) bool {
	if refs[ref] {
		return true
	}
	if base, ok := strings.CutSuffix(ref, ":latest"); ok && refs[base] {
		return true
	}
	return false
}

// SweepOrphanContainers removes exited containers whose local folder label
// points at a dcx mount point. It returns how many were removed.
func (e *Engine) SweepOrphanContainers(ctx context.Context) (int, error) {
	opts := options.PsOptions{
		All:    true,
		Filter: []string{"label=" + LocalFolderLabel, "status=exited"},
		Format: fmt.Sprintf("{{.ID}}\t{{.Label %q}}", LocalFolderLabel),
	}
	out, err := e.check(ctx, "SweepOrphanContainers", append([]string{"ps"}, options.ToArgs(opts)...)...)
	if err != nil {
		return 0, err
	}
	var errs []error
	count := 0
	for _, l := range lines(out) {
		id, folder, _ := strings.Cut(l, "\t")
		if !naming.IsManagedPath(folder, e.relay) {
			continue
		}
		if err := e.RemoveContainer(ctx, id); err != nil {
			errs = append(errs, err)
			continue
		}
		count++
	}
	return count, errors.Join(errs...)
}
