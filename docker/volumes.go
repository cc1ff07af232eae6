package docker

import (
	"context"
	"errors"
	"strings"

	"github.com/banksean/dcx/docker/options"
)

// ListVolumes returns the volume names that start with prefix.
func (e *Engine) ListVolumes(ctx context.Context, prefix string) ([]string, error) {
	opts := options.VolumeList{Filter: []string{"name=" + prefix}, Format: "{{.Name}}"}
	out, err := e.check(ctx, "ListVolumes", append([]string{"volume", "ls"}, options.ToArgs(opts)...)...)
	if err != nil {
		return nil, err
	}
	// The name filter matches substrings; keep true prefixes only.
	var ret []string
	for _, v := range lines(out) {
		if strings.HasPrefix(v, prefix) {
			ret = append(ret, v)
		}
	}
	return ret, nil
}

// RemoveVolume removes a named volume.
func (e *Engine) RemoveVolume(ctx context.Context, name string) error {
	_, err := e.check(ctx, "RemoveVolume", "volume", "rm", name)
	return err
}

// SweepVolumes removes every dcx-* volume.
func (e *Engine) SweepVolumes(ctx context.Context) (int, error) {
	vols, err := e.ListVolumes(ctx, VolumePrefix)
	if err != nil {
		return 0, err
	}
	var errs []error
	count := 0
	for _, v := range vols {
		if err := e.RemoveVolume(ctx, v); err != nil {
			errs = append(errs, err)
			continue
		}
		count++
	}
	return count, errors.Join(errs...)
}
