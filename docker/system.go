package docker

import (
	"context"
)

// IsAvailable reports whether the engine daemon answers `docker info`.
func (e *Engine) IsAvailable(ctx context.Context) bool {
	out, err := e.docker(ctx, "IsAvailable", "info")
	return err == nil && out.OK()
}

// ServerVersion returns the daemon's version string.
func (e *Engine) ServerVersion(ctx context.Context) (string, error) {
	return e.check(ctx, "ServerVersion", "info", "--format", "{{.ServerVersion}}")
}
