package dcx

import (
	"context"

	"github.com/banksean/dcx/docker"
	"github.com/banksean/dcx/runner"
)

// ContainerOps is the container engine as seen by the engines. Containers
// are addressed by the mount point recorded in their local_folder label.
type ContainerOps interface {
	IsAvailable(ctx context.Context) bool
	FindRunning(ctx context.Context, mountPoint string) (string, error)
	FindAny(ctx context.Context, mountPoint string) (string, error)
	Stop(ctx context.Context, mountPoint string) error
	RemoveContainer(ctx context.Context, id string) error
	RuntimeImageRef(ctx context.Context, id string) (string, error)
	RemoveRuntimeImage(ctx context.Context, ref string) error
	TagBase(ctx context.Context, image, mountName string) error
	BaseTagExists(ctx context.Context, mountName string) bool
	RemoveBaseTag(ctx context.Context, mountName string) error
	ListVolumes(ctx context.Context, prefix string) ([]string, error)
	RemoveVolume(ctx context.Context, name string) error
	Build(ctx context.Context, tag, contextDir, dockerfile string, buildArgs map[string]string) error

	SweepOrphanContainers(ctx context.Context) (int, error)
	SweepDanglingAndUIDImages(ctx context.Context) (int, error)
	SweepBaseTags(ctx context.Context) (int, error)
	SweepOrphanBuildImages(ctx context.Context) (int, error)
	SweepVolumes(ctx context.Context) (int, error)
}

// NewDockerContainerOps returns ContainerOps backed by the docker CLI.
func NewDockerContainerOps(r runner.Runner, relay string) ContainerOps {
	return docker.New(r, relay)
}

// Orchestrator is the devcontainer CLI. Each call streams the child's stdio
// and returns its exit status.
type Orchestrator interface {
	Up(ctx context.Context, mountPoint, config string, env []string) (int, error)
	Exec(ctx context.Context, mountPoint, config string, command []string) (int, error)
	Forward(ctx context.Context, args []string) (int, error)
}
