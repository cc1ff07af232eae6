package docker

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/banksean/dcx/runner"
)

// fakeRunner answers docker invocations keyed by their space-joined args and
// records every call.
type fakeRunner struct {
	responses  map[string]*runner.Output
	spawnErr   error
	calls      []string
	streamArgs []string
	streamCode int
}

func (f *fakeRunner) Capture(ctx context.Context, name string, args ...string) (*runner.Output, error) {
	key := strings.Join(args, " ")
	f.calls = append(f.calls, key)
	if f.spawnErr != nil {
		return nil, f.spawnErr
	}
	if out, ok := f.responses[key]; ok {
		return out, nil
	}
	return &runner.Output{}, nil
}

func (f *fakeRunner) Stream(ctx context.Context, env []string, name string, args ...string) (int, error) {
	f.streamArgs = args
	return f.streamCode, nil
}

func (f *fakeRunner) LookPath(name string) (string, error) {
	return "/usr/bin/" + name, nil
}

func (f *fakeRunner) called(key string) bool {
	for _, c := range f.calls {
		if c == key {
			return true
		}
	}
	return false
}

const (
	relay = "/home/user/.colima-mounts"
	mount = relay + "/dcx-proj-a1b2c3d4"
)

func ok(stdout string) *runner.Output {
	return &runner.Output{Stdout: stdout}
}

func fail(stderr string) *runner.Output {
	return &runner.Output{Stderr: stderr, Status: 1}
}

func TestIsAvailable(t *testing.T) {
	tests := map[string]struct {
		fr   *fakeRunner
		want bool
	}{
		"up":        {fr: &fakeRunner{}, want: true},
		"down":      {fr: &fakeRunner{responses: map[string]*runner.Output{"info": fail("Cannot connect")}}, want: false},
		"not found": {fr: &fakeRunner{spawnErr: errors.New("not found")}, want: false},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			if got := New(tt.fr, relay).IsAvailable(context.Background()); got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestFindRunningAndAny(t *testing.T) {
	fr := &fakeRunner{responses: map[string]*runner.Output{
		"ps --filter label=devcontainer.local_folder=" + mount + " --format {{.ID}}":       ok("abc123\n"),
		"ps --all --filter label=devcontainer.local_folder=" + mount + " --format {{.ID}}": ok("def456\nabc123\n"),
	}}
	e := New(fr, relay)
	ctx := context.Background()

	id, err := e.FindRunning(ctx, mount)
	if err != nil || id != "abc123" {
		t.Errorf("Expected abc123, got %q (err %v)", id, err)
	}
	id, err = e.FindAny(ctx, mount)
	if err != nil || id != "def456" {
		t.Errorf("Expected def456, got %q (err %v)", id, err)
	}
	id, err = e.FindRunning(ctx, relay+"/dcx-other-00000000")
	if err != nil || id != "" {
		t.Errorf("Expected no container, got %q (err %v)", id, err)
	}
}

func TestStopIdempotent(t *testing.T) {
	fr := &fakeRunner{}
	if err := New(fr, relay).Stop(context.Background(), mount); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	for _, c := range fr.calls {
		if strings.HasPrefix(c, "stop") {
			t.Errorf("Expected no stop call when nothing runs, got %q", c)
		}
	}
}

func TestStopRunning(t *testing.T) {
	fr := &fakeRunner{responses: map[string]*runner.Output{
		"ps --filter label=devcontainer.local_folder=" + mount + " --format {{.ID}}": ok("abc123\n"),
		"stop abc123": fail("boom"),
	}}
	err := New(fr, relay).Stop(context.Background(), mount)
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Errorf("Expected stop failure carrying stderr, got %v", err)
	}
}

func TestRuntimeImageRef(t *testing.T) {
	tests := []struct {
		name string
		tags string
		want string
	}{
		{name: "prefers uid tag", tags: "vsc-dcx-proj-a1b2c3d4-abc:latest\nvsc-dcx-proj-a1b2c3d4-abc-uid:latest\n", want: "vsc-dcx-proj-a1b2c3d4-abc-uid:latest"},
		{name: "falls back to hash", tags: "vsc-dcx-proj-a1b2c3d4-abc:latest\n", want: "sha256:feed"},
		{name: "no tags", tags: "", want: "sha256:feed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fr := &fakeRunner{responses: map[string]*runner.Output{
				"inspect --format {{.Image}} abc123":                                   ok("sha256:feed\n"),
				"image inspect --format {{range .RepoTags}}{{.}}\n{{end}} sha256:feed": ok(tt.tags),
			}}
			got, err := New(fr, relay).RuntimeImageRef(context.Background(), "abc123")
			if err != nil {
				t.Fatalf("RuntimeImageRef() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestRemoveRuntimeImage(t *testing.T) {
	tests := map[string]struct {
		ref  string
		want string
	}{
		"tag without force": {ref: "vsc-dcx-a-uid:latest", want: "rmi vsc-dcx-a-uid:latest"},
		"hash with force":   {ref: "sha256:feed", want: "rmi --force sha256:feed"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			fr := &fakeRunner{}
			if err := New(fr, relay).RemoveRuntimeImage(context.Background(), tt.ref); err != nil {
				t.Fatalf("RemoveRuntimeImage() error = %v", err)
			}
			if !reflect.DeepEqual(fr.calls, []string{tt.want}) {
				t.Errorf("Expected %v, got %v", []string{tt.want}, fr.calls)
			}
		})
	}
}

func TestBaseTag(t *testing.T) {
	got, err := BaseTag("dcx-myproject-f227ecb4")
	if err != nil {
		t.Fatalf("BaseTag() error = %v", err)
	}
	if got != "dcx-base:dcx-myproject-f227ecb4" {
		t.Errorf("Expected dcx-base:dcx-myproject-f227ecb4, got %s", got)
	}
	if _, err := BaseTag("bad tag with spaces"); err == nil {
		t.Error("Expected invalid tag error")
	}
}

func TestTagBaseAndRemove(t *testing.T) {
	fr := &fakeRunner{responses: map[string]*runner.Output{
		"rmi dcx-base:dcx-gone-00000000": fail("Error response from daemon: No such image: dcx-base:dcx-gone-00000000"),
		"rmi dcx-base:dcx-busy-00000000": fail("conflict: unable to remove repository reference"),
	}}
	e := New(fr, relay)
	ctx := context.Background()

	if err := e.TagBase(ctx, "mcr.microsoft.com/devcontainers/go:1", "dcx-proj-a1b2c3d4"); err != nil {
		t.Fatalf("TagBase() error = %v", err)
	}
	if !fr.called("tag mcr.microsoft.com/devcontainers/go:1 dcx-base:dcx-proj-a1b2c3d4") {
		t.Errorf("Expected docker tag call, got %v", fr.calls)
	}
	if err := e.RemoveBaseTag(ctx, "dcx-gone-00000000"); err != nil {
		t.Errorf("Expected missing tag to count as removed, got %v", err)
	}
	if err := e.RemoveBaseTag(ctx, "dcx-busy-00000000"); err == nil {
		t.Error("Expected conflict to surface as error")
	}
}

func TestBaseTagExists(t *testing.T) {
	fr := &fakeRunner{responses: map[string]*runner.Output{
		"image inspect --format {{.Id}} dcx-base:dcx-none-00000000": fail("No such image"),
	}}
	e := New(fr, relay)
	if !e.BaseTagExists(context.Background(), "dcx-proj-a1b2c3d4") {
		t.Error("Expected existing tag")
	}
	if e.BaseTagExists(context.Background(), "dcx-none-00000000") {
		t.Error("Expected missing tag")
	}
}

func TestIsUIDTag(t *testing.T) {
	tests := map[string]bool{
		"vsc-dcx-a-abc-uid:latest":    true,
		"vsc-dcx-a-abc-uid":           true,
		"vsc-dcx-a-abc:latest":        false,
		"sha256:feed":                 false,
		"<none>:<none>":               false,
		"ghcr.io/org/img:v1-uid":      true,
		"mcr.microsoft.com/go:latest": false,
	}
	for ref, want := range tests {
		t.Run(ref, func(t *testing.T) {
			if got := IsUIDTag(ref); got != want {
				t.Errorf("Expected %v, got %v", want, got)
			}
		})
	}
}

func TestSweepOrphanContainers(t *testing.T) {
	fr := &fakeRunner{responses: map[string]*runner.Output{
		"ps --all --filter label=devcontainer.local_folder --filter status=exited --format {{.ID}}\t{{.Label \"devcontainer.local_folder\"}}": ok(
			"aaa\t" + relay + "/dcx-a-aaaaaaaa\nbbb\t/home/user/elsewhere\nccc\t" + relay + "/dcx-c-cccccccc\n"),
		"rm ccc": fail("in use"),
	}}
	n, err := New(fr, relay).SweepOrphanContainers(context.Background())
	if n != 1 {
		t.Errorf("Expected 1 removed, got %d", n)
	}
	if err == nil {
		t.Error("Expected joined error for ccc")
	}
	if fr.called("rm bbb") {
		t.Error("Expected container outside relay to be left alone")
	}
	if !fr.called("rm aaa") {
		t.Errorf("Expected rm aaa, got %v", fr.calls)
	}
}

func TestSweepDanglingAndUIDImages(t *testing.T) {
	fr := &fakeRunner{responses: map[string]*runner.Output{
		"images --filter dangling=true --filter label=devcontainer.metadata --quiet": ok("d1\nd2\n"),
		"rmi d2":                                                                     fail("image is being used"),
		"images --format {{.Repository}}:{{.Tag}}": ok(
			"vsc-dcx-a-aaaaaaaa-123-uid:latest\n" +
				"vsc-dcx-b-bbbbbbbb-456-uid:latest\n" +
				"vsc-other-789-uid:latest\n" +
				"vsc-dcx-a-aaaaaaaa-123:latest\n" +
				"<none>:<none>\n"),
		"ps --all --format {{.Image}}": ok("vsc-dcx-b-bbbbbbbb-456-uid\n"),
	}}
	n, err := New(fr, relay).SweepDanglingAndUIDImages(context.Background())
	if err != nil {
		t.Fatalf("SweepDanglingAndUIDImages() error = %v", err)
	}
	if n != 2 {
		t.Errorf("Expected 2 removed (d1 and a-uid), got %d; calls %v", n, fr.calls)
	}
	if !fr.called("rmi vsc-dcx-a-aaaaaaaa-123-uid:latest") {
		t.Error("Expected unreferenced uid image removed")
	}
	if fr.called("rmi vsc-dcx-b-bbbbbbbb-456-uid:latest") {
		t.Error("Expected referenced uid image kept")
	}
	if fr.called("rmi vsc-other-789-uid:latest") {
		t.Error("Expected non-dcx uid image kept")
	}
	if fr.called("rmi vsc-dcx-a-aaaaaaaa-123:latest") {
		t.Error("Expected build image kept by uid sweep")
	}
}

func TestSweepDanglingSkipsUnlabelledImages(t *testing.T) {
	fr := &fakeRunner{responses: map[string]*runner.Output{
		"images --filter dangling=true --quiet": ok("foreign\n"),
	}}
	if _, err := New(fr, relay).SweepDanglingAndUIDImages(context.Background()); err != nil {
		t.Fatalf("SweepDanglingAndUIDImages() error = %v", err)
	}
	if fr.called("images --filter dangling=true --quiet") {
		t.Errorf("Expected dangling query scoped to %s, got %v", MetadataLabel, fr.calls)
	}
	if fr.called("rmi foreign") {
		t.Error("Expected unlabelled dangling image kept")
	}
}

func TestSweepOrphanBuildImages(t *testing.T) {
	fr := &fakeRunner{responses: map[string]*runner.Output{
		"images --format {{.Repository}}:{{.Tag}}": ok(
			"vsc-dcx-a-aaaaaaaa-1:latest\n" +
				"vsc-dcx-a-aaaaaaaa-1-uid:latest\n" +
				"vsc-dcx-b-bbbbbbbb-2:latest\n" +
				"vsc-dcx-c-cccccccc-3:latest\n" +
				"vsc-other-4:latest\n"),
		"ps --all --format {{.Image}}": ok("vsc-dcx-c-cccccccc-3\n"),
	}}
	n, err := New(fr, relay).SweepOrphanBuildImages(context.Background())
	if err != nil {
		t.Fatalf("SweepOrphanBuildImages() error = %v", err)
	}
	if n != 1 || !fr.called("rmi vsc-dcx-b-bbbbbbbb-2:latest") {
		t.Errorf("Expected only vsc-dcx-b removed, got %d; calls %v", n, fr.calls)
	}
}

func TestSweepBaseTags(t *testing.T) {
	fr := &fakeRunner{responses: map[string]*runner.Output{
		"images --format {{.Repository}}:{{.Tag}} dcx-base": ok("dcx-base:dcx-a-aaaaaaaa\ndcx-base:dcx-b-bbbbbbbb\n"),
	}}
	n, err := New(fr, relay).SweepBaseTags(context.Background())
	if err != nil || n != 2 {
		t.Errorf("Expected 2 removed, got %d (err %v)", n, err)
	}
}

func TestVolumes(t *testing.T) {
	fr := &fakeRunner{responses: map[string]*runner.Output{
		"volume ls --filter name=dcx- --format {{.Name}}":           ok("dcx-a-aaaaaaaa-home\nold-dcx-x\ndcx-b-bbbbbbbb-cache\n"),
		"volume ls --filter name=dcx-a-aaaaaaaa --format {{.Name}}": ok("dcx-a-aaaaaaaa-home\n"),
		"volume rm dcx-b-bbbbbbbb-cache":                            fail("volume is in use"),
	}}
	e := New(fr, relay)
	ctx := context.Background()

	vols, err := e.ListVolumes(ctx, "dcx-a-aaaaaaaa")
	if err != nil || !reflect.DeepEqual(vols, []string{"dcx-a-aaaaaaaa-home"}) {
		t.Errorf("Expected [dcx-a-aaaaaaaa-home], got %v (err %v)", vols, err)
	}
	n, err := e.SweepVolumes(ctx)
	if n != 1 {
		t.Errorf("Expected 1 removed, got %d", n)
	}
	if err == nil {
		t.Error("Expected error for in-use volume")
	}
	if fr.called("volume rm old-dcx-x") {
		t.Error("Expected substring match to be filtered out")
	}
}

func TestBuild(t *testing.T) {
	fr := &fakeRunner{}
	err := New(fr, relay).Build(context.Background(), "dcx-base:0a1b2c3d", "/ws/.devcontainer", "/ws/.devcontainer/Dockerfile", map[string]string{"A": "1"})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	want := []string{"build", "--tag", "dcx-base:0a1b2c3d", "--file", "/ws/.devcontainer/Dockerfile", "--build-arg", "A=1", "/ws/.devcontainer"}
	if !reflect.DeepEqual(fr.streamArgs, want) {
		t.Errorf("Expected %v, got %v", want, fr.streamArgs)
	}

	fr.streamCode = 2
	if err := New(fr, relay).Build(context.Background(), "t:1", "/d", "", nil); err == nil {
		t.Error("Expected build failure error")
	}
}
