package dcx

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/banksean/dcx/mounttable"
	"github.com/banksean/dcx/naming"
)

type mockContainerOps struct {
	isAvailableFunc        func(ctx context.Context) bool
	findRunningFunc        func(ctx context.Context, mountPoint string) (string, error)
	findAnyFunc            func(ctx context.Context, mountPoint string) (string, error)
	stopFunc               func(ctx context.Context, mountPoint string) error
	removeContainerFunc    func(ctx context.Context, id string) error
	runtimeImageRefFunc    func(ctx context.Context, id string) (string, error)
	removeRuntimeImageFunc func(ctx context.Context, ref string) error
	tagBaseFunc            func(ctx context.Context, image, mountName string) error
	baseTagExistsFunc      func(ctx context.Context, mountName string) bool
	removeBaseTagFunc      func(ctx context.Context, mountName string) error
	listVolumesFunc        func(ctx context.Context, prefix string) ([]string, error)
	removeVolumeFunc       func(ctx context.Context, name string) error
	buildFunc              func(ctx context.Context, tag, contextDir, dockerfile string, buildArgs map[string]string) error
	sweepFunc              func(ctx context.Context, what string) (int, error)

	calls []string
}

func (m *mockContainerOps) record(format string, args ...any) {
	m.calls = append(m.calls, fmt.Sprintf(format, args...))
}

func (m *mockContainerOps) called(prefix string) bool {
	for _, c := range m.calls {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}

func (m *mockContainerOps) IsAvailable(ctx context.Context) bool {
	if m.isAvailableFunc != nil {
		return m.isAvailableFunc(ctx)
	}
	return true
}

func (m *mockContainerOps) FindRunning(ctx context.Context, mountPoint string) (string, error) {
	if m.findRunningFunc != nil {
		return m.findRunningFunc(ctx, mountPoint)
	}
	return "", nil
}

func (m *mockContainerOps) FindAny(ctx context.Context, mountPoint string) (string, error) {
	if m.findAnyFunc != nil {
		return m.findAnyFunc(ctx, mountPoint)
	}
	return "", nil
}

func (m *mockContainerOps) Stop(ctx context.Context, mountPoint string) error {
	m.record("Stop %s", mountPoint)
	if m.stopFunc != nil {
		return m.stopFunc(ctx, mountPoint)
	}
	return nil
}

func (m *mockContainerOps) RemoveContainer(ctx context.Context, id string) error {
	m.record("RemoveContainer %s", id)
	if m.removeContainerFunc != nil {
		return m.removeContainerFunc(ctx, id)
	}
	return nil
}

func (m *mockContainerOps) RuntimeImageRef(ctx context.Context, id string) (string, error) {
	m.record("RuntimeImageRef %s", id)
	if m.runtimeImageRefFunc != nil {
		return m.runtimeImageRefFunc(ctx, id)
	}
	return "", nil
}

func (m *mockContainerOps) RemoveRuntimeImage(ctx context.Context, ref string) error {
	m.record("RemoveRuntimeImage %s", ref)
	if m.removeRuntimeImageFunc != nil {
		return m.removeRuntimeImageFunc(ctx, ref)
	}
	return nil
}

func (m *mockContainerOps) TagBase(ctx context.Context, image, mountName string) error {
	m.record("TagBase %s %s", image, mountName)
	if m.tagBaseFunc != nil {
		return m.tagBaseFunc(ctx, image, mountName)
	}
	return nil
}

func (m *mockContainerOps) BaseTagExists(ctx context.Context, mountName string) bool {
	if m.baseTagExistsFunc != nil {
		return m.baseTagExistsFunc(ctx, mountName)
	}
	return false
}

func (m *mockContainerOps) RemoveBaseTag(ctx context.Context, mountName string) error {
	m.record("RemoveBaseTag %s", mountName)
	if m.removeBaseTagFunc != nil {
		return m.removeBaseTagFunc(ctx, mountName)
	}
	return nil
}

func (m *mockContainerOps) ListVolumes(ctx context.Context, prefix string) ([]string, error) {
	if m.listVolumesFunc != nil {
		return m.listVolumesFunc(ctx, prefix)
	}
	return nil, nil
}

func (m *mockContainerOps) RemoveVolume(ctx context.Context, name string) error {
	m.record("RemoveVolume %s", name)
	if m.removeVolumeFunc != nil {
		return m.removeVolumeFunc(ctx, name)
	}
	return nil
}

func (m *mockContainerOps) Build(ctx context.Context, tag, contextDir, dockerfile string, buildArgs map[string]string) error {
	m.record("Build %s", tag)
	if m.buildFunc != nil {
		return m.buildFunc(ctx, tag, contextDir, dockerfile, buildArgs)
	}
	return nil
}

func (m *mockContainerOps) sweep(ctx context.Context, what string) (int, error) {
	m.record("Sweep%s", what)
	if m.sweepFunc != nil {
		return m.sweepFunc(ctx, what)
	}
	return 0, nil
}

func (m *mockContainerOps) SweepOrphanContainers(ctx context.Context) (int, error) {
	return m.sweep(ctx, "OrphanContainers")
}

func (m *mockContainerOps) SweepDanglingAndUIDImages(ctx context.Context) (int, error) {
	return m.sweep(ctx, "DanglingAndUIDImages")
}

func (m *mockContainerOps) SweepBaseTags(ctx context.Context) (int, error) {
	return m.sweep(ctx, "BaseTags")
}

func (m *mockContainerOps) SweepOrphanBuildImages(ctx context.Context) (int, error) {
	return m.sweep(ctx, "OrphanBuildImages")
}

func (m *mockContainerOps) SweepVolumes(ctx context.Context) (int, error) {
	return m.sweep(ctx, "Volumes")
}

// mockMountOps keeps an in-memory mount table that Bind and Unmount update.
type mockMountOps struct {
	table       mounttable.Table
	bindFunc    func(ctx context.Context, source, target string) error
	unmountFunc func(ctx context.Context, target string) error
	calls       []string
}

func (m *mockMountOps) ReadTable(ctx context.Context) mounttable.Table {
	return append(mounttable.Table(nil), m.table...)
}

func (m *mockMountOps) Bind(ctx context.Context, source, target string) error {
	m.calls = append(m.calls, "Bind "+source+" "+target)
	if m.bindFunc != nil {
		if err := m.bindFunc(ctx, source, target); err != nil {
			return err
		}
	}
	m.table = append(m.table, mounttable.Entry{Source: source, Target: target, FSType: "fuse.bindfs"})
	return nil
}

func (m *mockMountOps) Unmount(ctx context.Context, target string) error {
	m.calls = append(m.calls, "Unmount "+target)
	if m.unmountFunc != nil {
		if err := m.unmountFunc(ctx, target); err != nil {
			return err
		}
	}
	var kept mounttable.Table
	for _, e := range m.table {
		if e.Target != target {
			kept = append(kept, e)
		}
	}
	m.table = kept
	return nil
}

func (m *mockMountOps) mount(source, target string) {
	m.table = append(m.table, mounttable.Entry{Source: source, Target: target, FSType: "fuse.bindfs"})
}

func (m *mockMountOps) bound() bool {
	for _, c := range m.calls {
		if strings.HasPrefix(c, "Bind ") {
			return true
		}
	}
	return false
}

type upCall struct {
	mountPoint string
	config     string
	env        []string
}

type mockOrchestrator struct {
	upFunc      func(ctx context.Context, mountPoint, config string, env []string) (int, error)
	execFunc    func(ctx context.Context, mountPoint, config string, command []string) (int, error)
	forwardFunc func(ctx context.Context, args []string) (int, error)

	ups      []upCall
	execs    [][]string
	forwards [][]string
}

func (m *mockOrchestrator) Up(ctx context.Context, mountPoint, config string, env []string) (int, error) {
	m.ups = append(m.ups, upCall{mountPoint: mountPoint, config: config, env: env})
	if m.upFunc != nil {
		return m.upFunc(ctx, mountPoint, config, env)
	}
	return 0, nil
}

func (m *mockOrchestrator) Exec(ctx context.Context, mountPoint, config string, command []string) (int, error) {
	m.execs = append(m.execs, append([]string{mountPoint, config}, command...))
	if m.execFunc != nil {
		return m.execFunc(ctx, mountPoint, config, command)
	}
	return 0, nil
}

func (m *mockOrchestrator) Forward(ctx context.Context, args []string) (int, error) {
	m.forwards = append(m.forwards, args)
	if m.forwardFunc != nil {
		return m.forwardFunc(ctx, args)
	}
	return 0, nil
}

type testEnv struct {
	m          *Manager
	containers *mockContainerOps
	mounts     *mockMountOps
	dc         *mockOrchestrator
	stdout     *bytes.Buffer
	stderr     *bytes.Buffer
	home       string
	interrupt  bool
}

// canonicalTempDir resolves symlinks so paths match what ResolveWorkspace
// returns (macOS temp dirs live behind /var -> /private/var).
func canonicalTempDir(t *testing.T) string {
	t.Helper()
	dir, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return dir
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	home := canonicalTempDir(t)
	env := &testEnv{
		containers: &mockContainerOps{},
		mounts:     &mockMountOps{},
		dc:         &mockOrchestrator{},
		stdout:     &bytes.Buffer{},
		stderr:     &bytes.Buffer{},
		home:       home,
	}
	env.m = &Manager{
		Home:         home,
		Relay:        naming.RelayDir(home),
		Containers:   env.containers,
		Mounts:       env.mounts,
		Devcontainer: env.dc,
		Messenger:    NewNullMessenger(),
		Stdin:        strings.NewReader(""),
		Stdout:       env.stdout,
		Stderr:       env.stderr,
		Interrupted:  func() bool { return env.interrupt },
		LookupEnv:    func(string) (string, bool) { return "", false },
		currentUID:   func() int { return 1000 },
		ownerUID:     func(string) (int, bool) { return 1000, true },
		userName:     func(uid int) string { return fmt.Sprintf("user%d", uid) },
	}
	return env
}

const testImage = "mcr.microsoft.com/devcontainers/base:ubuntu"

// workspace creates a project directory named base, optionally with a
// .devcontainer/devcontainer.json, and returns its canonical path.
func (e *testEnv) workspace(t *testing.T, base string, withConfig bool) string {
	t.Helper()
	ws := filepath.Join(canonicalTempDir(t), base)
	if err := os.MkdirAll(ws, 0o755); err != nil {
		t.Fatal(err)
	}
	if withConfig {
		writeTestFile(t, filepath.Join(ws, ".devcontainer", "devcontainer.json"), `{
  // base image
  "image": "`+testImage+`"
}`)
	}
	return ws
}

// relayEntry creates a directory in the relay and returns its path.
func (e *testEnv) relayDir(t *testing.T, name string) string {
	t.Helper()
	p := filepath.Join(e.m.Relay, name)
	if err := os.MkdirAll(p, 0o755); err != nil {
		t.Fatal(err)
	}
	return p
}

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func exitCode(err error) int {
	if err == nil {
		return Success
	}
	if ee, ok := err.(*ExitError); ok {
		return ee.Code
	}
	return -1
}

func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
