package dcx

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/user"
	"strconv"
	"strings"
	"syscall"

	"github.com/banksean/dcx/devcontainer"
	"github.com/banksean/dcx/naming"
	"github.com/banksean/dcx/runner"
)

// Manager runs the dcx engines against one relay directory. All state is
// observed live from the filesystem, the mount table and the engine.
type Manager struct {
	Home  string
	Relay string

	Containers   ContainerOps
	Mounts       MountOps
	Devcontainer Orchestrator
	Messenger    UserMessenger

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Interrupted is polled at safe points. Nil means never.
	Interrupted func() bool
	// LookupEnv expands ${localEnv:...} in build args.
	LookupEnv func(string) (string, bool)

	currentUID func() int
	ownerUID   func(path string) (int, bool)
	userName   func(uid int) string
	stdin      *bufio.Reader
}

// NewManager wires a Manager for home with the real external tools.
func NewManager(home string, r runner.Runner, interrupted func() bool) *Manager {
	relay := naming.RelayDir(home)
	return &Manager{
		Home:         home,
		Relay:        relay,
		Containers:   NewDockerContainerOps(r, relay),
		Mounts:       NewDefaultMountOps(r),
		Devcontainer: devcontainer.NewCLI(r),
		Messenger:    NewTerminalMessenger(os.Stderr),
		Stdin:        os.Stdin,
		Stdout:       os.Stdout,
		Stderr:       os.Stderr,
		Interrupted:  interrupted,
		LookupEnv:    os.LookupEnv,
	}
}

func (m *Manager) interrupted() bool {
	return m.Interrupted != nil && m.Interrupted()
}

func (m *Manager) progress(ctx context.Context, format string, args ...any) {
	if m.Messenger == nil {
		return
	}
	m.Messenger.Message(ctx, fmt.Sprintf(format, args...))
}

func (m *Manager) warnf(ctx context.Context, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	slog.WarnContext(ctx, "Manager", "msg", msg)
	fmt.Fprintln(m.Stderr, msg)
}

// confirm prints prompt on stderr and reads one line. Only y or yes accepts;
// EOF and read errors decline.
func (m *Manager) confirm(prompt string) bool {
	fmt.Fprint(m.Stderr, prompt)
	if m.stdin == nil {
		m.stdin = bufio.NewReader(m.Stdin)
	}
	line, err := m.stdin.ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

func (m *Manager) tilde(path string) string {
	return naming.TildePath(path, m.Home)
}

func (m *Manager) uid() int {
	if m.currentUID != nil {
		return m.currentUID()
	}
	return os.Getuid()
}

func (m *Manager) owner(path string) (int, bool) {
	if m.ownerUID != nil {
		return m.ownerUID(path)
	}
	fi, err := os.Stat(path)
	if err != nil {
		return 0, false
	}
	st, ok := fi.Sys().(*syscall.Stat_t)
	if !ok {
		return 0, false
	}
	return int(st.Uid), true
}

func (m *Manager) lookupUser(uid int) string {
	if m.userName != nil {
		return m.userName(uid)
	}
	u, err := user.LookupId(strconv.Itoa(uid))
	if err != nil {
		return fmt.Sprintf("UID %d", uid)
	}
	return u.Username
}

// currentUserName reads USER, then USERNAME.
func currentUserName() string {
	for _, k := range []string{"USER", "USERNAME"} {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return "unknown"
}

// exists reports whether path can be stat-ed. A dead FUSE mount cannot.
func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// checkEngine fails with a hint when the container engine is unreachable.
func (m *Manager) checkEngine(ctx context.Context) error {
	if !m.Containers.IsAvailable(ctx) {
		return runtimeError(engineUnavailableMsg)
	}
	return nil
}

// workspace resolves given and applies the recursion guard. missingMsg, if
// set, replaces the resolver's message.
func (m *Manager) workspace(given, missingMsg string) (string, error) {
	ws, err := ResolveWorkspace(given)
	if err != nil {
		if missingMsg != "" {
			return "", usageError(missingMsg)
		}
		return "", usageError(err.Error())
	}
	if naming.IsManagedPath(ws, m.Relay) {
		return "", usageError(recursionMsg)
	}
	return ws, nil
}
