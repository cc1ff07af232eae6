package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/alecthomas/kong"
	kongyaml "github.com/alecthomas/kong-yaml"
	"github.com/google/uuid"
	kongcompletion "github.com/jotaen/kong-completion"
	"github.com/posener/complete"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/banksean/dcx"
	"github.com/banksean/dcx/runner"
	"github.com/banksean/dcx/signals"
)

type Context struct {
	ctx         context.Context
	home        string
	run         runner.Runner
	interrupted func() bool
}

// manager returns the engines for the user's home. HOME is only required by
// the commands that touch the relay.
func (c *Context) manager() (*dcx.Manager, error) {
	if c.home == "" {
		return nil, dcx.Exitf(dcx.RuntimeError, "HOME environment variable is not set")
	}
	return dcx.NewManager(c.home, c.run, c.interrupted), nil
}

const defaultLogFile = "~/.cache/dcx/dcx.log"

type CLI struct {
	LogFile  string `default:"${default_log_file}" type:"path" placeholder:"<log-file-path>" help:"location of log file"`
	LogLevel string `default:"info" placeholder:"<debug|info|warn|error>" help:"the logging level (debug, info, warn, error)"`

	Up          UpCmd                     `cmd:"" help:"create bindfs mount and start devcontainer"`
	Exec        ExecCmd                   `cmd:"" help:"run a command inside the devcontainer"`
	Down        DownCmd                   `cmd:"" help:"stop container and unmount workspace"`
	Clean       CleanCmd                  `cmd:"" help:"clean up dcx-managed mounts"`
	Status      StatusCmd                 `cmd:"" help:"show status of all dcx-managed workspaces"`
	Doctor      DoctorCmd                 `cmd:"" help:"validate prerequisites (bindfs, devcontainer, Docker, Colima)"`
	Completions kongcompletion.Completion `cmd:"" help:"print shell code for tab completion of dcx commands"`
	Logs        LogsCmd                   `cmd:"" help:"print the dcx log file in readable form"`
	Version     VersionCmd                `cmd:"" help:"print version information about this command"`
}

func (c *CLI) initSlog(runID string) {
	var level slog.Level
	switch c.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var w io.Writer = io.Discard
	if c.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(c.LogFile), 0o755); err == nil {
			w = &lumberjack.Logger{
				Filename:   c.LogFile,
				MaxSize:    10, // megabytes
				MaxBackups: 3,
			}
		}
	}

	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	})).With("run", runID)
	slog.SetDefault(logger)
	slog.Info("slog initialized", "args", os.Args[1:])
}

const description = `Dynamic workspace mounting wrapper for Colima devcontainers.

dcx wraps ` + "`devcontainer`" + ` to manage bindfs mounts for Colima.

Managed subcommands: up, exec, down, clean, status, doctor
All other subcommands are forwarded to ` + "`devcontainer`" + ` unchanged.`

// forwarded reports whether args name a subcommand dcx does not manage.
func forwarded(app *kong.Application, args []string) bool {
	if len(args) == 0 || strings.HasPrefix(args[0], "-") || args[0] == "help" {
		return false
	}
	for _, n := range app.Children {
		if n.Name == args[0] || slices.Contains(n.Aliases, args[0]) {
			return false
		}
	}
	return true
}

// exitStatus prints err the way the user should see it and returns the
// process exit code.
func exitStatus(err error, stderr io.Writer) int {
	if err == nil {
		return dcx.Success
	}
	var exitErr *dcx.ExitError
	if errors.As(err, &exitErr) {
		if exitErr.Msg != "" {
			fmt.Fprintln(stderr, exitErr.Msg)
		}
		return exitErr.Code
	}
	fmt.Fprintln(stderr, err.Error())
	return dcx.RuntimeError
}

func homeDir() string {
	home := os.Getenv("HOME")
	if home == "" {
		return ""
	}
	// The relay must be compared against canonical workspace paths.
	if resolved, err := filepath.EvalSymlinks(home); err == nil {
		return resolved
	}
	return home
}

func main() {
	var cli CLI

	parser := kong.Must(&cli,
		kong.Name("dcx"),
		kong.Description(description),
		kong.UsageOnError(),
		kong.Configuration(kongyaml.Loader, "~/.config/dcx/config.yaml"),
		kong.Vars{"default_log_file": defaultLogFile},
	)
	kongcompletion.Register(parser,
		kongcompletion.WithPredictor("dir", complete.PredictDirs("*")),
		kongcompletion.WithPredictor("file", complete.PredictFiles("*.json")),
	)

	args := os.Args[1:]
	if len(args) > 0 && args[0] == "help" {
		args = append([]string{"--help"}, args[1:]...)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	flag := signals.New()
	flag.Install(ctx)

	cctx := &Context{
		ctx:         ctx,
		home:        homeDir(),
		run:         runner.NewDefaultRunner(),
		interrupted: flag.Received,
	}

	if forwarded(parser.Model, args) {
		cli.LogFile = kong.ExpandPath(defaultLogFile)
		cli.initSlog(uuid.NewString())
		mgr := dcx.NewManager(cctx.home, cctx.run, cctx.interrupted)
		code := exitStatus(mgr.Forward(ctx, args), os.Stderr)
		cancel()
		os.Exit(code)
	}

	kctx, err := parser.Parse(args)
	if err != nil {
		parser.Errorf("%s", err)
		var parseErr *kong.ParseError
		if errors.As(err, &parseErr) {
			_ = parseErr.Context.PrintUsage(false)
		}
		os.Exit(dcx.UsageError)
	}
	cli.initSlog(uuid.NewString())

	code := exitStatus(kctx.Run(cctx, &cli), os.Stderr)
	slog.InfoContext(ctx, "exit", "code", code)
	cancel()
	os.Exit(code)
}
