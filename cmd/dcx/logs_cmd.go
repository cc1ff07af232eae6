package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/nxadm/tail"
	"golang.org/x/term"
)

type LogsCmd struct {
	Follow bool   `short:"f" help:"keep printing new lines as they are written"`
	RunID  string `name:"run" placeholder:"<run-id>" help:"only show lines from one dcx invocation"`
}

func (c *LogsCmd) Run(cctx *Context, cli *CLI) error {
	t, err := tail.TailFile(cli.LogFile, tail.Config{
		ReOpen:        c.Follow,
		Follow:        c.Follow,
		MustExist:     true,
		CompleteLines: true,
		Logger:        tail.DiscardingLogger,
	})
	if err != nil {
		return fmt.Errorf("cannot open log file: %w", err)
	}
	go stopOnInterrupt(cctx.ctx, cctx.interrupted, func() { t.Stop() }, 100*time.Millisecond)

	p := newLogPrinter(os.Stdout, c.RunID)
	for line := range t.Lines {
		if line.Err != nil {
			return line.Err
		}
		if err := p.Print(line.Text); err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
		}
		if cctx.interrupted() {
			break
		}
	}
	return nil
}

// stopOnInterrupt calls stop once ctx is done or interrupted reports true,
// checking the flag every interval.
func stopOnInterrupt(ctx context.Context, interrupted func() bool, stop func(), every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			stop()
			return
		case <-ticker.C:
			if interrupted != nil && interrupted() {
				stop()
				return
			}
		}
	}
}

const (
	reset        = "\033[0m"
	cyan         = 36
	lightGray    = 37
	darkGray     = 90
	lightRed     = 91
	lightYellow  = 93
	lightMagenta = 95
)

func colorizer(colorCode int, v string) string {
	return "\033[" + strconv.Itoa(colorCode) + "m" + v + reset
}

// logPrinter renders JSON slog records as one readable line each.
type logPrinter struct {
	writer   io.Writer
	colorize bool
	run      string
}

func newLogPrinter(w io.Writer, run string) *logPrinter {
	p := &logPrinter{writer: w, run: run}
	if f, ok := w.(*os.File); ok {
		p.colorize = term.IsTerminal(int(f.Fd()))
	}
	return p
}

func (p *logPrinter) color(code int, v string) string {
	if !p.colorize {
		return v
	}
	return colorizer(code, v)
}

// Print writes one record. Blank lines and records from other runs are
// skipped.
func (p *logPrinter) Print(line string) error {
	if strings.TrimSpace(line) == "" {
		return nil
	}
	var r map[string]any
	if err := json.Unmarshal([]byte(line), &r); err != nil {
		return fmt.Errorf("not a log record: %w", err)
	}
	if p.run != "" && r["run"] != p.run {
		return nil
	}

	levelName, _ := r[slog.LevelKey].(string)
	var level slog.Level
	if err := level.UnmarshalText([]byte(levelName)); err != nil {
		return fmt.Errorf("unknown level name %q", levelName)
	}
	switch {
	case level <= slog.LevelDebug:
		levelName = p.color(lightGray, levelName+":")
	case level <= slog.LevelInfo:
		levelName = p.color(cyan, levelName+":")
	case level < slog.LevelError:
		levelName = p.color(lightYellow, levelName+":")
	case level == slog.LevelError:
		levelName = p.color(lightRed, levelName+":")
	default:
		levelName = p.color(lightMagenta, levelName+":")
	}

	timestamp, _ := r[slog.TimeKey].(string)
	if ts, err := time.Parse(time.RFC3339Nano, timestamp); err == nil {
		timestamp = ts.Local().Format(time.DateTime)
	}
	msg, _ := r[slog.MessageKey].(string)

	delete(r, slog.LevelKey)
	delete(r, slog.TimeKey)
	delete(r, slog.MessageKey)
	if p.run != "" {
		delete(r, "run")
	}

	parts := []string{}
	for _, s := range []string{timestamp, levelName, msg} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	if len(r) > 0 {
		attrs, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("error when marshaling attrs: %w", err)
		}
		parts = append(parts, p.color(darkGray, string(attrs)))
	}
	_, err := io.WriteString(p.writer, strings.Join(parts, " ")+"\n")
	return err
}
