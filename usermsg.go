package dcx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"
)

// UserMessenger prints progress lines for the user.
type UserMessenger interface {
	Message(ctx context.Context, msg string)
}

type terminalMessenger struct {
	writer io.Writer
	dim    bool
}

// NewTerminalMessenger writes "→ msg" lines to writer, dimmed when writer
// is a terminal.
func NewTerminalMessenger(writer io.Writer) UserMessenger {
	tm := &terminalMessenger{writer: writer}
	if f, ok := writer.(*os.File); ok {
		tm.dim = term.IsTerminal(int(f.Fd()))
	}
	return tm
}

func (tm *terminalMessenger) Message(ctx context.Context, msg string) {
	slog.DebugContext(ctx, "userMsg", "msg", msg)
	if tm.writer == nil {
		return
	}
	if tm.dim {
		fmt.Fprintln(tm.writer, "\033[90m→ "+msg+"\033[0m")
		return
	}
	fmt.Fprintln(tm.writer, "→ "+msg)
}

type nullMessenger struct{}

// NewNullMessenger discards progress, logging it at debug level.
func NewNullMessenger() UserMessenger {
	return &nullMessenger{}
}

func (nm *nullMessenger) Message(ctx context.Context, msg string) {
	slog.DebugContext(ctx, "userMsg (null messenger)", "msg", msg)
}
