package dcx

import (
	"fmt"

	"github.com/banksean/dcx/runner"
)

// Process exit codes.
const (
	Success        = 0
	RuntimeError   = 1
	UsageError     = 2
	UserAborted    = 4
	PrereqNotFound = 127
)

// ExitError carries a process exit code out of an engine. Msg, when set, is
// printed on stderr by main; an empty Msg means the details were already
// printed.
type ExitError struct {
	Code int
	Msg  string
}

func (e *ExitError) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Msg
}

// Exitf returns an *ExitError with a formatted message.
func Exitf(code int, format string, args ...any) *ExitError {
	return &ExitError{Code: code, Msg: fmt.Sprintf(format, args...)}
}

func usageError(msg string) *ExitError {
	return &ExitError{Code: UsageError, Msg: msg}
}

func runtimeError(msg string) *ExitError {
	return &ExitError{Code: RuntimeError, Msg: msg}
}

// spawnError maps a failure to start an external tool. Missing binaries
// exit 127.
func spawnError(err error) *ExitError {
	if runner.IsNotFound(err) {
		return &ExitError{Code: PrereqNotFound, Msg: err.Error()}
	}
	return runtimeError(err.Error())
}

const (
	engineUnavailableMsg = "Docker is not available. Is Colima running?"
	recursionMsg         = "Cannot use a dcx-managed mount point as a workspace. Use the original workspace path instead."
)
