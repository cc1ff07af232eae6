package main

import "github.com/banksean/dcx"

type ExecCmd struct {
	WorkspaceFolder string   `placeholder:"<path>" predictor:"dir" help:"workspace folder path (default: current directory)"`
	Config          string   `placeholder:"<path>" env:"DCX_DEVCONTAINER_CONFIG_PATH" predictor:"file" help:"path to devcontainer.json config file (default: auto-detected)"`
	Command         []string `arg:"" optional:"" passthrough:"" placeholder:"CMD" help:"command and arguments to run inside the container"`
}

func (c *ExecCmd) Run(cctx *Context) error {
	mgr, err := cctx.manager()
	if err != nil {
		return err
	}
	return mgr.Exec(cctx.ctx, dcx.ExecOpts{
		WorkspaceFolder: c.WorkspaceFolder,
		Config:          c.Config,
		Command:         execCommand(c.Command),
	})
}

// execCommand drops the separator between dcx's flags and the command.
func execCommand(args []string) []string {
	if len(args) > 0 && args[0] == "--" {
		return args[1:]
	}
	return args
}
