package main

import "github.com/banksean/dcx"

type UpCmd struct {
	WorkspaceFolder string `placeholder:"<path>" predictor:"dir" help:"workspace folder path (default: current directory)"`
	Config          string `placeholder:"<path>" env:"DCX_DEVCONTAINER_CONFIG_PATH" predictor:"file" help:"path to devcontainer.json config file (default: auto-detected)"`
	DryRun          bool   `help:"print what would happen without doing it"`
	Yes             bool   `help:"skip confirmation prompts (e.g. for non-owned directories)"`
	Prebuild        bool   `help:"build the configured Dockerfile as a dcx-base image before starting"`
	Network         string `default:"minimal" placeholder:"<restricted|minimal|host|open>" help:"container network mode, exported to the container as DCX_NETWORK_MODE"`
}

func (c *UpCmd) Run(cctx *Context) error {
	mgr, err := cctx.manager()
	if err != nil {
		return err
	}
	return mgr.Up(cctx.ctx, dcx.UpOpts{
		WorkspaceFolder: c.WorkspaceFolder,
		Config:          c.Config,
		DryRun:          c.DryRun,
		Yes:             c.Yes,
		Prebuild:        c.Prebuild,
		Network:         c.Network,
	})
}
