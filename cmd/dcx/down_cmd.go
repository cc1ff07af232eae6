package main

import "github.com/banksean/dcx"

type DownCmd struct {
	WorkspaceFolder string `placeholder:"<path>" predictor:"dir" help:"workspace folder path (default: current directory)"`
}

func (c *DownCmd) Run(cctx *Context) error {
	mgr, err := cctx.manager()
	if err != nil {
		return err
	}
	return mgr.Down(cctx.ctx, dcx.DownOpts{WorkspaceFolder: c.WorkspaceFolder})
}
