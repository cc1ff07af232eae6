package main

import "github.com/banksean/dcx"

type CleanCmd struct {
	WorkspaceFolder string `placeholder:"<path>" predictor:"dir" help:"workspace folder path (default: current directory)"`
	All             bool   `help:"clean all dcx-managed workspaces (default: current workspace only)"`
	Yes             bool   `help:"skip confirmation prompts"`
	Purge           bool   `help:"leave nothing behind: also remove the base image tag and Docker volumes"`
	DryRun          bool   `help:"show what would be cleaned without doing it"`
}

func (c *CleanCmd) Run(cctx *Context) error {
	mgr, err := cctx.manager()
	if err != nil {
		return err
	}
	return mgr.Clean(cctx.ctx, dcx.CleanOpts{
		WorkspaceFolder: c.WorkspaceFolder,
		All:             c.All,
		Yes:             c.Yes,
		Purge:           c.Purge,
		DryRun:          c.DryRun,
	})
}
