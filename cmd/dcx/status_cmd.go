package main

type StatusCmd struct{}

func (c *StatusCmd) Run(cctx *Context) error {
	mgr, err := cctx.manager()
	if err != nil {
		return err
	}
	return mgr.Status(cctx.ctx)
}
