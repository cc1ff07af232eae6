package main

import (
	"fmt"

	"github.com/banksean/dcx/version"
)

type VersionCmd struct {
	Verbose bool `short:"v" help:"print every build detail on its own line"`
}

func (c *VersionCmd) Run(cctx *Context) error {
	versionInfo := version.Get()
	if !c.Verbose {
		fmt.Println(versionInfo.String())
		return nil
	}
	fmt.Printf("Version: %s\n", versionInfo.Version)
	fmt.Printf("Git Commit: %s\n", versionInfo.GitCommit)
	fmt.Printf("Build Time: %s\n", versionInfo.BuildTime)
	fmt.Printf("Modified: %t\n", versionInfo.Modified)
	fmt.Printf("Go Version: %s\n", versionInfo.GoVersion)
	return nil
}
