package main

import (
	"fmt"

	"github.com/banksean/dcx"
)

type DoctorCmd struct{}

func (c *DoctorCmd) Run(cctx *Context) error {
	if cctx.home == "" {
		return dcx.Exitf(dcx.RuntimeError, "HOME environment variable is not set")
	}
	p := newProber(cctx.run, cctx.home)
	checks := p.diagnosticChecks()
	results := verifyPrerequisites(cctx.ctx, checks)
	fmt.Println(doctorReport(checks, results))
	if !allPassed(results) {
		return &dcx.ExitError{Code: dcx.RuntimeError}
	}
	return nil
}
