package version

import (
	"fmt"
	"runtime/debug"
	"strings"
)

var (
	// These will be set via -ldflags during build
	Version   string
	GitCommit string
	BuildTime string
)

// Info describes the running dcx binary.
type Info struct {
	Version   string `json:"version,omitempty"`
	GitCommit string `json:"gitCommit,omitempty"`
	BuildTime string `json:"buildTime,omitempty"`
	Modified  bool   `json:"modified,omitempty"`
	GoVersion string `json:"goVersion,omitempty"`
}

// Get returns the version information, filling gaps from the embedded
// build info when the ldflags were not set.
func Get() Info {
	ret := Info{
		Version:   Version,
		GitCommit: GitCommit,
		BuildTime: BuildTime,
	}
	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return ret
	}
	return fill(ret, buildInfo)
}

func fill(ret Info, buildInfo *debug.BuildInfo) Info {
	ret.GoVersion = buildInfo.GoVersion
	if ret.Version == "" && buildInfo.Main.Version != "" && buildInfo.Main.Version != "(devel)" {
		ret.Version = buildInfo.Main.Version
	}
	for _, setting := range buildInfo.Settings {
		switch setting.Key {
		case "vcs.revision":
			if ret.GitCommit == "" {
				ret.GitCommit = setting.Value
			}
		case "vcs.time":
			if ret.BuildTime == "" {
				ret.BuildTime = setting.Value
			}
		case "vcs.modified":
			ret.Modified = setting.Value == "true"
		}
	}
	return ret
}

// String renders a one-line summary such as "dcx v0.3.1 (abc1234, 2026-01-02)".
func (v Info) String() string {
	ver := v.Version
	if ver == "" {
		ver = "dev"
	}
	var extra []string
	if v.GitCommit != "" {
		commit := v.GitCommit
		if len(commit) > 7 {
			commit = commit[:7]
		}
		if v.Modified {
			commit += "-dirty"
		}
		extra = append(extra, commit)
	}
	if v.BuildTime != "" {
		extra = append(extra, v.BuildTime)
	}
	if len(extra) == 0 {
		return "dcx " + ver
	}
	return fmt.Sprintf("dcx %s (%s)", ver, strings.Join(extra, ", "))
}
