package app

import (
	"fmt"
	"runtime/debug"
)

// Set at release time:
//
//	go build -ldflags "-X github.com/flightmansam/feishin/internal/app.GitTag=v0.9.0 \
//	  -X github.com/flightmansam/feishin/internal/app.BuildTime=$(date -u +%FT%TZ)" ./cmd
//
// Plain `go build` leaves them unset; the commit and time then come from the
// VCS stamp the toolchain embeds.
var (
	Version   = "dev"
	GitCommit = "unknown"
	GitTag    = ""
	BuildTime = "unknown"
)

// VersionInfo identifies a feishin build.
type VersionInfo struct {
	Version   string
	GitCommit string
	GitTag    string
	BuildTime string
	Modified  bool // built from a dirty tree
}

// GetVersionInfo returns the linked-in version, filled from the embedded
// build info where ldflags left gaps.
func GetVersionInfo() VersionInfo {
	info := VersionInfo{
		Version:   Version,
		GitCommit: GitCommit,
		GitTag:    GitTag,
		BuildTime: BuildTime,
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		info = info.withBuildSettings(bi.Settings)
	}
	return info
}

func (v VersionInfo) withBuildSettings(settings []debug.BuildSetting) VersionInfo {
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			if v.GitCommit == "unknown" && s.Value != "" {
				v.GitCommit = s.Value[:min(len(s.Value), 12)]
			}
		case "vcs.time":
			if v.BuildTime == "unknown" && s.Value != "" {
				v.BuildTime = s.Value
			}
		case "vcs.modified":
			v.Modified = s.Value == "true"
		}
	}
	return v
}

// Short returns the tag when there is one, else the version.
func (v VersionInfo) Short() string {
	if v.GitTag != "" {
		return v.GitTag
	}
	return v.Version
}

// FullString is logged at startup and printed by --version.
func (v VersionInfo) FullString() string {
	commit := v.GitCommit
	if v.Modified {
		commit += "-dirty"
	}
	return fmt.Sprintf("feishin %s (commit: %s, built: %s)", v.Short(), commit, v.BuildTime)
}
