// Package buildinfo holds build-time metadata injected via -ldflags.
package buildinfo

import "runtime/debug"

// Version is the semantic version or tag for this build.
// Inject via: -X github.com/garyellow/chatshhs-go/internal/buildinfo.Version=...
var Version = ""

// Commit is the git commit SHA for this build.
// Inject via: -X github.com/garyellow/chatshhs-go/internal/buildinfo.Commit=...
var Commit = ""

// Release returns the identifier reported to Sentry and /readyz: the
// injected version, else the VCS revision recorded by the Go toolchain,
// else "dev".
func Release() string {
	if Version != "" {
		return "chatshhs@" + Version
	}
	if Commit != "" {
		return "chatshhs@" + Commit
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" && s.Value != "" {
				return "chatshhs@" + s.Value
			}
		}
	}
	return "dev"
}
