// Package misc keeps build information.
package misc

import (
	"runtime/debug"
)

// Set by linker: -ldflags "-X pcc/misc.version=... -X pcc/misc.gitHash=..."
var (
	appName = "pcc"
	version = "dev"
	gitHash = ""
)

func GetAppName() string {
	return appName
}

func GetVersion() string {
	return version
}

// GetGitHash returns commit hash, falling back to VCS information recorded by
// go toolchain.
func GetGitHash() string {
	if len(gitHash) > 0 {
		return gitHash
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" {
				return s.Value
			}
		}
	}
	return "unknown"
}
