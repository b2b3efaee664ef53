// Package buildinfo identifies the running minos build.
package buildinfo

import "runtime/debug"

// Version and Commit are set at build time via -ldflags; Commit falls back
// to the VCS revision the toolchain stamped into the binary.
var (
	Version = "dev"
	Commit  = ""
)

// Short returns the version, or a short commit hash for development builds.
func Short() string {
	if Version != "" && Version != "dev" {
		return Version
	}
	if c := commit(); c != "" {
		return "dev-" + c
	}
	return "dev"
}

func commit() string {
	c := Commit
	if c == "" {
		info, ok := debug.ReadBuildInfo()
		if !ok {
			return ""
		}
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" {
				c = s.Value
			}
		}
	}
	if len(c) > 7 {
		c = c[:7]
	}
	return c
}
