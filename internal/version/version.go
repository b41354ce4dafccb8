// Package version reports the build identity of the bulkcase binary.
package version

import (
	"fmt"
	"runtime/debug"
)

// Set at build time via -ldflags "-X".
var (
	Version   = "dev"
	Commit    = ""
	BuildTime = "unknown"
)

// String returns e.g. "bulkcase dev (commit: 1a2b3c4, built: unknown)".
func String() string {
	return fmt.Sprintf("bulkcase %s (commit: %s, built: %s)", Version, commit(), BuildTime)
}

// commit prefers the ldflags value and falls back to the VCS stamp the Go
// toolchain embeds in module builds.
func commit() string {
	c := Commit
	if c == "" {
		if info, ok := debug.ReadBuildInfo(); ok {
			for _, s := range info.Settings {
				if s.Key == "vcs.revision" {
					c = s.Value
				}
			}
		}
	}
	if c == "" {
		return "unknown"
	}
	if len(c) > 7 {
		return c[:7]
	}
	return c
}
