// Package version reports how the running regctl binary was built.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Set via -ldflags "-X github.com/regdesk/regctl/internal/version.Version=...".
var (
	Version   = "dev"
	Commit    = ""
	BuildTime = ""
)

// SetCommit overrides the build commit.
func SetCommit(c string) {
	Commit = c
}

// ShortCommit returns the first 12 characters of a commit hash.
func ShortCommit(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}

// resolveCommitHash prefers the linked-in commit and falls back to the VCS
// stamp Go embeds in module builds.
func resolveCommitHash() string {
	if Commit != "" {
		return Commit
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" {
			return s.Value
		}
	}
	return ""
}

// String describes the build in one line.
func String() string {
	s := "regctl " + Version
	if c := ShortCommit(resolveCommitHash()); c != "" {
		s += " (" + c + ")"
	}
	if BuildTime != "" {
		s += " built " + BuildTime
	}
	return fmt.Sprintf("%s %s/%s", s, runtime.GOOS, runtime.GOARCH)
}
