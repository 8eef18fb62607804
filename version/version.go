// Package version exposes the build identity of the analysis runtime.
// Release builds stamp it with ldflags:
//
//	go build -ldflags "-X github.com/SonixLabs/SilenceKit/version.version=1.0.0"
package version

import (
	"context"
	"log/slog"
	"os"
	"runtime/debug"
	"strings"
)

const shortCommitLen = 7

// Overridable at build time; development builds fall back to the VCS
// details the Go toolchain records.
var (
	version   = "dev"
	gitCommit = ""
	buildDate = ""
)

// GetVersion returns the release version, or the module version stamped
// by the toolchain when no ldflags were set.
func GetVersion() string {
	if version != "dev" {
		return version
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		if v := info.Main.Version; v != "" && v != "(devel)" {
			return v
		}
	}
	return version
}

// vcsInfo reads the commit hash and dirty flag from the embedded build
// info in a single pass.
func vcsInfo() (commit string, dirty bool) {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "", false
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			commit = s.Value
			if len(commit) > shortCommitLen {
				commit = commit[:shortCommitLen]
			}
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	return commit, dirty
}

// GetBuildInfo returns the build identity as slog attributes, so startup
// log lines carry the exact binary that produced them.
func GetBuildInfo() []any {
	attrs := []any{"version", GetVersion()}

	commit, dirty := vcsInfo()
	if gitCommit != "" {
		commit, dirty = gitCommit, false
	}
	if commit != "" {
		attrs = append(attrs, "commit", commit)
	}
	if dirty {
		attrs = append(attrs, "dirty", true)
	}
	if buildDate != "" {
		attrs = append(attrs, "built", buildDate)
	}
	return attrs
}

// LogStartup emits the build identity once, called from the logger package
// after handler setup. It stays silent unless LOG_LEVEL asks for debug
// output, so production startup is not noisy.
func LogStartup() {
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug", "trace":
	default:
		return
	}
	slog.Log(context.Background(), slog.LevelDebug, "SilenceKit runtime starting", GetBuildInfo()...)
}
