// Package version provides version information for the client.
// Version variables can be overridden at build time using ldflags:
//
//	go build -ldflags "-X github.com/AlbertGeraldd/Face-Analysis-System/version.version=1.0.0"
package version

import (
	"fmt"
	"runtime/debug"
)

const (
	// devVersion is the default version when not set via ldflags
	devVersion = "dev"
	// shortCommitLen is the length of the short commit hash
	shortCommitLen = 7
	// vcsRevisionKey is the build info key for git commit
	vcsRevisionKey = "vcs.revision"
	// vcsModifiedKey is the build info key for dirty state
	vcsModifiedKey = "vcs.modified"
)

// Build-time variables - can be overridden with -ldflags
var (
	version   = devVersion
	gitCommit = ""
	buildDate = ""
)

// GetVersion returns the current version string.
// Falls back to build info from go modules if version is "dev".
func GetVersion() string {
	if version != devVersion {
		return version
	}

	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "" && info.Main.Version != "(devel)" {
			return info.Main.Version
		}
	}

	return devVersion
}

// GetCommit returns the git commit hash, preferring the ldflags value and
// falling back to the VCS build info.
func GetCommit() string {
	if gitCommit != "" {
		return gitCommit
	}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}

	var revision string
	var modified bool
	for _, setting := range info.Settings {
		switch setting.Key {
		case vcsRevisionKey:
			revision = setting.Value
		case vcsModifiedKey:
			modified = setting.Value == "true"
		}
	}

	if len(revision) > shortCommitLen {
		revision = revision[:shortCommitLen]
	}
	if modified && revision != "" {
		revision += "-dirty"
	}
	return revision
}

// String returns the full human-readable version line.
func String() string {
	s := GetVersion()
	if commit := GetCommit(); commit != "" {
		s += fmt.Sprintf(" (%s)", commit)
	}
	if buildDate != "" {
		s += fmt.Sprintf(" built %s", buildDate)
	}
	return s
}
