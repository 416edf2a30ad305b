package config

import (
	"fmt"
)

// Name is the binary name printed by the version command.
const Name = "cortex-screenshots"

// Version information (set via -ldflags during build).
var (
	Version   = "dev"
	Build     = "unknown"
	GitCommit = "unknown"
)

// GetVersion returns the current version string.
func GetVersion() string {
	return Version
}

// GetBuild returns the build timestamp.
func GetBuild() string {
	return Build
}

// GetGitCommit returns the git commit hash.
func GetGitCommit() string {
	return GitCommit
}

// GetFullVersion returns the binary name and version with build info.
func GetFullVersion() string {
	return fmt.Sprintf("%s %s (build: %s, commit: %s)", Name, Version, Build, GitCommit)
}
