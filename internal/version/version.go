// Package version holds the build-time version information.
package version

import (
	"fmt"
	"strings"

	"golang.org/x/mod/semver"
)

// Version is the current released version.
// This value can be overridden at build time using ldflags:
//
//	go build -ldflags "-X github.com/jonesycrew/ashbot/internal/version.Version=v1.4.0"
var Version = "0.0.0-dev"

// GitCommit is the git commit hash at build time.
// Set via ldflags: -X github.com/jonesycrew/ashbot/internal/version.GitCommit=$(git rev-parse HEAD)
var GitCommit = "unknown"

// BuildTime is the build timestamp in RFC3339 format.
var BuildTime = "unknown"

// GetCurrentVersion returns the version string reported by the running
// instance, suffixed in dev mode so operators can tell test builds apart.
func GetCurrentVersion(mode string) string {
	if mode == "dev" || mode == "demo" {
		return fmt.Sprintf("%s-%s", Version, mode)
	}
	return Version
}

// GetMinorVersion extracts the minor version (e.g., "1.4") from a full
// version string (e.g., "1.4.2").
func GetMinorVersion(version string) string {
	v := version
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	mm := semver.MajorMinor(v)
	if mm == "" {
		return version
	}
	return strings.TrimPrefix(mm, "v")
}
