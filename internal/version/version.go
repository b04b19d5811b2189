package version

import (
	"fmt"
	"runtime"
	"strings"
)

var (
	// Version is the current version of jarvisui
	// This will be set at build time using -ldflags
	Version = "dev"

	// CommitHash is the git commit hash
	CommitHash = "unknown"

	// BuildDate is the build date
	BuildDate = "unknown"
)

// ProtocolVersion is the bridge handshake version this build speaks.
const ProtocolVersion = 1

// GetVersionString returns the full version string
func GetVersionString() string {
	v := Version
	if v == "" {
		v = "dev"
	}
	return fmt.Sprintf("jarvisui version: %s (commit: %s, built: %s)", v, CommitHash, BuildDate)
}

// GetShortVersion returns just the version number
func GetShortVersion() string {
	return Version
}

// GetDetails returns the lines printed by the version command.
func GetDetails() []string {
	return []string{
		GetVersionString(),
		fmt.Sprintf("bridge protocol: %d", ProtocolVersion),
		fmt.Sprintf("go: %s %s/%s", runtime.Version(), runtime.GOOS, runtime.GOARCH),
	}
}

// IsRelease reports whether this is a tagged, clean build.
func IsRelease() bool {
	return Version != "" && Version != "dev" && !strings.Contains(Version, "dirty")
}

// compareVersions compares two semantic versions
// Returns: 1 if v1 > v2, -1 if v1 < v2, 0 if equal
func compareVersions(v1, v2 string) int {
	v1 = strings.TrimPrefix(v1, "v")
	v2 = strings.TrimPrefix(v2, "v")

	parts1 := strings.Split(v1, ".")
	parts2 := strings.Split(v2, ".")

	for len(parts1) < 3 {
		parts1 = append(parts1, "0")
	}
	for len(parts2) < 3 {
		parts2 = append(parts2, "0")
	}

	for i := 0; i < 3; i++ {
		var n1, n2 int
		// A part that does not parse compares as 0
		fmt.Sscanf(parts1[i], "%d", &n1)
		fmt.Sscanf(parts2[i], "%d", &n2)

		if n1 > n2 {
			return 1
		}
		if n1 < n2 {
			return -1
		}
	}

	return 0
}

// AtLeast reports whether the running version is min or newer. Dev builds
// always satisfy it.
func AtLeast(min string) bool {
	if !IsRelease() {
		return true
	}
	return compareVersions(Version, min) >= 0
}
