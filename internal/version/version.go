// Package version provides build-time version information.
//
// Variables are set at build time via ldflags:
//
//	go build -ldflags "-X github.com/rickgao/artblocks-activity/internal/version.Version=1.0.0 \
//	                   -X github.com/rickgao/artblocks-activity/internal/version.Commit=$(git rev-parse --short HEAD)" \
//	                   ./cmd/activitybot
package version

import "runtime/debug"

// Build-time variables (set via ldflags)
var (
	// Version is the semantic version (e.g., "1.0.0")
	Version = "dev"

	// Commit is the git commit hash (short form)
	Commit = "unknown"

	// BuildTime is the UTC build timestamp (ISO 8601)
	BuildTime = "unknown"
)

// String returns a formatted version string.
func String() string {
	return Version + " (" + Commit + ") built " + BuildTime
}

// UserAgent returns the User-Agent sent on outbound HTTP requests.
func UserAgent() string {
	return "activitybot/" + Version + " (+" + modulePath() + ")"
}

func modulePath() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Path != "" {
		return info.Main.Path
	}
	return "github.com/rickgao/artblocks-activity"
}
