// Package version provides build version information for knowledgebot.
// These variables are set at build time via ldflags.
package version

import "fmt"

// Example: go build -ldflags "-X knowledgebot/pkg/version.Version=v1.2.3".
//
//nolint:gochecknoglobals // These must be package-level vars for ldflags injection.
var (
	// Version is the semantic version ("dev" for development builds).
	Version = "dev"

	// Commit is the git commit SHA of the build.
	Commit = "none"

	// Date is the build date in ISO format.
	Date = "unknown"
)

// String formats the build information for -version output.
func String() string {
	return fmt.Sprintf("knowledgebot %s\n  commit: %s\n  built:  %s", Version, Commit, Date)
}
