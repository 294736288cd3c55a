// Package version holds build metadata injected via ldflags, e.g.
// -X github.com/kailas-cloud/ragchat/internal/version.Version=v1.2.0
package version

import "fmt"

//nolint:revive // Set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// String is the --version output of the ragchat binaries.
func String() string {
	return fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, Date)
}

// UserAgent identifies ragchat clients to the server.
func UserAgent() string {
	return "ragchat/" + Version
}
