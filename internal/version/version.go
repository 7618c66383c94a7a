// Package version holds build information stamped in with -ldflags, e.g.
//
//	-X panelviz/internal/version.Version=1.2.0 -X panelviz/internal/version.GitCommit=$(git rev-parse --short HEAD)
package version

import "fmt"

var (
	Version   = "0.1.0"
	BuildTime = "unknown" // UTC, RFC 3339
	GitCommit = "unknown"
)

// String formats the build information on one line.
func String() string {
	return fmt.Sprintf("panelviz %s (commit %s, built %s)", Version, GitCommit, BuildTime)
}
