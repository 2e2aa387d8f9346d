// Package version carries build information stamped at link time.
package version

import "fmt"

// Set via -ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Info returns a single-line version string.
func Info() string {
	return fmt.Sprintf("aareguru-mcp %s (commit %s, built %s)", Version, Commit, Date)
}
