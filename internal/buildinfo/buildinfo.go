// Package buildinfo carries build metadata injected via ldflags.
package buildinfo

import "fmt"

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

func String() string {
	return fmt.Sprintf("legatester %s (commit=%s, date=%s)", Version, Commit, Date)
}
