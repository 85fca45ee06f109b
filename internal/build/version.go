// Package build houses build-time version metadata and logging
// infrastructure shared by the binaries.
package build

import "fmt"

// Commit and GoVersion are set via ldflags at build time.
var (
	Commit    string
	GoVersion string
)

// Semantic version components of the current release.
const (
	appMajor = 0
	appMinor = 1
	appPatch = 0
)

// Version returns the application version as a properly formed string.
func Version() string {
	return fmt.Sprintf("%d.%d.%d", appMajor, appMinor, appPatch)
}
