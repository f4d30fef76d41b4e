// Package version holds build information, set via
// -ldflags "-X github.com/frzifus/ouilookup/pkg/version.version=v1.2.3".
package version

import (
	"fmt"
	"runtime"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Version returns the short version string.
func Version() string {
	return version
}

// Info returns version, commit, build date and toolchain in one line.
func Info() string {
	return fmt.Sprintf("%s (commit %s, built %s, %s %s/%s)",
		version, commit, date, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
