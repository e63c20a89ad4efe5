// Package version holds build metadata stamped at link time.
package version

import "runtime"

// Populated via -ldflags at release build time; the defaults cover
// plain go build and go install.
var (
	GitRelease    = "dev"
	GitCommit     = "unknown"
	GitCommitDate = "unknown"
)

// GoInfo is the toolchain the binary was built with.
var GoInfo = runtime.Version() + " " + runtime.GOOS + "/" + runtime.GOARCH
