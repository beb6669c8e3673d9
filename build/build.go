package build

import (
	"strconv"
	"time"
)

// set via ldflags at build time
var (
	version   = "?"
	commit    = "?"
	buildTime = "0"
)

// Version returns the version of the binary.
func Version() string {
	return version
}

// Commit returns the commit hash of the binary.
func Commit() string {
	return commit
}

// Time returns the time the binary was built.
func Time() time.Time {
	n, err := strconv.ParseInt(buildTime, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(n, 0)
}
