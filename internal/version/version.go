// Package version defines the control plane version reported by /v1/health.
//
// CommitHash should be set using -ldflags during compilation.
package version

import (
	"fmt"
	"strings"
)

// CommitHash stores the current git commit hash of this build.
var CommitHash string

// These constants follow semantic versioning 2.0.0 (https://semver.org/).
const (
	appMajor uint = 0
	appMinor uint = 4
	appPatch uint = 0
)

// Version returns the semantic version string.
func Version() string {
	return fmt.Sprintf("%d.%d.%d", appMajor, appMinor, appPatch)
}

// RichVersion returns the semantic version along with the commit hash when
// one was stamped into the binary.
func RichVersion() string {
	hash := strings.TrimSpace(CommitHash)
	if hash == "" {
		return Version()
	}
	return fmt.Sprintf("%s commit_hash=%s", Version(), hash)
}
