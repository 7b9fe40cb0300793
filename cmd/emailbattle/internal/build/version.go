// Package build holds build-time version information injected via ldflags.
//
// To inject values at build time:
//
//	go build -ldflags "-X github.com/haivivi/emailbattle/cmd/emailbattle/internal/build.Version=v1.0.0 \
//	  -X github.com/haivivi/emailbattle/cmd/emailbattle/internal/build.Commit=$(git rev-parse --short HEAD) \
//	  -X github.com/haivivi/emailbattle/cmd/emailbattle/internal/build.Date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
package build

import (
	"fmt"
	"runtime"
)

// These variables are set at build time via -ldflags.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// Info is the structured form of the build information.
type Info struct {
	Version string `json:"version" yaml:"version" msgpack:"version"`
	Commit  string `json:"commit" yaml:"commit" msgpack:"commit"`
	Date    string `json:"date" yaml:"date" msgpack:"date"`
	Go      string `json:"go" yaml:"go" msgpack:"go"`
	OS      string `json:"os" yaml:"os" msgpack:"os"`
	Arch    string `json:"arch" yaml:"arch" msgpack:"arch"`
}

// Get returns the build information.
func Get() Info {
	return Info{
		Version: Version,
		Commit:  Commit,
		Date:    Date,
		Go:      runtime.Version(),
		OS:      runtime.GOOS,
		Arch:    runtime.GOARCH,
	}
}

// String returns a formatted version string.
func String() string {
	return fmt.Sprintf("emailbattle %s (%s) built %s %s/%s",
		Version, Commit, Date, runtime.GOOS, runtime.GOARCH)
}
