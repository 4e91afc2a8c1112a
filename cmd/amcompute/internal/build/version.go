// Package build holds build-time version information injected via ldflags.
//
// To inject values at build time:
//
//	go build -ldflags "-X github.com/haivivi/amcompute/cmd/amcompute/internal/build.Version=v1.0.0 \
//	  -X github.com/haivivi/amcompute/cmd/amcompute/internal/build.Commit=$(git rev-parse --short HEAD) \
//	  -X github.com/haivivi/amcompute/cmd/amcompute/internal/build.Date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
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

// Info is the version information as structured output.
type Info struct {
	Version string `json:"version" yaml:"version"`
	Commit  string `json:"commit" yaml:"commit"`
	Date    string `json:"date" yaml:"date"`
	Go      string `json:"go" yaml:"go"`
	ONNX    bool   `json:"onnx" yaml:"onnx"`
}

// Get returns the build information. onnx reports whether the binary was
// built with ONNX Runtime support.
func Get(onnx bool) Info {
	return Info{Version: Version, Commit: Commit, Date: Date, Go: runtime.Version(), ONNX: onnx}
}

// String returns a formatted version string.
func String() string {
	return fmt.Sprintf("amcompute %s (%s) built %s %s/%s",
		Version, Commit, Date, runtime.GOOS, runtime.GOARCH)
}
