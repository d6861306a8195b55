// Package version holds the elfinsight build metadata printed by
// `elfinsight version`. Release builds set the variables with
//
//	go build -ldflags "-X github.com/coral-mesh/elfinsight/pkg/version.Version=v0.3.0 \
//	  -X github.com/coral-mesh/elfinsight/pkg/version.GitCommit=$(git rev-parse --short HEAD) \
//	  -X github.com/coral-mesh/elfinsight/pkg/version.BuildDate=$(date -u +%Y-%m-%dT%H:%M:%SZ)" \
//	  ./cmd/elfinsight
package version

import (
	"runtime"
)

var (
	// Version is the release tag, "dev" for local builds.
	Version = "dev"

	// GitCommit is the short commit hash of the build.
	GitCommit = "unknown"

	// BuildDate is the UTC build time in RFC 3339 form.
	BuildDate = "unknown"

	// GoVersion is the toolchain that compiled the binary.
	GoVersion = runtime.Version()
)
