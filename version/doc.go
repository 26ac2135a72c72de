// Package version reports the build of the automl binaries.
//
// Version, git commit and build time are set at compile time via -ldflags:
//
//	go build -ldflags "-X github.com/kbukum/automl/version.Version=1.2.0" ./cmd/automl
//
// Snapshots record the version that wrote them so a resumed search can
// warn when the components changed between releases.
package version
