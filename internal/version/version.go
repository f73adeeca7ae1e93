// Package version holds the build version, overridable at link time with
// -ldflags "-X github.com/nexus-agents/nexus/internal/version.Version=...".
package version

var Version = "dev"
