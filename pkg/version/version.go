// Package version holds the build version string used in outbound request headers.
package version

// Version is overridden at build time via -ldflags.
var Version = "v0.0.0-dev"
