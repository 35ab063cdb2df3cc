// Package version exposes build metadata for the release-packager binary.
//
// Version, Commit, and BuildTime are injected via Go ldflags and default to
// placeholder values in local builds. Short and Full render the version
// string for CLI output; note this is the tool's own version, distinct from
// the product version resolved by internal/release.
package version
