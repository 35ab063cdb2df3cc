// Package config defines release settings and provides helpers to load,
// validate and save them in YAML format.
//
// Static settings (package name, download base, target lists, publishing
// commands) live in the YAML file. Per-run overrides (source directory,
// version overrides, release time, staging flag) come from the environment
// and are resolved exactly once at startup via FromEnvironment; nothing
// reads the environment after that.
package config
