package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/release-packager/internal/target"
)

// Config holds packaging settings shared by all subcommands.
type Config struct {
	// PackageName is the product name used for archives and download directories.
	PackageName string `yaml:"package_name"`
	// PackageRevision is the distro package revision passed to publishing commands.
	PackageRevision string `yaml:"package_revision"`
	// DownloadBase is the github-style base URL hosting built package bundles.
	DownloadBase string `yaml:"download_base"`
	// UploadCommand is the external command publishing release candidates.
	UploadCommand string `yaml:"upload_command"`
	// ReleaseCommand is the external command promoting candidates to a release.
	ReleaseCommand string `yaml:"release_command"`
	// AptTargets are the deb targets in processing order.
	AptTargets []target.Target `yaml:"apt_targets"`
	// YumTargets are the rpm targets in processing order.
	YumTargets []target.Target `yaml:"yum_targets"`

	// The fields below are resolved from the environment at startup by
	// FromEnvironment. They are not persisted to YAML.

	// SourceDir is the checkout of the product source tree.
	SourceDir string `yaml:"-"`
	// VersionOverride, when set, is used verbatim as the product version.
	VersionOverride string `yaml:"-"`
	// NativeVersionOverride, when set, is used verbatim as the native version.
	NativeVersionOverride string `yaml:"-"`
	// ReleaseTime stamps development snapshot versions.
	ReleaseTime time.Time `yaml:"-"`
	// Staging toggles publishing to the staging repository.
	Staging bool `yaml:"-"`
	// TargetRepository selects the repository the publishing commands push to.
	TargetRepository string `yaml:"-"`
	// GoVersionFile points at the toolchain version file handed to package builds.
	GoVersionFile string `yaml:"-"`
}

const (
	// DefaultConfigFilename is the default filename for packaging settings.
	DefaultConfigFilename = "release-packager-settings.yaml"

	// DefaultPackageRevision is used when the settings file omits a revision.
	DefaultPackageRevision = "1"

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600

	// releaseTimeLayout is the accepted format of the RELEASE_TIME override.
	releaseTimeLayout = "20060102"
)

// Environment variable names consumed by FromEnvironment.
const (
	EnvSourceDir     = "SOURCE_DIR"
	EnvVersion       = "PACKAGE_VERSION"
	EnvNativeVersion = "NATIVE_VERSION"
	EnvReleaseTime   = "RELEASE_TIME"
	EnvStaging       = "STAGING"
	EnvRepository    = "REPOSITORY"
	EnvGoVersionFile = "GO_VERSION_FILE"
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errPackageNameRequired is returned when the package name is missing.
	errPackageNameRequired = errors.New("package name must be provided")
)

// Load reads configuration from the provided path, validates essential fields
// and resolves environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	if err := FromEnvironment(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes settings to the provided path.
// Only the static YAML fields are persisted; environment overrides are not.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings for required fields and formatting,
// filling defaults for omitted ones.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.PackageName == "" {
		return errPackageNameRequired
	}

	if cfg.PackageRevision == "" {
		cfg.PackageRevision = DefaultPackageRevision
	}

	if len(cfg.AptTargets) == 0 {
		cfg.AptTargets = append([]target.Target(nil), target.DefaultAptTargets...)
	}

	if len(cfg.YumTargets) == 0 {
		cfg.YumTargets = append([]target.Target(nil), target.DefaultYumTargets...)
	}

	if cfg.DownloadBase == "" {
		return nil
	}

	if _, err := url.ParseRequestURI(cfg.DownloadBase); err != nil {
		return fmt.Errorf("invalid download base URI: %w", err)
	}

	return nil
}

// FromEnvironment resolves per-run overrides into the configuration.
// It is called once at startup; execution code never touches the environment.
func FromEnvironment(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	cfg.SourceDir = os.Getenv(EnvSourceDir)
	cfg.VersionOverride = os.Getenv(EnvVersion)
	cfg.NativeVersionOverride = os.Getenv(EnvNativeVersion)
	cfg.TargetRepository = os.Getenv(EnvRepository)
	cfg.GoVersionFile = os.Getenv(EnvGoVersionFile)

	cfg.ReleaseTime = time.Now().UTC()

	if raw := os.Getenv(EnvReleaseTime); raw != "" {
		parsed, err := time.ParseInLocation(releaseTimeLayout, raw, time.UTC)
		if err != nil {
			return fmt.Errorf("parse %s: %w", EnvReleaseTime, err)
		}

		cfg.ReleaseTime = parsed
	}

	if raw := os.Getenv(EnvStaging); raw != "" {
		staging, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("parse %s: %w", EnvStaging, err)
		}

		cfg.Staging = staging
	}

	return nil
}

// Targets returns the configured target list for the namespace.
func (c *Config) Targets(ns target.Namespace) []target.Target {
	if ns == target.NamespaceYum {
		return c.YumTargets
	}

	return c.AptTargets
}
