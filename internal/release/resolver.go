package release

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/oshokin/release-packager/internal/config"
)

// Version is the resolved version pair for one release run.
type Version struct {
	// Product is the package version used for archive names,
	// download URLs and publishing arguments.
	Product string
	// Native is the embedded runtime's version. It only decides whether
	// Product carries a development snapshot suffix.
	Native string
}

const (
	// ProductVersionFilename holds the product release version inside the source tree.
	ProductVersionFilename = "package-version.env"

	// NativeVersionFilename holds the native runtime version inside the source tree.
	NativeVersionFilename = "core/native-version.env"

	// snapshotMarker on the native version marks a pre-release state.
	snapshotMarker = "dev"

	// devSuffixLayout formats the release time appended to snapshot versions.
	devSuffixLayout = "20060102"

	// goVersionKey is the toolchain key looked up in the Go version file.
	goVersionKey = "GOLANG_VERSION"
)

var (
	// ErrSourceDirNotSet is returned when no source tree location is configured.
	ErrSourceDirNotSet = errors.New("source directory is not set")

	// ErrMetadataNotFound is returned when a version metadata file is missing
	// or its expected key pattern does not match.
	ErrMetadataNotFound = errors.New("version metadata not found")

	// productVersionPattern matches the quoted product version line.
	productVersionPattern = regexp.MustCompile(`^PACKAGE_VERSION="([^"]*)"`)

	// nativeVersionPattern matches the quoted native version line.
	nativeVersionPattern = regexp.MustCompile(`^NATIVE_VERSION="([^"]*)"`)
)

// Resolver computes the release version pair from configured overrides or
// metadata files. Construct it with NewResolver and call Resolve once;
// the result is cached for the process lifetime.
type Resolver struct {
	cfg *config.Config
	// resolved caches the first successful resolution.
	resolved *Version
}

// NewResolver returns a resolver bound to the given configuration.
func NewResolver(cfg *config.Config) *Resolver {
	return &Resolver{cfg: cfg}
}

// Resolve returns the version pair for the release.
//
// Explicit overrides win verbatim, each independently. Otherwise the product
// version comes from ProductVersionFilename and the native version from
// NativeVersionFilename under the configured source tree. When the product
// version is file-derived and the native version carries the snapshot
// marker, "-dev<YYYYMMDD>" (UTC) is appended to the product version; an
// overridden product version is never suffixed.
func (r *Resolver) Resolve(releaseTime time.Time) (*Version, error) {
	if r.resolved != nil {
		return r.resolved, nil
	}

	product := r.cfg.VersionOverride
	productOverridden := product != ""

	if !productOverridden {
		value, err := r.readMetadata(ProductVersionFilename, productVersionPattern)
		if err != nil {
			return nil, err
		}

		// Overrides are trusted verbatim; file-derived versions must parse.
		if _, err = semver.NewVersion(value); err != nil {
			return nil, fmt.Errorf("release version %q: %w", value, err)
		}

		product = value
	}

	native := r.cfg.NativeVersionOverride
	if native == "" {
		value, err := r.readMetadata(NativeVersionFilename, nativeVersionPattern)
		if err != nil {
			return nil, err
		}

		native = value
	}

	// An explicit product override names the artifacts exactly as given;
	// only file-derived versions receive the snapshot suffix.
	if !productOverridden && isSnapshot(native) {
		product += "-dev" + releaseTime.UTC().Format(devSuffixLayout)
	}

	r.resolved = &Version{Product: product, Native: native}

	return r.resolved, nil
}

// GoToolchainVersion reads the Go toolchain version from the configured
// KEY=value file. It returns an empty string when no file is configured.
func (r *Resolver) GoToolchainVersion() (string, error) {
	if r.cfg.GoVersionFile == "" {
		return "", nil
	}

	contents, err := os.ReadFile(filepath.Clean(r.cfg.GoVersionFile))
	if err != nil {
		return "", fmt.Errorf("read toolchain versions: %w", err)
	}

	scanner := bufio.NewScanner(strings.NewReader(string(contents)))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		key, value, found := strings.Cut(line, "=")
		if found && key == goVersionKey {
			return value, nil
		}
	}

	return "", fmt.Errorf("%w: %s in %s", ErrMetadataNotFound, goVersionKey, r.cfg.GoVersionFile)
}

// isSnapshot reports whether the version's last dot- or dash-separated
// component is the snapshot marker, so "1.18.0.dev" and "1.2.0-dev" are
// snapshots while "1.2.0-hotdev" is not.
func isSnapshot(version string) bool {
	if i := strings.LastIndexAny(version, ".-"); i >= 0 {
		return version[i+1:] == snapshotMarker
	}

	return version == snapshotMarker
}

// readMetadata extracts the first pattern match from a metadata file
// under the source tree.
func (r *Resolver) readMetadata(name string, pattern *regexp.Regexp) (string, error) {
	if r.cfg.SourceDir == "" {
		return "", ErrSourceDirNotSet
	}

	path := filepath.Join(r.cfg.SourceDir, name)

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrMetadataNotFound, path, err)
	}

	scanner := bufio.NewScanner(strings.NewReader(string(contents)))
	for scanner.Scan() {
		if match := pattern.FindStringSubmatch(strings.TrimSpace(scanner.Text())); match != nil {
			return match[1], nil
		}
	}

	return "", fmt.Errorf("%w: no %s match in %s", ErrMetadataNotFound, pattern, path)
}
