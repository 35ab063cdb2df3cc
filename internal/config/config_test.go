package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/release-packager/internal/target"
)

// TestValidate checks required fields and default filling for settings.
func TestValidate(t *testing.T) {
	t.Parallel()

	// Missing package name.
	cfg := new(Config)

	err := Validate(cfg)
	require.Error(t, err)

	// Bad download base.
	cfg = &Config{
		PackageName:  "acme-agent",
		DownloadBase: "not a url",
	}

	err = Validate(cfg)
	require.Error(t, err)

	// Okay; defaults filled.
	cfg = &Config{
		PackageName:  "acme-agent",
		DownloadBase: "https://github.com/acme/agent-builds",
	}

	err = Validate(cfg)
	require.NoError(t, err)
	require.Equal(t, DefaultPackageRevision, cfg.PackageRevision)
	require.Equal(t, target.DefaultAptTargets, cfg.AptTargets)
	require.Equal(t, target.DefaultYumTargets, cfg.YumTargets)
}

// TestSaveLoadRoundtrip ensures settings are persisted and loaded back correctly.
func TestSaveLoadRoundtrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")

	cfg := &Config{
		PackageName:    "acme-agent",
		DownloadBase:   "https://github.com/acme/agent-builds",
		UploadCommand:  "./upload-rc.sh",
		ReleaseCommand: "./release.sh",
		AptTargets:     []target.Target{"debian-bookworm"},
		YumTargets:     []target.Target{"almalinux-9"},
	}

	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg.PackageName, loaded.PackageName)
	require.Equal(t, cfg.UploadCommand, loaded.UploadCommand)
	require.Equal(t, cfg.AptTargets, loaded.AptTargets)
	require.Equal(t, cfg.YumTargets, loaded.YumTargets)
}

// TestFromEnvironment checks that overrides are read once into the struct.
func TestFromEnvironment(t *testing.T) {
	t.Setenv(EnvSourceDir, "/src/acme-agent")
	t.Setenv(EnvVersion, "9.9.9")
	t.Setenv(EnvNativeVersion, "2.0.0.dev")
	t.Setenv(EnvReleaseTime, "20260115")
	t.Setenv(EnvStaging, "1")
	t.Setenv(EnvRepository, "acme/staging")

	cfg := &Config{PackageName: "acme-agent"}
	require.NoError(t, FromEnvironment(cfg))

	require.Equal(t, "/src/acme-agent", cfg.SourceDir)
	require.Equal(t, "9.9.9", cfg.VersionOverride)
	require.Equal(t, "2.0.0.dev", cfg.NativeVersionOverride)
	require.True(t, cfg.Staging)
	require.Equal(t, "acme/staging", cfg.TargetRepository)
	require.Equal(t, time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), cfg.ReleaseTime)
}

// TestFromEnvironmentBadReleaseTime rejects malformed timestamp overrides.
func TestFromEnvironmentBadReleaseTime(t *testing.T) {
	t.Setenv(EnvReleaseTime, "January 15th")

	cfg := &Config{PackageName: "acme-agent"}
	require.Error(t, FromEnvironment(cfg))
}
