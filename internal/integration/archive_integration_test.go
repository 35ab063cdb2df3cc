package integration

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/release-packager/internal/config"
	"github.com/oshokin/release-packager/internal/service/archive"
)

// TestSourceArchive_DereferencesSymlinks runs the real git/tar/cp pipeline
// over a repository containing a symlink and verifies the final tarball
// holds only regular files.
func TestSourceArchive_DereferencesSymlinks(t *testing.T) {
	requireTools(t, "git", "tar", "cp")

	// Build a small repository with a committed symlink.
	repo := t.TempDir()
	runGit(t, repo, "init", "--quiet")

	require.NoError(t, os.MkdirAll(filepath.Join(repo, "notes"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(repo, "notes", "readme.md"), []byte("docs"), 0o644))
	require.NoError(t, os.Symlink("notes/readme.md", filepath.Join(repo, "readme-link.md")))

	runGit(t, repo, "add", ".")
	runGit(t, repo,
		"-c", "user.name=test",
		"-c", "user.email=test@example.com",
		"commit", "--quiet", "-m", "initial")

	// Run the archive workflow from a scratch working directory.
	work := t.TempDir()
	chdir(t, work)

	require.NoError(t, config.Save(config.DefaultConfigFilename, &config.Config{
		PackageName: "acme-agent",
	}))

	t.Setenv(config.EnvSourceDir, repo)
	t.Setenv(config.EnvVersion, "1.0.0")
	t.Setenv(config.EnvNativeVersion, "1.0.0")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	options := &archive.Options{
		ConfigPath: config.DefaultConfigFilename,
		OutputDir:  work,
	}

	require.NoError(t, archive.Run(ctx, options))

	// The final tarball must contain zero symlinks, and the former link
	// must have been materialized into a regular file with the target's
	// contents.
	names := map[string]string{}

	f, err := os.Open(filepath.Join(work, "acme-agent-1.0.0.tar.gz"))
	require.NoError(t, err)

	defer func() {
		_ = f.Close()
	}()

	gz, err := gzip.NewReader(f)
	require.NoError(t, err)

	tr := tar.NewReader(gz)

	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}

		require.NoError(t, err)
		require.NotEqual(t, byte(tar.TypeSymlink), header.Typeflag,
			"symlink survived the pipeline: %s", header.Name)
		require.NotEqual(t, byte(tar.TypeLink), header.Typeflag,
			"hard link survived the pipeline: %s", header.Name)

		if header.Typeflag == tar.TypeReg {
			contents, err := io.ReadAll(tr)
			require.NoError(t, err)

			names[header.Name] = string(contents)
		}
	}

	require.Equal(t, "docs", names["acme-agent-1.0.0/readme-link.md"])
	require.Equal(t, "docs", names["acme-agent-1.0.0/notes/readme.md"])
}

// chdir switches the working directory for the duration of the test,
// standing in for testing.T.Chdir, which needs Go 1.24+.
func chdir(t *testing.T, dir string) {
	t.Helper()

	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))

	t.Cleanup(func() { _ = os.Chdir(old) })
}

// requireTools skips the test when a required external tool is unavailable.
func requireTools(t *testing.T, tools ...string) {
	t.Helper()

	for _, tool := range tools {
		if _, err := exec.LookPath(tool); err != nil {
			t.Skipf("%s not available: %v", tool, err)
		}
	}
}

// runGit executes one git command inside dir and fails the test on error.
func runGit(t *testing.T, dir string, args ...string) {
	t.Helper()

	cmd := exec.Command("git", append([]string{"-C", dir}, args...)...)

	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %v: %s", args, output)
}
