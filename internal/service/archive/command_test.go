package archive

import (
	"context"
	"crypto/sha512"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/release-packager/internal/command"
	"github.com/oshokin/release-packager/internal/config"
)

// fakeRunner records invocations and simulates the filesystem effects the
// pipeline depends on, so the step sequence can be tested without git or tar.
type fakeRunner struct {
	t        *testing.T
	commands []*command.Command
}

func (f *fakeRunner) Run(_ context.Context, cmd *command.Command) error {
	f.t.Helper()
	f.commands = append(f.commands, cmd)

	switch cmd.Path {
	case "git":
		// git archive writes the tarball at --output.
		for _, arg := range cmd.Args {
			if rest, ok := strings.CutPrefix(arg, "--output="); ok {
				require.NoError(f.t, os.WriteFile(rest, []byte("exported"), 0o644))
			}
		}
	case "tar":
		if cmd.Args[0] == "-xzf" {
			// Extraction materializes the versioned directory.
			dir := filepath.Join(cmd.Args[3], strings.TrimSuffix(filepath.Base(cmd.Args[1]), ".tar.gz"))
			require.NoError(f.t, os.MkdirAll(dir, 0o755))
		} else {
			// Repack overwrites the tarball with dereferenced content.
			require.NoError(f.t, os.WriteFile(cmd.Args[3], []byte("dereferenced"), 0o644))
		}
	case "cp":
		// cp -R -L <src>.tmp <dst> recreates the directory without links.
		require.NoError(f.t, os.MkdirAll(cmd.Args[3], 0o755))
	}

	return nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	return &config.Config{
		PackageName: "acme-agent",
		SourceDir:   t.TempDir(),
	}
}

// TestBuilderPipeline checks the step order and the produced artifacts.
func TestBuilderPipeline(t *testing.T) {
	t.Parallel()

	out := t.TempDir()
	runner := &fakeRunner{t: t}
	b := newBuilder(testConfig(t), "5.2.0", runner, out)

	require.NoError(t, b.Run(context.Background()))

	// git archive, tar -x, cp -R -L, tar -cz in that order.
	require.Len(t, runner.commands, 4)
	require.Equal(t, "git", runner.commands[0].Path)
	require.Equal(t, "tar", runner.commands[1].Path)
	require.Equal(t, "-xzf", runner.commands[1].Args[0])
	require.Equal(t, "cp", runner.commands[2].Path)
	require.Equal(t, []string{"-R", "-L",
		filepath.Join(out, "acme-agent-5.2.0.tmp"),
		filepath.Join(out, "acme-agent-5.2.0")}, runner.commands[2].Args)
	require.Equal(t, "tar", runner.commands[3].Path)
	require.Equal(t, "-czf", runner.commands[3].Args[2])

	// Final tarball holds the repacked content; working directories are gone.
	tarball := filepath.Join(out, "acme-agent-5.2.0.tar.gz")
	contents, err := os.ReadFile(tarball)
	require.NoError(t, err)
	require.Equal(t, "dereferenced", string(contents))

	_, err = os.Stat(filepath.Join(out, "acme-agent-5.2.0"))
	require.ErrorIs(t, err, os.ErrNotExist)
	_, err = os.Stat(filepath.Join(out, "acme-agent-5.2.0.tmp"))
	require.ErrorIs(t, err, os.ErrNotExist)

	// Checksum sidecar matches the final tarball.
	sum := sha512.Sum512(contents)
	sidecar, err := os.ReadFile(tarball + ".sha512")
	require.NoError(t, err)
	require.Equal(t, hex.EncodeToString(sum[:])+"  acme-agent-5.2.0.tar.gz\n", string(sidecar))

	// Debian orig tarball alias carries identical bytes.
	alias, err := os.ReadFile(filepath.Join(out, "acme-agent_5.2.0.orig.tar.gz"))
	require.NoError(t, err)
	require.Equal(t, contents, alias)
}

// TestBuilderOverwritesStaleState reruns over leftovers from an aborted build.
func TestBuilderOverwritesStaleState(t *testing.T) {
	t.Parallel()

	out := t.TempDir()

	// Simulate an aborted earlier run.
	stale := filepath.Join(out, "acme-agent-5.2.0")
	require.NoError(t, os.MkdirAll(stale, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(stale, "leftover"), []byte("x"), 0o644))
	require.NoError(t, os.MkdirAll(stale+".tmp", 0o755))

	runner := &fakeRunner{t: t}
	b := newBuilder(testConfig(t), "5.2.0", runner, out)

	require.NoError(t, b.Run(context.Background()))

	_, err := os.Stat(stale)
	require.ErrorIs(t, err, os.ErrNotExist)

	contents, err := os.ReadFile(filepath.Join(out, "acme-agent-5.2.0.tar.gz"))
	require.NoError(t, err)
	require.Equal(t, "dereferenced", string(contents))
}

// TestBuilderRequiresSourceDir fails fast without a configured source tree.
func TestBuilderRequiresSourceDir(t *testing.T) {
	t.Parallel()

	b := newBuilder(&config.Config{PackageName: "acme-agent"}, "5.2.0", &fakeRunner{t: t}, t.TempDir())
	require.Error(t, b.Run(context.Background()))
}
