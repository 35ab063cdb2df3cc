package archive

import (
	"context"
	"crypto"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/oshokin/release-packager/internal/command"
	"github.com/oshokin/release-packager/internal/config"
	"github.com/oshokin/release-packager/internal/logger"
	"github.com/oshokin/release-packager/internal/release"

	// Ensure SHA512 available for checksum calculation.
	_ "crypto/sha512"
)

// Options contains inputs for the source archive entry point.
type Options struct {
	// ConfigPath is an optional path to the packaging settings YAML.
	ConfigPath string
	// OutputDir is where the tarball and its aliases land (defaults to ".").
	OutputDir string
}

// checksumFunction is used to produce the archive checksum sidecar.
const checksumFunction crypto.Hash = crypto.SHA512

var errHashUnavailable = errors.New("hash function unavailable")

// builder produces the normalized source tarball for one release.
// It is unexported—callers should use Run, which encapsulates setup.
type builder struct {
	cfg     *config.Config
	version string
	runner  command.Runner
	// outputDir is the destination directory for all produced files.
	outputDir string
}

// step is one stage of the archive pipeline. Steps run in declaration order
// and the first failure aborts the build.
type step struct {
	name string
	run  func(ctx context.Context) error
}

// Run executes the source archive workflow.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "source-archive")

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}

	version, err := release.NewResolver(cfg).Resolve(cfg.ReleaseTime)
	if err != nil {
		return fmt.Errorf("resolve version: %w", err)
	}

	b := newBuilder(cfg, version.Product, command.ExecRunner{}, opts.OutputDir)

	if err = b.Run(ctx); err != nil {
		return fmt.Errorf("build source archive: %w", err)
	}

	logger.InfoKV(ctx, "Source archive ready", "path", b.tarballPath())

	return nil
}

// newBuilder creates a builder for the given configuration and resolved version.
func newBuilder(cfg *config.Config, version string, runner command.Runner, outputDir string) *builder {
	if outputDir == "" {
		outputDir = "."
	}

	return &builder{
		cfg:       cfg,
		version:   version,
		runner:    runner,
		outputDir: outputDir,
	}
}

// archiveName is the canonical <package>-<version> prefix shared by the
// tarball, its extracted directory and the archive prefix.
func (b *builder) archiveName() string {
	return b.cfg.PackageName + "-" + b.version
}

func (b *builder) tarballPath() string {
	return filepath.Join(b.outputDir, b.archiveName()+".tar.gz")
}

func (b *builder) extractedDir() string {
	return filepath.Join(b.outputDir, b.archiveName())
}

// Run executes the archive pipeline and writes the checksum sidecar
// and deb-convention alias afterwards.
func (b *builder) Run(ctx context.Context) error {
	if b.cfg.SourceDir == "" {
		return release.ErrSourceDirNotSet
	}

	for _, s := range b.steps() {
		logger.InfoKV(ctx, "Running archive step", "step", s.name)

		if err := s.run(ctx); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
	}

	if err := b.writeChecksum(); err != nil {
		return fmt.Errorf("write checksum: %w", err)
	}

	if err := b.writeDebAlias(); err != nil {
		return fmt.Errorf("write deb alias: %w", err)
	}

	return nil
}

// steps returns the ordered archive pipeline.
//
// The two-step copy (rename to .tmp, then copy back dereferencing links)
// exists because a plain source-control export may contain symlinks into
// vendored subtrees; downstream packaging tools expect regular files.
func (b *builder) steps() []step {
	name := b.archiveName()
	tarball := b.tarballPath()
	extracted := b.extractedDir()
	temporary := extracted + ".tmp"

	return []step{
		{
			name: "export tree",
			run: func(ctx context.Context) error {
				return b.runner.Run(ctx, &command.Command{
					Path: "git",
					Args: []string{
						"-C", b.cfg.SourceDir,
						"archive", "HEAD",
						"--format=tar.gz",
						"--prefix=" + name + "/",
						"--output=" + mustAbs(tarball),
					},
				})
			},
		},
		{
			name: "extract archive",
			run: func(ctx context.Context) error {
				// Stale directories from an aborted run are overwritten.
				if err := os.RemoveAll(extracted); err != nil {
					return err
				}

				if err := os.RemoveAll(temporary); err != nil {
					return err
				}

				return b.runner.Run(ctx, &command.Command{
					Path: "tar",
					Args: []string{"-xzf", tarball, "-C", b.outputDir},
				})
			},
		},
		{
			name: "dereference symlinks",
			run: func(ctx context.Context) error {
				if err := os.Rename(extracted, temporary); err != nil {
					return err
				}

				return b.runner.Run(ctx, &command.Command{
					Path: "cp",
					Args: []string{"-R", "-L", temporary, extracted},
				})
			},
		},
		{
			name: "remove temporary copy",
			run: func(_ context.Context) error {
				return os.RemoveAll(temporary)
			},
		},
		{
			name: "repack archive",
			run: func(ctx context.Context) error {
				return b.runner.Run(ctx, &command.Command{
					Path: "tar",
					Args: []string{"-C", b.outputDir, "-czf", tarball, name},
				})
			},
		},
		{
			name: "remove extracted tree",
			run: func(_ context.Context) error {
				return os.RemoveAll(extracted)
			},
		},
	}
}

// writeChecksum produces a sha512sum-compatible sidecar next to the tarball.
func (b *builder) writeChecksum() error {
	checksum, err := fileChecksum(b.tarballPath())
	if err != nil {
		return err
	}

	line := fmt.Sprintf("%s  %s\n", hex.EncodeToString(checksum), b.archiveName()+".tar.gz")

	return os.WriteFile(b.tarballPath()+".sha512", []byte(line), 0o644) //nolint:gosec // Checksum files are public.
}

// writeDebAlias copies the tarball to the debian orig tarball name.
func (b *builder) writeDebAlias() error {
	alias := filepath.Join(b.outputDir, fmt.Sprintf("%s_%s.orig.tar.gz", b.cfg.PackageName, b.version))

	return copyFile(b.tarballPath(), alias)
}

// fileChecksum returns checksum bytes for a file using checksumFunction.
func fileChecksum(path string) ([]byte, error) {
	if !checksumFunction.Available() {
		return nil, fmt.Errorf("checksum calculation not possible: %w", errHashUnavailable)
	}

	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	defer func() {
		_ = f.Close()
	}()

	hasher := checksumFunction.New()
	if _, err = io.Copy(hasher, f); err != nil {
		return nil, fmt.Errorf("calculate checksum: %w", err)
	}

	return hasher.Sum(nil), nil
}

// copyFile duplicates src into dst, truncating any existing file.
func copyFile(src, dst string) error {
	in, err := os.Open(filepath.Clean(src))
	if err != nil {
		return err
	}

	defer func() {
		_ = in.Close()
	}()

	out, err := os.Create(filepath.Clean(dst))
	if err != nil {
		return err
	}

	if _, err = io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}

	return out.Close()
}

// mustAbs resolves the path or returns it unchanged when resolution fails;
// git interprets relative --output paths against the source tree, not the
// caller's working directory.
func mustAbs(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}

	return abs
}
