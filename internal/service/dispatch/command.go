package dispatch

import (
	"context"
	"fmt"

	"github.com/oshokin/release-packager/internal/command"
	"github.com/oshokin/release-packager/internal/config"
	"github.com/oshokin/release-packager/internal/logger"
	"github.com/oshokin/release-packager/internal/release"
	"github.com/oshokin/release-packager/internal/target"
)

// Options contains inputs for the dispatcher entry points.
type Options struct {
	// ConfigPath is an optional path to the packaging settings YAML.
	ConfigPath string
	// Namespace selects the packaging namespace, "apt" or "yum".
	Namespace string
}

// Download fetches the built packages of every configured target in the namespace.
func Download(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "download")

	d, ns, err := setup(opts)
	if err != nil {
		return err
	}

	if err = d.Download(ctx, ns); err != nil {
		return err
	}

	logger.Info(ctx, "Download completed successfully")

	return nil
}

// UploadRC publishes the namespace's packages as a release candidate.
func UploadRC(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "upload-rc")

	d, ns, err := setup(opts)
	if err != nil {
		return err
	}

	if err = d.UploadRC(ctx, ns); err != nil {
		return err
	}

	logger.Info(ctx, "Upload completed successfully")

	return nil
}

// Release promotes the namespace's release candidate to a release.
func Release(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "release")

	d, ns, err := setup(opts)
	if err != nil {
		return err
	}

	if err = d.Release(ctx, ns); err != nil {
		return err
	}

	logger.Info(ctx, "Release completed successfully")

	return nil
}

// setup loads configuration, resolves the version once and builds the dispatcher.
func setup(opts *Options) (*Dispatcher, target.Namespace, error) {
	ns, err := target.ParseNamespace(opts.Namespace)
	if err != nil {
		return nil, ns, err
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, ns, err
	}

	resolver := release.NewResolver(cfg)

	version, err := resolver.Resolve(cfg.ReleaseTime)
	if err != nil {
		return nil, ns, fmt.Errorf("resolve version: %w", err)
	}

	goVersion, err := resolver.GoToolchainVersion()
	if err != nil {
		return nil, ns, err
	}

	return NewDispatcher(cfg, version.Product, goVersion, command.ExecRunner{}), ns, nil
}
