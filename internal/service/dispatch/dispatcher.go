package dispatch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/fluxcd/pkg/tar"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/oshokin/release-packager/internal/command"
	"github.com/oshokin/release-packager/internal/config"
	"github.com/oshokin/release-packager/internal/logger"
	"github.com/oshokin/release-packager/internal/target"
)

const (
	// downloadRetries is how often a transient download failure is retried
	// at the HTTP layer before the dispatcher gives up.
	downloadRetries = 3

	// downloadRetryWaitMin and downloadRetryWaitMax bound the backoff.
	downloadRetryWaitMin = 5 * time.Second
	downloadRetryWaitMax = 30 * time.Second

	// downloadDirMode is the permission for per-version download directories.
	downloadDirMode os.FileMode = 0o755
)

var (
	errUploadCommandNotSet  = errors.New("upload command is not configured")
	errReleaseCommandNotSet = errors.New("release command is not configured")
	errUnexpectedHTTPStatus = errors.New("unexpected http status")
)

// Dispatcher drives the per-target packaging operations for one resolved
// version: downloading built packages and invoking the publishing commands.
type Dispatcher struct {
	cfg       *config.Config
	version   string
	goVersion string
	runner    command.Runner
	client    *retryablehttp.Client
}

// NewDispatcher builds a dispatcher around the given configuration,
// resolved product version and toolchain version.
func NewDispatcher(cfg *config.Config, version, goVersion string, runner command.Runner) *Dispatcher {
	client := retryablehttp.NewClient()
	client.RetryWaitMin = downloadRetryWaitMin
	client.RetryWaitMax = downloadRetryWaitMax
	client.RetryMax = downloadRetries
	client.Logger = nil

	return &Dispatcher{
		cfg:       cfg,
		version:   version,
		goVersion: goVersion,
		runner:    runner,
		client:    client,
	}
}

// Download fetches and extracts the built package bundle of every target in
// the namespace, in declaration order. The first failure aborts the run.
func (d *Dispatcher) Download(ctx context.Context, ns target.Namespace) error {
	baseDir := fmt.Sprintf("%s-%s", d.cfg.PackageName, d.version)

	for _, t := range d.cfg.Targets(ns) {
		url := t.BuiltPackageURL(d.cfg.DownloadBase, d.version, ns)
		dir := filepath.Join(baseDir, string(t))

		logger.InfoKV(ctx, "Downloading built packages",
			"target", string(t), "url", url)

		if err := d.fetchAndExtract(ctx, url, dir); err != nil {
			return fmt.Errorf("download %s: %w", t, err)
		}
	}

	return nil
}

// fetchAndExtract downloads one bundle and unpacks it in place.
func (d *Dispatcher) fetchAndExtract(ctx context.Context, url, dir string) error {
	if err := os.MkdirAll(dir, downloadDirMode); err != nil {
		return err
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s for %s", errUnexpectedHTTPStatus, resp.Status, url)
	}

	if err = tar.Untar(resp.Body, dir, tar.WithMaxUntarSize(-1)); err != nil {
		return fmt.Errorf("extract %s: %w", url, err)
	}

	return nil
}

// UploadRC invokes the upload command once for the namespace with the
// release candidate environment overlay.
func (d *Dispatcher) UploadRC(ctx context.Context, ns target.Namespace) error {
	if d.cfg.UploadCommand == "" {
		return errUploadCommandNotSet
	}

	return d.invokePublisher(ctx, d.cfg.UploadCommand, "UPLOAD", ns)
}

// Release invokes the release command once for the namespace with the
// deploy environment overlay.
func (d *Dispatcher) Release(ctx context.Context, ns target.Namespace) error {
	if d.cfg.ReleaseCommand == "" {
		return errReleaseCommandNotSet
	}

	return d.invokePublisher(ctx, d.cfg.ReleaseCommand, "DEPLOY", ns)
}

// invokePublisher runs one external publishing command with the family
// overlay and positional version and revision arguments.
func (d *Dispatcher) invokePublisher(ctx context.Context, path, prefix string, ns target.Namespace) error {
	overlay := d.publisherOverlay(prefix, ns)

	logger.InfoKV(ctx, "Invoking publishing command",
		"command", path, "namespace", ns.String())

	err := d.runner.Run(ctx, &command.Command{
		Path: path,
		Args: []string{d.version, d.cfg.PackageRevision},
		Env:  overlay,
	})
	if err != nil {
		return fmt.Errorf("%s %s: %w", path, ns, err)
	}

	return nil
}

// publisherOverlay builds the per-invocation environment: one
// <prefix>_<FAMILY>=1 flag per distinct family in the namespace,
// <prefix>_DEFAULT=0, the job identifier, staging flag and toolchain pin.
func (d *Dispatcher) publisherOverlay(prefix string, ns target.Namespace) map[string]string {
	families := target.Families(d.cfg.Targets(ns))

	overlay := make(map[string]string, len(families)+5)
	for _, family := range families {
		overlay[prefix+"_"+family] = "1"
	}

	overlay[prefix+"_DEFAULT"] = "0"
	overlay["JOB_ID"] = fmt.Sprintf("%s-v%s-%s", d.cfg.PackageName, d.version, ns)
	overlay["STAGING"] = boolFlag(d.cfg.Staging)

	if d.goVersion != "" {
		overlay["GOLANG_VERSION"] = d.goVersion
	}

	if d.cfg.TargetRepository != "" {
		overlay["REPOSITORY"] = d.cfg.TargetRepository
	}

	return overlay
}

func boolFlag(v bool) string {
	if v {
		return "1"
	}

	return "0"
}
