package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/release-packager/internal/service/dispatch"
)

// namespaceArgs is shared by all dispatcher subcommands: exactly one
// positional argument naming the packaging namespace.
var namespaceArgs = []string{"apt", "yum"}

// downloadCmd fetches built packages for every configured target.
var downloadCmd = &cobra.Command{
	Use:       "download [apt|yum]",
	Short:     "Download and extract built packages for every target",
	Args:      cobra.ExactArgs(1),
	ValidArgs: namespaceArgs,
	RunE: func(_ *cobra.Command, args []string) error {
		return runDispatch(dispatch.Download, args[0])
	},
}

// uploadCmd publishes the namespace's packages as a release candidate.
var uploadCmd = &cobra.Command{
	Use:       "upload-rc [apt|yum]",
	Short:     "Upload packages as a release candidate",
	Args:      cobra.ExactArgs(1),
	ValidArgs: namespaceArgs,
	RunE: func(_ *cobra.Command, args []string) error {
		return runDispatch(dispatch.UploadRC, args[0])
	},
}

// releaseCmd promotes the release candidate to a release.
var releaseCmd = &cobra.Command{
	Use:       "release [apt|yum]",
	Short:     "Promote the release candidate to a release",
	Args:      cobra.ExactArgs(1),
	ValidArgs: namespaceArgs,
	RunE: func(_ *cobra.Command, args []string) error {
		return runDispatch(dispatch.Release, args[0])
	},
}

// runDispatch wires signal handling and options for one dispatcher operation.
func runDispatch(op func(context.Context, *dispatch.Options) error, namespace string) error {
	// Setup graceful shutdown handling.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	return op(ctx, &dispatch.Options{
		ConfigPath: configPath,
		Namespace:  namespace,
	})
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.AddCommand(downloadCmd, uploadCmd, releaseCmd)
}
