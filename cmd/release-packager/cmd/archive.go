package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/release-packager/internal/service/archive"
)

var (
	// outputDir is where the source tarball and its aliases land.
	outputDir string

	// archiveCmd builds the normalized source tarball.
	archiveCmd = &cobra.Command{
		Use:   "source-archive",
		Short: "Build the normalized source tarball for the release",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &archive.Options{
				ConfigPath: configPath,
				OutputDir:  outputDir,
			}

			return archive.Run(ctx, options)
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	archiveCmd.Flags().StringVarP(&outputDir, "output-dir", "o", ".", "directory for produced archives")
	rootCmd.AddCommand(archiveCmd)
}
