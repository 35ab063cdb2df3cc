package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oshokin/release-packager/internal/config"
	"github.com/oshokin/release-packager/internal/release"
)

var (
	// showNative switches output to the native runtime version.
	showNative bool

	// resolveCmd prints the version the rest of the workflow would use.
	resolveCmd = &cobra.Command{
		Use:   "resolve",
		Short: "Print the resolved release version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			v, err := release.NewResolver(cfg).Resolve(cfg.ReleaseTime)
			if err != nil {
				return err
			}

			out := v.Product
			if showNative {
				out = v.Native
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), out)

			return nil
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	resolveCmd.Flags().BoolVar(&showNative, "native", false, "print the native runtime version instead")
	rootCmd.AddCommand(resolveCmd)
}
