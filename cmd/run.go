package cmd

import (
	"github.com/spf13/cobra"
)

func newRunCmd(app *app) *cobra.Command {
	var continueOnError bool

	cmd := &cobra.Command{
		Use:   "run <manifest.toml>",
		Short: "Run every action of a manifest in one session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manifest, err := app.manifests.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if continueOnError {
				manifest.ContinueOnError = true
			}

			return app.runManifest(cmd, manifest)
		},
	}

	cmd.Flags().BoolVar(&continueOnError, "continue-on-error", false, "run later actions after a failure")

	return cmd
}
