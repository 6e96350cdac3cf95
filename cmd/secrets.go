package cmd

import (
	"fmt"
	"io"
	"strings"

	outcomeadapter "github.com/bnema/opsbot/internal/adapters/render/outcome"
	"github.com/spf13/cobra"
)

func newSecretsCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secrets",
		Short: "Store, remove and inspect credentials",
	}

	cmd.AddCommand(
		newSecretsSetCmd(app),
		newSecretsRemoveCmd(app),
		newSecretsStatusCmd(app),
	)

	return cmd
}

func newSecretsSetCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set <KEY>",
		Short: "Store a credential read from stdin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("read secret value: %w", err)
			}
			if err := app.credentials.SetSecret(cmd.Context(), args[0], strings.TrimSpace(string(raw))); err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "stored %s\n", strings.ToUpper(args[0]))
			return err
		},
	}
}

func newSecretsRemoveCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <KEY>",
		Aliases: []string{"remove"},
		Short:   "Remove a stored credential",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.credentials.RemoveSecret(cmd.Context(), args[0]); err != nil {
				return err
			}

			_, err := fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", strings.ToUpper(args[0]))
			return err
		},
	}
}

func newSecretsStatusCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show which credentials resolve, never their values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			statuses, err := app.credentials.Status(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if app.flags.json {
				return outcomeadapter.WriteJSON(out, statuses)
			}
			rendered, err := outcomeadapter.RenderSecretStatus(statuses)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(out, rendered)
			return err
		},
	}
}
