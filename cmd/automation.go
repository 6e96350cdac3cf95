package cmd

import (
	"fmt"

	outcomeadapter "github.com/bnema/opsbot/internal/adapters/render/outcome"
	"github.com/spf13/cobra"
)

func newAutomationCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "automation",
		Short: "Run named scene routines from the config file",
	}

	cmd.AddCommand(
		newAutomationRunCmd(app),
		newAutomationListCmd(app),
	)

	return cmd
}

func newAutomationRunCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run <name>",
		Short: "Execute an automation's scenes and post its message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := app.automation.Run(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if app.flags.json {
				return outcomeadapter.WriteJSON(out, report)
			}
			rendered, err := outcomeadapter.RenderAutomation(report)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(out, rendered)
			return err
		},
	}
}

func newAutomationListCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured automations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			names := app.automation.Names()
			out := cmd.OutOrStdout()
			if app.flags.json {
				return outcomeadapter.WriteJSON(out, names)
			}
			if len(names) == 0 {
				_, err := fmt.Fprintln(out, "No automations configured.")
				return err
			}
			for _, name := range names {
				if _, err := fmt.Fprintln(out, name); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
