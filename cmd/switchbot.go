package cmd

import (
	"fmt"

	outcomeadapter "github.com/bnema/opsbot/internal/adapters/render/outcome"
	"github.com/spf13/cobra"
)

func newSwitchBotCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "switchbot",
		Short: "List and execute SwitchBot scenes",
	}

	cmd.AddCommand(
		newSwitchBotScenesCmd(app),
		newSwitchBotSceneCmd(app),
	)

	return cmd
}

func newSwitchBotScenesCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "scenes",
		Short: "List the manual scenes of the account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			token, err := app.switchBotToken(cmd)
			if err != nil {
				return err
			}
			scenes, err := app.switchbot.ListScenes(cmd.Context(), token)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if app.flags.json {
				return outcomeadapter.WriteJSON(out, scenes)
			}
			if len(scenes) == 0 {
				_, err = fmt.Fprintln(out, "No scenes.")
				return err
			}
			for _, scene := range scenes {
				if _, err := fmt.Fprintf(out, "%s  %s\n", scene.ID, scene.Name); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newSwitchBotSceneCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "scene <scene-id>",
		Short: "Execute one scene",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := app.switchBotToken(cmd)
			if err != nil {
				return err
			}
			if err := app.switchbot.ExecuteScene(cmd.Context(), token, args[0]); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if app.flags.json {
				return outcomeadapter.WriteJSON(out, map[string]any{"scene": args[0], "executed": true})
			}
			_, err = fmt.Fprintf(out, "✓ scene %s executed\n", args[0])
			return err
		},
	}
}

func (a *app) switchBotToken(cmd *cobra.Command) (string, error) {
	credentials, err := a.credentials.Load(cmd.Context())
	if err != nil {
		return "", fmt.Errorf("load credentials: %w", err)
	}
	return credentials.SwitchBotToken()
}
