package cmd

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
)

// ErrReported marks a failure whose diagnostic was already printed with the
// command's output.
var ErrReported = errors.New("failure already reported")

func Execute(ctx context.Context) error {
	return newRootCmd(deps{}).ExecuteContext(ctx)
}

func newRootCmd(d deps) *cobra.Command {
	app := &app{}
	var flags globalFlags

	rootCmd := &cobra.Command{
		Use:           "opsbot",
		Short:         "opsbot: run Discord admin actions and home automation calls",
		Long:          "opsbot connects a Discord bot for one short session to create, rename and delete channels, post and read messages and manage forum threads. It also wraps the Notion and SwitchBot REST APIs.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			wired, err := wireApp(flags, cmd.Flags().Changed("env-file"), d)
			if err != nil {
				return err
			}
			*app = *wired
			return nil
		},
	}

	persistent := rootCmd.PersistentFlags()
	persistent.StringVar(&flags.envFile, "env-file", ".env", "KEY=VALUE secrets file loaded before running")
	persistent.StringVar(&flags.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/opsbot/config.toml)")
	persistent.StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn or error")
	persistent.BoolVar(&flags.json, "json", false, "print results as JSON")
	persistent.BoolVar(&flags.dryRun, "dry-run", false, "print the plan without connecting")

	rootCmd.AddCommand(
		newVersionCmd(),
		newChannelCmd(app),
		newCategoryCmd(app),
		newForumCmd(app),
		newThreadCmd(app),
		newMessageCmd(app),
		newRunCmd(app),
		newManifestCmd(app),
		newNotionCmd(app),
		newSwitchBotCmd(app),
		newAutomationCmd(app),
		newSecretsCmd(app),
	)

	return rootCmd
}
