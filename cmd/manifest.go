package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/bnema/opsbot/internal/domain"
	"github.com/spf13/cobra"
)

const (
	placeholderGuildID   = "100000000000000001"
	placeholderChannelID = "100000000000000002"
)

func newManifestCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "manifest",
		Short: "Work with run manifests",
	}

	cmd.AddCommand(newManifestInitCmd(app))

	return cmd
}

func newManifestInitCmd(app *app) *cobra.Command {
	var (
		guild   string
		channel string
		force   bool
	)

	cmd := &cobra.Command{
		Use:   "init <path>",
		Short: "Write an example manifest to edit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if !force {
				if _, err := os.Stat(path); err == nil {
					return fmt.Errorf("%w: %s already exists, use --force to replace it", domain.ErrConfig, path)
				} else if !errors.Is(err, fs.ErrNotExist) {
					return fmt.Errorf("check %s: %w", path, err)
				}
			}

			guildID, err := parseID("guild", guild)
			if err != nil {
				return err
			}
			channelID, err := parseID("channel", channel)
			if err != nil {
				return err
			}

			if err := app.manifests.Save(cmd.Context(), path, exampleManifest(guildID, channelID)); err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return err
		},
	}

	cmd.Flags().StringVar(&guild, "guild", placeholderGuildID, "guild id used by the example actions")
	cmd.Flags().StringVar(&channel, "channel", placeholderChannelID, "channel id used by the example actions")
	cmd.Flags().BoolVar(&force, "force", false, "replace an existing file")

	return cmd
}

func exampleManifest(guildID, channelID domain.Snowflake) domain.Manifest {
	return domain.Manifest{
		Name:     "example",
		Identity: domain.IdentityDiscord,
		Actions: []domain.Action{
			domain.CreateTextChannel{Guild: domain.GuildRef(guildID), Name: "ops-alerts", IfMissing: true},
			domain.PostMessage{Channel: domain.ChannelRef(channelID), Content: "opsbot is online"},
			domain.ReadHistory{Channel: domain.ChannelRef(channelID), Limit: 10},
		},
	}
}
