package cmd

import (
	"github.com/bnema/opsbot/internal/adapters/files"
	"github.com/bnema/opsbot/internal/domain"
	"github.com/spf13/cobra"
)

func newMessageCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "message",
		Short: "Post, edit, react to and read messages",
	}

	cmd.AddCommand(
		newMessageHistoryCmd(app),
		newMessagePostCmd(app),
		newMessageEditCmd(app),
		newMessageReactCmd(app),
	)

	return cmd
}

func newMessageHistoryCmd(app *app) *cobra.Command {
	var order string

	cmd := &cobra.Command{
		Use:   "history <channel-id> [limit]",
		Short: "Read the latest messages of a channel or thread",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			channelID, err := parseID("channel", args[0])
			if err != nil {
				return err
			}
			limit, err := optionalLimit(args, 1)
			if err != nil {
				return err
			}

			action := domain.ReadHistory{Channel: domain.ChannelRef(channelID), Limit: limit, Order: domain.HistoryOrder(order)}
			return app.runManifest(cmd, singleActionManifest(domain.IdentityDiscord, action))
		},
	}

	cmd.Flags().StringVar(&order, "order", string(domain.NewestFirst), "newest-first or oldest-first")

	return cmd
}

func newMessagePostCmd(app *app) *cobra.Command {
	var (
		content     string
		contentFile string
		paths       []string
		identity    string
	)

	cmd := &cobra.Command{
		Use:   "post <channel-id>",
		Short: "Post a message with optional attachments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			channelID, err := parseID("channel", args[0])
			if err != nil {
				return err
			}
			as, err := domain.ParseIdentity(identity)
			if err != nil {
				return err
			}
			body, err := readContent(cmd, content, contentFile)
			if err != nil {
				return err
			}

			action := domain.PostMessage{Channel: domain.ChannelRef(channelID), Content: body}
			if len(paths) > 0 {
				if action.Files, err = files.Load(paths); err != nil {
					return err
				}
			}

			return app.runManifest(cmd, singleActionManifest(as, action))
		},
	}

	cmd.Flags().StringVar(&content, "content", "", "message text")
	cmd.Flags().StringVar(&contentFile, "content-file", "", "read the message from a file, - for stdin")
	cmd.Flags().StringArrayVar(&paths, "file", nil, "attach a file (repeatable)")
	addIdentityFlag(cmd, &identity)

	return cmd
}

func newMessageEditCmd(app *app) *cobra.Command {
	var content string

	cmd := &cobra.Command{
		Use:   "edit <channel-id> <message-id>",
		Short: "Replace the content of a message the bot posted",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			message, err := messageArgs(args)
			if err != nil {
				return err
			}

			action := domain.EditMessage{Message: message, Content: content}
			return app.runManifest(cmd, singleActionManifest(domain.IdentityDiscord, action))
		},
	}

	cmd.Flags().StringVar(&content, "content", "", "new message text")
	_ = cmd.MarkFlagRequired("content")

	return cmd
}

func newMessageReactCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "react <channel-id> <message-id> <emoji>",
		Short: "Add a reaction to a message",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			message, err := messageArgs(args)
			if err != nil {
				return err
			}

			action := domain.AddReaction{Message: message, Emoji: args[2]}
			return app.runManifest(cmd, singleActionManifest(domain.IdentityDiscord, action))
		},
	}
}

func messageArgs(args []string) (domain.TargetRef, error) {
	channelID, err := parseID("channel", args[0])
	if err != nil {
		return domain.TargetRef{}, err
	}
	messageID, err := parseID("message", args[1])
	if err != nil {
		return domain.TargetRef{}, err
	}
	return domain.MessageRef(channelID, messageID), nil
}
