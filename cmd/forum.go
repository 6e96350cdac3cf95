package cmd

import (
	"github.com/bnema/opsbot/internal/domain"
	"github.com/spf13/cobra"
)

func newForumCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "forum",
		Short: "Create forums, list their threads and open posts",
	}

	cmd.AddCommand(
		newForumCreateCmd(app),
		newForumThreadsCmd(app),
		newForumPostCmd(app),
	)

	return cmd
}

func newForumCreateCmd(app *app) *cobra.Command {
	var (
		topic      string
		inCategory bool
		ifMissing  bool
	)

	cmd := &cobra.Command{
		Use:   "create <guild-or-category-id> <name>",
		Short: "Create a forum channel",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			parentID, err := parseID("parent", args[0])
			if err != nil {
				return err
			}

			parent := domain.GuildRef(parentID)
			if inCategory {
				parent = domain.CategoryRef(parentID)
			}

			action := domain.CreateForumChannel{Parent: parent, Name: args[1], Topic: topic, IfMissing: ifMissing}
			return app.runManifest(cmd, singleActionManifest(domain.IdentityDiscord, action))
		},
	}

	cmd.Flags().StringVar(&topic, "topic", "", "forum guidelines")
	cmd.Flags().BoolVar(&inCategory, "in-category", false, "the first argument is a category id")
	cmd.Flags().BoolVar(&ifMissing, "if-missing", false, "reuse a forum with the same name and parent")

	return cmd
}

func newForumThreadsCmd(app *app) *cobra.Command {
	var archived bool

	cmd := &cobra.Command{
		Use:   "threads <forum-id>",
		Short: "List the threads of a forum",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			forumID, err := parseID("forum", args[0])
			if err != nil {
				return err
			}

			action := domain.ListForumThreads{Forum: domain.ForumChannelRef(forumID), IncludeArchived: archived}
			return app.runManifest(cmd, singleActionManifest(domain.IdentityDiscord, action))
		},
	}

	cmd.Flags().BoolVar(&archived, "archived", false, "include archived threads")

	return cmd
}

func newForumPostCmd(app *app) *cobra.Command {
	var (
		content     string
		contentFile string
		identity    string
	)

	cmd := &cobra.Command{
		Use:   "post <forum-id> <title>",
		Short: "Open a forum thread with a starter message",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			forumID, err := parseID("forum", args[0])
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

			action := domain.CreateForumThread{Forum: domain.ForumChannelRef(forumID), Title: args[1], Content: body}
			return app.runManifest(cmd, singleActionManifest(as, action))
		},
	}

	cmd.Flags().StringVar(&content, "content", "", "starter message")
	cmd.Flags().StringVar(&contentFile, "content-file", "", "read the starter message from a file, - for stdin")
	addIdentityFlag(cmd, &identity)

	return cmd
}
