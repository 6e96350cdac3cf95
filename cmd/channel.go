package cmd

import (
	"fmt"
	"time"

	"github.com/bnema/opsbot/internal/application"
	"github.com/bnema/opsbot/internal/domain"
	"github.com/spf13/cobra"
)

func newChannelCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "channel",
		Short: "Create, rename and delete channels",
	}

	cmd.AddCommand(
		newChannelCreateCmd(app),
		newChannelRenameCmd(app),
		newChannelDeleteCmd(app),
	)

	return cmd
}

func newChannelCreateCmd(app *app) *cobra.Command {
	var (
		category  string
		topic     string
		ifMissing bool
	)

	cmd := &cobra.Command{
		Use:   "create <guild-id> <name>",
		Short: "Create a text channel",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			guildID, err := parseID("guild", args[0])
			if err != nil {
				return err
			}

			action := domain.CreateTextChannel{
				Guild:     domain.GuildRef(guildID),
				Name:      args[1],
				Topic:     topic,
				IfMissing: ifMissing,
			}
			if category != "" {
				categoryID, err := parseID("category", category)
				if err != nil {
					return err
				}
				action.Category = domain.CategoryRef(categoryID)
			}

			return app.runManifest(cmd, singleActionManifest(domain.IdentityDiscord, action))
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "parent category id")
	cmd.Flags().StringVar(&topic, "topic", "", "channel topic")
	cmd.Flags().BoolVar(&ifMissing, "if-missing", false, "reuse a channel with the same name and parent")

	return cmd
}

func newChannelRenameCmd(app *app) *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "rename <channel-id> <name>",
		Short: "Rename a channel, forum, category or thread",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("channel", args[0])
			if err != nil {
				return err
			}
			targetKind, err := parseKindFlag(kind)
			if err != nil {
				return err
			}

			action := domain.RenameEntity{Target: domain.TargetRef{Kind: targetKind, ID: id}, Name: args[1]}
			return app.runManifest(cmd, singleActionManifest(domain.IdentityDiscord, action))
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "expected kind: text, forum, category or thread")

	return cmd
}

func newChannelDeleteCmd(app *app) *cobra.Command {
	var (
		kind            string
		missingOK       bool
		withChildren    bool
		delay           time.Duration
		continueOnError bool
	)

	cmd := &cobra.Command{
		Use:   "delete <channel-id>...",
		Short: "Delete channels one at a time",
		Long:  "Delete one or more channels in a single session. With --with-children each id must be a category; its channels are deleted first.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs("channel", args)
			if err != nil {
				return err
			}
			targetKind, err := parseKindFlag(kind)
			if err != nil {
				return err
			}
			if withChildren {
				targetKind = domain.TargetCategory
			}
			if delay < 0 {
				return fmt.Errorf("%w: --delay must not be negative", domain.ErrConfig)
			}

			plan := domain.Manifest{Identity: domain.IdentityDiscord, ContinueOnError: continueOnError}
			targets := make([]domain.TargetRef, 0, len(ids))
			for _, id := range ids {
				target := domain.TargetRef{Kind: targetKind, ID: id}
				targets = append(targets, target)
				plan.Actions = append(plan.Actions, domain.DeleteEntity{Target: target, MissingOK: missingOK})
			}

			executor := app.runner.Executor()
			var steps []application.Step
			if withChildren {
				for _, target := range targets {
					steps = append(steps, executor.DeleteCategoryTreeStep(target, missingOK, delay))
				}
			} else {
				steps = executor.BulkDeleteSteps(application.BulkDelete{Targets: targets, MissingOK: missingOK, Delay: delay})
			}

			return app.runSteps(cmd, plan, steps)
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "expected kind: text, forum, category or thread")
	cmd.Flags().BoolVar(&missingOK, "missing-ok", false, "treat an already deleted channel as success")
	cmd.Flags().BoolVar(&withChildren, "with-children", false, "delete a category's channels before the category")
	cmd.Flags().DurationVar(&delay, "delay", 0, "pause between deletions, for example 1s")
	cmd.Flags().BoolVar(&continueOnError, "continue-on-error", false, "keep deleting after a failure")

	return cmd
}
