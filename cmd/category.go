package cmd

import (
	"github.com/bnema/opsbot/internal/domain"
	"github.com/spf13/cobra"
)

func newCategoryCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "category",
		Short: "Create categories and set their permission overwrites",
	}

	cmd.AddCommand(
		newCategoryCreateCmd(app),
		newCategoryOverwritesCmd(app),
	)

	return cmd
}

func newCategoryCreateCmd(app *app) *cobra.Command {
	var (
		roles     []string
		members   []string
		ifMissing bool
	)

	cmd := &cobra.Command{
		Use:   "create <guild-id> <name>",
		Short: "Create a category",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			guildID, err := parseID("guild", args[0])
			if err != nil {
				return err
			}
			overwrites, err := collectOverwrites(roles, members)
			if err != nil {
				return err
			}

			action := domain.CreateCategory{
				Guild:      domain.GuildRef(guildID),
				Name:       args[1],
				Overwrites: overwrites,
				IfMissing:  ifMissing,
			}
			return app.runManifest(cmd, singleActionManifest(domain.IdentityDiscord, action))
		},
	}

	cmd.Flags().StringArrayVar(&roles, "role", nil, "role overwrite as id=allow/deny (repeatable)")
	cmd.Flags().StringArrayVar(&members, "member", nil, "member overwrite as id=allow/deny (repeatable)")
	cmd.Flags().BoolVar(&ifMissing, "if-missing", false, "reuse a category with the same name")

	return cmd
}

func newCategoryOverwritesCmd(app *app) *cobra.Command {
	var (
		roles   []string
		members []string
	)

	cmd := &cobra.Command{
		Use:   "overwrites <category-id>",
		Short: "Apply permission overwrites to a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			categoryID, err := parseID("category", args[0])
			if err != nil {
				return err
			}
			overwrites, err := collectOverwrites(roles, members)
			if err != nil {
				return err
			}

			action := domain.SetCategoryOverwrites{Category: domain.CategoryRef(categoryID), Overwrites: overwrites}
			return app.runManifest(cmd, singleActionManifest(domain.IdentityDiscord, action))
		},
	}

	cmd.Flags().StringArrayVar(&roles, "role", nil, "role overwrite as id=allow/deny (repeatable)")
	cmd.Flags().StringArrayVar(&members, "member", nil, "member overwrite as id=allow/deny (repeatable)")

	return cmd
}

func collectOverwrites(roles, members []string) ([]domain.PermissionOverwrite, error) {
	roleOverwrites, err := parseOverwrites(roles, domain.OverwriteRole)
	if err != nil {
		return nil, err
	}
	memberOverwrites, err := parseOverwrites(members, domain.OverwriteMember)
	if err != nil {
		return nil, err
	}
	overwrites := append(roleOverwrites, memberOverwrites...)
	if len(overwrites) == 0 {
		return nil, nil
	}
	return overwrites, nil
}
