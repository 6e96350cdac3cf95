package cmd

import (
	"github.com/bnema/opsbot/internal/domain"
	"github.com/spf13/cobra"
)

func newThreadCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "thread",
		Short: "Read forum threads",
	}

	cmd.AddCommand(newThreadShowCmd(app))

	return cmd
}

func newThreadShowCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <thread-id> [limit]",
		Short: "Print a thread's messages, oldest first",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			threadID, err := parseID("thread", args[0])
			if err != nil {
				return err
			}
			limit, err := optionalLimit(args, 1)
			if err != nil {
				return err
			}

			action := domain.ReadHistory{Channel: domain.ThreadRef(threadID), Limit: limit, Order: domain.OldestFirst}
			return app.runManifest(cmd, singleActionManifest(domain.IdentityDiscord, action))
		},
	}
}
