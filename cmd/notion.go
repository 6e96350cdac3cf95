package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/bnema/opsbot/internal/adapters/httpjson"
	outcomeadapter "github.com/bnema/opsbot/internal/adapters/render/outcome"
	"github.com/bnema/opsbot/internal/domain"
	"github.com/spf13/cobra"
)

func newNotionCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notion",
		Short: "Create, update, query and search Notion pages",
	}

	page := &cobra.Command{
		Use:   "page",
		Short: "Create and update database pages",
	}
	page.AddCommand(
		newNotionPageCreateCmd(app),
		newNotionPageUpdateCmd(app),
	)

	cmd.AddCommand(
		page,
		newNotionQueryCmd(app),
		newNotionSearchCmd(app),
	)

	return cmd
}

func newNotionPageCreateCmd(app *app) *cobra.Command {
	var (
		propertiesFile string
		childrenFile   string
		scope          string
	)

	cmd := &cobra.Command{
		Use:   "create <database-id>",
		Short: "Insert a page into a database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			properties, err := readJSONObject(propertiesFile)
			if err != nil {
				return err
			}
			var children []any
			if childrenFile != "" {
				if err := readJSONFile(childrenFile, &children); err != nil {
					return err
				}
			}

			return app.notionCall(cmd, scope, func(ctx context.Context, token string) (httpjson.Response, error) {
				return app.notion.CreatePage(ctx, token, args[0], properties, children)
			})
		},
	}

	cmd.Flags().StringVar(&propertiesFile, "properties-file", "", "JSON file with the page properties")
	cmd.Flags().StringVar(&childrenFile, "children-file", "", "JSON file with an array of content blocks")
	addScopeFlag(cmd, &scope)
	_ = cmd.MarkFlagRequired("properties-file")

	return cmd
}

func newNotionPageUpdateCmd(app *app) *cobra.Command {
	var (
		propertiesFile string
		scope          string
	)

	cmd := &cobra.Command{
		Use:   "update <page-id>",
		Short: "Update the properties of a page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			properties, err := readJSONObject(propertiesFile)
			if err != nil {
				return err
			}

			return app.notionCall(cmd, scope, func(ctx context.Context, token string) (httpjson.Response, error) {
				return app.notion.UpdatePage(ctx, token, args[0], properties)
			})
		},
	}

	cmd.Flags().StringVar(&propertiesFile, "properties-file", "", "JSON file with the properties to change")
	addScopeFlag(cmd, &scope)
	_ = cmd.MarkFlagRequired("properties-file")

	return cmd
}

func newNotionQueryCmd(app *app) *cobra.Command {
	var (
		filterFile string
		scope      string
	)

	cmd := &cobra.Command{
		Use:   "query <database-id>",
		Short: "Query a database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var query map[string]any
			if filterFile != "" {
				var err error
				if query, err = readJSONObject(filterFile); err != nil {
					return err
				}
			}

			return app.notionCall(cmd, scope, func(ctx context.Context, token string) (httpjson.Response, error) {
				return app.notion.QueryDatabase(ctx, token, args[0], query)
			})
		},
	}

	cmd.Flags().StringVar(&filterFile, "filter-file", "", "JSON file with the query body (filter, sorts)")
	addScopeFlag(cmd, &scope)

	return cmd
}

func newNotionSearchCmd(app *app) *cobra.Command {
	var (
		object string
		scope  string
	)

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search pages and databases shared with the integration",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			var filter map[string]any
			if object != "" {
				filter = map[string]any{"property": "object", "value": object}
			}

			return app.notionCall(cmd, scope, func(ctx context.Context, token string) (httpjson.Response, error) {
				return app.notion.Search(ctx, token, text, filter)
			})
		},
	}

	cmd.Flags().StringVar(&object, "object", "", "restrict results to page or database")
	addScopeFlag(cmd, &scope)

	return cmd
}

func addScopeFlag(cmd *cobra.Command, scope *string) {
	cmd.Flags().StringVar(scope, "scope", string(domain.NotionScopeDefault), "token scope: default, task, order, rice or sake")
}

// notionCall resolves the scoped token, runs call and prints the JSON answer.
func (a *app) notionCall(cmd *cobra.Command, rawScope string, call func(context.Context, string) (httpjson.Response, error)) error {
	scope, err := domain.ParseNotionScope(rawScope)
	if err != nil {
		return err
	}
	credentials, err := a.credentials.Load(cmd.Context())
	if err != nil {
		return fmt.Errorf("load credentials: %w", err)
	}
	token, err := credentials.NotionToken(scope)
	if err != nil {
		return err
	}

	resp, err := call(cmd.Context(), token)
	if err != nil {
		return err
	}
	if err := resp.Err(); err != nil {
		return fmt.Errorf("notion: %w", err)
	}

	return outcomeadapter.WriteJSON(cmd.OutOrStdout(), resp.Body)
}

func readJSONObject(path string) (map[string]any, error) {
	var object map[string]any
	if err := readJSONFile(path, &object); err != nil {
		return nil, err
	}
	if object == nil {
		return nil, fmt.Errorf("%w: %s must hold a JSON object", domain.ErrConfig, path)
	}
	return object, nil
}

func readJSONFile(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: read %s: %w", domain.ErrConfig, path, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: decode %s: %w", domain.ErrConfig, path, err)
	}
	return nil
}
