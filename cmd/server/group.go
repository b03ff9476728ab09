package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"

	sqliteRepo "github.com/sakif/yatube/internal/repository/sqlite"
	"github.com/sakif/yatube/internal/service"
)

const (
	slugFlag        = "slug"
	titleFlag       = "title"
	descriptionFlag = "description"
)

var groupCreateFlags = map[string]cobraflags.Flag{
	slugFlag: &cobraflags.StringFlag{
		Name:  slugFlag,
		Value: "",
		Usage: "URL slug: letters, digits, hyphens and underscores (required)",
	},
	titleFlag: &cobraflags.StringFlag{
		Name:  titleFlag,
		Value: "",
		Usage: "Display title (required)",
	},
	descriptionFlag: &cobraflags.StringFlag{
		Name:  descriptionFlag,
		Value: "",
		Usage: "Longer description shown on the group page",
	},
}

// newGroupCommand administers groups. The web surface only lists them.
func newGroupCommand(configFile *string) *cobra.Command {
	groupCmd := &cobra.Command{
		Use:   "group",
		Short: "Create, list and delete groups",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a group",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withGroups(*configFile, func(ctx context.Context, groups *service.GroupService) error {
				g, err := groups.Create(ctx, service.GroupForm{
					Slug:        groupCreateFlags[slugFlag].GetString(),
					Title:       groupCreateFlags[titleFlag].GetString(),
					Description: groupCreateFlags[descriptionFlag].GetString(),
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created group %s (%s)\n", g.Slug, g.ID)
				return nil
			})
		},
	}
	cobraflags.RegisterMap(createCmd, groupCreateFlags)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List groups",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withGroups(*configFile, func(ctx context.Context, groups *service.GroupService) error {
				list, err := groups.List(ctx)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "SLUG\tTITLE\tDESCRIPTION")
				for _, g := range list {
					fmt.Fprintf(tw, "%s\t%s\t%s\n", g.Slug, g.Title, g.Description)
				}
				return tw.Flush()
			})
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete SLUG",
		Short: "Delete a group; its posts stay, without a group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withGroups(*configFile, func(ctx context.Context, groups *service.GroupService) error {
				if err := groups.Delete(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted group %s\n", args[0])
				return nil
			})
		},
	}

	groupCmd.AddCommand(createCmd, listCmd, deleteCmd)
	return groupCmd
}

// withGroups opens the configured database for the length of fn.
func withGroups(configFile string, fn func(context.Context, *service.GroupService) error) error {
	cfg, logger, err := loadConfig(configFile)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return fmt.Errorf("creating database directory: %w", err)
	}
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open database", slog.String("path", cfg.DBPath), slog.String("error", err.Error()))
		return err
	}
	defer db.Close()

	return fn(context.Background(), service.NewGroupService(db, logger))
}
