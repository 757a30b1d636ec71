package migrate

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/sandeepkv93/secure-login-portal/internal/database"
	"github.com/sandeepkv93/secure-login-portal/internal/tools/common"
)

const toolName = "migrate"

func NewRootCommand() *cobra.Command {
	opts := &common.Options{}
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration tooling",
	}
	common.BindFlags(cmd, opts)

	cmd.AddCommand(
		newCommand(opts, "up", "Apply pending schema migrations", up),
		newCommand(opts, "status", "List applied and pending migrations", status),
		newCommand(opts, "plan", "Show pending migrations without applying them (dry-run)", plan),
	)
	return cmd
}

func newCommand(opts *common.Options, name, short string, fn func(context.Context, *gorm.DB) ([]string, error)) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			report := common.Run(opts, toolName, name, func(ctx context.Context) ([]string, error) {
				_, db, err := common.LoadConfigDB(opts.EnvFile)
				if err != nil {
					return nil, err
				}
				defer common.CloseDB(db)
				return fn(ctx, db)
			})
			common.Finish(opts, report)
			return nil
		},
	}
}

func up(ctx context.Context, db *gorm.DB) ([]string, error) {
	applied, err := database.Migrate(ctx, db)
	if err != nil {
		return nil, err
	}
	if len(applied) == 0 {
		return []string{"schema is up to date"}, nil
	}
	details := make([]string, 0, len(applied))
	for _, m := range applied {
		details = append(details, fmt.Sprintf("applied %s (%dms)", m.Path, m.Duration.Milliseconds()))
	}
	return details, nil
}

func status(ctx context.Context, db *gorm.DB) ([]string, error) {
	states, err := database.Status(ctx, db)
	if err != nil {
		return nil, err
	}
	details := make([]string, 0, len(states))
	for _, s := range states {
		if s.Applied {
			details = append(details, fmt.Sprintf("%s applied %s", s.Path, s.AppliedAt.UTC().Format("2006-01-02 15:04:05")))
			continue
		}
		details = append(details, fmt.Sprintf("%s pending", s.Path))
	}
	return details, nil
}

func plan(ctx context.Context, db *gorm.DB) ([]string, error) {
	states, err := database.Status(ctx, db)
	if err != nil {
		return nil, err
	}
	var details []string
	for _, s := range states {
		if !s.Applied {
			details = append(details, fmt.Sprintf("would apply %s", s.Path))
		}
	}
	if len(details) == 0 {
		return []string{"nothing to apply"}, nil
	}
	return append(details, "no mutation executed in plan mode"), nil
}
