package main

import (
	"github.com/spf13/cobra"

	"github.com/dharsanguruparan/docdesk/internal/database"
)

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return database.Migrate(a.cfg.Database.URL, a.logger)
		},
	}
}
