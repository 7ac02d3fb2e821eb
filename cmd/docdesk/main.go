package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dharsanguruparan/docdesk/internal/config"
	"github.com/dharsanguruparan/docdesk/internal/logging"
)

// app is shared by every subcommand; PersistentPreRunE fills it in.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCommand(&app{})
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "docdesk: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docdesk",
		Short: "DocDesk operations CLI",
		Long: `docdesk runs database migrations, manages the local user mirror, issues API
tokens and performs the administrator's bulk review actions.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := logging.New(cfg.Log)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			a.cfg, a.logger = cfg, logger
			return nil
		},
	}
	cmd.AddCommand(
		newMigrateCmd(a),
		newReviewCmd(a),
		newUsersCmd(a),
		newTokenCmd(a),
	)
	return cmd
}
