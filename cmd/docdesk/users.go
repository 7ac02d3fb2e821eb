package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/dharsanguruparan/docdesk/internal/api/middleware"
	"github.com/dharsanguruparan/docdesk/internal/model"
	"github.com/dharsanguruparan/docdesk/internal/repository"
)

func newUsersCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage the local user mirror",
	}
	cmd.AddCommand(newUsersCreateCmd(a))
	return cmd
}

func newUsersCreateCmd(a *app) *cobra.Command {
	var (
		email string
		staff bool
	)
	cmd := &cobra.Command{
		Use:   "create USERNAME",
		Short: "Create a user that can upload documents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u := &model.User{Username: args[0], Email: email, IsStaff: staff}
			return withPool(cmd.Context(), a, func(pool *pgxpool.Pool) error {
				if err := repository.NewUserRepository(pool).Create(cmd.Context(), u); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created user %s (id %d)\n", u.Username, u.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Address status emails are sent to")
	cmd.Flags().BoolVar(&staff, "staff", false, "Allow the user to review documents")
	return cmd
}

func newTokenCmd(a *app) *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token USER_ID",
		Short: "Issue an API bearer token for an existing user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid user id %q", args[0])
			}
			auth, err := middleware.NewJWTAuth(a.cfg.Auth.JWTSecret, a.cfg.Auth.Issuer, a.cfg.Auth.Leeway, a.logger)
			if err != nil {
				return err
			}
			return withPool(cmd.Context(), a, func(pool *pgxpool.Pool) error {
				u, err := repository.NewUserRepository(pool).Get(cmd.Context(), id)
				if err != nil {
					return err
				}
				token, err := auth.Sign(middleware.Claims{UserID: u.ID, Username: u.Username, Email: u.Email, IsStaff: u.IsStaff}, ttl)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), token)
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	return cmd
}
