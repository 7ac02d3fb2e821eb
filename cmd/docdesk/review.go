package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/dharsanguruparan/docdesk/internal/database"
	"github.com/dharsanguruparan/docdesk/internal/model"
	"github.com/dharsanguruparan/docdesk/internal/queue"
	"github.com/dharsanguruparan/docdesk/internal/repository"
	"github.com/dharsanguruparan/docdesk/internal/review"
	"github.com/dharsanguruparan/docdesk/internal/s3storage"
)

func newReviewCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review",
		Short: "List documents and approve or reject them",
	}
	cmd.AddCommand(
		newReviewListCmd(a),
		newReviewActionCmd(a, "approve", "Mark documents approved and notify their owners", (*review.Service).Approve),
		newReviewActionCmd(a, "reject", "Mark documents rejected and notify their owners", (*review.Service).Reject),
	)
	return cmd
}

func newReviewListCmd(a *app) *cobra.Command {
	var (
		status string
		search string
		limit  int
		offset int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List documents with their owners, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter := model.ListFilter{Search: search, Limit: limit, Offset: offset}
			if status != "" {
				s, ok := model.ParseStatus(status)
				if !ok {
					return fmt.Errorf("unknown status %q", status)
				}
				filter.Status = s
			}
			return withPool(cmd.Context(), a, func(pool *pgxpool.Pool) error {
				items, err := repository.NewDocumentRepository(pool).List(cmd.Context(), filter)
				if err != nil {
					return err
				}
				return printItems(cmd.OutOrStdout(), items)
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Only show documents in this status (pending, approved, rejected)")
	cmd.Flags().StringVar(&search, "search", "", "Match owner username or email")
	cmd.Flags().IntVar(&limit, "limit", 100, "Maximum rows to print")
	cmd.Flags().IntVar(&offset, "offset", 0, "Rows to skip")
	return cmd
}

type reviewAction func(*review.Service, context.Context, []int64) (review.Result, error)

func newReviewActionCmd(a *app, name, short string, action reviewAction) *cobra.Command {
	return &cobra.Command{
		Use:   name + " ID...",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			return withPool(cmd.Context(), a, func(pool *pgxpool.Pool) error {
				client := asynq.NewClient(queue.RedisOpt(a.cfg.Redis))
				defer client.Close()

				svc := review.NewService(
					repository.NewDocumentRepository(pool),
					queue.NewClient(client, a.cfg.Worker.Queue),
					a.logger,
				)
				res, err := action(svc, cmd.Context(), ids)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), res.Message)
				if res.Enqueued < res.Updated {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: %d notification(s) could not be queued\n", res.Updated-res.Enqueued)
				}
				return nil
			})
		},
	}
}

func withPool(ctx context.Context, a *app, fn func(*pgxpool.Pool) error) error {
	pool, err := database.Connect(ctx, a.cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()
	return fn(pool)
}

// parseIDs converts positional arguments into document ids.
func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid document id %q", arg)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func printItems(out io.Writer, items []model.ReviewItem) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tOWNER\tEMAIL\tFILE\tSTATUS\tCREATED")
	for _, it := range items {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			it.ID,
			(&model.User{ID: it.UserID, Username: it.Username}).DisplayName(),
			it.Email,
			s3storage.FileName(it.File),
			it.Status.Label(),
			it.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	return tw.Flush()
}
