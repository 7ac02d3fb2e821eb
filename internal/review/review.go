// Package review implements the administrator's bulk approve and reject
// actions shared by the HTTP admin routes and the CLI.
package review

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/dharsanguruparan/docdesk/internal/model"
)

// ErrEmptySelection is returned when an action is invoked without ids.
var ErrEmptySelection = errors.New("no documents selected")

// Store applies a status to a set of documents and returns the ids it changed.
type Store interface {
	SetStatus(ctx context.Context, ids []int64, status model.Status) ([]int64, error)
}

// Enqueuer schedules the owner's status email.
type Enqueuer interface {
	EnqueueUserNotify(ctx context.Context, documentID int64) error
}

// Result summarises one bulk action.
type Result struct {
	Updated  int     `json:"updated"`
	IDs      []int64 `json:"ids"`
	Enqueued int     `json:"-"`
	Message  string  `json:"message"`
}

// Service runs review actions.
type Service struct {
	store  Store
	queue  Enqueuer
	logger *zap.Logger
}

// NewService constructs a Service.
func NewService(store Store, queue Enqueuer, logger *zap.Logger) *Service {
	return &Service{store: store, queue: queue, logger: logger.With(zap.String("component", "review"))}
}

// Approve marks the selected documents approved.
func (s *Service) Approve(ctx context.Context, ids []int64) (Result, error) {
	return s.apply(ctx, ids, model.StatusApproved, "Approved documents: %d")
}

// Reject marks the selected documents rejected.
func (s *Service) Reject(ctx context.Context, ids []int64) (Result, error) {
	return s.apply(ctx, ids, model.StatusRejected, "Rejected documents: %d")
}

func (s *Service) apply(ctx context.Context, ids []int64, status model.Status, format string) (Result, error) {
	if len(ids) == 0 {
		return Result{}, ErrEmptySelection
	}
	updated, err := s.store.SetStatus(ctx, ids, status)
	if err != nil {
		return Result{}, fmt.Errorf("set status %s: %w", status, err)
	}

	res := Result{Updated: len(updated), IDs: updated, Message: fmt.Sprintf(format, len(updated))}
	if res.IDs == nil {
		res.IDs = []int64{}
	}
	for _, id := range updated {
		// The status change is committed; a lost email must not undo it.
		if err := s.queue.EnqueueUserNotify(ctx, id); err != nil {
			s.logger.Error("enqueue user notification", zap.Int64("document_id", id), zap.Error(err))
			continue
		}
		res.Enqueued++
	}
	s.logger.Info("review action",
		zap.String("status", string(status)),
		zap.Int("requested", len(ids)),
		zap.Int("updated", res.Updated),
		zap.Int("enqueued", res.Enqueued),
	)
	return res, nil
}
