package review

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dharsanguruparan/docdesk/internal/model"
	"github.com/dharsanguruparan/docdesk/internal/storage"
)

type recordingQueue struct {
	ids  []int64
	fail map[int64]bool
}

func (q *recordingQueue) EnqueueUserNotify(_ context.Context, id int64) error {
	if q.fail[id] {
		return errors.New("redis unavailable")
	}
	q.ids = append(q.ids, id)
	return nil
}

func seed(t *testing.T, n int) *storage.MemoryStore {
	t.Helper()
	s := storage.NewMemoryStore()
	u := s.AddUser(&model.User{Username: "alice", Email: "alice@example.com"})
	for i := 0; i < n; i++ {
		require.NoError(t, s.Create(context.Background(), &model.Document{UserID: u.ID, File: "f"}))
	}
	return s
}

func TestApprove(t *testing.T) {
	ctx := context.Background()
	store := seed(t, 3)
	q := &recordingQueue{}
	svc := NewService(store, q, zap.NewNop())

	res, err := svc.Approve(ctx, []int64{1, 3})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Updated)
	assert.Equal(t, []int64{1, 3}, res.IDs)
	assert.Equal(t, "Approved documents: 2", res.Message)
	assert.Equal(t, []int64{1, 3}, q.ids)

	for id, want := range map[int64]model.Status{1: model.StatusApproved, 2: model.StatusPending, 3: model.StatusApproved} {
		d, err := store.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, d.Status, "document %d", id)
	}
}

func TestRejectSkipsApproved(t *testing.T) {
	ctx := context.Background()
	store := seed(t, 2)
	q := &recordingQueue{}
	svc := NewService(store, q, zap.NewNop())

	_, err := svc.Approve(ctx, []int64{1})
	require.NoError(t, err)
	q.ids = nil

	res, err := svc.Reject(ctx, []int64{1, 2, 99})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Updated)
	assert.Equal(t, "Rejected documents: 1", res.Message)
	assert.Equal(t, []int64{2}, q.ids)
}

func TestReapplyNotifiesAgain(t *testing.T) {
	store := seed(t, 1)
	q := &recordingQueue{}
	svc := NewService(store, q, zap.NewNop())

	for i := 0; i < 2; i++ {
		res, err := svc.Approve(context.Background(), []int64{1})
		require.NoError(t, err)
		assert.Equal(t, 1, res.Updated)
	}
	assert.Equal(t, []int64{1, 1}, q.ids)
}

func TestEmptySelection(t *testing.T) {
	svc := NewService(seed(t, 0), &recordingQueue{}, zap.NewNop())
	_, err := svc.Approve(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptySelection)
	_, err = svc.Reject(context.Background(), []int64{})
	assert.ErrorIs(t, err, ErrEmptySelection)
}

func TestNothingMatched(t *testing.T) {
	svc := NewService(seed(t, 0), &recordingQueue{}, zap.NewNop())
	res, err := svc.Reject(context.Background(), []int64{5})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Updated)
	assert.Equal(t, []int64{}, res.IDs)
	assert.Equal(t, "Rejected documents: 0", res.Message)
}

func TestEnqueueFailureKeepsStatus(t *testing.T) {
	ctx := context.Background()
	store := seed(t, 2)
	q := &recordingQueue{fail: map[int64]bool{1: true}}
	svc := NewService(store, q, zap.NewNop())

	res, err := svc.Approve(ctx, []int64{1, 2})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Updated)
	assert.Equal(t, 1, res.Enqueued)

	d, err := store.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, d.Status)
}
