package notify

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/dharsanguruparan/docdesk/internal/mail"
	"github.com/dharsanguruparan/docdesk/internal/model"
	"github.com/dharsanguruparan/docdesk/internal/queue"
	"github.com/dharsanguruparan/docdesk/internal/storage"
)

type recordingMailer struct {
	mu   sync.Mutex
	sent []mail.Message
	err  error
}

func (r *recordingMailer) Send(_ context.Context, msg mail.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, msg)
	return nil
}

type fixture struct {
	store  *storage.MemoryStore
	mailer *recordingMailer
	n      *Notifier
	logs   *observer.ObservedLogs
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	store := storage.NewMemoryStore()
	mailer := &recordingMailer{}
	n := NewNotifier(store, store.Users(), mailer, "noreply@docdesk.test", "admin@docdesk.test", zap.New(core))
	return &fixture{store: store, mailer: mailer, n: n, logs: logs}
}

func (f *fixture) upload(t *testing.T, owner *model.User) *model.Document {
	t.Helper()
	doc := &model.Document{UserID: owner.ID, File: "documents/x/report.pdf"}
	require.NoError(t, f.store.Create(context.Background(), doc))
	return doc
}

func TestNotifyAdmin(t *testing.T) {
	f := newFixture(t)
	alice := f.store.AddUser(&model.User{Username: "alice", Email: "alice@example.com"})
	doc := f.upload(t, alice)

	require.NoError(t, f.n.NotifyAdmin(context.Background(), doc.ID))

	require.Len(t, f.mailer.sent, 1)
	msg := f.mailer.sent[0]
	assert.Equal(t, "noreply@docdesk.test", msg.From)
	assert.Equal(t, []string{"admin@docdesk.test"}, msg.To)
	assert.Equal(t, "New document uploaded", msg.Subject)
	assert.Equal(t, "User alice uploaded a new document (ID: 1).\nStatus: pending.", msg.Body)
}

func TestNotifyAdminTwiceSendsTwice(t *testing.T) {
	f := newFixture(t)
	alice := f.store.AddUser(&model.User{Username: "alice", Email: "alice@example.com"})
	doc := f.upload(t, alice)

	require.NoError(t, f.n.NotifyAdmin(context.Background(), doc.ID))
	require.NoError(t, f.n.NotifyAdmin(context.Background(), doc.ID))
	assert.Len(t, f.mailer.sent, 2)
}

func TestNotifyAdminFallbackName(t *testing.T) {
	f := newFixture(t)
	ghost := f.store.AddUser(&model.User{Username: "ghost"})
	doc := f.upload(t, ghost)
	users := &failingUsers{err: model.ErrNotFound}
	n := NewNotifier(f.store, users, f.mailer, "noreply@docdesk.test", "admin@docdesk.test", zap.NewNop())

	require.NoError(t, n.NotifyAdmin(context.Background(), doc.ID))
	require.Len(t, f.mailer.sent, 1)
	assert.Contains(t, f.mailer.sent[0].Body, "User user #1 uploaded")
}

func TestNotifyUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.store.AddUser(&model.User{Username: "alice", Email: "alice@example.com"})
	doc := f.upload(t, alice)
	_, err := f.store.SetStatus(ctx, []int64{doc.ID}, model.StatusRejected)
	require.NoError(t, err)

	require.NoError(t, f.n.NotifyUser(ctx, doc.ID))

	require.Len(t, f.mailer.sent, 1)
	msg := f.mailer.sent[0]
	assert.Equal(t, []string{"alice@example.com"}, msg.To)
	assert.Equal(t, "Your document status has been updated", msg.Subject)
	assert.Equal(t, "Your document (ID: 1) has been rejected.", msg.Body)
}

func TestMissingRecordsAreSilent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	assert.NoError(t, f.n.NotifyAdmin(ctx, 404))
	assert.NoError(t, f.n.NotifyUser(ctx, 404))

	alice := f.store.AddUser(&model.User{Username: "alice", Email: "alice@example.com"})
	doc := f.upload(t, alice)
	f.store.DeleteDocument(doc.ID)
	assert.NoError(t, f.n.NotifyUser(ctx, doc.ID))

	assert.Empty(t, f.mailer.sent)
	assert.Equal(t, 3, f.logs.FilterMessage("notification skipped").Len())
}

func TestNotifyUserMissingOwnerIsSilent(t *testing.T) {
	f := newFixture(t)
	alice := f.store.AddUser(&model.User{Username: "alice", Email: "alice@example.com"})
	doc := f.upload(t, alice)
	n := NewNotifier(f.store, &failingUsers{err: model.ErrNotFound}, f.mailer, "a@b.c", "d@e.f", zap.NewNop())

	assert.NoError(t, n.NotifyUser(context.Background(), doc.ID))
	assert.Empty(t, f.mailer.sent)
}

func TestDeliveryFailureSuppressed(t *testing.T) {
	f := newFixture(t)
	f.mailer.err = errors.New("smtp: connection refused")
	alice := f.store.AddUser(&model.User{Username: "alice", Email: "alice@example.com"})
	doc := f.upload(t, alice)

	assert.NoError(t, f.n.NotifyAdmin(context.Background(), doc.ID))
	assert.NoError(t, f.n.NotifyUser(context.Background(), doc.ID))

	warns := f.logs.FilterLevelExact(zapcore.WarnLevel).All()
	require.Len(t, warns, 2)
	assert.Equal(t, "notification not delivered", warns[0].Message)
}

func TestLookupErrorsReturned(t *testing.T) {
	f := newFixture(t)
	alice := f.store.AddUser(&model.User{Username: "alice", Email: "alice@example.com"})
	doc := f.upload(t, alice)
	boom := errors.New("connection reset")
	n := NewNotifier(f.store, &failingUsers{err: boom}, f.mailer, "a@b.c", "d@e.f", zap.NewNop())

	assert.ErrorIs(t, n.NotifyAdmin(context.Background(), doc.ID), boom)
	assert.ErrorIs(t, n.NotifyUser(context.Background(), doc.ID), boom)
	assert.Empty(t, f.mailer.sent)
}

func TestHandlerRoutesTasks(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.store.AddUser(&model.User{Username: "alice", Email: "alice@example.com"})
	doc := f.upload(t, alice)
	mux := f.n.Handler()

	adminTask, err := queue.NewNotifyTask(queue.NotifyAdminTask, doc.ID)
	require.NoError(t, err)
	userTask, err := queue.NewNotifyTask(queue.NotifyUserTask, doc.ID)
	require.NoError(t, err)

	require.NoError(t, mux.ProcessTask(ctx, adminTask))
	require.NoError(t, mux.ProcessTask(ctx, userTask))
	require.Len(t, f.mailer.sent, 2)
	assert.Equal(t, []string{"admin@docdesk.test"}, f.mailer.sent[0].To)
	assert.Equal(t, []string{"alice@example.com"}, f.mailer.sent[1].To)

	err = mux.ProcessTask(ctx, asynq.NewTask(queue.NotifyUserTask, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

type failingUsers struct {
	err error
}

func (f *failingUsers) Get(context.Context, int64) (*model.User, error) {
	return nil, f.err
}
