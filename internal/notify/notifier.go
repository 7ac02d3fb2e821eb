// Package notify executes the notification jobs scheduled by the API and the
// review service.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/dharsanguruparan/docdesk/internal/mail"
	"github.com/dharsanguruparan/docdesk/internal/model"
	"github.com/dharsanguruparan/docdesk/internal/queue"
)

const (
	adminSubject = "New document uploaded"
	userSubject  = "Your document status has been updated"
)

var notificationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "docdesk_notifications_total",
		Help: "Notification jobs by kind and result (sent, failed, skipped).",
	},
	[]string{"kind", "result"},
)

// Documents is the read side of the document store.
type Documents interface {
	Get(ctx context.Context, id int64) (*model.Document, error)
}

// Users looks up document owners.
type Users interface {
	Get(ctx context.Context, id int64) (*model.User, error)
}

// Notifier builds and sends the two notification emails.
type Notifier struct {
	docs       Documents
	users      Users
	mailer     mail.Mailer
	from       string
	adminEmail string
	logger     *zap.Logger
}

// NewNotifier constructs a Notifier. from and adminEmail come from the mail
// config section.
func NewNotifier(docs Documents, users Users, mailer mail.Mailer, from, adminEmail string, logger *zap.Logger) *Notifier {
	return &Notifier{
		docs:       docs,
		users:      users,
		mailer:     mailer,
		from:       from,
		adminEmail: adminEmail,
		logger:     logger.With(zap.String("component", "notify")),
	}
}

// Handler registers both job handlers.
func (n *Notifier) Handler() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.NotifyAdminTask, n.handleAdmin)
	mux.HandleFunc(queue.NotifyUserTask, n.handleUser)
	return mux
}

func (n *Notifier) handleAdmin(ctx context.Context, task *asynq.Task) error {
	p, err := queue.DecodeNotifyPayload(task)
	if err != nil {
		return err
	}
	return n.NotifyAdmin(ctx, p.DocumentID)
}

func (n *Notifier) handleUser(ctx context.Context, task *asynq.Task) error {
	p, err := queue.DecodeNotifyPayload(task)
	if err != nil {
		return err
	}
	return n.NotifyUser(ctx, p.DocumentID)
}

// NotifyAdmin tells the administrator about a new upload. A document that no
// longer exists is not an error.
func (n *Notifier) NotifyAdmin(ctx context.Context, documentID int64) error {
	doc, err := n.docs.Get(ctx, documentID)
	if errors.Is(err, model.ErrNotFound) {
		n.skip("admin", documentID, "document")
		return nil
	}
	if err != nil {
		return fmt.Errorf("load document %d: %w", documentID, err)
	}

	name := (&model.User{ID: doc.UserID}).DisplayName()
	user, err := n.users.Get(ctx, doc.UserID)
	switch {
	case err == nil:
		name = user.DisplayName()
	case !errors.Is(err, model.ErrNotFound):
		return fmt.Errorf("load user %d: %w", doc.UserID, err)
	}

	body := fmt.Sprintf("User %s uploaded a new document (ID: %d).\nStatus: %s.", name, doc.ID, doc.Status)
	n.deliver(ctx, "admin", doc.ID, mail.Message{
		From:    n.from,
		To:      []string{n.adminEmail},
		Subject: adminSubject,
		Body:    body,
	})
	return nil
}

// NotifyUser tells the owner the current status of their document.
func (n *Notifier) NotifyUser(ctx context.Context, documentID int64) error {
	doc, err := n.docs.Get(ctx, documentID)
	if errors.Is(err, model.ErrNotFound) {
		n.skip("user", documentID, "document")
		return nil
	}
	if err != nil {
		return fmt.Errorf("load document %d: %w", documentID, err)
	}
	user, err := n.users.Get(ctx, doc.UserID)
	if errors.Is(err, model.ErrNotFound) {
		n.skip("user", documentID, "owner")
		return nil
	}
	if err != nil {
		return fmt.Errorf("load user %d: %w", doc.UserID, err)
	}

	body := fmt.Sprintf("Your document (ID: %d) has been %s.", doc.ID, strings.ToLower(doc.Status.Label()))
	n.deliver(ctx, "user", doc.ID, mail.Message{
		From:    n.from,
		To:      []string{user.Email},
		Subject: userSubject,
		Body:    body,
	})
	return nil
}

// deliver sends msg. Failures are logged and counted, never returned.
func (n *Notifier) deliver(ctx context.Context, kind string, documentID int64, msg mail.Message) {
	if err := n.mailer.Send(ctx, msg); err != nil {
		notificationsTotal.WithLabelValues(kind, "failed").Inc()
		n.logger.Warn("notification not delivered",
			zap.String("kind", kind),
			zap.Int64("document_id", documentID),
			zap.Error(err),
		)
		return
	}
	notificationsTotal.WithLabelValues(kind, "sent").Inc()
	n.logger.Debug("notification sent", zap.String("kind", kind), zap.Int64("document_id", documentID))
}

func (n *Notifier) skip(kind string, documentID int64, missing string) {
	notificationsTotal.WithLabelValues(kind, "skipped").Inc()
	n.logger.Info("notification skipped",
		zap.String("kind", kind),
		zap.Int64("document_id", documentID),
		zap.String("missing", missing),
	)
}
