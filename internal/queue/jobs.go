package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/dharsanguruparan/docdesk/internal/config"
)

const (
	// NotifyAdminTask is scheduled each time a document is uploaded.
	NotifyAdminTask = "document:notify_admin"
	// NotifyUserTask is scheduled once per document touched by a review action.
	NotifyUserTask = "document:notify_user"
)

var enqueueTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "docdesk_enqueue_total",
		Help: "Notification tasks handed to the queue, by task type and result.",
	},
	[]string{"task", "result"},
)

// NotifyPayload carries only the document id; the worker re-reads current
// state when the job runs.
type NotifyPayload struct {
	DocumentID int64 `json:"document_id"`
}

// NewNotifyTask builds a task of the given type for a document.
func NewNotifyTask(taskType string, documentID int64) (*asynq.Task, error) {
	data, err := json.Marshal(NotifyPayload{DocumentID: documentID})
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return asynq.NewTask(taskType, data), nil
}

// DecodeNotifyPayload parses a task payload. Undecodable payloads are wrapped
// with asynq.SkipRetry since they can never succeed.
func DecodeNotifyPayload(task *asynq.Task) (NotifyPayload, error) {
	var p NotifyPayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		return p, fmt.Errorf("decode %s payload: %v: %w", task.Type(), err, asynq.SkipRetry)
	}
	if p.DocumentID <= 0 {
		return p, fmt.Errorf("decode %s payload: missing document_id: %w", task.Type(), asynq.SkipRetry)
	}
	return p, nil
}

// RedisOpt converts the redis section into asynq's connection option.
func RedisOpt(cfg config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

// Enqueuer is the part of *asynq.Client the producer needs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Client enqueues notification jobs. Jobs are never retried.
type Client struct {
	client Enqueuer
	queue  string
}

// NewClient wraps an asynq client (or anything with EnqueueContext).
func NewClient(client Enqueuer, queueName string) *Client {
	return &Client{client: client, queue: queueName}
}

// EnqueueAdminNotify schedules the "new upload" email for the administrator.
func (c *Client) EnqueueAdminNotify(ctx context.Context, documentID int64) error {
	return c.enqueue(ctx, NotifyAdminTask, documentID)
}

// EnqueueUserNotify schedules the "status changed" email for the owner.
func (c *Client) EnqueueUserNotify(ctx context.Context, documentID int64) error {
	return c.enqueue(ctx, NotifyUserTask, documentID)
}

func (c *Client) enqueue(ctx context.Context, taskType string, documentID int64) error {
	task, err := NewNotifyTask(taskType, documentID)
	if err != nil {
		enqueueTotal.WithLabelValues(taskType, "error").Inc()
		return err
	}
	if _, err := c.client.EnqueueContext(ctx, task, asynq.Queue(c.queue), asynq.MaxRetry(0)); err != nil {
		enqueueTotal.WithLabelValues(taskType, "error").Inc()
		return fmt.Errorf("enqueue %s for document %d: %w", taskType, documentID, err)
	}
	enqueueTotal.WithLabelValues(taskType, "ok").Inc()
	return nil
}
