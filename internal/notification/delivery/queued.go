package delivery

import (
	"context"
	"encoding/json"
	"time"

	"studentservices-api/internal/common/logger"
	"studentservices-api/internal/common/metrics"

	"github.com/redis/go-redis/v9"
)

// Task is the queue payload. Attempt counts failed deliveries so far.
type Task struct {
	Message    Message   `json:"message"`
	Attempt    int       `json:"attempt"`
	EnqueuedAt time.Time `json:"enqueued_at"`
	LastError  string    `json:"last_error,omitempty"`
}

// QueuedStrategy pushes messages onto a Redis list consumed by Worker.
type QueuedStrategy struct {
	rdb      redis.Cmdable
	queueKey string
	logger   logger.Logger
	now      func() time.Time
}

func NewQueued(rdb redis.Cmdable, queueKey string, log logger.Logger) *QueuedStrategy {
	return &QueuedStrategy{
		rdb:      rdb,
		queueKey: queueKey,
		logger:   log.WithFields(map[string]interface{}{"strategy": "queued"}),
		now:      time.Now,
	}
}

func (q *QueuedStrategy) Name() string { return "queued" }

func (q *QueuedStrategy) Send(ctx context.Context, msg *Message) Outcome {
	payload, err := json.Marshal(Task{Message: *msg, EnqueuedAt: q.now().UTC()})
	if err != nil {
		return Failed(msg.Handle, err.Error())
	}

	depth, err := q.rdb.LPush(ctx, q.queueKey, payload).Result()
	if err != nil {
		q.logger.Error("failed to enqueue notification", map[string]interface{}{
			"taskId":    msg.Handle,
			"emailType": string(msg.Kind),
			"error":     err,
		})
		return Failed(msg.Handle, "queue unavailable: "+err.Error())
	}
	metrics.NotificationQueueDepth.Set(float64(depth))

	q.logger.Debug("notification queued", map[string]interface{}{
		"taskId":    msg.Handle,
		"emailType": string(msg.Kind),
	})
	return Queued(msg.Handle)
}
