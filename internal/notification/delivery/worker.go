package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"time"

	"studentservices-api/internal/common/logger"
	"studentservices-api/internal/common/metrics"
	"studentservices-api/internal/models"

	"github.com/redis/go-redis/v9"
)

type WorkerConfig struct {
	QueueKey string
	// ProcessingKey holds tasks between pop and acknowledgement. Worker
	// processes sharing a queue need distinct processing keys.
	ProcessingKey string
	DelayedKey    string
	Concurrency   int
	PollInterval time.Duration
	SendTimeout  time.Duration
	Retry        RetryPolicy
}

// Worker drains the notification queue, retrying failed sends with
// exponential backoff through a delayed sorted set.
type Worker struct {
	rdb    redis.Cmdable
	mailer Mailer
	ledger StatusUpdater
	cfg    WorkerConfig
	logger logger.Logger
	now    func() time.Time
}

func NewWorker(rdb redis.Cmdable, mailer Mailer, ledger StatusUpdater, cfg WorkerConfig, log logger.Logger) *Worker {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 30 * time.Second
	}
	if cfg.ProcessingKey == "" {
		cfg.ProcessingKey = cfg.QueueKey + ":processing"
	}
	return &Worker{
		rdb:    rdb,
		mailer: mailer,
		ledger: ledger,
		cfg:    cfg,
		logger: log.WithFields(map[string]interface{}{"component": "notification-worker"}),
		now:    time.Now,
	}
}

// Run blocks until ctx is cancelled. Tasks still in Redis survive shutdown.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("notification worker started", map[string]interface{}{
		"concurrency": w.cfg.Concurrency,
		"queue":       w.cfg.QueueKey,
	})

	if n, err := w.Requeue(ctx); err != nil {
		w.logger.Warn("failed to requeue in-flight notifications", map[string]interface{}{"error": err})
	} else if n > 0 {
		w.logger.Info("requeued in-flight notifications", map[string]interface{}{"count": n})
	}

	var wg sync.WaitGroup
	for i := 0; i < w.cfg.Concurrency; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			w.consume(ctx, id)
		}(i)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(w.cfg.PollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := w.PromoteDue(ctx); err != nil && ctx.Err() == nil {
					w.logger.Warn("failed to promote delayed notifications", map[string]interface{}{"error": err})
				}
			}
		}
	}()

	wg.Wait()
	w.logger.Info("notification worker stopped", nil)
}

func (w *Worker) consume(ctx context.Context, id int) {
	for {
		if ctx.Err() != nil {
			return
		}
		processed, err := w.ProcessNext(ctx)
		if err != nil && ctx.Err() == nil {
			w.logger.Warn("queue read failed", map[string]interface{}{"workerId": id, "error": err})
		}
		if processed {
			continue
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(w.cfg.PollInterval):
		}
	}
}

// ProcessNext moves one task onto the processing list, handles it and
// acknowledges it. It reports false when the queue was empty.
func (w *Worker) ProcessNext(ctx context.Context) (bool, error) {
	raw, err := w.rdb.LMove(ctx, w.cfg.QueueKey, w.cfg.ProcessingKey, "RIGHT", "LEFT").Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	var task Task
	if err := json.Unmarshal([]byte(raw), &task); err != nil {
		w.logger.Error("dropping malformed notification task", map[string]interface{}{"error": err})
	} else {
		w.Process(ctx, &task)
	}

	// Acknowledge even if ctx was cancelled mid-send: the outcome is
	// already in the ledger or the delayed set.
	if err := w.rdb.LRem(context.WithoutCancel(ctx), w.cfg.ProcessingKey, 1, raw).Err(); err != nil {
		w.logger.Warn("failed to acknowledge notification task", map[string]interface{}{"error": err})
	}
	return true, nil
}

// Requeue moves tasks left on the processing list by a stopped worker back
// onto the queue. Those tasks may be delivered twice.
func (w *Worker) Requeue(ctx context.Context) (int, error) {
	moved := 0
	for {
		err := w.rdb.LMove(ctx, w.cfg.ProcessingKey, w.cfg.QueueKey, "LEFT", "RIGHT").Err()
		if errors.Is(err, redis.Nil) {
			return moved, nil
		}
		if err != nil {
			return moved, err
		}
		moved++
	}
}

// Process attempts delivery and records the outcome in the ledger.
func (w *Worker) Process(ctx context.Context, task *Task) {
	msg := &task.Message
	sendCtx, cancel := context.WithTimeout(ctx, w.cfg.SendTimeout)
	start := time.Now()
	err := w.mailer.Send(sendCtx, msg)
	cancel()
	metrics.NotificationDeliveryDuration.WithLabelValues("queued").Observe(time.Since(start).Seconds())

	log := w.logger.WithFields(map[string]interface{}{
		"taskId":    msg.Handle,
		"emailType": string(msg.Kind),
		"requestId": msg.RequestID,
		"attempt":   task.Attempt,
	})

	if err == nil {
		sentAt := w.now().UTC()
		w.finalize(ctx, msg.Handle, models.NotificationSent, "", &sentAt)
		metrics.NotificationsDispatched.WithLabelValues(string(msg.Kind), string(models.NotificationSent)).Inc()
		log.Info("notification delivered", nil)
		return
	}

	if w.cfg.Retry.ShouldRetry(task.Attempt) {
		delay := w.cfg.Retry.Delay(task.Attempt)
		task.Attempt++
		task.LastError = err.Error()
		schedErr := w.schedule(ctx, task, w.now().Add(delay))
		if schedErr == nil {
			metrics.NotificationRetries.WithLabelValues(string(msg.Kind)).Inc()
			log.Warn("notification delivery failed, retry scheduled", map[string]interface{}{
				"error": err,
				"delay": delay.String(),
			})
			return
		}
		log.Error("failed to schedule retry", map[string]interface{}{"error": schedErr})
	}

	w.finalize(ctx, msg.Handle, models.NotificationFailed, err.Error(), nil)
	metrics.NotificationsDispatched.WithLabelValues(string(msg.Kind), string(models.NotificationFailed)).Inc()
	log.Error("notification delivery failed permanently", map[string]interface{}{"error": err})
}

func (w *Worker) finalize(ctx context.Context, handle string, status models.NotificationStatus, errMsg string, sentAt *time.Time) {
	entry, err := w.ledger.Update(ctx, handle, status, errMsg, sentAt)
	if err != nil {
		w.logger.Error("failed to update notification ledger", map[string]interface{}{
			"taskId": handle,
			"status": string(status),
			"error":  err,
		})
		return
	}
	if entry == nil {
		w.logger.Debug("no ledger entry for task", map[string]interface{}{"taskId": handle})
	}
}

func (w *Worker) schedule(ctx context.Context, task *Task, at time.Time) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return w.rdb.ZAdd(ctx, w.cfg.DelayedKey, redis.Z{
		Score:  float64(at.Unix()),
		Member: payload,
	}).Err()
}

// PromoteDue moves delayed tasks whose time has come back onto the queue.
func (w *Worker) PromoteDue(ctx context.Context) (int, error) {
	due, err := w.rdb.ZRangeByScore(ctx, w.cfg.DelayedKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(w.now().Unix(), 10),
	}).Result()
	if err != nil {
		return 0, err
	}

	moved := 0
	for _, member := range due {
		// Only the worker that removes the member requeues it.
		removed, err := w.rdb.ZRem(ctx, w.cfg.DelayedKey, member).Result()
		if err != nil {
			return moved, err
		}
		if removed == 0 {
			continue
		}
		if err := w.rdb.LPush(ctx, w.cfg.QueueKey, member).Err(); err != nil {
			return moved, err
		}
		moved++
	}

	if depth, err := w.rdb.LLen(ctx, w.cfg.QueueKey).Result(); err == nil {
		metrics.NotificationQueueDepth.Set(float64(depth))
	}
	return moved, nil
}
