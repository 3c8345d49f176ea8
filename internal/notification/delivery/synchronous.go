package delivery

import (
	"context"
	"time"

	"studentservices-api/internal/common/logger"
	"studentservices-api/internal/common/metrics"
)

// Synchronous sends inline, blocking the caller for the transport's duration.
type Synchronous struct {
	mailer Mailer
	logger logger.Logger
}

func NewSynchronous(mailer Mailer, log logger.Logger) *Synchronous {
	return &Synchronous{
		mailer: mailer,
		logger: log.WithFields(map[string]interface{}{"strategy": "sync"}),
	}
}

func (s *Synchronous) Name() string { return "sync" }

func (s *Synchronous) Send(ctx context.Context, msg *Message) Outcome {
	start := time.Now()
	err := s.mailer.Send(ctx, msg)
	metrics.NotificationDeliveryDuration.WithLabelValues(s.Name()).Observe(time.Since(start).Seconds())

	if err != nil {
		s.logger.Error("synchronous delivery failed", map[string]interface{}{
			"taskId":    msg.Handle,
			"emailType": string(msg.Kind),
			"transport": s.mailer.Name(),
			"error":     err,
		})
		return Failed(msg.Handle, err.Error())
	}
	return Sent(msg.Handle)
}
