// Package delivery transmits rendered notifications. The dispatcher talks to
// a single Strategy chosen at startup and never inspects which one it is.
package delivery

import (
	"context"
	"time"

	"studentservices-api/internal/models"
)

// Message is a rendered notification ready to send.
type Message struct {
	Handle           string                  `json:"handle"`
	Kind             models.NotificationKind `json:"kind"`
	RequestID        int64                   `json:"request_id"`
	From             string                  `json:"from"`
	To               []string                `json:"to"`
	Subject          string                  `json:"subject"`
	HTMLBody         string                  `json:"html_body"`
	PlainBody        string                  `json:"plain_body"`
	NotificationType string                  `json:"notification_type,omitempty"`
}

// Outcome is what a strategy learned from a single Send call.
type Outcome struct {
	Status models.NotificationStatus
	Handle string
	Reason string
}

func Sent(handle string) Outcome {
	return Outcome{Status: models.NotificationSent, Handle: handle}
}

func Failed(handle, reason string) Outcome {
	return Outcome{Status: models.NotificationFailed, Handle: handle, Reason: reason}
}

func Queued(handle string) Outcome {
	return Outcome{Status: models.NotificationQueued, Handle: handle}
}

type Strategy interface {
	Name() string
	Send(ctx context.Context, msg *Message) Outcome
}

// Mailer performs the actual transmission of one message.
type Mailer interface {
	Name() string
	Send(ctx context.Context, msg *Message) error
}

// StatusUpdater finalizes ledger entries keyed by the task handle.
type StatusUpdater interface {
	Update(ctx context.Context, handle string, status models.NotificationStatus, errMsg string, sentAt *time.Time) (*models.NotificationRecord, error)
}
