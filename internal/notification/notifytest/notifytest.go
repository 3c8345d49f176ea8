// Package notifytest provides in-memory stand-ins for the notification
// ledger, delivery strategy and staff directory, for use in tests.
package notifytest

import (
	"context"
	"sync"
	"time"

	"studentservices-api/internal/models"
	"studentservices-api/internal/notification/delivery"
)

// MemLedger keeps ledger entries in memory with the same update rules as
// the Postgres ledger: only queued entries can be finalized.
type MemLedger struct {
	mu      sync.Mutex
	entries []*models.NotificationRecord
	nextID  int64
}

func (l *MemLedger) Record(_ context.Context, e *models.NotificationRecord) (*models.NotificationRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextID++
	c := *e
	c.ID = l.nextID
	c.CreatedAt = time.Now().UTC()
	c.UpdatedAt = c.CreatedAt
	l.entries = append(l.entries, &c)
	out := c
	return &out, nil
}

func (l *MemLedger) Update(_ context.Context, handle string, status models.NotificationStatus, errMsg string, sentAt *time.Time) (*models.NotificationRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if e.TaskID != handle || e.Status != models.NotificationQueued {
			continue
		}
		e.Status = status
		if errMsg != "" {
			e.ErrorMessage = errMsg
		}
		if sentAt != nil {
			t := *sentAt
			e.SentAt = &t
		}
		out := *e
		return &out, nil
	}
	return nil, nil
}

// Entries returns a snapshot of every recorded entry.
func (l *MemLedger) Entries() []models.NotificationRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]models.NotificationRecord, 0, len(l.entries))
	for _, e := range l.entries {
		out = append(out, *e)
	}
	return out
}

// OfKind returns the entries of one kind.
func (l *MemLedger) OfKind(kind models.NotificationKind) []models.NotificationRecord {
	var out []models.NotificationRecord
	for _, e := range l.Entries() {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// Strategy records every message and answers with Outcome, sent when unset.
type Strategy struct {
	mu       sync.Mutex
	Outcome  func(msg *delivery.Message) delivery.Outcome
	messages []delivery.Message
}

func (s *Strategy) Name() string { return "test" }

func (s *Strategy) Send(_ context.Context, msg *delivery.Message) delivery.Outcome {
	s.mu.Lock()
	s.messages = append(s.messages, *msg)
	s.mu.Unlock()
	if s.Outcome != nil {
		return s.Outcome(msg)
	}
	return delivery.Sent(msg.Handle)
}

func (s *Strategy) Messages() []delivery.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]delivery.Message(nil), s.messages...)
}

// Staff is a fixed staff directory.
type Staff struct {
	Emails []string
	Err    error
}

func (s Staff) StaffEmails(context.Context) ([]string, error) {
	return s.Emails, s.Err
}
