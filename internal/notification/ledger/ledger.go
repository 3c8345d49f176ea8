// Package ledger is the durable audit trail of notification attempts.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "studentservices-api/internal/common/errors"
	"studentservices-api/internal/common/logger"
	"studentservices-api/internal/models"
	"studentservices-api/internal/notification/delivery"

	"github.com/google/uuid"
)

const entryColumns = `id, service_request_id, email_type, recipient_email, language, status, subject,
	notification_type, sent_at, error_message, task_id, created_at, updated_at`

// Resender re-renders and resubmits the notification an entry describes,
// using the given handle, without writing a new entry.
type Resender interface {
	Resend(ctx context.Context, entry *models.NotificationRecord, handle string) (delivery.Outcome, error)
}

type Ledger struct {
	db     *sql.DB
	logger logger.Logger
	now    func() time.Time
}

func New(db *sql.DB, log logger.Logger) *Ledger {
	return &Ledger{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "ledger"}),
		now:    time.Now,
	}
}

// Record inserts a new entry and returns it with its id and timestamps.
func (l *Ledger) Record(ctx context.Context, e *models.NotificationRecord) (*models.NotificationRecord, error) {
	if e.Status == "" {
		e.Status = models.NotificationQueued
	}
	if e.Language == "" {
		e.Language = models.LanguageEnglish
	}
	subject := e.Subject
	if len([]rune(subject)) > 200 {
		subject = string([]rune(subject)[:200])
	}

	query := `INSERT INTO email_notifications
		(service_request_id, email_type, recipient_email, language, status, subject,
		 notification_type, sent_at, error_message, task_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
		RETURNING ` + entryColumns

	now := l.now().UTC()
	row := l.db.QueryRowContext(ctx, query,
		e.ServiceRequestID, string(e.Kind), e.Recipient, string(e.Language), string(e.Status), subject,
		e.NotificationType, nullTime(e.SentAt), e.ErrorMessage, e.TaskID, now,
	)
	out, err := scanEntry(row)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("record notification", err)
	}
	return out, nil
}

// Update finalizes the queued entry keyed by handle. It returns (nil, nil)
// when no queued entry carries that handle.
func (l *Ledger) Update(ctx context.Context, handle string, status models.NotificationStatus, errMsg string, sentAt *time.Time) (*models.NotificationRecord, error) {
	if handle == "" {
		return nil, nil
	}

	query := `UPDATE email_notifications
		SET status = $1,
			error_message = CASE WHEN $2 <> '' THEN $2 ELSE error_message END,
			sent_at = COALESCE($3, sent_at),
			updated_at = $4
		WHERE task_id = $5 AND status = 'queued'
		RETURNING ` + entryColumns

	row := l.db.QueryRowContext(ctx, query, string(status), errMsg, nullTime(sentAt), l.now().UTC(), handle)
	out, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("update notification", err)
	}
	return out, nil
}

func (l *Ledger) Get(ctx context.Context, id int64) (*models.NotificationRecord, error) {
	query := `SELECT ` + entryColumns + ` FROM email_notifications WHERE id = $1`
	out, err := scanEntry(l.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError("Notification", id)
	}
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("get notification", err)
	}
	return out, nil
}

type ListFilter struct {
	Status    models.NotificationStatus
	Kind      models.NotificationKind
	Language  models.Language
	RequestID int64
	Limit     int
	Offset    int
}

func (l *Ledger) List(ctx context.Context, f ListFilter) ([]*models.NotificationRecord, int, error) {
	var (
		where []string
		args  []interface{}
	)
	add := func(cond string, v interface{}) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}
	if f.Kind != "" {
		add("email_type = $%d", string(f.Kind))
	}
	if f.Language != "" {
		add("language = $%d", string(f.Language))
	}
	if f.RequestID > 0 {
		add("service_request_id = $%d", f.RequestID)
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := l.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM email_notifications`+clause, args...).Scan(&total); err != nil {
		return nil, 0, apperrors.NewQueryExecutionFailedError("count notifications", err)
	}

	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	args = append(args, limit, f.Offset)
	query := fmt.Sprintf(`SELECT %s FROM email_notifications%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		entryColumns, clause, len(args)-1, len(args))

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, apperrors.NewQueryExecutionFailedError("list notifications", err)
	}
	defer rows.Close()

	var out []*models.NotificationRecord
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, 0, apperrors.NewQueryExecutionFailedError("scan notification", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperrors.NewQueryExecutionFailedError("list notifications", err)
	}
	return out, total, nil
}

// Retry resubmits a failed entry. The entry moves to queued with a fresh
// handle before the message is handed to the delivery strategy.
func (l *Ledger) Retry(ctx context.Context, id int64, via Resender) (*models.NotificationRecord, error) {
	entry, err := l.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if entry.Status != models.NotificationFailed {
		return nil, apperrors.NewInvalidRetryStateError(id, string(entry.Status))
	}

	handle := uuid.NewString()
	query := `UPDATE email_notifications
		SET status = 'queued', task_id = $1, error_message = '', updated_at = $2
		WHERE id = $3 AND status = 'failed'
		RETURNING ` + entryColumns
	requeued, err := scanEntry(l.db.QueryRowContext(ctx, query, handle, l.now().UTC(), id))
	if errors.Is(err, sql.ErrNoRows) {
		// Someone else retried it between the read and the update.
		return nil, apperrors.NewInvalidRetryStateError(id, string(models.NotificationQueued))
	}
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("requeue notification", err)
	}

	log := l.logger.WithFields(map[string]interface{}{
		"notificationId": id,
		"taskId":         handle,
		"emailType":      string(entry.Kind),
	})

	outcome, err := via.Resend(ctx, requeued, handle)
	if err != nil {
		log.Error("retry dispatch failed", map[string]interface{}{"error": err})
		if updated, uerr := l.Update(ctx, handle, models.NotificationFailed, err.Error(), nil); uerr == nil && updated != nil {
			requeued = updated
		}
		return requeued, nil
	}

	switch outcome.Status {
	case models.NotificationSent:
		sentAt := l.now().UTC()
		if updated, uerr := l.Update(ctx, handle, models.NotificationSent, "", &sentAt); uerr == nil && updated != nil {
			requeued = updated
		}
	case models.NotificationFailed:
		if updated, uerr := l.Update(ctx, handle, models.NotificationFailed, outcome.Reason, nil); uerr == nil && updated != nil {
			requeued = updated
		}
	}

	log.Info("notification retried", map[string]interface{}{"status": string(requeued.Status)})
	return requeued, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(row rowScanner) (*models.NotificationRecord, error) {
	var (
		e      models.NotificationRecord
		kind   string
		lang   string
		status string
		sentAt sql.NullTime
	)
	if err := row.Scan(
		&e.ID, &e.ServiceRequestID, &kind, &e.Recipient, &lang, &status, &e.Subject,
		&e.NotificationType, &sentAt, &e.ErrorMessage, &e.TaskID, &e.CreatedAt, &e.UpdatedAt,
	); err != nil {
		return nil, err
	}
	e.Kind = models.NotificationKind(kind)
	e.Language = models.Language(lang)
	e.Status = models.NotificationStatus(status)
	if sentAt.Valid {
		t := sentAt.Time
		e.SentAt = &t
	}
	return &e, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
