package ledger

import (
	"context"
	"time"

	apperrors "studentservices-api/internal/common/errors"
	"studentservices-api/internal/models"
)

type Stats struct {
	Total      int            `json:"total"`
	Sent       int            `json:"sent"`
	Failed     int            `json:"failed"`
	Queued     int            `json:"queued"`
	Bounced    int            `json:"bounced"`
	ByType     map[string]int `json:"by_type"`
	ByLanguage map[string]int `json:"by_language"`
	Days       int            `json:"period_days"`
}

// Failure is one row of the recent failures report.
type Failure struct {
	ID               int64     `json:"id"`
	ServiceRequestID int64     `json:"service_request_id"`
	ProjectTitle     string    `json:"project_title"`
	EmailType        string    `json:"email_type"`
	Recipient        string    `json:"recipient"`
	ErrorMessage     string    `json:"error_message"`
	CreatedAt        time.Time `json:"created_at"`
}

// Stats counts entries created in the last days days. days <= 0 counts all.
func (l *Ledger) Stats(ctx context.Context, days int) (*Stats, error) {
	var cutoff time.Time
	if days > 0 {
		cutoff = l.now().UTC().AddDate(0, 0, -days)
	}

	query := `SELECT
		COUNT(*),
		COUNT(*) FILTER (WHERE status = 'sent'),
		COUNT(*) FILTER (WHERE status = 'failed'),
		COUNT(*) FILTER (WHERE status = 'queued'),
		COUNT(*) FILTER (WHERE status = 'bounced'),
		COUNT(*) FILTER (WHERE email_type = 'confirmation'),
		COUNT(*) FILTER (WHERE email_type = 'status_update'),
		COUNT(*) FILTER (WHERE email_type = 'admin_notification'),
		COUNT(*) FILTER (WHERE email_type = 'overdue_alert'),
		COUNT(*) FILTER (WHERE email_type = 'urgent_alert'),
		COUNT(*) FILTER (WHERE language = 'en'),
		COUNT(*) FILTER (WHERE language = 'ar')
		FROM email_notifications
		WHERE created_at >= $1`

	var (
		s                                    = Stats{Days: days}
		confirm, status, admin, overdue, urg int
		en, ar                               int
	)
	err := l.db.QueryRowContext(ctx, query, cutoff).Scan(
		&s.Total, &s.Sent, &s.Failed, &s.Queued, &s.Bounced,
		&confirm, &status, &admin, &overdue, &urg,
		&en, &ar,
	)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("notification stats", err)
	}

	s.ByType = map[string]int{
		string(models.KindConfirmation):      confirm,
		string(models.KindStatusUpdate):      status,
		string(models.KindAdminNotification): admin,
		string(models.KindOverdueAlert):      overdue,
		string(models.KindUrgentAlert):       urg,
	}
	s.ByLanguage = map[string]int{"en": en, "ar": ar}
	return &s, nil
}

func (l *Ledger) RecentFailures(ctx context.Context, limit int) ([]Failure, error) {
	if limit <= 0 {
		limit = 20
	}
	// Failures outlive their request; a deleted request yields an empty title.
	query := `SELECT n.id, n.service_request_id, COALESCE(r.project_title, ''), n.email_type,
		n.recipient_email, n.error_message, n.created_at
		FROM email_notifications n
		LEFT JOIN service_requests r ON r.id = n.service_request_id
		WHERE n.status = 'failed'
		ORDER BY n.created_at DESC
		LIMIT $1`

	rows, err := l.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("recent failures", err)
	}
	defer rows.Close()

	failures := []Failure{}
	for rows.Next() {
		var (
			f    Failure
			kind string
		)
		if err := rows.Scan(&f.ID, &f.ServiceRequestID, &f.ProjectTitle, &kind, &f.Recipient, &f.ErrorMessage, &f.CreatedAt); err != nil {
			return nil, apperrors.NewQueryExecutionFailedError("scan failure", err)
		}
		f.EmailType = models.NotificationKind(kind).Label()
		failures = append(failures, f)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("recent failures", err)
	}
	return failures, nil
}
