package ledger

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "studentservices-api/internal/common/errors"
	"studentservices-api/internal/common/logger"
	"studentservices-api/internal/models"
	"studentservices-api/internal/notification/delivery"
)

var entryCols = []string{
	"id", "service_request_id", "email_type", "recipient_email", "language", "status", "subject",
	"notification_type", "sent_at", "error_message", "task_id", "created_at", "updated_at",
}

var fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestLedger(t *testing.T) (*Ledger, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	l := New(db, logger.NewTestLogger(t))
	l.now = func() time.Time { return fixedNow }
	return l, mock
}

func entryRow(id int64, status, taskID, errMsg string) *sqlmock.Rows {
	return sqlmock.NewRows(entryCols).AddRow(
		id, 7, "confirmation", "client@example.com", "en", status, "Request received",
		"", nil, errMsg, taskID, fixedNow, fixedNow,
	)
}

type MockResender struct {
	ResendFunc func(ctx context.Context, entry *models.NotificationRecord, handle string) (delivery.Outcome, error)
	handles    []string
}

func (m *MockResender) Resend(ctx context.Context, entry *models.NotificationRecord, handle string) (delivery.Outcome, error) {
	m.handles = append(m.handles, handle)
	if m.ResendFunc != nil {
		return m.ResendFunc(ctx, entry, handle)
	}
	return delivery.Queued(handle), nil
}

func TestLedger_Record(t *testing.T) {
	l, mock := newTestLedger(t)

	mock.ExpectQuery(`INSERT INTO email_notifications`).
		WithArgs(int64(7), "confirmation", "client@example.com", "en", "queued", "Request received",
			"", sqlmock.AnyArg(), "", "task-1", sqlmock.AnyArg()).
		WillReturnRows(entryRow(1, "queued", "task-1", ""))

	out, err := l.Record(context.Background(), &models.NotificationRecord{
		ServiceRequestID: 7,
		Kind:             models.KindConfirmation,
		Recipient:        "client@example.com",
		Subject:          "Request received",
		TaskID:           "task-1",
	})

	require.NoError(t, err)
	assert.Equal(t, int64(1), out.ID)
	assert.Equal(t, models.NotificationQueued, out.Status)
	assert.Equal(t, models.LanguageEnglish, out.Language)
	assert.Nil(t, out.SentAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedger_Record_DatabaseError(t *testing.T) {
	l, mock := newTestLedger(t)
	mock.ExpectQuery(`INSERT INTO email_notifications`).WillReturnError(errors.New("connection reset"))

	_, err := l.Record(context.Background(), &models.NotificationRecord{ServiceRequestID: 7, TaskID: "x"})

	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeQueryExecution))
}

func TestLedger_Update(t *testing.T) {
	sentAt := fixedNow

	tests := []struct {
		name           string
		handle         string
		setupMock      func(mock sqlmock.Sqlmock)
		validateOutput func(t *testing.T, out *models.NotificationRecord, err error)
	}{
		{
			name:   "marks queued entry sent",
			handle: "task-1",
			setupMock: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows(entryCols).AddRow(
					1, 7, "confirmation", "client@example.com", "en", "sent", "Request received",
					"", fixedNow, "", "task-1", fixedNow, fixedNow,
				)
				mock.ExpectQuery(`UPDATE email_notifications`).
					WithArgs("sent", "", sqlmock.AnyArg(), sqlmock.AnyArg(), "task-1").
					WillReturnRows(rows)
			},
			validateOutput: func(t *testing.T, out *models.NotificationRecord, err error) {
				require.NoError(t, err)
				require.NotNil(t, out)
				assert.Equal(t, models.NotificationSent, out.Status)
				require.NotNil(t, out.SentAt)
				assert.True(t, out.SentAt.Equal(fixedNow))
			},
		},
		{
			name:   "unknown handle is not an error",
			handle: "missing",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`UPDATE email_notifications`).
					WithArgs("sent", "", sqlmock.AnyArg(), sqlmock.AnyArg(), "missing").
					WillReturnError(sql.ErrNoRows)
			},
			validateOutput: func(t *testing.T, out *models.NotificationRecord, err error) {
				assert.NoError(t, err)
				assert.Nil(t, out)
			},
		},
		{
			name:      "empty handle never touches the database",
			handle:    "",
			setupMock: func(mock sqlmock.Sqlmock) {},
			validateOutput: func(t *testing.T, out *models.NotificationRecord, err error) {
				assert.NoError(t, err)
				assert.Nil(t, out)
			},
		},
		{
			name:   "database failure",
			handle: "task-1",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`UPDATE email_notifications`).WillReturnError(errors.New("timeout"))
			},
			validateOutput: func(t *testing.T, out *models.NotificationRecord, err error) {
				assert.Nil(t, out)
				assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeQueryExecution))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, mock := newTestLedger(t)
			tt.setupMock(mock)

			out, err := l.Update(context.Background(), tt.handle, models.NotificationSent, "", &sentAt)

			tt.validateOutput(t, out, err)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestLedger_Get_NotFound(t *testing.T) {
	l, mock := newTestLedger(t)
	mock.ExpectQuery(`FROM email_notifications WHERE id = \$1`).
		WithArgs(int64(42)).
		WillReturnError(sql.ErrNoRows)

	_, err := l.Get(context.Background(), 42)

	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeResourceNotFound))
}

func TestLedger_List(t *testing.T) {
	l, mock := newTestLedger(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM email_notifications WHERE status = \$1 AND email_type = \$2`).
		WithArgs("failed", "confirmation").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(`ORDER BY created_at DESC LIMIT \$3 OFFSET \$4`).
		WithArgs("failed", "confirmation", 20, 0).
		WillReturnRows(entryRow(1, "failed", "a", "boom").AddRow(
			2, 7, "confirmation", "client@example.com", "en", "failed", "Request received",
			"", nil, "boom", "b", fixedNow, fixedNow,
		))

	out, total, err := l.List(context.Background(), ListFilter{
		Status: models.NotificationFailed,
		Kind:   models.KindConfirmation,
	})

	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, out, 2)
	assert.Equal(t, "boom", out[1].ErrorMessage)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedger_Retry(t *testing.T) {
	tests := []struct {
		name           string
		setupMock      func(mock sqlmock.Sqlmock)
		resend         func(ctx context.Context, entry *models.NotificationRecord, handle string) (delivery.Outcome, error)
		validateOutput func(t *testing.T, out *models.NotificationRecord, err error, r *MockResender)
	}{
		{
			name: "failed entry moves to queued with a new handle",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`FROM email_notifications WHERE id = \$1`).
					WithArgs(int64(1)).
					WillReturnRows(entryRow(1, "failed", "old-task", "smtp down"))
				mock.ExpectQuery(`SET status = 'queued', task_id = \$1, error_message = ''`).
					WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), int64(1)).
					WillReturnRows(entryRow(1, "queued", "new-task", ""))
			},
			validateOutput: func(t *testing.T, out *models.NotificationRecord, err error, r *MockResender) {
				require.NoError(t, err)
				assert.Equal(t, models.NotificationQueued, out.Status)
				assert.Empty(t, out.ErrorMessage)
				require.Len(t, r.handles, 1)
				assert.NotEqual(t, "old-task", r.handles[0])
			},
		},
		{
			name: "inline delivery finalizes the entry",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`FROM email_notifications WHERE id = \$1`).
					WithArgs(int64(1)).
					WillReturnRows(entryRow(1, "failed", "old-task", "smtp down"))
				mock.ExpectQuery(`SET status = 'queued'`).
					WillReturnRows(entryRow(1, "queued", "new-task", ""))
				mock.ExpectQuery(`WHERE task_id = \$5 AND status = 'queued'`).
					WithArgs("sent", "", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
					WillReturnRows(entryRow(1, "sent", "new-task", ""))
			},
			resend: func(ctx context.Context, entry *models.NotificationRecord, handle string) (delivery.Outcome, error) {
				return delivery.Sent(handle), nil
			},
			validateOutput: func(t *testing.T, out *models.NotificationRecord, err error, r *MockResender) {
				require.NoError(t, err)
				assert.Equal(t, models.NotificationSent, out.Status)
			},
		},
		{
			name: "sent entry cannot be retried",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`FROM email_notifications WHERE id = \$1`).
					WithArgs(int64(1)).
					WillReturnRows(entryRow(1, "sent", "old-task", ""))
			},
			validateOutput: func(t *testing.T, out *models.NotificationRecord, err error, r *MockResender) {
				assert.Nil(t, out)
				assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidRetryState))
				assert.Empty(t, r.handles)
			},
		},
		{
			name: "missing entry",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`FROM email_notifications WHERE id = \$1`).
					WithArgs(int64(1)).
					WillReturnError(sql.ErrNoRows)
			},
			validateOutput: func(t *testing.T, out *models.NotificationRecord, err error, r *MockResender) {
				assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeResourceNotFound))
				assert.Empty(t, r.handles)
			},
		},
		{
			name: "concurrent retry loses the race",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`FROM email_notifications WHERE id = \$1`).
					WithArgs(int64(1)).
					WillReturnRows(entryRow(1, "failed", "old-task", "smtp down"))
				mock.ExpectQuery(`SET status = 'queued'`).WillReturnError(sql.ErrNoRows)
			},
			validateOutput: func(t *testing.T, out *models.NotificationRecord, err error, r *MockResender) {
				assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidRetryState))
				assert.Empty(t, r.handles)
			},
		},
		{
			name: "resend error marks the entry failed again",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`FROM email_notifications WHERE id = \$1`).
					WithArgs(int64(1)).
					WillReturnRows(entryRow(1, "failed", "old-task", "smtp down"))
				mock.ExpectQuery(`SET status = 'queued'`).
					WillReturnRows(entryRow(1, "queued", "new-task", ""))
				mock.ExpectQuery(`WHERE task_id = \$5 AND status = 'queued'`).
					WithArgs("failed", "request gone", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
					WillReturnRows(entryRow(1, "failed", "new-task", "request gone"))
			},
			resend: func(ctx context.Context, entry *models.NotificationRecord, handle string) (delivery.Outcome, error) {
				return delivery.Outcome{}, errors.New("request gone")
			},
			validateOutput: func(t *testing.T, out *models.NotificationRecord, err error, r *MockResender) {
				require.NoError(t, err)
				assert.Equal(t, models.NotificationFailed, out.Status)
				assert.Equal(t, "request gone", out.ErrorMessage)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, mock := newTestLedger(t)
			tt.setupMock(mock)
			r := &MockResender{ResendFunc: tt.resend}

			out, err := l.Retry(context.Background(), 1, r)

			tt.validateOutput(t, out, err, r)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestLedger_Stats(t *testing.T) {
	l, mock := newTestLedger(t)

	cols := []string{"total", "sent", "failed", "queued", "bounced",
		"confirmation", "status_update", "admin_notification", "overdue_alert", "urgent_alert", "en", "ar"}
	mock.ExpectQuery(`FROM email_notifications\s+WHERE created_at >= \$1`).
		WithArgs(fixedNow.AddDate(0, 0, -30)).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(10, 6, 2, 1, 1, 4, 3, 2, 1, 0, 7, 3))

	s, err := l.Stats(context.Background(), 30)

	require.NoError(t, err)
	assert.Equal(t, 10, s.Total)
	assert.Equal(t, 6, s.Sent)
	assert.Equal(t, 2, s.Failed)
	assert.Equal(t, 4, s.ByType["confirmation"])
	assert.Equal(t, 0, s.ByType["urgent_alert"])
	assert.Len(t, s.ByType, 5)
	assert.Equal(t, map[string]int{"en": 7, "ar": 3}, s.ByLanguage)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedger_RecentFailures(t *testing.T) {
	l, mock := newTestLedger(t)

	rows := sqlmock.NewRows([]string{"id", "service_request_id", "project_title", "email_type",
		"recipient_email", "error_message", "created_at"}).
		AddRow(3, 7, "Thesis formatting", "status_update", "client@example.com", "mailbox full", fixedNow)
	mock.ExpectQuery(`LEFT JOIN service_requests r ON r.id = n.service_request_id`).
		WithArgs(20).
		WillReturnRows(rows)

	out, err := l.RecentFailures(context.Background(), 0)

	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Thesis formatting", out[0].ProjectTitle)
	assert.Equal(t, "Status Update", out[0].EmailType)
	assert.Equal(t, "mailbox full", out[0].ErrorMessage)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedger_RecentFailuresKeepsDeletedRequests(t *testing.T) {
	l, mock := newTestLedger(t)

	rows := sqlmock.NewRows([]string{"id", "service_request_id", "project_title", "email_type",
		"recipient_email", "error_message", "created_at"}).
		AddRow(4, 12, "", "overdue_alert", "admin@example.com", "connection refused", fixedNow)
	mock.ExpectQuery(`COALESCE\(r\.project_title, ''\).*LEFT JOIN service_requests r`).
		WithArgs(5).
		WillReturnRows(rows)

	out, err := l.RecentFailures(context.Background(), 5)

	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, int64(12), out[0].ServiceRequestID)
	assert.Empty(t, out[0].ProjectTitle)
	assert.Equal(t, "connection refused", out[0].ErrorMessage)
	assert.NoError(t, mock.ExpectationsWereMet())
}
