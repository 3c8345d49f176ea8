// internal/models/notification.go
package models

import "time"

type NotificationKind string

const (
	KindConfirmation      NotificationKind = "confirmation"
	KindStatusUpdate      NotificationKind = "status_update"
	KindAdminNotification NotificationKind = "admin_notification"
	KindOverdueAlert      NotificationKind = "overdue_alert"
	KindUrgentAlert       NotificationKind = "urgent_alert"
)

var kindLabels = map[NotificationKind]string{
	KindConfirmation:      "Request Confirmation",
	KindStatusUpdate:      "Status Update",
	KindAdminNotification: "Admin Notification",
	KindOverdueAlert:      "Overdue Alert",
	KindUrgentAlert:       "Urgent Alert",
}

// NotificationKinds is the closed set of kinds, in API order.
var NotificationKinds = []NotificationKind{
	KindConfirmation, KindStatusUpdate, KindAdminNotification, KindOverdueAlert, KindUrgentAlert,
}

func (k NotificationKind) Valid() bool {
	_, ok := kindLabels[k]
	return ok
}

func (k NotificationKind) Label() string {
	if l, ok := kindLabels[k]; ok {
		return l
	}
	return string(k)
}

// ForStaff reports whether the kind goes to the staff recipient set.
func (k NotificationKind) ForStaff() bool {
	return k == KindAdminNotification || k == KindOverdueAlert || k == KindUrgentAlert
}

type NotificationStatus string

const (
	NotificationQueued  NotificationStatus = "queued"
	NotificationSent    NotificationStatus = "sent"
	NotificationFailed  NotificationStatus = "failed"
	NotificationBounced NotificationStatus = "bounced"
)

// Admin framing of a staff notification.
const (
	TypeNewRequest     = "new_request"
	TypeUrgentRequest  = "urgent_request"
	TypeHighRequest    = "high_request"
	TypeOverdueRequest = "overdue_request"
)

// NotificationRecord is one ledger entry. Entries are never deleted.
type NotificationRecord struct {
	ID               int64              `json:"id"`
	ServiceRequestID int64              `json:"service_request"`
	ProjectTitle     string             `json:"project_title,omitempty"`
	Kind             NotificationKind   `json:"email_type"`
	Recipient        string             `json:"recipient_email"`
	Language         Language           `json:"language"`
	Status           NotificationStatus `json:"status"`
	Subject          string             `json:"subject"`
	NotificationType string             `json:"notification_type,omitempty"`
	SentAt           *time.Time         `json:"sent_at"`
	ErrorMessage     string             `json:"error_message"`
	TaskID           string             `json:"task_id"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}
