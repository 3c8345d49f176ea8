// internal/models/service_request.go
package models

import "time"

type RequestStatus string

const (
	StatusPending    RequestStatus = "pending"
	StatusInProgress RequestStatus = "in_progress"
	StatusCompleted  RequestStatus = "completed"
	StatusCancelled  RequestStatus = "cancelled"
)

var statusLabels = map[RequestStatus]string{
	StatusPending:    "Pending",
	StatusInProgress: "In Progress",
	StatusCompleted:  "Completed",
	StatusCancelled:  "Cancelled",
}

// Statuses lists every recognized status in display order.
var Statuses = []RequestStatus{StatusPending, StatusInProgress, StatusCompleted, StatusCancelled}

func (s RequestStatus) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

// Label returns the display label, or the raw value for unknown statuses.
func (s RequestStatus) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

// Open reports whether work on the request is still outstanding.
func (s RequestStatus) Open() bool {
	return s == StatusPending || s == StatusInProgress
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

var priorityLabels = map[Priority]string{
	PriorityLow:    "Low",
	PriorityNormal: "Normal",
	PriorityHigh:   "High",
	PriorityUrgent: "Urgent",
}

var Priorities = []Priority{PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent}

func (p Priority) Valid() bool {
	_, ok := priorityLabels[p]
	return ok
}

func (p Priority) Label() string {
	if l, ok := priorityLabels[p]; ok {
		return l
	}
	return string(p)
}

// Rank orders priorities from low (0) to urgent (3).
func (p Priority) Rank() int {
	switch p {
	case PriorityLow:
		return 0
	case PriorityHigh:
		return 2
	case PriorityUrgent:
		return 3
	default:
		return 1
	}
}

type Language string

const (
	LanguageEnglish Language = "en"
	LanguageArabic  Language = "ar"
)

// ParseLanguage maps an Accept-Language style value to a supported language.
func ParseLanguage(v string) Language {
	if len(v) >= 2 && (v[:2] == "ar" || v[:2] == "AR" || v[:2] == "Ar") {
		return LanguageArabic
	}
	return LanguageEnglish
}

// OrDefault returns English for empty or unknown values.
func (l Language) OrDefault() Language {
	if l == LanguageArabic {
		return l
	}
	return LanguageEnglish
}

type ServiceRequest struct {
	ID                 int64         `json:"id"`
	ServiceID          int64         `json:"service"`
	ServiceName        string        `json:"service_name"`
	ClientName         string        `json:"client_name"`
	ClientEmail        string        `json:"client_email"`
	ClientPhone        string        `json:"client_phone"`
	ProjectTitle       string        `json:"project_title"`
	ProjectDescription string        `json:"project_description"`
	Deadline           time.Time     `json:"deadline"`
	Budget             string        `json:"budget"`
	Status             RequestStatus `json:"status"`
	Priority           Priority      `json:"priority"`
	AssignedTo         *int64        `json:"assigned_to"`
	AssignedToName     string        `json:"assigned_to_name,omitempty"`
	Notes              string        `json:"notes"`
	Attachment         string        `json:"attachments,omitempty"`
	Language           Language      `json:"language"`
	OverdueNotified    bool          `json:"-"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
}

// IsOverdue is computed against today's date and never persisted.
func (r *ServiceRequest) IsOverdue(today time.Time) bool {
	return DateOnly(r.Deadline).Before(DateOnly(today)) && r.Status.Open()
}

// Clone returns a copy safe to mutate independently.
func (r *ServiceRequest) Clone() *ServiceRequest {
	if r == nil {
		return nil
	}
	c := *r
	if r.AssignedTo != nil {
		id := *r.AssignedTo
		c.AssignedTo = &id
	}
	return &c
}

// DateOnly returns t's calendar date as UTC midnight, so dates read from
// DATE columns compare equal to the same day taken from a local clock.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DateKey formats t's calendar date for binding against DATE columns.
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// RequestView is the API representation with derived fields.
type RequestView struct {
	*ServiceRequest
	StatusDisplay   string `json:"status_display"`
	PriorityDisplay string `json:"priority_display"`
	IsOverdue       bool   `json:"is_overdue"`
	DeadlineDate    string `json:"deadline_date"`
}

func NewRequestView(r *ServiceRequest, today time.Time) RequestView {
	return RequestView{
		ServiceRequest:  r,
		StatusDisplay:   r.Status.Label(),
		PriorityDisplay: r.Priority.Label(),
		IsOverdue:       r.IsOverdue(today),
		DeadlineDate:    r.Deadline.Format("2006-01-02"),
	}
}
