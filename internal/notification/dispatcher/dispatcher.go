// Package dispatcher renders notifications for a service request, hands
// them to the configured delivery strategy and records every attempt.
package dispatcher

import (
	"context"
	"fmt"
	"strings"
	"time"

	apperrors "studentservices-api/internal/common/errors"
	"studentservices-api/internal/common/logger"
	"studentservices-api/internal/common/metrics"
	"studentservices-api/internal/common/observability"
	"studentservices-api/internal/models"
	"studentservices-api/internal/notification/delivery"
	"studentservices-api/internal/notification/templates"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// Ledger is the subset of the notification ledger the dispatcher writes to.
type Ledger interface {
	Record(ctx context.Context, e *models.NotificationRecord) (*models.NotificationRecord, error)
	Update(ctx context.Context, handle string, status models.NotificationStatus, errMsg string, sentAt *time.Time) (*models.NotificationRecord, error)
}

// Renderer turns a template kind and context into message bodies.
type Renderer interface {
	Render(kind string, language models.Language, data map[string]interface{}, notificationType string) (*templates.Rendered, error)
}

// StaffDirectory lists the addresses of active staff members.
type StaffDirectory interface {
	StaffEmails(ctx context.Context) ([]string, error)
}

// RequestLoader fetches a request by id, used when resending ledger entries.
type RequestLoader interface {
	Get(ctx context.Context, id int64) (*models.ServiceRequest, error)
}

type Alerter interface {
	Alert(ctx context.Context, text string) error
}

type Config struct {
	From string
}

type Dispatcher struct {
	renderer Renderer
	strategy delivery.Strategy
	ledger   Ledger
	staff    StaffDirectory
	requests RequestLoader
	alerter  Alerter
	obs      *observability.Observability
	cfg      Config
	logger   logger.Logger
	now      func() time.Time
}

type Deps struct {
	Renderer Renderer
	Strategy delivery.Strategy
	Ledger   Ledger
	Staff    StaffDirectory
	Requests RequestLoader
	// Alerter is optional. When set, overdue and urgent alerts also go out as SMS.
	Alerter       Alerter
	Observability *observability.Observability
}

func New(deps Deps, cfg Config, log logger.Logger) *Dispatcher {
	return &Dispatcher{
		renderer: deps.Renderer,
		strategy: deps.Strategy,
		ledger:   deps.Ledger,
		staff:    deps.Staff,
		requests: deps.Requests,
		alerter:  deps.Alerter,
		obs:      deps.Observability,
		cfg:      cfg,
		logger:   log.WithFields(map[string]interface{}{"component": "dispatcher"}),
		now:      time.Now,
	}
}

// Result describes what happened to one dispatch.
type Result struct {
	Handle       string
	Status       models.NotificationStatus
	Reason       string
	Entry        *models.NotificationRecord
	NoRecipients bool
}

type options struct {
	previousStatus models.RequestStatus
}

type Option func(*options)

// PreviousStatus sets the status the request moved away from, shown in
// status update messages. It defaults to the current status.
func PreviousStatus(s models.RequestStatus) Option {
	return func(o *options) { o.previousStatus = s }
}

// Dispatch sends one notification of the given kind about req. Delivery
// failures are captured in the ledger and the result, never returned.
func (d *Dispatcher) Dispatch(ctx context.Context, kind models.NotificationKind, req *models.ServiceRequest, language models.Language, notificationType string, opts ...Option) (*Result, error) {
	start := time.Now()
	ctx, end := d.obs.StartSpan(ctx, "notification.dispatch",
		attribute.String("kind", string(kind)),
		attribute.Int64("request_id", req.ID),
	)
	defer end()

	o := options{previousStatus: req.Status}
	for _, opt := range opts {
		opt(&o)
	}

	if notificationType == "" {
		notificationType = DefaultNotificationType(kind)
	}

	msg, lang, err := d.compose(ctx, kind, req, language, notificationType, o.previousStatus)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		d.logger.Warn("no staff recipients for notification", map[string]interface{}{
			"requestId": req.ID,
			"emailType": string(kind),
		})
		return &Result{NoRecipients: true}, nil
	}

	msg.Handle = uuid.NewString()
	log := d.logger.WithFields(map[string]interface{}{
		"requestId": req.ID,
		"emailType": string(kind),
		"taskId":    msg.Handle,
	})

	entry, err := d.ledger.Record(ctx, &models.NotificationRecord{
		ServiceRequestID: req.ID,
		Kind:             kind,
		Recipient:        strings.Join(msg.To, ", "),
		Language:         lang,
		Status:           models.NotificationQueued,
		Subject:          msg.Subject,
		NotificationType: notificationType,
		TaskID:           msg.Handle,
	})
	if err != nil {
		return nil, apperrors.NewDispatchError(string(kind), err)
	}

	outcome := d.strategy.Send(ctx, msg)
	entry = d.finalize(ctx, entry, outcome, log)

	metrics.NotificationsDispatched.WithLabelValues(string(kind), string(outcome.Status)).Inc()
	d.obs.RecordDispatch(ctx, string(kind), string(outcome.Status))
	d.obs.RecordDispatchDuration(ctx, time.Since(start), string(kind))

	if kind == models.KindOverdueAlert || kind == models.KindUrgentAlert {
		d.sendAlert(ctx, kind, req)
	}

	log.Info("notification dispatched", map[string]interface{}{
		"status":   string(outcome.Status),
		"strategy": d.strategy.Name(),
	})

	return &Result{
		Handle: msg.Handle,
		Status: outcome.Status,
		Reason: outcome.Reason,
		Entry:  entry,
	}, nil
}

// Resend rebuilds the message an existing ledger entry describes from the
// current state of its request and submits it under handle. The ledger
// entry itself is left to the caller.
func (d *Dispatcher) Resend(ctx context.Context, entry *models.NotificationRecord, handle string) (delivery.Outcome, error) {
	ctx, end := d.obs.StartSpan(ctx, "notification.resend",
		attribute.String("kind", string(entry.Kind)),
		attribute.Int64("notification_id", entry.ID),
	)
	defer end()

	req, err := d.requests.Get(ctx, entry.ServiceRequestID)
	if err != nil {
		return delivery.Outcome{}, err
	}

	notificationType := entry.NotificationType
	if notificationType == "" {
		notificationType = DefaultNotificationType(entry.Kind)
	}

	// Status updates are resent for the request's current status.
	msg, _, err := d.compose(ctx, entry.Kind, req, entry.Language, notificationType, req.Status)
	if err != nil {
		return delivery.Outcome{}, err
	}
	if msg == nil {
		return delivery.Outcome{}, fmt.Errorf("no staff recipients for %s", entry.Kind)
	}
	msg.Handle = handle

	outcome := d.strategy.Send(ctx, msg)
	metrics.NotificationsDispatched.WithLabelValues(string(entry.Kind), string(outcome.Status)).Inc()
	return outcome, nil
}

// compose returns nil without error when a staff notification has nobody
// to go to.
func (d *Dispatcher) compose(ctx context.Context, kind models.NotificationKind, req *models.ServiceRequest, language models.Language, notificationType string, previous models.RequestStatus) (*delivery.Message, models.Language, error) {
	tmplKind, err := templateFor(kind)
	if err != nil {
		return nil, "", apperrors.NewDispatchError(string(kind), err)
	}

	lang := language.OrDefault()
	var to []string
	if kind.ForStaff() {
		lang = models.LanguageEnglish
		to, err = d.staff.StaffEmails(ctx)
		if err != nil {
			return nil, "", apperrors.NewDispatchError(string(kind), err)
		}
		if len(to) == 0 {
			return nil, lang, nil
		}
	} else {
		if req.ClientEmail == "" {
			return nil, "", apperrors.NewDispatchError(string(kind), fmt.Errorf("request %d has no client email", req.ID))
		}
		to = []string{req.ClientEmail}
	}

	rendered, err := d.renderer.Render(tmplKind, lang, BuildContext(req, previous), notificationType)
	if err != nil {
		return nil, "", apperrors.NewDispatchError(string(kind), err)
	}

	return &delivery.Message{
		Kind:             kind,
		RequestID:        req.ID,
		From:             d.cfg.From,
		To:               to,
		Subject:          rendered.Subject,
		HTMLBody:         rendered.HTMLBody,
		PlainBody:        rendered.PlainBody,
		NotificationType: notificationType,
	}, rendered.Language, nil
}

func (d *Dispatcher) finalize(ctx context.Context, entry *models.NotificationRecord, outcome delivery.Outcome, log logger.Logger) *models.NotificationRecord {
	var (
		updated *models.NotificationRecord
		err     error
	)
	switch outcome.Status {
	case models.NotificationSent:
		sentAt := d.now().UTC()
		updated, err = d.ledger.Update(ctx, entry.TaskID, models.NotificationSent, "", &sentAt)
	case models.NotificationFailed:
		log.Warn("notification delivery failed", map[string]interface{}{"reason": outcome.Reason})
		updated, err = d.ledger.Update(ctx, entry.TaskID, models.NotificationFailed, outcome.Reason, nil)
	default:
		return entry
	}
	if err != nil {
		log.Error("failed to finalize ledger entry", map[string]interface{}{"error": err})
		return entry
	}
	if updated == nil {
		return entry
	}
	return updated
}

func (d *Dispatcher) sendAlert(ctx context.Context, kind models.NotificationKind, req *models.ServiceRequest) {
	if d.alerter == nil {
		return
	}
	label := "Urgent"
	if kind == models.KindOverdueAlert {
		label = "Overdue"
	}
	text := fmt.Sprintf("%s request #%d: %s (%s)", label, req.ID, req.ProjectTitle, req.ClientName)
	if err := d.alerter.Alert(ctx, text); err != nil {
		d.logger.Warn("sms alert failed", map[string]interface{}{
			"requestId": req.ID,
			"emailType": string(kind),
			"error":     err,
		})
	}
}

func templateFor(kind models.NotificationKind) (string, error) {
	switch kind {
	case models.KindConfirmation:
		return templates.RequestConfirmation, nil
	case models.KindStatusUpdate:
		return templates.StatusUpdate, nil
	case models.KindAdminNotification, models.KindOverdueAlert, models.KindUrgentAlert:
		return templates.AdminNotification, nil
	default:
		return "", fmt.Errorf("unknown notification kind %q", kind)
	}
}

// DefaultNotificationType is the admin framing used when none is given.
func DefaultNotificationType(kind models.NotificationKind) string {
	switch kind {
	case models.KindAdminNotification:
		return models.TypeNewRequest
	case models.KindOverdueAlert:
		return models.TypeOverdueRequest
	case models.KindUrgentAlert:
		return models.TypeUrgentRequest
	default:
		return ""
	}
}

// AdminTypeForPriority frames a new request notification by its priority.
func AdminTypeForPriority(p models.Priority) string {
	if p == models.PriorityHigh || p == models.PriorityUrgent {
		return models.TypeUrgentRequest
	}
	return models.TypeNewRequest
}

// UnassignedTypeForPriority frames the daily reminder about a request nobody
// has picked up yet.
func UnassignedTypeForPriority(p models.Priority) string {
	switch p {
	case models.PriorityUrgent:
		return models.TypeUrgentRequest
	case models.PriorityHigh:
		return models.TypeHighRequest
	default:
		return models.TypeNewRequest
	}
}

// BuildContext flattens a request into template variables.
func BuildContext(req *models.ServiceRequest, previous models.RequestStatus) map[string]interface{} {
	phone := req.ClientPhone
	if phone == "" {
		phone = "Not provided"
	}
	serviceName := req.ServiceName
	if serviceName == "" {
		serviceName = "N/A"
	}
	if previous == "" {
		previous = req.Status
	}
	return map[string]interface{}{
		"client_name":         req.ClientName,
		"client_email":        req.ClientEmail,
		"client_phone":        phone,
		"service_name":        serviceName,
		"project_title":       req.ProjectTitle,
		"project_description": req.ProjectDescription,
		"priority":            req.Priority.Label(),
		"budget":              req.Budget,
		"request_id":          req.ID,
		"created_at":          req.CreatedAt.Format("2006-01-02 15:04"),
		"deadline":            req.Deadline.Format("2006-01-02"),
		"old_status":          previous.Label(),
		"new_status":          req.Status.Label(),
		"new_status_key":      string(req.Status),
	}
}
