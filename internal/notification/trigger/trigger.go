// Package trigger decides which notifications a change to a service
// request produces. Callers pass the before and after state explicitly.
package trigger

import (
	"context"
	"time"

	"studentservices-api/internal/common/logger"
	"studentservices-api/internal/models"
	"studentservices-api/internal/notification/dispatcher"
)

type Dispatcher interface {
	Dispatch(ctx context.Context, kind models.NotificationKind, req *models.ServiceRequest, language models.Language, notificationType string, opts ...dispatcher.Option) (*dispatcher.Result, error)
}

// FlagStore persists whether the current overdue state was already alerted.
type FlagStore interface {
	SetOverdueNotified(ctx context.Context, requestID int64, notified bool) error
}

// Transition is a request before and after one mutation. Old is nil for
// a newly created request.
type Transition struct {
	Old *models.ServiceRequest
	New *models.ServiceRequest
}

// Actions lists what Evaluate did, in order.
type Actions struct {
	Dispatched []models.NotificationKind
	// OverdueFlag is set when the persisted overdue flag changed.
	OverdueFlag *bool
}

func (a *Actions) add(kind models.NotificationKind) {
	a.Dispatched = append(a.Dispatched, kind)
}

type Trigger struct {
	dispatcher Dispatcher
	flags      FlagStore
	logger     logger.Logger
	now        func() time.Time
}

func New(d Dispatcher, flags FlagStore, log logger.Logger) *Trigger {
	return &Trigger{
		dispatcher: d,
		flags:      flags,
		logger:     log.WithFields(map[string]interface{}{"component": "trigger"}),
		now:        time.Now,
	}
}

// Created sends the confirmation to the client and the new request notice
// to staff.
func (t *Trigger) Created(ctx context.Context, req *models.ServiceRequest) Actions {
	var actions Actions
	if t.dispatch(ctx, models.KindConfirmation, req, req.Language.OrDefault(), "") {
		actions.add(models.KindConfirmation)
	}
	if t.dispatch(ctx, models.KindAdminNotification, req, models.LanguageEnglish, dispatcher.AdminTypeForPriority(req.Priority)) {
		actions.add(models.KindAdminNotification)
	}
	return actions
}

// Evaluate compares the two states of tr and dispatches status, overdue
// and urgency notifications. Failures are logged and never returned.
func (t *Trigger) Evaluate(ctx context.Context, tr Transition) Actions {
	var actions Actions
	if tr.Old == nil || tr.New == nil {
		return actions
	}
	old, cur := tr.Old, tr.New

	if old.Status != cur.Status {
		if t.dispatch(ctx, models.KindStatusUpdate, cur, cur.Language.OrDefault(), "",
			dispatcher.PreviousStatus(old.Status)) {
			actions.add(models.KindStatusUpdate)
		}
	}

	overdue := cur.IsOverdue(t.now())
	switch {
	case overdue && !cur.OverdueNotified:
		if t.dispatch(ctx, models.KindOverdueAlert, cur, models.LanguageEnglish, models.TypeOverdueRequest) {
			actions.add(models.KindOverdueAlert)
			if t.setFlag(ctx, cur, true) {
				flag := true
				actions.OverdueFlag = &flag
			}
		}
	case !overdue && cur.OverdueNotified:
		if t.setFlag(ctx, cur, false) {
			flag := false
			actions.OverdueFlag = &flag
		}
	}

	if old.Priority != models.PriorityUrgent && cur.Priority == models.PriorityUrgent {
		if t.dispatch(ctx, models.KindUrgentAlert, cur, models.LanguageEnglish, models.TypeUrgentRequest) {
			actions.add(models.KindUrgentAlert)
		}
	}

	return actions
}

// Unassigned reminds staff about a pending request with no assignee. The
// banner follows the request's priority.
func (t *Trigger) Unassigned(ctx context.Context, req *models.ServiceRequest) bool {
	return t.dispatch(ctx, models.KindAdminNotification, req, models.LanguageEnglish,
		dispatcher.UnassignedTypeForPriority(req.Priority))
}

// dispatch reports whether a notification was handed to delivery.
func (t *Trigger) dispatch(ctx context.Context, kind models.NotificationKind, req *models.ServiceRequest, lang models.Language, notificationType string, opts ...dispatcher.Option) bool {
	res, err := t.dispatcher.Dispatch(ctx, kind, req, lang, notificationType, opts...)
	if err != nil {
		t.logger.Error("notification dispatch failed", map[string]interface{}{
			"requestId": req.ID,
			"emailType": string(kind),
			"error":     err,
		})
		return false
	}
	return res != nil && !res.NoRecipients
}

func (t *Trigger) setFlag(ctx context.Context, req *models.ServiceRequest, notified bool) bool {
	if err := t.flags.SetOverdueNotified(ctx, req.ID, notified); err != nil {
		t.logger.Error("failed to update overdue flag", map[string]interface{}{
			"requestId": req.ID,
			"notified":  notified,
			"error":     err,
		})
		return false
	}
	req.OverdueNotified = notified
	return true
}
