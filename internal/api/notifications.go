package api

import (
	"net/http"

	"studentservices-api/internal/models"
	"studentservices-api/internal/notification/ledger"

	"github.com/gin-gonic/gin"
)

const (
	defaultStatsDays    = 30
	recentFailuresLimit = 20
	notificationsPage   = 20
)

type notificationPage struct {
	Count   int                          `json:"count"`
	Results []*models.NotificationRecord `json:"results"`
}

type testSendResponse struct {
	Message   string                    `json:"message"`
	EmailType models.NotificationKind   `json:"email_type"`
	Language  models.Language           `json:"language"`
	RequestID int64                     `json:"request_id"`
	Status    models.NotificationStatus `json:"status,omitempty"`
	TaskID    string                    `json:"task_id,omitempty"`
	Error     string                    `json:"error,omitempty"`
}

func (s *Server) handleListNotifications(c *gin.Context) {
	size := intQuery(c, "page_size", notificationsPage)
	if size <= 0 {
		size = notificationsPage
	}
	page := intQuery(c, "page", 1)
	if page < 1 {
		page = 1
	}
	f := ledger.ListFilter{
		Status:    models.NotificationStatus(c.Query("status")),
		Kind:      models.NotificationKind(c.Query("email_type")),
		Language:  models.Language(c.Query("language")),
		RequestID: int64Query(c, "service_request"),
		Limit:     size,
		Offset:    (page - 1) * size,
	}
	entries, total, err := s.deps.Notifications.List(c.Request.Context(), f)
	if err != nil {
		s.fail(c, err)
		return
	}
	if entries == nil {
		entries = []*models.NotificationRecord{}
	}
	c.JSON(http.StatusOK, notificationPage{Count: total, Results: entries})
}

func (s *Server) handleGetNotification(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	entry, err := s.deps.Notifications.Get(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// handleNotificationStats reports counts for the last ?days= days.
func (s *Server) handleNotificationStats(c *gin.Context) {
	days := intQuery(c, "days", defaultStatsDays)
	if days <= 0 {
		days = defaultStatsDays
	}
	stats, err := s.deps.Notifications.Stats(c.Request.Context(), days)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) handleRecentFailures(c *gin.Context) {
	failures, err := s.deps.Notifications.RecentFailures(c.Request.Context(), recentFailuresLimit)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, failures)
}

func (s *Server) handleRetryNotification(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	entry, err := s.deps.Notifications.Retry(c.Request.Context(), id, s.deps.Dispatcher)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":      "Email retry initiated",
		"notification": entry,
	})
}

// handleTestSend dispatches a notification of any kind about a chosen
// request, or the newest one when none is given.
func (s *Server) handleTestSend(c *gin.Context) {
	var body struct {
		EmailType models.NotificationKind `json:"email_type"`
		Language  models.Language         `json:"language"`
		RequestID int64                   `json:"request_id"`
	}
	if !s.bind(c, testSendSchema, &body) {
		return
	}

	ctx := c.Request.Context()
	var (
		req *models.ServiceRequest
		err error
	)
	if body.RequestID > 0 {
		req, err = s.deps.Requests.Get(ctx, body.RequestID)
	} else {
		req, err = s.deps.Requests.Latest(ctx)
	}
	if err != nil {
		s.fail(c, err)
		return
	}

	lang := body.Language.OrDefault()
	result, err := s.deps.Dispatcher.Dispatch(ctx, body.EmailType, req, lang, "")
	if err != nil {
		s.fail(c, err)
		return
	}

	resp := testSendResponse{
		EmailType: body.EmailType,
		Language:  lang,
		RequestID: req.ID,
		Status:    result.Status,
		TaskID:    result.Handle,
		Error:     result.Reason,
	}
	switch {
	case result.NoRecipients:
		resp.Message = "No staff recipients configured"
	case result.Status == models.NotificationFailed:
		resp.Message = "Test email failed"
	default:
		resp.Message = "Test email dispatched"
	}
	c.JSON(http.StatusOK, resp)
}
