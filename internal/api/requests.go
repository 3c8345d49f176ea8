package api

import (
	"net/http"

	apperrors "studentservices-api/internal/common/errors"
	"studentservices-api/internal/models"
	"studentservices-api/internal/requests"

	"github.com/gin-gonic/gin"
)

type createdRequestResponse struct {
	Message      string               `json:"message"`
	RequestID    int64                `json:"request_id"`
	ProjectTitle string               `json:"project_title"`
	Service      string               `json:"service"`
	Status       models.RequestStatus `json:"status"`
}

type requestPageResponse struct {
	Count    int                  `json:"count"`
	Page     int                  `json:"page"`
	PageSize int                  `json:"page_size"`
	Results  []models.RequestView `json:"results"`
}

type bulkResponse struct {
	Message string `json:"message"`
	Updated int    `json:"updated_count"`
}

// requestLanguage picks the client language from Accept-Language.
func requestLanguage(c *gin.Context) models.Language {
	return models.ParseLanguage(c.GetHeader("Accept-Language"))
}

func (s *Server) views(list []*models.ServiceRequest) []models.RequestView {
	today := s.now()
	out := make([]models.RequestView, 0, len(list))
	for _, r := range list {
		out = append(out, models.NewRequestView(r, today))
	}
	return out
}

func (s *Server) invalidateDashboard(c *gin.Context) {
	if s.deps.Dashboard != nil {
		s.deps.Dashboard.Invalidate(c.Request.Context())
	}
}

// publicRequestInput is the client-facing subset of requests.CreateInput.
type publicRequestInput struct {
	ServiceID          int64  `json:"service"`
	ClientName         string `json:"client_name"`
	ClientEmail        string `json:"client_email"`
	ClientPhone        string `json:"client_phone"`
	ProjectTitle       string `json:"project_title"`
	ProjectDescription string `json:"project_description"`
	Deadline           string `json:"deadline"`
	Budget             string `json:"budget"`
	Attachment         string `json:"attachments"`
}

func (in publicRequestInput) toCreate() requests.CreateInput {
	return requests.CreateInput{
		ServiceID:          in.ServiceID,
		ClientName:         in.ClientName,
		ClientEmail:        in.ClientEmail,
		ClientPhone:        in.ClientPhone,
		ProjectTitle:       in.ProjectTitle,
		ProjectDescription: in.ProjectDescription,
		Deadline:           in.Deadline,
		Budget:             in.Budget,
		Attachment:         in.Attachment,
	}
}

func (s *Server) handleCreatePublicRequest(c *gin.Context) {
	var in publicRequestInput
	if !s.bind(c, publicRequestSchema, &in) {
		return
	}
	req, err := s.deps.Requests.CreatePublic(c.Request.Context(), in.toCreate(), requestLanguage(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	s.invalidateDashboard(c)
	c.JSON(http.StatusCreated, createdRequestResponse{
		Message:      "Service request submitted successfully. We will contact you soon.",
		RequestID:    req.ID,
		ProjectTitle: req.ProjectTitle,
		Service:      req.ServiceName,
		Status:       req.Status,
	})
}

func (s *Server) handleCreateStaffRequest(c *gin.Context) {
	var in requests.CreateInput
	if !s.bind(c, createRequestSchema, &in) {
		return
	}
	req, err := s.deps.Requests.CreateStaff(c.Request.Context(), in, requestLanguage(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	s.invalidateDashboard(c)
	c.JSON(http.StatusCreated, models.NewRequestView(req, s.now()))
}

func (s *Server) handleListRequests(c *gin.Context) {
	f := requests.Filter{
		Status:    models.RequestStatus(c.Query("status")),
		Priority:  models.Priority(c.Query("priority")),
		ServiceID: int64Query(c, "service"),
		Overdue:   boolQuery(c, "overdue"),
		Search:    c.Query("search"),
		Ordering:  c.Query("ordering"),
		Page:      intQuery(c, "page", 1),
		PageSize:  intQuery(c, "page_size", 0),
	}
	if v := c.Query("assigned_to"); v == "none" {
		f.Unassigned = true
	} else {
		f.AssignedTo = int64Query(c, "assigned_to")
	}
	if u := boolQuery(c, "unassigned"); u != nil && *u {
		f.Unassigned = true
	}

	page, err := s.deps.Requests.List(c.Request.Context(), f)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, requestPageResponse{
		Count:    page.Count,
		Page:     page.Page,
		PageSize: page.PageSize,
		Results:  s.views(page.Results),
	})
}

func (s *Server) handleGetRequest(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	req, err := s.deps.Requests.Get(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, models.NewRequestView(req, s.now()))
}

func (s *Server) handleUpdateRequest(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	var in requests.UpdateInput
	if !s.bind(c, updateRequestSchema, &in) {
		return
	}
	s.respondRequest(c, func() (*models.ServiceRequest, error) {
		return s.deps.Requests.Update(c.Request.Context(), id, in)
	})
}

func (s *Server) handleChangeStatus(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	var body struct {
		Status models.RequestStatus `json:"status"`
		Notes  string               `json:"notes"`
	}
	if !s.bind(c, statusSchema, &body) {
		return
	}
	s.respondRequest(c, func() (*models.ServiceRequest, error) {
		return s.deps.Requests.ChangeStatus(c.Request.Context(), id, body.Status, body.Notes)
	})
}

func (s *Server) handleAssign(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	var body struct {
		UserID *int64 `json:"user_id"`
	}
	if !s.bind(c, assignSchema, &body) {
		return
	}
	s.respondRequest(c, func() (*models.ServiceRequest, error) {
		return s.deps.Requests.Assign(c.Request.Context(), id, body.UserID)
	})
}

func (s *Server) handleSetPriority(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	var body struct {
		Priority models.Priority `json:"priority"`
	}
	if !s.bind(c, prioritySchema, &body) {
		return
	}
	s.respondRequest(c, func() (*models.ServiceRequest, error) {
		return s.deps.Requests.SetPriority(c.Request.Context(), id, body.Priority)
	})
}

func (s *Server) respondRequest(c *gin.Context, fn func() (*models.ServiceRequest, error)) {
	req, err := fn()
	if err != nil {
		s.fail(c, err)
		return
	}
	s.invalidateDashboard(c)
	c.JSON(http.StatusOK, models.NewRequestView(req, s.now()))
}

func (s *Server) handleDeleteRequest(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	if err := s.deps.Requests.Delete(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}
	s.invalidateDashboard(c)
	c.Status(http.StatusNoContent)
}

func (s *Server) handleBulkStatus(c *gin.Context) {
	var body struct {
		RequestIDs []int64              `json:"request_ids"`
		Status     models.RequestStatus `json:"status"`
	}
	if !s.bind(c, bulkStatusSchema, &body) {
		return
	}
	s.respondBulk(c, func() (int, error) {
		return s.deps.Requests.BulkSetStatus(c.Request.Context(), body.RequestIDs, body.Status)
	})
}

func (s *Server) handleBulkAssign(c *gin.Context) {
	var body struct {
		RequestIDs []int64 `json:"request_ids"`
		UserID     *int64  `json:"user_id"`
	}
	if !s.bind(c, bulkAssignSchema, &body) {
		return
	}
	s.respondBulk(c, func() (int, error) {
		return s.deps.Requests.BulkAssign(c.Request.Context(), body.RequestIDs, body.UserID)
	})
}

func (s *Server) handleBulkAction(c *gin.Context) {
	var action requests.BulkAction
	if !s.bind(c, bulkActionSchema, &action) {
		return
	}
	if action.Type == requests.BulkDelete {
		if info := tokenInfo(c); info == nil || !info.IsSuperuser {
			s.fail(c, apperrors.NewPermissionError("Administrator access required"))
			return
		}
	}
	s.respondBulk(c, func() (int, error) {
		return s.deps.Requests.Apply(c.Request.Context(), action)
	})
}

func (s *Server) respondBulk(c *gin.Context, fn func() (int, error)) {
	n, err := fn()
	if err != nil {
		s.fail(c, err)
		return
	}
	s.invalidateDashboard(c)
	c.JSON(http.StatusOK, bulkResponse{
		Message: "Bulk action completed",
		Updated: n,
	})
}

func (s *Server) handleOverdueRequests(c *gin.Context) {
	list, err := s.deps.Requests.Overdue(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.views(list))
}

func (s *Server) handleUnassignedRequests(c *gin.Context) {
	list, err := s.deps.Requests.Unassigned(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.views(list))
}

func (s *Server) handleRequestStats(c *gin.Context) {
	stats, err := s.deps.Requests.Stats(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
