package api

import (
	"context"
	"fmt"
	"net/http"

	"studentservices-api/internal/contact"
	"studentservices-api/internal/models"

	"github.com/gin-gonic/gin"
)

type idsBody struct {
	IDs   []int64 `json:"ids"`
	Value *bool   `json:"value"`
}

func (s *Server) handleCreateInquiry(c *gin.Context) {
	var in contact.CreateInput
	if !s.bind(c, contactSchema, &in) {
		return
	}
	q, err := s.deps.Contact.Create(c.Request.Context(), in)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.invalidateDashboard(c)
	c.JSON(http.StatusCreated, gin.H{
		"message":    "Thank you for your inquiry! We will get back to you soon.",
		"inquiry_id": q.ID,
	})
}

func (s *Server) handleListInquiries(c *gin.Context) {
	s.listInquiries(c, contact.Filter{
		InquiryType: models.InquiryType(c.Query("inquiry_type")),
		IsRead:      boolQuery(c, "is_read"),
		IsResponded: boolQuery(c, "is_responded"),
		Search:      c.Query("search"),
		Ordering:    c.Query("ordering"),
	})
}

func (s *Server) handleUnreadInquiries(c *gin.Context) {
	unread := false
	s.listInquiries(c, contact.Filter{IsRead: &unread})
}

func (s *Server) handlePendingInquiries(c *gin.Context) {
	pending := false
	s.listInquiries(c, contact.Filter{IsResponded: &pending})
}

func (s *Server) listInquiries(c *gin.Context, f contact.Filter) {
	list, err := s.deps.Contact.List(c.Request.Context(), f)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) handleGetInquiry(c *gin.Context) {
	s.inquiryAction(c, s.deps.Contact.Get)
}

func (s *Server) handleMarkRead(c *gin.Context) {
	s.inquiryAction(c, s.deps.Contact.MarkRead)
}

func (s *Server) handleMarkResponded(c *gin.Context) {
	var body struct {
		ResponseNotes string `json:"response_notes"`
	}
	if !s.bind(c, respondSchema, &body) {
		return
	}
	s.inquiryAction(c, func(ctx context.Context, id int64) (*models.ContactInquiry, error) {
		return s.deps.Contact.MarkResponded(ctx, id, body.ResponseNotes)
	})
}

func (s *Server) inquiryAction(c *gin.Context, fn func(ctx context.Context, id int64) (*models.ContactInquiry, error)) {
	id, err := idParam(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	q, err := fn(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

func (s *Server) handleBulkMarkRead(c *gin.Context) {
	var body idsBody
	if !s.bind(c, idsSchema, &body) {
		return
	}
	s.respondCount(c, "inquiries marked as read", func() (int64, error) {
		return s.deps.Contact.BulkMarkRead(c.Request.Context(), body.IDs)
	})
}

func (s *Server) handleBulkMarkResponded(c *gin.Context) {
	var body idsBody
	if !s.bind(c, idsSchema, &body) {
		return
	}
	s.respondCount(c, "inquiries marked as responded", func() (int64, error) {
		return s.deps.Contact.BulkMarkResponded(c.Request.Context(), body.IDs)
	})
}

func (s *Server) handleDeleteInquiry(c *gin.Context) {
	s.deleteByID(c, s.deps.Contact.Delete)
}

func (s *Server) handleInquiryStats(c *gin.Context) {
	stats, err := s.deps.Contact.Stats(c.Request.Context(), s.now())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// respondCount writes "<n> <what>" for bulk updates.
func (s *Server) respondCount(c *gin.Context, what string, fn func() (int64, error)) {
	n, err := fn()
	if err != nil {
		s.fail(c, err)
		return
	}
	s.invalidateDashboard(c)
	c.JSON(http.StatusOK, gin.H{
		"message":       fmt.Sprintf("%d %s", n, what),
		"updated_count": n,
	})
}

func (s *Server) deleteByID(c *gin.Context, fn func(ctx context.Context, id int64) error) {
	id, err := idParam(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	if err := fn(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}
	s.invalidateDashboard(c)
	c.Status(http.StatusNoContent)
}
