package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleDashboardStats(c *gin.Context) {
	summary, err := s.deps.Dashboard.Summary(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Server) handleDashboardOverview(c *gin.Context) {
	overview, err := s.deps.Dashboard.Overview(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, overview)
}

func (s *Server) handleDashboardAnalytics(c *gin.Context) {
	analytics, err := s.deps.Dashboard.Analytics(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, analytics)
}
