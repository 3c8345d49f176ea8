package api

import (
	"context"
	"net/http"
	"time"

	apperrors "studentservices-api/internal/common/errors"
	"studentservices-api/internal/models"
	"studentservices-api/internal/portfolio"

	"github.com/gin-gonic/gin"
)

// portfolioPayload is the writable shape of a portfolio item. The
// completion date travels as YYYY-MM-DD.
type portfolioPayload struct {
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	CategoryID      int64    `json:"category"`
	Image           string   `json:"image"`
	ClientType      string   `json:"client_type"`
	CompletionDate  string   `json:"completion_date"`
	Technologies    []string `json:"technologies"`
	ProjectDuration string   `json:"project_duration"`
	IsFeatured      bool     `json:"is_featured"`
	IsActive        bool     `json:"is_active"`
	SortOrder       int      `json:"sort_order"`
}

func payloadFromItem(item *models.PortfolioItem) portfolioPayload {
	return portfolioPayload{
		Title:           item.Title,
		Description:     item.Description,
		CategoryID:      item.CategoryID,
		Image:           item.Image,
		ClientType:      item.ClientType,
		CompletionDate:  item.CompletionDate.Format("2006-01-02"),
		Technologies:    item.Technologies,
		ProjectDuration: item.ProjectDuration,
		IsFeatured:      item.IsFeatured,
		IsActive:        item.IsActive,
		SortOrder:       item.SortOrder,
	}
}

func (p portfolioPayload) apply(item *models.PortfolioItem) error {
	date, err := time.Parse("2006-01-02", p.CompletionDate)
	if err != nil {
		return apperrors.NewFieldError("completion_date", "Date has wrong format. Use YYYY-MM-DD.")
	}
	item.Title = p.Title
	item.Description = p.Description
	item.CategoryID = p.CategoryID
	item.Image = p.Image
	item.ClientType = p.ClientType
	item.CompletionDate = date
	item.Technologies = p.Technologies
	if item.Technologies == nil {
		item.Technologies = []string{}
	}
	item.ProjectDuration = p.ProjectDuration
	item.IsFeatured = p.IsFeatured
	item.IsActive = p.IsActive
	item.SortOrder = p.SortOrder
	return nil
}

func (s *Server) handlePublicPortfolio(c *gin.Context) {
	s.listPortfolio(c, portfolio.Filter{
		Public:     true,
		CategoryID: int64Query(c, "category"),
		Featured:   boolQuery(c, "is_featured"),
		Search:     c.Query("search"),
	})
}

func (s *Server) handleFeaturedPortfolio(c *gin.Context) {
	featured := true
	s.listPortfolio(c, portfolio.Filter{Public: true, Featured: &featured})
}

func (s *Server) handlePublicPortfolioItem(c *gin.Context) {
	s.getPortfolioItem(c, true)
}

func (s *Server) handleListPortfolio(c *gin.Context) {
	recent, _ := c.GetQuery("recent")
	s.listPortfolio(c, portfolio.Filter{
		CategoryID: int64Query(c, "category"),
		Featured:   boolQuery(c, "is_featured"),
		Active:     boolQuery(c, "is_active"),
		Search:     c.Query("search"),
		Recent:     recent == "true",
	})
}

func (s *Server) listPortfolio(c *gin.Context, f portfolio.Filter) {
	list, err := s.deps.Portfolio.List(c.Request.Context(), f)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) handleGetPortfolioItem(c *gin.Context) {
	s.getPortfolioItem(c, false)
}

func (s *Server) getPortfolioItem(c *gin.Context, public bool) {
	id, err := idParam(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	item, err := s.deps.Portfolio.Get(c.Request.Context(), id, public)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (s *Server) handleCreatePortfolioItem(c *gin.Context) {
	p := portfolioPayload{IsActive: true}
	if !s.bind(c, portfolioSchema, &p) {
		return
	}
	var item models.PortfolioItem
	if err := p.apply(&item); err != nil {
		s.fail(c, err)
		return
	}
	if err := s.deps.Portfolio.Create(c.Request.Context(), &item); err != nil {
		s.fail(c, err)
		return
	}
	s.invalidateDashboard(c)
	c.JSON(http.StatusCreated, item)
}

func (s *Server) handleUpdatePortfolioItem(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	item, err := s.deps.Portfolio.Get(c.Request.Context(), id, false)
	if err != nil {
		s.fail(c, err)
		return
	}
	p := payloadFromItem(item)
	if !s.overlay(c, portfolioSchema, &p) {
		return
	}
	if err := p.apply(item); err != nil {
		s.fail(c, err)
		return
	}
	item.ID = id
	if err := s.deps.Portfolio.Update(c.Request.Context(), item); err != nil {
		s.fail(c, err)
		return
	}
	s.invalidateDashboard(c)
	c.JSON(http.StatusOK, item)
}

func (s *Server) handleDeletePortfolioItem(c *gin.Context) {
	s.deleteByID(c, s.deps.Portfolio.Delete)
}

func (s *Server) handleTogglePortfolioFeatured(c *gin.Context) {
	s.togglePortfolio(c, s.deps.Portfolio.ToggleFeatured)
}

func (s *Server) handleTogglePortfolioActive(c *gin.Context) {
	s.togglePortfolio(c, s.deps.Portfolio.ToggleActive)
}

func (s *Server) togglePortfolio(c *gin.Context, fn func(ctx context.Context, id int64) (*models.PortfolioItem, error)) {
	id, err := idParam(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	item, err := fn(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.invalidateDashboard(c)
	c.JSON(http.StatusOK, item)
}

func (s *Server) handleBulkPortfolioFeatured(c *gin.Context) {
	var body idsBody
	if !s.bind(c, idsSchema, &body) {
		return
	}
	featured := body.Value == nil || *body.Value
	label := "items featured"
	if !featured {
		label = "items unfeatured"
	}
	s.respondCount(c, label, func() (int64, error) {
		return s.deps.Portfolio.SetFeatured(c.Request.Context(), body.IDs, featured)
	})
}

func (s *Server) handleBulkPortfolioActive(c *gin.Context) {
	var body idsBody
	if !s.bind(c, idsSchema, &body) {
		return
	}
	active := body.Value == nil || *body.Value
	label := "items activated"
	if !active {
		label = "items deactivated"
	}
	s.respondCount(c, label, func() (int64, error) {
		return s.deps.Portfolio.SetActive(c.Request.Context(), body.IDs, active)
	})
}

func (s *Server) handleReorderPortfolio(c *gin.Context) {
	s.reorder(c, s.deps.Portfolio.Reorder)
}

func (s *Server) handlePortfolioStats(c *gin.Context) {
	stats, err := s.deps.Portfolio.Stats(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
