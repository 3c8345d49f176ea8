package api

import (
	"net/http"

	"studentservices-api/internal/catalog"
	"studentservices-api/internal/models"

	"github.com/gin-gonic/gin"
)

func (s *Server) handlePublicCategories(c *gin.Context) {
	list, err := s.deps.Catalog.Categories(c.Request.Context(), true)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) handlePublicCategoryTree(c *gin.Context) {
	tree, err := s.deps.Catalog.Tree(c.Request.Context(), true)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, tree)
}

func (s *Server) handlePublicServices(c *gin.Context) {
	s.listServices(c, catalog.ServiceFilter{
		Public:     true,
		CategoryID: int64Query(c, "category"),
		Search:     c.Query("search"),
	})
}

func (s *Server) handleFeaturedServices(c *gin.Context) {
	list, err := s.deps.Catalog.Featured(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) handlePublicService(c *gin.Context) {
	s.getService(c, true)
}

func (s *Server) handleListCategories(c *gin.Context) {
	list, err := s.deps.Catalog.Categories(c.Request.Context(), false)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) handleGetCategory(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	cat, err := s.deps.Catalog.Category(c.Request.Context(), id, false)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cat)
}

func (s *Server) handleCreateCategory(c *gin.Context) {
	cat := models.ServiceCategory{IsActive: true}
	if !s.bind(c, categorySchema, &cat) {
		return
	}
	cat.ID = 0
	if err := s.deps.Catalog.CreateCategory(c.Request.Context(), &cat); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, cat)
}

// handleUpdateCategory overlays the body on the stored category and
// validates the merged result.
func (s *Server) handleUpdateCategory(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	cat, err := s.deps.Catalog.Category(c.Request.Context(), id, false)
	if err != nil {
		s.fail(c, err)
		return
	}
	if !s.overlay(c, categorySchema, cat) {
		return
	}
	cat.ID = id
	cat.Children = nil
	if err := s.deps.Catalog.UpdateCategory(c.Request.Context(), cat); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cat)
}

func (s *Server) handleDeleteCategory(c *gin.Context) {
	s.deleteByID(c, s.deps.Catalog.DeleteCategory)
}

func (s *Server) handleToggleCategory(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	cat, err := s.deps.Catalog.ToggleCategoryActive(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cat)
}

func (s *Server) handleReorderCategories(c *gin.Context) {
	s.reorder(c, s.deps.Catalog.ReorderCategories)
}

func (s *Server) handleCategoryStats(c *gin.Context) {
	stats, err := s.deps.Catalog.CategoryStats(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) handleListServices(c *gin.Context) {
	s.listServices(c, catalog.ServiceFilter{
		CategoryID: int64Query(c, "category"),
		Active:     boolQuery(c, "is_active"),
		Search:     c.Query("search"),
	})
}

func (s *Server) listServices(c *gin.Context, f catalog.ServiceFilter) {
	list, err := s.deps.Catalog.Services(c.Request.Context(), f)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) handleGetService(c *gin.Context) {
	s.getService(c, false)
}

func (s *Server) getService(c *gin.Context, public bool) {
	id, err := idParam(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	svc, err := s.deps.Catalog.Service(c.Request.Context(), id, public)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, svc)
}

func (s *Server) handleCreateService(c *gin.Context) {
	svc := models.Service{IsActive: true, Features: []string{}}
	if !s.bind(c, serviceSchema, &svc) {
		return
	}
	svc.ID = 0
	if err := s.deps.Catalog.CreateService(c.Request.Context(), &svc); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, svc)
}

func (s *Server) handleUpdateService(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	svc, err := s.deps.Catalog.Service(c.Request.Context(), id, false)
	if err != nil {
		s.fail(c, err)
		return
	}
	if !s.overlay(c, serviceSchema, svc) {
		return
	}
	svc.ID = id
	if err := s.deps.Catalog.UpdateService(c.Request.Context(), svc); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, svc)
}

func (s *Server) handleDeleteService(c *gin.Context) {
	s.deleteByID(c, s.deps.Catalog.DeleteService)
}

func (s *Server) handleToggleService(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	svc, err := s.deps.Catalog.ToggleServiceActive(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, svc)
}

// handleBulkServicesActive sets is_active to value (default true) on ids.
func (s *Server) handleBulkServicesActive(c *gin.Context) {
	var body idsBody
	if !s.bind(c, idsSchema, &body) {
		return
	}
	active := body.Value == nil || *body.Value
	label := "services activated"
	if !active {
		label = "services deactivated"
	}
	s.respondCount(c, label, func() (int64, error) {
		return s.deps.Catalog.SetServicesActive(c.Request.Context(), body.IDs, active)
	})
}

func (s *Server) handleReorderServices(c *gin.Context) {
	s.reorder(c, s.deps.Catalog.ReorderServices)
}

func (s *Server) handleServiceStats(c *gin.Context) {
	stats, err := s.deps.Catalog.ServiceStats(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
