// Package api exposes the public site, staff dashboard and ops endpoints
// over HTTP.
package api

import (
	"time"

	apperrors "studentservices-api/internal/common/errors"
	"studentservices-api/internal/common/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	router  *gin.Engine
	deps    Deps
	errors  *apperrors.ErrorHandler
	logger  logger.Logger
	now     func() time.Time
	origins []string
}

type Option func(*Server)

// WithAllowedOrigins enables CORS for the given frontend origins.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) { s.origins = origins }
}

// NewServer builds the router with every route registered.
func NewServer(deps Deps, log logger.Logger, opts ...Option) *Server {
	log = log.WithFields(map[string]interface{}{"component": "api"})

	router := gin.New()
	s := &Server{
		router: router,
		deps:   deps,
		errors: apperrors.NewErrorHandler(log),
		logger: log,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	router.Use(s.recovery(), s.cors(), s.accessLog(), s.metrics())
	s.setupRoutes()
	return s
}

// Handler returns the http.Handler to mount on an http.Server.
func (s *Server) Handler() *gin.Engine {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/ready", s.handleReady)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	public := s.router.Group("/api/public")
	{
		public.POST("/requests", s.handleCreatePublicRequest)
		public.GET("/categories", s.handlePublicCategories)
		public.GET("/categories/tree", s.handlePublicCategoryTree)
		public.GET("/services", s.handlePublicServices)
		public.GET("/services/featured", s.handleFeaturedServices)
		public.GET("/services/:id", s.handlePublicService)
		public.GET("/portfolio", s.handlePublicPortfolio)
		public.GET("/portfolio/featured", s.handleFeaturedPortfolio)
		public.GET("/portfolio/:id", s.handlePublicPortfolioItem)
		public.POST("/contact", s.handleCreateInquiry)
	}

	authGroup := s.router.Group("/api/auth")
	{
		authGroup.POST("/login", s.handleLogin)
		authGroup.POST("/logout", s.authenticate(), s.handleLogout)
		authGroup.GET("/profile", s.authenticate(), s.handleProfile)
		authGroup.PATCH("/profile", s.authenticate(), s.handleUpdateProfile)
	}

	admin := s.router.Group("/api/admin", s.authenticate(), s.requireStaff())
	superuser := s.requireSuperuser()

	reqs := admin.Group("/requests")
	{
		reqs.GET("", s.handleListRequests)
		reqs.POST("", s.handleCreateStaffRequest)
		reqs.GET("/overdue", s.handleOverdueRequests)
		reqs.GET("/unassigned", s.handleUnassignedRequests)
		reqs.GET("/stats", s.handleRequestStats)
		reqs.POST("/bulk/status", s.handleBulkStatus)
		reqs.POST("/bulk/assign", s.handleBulkAssign)
		reqs.POST("/bulk/action", s.handleBulkAction)
		reqs.GET("/:id", s.handleGetRequest)
		reqs.PATCH("/:id", s.handleUpdateRequest)
		reqs.DELETE("/:id", superuser, s.handleDeleteRequest)
		reqs.PATCH("/:id/status", s.handleChangeStatus)
		reqs.PATCH("/:id/assign", s.handleAssign)
		reqs.PATCH("/:id/priority", s.handleSetPriority)
	}

	admin.GET("/users", s.handleListUsers)
	admin.GET("/users/workload", s.handleWorkload)

	notifications := admin.Group("/notifications")
	{
		notifications.GET("", s.handleListNotifications)
		notifications.GET("/stats", s.handleNotificationStats)
		notifications.GET("/recent_failures", s.handleRecentFailures)
		notifications.POST("/test_send", s.handleTestSend)
		notifications.GET("/:id", s.handleGetNotification)
		notifications.POST("/:id/retry", s.handleRetryNotification)
	}

	inquiries := admin.Group("/contact")
	{
		inquiries.GET("", s.handleListInquiries)
		inquiries.GET("/unread", s.handleUnreadInquiries)
		inquiries.GET("/pending", s.handlePendingInquiries)
		inquiries.GET("/stats", s.handleInquiryStats)
		inquiries.POST("/bulk/mark_read", s.handleBulkMarkRead)
		inquiries.POST("/bulk/mark_responded", s.handleBulkMarkResponded)
		inquiries.GET("/:id", s.handleGetInquiry)
		inquiries.POST("/:id/mark_read", s.handleMarkRead)
		inquiries.POST("/:id/mark_responded", s.handleMarkResponded)
		inquiries.DELETE("/:id", superuser, s.handleDeleteInquiry)
	}

	categories := admin.Group("/categories")
	{
		categories.GET("", s.handleListCategories)
		categories.POST("", s.handleCreateCategory)
		categories.GET("/stats", s.handleCategoryStats)
		categories.POST("/bulk/order", s.handleReorderCategories)
		categories.GET("/:id", s.handleGetCategory)
		categories.PATCH("/:id", s.handleUpdateCategory)
		categories.DELETE("/:id", superuser, s.handleDeleteCategory)
		categories.POST("/:id/toggle_active", s.handleToggleCategory)
	}

	services := admin.Group("/services")
	{
		services.GET("", s.handleListServices)
		services.POST("", s.handleCreateService)
		services.GET("/stats", s.handleServiceStats)
		services.POST("/bulk/order", s.handleReorderServices)
		services.POST("/bulk/active", s.handleBulkServicesActive)
		services.GET("/:id", s.handleGetService)
		services.PATCH("/:id", s.handleUpdateService)
		services.DELETE("/:id", superuser, s.handleDeleteService)
		services.POST("/:id/toggle_active", s.handleToggleService)
	}

	items := admin.Group("/portfolio")
	{
		items.GET("", s.handleListPortfolio)
		items.POST("", s.handleCreatePortfolioItem)
		items.GET("/stats", s.handlePortfolioStats)
		items.POST("/bulk/order", s.handleReorderPortfolio)
		items.POST("/bulk/featured", s.handleBulkPortfolioFeatured)
		items.POST("/bulk/active", s.handleBulkPortfolioActive)
		items.GET("/:id", s.handleGetPortfolioItem)
		items.PATCH("/:id", s.handleUpdatePortfolioItem)
		items.DELETE("/:id", superuser, s.handleDeletePortfolioItem)
		items.POST("/:id/toggle_featured", s.handleTogglePortfolioFeatured)
		items.POST("/:id/toggle_active", s.handleTogglePortfolioActive)
	}

	dash := admin.Group("/dashboard")
	{
		dash.GET("/stats", s.handleDashboardStats)
		dash.GET("/overview", s.handleDashboardOverview)
		dash.GET("/analytics", s.handleDashboardAnalytics)
	}
}
