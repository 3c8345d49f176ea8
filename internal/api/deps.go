package api

import (
	"context"
	"time"

	"studentservices-api/internal/catalog"
	"studentservices-api/internal/common/auth"
	"studentservices-api/internal/contact"
	"studentservices-api/internal/dashboard"
	"studentservices-api/internal/models"
	"studentservices-api/internal/notification/dispatcher"
	"studentservices-api/internal/notification/ledger"
	"studentservices-api/internal/portfolio"
	"studentservices-api/internal/requests"
	"studentservices-api/internal/users"
)

// RequestService is implemented by *requests.Service.
type RequestService interface {
	CreatePublic(ctx context.Context, in requests.CreateInput, lang models.Language) (*models.ServiceRequest, error)
	CreateStaff(ctx context.Context, in requests.CreateInput, lang models.Language) (*models.ServiceRequest, error)
	Get(ctx context.Context, id int64) (*models.ServiceRequest, error)
	Latest(ctx context.Context) (*models.ServiceRequest, error)
	List(ctx context.Context, f requests.Filter) (*requests.Page, error)
	Update(ctx context.Context, id int64, in requests.UpdateInput) (*models.ServiceRequest, error)
	ChangeStatus(ctx context.Context, id int64, status models.RequestStatus, notes string) (*models.ServiceRequest, error)
	Assign(ctx context.Context, id int64, userID *int64) (*models.ServiceRequest, error)
	SetPriority(ctx context.Context, id int64, p models.Priority) (*models.ServiceRequest, error)
	Delete(ctx context.Context, id int64) error
	Apply(ctx context.Context, a requests.BulkAction) (int, error)
	BulkSetStatus(ctx context.Context, ids []int64, status models.RequestStatus) (int, error)
	BulkAssign(ctx context.Context, ids []int64, userID *int64) (int, error)
	Overdue(ctx context.Context) ([]*models.ServiceRequest, error)
	Unassigned(ctx context.Context) ([]*models.ServiceRequest, error)
	Stats(ctx context.Context) (*requests.Stats, error)
}

// NotificationLedger is implemented by *ledger.Ledger.
type NotificationLedger interface {
	Get(ctx context.Context, id int64) (*models.NotificationRecord, error)
	List(ctx context.Context, f ledger.ListFilter) ([]*models.NotificationRecord, int, error)
	Stats(ctx context.Context, days int) (*ledger.Stats, error)
	RecentFailures(ctx context.Context, limit int) ([]ledger.Failure, error)
	Retry(ctx context.Context, id int64, via ledger.Resender) (*models.NotificationRecord, error)
}

// Dispatcher is implemented by *dispatcher.Dispatcher.
type Dispatcher interface {
	ledger.Resender
	Dispatch(ctx context.Context, kind models.NotificationKind, req *models.ServiceRequest, language models.Language, notificationType string, opts ...dispatcher.Option) (*dispatcher.Result, error)
}

// ContactStore is implemented by *contact.Store.
type ContactStore interface {
	Create(ctx context.Context, in contact.CreateInput) (*models.ContactInquiry, error)
	Get(ctx context.Context, id int64) (*models.ContactInquiry, error)
	List(ctx context.Context, f contact.Filter) ([]*models.ContactInquiry, error)
	MarkRead(ctx context.Context, id int64) (*models.ContactInquiry, error)
	MarkResponded(ctx context.Context, id int64, notes string) (*models.ContactInquiry, error)
	BulkMarkRead(ctx context.Context, ids []int64) (int64, error)
	BulkMarkResponded(ctx context.Context, ids []int64) (int64, error)
	Delete(ctx context.Context, id int64) error
	Stats(ctx context.Context, today time.Time) (*contact.Stats, error)
}

// CatalogStore is implemented by *catalog.Store.
type CatalogStore interface {
	Categories(ctx context.Context, activeOnly bool) ([]*models.ServiceCategory, error)
	Tree(ctx context.Context, activeOnly bool) ([]*models.ServiceCategory, error)
	Category(ctx context.Context, id int64, activeOnly bool) (*models.ServiceCategory, error)
	CreateCategory(ctx context.Context, c *models.ServiceCategory) error
	UpdateCategory(ctx context.Context, c *models.ServiceCategory) error
	DeleteCategory(ctx context.Context, id int64) error
	ToggleCategoryActive(ctx context.Context, id int64) (*models.ServiceCategory, error)
	ReorderCategories(ctx context.Context, updates []models.SortUpdate) error
	CategoryStats(ctx context.Context) (*catalog.CategoryStats, error)

	Services(ctx context.Context, f catalog.ServiceFilter) ([]*models.Service, error)
	Featured(ctx context.Context) ([]*models.Service, error)
	Service(ctx context.Context, id int64, public bool) (*models.Service, error)
	CreateService(ctx context.Context, svc *models.Service) error
	UpdateService(ctx context.Context, svc *models.Service) error
	DeleteService(ctx context.Context, id int64) error
	ToggleServiceActive(ctx context.Context, id int64) (*models.Service, error)
	SetServicesActive(ctx context.Context, ids []int64, active bool) (int64, error)
	ReorderServices(ctx context.Context, updates []models.SortUpdate) error
	ServiceStats(ctx context.Context) (*catalog.ServiceStats, error)
}

// PortfolioStore is implemented by *portfolio.Store.
type PortfolioStore interface {
	List(ctx context.Context, f portfolio.Filter) ([]*models.PortfolioItem, error)
	Get(ctx context.Context, id int64, public bool) (*models.PortfolioItem, error)
	Create(ctx context.Context, item *models.PortfolioItem) error
	Update(ctx context.Context, item *models.PortfolioItem) error
	Delete(ctx context.Context, id int64) error
	ToggleFeatured(ctx context.Context, id int64) (*models.PortfolioItem, error)
	ToggleActive(ctx context.Context, id int64) (*models.PortfolioItem, error)
	SetFeatured(ctx context.Context, ids []int64, featured bool) (int64, error)
	SetActive(ctx context.Context, ids []int64, active bool) (int64, error)
	Reorder(ctx context.Context, updates []models.SortUpdate) error
	Stats(ctx context.Context) (*portfolio.Stats, error)
}

// Dashboard is implemented by *dashboard.Service.
type Dashboard interface {
	Summary(ctx context.Context) (*dashboard.Summary, error)
	Overview(ctx context.Context) (*dashboard.Overview, error)
	Analytics(ctx context.Context) (*dashboard.Analytics, error)
	Invalidate(ctx context.Context)
}

// UserStore is implemented by *users.Store.
type UserStore interface {
	Get(ctx context.Context, id int64) (*models.User, error)
	List(ctx context.Context, staffOnly bool, search string) ([]*models.User, error)
	Workload(ctx context.Context, id int64, today time.Time) (*models.Workload, error)
	UpdateProfile(ctx context.Context, id int64, in users.ProfileUpdate) (*models.User, error)
}

// Authenticator is implemented by *users.Authenticator.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (*users.LoginResult, error)
	Logout(ctx context.Context, info *auth.TokenInfo) error
}

// TokenValidator is implemented by *auth.TokenManager.
type TokenValidator interface {
	Validate(ctx context.Context, token string) (*auth.TokenInfo, error)
}

// Pinger is a dependency checked by the readiness endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the services the HTTP layer is built on. Readiness checks
// are keyed by dependency name.
type Deps struct {
	Requests      RequestService
	Notifications NotificationLedger
	Dispatcher    Dispatcher
	Contact       ContactStore
	Catalog       CatalogStore
	Portfolio     PortfolioStore
	Dashboard     Dashboard
	Users         UserStore
	Auth          Authenticator
	Tokens        TokenValidator
	Readiness     map[string]Pinger
}
