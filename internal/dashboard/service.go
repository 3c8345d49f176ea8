package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"studentservices-api/internal/catalog"
	"studentservices-api/internal/common/logger"
	"studentservices-api/internal/contact"
	"studentservices-api/internal/portfolio"
	"studentservices-api/internal/requests"

	"github.com/redis/go-redis/v9"
)

const (
	overviewKey  = "dashboard:overview"
	analyticsKey = "dashboard:analytics"

	recentActivityLimit = 10
	topServicesLimit    = 5
	analyticsDays       = 30
)

type RequestSource interface {
	Stats(ctx context.Context) (*requests.Stats, error)
}

type CatalogSource interface {
	CategoryStats(ctx context.Context) (*catalog.CategoryStats, error)
	ServiceStats(ctx context.Context) (*catalog.ServiceStats, error)
}

type PortfolioSource interface {
	Stats(ctx context.Context) (*portfolio.Stats, error)
}

type ContactSource interface {
	Stats(ctx context.Context, today time.Time) (*contact.Stats, error)
}

// Queries is the cross-table query set. *Store implements it.
type Queries interface {
	Counters(ctx context.Context) (*Counters, error)
	RecentActivity(ctx context.Context, limit int) ([]Activity, error)
	TopServices(ctx context.Context, limit int) ([]TopService, error)
	DailyActivity(ctx context.Context, today time.Time, days int) ([]DailyCount, error)
	StatusDistribution(ctx context.Context) ([]Distribution, error)
	InquiryDistribution(ctx context.Context) ([]Distribution, error)
	CategoryPerformance(ctx context.Context) ([]CategoryPerformance, error)
}

type Sources struct {
	Requests  RequestSource
	Catalog   CatalogSource
	Portfolio PortfolioSource
	Contact   ContactSource
	Queries   Queries
}

// Service assembles dashboard payloads, caching the expensive ones in
// Redis. A nil cache or a Redis failure only costs a recomputation.
type Service struct {
	src    Sources
	cache  redis.Cmdable
	ttl    time.Duration
	logger logger.Logger
	now    func() time.Time
}

func NewService(src Sources, cache redis.Cmdable, ttl time.Duration, log logger.Logger) *Service {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Service{
		src:    src,
		cache:  cache,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "dashboard"}),
		now:    time.Now,
	}
}

type Summary struct {
	Stats          *Counters  `json:"stats"`
	RecentActivity []Activity `json:"recent_activity"`
}

// Summary is the lightweight payload for the admin landing page.
func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	counters, err := s.src.Queries.Counters(ctx)
	if err != nil {
		return nil, err
	}
	activity, err := s.src.Queries.RecentActivity(ctx, 5)
	if err != nil {
		return nil, err
	}
	return &Summary{Stats: counters, RecentActivity: activity}, nil
}

type ServicesOverview struct {
	TotalCategories  int `json:"total_categories"`
	ActiveCategories int `json:"active_categories"`
	TotalServices    int `json:"total_services"`
	ActiveServices   int `json:"active_services"`
}

type PortfolioOverview struct {
	Total    int `json:"total"`
	Active   int `json:"active"`
	Featured int `json:"featured"`
}

type ContactOverview struct {
	Total           int            `json:"total"`
	Unread          int            `json:"unread"`
	PendingResponse int            `json:"pending_response"`
	Recent          contact.Recent `json:"recent"`
}

type Alert struct {
	Type      string `json:"type"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	ActionURL string `json:"action_url"`
}

type Overview struct {
	Services       ServicesOverview  `json:"services"`
	Requests       *requests.Stats   `json:"requests"`
	Portfolio      PortfolioOverview `json:"portfolio"`
	Contact        ContactOverview   `json:"contact"`
	RecentActivity []Activity        `json:"recent_activity"`
	TopServices    []TopService      `json:"top_services"`
	Alerts         []Alert           `json:"alerts"`
	LastUpdated    time.Time         `json:"last_updated"`
}

func (s *Service) Overview(ctx context.Context) (*Overview, error) {
	var out Overview
	if s.cached(ctx, overviewKey, &out) {
		return &out, nil
	}

	now := s.now()
	reqStats, err := s.src.Requests.Stats(ctx)
	if err != nil {
		return nil, err
	}
	catStats, err := s.src.Catalog.CategoryStats(ctx)
	if err != nil {
		return nil, err
	}
	svcStats, err := s.src.Catalog.ServiceStats(ctx)
	if err != nil {
		return nil, err
	}
	pStats, err := s.src.Portfolio.Stats(ctx)
	if err != nil {
		return nil, err
	}
	cStats, err := s.src.Contact.Stats(ctx, now)
	if err != nil {
		return nil, err
	}
	counters, err := s.src.Queries.Counters(ctx)
	if err != nil {
		return nil, err
	}
	activity, err := s.src.Queries.RecentActivity(ctx, recentActivityLimit)
	if err != nil {
		return nil, err
	}
	top, err := s.src.Queries.TopServices(ctx, topServicesLimit)
	if err != nil {
		return nil, err
	}

	out = Overview{
		Services: ServicesOverview{
			TotalCategories:  catStats.Total,
			ActiveCategories: catStats.Active,
			TotalServices:    svcStats.Total,
			ActiveServices:   svcStats.Active,
		},
		Requests:       reqStats,
		Portfolio:      PortfolioOverview{Total: pStats.Total, Active: pStats.Active, Featured: pStats.Featured},
		Contact:        ContactOverview{Total: cStats.Total, Unread: cStats.Unread, PendingResponse: cStats.PendingResponse, Recent: cStats.Recent},
		RecentActivity: activity,
		TopServices:    top,
		Alerts:         buildAlerts(reqStats.Overdue, cStats.Unread, reqStats.Unassigned, counters.UnassignedUrgent),
		LastUpdated:    now.UTC(),
	}
	s.store(ctx, overviewKey, &out)
	return &out, nil
}

func buildAlerts(overdue, unread, unassigned, urgent int) []Alert {
	alerts := []Alert{}
	if urgent > 0 {
		alerts = append(alerts, Alert{
			Type:      "error",
			Title:     fmt.Sprintf("%d Urgent Request%s Unassigned", urgent, plural(urgent, "", "s")),
			Message:   fmt.Sprintf("%d high or urgent priority request%s still waiting for a staff member.", urgent, plural(urgent, " is", "s are")),
			ActionURL: "/admin/requests/?unassigned=true&priority=urgent",
		})
	}
	if overdue > 0 {
		alerts = append(alerts, Alert{
			Type:      "warning",
			Title:     fmt.Sprintf("%d Overdue Request%s", overdue, plural(overdue, "", "s")),
			Message:   fmt.Sprintf("You have %d service request%s past the deadline.", overdue, plural(overdue, "", "s")),
			ActionURL: "/admin/requests/?overdue=true",
		})
	}
	if unread > 0 {
		alerts = append(alerts, Alert{
			Type:      "info",
			Title:     fmt.Sprintf("%d Unread Inquir%s", unread, plural(unread, "y", "ies")),
			Message:   fmt.Sprintf("You have %d unread contact inquir%s.", unread, plural(unread, "y", "ies")),
			ActionURL: "/admin/contact/?unread=true",
		})
	}
	if unassigned > 0 {
		alerts = append(alerts, Alert{
			Type:      "warning",
			Title:     fmt.Sprintf("%d Unassigned Request%s", unassigned, plural(unassigned, "", "s")),
			Message:   fmt.Sprintf("You have %d service request%s without an assigned staff member.", unassigned, plural(unassigned, "", "s")),
			ActionURL: "/admin/requests/?unassigned=true",
		})
	}
	return alerts
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

type Analytics struct {
	DailyActivity       []DailyCount          `json:"daily_activity"`
	RequestStatus       []Distribution        `json:"request_status_distribution"`
	InquiryTypes        []Distribution        `json:"inquiry_type_distribution"`
	CategoryPerformance []CategoryPerformance `json:"category_performance"`
	GeneratedAt         time.Time             `json:"generated_at"`
}

// Analytics returns chart data for the last thirty days.
func (s *Service) Analytics(ctx context.Context) (*Analytics, error) {
	var out Analytics
	if s.cached(ctx, analyticsKey, &out) {
		return &out, nil
	}

	now := s.now()
	daily, err := s.src.Queries.DailyActivity(ctx, now, analyticsDays)
	if err != nil {
		return nil, err
	}
	statuses, err := s.src.Queries.StatusDistribution(ctx)
	if err != nil {
		return nil, err
	}
	inquiries, err := s.src.Queries.InquiryDistribution(ctx)
	if err != nil {
		return nil, err
	}
	perf, err := s.src.Queries.CategoryPerformance(ctx)
	if err != nil {
		return nil, err
	}

	out = Analytics{
		DailyActivity:       daily,
		RequestStatus:       statuses,
		InquiryTypes:        inquiries,
		CategoryPerformance: perf,
		GeneratedAt:         now.UTC(),
	}
	s.store(ctx, analyticsKey, &out)
	return &out, nil
}

func (s *Service) cached(ctx context.Context, key string, dst interface{}) bool {
	if s.cache == nil {
		return false
	}
	val, err := s.cache.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false
	}
	if err != nil {
		s.logger.Warn("dashboard cache read failed", map[string]interface{}{"key": key, "error": err})
		return false
	}
	if err := json.Unmarshal([]byte(val), dst); err != nil {
		s.logger.Warn("discarding corrupt dashboard cache entry", map[string]interface{}{"key": key, "error": err})
		return false
	}
	return true
}

func (s *Service) store(ctx context.Context, key string, v interface{}) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, data, s.ttl).Err(); err != nil {
		s.logger.Warn("dashboard cache write failed", map[string]interface{}{"key": key, "error": err})
	}
}

// Invalidate drops cached payloads so the next read recomputes them.
func (s *Service) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, overviewKey, analyticsKey).Err(); err != nil {
		s.logger.Warn("dashboard cache invalidation failed", map[string]interface{}{"error": err})
	}
}
