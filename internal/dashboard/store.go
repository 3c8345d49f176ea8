// Package dashboard aggregates figures from every area of the admin panel.
package dashboard

import (
	"context"
	"database/sql"
	"time"

	apperrors "studentservices-api/internal/common/errors"
	"studentservices-api/internal/models"
)

// Activity is one entry of the recent activity feed.
type Activity struct {
	ID          int64     `json:"id"`
	Type        string    `json:"type"`
	Title       string    `json:"title"`
	Subtitle    string    `json:"subtitle"`
	Status      string    `json:"status"`
	Priority    string    `json:"priority,omitempty"`
	InquiryType string    `json:"inquiry_type,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type TopService struct {
	ID           int64  `json:"id"`
	Title        string `json:"title"`
	Category     string `json:"category"`
	RequestCount int    `json:"request_count"`
	IsActive     bool   `json:"is_active"`
}

type DailyCount struct {
	Date      string `json:"date"`
	Requests  int    `json:"requests"`
	Inquiries int    `json:"inquiries"`
}

type Distribution struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Count int    `json:"count"`
}

type CategoryPerformance struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	Services       int    `json:"services"`
	Requests       int    `json:"requests"`
	PortfolioItems int    `json:"portfolio_items"`
}

type Counters struct {
	ActiveServices   int `json:"totalServices"`
	PendingRequests  int `json:"pendingRequests"`
	ActiveRequests   int `json:"activeRequests"`
	PortfolioItems   int `json:"portfolioItems"`
	UnassignedUrgent int `json:"unassignedUrgent"`
}

// Store runs the cross-table queries no single area owns.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Counters(ctx context.Context) (*Counters, error) {
	var c Counters
	err := s.db.QueryRowContext(ctx, `SELECT
		(SELECT COUNT(*) FROM services WHERE is_active),
		(SELECT COUNT(*) FROM service_requests WHERE status = 'pending'),
		(SELECT COUNT(*) FROM service_requests WHERE status = 'in_progress'),
		(SELECT COUNT(*) FROM portfolio_items WHERE is_active),
		(SELECT COUNT(*) FROM service_requests WHERE assigned_to IS NULL AND status = 'pending'
			AND priority IN ('high', 'urgent'))`,
	).Scan(&c.ActiveServices, &c.PendingRequests, &c.ActiveRequests, &c.PortfolioItems, &c.UnassignedUrgent)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("dashboard counters", err)
	}
	return &c, nil
}

// RecentActivity merges the newest requests and inquiries, newest first.
func (s *Store) RecentActivity(ctx context.Context, limit int) ([]Activity, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT * FROM (
		(SELECT r.id, 'service_request', r.project_title, COALESCE(sv.title, ''), r.status, r.priority, '', r.created_at
			FROM service_requests r LEFT JOIN services sv ON sv.id = r.service_id
			ORDER BY r.created_at DESC LIMIT $1)
		UNION ALL
		(SELECT q.id, 'contact_inquiry', q.subject, q.name,
			CASE WHEN q.is_responded THEN 'responded' ELSE 'pending' END, '', q.inquiry_type, q.created_at
			FROM contact_inquiries q ORDER BY q.created_at DESC LIMIT $1)
		) activity ORDER BY 8 DESC LIMIT $1`, limit)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("recent activity", err)
	}
	defer rows.Close()

	out := []Activity{}
	for rows.Next() {
		var (
			a           Activity
			subtitle    string
			status      string
			priority    string
			inquiryType string
		)
		if err := rows.Scan(&a.ID, &a.Type, &a.Title, &subtitle, &status, &priority, &inquiryType, &a.CreatedAt); err != nil {
			return nil, apperrors.NewQueryExecutionFailedError("recent activity", err)
		}
		if a.Type == "service_request" {
			a.Subtitle = "Service: " + subtitle
			a.Status = models.RequestStatus(status).Label()
			a.Priority = models.Priority(priority).Label()
		} else {
			a.Subtitle = "From: " + subtitle
			a.Status = "Pending"
			if status == "responded" {
				a.Status = "Responded"
			}
			a.InquiryType = models.InquiryType(inquiryType).Label()
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("recent activity", err)
	}
	return out, nil
}

// TopServices ranks services that have at least one request.
func (s *Store) TopServices(ctx context.Context, limit int) ([]TopService, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT s.id, s.title, c.name, COUNT(r.id), s.is_active
		FROM services s
		JOIN service_categories c ON c.id = s.category_id
		JOIN service_requests r ON r.service_id = s.id
		GROUP BY s.id, s.title, c.name, s.is_active
		ORDER BY COUNT(r.id) DESC, s.title
		LIMIT $1`, limit)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("top services", err)
	}
	defer rows.Close()

	out := []TopService{}
	for rows.Next() {
		var t TopService
		if err := rows.Scan(&t.ID, &t.Title, &t.Category, &t.RequestCount, &t.IsActive); err != nil {
			return nil, apperrors.NewQueryExecutionFailedError("top services", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("top services", err)
	}
	return out, nil
}

// DailyActivity returns one entry per day for the days ending today,
// oldest first. Days without activity are present with zero counts.
func (s *Store) DailyActivity(ctx context.Context, today time.Time, days int) ([]DailyCount, error) {
	end := models.DateOnly(today)
	start := end.AddDate(0, 0, -(days - 1))

	counts := make(map[string]*DailyCount, days)
	out := make([]DailyCount, days)
	for i := 0; i < days; i++ {
		out[i].Date = start.AddDate(0, 0, i).Format("2006-01-02")
		counts[out[i].Date] = &out[i]
	}

	rows, err := s.db.QueryContext(ctx, `SELECT day, SUM(requests), SUM(inquiries) FROM (
		SELECT created_at::date AS day, 1 AS requests, 0 AS inquiries FROM service_requests WHERE created_at::date >= $1
		UNION ALL
		SELECT created_at::date, 0, 1 FROM contact_inquiries WHERE created_at::date >= $1
		) d GROUP BY day`, start)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("daily activity", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			day                 time.Time
			requests, inquiries int
		)
		if err := rows.Scan(&day, &requests, &inquiries); err != nil {
			return nil, apperrors.NewQueryExecutionFailedError("daily activity", err)
		}
		if c, ok := counts[day.Format("2006-01-02")]; ok {
			c.Requests = requests
			c.Inquiries = inquiries
		}
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("daily activity", err)
	}
	return out, nil
}

// StatusDistribution counts requests per status, listing every status.
func (s *Store) StatusDistribution(ctx context.Context) ([]Distribution, error) {
	counts, err := s.groupCount(ctx, "status distribution", `SELECT status, COUNT(*) FROM service_requests GROUP BY status`)
	if err != nil {
		return nil, err
	}
	out := make([]Distribution, 0, len(models.Statuses))
	for _, st := range models.Statuses {
		out = append(out, Distribution{Key: string(st), Label: st.Label(), Count: counts[string(st)]})
	}
	return out, nil
}

// InquiryDistribution counts inquiries per type, listing every type.
func (s *Store) InquiryDistribution(ctx context.Context) ([]Distribution, error) {
	counts, err := s.groupCount(ctx, "inquiry distribution", `SELECT inquiry_type, COUNT(*) FROM contact_inquiries GROUP BY inquiry_type`)
	if err != nil {
		return nil, err
	}
	out := make([]Distribution, 0, len(models.InquiryTypes))
	for _, t := range models.InquiryTypes {
		out = append(out, Distribution{Key: string(t), Label: t.Label(), Count: counts[string(t)]})
	}
	return out, nil
}

func (s *Store) groupCount(ctx context.Context, op, query string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError(op, err)
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var (
			key string
			n   int
		)
		if err := rows.Scan(&key, &n); err != nil {
			return nil, apperrors.NewQueryExecutionFailedError(op, err)
		}
		counts[key] = n
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewQueryExecutionFailedError(op, err)
	}
	return counts, nil
}

func (s *Store) CategoryPerformance(ctx context.Context) ([]CategoryPerformance, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT c.id, c.name,
		(SELECT COUNT(*) FROM services s WHERE s.category_id = c.id),
		(SELECT COUNT(*) FROM service_requests r JOIN services s ON s.id = r.service_id WHERE s.category_id = c.id),
		(SELECT COUNT(*) FROM portfolio_items p WHERE p.category_id = c.id)
		FROM service_categories c
		WHERE c.is_active
		ORDER BY c.sort_order, c.name`)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("category performance", err)
	}
	defer rows.Close()

	out := []CategoryPerformance{}
	for rows.Next() {
		var p CategoryPerformance
		if err := rows.Scan(&p.ID, &p.Name, &p.Services, &p.Requests, &p.PortfolioItems); err != nil {
			return nil, apperrors.NewQueryExecutionFailedError("category performance", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("category performance", err)
	}
	return out, nil
}
