package requests

import (
	"context"
	"time"

	apperrors "studentservices-api/internal/common/errors"
	"studentservices-api/internal/models"
)

type Stats struct {
	Total       int            `json:"total"`
	Pending     int            `json:"pending"`
	InProgress  int            `json:"in_progress"`
	Completed   int            `json:"completed"`
	Cancelled   int            `json:"cancelled"`
	Overdue     int            `json:"overdue"`
	Unassigned  int            `json:"unassigned"`
	ByPriority  map[string]int `json:"by_priority"`
	Recent      RecentCounts   `json:"recent"`
	TopServices []ServiceCount `json:"top_services"`
	ByAssignee  []AssigneeLoad `json:"by_assignee"`
}

type RecentCounts struct {
	Today     int `json:"today"`
	ThisWeek  int `json:"this_week"`
	ThisMonth int `json:"this_month"`
}

type ServiceCount struct {
	Service string `json:"service__title"`
	Count   int    `json:"count"`
}

type AssigneeLoad struct {
	Username   string `json:"assigned_to__username"`
	FirstName  string `json:"assigned_to__first_name"`
	LastName   string `json:"assigned_to__last_name"`
	Total      int    `json:"total"`
	Pending    int    `json:"pending"`
	InProgress int    `json:"in_progress"`
	Completed  int    `json:"completed"`
}

// Stats aggregates request counts as of today.
func (s *Store) Stats(ctx context.Context, today time.Time) (*Stats, error) {
	day := models.DateOnly(today)
	query := `SELECT
		COUNT(*),
		COUNT(*) FILTER (WHERE status = 'pending'),
		COUNT(*) FILTER (WHERE status = 'in_progress'),
		COUNT(*) FILTER (WHERE status = 'completed'),
		COUNT(*) FILTER (WHERE status = 'cancelled'),
		COUNT(*) FILTER (WHERE deadline < $1 AND status IN ('pending', 'in_progress')),
		COUNT(*) FILTER (WHERE assigned_to IS NULL),
		COUNT(*) FILTER (WHERE priority = 'low'),
		COUNT(*) FILTER (WHERE priority = 'normal'),
		COUNT(*) FILTER (WHERE priority = 'high'),
		COUNT(*) FILTER (WHERE priority = 'urgent'),
		COUNT(*) FILTER (WHERE created_at >= $1),
		COUNT(*) FILTER (WHERE created_at >= $2),
		COUNT(*) FILTER (WHERE created_at >= $3)
		FROM service_requests`

	var (
		st                        Stats
		low, normal, high, urgent int
	)
	err := s.db.QueryRowContext(ctx, query,
		models.DateKey(day), models.DateKey(day.AddDate(0, 0, -7)), models.DateKey(day.AddDate(0, 0, -30)),
	).Scan(
		&st.Total, &st.Pending, &st.InProgress, &st.Completed, &st.Cancelled,
		&st.Overdue, &st.Unassigned,
		&low, &normal, &high, &urgent,
		&st.Recent.Today, &st.Recent.ThisWeek, &st.Recent.ThisMonth,
	)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("request stats", err)
	}
	st.ByPriority = map[string]int{"low": low, "normal": normal, "high": high, "urgent": urgent}

	if st.TopServices, err = s.topServices(ctx); err != nil {
		return nil, err
	}
	if st.ByAssignee, err = s.byAssignee(ctx); err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *Store) topServices(ctx context.Context) ([]ServiceCount, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT COALESCE(s.title, ''), COUNT(r.id)
		FROM service_requests r LEFT JOIN services s ON s.id = r.service_id
		GROUP BY s.title ORDER BY COUNT(r.id) DESC LIMIT 10`)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("top services", err)
	}
	defer rows.Close()

	out := []ServiceCount{}
	for rows.Next() {
		var c ServiceCount
		if err := rows.Scan(&c.Service, &c.Count); err != nil {
			return nil, apperrors.NewQueryExecutionFailedError("top services", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) byAssignee(ctx context.Context) ([]AssigneeLoad, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT u.username, u.first_name, u.last_name,
		COUNT(r.id),
		COUNT(r.id) FILTER (WHERE r.status = 'pending'),
		COUNT(r.id) FILTER (WHERE r.status = 'in_progress'),
		COUNT(r.id) FILTER (WHERE r.status = 'completed')
		FROM service_requests r JOIN users u ON u.id = r.assigned_to
		GROUP BY u.id, u.username, u.first_name, u.last_name
		ORDER BY COUNT(r.id) DESC`)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("assignee stats", err)
	}
	defer rows.Close()

	out := []AssigneeLoad{}
	for rows.Next() {
		var a AssigneeLoad
		if err := rows.Scan(&a.Username, &a.FirstName, &a.LastName, &a.Total, &a.Pending, &a.InProgress, &a.Completed); err != nil {
			return nil, apperrors.NewQueryExecutionFailedError("assignee stats", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
