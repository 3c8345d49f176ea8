package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "studentservices-api/internal/common/errors"
	"studentservices-api/internal/models"

	"github.com/lib/pq"
)

const selectService = `SELECT s.id, s.category_id, c.name, s.title, s.description, s.short_description,
	s.price_range, s.delivery_time, s.features, s.is_active, s.sort_order, s.created_at, s.updated_at
	FROM services s
	JOIN service_categories c ON c.id = s.category_id`

const featuredLimit = 6

// ServiceFilter narrows Services. Public restricts to active services in
// active categories.
type ServiceFilter struct {
	Public     bool
	CategoryID int64
	Active     *bool
	Search     string
	Limit      int
}

func (s *Store) Services(ctx context.Context, f ServiceFilter) ([]*models.Service, error) {
	var (
		where []string
		args  []interface{}
	)
	if f.Public {
		where = append(where, "s.is_active = true AND c.is_active = true")
	}
	if f.Active != nil {
		args = append(args, *f.Active)
		where = append(where, fmt.Sprintf("s.is_active = $%d", len(args)))
	}
	if f.CategoryID > 0 {
		args = append(args, f.CategoryID)
		where = append(where, fmt.Sprintf("s.category_id = $%d", len(args)))
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		args = append(args, "%"+search+"%")
		n := len(args)
		where = append(where, fmt.Sprintf("(s.title ILIKE $%d OR s.description ILIKE $%d OR s.short_description ILIKE $%d)", n, n, n))
	}

	query := selectService
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY c.sort_order, s.category_id, s.sort_order, s.title"
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("list services", err)
	}
	defer rows.Close()

	out := []*models.Service{}
	for rows.Next() {
		svc, err := scanService(rows)
		if err != nil {
			return nil, apperrors.NewQueryExecutionFailedError("list services", err)
		}
		out = append(out, svc)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("list services", err)
	}
	return out, nil
}

// Featured returns the first public services in catalog order.
func (s *Store) Featured(ctx context.Context) ([]*models.Service, error) {
	return s.Services(ctx, ServiceFilter{Public: true, Limit: featuredLimit})
}

func (s *Store) Service(ctx context.Context, id int64, public bool) (*models.Service, error) {
	query := selectService + ` WHERE s.id = $1`
	if public {
		query += ` AND s.is_active = true AND c.is_active = true`
	}
	svc, err := scanService(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError("Service", id)
	}
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("get service", err)
	}
	return svc, nil
}

func (s *Store) CreateService(ctx context.Context, svc *models.Service) error {
	now := time.Now().UTC()
	err := s.db.QueryRowContext(ctx, `INSERT INTO services
		(category_id, title, description, short_description, price_range, delivery_time,
		 features, is_active, sort_order, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
		RETURNING id, created_at, updated_at`,
		svc.CategoryID, svc.Title, svc.Description, svc.ShortDescription, svc.PriceRange,
		svc.DeliveryTime, pq.Array(svc.Features), svc.IsActive, svc.SortOrder, now,
	).Scan(&svc.ID, &svc.CreatedAt, &svc.UpdatedAt)
	if err != nil {
		return apperrors.NewQueryExecutionFailedError("create service", err)
	}
	return nil
}

func (s *Store) UpdateService(ctx context.Context, svc *models.Service) error {
	svc.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `UPDATE services SET
		category_id = $1, title = $2, description = $3, short_description = $4, price_range = $5,
		delivery_time = $6, features = $7, is_active = $8, sort_order = $9, updated_at = $10
		WHERE id = $11`,
		svc.CategoryID, svc.Title, svc.Description, svc.ShortDescription, svc.PriceRange,
		svc.DeliveryTime, pq.Array(svc.Features), svc.IsActive, svc.SortOrder, svc.UpdatedAt, svc.ID)
	if err != nil {
		return apperrors.NewQueryExecutionFailedError("update service", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NewNotFoundError("Service", svc.ID)
	}
	return nil
}

func (s *Store) DeleteService(ctx context.Context, id int64) error {
	return s.deleteRow(ctx, "services", "Service", id)
}

func (s *Store) ToggleServiceActive(ctx context.Context, id int64) (*models.Service, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE services SET is_active = NOT is_active, updated_at = $1 WHERE id = $2`, time.Now().UTC(), id)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("toggle service", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, apperrors.NewNotFoundError("Service", id)
	}
	return s.Service(ctx, id, false)
}

// SetServicesActive sets is_active on every listed service and reports how
// many rows changed.
func (s *Store) SetServicesActive(ctx context.Context, ids []int64, active bool) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE services SET is_active = $1, updated_at = $2 WHERE id = ANY($3)`,
		active, time.Now().UTC(), pq.Array(ids))
	if err != nil {
		return 0, apperrors.NewQueryExecutionFailedError("bulk toggle services", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (s *Store) ReorderServices(ctx context.Context, updates []models.SortUpdate) error {
	return Reorder(ctx, s.db, "services", updates)
}

type CategoryCount struct {
	Total  int `json:"total"`
	Active int `json:"active"`
}

type ServiceStats struct {
	Total      int                      `json:"total"`
	Active     int                      `json:"active"`
	Inactive   int                      `json:"inactive"`
	ByCategory map[string]CategoryCount `json:"by_category"`
}

func (s *Store) ServiceStats(ctx context.Context) (*ServiceStats, error) {
	st := &ServiceStats{ByCategory: map[string]CategoryCount{}}
	err := s.db.QueryRowContext(ctx, `SELECT
		COUNT(*), COUNT(*) FILTER (WHERE is_active), COUNT(*) FILTER (WHERE NOT is_active)
		FROM services`,
	).Scan(&st.Total, &st.Active, &st.Inactive)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("service stats", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT c.name, COUNT(s.id), COUNT(s.id) FILTER (WHERE s.is_active)
		FROM service_categories c
		LEFT JOIN services s ON s.category_id = c.id
		GROUP BY c.id, c.name`)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("service stats by category", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			name string
			cc   CategoryCount
		)
		if err := rows.Scan(&name, &cc.Total, &cc.Active); err != nil {
			return nil, apperrors.NewQueryExecutionFailedError("service stats by category", err)
		}
		st.ByCategory[name] = cc
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("service stats by category", err)
	}
	return st, nil
}

func scanService(row rowScanner) (*models.Service, error) {
	var (
		svc      models.Service
		features pq.StringArray
	)
	err := row.Scan(&svc.ID, &svc.CategoryID, &svc.CategoryName, &svc.Title, &svc.Description,
		&svc.ShortDescription, &svc.PriceRange, &svc.DeliveryTime, &features, &svc.IsActive,
		&svc.SortOrder, &svc.CreatedAt, &svc.UpdatedAt)
	if err != nil {
		return nil, err
	}
	svc.Features = []string(features)
	if svc.Features == nil {
		svc.Features = []string{}
	}
	return &svc, nil
}
