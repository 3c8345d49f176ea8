// Package portfolio stores the showcase of completed projects.
package portfolio

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"studentservices-api/internal/catalog"
	apperrors "studentservices-api/internal/common/errors"
	"studentservices-api/internal/models"

	"github.com/lib/pq"
)

const selectItem = `SELECT p.id, p.title, p.description, p.category_id, c.name, p.image, p.client_type,
	p.completion_date, p.technologies, p.project_duration, p.is_featured, p.is_active, p.sort_order,
	p.created_at, p.updated_at
	FROM portfolio_items p
	JOIN service_categories c ON c.id = p.category_id`

const (
	defaultOrder = "p.is_featured DESC, p.sort_order ASC, p.completion_date DESC"
	recentLimit  = 8
)

type Store struct {
	db  *sql.DB
	now func() time.Time
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Filter narrows List. Public keeps active items in active categories.
type Filter struct {
	Public     bool
	CategoryID int64
	Featured   *bool
	Active     *bool
	Search     string
	// Recent orders by completion date and keeps the latest few.
	Recent bool
}

func (s *Store) List(ctx context.Context, f Filter) ([]*models.PortfolioItem, error) {
	var (
		where []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Public {
		where = append(where, "p.is_active = true AND c.is_active = true")
	}
	if f.CategoryID > 0 {
		where = append(where, "p.category_id = "+arg(f.CategoryID))
	}
	if f.Featured != nil {
		where = append(where, "p.is_featured = "+arg(*f.Featured))
	}
	if f.Active != nil {
		where = append(where, "p.is_active = "+arg(*f.Active))
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		p := arg("%" + search + "%")
		where = append(where, fmt.Sprintf("(p.title ILIKE %s OR p.description ILIKE %s OR p.client_type ILIKE %s)", p, p, p))
	}

	query := selectItem
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	if f.Recent {
		query += fmt.Sprintf(" ORDER BY p.completion_date DESC LIMIT %d", recentLimit)
	} else {
		query += " ORDER BY " + defaultOrder
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("list portfolio", err)
	}
	defer rows.Close()

	out := []*models.PortfolioItem{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, apperrors.NewQueryExecutionFailedError("list portfolio", err)
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("list portfolio", err)
	}
	return out, nil
}

func (s *Store) Get(ctx context.Context, id int64, public bool) (*models.PortfolioItem, error) {
	query := selectItem + ` WHERE p.id = $1`
	if public {
		query += ` AND p.is_active = true AND c.is_active = true`
	}
	item, err := scanItem(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError("PortfolioItem", id)
	}
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("get portfolio item", err)
	}
	return item, nil
}

func (s *Store) Create(ctx context.Context, item *models.PortfolioItem) error {
	now := s.now().UTC()
	err := s.db.QueryRowContext(ctx, `INSERT INTO portfolio_items
		(title, description, category_id, image, client_type, completion_date, technologies,
		 project_duration, is_featured, is_active, sort_order, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12)
		RETURNING id, created_at, updated_at`,
		item.Title, item.Description, item.CategoryID, item.Image, item.ClientType,
		models.DateOnly(item.CompletionDate), pq.Array(item.Technologies), item.ProjectDuration,
		item.IsFeatured, item.IsActive, item.SortOrder, now,
	).Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return apperrors.NewQueryExecutionFailedError("create portfolio item", err)
	}
	return nil
}

func (s *Store) Update(ctx context.Context, item *models.PortfolioItem) error {
	item.UpdatedAt = s.now().UTC()
	res, err := s.db.ExecContext(ctx, `UPDATE portfolio_items SET
		title = $1, description = $2, category_id = $3, image = $4, client_type = $5,
		completion_date = $6, technologies = $7, project_duration = $8, is_featured = $9,
		is_active = $10, sort_order = $11, updated_at = $12
		WHERE id = $13`,
		item.Title, item.Description, item.CategoryID, item.Image, item.ClientType,
		models.DateOnly(item.CompletionDate), pq.Array(item.Technologies), item.ProjectDuration,
		item.IsFeatured, item.IsActive, item.SortOrder, item.UpdatedAt, item.ID)
	if err != nil {
		return apperrors.NewQueryExecutionFailedError("update portfolio item", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NewNotFoundError("PortfolioItem", item.ID)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM portfolio_items WHERE id = $1`, id)
	if err != nil {
		return apperrors.NewQueryExecutionFailedError("delete portfolio item", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NewNotFoundError("PortfolioItem", id)
	}
	return nil
}

func (s *Store) ToggleFeatured(ctx context.Context, id int64) (*models.PortfolioItem, error) {
	return s.toggle(ctx, id, "is_featured")
}

func (s *Store) ToggleActive(ctx context.Context, id int64) (*models.PortfolioItem, error) {
	return s.toggle(ctx, id, "is_active")
}

func (s *Store) toggle(ctx context.Context, id int64, column string) (*models.PortfolioItem, error) {
	query := fmt.Sprintf(`UPDATE portfolio_items SET %[1]s = NOT %[1]s, updated_at = $1 WHERE id = $2`, column)
	res, err := s.db.ExecContext(ctx, query, s.now().UTC(), id)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("toggle "+column, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, apperrors.NewNotFoundError("PortfolioItem", id)
	}
	return s.Get(ctx, id, false)
}

func (s *Store) SetFeatured(ctx context.Context, ids []int64, featured bool) (int64, error) {
	return s.setMany(ctx, ids, "is_featured", featured)
}

func (s *Store) SetActive(ctx context.Context, ids []int64, active bool) (int64, error) {
	return s.setMany(ctx, ids, "is_active", active)
}

func (s *Store) setMany(ctx context.Context, ids []int64, column string, value bool) (int64, error) {
	query := fmt.Sprintf(`UPDATE portfolio_items SET %s = $1, updated_at = $2 WHERE id = ANY($3)`, column)
	res, err := s.db.ExecContext(ctx, query, value, s.now().UTC(), pq.Array(ids))
	if err != nil {
		return 0, apperrors.NewQueryExecutionFailedError("bulk set "+column, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (s *Store) Reorder(ctx context.Context, updates []models.SortUpdate) error {
	return catalog.Reorder(ctx, s.db, "portfolio_items", updates)
}

type CategoryCount struct {
	Total    int `json:"total"`
	Active   int `json:"active"`
	Featured int `json:"featured"`
}

type Stats struct {
	Total      int                      `json:"total"`
	Active     int                      `json:"active"`
	Inactive   int                      `json:"inactive"`
	Featured   int                      `json:"featured"`
	ByCategory map[string]CategoryCount `json:"by_category"`
}

func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{ByCategory: map[string]CategoryCount{}}
	err := s.db.QueryRowContext(ctx, `SELECT
		COUNT(*), COUNT(*) FILTER (WHERE is_active), COUNT(*) FILTER (WHERE NOT is_active),
		COUNT(*) FILTER (WHERE is_featured)
		FROM portfolio_items`,
	).Scan(&st.Total, &st.Active, &st.Inactive, &st.Featured)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("portfolio stats", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT c.name, COUNT(p.id),
		COUNT(p.id) FILTER (WHERE p.is_active), COUNT(p.id) FILTER (WHERE p.is_featured)
		FROM service_categories c
		LEFT JOIN portfolio_items p ON p.category_id = c.id
		GROUP BY c.id, c.name`)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("portfolio stats by category", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			name string
			cc   CategoryCount
		)
		if err := rows.Scan(&name, &cc.Total, &cc.Active, &cc.Featured); err != nil {
			return nil, apperrors.NewQueryExecutionFailedError("portfolio stats by category", err)
		}
		st.ByCategory[name] = cc
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("portfolio stats by category", err)
	}
	return st, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanItem(row rowScanner) (*models.PortfolioItem, error) {
	var (
		item  models.PortfolioItem
		techs pq.StringArray
		image sql.NullString
	)
	err := row.Scan(&item.ID, &item.Title, &item.Description, &item.CategoryID, &item.CategoryName,
		&image, &item.ClientType, &item.CompletionDate, &techs, &item.ProjectDuration,
		&item.IsFeatured, &item.IsActive, &item.SortOrder, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, err
	}
	item.Image = image.String
	item.Technologies = []string(techs)
	if item.Technologies == nil {
		item.Technologies = []string{}
	}
	return &item, nil
}
