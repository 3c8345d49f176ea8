// Package catalog stores the service categories and services offered on
// the public site.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"studentservices-api/internal/common/database"
	apperrors "studentservices-api/internal/common/errors"
	"studentservices-api/internal/models"
)

const selectCategory = `SELECT id, name, description, slug, parent_id, is_active, sort_order
	FROM service_categories`

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Categories lists categories by sort order then name.
func (s *Store) Categories(ctx context.Context, activeOnly bool) ([]*models.ServiceCategory, error) {
	query := selectCategory
	if activeOnly {
		query += ` WHERE is_active = true`
	}
	query += ` ORDER BY sort_order, name`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("list categories", err)
	}
	defer rows.Close()

	out := []*models.ServiceCategory{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, apperrors.NewQueryExecutionFailedError("list categories", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("list categories", err)
	}
	return out, nil
}

// Tree nests categories under their parents and returns the roots. A
// category whose parent is filtered out is dropped with its subtree.
func (s *Store) Tree(ctx context.Context, activeOnly bool) ([]*models.ServiceCategory, error) {
	all, err := s.Categories(ctx, activeOnly)
	if err != nil {
		return nil, err
	}
	return BuildTree(all), nil
}

func BuildTree(all []*models.ServiceCategory) []*models.ServiceCategory {
	byID := make(map[int64]*models.ServiceCategory, len(all))
	for _, c := range all {
		c.Children = nil
		byID[c.ID] = c
	}
	roots := []*models.ServiceCategory{}
	for _, c := range all {
		if c.ParentID == nil {
			roots = append(roots, c)
			continue
		}
		if parent, ok := byID[*c.ParentID]; ok {
			parent.Children = append(parent.Children, c)
		}
	}
	return roots
}

func (s *Store) Category(ctx context.Context, id int64, activeOnly bool) (*models.ServiceCategory, error) {
	query := selectCategory + ` WHERE id = $1`
	if activeOnly {
		query += ` AND is_active = true`
	}
	c, err := scanCategory(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError("ServiceCategory", id)
	}
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("get category", err)
	}
	return c, nil
}

func (s *Store) CreateCategory(ctx context.Context, c *models.ServiceCategory) error {
	if c.Slug == "" {
		c.Slug = Slugify(c.Name)
	}
	err := s.db.QueryRowContext(ctx, `INSERT INTO service_categories
		(name, description, slug, parent_id, is_active, sort_order)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		c.Name, c.Description, c.Slug, nullID(c.ParentID), c.IsActive, c.SortOrder,
	).Scan(&c.ID)
	if err != nil {
		return apperrors.NewQueryExecutionFailedError("create category", err)
	}
	return nil
}

func (s *Store) UpdateCategory(ctx context.Context, c *models.ServiceCategory) error {
	if c.ParentID != nil && *c.ParentID == c.ID {
		return apperrors.NewFieldError("parent", "A category cannot be its own parent.")
	}
	if c.Slug == "" {
		c.Slug = Slugify(c.Name)
	}
	res, err := s.db.ExecContext(ctx, `UPDATE service_categories SET
		name = $1, description = $2, slug = $3, parent_id = $4, is_active = $5, sort_order = $6
		WHERE id = $7`,
		c.Name, c.Description, c.Slug, nullID(c.ParentID), c.IsActive, c.SortOrder, c.ID)
	if err != nil {
		return apperrors.NewQueryExecutionFailedError("update category", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NewNotFoundError("ServiceCategory", c.ID)
	}
	return nil
}

func (s *Store) DeleteCategory(ctx context.Context, id int64) error {
	return s.deleteRow(ctx, "service_categories", "ServiceCategory", id)
}

// ToggleCategoryActive flips is_active and returns the updated category.
func (s *Store) ToggleCategoryActive(ctx context.Context, id int64) (*models.ServiceCategory, error) {
	c, err := scanCategory(s.db.QueryRowContext(ctx, `UPDATE service_categories SET is_active = NOT is_active
		WHERE id = $1 RETURNING id, name, description, slug, parent_id, is_active, sort_order`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError("ServiceCategory", id)
	}
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("toggle category", err)
	}
	return c, nil
}

func (s *Store) ReorderCategories(ctx context.Context, updates []models.SortUpdate) error {
	return Reorder(ctx, s.db, "service_categories", updates)
}

type CategoryStats struct {
	Total          int `json:"total"`
	Active         int `json:"active"`
	Inactive       int `json:"inactive"`
	RootCategories int `json:"root_categories"`
	Subcategories  int `json:"subcategories"`
}

func (s *Store) CategoryStats(ctx context.Context) (*CategoryStats, error) {
	var st CategoryStats
	err := s.db.QueryRowContext(ctx, `SELECT
		COUNT(*),
		COUNT(*) FILTER (WHERE is_active),
		COUNT(*) FILTER (WHERE NOT is_active),
		COUNT(*) FILTER (WHERE parent_id IS NULL),
		COUNT(*) FILTER (WHERE parent_id IS NOT NULL)
		FROM service_categories`,
	).Scan(&st.Total, &st.Active, &st.Inactive, &st.RootCategories, &st.Subcategories)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("category stats", err)
	}
	return &st, nil
}

// Reorder applies sort_order updates to table in one transaction. Entries
// with a zero id are ignored.
func Reorder(ctx context.Context, db *sql.DB, table string, updates []models.SortUpdate) error {
	query := fmt.Sprintf(`UPDATE %s SET sort_order = $1 WHERE id = $2`, table)
	err := database.WithTx(ctx, db, func(tx *sql.Tx) error {
		for _, u := range updates {
			if u.ID == 0 {
				continue
			}
			if _, err := tx.ExecContext(ctx, query, u.SortOrder, u.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return apperrors.NewQueryExecutionFailedError("reorder "+table, err)
	}
	return nil
}

func (s *Store) deleteRow(ctx context.Context, table, resource string, id int64) error {
	res, err := s.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, table), id)
	if err != nil {
		return apperrors.NewQueryExecutionFailedError("delete "+table, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NewNotFoundError(resource, id)
	}
	return nil
}

var (
	slugInvalid = regexp.MustCompile(`[^a-z0-9\s-]`)
	slugSpaces  = regexp.MustCompile(`[\s-]+`)
)

// Slugify lower-cases name, drops anything but letters, digits, spaces and
// hyphens, then joins words with single hyphens.
func Slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = slugInvalid.ReplaceAllString(s, "")
	s = slugSpaces.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCategory(row rowScanner) (*models.ServiceCategory, error) {
	var (
		c        models.ServiceCategory
		parentID sql.NullInt64
	)
	if err := row.Scan(&c.ID, &c.Name, &c.Description, &c.Slug, &parentID, &c.IsActive, &c.SortOrder); err != nil {
		return nil, err
	}
	if parentID.Valid {
		id := parentID.Int64
		c.ParentID = &id
	}
	return &c, nil
}

func nullID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}
