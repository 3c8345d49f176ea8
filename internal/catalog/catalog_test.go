package catalog

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "studentservices-api/internal/common/errors"
	"studentservices-api/internal/models"
)

var (
	categoryCols = []string{"id", "name", "description", "slug", "parent_id", "is_active", "sort_order"}
	serviceCols  = []string{
		"id", "category_id", "category_name", "title", "description", "short_description",
		"price_range", "delivery_time", "features", "is_active", "sort_order", "created_at", "updated_at",
	}
	created = time.Date(2026, 1, 12, 9, 30, 0, 0, time.UTC)
)

func newTestStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewStore(db), mock
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Academic Writing", "academic-writing"},
		{"  Research & Data Analysis ", "research-data-analysis"},
		{"CV / Résumé", "cv-rsum"},
		{"Already-slugged--name", "already-slugged-name"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.in))
		})
	}
}

func TestBuildTree(t *testing.T) {
	one, two := int64(1), int64(2)
	missing := int64(99)
	all := []*models.ServiceCategory{
		{ID: 1, Name: "Writing"},
		{ID: 2, Name: "Editing", ParentID: &one},
		{ID: 3, Name: "Proofreading", ParentID: &two},
		{ID: 4, Name: "Design"},
		{ID: 5, Name: "Orphan", ParentID: &missing},
	}

	roots := BuildTree(all)
	require.Len(t, roots, 2)
	assert.Equal(t, "Writing", roots[0].Name)
	require.Len(t, roots[0].Children, 1)
	assert.Equal(t, "Editing", roots[0].Children[0].Name)
	require.Len(t, roots[0].Children[0].Children, 1)
	assert.Equal(t, "Proofreading", roots[0].Children[0].Children[0].Name)
	assert.Empty(t, roots[1].Children)
}

func TestStore_Categories_ActiveOnly(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectQuery(`FROM service_categories WHERE is_active = true ORDER BY sort_order, name`).
		WillReturnRows(sqlmock.NewRows(categoryCols).
			AddRow(1, "Writing", "", "writing", nil, true, 0).
			AddRow(2, "Editing", "", "editing", 1, true, 1))

	cats, err := store.Tree(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, cats, 1)
	require.Len(t, cats[0].Children, 1)
	assert.Equal(t, int64(1), *cats[0].Children[0].ParentID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_CreateCategory_DerivesSlug(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectQuery(`INSERT INTO service_categories`).
		WithArgs("Thesis Support", "", "thesis-support", nil, true, 3).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

	c := &models.ServiceCategory{Name: "Thesis Support", IsActive: true, SortOrder: 3}
	require.NoError(t, store.CreateCategory(context.Background(), c))
	assert.Equal(t, int64(7), c.ID)
	assert.Equal(t, "thesis-support", c.Slug)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_UpdateCategory_SelfParent(t *testing.T) {
	store, _ := newTestStore(t)
	id := int64(4)
	err := store.UpdateCategory(context.Background(), &models.ServiceCategory{ID: 4, Name: "Loop", ParentID: &id})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidationFailed))
}

func TestStore_ToggleCategoryActive(t *testing.T) {
	tests := []struct {
		name           string
		setupMock      func(mock sqlmock.Sqlmock)
		validateOutput func(t *testing.T, c *models.ServiceCategory, err error)
	}{
		{
			name: "flipped",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`UPDATE service_categories SET is_active = NOT is_active WHERE id = \$1 RETURNING`).
					WithArgs(int64(2)).
					WillReturnRows(sqlmock.NewRows(categoryCols).AddRow(2, "Editing", "", "editing", nil, false, 1))
			},
			validateOutput: func(t *testing.T, c *models.ServiceCategory, err error) {
				require.NoError(t, err)
				assert.False(t, c.IsActive)
			},
		},
		{
			name: "missing",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`UPDATE service_categories`).WillReturnError(sql.ErrNoRows)
			},
			validateOutput: func(t *testing.T, c *models.ServiceCategory, err error) {
				assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeResourceNotFound))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mock := newTestStore(t)
			tt.setupMock(mock)
			c, err := store.ToggleCategoryActive(context.Background(), 2)
			tt.validateOutput(t, c, err)
		})
	}
}

func TestStore_ReorderCategories(t *testing.T) {
	t.Run("commits every update", func(t *testing.T) {
		store, mock := newTestStore(t)
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE service_categories SET sort_order = \$1 WHERE id = \$2`).
			WithArgs(2, int64(1)).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE service_categories SET sort_order = \$1 WHERE id = \$2`).
			WithArgs(1, int64(3)).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := store.ReorderCategories(context.Background(), []models.SortUpdate{
			{ID: 1, SortOrder: 2}, {ID: 0, SortOrder: 9}, {ID: 3, SortOrder: 1},
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on failure", func(t *testing.T) {
		store, mock := newTestStore(t)
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE service_categories SET sort_order`).WillReturnError(errors.New("deadlock detected"))
		mock.ExpectRollback()

		err := store.ReorderCategories(context.Background(), []models.SortUpdate{{ID: 1, SortOrder: 2}})
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeQueryExecution))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestStore_CategoryStats(t *testing.T) {
	store, mock := newTestStore(t)
	mock.ExpectQuery(`FROM service_categories`).
		WillReturnRows(sqlmock.NewRows([]string{"total", "active", "inactive", "root", "sub"}).AddRow(6, 5, 1, 2, 4))

	st, err := store.CategoryStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &CategoryStats{Total: 6, Active: 5, Inactive: 1, RootCategories: 2, Subcategories: 4}, st)
}

func TestStore_Services(t *testing.T) {
	tests := []struct {
		name           string
		filter         ServiceFilter
		setupMock      func(mock sqlmock.Sqlmock)
		validateOutput func(t *testing.T, svcs []*models.Service, err error)
	}{
		{
			name:   "public by category",
			filter: ServiceFilter{Public: true, CategoryID: 2},
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`WHERE s.is_active = true AND c.is_active = true AND s.category_id = \$1 ORDER BY`).
					WithArgs(int64(2)).
					WillReturnRows(sqlmock.NewRows(serviceCols).
						AddRow(4, 2, "Editing", "Thesis Editing", "Line edits.", "Edits", "$200-$400", "5 days",
							"{Proofreading,Formatting}", true, 0, created, created))
			},
			validateOutput: func(t *testing.T, svcs []*models.Service, err error) {
				require.NoError(t, err)
				require.Len(t, svcs, 1)
				assert.Equal(t, "Editing", svcs[0].CategoryName)
				assert.Equal(t, []string{"Proofreading", "Formatting"}, svcs[0].Features)
			},
		},
		{
			name:   "search with empty features",
			filter: ServiceFilter{Search: "thesis"},
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`WHERE \(s.title ILIKE \$1 OR s.description ILIKE \$1 OR s.short_description ILIKE \$1\)`).
					WithArgs("%thesis%").
					WillReturnRows(sqlmock.NewRows(serviceCols).
						AddRow(4, 2, "Editing", "Thesis Editing", "", "", "", "", "{}", false, 0, created, created))
			},
			validateOutput: func(t *testing.T, svcs []*models.Service, err error) {
				require.NoError(t, err)
				require.Len(t, svcs, 1)
				assert.NotNil(t, svcs[0].Features)
				assert.Empty(t, svcs[0].Features)
			},
		},
		{
			name:   "featured limit",
			filter: ServiceFilter{Public: true, Limit: featuredLimit},
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`ORDER BY c.sort_order, s.category_id, s.sort_order, s.title LIMIT 6`).
					WillReturnRows(sqlmock.NewRows(serviceCols))
			},
			validateOutput: func(t *testing.T, svcs []*models.Service, err error) {
				require.NoError(t, err)
				assert.Empty(t, svcs)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mock := newTestStore(t)
			tt.setupMock(mock)
			svcs, err := store.Services(context.Background(), tt.filter)
			tt.validateOutput(t, svcs, err)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestStore_Service_PublicHidesInactive(t *testing.T) {
	store, mock := newTestStore(t)
	mock.ExpectQuery(`WHERE s.id = \$1 AND s.is_active = true AND c.is_active = true`).
		WithArgs(int64(4)).
		WillReturnError(sql.ErrNoRows)

	_, err := store.Service(context.Background(), 4, true)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeResourceNotFound))
}

func TestStore_SetServicesActive(t *testing.T) {
	store, mock := newTestStore(t)
	mock.ExpectExec(`UPDATE services SET is_active = \$1, updated_at = \$2 WHERE id = ANY\(\$3\)`).
		WithArgs(false, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := store.SetServicesActive(context.Background(), []int64{1, 2, 3}, false)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestStore_ServiceStats(t *testing.T) {
	store, mock := newTestStore(t)
	mock.ExpectQuery(`FROM services`).
		WillReturnRows(sqlmock.NewRows([]string{"total", "active", "inactive"}).AddRow(9, 7, 2))
	mock.ExpectQuery(`FROM service_categories c LEFT JOIN services s ON s.category_id = c.id GROUP BY c.id, c.name`).
		WillReturnRows(sqlmock.NewRows([]string{"name", "total", "active"}).
			AddRow("Writing", 5, 4).
			AddRow("Design", 4, 3))

	st, err := store.ServiceStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 9, st.Total)
	assert.Equal(t, CategoryCount{Total: 5, Active: 4}, st.ByCategory["Writing"])
	assert.Len(t, st.ByCategory, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_DeleteService_Missing(t *testing.T) {
	store, mock := newTestStore(t)
	mock.ExpectExec(`DELETE FROM services WHERE id = \$1`).WithArgs(int64(8)).WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.DeleteService(context.Background(), 8)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeResourceNotFound))
}
