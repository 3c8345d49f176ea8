// Package requests owns service requests: persistence, search and the
// mutations that feed the notification trigger.
package requests

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"studentservices-api/internal/common/database"
	apperrors "studentservices-api/internal/common/errors"
	"studentservices-api/internal/models"

	"github.com/lib/pq"
)

const selectRequest = `SELECT r.id, r.service_id, COALESCE(s.title, ''), r.client_name, r.client_email,
	r.client_phone, r.project_title, r.project_description, r.deadline, r.budget, r.status,
	r.priority, r.assigned_to, COALESCE(NULLIF(TRIM(CONCAT(u.first_name, ' ', u.last_name)), ''), u.username, ''),
	r.notes, r.attachment, r.language, r.overdue_notified, r.created_at, r.updated_at
	FROM service_requests r
	LEFT JOIN services s ON s.id = r.service_id
	LEFT JOIN users u ON u.id = r.assigned_to`

// Store is the Postgres-backed request repository. A Store obtained
// through InTx runs every statement in that transaction.
type Store struct {
	db   database.DBTX
	root *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db, root: db}
}

// InTx runs fn with a Store bound to a single transaction.
func (s *Store) InTx(ctx context.Context, fn func(tx Repository) error) error {
	if s.root == nil {
		return fn(s)
	}
	return database.WithTx(ctx, s.root, func(tx *sql.Tx) error {
		return fn(&Store{db: tx})
	})
}

func (s *Store) Create(ctx context.Context, r *models.ServiceRequest) error {
	query := `INSERT INTO service_requests
		(service_id, client_name, client_email, client_phone, project_title, project_description,
		 deadline, budget, status, priority, assigned_to, notes, attachment, language,
		 overdue_notified, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, false, $15, $15)
		RETURNING id, created_at, updated_at`

	err := s.db.QueryRowContext(ctx, query,
		r.ServiceID, r.ClientName, r.ClientEmail, r.ClientPhone, r.ProjectTitle, r.ProjectDescription,
		r.Deadline, r.Budget, string(r.Status), string(r.Priority), nullID(r.AssignedTo), r.Notes,
		r.Attachment, string(r.Language), r.CreatedAt,
	).Scan(&r.ID, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return apperrors.NewQueryExecutionFailedError("create request", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id int64) (*models.ServiceRequest, error) {
	r, err := scanRequest(s.db.QueryRowContext(ctx, selectRequest+` WHERE r.id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError("ServiceRequest", id)
	}
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("get request", err)
	}
	return r, nil
}

// GetForUpdate locks the rows for the rest of the transaction. Missing
// ids are skipped.
func (s *Store) GetForUpdate(ctx context.Context, ids []int64) ([]*models.ServiceRequest, error) {
	query := selectRequest + ` WHERE r.id = ANY($1) ORDER BY r.id FOR UPDATE OF r`
	return s.query(ctx, "lock requests", query, pq.Array(ids))
}

// Latest returns the most recently created request, used by test sends.
func (s *Store) Latest(ctx context.Context) (*models.ServiceRequest, error) {
	r, err := scanRequest(s.db.QueryRowContext(ctx, selectRequest+` ORDER BY r.created_at DESC LIMIT 1`))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError("ServiceRequest", "latest")
	}
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("latest request", err)
	}
	return r, nil
}

// Save writes every mutable field of r.
func (s *Store) Save(ctx context.Context, r *models.ServiceRequest) error {
	query := `UPDATE service_requests SET
		service_id = $1, client_name = $2, client_email = $3, client_phone = $4,
		project_title = $5, project_description = $6, deadline = $7, budget = $8,
		status = $9, priority = $10, assigned_to = $11, notes = $12, attachment = $13,
		language = $14, overdue_notified = $15, updated_at = $16
		WHERE id = $17`

	res, err := s.db.ExecContext(ctx, query,
		r.ServiceID, r.ClientName, r.ClientEmail, r.ClientPhone,
		r.ProjectTitle, r.ProjectDescription, r.Deadline, r.Budget,
		string(r.Status), string(r.Priority), nullID(r.AssignedTo), r.Notes, r.Attachment,
		string(r.Language), r.OverdueNotified, r.UpdatedAt, r.ID,
	)
	if err != nil {
		return apperrors.NewQueryExecutionFailedError("save request", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NewNotFoundError("ServiceRequest", r.ID)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM service_requests WHERE id = $1`, id)
	if err != nil {
		return apperrors.NewQueryExecutionFailedError("delete request", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NewNotFoundError("ServiceRequest", id)
	}
	return nil
}

func (s *Store) DeleteMany(ctx context.Context, ids []int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM service_requests WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return 0, apperrors.NewQueryExecutionFailedError("delete requests", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (s *Store) SetOverdueNotified(ctx context.Context, id int64, notified bool) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE service_requests SET overdue_notified = $1 WHERE id = $2`, notified, id)
	if err != nil {
		return apperrors.NewQueryExecutionFailedError("set overdue flag", err)
	}
	return nil
}

// Overdue lists open requests whose deadline is before today.
func (s *Store) Overdue(ctx context.Context, today time.Time) ([]*models.ServiceRequest, error) {
	query := selectRequest + ` WHERE r.deadline < $1 AND r.status IN ('pending', 'in_progress')
		ORDER BY r.deadline ASC`
	return s.query(ctx, "overdue requests", query, models.DateKey(today))
}

func (s *Store) Unassigned(ctx context.Context) ([]*models.ServiceRequest, error) {
	query := selectRequest + ` WHERE r.assigned_to IS NULL ORDER BY r.created_at DESC`
	return s.query(ctx, "unassigned requests", query)
}

// UnassignedUrgent lists pending high and urgent requests nobody owns.
func (s *Store) UnassignedUrgent(ctx context.Context) ([]*models.ServiceRequest, error) {
	query := selectRequest + ` WHERE r.assigned_to IS NULL AND r.status = 'pending'
		AND r.priority IN ('high', 'urgent') ORDER BY r.created_at ASC`
	return s.query(ctx, "unassigned urgent requests", query)
}

// ClearStaleAttachments drops attachment references from closed requests
// created before cutoff.
func (s *Store) ClearStaleAttachments(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE service_requests SET attachment = ''
		WHERE attachment <> '' AND status IN ('completed', 'cancelled') AND created_at < $1`, cutoff)
	if err != nil {
		return 0, apperrors.NewQueryExecutionFailedError("clear attachments", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// ServiceTitle returns the title of an active service, or a not found error.
func (s *Store) ServiceTitle(ctx context.Context, serviceID int64) (string, error) {
	var title string
	err := s.db.QueryRowContext(ctx,
		`SELECT title FROM services WHERE id = $1 AND is_active = true`, serviceID).Scan(&title)
	if errors.Is(err, sql.ErrNoRows) {
		return "", apperrors.NewNotFoundError("Service", serviceID)
	}
	if err != nil {
		return "", apperrors.NewQueryExecutionFailedError("get service", err)
	}
	return title, nil
}

func (s *Store) query(ctx context.Context, op, query string, args ...interface{}) ([]*models.ServiceRequest, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError(op, err)
	}
	defer rows.Close()

	out := []*models.ServiceRequest{}
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, apperrors.NewQueryExecutionFailedError(op, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewQueryExecutionFailedError(op, err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRequest(row rowScanner) (*models.ServiceRequest, error) {
	var (
		r          models.ServiceRequest
		status     string
		priority   string
		language   string
		assignedTo sql.NullInt64
	)
	err := row.Scan(
		&r.ID, &r.ServiceID, &r.ServiceName, &r.ClientName, &r.ClientEmail,
		&r.ClientPhone, &r.ProjectTitle, &r.ProjectDescription, &r.Deadline, &r.Budget, &status,
		&priority, &assignedTo, &r.AssignedToName,
		&r.Notes, &r.Attachment, &language, &r.OverdueNotified, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	r.Status = models.RequestStatus(status)
	r.Priority = models.Priority(priority)
	r.Language = models.Language(language).OrDefault()
	if assignedTo.Valid {
		id := assignedTo.Int64
		r.AssignedTo = &id
	}
	return &r, nil
}

func nullID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}

// Filter narrows List results. Zero values mean no constraint.
type Filter struct {
	Status     models.RequestStatus
	Priority   models.Priority
	ServiceID  int64
	AssignedTo int64
	Unassigned bool
	Overdue    *bool
	Search     string
	// SearchIDs, when non-nil, restricts results to ids matched by the
	// search index instead of the SQL text search.
	SearchIDs []int64
	Ordering  string
	Page      int
	PageSize  int
	Today     time.Time
}

var orderings = map[string]string{
	"created_at":  "r.created_at ASC",
	"-created_at": "r.created_at DESC",
	"deadline":    "r.deadline ASC",
	"-deadline":   "r.deadline DESC",
	"priority":    priorityRank + " ASC",
	"-priority":   priorityRank + " DESC",
	"status":      "r.status ASC",
	"-status":     "r.status DESC",
}

const priorityRank = `CASE r.priority WHEN 'low' THEN 0 WHEN 'normal' THEN 1 WHEN 'high' THEN 2 WHEN 'urgent' THEN 3 END`

// Page is one page of list results.
type Page struct {
	Results  []*models.ServiceRequest `json:"results"`
	Count    int                      `json:"count"`
	Page     int                      `json:"page"`
	PageSize int                      `json:"page_size"`
}

func (s *Store) List(ctx context.Context, f Filter) (*Page, error) {
	var (
		where []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Status != "" {
		where = append(where, "r.status = "+arg(string(f.Status)))
	}
	if f.Priority != "" {
		where = append(where, "r.priority = "+arg(string(f.Priority)))
	}
	if f.ServiceID > 0 {
		where = append(where, "r.service_id = "+arg(f.ServiceID))
	}
	if f.AssignedTo > 0 {
		where = append(where, "r.assigned_to = "+arg(f.AssignedTo))
	}
	if f.Unassigned {
		where = append(where, "r.assigned_to IS NULL")
	}
	if f.Overdue != nil {
		today := f.Today
		if today.IsZero() {
			today = time.Now()
		}
		cond := "(r.deadline < " + arg(models.DateKey(today)) + " AND r.status IN ('pending', 'in_progress'))"
		if !*f.Overdue {
			cond = "NOT " + cond
		}
		where = append(where, cond)
	}
	switch {
	case f.SearchIDs != nil:
		where = append(where, "r.id = ANY("+arg(pq.Array(f.SearchIDs))+")")
	case f.Search != "":
		p := arg("%" + f.Search + "%")
		where = append(where, fmt.Sprintf(
			"(r.project_title ILIKE %[1]s OR r.client_name ILIKE %[1]s OR r.client_email ILIKE %[1]s OR r.project_description ILIKE %[1]s)", p))
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var count int
	countQuery := `SELECT COUNT(*) FROM service_requests r` + clause
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&count); err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("count requests", err)
	}

	order, ok := orderings[f.Ordering]
	if !ok {
		order = orderings["-created_at"]
	}
	page, size := normalizePage(f.Page, f.PageSize)
	limit := arg(size)
	offset := arg((page - 1) * size)

	query := fmt.Sprintf("%s%s ORDER BY %s, r.id DESC LIMIT %s OFFSET %s", selectRequest, clause, order, limit, offset)
	results, err := s.query(ctx, "list requests", query, args...)
	if err != nil {
		return nil, err
	}
	return &Page{Results: results, Count: count, Page: page, PageSize: size}, nil
}

func normalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 20
	}
	if size > 100 {
		size = 100
	}
	return page, size
}
