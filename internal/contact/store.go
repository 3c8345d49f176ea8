// Package contact stores inquiries sent through the public contact form
// and the staff triage state on them.
package contact

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

const selectInquiry = `SELECT id, name, email, phone, inquiry_type, subject, message, is_read,
	is_responded, response_notes, created_at, updated_at FROM contact_inquiries`

type Store struct {
	db  *sql.DB
	now func() time.Time
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Create validates and stores a public submission. Triage flags always
// start cleared.
func (s *Store) Create(ctx context.Context, in CreateInput) (*models.ContactInquiry, error) {
	q, err := in.normalize()
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	err = s.db.QueryRowContext(ctx, `INSERT INTO contact_inquiries
		(name, email, phone, inquiry_type, subject, message, is_read, is_responded, response_notes,
		 created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, false, false, '', $7, $7)
		RETURNING id, created_at, updated_at`,
		q.Name, q.Email, q.Phone, string(q.InquiryType), q.Subject, q.Message, now,
	).Scan(&q.ID, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("create inquiry", err)
	}
	return q, nil
}

func (s *Store) Get(ctx context.Context, id int64) (*models.ContactInquiry, error) {
	q, err := scanInquiry(s.db.QueryRowContext(ctx, selectInquiry+` WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError("ContactInquiry", id)
	}
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("get inquiry", err)
	}
	return q, nil
}

type Filter struct {
	InquiryType models.InquiryType
	IsRead      *bool
	IsResponded *bool
	Search      string
	Ordering    string
}

var orderings = map[string]string{
	"created_at":  "created_at ASC",
	"-created_at": "created_at DESC",
	"name":        "name ASC",
	"-name":       "name DESC",
	"subject":     "subject ASC",
	"-subject":    "subject DESC",
}

func (s *Store) List(ctx context.Context, f Filter) ([]*models.ContactInquiry, error) {
	var (
		where []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.InquiryType != "" {
		where = append(where, "inquiry_type = "+arg(string(f.InquiryType)))
	}
	if f.IsRead != nil {
		where = append(where, "is_read = "+arg(*f.IsRead))
	}
	if f.IsResponded != nil {
		where = append(where, "is_responded = "+arg(*f.IsResponded))
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		p := arg("%" + search + "%")
		where = append(where, fmt.Sprintf("(name ILIKE %[1]s OR email ILIKE %[1]s OR subject ILIKE %[1]s OR message ILIKE %[1]s)", p))
	}

	query := selectInquiry
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	order, ok := orderings[f.Ordering]
	if !ok {
		order = orderings["-created_at"]
	}
	query += " ORDER BY " + order + ", id DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("list inquiries", err)
	}
	defer rows.Close()

	out := []*models.ContactInquiry{}
	for rows.Next() {
		q, err := scanInquiry(rows)
		if err != nil {
			return nil, apperrors.NewQueryExecutionFailedError("list inquiries", err)
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("list inquiries", err)
	}
	return out, nil
}

func (s *Store) MarkRead(ctx context.Context, id int64) (*models.ContactInquiry, error) {
	q, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	q.IsRead = true
	return q, s.save(ctx, q)
}

// MarkResponded flags the inquiry as read and responded. Non-empty notes
// are appended with a timestamp.
func (s *Store) MarkResponded(ctx context.Context, id int64, notes string) (*models.ContactInquiry, error) {
	q, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	q.IsRead = true
	q.IsResponded = true
	if notes = strings.TrimSpace(notes); notes != "" {
		line := fmt.Sprintf("[%s] %s", s.now().Format("2006-01-02 15:04"), notes)
		if q.ResponseNotes != "" {
			q.ResponseNotes += "\n\n" + line
		} else {
			q.ResponseNotes = line
		}
	}
	return q, s.save(ctx, q)
}

func (s *Store) save(ctx context.Context, q *models.ContactInquiry) error {
	q.UpdatedAt = s.now().UTC()
	_, err := s.db.ExecContext(ctx, `UPDATE contact_inquiries
		SET is_read = $1, is_responded = $2, response_notes = $3, updated_at = $4 WHERE id = $5`,
		q.IsRead, q.IsResponded, q.ResponseNotes, q.UpdatedAt, q.ID)
	if err != nil {
		return apperrors.NewQueryExecutionFailedError("update inquiry", err)
	}
	return nil
}

func (s *Store) BulkMarkRead(ctx context.Context, ids []int64) (int64, error) {
	return s.bulk(ctx, "bulk mark read", `UPDATE contact_inquiries SET is_read = true, updated_at = $1
		WHERE id = ANY($2)`, ids)
}

func (s *Store) BulkMarkResponded(ctx context.Context, ids []int64) (int64, error) {
	return s.bulk(ctx, "bulk mark responded", `UPDATE contact_inquiries
		SET is_read = true, is_responded = true, updated_at = $1 WHERE id = ANY($2)`, ids)
}

func (s *Store) bulk(ctx context.Context, op, query string, ids []int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, query, s.now().UTC(), pq.Array(ids))
	if err != nil {
		return 0, apperrors.NewQueryExecutionFailedError(op, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM contact_inquiries WHERE id = $1`, id)
	if err != nil {
		return apperrors.NewQueryExecutionFailedError("delete inquiry", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NewNotFoundError("ContactInquiry", id)
	}
	return nil
}

type TypeCount struct {
	Label           string `json:"label"`
	Count           int    `json:"count"`
	Unread          int    `json:"unread"`
	PendingResponse int    `json:"pending_response"`
}

type Recent struct {
	Today     int `json:"today"`
	ThisWeek  int `json:"this_week"`
	ThisMonth int `json:"this_month"`
}

type Stats struct {
	Total           int                  `json:"total"`
	Unread          int                  `json:"unread"`
	PendingResponse int                  `json:"pending_response"`
	Responded       int                  `json:"responded"`
	Recent          Recent               `json:"recent"`
	ByType          map[string]TypeCount `json:"by_type"`
}

// Stats counts inquiries overall, by creation window relative to today and
// per inquiry type. Every known type is present in ByType.
func (s *Store) Stats(ctx context.Context, today time.Time) (*Stats, error) {
	day := models.DateOnly(today)
	st := &Stats{ByType: make(map[string]TypeCount, len(models.InquiryTypes))}
	for _, t := range models.InquiryTypes {
		st.ByType[string(t)] = TypeCount{Label: t.Label()}
	}

	err := s.db.QueryRowContext(ctx, `SELECT
		COUNT(*),
		COUNT(*) FILTER (WHERE NOT is_read),
		COUNT(*) FILTER (WHERE NOT is_responded),
		COUNT(*) FILTER (WHERE is_responded),
		COUNT(*) FILTER (WHERE created_at::date = $1),
		COUNT(*) FILTER (WHERE created_at::date >= $2),
		COUNT(*) FILTER (WHERE created_at::date >= $3)
		FROM contact_inquiries`, day, day.AddDate(0, 0, -7), day.AddDate(0, 0, -30),
	).Scan(&st.Total, &st.Unread, &st.PendingResponse, &st.Responded,
		&st.Recent.Today, &st.Recent.ThisWeek, &st.Recent.ThisMonth)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("inquiry stats", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT inquiry_type, COUNT(*),
		COUNT(*) FILTER (WHERE NOT is_read), COUNT(*) FILTER (WHERE NOT is_responded)
		FROM contact_inquiries GROUP BY inquiry_type`)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("inquiry stats by type", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			kind string
			tc   TypeCount
		)
		if err := rows.Scan(&kind, &tc.Count, &tc.Unread, &tc.PendingResponse); err != nil {
			return nil, apperrors.NewQueryExecutionFailedError("inquiry stats by type", err)
		}
		tc.Label = models.InquiryType(kind).Label()
		st.ByType[kind] = tc
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("inquiry stats by type", err)
	}
	return st, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanInquiry(row rowScanner) (*models.ContactInquiry, error) {
	var (
		q    models.ContactInquiry
		kind string
	)
	err := row.Scan(&q.ID, &q.Name, &q.Email, &q.Phone, &kind, &q.Subject, &q.Message,
		&q.IsRead, &q.IsResponded, &q.ResponseNotes, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		return nil, err
	}
	q.InquiryType = models.InquiryType(kind)
	return &q, nil
}
