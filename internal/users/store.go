// Package users reads staff accounts for assignment, login and the
// admin recipient list.
package users

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	apperrors "studentservices-api/internal/common/errors"
	"studentservices-api/internal/models"
)

const selectUser = `SELECT id, username, email, password_hash, first_name, last_name,
	is_staff, is_superuser, is_active, date_joined, last_login FROM users`

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Get(ctx context.Context, id int64) (*models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, selectUser+` WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError("User", id)
	}
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("get user", err)
	}
	return u, nil
}

// ActiveUser returns the user only when the account is active.
func (s *Store) ActiveUser(ctx context.Context, id int64) (*models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, selectUser+` WHERE id = $1 AND is_active = true`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError("User", id)
	}
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("get active user", err)
	}
	return u, nil
}

func (s *Store) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, selectUser+` WHERE username = $1`, username))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError("User", username)
	}
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("get user by username", err)
	}
	return u, nil
}

// StaffEmails returns the addresses of every active staff member. Accounts
// without an email are skipped.
func (s *Store) StaffEmails(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT email FROM users WHERE is_staff = true AND is_active = true AND email <> '' ORDER BY id`)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("staff emails", err)
	}
	defer rows.Close()

	var emails []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, apperrors.NewQueryExecutionFailedError("staff emails", err)
		}
		emails = append(emails, email)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("staff emails", err)
	}
	return emails, nil
}

// List returns active users ordered by username. search matches username,
// names and email.
func (s *Store) List(ctx context.Context, staffOnly bool, search string) ([]*models.User, error) {
	query := selectUser + ` WHERE is_active = true`
	var args []interface{}
	if staffOnly {
		query += ` AND is_staff = true`
	}
	if search = strings.TrimSpace(search); search != "" {
		args = append(args, "%"+search+"%")
		query += ` AND (username ILIKE $1 OR first_name ILIKE $1 OR last_name ILIKE $1 OR email ILIKE $1)`
	}
	query += ` ORDER BY username`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("list users", err)
	}
	defer rows.Close()

	out := []*models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, apperrors.NewQueryExecutionFailedError("list users", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("list users", err)
	}
	return out, nil
}

// Workload counts the requests assigned to one active user.
func (s *Store) Workload(ctx context.Context, id int64, today time.Time) (*models.Workload, error) {
	u, err := s.ActiveUser(ctx, id)
	if err != nil {
		return nil, err
	}

	w := &models.Workload{UserID: u.ID, Username: u.Username, FullName: u.FullName()}
	err = s.db.QueryRowContext(ctx, `SELECT
		COUNT(*),
		COUNT(*) FILTER (WHERE status = 'pending'),
		COUNT(*) FILTER (WHERE status = 'in_progress'),
		COUNT(*) FILTER (WHERE status = 'completed'),
		COUNT(*) FILTER (WHERE deadline < $2 AND status IN ('pending', 'in_progress'))
		FROM service_requests WHERE assigned_to = $1`, id, models.DateKey(today),
	).Scan(&w.Total, &w.Pending, &w.InProgress, &w.Completed, &w.Overdue)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("user workload", err)
	}
	return w, nil
}

// ProfileUpdate holds the editable profile fields. Nil means unchanged.
type ProfileUpdate struct {
	Email     *string `json:"email"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
}

func (s *Store) UpdateProfile(ctx context.Context, id int64, in ProfileUpdate) (*models.User, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Email != nil {
		u.Email = strings.ToLower(strings.TrimSpace(*in.Email))
	}
	if in.FirstName != nil {
		u.FirstName = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		u.LastName = strings.TrimSpace(*in.LastName)
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE users SET email = $1, first_name = $2, last_name = $3 WHERE id = $4`,
		u.Email, u.FirstName, u.LastName, u.ID)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("update profile", err)
	}
	return u, nil
}

func (s *Store) TouchLogin(ctx context.Context, id int64, at time.Time) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE users SET last_login = $1 WHERE id = $2`, at, id); err != nil {
		return apperrors.NewQueryExecutionFailedError("touch login", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		u         models.User
		lastLogin sql.NullTime
	)
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName,
		&u.IsStaff, &u.IsSuperuser, &u.IsActive, &u.DateJoined, &lastLogin)
	if err != nil {
		return nil, err
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLogin = &t
	}
	return &u, nil
}
