package requests

import (
	"context"
	"fmt"
	"strings"
	"time"

	apperrors "studentservices-api/internal/common/errors"
	"studentservices-api/internal/common/logger"
	"studentservices-api/internal/common/validation"
	"studentservices-api/internal/models"
	"studentservices-api/internal/notification/trigger"
)

// Repository is the persistence the service needs. *Store implements it.
type Repository interface {
	InTx(ctx context.Context, fn func(tx Repository) error) error
	Create(ctx context.Context, r *models.ServiceRequest) error
	Get(ctx context.Context, id int64) (*models.ServiceRequest, error)
	GetForUpdate(ctx context.Context, ids []int64) ([]*models.ServiceRequest, error)
	Latest(ctx context.Context) (*models.ServiceRequest, error)
	Save(ctx context.Context, r *models.ServiceRequest) error
	Delete(ctx context.Context, id int64) error
	DeleteMany(ctx context.Context, ids []int64) (int64, error)
	SetOverdueNotified(ctx context.Context, id int64, notified bool) error
	Overdue(ctx context.Context, today time.Time) ([]*models.ServiceRequest, error)
	Unassigned(ctx context.Context) ([]*models.ServiceRequest, error)
	UnassignedUrgent(ctx context.Context) ([]*models.ServiceRequest, error)
	ClearStaleAttachments(ctx context.Context, cutoff time.Time) (int64, error)
	ServiceTitle(ctx context.Context, serviceID int64) (string, error)
	List(ctx context.Context, f Filter) (*Page, error)
	Stats(ctx context.Context, today time.Time) (*Stats, error)
}

// Notifier turns request changes into notifications.
type Notifier interface {
	Created(ctx context.Context, req *models.ServiceRequest) trigger.Actions
	Evaluate(ctx context.Context, tr trigger.Transition) trigger.Actions
	Unassigned(ctx context.Context, req *models.ServiceRequest) bool
}

// Assignees resolves staff members requests can be assigned to.
type Assignees interface {
	ActiveUser(ctx context.Context, id int64) (*models.User, error)
}

// Indexer mirrors requests into the full-text search index.
type Indexer interface {
	Index(ctx context.Context, r *models.ServiceRequest) error
	Remove(ctx context.Context, id int64) error
	Search(ctx context.Context, query string, limit int) ([]int64, error)
}

type Service struct {
	repo      Repository
	notifier  Notifier
	assignees Assignees
	index     Indexer
	logger    logger.Logger
	now       func() time.Time
}

// NewService wires the request service. index may be nil.
func NewService(repo Repository, notifier Notifier, assignees Assignees, index Indexer, log logger.Logger) *Service {
	return &Service{
		repo:      repo,
		notifier:  notifier,
		assignees: assignees,
		index:     index,
		logger:    log.WithFields(map[string]interface{}{"component": "requests"}),
		now:       time.Now,
	}
}

type CreateInput struct {
	ServiceID          int64           `json:"service"`
	ClientName         string          `json:"client_name"`
	ClientEmail        string          `json:"client_email"`
	ClientPhone        string          `json:"client_phone"`
	ProjectTitle       string          `json:"project_title"`
	ProjectDescription string          `json:"project_description"`
	Deadline           string          `json:"deadline"`
	Budget             string          `json:"budget"`
	Priority           models.Priority `json:"priority"`
	Attachment         string          `json:"attachments"`
	Notes              string          `json:"notes"`
}

// CreatePublic stores a client submission. Status and priority are always
// pending and normal regardless of input.
func (s *Service) CreatePublic(ctx context.Context, in CreateInput, lang models.Language) (*models.ServiceRequest, error) {
	in.Priority = models.PriorityNormal
	in.Notes = ""
	return s.create(ctx, in, lang)
}

// CreateStaff stores a request entered by staff, who may set the priority.
func (s *Service) CreateStaff(ctx context.Context, in CreateInput, lang models.Language) (*models.ServiceRequest, error) {
	if in.Priority == "" {
		in.Priority = models.PriorityNormal
	}
	if !in.Priority.Valid() {
		return nil, apperrors.NewFieldError("priority", "Invalid priority")
	}
	return s.create(ctx, in, lang)
}

func (s *Service) create(ctx context.Context, in CreateInput, lang models.Language) (*models.ServiceRequest, error) {
	now := s.now().UTC()
	deadline, fieldErrs := validateCreate(&in, now)
	if len(fieldErrs) > 0 {
		return nil, apperrors.NewValidationError(fieldErrs)
	}

	title, err := s.repo.ServiceTitle(ctx, in.ServiceID)
	if err != nil {
		if apperrors.HasCode(err, apperrors.ErrCodeResourceNotFound) {
			return nil, apperrors.NewFieldError("service", "Selected service is not available")
		}
		return nil, err
	}

	req := &models.ServiceRequest{
		ServiceID:          in.ServiceID,
		ServiceName:        title,
		ClientName:         in.ClientName,
		ClientEmail:        in.ClientEmail,
		ClientPhone:        in.ClientPhone,
		ProjectTitle:       in.ProjectTitle,
		ProjectDescription: in.ProjectDescription,
		Deadline:           deadline,
		Budget:             in.Budget,
		Status:             models.StatusPending,
		Priority:           in.Priority,
		Notes:              in.Notes,
		Attachment:         in.Attachment,
		Language:           lang.OrDefault(),
		CreatedAt:          now,
	}
	if err := s.repo.Create(ctx, req); err != nil {
		return nil, err
	}

	s.logger.Info("service request created", map[string]interface{}{
		"requestId": req.ID,
		"priority":  string(req.Priority),
		"language":  string(req.Language),
	})

	s.notifier.Created(ctx, req)
	s.reindex(ctx, req)
	return req, nil
}

func validateCreate(in *CreateInput, now time.Time) (time.Time, []apperrors.FieldError) {
	var errs []apperrors.FieldError
	add := func(field, msg string) {
		errs = append(errs, apperrors.FieldError{Field: field, Message: msg})
	}

	in.ClientName = strings.TrimSpace(in.ClientName)
	in.ClientEmail = strings.ToLower(strings.TrimSpace(in.ClientEmail))
	in.ClientPhone = strings.TrimSpace(in.ClientPhone)
	in.ProjectTitle = strings.TrimSpace(in.ProjectTitle)
	in.ProjectDescription = strings.TrimSpace(in.ProjectDescription)
	in.Budget = strings.TrimSpace(in.Budget)

	if len([]rune(in.ClientName)) < 2 {
		add("client_name", "Name must be at least 2 characters long")
	}
	if !validation.ValidateEmail(in.ClientEmail) {
		add("client_email", "Enter a valid email address")
	}
	if in.ClientPhone != "" && !validation.ValidatePhone(in.ClientPhone) {
		add("client_phone", "Enter a valid phone number")
	}
	if len([]rune(in.ProjectTitle)) < 5 {
		add("project_title", "Project title must be at least 5 characters long")
	}
	if len([]rune(in.ProjectDescription)) < 20 {
		add("project_description", "Please provide a more detailed project description (at least 20 characters)")
	}
	if in.Budget == "" {
		add("budget", "Budget is required")
	}

	deadline, err := time.Parse("2006-01-02", in.Deadline)
	switch {
	case err != nil:
		add("deadline", "Deadline must be a date in YYYY-MM-DD format")
	case !deadline.After(models.DateOnly(now)):
		add("deadline", "Deadline must be in the future")
	}
	return deadline, errs
}

func (s *Service) Get(ctx context.Context, id int64) (*models.ServiceRequest, error) {
	return s.repo.Get(ctx, id)
}

// Latest returns the newest request.
func (s *Service) Latest(ctx context.Context) (*models.ServiceRequest, error) {
	return s.repo.Latest(ctx)
}

// List applies f, resolving text search through the index when one is
// configured and falling back to SQL matching when it fails.
func (s *Service) List(ctx context.Context, f Filter) (*Page, error) {
	if f.Today.IsZero() {
		f.Today = s.now()
	}
	if f.Search != "" && s.index != nil {
		ids, err := s.index.Search(ctx, f.Search, 500)
		if err != nil {
			s.logger.Warn("search index unavailable, using database search", map[string]interface{}{"error": err})
		} else {
			f.SearchIDs = ids
		}
	}
	return s.repo.List(ctx, f)
}

type UpdateInput struct {
	ClientPhone        *string                `json:"client_phone"`
	ProjectTitle       *string                `json:"project_title"`
	ProjectDescription *string                `json:"project_description"`
	Deadline           *string                `json:"deadline"`
	Budget             *string                `json:"budget"`
	Status             *models.RequestStatus  `json:"status"`
	Priority           *models.Priority       `json:"priority"`
	Notes              *string                `json:"notes"`
	Attachment         *string                `json:"attachments"`
}

// Update applies a partial change and runs the result through the trigger.
func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) (*models.ServiceRequest, error) {
	return s.mutate(ctx, id, func(r *models.ServiceRequest) error {
		var errs []apperrors.FieldError
		if in.ClientPhone != nil {
			r.ClientPhone = strings.TrimSpace(*in.ClientPhone)
		}
		if in.ProjectTitle != nil {
			if len([]rune(strings.TrimSpace(*in.ProjectTitle))) < 5 {
				errs = append(errs, apperrors.FieldError{Field: "project_title", Message: "Project title must be at least 5 characters long"})
			}
			r.ProjectTitle = strings.TrimSpace(*in.ProjectTitle)
		}
		if in.ProjectDescription != nil {
			r.ProjectDescription = strings.TrimSpace(*in.ProjectDescription)
		}
		if in.Deadline != nil {
			d, err := time.Parse("2006-01-02", *in.Deadline)
			if err != nil {
				errs = append(errs, apperrors.FieldError{Field: "deadline", Message: "Deadline must be a date in YYYY-MM-DD format"})
			}
			r.Deadline = d
		}
		if in.Budget != nil {
			r.Budget = strings.TrimSpace(*in.Budget)
		}
		if in.Status != nil {
			if !in.Status.Valid() {
				errs = append(errs, apperrors.FieldError{Field: "status", Message: "Invalid status"})
			}
			r.Status = *in.Status
		}
		if in.Priority != nil {
			if !in.Priority.Valid() {
				errs = append(errs, apperrors.FieldError{Field: "priority", Message: "Invalid priority"})
			}
			r.Priority = *in.Priority
		}
		if in.Notes != nil {
			r.Notes = *in.Notes
		}
		if in.Attachment != nil {
			r.Attachment = *in.Attachment
		}
		if len(errs) > 0 {
			return apperrors.NewValidationError(errs)
		}
		return nil
	})
}

// ChangeStatus sets the status and, when notes are given, appends a
// timestamped line to the request's note log.
func (s *Service) ChangeStatus(ctx context.Context, id int64, status models.RequestStatus, notes string) (*models.ServiceRequest, error) {
	if !status.Valid() {
		return nil, apperrors.NewFieldError("status", "Invalid status")
	}
	return s.mutate(ctx, id, func(r *models.ServiceRequest) error {
		if notes = strings.TrimSpace(notes); notes != "" {
			line := fmt.Sprintf("[%s] Status changed from %s to %s: %s",
				s.now().Format("2006-01-02 15:04"), r.Status, status, notes)
			if r.Notes != "" {
				r.Notes += "\n\n" + line
			} else {
				r.Notes = line
			}
		}
		r.Status = status
		return nil
	})
}

// Assign sets or clears (userID nil) the assignee.
func (s *Service) Assign(ctx context.Context, id int64, userID *int64) (*models.ServiceRequest, error) {
	name, err := s.resolveAssignee(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, func(r *models.ServiceRequest) error {
		r.AssignedTo = userID
		r.AssignedToName = name
		return nil
	})
}

func (s *Service) SetPriority(ctx context.Context, id int64, p models.Priority) (*models.ServiceRequest, error) {
	if !p.Valid() {
		return nil, apperrors.NewFieldError("priority", "Invalid priority")
	}
	return s.mutate(ctx, id, func(r *models.ServiceRequest) error {
		r.Priority = p
		return nil
	})
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.unindex(ctx, id)
	return nil
}

func (s *Service) resolveAssignee(ctx context.Context, userID *int64) (string, error) {
	if userID == nil {
		return "", nil
	}
	u, err := s.assignees.ActiveUser(ctx, *userID)
	if err != nil {
		return "", err
	}
	return u.FullName(), nil
}

// mutate loads the request under a row lock, applies fn and saves it, then
// hands the before and after states to the trigger once committed.
func (s *Service) mutate(ctx context.Context, id int64, fn func(r *models.ServiceRequest) error) (*models.ServiceRequest, error) {
	var old, cur *models.ServiceRequest
	err := s.repo.InTx(ctx, func(tx Repository) error {
		rows, err := tx.GetForUpdate(ctx, []int64{id})
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return apperrors.NewNotFoundError("ServiceRequest", id)
		}
		old = rows[0]
		cur = old.Clone()
		if err := fn(cur); err != nil {
			return err
		}
		cur.UpdatedAt = s.now().UTC()
		return tx.Save(ctx, cur)
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Evaluate(ctx, trigger.Transition{Old: old, New: cur})
	s.reindex(ctx, cur)
	return cur, nil
}

func (s *Service) reindex(ctx context.Context, r *models.ServiceRequest) {
	if s.index == nil {
		return
	}
	if err := s.index.Index(ctx, r); err != nil {
		s.logger.Warn("failed to index request", map[string]interface{}{"requestId": r.ID, "error": err})
	}
}

func (s *Service) unindex(ctx context.Context, id int64) {
	if s.index == nil {
		return
	}
	if err := s.index.Remove(ctx, id); err != nil {
		s.logger.Warn("failed to remove request from index", map[string]interface{}{"requestId": id, "error": err})
	}
}

func (s *Service) Overdue(ctx context.Context) ([]*models.ServiceRequest, error) {
	return s.repo.Overdue(ctx, s.now())
}

func (s *Service) Unassigned(ctx context.Context) ([]*models.ServiceRequest, error) {
	return s.repo.Unassigned(ctx)
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	return s.repo.Stats(ctx, s.now())
}

// SweepOverdue runs every open overdue request through the trigger. The
// persisted flag keeps repeated sweeps from alerting twice.
func (s *Service) SweepOverdue(ctx context.Context) (int, error) {
	overdue, err := s.repo.Overdue(ctx, s.now())
	if err != nil {
		return 0, err
	}
	alerted := 0
	for _, r := range overdue {
		if r.OverdueNotified {
			continue
		}
		actions := s.notifier.Evaluate(ctx, trigger.Transition{Old: r.Clone(), New: r})
		for _, k := range actions.Dispatched {
			if k == models.KindOverdueAlert {
				alerted++
			}
		}
	}
	return alerted, nil
}

// RemindUnassigned notifies staff about every pending high or urgent request
// that has no assignee and returns how many reminders went out.
func (s *Service) RemindUnassigned(ctx context.Context) (int, error) {
	pending, err := s.repo.UnassignedUrgent(ctx)
	if err != nil {
		return 0, err
	}
	sent := 0
	for _, r := range pending {
		if s.notifier.Unassigned(ctx, r) {
			sent++
		}
	}
	return sent, nil
}

// CleanupAttachments clears attachment references on requests closed for
// more than a year.
func (s *Service) CleanupAttachments(ctx context.Context) (int64, error) {
	cutoff := s.now().UTC().AddDate(0, 0, -365)
	n, err := s.repo.ClearStaleAttachments(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("cleared stale attachments", map[string]interface{}{"count": n})
	}
	return n, nil
}
