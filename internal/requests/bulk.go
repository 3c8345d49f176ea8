package requests

import (
	"context"

	apperrors "studentservices-api/internal/common/errors"
	"studentservices-api/internal/models"
	"studentservices-api/internal/notification/trigger"
)

const (
	BulkStatus   = "status"
	BulkPriority = "priority"
	BulkAssign   = "assign"
	BulkDelete   = "delete"
)

// BulkAction is one bulk request from the admin dashboard.
type BulkAction struct {
	RequestIDs []int64        `json:"request_ids"`
	Type       string         `json:"type"`
	Data       BulkActionData `json:"data"`
}

type BulkActionData struct {
	Status     models.RequestStatus `json:"status"`
	Priority   models.Priority      `json:"priority"`
	AssignedTo *int64               `json:"assigned_to"`
}

// Apply runs a bulk action in one transaction and returns how many
// requests it touched.
func (s *Service) Apply(ctx context.Context, a BulkAction) (int, error) {
	if len(a.RequestIDs) == 0 {
		return 0, apperrors.NewFieldError("request_ids", "No request IDs provided")
	}

	switch a.Type {
	case BulkStatus:
		return s.BulkSetStatus(ctx, a.RequestIDs, a.Data.Status)
	case BulkPriority:
		return s.BulkSetPriority(ctx, a.RequestIDs, a.Data.Priority)
	case BulkAssign:
		return s.BulkAssign(ctx, a.RequestIDs, a.Data.AssignedTo)
	case BulkDelete:
		return s.BulkDelete(ctx, a.RequestIDs)
	default:
		return 0, apperrors.NewFieldError("type", "Invalid action type")
	}
}

func (s *Service) BulkSetStatus(ctx context.Context, ids []int64, status models.RequestStatus) (int, error) {
	if !status.Valid() {
		return 0, apperrors.NewFieldError("status", "Invalid status")
	}
	return s.bulkMutate(ctx, ids, func(r *models.ServiceRequest) {
		r.Status = status
	})
}

func (s *Service) BulkSetPriority(ctx context.Context, ids []int64, p models.Priority) (int, error) {
	if !p.Valid() {
		return 0, apperrors.NewFieldError("priority", "Invalid priority")
	}
	return s.bulkMutate(ctx, ids, func(r *models.ServiceRequest) {
		r.Priority = p
	})
}

func (s *Service) BulkAssign(ctx context.Context, ids []int64, userID *int64) (int, error) {
	name, err := s.resolveAssignee(ctx, userID)
	if err != nil {
		return 0, err
	}
	return s.bulkMutate(ctx, ids, func(r *models.ServiceRequest) {
		r.AssignedTo = userID
		r.AssignedToName = name
	})
}

func (s *Service) BulkDelete(ctx context.Context, ids []int64) (int, error) {
	var n int64
	err := s.repo.InTx(ctx, func(tx Repository) error {
		var err error
		n, err = tx.DeleteMany(ctx, ids)
		return err
	})
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		s.unindex(ctx, id)
	}
	return int(n), nil
}

// bulkMutate locks every listed row, applies fn and saves them together.
// Notifications go out only after the commit.
func (s *Service) bulkMutate(ctx context.Context, ids []int64, fn func(r *models.ServiceRequest)) (int, error) {
	var transitions []trigger.Transition
	err := s.repo.InTx(ctx, func(tx Repository) error {
		rows, err := tx.GetForUpdate(ctx, ids)
		if err != nil {
			return err
		}
		now := s.now().UTC()
		for _, old := range rows {
			cur := old.Clone()
			fn(cur)
			cur.UpdatedAt = now
			if err := tx.Save(ctx, cur); err != nil {
				return err
			}
			transitions = append(transitions, trigger.Transition{Old: old, New: cur})
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for _, tr := range transitions {
		s.notifier.Evaluate(ctx, tr)
		s.reindex(ctx, tr.New)
	}
	s.logger.Info("bulk update applied", map[string]interface{}{
		"requested": len(ids),
		"updated":   len(transitions),
	})
	return len(transitions), nil
}
