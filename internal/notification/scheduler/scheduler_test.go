package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studentservices-api/internal/common/logger"
)

type MockJobs struct {
	SweepOverdueFunc       func(ctx context.Context) (int, error)
	RemindUnassignedFunc   func(ctx context.Context) (int, error)
	CleanupAttachmentsFunc func(ctx context.Context) (int64, error)
	calls                  []string
}

func (m *MockJobs) SweepOverdue(ctx context.Context) (int, error) {
	m.calls = append(m.calls, "sweep")
	if m.SweepOverdueFunc != nil {
		return m.SweepOverdueFunc(ctx)
	}
	return 0, nil
}

func (m *MockJobs) RemindUnassigned(ctx context.Context) (int, error) {
	m.calls = append(m.calls, "remind")
	if m.RemindUnassignedFunc != nil {
		return m.RemindUnassignedFunc(ctx)
	}
	return 0, nil
}

func (m *MockJobs) CleanupAttachments(ctx context.Context) (int64, error) {
	m.calls = append(m.calls, "cleanup")
	if m.CleanupAttachmentsFunc != nil {
		return m.CleanupAttachmentsFunc(ctx)
	}
	return 0, nil
}

func TestScheduler_RunOverdueSweep(t *testing.T) {
	tests := []struct {
		name      string
		jobs      *MockJobs
		wantCalls []string
	}{
		{
			name: "sweep then digest",
			jobs: &MockJobs{
				SweepOverdueFunc: func(ctx context.Context) (int, error) {
					_, hasDeadline := ctx.Deadline()
					assert.True(t, hasDeadline)
					return 2, nil
				},
				RemindUnassignedFunc: func(ctx context.Context) (int, error) {
					_, hasDeadline := ctx.Deadline()
					assert.True(t, hasDeadline)
					return 2, nil
				},
			},
			wantCalls: []string{"sweep", "remind"},
		},
		{
			name: "sweep failure still sends reminders",
			jobs: &MockJobs{
				SweepOverdueFunc: func(ctx context.Context) (int, error) {
					return 0, errors.New("database unavailable")
				},
			},
			wantCalls: []string{"sweep", "remind"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(tt.jobs, Config{}, logger.NewTestLogger(t))
			s.RunOverdueSweep(context.Background())
			assert.Equal(t, tt.wantCalls, tt.jobs.calls)
		})
	}
}

func TestScheduler_RunAttachmentCleanup(t *testing.T) {
	jobs := &MockJobs{CleanupAttachmentsFunc: func(ctx context.Context) (int64, error) { return 3, nil }}
	s := New(jobs, Config{}, logger.NewTestLogger(t))

	s.RunAttachmentCleanup(context.Background())
	assert.Equal(t, []string{"cleanup"}, jobs.calls)
}

func TestScheduler_Start(t *testing.T) {
	t.Run("valid specs", func(t *testing.T) {
		s := New(&MockJobs{}, Config{OverdueSweep: "0 9 * * *", AttachmentCleanup: "0 3 * * 0"}, logger.NewTestLogger(t))
		require.NoError(t, s.Start())
		assert.Len(t, s.engine.Entries(), 2)
		s.Stop()
	})

	t.Run("disabled job", func(t *testing.T) {
		s := New(&MockJobs{}, Config{OverdueSweep: "0 9 * * *"}, logger.NewTestLogger(t))
		require.NoError(t, s.Start())
		assert.Len(t, s.engine.Entries(), 1)
		s.Stop()
	})

	t.Run("invalid spec", func(t *testing.T) {
		s := New(&MockJobs{}, Config{OverdueSweep: "every morning"}, logger.NewTestLogger(t))
		err := s.Start()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "overdue sweep")
	})
}
