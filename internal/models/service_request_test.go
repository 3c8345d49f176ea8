package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceRequest_IsOverdue(t *testing.T) {
	today := time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)

	tests := []struct {
		name     string
		deadline time.Time
		status   RequestStatus
		want     bool
	}{
		{"past deadline pending", today.AddDate(0, 0, -1), StatusPending, true},
		{"past deadline in progress", today.AddDate(0, 0, -5), StatusInProgress, true},
		{"past deadline completed", today.AddDate(0, 0, -1), StatusCompleted, false},
		{"past deadline cancelled", today.AddDate(0, 0, -1), StatusCancelled, false},
		{"deadline today", time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), StatusPending, false},
		{"deadline tomorrow", today.AddDate(0, 0, 1), StatusPending, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &ServiceRequest{Deadline: tt.deadline, Status: tt.status}
			assert.Equal(t, tt.want, r.IsOverdue(today))
		})
	}
}

func TestServiceRequest_IsOverdueFlipsWithClock(t *testing.T) {
	r := &ServiceRequest{Deadline: time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), Status: StatusPending}

	assert.False(t, r.IsOverdue(time.Date(2026, 3, 10, 23, 59, 0, 0, time.UTC)))
	assert.True(t, r.IsOverdue(time.Date(2026, 3, 11, 0, 1, 0, 0, time.UTC)))
}

func TestServiceRequest_IsOverdueAcrossZones(t *testing.T) {
	deadline, err := time.Parse("2006-01-02", "2026-10-16")
	require.NoError(t, err)
	r := &ServiceRequest{Deadline: deadline, Status: StatusPending}

	newYork := time.FixedZone("EDT", -4*3600)
	riyadh := time.FixedZone("AST", 3*3600)

	tests := []struct {
		name  string
		today time.Time
		want  bool
	}{
		{"deadline day west of utc", time.Date(2026, 10, 16, 12, 0, 0, 0, newYork), false},
		{"deadline day late evening west of utc", time.Date(2026, 10, 16, 23, 30, 0, 0, newYork), false},
		{"deadline day east of utc", time.Date(2026, 10, 16, 1, 0, 0, 0, riyadh), false},
		{"day after west of utc", time.Date(2026, 10, 17, 0, 30, 0, 0, newYork), true},
		{"day after east of utc", time.Date(2026, 10, 17, 0, 30, 0, 0, riyadh), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.IsOverdue(tt.today))
		})
	}
}

func TestDateOnly(t *testing.T) {
	local := time.Date(2026, 10, 16, 22, 15, 0, 0, time.FixedZone("EDT", -4*3600))

	assert.Equal(t, time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC), DateOnly(local))
	assert.Equal(t, "2026-10-16", DateKey(local))
}

func TestLabels(t *testing.T) {
	assert.Equal(t, "In Progress", StatusInProgress.Label())
	assert.Equal(t, "Urgent", PriorityUrgent.Label())
	assert.Equal(t, "Request Confirmation", KindConfirmation.Label())
	assert.Equal(t, "mystery", RequestStatus("mystery").Label())
	assert.False(t, RequestStatus("mystery").Valid())
}

func TestParseLanguage(t *testing.T) {
	assert.Equal(t, LanguageArabic, ParseLanguage("ar-SA,ar;q=0.9"))
	assert.Equal(t, LanguageArabic, ParseLanguage("ar"))
	assert.Equal(t, LanguageEnglish, ParseLanguage("en-US"))
	assert.Equal(t, LanguageEnglish, ParseLanguage(""))
	assert.Equal(t, LanguageEnglish, Language("fr").OrDefault())
}

func TestServiceRequest_Clone(t *testing.T) {
	id := int64(4)
	r := &ServiceRequest{ID: 1, AssignedTo: &id}
	c := r.Clone()
	*c.AssignedTo = 9
	assert.Equal(t, int64(4), *r.AssignedTo)
}
