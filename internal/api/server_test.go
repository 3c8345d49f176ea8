package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studentservices-api/internal/common/auth"
	apperrors "studentservices-api/internal/common/errors"
	"studentservices-api/internal/common/logger"
	"studentservices-api/internal/common/metrics"
	"studentservices-api/internal/contact"
	"studentservices-api/internal/models"
	"studentservices-api/internal/notification/dispatcher"
	"studentservices-api/internal/notification/ledger"
	"studentservices-api/internal/requests"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var fixedNow = time.Date(2026, 4, 20, 14, 5, 0, 0, time.UTC)

// ==========================
// Mocks
// ==========================

// Each mock embeds its interface so tests only stub what they call.

type MockRequests struct {
	RequestService
	CreatePublicFunc func(ctx context.Context, in requests.CreateInput, lang models.Language) (*models.ServiceRequest, error)
	GetFunc          func(ctx context.Context, id int64) (*models.ServiceRequest, error)
	LatestFunc       func(ctx context.Context) (*models.ServiceRequest, error)
	ChangeStatusFunc func(ctx context.Context, id int64, status models.RequestStatus, notes string) (*models.ServiceRequest, error)
	DeleteFunc       func(ctx context.Context, id int64) error
	ApplyFunc        func(ctx context.Context, a requests.BulkAction) (int, error)
}

func (m *MockRequests) CreatePublic(ctx context.Context, in requests.CreateInput, lang models.Language) (*models.ServiceRequest, error) {
	return m.CreatePublicFunc(ctx, in, lang)
}

func (m *MockRequests) Get(ctx context.Context, id int64) (*models.ServiceRequest, error) {
	return m.GetFunc(ctx, id)
}

func (m *MockRequests) Latest(ctx context.Context) (*models.ServiceRequest, error) {
	return m.LatestFunc(ctx)
}

func (m *MockRequests) ChangeStatus(ctx context.Context, id int64, status models.RequestStatus, notes string) (*models.ServiceRequest, error) {
	return m.ChangeStatusFunc(ctx, id, status, notes)
}

func (m *MockRequests) Delete(ctx context.Context, id int64) error {
	return m.DeleteFunc(ctx, id)
}

func (m *MockRequests) Apply(ctx context.Context, a requests.BulkAction) (int, error) {
	return m.ApplyFunc(ctx, a)
}

type MockLedger struct {
	NotificationLedger
	StatsFunc func(ctx context.Context, days int) (*ledger.Stats, error)
	RetryFunc func(ctx context.Context, id int64, via ledger.Resender) (*models.NotificationRecord, error)
}

func (m *MockLedger) Stats(ctx context.Context, days int) (*ledger.Stats, error) {
	return m.StatsFunc(ctx, days)
}

func (m *MockLedger) Retry(ctx context.Context, id int64, via ledger.Resender) (*models.NotificationRecord, error) {
	return m.RetryFunc(ctx, id, via)
}

type MockDispatcher struct {
	Dispatcher
	DispatchFunc func(ctx context.Context, kind models.NotificationKind, req *models.ServiceRequest, language models.Language, notificationType string, opts ...dispatcher.Option) (*dispatcher.Result, error)
}

func (m *MockDispatcher) Dispatch(ctx context.Context, kind models.NotificationKind, req *models.ServiceRequest, language models.Language, notificationType string, opts ...dispatcher.Option) (*dispatcher.Result, error) {
	return m.DispatchFunc(ctx, kind, req, language, notificationType, opts...)
}

type MockContact struct {
	ContactStore
	CreateFunc func(ctx context.Context, in contact.CreateInput) (*models.ContactInquiry, error)
	ListFunc   func(ctx context.Context, f contact.Filter) ([]*models.ContactInquiry, error)
}

func (m *MockContact) Create(ctx context.Context, in contact.CreateInput) (*models.ContactInquiry, error) {
	return m.CreateFunc(ctx, in)
}

func (m *MockContact) List(ctx context.Context, f contact.Filter) ([]*models.ContactInquiry, error) {
	return m.ListFunc(ctx, f)
}

type MockPortfolio struct {
	PortfolioStore
	CreateFunc func(ctx context.Context, item *models.PortfolioItem) error
}

func (m *MockPortfolio) Create(ctx context.Context, item *models.PortfolioItem) error {
	return m.CreateFunc(ctx, item)
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

// ==========================
// Test Helper Functions
// ==========================

var tokens = auth.NewTokenManager("test-secret", "studentservices-api", time.Hour, nil)

func newTestServer(t *testing.T, deps Deps) *Server {
	t.Helper()
	if deps.Tokens == nil {
		deps.Tokens = tokens
	}
	s := NewServer(deps, logger.NewTestLogger(t))
	s.now = func() time.Time { return fixedNow }
	return s
}

func bearer(t *testing.T, staff, superuser bool) string {
	t.Helper()
	token, _, err := tokens.Issue(auth.Subject{UserID: 7, Username: "amal", IsStaff: staff, IsSuperuser: superuser})
	require.NoError(t, err)
	return "Bearer " + token
}

func doRequest(s *Server, method, path, authHeader string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, _ := json.Marshal(b)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) apperrors.ErrorPayload {
	t.Helper()
	var body apperrors.ErrorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body.Error
}

func sampleRequest() *models.ServiceRequest {
	return &models.ServiceRequest{
		ID:           31,
		ServiceID:    2,
		ServiceName:  "Thesis Editing",
		ClientName:   "Sara Mansour",
		ClientEmail:  "sara@example.com",
		ProjectTitle: "Dissertation proofreading",
		Deadline:     fixedNow.AddDate(0, 0, 10),
		Status:       models.StatusPending,
		Priority:     models.PriorityNormal,
		Language:     models.LanguageArabic,
		CreatedAt:    fixedNow,
	}
}

// ==========================
// Tests
// ==========================

func TestServer_Health(t *testing.T) {
	s := newTestServer(t, Deps{})
	before := testutil.ToFloat64(metrics.HTTPRequests.WithLabelValues("GET", "/health", "200"))

	w := doRequest(s, http.MethodGet, "/health", "", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.HTTPRequests.WithLabelValues("GET", "/health", "200")))
}

func TestServer_CORS(t *testing.T) {
	s := NewServer(Deps{Tokens: tokens}, logger.NewTestLogger(t), WithAllowedOrigins([]string{"https://studentservices.com"}))

	tests := []struct {
		name       string
		origin     string
		wantOrigin string
	}{
		{name: "allowed origin", origin: "https://studentservices.com", wantOrigin: "https://studentservices.com"},
		{name: "unknown origin", origin: "https://evil.example", wantOrigin: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(s, http.MethodOptions, "/api/public/requests", "", nil, "Origin", tt.origin)
			assert.Equal(t, http.StatusNoContent, w.Code)
			assert.Equal(t, tt.wantOrigin, w.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestServer_Ready(t *testing.T) {
	tests := []struct {
		name       string
		readiness  map[string]Pinger
		wantStatus int
		wantBody   string
	}{
		{
			name:       "all dependencies reachable",
			readiness:  map[string]Pinger{"postgres": pinger{}, "redis": pinger{}},
			wantStatus: http.StatusOK,
			wantBody:   `{"status":"ready","checks":{"postgres":"ok","redis":"ok"}}`,
		},
		{
			name:       "redis down",
			readiness:  map[string]Pinger{"postgres": pinger{}, "redis": pinger{err: errors.New("connection refused")}},
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   `{"status":"not_ready","checks":{"postgres":"ok","redis":"unavailable"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, Deps{Readiness: tt.readiness})
			w := doRequest(s, http.MethodGet, "/ready", "", nil)
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.JSONEq(t, tt.wantBody, w.Body.String())
		})
	}
}

func TestServer_AdminAccess(t *testing.T) {
	reqs := &MockRequests{
		DeleteFunc: func(ctx context.Context, id int64) error { return nil },
	}

	tests := []struct {
		name       string
		method     string
		path       string
		auth       string
		wantStatus int
		wantCode   apperrors.ErrorCode
	}{
		{
			name:       "missing token",
			method:     http.MethodDelete,
			path:       "/api/admin/requests/31",
			wantStatus: http.StatusUnauthorized,
			wantCode:   apperrors.ErrCodeAuthentication,
		},
		{
			name:       "malformed token",
			method:     http.MethodDelete,
			path:       "/api/admin/requests/31",
			auth:       "Bearer not-a-jwt",
			wantStatus: http.StatusUnauthorized,
			wantCode:   apperrors.ErrCodeAuthentication,
		},
		{
			name:       "non-staff user",
			method:     http.MethodDelete,
			path:       "/api/admin/requests/31",
			auth:       bearer(t, false, false),
			wantStatus: http.StatusForbidden,
			wantCode:   apperrors.ErrCodePermissionDenied,
		},
		{
			name:       "staff cannot delete",
			method:     http.MethodDelete,
			path:       "/api/admin/requests/31",
			auth:       bearer(t, true, false),
			wantStatus: http.StatusForbidden,
			wantCode:   apperrors.ErrCodePermissionDenied,
		},
		{
			name:       "superuser deletes",
			method:     http.MethodDelete,
			path:       "/api/admin/requests/31",
			auth:       bearer(t, true, true),
			wantStatus: http.StatusNoContent,
		},
		{
			name:       "invalid id",
			method:     http.MethodDelete,
			path:       "/api/admin/requests/abc",
			auth:       bearer(t, true, true),
			wantStatus: http.StatusBadRequest,
			wantCode:   apperrors.ErrCodeValidationFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, Deps{Requests: reqs})
			w := doRequest(s, tt.method, tt.path, tt.auth, nil)
			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, decodeError(t, w).Code)
			}
		})
	}
}

func TestServer_CreatePublicRequest(t *testing.T) {
	validBody := map[string]interface{}{
		"service":             2,
		"client_name":         "Sara Mansour",
		"client_email":        "sara@example.com",
		"project_title":       "Dissertation proofreading",
		"project_description": "Proofread chapters one to five of my dissertation.",
		"deadline":            "2026-05-01",
		"priority":            "urgent",
	}

	tests := []struct {
		name           string
		body           interface{}
		language       string
		createErr      error
		wantStatus     int
		validateOutput func(t *testing.T, w *httptest.ResponseRecorder, got *requests.CreateInput, lang models.Language)
	}{
		{
			name:       "arabic client",
			body:       validBody,
			language:   "ar-SA,ar;q=0.9",
			wantStatus: http.StatusCreated,
			validateOutput: func(t *testing.T, w *httptest.ResponseRecorder, got *requests.CreateInput, lang models.Language) {
				assert.Equal(t, models.LanguageArabic, lang)
				assert.Equal(t, int64(2), got.ServiceID)
				assert.JSONEq(t, `{
					"message": "Service request submitted successfully. We will contact you soon.",
					"request_id": 31,
					"project_title": "Dissertation proofreading",
					"service": "Thesis Editing",
					"status": "pending"
				}`, w.Body.String())
			},
		},
		{
			name:       "english by default",
			body:       validBody,
			language:   "fr-FR",
			wantStatus: http.StatusCreated,
			validateOutput: func(t *testing.T, w *httptest.ResponseRecorder, got *requests.CreateInput, lang models.Language) {
				assert.Equal(t, models.LanguageEnglish, lang)
			},
		},
		{
			name: "staff-only fields are ignored",
			body: map[string]interface{}{
				"service":             2,
				"client_name":         "Sara Mansour",
				"client_email":        "sara@example.com",
				"project_title":       "Dissertation proofreading",
				"project_description": "Proofread chapters one to five of my dissertation.",
				"deadline":            "2026-05-01",
				"priority":            "whatever",
				"status":              "completed",
				"notes":               42,
			},
			wantStatus: http.StatusCreated,
			validateOutput: func(t *testing.T, w *httptest.ResponseRecorder, got *requests.CreateInput, lang models.Language) {
				require.NotNil(t, got)
				assert.Empty(t, got.Priority)
				assert.Empty(t, got.Notes)
				assert.Equal(t, "2026-05-01", got.Deadline)
			},
		},
		{
			name:       "schema rejects missing fields",
			body:       map[string]interface{}{"service": 2},
			wantStatus: http.StatusBadRequest,
			validateOutput: func(t *testing.T, w *httptest.ResponseRecorder, got *requests.CreateInput, lang models.Language) {
				assert.Nil(t, got)
				payload := decodeError(t, w)
				assert.Equal(t, apperrors.ErrCodeValidationFailed, payload.Code)
				assert.Len(t, payload.Fields, 5)
			},
		},
		{
			name:       "malformed json",
			body:       `{"service": `,
			wantStatus: http.StatusBadRequest,
			validateOutput: func(t *testing.T, w *httptest.ResponseRecorder, got *requests.CreateInput, lang models.Language) {
				assert.Nil(t, got)
				assert.Equal(t, "body", decodeError(t, w).Fields[0].Field)
			},
		},
		{
			name:       "service validation error",
			body:       validBody,
			createErr:  apperrors.NewFieldError("deadline", "Deadline cannot be in the past."),
			wantStatus: http.StatusBadRequest,
			validateOutput: func(t *testing.T, w *httptest.ResponseRecorder, got *requests.CreateInput, lang models.Language) {
				payload := decodeError(t, w)
				require.Len(t, payload.Fields, 1)
				assert.Equal(t, "deadline", payload.Fields[0].Field)
			},
		},
		{
			name:       "database failure hides details",
			body:       validBody,
			createErr:  apperrors.NewQueryExecutionFailedError("create request", errors.New("pq: relation does not exist")),
			wantStatus: http.StatusInternalServerError,
			validateOutput: func(t *testing.T, w *httptest.ResponseRecorder, got *requests.CreateInput, lang models.Language) {
				payload := decodeError(t, w)
				assert.Empty(t, payload.Details)
				assert.NotContains(t, w.Body.String(), "relation")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var (
				got  *requests.CreateInput
				lang models.Language
			)
			reqs := &MockRequests{
				CreatePublicFunc: func(ctx context.Context, in requests.CreateInput, l models.Language) (*models.ServiceRequest, error) {
					got, lang = &in, l
					if tt.createErr != nil {
						return nil, tt.createErr
					}
					return sampleRequest(), nil
				},
			}
			s := newTestServer(t, Deps{Requests: reqs})

			w := doRequest(s, http.MethodPost, "/api/public/requests", "", tt.body, "Accept-Language", tt.language)

			assert.Equal(t, tt.wantStatus, w.Code)
			tt.validateOutput(t, w, got, lang)
		})
	}
}

func TestServer_ChangeStatus(t *testing.T) {
	var gotNotes string
	reqs := &MockRequests{
		ChangeStatusFunc: func(ctx context.Context, id int64, status models.RequestStatus, notes string) (*models.ServiceRequest, error) {
			assert.Equal(t, int64(31), id)
			assert.Equal(t, models.StatusInProgress, status)
			gotNotes = notes
			r := sampleRequest()
			r.Status = status
			r.Deadline = fixedNow.AddDate(0, 0, -1)
			return r, nil
		},
	}
	s := newTestServer(t, Deps{Requests: reqs})

	w := doRequest(s, http.MethodPatch, "/api/admin/requests/31/status", bearer(t, true, false),
		map[string]string{"status": "in_progress", "notes": "Editor assigned"})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Editor assigned", gotNotes)
	var view map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, "In Progress", view["status_display"])
	assert.Equal(t, true, view["is_overdue"])
}

func TestServer_ChangeStatus_RejectsUnknownStatus(t *testing.T) {
	s := newTestServer(t, Deps{Requests: &MockRequests{}})

	w := doRequest(s, http.MethodPatch, "/api/admin/requests/31/status", bearer(t, true, false),
		map[string]string{"status": "archived"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "status", decodeError(t, w).Fields[0].Field)
}

func TestServer_BulkAction(t *testing.T) {
	tests := []struct {
		name       string
		superuser  bool
		action     string
		wantStatus int
		wantCalled bool
	}{
		{name: "staff bulk status", action: "status", wantStatus: http.StatusOK, wantCalled: true},
		{name: "staff bulk delete denied", action: "delete", wantStatus: http.StatusForbidden},
		{name: "superuser bulk delete", superuser: true, action: "delete", wantStatus: http.StatusOK, wantCalled: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			reqs := &MockRequests{
				ApplyFunc: func(ctx context.Context, a requests.BulkAction) (int, error) {
					called = true
					assert.Equal(t, []int64{1, 2}, a.RequestIDs)
					return 2, nil
				},
			}
			s := newTestServer(t, Deps{Requests: reqs})

			w := doRequest(s, http.MethodPost, "/api/admin/requests/bulk/action", bearer(t, true, tt.superuser),
				map[string]interface{}{"request_ids": []int64{1, 2}, "type": tt.action, "data": map[string]string{"status": "completed"}})

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantCalled, called)
			if tt.wantCalled {
				assert.JSONEq(t, `{"message":"Bulk action completed","updated_count":2}`, w.Body.String())
			}
		})
	}
}

func TestServer_NotificationStats(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		wantDays int
	}{
		{name: "default window", query: "", wantDays: 30},
		{name: "custom window", query: "?days=7", wantDays: 7},
		{name: "invalid window falls back", query: "?days=-3", wantDays: 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := &MockLedger{StatsFunc: func(ctx context.Context, days int) (*ledger.Stats, error) {
				return &ledger.Stats{Days: days, ByType: map[string]int{}, ByLanguage: map[string]int{}}, nil
			}}
			s := newTestServer(t, Deps{Notifications: l})

			w := doRequest(s, http.MethodGet, "/api/admin/notifications/stats"+tt.query, bearer(t, true, false), nil)

			require.Equal(t, http.StatusOK, w.Code)
			var stats ledger.Stats
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
			assert.Equal(t, tt.wantDays, stats.Days)
		})
	}
}

func TestServer_RetryNotification(t *testing.T) {
	tests := []struct {
		name       string
		retryErr   error
		wantStatus int
	}{
		{name: "failed entry requeued", wantStatus: http.StatusOK},
		{name: "sent entry rejected", retryErr: apperrors.NewInvalidRetryStateError(5, "sent"), wantStatus: http.StatusBadRequest},
		{name: "unknown entry", retryErr: apperrors.NewNotFoundError("EmailNotification", 5), wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			disp := &MockDispatcher{}
			l := &MockLedger{RetryFunc: func(ctx context.Context, id int64, via ledger.Resender) (*models.NotificationRecord, error) {
				assert.Equal(t, int64(5), id)
				assert.Same(t, disp, via)
				if tt.retryErr != nil {
					return nil, tt.retryErr
				}
				return &models.NotificationRecord{ID: 5, Status: models.NotificationSent}, nil
			}}
			s := newTestServer(t, Deps{Notifications: l, Dispatcher: disp})

			w := doRequest(s, http.MethodPost, "/api/admin/notifications/5/retry", bearer(t, true, false), nil)

			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestServer_TestSend(t *testing.T) {
	tests := []struct {
		name           string
		body           map[string]interface{}
		result         *dispatcher.Result
		validateOutput func(t *testing.T, resp testSendResponse, usedLatest bool)
	}{
		{
			name:   "newest request when none given",
			body:   map[string]interface{}{"email_type": "confirmation"},
			result: &dispatcher.Result{Handle: "task-1", Status: models.NotificationQueued},
			validateOutput: func(t *testing.T, resp testSendResponse, usedLatest bool) {
				assert.True(t, usedLatest)
				assert.Equal(t, models.LanguageEnglish, resp.Language)
				assert.Equal(t, "task-1", resp.TaskID)
				assert.Equal(t, "Test email dispatched", resp.Message)
			},
		},
		{
			name:   "explicit request and language",
			body:   map[string]interface{}{"email_type": "status_update", "language": "ar", "request_id": 31},
			result: &dispatcher.Result{Handle: "task-2", Status: models.NotificationFailed, Reason: "smtp: 550 mailbox unavailable"},
			validateOutput: func(t *testing.T, resp testSendResponse, usedLatest bool) {
				assert.False(t, usedLatest)
				assert.Equal(t, models.LanguageArabic, resp.Language)
				assert.Equal(t, "Test email failed", resp.Message)
				assert.Equal(t, "smtp: 550 mailbox unavailable", resp.Error)
			},
		},
		{
			name:   "no staff recipients",
			body:   map[string]interface{}{"email_type": "admin_notification"},
			result: &dispatcher.Result{NoRecipients: true},
			validateOutput: func(t *testing.T, resp testSendResponse, usedLatest bool) {
				assert.Equal(t, "No staff recipients configured", resp.Message)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			usedLatest := false
			reqs := &MockRequests{
				GetFunc: func(ctx context.Context, id int64) (*models.ServiceRequest, error) {
					assert.Equal(t, int64(31), id)
					return sampleRequest(), nil
				},
				LatestFunc: func(ctx context.Context) (*models.ServiceRequest, error) {
					usedLatest = true
					return sampleRequest(), nil
				},
			}
			disp := &MockDispatcher{DispatchFunc: func(ctx context.Context, kind models.NotificationKind, req *models.ServiceRequest, language models.Language, notificationType string, opts ...dispatcher.Option) (*dispatcher.Result, error) {
				assert.Equal(t, models.NotificationKind(tt.body["email_type"].(string)), kind)
				return tt.result, nil
			}}
			s := newTestServer(t, Deps{Requests: reqs, Dispatcher: disp})

			w := doRequest(s, http.MethodPost, "/api/admin/notifications/test_send", bearer(t, true, false), tt.body)

			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			var resp testSendResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			tt.validateOutput(t, resp, usedLatest)
		})
	}
}

func TestServer_TestSend_UnknownKind(t *testing.T) {
	s := newTestServer(t, Deps{Requests: &MockRequests{}, Dispatcher: &MockDispatcher{}})

	w := doRequest(s, http.MethodPost, "/api/admin/notifications/test_send", bearer(t, true, false),
		map[string]string{"email_type": "newsletter"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServer_CreateInquiry(t *testing.T) {
	store := &MockContact{CreateFunc: func(ctx context.Context, in contact.CreateInput) (*models.ContactInquiry, error) {
		if len(in.Message) < 10 {
			return nil, apperrors.NewFieldError("message", "Message must be at least 10 characters long.")
		}
		return &models.ContactInquiry{ID: 12}, nil
	}}
	s := newTestServer(t, Deps{Contact: store})

	w := doRequest(s, http.MethodPost, "/api/public/contact", "", map[string]string{
		"name": "Omar", "email": "omar@example.com", "subject": "Formatting help", "message": "Can you format my thesis in APA?",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"inquiry_id":12`)

	w = doRequest(s, http.MethodPost, "/api/public/contact", "", map[string]string{
		"name": "Omar", "email": "omar@example.com", "subject": "Formatting help", "message": "Hi",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "message", decodeError(t, w).Fields[0].Field)
}

func TestServer_UnreadInquiries(t *testing.T) {
	store := &MockContact{ListFunc: func(ctx context.Context, f contact.Filter) ([]*models.ContactInquiry, error) {
		require.NotNil(t, f.IsRead)
		assert.False(t, *f.IsRead)
		assert.Nil(t, f.IsResponded)
		return []*models.ContactInquiry{}, nil
	}}
	s := newTestServer(t, Deps{Contact: store})

	w := doRequest(s, http.MethodGet, "/api/admin/contact/unread", bearer(t, true, false), nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestServer_CreatePortfolioItem(t *testing.T) {
	tests := []struct {
		name           string
		date           string
		wantStatus     int
		validateOutput func(t *testing.T, w *httptest.ResponseRecorder, saved *models.PortfolioItem)
	}{
		{
			name:       "valid item",
			date:       "2026-03-14",
			wantStatus: http.StatusCreated,
			validateOutput: func(t *testing.T, w *httptest.ResponseRecorder, saved *models.PortfolioItem) {
				require.NotNil(t, saved)
				assert.Equal(t, time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC), saved.CompletionDate)
				assert.True(t, saved.IsActive)
				assert.Equal(t, []string{}, saved.Technologies)
			},
		},
		{
			name:       "impossible date",
			date:       "2026-13-40",
			wantStatus: http.StatusBadRequest,
			validateOutput: func(t *testing.T, w *httptest.ResponseRecorder, saved *models.PortfolioItem) {
				assert.Nil(t, saved)
				assert.Equal(t, "completion_date", decodeError(t, w).Fields[0].Field)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var saved *models.PortfolioItem
			store := &MockPortfolio{CreateFunc: func(ctx context.Context, item *models.PortfolioItem) error {
				item.ID = 3
				saved = item
				return nil
			}}
			s := newTestServer(t, Deps{Portfolio: store})

			w := doRequest(s, http.MethodPost, "/api/admin/portfolio", bearer(t, true, false), map[string]interface{}{
				"title": "Survey analysis", "description": "SPSS analysis for a nursing thesis",
				"category": 1, "completion_date": tt.date,
			})

			assert.Equal(t, tt.wantStatus, w.Code)
			tt.validateOutput(t, w, saved)
		})
	}
}

func TestServer_RecoversFromPanic(t *testing.T) {
	store := &MockContact{ListFunc: func(ctx context.Context, f contact.Filter) ([]*models.ContactInquiry, error) {
		panic("nil map write")
	}}
	s := newTestServer(t, Deps{Contact: store})

	w := doRequest(s, http.MethodGet, "/api/admin/contact", bearer(t, true, false), nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, apperrors.ErrCodeInternal, decodeError(t, w).Code)
}
