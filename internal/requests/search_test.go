package requests

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studentservices-api/internal/common/config"
	"studentservices-api/internal/common/database"
	apperrors "studentservices-api/internal/common/errors"
	"studentservices-api/internal/models"
)

// mockTransport answers every Elasticsearch call with a canned response.
type mockTransport struct {
	status   int
	body     string
	requests []*http.Request
	bodies   []string
}

func (m *mockTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	m.requests = append(m.requests, req)
	if req.Body != nil {
		b, _ := io.ReadAll(req.Body)
		m.bodies = append(m.bodies, string(b))
	}
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	h.Set("X-Elastic-Product", "Elasticsearch")
	return &http.Response{
		StatusCode: m.status,
		Header:     h,
		Body:       io.NopCloser(strings.NewReader(m.body)),
		Request:    req,
	}, nil
}

func newTestIndex(t *testing.T, tr *mockTransport) *SearchIndex {
	es, err := database.NewElasticsearch(config.ElasticsearchConfig{
		Addresses: []string{"http://localhost:9200"},
	}, tr)
	require.NoError(t, err)
	return NewSearchIndex(es.Client, "service_requests")
}

func TestSearchIndex_Search(t *testing.T) {
	tr := &mockTransport{status: 200, body: `{"hits":{"total":{"value":3},"hits":[{"_id":"7"},{"_id":"2"},{"_id":"bogus"}]}}`}
	idx := newTestIndex(t, tr)

	ids, err := idx.Search(context.Background(), "thesis", 50)

	require.NoError(t, err)
	assert.Equal(t, []int64{7, 2}, ids)
	require.Len(t, tr.requests, 1)
	assert.Equal(t, "/service_requests/_search", tr.requests[0].URL.Path)
	assert.Contains(t, tr.bodies[0], `"multi_match"`)
	assert.Contains(t, tr.bodies[0], `"thesis"`)
}

func TestSearchIndex_SearchError(t *testing.T) {
	tr := &mockTransport{status: 500, body: `{"error":"boom"}`}
	idx := newTestIndex(t, tr)

	_, err := idx.Search(context.Background(), "thesis", 50)

	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeSearchQueryFailed))
}

func TestSearchIndex_Index(t *testing.T) {
	tr := &mockTransport{status: 201, body: `{"result":"created"}`}
	idx := newTestIndex(t, tr)

	err := idx.Index(context.Background(), &models.ServiceRequest{
		ID:           12,
		ProjectTitle: "Dissertation proofreading",
		Status:       models.StatusPending,
		Priority:     models.PriorityNormal,
	})

	require.NoError(t, err)
	require.Len(t, tr.requests, 1)
	assert.Equal(t, "/service_requests/_doc/12", tr.requests[0].URL.Path)
	assert.Contains(t, tr.bodies[0], `"project_title":"Dissertation proofreading"`)
}

func TestSearchIndex_RemoveMissingIsFine(t *testing.T) {
	tr := &mockTransport{status: 404, body: `{"result":"not_found"}`}
	idx := newTestIndex(t, tr)

	assert.NoError(t, idx.Remove(context.Background(), 12))
}

type MockIndexer struct {
	SearchFunc func(ctx context.Context, query string, limit int) ([]int64, error)
	indexed    []int64
}

func (m *MockIndexer) Index(_ context.Context, r *models.ServiceRequest) error {
	m.indexed = append(m.indexed, r.ID)
	return nil
}

func (m *MockIndexer) Remove(context.Context, int64) error { return nil }

func (m *MockIndexer) Search(ctx context.Context, query string, limit int) ([]int64, error) {
	return m.SearchFunc(ctx, query, limit)
}

type capturingRepo struct {
	*memRepo
	filter Filter
}

func (c *capturingRepo) List(_ context.Context, f Filter) (*Page, error) {
	c.filter = f
	return &Page{}, nil
}

func TestService_List_UsesIndex(t *testing.T) {
	tests := []struct {
		name           string
		search         func(ctx context.Context, query string, limit int) ([]int64, error)
		validateOutput func(t *testing.T, f Filter)
	}{
		{
			name: "index hits restrict the query",
			search: func(ctx context.Context, query string, limit int) ([]int64, error) {
				return []int64{4, 9}, nil
			},
			validateOutput: func(t *testing.T, f Filter) {
				assert.Equal(t, []int64{4, 9}, f.SearchIDs)
			},
		},
		{
			name: "index failure falls back to sql search",
			search: func(ctx context.Context, query string, limit int) ([]int64, error) {
				return nil, apperrors.NewSearchQueryFailedError(io.EOF)
			},
			validateOutput: func(t *testing.T, f Filter) {
				assert.Nil(t, f.SearchIDs)
				assert.Equal(t, "thesis", f.Search)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture(t)
			repo := &capturingRepo{memRepo: fx.repo}
			fx.svc.repo = repo
			fx.svc.index = &MockIndexer{SearchFunc: tt.search}

			_, err := fx.svc.List(context.Background(), Filter{Search: "thesis"})

			require.NoError(t, err)
			tt.validateOutput(t, repo.filter)
		})
	}
}
