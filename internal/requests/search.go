package requests

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	apperrors "studentservices-api/internal/common/errors"
	"studentservices-api/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// SearchIndex keeps a text index of requests in Elasticsearch.
type SearchIndex struct {
	client *elasticsearch.Client
	index  string
}

func NewSearchIndex(client *elasticsearch.Client, index string) *SearchIndex {
	return &SearchIndex{client: client, index: index}
}

type indexedRequest struct {
	ID                 int64  `json:"id"`
	ProjectTitle       string `json:"project_title"`
	ProjectDescription string `json:"project_description"`
	ClientName         string `json:"client_name"`
	ClientEmail        string `json:"client_email"`
	ServiceName        string `json:"service_name"`
	Status             string `json:"status"`
	Priority           string `json:"priority"`
	CreatedAt          string `json:"created_at"`
}

func (i *SearchIndex) Index(ctx context.Context, r *models.ServiceRequest) error {
	body, err := json.Marshal(indexedRequest{
		ID:                 r.ID,
		ProjectTitle:       r.ProjectTitle,
		ProjectDescription: r.ProjectDescription,
		ClientName:         r.ClientName,
		ClientEmail:        r.ClientEmail,
		ServiceName:        r.ServiceName,
		Status:             string(r.Status),
		Priority:           string(r.Priority),
		CreatedAt:          r.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	})
	if err != nil {
		return err
	}

	req := esapi.IndexRequest{
		Index:      i.index,
		DocumentID: strconv.FormatInt(r.ID, 10),
		Body:       bytes.NewReader(body),
	}
	res, err := req.Do(ctx, i.client)
	if err != nil {
		return apperrors.NewSearchQueryFailedError(err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return apperrors.NewSearchQueryFailedError(fmt.Errorf("index request %d: %s", r.ID, res.Status()))
	}
	return nil
}

func (i *SearchIndex) Remove(ctx context.Context, id int64) error {
	req := esapi.DeleteRequest{Index: i.index, DocumentID: strconv.FormatInt(id, 10)}
	res, err := req.Do(ctx, i.client)
	if err != nil {
		return apperrors.NewSearchQueryFailedError(err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return apperrors.NewSearchQueryFailedError(fmt.Errorf("delete request %d: %s", id, res.Status()))
	}
	return nil
}

// Search returns the ids of requests matching query, best match first.
func (i *SearchIndex) Search(ctx context.Context, query string, limit int) ([]int64, error) {
	body, _ := json.Marshal(map[string]interface{}{
		"_source": false,
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":     query,
				"fields":    []string{"project_title^3", "client_name^2", "client_email^2", "project_description", "service_name"},
				"type":      "best_fields",
				"fuzziness": "AUTO",
			},
		},
	})

	from := 0
	req := esapi.SearchRequest{
		Index: []string{i.index},
		Body:  strings.NewReader(string(body)),
		From:  &from,
		Size:  &limit,
	}
	res, err := req.Do(ctx, i.client)
	if err != nil {
		return nil, apperrors.NewSearchQueryFailedError(err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, apperrors.NewSearchQueryFailedError(fmt.Errorf("search failed: %s", res.String()))
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, apperrors.NewSearchQueryFailedError(err)
	}

	ids := make([]int64, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		id, err := strconv.ParseInt(h.ID, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}
