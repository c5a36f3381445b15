// internal/queries/directory.go
package queries

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	apperrors "medclaim-portal/internal/common/errors"
	"medclaim-portal/internal/common/logger"
	"medclaim-portal/internal/models"
)

// SearchIndex accelerates free-text directory search over query subjects
// and application numbers. Postgres stays authoritative: the index only
// resolves matching ids, and indexing failures never fail the mutation.
type SearchIndex struct {
	client *elasticsearch.Client
	index  string
	logger logger.Logger
}

func NewSearchIndex(client *elasticsearch.Client, index string, log logger.Logger) *SearchIndex {
	return &SearchIndex{
		client: client,
		index:  index,
		logger: log.WithFields(map[string]interface{}{"component": "search-index"}),
	}
}

// queryDocument is the indexed projection of a query.
type queryDocument struct {
	QueryID           string `json:"queryId"`
	ApplicationID     string `json:"applicationId"`
	ApplicationNumber string `json:"applicationNumber"`
	Subject           string `json:"subject"`
	Priority          string `json:"priority"`
}

// Index upserts the projection for one query. Best effort.
func (s *SearchIndex) Index(ctx context.Context, q *models.Query, applicationNumber string) {
	doc := queryDocument{
		QueryID:           q.ID,
		ApplicationID:     q.ApplicationID,
		ApplicationNumber: applicationNumber,
		Subject:           q.Subject,
		Priority:          string(q.Priority),
	}

	body, _ := json.Marshal(doc)
	req := esapi.IndexRequest{
		Index:      s.index,
		DocumentID: q.ID,
		Body:       bytes.NewReader(body),
	}

	res, err := req.Do(ctx, s.client)
	if err != nil {
		s.logger.Warn("index update failed", map[string]interface{}{
			"queryId": q.ID,
			"error":   err.Error(),
		})
		return
	}
	defer res.Body.Close()

	if res.IsError() {
		s.logger.Warn("index update rejected", map[string]interface{}{
			"queryId": q.ID,
			"status":  res.Status(),
		})
	}
}

// SearchIDs resolves the query ids matching the free-text term.
func (s *SearchIndex) SearchIDs(ctx context.Context, term string) ([]string, error) {
	queryBody := buildDirectorySearchQuery(term)

	body, _ := json.Marshal(queryBody)
	size := 200
	req := esapi.SearchRequest{
		Index: []string{s.index},
		Body:  strings.NewReader(string(body)),
		Size:  &size,
	}

	res, err := req.Do(ctx, s.client)
	if err != nil {
		return nil, apperrors.NewSearchQueryFailedError(err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, apperrors.NewSearchQueryFailedError(fmt.Errorf("search status: %s", res.Status()))
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

	ids := make([]string, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		ids = append(ids, hit.ID)
	}
	return ids, nil
}

// buildDirectorySearchQuery builds the directory free-text query.
func buildDirectorySearchQuery(term string) map[string]interface{} {
	return map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": []interface{}{
					map[string]interface{}{
						"multi_match": map[string]interface{}{
							"query":  term,
							"fields": []string{"subject^3", "applicationNumber^2"},
							"type":   "best_fields",
						},
					},
				},
			},
		},
	}
}
