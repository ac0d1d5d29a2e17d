// internal/common/database/elasticsearch.go
package database

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"crm-ai-workers/internal/common/config"
	"crm-ai-workers/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

var ErrMissingAccount = errors.New("account id is required")

// ElasticsearchClient wraps the Elasticsearch client and the lead index the
// pipeline views read from.
type ElasticsearchClient struct {
	Client    *elasticsearch.Client
	leadIndex string
	maxLeads  int
}

// NewElasticsearch creates a new Elasticsearch client
func NewElasticsearch(cfg config.ElasticsearchConfig) (*ElasticsearchClient, error) {
	esCfg := elasticsearch.Config{
		Addresses: cfg.Addresses,
	}
	if len(esCfg.Addresses) == 0 && cfg.URL != "" {
		esCfg.Addresses = []string{cfg.URL}
	}
	if cfg.Username != "" {
		esCfg.Username = cfg.Username
		esCfg.Password = cfg.Password
	}

	es, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}

	c := &ElasticsearchClient{Client: es, leadIndex: cfg.LeadIndex, maxLeads: cfg.MaxLeads}
	if c.leadIndex == "" {
		c.leadIndex = "crm-leads"
	}
	if c.maxLeads <= 0 {
		c.maxLeads = 500
	}
	return c, nil
}

// Ping tests the Elasticsearch connection
func (c *ElasticsearchClient) Ping(ctx context.Context) error {
	res, err := c.Client.Ping(c.Client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch ping failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping error: %s", res.Status())
	}
	return nil
}

type leadSearchResponse struct {
	Hits struct {
		Hits []struct {
			Source models.Lead `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// ListAccountLeads returns the account's leads, highest score first, capped
// at the configured maximum.
func (c *ElasticsearchClient) ListAccountLeads(ctx context.Context, accountID string) ([]models.Lead, error) {
	if accountID == "" {
		return nil, ErrMissingAccount
	}

	query := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": []interface{}{
					map[string]interface{}{"term": map[string]interface{}{"accountId": accountID}},
				},
			},
		},
		"sort": []interface{}{
			map[string]interface{}{"score": map[string]interface{}{"order": "desc"}},
		},
	}
	body, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("failed to encode lead query: %w", err)
	}

	size := c.maxLeads
	req := esapi.SearchRequest{
		Index: []string{c.leadIndex},
		Body:  bytes.NewReader(body),
		Size:  &size,
	}
	res, err := req.Do(ctx, c.Client)
	if err != nil {
		return nil, fmt.Errorf("lead search failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("lead search error: %s", res.Status())
	}

	var parsed leadSearchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode lead search response: %w", err)
	}

	leads := make([]models.Lead, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		leads = append(leads, hit.Source)
	}
	return leads, nil
}
