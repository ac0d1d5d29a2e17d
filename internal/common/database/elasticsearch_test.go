package database

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crm-ai-workers/internal/common/config"
	"crm-ai-workers/internal/models"
)

func createTestElasticsearch(t *testing.T, handler http.HandlerFunc) *ElasticsearchClient {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	es, err := NewElasticsearch(config.ElasticsearchConfig{
		Addresses: []string{server.URL},
		LeadIndex: "test-leads",
		MaxLeads:  50,
	})
	require.NoError(t, err)
	return es
}

func TestListAccountLeads(t *testing.T) {
	var query map[string]interface{}
	es := createTestElasticsearch(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/test-leads/_search", r.URL.Path)
		assert.Equal(t, "50", r.URL.Query().Get("size"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&query))

		fmt.Fprint(w, `{"hits":{"total":{"value":2},"hits":[
			{"_source":{"id":"l1","firstName":"Ada","lastName":"Lovelace","company":"Analytical","status":"qualified","score":88}},
			{"_source":{"id":"l2","firstName":"Alan","company":"Bletchley","status":"new","score":41}}
		]}}`)
	})

	leads, err := es.ListAccountLeads(context.Background(), "acct-1")

	require.NoError(t, err)
	require.Len(t, leads, 2)
	assert.Equal(t, "Ada Lovelace", leads[0].FullName())
	assert.Equal(t, models.LeadStatusQualified, leads[0].Status)
	assert.Equal(t, 41, leads[1].Score)

	filter := query["query"].(map[string]interface{})["bool"].(map[string]interface{})["filter"].([]interface{})
	term := filter[0].(map[string]interface{})["term"].(map[string]interface{})
	assert.Equal(t, "acct-1", term["accountId"])
}

func TestListAccountLeads_Empty(t *testing.T) {
	es := createTestElasticsearch(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"hits":{"total":{"value":0},"hits":[]}}`)
	})

	leads, err := es.ListAccountLeads(context.Background(), "acct-1")

	require.NoError(t, err)
	assert.Empty(t, leads)
	assert.NotNil(t, leads)
}

func TestListAccountLeads_Errors(t *testing.T) {
	es := createTestElasticsearch(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":{"type":"index_not_found_exception"},"status":404}`)
	})

	_, err := es.ListAccountLeads(context.Background(), "")
	assert.ErrorIs(t, err, ErrMissingAccount)

	_, err = es.ListAccountLeads(context.Background(), "acct-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestNewElasticsearch_Defaults(t *testing.T) {
	es, err := NewElasticsearch(config.ElasticsearchConfig{URL: "http://localhost:9200"})

	require.NoError(t, err)
	assert.Equal(t, "crm-leads", es.leadIndex)
	assert.Equal(t, 500, es.maxLeads)
}
