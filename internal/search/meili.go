package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	meili "github.com/meilisearch/meilisearch-go"
)

const (
	idxClients = "lexdesk_clients"
	idxCases   = "lexdesk_cases"
)

// Meili implements Searcher via Meilisearch and exposes indexing hooks.
type Meili struct {
	client  meili.ServiceManager
	healthy atomic.Bool
	done    chan struct{}
	log     *slog.Logger
}

// NewMeili creates a Meilisearch client and configures indexes. If the
// initial connection fails the instance stays unhealthy until the background
// monitor sees it recover; the caller keeps working off the fallback.
func NewMeili(url, apiKey string, log *slog.Logger) *Meili {
	client := meili.New(url, meili.WithAPIKey(apiKey))

	if log == nil {
		log = slog.Default()
	}
	m := &Meili{
		client: client,
		done:   make(chan struct{}),
		log:    log,
	}

	if _, err := client.Health(); err != nil {
		log.Warn("meilisearch unavailable", "url", url, "error", err)
		m.healthy.Store(false)
	} else {
		m.healthy.Store(true)
		m.configureIndexes()
	}

	go m.healthLoop()
	return m
}

func (m *Meili) configureIndexes() {
	indexes := []struct {
		uid        string
		filterable []string
		searchable []string
	}{
		{
			uid:        idxClients,
			filterable: []string{"clientType"},
			searchable: []string{"displayName", "companyName", "email", "notes"},
		},
		{
			uid:        idxCases,
			filterable: []string{"clientId", "status"},
			searchable: []string{"title", "caseNumber"},
		},
	}

	for _, idx := range indexes {
		if _, err := m.client.CreateIndex(&meili.IndexConfig{
			Uid:        idx.uid,
			PrimaryKey: "id",
		}); err != nil {
			m.log.Debug("create index", "index", idx.uid, "error", err)
		}

		index := m.client.Index(idx.uid)
		filterableInterface := make([]interface{}, len(idx.filterable))
		for i, v := range idx.filterable {
			filterableInterface[i] = v
		}
		if _, err := index.UpdateFilterableAttributes(&filterableInterface); err != nil {
			m.log.Warn("update filterable attributes failed", "index", idx.uid, "error", err)
		}
		if _, err := index.UpdateSearchableAttributes(&idx.searchable); err != nil {
			m.log.Warn("update searchable attributes failed", "index", idx.uid, "error", err)
		}
	}
}

func (m *Meili) healthLoop() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			_, err := m.client.Health()
			wasHealthy := m.healthy.Load()
			m.healthy.Store(err == nil)
			if err == nil && !wasHealthy {
				m.log.Info("meilisearch recovered, reconfiguring indexes")
				m.configureIndexes()
			}
		}
	}
}

// Close stops the background health monitor.
func (m *Meili) Close() {
	close(m.done)
}

// Healthy reports whether Meilisearch is reachable.
func (m *Meili) Healthy() bool {
	return m.healthy.Load()
}

// Search queries both indexes (or a filtered subset) and merges results.
func (m *Meili) Search(ctx context.Context, q Query) ([]Result, int, error) {
	if !m.healthy.Load() {
		return nil, 0, fmt.Errorf("meilisearch unhealthy")
	}

	limit := int64(q.Limit)
	if limit == 0 {
		limit = 20
	}

	var queries []*meili.SearchRequest
	targetIndexes := []struct {
		uid  string
		rtyp ResultType
	}{
		{idxClients, ResultClient},
		{idxCases, ResultCase},
	}

	for _, ti := range targetIndexes {
		if q.FilterType != "" && q.FilterType != ti.rtyp {
			continue
		}
		queries = append(queries, &meili.SearchRequest{
			IndexUID:              ti.uid,
			Query:                 q.Text,
			Limit:                 limit,
			Offset:                int64(q.Offset),
			AttributesToHighlight: []string{"*"},
			HighlightPreTag:       "<mark>",
			HighlightPostTag:      "</mark>",
		})
	}

	if len(queries) == 0 {
		return nil, 0, nil
	}

	resp, err := m.client.MultiSearchWithContext(ctx, &meili.MultiSearchRequest{
		Queries: queries,
	})
	if err != nil {
		m.healthy.Store(false)
		return nil, 0, fmt.Errorf("meilisearch multi-search: %w", err)
	}

	var results []Result
	total := 0
	for _, sr := range resp.Results {
		total += int(sr.EstimatedTotalHits)
		rtyp := indexToResultType(sr.IndexUID)
		for _, hit := range sr.Hits {
			results = append(results, hitToResult(hit, rtyp))
		}
	}

	return results, total, nil
}

func indexToResultType(uid string) ResultType {
	switch uid {
	case idxClients:
		return ResultClient
	case idxCases:
		return ResultCase
	default:
		return ""
	}
}

func hitToResult(hit meili.Hit, rtyp ResultType) Result {
	r := Result{Type: rtyp}
	r.ID = decodeString(hit, "id")

	switch rtyp {
	case ResultClient:
		r.Title = firstNonBlank(decodeFormattedString(hit, "displayName"), decodeString(hit, "displayName"))
		r.Snippet = firstNonBlank(decodeFormattedString(hit, "notes"), decodeString(hit, "email"))
		r.ClientID = r.ID
	case ResultCase:
		r.Title = firstNonBlank(decodeFormattedString(hit, "title"), decodeString(hit, "title"))
		r.Snippet = firstNonBlank(decodeFormattedString(hit, "caseNumber"), decodeString(hit, "caseNumber"))
		r.ClientID = decodeString(hit, "clientId")
	}
	return r
}

func decodeString(hit meili.Hit, key string) string {
	raw, ok := hit[key]
	if !ok {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}

func decodeFormattedString(hit meili.Hit, key string) string {
	raw, ok := hit["_formatted"]
	if !ok {
		return ""
	}
	var formatted map[string]string
	if err := json.Unmarshal(raw, &formatted); err != nil {
		return ""
	}
	return strings.TrimSpace(formatted[key])
}

func firstNonBlank(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

// IndexClient adds or updates a client in the search index.
func (m *Meili) IndexClient(c ClientRecord) error {
	_, err := m.client.Index(idxClients).AddDocuments([]ClientRecord{c}, nil)
	return err
}

// IndexCase adds or updates a case in the search index.
func (m *Meili) IndexCase(c CaseRecord) error {
	_, err := m.client.Index(idxCases).AddDocuments([]CaseRecord{c}, nil)
	return err
}

// DeleteClient removes a client from the search index.
func (m *Meili) DeleteClient(id string) error {
	_, err := m.client.Index(idxClients).DeleteDocument(id, nil)
	return err
}

// DeleteCase removes a case from the search index.
func (m *Meili) DeleteCase(id string) error {
	_, err := m.client.Index(idxCases).DeleteDocument(id, nil)
	return err
}

// IndexClients bulk-indexes clients, used on reindex.
func (m *Meili) IndexClients(clients []ClientRecord) error {
	if len(clients) == 0 {
		return nil
	}
	_, err := m.client.Index(idxClients).AddDocuments(clients, nil)
	return err
}

// IndexCases bulk-indexes cases, used on reindex.
func (m *Meili) IndexCases(cases []CaseRecord) error {
	if len(cases) == 0 {
		return nil
	}
	_, err := m.client.Index(idxCases).AddDocuments(cases, nil)
	return err
}
