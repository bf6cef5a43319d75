package search

import (
	"context"
	"fmt"
	"strings"

	"lexdesk/api/internal/store"
)

// StoreSearch implements Searcher by scanning the record store with its
// substring filters. Slower than Meilisearch but works against any backend.
type StoreSearch struct {
	store store.Store
}

func NewStoreSearch(st store.Store) *StoreSearch {
	return &StoreSearch{store: st}
}

// Healthy always returns true: if the store is down, the whole app is down.
func (p *StoreSearch) Healthy() bool {
	return true
}

func (p *StoreSearch) Search(ctx context.Context, q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	var results []Result

	if q.FilterType == "" || q.FilterType == ResultClient {
		page := store.Page{Number: 1, Limit: 200}
		for {
			res, err := p.store.ListClients(ctx, store.ClientFilter{Query: q.Text}, page)
			if err != nil {
				return nil, 0, fmt.Errorf("scan clients: %w", err)
			}
			for _, c := range res.Items {
				results = append(results, Result{
					Type:     ResultClient,
					ID:       c.ID,
					Title:    c.DisplayName,
					Snippet:  firstNonBlank(c.Notes, c.Email),
					ClientID: c.ID,
				})
			}
			if page.Number >= res.Pagination.Pages {
				break
			}
			page.Number++
		}
	}

	if q.FilterType == "" || q.FilterType == ResultCase {
		page := store.Page{Number: 1, Limit: 200}
		for {
			res, err := p.store.ListCases(ctx, store.CaseFilter{Query: q.Text}, page)
			if err != nil {
				return nil, 0, fmt.Errorf("scan cases: %w", err)
			}
			for _, c := range res.Items {
				results = append(results, Result{
					Type:     ResultCase,
					ID:       c.ID,
					Title:    c.Title,
					Snippet:  c.CaseNumber,
					ClientID: c.ClientID,
				})
			}
			if page.Number >= res.Pagination.Pages {
				break
			}
			page.Number++
		}
	}

	total := len(results)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return results[offset:end], total, nil
}

// LoadAllRecords returns every indexable record, used for full reindexing.
func (p *StoreSearch) LoadAllRecords(ctx context.Context) ([]ClientRecord, []CaseRecord, error) {
	var clients []ClientRecord
	page := store.Page{Number: 1, Limit: 200}
	for {
		res, err := p.store.ListClients(ctx, store.ClientFilter{}, page)
		if err != nil {
			return nil, nil, fmt.Errorf("load clients: %w", err)
		}
		for _, c := range res.Items {
			clients = append(clients, ClientRecord{
				ID:          c.ID,
				DisplayName: c.DisplayName,
				CompanyName: c.CompanyName,
				Email:       c.Email,
				Notes:       c.Notes,
				Type:        c.Type,
			})
		}
		if page.Number >= res.Pagination.Pages {
			break
		}
		page.Number++
	}

	var cases []CaseRecord
	page = store.Page{Number: 1, Limit: 200}
	for {
		res, err := p.store.ListCases(ctx, store.CaseFilter{}, page)
		if err != nil {
			return nil, nil, fmt.Errorf("load cases: %w", err)
		}
		for _, c := range res.Items {
			cases = append(cases, CaseRecord{
				ID:         c.ID,
				Title:      c.Title,
				CaseNumber: c.CaseNumber,
				ClientID:   c.ClientID,
				Status:     c.Status,
			})
		}
		if page.Number >= res.Pagination.Pages {
			break
		}
		page.Number++
	}

	return clients, cases, nil
}
