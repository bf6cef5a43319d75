package search

import (
	"context"
	"log/slog"
)

// Service is the facade that tries Meilisearch first and falls back to
// scanning the store.
type Service struct {
	meili    *Meili
	fallback *StoreSearch
	log      *slog.Logger
}

// NewService creates a search service. meili may be nil if Meilisearch is
// not configured.
func NewService(meili *Meili, fallback *StoreSearch, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{meili: meili, fallback: fallback, log: log}
}

// Search tries Meilisearch if healthy, otherwise falls back to the store.
func (s *Service) Search(ctx context.Context, q Query) Response {
	if s.meili != nil && s.meili.Healthy() {
		results, total, err := s.meili.Search(ctx, q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		s.log.Warn("meilisearch error, falling back to store scan", "error", err)
	}

	results, total, err := s.fallback.Search(ctx, q)
	if err != nil {
		s.log.Error("search store scan failed", "error", err)
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

// IndexClient indexes a client (fire-and-forget to Meilisearch).
func (s *Service) IndexClient(c ClientRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexClient(c); err != nil {
			s.log.Warn("index client failed", "client", c.ID, "error", err)
		}
	}()
}

// IndexCase indexes a case (fire-and-forget to Meilisearch).
func (s *Service) IndexCase(c CaseRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexCase(c); err != nil {
			s.log.Warn("index case failed", "case", c.ID, "error", err)
		}
	}()
}

// DeleteClient removes a client from the search index (fire-and-forget).
func (s *Service) DeleteClient(id string) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.DeleteClient(id); err != nil {
			s.log.Warn("deindex client failed", "client", id, "error", err)
		}
	}()
}

// DeleteCase removes a case from the search index (fire-and-forget).
func (s *Service) DeleteCase(id string) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.DeleteCase(id); err != nil {
			s.log.Warn("deindex case failed", "case", id, "error", err)
		}
	}()
}

// ReindexAll reads every record from the store and pushes it to Meilisearch.
// Called on startup when Meilisearch is healthy.
func (s *Service) ReindexAll(ctx context.Context) {
	if s.meili == nil || !s.meili.Healthy() || s.fallback == nil {
		return
	}
	clients, cases, err := s.fallback.LoadAllRecords(ctx)
	if err != nil {
		s.log.Error("reindex load failed", "error", err)
		return
	}
	if err := s.meili.IndexClients(clients); err != nil {
		s.log.Warn("reindex clients failed", "error", err)
	}
	if err := s.meili.IndexCases(cases); err != nil {
		s.log.Warn("reindex cases failed", "error", err)
	}
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
