// Package search provides full-text search over clients and cases, backed by
// Meilisearch with a store-scan fallback when it is unavailable.
package search

import "context"

// ResultType identifies the kind of entity in a search result.
type ResultType string

const (
	ResultClient ResultType = "client"
	ResultCase   ResultType = "case"
)

// Result is a single search hit returned to the caller.
type Result struct {
	Type     ResultType `json:"type"`
	ID       string     `json:"id"`
	Title    string     `json:"title"`
	Snippet  string     `json:"snippet"`
	ClientID string     `json:"clientId,omitempty"`
}

// Query describes a search request.
type Query struct {
	Text       string
	FilterType ResultType // empty = all types
	Limit      int
	Offset     int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(ctx context.Context, q Query) ([]Result, int, error)
	Healthy() bool
}

// ClientRecord is the data we index for a client.
type ClientRecord struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	CompanyName string `json:"companyName"`
	Email       string `json:"email"`
	Notes       string `json:"notes"`
	Type        string `json:"clientType"`
}

// CaseRecord is the data we index for a case.
type CaseRecord struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	CaseNumber string `json:"caseNumber"`
	ClientID   string `json:"clientId"`
	Status     string `json:"status"`
}
