package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
)

// Collection names are shared by every key-value backend and double as the
// keys of the Counts map.
const (
	colUsers       = "users"
	colClients     = "clients"
	colCases       = "cases"
	colTasks       = "tasks"
	colCourtLogs   = "court_logs"
	colMessages    = "messages"
	colTimeEntries = "time_entries"
	colInvoices    = "invoices"
)

var collections = []string{
	colUsers, colClients, colCases, colTasks,
	colCourtLogs, colMessages, colTimeEntries, colInvoices,
}

// KV is the minimal contract a key-value backend must provide. Records are
// opaque JSON blobs keyed by collection and id. Get and Delete return
// ErrNotFound for absent ids.
type KV interface {
	Put(ctx context.Context, collection, id string, value []byte) error
	Get(ctx context.Context, collection, id string) ([]byte, error)
	Delete(ctx context.Context, collection, id string) error
	Scan(ctx context.Context, collection string) ([][]byte, error)
	Ping(ctx context.Context) error
	Close() error
}

func kvPut[T any](ctx context.Context, kv KV, collection, id string, rec T) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal %s record: %w", collection, err)
	}
	return kv.Put(ctx, collection, id, raw)
}

func kvGet[T any](ctx context.Context, kv KV, collection, id string) (T, error) {
	var rec T
	raw, err := kv.Get(ctx, collection, id)
	if err != nil {
		return rec, err
	}
	if err := json.Unmarshal(raw, &rec); err != nil {
		return rec, fmt.Errorf("unmarshal %s record: %w", collection, err)
	}
	return rec, nil
}

func kvScan[T any](ctx context.Context, kv KV, collection string) ([]T, error) {
	raws, err := kv.Scan(ctx, collection)
	if err != nil {
		return nil, err
	}
	records := make([]T, 0, len(raws))
	for _, raw := range raws {
		var rec T
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("unmarshal %s record: %w", collection, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// kvList scans a collection, filters it, orders it newest-first with id as
// tiebreak, and returns one offset/limit page.
func kvList[T record](ctx context.Context, kv KV, collection string, match func(T) bool, page Page) (Result[T], error) {
	records, err := kvScan[T](ctx, kv, collection)
	if err != nil {
		return Result[T]{}, err
	}
	filtered := records[:0]
	for _, rec := range records {
		if match == nil || match(rec) {
			filtered = append(filtered, rec)
		}
	}
	sortRecords(filtered)
	return paginate(filtered, page), nil
}

func sortRecords[T record](records []T) {
	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if !a.recordCreatedAt().Equal(b.recordCreatedAt()) {
			return a.recordCreatedAt().After(b.recordCreatedAt())
		}
		return a.recordID() < b.recordID()
	})
}

func paginate[T any](records []T, page Page) Result[T] {
	page = page.normalize()
	total := len(records)
	pages := (total + page.Limit - 1) / page.Limit
	if pages == 0 {
		pages = 1
	}
	start := (page.Number - 1) * page.Limit
	if start > total {
		start = total
	}
	end := start + page.Limit
	if end > total {
		end = total
	}
	items := make([]T, end-start)
	copy(items, records[start:end])
	return Result[T]{
		Items: items,
		Pagination: Pagination{
			Total: total,
			Page:  page.Number,
			Limit: page.Limit,
			Pages: pages,
		},
	}
}
