package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

// testBackends returns every backend the contract tests run against. The
// postgres backend needs a live database and is covered separately.
func testBackends(t *testing.T) map[string]*KVStore {
	t.Helper()

	mr := miniredis.RunT(t)
	redisStore, err := NewRedisStore("redis://" + mr.Addr())
	if err != nil {
		t.Fatalf("NewRedisStore failed: %v", err)
	}
	t.Cleanup(func() { redisStore.Close() })

	backends := map[string]*KVStore{
		"memory": NewMemoryStore(),
		"redis":  redisStore,
	}
	for _, s := range backends {
		s.now = testClock()
	}
	return backends
}

// testClock returns a clock that advances one second per call, so created
// records never share a timestamp and list order is deterministic.
func testClock() func() time.Time {
	base := time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC)
	n := 0
	return func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Second)
	}
}

func TestClientCRUD(t *testing.T) {
	for name, s := range testBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			created, err := s.CreateClient(ctx, Client{
				Type:      ClientIndividual,
				FirstName: "Maya",
				LastName:  "Okafor",
				Email:     "maya@example.com",
				Phone:     "555-0100",
			})
			if err != nil {
				t.Fatalf("CreateClient failed: %v", err)
			}
			if created.ID == "" {
				t.Fatal("expected a generated id")
			}
			if created.DisplayName != "Maya Okafor" {
				t.Fatalf("expected composed display name, got %q", created.DisplayName)
			}

			got, err := s.GetClient(ctx, created.ID)
			if err != nil {
				t.Fatalf("GetClient failed: %v", err)
			}
			if got.Email != "maya@example.com" || got.Phone != "555-0100" {
				t.Fatalf("roundtrip mismatch: %+v", got)
			}

			phone := "555-0199"
			updated, err := s.UpdateClient(ctx, created.ID, ClientPatch{Phone: &phone})
			if err != nil {
				t.Fatalf("UpdateClient failed: %v", err)
			}
			if updated.Phone != phone {
				t.Fatalf("expected patched phone, got %q", updated.Phone)
			}
			if updated.Email != created.Email || updated.DisplayName != created.DisplayName {
				t.Fatalf("patch touched unrelated fields: %+v", updated)
			}
			if !updated.UpdatedAt.After(created.UpdatedAt) {
				t.Fatal("expected UpdatedAt to advance")
			}
			if !updated.CreatedAt.Equal(created.CreatedAt) {
				t.Fatal("expected CreatedAt to be preserved")
			}

			if err := s.DeleteClient(ctx, created.ID); err != nil {
				t.Fatalf("DeleteClient failed: %v", err)
			}
			if _, err := s.GetClient(ctx, created.ID); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound after delete, got %v", err)
			}
			if err := s.DeleteClient(ctx, created.ID); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound on second delete, got %v", err)
			}
		})
	}
}

func TestGetUnknownIDReturnsNotFound(t *testing.T) {
	for name, s := range testBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if _, err := s.GetTask(ctx, "no-such-id"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("GetTask: expected ErrNotFound, got %v", err)
			}
			if _, err := s.UpdateCase(ctx, "no-such-id", CasePatch{}); !errors.Is(err, ErrNotFound) {
				t.Fatalf("UpdateCase: expected ErrNotFound, got %v", err)
			}
			if err := s.DeleteInvoice(ctx, "no-such-id"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("DeleteInvoice: expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestListOrderingAndPagination(t *testing.T) {
	for name, s := range testBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			var ids []string
			for i := 0; i < 5; i++ {
				c, err := s.CreateClient(ctx, Client{
					Type:        ClientCorporate,
					CompanyName: fmt.Sprintf("Firm %d", i),
				})
				if err != nil {
					t.Fatalf("CreateClient failed: %v", err)
				}
				ids = append(ids, c.ID)
			}

			res, err := s.ListClients(ctx, ClientFilter{}, Page{Number: 1, Limit: 2})
			if err != nil {
				t.Fatalf("ListClients failed: %v", err)
			}
			if res.Pagination.Total != 5 || res.Pagination.Pages != 3 {
				t.Fatalf("unexpected pagination: %+v", res.Pagination)
			}
			if len(res.Items) != 2 {
				t.Fatalf("expected 2 items, got %d", len(res.Items))
			}
			// Newest first.
			if res.Items[0].ID != ids[4] || res.Items[1].ID != ids[3] {
				t.Fatalf("unexpected order on page 1: %v %v", res.Items[0].CompanyName, res.Items[1].CompanyName)
			}

			res, err = s.ListClients(ctx, ClientFilter{}, Page{Number: 3, Limit: 2})
			if err != nil {
				t.Fatalf("ListClients page 3 failed: %v", err)
			}
			if len(res.Items) != 1 || res.Items[0].ID != ids[0] {
				t.Fatalf("unexpected last page: %+v", res.Items)
			}

			res, err = s.ListClients(ctx, ClientFilter{}, Page{Number: 9, Limit: 2})
			if err != nil {
				t.Fatalf("ListClients past end failed: %v", err)
			}
			if len(res.Items) != 0 {
				t.Fatalf("expected empty page past the end, got %d items", len(res.Items))
			}
		})
	}
}

func TestUserEmailUniqueness(t *testing.T) {
	for name, s := range testBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			first, err := s.CreateUser(ctx, User{Name: "Ana", Email: "Ana@Firm.example"})
			if err != nil {
				t.Fatalf("CreateUser failed: %v", err)
			}
			if first.Email != "ana@firm.example" {
				t.Fatalf("expected normalized email, got %q", first.Email)
			}
			if first.Role != RoleStaff || first.Status != UserActive {
				t.Fatalf("unexpected defaults: %+v", first)
			}

			if _, err := s.CreateUser(ctx, User{Name: "Other", Email: "ana@firm.example"}); !errors.Is(err, ErrConflict) {
				t.Fatalf("expected ErrConflict for duplicate email, got %v", err)
			}

			got, err := s.GetUserByEmail(ctx, "ANA@firm.example")
			if err != nil {
				t.Fatalf("GetUserByEmail failed: %v", err)
			}
			if got.ID != first.ID {
				t.Fatalf("expected user %s, got %s", first.ID, got.ID)
			}
		})
	}
}

func TestCaseFilters(t *testing.T) {
	for name, s := range testBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			open, err := s.CreateCase(ctx, Case{
				Title:           "Okafor v. State",
				CaseNumber:      "2026-CV-0012",
				ClientID:        "client-1",
				AssignedUserIDs: []string{"user-1", "user-2"},
			})
			if err != nil {
				t.Fatalf("CreateCase failed: %v", err)
			}
			if open.Status != CaseOpen || open.Type != CaseGeneral {
				t.Fatalf("unexpected defaults: %+v", open)
			}
			if _, err := s.CreateCase(ctx, Case{
				Title:    "Asylum petition",
				Type:     CaseAsylum,
				Status:   CasePending,
				ClientID: "client-2",
			}); err != nil {
				t.Fatalf("CreateCase failed: %v", err)
			}

			res, err := s.ListCases(ctx, CaseFilter{ClientID: "client-1"}, Page{})
			if err != nil {
				t.Fatalf("ListCases failed: %v", err)
			}
			if len(res.Items) != 1 || res.Items[0].ID != open.ID {
				t.Fatalf("client filter returned %+v", res.Items)
			}

			res, err = s.ListCases(ctx, CaseFilter{AssignedUserID: "user-2"}, Page{})
			if err != nil {
				t.Fatalf("ListCases failed: %v", err)
			}
			if len(res.Items) != 1 || res.Items[0].ID != open.ID {
				t.Fatalf("assignee filter returned %+v", res.Items)
			}

			res, err = s.ListCases(ctx, CaseFilter{Query: "okafor"}, Page{})
			if err != nil {
				t.Fatalf("ListCases failed: %v", err)
			}
			if len(res.Items) != 1 || res.Items[0].ID != open.ID {
				t.Fatalf("query filter returned %+v", res.Items)
			}

			res, err = s.ListCases(ctx, CaseFilter{Status: CasePending, Type: CaseAsylum}, Page{})
			if err != nil {
				t.Fatalf("ListCases failed: %v", err)
			}
			if len(res.Items) != 1 || res.Items[0].ClientID != "client-2" {
				t.Fatalf("status+type filter returned %+v", res.Items)
			}
		})
	}
}

func TestMessageReadTracking(t *testing.T) {
	for name, s := range testBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			msg, err := s.CreateMessage(ctx, Message{
				Subject:      "Hearing moved",
				Body:         "The Okafor hearing moved to Friday.",
				SenderID:     "user-1",
				RecipientIDs: []string{"user-2", "user-3"},
			})
			if err != nil {
				t.Fatalf("CreateMessage failed: %v", err)
			}
			if len(msg.ReadBy) != 0 {
				t.Fatalf("new message should be unread, got %v", msg.ReadBy)
			}

			unread := true
			res, err := s.ListMessages(ctx, MessageFilter{RecipientID: "user-2", Unread: &unread}, Page{})
			if err != nil {
				t.Fatalf("ListMessages failed: %v", err)
			}
			if len(res.Items) != 1 {
				t.Fatalf("expected 1 unread message, got %d", len(res.Items))
			}

			msg, err = s.MarkMessageRead(ctx, msg.ID, "user-2")
			if err != nil {
				t.Fatalf("MarkMessageRead failed: %v", err)
			}
			if len(msg.ReadBy) != 1 || msg.ReadBy[0] != "user-2" {
				t.Fatalf("unexpected readBy: %v", msg.ReadBy)
			}

			// Marking twice does not duplicate.
			msg, err = s.MarkMessageRead(ctx, msg.ID, "user-2")
			if err != nil {
				t.Fatalf("MarkMessageRead repeat failed: %v", err)
			}
			if len(msg.ReadBy) != 1 {
				t.Fatalf("expected readBy to stay at 1 entry, got %v", msg.ReadBy)
			}

			res, err = s.ListMessages(ctx, MessageFilter{RecipientID: "user-2", Unread: &unread}, Page{})
			if err != nil {
				t.Fatalf("ListMessages failed: %v", err)
			}
			if len(res.Items) != 0 {
				t.Fatalf("expected no unread messages for user-2, got %d", len(res.Items))
			}

			res, err = s.ListMessages(ctx, MessageFilter{RecipientID: "user-3", Unread: &unread}, Page{})
			if err != nil {
				t.Fatalf("ListMessages failed: %v", err)
			}
			if len(res.Items) != 1 {
				t.Fatalf("expected user-3 to still have 1 unread, got %d", len(res.Items))
			}

			res, err = s.ListMessages(ctx, MessageFilter{RecipientID: "user-1"}, Page{})
			if err != nil {
				t.Fatalf("ListMessages failed: %v", err)
			}
			if len(res.Items) != 0 {
				t.Fatalf("sender is not a recipient, got %d items", len(res.Items))
			}
		})
	}
}

func TestTimeEntryInvoicedFilter(t *testing.T) {
	for name, s := range testBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			free, err := s.CreateTimeEntry(ctx, TimeEntry{
				CaseID: "case-1", ClientID: "client-1", UserID: "user-1",
				Hours: 2.5, HourlyRate: 200, Billable: true,
			})
			if err != nil {
				t.Fatalf("CreateTimeEntry failed: %v", err)
			}
			billed, err := s.CreateTimeEntry(ctx, TimeEntry{
				CaseID: "case-1", ClientID: "client-1", UserID: "user-1",
				Hours: 1, HourlyRate: 200, Billable: true, InvoiceID: "inv-1",
			})
			if err != nil {
				t.Fatalf("CreateTimeEntry failed: %v", err)
			}

			invoiced := true
			res, err := s.ListTimeEntries(ctx, TimeEntryFilter{Invoiced: &invoiced}, Page{})
			if err != nil {
				t.Fatalf("ListTimeEntries failed: %v", err)
			}
			if len(res.Items) != 1 || res.Items[0].ID != billed.ID {
				t.Fatalf("invoiced filter returned %+v", res.Items)
			}

			invoiced = false
			res, err = s.ListTimeEntries(ctx, TimeEntryFilter{Invoiced: &invoiced}, Page{})
			if err != nil {
				t.Fatalf("ListTimeEntries failed: %v", err)
			}
			if len(res.Items) != 1 || res.Items[0].ID != free.ID {
				t.Fatalf("uninvoiced filter returned %+v", res.Items)
			}

			invoiceID := "inv-2"
			stamped, err := s.UpdateTimeEntry(ctx, free.ID, TimeEntryPatch{InvoiceID: &invoiceID})
			if err != nil {
				t.Fatalf("UpdateTimeEntry failed: %v", err)
			}
			if stamped.InvoiceID != invoiceID {
				t.Fatalf("expected invoice id %q, got %q", invoiceID, stamped.InvoiceID)
			}
		})
	}
}

func TestCounts(t *testing.T) {
	for name, s := range testBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			if _, err := s.CreateClient(ctx, Client{CompanyName: "Acme", Type: ClientCorporate}); err != nil {
				t.Fatalf("CreateClient failed: %v", err)
			}
			if _, err := s.CreateTask(ctx, Task{Title: "File brief"}); err != nil {
				t.Fatalf("CreateTask failed: %v", err)
			}
			if _, err := s.CreateTask(ctx, Task{Title: "Call client"}); err != nil {
				t.Fatalf("CreateTask failed: %v", err)
			}

			counts, err := s.Counts(ctx)
			if err != nil {
				t.Fatalf("Counts failed: %v", err)
			}
			if counts["clients"] != 1 || counts["tasks"] != 2 || counts["users"] != 0 {
				t.Fatalf("unexpected counts: %v", counts)
			}
		})
	}
}
