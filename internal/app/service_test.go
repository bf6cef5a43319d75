package app

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"lexdesk/api/internal/authpw"
	"lexdesk/api/internal/rbac"
	"lexdesk/api/internal/session"
	"lexdesk/api/internal/store"
)

func newTestService(t *testing.T) (*Service, store.Store) {
	t.Helper()
	st := store.NewMemoryStore()
	svc := NewService(Options{
		Store:      st,
		Sessions:   session.NewMemoryStore(),
		Passwords:  authpw.NewService(st),
		JWTSecret:  []byte("test-secret"),
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
	})
	return svc, st
}

func seedUser(t *testing.T, svc *Service, email, password, role string) store.User {
	t.Helper()
	user, err := svc.CreateUser(context.Background(), CreateUserInput{
		Name:     "Test User",
		Email:    email,
		Role:     role,
		Password: password,
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func seedClient(t *testing.T, svc *Service) store.Client {
	t.Helper()
	client, err := svc.CreateClient(context.Background(), store.Client{
		Type:      store.ClientIndividual,
		FirstName: "Maya",
		LastName:  "Okafor",
	})
	if err != nil {
		t.Fatalf("seed client: %v", err)
	}
	return client
}

func seedCase(t *testing.T, svc *Service, clientID string) store.Case {
	t.Helper()
	kase, err := svc.CreateCase(context.Background(), store.Case{
		Title:    "Okafor v. Harbor Trust",
		ClientID: clientID,
	})
	if err != nil {
		t.Fatalf("seed case: %v", err)
	}
	return kase
}

func TestLoginRefreshLogout(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	seedUser(t, svc, "lawyer@firm.example", "correct-horse", store.RoleLawyer)

	if _, err := svc.Login(ctx, "lawyer@firm.example", "wrong"); err == nil {
		t.Fatal("expected login with wrong password to fail")
	}

	sess, err := svc.Login(ctx, "lawyer@firm.example", "correct-horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if sess.Token == "" || sess.RefreshToken == "" {
		t.Fatal("expected token pair")
	}
	if sess.Role != store.RoleLawyer {
		t.Errorf("role = %q, want %q", sess.Role, store.RoleLawyer)
	}

	resolved, err := svc.SessionFromToken(ctx, sess.Token)
	if err != nil {
		t.Fatalf("session from token: %v", err)
	}
	if resolved.UserID != sess.UserID {
		t.Errorf("resolved user = %q, want %q", resolved.UserID, sess.UserID)
	}

	rotated, err := svc.Refresh(ctx, sess.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if rotated.RefreshToken == sess.RefreshToken {
		t.Error("expected refresh token rotation")
	}
	if _, err := svc.Refresh(ctx, sess.RefreshToken); err == nil {
		t.Error("expected old refresh token to be revoked")
	}

	if err := svc.Logout(ctx, rotated.RefreshToken); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := svc.Refresh(ctx, rotated.RefreshToken); err == nil {
		t.Error("expected refresh after logout to fail")
	}
}

func TestRefreshRejectsInactiveUser(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	user := seedUser(t, svc, "para@firm.example", "password1", store.RoleParalegal)

	sess, err := svc.Login(ctx, "para@firm.example", "password1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	inactive := store.UserInactive
	if _, err := svc.UpdateUser(ctx, user.ID, store.UserPatch{Status: &inactive}, nil); err != nil {
		t.Fatalf("deactivate user: %v", err)
	}
	if _, err := svc.Refresh(ctx, sess.RefreshToken); err == nil {
		t.Error("expected refresh for inactive user to fail")
	}
}

func TestCreateUserValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, CreateUserInput{Email: "x@firm.example", Password: "short"})
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Status != 422 {
		t.Fatalf("expected validation error, got %v", err)
	}

	seedUser(t, svc, "dup@firm.example", "password1", store.RoleStaff)
	_, err = svc.CreateUser(ctx, CreateUserInput{Name: "Dup", Email: "DUP@firm.example", Password: "password1"})
	if !errors.As(err, &domainErr) || domainErr.Code != "EMAIL_EXISTS" {
		t.Fatalf("expected EMAIL_EXISTS, got %v", err)
	}
}

func TestClientValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateClient(ctx, store.Client{Type: store.ClientCorporate})
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Status != 422 {
		t.Fatalf("expected validation error for corporate without company name, got %v", err)
	}

	_, err = svc.CreateClient(ctx, store.Client{Type: store.ClientIndividual, FirstName: "Ana"})
	if !errors.As(err, &domainErr) || domainErr.Status != 422 {
		t.Fatalf("expected validation error for missing last name, got %v", err)
	}
}

func TestCaseRequiresExistingClient(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateCase(ctx, store.Case{Title: "Orphan", ClientID: "missing"})
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Status != 422 {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDeleteClientWithCasesConflicts(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	client := seedClient(t, svc)
	kase := seedCase(t, svc, client.ID)

	err := svc.DeleteClient(ctx, client.ID)
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Status != 409 {
		t.Fatalf("expected conflict, got %v", err)
	}

	if err := svc.DeleteCase(ctx, kase.ID); err != nil {
		t.Fatalf("delete case: %v", err)
	}
	if err := svc.DeleteClient(ctx, client.ID); err != nil {
		t.Fatalf("delete client after case removed: %v", err)
	}
}

func TestDeleteUserWithOpenTasksConflicts(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	user := seedUser(t, svc, "busy@firm.example", "password1", store.RoleParalegal)

	task, err := svc.CreateTask(ctx, store.Task{Title: "File motion", AssigneeID: user.ID})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	err = svc.DeleteUser(ctx, user.ID)
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Status != 409 {
		t.Fatalf("expected conflict, got %v", err)
	}

	done := store.TaskCompleted
	if _, err := svc.UpdateTask(ctx, task.ID, store.TaskPatch{Status: &done}); err != nil {
		t.Fatalf("complete task: %v", err)
	}
	if err := svc.DeleteUser(ctx, user.ID); err != nil {
		t.Fatalf("delete user after task completed: %v", err)
	}
}

func TestDeleteUserSeesIncompleteTasksBeyondFirstPage(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	user := seedUser(t, svc, "swamped@firm.example", "password1", store.RoleParalegal)

	// One open task first, then a full page of newer completed ones, so the
	// open task only shows up past the first 200 results.
	open, err := st.CreateTask(ctx, store.Task{Title: "Old filing", AssigneeID: user.ID, Status: store.TaskTodo})
	if err != nil {
		t.Fatalf("create open task: %v", err)
	}
	for i := 0; i < 200; i++ {
		if _, err := st.CreateTask(ctx, store.Task{
			Title:      fmt.Sprintf("Done item %d", i),
			AssigneeID: user.ID,
			Status:     store.TaskCompleted,
		}); err != nil {
			t.Fatalf("create completed task %d: %v", i, err)
		}
	}

	err = svc.DeleteUser(ctx, user.ID)
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Status != 409 {
		t.Fatalf("expected conflict for buried open task, got %v", err)
	}

	done := store.TaskCompleted
	if _, err := svc.UpdateTask(ctx, open.ID, store.TaskPatch{Status: &done}); err != nil {
		t.Fatalf("complete open task: %v", err)
	}
	if err := svc.DeleteUser(ctx, user.ID); err != nil {
		t.Fatalf("delete user after all tasks completed: %v", err)
	}
}

func seedTimeEntry(t *testing.T, svc *Service, sess Session, caseID string, hours, rate float64) store.TimeEntry {
	t.Helper()
	entry, err := svc.CreateTimeEntry(context.Background(), sess, store.TimeEntry{
		CaseID:      caseID,
		Hours:       hours,
		HourlyRate:  rate,
		Billable:    true,
		Description: "research",
	})
	if err != nil {
		t.Fatalf("seed time entry: %v", err)
	}
	return entry
}

func TestInvoiceCreationStampsEntries(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	user := seedUser(t, svc, "bill@firm.example", "password1", store.RoleLawyer)
	sess := Session{UserID: user.ID, Role: user.Role}
	client := seedClient(t, svc)
	kase := seedCase(t, svc, client.ID)

	e1 := seedTimeEntry(t, svc, sess, kase.ID, 2.5, 200)
	e2 := seedTimeEntry(t, svc, sess, kase.ID, 1.1, 150)

	invoice, err := svc.CreateInvoice(ctx, CreateInvoiceInput{
		ClientID:     client.ID,
		TimeEntryIDs: []string{e1.ID, e2.ID},
		TaxRate:      0.1,
	})
	if err != nil {
		t.Fatalf("create invoice: %v", err)
	}
	// 2.5*200 + 1.1*150 = 500 + 165 = 665
	if invoice.Subtotal != 665 {
		t.Errorf("subtotal = %v, want 665", invoice.Subtotal)
	}
	if invoice.Tax != 66.5 {
		t.Errorf("tax = %v, want 66.5", invoice.Tax)
	}
	if invoice.Total != 731.5 {
		t.Errorf("total = %v, want 731.5", invoice.Total)
	}
	if invoice.Status != store.InvoiceDraft {
		t.Errorf("status = %q, want draft", invoice.Status)
	}

	stamped, err := svc.GetTimeEntry(ctx, e1.ID)
	if err != nil {
		t.Fatalf("get time entry: %v", err)
	}
	if stamped.InvoiceID != invoice.ID {
		t.Errorf("time entry invoiceId = %q, want %q", stamped.InvoiceID, invoice.ID)
	}

	// Already-invoiced entries cannot be billed again.
	_, err = svc.CreateInvoice(ctx, CreateInvoiceInput{ClientID: client.ID, TimeEntryIDs: []string{e1.ID}})
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Status != 409 {
		t.Fatalf("expected conflict on double invoicing, got %v", err)
	}

	// Invoiced entries are locked against edits and deletes.
	hours := 3.0
	if _, err := svc.UpdateTimeEntry(ctx, e1.ID, store.TimeEntryPatch{Hours: &hours}); err == nil {
		t.Error("expected update of invoiced entry to conflict")
	}
	if err := svc.DeleteTimeEntry(ctx, e1.ID); err == nil {
		t.Error("expected delete of invoiced entry to conflict")
	}

	// Deleting the invoice releases its entries.
	if err := svc.DeleteInvoice(ctx, invoice.ID); err != nil {
		t.Fatalf("delete invoice: %v", err)
	}
	released, err := svc.GetTimeEntry(ctx, e1.ID)
	if err != nil {
		t.Fatalf("get released entry: %v", err)
	}
	if released.InvoiceID != "" {
		t.Errorf("expected released entry, got invoiceId %q", released.InvoiceID)
	}
}

func TestInvoicePaidStampsPaidDate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	user := seedUser(t, svc, "bill2@firm.example", "password1", store.RoleLawyer)
	sess := Session{UserID: user.ID, Role: user.Role}
	client := seedClient(t, svc)
	kase := seedCase(t, svc, client.ID)
	entry := seedTimeEntry(t, svc, sess, kase.ID, 1, 100)

	invoice, err := svc.CreateInvoice(ctx, CreateInvoiceInput{ClientID: client.ID, TimeEntryIDs: []string{entry.ID}})
	if err != nil {
		t.Fatalf("create invoice: %v", err)
	}

	paid := store.InvoicePaid
	updated, err := svc.UpdateInvoice(ctx, invoice.ID, store.InvoicePatch{Status: &paid})
	if err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	if updated.PaidDate == nil {
		t.Fatal("expected paidDate to be stamped")
	}

	if err := svc.DeleteInvoice(ctx, invoice.ID); err == nil {
		t.Error("expected delete of paid invoice to conflict")
	}
}

func TestSendMessageRequiresRecipients(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	sender := seedUser(t, svc, "sender@firm.example", "password1", store.RoleStaff)
	sess := Session{UserID: sender.ID, Role: sender.Role}

	_, err := svc.SendMessage(ctx, sess, store.Message{Body: "hello"})
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Status != 422 {
		t.Fatalf("expected validation error, got %v", err)
	}

	recipient := seedUser(t, svc, "rcpt@firm.example", "password1", store.RoleStaff)
	message, err := svc.SendMessage(ctx, sess, store.Message{Body: "hello", RecipientIDs: []string{recipient.ID}})
	if err != nil {
		t.Fatalf("send message: %v", err)
	}
	if message.SenderID != sender.ID {
		t.Errorf("senderId = %q, want %q", message.SenderID, sender.ID)
	}

	// Only a recipient may mark the message read.
	if _, err := svc.MarkMessageRead(ctx, sess, message.ID); err == nil {
		t.Error("expected sender mark-read to be forbidden")
	}
	read, err := svc.MarkMessageRead(ctx, Session{UserID: recipient.ID, Role: recipient.Role}, message.ID)
	if err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if len(read.ReadBy) != 1 || read.ReadBy[0] != recipient.ID {
		t.Errorf("readBy = %v, want [%s]", read.ReadBy, recipient.ID)
	}
}

func TestBootstrapSeedsAdminOnce(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	if err := svc.Bootstrap(ctx, "Admin", "admin@firm.example", "password1"); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	admin, err := st.GetUserByEmail(ctx, "admin@firm.example")
	if err != nil {
		t.Fatalf("expected seeded admin: %v", err)
	}
	if admin.Role != store.RoleAdmin {
		t.Errorf("role = %q, want Admin", admin.Role)
	}

	// Second bootstrap is a no-op since users exist.
	if err := svc.Bootstrap(ctx, "Admin", "admin2@firm.example", "password1"); err != nil {
		t.Fatalf("second bootstrap: %v", err)
	}
	if _, err := st.GetUserByEmail(ctx, "admin2@firm.example"); !errors.Is(err, store.ErrNotFound) {
		t.Error("expected second admin not to be seeded")
	}
}

func TestSummary(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	user := seedUser(t, svc, "sum@firm.example", "password1", store.RoleLawyer)
	sess := Session{UserID: user.ID, Role: user.Role}
	client := seedClient(t, svc)
	kase := seedCase(t, svc, client.ID)
	seedTimeEntry(t, svc, sess, kase.ID, 2, 100)

	if _, err := svc.CreateTask(ctx, store.Task{Title: "Draft brief"}); err != nil {
		t.Fatalf("create task: %v", err)
	}
	if _, err := svc.CreateCourtLog(ctx, store.CourtLog{
		ClientID:  client.ID,
		CaseID:    kase.ID,
		CourtDate: time.Now().Add(48 * time.Hour),
	}); err != nil {
		t.Fatalf("create court log: %v", err)
	}

	summary, err := svc.Summary(ctx)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.CasesByStatus[store.CaseOpen] != 1 {
		t.Errorf("open cases = %d, want 1", summary.CasesByStatus[store.CaseOpen])
	}
	if summary.TasksByStatus[store.TaskTodo] != 1 {
		t.Errorf("todo tasks = %d, want 1", summary.TasksByStatus[store.TaskTodo])
	}
	if summary.Billing.UnbilledHours != 2 {
		t.Errorf("unbilled hours = %v, want 2", summary.Billing.UnbilledHours)
	}
	if summary.Billing.UnbilledAmount != 200 {
		t.Errorf("unbilled amount = %v, want 200", summary.Billing.UnbilledAmount)
	}
	if len(summary.UpcomingCourt) != 1 {
		t.Errorf("upcoming court dates = %d, want 1", len(summary.UpcomingCourt))
	}
}

func TestCanMapsRoles(t *testing.T) {
	svc, _ := newTestService(t)
	if !svc.Can(Session{Role: store.RoleAdmin}, rbac.ActionManageUsers) {
		t.Error("admin should manage users")
	}
	if svc.Can(Session{Role: store.RoleStaff}, rbac.ActionWrite) {
		t.Error("staff should not write")
	}
	if !svc.Can(Session{Role: store.RoleLawyer}, rbac.ActionBilling) {
		t.Error("lawyer should access billing")
	}
}
