package reminder

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"lexdesk/api/internal/email"
	"lexdesk/api/internal/store"
)

type fakeSender struct {
	configured bool
	sent       [][]string
	data       []email.CourtReminderData
	fail       error
}

func (f *fakeSender) IsConfigured() bool { return f.configured }

func (f *fakeSender) SendCourtReminder(to []string, data email.CourtReminderData) error {
	if f.fail != nil {
		return f.fail
	}
	f.sent = append(f.sent, to)
	f.data = append(f.data, data)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seedCourtLog(t *testing.T, s store.Store, courtDate time.Time, leadHours int, enabled bool) store.CourtLog {
	t.Helper()
	ctx := context.Background()

	lawyer, err := s.CreateUser(ctx, store.User{
		Name: "Ana Reyes", Email: "ana@firm.example", Role: store.RoleLawyer, Status: store.UserActive,
	})
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	client, err := s.CreateClient(ctx, store.Client{FirstName: "Maya", LastName: "Okafor"})
	if err != nil {
		t.Fatalf("CreateClient failed: %v", err)
	}
	kase, err := s.CreateCase(ctx, store.Case{
		Title: "Okafor v. State", ClientID: client.ID, AssignedUserIDs: []string{lawyer.ID},
	})
	if err != nil {
		t.Fatalf("CreateCase failed: %v", err)
	}
	entry, err := s.CreateCourtLog(ctx, store.CourtLog{
		ClientID:          client.ID,
		CaseID:            kase.ID,
		CourtDate:         courtDate,
		CourtName:         "Superior Court",
		ReminderEnabled:   enabled,
		ReminderLeadHours: leadHours,
	})
	if err != nil {
		t.Fatalf("CreateCourtLog failed: %v", err)
	}
	return entry
}

func TestSweepSendsDueReminderOnce(t *testing.T) {
	s := store.NewMemoryStore()
	sender := &fakeSender{configured: true}
	w := NewWorker(s, sender, testLogger(), time.Minute)

	now := time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return now }

	// Court date 2h away with a 24h lead window: due.
	entry := seedCourtLog(t, s, now.Add(2*time.Hour), 24, true)

	if err := w.Sweep(context.Background()); err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("expected 1 reminder, got %d", len(sender.sent))
	}
	if sender.sent[0][0] != "ana@firm.example" {
		t.Fatalf("unexpected recipients: %v", sender.sent[0])
	}
	if sender.data[0].CaseTitle != "Okafor v. State" || sender.data[0].ClientName != "Maya Okafor" {
		t.Fatalf("unexpected reminder data: %+v", sender.data[0])
	}

	got, err := s.GetCourtLog(context.Background(), entry.ID)
	if err != nil {
		t.Fatalf("GetCourtLog failed: %v", err)
	}
	if got.ReminderSentAt == nil {
		t.Fatal("expected ReminderSentAt to be stamped")
	}

	// Second sweep must not resend.
	if err := w.Sweep(context.Background()); err != nil {
		t.Fatalf("second Sweep failed: %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("expected reminder to fire once, got %d sends", len(sender.sent))
	}
}

func TestSweepSkipsOutsideLeadWindow(t *testing.T) {
	s := store.NewMemoryStore()
	sender := &fakeSender{configured: true}
	w := NewWorker(s, sender, testLogger(), time.Minute)

	now := time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return now }

	// Court date 48h away with a 24h lead window: not yet due.
	seedCourtLog(t, s, now.Add(48*time.Hour), 24, true)

	if err := w.Sweep(context.Background()); err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if len(sender.sent) != 0 {
		t.Fatalf("expected no reminders, got %d", len(sender.sent))
	}
}

func TestSweepSkipsDisabledAndPast(t *testing.T) {
	s := store.NewMemoryStore()
	sender := &fakeSender{configured: true}
	w := NewWorker(s, sender, testLogger(), time.Minute)

	now := time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return now }

	seedCourtLog(t, s, now.Add(2*time.Hour), 24, false)     // reminders off
	seedCourtLog(t, s, now.Add(-time.Hour), 24, true)       // already past
	seedCourtLog(t, s, now.Add(30*time.Minute), 240, true)  // due

	if err := w.Sweep(context.Background()); err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("expected exactly 1 reminder, got %d", len(sender.sent))
	}
}

func TestSweepWithoutEmailStillStamps(t *testing.T) {
	s := store.NewMemoryStore()
	sender := &fakeSender{configured: false}
	w := NewWorker(s, sender, testLogger(), time.Minute)

	now := time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return now }

	entry := seedCourtLog(t, s, now.Add(2*time.Hour), 24, true)

	if err := w.Sweep(context.Background()); err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if len(sender.sent) != 0 {
		t.Fatalf("expected no sends without email configured, got %d", len(sender.sent))
	}
	got, err := s.GetCourtLog(context.Background(), entry.ID)
	if err != nil {
		t.Fatalf("GetCourtLog failed: %v", err)
	}
	if got.ReminderSentAt == nil {
		t.Fatal("expected ReminderSentAt to be stamped even when email is off")
	}
}
