// Package reminder runs the background sweep that emails court date
// reminders to the users assigned to a case.
package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"lexdesk/api/internal/email"
	"lexdesk/api/internal/metrics"
	"lexdesk/api/internal/store"
)

// Sender is the slice of the email service the worker needs.
type Sender interface {
	IsConfigured() bool
	SendCourtReminder(to []string, data email.CourtReminderData) error
}

type Worker struct {
	store    store.Store
	sender   Sender
	log      *slog.Logger
	interval time.Duration
	now      func() time.Time
	metrics  *metrics.Collector
}

// SetMetrics attaches an optional collector counting sent reminders.
func (w *Worker) SetMetrics(c *metrics.Collector) {
	w.metrics = c
}

func NewWorker(st store.Store, sender Sender, log *slog.Logger, interval time.Duration) *Worker {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Worker{
		store:    st,
		sender:   sender,
		log:      log,
		interval: interval,
		now:      time.Now,
	}
}

// Run sweeps on a fixed interval until the context is cancelled.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.Sweep(ctx); err != nil {
				w.log.Error("reminder sweep failed", "error", err)
			}
		}
	}
}

// Sweep sends reminders for every scheduled court date inside its lead
// window and stamps ReminderSentAt so each fires at most once.
func (w *Worker) Sweep(ctx context.Context) error {
	now := w.now()
	page := store.Page{Number: 1, Limit: 200}
	for {
		res, err := w.store.ListCourtLogs(ctx, store.CourtLogFilter{Status: store.CourtScheduled}, page)
		if err != nil {
			return fmt.Errorf("list court logs: %w", err)
		}
		for _, entry := range res.Items {
			if !due(entry, now) {
				continue
			}
			if err := w.remind(ctx, entry); err != nil {
				w.log.Error("court reminder failed", "courtLog", entry.ID, "error", err)
			}
		}
		if page.Number >= res.Pagination.Pages {
			return nil
		}
		page.Number++
	}
}

func due(entry store.CourtLog, now time.Time) bool {
	if !entry.ReminderEnabled || entry.ReminderSentAt != nil {
		return false
	}
	if !now.Before(entry.CourtDate) {
		return false
	}
	lead := time.Duration(entry.ReminderLeadHours) * time.Hour
	return !now.Before(entry.CourtDate.Add(-lead))
}

func (w *Worker) remind(ctx context.Context, entry store.CourtLog) error {
	recipients, data, err := w.resolve(ctx, entry)
	if err != nil {
		return err
	}

	if len(recipients) == 0 {
		w.log.Warn("court reminder has no recipients", "courtLog", entry.ID)
	} else if !w.sender.IsConfigured() {
		w.log.Warn("email not configured, skipping court reminder", "courtLog", entry.ID)
	} else if err := w.sender.SendCourtReminder(recipients, data); err != nil {
		return fmt.Errorf("send reminder: %w", err)
	} else {
		if w.metrics != nil {
			w.metrics.RecordReminderSent()
		}
		w.log.Info("court reminder sent", "courtLog", entry.ID, "recipients", len(recipients))
	}

	sentAt := w.now()
	if _, err := w.store.UpdateCourtLog(ctx, entry.ID, store.CourtLogPatch{ReminderSentAt: &sentAt}); err != nil {
		return fmt.Errorf("stamp reminder: %w", err)
	}
	return nil
}

func (w *Worker) resolve(ctx context.Context, entry store.CourtLog) ([]string, email.CourtReminderData, error) {
	data := email.CourtReminderData{
		CourtName: entry.CourtName,
		Address:   entry.CourtAddress,
		CourtDate: entry.CourtDate.Format(time.RFC1123),
	}

	if client, err := w.store.GetClient(ctx, entry.ClientID); err == nil {
		data.ClientName = client.DisplayName
	}

	var recipients []string
	if entry.CaseID != "" {
		kase, err := w.store.GetCase(ctx, entry.CaseID)
		if err != nil {
			return nil, data, fmt.Errorf("get case: %w", err)
		}
		data.CaseTitle = kase.Title
		for _, userID := range kase.AssignedUserIDs {
			user, err := w.store.GetUser(ctx, userID)
			if err != nil || user.Status != store.UserActive || user.Email == "" {
				continue
			}
			recipients = append(recipients, user.Email)
		}
	}
	if data.CaseTitle == "" {
		data.CaseTitle = data.ClientName
	}
	return recipients, data, nil
}
