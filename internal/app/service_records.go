package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"lexdesk/api/internal/authpw"
	"lexdesk/api/internal/rbac"
	"lexdesk/api/internal/search"
	"lexdesk/api/internal/store"
)

var validUserStatuses = map[string]struct{}{
	store.UserActive:   {},
	store.UserInactive: {},
}

var validClientTypes = map[string]struct{}{
	store.ClientIndividual: {},
	store.ClientCorporate:  {},
}

var validCaseTypes = map[string]struct{}{
	store.CaseGeneral: {},
	store.CaseAsylum:  {},
}

var validCaseStatuses = map[string]struct{}{
	store.CaseOpen:    {},
	store.CasePending: {},
	store.CaseClosed:  {},
	store.CaseOnHold:  {},
}

var validPriorities = map[string]struct{}{
	store.PriorityLow:    {},
	store.PriorityMedium: {},
	store.PriorityHigh:   {},
	store.PriorityUrgent: {},
}

var validTaskStatuses = map[string]struct{}{
	store.TaskTodo:       {},
	store.TaskInProgress: {},
	store.TaskCompleted:  {},
}

var validCourtStatuses = map[string]struct{}{
	store.CourtScheduled: {},
	store.CourtCompleted: {},
	store.CourtPostponed: {},
	store.CourtCancelled: {},
}

var validInvoiceStatuses = map[string]struct{}{
	store.InvoiceDraft:   {},
	store.InvoiceSent:    {},
	store.InvoicePaid:    {},
	store.InvoiceOverdue: {},
}

func oneOf(valid map[string]struct{}, value string) bool {
	_, ok := valid[value]
	return ok
}

// Users

type CreateUserInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Status   string `json:"status"`
	Password string `json:"password"`
}

func (s *Service) ListUsers(ctx context.Context, filter store.UserFilter, page store.Page) (store.Result[store.User], error) {
	return s.store.ListUsers(ctx, filter, page)
}

func (s *Service) GetUser(ctx context.Context, id string) (store.User, error) {
	return s.store.GetUser(ctx, id)
}

func (s *Service) CreateUser(ctx context.Context, input CreateUserInput) (store.User, error) {
	details := map[string]string{}
	if strings.TrimSpace(input.Name) == "" {
		details["name"] = "required"
	}
	if strings.TrimSpace(input.Email) == "" {
		details["email"] = "required"
	}
	if input.Role != "" && string(rbac.Normalize(input.Role)) != input.Role {
		details["role"] = "unknown role"
	}
	if input.Status != "" && !oneOf(validUserStatuses, input.Status) {
		details["status"] = "unknown status"
	}
	hash, err := authpw.HashPassword(input.Password)
	if err != nil {
		details["password"] = "must be at least 8 characters"
	}
	if len(details) > 0 {
		return store.User{}, validationError(details)
	}

	user, err := s.store.CreateUser(ctx, store.User{
		Name:         strings.TrimSpace(input.Name),
		Email:        input.Email,
		Role:         input.Role,
		Status:       input.Status,
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return store.User{}, domainError(409, "EMAIL_EXISTS", "Email already registered", nil)
		}
		return store.User{}, fmt.Errorf("create user: %w", err)
	}
	s.countOp("users", "create")
	return user, nil
}

func (s *Service) UpdateUser(ctx context.Context, id string, patch store.UserPatch, password *string) (store.User, error) {
	details := map[string]string{}
	if patch.Role != nil && string(rbac.Normalize(*patch.Role)) != *patch.Role {
		details["role"] = "unknown role"
	}
	if patch.Status != nil && !oneOf(validUserStatuses, *patch.Status) {
		details["status"] = "unknown status"
	}
	if password != nil {
		hash, err := authpw.HashPassword(*password)
		if err != nil {
			details["password"] = "must be at least 8 characters"
		} else {
			patch.PasswordHash = &hash
		}
	}
	if len(details) > 0 {
		return store.User{}, validationError(details)
	}

	user, err := s.store.UpdateUser(ctx, id, patch)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return store.User{}, domainError(409, "EMAIL_EXISTS", "Email already registered", nil)
		}
		return store.User{}, err
	}
	s.countOp("users", "update")
	return user, nil
}

func (s *Service) DeleteUser(ctx context.Context, id string) error {
	// A user with open work keeps their account; reassign the tasks first.
	for _, status := range []string{store.TaskTodo, store.TaskInProgress} {
		res, err := s.store.ListTasks(ctx, store.TaskFilter{AssigneeID: id, Status: status}, store.Page{Number: 1, Limit: 1})
		if err != nil {
			return fmt.Errorf("check user tasks: %w", err)
		}
		if res.Pagination.Total > 0 {
			return conflictError("User has incomplete tasks assigned")
		}
	}
	if err := s.store.DeleteUser(ctx, id); err != nil {
		return err
	}
	s.countOp("users", "delete")
	return nil
}

// Clients

func (s *Service) ListClients(ctx context.Context, filter store.ClientFilter, page store.Page) (store.Result[store.Client], error) {
	return s.store.ListClients(ctx, filter, page)
}

func (s *Service) GetClient(ctx context.Context, id string) (store.Client, error) {
	return s.store.GetClient(ctx, id)
}

func validateClient(c store.Client) map[string]string {
	details := map[string]string{}
	if c.Type != "" && !oneOf(validClientTypes, c.Type) {
		details["type"] = "unknown client type"
	}
	switch c.Type {
	case store.ClientCorporate:
		if strings.TrimSpace(c.CompanyName) == "" {
			details["companyName"] = "required for corporate clients"
		}
	default:
		if strings.TrimSpace(c.FirstName) == "" {
			details["firstName"] = "required"
		}
		if strings.TrimSpace(c.LastName) == "" {
			details["lastName"] = "required"
		}
	}
	return details
}

func (s *Service) CreateClient(ctx context.Context, client store.Client) (store.Client, error) {
	if details := validateClient(client); len(details) > 0 {
		return store.Client{}, validationError(details)
	}
	created, err := s.store.CreateClient(ctx, client)
	if err != nil {
		return store.Client{}, fmt.Errorf("create client: %w", err)
	}
	s.countOp("clients", "create")
	s.indexClient(created)
	return created, nil
}

func (s *Service) UpdateClient(ctx context.Context, id string, patch store.ClientPatch) (store.Client, error) {
	if patch.Type != nil && !oneOf(validClientTypes, *patch.Type) {
		return store.Client{}, validationError(map[string]string{"type": "unknown client type"})
	}
	client, err := s.store.UpdateClient(ctx, id, patch)
	if err != nil {
		return store.Client{}, err
	}
	s.countOp("clients", "update")
	s.indexClient(client)
	return client, nil
}

func (s *Service) DeleteClient(ctx context.Context, id string) error {
	res, err := s.store.ListCases(ctx, store.CaseFilter{ClientID: id}, store.Page{Number: 1, Limit: 1})
	if err != nil {
		return fmt.Errorf("check client cases: %w", err)
	}
	if res.Pagination.Total > 0 {
		return conflictError("Client has cases; close and delete them first")
	}
	if err := s.store.DeleteClient(ctx, id); err != nil {
		return err
	}
	s.countOp("clients", "delete")
	if s.search != nil {
		s.search.DeleteClient(id)
	}
	return nil
}

func (s *Service) indexClient(c store.Client) {
	if s.search == nil {
		return
	}
	s.search.IndexClient(search.ClientRecord{
		ID:          c.ID,
		DisplayName: c.DisplayName,
		CompanyName: c.CompanyName,
		Email:       c.Email,
		Notes:       c.Notes,
		Type:        c.Type,
	})
}

// Cases

func (s *Service) ListCases(ctx context.Context, filter store.CaseFilter, page store.Page) (store.Result[store.Case], error) {
	return s.store.ListCases(ctx, filter, page)
}

func (s *Service) GetCase(ctx context.Context, id string) (store.Case, error) {
	return s.store.GetCase(ctx, id)
}

func (s *Service) validateCaseRefs(ctx context.Context, clientID string, assigned []string, details map[string]string) {
	if clientID != "" {
		if _, err := s.store.GetClient(ctx, clientID); err != nil {
			details["clientId"] = "unknown client"
		}
	}
	for _, userID := range assigned {
		if _, err := s.store.GetUser(ctx, userID); err != nil {
			details["assignedUserIds"] = "unknown user " + userID
			break
		}
	}
}

func (s *Service) CreateCase(ctx context.Context, kase store.Case) (store.Case, error) {
	details := map[string]string{}
	if strings.TrimSpace(kase.Title) == "" {
		details["title"] = "required"
	}
	if kase.ClientID == "" {
		details["clientId"] = "required"
	}
	if kase.Type != "" && !oneOf(validCaseTypes, kase.Type) {
		details["type"] = "unknown case type"
	}
	if kase.Status != "" && !oneOf(validCaseStatuses, kase.Status) {
		details["status"] = "unknown status"
	}
	s.validateCaseRefs(ctx, kase.ClientID, kase.AssignedUserIDs, details)
	if len(details) > 0 {
		return store.Case{}, validationError(details)
	}

	created, err := s.store.CreateCase(ctx, kase)
	if err != nil {
		return store.Case{}, fmt.Errorf("create case: %w", err)
	}
	s.countOp("cases", "create")
	s.indexCase(created)
	return created, nil
}

func (s *Service) UpdateCase(ctx context.Context, id string, patch store.CasePatch) (store.Case, error) {
	details := map[string]string{}
	if patch.Type != nil && !oneOf(validCaseTypes, *patch.Type) {
		details["type"] = "unknown case type"
	}
	if patch.Status != nil && !oneOf(validCaseStatuses, *patch.Status) {
		details["status"] = "unknown status"
	}
	var clientID string
	if patch.ClientID != nil {
		clientID = *patch.ClientID
	}
	var assigned []string
	if patch.AssignedUserIDs != nil {
		assigned = *patch.AssignedUserIDs
	}
	s.validateCaseRefs(ctx, clientID, assigned, details)
	if len(details) > 0 {
		return store.Case{}, validationError(details)
	}

	kase, err := s.store.UpdateCase(ctx, id, patch)
	if err != nil {
		return store.Case{}, err
	}
	s.countOp("cases", "update")
	s.indexCase(kase)
	return kase, nil
}

func (s *Service) DeleteCase(ctx context.Context, id string) error {
	entries, err := s.store.ListTimeEntries(ctx, store.TimeEntryFilter{CaseID: id}, store.Page{Number: 1, Limit: 1})
	if err != nil {
		return fmt.Errorf("check case time entries: %w", err)
	}
	if entries.Pagination.Total > 0 {
		return conflictError("Case has time entries; invoice or delete them first")
	}
	logs, err := s.store.ListCourtLogs(ctx, store.CourtLogFilter{CaseID: id}, store.Page{Number: 1, Limit: 1})
	if err != nil {
		return fmt.Errorf("check case court logs: %w", err)
	}
	if logs.Pagination.Total > 0 {
		return conflictError("Case has court log entries; delete them first")
	}
	if err := s.store.DeleteCase(ctx, id); err != nil {
		return err
	}
	s.countOp("cases", "delete")
	if s.search != nil {
		s.search.DeleteCase(id)
	}
	return nil
}

func (s *Service) indexCase(c store.Case) {
	if s.search == nil {
		return
	}
	s.search.IndexCase(search.CaseRecord{
		ID:         c.ID,
		Title:      c.Title,
		CaseNumber: c.CaseNumber,
		ClientID:   c.ClientID,
		Status:     c.Status,
	})
}

// Tasks

func (s *Service) ListTasks(ctx context.Context, filter store.TaskFilter, page store.Page) (store.Result[store.Task], error) {
	return s.store.ListTasks(ctx, filter, page)
}

func (s *Service) GetTask(ctx context.Context, id string) (store.Task, error) {
	return s.store.GetTask(ctx, id)
}

func (s *Service) validateTaskRefs(ctx context.Context, assigneeID, caseID string, details map[string]string) {
	if assigneeID != "" {
		if _, err := s.store.GetUser(ctx, assigneeID); err != nil {
			details["assigneeId"] = "unknown user"
		}
	}
	if caseID != "" {
		if _, err := s.store.GetCase(ctx, caseID); err != nil {
			details["caseId"] = "unknown case"
		}
	}
}

func (s *Service) CreateTask(ctx context.Context, task store.Task) (store.Task, error) {
	details := map[string]string{}
	if strings.TrimSpace(task.Title) == "" {
		details["title"] = "required"
	}
	if task.Priority != "" && !oneOf(validPriorities, task.Priority) {
		details["priority"] = "unknown priority"
	}
	if task.Status != "" && !oneOf(validTaskStatuses, task.Status) {
		details["status"] = "unknown status"
	}
	s.validateTaskRefs(ctx, task.AssigneeID, task.CaseID, details)
	if len(details) > 0 {
		return store.Task{}, validationError(details)
	}

	created, err := s.store.CreateTask(ctx, task)
	if err != nil {
		return store.Task{}, fmt.Errorf("create task: %w", err)
	}
	s.countOp("tasks", "create")
	return created, nil
}

func (s *Service) UpdateTask(ctx context.Context, id string, patch store.TaskPatch) (store.Task, error) {
	details := map[string]string{}
	if patch.Priority != nil && !oneOf(validPriorities, *patch.Priority) {
		details["priority"] = "unknown priority"
	}
	if patch.Status != nil && !oneOf(validTaskStatuses, *patch.Status) {
		details["status"] = "unknown status"
	}
	var assigneeID, caseID string
	if patch.AssigneeID != nil {
		assigneeID = *patch.AssigneeID
	}
	if patch.CaseID != nil {
		caseID = *patch.CaseID
	}
	s.validateTaskRefs(ctx, assigneeID, caseID, details)
	if len(details) > 0 {
		return store.Task{}, validationError(details)
	}

	task, err := s.store.UpdateTask(ctx, id, patch)
	if err != nil {
		return store.Task{}, err
	}
	s.countOp("tasks", "update")
	return task, nil
}

func (s *Service) DeleteTask(ctx context.Context, id string) error {
	if err := s.store.DeleteTask(ctx, id); err != nil {
		return err
	}
	s.countOp("tasks", "delete")
	return nil
}

// Court logs

func (s *Service) ListCourtLogs(ctx context.Context, filter store.CourtLogFilter, page store.Page) (store.Result[store.CourtLog], error) {
	return s.store.ListCourtLogs(ctx, filter, page)
}

func (s *Service) GetCourtLog(ctx context.Context, id string) (store.CourtLog, error) {
	return s.store.GetCourtLog(ctx, id)
}

func (s *Service) CreateCourtLog(ctx context.Context, entry store.CourtLog) (store.CourtLog, error) {
	details := map[string]string{}
	if entry.ClientID == "" {
		details["clientId"] = "required"
	} else if _, err := s.store.GetClient(ctx, entry.ClientID); err != nil {
		details["clientId"] = "unknown client"
	}
	if entry.CaseID != "" {
		if _, err := s.store.GetCase(ctx, entry.CaseID); err != nil {
			details["caseId"] = "unknown case"
		}
	}
	if entry.CourtDate.IsZero() {
		details["courtDate"] = "required"
	}
	if entry.Status != "" && !oneOf(validCourtStatuses, entry.Status) {
		details["status"] = "unknown status"
	}
	if len(details) > 0 {
		return store.CourtLog{}, validationError(details)
	}

	created, err := s.store.CreateCourtLog(ctx, entry)
	if err != nil {
		return store.CourtLog{}, fmt.Errorf("create court log: %w", err)
	}
	s.countOp("court_logs", "create")
	return created, nil
}

func (s *Service) UpdateCourtLog(ctx context.Context, id string, patch store.CourtLogPatch) (store.CourtLog, error) {
	details := map[string]string{}
	if patch.Status != nil && !oneOf(validCourtStatuses, *patch.Status) {
		details["status"] = "unknown status"
	}
	if patch.ClientID != nil {
		if _, err := s.store.GetClient(ctx, *patch.ClientID); err != nil {
			details["clientId"] = "unknown client"
		}
	}
	if patch.CaseID != nil && *patch.CaseID != "" {
		if _, err := s.store.GetCase(ctx, *patch.CaseID); err != nil {
			details["caseId"] = "unknown case"
		}
	}
	if len(details) > 0 {
		return store.CourtLog{}, validationError(details)
	}

	// Rescheduling re-arms the reminder.
	if patch.CourtDate != nil {
		current, err := s.store.GetCourtLog(ctx, id)
		if err != nil {
			return store.CourtLog{}, err
		}
		if current.ReminderSentAt != nil && !current.CourtDate.Equal(*patch.CourtDate) {
			zero := time.Time{}
			patch.ReminderSentAt = &zero
		}
	}

	entry, err := s.store.UpdateCourtLog(ctx, id, patch)
	if err != nil {
		return store.CourtLog{}, err
	}
	s.countOp("court_logs", "update")
	return entry, nil
}

func (s *Service) DeleteCourtLog(ctx context.Context, id string) error {
	if err := s.store.DeleteCourtLog(ctx, id); err != nil {
		return err
	}
	s.countOp("court_logs", "delete")
	return nil
}

// Messages

func (s *Service) ListMessages(ctx context.Context, filter store.MessageFilter, page store.Page) (store.Result[store.Message], error) {
	return s.store.ListMessages(ctx, filter, page)
}

func (s *Service) GetMessage(ctx context.Context, id string) (store.Message, error) {
	return s.store.GetMessage(ctx, id)
}

func (s *Service) SendMessage(ctx context.Context, sess Session, message store.Message) (store.Message, error) {
	message.SenderID = sess.UserID
	details := map[string]string{}
	if strings.TrimSpace(message.Body) == "" {
		details["body"] = "required"
	}
	if len(message.RecipientIDs) == 0 {
		details["recipientIds"] = "at least one recipient required"
	}
	for _, userID := range message.RecipientIDs {
		if _, err := s.store.GetUser(ctx, userID); err != nil {
			details["recipientIds"] = "unknown user " + userID
			break
		}
	}
	if len(details) > 0 {
		return store.Message{}, validationError(details)
	}

	created, err := s.store.CreateMessage(ctx, message)
	if err != nil {
		return store.Message{}, fmt.Errorf("send message: %w", err)
	}
	s.countOp("messages", "create")
	return created, nil
}

func (s *Service) MarkMessageRead(ctx context.Context, sess Session, id string) (store.Message, error) {
	message, err := s.store.GetMessage(ctx, id)
	if err != nil {
		return store.Message{}, err
	}
	recipient := false
	for _, userID := range message.RecipientIDs {
		if userID == sess.UserID {
			recipient = true
			break
		}
	}
	if !recipient {
		return store.Message{}, domainError(403, "FORBIDDEN", "Only a recipient can mark a message read", nil)
	}
	return s.store.MarkMessageRead(ctx, id, sess.UserID)
}

func (s *Service) DeleteMessage(ctx context.Context, sess Session, id string) error {
	message, err := s.store.GetMessage(ctx, id)
	if err != nil {
		return err
	}
	if message.SenderID != sess.UserID && sess.Role != store.RoleAdmin {
		return domainError(403, "FORBIDDEN", "Only the sender or an admin can delete a message", nil)
	}
	if err := s.store.DeleteMessage(ctx, id); err != nil {
		return err
	}
	s.countOp("messages", "delete")
	return nil
}

// Time entries

func (s *Service) ListTimeEntries(ctx context.Context, filter store.TimeEntryFilter, page store.Page) (store.Result[store.TimeEntry], error) {
	return s.store.ListTimeEntries(ctx, filter, page)
}

func (s *Service) GetTimeEntry(ctx context.Context, id string) (store.TimeEntry, error) {
	return s.store.GetTimeEntry(ctx, id)
}

func (s *Service) CreateTimeEntry(ctx context.Context, sess Session, entry store.TimeEntry) (store.TimeEntry, error) {
	if entry.UserID == "" {
		entry.UserID = sess.UserID
	}
	details := map[string]string{}
	if entry.CaseID == "" {
		details["caseId"] = "required"
	} else if kase, err := s.store.GetCase(ctx, entry.CaseID); err != nil {
		details["caseId"] = "unknown case"
	} else if entry.ClientID == "" {
		entry.ClientID = kase.ClientID
	}
	if entry.Hours <= 0 {
		details["hours"] = "must be greater than zero"
	}
	if entry.HourlyRate < 0 {
		details["hourlyRate"] = "must not be negative"
	}
	if len(details) > 0 {
		return store.TimeEntry{}, validationError(details)
	}

	created, err := s.store.CreateTimeEntry(ctx, entry)
	if err != nil {
		return store.TimeEntry{}, fmt.Errorf("create time entry: %w", err)
	}
	s.countOp("time_entries", "create")
	return created, nil
}

func (s *Service) UpdateTimeEntry(ctx context.Context, id string, patch store.TimeEntryPatch) (store.TimeEntry, error) {
	current, err := s.store.GetTimeEntry(ctx, id)
	if err != nil {
		return store.TimeEntry{}, err
	}
	if current.InvoiceID != "" {
		return store.TimeEntry{}, conflictError("Time entry is invoiced and can no longer be edited")
	}
	details := map[string]string{}
	if patch.Hours != nil && *patch.Hours <= 0 {
		details["hours"] = "must be greater than zero"
	}
	if patch.HourlyRate != nil && *patch.HourlyRate < 0 {
		details["hourlyRate"] = "must not be negative"
	}
	if patch.CaseID != nil {
		if _, err := s.store.GetCase(ctx, *patch.CaseID); err != nil {
			details["caseId"] = "unknown case"
		}
	}
	if len(details) > 0 {
		return store.TimeEntry{}, validationError(details)
	}

	entry, err := s.store.UpdateTimeEntry(ctx, id, patch)
	if err != nil {
		return store.TimeEntry{}, err
	}
	s.countOp("time_entries", "update")
	return entry, nil
}

func (s *Service) DeleteTimeEntry(ctx context.Context, id string) error {
	current, err := s.store.GetTimeEntry(ctx, id)
	if err != nil {
		return err
	}
	if current.InvoiceID != "" {
		return conflictError("Time entry is invoiced; delete the invoice first")
	}
	if err := s.store.DeleteTimeEntry(ctx, id); err != nil {
		return err
	}
	s.countOp("time_entries", "delete")
	return nil
}

// Invoices

type CreateInvoiceInput struct {
	ClientID     string     `json:"clientId"`
	TimeEntryIDs []string   `json:"timeEntryIds"`
	TaxRate      float64    `json:"taxRate"`
	DueDate      *time.Time `json:"dueDate"`
}

func (s *Service) ListInvoices(ctx context.Context, filter store.InvoiceFilter, page store.Page) (store.Result[store.Invoice], error) {
	return s.store.ListInvoices(ctx, filter, page)
}

func (s *Service) GetInvoice(ctx context.Context, id string) (store.Invoice, error) {
	return s.store.GetInvoice(ctx, id)
}

// CreateInvoice builds an invoice from unbilled time entries, computes the
// totals, and stamps each entry with the invoice id.
func (s *Service) CreateInvoice(ctx context.Context, input CreateInvoiceInput) (store.Invoice, error) {
	details := map[string]string{}
	if input.ClientID == "" {
		details["clientId"] = "required"
	} else if _, err := s.store.GetClient(ctx, input.ClientID); err != nil {
		details["clientId"] = "unknown client"
	}
	if len(input.TimeEntryIDs) == 0 {
		details["timeEntryIds"] = "at least one time entry required"
	}
	if input.TaxRate < 0 || input.TaxRate > 1 {
		details["taxRate"] = "must be between 0 and 1"
	}
	if len(details) > 0 {
		return store.Invoice{}, validationError(details)
	}

	entries := make([]store.TimeEntry, 0, len(input.TimeEntryIDs))
	var subtotal float64
	for _, entryID := range input.TimeEntryIDs {
		entry, err := s.store.GetTimeEntry(ctx, entryID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return store.Invoice{}, validationError(map[string]string{"timeEntryIds": "unknown time entry " + entryID})
			}
			return store.Invoice{}, err
		}
		if entry.ClientID != input.ClientID {
			return store.Invoice{}, validationError(map[string]string{"timeEntryIds": "time entry " + entryID + " belongs to another client"})
		}
		if !entry.Billable {
			return store.Invoice{}, validationError(map[string]string{"timeEntryIds": "time entry " + entryID + " is not billable"})
		}
		if entry.InvoiceID != "" {
			return store.Invoice{}, conflictError("Time entry " + entryID + " is already invoiced")
		}
		subtotal += roundCents(entry.Hours * entry.HourlyRate)
		entries = append(entries, entry)
	}
	subtotal = roundCents(subtotal)
	tax := roundCents(subtotal * input.TaxRate)

	invoice := store.Invoice{
		ClientID:     input.ClientID,
		TimeEntryIDs: input.TimeEntryIDs,
		Subtotal:     subtotal,
		Tax:          tax,
		Total:        roundCents(subtotal + tax),
	}
	if input.DueDate != nil {
		invoice.DueDate = *input.DueDate
	}

	created, err := s.store.CreateInvoice(ctx, invoice)
	if err != nil {
		return store.Invoice{}, fmt.Errorf("create invoice: %w", err)
	}
	for _, entry := range entries {
		invoiceID := created.ID
		if _, err := s.store.UpdateTimeEntry(ctx, entry.ID, store.TimeEntryPatch{InvoiceID: &invoiceID}); err != nil {
			return store.Invoice{}, fmt.Errorf("stamp time entry %s: %w", entry.ID, err)
		}
	}
	s.countOp("invoices", "create")
	return created, nil
}

func (s *Service) UpdateInvoice(ctx context.Context, id string, patch store.InvoicePatch) (store.Invoice, error) {
	if patch.Status != nil && !oneOf(validInvoiceStatuses, *patch.Status) {
		return store.Invoice{}, validationError(map[string]string{"status": "unknown status"})
	}
	// Marking an invoice paid stamps the paid date unless one was supplied.
	if patch.Status != nil && *patch.Status == store.InvoicePaid && patch.PaidDate == nil {
		now := time.Now().UTC()
		patch.PaidDate = &now
	}
	invoice, err := s.store.UpdateInvoice(ctx, id, patch)
	if err != nil {
		return store.Invoice{}, err
	}
	s.countOp("invoices", "update")
	return invoice, nil
}

// DeleteInvoice removes the invoice and releases its time entries back to
// the unbilled pool.
func (s *Service) DeleteInvoice(ctx context.Context, id string) error {
	invoice, err := s.store.GetInvoice(ctx, id)
	if err != nil {
		return err
	}
	if invoice.Status == store.InvoicePaid {
		return conflictError("Paid invoices cannot be deleted")
	}
	if err := s.store.DeleteInvoice(ctx, id); err != nil {
		return err
	}
	empty := ""
	for _, entryID := range invoice.TimeEntryIDs {
		if _, err := s.store.UpdateTimeEntry(ctx, entryID, store.TimeEntryPatch{InvoiceID: &empty}); err != nil && !errors.Is(err, store.ErrNotFound) {
			s.log.Error("release time entry failed", "timeEntry", entryID, "error", err)
		}
	}
	s.countOp("invoices", "delete")
	return nil
}
