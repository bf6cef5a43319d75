// Package store defines the record-store contract shared by every
// persistence backend, plus the backends themselves: an in-memory map, a
// Redis key-value adapter, an S3-compatible document adapter, and a
// PostgreSQL implementation.
package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned for get/update/delete of an unknown id.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a uniqueness constraint is violated,
	// currently only the user email.
	ErrConflict = errors.New("conflict")
)

// Page is the offset/limit request for list operations.
type Page struct {
	Number int
	Limit  int
}

const (
	defaultPageLimit = 20
	maxPageLimit     = 200
)

func (p Page) normalize() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Limit < 1 {
		p.Limit = defaultPageLimit
	}
	if p.Limit > maxPageLimit {
		p.Limit = maxPageLimit
	}
	return p
}

// Pagination describes the page that was returned.
type Pagination struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Pages int `json:"pages"`
}

// Result is one page of records plus its pagination envelope.
type Result[T any] struct {
	Items      []T        `json:"items"`
	Pagination Pagination `json:"pagination"`
}

// Store is the single record-store contract. Every backend orders lists by
// creation time descending (id ascending as tiebreak), returns ErrNotFound
// for absent ids on get/update/delete, and paginates by offset/limit.
type Store interface {
	ListUsers(ctx context.Context, filter UserFilter, page Page) (Result[User], error)
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	CreateUser(ctx context.Context, user User) (User, error)
	UpdateUser(ctx context.Context, id string, patch UserPatch) (User, error)
	DeleteUser(ctx context.Context, id string) error

	ListClients(ctx context.Context, filter ClientFilter, page Page) (Result[Client], error)
	GetClient(ctx context.Context, id string) (Client, error)
	CreateClient(ctx context.Context, client Client) (Client, error)
	UpdateClient(ctx context.Context, id string, patch ClientPatch) (Client, error)
	DeleteClient(ctx context.Context, id string) error

	ListCases(ctx context.Context, filter CaseFilter, page Page) (Result[Case], error)
	GetCase(ctx context.Context, id string) (Case, error)
	CreateCase(ctx context.Context, kase Case) (Case, error)
	UpdateCase(ctx context.Context, id string, patch CasePatch) (Case, error)
	DeleteCase(ctx context.Context, id string) error

	ListTasks(ctx context.Context, filter TaskFilter, page Page) (Result[Task], error)
	GetTask(ctx context.Context, id string) (Task, error)
	CreateTask(ctx context.Context, task Task) (Task, error)
	UpdateTask(ctx context.Context, id string, patch TaskPatch) (Task, error)
	DeleteTask(ctx context.Context, id string) error

	ListCourtLogs(ctx context.Context, filter CourtLogFilter, page Page) (Result[CourtLog], error)
	GetCourtLog(ctx context.Context, id string) (CourtLog, error)
	CreateCourtLog(ctx context.Context, entry CourtLog) (CourtLog, error)
	UpdateCourtLog(ctx context.Context, id string, patch CourtLogPatch) (CourtLog, error)
	DeleteCourtLog(ctx context.Context, id string) error

	ListMessages(ctx context.Context, filter MessageFilter, page Page) (Result[Message], error)
	GetMessage(ctx context.Context, id string) (Message, error)
	CreateMessage(ctx context.Context, message Message) (Message, error)
	MarkMessageRead(ctx context.Context, id, userID string) (Message, error)
	DeleteMessage(ctx context.Context, id string) error

	ListTimeEntries(ctx context.Context, filter TimeEntryFilter, page Page) (Result[TimeEntry], error)
	GetTimeEntry(ctx context.Context, id string) (TimeEntry, error)
	CreateTimeEntry(ctx context.Context, entry TimeEntry) (TimeEntry, error)
	UpdateTimeEntry(ctx context.Context, id string, patch TimeEntryPatch) (TimeEntry, error)
	DeleteTimeEntry(ctx context.Context, id string) error

	ListInvoices(ctx context.Context, filter InvoiceFilter, page Page) (Result[Invoice], error)
	GetInvoice(ctx context.Context, id string) (Invoice, error)
	CreateInvoice(ctx context.Context, invoice Invoice) (Invoice, error)
	UpdateInvoice(ctx context.Context, id string, patch InvoicePatch) (Invoice, error)
	DeleteInvoice(ctx context.Context, id string) error

	// Counts reports the number of records per collection, for /api/health.
	Counts(ctx context.Context) (map[string]int, error)

	Ping(ctx context.Context) error
	Close() error
}

// Filters. Zero values mean "no constraint"; Query fields match
// case-insensitive substrings.

type UserFilter struct {
	Role   string
	Status string
	Query  string
}

func (f UserFilter) match(u User) bool {
	if f.Role != "" && u.Role != f.Role {
		return false
	}
	if f.Status != "" && u.Status != f.Status {
		return false
	}
	if f.Query != "" && !containsFold(u.Name, f.Query) && !containsFold(u.Email, f.Query) {
		return false
	}
	return true
}

type ClientFilter struct {
	Type  string
	Query string
}

func (f ClientFilter) match(c Client) bool {
	if f.Type != "" && c.Type != f.Type {
		return false
	}
	if f.Query != "" &&
		!containsFold(c.DisplayName, f.Query) &&
		!containsFold(c.FirstName+" "+c.LastName, f.Query) &&
		!containsFold(c.CompanyName, f.Query) {
		return false
	}
	return true
}

type CaseFilter struct {
	ClientID       string
	Status         string
	Type           string
	AssignedUserID string
	Query          string
}

func (f CaseFilter) match(c Case) bool {
	if f.ClientID != "" && c.ClientID != f.ClientID {
		return false
	}
	if f.Status != "" && c.Status != f.Status {
		return false
	}
	if f.Type != "" && c.Type != f.Type {
		return false
	}
	if f.AssignedUserID != "" && !containsString(c.AssignedUserIDs, f.AssignedUserID) {
		return false
	}
	if f.Query != "" && !containsFold(c.Title, f.Query) && !containsFold(c.CaseNumber, f.Query) {
		return false
	}
	return true
}

type TaskFilter struct {
	AssigneeID string
	CaseID     string
	Status     string
	Priority   string
}

func (f TaskFilter) match(t Task) bool {
	if f.AssigneeID != "" && t.AssigneeID != f.AssigneeID {
		return false
	}
	if f.CaseID != "" && t.CaseID != f.CaseID {
		return false
	}
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.Priority != "" && t.Priority != f.Priority {
		return false
	}
	return true
}

type CourtLogFilter struct {
	ClientID string
	CaseID   string
	Status   string
}

func (f CourtLogFilter) match(c CourtLog) bool {
	if f.ClientID != "" && c.ClientID != f.ClientID {
		return false
	}
	if f.CaseID != "" && c.CaseID != f.CaseID {
		return false
	}
	if f.Status != "" && c.Status != f.Status {
		return false
	}
	return true
}

type MessageFilter struct {
	SenderID    string
	RecipientID string
	// Unread filters on the RecipientID's read flag; requires RecipientID.
	Unread *bool
}

func (f MessageFilter) match(m Message) bool {
	if f.SenderID != "" && m.SenderID != f.SenderID {
		return false
	}
	if f.RecipientID != "" {
		if !containsString(m.RecipientIDs, f.RecipientID) {
			return false
		}
		if f.Unread != nil {
			read := containsString(m.ReadBy, f.RecipientID)
			if *f.Unread == read {
				return false
			}
		}
	}
	return true
}

type TimeEntryFilter struct {
	CaseID    string
	ClientID  string
	UserID    string
	InvoiceID string
	Billable  *bool
	// Invoiced selects entries that are (true) or are not (false) attached
	// to an invoice.
	Invoiced *bool
}

func (f TimeEntryFilter) match(t TimeEntry) bool {
	if f.CaseID != "" && t.CaseID != f.CaseID {
		return false
	}
	if f.ClientID != "" && t.ClientID != f.ClientID {
		return false
	}
	if f.UserID != "" && t.UserID != f.UserID {
		return false
	}
	if f.InvoiceID != "" && t.InvoiceID != f.InvoiceID {
		return false
	}
	if f.Billable != nil && t.Billable != *f.Billable {
		return false
	}
	if f.Invoiced != nil && (t.InvoiceID != "") != *f.Invoiced {
		return false
	}
	return true
}

type InvoiceFilter struct {
	ClientID string
	Status   string
}

func (f InvoiceFilter) match(i Invoice) bool {
	if f.ClientID != "" && i.ClientID != f.ClientID {
		return false
	}
	if f.Status != "" && i.Status != f.Status {
		return false
	}
	return true
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func containsString(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}

// Creation helpers shared by every backend: generate an id, stamp
// timestamps, fill field defaults.

func newRecordID() string {
	return uuid.NewString()
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func prepareUser(u *User, now time.Time) {
	if u.ID == "" {
		u.ID = newRecordID()
	}
	if u.Role == "" {
		u.Role = RoleStaff
	}
	if u.Status == "" {
		u.Status = UserActive
	}
	u.Email = normalizeEmail(u.Email)
	u.CreatedAt = now
	u.UpdatedAt = now
}

func prepareClient(c *Client, now time.Time) {
	if c.ID == "" {
		c.ID = newRecordID()
	}
	if c.Type == "" {
		c.Type = ClientIndividual
	}
	if c.DisplayName == "" {
		if c.Type == ClientCorporate {
			c.DisplayName = c.CompanyName
		} else {
			c.DisplayName = strings.TrimSpace(strings.Join([]string{c.FirstName, c.MiddleName, c.LastName}, " "))
			c.DisplayName = strings.Join(strings.Fields(c.DisplayName), " ")
		}
	}
	c.CreatedAt = now
	c.UpdatedAt = now
}

func prepareCase(c *Case, now time.Time) {
	if c.ID == "" {
		c.ID = newRecordID()
	}
	if c.Type == "" {
		c.Type = CaseGeneral
	}
	if c.Status == "" {
		c.Status = CaseOpen
	}
	if c.AssignedUserIDs == nil {
		c.AssignedUserIDs = []string{}
	}
	c.CreatedAt = now
	c.UpdatedAt = now
}

func prepareTask(t *Task, now time.Time) {
	if t.ID == "" {
		t.ID = newRecordID()
	}
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	if t.Status == "" {
		t.Status = TaskTodo
	}
	t.CreatedAt = now
	t.UpdatedAt = now
}

func prepareCourtLog(c *CourtLog, now time.Time) {
	if c.ID == "" {
		c.ID = newRecordID()
	}
	if c.Status == "" {
		c.Status = CourtScheduled
	}
	if c.ReminderEnabled && c.ReminderLeadHours <= 0 {
		c.ReminderLeadHours = 24
	}
	c.CreatedAt = now
	c.UpdatedAt = now
}

func prepareMessage(m *Message, now time.Time) {
	if m.ID == "" {
		m.ID = newRecordID()
	}
	if m.RecipientIDs == nil {
		m.RecipientIDs = []string{}
	}
	m.ReadBy = []string{}
	m.CreatedAt = now
}

func prepareTimeEntry(t *TimeEntry, now time.Time) {
	if t.ID == "" {
		t.ID = newRecordID()
	}
	if t.Date.IsZero() {
		t.Date = now
	}
	t.CreatedAt = now
	t.UpdatedAt = now
}

func prepareInvoice(i *Invoice, now time.Time) {
	if i.ID == "" {
		i.ID = newRecordID()
	}
	if i.Status == "" {
		i.Status = InvoiceDraft
	}
	if i.TimeEntryIDs == nil {
		i.TimeEntryIDs = []string{}
	}
	if i.IssueDate.IsZero() {
		i.IssueDate = now
	}
	if i.DueDate.IsZero() {
		i.DueDate = i.IssueDate.Add(30 * 24 * time.Hour)
	}
	i.CreatedAt = now
	i.UpdatedAt = now
}
