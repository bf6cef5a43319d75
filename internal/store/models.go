package store

import "time"

// User roles.
const (
	RoleAdmin     = "Admin"
	RoleLawyer    = "Lawyer"
	RoleParalegal = "Paralegal"
	RoleStaff     = "Staff"
)

// User statuses.
const (
	UserActive   = "active"
	UserInactive = "inactive"
)

// Client types.
const (
	ClientIndividual = "Individual"
	ClientCorporate  = "Corporate"
)

// Case types and statuses.
const (
	CaseGeneral = "General"
	CaseAsylum  = "Asylum"

	CaseOpen    = "Open"
	CasePending = "Pending"
	CaseClosed  = "Closed"
	CaseOnHold  = "On Hold"
)

// Task priorities and statuses.
const (
	PriorityLow    = "Low"
	PriorityMedium = "Medium"
	PriorityHigh   = "High"
	PriorityUrgent = "Urgent"

	TaskTodo       = "Todo"
	TaskInProgress = "In Progress"
	TaskCompleted  = "Completed"
)

// Court log statuses.
const (
	CourtScheduled = "Scheduled"
	CourtCompleted = "Completed"
	CourtPostponed = "Postponed"
	CourtCancelled = "Cancelled"
)

// Invoice statuses.
const (
	InvoiceDraft   = "Draft"
	InvoiceSent    = "Sent"
	InvoicePaid    = "Paid"
	InvoiceOverdue = "Overdue"
)

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	Status       string    `json:"status"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type Client struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	DisplayName string    `json:"displayName"`
	FirstName   string    `json:"firstName,omitempty"`
	MiddleName  string    `json:"middleName,omitempty"`
	LastName    string    `json:"lastName,omitempty"`
	CompanyName string    `json:"companyName,omitempty"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone"`
	Address     string    `json:"address"`
	Notes       string    `json:"notes"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type Case struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	CaseNumber      string    `json:"caseNumber"`
	Type            string    `json:"type"`
	Status          string    `json:"status"`
	ClientID        string    `json:"clientId"`
	AssignedUserIDs []string  `json:"assignedUserIds"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

type Task struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	AssigneeID string     `json:"assigneeId"`
	CaseID     string     `json:"caseId,omitempty"`
	DueDate    *time.Time `json:"dueDate,omitempty"`
	Priority   string     `json:"priority"`
	Status     string     `json:"status"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

type CourtLog struct {
	ID                string     `json:"id"`
	ClientID          string     `json:"clientId"`
	CaseID            string     `json:"caseId,omitempty"`
	CourtDate         time.Time  `json:"courtDate"`
	CourtName         string     `json:"courtName"`
	CourtAddress      string     `json:"courtAddress"`
	Status            string     `json:"status"`
	Notes             string     `json:"notes"`
	ReminderEnabled   bool       `json:"reminderEnabled"`
	ReminderLeadHours int        `json:"reminderLeadHours"`
	ReminderSentAt    *time.Time `json:"reminderSentAt,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

type Message struct {
	ID           string    `json:"id"`
	Subject      string    `json:"subject"`
	Body         string    `json:"body"`
	SenderID     string    `json:"senderId"`
	RecipientIDs []string  `json:"recipientIds"`
	ReadBy       []string  `json:"readBy"`
	CreatedAt    time.Time `json:"createdAt"`
}

type TimeEntry struct {
	ID          string    `json:"id"`
	CaseID      string    `json:"caseId"`
	ClientID    string    `json:"clientId"`
	UserID      string    `json:"userId"`
	Date        time.Time `json:"date"`
	Hours       float64   `json:"hours"`
	HourlyRate  float64   `json:"hourlyRate"`
	Billable    bool      `json:"billable"`
	InvoiceID   string    `json:"invoiceId,omitempty"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type Invoice struct {
	ID           string     `json:"id"`
	ClientID     string     `json:"clientId"`
	TimeEntryIDs []string   `json:"timeEntryIds"`
	Subtotal     float64    `json:"subtotal"`
	Tax          float64    `json:"tax"`
	Total        float64    `json:"total"`
	Status       string     `json:"status"`
	IssueDate    time.Time  `json:"issueDate"`
	DueDate      time.Time  `json:"dueDate"`
	PaidDate     *time.Time `json:"paidDate,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// record is what the shared document layer needs from every entity to order
// results deterministically: newest first, id as tiebreak.
type record interface {
	recordID() string
	recordCreatedAt() time.Time
}

func (u User) recordID() string               { return u.ID }
func (u User) recordCreatedAt() time.Time     { return u.CreatedAt }
func (c Client) recordID() string             { return c.ID }
func (c Client) recordCreatedAt() time.Time   { return c.CreatedAt }
func (c Case) recordID() string               { return c.ID }
func (c Case) recordCreatedAt() time.Time     { return c.CreatedAt }
func (t Task) recordID() string               { return t.ID }
func (t Task) recordCreatedAt() time.Time     { return t.CreatedAt }
func (c CourtLog) recordID() string           { return c.ID }
func (c CourtLog) recordCreatedAt() time.Time { return c.CreatedAt }
func (m Message) recordID() string            { return m.ID }
func (m Message) recordCreatedAt() time.Time  { return m.CreatedAt }
func (t TimeEntry) recordID() string          { return t.ID }
func (t TimeEntry) recordCreatedAt() time.Time {
	return t.CreatedAt
}
func (i Invoice) recordID() string           { return i.ID }
func (i Invoice) recordCreatedAt() time.Time { return i.CreatedAt }

// Patch types carry partial updates. Nil fields are left untouched.

type UserPatch struct {
	Name         *string `json:"name"`
	Email        *string `json:"email"`
	Role         *string `json:"role"`
	Status       *string `json:"status"`
	PasswordHash *string `json:"-"`
}

func (p UserPatch) apply(u *User) {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
	if p.Status != nil {
		u.Status = *p.Status
	}
	if p.PasswordHash != nil {
		u.PasswordHash = *p.PasswordHash
	}
}

type ClientPatch struct {
	Type        *string `json:"type"`
	DisplayName *string `json:"displayName"`
	FirstName   *string `json:"firstName"`
	MiddleName  *string `json:"middleName"`
	LastName    *string `json:"lastName"`
	CompanyName *string `json:"companyName"`
	Email       *string `json:"email"`
	Phone       *string `json:"phone"`
	Address     *string `json:"address"`
	Notes       *string `json:"notes"`
}

func (p ClientPatch) apply(c *Client) {
	if p.Type != nil {
		c.Type = *p.Type
	}
	if p.DisplayName != nil {
		c.DisplayName = *p.DisplayName
	}
	if p.FirstName != nil {
		c.FirstName = *p.FirstName
	}
	if p.MiddleName != nil {
		c.MiddleName = *p.MiddleName
	}
	if p.LastName != nil {
		c.LastName = *p.LastName
	}
	if p.CompanyName != nil {
		c.CompanyName = *p.CompanyName
	}
	if p.Email != nil {
		c.Email = *p.Email
	}
	if p.Phone != nil {
		c.Phone = *p.Phone
	}
	if p.Address != nil {
		c.Address = *p.Address
	}
	if p.Notes != nil {
		c.Notes = *p.Notes
	}
}

type CasePatch struct {
	Title           *string   `json:"title"`
	CaseNumber      *string   `json:"caseNumber"`
	Type            *string   `json:"type"`
	Status          *string   `json:"status"`
	ClientID        *string   `json:"clientId"`
	AssignedUserIDs *[]string `json:"assignedUserIds"`
}

func (p CasePatch) apply(c *Case) {
	if p.Title != nil {
		c.Title = *p.Title
	}
	if p.CaseNumber != nil {
		c.CaseNumber = *p.CaseNumber
	}
	if p.Type != nil {
		c.Type = *p.Type
	}
	if p.Status != nil {
		c.Status = *p.Status
	}
	if p.ClientID != nil {
		c.ClientID = *p.ClientID
	}
	if p.AssignedUserIDs != nil {
		c.AssignedUserIDs = append([]string(nil), (*p.AssignedUserIDs)...)
	}
}

type TaskPatch struct {
	Title      *string    `json:"title"`
	AssigneeID *string    `json:"assigneeId"`
	CaseID     *string    `json:"caseId"`
	DueDate    *time.Time `json:"dueDate"`
	Priority   *string    `json:"priority"`
	Status     *string    `json:"status"`
}

func (p TaskPatch) apply(t *Task) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.AssigneeID != nil {
		t.AssigneeID = *p.AssigneeID
	}
	if p.CaseID != nil {
		t.CaseID = *p.CaseID
	}
	if p.DueDate != nil {
		due := *p.DueDate
		t.DueDate = &due
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
}

type CourtLogPatch struct {
	ClientID          *string    `json:"clientId"`
	CaseID            *string    `json:"caseId"`
	CourtDate         *time.Time `json:"courtDate"`
	CourtName         *string    `json:"courtName"`
	CourtAddress      *string    `json:"courtAddress"`
	Status            *string    `json:"status"`
	Notes             *string    `json:"notes"`
	ReminderEnabled   *bool      `json:"reminderEnabled"`
	ReminderLeadHours *int       `json:"reminderLeadHours"`
	ReminderSentAt    *time.Time `json:"-"`
}

func (p CourtLogPatch) apply(c *CourtLog) {
	if p.ClientID != nil {
		c.ClientID = *p.ClientID
	}
	if p.CaseID != nil {
		c.CaseID = *p.CaseID
	}
	if p.CourtDate != nil {
		c.CourtDate = *p.CourtDate
	}
	if p.CourtName != nil {
		c.CourtName = *p.CourtName
	}
	if p.CourtAddress != nil {
		c.CourtAddress = *p.CourtAddress
	}
	if p.Status != nil {
		c.Status = *p.Status
	}
	if p.Notes != nil {
		c.Notes = *p.Notes
	}
	if p.ReminderEnabled != nil {
		c.ReminderEnabled = *p.ReminderEnabled
	}
	if p.ReminderLeadHours != nil {
		c.ReminderLeadHours = *p.ReminderLeadHours
	}
	if p.ReminderSentAt != nil {
		if p.ReminderSentAt.IsZero() {
			// Zero time clears the stamp, re-arming the reminder.
			c.ReminderSentAt = nil
		} else {
			sent := *p.ReminderSentAt
			c.ReminderSentAt = &sent
		}
	}
}

type TimeEntryPatch struct {
	CaseID      *string    `json:"caseId"`
	ClientID    *string    `json:"clientId"`
	UserID      *string    `json:"userId"`
	Date        *time.Time `json:"date"`
	Hours       *float64   `json:"hours"`
	HourlyRate  *float64   `json:"hourlyRate"`
	Billable    *bool      `json:"billable"`
	InvoiceID   *string    `json:"-"`
	Description *string    `json:"description"`
}

func (p TimeEntryPatch) apply(t *TimeEntry) {
	if p.CaseID != nil {
		t.CaseID = *p.CaseID
	}
	if p.ClientID != nil {
		t.ClientID = *p.ClientID
	}
	if p.UserID != nil {
		t.UserID = *p.UserID
	}
	if p.Date != nil {
		t.Date = *p.Date
	}
	if p.Hours != nil {
		t.Hours = *p.Hours
	}
	if p.HourlyRate != nil {
		t.HourlyRate = *p.HourlyRate
	}
	if p.Billable != nil {
		t.Billable = *p.Billable
	}
	if p.InvoiceID != nil {
		t.InvoiceID = *p.InvoiceID
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
}

type InvoicePatch struct {
	Status   *string    `json:"status"`
	DueDate  *time.Time `json:"dueDate"`
	PaidDate *time.Time `json:"paidDate"`
}

func (p InvoicePatch) apply(i *Invoice) {
	if p.Status != nil {
		i.Status = *p.Status
	}
	if p.DueDate != nil {
		i.DueDate = *p.DueDate
	}
	if p.PaidDate != nil {
		paid := *p.PaidDate
		i.PaidDate = &paid
	}
}
