package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"lexdesk/api/internal/auth"
	"lexdesk/api/internal/authpw"
	"lexdesk/api/internal/metrics"
	"lexdesk/api/internal/rbac"
	"lexdesk/api/internal/search"
	"lexdesk/api/internal/session"
	"lexdesk/api/internal/store"
)

// Session is the resolved caller identity attached to each request.
type Session struct {
	Token        string
	RefreshToken string
	UserID       string
	UserName     string
	UserEmail    string
	Role         string
	ExpiresAt    time.Time
}

// Options wires the service's collaborators. Search and Metrics are
// optional; everything else is required.
type Options struct {
	Store      store.Store
	Sessions   session.Store
	Passwords  *authpw.Service
	Search     *search.Service
	Metrics    *metrics.Collector
	Log        *slog.Logger
	JWTSecret  []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type Service struct {
	store      store.Store
	sessions   session.Store
	passwords  *authpw.Service
	search     *search.Service
	metrics    *metrics.Collector
	log        *slog.Logger
	jwtSecret  []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewService(opts Options) *Service {
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	if opts.AccessTTL <= 0 {
		opts.AccessTTL = 15 * time.Minute
	}
	if opts.RefreshTTL <= 0 {
		opts.RefreshTTL = 30 * 24 * time.Hour
	}
	return &Service{
		store:      opts.Store,
		sessions:   opts.Sessions,
		passwords:  opts.Passwords,
		search:     opts.Search,
		metrics:    opts.Metrics,
		log:        opts.Log,
		jwtSecret:  opts.JWTSecret,
		accessTTL:  opts.AccessTTL,
		refreshTTL: opts.RefreshTTL,
	}
}

// Can reports whether the session's role may perform the action.
func (s *Service) Can(sess Session, action rbac.Action) bool {
	return rbac.Can(rbac.Role(sess.Role), action)
}

// Login verifies credentials and issues an access/refresh token pair.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	user, err := s.passwords.Authenticate(ctx, email, password)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordLogin("denied")
		}
		if errors.Is(err, authpw.ErrInvalidCredentials) {
			return Session{}, domainError(401, "INVALID_CREDENTIALS", "Invalid email or password", nil)
		}
		return Session{}, fmt.Errorf("login: %w", err)
	}
	sess, err := s.issueSession(ctx, user)
	if err != nil {
		return Session{}, err
	}
	if s.metrics != nil {
		s.metrics.RecordLogin("ok")
	}
	s.log.Info("user logged in", "user", user.ID, "role", user.Role)
	return sess, nil
}

func (s *Service) issueSession(ctx context.Context, user store.User) (Session, error) {
	token, err := auth.IssueToken(s.jwtSecret, user.ID, user.Email, user.Role, s.accessTTL)
	if err != nil {
		return Session{}, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := auth.NewRefreshToken()
	if err != nil {
		return Session{}, err
	}
	expiresAt := time.Now().Add(s.refreshTTL)
	if err := s.sessions.SaveRefreshSession(ctx, auth.HashToken(refresh), user.ID, expiresAt); err != nil {
		return Session{}, fmt.Errorf("save refresh session: %w", err)
	}
	return Session{
		Token:        token,
		RefreshToken: refresh,
		UserID:       user.ID,
		UserName:     user.Name,
		UserEmail:    user.Email,
		Role:         user.Role,
		ExpiresAt:    time.Now().Add(s.accessTTL),
	}, nil
}

// Refresh rotates a refresh token: the old session is revoked and a new
// token pair is issued.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	hash := auth.HashToken(refreshToken)
	userID, err := s.sessions.LookupRefreshSession(ctx, hash)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return Session{}, domainError(401, "UNAUTHORIZED", "Refresh token invalid", nil)
		}
		return Session{}, fmt.Errorf("lookup refresh session: %w", err)
	}
	user, err := s.store.GetUser(ctx, userID)
	if err != nil || user.Status != store.UserActive {
		_ = s.sessions.RevokeRefreshSession(ctx, hash)
		return Session{}, domainError(401, "UNAUTHORIZED", "Refresh token invalid", nil)
	}
	if err := s.sessions.RevokeRefreshSession(ctx, hash); err != nil {
		return Session{}, fmt.Errorf("revoke refresh session: %w", err)
	}
	return s.issueSession(ctx, user)
}

// Logout revokes the given refresh token. Unknown tokens are ignored.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.sessions.RevokeRefreshSession(ctx, auth.HashToken(refreshToken))
}

// SessionFromToken validates an access token and resolves the caller.
func (s *Service) SessionFromToken(_ context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken(s.jwtSecret, token)
	if err != nil {
		return Session{}, err
	}
	return Session{
		Token:     token,
		UserID:    claims.Subject,
		UserEmail: claims.Email,
		Role:      string(rbac.Normalize(claims.Role)),
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// ChangePassword lets the caller rotate their own password.
func (s *Service) ChangePassword(ctx context.Context, sess Session, current, next string) error {
	err := s.passwords.ChangePassword(ctx, sess.UserID, current, next)
	switch {
	case errors.Is(err, authpw.ErrInvalidCredentials):
		return domainError(401, "INVALID_CREDENTIALS", "Current password is incorrect", nil)
	case errors.Is(err, authpw.ErrWeakPassword):
		return validationError(map[string]string{"newPassword": "must be at least 8 characters"})
	}
	return err
}

// Ping checks the record store.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Counts reports record totals per collection, used by /api/health.
func (s *Service) Counts(ctx context.Context) (map[string]int, error) {
	return s.store.Counts(ctx)
}

// Bootstrap seeds the initial admin account when the user collection is
// empty, then primes the search index.
func (s *Service) Bootstrap(ctx context.Context, adminName, adminEmail, adminPassword string) error {
	counts, err := s.store.Counts(ctx)
	if err != nil {
		return fmt.Errorf("bootstrap counts: %w", err)
	}
	if counts["users"] == 0 && adminEmail != "" && adminPassword != "" {
		hash, err := authpw.HashPassword(adminPassword)
		if err != nil {
			return fmt.Errorf("bootstrap admin password: %w", err)
		}
		admin, err := s.store.CreateUser(ctx, store.User{
			Name:         adminName,
			Email:        adminEmail,
			Role:         store.RoleAdmin,
			Status:       store.UserActive,
			PasswordHash: hash,
		})
		if err != nil {
			return fmt.Errorf("bootstrap admin: %w", err)
		}
		s.log.Info("seeded bootstrap admin", "user", admin.ID, "email", admin.Email)
	}
	if s.search != nil {
		s.search.ReindexAll(ctx)
	}
	return nil
}

// Search runs a full-text query over clients and cases.
func (s *Service) Search(ctx context.Context, q search.Query) search.Response {
	if s.search == nil {
		return search.Response{Results: []search.Result{}, Query: q.Text}
	}
	return s.search.Search(ctx, q)
}

// Summary is the dashboard report: record totals plus case, task, and
// billing breakdowns.
type Summary struct {
	Counts           map[string]int   `json:"counts"`
	CasesByStatus    map[string]int   `json:"casesByStatus"`
	TasksByStatus    map[string]int   `json:"tasksByStatus"`
	InvoicesByStatus map[string]int   `json:"invoicesByStatus"`
	Billing          BillingSummary   `json:"billing"`
	UpcomingCourt    []store.CourtLog `json:"upcomingCourtDates"`
}

type BillingSummary struct {
	UnbilledHours    float64 `json:"unbilledHours"`
	UnbilledAmount   float64 `json:"unbilledAmount"`
	OutstandingTotal float64 `json:"outstandingTotal"`
}

func (s *Service) Summary(ctx context.Context) (Summary, error) {
	counts, err := s.store.Counts(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("summary counts: %w", err)
	}
	out := Summary{
		Counts:           counts,
		CasesByStatus:    map[string]int{},
		TasksByStatus:    map[string]int{},
		InvoicesByStatus: map[string]int{},
	}

	wide := store.Page{Number: 1, Limit: 200}
	for {
		res, err := s.store.ListCases(ctx, store.CaseFilter{}, wide)
		if err != nil {
			return Summary{}, fmt.Errorf("summary cases: %w", err)
		}
		for _, c := range res.Items {
			out.CasesByStatus[c.Status]++
		}
		if wide.Number >= res.Pagination.Pages {
			break
		}
		wide.Number++
	}

	wide = store.Page{Number: 1, Limit: 200}
	for {
		res, err := s.store.ListTasks(ctx, store.TaskFilter{}, wide)
		if err != nil {
			return Summary{}, fmt.Errorf("summary tasks: %w", err)
		}
		for _, t := range res.Items {
			out.TasksByStatus[t.Status]++
		}
		if wide.Number >= res.Pagination.Pages {
			break
		}
		wide.Number++
	}

	billable := true
	invoiced := false
	wide = store.Page{Number: 1, Limit: 200}
	for {
		res, err := s.store.ListTimeEntries(ctx, store.TimeEntryFilter{Billable: &billable, Invoiced: &invoiced}, wide)
		if err != nil {
			return Summary{}, fmt.Errorf("summary time entries: %w", err)
		}
		for _, e := range res.Items {
			out.Billing.UnbilledHours += e.Hours
			out.Billing.UnbilledAmount += roundCents(e.Hours * e.HourlyRate)
		}
		if wide.Number >= res.Pagination.Pages {
			break
		}
		wide.Number++
	}
	out.Billing.UnbilledAmount = roundCents(out.Billing.UnbilledAmount)

	wide = store.Page{Number: 1, Limit: 200}
	for {
		res, err := s.store.ListInvoices(ctx, store.InvoiceFilter{}, wide)
		if err != nil {
			return Summary{}, fmt.Errorf("summary invoices: %w", err)
		}
		for _, inv := range res.Items {
			out.InvoicesByStatus[inv.Status]++
			if inv.Status == store.InvoiceSent || inv.Status == store.InvoiceOverdue {
				out.Billing.OutstandingTotal += inv.Total
			}
		}
		if wide.Number >= res.Pagination.Pages {
			break
		}
		wide.Number++
	}
	out.Billing.OutstandingTotal = roundCents(out.Billing.OutstandingTotal)

	now := time.Now()
	horizon := now.Add(14 * 24 * time.Hour)
	wide = store.Page{Number: 1, Limit: 200}
	upcoming := []store.CourtLog{}
	for {
		res, err := s.store.ListCourtLogs(ctx, store.CourtLogFilter{Status: store.CourtScheduled}, wide)
		if err != nil {
			return Summary{}, fmt.Errorf("summary court logs: %w", err)
		}
		for _, entry := range res.Items {
			if entry.CourtDate.After(now) && entry.CourtDate.Before(horizon) {
				upcoming = append(upcoming, entry)
			}
		}
		if wide.Number >= res.Pagination.Pages {
			break
		}
		wide.Number++
	}
	out.UpcomingCourt = upcoming

	return out, nil
}

func (s *Service) countOp(entity, op string) {
	if s.metrics != nil {
		s.metrics.RecordOp(entity, op)
	}
}

func roundCents(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
