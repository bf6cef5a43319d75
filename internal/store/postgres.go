package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgresStore implements Store over PostgreSQL. Columns are snake_case;
// the JSON representation is produced by the shared model structs.
type PostgresStore struct {
	db  *sql.DB
	now func() time.Time
}

var _ Store = (*PostgresStore)(nil)

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{
		db:  db,
		now: func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

func (s *PostgresStore) DB() *sql.DB { return s.db }

func (s *PostgresStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }
func (s *PostgresStore) Close() error                   { return s.db.Close() }

func (s *PostgresStore) Counts(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int, len(collections))
	for _, collection := range collections {
		var n int
		query := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, collection)
		if err := s.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
			return nil, fmt.Errorf("count %s: %w", collection, err)
		}
		counts[collection] = n
	}
	return counts, nil
}

// sqlFilter accumulates WHERE conditions. Expressions use $? for the
// argument position, substituted when the condition is added.
type sqlFilter struct {
	conds []string
	args  []any
}

func (f *sqlFilter) add(expr string, arg any) {
	f.args = append(f.args, arg)
	f.conds = append(f.conds, strings.ReplaceAll(expr, "$?", fmt.Sprintf("$%d", len(f.args))))
}

func (f *sqlFilter) raw(expr string) {
	f.conds = append(f.conds, expr)
}

func (f *sqlFilter) where() string {
	if len(f.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(f.conds, " AND ")
}

func (f *sqlFilter) page(page Page) string {
	page = page.normalize()
	f.args = append(f.args, page.Limit)
	limitPos := len(f.args)
	f.args = append(f.args, (page.Number-1)*page.Limit)
	return fmt.Sprintf(" ORDER BY created_at DESC, id ASC LIMIT $%d OFFSET $%d", limitPos, limitPos+1)
}

func pageMetaFor(total int, page Page) Pagination {
	page = page.normalize()
	pages := (total + page.Limit - 1) / page.Limit
	if pages == 0 {
		pages = 1
	}
	return Pagination{Total: total, Page: page.Number, Limit: page.Limit, Pages: pages}
}

func (s *PostgresStore) countRows(ctx context.Context, table string, f *sqlFilter) (int, error) {
	var total int
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, table) + f.where()
	if err := s.db.QueryRowContext(ctx, query, f.args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return total, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func notFoundOr(err error, wrap string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", wrap, err)
}

// Users

const userColumns = `id, name, email, role, status, password_hash, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.Status, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func (s *PostgresStore) ListUsers(ctx context.Context, filter UserFilter, page Page) (Result[User], error) {
	f := &sqlFilter{}
	if filter.Role != "" {
		f.add(`role = $?`, filter.Role)
	}
	if filter.Status != "" {
		f.add(`status = $?`, filter.Status)
	}
	if filter.Query != "" {
		f.add(`(name ILIKE '%'||$?||'%' OR email ILIKE '%'||$?||'%')`, filter.Query)
	}
	total, err := s.countRows(ctx, "users", f)
	if err != nil {
		return Result[User]{}, err
	}

	query := `SELECT ` + userColumns + ` FROM users` + f.where() + f.page(page)
	rows, err := s.db.QueryContext(ctx, query, f.args...)
	if err != nil {
		return Result[User]{}, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	items := make([]User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return Result[User]{}, fmt.Errorf("scan user: %w", err)
		}
		items = append(items, u)
	}
	if err := rows.Err(); err != nil {
		return Result[User]{}, fmt.Errorf("iterate users: %w", err)
	}
	return Result[User]{Items: items, Pagination: pageMetaFor(total, page)}, nil
}

func (s *PostgresStore) GetUser(ctx context.Context, id string) (User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id))
	if err != nil {
		return User{}, notFoundOr(err, "get user")
	}
	return u, nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email=$1`, normalizeEmail(email)))
	if err != nil {
		return User{}, notFoundOr(err, "get user by email")
	}
	return u, nil
}

func (s *PostgresStore) CreateUser(ctx context.Context, user User) (User, error) {
	prepareUser(&user, s.now())
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, name, email, role, status, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, user.ID, user.Name, user.Email, user.Role, user.Status, user.PasswordHash, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return User{}, fmt.Errorf("email %s: %w", user.Email, ErrConflict)
		}
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

func (s *PostgresStore) UpdateUser(ctx context.Context, id string, patch UserPatch) (User, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return User{}, err
	}
	patch.apply(&user)
	user.UpdatedAt = s.now()
	_, err = s.db.ExecContext(ctx, `
		UPDATE users SET name=$2, email=$3, role=$4, status=$5, password_hash=$6, updated_at=$7
		WHERE id=$1
	`, id, user.Name, user.Email, user.Role, user.Status, user.PasswordHash, user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return User{}, fmt.Errorf("email %s: %w", user.Email, ErrConflict)
		}
		return User{}, fmt.Errorf("update user: %w", err)
	}
	return user, nil
}

func (s *PostgresStore) DeleteUser(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "users", id)
}

func (s *PostgresStore) deleteByID(ctx context.Context, table, id string) error {
	res, err := s.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id=$1`, table), id)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Clients

const clientColumns = `id, type, display_name, first_name, middle_name, last_name, company_name, email, phone, address, notes, created_at, updated_at`

func scanClient(row interface{ Scan(...any) error }) (Client, error) {
	var c Client
	err := row.Scan(&c.ID, &c.Type, &c.DisplayName, &c.FirstName, &c.MiddleName, &c.LastName,
		&c.CompanyName, &c.Email, &c.Phone, &c.Address, &c.Notes, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (s *PostgresStore) ListClients(ctx context.Context, filter ClientFilter, page Page) (Result[Client], error) {
	f := &sqlFilter{}
	if filter.Type != "" {
		f.add(`type = $?`, filter.Type)
	}
	if filter.Query != "" {
		f.add(`(display_name ILIKE '%'||$?||'%' OR company_name ILIKE '%'||$?||'%' OR (first_name||' '||last_name) ILIKE '%'||$?||'%')`, filter.Query)
	}
	total, err := s.countRows(ctx, "clients", f)
	if err != nil {
		return Result[Client]{}, err
	}

	query := `SELECT ` + clientColumns + ` FROM clients` + f.where() + f.page(page)
	rows, err := s.db.QueryContext(ctx, query, f.args...)
	if err != nil {
		return Result[Client]{}, fmt.Errorf("list clients: %w", err)
	}
	defer rows.Close()

	items := make([]Client, 0)
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return Result[Client]{}, fmt.Errorf("scan client: %w", err)
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return Result[Client]{}, fmt.Errorf("iterate clients: %w", err)
	}
	return Result[Client]{Items: items, Pagination: pageMetaFor(total, page)}, nil
}

func (s *PostgresStore) GetClient(ctx context.Context, id string) (Client, error) {
	c, err := scanClient(s.db.QueryRowContext(ctx, `SELECT `+clientColumns+` FROM clients WHERE id=$1`, id))
	if err != nil {
		return Client{}, notFoundOr(err, "get client")
	}
	return c, nil
}

func (s *PostgresStore) CreateClient(ctx context.Context, client Client) (Client, error) {
	prepareClient(&client, s.now())
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO clients (id, type, display_name, first_name, middle_name, last_name, company_name, email, phone, address, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, client.ID, client.Type, client.DisplayName, client.FirstName, client.MiddleName, client.LastName,
		client.CompanyName, client.Email, client.Phone, client.Address, client.Notes, client.CreatedAt, client.UpdatedAt)
	if err != nil {
		return Client{}, fmt.Errorf("insert client: %w", err)
	}
	return client, nil
}

func (s *PostgresStore) UpdateClient(ctx context.Context, id string, patch ClientPatch) (Client, error) {
	client, err := s.GetClient(ctx, id)
	if err != nil {
		return Client{}, err
	}
	patch.apply(&client)
	client.UpdatedAt = s.now()
	_, err = s.db.ExecContext(ctx, `
		UPDATE clients SET type=$2, display_name=$3, first_name=$4, middle_name=$5, last_name=$6,
			company_name=$7, email=$8, phone=$9, address=$10, notes=$11, updated_at=$12
		WHERE id=$1
	`, id, client.Type, client.DisplayName, client.FirstName, client.MiddleName, client.LastName,
		client.CompanyName, client.Email, client.Phone, client.Address, client.Notes, client.UpdatedAt)
	if err != nil {
		return Client{}, fmt.Errorf("update client: %w", err)
	}
	return client, nil
}

func (s *PostgresStore) DeleteClient(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "clients", id)
}

// Cases

const caseColumns = `id, title, case_number, type, status, client_id, created_at, updated_at`

func scanCase(row interface{ Scan(...any) error }) (Case, error) {
	var c Case
	err := row.Scan(&c.ID, &c.Title, &c.CaseNumber, &c.Type, &c.Status, &c.ClientID, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (s *PostgresStore) ListCases(ctx context.Context, filter CaseFilter, page Page) (Result[Case], error) {
	f := &sqlFilter{}
	if filter.ClientID != "" {
		f.add(`client_id = $?`, filter.ClientID)
	}
	if filter.Status != "" {
		f.add(`status = $?`, filter.Status)
	}
	if filter.Type != "" {
		f.add(`type = $?`, filter.Type)
	}
	if filter.AssignedUserID != "" {
		f.add(`EXISTS (SELECT 1 FROM case_assignments ca WHERE ca.case_id = cases.id AND ca.user_id = $?)`, filter.AssignedUserID)
	}
	if filter.Query != "" {
		f.add(`(title ILIKE '%'||$?||'%' OR case_number ILIKE '%'||$?||'%')`, filter.Query)
	}
	total, err := s.countRows(ctx, "cases", f)
	if err != nil {
		return Result[Case]{}, err
	}

	query := `SELECT ` + caseColumns + ` FROM cases` + f.where() + f.page(page)
	rows, err := s.db.QueryContext(ctx, query, f.args...)
	if err != nil {
		return Result[Case]{}, fmt.Errorf("list cases: %w", err)
	}
	defer rows.Close()

	items := make([]Case, 0)
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return Result[Case]{}, fmt.Errorf("scan case: %w", err)
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return Result[Case]{}, fmt.Errorf("iterate cases: %w", err)
	}
	for i := range items {
		assigned, err := s.caseAssignments(ctx, items[i].ID)
		if err != nil {
			return Result[Case]{}, err
		}
		items[i].AssignedUserIDs = assigned
	}
	return Result[Case]{Items: items, Pagination: pageMetaFor(total, page)}, nil
}

func (s *PostgresStore) caseAssignments(ctx context.Context, caseID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT user_id FROM case_assignments WHERE case_id=$1 ORDER BY user_id`, caseID)
	if err != nil {
		return nil, fmt.Errorf("list case assignments: %w", err)
	}
	defer rows.Close()
	userIDs := make([]string, 0)
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("scan case assignment: %w", err)
		}
		userIDs = append(userIDs, userID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate case assignments: %w", err)
	}
	return userIDs, nil
}

func (s *PostgresStore) GetCase(ctx context.Context, id string) (Case, error) {
	c, err := scanCase(s.db.QueryRowContext(ctx, `SELECT `+caseColumns+` FROM cases WHERE id=$1`, id))
	if err != nil {
		return Case{}, notFoundOr(err, "get case")
	}
	c.AssignedUserIDs, err = s.caseAssignments(ctx, id)
	if err != nil {
		return Case{}, err
	}
	return c, nil
}

func (s *PostgresStore) CreateCase(ctx context.Context, kase Case) (Case, error) {
	prepareCase(&kase, s.now())
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Case{}, fmt.Errorf("begin case insert: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO cases (id, title, case_number, type, status, client_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, kase.ID, kase.Title, kase.CaseNumber, kase.Type, kase.Status, kase.ClientID, kase.CreatedAt, kase.UpdatedAt)
	if err != nil {
		return Case{}, fmt.Errorf("insert case: %w", err)
	}
	for _, userID := range kase.AssignedUserIDs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO case_assignments (case_id, user_id) VALUES ($1, $2)
			ON CONFLICT (case_id, user_id) DO NOTHING
		`, kase.ID, userID); err != nil {
			return Case{}, fmt.Errorf("insert case assignment: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return Case{}, fmt.Errorf("commit case insert: %w", err)
	}
	return kase, nil
}

func (s *PostgresStore) UpdateCase(ctx context.Context, id string, patch CasePatch) (Case, error) {
	kase, err := s.GetCase(ctx, id)
	if err != nil {
		return Case{}, err
	}
	patch.apply(&kase)
	kase.UpdatedAt = s.now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Case{}, fmt.Errorf("begin case update: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		UPDATE cases SET title=$2, case_number=$3, type=$4, status=$5, client_id=$6, updated_at=$7
		WHERE id=$1
	`, id, kase.Title, kase.CaseNumber, kase.Type, kase.Status, kase.ClientID, kase.UpdatedAt)
	if err != nil {
		return Case{}, fmt.Errorf("update case: %w", err)
	}
	if patch.AssignedUserIDs != nil {
		if _, err := tx.ExecContext(ctx, `DELETE FROM case_assignments WHERE case_id=$1`, id); err != nil {
			return Case{}, fmt.Errorf("clear case assignments: %w", err)
		}
		for _, userID := range kase.AssignedUserIDs {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO case_assignments (case_id, user_id) VALUES ($1, $2)
				ON CONFLICT (case_id, user_id) DO NOTHING
			`, id, userID); err != nil {
				return Case{}, fmt.Errorf("insert case assignment: %w", err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return Case{}, fmt.Errorf("commit case update: %w", err)
	}
	return kase, nil
}

func (s *PostgresStore) DeleteCase(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "cases", id)
}

// Tasks

const taskColumns = `id, title, assignee_id, case_id, due_date, priority, status, created_at, updated_at`

func scanTask(row interface{ Scan(...any) error }) (Task, error) {
	var t Task
	var due sql.NullTime
	err := row.Scan(&t.ID, &t.Title, &t.AssigneeID, &t.CaseID, &due, &t.Priority, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if due.Valid {
		t.DueDate = &due.Time
	}
	return t, err
}

func (s *PostgresStore) ListTasks(ctx context.Context, filter TaskFilter, page Page) (Result[Task], error) {
	f := &sqlFilter{}
	if filter.AssigneeID != "" {
		f.add(`assignee_id = $?`, filter.AssigneeID)
	}
	if filter.CaseID != "" {
		f.add(`case_id = $?`, filter.CaseID)
	}
	if filter.Status != "" {
		f.add(`status = $?`, filter.Status)
	}
	if filter.Priority != "" {
		f.add(`priority = $?`, filter.Priority)
	}
	total, err := s.countRows(ctx, "tasks", f)
	if err != nil {
		return Result[Task]{}, err
	}

	query := `SELECT ` + taskColumns + ` FROM tasks` + f.where() + f.page(page)
	rows, err := s.db.QueryContext(ctx, query, f.args...)
	if err != nil {
		return Result[Task]{}, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	items := make([]Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return Result[Task]{}, fmt.Errorf("scan task: %w", err)
		}
		items = append(items, t)
	}
	if err := rows.Err(); err != nil {
		return Result[Task]{}, fmt.Errorf("iterate tasks: %w", err)
	}
	return Result[Task]{Items: items, Pagination: pageMetaFor(total, page)}, nil
}

func (s *PostgresStore) GetTask(ctx context.Context, id string) (Task, error) {
	t, err := scanTask(s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id=$1`, id))
	if err != nil {
		return Task{}, notFoundOr(err, "get task")
	}
	return t, nil
}

func (s *PostgresStore) CreateTask(ctx context.Context, task Task) (Task, error) {
	prepareTask(&task, s.now())
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (id, title, assignee_id, case_id, due_date, priority, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, task.ID, task.Title, task.AssigneeID, task.CaseID, nullTime(task.DueDate), task.Priority, task.Status, task.CreatedAt, task.UpdatedAt)
	if err != nil {
		return Task{}, fmt.Errorf("insert task: %w", err)
	}
	return task, nil
}

func (s *PostgresStore) UpdateTask(ctx context.Context, id string, patch TaskPatch) (Task, error) {
	task, err := s.GetTask(ctx, id)
	if err != nil {
		return Task{}, err
	}
	patch.apply(&task)
	task.UpdatedAt = s.now()
	_, err = s.db.ExecContext(ctx, `
		UPDATE tasks SET title=$2, assignee_id=$3, case_id=$4, due_date=$5, priority=$6, status=$7, updated_at=$8
		WHERE id=$1
	`, id, task.Title, task.AssigneeID, task.CaseID, nullTime(task.DueDate), task.Priority, task.Status, task.UpdatedAt)
	if err != nil {
		return Task{}, fmt.Errorf("update task: %w", err)
	}
	return task, nil
}

func (s *PostgresStore) DeleteTask(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "tasks", id)
}

// Court logs

const courtLogColumns = `id, client_id, case_id, court_date, court_name, court_address, status, notes, reminder_enabled, reminder_lead_hours, reminder_sent_at, created_at, updated_at`

func scanCourtLog(row interface{ Scan(...any) error }) (CourtLog, error) {
	var c CourtLog
	var sentAt sql.NullTime
	err := row.Scan(&c.ID, &c.ClientID, &c.CaseID, &c.CourtDate, &c.CourtName, &c.CourtAddress,
		&c.Status, &c.Notes, &c.ReminderEnabled, &c.ReminderLeadHours, &sentAt, &c.CreatedAt, &c.UpdatedAt)
	if sentAt.Valid {
		c.ReminderSentAt = &sentAt.Time
	}
	return c, err
}

func (s *PostgresStore) ListCourtLogs(ctx context.Context, filter CourtLogFilter, page Page) (Result[CourtLog], error) {
	f := &sqlFilter{}
	if filter.ClientID != "" {
		f.add(`client_id = $?`, filter.ClientID)
	}
	if filter.CaseID != "" {
		f.add(`case_id = $?`, filter.CaseID)
	}
	if filter.Status != "" {
		f.add(`status = $?`, filter.Status)
	}
	total, err := s.countRows(ctx, "court_logs", f)
	if err != nil {
		return Result[CourtLog]{}, err
	}

	query := `SELECT ` + courtLogColumns + ` FROM court_logs` + f.where() + f.page(page)
	rows, err := s.db.QueryContext(ctx, query, f.args...)
	if err != nil {
		return Result[CourtLog]{}, fmt.Errorf("list court logs: %w", err)
	}
	defer rows.Close()

	items := make([]CourtLog, 0)
	for rows.Next() {
		c, err := scanCourtLog(rows)
		if err != nil {
			return Result[CourtLog]{}, fmt.Errorf("scan court log: %w", err)
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return Result[CourtLog]{}, fmt.Errorf("iterate court logs: %w", err)
	}
	return Result[CourtLog]{Items: items, Pagination: pageMetaFor(total, page)}, nil
}

func (s *PostgresStore) GetCourtLog(ctx context.Context, id string) (CourtLog, error) {
	c, err := scanCourtLog(s.db.QueryRowContext(ctx, `SELECT `+courtLogColumns+` FROM court_logs WHERE id=$1`, id))
	if err != nil {
		return CourtLog{}, notFoundOr(err, "get court log")
	}
	return c, nil
}

func (s *PostgresStore) CreateCourtLog(ctx context.Context, entry CourtLog) (CourtLog, error) {
	prepareCourtLog(&entry, s.now())
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO court_logs (id, client_id, case_id, court_date, court_name, court_address, status, notes, reminder_enabled, reminder_lead_hours, reminder_sent_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, entry.ID, entry.ClientID, entry.CaseID, entry.CourtDate, entry.CourtName, entry.CourtAddress,
		entry.Status, entry.Notes, entry.ReminderEnabled, entry.ReminderLeadHours, nullTime(entry.ReminderSentAt),
		entry.CreatedAt, entry.UpdatedAt)
	if err != nil {
		return CourtLog{}, fmt.Errorf("insert court log: %w", err)
	}
	return entry, nil
}

func (s *PostgresStore) UpdateCourtLog(ctx context.Context, id string, patch CourtLogPatch) (CourtLog, error) {
	entry, err := s.GetCourtLog(ctx, id)
	if err != nil {
		return CourtLog{}, err
	}
	patch.apply(&entry)
	entry.UpdatedAt = s.now()
	_, err = s.db.ExecContext(ctx, `
		UPDATE court_logs SET client_id=$2, case_id=$3, court_date=$4, court_name=$5, court_address=$6,
			status=$7, notes=$8, reminder_enabled=$9, reminder_lead_hours=$10, reminder_sent_at=$11, updated_at=$12
		WHERE id=$1
	`, id, entry.ClientID, entry.CaseID, entry.CourtDate, entry.CourtName, entry.CourtAddress,
		entry.Status, entry.Notes, entry.ReminderEnabled, entry.ReminderLeadHours, nullTime(entry.ReminderSentAt), entry.UpdatedAt)
	if err != nil {
		return CourtLog{}, fmt.Errorf("update court log: %w", err)
	}
	return entry, nil
}

func (s *PostgresStore) DeleteCourtLog(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "court_logs", id)
}

// Messages

func (s *PostgresStore) ListMessages(ctx context.Context, filter MessageFilter, page Page) (Result[Message], error) {
	f := &sqlFilter{}
	if filter.SenderID != "" {
		f.add(`sender_id = $?`, filter.SenderID)
	}
	if filter.RecipientID != "" {
		f.add(`EXISTS (SELECT 1 FROM message_recipients mr WHERE mr.message_id = messages.id AND mr.user_id = $?)`, filter.RecipientID)
		if filter.Unread != nil {
			readCheck := `IS NOT NULL`
			if *filter.Unread {
				readCheck = `IS NULL`
			}
			f.add(`EXISTS (SELECT 1 FROM message_recipients mr WHERE mr.message_id = messages.id AND mr.user_id = $? AND mr.read_at `+readCheck+`)`, filter.RecipientID)
		}
	}
	total, err := s.countRows(ctx, "messages", f)
	if err != nil {
		return Result[Message]{}, err
	}

	query := `SELECT id, subject, body, sender_id, created_at FROM messages` + f.where() + f.page(page)
	rows, err := s.db.QueryContext(ctx, query, f.args...)
	if err != nil {
		return Result[Message]{}, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	items := make([]Message, 0)
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.Subject, &m.Body, &m.SenderID, &m.CreatedAt); err != nil {
			return Result[Message]{}, fmt.Errorf("scan message: %w", err)
		}
		items = append(items, m)
	}
	if err := rows.Err(); err != nil {
		return Result[Message]{}, fmt.Errorf("iterate messages: %w", err)
	}
	for i := range items {
		if err := s.loadMessageRecipients(ctx, &items[i]); err != nil {
			return Result[Message]{}, err
		}
	}
	return Result[Message]{Items: items, Pagination: pageMetaFor(total, page)}, nil
}

func (s *PostgresStore) loadMessageRecipients(ctx context.Context, m *Message) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, read_at FROM message_recipients WHERE message_id=$1 ORDER BY user_id
	`, m.ID)
	if err != nil {
		return fmt.Errorf("list message recipients: %w", err)
	}
	defer rows.Close()
	m.RecipientIDs = make([]string, 0)
	m.ReadBy = make([]string, 0)
	for rows.Next() {
		var userID string
		var readAt sql.NullTime
		if err := rows.Scan(&userID, &readAt); err != nil {
			return fmt.Errorf("scan message recipient: %w", err)
		}
		m.RecipientIDs = append(m.RecipientIDs, userID)
		if readAt.Valid {
			m.ReadBy = append(m.ReadBy, userID)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate message recipients: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetMessage(ctx context.Context, id string) (Message, error) {
	var m Message
	err := s.db.QueryRowContext(ctx, `
		SELECT id, subject, body, sender_id, created_at FROM messages WHERE id=$1
	`, id).Scan(&m.ID, &m.Subject, &m.Body, &m.SenderID, &m.CreatedAt)
	if err != nil {
		return Message{}, notFoundOr(err, "get message")
	}
	if err := s.loadMessageRecipients(ctx, &m); err != nil {
		return Message{}, err
	}
	return m, nil
}

func (s *PostgresStore) CreateMessage(ctx context.Context, message Message) (Message, error) {
	prepareMessage(&message, s.now())
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Message{}, fmt.Errorf("begin message insert: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO messages (id, subject, body, sender_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, message.ID, message.Subject, message.Body, message.SenderID, message.CreatedAt)
	if err != nil {
		return Message{}, fmt.Errorf("insert message: %w", err)
	}
	for _, userID := range message.RecipientIDs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO message_recipients (message_id, user_id) VALUES ($1, $2)
			ON CONFLICT (message_id, user_id) DO NOTHING
		`, message.ID, userID); err != nil {
			return Message{}, fmt.Errorf("insert message recipient: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return Message{}, fmt.Errorf("commit message insert: %w", err)
	}
	return message, nil
}

func (s *PostgresStore) MarkMessageRead(ctx context.Context, id, userID string) (Message, error) {
	_, err := s.db.ExecContext(ctx, `
		UPDATE message_recipients SET read_at=$3 WHERE message_id=$1 AND user_id=$2 AND read_at IS NULL
	`, id, userID, s.now())
	if err != nil {
		return Message{}, fmt.Errorf("mark message read: %w", err)
	}
	return s.GetMessage(ctx, id)
}

func (s *PostgresStore) DeleteMessage(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "messages", id)
}

// Time entries

const timeEntryColumns = `id, case_id, client_id, user_id, entry_date, hours, hourly_rate, billable, invoice_id, description, created_at, updated_at`

func scanTimeEntry(row interface{ Scan(...any) error }) (TimeEntry, error) {
	var t TimeEntry
	var invoiceID sql.NullString
	err := row.Scan(&t.ID, &t.CaseID, &t.ClientID, &t.UserID, &t.Date, &t.Hours, &t.HourlyRate,
		&t.Billable, &invoiceID, &t.Description, &t.CreatedAt, &t.UpdatedAt)
	t.InvoiceID = invoiceID.String
	return t, err
}

func (s *PostgresStore) ListTimeEntries(ctx context.Context, filter TimeEntryFilter, page Page) (Result[TimeEntry], error) {
	f := &sqlFilter{}
	if filter.CaseID != "" {
		f.add(`case_id = $?`, filter.CaseID)
	}
	if filter.ClientID != "" {
		f.add(`client_id = $?`, filter.ClientID)
	}
	if filter.UserID != "" {
		f.add(`user_id = $?`, filter.UserID)
	}
	if filter.InvoiceID != "" {
		f.add(`invoice_id = $?`, filter.InvoiceID)
	}
	if filter.Billable != nil {
		f.add(`billable = $?`, *filter.Billable)
	}
	if filter.Invoiced != nil {
		if *filter.Invoiced {
			f.raw(`invoice_id IS NOT NULL`)
		} else {
			f.raw(`invoice_id IS NULL`)
		}
	}
	total, err := s.countRows(ctx, "time_entries", f)
	if err != nil {
		return Result[TimeEntry]{}, err
	}

	query := `SELECT ` + timeEntryColumns + ` FROM time_entries` + f.where() + f.page(page)
	rows, err := s.db.QueryContext(ctx, query, f.args...)
	if err != nil {
		return Result[TimeEntry]{}, fmt.Errorf("list time entries: %w", err)
	}
	defer rows.Close()

	items := make([]TimeEntry, 0)
	for rows.Next() {
		t, err := scanTimeEntry(rows)
		if err != nil {
			return Result[TimeEntry]{}, fmt.Errorf("scan time entry: %w", err)
		}
		items = append(items, t)
	}
	if err := rows.Err(); err != nil {
		return Result[TimeEntry]{}, fmt.Errorf("iterate time entries: %w", err)
	}
	return Result[TimeEntry]{Items: items, Pagination: pageMetaFor(total, page)}, nil
}

func (s *PostgresStore) GetTimeEntry(ctx context.Context, id string) (TimeEntry, error) {
	t, err := scanTimeEntry(s.db.QueryRowContext(ctx, `SELECT `+timeEntryColumns+` FROM time_entries WHERE id=$1`, id))
	if err != nil {
		return TimeEntry{}, notFoundOr(err, "get time entry")
	}
	return t, nil
}

func (s *PostgresStore) CreateTimeEntry(ctx context.Context, entry TimeEntry) (TimeEntry, error) {
	prepareTimeEntry(&entry, s.now())
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO time_entries (id, case_id, client_id, user_id, entry_date, hours, hourly_rate, billable, invoice_id, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, entry.ID, entry.CaseID, entry.ClientID, entry.UserID, entry.Date, entry.Hours, entry.HourlyRate,
		entry.Billable, nullString(entry.InvoiceID), entry.Description, entry.CreatedAt, entry.UpdatedAt)
	if err != nil {
		return TimeEntry{}, fmt.Errorf("insert time entry: %w", err)
	}
	return entry, nil
}

func (s *PostgresStore) UpdateTimeEntry(ctx context.Context, id string, patch TimeEntryPatch) (TimeEntry, error) {
	entry, err := s.GetTimeEntry(ctx, id)
	if err != nil {
		return TimeEntry{}, err
	}
	patch.apply(&entry)
	entry.UpdatedAt = s.now()
	_, err = s.db.ExecContext(ctx, `
		UPDATE time_entries SET case_id=$2, client_id=$3, user_id=$4, entry_date=$5, hours=$6,
			hourly_rate=$7, billable=$8, invoice_id=$9, description=$10, updated_at=$11
		WHERE id=$1
	`, id, entry.CaseID, entry.ClientID, entry.UserID, entry.Date, entry.Hours,
		entry.HourlyRate, entry.Billable, nullString(entry.InvoiceID), entry.Description, entry.UpdatedAt)
	if err != nil {
		return TimeEntry{}, fmt.Errorf("update time entry: %w", err)
	}
	return entry, nil
}

func (s *PostgresStore) DeleteTimeEntry(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "time_entries", id)
}

// Invoices

const invoiceColumns = `id, client_id, time_entry_ids, subtotal, tax, total, status, issue_date, due_date, paid_date, created_at, updated_at`

func scanInvoice(row interface{ Scan(...any) error }) (Invoice, error) {
	var i Invoice
	var entryIDs []byte
	var paidDate sql.NullTime
	err := row.Scan(&i.ID, &i.ClientID, &entryIDs, &i.Subtotal, &i.Tax, &i.Total, &i.Status,
		&i.IssueDate, &i.DueDate, &paidDate, &i.CreatedAt, &i.UpdatedAt)
	if err != nil {
		return i, err
	}
	if paidDate.Valid {
		i.PaidDate = &paidDate.Time
	}
	if err := json.Unmarshal(entryIDs, &i.TimeEntryIDs); err != nil {
		return i, fmt.Errorf("unmarshal invoice entry ids: %w", err)
	}
	return i, nil
}

func (s *PostgresStore) ListInvoices(ctx context.Context, filter InvoiceFilter, page Page) (Result[Invoice], error) {
	f := &sqlFilter{}
	if filter.ClientID != "" {
		f.add(`client_id = $?`, filter.ClientID)
	}
	if filter.Status != "" {
		f.add(`status = $?`, filter.Status)
	}
	total, err := s.countRows(ctx, "invoices", f)
	if err != nil {
		return Result[Invoice]{}, err
	}

	query := `SELECT ` + invoiceColumns + ` FROM invoices` + f.where() + f.page(page)
	rows, err := s.db.QueryContext(ctx, query, f.args...)
	if err != nil {
		return Result[Invoice]{}, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()

	items := make([]Invoice, 0)
	for rows.Next() {
		i, err := scanInvoice(rows)
		if err != nil {
			return Result[Invoice]{}, fmt.Errorf("scan invoice: %w", err)
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return Result[Invoice]{}, fmt.Errorf("iterate invoices: %w", err)
	}
	return Result[Invoice]{Items: items, Pagination: pageMetaFor(total, page)}, nil
}

func (s *PostgresStore) GetInvoice(ctx context.Context, id string) (Invoice, error) {
	i, err := scanInvoice(s.db.QueryRowContext(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Invoice{}, ErrNotFound
		}
		return Invoice{}, fmt.Errorf("get invoice: %w", err)
	}
	return i, nil
}

func (s *PostgresStore) CreateInvoice(ctx context.Context, invoice Invoice) (Invoice, error) {
	prepareInvoice(&invoice, s.now())
	entryIDs, err := json.Marshal(invoice.TimeEntryIDs)
	if err != nil {
		return Invoice{}, fmt.Errorf("marshal invoice entry ids: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO invoices (id, client_id, time_entry_ids, subtotal, tax, total, status, issue_date, due_date, paid_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, invoice.ID, invoice.ClientID, entryIDs, invoice.Subtotal, invoice.Tax, invoice.Total, invoice.Status,
		invoice.IssueDate, invoice.DueDate, nullTime(invoice.PaidDate), invoice.CreatedAt, invoice.UpdatedAt)
	if err != nil {
		return Invoice{}, fmt.Errorf("insert invoice: %w", err)
	}
	return invoice, nil
}

func (s *PostgresStore) UpdateInvoice(ctx context.Context, id string, patch InvoicePatch) (Invoice, error) {
	invoice, err := s.GetInvoice(ctx, id)
	if err != nil {
		return Invoice{}, err
	}
	patch.apply(&invoice)
	invoice.UpdatedAt = s.now()
	_, err = s.db.ExecContext(ctx, `
		UPDATE invoices SET status=$2, due_date=$3, paid_date=$4, updated_at=$5
		WHERE id=$1
	`, id, invoice.Status, invoice.DueDate, nullTime(invoice.PaidDate), invoice.UpdatedAt)
	if err != nil {
		return Invoice{}, fmt.Errorf("update invoice: %w", err)
	}
	return invoice, nil
}

func (s *PostgresStore) DeleteInvoice(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "invoices", id)
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
