package store

import (
	"context"
	"fmt"
	"time"
)

// KVStore implements Store over any KV backend. Filtering, ordering, and
// pagination run in-process, which matches the shallow CRUD access pattern
// of the stores this replaces.
type KVStore struct {
	kv  KV
	now func() time.Time
}

var _ Store = (*KVStore)(nil)

func newKVStore(kv KV) *KVStore {
	return &KVStore{
		kv:  kv,
		now: func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

func (s *KVStore) Ping(ctx context.Context) error { return s.kv.Ping(ctx) }
func (s *KVStore) Close() error                   { return s.kv.Close() }

func (s *KVStore) Counts(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int, len(collections))
	for _, collection := range collections {
		raws, err := s.kv.Scan(ctx, collection)
		if err != nil {
			return nil, fmt.Errorf("count %s: %w", collection, err)
		}
		counts[collection] = len(raws)
	}
	return counts, nil
}

// Users

func (s *KVStore) ListUsers(ctx context.Context, filter UserFilter, page Page) (Result[User], error) {
	return kvList(ctx, s.kv, colUsers, filter.match, page)
}

func (s *KVStore) GetUser(ctx context.Context, id string) (User, error) {
	return kvGet[User](ctx, s.kv, colUsers, id)
}

func (s *KVStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	email = normalizeEmail(email)
	users, err := kvScan[User](ctx, s.kv, colUsers)
	if err != nil {
		return User{}, err
	}
	for _, u := range users {
		if u.Email == email {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (s *KVStore) CreateUser(ctx context.Context, user User) (User, error) {
	prepareUser(&user, s.now())
	if _, err := s.GetUserByEmail(ctx, user.Email); err == nil {
		return User{}, fmt.Errorf("email %s: %w", user.Email, ErrConflict)
	}
	if err := kvPut(ctx, s.kv, colUsers, user.ID, user); err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *KVStore) UpdateUser(ctx context.Context, id string, patch UserPatch) (User, error) {
	user, err := kvGet[User](ctx, s.kv, colUsers, id)
	if err != nil {
		return User{}, err
	}
	patch.apply(&user)
	user.UpdatedAt = s.now()
	if err := kvPut(ctx, s.kv, colUsers, id, user); err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *KVStore) DeleteUser(ctx context.Context, id string) error {
	return s.kv.Delete(ctx, colUsers, id)
}

// Clients

func (s *KVStore) ListClients(ctx context.Context, filter ClientFilter, page Page) (Result[Client], error) {
	return kvList(ctx, s.kv, colClients, filter.match, page)
}

func (s *KVStore) GetClient(ctx context.Context, id string) (Client, error) {
	return kvGet[Client](ctx, s.kv, colClients, id)
}

func (s *KVStore) CreateClient(ctx context.Context, client Client) (Client, error) {
	prepareClient(&client, s.now())
	if err := kvPut(ctx, s.kv, colClients, client.ID, client); err != nil {
		return Client{}, err
	}
	return client, nil
}

func (s *KVStore) UpdateClient(ctx context.Context, id string, patch ClientPatch) (Client, error) {
	client, err := kvGet[Client](ctx, s.kv, colClients, id)
	if err != nil {
		return Client{}, err
	}
	patch.apply(&client)
	client.UpdatedAt = s.now()
	if err := kvPut(ctx, s.kv, colClients, id, client); err != nil {
		return Client{}, err
	}
	return client, nil
}

func (s *KVStore) DeleteClient(ctx context.Context, id string) error {
	return s.kv.Delete(ctx, colClients, id)
}

// Cases

func (s *KVStore) ListCases(ctx context.Context, filter CaseFilter, page Page) (Result[Case], error) {
	return kvList(ctx, s.kv, colCases, filter.match, page)
}

func (s *KVStore) GetCase(ctx context.Context, id string) (Case, error) {
	return kvGet[Case](ctx, s.kv, colCases, id)
}

func (s *KVStore) CreateCase(ctx context.Context, kase Case) (Case, error) {
	prepareCase(&kase, s.now())
	if err := kvPut(ctx, s.kv, colCases, kase.ID, kase); err != nil {
		return Case{}, err
	}
	return kase, nil
}

func (s *KVStore) UpdateCase(ctx context.Context, id string, patch CasePatch) (Case, error) {
	kase, err := kvGet[Case](ctx, s.kv, colCases, id)
	if err != nil {
		return Case{}, err
	}
	patch.apply(&kase)
	kase.UpdatedAt = s.now()
	if err := kvPut(ctx, s.kv, colCases, id, kase); err != nil {
		return Case{}, err
	}
	return kase, nil
}

func (s *KVStore) DeleteCase(ctx context.Context, id string) error {
	return s.kv.Delete(ctx, colCases, id)
}

// Tasks

func (s *KVStore) ListTasks(ctx context.Context, filter TaskFilter, page Page) (Result[Task], error) {
	return kvList(ctx, s.kv, colTasks, filter.match, page)
}

func (s *KVStore) GetTask(ctx context.Context, id string) (Task, error) {
	return kvGet[Task](ctx, s.kv, colTasks, id)
}

func (s *KVStore) CreateTask(ctx context.Context, task Task) (Task, error) {
	prepareTask(&task, s.now())
	if err := kvPut(ctx, s.kv, colTasks, task.ID, task); err != nil {
		return Task{}, err
	}
	return task, nil
}

func (s *KVStore) UpdateTask(ctx context.Context, id string, patch TaskPatch) (Task, error) {
	task, err := kvGet[Task](ctx, s.kv, colTasks, id)
	if err != nil {
		return Task{}, err
	}
	patch.apply(&task)
	task.UpdatedAt = s.now()
	if err := kvPut(ctx, s.kv, colTasks, id, task); err != nil {
		return Task{}, err
	}
	return task, nil
}

func (s *KVStore) DeleteTask(ctx context.Context, id string) error {
	return s.kv.Delete(ctx, colTasks, id)
}

// Court logs

func (s *KVStore) ListCourtLogs(ctx context.Context, filter CourtLogFilter, page Page) (Result[CourtLog], error) {
	return kvList(ctx, s.kv, colCourtLogs, filter.match, page)
}

func (s *KVStore) GetCourtLog(ctx context.Context, id string) (CourtLog, error) {
	return kvGet[CourtLog](ctx, s.kv, colCourtLogs, id)
}

func (s *KVStore) CreateCourtLog(ctx context.Context, entry CourtLog) (CourtLog, error) {
	prepareCourtLog(&entry, s.now())
	if err := kvPut(ctx, s.kv, colCourtLogs, entry.ID, entry); err != nil {
		return CourtLog{}, err
	}
	return entry, nil
}

func (s *KVStore) UpdateCourtLog(ctx context.Context, id string, patch CourtLogPatch) (CourtLog, error) {
	entry, err := kvGet[CourtLog](ctx, s.kv, colCourtLogs, id)
	if err != nil {
		return CourtLog{}, err
	}
	patch.apply(&entry)
	entry.UpdatedAt = s.now()
	if err := kvPut(ctx, s.kv, colCourtLogs, id, entry); err != nil {
		return CourtLog{}, err
	}
	return entry, nil
}

func (s *KVStore) DeleteCourtLog(ctx context.Context, id string) error {
	return s.kv.Delete(ctx, colCourtLogs, id)
}

// Messages

func (s *KVStore) ListMessages(ctx context.Context, filter MessageFilter, page Page) (Result[Message], error) {
	return kvList(ctx, s.kv, colMessages, filter.match, page)
}

func (s *KVStore) GetMessage(ctx context.Context, id string) (Message, error) {
	return kvGet[Message](ctx, s.kv, colMessages, id)
}

func (s *KVStore) CreateMessage(ctx context.Context, message Message) (Message, error) {
	prepareMessage(&message, s.now())
	if err := kvPut(ctx, s.kv, colMessages, message.ID, message); err != nil {
		return Message{}, err
	}
	return message, nil
}

func (s *KVStore) MarkMessageRead(ctx context.Context, id, userID string) (Message, error) {
	message, err := kvGet[Message](ctx, s.kv, colMessages, id)
	if err != nil {
		return Message{}, err
	}
	if !containsString(message.ReadBy, userID) {
		message.ReadBy = append(message.ReadBy, userID)
		if err := kvPut(ctx, s.kv, colMessages, id, message); err != nil {
			return Message{}, err
		}
	}
	return message, nil
}

func (s *KVStore) DeleteMessage(ctx context.Context, id string) error {
	return s.kv.Delete(ctx, colMessages, id)
}

// Time entries

func (s *KVStore) ListTimeEntries(ctx context.Context, filter TimeEntryFilter, page Page) (Result[TimeEntry], error) {
	return kvList(ctx, s.kv, colTimeEntries, filter.match, page)
}

func (s *KVStore) GetTimeEntry(ctx context.Context, id string) (TimeEntry, error) {
	return kvGet[TimeEntry](ctx, s.kv, colTimeEntries, id)
}

func (s *KVStore) CreateTimeEntry(ctx context.Context, entry TimeEntry) (TimeEntry, error) {
	prepareTimeEntry(&entry, s.now())
	if err := kvPut(ctx, s.kv, colTimeEntries, entry.ID, entry); err != nil {
		return TimeEntry{}, err
	}
	return entry, nil
}

func (s *KVStore) UpdateTimeEntry(ctx context.Context, id string, patch TimeEntryPatch) (TimeEntry, error) {
	entry, err := kvGet[TimeEntry](ctx, s.kv, colTimeEntries, id)
	if err != nil {
		return TimeEntry{}, err
	}
	patch.apply(&entry)
	entry.UpdatedAt = s.now()
	if err := kvPut(ctx, s.kv, colTimeEntries, id, entry); err != nil {
		return TimeEntry{}, err
	}
	return entry, nil
}

func (s *KVStore) DeleteTimeEntry(ctx context.Context, id string) error {
	return s.kv.Delete(ctx, colTimeEntries, id)
}

// Invoices

func (s *KVStore) ListInvoices(ctx context.Context, filter InvoiceFilter, page Page) (Result[Invoice], error) {
	return kvList(ctx, s.kv, colInvoices, filter.match, page)
}

func (s *KVStore) GetInvoice(ctx context.Context, id string) (Invoice, error) {
	return kvGet[Invoice](ctx, s.kv, colInvoices, id)
}

func (s *KVStore) CreateInvoice(ctx context.Context, invoice Invoice) (Invoice, error) {
	prepareInvoice(&invoice, s.now())
	if err := kvPut(ctx, s.kv, colInvoices, invoice.ID, invoice); err != nil {
		return Invoice{}, err
	}
	return invoice, nil
}

func (s *KVStore) UpdateInvoice(ctx context.Context, id string, patch InvoicePatch) (Invoice, error) {
	invoice, err := kvGet[Invoice](ctx, s.kv, colInvoices, id)
	if err != nil {
		return Invoice{}, err
	}
	patch.apply(&invoice)
	invoice.UpdatedAt = s.now()
	if err := kvPut(ctx, s.kv, colInvoices, id, invoice); err != nil {
		return Invoice{}, err
	}
	return invoice, nil
}

func (s *KVStore) DeleteInvoice(ctx context.Context, id string) error {
	return s.kv.Delete(ctx, colInvoices, id)
}
