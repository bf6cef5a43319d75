package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"lexdesk/api/internal/rbac"
	"lexdesk/api/internal/store"
)

// registerRecordRoutes mounts the CRUD routes for every record collection.
// Reads require the read action, writes the write action; billing records
// and user management have their own actions. Messages are open to any
// authenticated user, with sender/admin checks in the service.
func (s *HTTPServer) registerRecordRoutes(r chi.Router) {
	r.Route("/api/users", func(r chi.Router) {
		r.Get("/", s.handleListUsers)
		r.Get("/{id}", s.handleGetUser)
		r.Post("/", s.handleCreateUser)
		r.Put("/{id}", s.handleUpdateUser)
		r.Delete("/{id}", s.handleDeleteUser)
	})

	r.Route("/api/clients", func(r chi.Router) {
		r.Get("/", s.handleListClients)
		r.Get("/{id}", s.handleGetClient)
		r.Post("/", s.handleCreateClient)
		r.Put("/{id}", s.handleUpdateClient)
		r.Delete("/{id}", s.handleDeleteClient)
	})

	r.Route("/api/cases", func(r chi.Router) {
		r.Get("/", s.handleListCases)
		r.Get("/{id}", s.handleGetCase)
		r.Post("/", s.handleCreateCase)
		r.Put("/{id}", s.handleUpdateCase)
		r.Delete("/{id}", s.handleDeleteCase)
	})

	r.Route("/api/tasks", func(r chi.Router) {
		r.Get("/", s.handleListTasks)
		r.Get("/{id}", s.handleGetTask)
		r.Post("/", s.handleCreateTask)
		r.Put("/{id}", s.handleUpdateTask)
		r.Delete("/{id}", s.handleDeleteTask)
	})

	r.Route("/api/court-logs", func(r chi.Router) {
		r.Get("/", s.handleListCourtLogs)
		r.Get("/{id}", s.handleGetCourtLog)
		r.Post("/", s.handleCreateCourtLog)
		r.Put("/{id}", s.handleUpdateCourtLog)
		r.Delete("/{id}", s.handleDeleteCourtLog)
	})

	r.Route("/api/messages", func(r chi.Router) {
		r.Get("/", s.handleListMessages)
		r.Get("/{id}", s.handleGetMessage)
		r.Post("/", s.handleSendMessage)
		r.Post("/{id}/read", s.handleMarkMessageRead)
		r.Delete("/{id}", s.handleDeleteMessage)
	})

	r.Route("/api/time-entries", func(r chi.Router) {
		r.Get("/", s.handleListTimeEntries)
		r.Get("/{id}", s.handleGetTimeEntry)
		r.Post("/", s.handleCreateTimeEntry)
		r.Put("/{id}", s.handleUpdateTimeEntry)
		r.Delete("/{id}", s.handleDeleteTimeEntry)
	})

	r.Route("/api/invoices", func(r chi.Router) {
		r.Get("/", s.handleListInvoices)
		r.Get("/{id}", s.handleGetInvoice)
		r.Post("/", s.handleCreateInvoice)
		r.Put("/{id}", s.handleUpdateInvoice)
		r.Delete("/{id}", s.handleDeleteInvoice)
	})
}

// Users

func (s *HTTPServer) handleListUsers(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, rbac.ActionRead) {
		return
	}
	filter := store.UserFilter{
		Role:   r.URL.Query().Get("role"),
		Status: r.URL.Query().Get("status"),
		Query:  r.URL.Query().Get("q"),
	}
	res, err := s.service.ListUsers(r.Context(), filter, pageFrom(r))
	if err != nil {
		s.writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *HTTPServer) handleGetUser(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, rbac.ActionRead) {
		return
	}
	user, err := s.service.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *HTTPServer) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, rbac.ActionManageUsers) {
		return
	}
	var body CreateUserInput
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	user, err := s.service.CreateUser(r.Context(), body)
	if err != nil {
		s.writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (s *HTTPServer) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, rbac.ActionManageUsers) {
		return
	}
	var body struct {
		store.UserPatch
		Password *string `json:"password"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	user, err := s.service.UpdateUser(r.Context(), chi.URLParam(r, "id"), body.UserPatch, body.Password)
	if err != nil {
		s.writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *HTTPServer) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, rbac.ActionManageUsers) {
		return
	}
	if err := s.service.DeleteUser(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// Clients

func (s *HTTPServer) handleListClients(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, rbac.ActionRead) {
		return
	}
	filter := store.ClientFilter{
		Type:  r.URL.Query().Get("type"),
		Query: r.URL.Query().Get("q"),
	}
	res, err := s.service.ListClients(r.Context(), filter, pageFrom(r))
	if err != nil {
		s.writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *HTTPServer) handleGetClient(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, rbac.ActionRead) {
		return
	}
	client, err := s.service.GetClient(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, client)
}

func (s *HTTPServer) handleCreateClient(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, rbac.ActionWrite) {
		return
	}
	var body store.Client
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	client, err := s.service.CreateClient(r.Context(), body)
	if err != nil {
		s.writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, client)
}

func (s *HTTPServer) handleUpdateClient(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, rbac.ActionWrite) {
		return
	}
	var patch store.ClientPatch
	if err := decodeBody(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	client, err := s.service.UpdateClient(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		s.writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, client)
}

func (s *HTTPServer) handleDeleteClient(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, rbac.ActionWrite) {
		return
	}
	if err := s.service.DeleteClient(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// Cases

func (s *HTTPServer) handleListCases(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, rbac.ActionRead) {
		return
	}
	filter := store.CaseFilter{
		ClientID:       r.URL.Query().Get("clientId"),
		Status:         r.URL.Query().Get("status"),
		Type:           r.URL.Query().Get("type"),
		AssignedUserID: r.URL.Query().Get("assignedUserId"),
		Query:          r.URL.Query().Get("q"),
	}
	res, err := s.service.ListCases(r.Context(), filter, pageFrom(r))
	if err != nil {
		s.writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *HTTPServer) handleGetCase(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, rbac.ActionRead) {
		return
	}
	kase, err := s.service.GetCase(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, kase)
}

func (s *HTTPServer) handleCreateCase(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, rbac.ActionWrite) {
		return
	}
	var body store.Case
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	kase, err := s.service.CreateCase(r.Context(), body)
	if err != nil {
		s.writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, kase)
}

func (s *HTTPServer) handleUpdateCase(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, rbac.ActionWrite) {
		return
	}
	var patch store.CasePatch
	if err := decodeBody(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	kase, err := s.service.UpdateCase(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		s.writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, kase)
}

func (s *HTTPServer) handleDeleteCase(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, rbac.ActionWrite) {
		return
	}
	if err := s.service.DeleteCase(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// Tasks

func (s *HTTPServer) handleListTasks(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, rbac.ActionRead) {
		return
	}
	filter := store.TaskFilter{
		AssigneeID: r.URL.Query().Get("assigneeId"),
		CaseID:     r.URL.Query().Get("caseId"),
		Status:     r.URL.Query().Get("status"),
		Priority:   r.URL.Query().Get("priority"),
	}
	res, err := s.service.ListTasks(r.Context(), filter, pageFrom(r))
	if err != nil {
		s.writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *HTTPServer) handleGetTask(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, rbac.ActionRead) {
		return
	}
	task, err := s.service.GetTask(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *HTTPServer) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, rbac.ActionWrite) {
		return
	}
	var body store.Task
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	task, err := s.service.CreateTask(r.Context(), body)
	if err != nil {
		s.writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (s *HTTPServer) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, rbac.ActionWrite) {
		return
	}
	var patch store.TaskPatch
	if err := decodeBody(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	task, err := s.service.UpdateTask(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		s.writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *HTTPServer) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, rbac.ActionWrite) {
		return
	}
	if err := s.service.DeleteTask(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// Court logs

func (s *HTTPServer) handleListCourtLogs(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, rbac.ActionRead) {
		return
	}
	filter := store.CourtLogFilter{
		ClientID: r.URL.Query().Get("clientId"),
		CaseID:   r.URL.Query().Get("caseId"),
		Status:   r.URL.Query().Get("status"),
	}
	res, err := s.service.ListCourtLogs(r.Context(), filter, pageFrom(r))
	if err != nil {
		s.writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *HTTPServer) handleGetCourtLog(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, rbac.ActionRead) {
		return
	}
	entry, err := s.service.GetCourtLog(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *HTTPServer) handleCreateCourtLog(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, rbac.ActionWrite) {
		return
	}
	var body store.CourtLog
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	entry, err := s.service.CreateCourtLog(r.Context(), body)
	if err != nil {
		s.writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (s *HTTPServer) handleUpdateCourtLog(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, rbac.ActionWrite) {
		return
	}
	var patch store.CourtLogPatch
	if err := decodeBody(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	entry, err := s.service.UpdateCourtLog(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		s.writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *HTTPServer) handleDeleteCourtLog(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, rbac.ActionWrite) {
		return
	}
	if err := s.service.DeleteCourtLog(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// Messages

func (s *HTTPServer) handleListMessages(w http.ResponseWriter, r *http.Request) {
	filter := store.MessageFilter{
		SenderID:    r.URL.Query().Get("senderId"),
		RecipientID: r.URL.Query().Get("recipientId"),
		Unread:      queryBool(r, "unread"),
	}
	res, err := s.service.ListMessages(r.Context(), filter, pageFrom(r))
	if err != nil {
		s.writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *HTTPServer) handleGetMessage(w http.ResponseWriter, r *http.Request) {
	message, err := s.service.GetMessage(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, message)
}

func (s *HTTPServer) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var body store.Message
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	message, err := s.service.SendMessage(r.Context(), sessionFrom(r.Context()), body)
	if err != nil {
		s.writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, message)
}

func (s *HTTPServer) handleMarkMessageRead(w http.ResponseWriter, r *http.Request) {
	message, err := s.service.MarkMessageRead(r.Context(), sessionFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		s.writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, message)
}

func (s *HTTPServer) handleDeleteMessage(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteMessage(r.Context(), sessionFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
		s.writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// Time entries

func (s *HTTPServer) handleListTimeEntries(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, rbac.ActionBilling) {
		return
	}
	filter := store.TimeEntryFilter{
		CaseID:    r.URL.Query().Get("caseId"),
		ClientID:  r.URL.Query().Get("clientId"),
		UserID:    r.URL.Query().Get("userId"),
		InvoiceID: r.URL.Query().Get("invoiceId"),
		Billable:  queryBool(r, "billable"),
		Invoiced:  queryBool(r, "invoiced"),
	}
	res, err := s.service.ListTimeEntries(r.Context(), filter, pageFrom(r))
	if err != nil {
		s.writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *HTTPServer) handleGetTimeEntry(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, rbac.ActionBilling) {
		return
	}
	entry, err := s.service.GetTimeEntry(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *HTTPServer) handleCreateTimeEntry(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, rbac.ActionBilling) {
		return
	}
	// Billable defaults to true when the field is omitted.
	var body struct {
		store.TimeEntry
		Billable *bool `json:"billable"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	entry := body.TimeEntry
	entry.Billable = body.Billable == nil || *body.Billable
	created, err := s.service.CreateTimeEntry(r.Context(), sessionFrom(r.Context()), entry)
	if err != nil {
		s.writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *HTTPServer) handleUpdateTimeEntry(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, rbac.ActionBilling) {
		return
	}
	var patch store.TimeEntryPatch
	if err := decodeBody(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	entry, err := s.service.UpdateTimeEntry(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		s.writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *HTTPServer) handleDeleteTimeEntry(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, rbac.ActionBilling) {
		return
	}
	if err := s.service.DeleteTimeEntry(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// Invoices

func (s *HTTPServer) handleListInvoices(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, rbac.ActionBilling) {
		return
	}
	filter := store.InvoiceFilter{
		ClientID: r.URL.Query().Get("clientId"),
		Status:   r.URL.Query().Get("status"),
	}
	res, err := s.service.ListInvoices(r.Context(), filter, pageFrom(r))
	if err != nil {
		s.writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *HTTPServer) handleGetInvoice(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, rbac.ActionBilling) {
		return
	}
	invoice, err := s.service.GetInvoice(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, invoice)
}

func (s *HTTPServer) handleCreateInvoice(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, rbac.ActionBilling) {
		return
	}
	var body CreateInvoiceInput
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	invoice, err := s.service.CreateInvoice(r.Context(), body)
	if err != nil {
		s.writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, invoice)
}

func (s *HTTPServer) handleUpdateInvoice(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, rbac.ActionBilling) {
		return
	}
	var patch store.InvoicePatch
	if err := decodeBody(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	invoice, err := s.service.UpdateInvoice(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		s.writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, invoice)
}

func (s *HTTPServer) handleDeleteInvoice(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, rbac.ActionBilling) {
		return
	}
	if err := s.service.DeleteInvoice(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
