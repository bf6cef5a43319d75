package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"lexdesk/api/internal/auth"
	"lexdesk/api/internal/metrics"
	"lexdesk/api/internal/rbac"
	"lexdesk/api/internal/search"
	"lexdesk/api/internal/store"
)

type HTTPServer struct {
	service        *Service
	log            *slog.Logger
	corsOrigin     string
	metrics        *metrics.Collector
	metricsHandler http.Handler
	writeLimiter   *ipLimiter
}

// HTTPOptions configures the HTTP server. Metrics, MetricsHandler, and the
// rate limit are optional.
type HTTPOptions struct {
	Service        *Service
	Log            *slog.Logger
	CORSOrigin     string
	Metrics        *metrics.Collector
	MetricsHandler http.Handler
	WriteRateLimit int
	WriteRateBurst int
}

func NewHTTPServer(opts HTTPOptions) *HTTPServer {
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	if opts.CORSOrigin == "" {
		opts.CORSOrigin = "*"
	}
	s := &HTTPServer{
		service:        opts.Service,
		log:            opts.Log,
		corsOrigin:     opts.CORSOrigin,
		metrics:        opts.Metrics,
		metricsHandler: opts.MetricsHandler,
	}
	if opts.WriteRateLimit > 0 {
		s.writeLimiter = newIPLimiter(opts.WriteRateLimit, opts.WriteRateBurst)
	}
	return s
}

func (s *HTTPServer) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.withMiddleware)

	if s.metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", s.metricsHandler)
	}

	r.Get("/api/health", s.handleHealth)
	r.Get("/api/ready", s.handleReady)

	r.Post("/api/auth/login", s.handleLogin)
	r.Post("/api/auth/refresh", s.handleRefresh)
	r.Post("/api/auth/logout", s.handleLogout)
	r.Get("/api/session", s.handleSession)

	r.Group(func(r chi.Router) {
		r.Use(s.requireSession)
		r.Use(s.writeRateLimit)

		r.Post("/api/auth/change-password", s.handleChangePassword)
		r.Get("/api/search", s.handleSearch)
		r.Get("/api/reports/summary", s.handleSummary)

		s.registerRecordRoutes(r)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	})

	return r
}

// Middleware

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = randomRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		if r.Method == http.MethodOptions {
			writer.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(writer, r)

		duration := time.Since(started)
		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		if s.metrics != nil {
			s.metrics.RecordHTTPRequest(r.Method, route, writer.status, duration)
		}
		s.log.Info("http request",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", writer.status,
			"duration_ms", duration.Milliseconds(),
		)
	})
}

func (s *HTTPServer) writeRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.writeLimiter != nil && mutating(r.Method) && !s.writeLimiter.allow(clientIP(r)) {
			writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func mutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

type sessionKey struct{}

func (s *HTTPServer) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
			return
		}
		sess, err := s.service.SessionFromToken(r.Context(), token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
			return
		}
		ctx := context.WithValue(r.Context(), sessionKey{}, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionFrom(ctx context.Context) Session {
	sess, _ := ctx.Value(sessionKey{}).(Session)
	return sess
}

func (s *HTTPServer) forbid(w http.ResponseWriter) {
	writeError(w, http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
}

// allow checks the session's role against the action and writes a 403 when
// it is denied.
func (s *HTTPServer) allow(w http.ResponseWriter, r *http.Request, action rbac.Action) bool {
	if !s.service.Can(sessionFrom(r.Context()), action) {
		s.forbid(w)
		return false
	}
	return true
}

// System handlers

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC().Format(time.RFC3339)
	counts, err := s.service.Counts(r.Context())
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "time": now})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "time": now, "counts": counts})
}

func (s *HTTPServer) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	statusCode := http.StatusOK
	checks := map[string]any{
		"store": map[string]any{"status": "ok"},
	}
	if err := s.service.Ping(ctx); err != nil {
		status = "not_ready"
		statusCode = http.StatusServiceUnavailable
		checks["store"] = map[string]any{"status": "error", "error": err.Error()}
	}
	writeJSON(w, statusCode, map[string]any{
		"ok":     status == "ready",
		"status": status,
		"checks": checks,
	})
}

// Auth handlers

func (s *HTTPServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	sess, err := s.service.Login(r.Context(), body.Email, body.Password)
	if err != nil {
		s.writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionPayload(sess))
}

func (s *HTTPServer) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	sess, err := s.service.Refresh(r.Context(), body.RefreshToken)
	if err != nil {
		s.writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionPayload(sess))
}

func (s *HTTPServer) handleLogout(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	if err := s.service.Logout(r.Context(), body.RefreshToken); err != nil {
		s.writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *HTTPServer) handleSession(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		writeJSON(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}
	sess, err := s.service.SessionFromToken(r.Context(), token)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"userId":        sess.UserID,
		"email":         sess.UserEmail,
		"role":          sess.Role,
		"expiresAt":     sess.ExpiresAt,
	})
}

func (s *HTTPServer) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	sess := sessionFrom(r.Context())
	if err := s.service.ChangePassword(r.Context(), sess, body.CurrentPassword, body.NewPassword); err != nil {
		s.writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func sessionPayload(sess Session) map[string]any {
	return map[string]any{
		"token":        sess.Token,
		"refreshToken": sess.RefreshToken,
		"userId":       sess.UserID,
		"userName":     sess.UserName,
		"email":        sess.UserEmail,
		"role":         sess.Role,
		"expiresAt":    sess.ExpiresAt,
	}
}

// Search and reports

func (s *HTTPServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := search.Query{
		Text:   strings.TrimSpace(r.URL.Query().Get("q")),
		Limit:  queryInt(r, "limit", 20),
		Offset: queryInt(r, "offset", 0),
	}
	switch r.URL.Query().Get("type") {
	case "client":
		q.FilterType = search.ResultClient
	case "case":
		q.FilterType = search.ResultCase
	}
	if q.Text == "" {
		writeError(w, http.StatusBadRequest, "INVALID_QUERY", "Query parameter q is required", nil)
		return
	}
	writeJSON(w, http.StatusOK, s.service.Search(r.Context(), q))
}

func (s *HTTPServer) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.service.Summary(r.Context())
	if err != nil {
		s.writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// Helpers

type requestIDKey struct{}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func randomRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func (s *HTTPServer) writeMappedError(w http.ResponseWriter, err error) {
	status, code, message, details := mapError(err)
	if status >= 500 {
		s.log.Error("request failed", "error", err)
	}
	writeError(w, status, code, message, details)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, http.ErrBodyReadAfterClose) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	if errors.Is(err, store.ErrNotFound) {
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	}
	if errors.Is(err, store.ErrConflict) {
		return http.StatusConflict, "CONFLICT", "Conflict", nil
	}
	if errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, auth.ErrExpiredToken) {
		return http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}

func pageFrom(r *http.Request) store.Page {
	return store.Page{
		Number: queryInt(r, "page", 1),
		Limit:  queryInt(r, "limit", 0),
	}
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

func queryBool(r *http.Request, key string) *bool {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &parsed
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	host := r.RemoteAddr
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		host = host[:idx]
	}
	return host
}
