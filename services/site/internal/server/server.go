package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"leaddesk/internal/ratelimit"
	"leaddesk/internal/util"
	"leaddesk/pkg/auth"
	"leaddesk/pkg/storage"
	"leaddesk/pkg/store"
	"leaddesk/services/site/internal/app"
	"leaddesk/services/site/internal/security"
)

const (
	defaultMaxUploadBytes = 50 * 1024 * 1024
	maxJSONBodyBytes      = 1 << 20
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App            *app.App
	Metrics        *Metrics
	LoginLimiter   *ratelimit.FixedWindowLimiter
	Alerter        *security.AuditAlerter
	TrustedProxies *util.TrustedProxies
	CORSOrigins    []string
	MaxUploadBytes int64
}

// Server exposes the public and admin HTTP endpoints.
type Server struct {
	app            *app.App
	metrics        *Metrics
	loginLimiter   *ratelimit.FixedWindowLimiter
	alerter        *security.AuditAlerter
	trustedProxies *util.TrustedProxies
	corsOrigins    []string
	maxUploadBytes int64
	router         chi.Router
}

// New constructs the server with routes configured. A nil LoginLimiter
// disables login throttling and a nil Alerter disables burst alerts.
func New(cfg Config) (*Server, error) {
	if cfg.App == nil {
		return nil, errors.New("app required")
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = NewMetrics()
	}
	maxUpload := cfg.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = defaultMaxUploadBytes
	}
	s := &Server{
		app:            cfg.App,
		metrics:        metrics,
		loginLimiter:   cfg.LoginLimiter,
		alerter:        cfg.Alerter,
		trustedProxies: cfg.TrustedProxies,
		corsOrigins:    cfg.CORSOrigins,
		maxUploadBytes: maxUpload,
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(util.WithRequestID)
	r.Use(util.WithRequestLog)
	r.Use(s.metrics.Instrument)
	r.Use(util.WithSecurityHeaders)
	r.Use(util.WithCORS(s.corsOrigins))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		// public
		r.Post("/contact", s.handleSubmitContact)
		r.Post("/application", s.handleSubmitApplication)
		r.Get("/blog", s.handlePublicBlog)
		r.Get("/blog/{slug}", s.handlePublicPost)
		r.Get("/files/{name}", s.handleServeFile)
		r.Post("/admin/login", s.handleLogin)

		// admin
		r.Group(func(r chi.Router) {
			r.Use(s.requireAdmin)
			r.Use(util.WithNoStore)
			r.Get("/admin/verify", s.handleVerify)
			r.Get("/admin/stats", s.handleStats)

			r.Get("/admin/contacts", s.handleListSubmissions(contacts))
			r.Put("/admin/contacts/{id}", s.handleUpdateSubmission(contacts))
			r.Delete("/admin/contacts/{id}", s.handleDeleteSubmission(contacts))
			r.Get("/admin/applications", s.handleListSubmissions(applications))
			r.Put("/admin/applications/{id}", s.handleUpdateSubmission(applications))
			r.Delete("/admin/applications/{id}", s.handleDeleteSubmission(applications))

			r.Get("/admin/blog", s.handleAdminBlog)
			r.Post("/admin/blog", s.handleCreatePost)
			r.Put("/admin/blog/{slug}", s.handleUpdatePost)
			r.Delete("/admin/blog/{slug}", s.handleDeletePost)

			r.Get("/admin/files", s.handleListFiles)
			r.Post("/admin/files/upload", s.handleUploadFile)
			r.Delete("/admin/files/{name}", s.handleDeleteFile)
		})
	})
	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.app.Ping(ctx); err != nil {
		util.LoggerFromContext(r.Context()).Error("health check failed", "err", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type adminContextKey struct{}

// requireAdmin verifies the bearer token before any handler body runs.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			s.audit(r, "admin.authorize", "fail", "reason", "missing_token")
			writeError(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		email, err := s.app.VerifyAdmin(token)
		if err != nil {
			if errors.Is(err, auth.ErrExpiredCredential) {
				s.audit(r, "admin.authorize", "fail", "reason", "expired_token")
				writeError(w, http.StatusUnauthorized, "Token has expired")
				return
			}
			s.audit(r, "admin.authorize", "fail", "reason", "invalid_token")
			writeError(w, http.StatusUnauthorized, "Invalid token")
			return
		}
		ctx := context.WithValue(r.Context(), adminContextKey{}, email)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func adminEmail(r *http.Request) string {
	email, _ := r.Context().Value(adminContextKey{}).(string)
	return email
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", false
	}
	return token, true
}

func (s *Server) clientIP(r *http.Request) string {
	return util.ClientIP(r, s.trustedProxies)
}

func (s *Server) audit(r *http.Request, event, outcome string, attrs ...any) {
	ip := s.clientIP(r)
	logAttrs := []any{
		"event", event,
		"outcome", outcome,
		"path", r.URL.Path,
		"method", r.Method,
		"ip", ip,
	}
	logAttrs = append(logAttrs, attrs...)
	logger := util.LoggerFromContext(r.Context())
	if outcome == "success" {
		logger.Info("security_event", logAttrs...)
		return
	}
	logger.Warn("security_event", logAttrs...)

	result, err := s.alerter.Observe(r.Context(), event, outcome, ip)
	if err != nil {
		logger.Warn("security alert counter unavailable", "event", event, "err", err)
		return
	}
	if result.Triggered {
		logger.Error("security_alert",
			"event", event,
			"outcome", outcome,
			"ip", ip,
			"count", result.Count,
			"threshold", result.Threshold,
			"window", result.Window.String(),
		)
	}
}

// allowRate applies the login limiter, writing the rejection itself.
func (s *Server) allowRate(w http.ResponseWriter, r *http.Request, limiter *ratelimit.FixedWindowLimiter, msg string) bool {
	if limiter == nil {
		return true
	}
	key := r.URL.Path + "|" + s.clientIP(r)
	allowed, err := limiter.Allow(r.Context(), key)
	if err != nil {
		util.LoggerFromContext(r.Context()).Error("rate limiter unavailable", "err", err)
	}
	if allowed {
		return true
	}
	w.Header().Set("Retry-After", strconv.Itoa(int(limiter.Window().Seconds())))
	writeError(w, http.StatusTooManyRequests, msg)
	return false
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxJSONBodyBytes)).Decode(dst); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"detail": msg})
}

func writeMessage(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusOK, map[string]string{"message": msg})
}

// writeAppError maps core errors to HTTP status codes. Anything unexpected is
// logged with its operation context and reported as a generic 500.
func writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	var nf *app.NotFoundError
	switch {
	case errors.As(err, &nf):
		writeError(w, http.StatusNotFound, nf.Error())
	case errors.Is(err, app.ErrNotFound), errors.Is(err, store.ErrNotFound), errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, app.ErrDuplicateSlug):
		writeError(w, http.StatusBadRequest, "A post with this slug already exists")
	case errors.Is(err, store.ErrDuplicateKey):
		writeError(w, http.StatusBadRequest, "Record already exists")
	case errors.Is(err, app.ErrEmptyUpdate):
		writeError(w, http.StatusBadRequest, "No valid fields to update")
	case errors.Is(err, app.ErrValidation), errors.Is(err, storage.ErrInvalidName):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, app.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, auth.ErrMissingCredential), errors.Is(err, auth.ErrInvalidCredential), errors.Is(err, auth.ErrExpiredCredential):
		writeError(w, http.StatusUnauthorized, "Invalid token")
	default:
		util.LoggerFromContext(r.Context()).Error("request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
