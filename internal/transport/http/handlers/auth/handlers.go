package authhandler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"poolops/internal/domain/audit"
	"poolops/internal/domain/auth"
	"poolops/internal/domain/users"
	"poolops/internal/transport/http/api"
	"poolops/internal/transport/http/middleware"
	"poolops/internal/transport/http/shared"
)

type Handler struct {
	Users         *users.Service
	Secret        string
	TokenTTL      time.Duration
	SecureCookies bool
	Audit         audit.Recorder
	Now           func() time.Time
}

func NewHandler(usersSvc *users.Service, secret string, ttl time.Duration, secureCookies bool, auditSvc audit.Recorder) *Handler {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Handler{Users: usersSvc, Secret: secret, TokenTTL: ttl, SecureCookies: secureCookies, Audit: auditSvc, Now: time.Now}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.handleLogin)
		r.Post("/logout", h.handleLogout)
		r.Get("/me", h.handleMe)
	})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=128"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var payload loginRequest
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	validator := shared.NewValidator()
	validator.Struct(payload)
	if validator.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	employee, err := h.Users.Authenticate(r.Context(), payload.Email, payload.Password)
	switch {
	case errors.Is(err, users.ErrInvalidLogin):
		api.Fail(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials", middleware.GetRequestID(r.Context()))
		return
	case errors.Is(err, users.ErrNotApproved):
		api.Fail(w, http.StatusForbidden, "not_approved", "account is awaiting approval", middleware.GetRequestID(r.Context()))
		return
	case err != nil:
		slog.Error("login failed", "err", err, "requestId", middleware.GetRequestID(r.Context()))
		api.Fail(w, http.StatusInternalServerError, "login_failed", "failed to sign in", middleware.GetRequestID(r.Context()))
		return
	}

	token, err := auth.GenerateToken(h.Secret, auth.Claims{EmployeeID: employee.ID, Role: employee.Role}, h.TokenTTL)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "token_error", "failed to issue token", middleware.GetRequestID(r.Context()))
		return
	}
	expires := h.now().Add(h.TokenTTL)
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		MaxAge:   int(h.TokenTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	if h.Audit != nil {
		if err := h.Audit.Record(r.Context(), employee.ID, "auth.login", "employee", strconv.FormatInt(employee.ID, 10), middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, nil); err != nil {
			slog.Warn("audit auth.login failed", "err", err)
		}
	}

	api.Success(w, map[string]any{
		"token":     token,
		"expiresAt": expires,
		"user":      employee,
	}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	api.Success(w, map[string]string{"status": "logged_out"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	employee, err := h.Users.Get(r.Context(), user.EmployeeID)
	if errors.Is(err, users.ErrNotFound) {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	if err != nil {
		slog.Error("load current employee failed", "employeeId", user.EmployeeID, "err", err)
		api.Fail(w, http.StatusInternalServerError, "profile_failed", "failed to load profile", middleware.GetRequestID(r.Context()))
		return
	}
	if !employee.IsApproved() {
		api.Fail(w, http.StatusForbidden, "not_approved", "account is awaiting approval", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, employee, middleware.GetRequestID(r.Context()))
}

func (h *Handler) now() time.Time {
	if h.Now == nil {
		return time.Now()
	}
	return h.Now()
}
