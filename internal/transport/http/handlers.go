// Copyright 2026 The Hearth Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package http

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hearthtools/hearth/internal/admin"
	"github.com/hearthtools/hearth/internal/gate"
	"github.com/hearthtools/hearth/internal/identity"
	"github.com/hearthtools/hearth/internal/observability/logger"
	"github.com/hearthtools/hearth/internal/rbac"
	"github.com/hearthtools/hearth/internal/session"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Handler holds HTTP handlers and dependencies
type Handler struct {
	identityService *identity.Service
	sessionService  *session.Service
	adminService    *admin.Service
	gate            *gate.Gate
	verifier        identity.Verifier
	sessionConfig   SessionConfig
}

// SessionConfig holds session cookie configuration
type SessionConfig struct {
	CookieName     string
	CookieDomain   string
	CookiePath     string
	CookieSecure   bool
	CookieHTTPOnly bool
	CookieSameSite http.SameSite
	CookieMaxAge   int
}

// NewHandler creates a new HTTP handler
func NewHandler(
	identityService *identity.Service,
	sessionService *session.Service,
	adminService *admin.Service,
	g *gate.Gate,
	verifier identity.Verifier,
	sessionConfig SessionConfig,
) *Handler {
	return &Handler{
		identityService: identityService,
		sessionService:  sessionService,
		adminService:    adminService,
		gate:            g,
		verifier:        verifier,
		sessionConfig:   sessionConfig,
	}
}

// NewRouter creates a new HTTP router. webFS optionally carries the built
// web UI; when nil only the API is served.
func NewRouter(h *Handler, rateLimiter *RateLimiter, webFS fs.FS) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(RateLimitMiddleware(rateLimiter))
	r.Use(func(handler http.Handler) http.Handler {
		return otelhttp.NewHandler(handler, "http_request",
			otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		)
	})
	r.Use(LoggingMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", h.HealthCheck)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(h.SessionMiddleware)

		r.Post("/auth/register", h.Register)
		r.Post("/auth/login", h.Login)
		r.Post("/auth/logout", h.Logout)
		r.With(RequireSignIn).Get("/auth/me", h.GetCurrentSession)

		// Tool pages: reads gated at Read, mutations at Write. The admin
		// route is not a tool; it gets its own subtree below.
		for _, d := range rbac.Routes {
			if d.Key == rbac.RouteAdminPermissions {
				continue
			}
			d := d
			r.Route("/"+d.Key, func(r chi.Router) {
				r.With(h.RequireRoute(d.Key, rbac.LevelRead)).Get("/", h.ToolPage(d))
				r.With(h.RequireRoute(d.Key, rbac.LevelWrite)).Post("/", h.ToolSubmit(d))
			})
		}

		// Administration. The admin service re-checks Admin access on the
		// permissions route for every call; the middleware gives the common
		// denial responses and audit path.
		r.Route("/admin", func(r chi.Router) {
			r.Use(h.RequireRoute(rbac.RouteAdminPermissions, rbac.LevelAdmin))

			r.Get("/roles", h.ListRoles)
			r.Post("/roles", h.CreateRole)
			r.Put("/roles/{roleID}", h.UpdateRole)
			r.Delete("/roles/{roleID}", h.DeleteRole)
			r.Get("/roles/{roleID}/routes", h.RouteOptions)
			r.Put("/roles/{roleID}/grants", h.UpsertGrant)
			r.Post("/members/{identityID}/role", h.ChangeMemberRole)
			r.Get("/audit", h.RecentEvents)
		})
	})

	if webFS != nil {
		r.NotFound(WebAppHandler{StaticFS: webFS}.ServeHTTP)
	}

	return r
}

// HealthCheck returns the health status
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "hearth",
	})
}

// RegisterRequest represents registration data
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register handles local account creation
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.identityService.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, identity.ErrUserAlreadyExists) {
			respondError(w, http.StatusConflict, "user already exists")
			return
		}
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"user_id": user.ID,
		"email":   user.Email,
	})
}

// LoginRequest represents login credentials
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles user login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ident, token, err := h.identityService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) {
			respondError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		slog.ErrorContext(r.Context(), "login failed", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "login failed")
		return
	}

	h.setSessionCookie(w, token)

	respondJSON(w, http.StatusOK, map[string]any{
		"user_id": ident.ID,
		"email":   ident.Email,
		"token":   token,
	})
}

// Logout clears the session cookie. Tokens are stateless, so the server has
// nothing to destroy; the client simply stops presenting the token.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.clearSessionCookie(w)
	respondJSON(w, http.StatusOK, map[string]string{
		"message": "logged out successfully",
	})
}

// GetCurrentSession returns the resolved session: identity, roles and
// effective permissions. The UI builds its navigation from this.
func (h *Handler) GetCurrentSession(w http.ResponseWriter, r *http.Request) {
	sess := SessionFromContext(r.Context())

	levels := make(map[string]string, len(sess.Permissions.Levels))
	for route, level := range sess.Permissions.Levels {
		levels[route] = level.String()
	}

	primary := ""
	if sess.PrimaryRole != nil {
		primary = sess.PrimaryRole.Name
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"user_id":      sess.UserID,
		"email":        sess.Email,
		"roles":        sess.RoleNames(),
		"primary_role": primary,
		"superadmin":   sess.IsSuperadmin,
		"permissions":  levels,
	})
}

// ToolPage serves the read view of a tool route
func (h *Handler) ToolPage(d rbac.RouteDescriptor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := SessionFromContext(r.Context())
		respondJSON(w, http.StatusOK, map[string]any{
			"route":       d.Key,
			"label":       d.Label,
			"description": d.Description,
			"level":       sess.Permissions.LevelFor(d.Key).String(),
			"superadmin":  sess.IsSuperadmin,
		})
	}
}

// ToolSubmit accepts a mutation against a tool route. The tools themselves
// live behind this surface; acceptance here proves Write access.
func (h *Handler) ToolSubmit(d rbac.RouteDescriptor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusAccepted, map[string]string{
			"route":  d.Key,
			"status": "accepted",
		})
	}
}

// Helper functions
func (h *Handler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.sessionConfig.CookieName,
		Value:    token,
		Path:     h.sessionConfig.CookiePath,
		Domain:   h.sessionConfig.CookieDomain,
		Secure:   h.sessionConfig.CookieSecure,
		HttpOnly: h.sessionConfig.CookieHTTPOnly,
		SameSite: h.sessionConfig.CookieSameSite,
		MaxAge:   h.sessionConfig.CookieMaxAge,
	})
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:   h.sessionConfig.CookieName,
		Value:  "",
		Path:   h.sessionConfig.CookiePath,
		Domain: h.sessionConfig.CookieDomain,
		MaxAge: -1,
	})
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
