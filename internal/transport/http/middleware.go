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
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/hearthtools/hearth/internal/observability/logger"
	"github.com/hearthtools/hearth/internal/rbac"
	"github.com/hearthtools/hearth/internal/session"
)

// LoggingMiddleware logs HTTP requests
func LoggingMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			slog.InfoContext(r.Context(), "http_request_start",
				logger.RequestID(middleware.GetReqID(r.Context())),
				logger.Method(r.Method),
				logger.Path(r.URL.Path),
				logger.RemoteAddr(r.RemoteAddr),
			)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				slog.InfoContext(r.Context(), "http_request_end",
					logger.RequestID(middleware.GetReqID(r.Context())),
					logger.Method(r.Method),
					logger.Path(r.URL.Path),
					logger.RemoteAddr(r.RemoteAddr),
					logger.UserAgent(r.UserAgent()),
					logger.StatusCode(ww.Status()),
					logger.Duration(time.Since(start).Milliseconds()),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

// SessionMiddleware resolves the request's session and stores it on the
// context. It never rejects: a missing or invalid token yields the anonymous
// session, and the gate downstream decides what that session may do. Tokens
// are read from the session cookie or, for API clients, a bearer header.
func (h *Handler) SessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := session.Anonymous()

		if token := h.tokenFromRequest(r); token != "" {
			ident, err := h.verifier.Verify(r.Context(), token)
			if err != nil {
				// Expired or tampered tokens are treated as signed-out,
				// not as errors.
				h.clearSessionCookie(w)
			} else {
				resolved, err := h.sessionService.Resolve(r.Context(), ident)
				if err != nil {
					slog.ErrorContext(r.Context(), "failed to resolve session",
						logger.Error(err),
						logger.UserID(ident.ID),
					)
					respondError(w, http.StatusInternalServerError, "failed to resolve session")
					return
				}
				sess = resolved
			}
		}

		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
	})
}

// RequireRoute gates the wrapped handler on the route at the required level.
// Unauthenticated requests get 401, authenticated-but-insufficient get 403;
// the gate has already audited the latter by the time we respond.
func (h *Handler) RequireRoute(route string, required rbac.Level) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := SessionFromContext(r.Context())

			d := h.gate.Evaluate(r.Context(), sess, route, required)
			if !d.Allowed {
				if sess.SignedIn {
					respondError(w, http.StatusForbidden, "access denied")
				} else {
					respondError(w, http.StatusUnauthorized, "not authenticated")
				}
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireSignIn rejects anonymous requests without consulting the gate. Used
// for endpoints that are per-user rather than per-route, like /auth/me.
func RequireSignIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !SessionFromContext(r.Context()).SignedIn {
			respondError(w, http.StatusUnauthorized, "not authenticated")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) tokenFromRequest(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return token
		}
	}
	cookie, err := r.Cookie(h.sessionConfig.CookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}
