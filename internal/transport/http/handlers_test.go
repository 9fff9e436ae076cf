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
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/hearthtools/hearth/internal/admin"
	"github.com/hearthtools/hearth/internal/audit"
	"github.com/hearthtools/hearth/internal/gate"
	"github.com/hearthtools/hearth/internal/identity"
	"github.com/hearthtools/hearth/internal/rbac"
	"github.com/hearthtools/hearth/internal/rbac/rbactest"
	"github.com/hearthtools/hearth/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu     sync.Mutex
	events []audit.Event
}

func (s *recordingSink) Log(ctx context.Context, event audit.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *recordingSink) ListRecent(ctx context.Context, limit int) ([]*audit.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*audit.Event, 0, len(s.events))
	for i := len(s.events) - 1; i >= 0 && len(out) < limit; i-- {
		e := s.events[i]
		out = append(out, &e)
	}
	return out, nil
}

func (s *recordingSink) byAction(action string) []audit.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []audit.Event
	for _, e := range s.events {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}

type memoryUserRepo struct {
	mu    sync.Mutex
	users map[string]*identity.User
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{users: make(map[string]*identity.User)}
}

func (r *memoryUserRepo) Create(ctx context.Context, user *identity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return identity.ErrUserAlreadyExists
		}
	}
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *memoryUserRepo) GetByID(ctx context.Context, id string) (*identity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, identity.ErrUserNotFound
}

func (r *memoryUserRepo) GetByEmail(ctx context.Context, email string) (*identity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, identity.ErrUserNotFound
}

type testEnv struct {
	router  http.Handler
	fixture *rbactest.Fixture
	sink    *recordingSink
	tokens  *identity.TokenService

	super  *rbac.Role
	admin  *rbac.Role
	member *rbac.Role
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	fix, super, adminRole, member := rbactest.Seeded()
	sink := &recordingSink{}

	tokens := identity.NewTokenService([]byte("test-secret-0123456789abcdef"), time.Hour)
	hasher := identity.NewPasswordHasher(8*1024, 1, 1, 16, 32)
	identitySvc := identity.NewService(newMemoryUserRepo(), hasher, tokens, sink)

	sessionSvc := session.NewService(fix, fix.Grants(), fix)
	g := gate.New(sink)
	adminSvc := admin.NewService(fix, fix.Grants(), fix, g, sink, sink)

	h := NewHandler(identitySvc, sessionSvc, adminSvc, g, tokens, SessionConfig{
		CookieName:     "hearth_session",
		CookiePath:     "/",
		CookieHTTPOnly: true,
		CookieSameSite: http.SameSiteLaxMode,
		CookieMaxAge:   86400,
	})

	return &testEnv{
		router:  NewRouter(h, NewRateLimiter(1000, 1000), nil),
		fixture: fix,
		sink:    sink,
		tokens:  tokens,
		super:   super,
		admin:   adminRole,
		member:  member,
	}
}

// signIn assigns the role and returns a bearer token for the identity.
func (e *testEnv) signIn(t *testing.T, userID, email string, role *rbac.Role) string {
	t.Helper()
	if role != nil {
		require.NoError(t, e.fixture.Assign(context.Background(), &rbac.Membership{
			IdentityID: userID,
			RoleID:     role.ID,
			GrantedAt:  time.Now(),
			GrantedBy:  "test",
		}))
	}
	token, err := e.tokens.Issue(&identity.Identity{ID: userID, Email: email})
	require.NoError(t, err)
	return token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func TestHealthCheck(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestToolRequiresAuthentication(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/tools/cinema", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Unauthenticated denials are ordinary browsing, not audited.
	assert.Empty(t, env.sink.byAction(audit.ActionAccessDenied))
}

func TestToolDeniedWithoutGrant(t *testing.T) {
	env := newTestEnv(t)
	token := env.signIn(t, "user-1", "user1@example.com", env.member)

	w := env.do(t, http.MethodGet, "/api/v1/tools/cinema", token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	denials := env.sink.byAction(audit.ActionAccessDenied)
	require.Len(t, denials, 1)
	assert.Equal(t, "user-1", denials[0].ActorID)
	assert.Equal(t, rbac.RouteCinema, denials[0].Target)
}

func TestToolAccessFollowsGrantLevel(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	token := env.signIn(t, "user-2", "user2@example.com", env.member)

	require.NoError(t, env.fixture.Upsert(ctx, &rbac.Grant{
		RoleID: env.member.ID, Route: rbac.RouteCinema, Level: rbac.LevelRead,
	}))

	w := env.do(t, http.MethodGet, "/api/v1/tools/cinema", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// Read does not cover Write.
	w = env.do(t, http.MethodPost, "/api/v1/tools/cinema", token, map[string]string{"note": "x"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	require.NoError(t, env.fixture.Upsert(ctx, &rbac.Grant{
		RoleID: env.member.ID, Route: rbac.RouteCinema, Level: rbac.LevelWrite,
	}))
	w = env.do(t, http.MethodPost, "/api/v1/tools/cinema", token, map[string]string{"note": "x"})
	assert.Equal(t, http.StatusAccepted, w.Code)
}

func TestSuperadminAccessesEverything(t *testing.T) {
	env := newTestEnv(t)
	token := env.signIn(t, "root-1", "root@example.com", env.super)

	for _, path := range []string{
		"/api/v1/tools/files",
		"/api/v1/tools/journal",
		"/api/v1/tools/messages",
	} {
		w := env.do(t, http.MethodGet, path, token, nil)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}

	w := env.do(t, http.MethodGet, "/api/v1/admin/roles", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, env.sink.byAction(audit.ActionAccessDenied))
}

func TestAdminSubtreeGated(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/admin/roles", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token := env.signIn(t, "user-3", "user3@example.com", env.member)
	w = env.do(t, http.MethodGet, "/api/v1/admin/roles", token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.NotEmpty(t, env.sink.byAction(audit.ActionAccessDenied))
}

func TestRoleChangeRequiresSuperadminActor(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// An admin with full Admin access to the administration surface but no
	// superadmin role.
	require.NoError(t, env.fixture.Upsert(ctx, &rbac.Grant{
		RoleID: env.admin.ID, Route: rbac.RouteAdminPermissions, Level: rbac.LevelAdmin,
	}))
	token := env.signIn(t, "admin-1", "admin@example.com", env.admin)

	// Role CRUD works for them.
	w := env.do(t, http.MethodGet, "/api/v1/admin/roles", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// Changing a member's role does not.
	w = env.do(t, http.MethodPost, "/api/v1/admin/members/user-9/role", token,
		ChangeMemberRoleRequest{Role: rbac.RoleMember})
	assert.Equal(t, http.StatusForbidden, w.Code)

	changes := env.sink.byAction(audit.ActionRoleChange)
	require.Len(t, changes, 1)
	assert.Equal(t, audit.ReasonRoleChangeNotSuperadmin, changes[0].Detail["reason"])
}

func TestInvalidTokenIsAnonymous(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/tools/cinema", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, env.sink.byAction(audit.ActionAccessDenied))
}

func TestRegisterLoginAndSessionInfo(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/auth/register", "",
		RegisterRequest{Email: "new@example.com", Password: "long-enough-password"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/auth/login", "",
		LoginRequest{Email: "new@example.com", Password: "long-enough-password"})
	require.Equal(t, http.StatusOK, w.Code)

	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.Equal(t, "hearth_session", cookies[0].Name)

	var loginResp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&loginResp))
	require.NotEmpty(t, loginResp.Token)

	// First resolved session self-heals the default member role.
	w = env.do(t, http.MethodGet, "/api/v1/auth/me", loginResp.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var me struct {
		Email       string            `json:"email"`
		Roles       []string          `json:"roles"`
		PrimaryRole string            `json:"primary_role"`
		Superadmin  bool              `json:"superadmin"`
		Permissions map[string]string `json:"permissions"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&me))
	assert.Equal(t, "new@example.com", me.Email)
	assert.Equal(t, []string{rbac.RoleMember}, me.Roles)
	assert.Equal(t, rbac.RoleMember, me.PrimaryRole)
	assert.False(t, me.Superadmin)
}

func TestSessionCookieAuth(t *testing.T) {
	env := newTestEnv(t)
	token := env.signIn(t, "user-4", "user4@example.com", env.member)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: "hearth_session", Value: token})
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/auth/register", "",
		RegisterRequest{Email: "x@example.com", Password: "long-enough-password"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/auth/login", "",
		LoginRequest{Email: "x@example.com", Password: "wrong-password-here"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.NotEmpty(t, env.sink.byAction(audit.ActionSecurity))
}
