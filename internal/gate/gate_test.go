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

package gate_test

import (
	"context"
	"testing"

	"github.com/hearthtools/hearth/internal/audit"
	"github.com/hearthtools/hearth/internal/gate"
	"github.com/hearthtools/hearth/internal/rbac"
	"github.com/hearthtools/hearth/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	events []audit.Event
}

func (s *recordingSink) Log(ctx context.Context, event audit.Event) {
	s.events = append(s.events, event)
}

func memberSession(levels map[string]rbac.Level) *session.Session {
	return &session.Session{
		SignedIn:    true,
		UserID:      "user-1",
		Email:       "nora@example.com",
		Roles:       []*rbac.Role{{ID: 3, Name: "member", Rank: 10}},
		Permissions: rbac.Effective{Levels: levels},
	}
}

func TestEvaluate_UnauthenticatedNotAudited(t *testing.T) {
	sink := &recordingSink{}
	g := gate.New(sink)
	ctx := context.Background()

	for _, sess := range []*session.Session{nil, session.Anonymous()} {
		d := g.Evaluate(ctx, sess, rbac.RouteFiles, gate.DefaultLevel)
		assert.False(t, d.Allowed)
		assert.Equal(t, gate.ReasonUnauthenticated, d.Reason)
	}

	assert.Empty(t, sink.events, "unauthenticated browsing must not be audited")
}

func TestEvaluate_SuperadminBypassesAnyRequirement(t *testing.T) {
	sink := &recordingSink{}
	g := gate.New(sink)
	sess := &session.Session{
		SignedIn:     true,
		UserID:       "root-1",
		IsSuperadmin: true,
		Permissions:  rbac.Effective{Superadmin: true, Levels: map[string]rbac.Level{}},
	}

	for _, required := range []rbac.Level{rbac.LevelRead, rbac.LevelWrite, rbac.LevelAdmin} {
		d := g.Evaluate(context.Background(), sess, "tools/never-granted", required)
		assert.True(t, d.Allowed)
	}
	assert.Empty(t, sink.events)
}

func TestEvaluate_AllowsAtOrAboveRequired(t *testing.T) {
	sink := &recordingSink{}
	g := gate.New(sink)
	sess := memberSession(map[string]rbac.Level{rbac.RouteFiles: rbac.LevelWrite})

	assert.True(t, g.Evaluate(context.Background(), sess, rbac.RouteFiles, rbac.LevelRead).Allowed)
	assert.True(t, g.Evaluate(context.Background(), sess, rbac.RouteFiles, rbac.LevelWrite).Allowed)
	assert.Empty(t, sink.events)
}

func TestEvaluate_DenialAuditContent(t *testing.T) {
	sink := &recordingSink{}
	g := gate.New(sink)
	sess := memberSession(map[string]rbac.Level{rbac.RouteFiles: rbac.LevelRead})

	d := g.Evaluate(context.Background(), sess, rbac.RouteFiles, rbac.LevelAdmin)

	assert.False(t, d.Allowed)
	assert.Equal(t, gate.ReasonInsufficientRole, d.Reason)

	require.Len(t, sink.events, 1)
	e := sink.events[0]
	assert.Equal(t, audit.ActionAccessDenied, e.Action)
	assert.Equal(t, "user-1", e.ActorID)
	assert.Equal(t, "nora@example.com", e.ActorEmail)
	assert.Equal(t, rbac.RouteFiles, e.Target)
	assert.Equal(t, audit.ReasonInsufficientRole, e.Detail["reason"])
	assert.Equal(t, "Admin", e.Detail["required"])
	assert.Equal(t, "Read", e.Detail["actual"])
	assert.Equal(t, []string{"member"}, e.Detail["roles"])
}

func TestEvaluate_AbsentRouteDeniedAsNone(t *testing.T) {
	sink := &recordingSink{}
	g := gate.New(sink)
	sess := memberSession(map[string]rbac.Level{})

	d := g.Evaluate(context.Background(), sess, rbac.RouteJournal, rbac.LevelRead)

	assert.False(t, d.Allowed)
	require.Len(t, sink.events, 1)
	assert.Equal(t, "None", sink.events[0].Detail["actual"])
}
